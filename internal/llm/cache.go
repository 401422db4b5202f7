package llm

import (
	"context"
	"crypto/sha256"
	"encoding/binary"
	"encoding/hex"

	"github.com/raine/telegram-carbon-bot/internal/carbon"
	"github.com/rs/zerolog/log"
)

// ReceiptCache stores analyzed receipt items keyed by image hash.
type ReceiptCache interface {
	GetReceiptCache(hash string) ([]carbon.ItemInput, error)
	SetReceiptCache(hash string, items []carbon.ItemInput) error
}

// CachedAnalyzer wraps a ReceiptAnalyzer with SQLite caching, so the same
// photos sent twice only cost one model call.
type CachedAnalyzer struct {
	inner ReceiptAnalyzer
	store ReceiptCache
}

// NewCachedAnalyzer creates a cached analyzer.
func NewCachedAnalyzer(inner ReceiptAnalyzer, store ReceiptCache) *CachedAnalyzer {
	return &CachedAnalyzer{inner: inner, store: store}
}

// hashImages creates a SHA256 hash from image data.
// Includes length prefix for each image to prevent boundary collisions.
func hashImages(images [][]byte) string {
	h := sha256.New()
	for _, img := range images {
		// [A,B] and [AB] must hash differently
		binary.Write(h, binary.LittleEndian, int64(len(img)))
		h.Write(img)
	}
	return hex.EncodeToString(h.Sum(nil))
}

// AnalyzeReceipt implements ReceiptAnalyzer with caching.
func (c *CachedAnalyzer) AnalyzeReceipt(ctx context.Context, images [][]byte) (*ReceiptAnalysis, error) {
	hash := hashImages(images)

	if c.store != nil {
		cached, err := c.store.GetReceiptCache(hash)
		if err != nil {
			log.Warn().Err(err).Msg("failed to check receipt cache")
		} else if len(cached) > 0 {
			log.Debug().Str("hash", hash[:16]).Int("itemCount", len(cached)).Msg("receipt cache hit")
			return &ReceiptAnalysis{Items: cached, Cached: true}, nil
		}
	}

	result, err := c.inner.AnalyzeReceipt(ctx, images)
	if err != nil {
		return nil, err
	}

	// Demo results are random picks and must not stick to a photo.
	if c.store != nil && !result.Demo && len(result.Items) > 0 {
		if err := c.store.SetReceiptCache(hash, result.Items); err != nil {
			log.Warn().Err(err).Msg("failed to cache receipt result")
		} else {
			log.Debug().Str("hash", hash[:16]).Msg("cached receipt result")
		}
	}

	return result, nil
}
