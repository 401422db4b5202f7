package storage

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/raine/telegram-carbon-bot/internal/carbon"
)

// GetReceiptCache returns the cached items for an image hash, or nil on a miss.
func (s *SQLiteStore) GetReceiptCache(imageHash string) ([]carbon.ItemInput, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var itemsJSON string
	err := s.db.QueryRow(
		"SELECT items_json FROM receipt_cache WHERE image_hash = ?",
		imageHash,
	).Scan(&itemsJSON)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to query receipt cache: %w", err)
	}

	var items []carbon.ItemInput
	if err := json.Unmarshal([]byte(itemsJSON), &items); err != nil {
		return nil, fmt.Errorf("failed to decode cached items: %w", err)
	}
	return items, nil
}

// SetReceiptCache stores the items extracted from an image.
func (s *SQLiteStore) SetReceiptCache(imageHash string, items []carbon.ItemInput) error {
	data, err := json.Marshal(items)
	if err != nil {
		return fmt.Errorf("failed to encode items: %w", err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	_, err = s.db.Exec(`
		INSERT INTO receipt_cache (image_hash, items_json, created_at)
		VALUES (?, ?, ?)
		ON CONFLICT(image_hash) DO UPDATE SET
			items_json = excluded.items_json,
			created_at = excluded.created_at
	`, imageHash, string(data), time.Now().UTC())
	if err != nil {
		return fmt.Errorf("failed to cache receipt: %w", err)
	}
	return nil
}

// PruneReceiptCache removes cache entries older than maxAge and returns how
// many were deleted.
func (s *SQLiteStore) PruneReceiptCache(maxAge time.Duration) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	cutoff := time.Now().UTC().Add(-maxAge)
	res, err := s.db.Exec("DELETE FROM receipt_cache WHERE created_at < ?", cutoff)
	if err != nil {
		return 0, fmt.Errorf("failed to prune receipt cache: %w", err)
	}
	return res.RowsAffected()
}
