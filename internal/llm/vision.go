package llm

import (
	"context"
	"errors"

	"github.com/raine/telegram-carbon-bot/internal/carbon"
)

// ErrNoItems is returned when a receipt yields no line items.
var ErrNoItems = errors.New("no items found on receipt")

// maxImages caps how many photos are sent in one request (Telegram's album limit).
const maxImages = 10

// Usage contains token usage and cost information.
type Usage struct {
	InputTokens  int64
	OutputTokens int64
	TotalTokens  int64
	CostUSD      float64
}

// ReceiptAnalysis is what a vision model read from receipt photos. Items may
// lack carbon or category values; carbon.Analyze fills them in.
type ReceiptAnalysis struct {
	Items  []carbon.ItemInput
	Usage  Usage
	Cached bool
	Demo   bool
}

// ReceiptAnalyzer extracts purchased items from receipt images.
type ReceiptAnalyzer interface {
	AnalyzeReceipt(ctx context.Context, images [][]byte) (*ReceiptAnalysis, error)
}
