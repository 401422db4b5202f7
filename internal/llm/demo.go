package llm

import (
	"context"
	"math/rand/v2"
	"time"

	"github.com/raine/telegram-carbon-bot/internal/carbon"
)

// DemoAnalyzer returns one of the built-in demo receipts. It is used when no
// Gemini API key is configured so the rest of the bot stays usable.
type DemoAnalyzer struct {
	// Delay simulates model latency. Zero means respond immediately.
	Delay time.Duration
	pick  func(n int) int
}

// NewDemoAnalyzer creates a demo analyzer that picks receipts at random.
func NewDemoAnalyzer(delay time.Duration) *DemoAnalyzer {
	return &DemoAnalyzer{Delay: delay, pick: rand.IntN}
}

func (d *DemoAnalyzer) AnalyzeReceipt(ctx context.Context, images [][]byte) (*ReceiptAnalysis, error) {
	if d.Delay > 0 {
		timer := time.NewTimer(d.Delay)
		defer timer.Stop()
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-timer.C:
		}
	}

	receipts := carbon.DemoReceipts()
	pick := d.pick
	if pick == nil {
		pick = rand.IntN
	}
	receipt := receipts[pick(len(receipts))]

	return &ReceiptAnalysis{Items: carbon.Inputs(receipt), Demo: true}, nil
}
