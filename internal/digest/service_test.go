package digest

import (
	"context"
	"errors"
	"path/filepath"
	"strings"
	"testing"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/raine/telegram-carbon-bot/internal/carbon"
	"github.com/raine/telegram-carbon-bot/internal/storage"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

type senderMock struct {
	mock.Mock
}

func (m *senderMock) Send(c tgbotapi.Chattable) (tgbotapi.Message, error) {
	args := m.Called(c)
	return args.Get(0).(tgbotapi.Message), args.Error(1)
}

func newTestStore(t *testing.T) *storage.SQLiteStore {
	t.Helper()
	store, err := storage.NewSQLiteStore(filepath.Join(t.TempDir(), "digest.db"))
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })
	return store
}

func date(y int, m time.Month, d, hour int) time.Time {
	return time.Date(y, m, d, hour, 0, 0, 0, time.UTC)
}

func TestWeekKey(t *testing.T) {
	assert.Equal(t, "2026-W42", WeekKey(date(2026, 10, 18, 12)))
	assert.Equal(t, "2026-W42", WeekKey(date(2026, 10, 12, 0)))
	assert.Equal(t, "2026-W01", WeekKey(date(2025, 12, 29, 0)))
}

func TestWeekStart(t *testing.T) {
	assert.Equal(t, date(2026, 10, 12, 0), weekStart(date(2026, 10, 18, 20)))
	assert.Equal(t, date(2026, 10, 12, 0), weekStart(date(2026, 10, 12, 9)))
}

func TestDue(t *testing.T) {
	assert.True(t, due(date(2026, 10, 18, 18)))
	assert.True(t, due(date(2026, 10, 18, 23)))
	assert.False(t, due(date(2026, 10, 18, 17)))
	assert.False(t, due(date(2026, 10, 17, 20)))
}

func TestSendDigests(t *testing.T) {
	store := newTestStore(t)
	receipt := carbon.Analyze(carbon.Inputs(carbon.DemoReceipts()[0]))

	// Active this week
	_, err := store.AddCarbonEntries(1, date(2026, 10, 13, 0), storage.SourceReceipt, receipt.Items)
	require.NoError(t, err)
	// Inactive for more than a week
	_, err = store.AddCarbonEntries(2, date(2026, 10, 5, 0), storage.SourceReceipt, receipt.Items)
	require.NoError(t, err)
	// Active in the last 7 days but not this ISO week
	_, err = store.AddCarbonEntries(3, date(2026, 10, 11, 0), storage.SourceReceipt, receipt.Items)
	require.NoError(t, err)

	bot := new(senderMock)
	bot.On("Send", mock.MatchedBy(func(msg tgbotapi.MessageConfig) bool {
		return msg.ChatID == 1 &&
			msg.ParseMode == tgbotapi.ModeMarkdown &&
			strings.Contains(msg.Text, "2026-W42") &&
			strings.Contains(msg.Text, "19.02 kg") &&
			strings.Contains(msg.Text, "from 5 entries") &&
			strings.Contains(msg.Text, "Food - Meat (13.5 kg)") &&
			strings.Contains(msg.Text, "Beef has the highest carbon footprint")
	})).Return(tgbotapi.Message{}, nil).Once()

	s := NewService(store, bot)
	now := date(2026, 10, 18, 19)

	assert.Equal(t, 1, s.SendDigests(context.Background(), now))
	assert.Equal(t, 0, s.SendDigests(context.Background(), now))
	bot.AssertExpectations(t)

	sent, err := store.WasDigestSent(1, "2026-W42")
	require.NoError(t, err)
	assert.True(t, sent)
}

func TestSendDigests_FailedSendIsRetried(t *testing.T) {
	store := newTestStore(t)
	_, err := store.AddCarbonEntries(1, date(2026, 10, 14, 0), storage.SourceManual, []carbon.AnalyzedItem{
		{Name: "Bus", CarbonKg: 0.09, Category: carbon.CategoryTransport},
	})
	require.NoError(t, err)

	bot := new(senderMock)
	bot.On("Send", mock.Anything).Return(tgbotapi.Message{}, errors.New("blocked by user")).Once()
	bot.On("Send", mock.Anything).Return(tgbotapi.Message{}, nil).Once()

	s := NewService(store, bot)
	now := date(2026, 10, 18, 20)

	assert.Equal(t, 0, s.SendDigests(context.Background(), now))
	sent, err := store.WasDigestSent(1, WeekKey(now))
	require.NoError(t, err)
	assert.False(t, sent)

	assert.Equal(t, 1, s.SendDigests(context.Background(), now))
	bot.AssertExpectations(t)
}

func TestSendDigests_CheckInsAreNotPurchases(t *testing.T) {
	store := newTestStore(t)
	_, err := store.AddCarbonEntries(1, date(2026, 10, 14, 0), storage.SourceChallenge, []carbon.AnalyzedItem{
		{Name: "Check-in: Meatless Week", CarbonKg: 0, Category: carbon.CategoryMeat},
	})
	require.NoError(t, err)
	_, err = store.AddCarbonEntries(1, date(2026, 10, 14, 0), storage.SourceManual, []carbon.AnalyzedItem{
		{Name: "Bananas", CarbonKg: 0.7, Category: carbon.CategoryProduce},
	})
	require.NoError(t, err)
	// Only check-ins this week
	_, err = store.AddCarbonEntries(2, date(2026, 10, 15, 0), storage.SourceChallenge, []carbon.AnalyzedItem{
		{Name: "Check-in: Public Transport Hero", CarbonKg: 0, Category: carbon.CategoryTransport},
	})
	require.NoError(t, err)

	bot := new(senderMock)
	bot.On("Send", mock.MatchedBy(func(msg tgbotapi.MessageConfig) bool {
		return msg.ChatID == 1 &&
			strings.Contains(msg.Text, "*0.7 kg* CO₂e from 1 entry") &&
			strings.Contains(msg.Text, "Food - Produce (0.7 kg)") &&
			strings.Contains(msg.Text, "Buying local and seasonal produce") &&
			!strings.Contains(msg.Text, "Meatless")
	})).Return(tgbotapi.Message{}, nil).Once()

	s := NewService(store, bot)
	assert.Equal(t, 1, s.SendDigests(context.Background(), date(2026, 10, 18, 19)))
	bot.AssertExpectations(t)
}

func TestCheck_NotDue(t *testing.T) {
	store := newTestStore(t)
	_, err := store.AddCarbonEntries(1, date(2026, 10, 14, 0), storage.SourceManual, []carbon.AnalyzedItem{
		{Name: "Milk", CarbonKg: 1.9, Category: carbon.CategoryDairy},
	})
	require.NoError(t, err)

	bot := new(senderMock)
	s := NewService(store, bot)
	s.now = func() time.Time { return date(2026, 10, 15, 20) }

	s.check(context.Background())
	bot.AssertNotCalled(t, "Send", mock.Anything)
}

func TestFormatDigest(t *testing.T) {
	stats := &storage.PeriodStats{
		Total: 3.4,
		Count: 1,
		ByCategory: map[carbon.Category]float64{
			carbon.CategoryDairy: 3.4,
		},
	}
	text := formatDigest("2026-W42", stats)
	assert.Contains(t, text, "from 1 entry")
	assert.Contains(t, text, "Food - Dairy (3.4 kg)")
	assert.Contains(t, text, "oat or almond milk")
}

func TestTopCategory(t *testing.T) {
	c, kg := topCategory(map[carbon.Category]float64{
		carbon.CategoryDairy:     2,
		carbon.CategoryTransport: 5,
		carbon.CategoryProduce:   5,
	})
	assert.Equal(t, carbon.CategoryProduce, c)
	assert.Equal(t, 5.0, kg)

	c, _ = topCategory(nil)
	assert.Equal(t, carbon.CategoryOther, c)
}
