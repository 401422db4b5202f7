package digest

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/dustin/go-humanize"
	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/raine/telegram-carbon-bot/internal/carbon"
	"github.com/raine/telegram-carbon-bot/internal/storage"
	"github.com/rs/zerolog/log"
)

const (
	// CheckInterval is the time between digest checks.
	CheckInterval = time.Hour

	// StartupDelay lets the bot fully start before the first check.
	StartupDelay = 5 * time.Second

	// SendWeekday and SendHour set when the weekly digest goes out.
	SendWeekday = time.Sunday
	SendHour    = 18

	// PruneInterval is how often to prune the receipt cache.
	PruneInterval = 24 * time.Hour

	// ReceiptCacheMaxAge is how long cached receipt analyses are kept.
	ReceiptCacheMaxAge = 90 * 24 * time.Hour
)

// BotSender abstracts the Telegram bot API for sending messages.
type BotSender interface {
	Send(c tgbotapi.Chattable) (tgbotapi.Message, error)
}

// Service sends each active user a weekly summary of their footprint and
// keeps the receipt cache trimmed.
type Service struct {
	store *storage.SQLiteStore
	bot   BotSender
	now   func() time.Time
}

// NewService creates a new digest service.
func NewService(store *storage.SQLiteStore, bot BotSender) *Service {
	return &Service{
		store: store,
		bot:   bot,
		now:   time.Now,
	}
}

// Run starts the digest loop. It blocks until the context is cancelled.
func (s *Service) Run(ctx context.Context) {
	log.Info().Dur("interval", CheckInterval).Str("weekday", SendWeekday.String()).Int("hour", SendHour).Msg("starting digest service")

	select {
	case <-ctx.Done():
		return
	case <-time.After(StartupDelay):
	}
	s.check(ctx)
	s.pruneReceiptCache()

	ticker := time.NewTicker(CheckInterval)
	defer ticker.Stop()

	pruneTicker := time.NewTicker(PruneInterval)
	defer pruneTicker.Stop()

	for {
		select {
		case <-ctx.Done():
			log.Info().Msg("digest service stopped")
			return
		case <-ticker.C:
			s.check(ctx)
		case <-pruneTicker.C:
			s.pruneReceiptCache()
		}
	}
}

// WeekKey identifies the ISO week containing t, e.g. "2026-W42".
func WeekKey(t time.Time) string {
	year, week := t.ISOWeek()
	return fmt.Sprintf("%d-W%02d", year, week)
}

// weekStart returns the Monday starting t's ISO week.
func weekStart(t time.Time) time.Time {
	day := time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, t.Location())
	offset := (int(day.Weekday()) + 6) % 7
	return day.AddDate(0, 0, -offset)
}

// due reports whether the digest for t's week may be sent.
func due(t time.Time) bool {
	return t.Weekday() == SendWeekday && t.Hour() >= SendHour
}

// check sends digests when they are due. Users already sent the current
// week's digest are skipped, so repeated checks are harmless.
func (s *Service) check(ctx context.Context) {
	now := s.now()
	if !due(now) {
		return
	}
	sent := s.SendDigests(ctx, now)
	if sent > 0 {
		log.Info().Int("sent", sent).Str("week", WeekKey(now)).Msg("sent weekly digests")
	}
}

// SendDigests sends the digest for now's week to every user active in the
// last 7 days who has not received it yet. It returns the number sent.
func (s *Service) SendDigests(ctx context.Context, now time.Time) int {
	week := WeekKey(now)
	from := weekStart(now)
	to := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, now.Location()).AddDate(0, 0, 1)

	users, err := s.store.GetActiveUsersSince(now.AddDate(0, 0, -7))
	if err != nil {
		log.Error().Err(err).Msg("failed to fetch active users")
		return 0
	}

	sent := 0
	for _, userID := range users {
		if ctx.Err() != nil {
			return sent
		}

		already, err := s.store.WasDigestSent(userID, week)
		if err != nil {
			log.Error().Err(err).Int64("userID", userID).Msg("failed to check digest log")
			continue
		}
		if already {
			continue
		}

		stats, err := s.store.GetPeriodStats(userID, from, to)
		if err != nil {
			log.Error().Err(err).Int64("userID", userID).Msg("failed to get weekly stats")
			continue
		}
		if stats.Count == 0 {
			continue
		}

		if !s.sendDigest(userID, week, stats) {
			continue
		}
		if err := s.store.MarkDigestSent(userID, week); err != nil {
			log.Error().Err(err).Int64("userID", userID).Msg("failed to mark digest sent")
		}
		sent++
	}
	return sent
}

// topCategory returns the category with the largest emissions.
func topCategory(byCategory map[carbon.Category]float64) (carbon.Category, float64) {
	categories := make([]carbon.Category, 0, len(byCategory))
	for c := range byCategory {
		categories = append(categories, c)
	}
	sort.Slice(categories, func(i, j int) bool {
		a, b := byCategory[categories[i]], byCategory[categories[j]]
		if a != b {
			return a > b
		}
		return categories[i] < categories[j]
	})
	if len(categories) == 0 {
		return carbon.CategoryOther, 0
	}
	return categories[0], byCategory[categories[0]]
}

// suggestionFor picks one reduction tip from the week's category totals.
func suggestionFor(byCategory map[carbon.Category]float64) string {
	items := make([]carbon.AnalyzedItem, 0, len(byCategory))
	for c, kg := range byCategory {
		items = append(items, carbon.AnalyzedItem{Name: string(c), CarbonKg: kg, Category: c})
	}
	return carbon.GenerateSuggestions(items)[0]
}

func formatDigest(week string, stats *storage.PeriodStats) string {
	category, kg := topCategory(stats.ByCategory)
	entries := "entries"
	if stats.Count == 1 {
		entries = "entry"
	}

	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("📅 *Your week in carbon* (%s)\n\n", week))
	sb.WriteString(fmt.Sprintf("Total: *%s kg* CO₂e from %d %s\n", humanize.CommafWithDigits(stats.Total, 2), stats.Count, entries))
	sb.WriteString(fmt.Sprintf("Biggest source: %s (%s kg)\n\n", category, humanize.CommafWithDigits(kg, 2)))
	sb.WriteString("💡 ")
	sb.WriteString(suggestionFor(stats.ByCategory))
	return sb.String()
}

// sendDigest sends one digest message and reports whether it was delivered.
func (s *Service) sendDigest(userID int64, week string, stats *storage.PeriodStats) bool {
	msg := tgbotapi.NewMessage(userID, formatDigest(week, stats))
	msg.ParseMode = tgbotapi.ModeMarkdown

	if _, err := s.bot.Send(msg); err != nil {
		log.Error().Err(err).Int64("userID", userID).Str("week", week).Msg("failed to send digest")
		return false
	}
	log.Debug().Int64("userID", userID).Str("week", week).Msg("digest sent")
	return true
}

// pruneReceiptCache removes old cached receipt analyses to prevent database bloat.
func (s *Service) pruneReceiptCache() {
	count, err := s.store.PruneReceiptCache(ReceiptCacheMaxAge)
	if err != nil {
		log.Error().Err(err).Msg("failed to prune receipt cache")
		return
	}
	if count > 0 {
		log.Info().Int64("pruned", count).Msg("pruned receipt cache")
	}
}
