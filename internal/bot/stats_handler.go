package bot

import (
	"fmt"
	"math"
	"sort"
	"strings"
	"time"

	"github.com/raine/telegram-carbon-bot/internal/carbon"
	"github.com/raine/telegram-carbon-bot/internal/challenge"
	"github.com/raine/telegram-carbon-bot/internal/storage"
)

// streakLookback bounds how far back active days are fetched for streaks.
const streakLookback = 366

// StatsHandler renders the /stats summary.
type StatsHandler struct {
	store *storage.SQLiteStore
	now   func() time.Time
}

// NewStatsHandler creates a new StatsHandler.
func NewStatsHandler(store *storage.SQLiteStore) *StatsHandler {
	return &StatsHandler{store: store, now: time.Now}
}

// startOfDay truncates t to local midnight.
func startOfDay(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, t.Location())
}

// startOfWeek returns the Monday starting t's ISO week.
func startOfWeek(t time.Time) time.Time {
	day := startOfDay(t)
	offset := (int(day.Weekday()) + 6) % 7
	return day.AddDate(0, 0, -offset)
}

func startOfMonth(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), 1, 0, 0, 0, 0, t.Location())
}

type categoryTotal struct {
	Category carbon.Category
	Kg       float64
}

// sortedCategories orders a category breakdown by emissions, largest first.
func sortedCategories(byCategory map[carbon.Category]float64) []categoryTotal {
	out := make([]categoryTotal, 0, len(byCategory))
	for c, kg := range byCategory {
		out = append(out, categoryTotal{Category: c, Kg: kg})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Kg != out[j].Kg {
			return out[i].Kg > out[j].Kg
		}
		return out[i].Category < out[j].Category
	})
	return out
}

// HandleStats handles the /stats command.
func (h *StatsHandler) HandleStats(session *UserSession) {
	now := h.now()
	tomorrow := startOfDay(now).AddDate(0, 0, 1)

	week, err := h.store.GetPeriodStats(session.userId, startOfWeek(now), tomorrow)
	if err != nil {
		session.replyWithError(err)
		return
	}
	month, err := h.store.GetPeriodStats(session.userId, startOfMonth(now), tomorrow)
	if err != nil {
		session.replyWithError(err)
		return
	}
	all, err := h.store.GetPeriodStats(session.userId, time.Time{}, tomorrow)
	if err != nil {
		session.replyWithError(err)
		return
	}
	if all.Count == 0 {
		session.reply(MsgJournalEmpty)
		return
	}

	days, err := h.store.GetActiveDays(session.userId, now.AddDate(0, 0, -streakLookback))
	if err != nil {
		session.replyWithError(err)
		return
	}
	rank, err := h.store.GetUserRank(session.userId)
	if err != nil {
		session.replyWithError(err)
		return
	}

	session.reply(strings.ReplaceAll(formatStats(week, month, all, challenge.Streak(days, now), rank), "%", "%%"))
}

func formatStats(week, month, all *storage.PeriodStats, streak int, rank *storage.LeaderboardEntry) string {
	var sb strings.Builder
	sb.WriteString(MsgStatsHeader)
	sb.WriteString("\n\n")
	for _, p := range []struct {
		label string
		stats *storage.PeriodStats
	}{
		{"This week", week},
		{"This month", month},
		{"All time", all},
	} {
		sb.WriteString(fmt.Sprintf(MsgStatsPeriod, p.label, formatKg(p.stats.Total), pluralize("entry", "entries", p.stats.Count)))
		sb.WriteString("\n")
	}

	if len(month.ByCategory) > 0 {
		sb.WriteString("\n")
		sb.WriteString(MsgStatsByCategory)
		for _, c := range sortedCategories(month.ByCategory) {
			sb.WriteString("\n")
			sb.WriteString(fmt.Sprintf(MsgStatsCategoryItem, emojiFor(c.Category), c.Category, formatKg(c.Kg)))
		}
		sb.WriteString("\n")
	}

	sb.WriteString("\n")
	sb.WriteString(averageComparison(month.Total))
	sb.WriteString("\n")
	sb.WriteString(fmt.Sprintf(MsgStatsStreak, pluralize("day", "days", streak)))
	if rank != nil && rank.CarbonSaved > 0 {
		sb.WriteString("\n")
		sb.WriteString(fmt.Sprintf(MsgStatsRank, rank.Rank))
	}

	sb.WriteString("\n\n")
	sb.WriteString(MsgEquivalentsHeader)
	sb.WriteString("\n")
	sb.WriteString(formatEquivalencies(carbon.CalculateEquivalencies(month.Total)))
	return sb.String()
}

// averageComparison compares a monthly total with the global monthly average.
func averageComparison(monthKg float64) string {
	avg := carbon.GlobalMonthlyAverageKg
	diff := (monthKg - avg) / avg * 100
	pct := fmt.Sprintf("%.0f", math.Abs(diff))
	if diff > 0 {
		return fmt.Sprintf(MsgStatsAboveAverage, pct, formatKg(avg))
	}
	return fmt.Sprintf(MsgStatsBelowAverage, pct, formatKg(avg))
}
