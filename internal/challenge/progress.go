package challenge

import (
	"strings"
	"time"

	"github.com/raine/telegram-carbon-bot/internal/carbon"
)

const dateFormat = "2006-01-02"

// Progress is the state of a user's participation after a check-in.
type Progress struct {
	Progress    int
	CarbonSaved float64
	Completed   bool
	LastCheckin string
}

// ApplyCheckIn advances progress by one unit. At most one check-in per
// calendar day counts, progress never exceeds the challenge total, and saved
// carbon grows linearly towards CarbonSavePotential.
func ApplyCheckIn(ch Challenge, current Progress, today time.Time) (Progress, error) {
	if current.Completed || current.Progress >= ch.Total {
		return current, ErrCompleted
	}
	todayKey := today.Format(dateFormat)
	if current.LastCheckin == todayKey {
		return current, ErrAlreadyCheckedIn
	}

	next := current.Progress + 1
	if next > ch.Total {
		next = ch.Total
	}
	return Progress{
		Progress:    next,
		CarbonSaved: SavedFor(ch, next),
		Completed:   next >= ch.Total,
		LastCheckin: todayKey,
	}, nil
}

// SavedFor returns the carbon saved after progress units of ch.
func SavedFor(ch Challenge, progress int) float64 {
	if ch.Total <= 0 || progress <= 0 {
		return 0
	}
	if progress > ch.Total {
		progress = ch.Total
	}
	return carbon.RoundTo(ch.CarbonSavePotential*float64(progress)/float64(ch.Total), 2)
}

// Streak counts consecutive active days ending today, or ending yesterday
// when nothing has been logged yet today. activeDays holds YYYY-MM-DD dates
// in any order.
func Streak(activeDays []string, today time.Time) int {
	if len(activeDays) == 0 {
		return 0
	}
	set := make(map[string]bool, len(activeDays))
	for _, d := range activeDays {
		set[d] = true
	}

	cursor := time.Date(today.Year(), today.Month(), today.Day(), 0, 0, 0, 0, today.Location())
	if !set[cursor.Format(dateFormat)] {
		cursor = cursor.AddDate(0, 0, -1)
	}

	streak := 0
	for set[cursor.Format(dateFormat)] {
		streak++
		cursor = cursor.AddDate(0, 0, -1)
	}
	return streak
}

// ProgressBar renders progress as a fixed-width text bar.
func ProgressBar(progress, total, width int) string {
	if width <= 0 {
		return ""
	}
	filled := 0
	if total > 0 {
		if progress > total {
			progress = total
		}
		if progress > 0 {
			filled = progress * width / total
		}
	}
	return strings.Repeat("▓", filled) + strings.Repeat("░", width-filled)
}
