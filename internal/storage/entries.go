package storage

import (
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/raine/telegram-carbon-bot/internal/carbon"
)

// EntrySource records where a carbon entry came from.
type EntrySource string

const (
	SourceReceipt   EntrySource = "receipt"
	SourceManual    EntrySource = "manual"
	SourceChallenge EntrySource = "challenge"
)

// journalOnly excludes challenge check-in markers. They only feed streaks.
const journalOnly = "source != 'challenge'"

// CarbonEntry is one persisted item of a user's footprint journal.
type CarbonEntry struct {
	ID        string
	UserID    int64
	Date      string // YYYY-MM-DD
	Category  carbon.Category
	ItemName  string
	CarbonKg  float64
	Source    EntrySource
	CreatedAt time.Time
}

// PeriodStats aggregates a user's entries over a date range.
type PeriodStats struct {
	Total      float64
	Count      int
	ByCategory map[carbon.Category]float64
}

// AddCarbonEntries stores all items in a single transaction.
func (s *SQLiteStore) AddCarbonEntries(userID int64, date time.Time, source EntrySource, items []carbon.AnalyzedItem) ([]CarbonEntry, error) {
	if len(items) == 0 {
		return nil, nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	tx, err := s.db.Begin()
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	stmt, err := tx.Prepare(`
		INSERT INTO carbon_entries (id, user_id, entry_date, category, item_name, carbon_kg, source, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
	`)
	if err != nil {
		return nil, fmt.Errorf("failed to prepare entry insert: %w", err)
	}
	defer stmt.Close()

	now := time.Now().UTC()
	day := date.Format(DateFormat)
	entries := make([]CarbonEntry, 0, len(items))
	for _, item := range items {
		entry := CarbonEntry{
			ID:        uuid.New().String(),
			UserID:    userID,
			Date:      day,
			Category:  item.Category,
			ItemName:  item.Name,
			CarbonKg:  item.CarbonKg,
			Source:    source,
			CreatedAt: now,
		}
		if _, err := stmt.Exec(entry.ID, entry.UserID, entry.Date, string(entry.Category), entry.ItemName, entry.CarbonKg, string(entry.Source), entry.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to insert entry %q: %w", item.Name, err)
		}
		entries = append(entries, entry)
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("failed to commit entries: %w", err)
	}
	return entries, nil
}

// GetUserEntries returns the user's most recent journal entries, newest first.
// A limit of 0 or less returns everything.
func (s *SQLiteStore) GetUserEntries(userID int64, limit int) ([]CarbonEntry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	query := `
		SELECT id, user_id, entry_date, category, item_name, carbon_kg, source, created_at
		FROM carbon_entries
		WHERE user_id = ? AND ` + journalOnly + `
		ORDER BY created_at DESC, rowid DESC`
	args := []any{userID}
	if limit > 0 {
		query += " LIMIT ?"
		args = append(args, limit)
	}

	rows, err := s.db.Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query entries: %w", err)
	}
	defer rows.Close()

	var entries []CarbonEntry
	for rows.Next() {
		var e CarbonEntry
		var category, source string
		if err := rows.Scan(&e.ID, &e.UserID, &e.Date, &category, &e.ItemName, &e.CarbonKg, &source, &e.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan entry: %w", err)
		}
		e.Category = carbon.Category(category)
		e.Source = EntrySource(source)
		entries = append(entries, e)
	}
	return entries, rows.Err()
}

// DeleteLastEntry removes the user's newest journal entry and returns it, or
// nil if the journal is empty. Check-in markers are never removed.
func (s *SQLiteStore) DeleteLastEntry(userID int64) (*CarbonEntry, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var e CarbonEntry
	var category, source string
	err := s.db.QueryRow(`
		SELECT id, user_id, entry_date, category, item_name, carbon_kg, source, created_at
		FROM carbon_entries
		WHERE user_id = ? AND ` + journalOnly + `
		ORDER BY created_at DESC, rowid DESC
		LIMIT 1`, userID).Scan(&e.ID, &e.UserID, &e.Date, &category, &e.ItemName, &e.CarbonKg, &source, &e.CreatedAt)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to query last entry: %w", err)
	}
	e.Category = carbon.Category(category)
	e.Source = EntrySource(source)

	if _, err := s.db.Exec("DELETE FROM carbon_entries WHERE id = ?", e.ID); err != nil {
		return nil, fmt.Errorf("failed to delete entry: %w", err)
	}
	return &e, nil
}

// GetPeriodStats aggregates journal entries with from <= entry_date < to.
// A zero from means since the beginning.
func (s *SQLiteStore) GetPeriodStats(userID int64, from, to time.Time) (*PeriodStats, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	fromKey := ""
	if !from.IsZero() {
		fromKey = from.Format(DateFormat)
	}
	toKey := to.Format(DateFormat)

	rows, err := s.db.Query(`
		SELECT category, COALESCE(SUM(carbon_kg), 0), COUNT(*)
		FROM carbon_entries
		WHERE user_id = ? AND entry_date >= ? AND entry_date < ? AND ` + journalOnly + `
		GROUP BY category`, userID, fromKey, toKey)
	if err != nil {
		return nil, fmt.Errorf("failed to query period stats: %w", err)
	}
	defer rows.Close()

	stats := &PeriodStats{ByCategory: make(map[carbon.Category]float64)}
	var sum float64
	for rows.Next() {
		var category string
		var kg float64
		var count int
		if err := rows.Scan(&category, &kg, &count); err != nil {
			return nil, fmt.Errorf("failed to scan period stats: %w", err)
		}
		stats.ByCategory[carbon.Category(category)] = carbon.RoundTo(kg, 2)
		sum += kg
		stats.Count += count
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	stats.Total = carbon.RoundTo(sum, 2)
	return stats, nil
}

// GetActiveDays returns the distinct entry dates on or after since, newest
// first. Challenge check-ins count as activity.
func (s *SQLiteStore) GetActiveDays(userID int64, since time.Time) ([]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rows, err := s.db.Query(`
		SELECT DISTINCT entry_date
		FROM carbon_entries
		WHERE user_id = ? AND entry_date >= ?
		ORDER BY entry_date DESC
	`, userID, since.Format(DateFormat))
	if err != nil {
		return nil, fmt.Errorf("failed to query active days: %w", err)
	}
	defer rows.Close()

	var days []string
	for rows.Next() {
		var d string
		if err := rows.Scan(&d); err != nil {
			return nil, fmt.Errorf("failed to scan active day: %w", err)
		}
		days = append(days, d)
	}
	return days, rows.Err()
}

// GetActiveUsersSince returns ids of users with journal entries on or after since.
func (s *SQLiteStore) GetActiveUsersSince(since time.Time) ([]int64, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rows, err := s.db.Query(`
		SELECT DISTINCT user_id FROM carbon_entries
		WHERE entry_date >= ? AND ` + journalOnly + `
		ORDER BY user_id`, since.Format(DateFormat))
	if err != nil {
		return nil, fmt.Errorf("failed to query active users: %w", err)
	}
	defer rows.Close()

	var ids []int64
	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("failed to scan active user: %w", err)
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}
