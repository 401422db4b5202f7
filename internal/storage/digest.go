package storage

import (
	"fmt"
	"time"
)

// WasDigestSent reports whether the weekly digest for weekKey already went out.
func (s *SQLiteStore) WasDigestSent(userID int64, weekKey string) (bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var count int
	err := s.db.QueryRow(
		"SELECT COUNT(*) FROM digest_log WHERE user_id = ? AND week_key = ?",
		userID, weekKey,
	).Scan(&count)
	if err != nil {
		return false, fmt.Errorf("failed to check digest log: %w", err)
	}
	return count > 0, nil
}

// MarkDigestSent records that the digest for weekKey was delivered.
func (s *SQLiteStore) MarkDigestSent(userID int64, weekKey string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	_, err := s.db.Exec(
		"INSERT OR IGNORE INTO digest_log (user_id, week_key, sent_at) VALUES (?, ?, ?)",
		userID, weekKey, time.Now().UTC(),
	)
	if err != nil {
		return fmt.Errorf("failed to mark digest sent: %w", err)
	}
	return nil
}
