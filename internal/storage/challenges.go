package storage

import (
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"
)

// UserChallenge is a user's participation in a challenge.
type UserChallenge struct {
	ID          int64
	UserID      int64
	ChallengeID string
	StartDate   string
	Progress    int
	CarbonSaved float64
	IsCompleted bool
	LastCheckin string // YYYY-MM-DD, empty before the first check-in
}

// LeaderboardEntry is one row of the challenge leaderboard.
type LeaderboardEntry struct {
	Rank                int
	UserID              int64
	DisplayName         string
	CarbonSaved         float64
	ChallengesCompleted int
}

// ErrAlreadyJoined is returned when a user joins a challenge twice.
var ErrAlreadyJoined = errors.New("challenge already joined")

// JoinChallenge starts a challenge for the user.
func (s *SQLiteStore) JoinChallenge(userID int64, challengeID string, start time.Time) (*UserChallenge, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	uc := &UserChallenge{
		UserID:      userID,
		ChallengeID: challengeID,
		StartDate:   start.Format(DateFormat),
	}
	res, err := s.db.Exec(
		"INSERT INTO user_challenges (user_id, challenge_id, start_date) VALUES (?, ?, ?)",
		uc.UserID, uc.ChallengeID, uc.StartDate,
	)
	if err != nil {
		if strings.Contains(err.Error(), "UNIQUE constraint failed") {
			return nil, ErrAlreadyJoined
		}
		return nil, fmt.Errorf("failed to join challenge: %w", err)
	}
	uc.ID, err = res.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("failed to read challenge id: %w", err)
	}
	return uc, nil
}

const userChallengeColumns = "id, user_id, challenge_id, start_date, progress, carbon_saved, is_completed, last_checkin"

func scanUserChallenge(row interface{ Scan(...any) error }) (*UserChallenge, error) {
	var uc UserChallenge
	if err := row.Scan(&uc.ID, &uc.UserID, &uc.ChallengeID, &uc.StartDate, &uc.Progress, &uc.CarbonSaved, &uc.IsCompleted, &uc.LastCheckin); err != nil {
		return nil, err
	}
	return &uc, nil
}

// GetUserChallenge returns the user's participation in a challenge, or nil.
func (s *SQLiteStore) GetUserChallenge(userID int64, challengeID string) (*UserChallenge, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	row := s.db.QueryRow(
		"SELECT "+userChallengeColumns+" FROM user_challenges WHERE user_id = ? AND challenge_id = ?",
		userID, challengeID,
	)
	uc, err := scanUserChallenge(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to query user challenge: %w", err)
	}
	return uc, nil
}

// GetUserChallenges returns all challenges the user has joined, oldest first.
func (s *SQLiteStore) GetUserChallenges(userID int64) ([]UserChallenge, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rows, err := s.db.Query(
		"SELECT "+userChallengeColumns+" FROM user_challenges WHERE user_id = ? ORDER BY id",
		userID,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to query user challenges: %w", err)
	}
	defer rows.Close()

	var out []UserChallenge
	for rows.Next() {
		uc, err := scanUserChallenge(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan user challenge: %w", err)
		}
		out = append(out, *uc)
	}
	return out, rows.Err()
}

// SaveChallengeProgress persists progress fields of an existing participation.
func (s *SQLiteStore) SaveChallengeProgress(uc *UserChallenge) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	res, err := s.db.Exec(`
		UPDATE user_challenges
		SET progress = ?, carbon_saved = ?, is_completed = ?, last_checkin = ?
		WHERE user_id = ? AND challenge_id = ?
	`, uc.Progress, uc.CarbonSaved, uc.IsCompleted, uc.LastCheckin, uc.UserID, uc.ChallengeID)
	if err != nil {
		return fmt.Errorf("failed to save challenge progress: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("challenge %q not joined by user %d", uc.ChallengeID, uc.UserID)
	}
	return nil
}

// Leaderboard ranks users by carbon saved through challenges. A limit of 0
// or less returns every user.
func (s *SQLiteStore) Leaderboard(limit int) ([]LeaderboardEntry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	query := `
		SELECT u.telegram_id, u.display_name,
			COALESCE(SUM(uc.carbon_saved), 0) AS saved,
			COALESCE(SUM(uc.is_completed), 0) AS completed
		FROM users u
		LEFT JOIN user_challenges uc ON uc.user_id = u.telegram_id
		GROUP BY u.telegram_id, u.display_name
		ORDER BY saved DESC, completed DESC, u.telegram_id ASC`
	var args []any
	if limit > 0 {
		query += " LIMIT ?"
		args = append(args, limit)
	}

	rows, err := s.db.Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query leaderboard: %w", err)
	}
	defer rows.Close()

	var entries []LeaderboardEntry
	for rows.Next() {
		var e LeaderboardEntry
		if err := rows.Scan(&e.UserID, &e.DisplayName, &e.CarbonSaved, &e.ChallengesCompleted); err != nil {
			return nil, fmt.Errorf("failed to scan leaderboard row: %w", err)
		}
		e.Rank = len(entries) + 1
		entries = append(entries, e)
	}
	return entries, rows.Err()
}

// GetUserRank returns the user's leaderboard entry, or nil if the user is unknown.
func (s *SQLiteStore) GetUserRank(userID int64) (*LeaderboardEntry, error) {
	entries, err := s.Leaderboard(0)
	if err != nil {
		return nil, err
	}
	for i := range entries {
		if entries[i].UserID == userID {
			return &entries[i], nil
		}
	}
	return nil, nil
}
