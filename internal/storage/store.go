package storage

import (
	"database/sql"
	"fmt"
	"os"
	"sync"
	"time"

	_ "modernc.org/sqlite"
)

// DateFormat is the layout of entry_date and other calendar-day columns.
const DateFormat = "2006-01-02"

// User is a bot user known to the store.
type User struct {
	TelegramID  int64
	DisplayName string
	CreatedAt   time.Time
}

// AllowedUser represents a user in the whitelist.
type AllowedUser struct {
	TelegramID int64
	AddedAt    time.Time
	AddedBy    int64
}

// SQLiteStore persists users, carbon entries, challenge progress and caches.
type SQLiteStore struct {
	db *sql.DB
	mu sync.RWMutex
}

// NewSQLiteStore opens (or creates) the database at dbPath.
func NewSQLiteStore(dbPath string) (*SQLiteStore, error) {
	// WAL + busy timeout so the bot, digest service and API can share the file
	dsn := fmt.Sprintf("%s?_pragma=busy_timeout(5000)&_pragma=journal_mode(WAL)&_pragma=foreign_keys(1)", dbPath)
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	store := &SQLiteStore{db: db}
	if err := store.init(); err != nil {
		db.Close()
		return nil, err
	}

	// Only meaningful once the file exists; ignore errors for special paths.
	_ = os.Chmod(dbPath, 0600)

	return store, nil
}

func (s *SQLiteStore) init() error {
	tables := []struct {
		name  string
		query string
	}{
		{"users", `
		CREATE TABLE IF NOT EXISTS users (
			telegram_id INTEGER PRIMARY KEY,
			display_name TEXT NOT NULL DEFAULT '',
			created_at DATETIME NOT NULL
		);`},
		{"allowed_users", `
		CREATE TABLE IF NOT EXISTS allowed_users (
			telegram_id INTEGER PRIMARY KEY,
			added_at DATETIME DEFAULT CURRENT_TIMESTAMP,
			added_by INTEGER
		);`},
		{"carbon_entries", `
		CREATE TABLE IF NOT EXISTS carbon_entries (
			id TEXT PRIMARY KEY,
			user_id INTEGER NOT NULL,
			entry_date TEXT NOT NULL,
			category TEXT NOT NULL,
			item_name TEXT NOT NULL,
			carbon_kg REAL NOT NULL CHECK (carbon_kg >= 0),
			source TEXT NOT NULL,
			created_at DATETIME NOT NULL
		);`},
		{"carbon_entries index", `
		CREATE INDEX IF NOT EXISTS idx_carbon_entries_user_date
			ON carbon_entries (user_id, entry_date);`},
		{"receipt_cache", `
		CREATE TABLE IF NOT EXISTS receipt_cache (
			image_hash TEXT PRIMARY KEY,
			items_json TEXT NOT NULL,
			created_at DATETIME NOT NULL
		);`},
		{"user_challenges", `
		CREATE TABLE IF NOT EXISTS user_challenges (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			user_id INTEGER NOT NULL,
			challenge_id TEXT NOT NULL,
			start_date TEXT NOT NULL,
			progress INTEGER NOT NULL DEFAULT 0,
			carbon_saved REAL NOT NULL DEFAULT 0,
			is_completed INTEGER NOT NULL DEFAULT 0,
			last_checkin TEXT NOT NULL DEFAULT '',
			UNIQUE (user_id, challenge_id)
		);`},
		{"digest_log", `
		CREATE TABLE IF NOT EXISTS digest_log (
			user_id INTEGER NOT NULL,
			week_key TEXT NOT NULL,
			sent_at DATETIME NOT NULL,
			PRIMARY KEY (user_id, week_key)
		);`},
	}

	for _, t := range tables {
		if _, err := s.db.Exec(t.query); err != nil {
			return fmt.Errorf("failed to create %s table: %w", t.name, err)
		}
	}
	return nil
}

// Close closes the database.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

// UpsertUser registers a user or refreshes their display name.
func (s *SQLiteStore) UpsertUser(telegramID int64, displayName string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	_, err := s.db.Exec(`
		INSERT INTO users (telegram_id, display_name, created_at)
		VALUES (?, ?, ?)
		ON CONFLICT(telegram_id) DO UPDATE SET
			display_name = excluded.display_name
	`, telegramID, displayName, time.Now().UTC())
	if err != nil {
		return fmt.Errorf("failed to upsert user: %w", err)
	}
	return nil
}

// GetUser returns the user, or nil if unknown.
func (s *SQLiteStore) GetUser(telegramID int64) (*User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var u User
	err := s.db.QueryRow(
		"SELECT telegram_id, display_name, created_at FROM users WHERE telegram_id = ?",
		telegramID,
	).Scan(&u.TelegramID, &u.DisplayName, &u.CreatedAt)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to query user: %w", err)
	}
	return &u, nil
}

// CountUsers returns the number of registered users.
func (s *SQLiteStore) CountUsers() (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var n int
	if err := s.db.QueryRow("SELECT COUNT(*) FROM users").Scan(&n); err != nil {
		return 0, fmt.Errorf("failed to count users: %w", err)
	}
	return n, nil
}

// IsUserAllowed checks if a user is in the whitelist.
func (s *SQLiteStore) IsUserAllowed(telegramID int64) (bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var count int
	err := s.db.QueryRow(
		"SELECT COUNT(*) FROM allowed_users WHERE telegram_id = ?",
		telegramID,
	).Scan(&count)
	if err != nil {
		return false, fmt.Errorf("failed to check allowed user: %w", err)
	}

	return count > 0, nil
}

// AddAllowedUser adds a user to the whitelist.
func (s *SQLiteStore) AddAllowedUser(telegramID, addedBy int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	_, err := s.db.Exec(`
		INSERT INTO allowed_users (telegram_id, added_by)
		VALUES (?, ?)
		ON CONFLICT(telegram_id) DO UPDATE SET
			added_by = excluded.added_by,
			added_at = CURRENT_TIMESTAMP
	`, telegramID, addedBy)
	if err != nil {
		return fmt.Errorf("failed to add allowed user: %w", err)
	}
	return nil
}

// RemoveAllowedUser removes a user from the whitelist.
func (s *SQLiteStore) RemoveAllowedUser(telegramID int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	_, err := s.db.Exec("DELETE FROM allowed_users WHERE telegram_id = ?", telegramID)
	if err != nil {
		return fmt.Errorf("failed to remove allowed user: %w", err)
	}
	return nil
}

// GetAllowedUsers returns all users in the whitelist.
func (s *SQLiteStore) GetAllowedUsers() ([]AllowedUser, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rows, err := s.db.Query("SELECT telegram_id, added_at, added_by FROM allowed_users ORDER BY added_at")
	if err != nil {
		return nil, fmt.Errorf("failed to query allowed users: %w", err)
	}
	defer rows.Close()

	var users []AllowedUser
	for rows.Next() {
		var user AllowedUser
		if err := rows.Scan(&user.TelegramID, &user.AddedAt, &user.AddedBy); err != nil {
			return nil, fmt.Errorf("failed to scan allowed user: %w", err)
		}
		users = append(users, user)
	}

	return users, rows.Err()
}
