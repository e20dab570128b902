// Package memory provides persistent per-user key/value storage for
// facts the agent is asked to remember.
package memory

import (
	"database/sql"
	"fmt"
	"time"
)

// Entry is one remembered fact.
type Entry struct {
	UserID    string    `json:"user_id"`
	Key       string    `json:"key"`
	Value     string    `json:"value"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Store manages fact persistence. Keys are unique per user id; setting
// an existing key overwrites its value.
type Store struct {
	db *sql.DB
}

// NewStore creates a store using the given database path.
func NewStore(dbPath string) (*Store, error) {
	db, err := sql.Open("sqlite3", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	s, err := NewStoreWithDB(db)
	if err != nil {
		db.Close()
		return nil, err
	}
	return s, nil
}

// NewStoreWithDB creates a store on an existing database connection.
// Closing the store closes the connection.
func NewStoreWithDB(db *sql.DB) (*Store, error) {
	s := &Store{db: db}
	if err := s.migrate(); err != nil {
		return nil, fmt.Errorf("migrate: %w", err)
	}
	return s, nil
}

func (s *Store) migrate() error {
	_, err := s.db.Exec(`
		CREATE TABLE IF NOT EXISTS user_prefs (
			user_id TEXT NOT NULL,
			key TEXT NOT NULL,
			value TEXT NOT NULL,
			updated_at TEXT NOT NULL,
			PRIMARY KEY (user_id, key)
		);

		CREATE INDEX IF NOT EXISTS idx_user_prefs_user ON user_prefs(user_id);
	`)
	return err
}

// Close closes the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// Set creates or overwrites a fact for the user.
func (s *Store) Set(userID, key, value string) error {
	now := time.Now().UTC().Format(time.RFC3339)
	_, err := s.db.Exec(`
		INSERT OR REPLACE INTO user_prefs (user_id, key, value, updated_at)
		VALUES (?, ?, ?, ?)
	`, userID, key, value, now)
	if err != nil {
		return fmt.Errorf("set pref: %w", err)
	}
	return nil
}

// Get returns the stored value for (userID, key). The second return is
// false when the key has never been set; that is a normal outcome, not
// an error.
func (s *Store) Get(userID, key string) (string, bool, error) {
	var value string
	err := s.db.QueryRow(`
		SELECT value FROM user_prefs WHERE user_id = ? AND key = ?
	`, userID, key).Scan(&value)
	if err == sql.ErrNoRows {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("get pref: %w", err)
	}
	return value, true, nil
}

// List returns all facts stored for a user, most recently updated first.
func (s *Store) List(userID string) ([]Entry, error) {
	rows, err := s.db.Query(`
		SELECT user_id, key, value, updated_at FROM user_prefs
		WHERE user_id = ?
		ORDER BY updated_at DESC, key ASC
	`, userID)
	if err != nil {
		return nil, fmt.Errorf("list prefs: %w", err)
	}
	defer rows.Close()

	var entries []Entry
	for rows.Next() {
		var e Entry
		var updated string
		if err := rows.Scan(&e.UserID, &e.Key, &e.Value, &updated); err != nil {
			return nil, fmt.Errorf("scan pref: %w", err)
		}
		e.UpdatedAt, _ = time.Parse(time.RFC3339, updated)
		entries = append(entries, e)
	}
	return entries, rows.Err()
}

// Delete removes a fact. Deleting an absent key is a no-op.
func (s *Store) Delete(userID, key string) error {
	_, err := s.db.Exec(`
		DELETE FROM user_prefs WHERE user_id = ? AND key = ?
	`, userID, key)
	if err != nil {
		return fmt.Errorf("delete pref: %w", err)
	}
	return nil
}
