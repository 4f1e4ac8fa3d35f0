package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/pavelanni/examreport/internal/model"

	_ "modernc.org/sqlite"
)

// SQLiteStore keeps dataset documents in a SQLite database.
type SQLiteStore struct {
	db *sql.DB
}

// NewSQLite opens (or creates) the database at dbPath and applies the schema.
func NewSQLite(dbPath string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite", dbPath+"?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)")
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	if dbPath == ":memory:" {
		// Every connection to :memory: is a separate database.
		db.SetMaxOpenConns(1)
	}
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}
	s := &SQLiteStore{db: db}
	if err := s.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("migrate: %w", err)
	}
	return s, nil
}

// Close closes the database.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

func (s *SQLiteStore) migrate() error {
	schema := `
	CREATE TABLE IF NOT EXISTS datasets (
		user_id TEXT PRIMARY KEY,
		body TEXT NOT NULL,
		version INTEGER NOT NULL DEFAULT 1,
		updated_at DATETIME NOT NULL
	);

	CREATE TABLE IF NOT EXISTS store_metadata (
		key TEXT PRIMARY KEY,
		value TEXT NOT NULL
	);
	`
	if _, err := s.db.Exec(schema); err != nil {
		return err
	}

	ctx := context.Background()
	stored, err := s.GetMetadata(ctx, metaSchemaVersion)
	if err != nil {
		return fmt.Errorf("read schema version: %w", err)
	}
	if stored != "" && stored != schemaVersion {
		return fmt.Errorf("database schema version %s is not supported (want %s)", stored, schemaVersion)
	}
	return s.SetMetadata(ctx, metaSchemaVersion, schemaVersion)
}

// Load returns the user's dataset, or nil if none is stored.
func (s *SQLiteStore) Load(ctx context.Context, userID string) (model.TestDataset, error) {
	var body string
	err := s.db.QueryRowContext(ctx, `SELECT body FROM datasets WHERE user_id = ?`, userID).Scan(&body)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, &PersistenceError{Op: "load", UserID: userID, Err: err}
	}
	return decode(userID, []byte(body)), nil
}

// Save replaces the user's dataset and bumps its version.
func (s *SQLiteStore) Save(ctx context.Context, userID string, ds model.TestDataset) error {
	body, err := encode(ds)
	if err != nil {
		return &PersistenceError{Op: "save", UserID: userID, Err: err}
	}
	_, err = s.db.ExecContext(ctx,
		`INSERT INTO datasets (user_id, body, version, updated_at) VALUES (?, ?, 1, ?)
		 ON CONFLICT(user_id) DO UPDATE SET body = excluded.body, version = datasets.version + 1, updated_at = excluded.updated_at`,
		userID, string(body), time.Now().UTC(),
	)
	if err != nil {
		return &PersistenceError{Op: "save", UserID: userID, Err: err}
	}
	return nil
}

// Delete removes the user's dataset.
func (s *SQLiteStore) Delete(ctx context.Context, userID string) error {
	if _, err := s.db.ExecContext(ctx, `DELETE FROM datasets WHERE user_id = ?`, userID); err != nil {
		return &PersistenceError{Op: "delete", UserID: userID, Err: err}
	}
	return nil
}

// Version returns how many times the user's dataset has been saved, 0 if never.
func (s *SQLiteStore) Version(ctx context.Context, userID string) (int64, error) {
	var v int64
	err := s.db.QueryRowContext(ctx, `SELECT version FROM datasets WHERE user_id = ?`, userID).Scan(&v)
	if errors.Is(err, sql.ErrNoRows) {
		return 0, nil
	}
	return v, err
}

// Users lists users with a stored dataset, sorted.
func (s *SQLiteStore) Users(ctx context.Context) ([]string, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT user_id FROM datasets ORDER BY user_id`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var users []string
	for rows.Next() {
		var u string
		if err := rows.Scan(&u); err != nil {
			return nil, err
		}
		users = append(users, u)
	}
	return users, rows.Err()
}
