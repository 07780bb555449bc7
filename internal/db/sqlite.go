package db

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/RichardoC/gemini-relay/internal/history"
	"github.com/RichardoC/gemini-relay/internal/models"
	_ "github.com/mattn/go-sqlite3"
)

// MemoryDSN keeps the whole database inside the single pooled connection.
const MemoryDSN = ":memory:"

const schema = `
CREATE TABLE IF NOT EXISTS turns (
    id INTEGER PRIMARY KEY AUTOINCREMENT,
    user_id INTEGER NOT NULL,
    role TEXT NOT NULL,
    text TEXT NOT NULL,
    created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP
);

CREATE INDEX IF NOT EXISTS turns_user_id ON turns(user_id, id);`

// Database is a history.Store backed by SQLite. Opened on MemoryDSN it
// behaves like the in-process store: history is gone when the process exits.
type Database struct {
	db    *sql.DB
	limit int
}

var _ history.Store = (*Database)(nil)

func New(dsn string, exchanges int) (*Database, error) {
	if dsn == "" {
		dsn = MemoryDSN
	}
	db, err := sql.Open("sqlite3", dsn)
	if err != nil {
		return nil, err
	}
	// One connection: an in-memory database is private to its connection,
	// and it serializes every read and write.
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to create schema: %w", err)
	}

	return &Database{db: db, limit: history.Capacity(exchanges)}, nil
}

func (db *Database) Close() error {
	return db.db.Close()
}

func (db *Database) Append(ctx context.Context, userID int64, role models.Role, text string) error {
	if err := history.Validate(role, text); err != nil {
		return err
	}

	tx, err := db.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, `
		INSERT INTO turns (user_id, role, text, created_at)
		VALUES (?, ?, ?, CURRENT_TIMESTAMP)
	`, userID, string(role), text); err != nil {
		return fmt.Errorf("failed to insert turn: %w", err)
	}

	if _, err := tx.ExecContext(ctx, `
		DELETE FROM turns
		WHERE user_id = ? AND id NOT IN (
			SELECT id FROM turns WHERE user_id = ? ORDER BY id DESC LIMIT ?
		)
	`, userID, userID, db.limit); err != nil {
		return fmt.Errorf("failed to evict turns: %w", err)
	}

	return tx.Commit()
}

func (db *Database) Get(ctx context.Context, userID int64) ([]models.Turn, error) {
	rows, err := db.db.QueryContext(ctx, `
        SELECT role, text, created_at
        FROM turns
        WHERE user_id = ?
        ORDER BY id ASC`, userID)
	if err != nil {
		return []models.Turn{}, err
	}
	defer rows.Close()

	turns := make([]models.Turn, 0)
	for rows.Next() {
		var (
			turn models.Turn
			role string
		)
		if err := rows.Scan(&role, &turn.Text, &turn.CreatedAt); err != nil {
			return []models.Turn{}, fmt.Errorf("failed to scan turn: %w", err)
		}
		turn.Role = models.Role(role)
		turns = append(turns, turn)
	}
	return turns, rows.Err()
}

func (db *Database) Clear(ctx context.Context, userID int64) error {
	_, err := db.db.ExecContext(ctx, "DELETE FROM turns WHERE user_id = ?", userID)
	return err
}
