// Package store is the SQLite repository for persisted settings, the API
// token and the command journal.
package store

import (
	"context"
	"database/sql"
	"time"

	"github.com/clipmarker/clipmarker-agent/internal/dispatch"
)

const timeLayout = time.RFC3339Nano

type Repository interface {
	GetConfig(ctx context.Context, key string) (string, error)
	SetConfig(ctx context.Context, key, value string) error

	RecordCommand(ctx context.Context, cmd *dispatch.Command) error
	UpdateCommandState(ctx context.Context, seq int64, state dispatch.State, errMsg string) error
	ListCommands(ctx context.Context, limit int) ([]*dispatch.Command, error)
	LastCommandSeq(ctx context.Context) (int64, error)
}

type SQLiteRepository struct {
	db *sql.DB
}

func NewRepository(db *sql.DB) *SQLiteRepository {
	return &SQLiteRepository{db: db}
}

// GetConfig returns "" for a missing key.
func (r *SQLiteRepository) GetConfig(ctx context.Context, key string) (string, error) {
	var value string
	err := r.db.QueryRowContext(ctx, "SELECT value FROM config WHERE key = ?", key).Scan(&value)
	if err == sql.ErrNoRows {
		return "", nil
	}
	return value, err
}

func (r *SQLiteRepository) SetConfig(ctx context.Context, key, value string) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO config (key, value) VALUES (?, ?)
		ON CONFLICT(key) DO UPDATE SET value = excluded.value
	`, key, value)
	return err
}

func (r *SQLiteRepository) RecordCommand(ctx context.Context, c *dispatch.Command) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO commands (seq, tag, origin, state, error, received_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)
	`, c.Seq, c.Tag, string(c.Origin), string(c.State), nullString(c.Error),
		c.ReceivedAt.UTC().Format(timeLayout), c.UpdatedAt.UTC().Format(timeLayout))
	return err
}

func (r *SQLiteRepository) UpdateCommandState(ctx context.Context, seq int64, state dispatch.State, errMsg string) error {
	_, err := r.db.ExecContext(ctx, `
		UPDATE commands SET state = ?, error = ?, updated_at = ? WHERE seq = ?
	`, string(state), nullString(errMsg), time.Now().UTC().Format(timeLayout), seq)
	return err
}

// ListCommands returns the newest commands first.
func (r *SQLiteRepository) ListCommands(ctx context.Context, limit int) ([]*dispatch.Command, error) {
	if limit <= 0 {
		limit = 50
	}
	rows, err := r.db.QueryContext(ctx, `
		SELECT seq, tag, origin, state, error, received_at, updated_at
		FROM commands ORDER BY seq DESC LIMIT ?
	`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var cmds []*dispatch.Command
	for rows.Next() {
		var c dispatch.Command
		var origin, state string
		var errMsg sql.NullString
		var receivedAt, updatedAt string

		if err := rows.Scan(&c.Seq, &c.Tag, &origin, &state, &errMsg, &receivedAt, &updatedAt); err != nil {
			return nil, err
		}
		c.Origin = dispatch.Origin(origin)
		c.State = dispatch.State(state)
		c.Error = errMsg.String
		c.ReceivedAt, _ = time.Parse(timeLayout, receivedAt)
		c.UpdatedAt, _ = time.Parse(timeLayout, updatedAt)
		cmds = append(cmds, &c)
	}
	return cmds, rows.Err()
}

// LastCommandSeq returns the highest journaled sequence number, or 0.
func (r *SQLiteRepository) LastCommandSeq(ctx context.Context) (int64, error) {
	var seq sql.NullInt64
	if err := r.db.QueryRowContext(ctx, "SELECT MAX(seq) FROM commands").Scan(&seq); err != nil {
		return 0, err
	}
	return seq.Int64, nil
}

func nullString(s string) sql.NullString {
	if s == "" {
		return sql.NullString{}
	}
	return sql.NullString{String: s, Valid: true}
}
