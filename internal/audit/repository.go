package audit

import (
	"context"
	"fmt"
	"time"

	"github.com/dmitrijs2005/labkeeper/internal/dbx"
)

type Repository interface {
	Insert(ctx context.Context, e *Event) error
	ListBySubject(ctx context.Context, subject string, limit int) ([]Event, error)
	ListRecent(ctx context.Context, limit int) ([]Event, error)
}

type SQLiteRepository struct {
	db dbx.DBTX
}

func NewSQLiteRepository(db dbx.DBTX) *SQLiteRepository {
	return &SQLiteRepository{db: db}
}

func (r *SQLiteRepository) Insert(ctx context.Context, e *Event) error {
	query := `INSERT INTO audit_events (id, at, actor, action, subject, detail)
		VALUES (?, ?, ?, ?, ?, ?)`

	_, err := r.db.ExecContext(ctx, query,
		e.ID, e.At.UTC().Format(time.RFC3339Nano), e.Actor, e.Action, e.Subject, e.Detail)
	if err != nil {
		return fmt.Errorf("failed to insert audit event: %w", err)
	}
	return nil
}

func (r *SQLiteRepository) ListBySubject(ctx context.Context, subject string, limit int) ([]Event, error) {
	query := `SELECT id, at, actor, action, subject, detail FROM audit_events
		WHERE subject = ? ORDER BY at, rowid LIMIT ?`
	return r.list(ctx, query, subject, limit)
}

// ListRecent returns the newest limit events, newest first.
func (r *SQLiteRepository) ListRecent(ctx context.Context, limit int) ([]Event, error) {
	query := `SELECT id, at, actor, action, subject, detail FROM audit_events
		ORDER BY at DESC, rowid DESC LIMIT ?`
	return r.list(ctx, query, limit)
}

func (r *SQLiteRepository) list(ctx context.Context, query string, args ...any) ([]Event, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to select audit events: %w", err)
	}
	defer rows.Close()

	var result []Event
	for rows.Next() {
		var (
			e  Event
			at string
		)
		if err := rows.Scan(&e.ID, &at, &e.Actor, &e.Action, &e.Subject, &e.Detail); err != nil {
			return nil, err
		}
		e.At, err = time.Parse(time.RFC3339Nano, at)
		if err != nil {
			return nil, fmt.Errorf("bad timestamp on audit event %s: %w", e.ID, err)
		}
		result = append(result, e)
	}

	if err := rows.Err(); err != nil {
		return nil, err
	}
	return result, nil
}
