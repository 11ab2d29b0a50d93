// Package storage keeps the append-only audit trail in SQLite. The
// worker writes events consumed from the queue; nothing in the request
// path touches this database.
package storage

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite"
)

// AuditEvent is one row of the audit trail.
type AuditEvent struct {
	ID         int64
	Username   string
	RecordID   string
	Action     string
	Kind       string
	Date       string
	Amount     int
	Category   string
	OccurredAt time.Time
}

type AuditRepository struct {
	db *sql.DB
}

func NewAuditRepository(dbPath string) (*AuditRepository, error) {
	if err := os.MkdirAll(filepath.Dir(dbPath), 0755); err != nil {
		return nil, fmt.Errorf("create db directory: %w", err)
	}

	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open sqlite database: %w", err)
	}

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	if err := RunMigrations(dbPath); err != nil {
		db.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}

	return &AuditRepository{db: db}, nil
}

func (r *AuditRepository) Close() error {
	if r.db != nil {
		return r.db.Close()
	}
	return nil
}

// Record appends one event to the trail.
func (r *AuditRepository) Record(ctx context.Context, e AuditEvent) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO audit_events (username, record_id, action, kind, date, amount, category, occurred_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		e.Username, e.RecordID, e.Action, e.Kind, e.Date, e.Amount, e.Category, e.OccurredAt)
	if err != nil {
		return fmt.Errorf("insert audit event: %w", err)
	}

	slog.InfoContext(ctx, "Audit event recorded",
		"username", e.Username,
		"record_id", e.RecordID,
		"action", e.Action)

	return nil
}

// ListByUser returns a user's most recent events, newest first.
func (r *AuditRepository) ListByUser(ctx context.Context, username string, limit int) ([]AuditEvent, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT id, username, record_id, action, kind, date, amount, category, occurred_at
		FROM audit_events
		WHERE username = ?
		ORDER BY occurred_at DESC, id DESC
		LIMIT ?`,
		username, limit)
	if err != nil {
		return nil, fmt.Errorf("query audit events: %w", err)
	}
	defer rows.Close()

	var events []AuditEvent
	for rows.Next() {
		var e AuditEvent
		if err := rows.Scan(&e.ID, &e.Username, &e.RecordID, &e.Action, &e.Kind, &e.Date, &e.Amount, &e.Category, &e.OccurredAt); err != nil {
			return nil, fmt.Errorf("scan audit event: %w", err)
		}
		events = append(events, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate audit events: %w", err)
	}

	return events, nil
}

// Count returns the total number of stored events.
func (r *AuditRepository) Count(ctx context.Context) (int64, error) {
	var n int64
	if err := r.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM audit_events`).Scan(&n); err != nil {
		return 0, fmt.Errorf("count audit events: %w", err)
	}
	return n, nil
}

// Prune deletes events that occurred before the cutoff and returns how
// many rows were removed.
func (r *AuditRepository) Prune(ctx context.Context, before time.Time) (int64, error) {
	res, err := r.db.ExecContext(ctx, `DELETE FROM audit_events WHERE occurred_at < ?`, before)
	if err != nil {
		return 0, fmt.Errorf("prune audit events: %w", err)
	}
	removed, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("count pruned rows: %w", err)
	}

	if removed > 0 {
		slog.InfoContext(ctx, "Pruned audit events", "removed", removed, "before", before)
	}

	return removed, nil
}
