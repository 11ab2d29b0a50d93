// Package worker turns queued audit messages into rows of the audit
// trail and keeps the trail within its retention window.
package worker

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"golang.org/x/sync/errgroup"

	"fintrack/internal/amqp"
	"fintrack/internal/storage"
)

// AuditRecorder is the slice of the audit repository the worker needs.
type AuditRecorder interface {
	Record(ctx context.Context, e storage.AuditEvent) error
	Prune(ctx context.Context, before time.Time) (int64, error)
}

// AuditConsumer delivers queued audit messages to a handler.
type AuditConsumer interface {
	ConsumeAudit(ctx context.Context, handler func(*amqp.AuditMessage) error) error
}

// AuditWorker consumes audit messages and persists them, pruning
// entries older than the retention window on a fixed interval.
type AuditWorker struct {
	recorder      AuditRecorder
	consumer      AuditConsumer
	retention     time.Duration
	pruneInterval time.Duration
}

func NewAuditWorker(recorder AuditRecorder, consumer AuditConsumer, retention, pruneInterval time.Duration) *AuditWorker {
	return &AuditWorker{
		recorder:      recorder,
		consumer:      consumer,
		retention:     retention,
		pruneInterval: pruneInterval,
	}
}

// HandleAuditMessage persists a single queued message into the trail.
func (w *AuditWorker) HandleAuditMessage(ctx context.Context, msg *amqp.AuditMessage) error {
	slog.InfoContext(ctx, "Processing audit message",
		"username", msg.Username,
		"record_id", msg.RecordID,
		"action", msg.Action)

	occurredAt := msg.Timestamp
	if occurredAt.IsZero() {
		occurredAt = time.Now()
	}

	event := storage.AuditEvent{
		Username:   msg.Username,
		RecordID:   msg.RecordID,
		Action:     msg.Action,
		Kind:       msg.Kind,
		Date:       msg.Date,
		Amount:     msg.Amount,
		Category:   msg.Category,
		OccurredAt: occurredAt,
	}

	if err := w.recorder.Record(ctx, event); err != nil {
		return fmt.Errorf("record audit event: %w", err)
	}

	return nil
}

// PruneExpired removes events that fell out of the retention window.
func (w *AuditWorker) PruneExpired(ctx context.Context, now time.Time) error {
	cutoff := now.Add(-w.retention)
	if _, err := w.recorder.Prune(ctx, cutoff); err != nil {
		return fmt.Errorf("prune audit trail: %w", err)
	}
	return nil
}

// Run consumes messages and prunes the trail until ctx is cancelled.
// A failing prune is logged and retried on the next tick; only the
// consumer loop can take the worker down.
func (w *AuditWorker) Run(ctx context.Context) error {
	g, ctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		err := w.consumer.ConsumeAudit(ctx, func(msg *amqp.AuditMessage) error {
			return w.HandleAuditMessage(ctx, msg)
		})
		if err != nil && err != context.Canceled {
			return fmt.Errorf("consume audit messages: %w", err)
		}
		return nil
	})

	g.Go(func() error {
		// Prune once on startup so a long-stopped worker catches up
		// before the first tick.
		if err := w.PruneExpired(ctx, time.Now()); err != nil {
			slog.ErrorContext(ctx, "Startup prune failed", "error", err)
		}

		ticker := time.NewTicker(w.pruneInterval)
		defer ticker.Stop()

		for {
			select {
			case <-ctx.Done():
				return nil
			case <-ticker.C:
				if err := w.PruneExpired(ctx, time.Now()); err != nil {
					slog.ErrorContext(ctx, "Periodic prune failed", "error", err)
				}
			}
		}
	})

	return g.Wait()
}
