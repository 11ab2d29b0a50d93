package services

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"fintrack/internal/amqp"
	"fintrack/internal/cache"
	"fintrack/internal/core"
	"fintrack/internal/store"
)

// AuditPublisher emits one message per record mutation. A nil publisher
// disables the audit trail without touching request handling.
type AuditPublisher interface {
	PublishAudit(ctx context.Context, msg *amqp.AuditMessage) error
}

// TrackerService orchestrates account and record operations across the
// file stores, the record cache and the audit queue.
type TrackerService struct {
	credentials  *store.CredentialStore
	transactions *store.TransactionStore
	records      cache.Cache[map[string]core.Transaction]
	publisher    AuditPublisher
}

func NewTrackerService(
	credentials *store.CredentialStore,
	transactions *store.TransactionStore,
	records cache.Cache[map[string]core.Transaction],
	publisher AuditPublisher,
) *TrackerService {
	return &TrackerService{
		credentials:  credentials,
		transactions: transactions,
		records:      records,
		publisher:    publisher,
	}
}

// SignIn checks the credential pair against the account store.
func (s *TrackerService) SignIn(ctx context.Context, username, password string) error {
	if err := s.credentials.Verify(username, password); err != nil {
		return err
	}
	slog.InfoContext(ctx, "User signed in", "username", username)
	return nil
}

// SignUp registers a new account and provisions its empty record store.
func (s *TrackerService) SignUp(ctx context.Context, username, password string, profile core.Credential) error {
	if err := s.credentials.Create(username, password, profile); err != nil {
		return err
	}
	if err := s.transactions.Initialize(username); err != nil {
		return fmt.Errorf("provision record store: %w", err)
	}
	slog.InfoContext(ctx, "User registered", "username", username)
	return nil
}

// Records loads a user's full record store, serving repeated reads from
// the cache.
func (s *TrackerService) Records(ctx context.Context, username string) (map[string]core.Transaction, error) {
	if records, ok := s.records.Get(username); ok {
		return records, nil
	}
	records, err := s.transactions.Load(username)
	if err != nil {
		return nil, err
	}
	s.records.Set(username, records)
	return records, nil
}

// Dashboard derives the landing view: the five most recent records and
// the all-time balance.
func (s *TrackerService) Dashboard(ctx context.Context, username string) ([]core.Transaction, int, error) {
	records, err := s.Records(ctx, username)
	if err != nil {
		return nil, 0, err
	}
	return core.FindRecent(records, 5), core.ComputeBalance(records), nil
}

// History derives the filtered, chronologically sorted record list.
func (s *TrackerService) History(ctx context.Context, username string, f core.Filter) ([]core.Transaction, error) {
	records, err := s.Records(ctx, username)
	if err != nil {
		return nil, err
	}
	return core.FilterTransactions(records, f), nil
}

// Categories lists the distinct categories present in a user's store,
// for the history filter form.
func (s *TrackerService) Categories(ctx context.Context, username string) ([]string, error) {
	records, err := s.Records(ctx, username)
	if err != nil {
		return nil, err
	}
	seen := make(map[string]bool)
	var categories []string
	for _, t := range records {
		if t.Category != "" && !seen[t.Category] {
			seen[t.Category] = true
			categories = append(categories, t.Category)
		}
	}
	return categories, nil
}

// Get fetches a single record by ID.
func (s *TrackerService) Get(ctx context.Context, username, id string) (core.Transaction, bool, error) {
	records, err := s.Records(ctx, username)
	if err != nil {
		return core.Transaction{}, false, err
	}
	t, ok := records[id]
	if ok {
		t.ID = id
	}
	return t, ok, nil
}

// Create stores a new record keyed by the creation time. The kind is
// stored as submitted; only the edit path validates it.
func (s *TrackerService) Create(ctx context.Context, username string, t core.Transaction, now time.Time) (string, error) {
	id := core.NewTransactionID(now)
	if err := s.transactions.Put(username, id, t); err != nil {
		return "", err
	}
	s.records.Delete(username)

	s.publish(ctx, username, id, amqp.ActionCreate, t)
	slog.InfoContext(ctx, "Record created",
		"username", username, "record_id", id, "kind", string(t.Kind), "amount", t.Amount)
	return id, nil
}

// Update replaces the record under id. An empty kind is rejected.
func (s *TrackerService) Update(ctx context.Context, username, id string, t core.Transaction) error {
	if err := t.ValidateKind(); err != nil {
		return err
	}
	if err := s.transactions.Put(username, id, t); err != nil {
		return err
	}
	s.records.Delete(username)

	s.publish(ctx, username, id, amqp.ActionUpdate, t)
	slog.InfoContext(ctx, "Record updated", "username", username, "record_id", id)
	return nil
}

// Delete removes the record under id. Absent IDs are a no-op.
func (s *TrackerService) Delete(ctx context.Context, username, id string) error {
	if err := s.transactions.Delete(username, id); err != nil {
		return err
	}
	s.records.Delete(username)

	s.publish(ctx, username, id, amqp.ActionDelete, core.Transaction{})
	slog.InfoContext(ctx, "Record deleted", "username", username, "record_id", id)
	return nil
}

func (s *TrackerService) publish(ctx context.Context, username, id, action string, t core.Transaction) {
	if s.publisher == nil {
		slog.WarnContext(ctx, "AMQP client not available, skipping audit message")
		return
	}

	msg := amqp.NewAuditMessage(username, id, action)
	msg.Kind = string(t.Kind)
	msg.Date = t.Date
	msg.Amount = t.Amount
	msg.Category = t.Category

	if err := s.publisher.PublishAudit(ctx, msg); err != nil {
		// The record is already saved locally; losing one audit
		// message must not fail the request.
		slog.ErrorContext(ctx, "Failed to publish audit message",
			"username", username, "record_id", id, "action", action, "error", err)
	}
}
