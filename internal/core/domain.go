package core

import (
	"errors"
	"strconv"
	"strings"
	"time"
)

const (
	Income  Kind = "income"
	Expense Kind = "expense"
)

// AnyCategory is the sentinel that disables category filtering.
const AnyCategory = "any"

type (
	Kind string

	// Transaction is a single income or expense record. The ID doubles as
	// the key of the owning user's record store and is not serialized with
	// the record itself.
	Transaction struct {
		ID       string `json:"-"`
		Kind     Kind   `json:"kind"`
		Date     string `json:"date"`
		Amount   int    `json:"amount"`
		Category string `json:"category"`
		Comment  string `json:"comment,omitempty"`
	}

	// Credential is one account record in the shared credential store,
	// keyed by username.
	Credential struct {
		Username     string `json:"-"`
		PasswordHash string `json:"password_hash"`
		FirstName    string `json:"first_name"`
		LastName     string `json:"last_name"`
		Email        string `json:"email"`
	}

	// Filter narrows the history view. Scope is either a year ("2006") or
	// a year-month ("2006-01"); Category is an exact match or AnyCategory.
	Filter struct {
		Scope    string
		Category string
	}
)

var (
	ErrStorageUnavailable = errors.New("record store unavailable")
	ErrUsernameTaken      = errors.New("username taken")
	ErrEmailTaken         = errors.New("email taken")
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrEmptyKind          = errors.New("transaction kind is empty")
)

// DefaultFilter is the state applied when no filter is active: the
// current month, all categories.
func DefaultFilter(now time.Time) Filter {
	return Filter{Scope: now.Format("2006-01"), Category: AnyCategory}
}

// Today formats now as a store date ("YYYY-MM-DD").
func Today(now time.Time) string {
	return now.Format("2006-01-02")
}

// NewTransactionID derives a record ID from the creation time at second
// granularity. Two records created within the same second collide and the
// later write wins; the lexicographic order of IDs is the creation order.
func NewTransactionID(now time.Time) string {
	return now.Format("2006-01-02_15:04:05")
}

// CoerceAmount converts form input to a non-negative integer amount.
// Unparseable or negative input coerces to zero; the sign of a
// transaction is carried by its Kind, never by the amount.
func CoerceAmount(s string) int {
	n, err := strconv.Atoi(strings.TrimSpace(s))
	if err != nil || n < 0 {
		return 0
	}
	return n
}

// Signed returns the transaction's contribution to the balance: positive
// for income, negative for expense, zero for anything else.
func (t Transaction) Signed() int {
	switch t.Kind {
	case Income:
		return t.Amount
	case Expense:
		return -t.Amount
	}
	return 0
}

// ValidateKind rejects an empty transaction kind. The edit path enforces
// this; the create path intentionally does not (see DESIGN.md).
func (t Transaction) ValidateKind() error {
	if strings.TrimSpace(string(t.Kind)) == "" {
		return ErrEmptyKind
	}
	return nil
}
