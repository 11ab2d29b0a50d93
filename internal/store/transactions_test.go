package store

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"fintrack/internal/core"
)

func newTransactionStore(t *testing.T, users ...string) *TransactionStore {
	t.Helper()
	s := NewTransactionStore(t.TempDir())
	for _, u := range users {
		if err := s.Initialize(u); err != nil {
			t.Fatalf("Initialize(%q) failed: %v", u, err)
		}
	}
	return s
}

func TestTransactionStorePutAndLoad(t *testing.T) {
	s := newTransactionStore(t, "ada")

	rec := core.Transaction{Kind: core.Expense, Date: "2024-03-02", Amount: 40, Category: "food", Comment: "lunch"}
	if err := s.Put("ada", "2024-03-02_12:00:00", rec); err != nil {
		t.Fatalf("Put() failed: %v", err)
	}

	records, err := s.Load("ada")
	if err != nil {
		t.Fatalf("Load() failed: %v", err)
	}
	got, ok := records["2024-03-02_12:00:00"]
	if !ok {
		t.Fatal("record not found after Put()")
	}
	if got.Kind != core.Expense || got.Amount != 40 || got.Comment != "lunch" {
		t.Errorf("loaded record = %+v", got)
	}
}

func TestTransactionStorePutOverwritesSameID(t *testing.T) {
	s := newTransactionStore(t, "ada")

	id := "2024-03-02_12:00:00"
	if err := s.Put("ada", id, core.Transaction{Kind: core.Income, Date: "2024-03-02", Amount: 10}); err != nil {
		t.Fatal(err)
	}
	if err := s.Put("ada", id, core.Transaction{Kind: core.Expense, Date: "2024-03-02", Amount: 99}); err != nil {
		t.Fatal(err)
	}

	records, err := s.Load("ada")
	if err != nil {
		t.Fatal(err)
	}
	if len(records) != 1 || records[id].Amount != 99 {
		t.Errorf("later write should win: %+v", records)
	}
}

func TestTransactionStoreDelete(t *testing.T) {
	s := newTransactionStore(t, "ada")

	id := "2024-03-02_12:00:00"
	if err := s.Put("ada", id, core.Transaction{Kind: core.Income, Date: "2024-03-02", Amount: 10}); err != nil {
		t.Fatal(err)
	}
	if err := s.Delete("ada", id); err != nil {
		t.Fatalf("Delete() failed: %v", err)
	}
	if err := s.Delete("ada", "2099-01-01_00:00:00"); err != nil {
		t.Errorf("deleting an absent id should be a no-op, got %v", err)
	}

	records, err := s.Load("ada")
	if err != nil {
		t.Fatal(err)
	}
	if len(records) != 0 {
		t.Errorf("store should be empty, got %d records", len(records))
	}
}

func TestTransactionStoreIsolatesUsers(t *testing.T) {
	s := newTransactionStore(t, "ada", "grace")

	if err := s.Put("ada", "2024-03-02_12:00:00", core.Transaction{Kind: core.Income, Date: "2024-03-02", Amount: 10}); err != nil {
		t.Fatal(err)
	}

	records, err := s.Load("grace")
	if err != nil {
		t.Fatal(err)
	}
	if len(records) != 0 {
		t.Errorf("records leaked across users: %+v", records)
	}
}

func TestTransactionStoreMissingUser(t *testing.T) {
	s := newTransactionStore(t)
	if _, err := s.Load("nobody"); !errors.Is(err, core.ErrStorageUnavailable) {
		t.Errorf("missing file: got %v, want ErrStorageUnavailable", err)
	}
	if err := s.Put("nobody", "2024-03-02_12:00:00", core.Transaction{}); !errors.Is(err, core.ErrStorageUnavailable) {
		t.Errorf("Put() without a store: got %v, want ErrStorageUnavailable", err)
	}
	if err := s.Delete("nobody", "2024-03-02_12:00:00"); !errors.Is(err, core.ErrStorageUnavailable) {
		t.Errorf("Delete() without a store: got %v, want ErrStorageUnavailable", err)
	}
}

func TestTransactionStoreRejectsPathTraversal(t *testing.T) {
	s := newTransactionStore(t)
	for _, username := range []string{"", "..", "a/b", `a\b`} {
		if _, err := s.Load(username); !errors.Is(err, core.ErrStorageUnavailable) {
			t.Errorf("Load(%q): got %v, want ErrStorageUnavailable", username, err)
		}
	}
}

func TestTransactionStoreInitializeKeepsExisting(t *testing.T) {
	s := newTransactionStore(t, "ada")
	if err := s.Put("ada", "2024-03-02_12:00:00", core.Transaction{Kind: core.Income, Date: "2024-03-02", Amount: 10}); err != nil {
		t.Fatal(err)
	}
	if err := s.Initialize("ada"); err != nil {
		t.Fatalf("Initialize() on existing store failed: %v", err)
	}
	records, err := s.Load("ada")
	if err != nil {
		t.Fatal(err)
	}
	if len(records) != 1 {
		t.Errorf("Initialize() truncated the store: %d records", len(records))
	}
}

func TestTransactionStoreCorruptFile(t *testing.T) {
	dir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, "ada.json"), []byte("not json"), 0o644); err != nil {
		t.Fatal(err)
	}
	s := NewTransactionStore(dir)
	if _, err := s.Load("ada"); !errors.Is(err, core.ErrStorageUnavailable) {
		t.Errorf("corrupt file: got %v, want ErrStorageUnavailable", err)
	}
}
