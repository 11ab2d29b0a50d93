package core

import (
	"testing"
)

func sampleStore() map[string]Transaction {
	return map[string]Transaction{
		"2024-03-01_10:00:00": {Kind: Income, Date: "2024-03-01", Amount: 100, Category: "salary"},
		"2024-03-02_10:00:00": {Kind: Expense, Date: "2024-03-02", Amount: 40, Category: "food"},
		"2024-02-28_09:00:00": {Kind: Expense, Date: "2024-02-28", Amount: 15, Category: "food"},
		"2023-12-31_23:59:59": {Kind: Income, Date: "2023-12-31", Amount: 500, Category: "bonus"},
	}
}

func TestFilterByDate(t *testing.T) {
	tests := []struct {
		name  string
		scope string
		want  int
	}{
		{"whole year", "2024", 3},
		{"single month", "2024-03", 2},
		{"other month", "2024-02", 1},
		{"previous year", "2023", 1},
		{"empty month", "2024-07", 0},
	}
	records := collect(sampleStore())
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := FilterByDate(records, tt.scope)
			if len(got) != tt.want {
				t.Errorf("FilterByDate(%q) returned %d records, want %d", tt.scope, len(got), tt.want)
			}
			for _, tr := range got {
				cut := 7
				if len(tt.scope) == 4 {
					cut = 4
				}
				if tr.Date[:cut] != tt.scope {
					t.Errorf("record %q leaked through scope %q", tr.Date, tt.scope)
				}
			}
		})
	}
}

func TestFilterByCategoryAnyIsIdentity(t *testing.T) {
	records := collect(sampleStore())
	got := FilterByCategory(records, AnyCategory)
	if len(got) != len(records) {
		t.Fatalf("any-category filter dropped records: %d != %d", len(got), len(records))
	}
}

func TestFilterByCategoryExactMatch(t *testing.T) {
	records := collect(sampleStore())
	got := FilterByCategory(records, "food")
	if len(got) != 2 {
		t.Fatalf("got %d food records, want 2", len(got))
	}
	for _, tr := range got {
		if tr.Category != "food" {
			t.Errorf("unexpected category %q", tr.Category)
		}
	}
}

func TestFilterTransactionsComposesAndSorts(t *testing.T) {
	got := FilterTransactions(sampleStore(), Filter{Scope: "2024", Category: AnyCategory})
	if len(got) != 3 {
		t.Fatalf("got %d records, want 3", len(got))
	}
	for i := 1; i < len(got); i++ {
		if got[i-1].Date > got[i].Date {
			t.Errorf("not sorted: %q before %q", got[i-1].Date, got[i].Date)
		}
	}

	got = FilterTransactions(sampleStore(), Filter{Scope: "2024-03", Category: "food"})
	if len(got) != 1 || got[0].Category != "food" || got[0].Date != "2024-03-02" {
		t.Fatalf("composed filter wrong: %+v", got)
	}
}

func TestFindRecent(t *testing.T) {
	store := map[string]Transaction{}
	dates := []string{
		"2024-01-01_10:00:00",
		"2024-01-02_10:00:00",
		"2024-01-03_10:00:00",
		"2024-01-04_10:00:00",
		"2024-01-05_10:00:00",
		"2024-01-06_10:00:00",
		"2024-01-07_10:00:00",
	}
	for _, id := range dates {
		store[id] = Transaction{Kind: Income, Date: id[:10], Amount: 1}
	}

	got := FindRecent(store, 5)
	if len(got) != 5 {
		t.Fatalf("got %d records, want 5", len(got))
	}
	if got[0].ID != "2024-01-07_10:00:00" {
		t.Errorf("first record = %q, want newest", got[0].ID)
	}
	for i := 1; i < len(got); i++ {
		if got[i-1].ID < got[i].ID {
			t.Errorf("not newest-first: %q before %q", got[i-1].ID, got[i].ID)
		}
	}

	if got := FindRecent(map[string]Transaction{}, 5); len(got) != 0 {
		t.Errorf("empty store should yield no records, got %d", len(got))
	}
}

func TestComputeBalance(t *testing.T) {
	store := map[string]Transaction{
		"a": {Kind: Income, Amount: 100},
		"b": {Kind: Expense, Amount: 40},
	}
	if got := ComputeBalance(store); got != 60 {
		t.Errorf("balance = %d, want 60", got)
	}

	// Order independence: maps iterate randomly, sum must not care.
	store["c"] = Transaction{Kind: Income, Amount: 1}
	store["d"] = Transaction{Kind: Expense, Amount: 1}
	for i := 0; i < 10; i++ {
		if got := ComputeBalance(store); got != 60 {
			t.Fatalf("balance unstable across iterations: %d", got)
		}
	}

	if got := ComputeBalance(map[string]Transaction{}); got != 0 {
		t.Errorf("empty store balance = %d, want 0", got)
	}

	// Records with an unknown kind contribute nothing.
	store["e"] = Transaction{Kind: "gift", Amount: 999}
	if got := ComputeBalance(store); got != 60 {
		t.Errorf("unknown kind should contribute 0, balance = %d", got)
	}
}
