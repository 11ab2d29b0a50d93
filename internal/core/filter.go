// Package core holds the domain model and the pure view computations:
// date/category filtering, ordering, recent-activity selection and the
// running balance. Nothing in this package performs I/O.
package core

import (
	"sort"
)

// FilterByDate keeps the transactions whose date falls inside scope. A
// 4-character scope selects a whole year, anything else is treated as a
// "YYYY-MM" month prefix.
func FilterByDate(records []Transaction, scope string) []Transaction {
	cut := 7
	if len(scope) == 4 {
		cut = 4
	}
	out := make([]Transaction, 0, len(records))
	for _, t := range records {
		if len(t.Date) >= cut && t.Date[:cut] == scope {
			out = append(out, t)
		}
	}
	return out
}

// FilterByCategory keeps transactions with an exact category match.
// AnyCategory is the identity.
func FilterByCategory(records []Transaction, category string) []Transaction {
	if category == AnyCategory {
		return records
	}
	out := make([]Transaction, 0, len(records))
	for _, t := range records {
		if t.Category == category {
			out = append(out, t)
		}
	}
	return out
}

// SortByDate orders transactions ascending by date. Dates are fixed
// "YYYY-MM-DD" strings, so lexicographic order is chronological order.
// Ties keep their relative order.
func SortByDate(records []Transaction) []Transaction {
	sort.SliceStable(records, func(i, j int) bool {
		return records[i].Date < records[j].Date
	})
	return records
}

// FilterTransactions derives the history view: date filter, then
// category filter, then chronological sort.
func FilterTransactions(store map[string]Transaction, f Filter) []Transaction {
	records := collect(store)
	records = FilterByDate(records, f.Scope)
	records = FilterByCategory(records, f.Category)
	return SortByDate(records)
}

// FindRecent returns up to n transactions, newest first by record ID.
// IDs are timestamp-derived, so descending ID order is reverse creation
// order. No filter applies here.
func FindRecent(store map[string]Transaction, n int) []Transaction {
	ids := make([]string, 0, len(store))
	for id := range store {
		ids = append(ids, id)
	}
	sort.Sort(sort.Reverse(sort.StringSlice(ids)))
	if len(ids) > n {
		ids = ids[:n]
	}
	out := make([]Transaction, 0, len(ids))
	for _, id := range ids {
		t := store[id]
		t.ID = id
		out = append(out, t)
	}
	return out
}

// ComputeBalance folds the full, unfiltered store into a signed total.
func ComputeBalance(store map[string]Transaction) int {
	sum := 0
	for _, t := range store {
		sum += t.Signed()
	}
	return sum
}

func collect(store map[string]Transaction) []Transaction {
	out := make([]Transaction, 0, len(store))
	for id, t := range store {
		t.ID = id
		out = append(out, t)
	}
	// Deterministic input order for the stable sort below.
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}
