package http

import (
	"log/slog"
	"net/http"
	"time"

	"fintrack/internal/core"
)

type historyView struct {
	Username   string
	Flash      string
	Scope      string
	Range      string
	Year       string
	Month      string
	Category   string
	Categories []string
	Records    []core.Transaction
}

// handleHistory renders the filtered record list. The session filter
// applies to exactly one view: taking it here resets it, so the next
// plain GET falls back to the current month.
func (s *Server) handleHistory(w http.ResponseWriter, r *http.Request) {
	username, ok := s.currentUser(r)
	if !ok {
		http.Redirect(w, r, "/signin", http.StatusFound)
		return
	}

	filter := s.sessions.TakeFilter(sessionToken(r), time.Now())
	records, err := s.tracker.History(r.Context(), username, filter)
	if err != nil {
		slog.ErrorContext(r.Context(), "History load failed",
			"username", username, "scope", filter.Scope, "category", filter.Category, "error", err)
		http.Error(w, "service unavailable", http.StatusInternalServerError)
		return
	}

	categories, err := s.tracker.Categories(r.Context(), username)
	if err != nil {
		slog.ErrorContext(r.Context(), "Category list failed", "username", username, "error", err)
		http.Error(w, "service unavailable", http.StatusInternalServerError)
		return
	}

	view := historyView{
		Username:   username,
		Flash:      s.sessions.TakeFlash(sessionToken(r)),
		Scope:      filter.Scope,
		Category:   filter.Category,
		Categories: categories,
		Records:    records,
	}
	if len(filter.Scope) == 4 {
		view.Range = "year"
		view.Year = filter.Scope
	} else {
		view.Range = "month"
		view.Month = filter.Scope
	}

	s.render(w, r, "history.html", http.StatusOK, view)
}

// handleSetFilter stores the submitted filter on the session and
// bounces back to the history view that consumes it.
func (s *Server) handleSetFilter(w http.ResponseWriter, r *http.Request) {
	_, ok := s.currentUser(r)
	if !ok {
		http.Redirect(w, r, "/signin", http.StatusFound)
		return
	}
	if err := r.ParseForm(); err != nil {
		http.Error(w, "invalid form", http.StatusBadRequest)
		return
	}

	// The range selector decides which value field counts: "year"
	// picks the year field, anything else picks the month field.
	scope := sanitizeInput(r.Form.Get("month"))
	if sanitizeInput(r.Form.Get("range")) == "year" {
		scope = sanitizeInput(r.Form.Get("year"))
	}

	filter := core.Filter{
		Scope:    scope,
		Category: sanitizeInput(r.Form.Get("category")),
	}
	now := time.Now()
	if filter.Scope == "" {
		filter.Scope = core.DefaultFilter(now).Scope
	}
	if filter.Category == "" {
		filter.Category = core.AnyCategory
	}

	s.sessions.SetFilter(sessionToken(r), filter)
	http.Redirect(w, r, "/history", http.StatusSeeOther)
}
