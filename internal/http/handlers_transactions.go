package http

import (
	"errors"
	"log/slog"
	"net/http"
	"time"

	"fintrack/internal/core"
)

type dashboardView struct {
	Username string
	Flash    string
	Recent   []core.Transaction
	Balance  int
}

type recordView struct {
	Username string
	Error    string
	ID       string
	Record   core.Transaction
	Today    string
}

func (s *Server) handleIndex(w http.ResponseWriter, r *http.Request) {
	username, ok := s.currentUser(r)
	if !ok {
		http.Redirect(w, r, "/signin", http.StatusFound)
		return
	}

	recent, balance, err := s.tracker.Dashboard(r.Context(), username)
	if err != nil {
		slog.ErrorContext(r.Context(), "Dashboard load failed", "username", username, "error", err)
		http.Error(w, "service unavailable", http.StatusInternalServerError)
		return
	}

	s.render(w, r, "index.html", http.StatusOK, dashboardView{
		Username: username,
		Flash:    s.sessions.TakeFlash(sessionToken(r)),
		Recent:   recent,
		Balance:  balance,
	})
}

func (s *Server) handleNewForm(w http.ResponseWriter, r *http.Request) {
	username, ok := s.currentUser(r)
	if !ok {
		http.Redirect(w, r, "/signin", http.StatusFound)
		return
	}
	s.render(w, r, "new.html", http.StatusOK, recordView{
		Username: username,
		Today:    core.Today(time.Now()),
	})
}

func (s *Server) handleCreate(w http.ResponseWriter, r *http.Request) {
	username, ok := s.currentUser(r)
	if !ok {
		http.Redirect(w, r, "/signin", http.StatusFound)
		return
	}
	if err := r.ParseForm(); err != nil {
		http.Error(w, "invalid form", http.StatusBadRequest)
		return
	}

	now := time.Now()
	record := core.Transaction{
		Kind:     core.Kind(sanitizeInput(r.Form.Get("kind"))),
		Date:     sanitizeInput(r.Form.Get("date")),
		Amount:   core.CoerceAmount(r.Form.Get("amount")),
		Category: sanitizeInput(r.Form.Get("category")),
		Comment:  sanitizeInput(r.Form.Get("comment")),
	}
	if record.Date == "" {
		record.Date = core.Today(now)
	}

	// The kind goes in as submitted; only the edit path validates it.
	if _, err := s.tracker.Create(r.Context(), username, record, now); err != nil {
		slog.ErrorContext(r.Context(), "Record create failed", "username", username, "error", err)
		http.Error(w, "service unavailable", http.StatusInternalServerError)
		return
	}

	s.sessions.SetFlash(sessionToken(r), "Record saved.")
	http.Redirect(w, r, "/", http.StatusSeeOther)
}

func (s *Server) handleEditForm(w http.ResponseWriter, r *http.Request) {
	username, ok := s.currentUser(r)
	if !ok {
		http.Redirect(w, r, "/signin", http.StatusFound)
		return
	}

	id := r.PathValue("id")
	record, found, err := s.tracker.Get(r.Context(), username, id)
	if err != nil {
		slog.ErrorContext(r.Context(), "Record load failed", "username", username, "record_id", id, "error", err)
		http.Error(w, "service unavailable", http.StatusInternalServerError)
		return
	}
	if !found {
		http.NotFound(w, r)
		return
	}

	s.render(w, r, "edit.html", http.StatusOK, recordView{
		Username: username,
		ID:       id,
		Record:   record,
	})
}

func (s *Server) handleEdit(w http.ResponseWriter, r *http.Request) {
	username, ok := s.currentUser(r)
	if !ok {
		http.Redirect(w, r, "/signin", http.StatusFound)
		return
	}
	if err := r.ParseForm(); err != nil {
		http.Error(w, "invalid form", http.StatusBadRequest)
		return
	}

	id := r.PathValue("id")
	record := core.Transaction{
		Kind:     core.Kind(sanitizeInput(r.Form.Get("kind"))),
		Date:     sanitizeInput(r.Form.Get("date")),
		Amount:   core.CoerceAmount(r.Form.Get("amount")),
		Category: sanitizeInput(r.Form.Get("category")),
		Comment:  sanitizeInput(r.Form.Get("comment")),
	}

	if err := s.tracker.Update(r.Context(), username, id, record); err != nil {
		if errors.Is(err, core.ErrEmptyKind) {
			s.render(w, r, "edit.html", http.StatusUnprocessableEntity, recordView{
				Username: username,
				Error:    "Please choose income or expense.",
				ID:       id,
				Record:   record,
			})
			return
		}
		slog.ErrorContext(r.Context(), "Record update failed", "username", username, "record_id", id, "error", err)
		http.Error(w, "service unavailable", http.StatusInternalServerError)
		return
	}

	s.sessions.SetFlash(sessionToken(r), "Record updated.")
	http.Redirect(w, r, "/history", http.StatusSeeOther)
}

// handleDelete removes a record and returns to the dashboard. There is
// deliberately no sign-in gate here: an anonymous request resolves to
// no record store and surfaces as a server error.
func (s *Server) handleDelete(w http.ResponseWriter, r *http.Request) {
	username, _ := s.currentUser(r)
	id := r.PathValue("id")

	if err := s.tracker.Delete(r.Context(), username, id); err != nil {
		slog.ErrorContext(r.Context(), "Record delete failed", "username", username, "record_id", id, "error", err)
		http.Error(w, "service unavailable", http.StatusInternalServerError)
		return
	}

	s.sessions.SetFlash(sessionToken(r), "Record deleted.")
	http.Redirect(w, r, "/history", http.StatusFound)
}
