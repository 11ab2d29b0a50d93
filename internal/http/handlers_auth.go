package http

import (
	"errors"
	"log/slog"
	"net/http"

	"fintrack/internal/core"
)

type authView struct {
	Error     string
	Username  string
	FirstName string
	LastName  string
	Email     string
}

func (s *Server) handleSignInForm(w http.ResponseWriter, r *http.Request) {
	if _, ok := s.currentUser(r); ok {
		http.Redirect(w, r, "/", http.StatusFound)
		return
	}
	s.render(w, r, "signin.html", http.StatusOK, authView{})
}

func (s *Server) handleSignIn(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		http.Error(w, "invalid form", http.StatusBadRequest)
		return
	}

	username := sanitizeInput(r.Form.Get("username"))
	password := r.Form.Get("password")

	if err := s.tracker.SignIn(r.Context(), username, password); err != nil {
		if errors.Is(err, core.ErrInvalidCredentials) {
			slog.WarnContext(r.Context(), "Sign-in rejected", "username", username)
			s.render(w, r, "signin.html", http.StatusUnprocessableEntity, authView{
				Error:    "Invalid credentials. Please try again.",
				Username: username,
			})
			return
		}
		slog.ErrorContext(r.Context(), "Sign-in failed", "username", username, "error", err)
		http.Error(w, "service unavailable", http.StatusInternalServerError)
		return
	}

	token := s.sessions.Create(username)
	setSessionCookie(w, token)
	s.sessions.SetFlash(token, "Welcome back, "+username+"!")
	http.Redirect(w, r, "/", http.StatusSeeOther)
}

func (s *Server) handleSignUpForm(w http.ResponseWriter, r *http.Request) {
	if _, ok := s.currentUser(r); ok {
		http.Redirect(w, r, "/", http.StatusFound)
		return
	}
	s.render(w, r, "signup.html", http.StatusOK, authView{
		Error: takeFlashCookie(w, r),
	})
}

func (s *Server) handleSignUp(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		http.Error(w, "invalid form", http.StatusBadRequest)
		return
	}

	view := authView{
		Username:  sanitizeInput(r.Form.Get("username")),
		FirstName: sanitizeInput(r.Form.Get("first_name")),
		LastName:  sanitizeInput(r.Form.Get("last_name")),
		Email:     sanitizeInput(r.Form.Get("email")),
	}
	password := r.Form.Get("password")

	if view.Username == "" || password == "" {
		view.Error = "Username and password are required."
		s.render(w, r, "signup.html", http.StatusUnprocessableEntity, view)
		return
	}

	profile := core.Credential{
		FirstName: view.FirstName,
		LastName:  view.LastName,
		Email:     view.Email,
	}
	// Uniqueness conflicts bounce back to the sign-up form with a
	// message, leaving the credential store untouched.
	if err := s.tracker.SignUp(r.Context(), view.Username, password, profile); err != nil {
		switch {
		case errors.Is(err, core.ErrUsernameTaken):
			setFlashCookie(w, "That username is already taken.")
		case errors.Is(err, core.ErrEmailTaken):
			setFlashCookie(w, "That email is already registered.")
		default:
			slog.ErrorContext(r.Context(), "Sign-up failed", "username", view.Username, "error", err)
			http.Error(w, "service unavailable", http.StatusInternalServerError)
			return
		}
		http.Redirect(w, r, "/signup", http.StatusSeeOther)
		return
	}

	// A fresh account is signed in right away.
	token := s.sessions.Create(view.Username)
	setSessionCookie(w, token)
	s.sessions.SetFlash(token, "Welcome, "+view.Username+"!")
	http.Redirect(w, r, "/", http.StatusSeeOther)
}

func (s *Server) handleLogout(w http.ResponseWriter, r *http.Request) {
	if token := sessionToken(r); token != "" {
		s.sessions.Destroy(token)
	}
	clearSessionCookie(w)
	http.Redirect(w, r, "/signin", http.StatusFound)
}
