package webui

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"github.com/jholhewres/buddy/pkg/buddy/auth"
	"github.com/jholhewres/buddy/pkg/buddy/scheduler"
)

// Flash texts shown on the login page.
const (
	flashInvalidLogin = "Invalid email or password"
	flashEmailTaken   = "Email already registered!"
	flashMissing      = "Email and password are required."
	flashRegistered   = "Registration successful! Please login."
	flashLoggedOut    = "Logged out successfully!"
)

const replyLoginFirst = "Please login first!"

type chatRequest struct {
	Message string `json:"message"`
}

type chatResponse struct {
	Reply string `json:"reply"`
}

// ---------- Pages ----------

func (s *Server) handleHome(w http.ResponseWriter, r *http.Request) {
	if _, ok := s.deps.Sessions.User(r); ok {
		http.Redirect(w, r, "/index", http.StatusFound)
		return
	}
	http.Redirect(w, r, "/login", http.StatusFound)
}

func (s *Server) handleLoginPage(w http.ResponseWriter, r *http.Request) {
	s.renderLogin(w, r, false)
}

func (s *Server) handleRegisterPage(w http.ResponseWriter, r *http.Request) {
	s.renderLogin(w, r, true)
}

func (s *Server) handleLogin(w http.ResponseWriter, r *http.Request) {
	email, password := formCredentials(r)

	if err := s.deps.Users.Authenticate(email, password); err != nil {
		s.logger.Debug("login failed", "email", email, "error", err)
		s.renderLogin(w, r, false, auth.Flash{Category: auth.FlashError, Message: flashInvalidLogin})
		return
	}

	s.deps.Sessions.Login(w, r, email)
	s.logger.Info("user logged in", "email", email)
	http.Redirect(w, r, "/index", http.StatusFound)
}

func (s *Server) handleRegister(w http.ResponseWriter, r *http.Request) {
	email, password := formCredentials(r)

	err := s.deps.Users.Register(email, password)
	switch {
	case errors.Is(err, auth.ErrEmailTaken):
		s.renderLogin(w, r, true, auth.Flash{Category: auth.FlashError, Message: flashEmailTaken})
		return
	case errors.Is(err, auth.ErrMissingFields):
		s.renderLogin(w, r, true, auth.Flash{Category: auth.FlashError, Message: flashMissing})
		return
	case err != nil:
		s.logger.Error("registration failed", "error", err)
		http.Error(w, "registration failed", http.StatusInternalServerError)
		return
	}

	s.logger.Info("user registered", "email", email)
	s.deps.Sessions.AddFlash(w, r, auth.FlashSuccess, flashRegistered)
	http.Redirect(w, r, "/login", http.StatusFound)
}

func (s *Server) handleLogout(w http.ResponseWriter, r *http.Request) {
	s.deps.Sessions.Logout(w, r)
	s.deps.Sessions.AddFlash(w, r, auth.FlashInfo, flashLoggedOut)
	http.Redirect(w, r, "/login", http.StatusFound)
}

func (s *Server) handleIndex(w http.ResponseWriter, r *http.Request) {
	user, _ := s.deps.Sessions.User(r)
	s.render(w, s.pages.index, pageData{User: user})
}

// renderLogin shows the login form, or the registration form when register
// is set. Pending session flashes come first, then extra.
func (s *Server) renderLogin(w http.ResponseWriter, r *http.Request, register bool, extra ...auth.Flash) {
	data := pageData{
		Register: register,
		Flashes:  append(s.deps.Sessions.Flashes(r), extra...),
	}
	s.render(w, s.pages.login, data)
}

func formCredentials(r *http.Request) (email, password string) {
	return strings.TrimSpace(r.PostFormValue("email")), r.PostFormValue("password")
}

// ---------- JSON API ----------

func (s *Server) handleChat(w http.ResponseWriter, r *http.Request) {
	user, ok := s.deps.Sessions.User(r)
	if !ok {
		writeJSON(w, http.StatusOK, chatResponse{Reply: replyLoginFirst})
		return
	}

	var req chatRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid JSON body"})
		return
	}

	reply, intent := s.deps.Responder.Respond(r.Context(), user, req.Message)
	s.logger.Debug("chat", "user", user, "intent", intent)
	writeJSON(w, http.StatusOK, chatResponse{Reply: reply})
}

func (s *Server) handleNotifications(w http.ResponseWriter, r *http.Request) {
	user, ok := s.deps.Sessions.User(r)
	if !ok {
		writeJSON(w, http.StatusUnauthorized, map[string]string{"error": "login required"})
		return
	}

	pending := []scheduler.Notification{}
	if s.deps.Notifications != nil {
		if got := s.deps.Notifications.Drain(user); len(got) > 0 {
			pending = got
		}
	}
	writeJSON(w, http.StatusOK, map[string]any{"notifications": pending})
}

func (s *Server) handleReminders(w http.ResponseWriter, r *http.Request) {
	user, ok := s.deps.Sessions.User(r)
	if !ok {
		writeJSON(w, http.StatusUnauthorized, map[string]string{"error": "login required"})
		return
	}

	pending := []scheduler.PendingReminder{}
	if s.deps.Reminders != nil {
		if got := s.deps.Reminders.Pending(user); len(got) > 0 {
			pending = got
		}
	}
	writeJSON(w, http.StatusOK, map[string]any{"reminders": pending})
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}
