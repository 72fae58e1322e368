// Package handlers wires the HTTP surface: authentication, the statement
// ingestion wizard, the chat endpoints and the dashboard reads.
package handlers

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"golang.org/x/crypto/bcrypt"

	"github.com/tanveerk/finhub/internal/api/middleware"
	"github.com/tanveerk/finhub/internal/store"
)

const sessionTTL = 7 * 24 * time.Hour

// AuthHandler handles login and logout.
type AuthHandler struct {
	store *store.Store
	log   zerolog.Logger
}

// NewAuthHandler creates a new auth handler.
func NewAuthHandler(st *store.Store, log zerolog.Logger) *AuthHandler {
	return &AuthHandler{store: st, log: log}
}

// Login handles POST /auth/login
func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Email    string `json:"email"`
		Password string `json:"password"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		middleware.WriteError(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	if req.Email == "" || req.Password == "" {
		middleware.WriteError(w, http.StatusBadRequest, "Email and password are required")
		return
	}

	user, err := h.store.GetUserByEmail(r.Context(), req.Email)
	if errors.Is(err, store.ErrNotFound) {
		middleware.WriteError(w, http.StatusUnauthorized, "Invalid email or password")
		return
	}
	if err != nil {
		h.log.Error().Err(err).Msg("Login lookup failed")
		middleware.WriteError(w, http.StatusInternalServerError, "Login failed")
		return
	}

	if bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(req.Password)) != nil {
		middleware.WriteError(w, http.StatusUnauthorized, "Invalid email or password")
		return
	}

	token := uuid.New().String()
	expires := time.Now().Add(sessionTTL)
	if err := h.store.CreateSession(r.Context(), token, user.ID, expires); err != nil {
		h.log.Error().Err(err).Msg("Creating session failed")
		middleware.WriteError(w, http.StatusInternalServerError, "Login failed")
		return
	}

	http.SetCookie(w, &http.Cookie{
		Name:     middleware.SessionCookie,
		Value:    token,
		Path:     "/",
		Expires:  expires,
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	})

	middleware.WriteJSON(w, http.StatusOK, map[string]interface{}{
		"ok": true,
		"user": map[string]interface{}{
			"id":    user.ID,
			"email": user.Email,
		},
	})
}

// Logout handles POST /auth/logout
func (h *AuthHandler) Logout(w http.ResponseWriter, r *http.Request) {
	if token := middleware.SessionToken(r); token != "" {
		if err := h.store.DeleteSession(r.Context(), token); err != nil {
			h.log.Warn().Err(err).Msg("Deleting session failed")
		}
	}

	http.SetCookie(w, &http.Cookie{
		Name:     middleware.SessionCookie,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	})

	middleware.WriteJSON(w, http.StatusOK, map[string]interface{}{"ok": true})
}
