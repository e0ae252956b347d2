package api

import (
	"errors"
	"net/http"
	"strings"

	"storefront-bff/internal/auth"
	"storefront-bff/internal/models"
)

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type googleRequest struct {
	IDToken string `json:"idToken"`
}

func (h *Handler) GetSession(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, workspace(r).Session.Snapshot())
}

func (h *Handler) Login(w http.ResponseWriter, r *http.Request) {
	if h.rateLimited(w, r, "login") {
		return
	}

	var req loginRequest
	if err := decodeJSON(w, r, &req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	if strings.TrimSpace(req.Email) == "" || req.Password == "" {
		respondError(w, http.StatusUnprocessableEntity, "Email and password are required.")
		return
	}

	ws := workspace(r)
	if err := ws.Session.Login(r.Context(), req.Email, req.Password); err != nil {
		h.loginFailed(w, err)
		return
	}
	ws.Notifications.Notify("Login successful!", models.NotificationSuccess)
	respondJSON(w, http.StatusOK, ws.Session.Snapshot())
}

func (h *Handler) LoginWithGoogle(w http.ResponseWriter, r *http.Request) {
	if h.rateLimited(w, r, "login") {
		return
	}

	var req googleRequest
	if err := decodeJSON(w, r, &req); err != nil || req.IDToken == "" {
		respondError(w, http.StatusBadRequest, "idToken is required")
		return
	}

	ws := workspace(r)
	if err := ws.Session.LoginWithGoogle(r.Context(), req.IDToken); err != nil {
		h.loginFailed(w, err)
		return
	}
	ws.Notifications.Notify("Signed in with Google successfully!", models.NotificationSuccess)
	respondJSON(w, http.StatusOK, ws.Session.Snapshot())
}

func (h *Handler) Logout(w http.ResponseWriter, r *http.Request) {
	ws := workspace(r)
	ws.Session.Logout(r.Context())
	ws.AbandonCheckout()
	respondJSON(w, http.StatusOK, ws.Session.Snapshot())
}

func (h *Handler) loginFailed(w http.ResponseWriter, err error) {
	h.logger.Info("Login failed", "error", err)
	var le *auth.LoginError
	if errors.As(err, &le) {
		respondError(w, http.StatusUnauthorized, le.Message)
		return
	}
	respondError(w, http.StatusUnauthorized, err.Error())
}
