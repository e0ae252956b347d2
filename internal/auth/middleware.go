package auth

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"

	"storefront-bff/internal/models"
)

type Decision int

const (
	Allow Decision = iota
	Pending
	RedirectLogin
	RedirectHome
)

func (d Decision) String() string {
	switch d {
	case Allow:
		return "allow"
	case Pending:
		return "pending"
	case RedirectLogin:
		return "redirect-login"
	case RedirectHome:
		return "redirect-home"
	}
	return "unknown"
}

// Guard decides whether a visitor in state snap may see a protected view.
func Guard(snap Snapshot, adminOnly bool) Decision {
	switch {
	case snap.Status == StatusLoading:
		return Pending
	case !snap.Authenticated():
		return RedirectLogin
	case adminOnly && !snap.User.IsAdmin:
		return RedirectHome
	}
	return Allow
}

type ctxKey struct{}

// UserFromContext returns the user put there by Middleware.
func UserFromContext(ctx context.Context) (*models.User, bool) {
	u, ok := ctx.Value(ctxKey{}).(*models.User)
	return u, ok
}

// SessionLookup finds the session behind a request.
type SessionLookup func(r *http.Request) (*Session, error)

type Middleware struct {
	lookup SessionLookup
}

func NewMiddleware(lookup SessionLookup) *Middleware {
	return &Middleware{lookup: lookup}
}

func (m *Middleware) RequireUser(next http.Handler) http.Handler {
	return m.require(false, next)
}

func (m *Middleware) RequireAdmin(next http.Handler) http.Handler {
	return m.require(true, next)
}

func (m *Middleware) require(adminOnly bool, next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		session, err := m.lookup(r)
		if err != nil {
			slog.Error("Session lookup failed", "error", err)
			deny(w, http.StatusInternalServerError, "session unavailable", "")
			return
		}

		snap := session.Snapshot()
		switch Guard(snap, adminOnly) {
		case Pending:
			deny(w, http.StatusServiceUnavailable, "authenticating", "")
		case RedirectLogin:
			deny(w, http.StatusUnauthorized, "login required", "/login")
		case RedirectHome:
			slog.Warn("Non-admin tried admin route", "user_id", snap.User.ID, "path", r.URL.Path)
			deny(w, http.StatusForbidden, "admin only", "/")
		default:
			ctx := context.WithValue(r.Context(), ctxKey{}, snap.User)
			next.ServeHTTP(w, r.WithContext(ctx))
		}
	})
}

func deny(w http.ResponseWriter, status int, msg, redirect string) {
	body := map[string]any{"error": msg, "code": status}
	if redirect != "" {
		body["redirect"] = redirect
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(body)
}
