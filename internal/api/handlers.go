package api

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net"
	"net/http"
	"time"

	"storefront-bff/internal/auth"
	"storefront-bff/internal/config"
	"storefront-bff/internal/logging"
	"storefront-bff/internal/models"
	"storefront-bff/internal/services"
	"storefront-bff/internal/visitor"
)

const (
	sessionHeader = "X-Session-ID"
	sessionCookie = "sid"
)

// RateLimiter counts hits per key in fixed windows.
type RateLimiter interface {
	IsRateLimited(ctx context.Context, key string, max int, window time.Duration) bool
}

type Handler struct {
	svc      *services.ServiceClient
	catalog  *services.CachedCatalog
	visitors *visitor.Registry
	limiter  RateLimiter
	cfg      *config.Config
	logger   *slog.Logger
}

func NewHandler(cfg *config.Config, svc *services.ServiceClient, catalog *services.CachedCatalog, visitors *visitor.Registry, limiter RateLimiter) *Handler {
	return &Handler{
		svc:      svc,
		catalog:  catalog,
		visitors: visitors,
		limiter:  limiter,
		cfg:      cfg,
		logger:   logging.New("api"),
	}
}

type ErrorResponse struct {
	Error    string            `json:"error"`
	Code     int               `json:"code"`
	Fields   map[string]string `json:"fieldErrors,omitempty"`
	Redirect string            `json:"redirect,omitempty"`
}

var errProductNotDeleted = errors.New("storefront api reported delete as unsuccessful")

type ctxKey struct{}

// withVisitor attaches the caller's workspace to the request and echoes its
// id back so the client can keep using it.
func (h *Handler) withVisitor(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id := r.Header.Get(sessionHeader)
		if id == "" {
			if c, err := r.Cookie(sessionCookie); err == nil {
				id = c.Value
			}
		}

		ws := h.visitors.Resolve(r.Context(), id)
		if ws.ID != id {
			http.SetCookie(w, &http.Cookie{
				Name:     sessionCookie,
				Value:    ws.ID,
				Path:     "/",
				HttpOnly: true,
				SameSite: http.SameSiteLaxMode,
			})
		}
		w.Header().Set(sessionHeader, ws.ID)

		ctx := context.WithValue(r.Context(), ctxKey{}, ws)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

func workspace(r *http.Request) *visitor.Workspace {
	ws, _ := r.Context().Value(ctxKey{}).(*visitor.Workspace)
	return ws
}

func lookupSession(r *http.Request) (*auth.Session, error) {
	ws := workspace(r)
	if ws == nil {
		return nil, errors.New("no visitor workspace on request")
	}
	return ws.Session, nil
}

// rateLimited answers 429 and reports true when the caller's IP is over the
// limit for bucket.
func (h *Handler) rateLimited(w http.ResponseWriter, r *http.Request, bucket string) bool {
	if h.limiter == nil {
		return false
	}
	ip := clientIP(r)
	if h.limiter.IsRateLimited(r.Context(), bucket+":"+ip, h.cfg.RateLimitMax, h.cfg.RateLimitWindow) {
		h.logger.Warn("Rate limit exceeded", "ip", ip, "bucket", bucket)
		respondError(w, http.StatusTooManyRequests, "Too many requests")
		return true
	}
	return false
}

// upstreamFailed tells the visitor through a notification and answers 502.
func (h *Handler) upstreamFailed(w http.ResponseWriter, r *http.Request, msg string, err error) {
	h.logger.Error("Upstream call failed", "path", r.URL.Path, "error", err)
	if ws := workspace(r); ws != nil && msg != "" {
		ws.Notifications.Notify(msg, models.NotificationError)
	}
	if msg == "" {
		msg = "storefront service unavailable"
	}
	respondError(w, http.StatusBadGateway, msg)
}

func (h *Handler) Health(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func clientIP(r *http.Request) string {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}

func decodeJSON(w http.ResponseWriter, r *http.Request, dst any) error {
	return json.NewDecoder(http.MaxBytesReader(w, r.Body, 1<<20)).Decode(dst)
}

func respondJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		slog.Error("Failed to encode response", "error", err)
	}
}

func respondError(w http.ResponseWriter, status int, message string) {
	respondJSON(w, status, ErrorResponse{Error: message, Code: status})
}
