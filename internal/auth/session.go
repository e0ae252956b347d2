package auth

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"storefront-bff/internal/logging"
	"storefront-bff/internal/models"
)

type Status string

const (
	StatusLoading       Status = "loading"
	StatusAuthenticated Status = "authenticated"
	StatusAnonymous     Status = "anonymous"
)

// TokenStore persists the auth token between visits.
type TokenStore interface {
	Load(ctx context.Context) (string, error)
	Save(ctx context.Context, token string) error
	Clear(ctx context.Context) error
}

// Authenticator is the part of the storefront API the session talks to.
type Authenticator interface {
	Login(ctx context.Context, email, password string) (*models.AuthResponse, error)
	VerifyGoogleToken(ctx context.Context, idToken string) (*models.AuthResponse, error)
	Me(ctx context.Context, token string) (*models.User, error)
}

// Snapshot is a consistent copy of the session state.
type Snapshot struct {
	Status Status       `json:"status"`
	User   *models.User `json:"user"`
}

func (s Snapshot) Authenticated() bool {
	return s.Status == StatusAuthenticated && s.User != nil
}

// Session holds one visitor's identity and token.
type Session struct {
	mu     sync.RWMutex
	status Status
	user   *models.User
	token  string

	store TokenStore
	api   Authenticator
	log   *slog.Logger
}

func NewSession(store TokenStore, api Authenticator) *Session {
	return &Session{
		status: StatusLoading,
		store:  store,
		api:    api,
		log:    logging.New("auth"),
	}
}

// Restore hydrates the session from the stored token. Any failure leaves the
// visitor anonymous with the stored token purged.
func (s *Session) Restore(ctx context.Context) {
	token, err := s.store.Load(ctx)
	if err != nil {
		s.log.Warn("Token load failed", "error", err)
		s.finishRestore(nil, "")
		return
	}
	if token == "" {
		s.finishRestore(nil, "")
		return
	}

	if expired(token, time.Now()) {
		s.log.Info("Stored token expired, discarding")
		s.purge(ctx)
		s.finishRestore(nil, "")
		return
	}

	user, err := s.api.Me(ctx, token)
	if err != nil {
		s.log.Warn("Session check failed", "error", err)
		s.purge(ctx)
		s.finishRestore(nil, "")
		return
	}
	s.finishRestore(user, token)
}

func (s *Session) finishRestore(user *models.User, token string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	// a login that finished first wins
	if s.status != StatusLoading {
		return
	}
	s.set(user, token)
}

func (s *Session) Login(ctx context.Context, email, password string) error {
	s.begin()
	resp, err := s.api.Login(ctx, email, password)
	return s.complete(ctx, resp, err, "Login failed.")
}

func (s *Session) LoginWithGoogle(ctx context.Context, idToken string) error {
	s.begin()
	resp, err := s.api.VerifyGoogleToken(ctx, idToken)
	return s.complete(ctx, resp, err, "Google Sign-In failed.")
}

// Logout forgets the user locally. The API keeps no server-side session.
func (s *Session) Logout(ctx context.Context) {
	s.mu.Lock()
	s.set(nil, "")
	s.mu.Unlock()
	s.purge(ctx)
}

// Token implements services.TokenSource.
func (s *Session) Token() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.token
}

// Unauthorized implements services.TokenSource: the API rejected the token.
func (s *Session) Unauthorized(ctx context.Context) {
	s.mu.Lock()
	if s.token == "" {
		s.mu.Unlock()
		return
	}
	s.set(nil, "")
	s.mu.Unlock()

	s.log.Info("Token rejected by API, signing out")
	s.purge(ctx)
}

func (s *Session) Snapshot() Snapshot {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return Snapshot{Status: s.status, User: s.user}
}

func (s *Session) begin() {
	s.mu.Lock()
	s.status = StatusLoading
	s.mu.Unlock()
}

func (s *Session) complete(ctx context.Context, resp *models.AuthResponse, err error, fallback string) error {
	if err == nil && (resp == nil || resp.User == nil || resp.Token == "") {
		err = errors.New(fallback)
	}
	if err != nil {
		s.mu.Lock()
		s.set(nil, "")
		s.mu.Unlock()
		s.purge(ctx)
		return loginError(err, fallback)
	}

	if saveErr := s.store.Save(ctx, resp.Token); saveErr != nil {
		s.log.Warn("Token save failed", "error", saveErr)
	}
	s.mu.Lock()
	s.set(resp.User, resp.Token)
	s.mu.Unlock()
	return nil
}

// set must be called with mu held.
func (s *Session) set(user *models.User, token string) {
	s.user = user
	s.token = token
	if user != nil {
		s.status = StatusAuthenticated
	} else {
		s.status = StatusAnonymous
	}
}

func (s *Session) purge(ctx context.Context) {
	if err := s.store.Clear(ctx); err != nil {
		s.log.Warn("Token purge failed", "error", err)
	}
}

// expired reports whether token is a JWT whose exp claim is already past.
// Tokens that do not parse are left for the API to judge.
func expired(token string, now time.Time) bool {
	claims := jwt.MapClaims{}
	if _, _, err := jwt.NewParser().ParseUnverified(token, claims); err != nil {
		return false
	}
	exp, err := claims.GetExpirationTime()
	if err != nil || exp == nil {
		return false
	}
	return !exp.After(now)
}
