package visitor

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"storefront-bff/internal/auth"
	"storefront-bff/internal/cart"
	"storefront-bff/internal/checkout"
	"storefront-bff/internal/config"
	"storefront-bff/internal/logging"
	"storefront-bff/internal/notify"
	"storefront-bff/internal/services"
	"storefront-bff/internal/telemetry"
)

// Workspace is everything the BFF keeps for one visitor.
type Workspace struct {
	ID            string
	Cart          *cart.Store
	Session       *auth.Session
	Notifications *notify.Queue
	Client        *services.ServiceClient

	mu       sync.Mutex
	flow     *checkout.Flow
	lastSeen time.Time
}

// Checkout returns the visitor's checkout flow, starting one if needed.
func (w *Workspace) Checkout() *checkout.Flow {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.flow == nil {
		w.flow = checkout.NewFlow(w.Cart, w.Client, w.Notifications)
	}
	return w.flow
}

// RestartCheckout abandons the current flow and starts a fresh one.
func (w *Workspace) RestartCheckout() *checkout.Flow {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.flow != nil {
		w.flow.Close()
	}
	w.flow = checkout.NewFlow(w.Cart, w.Client, w.Notifications)
	return w.flow
}

// AbandonCheckout closes the current flow, if any.
func (w *Workspace) AbandonCheckout() {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.flow != nil {
		w.flow.Close()
		w.flow = nil
	}
}

func (w *Workspace) touch(now time.Time) {
	w.mu.Lock()
	w.lastSeen = now
	w.mu.Unlock()
}

func (w *Workspace) idleSince(now time.Time) time.Duration {
	w.mu.Lock()
	defer w.mu.Unlock()
	return now.Sub(w.lastSeen)
}

func (w *Workspace) close() {
	w.AbandonCheckout()
	w.Notifications.Close()
}

// TokenStores hands out the token store for a visitor id.
type TokenStores func(id string) auth.TokenStore

type Registry struct {
	mu       sync.Mutex
	visitors map[string]*Workspace

	svc       *services.ServiceClient
	tokens    TokenStores
	notifyTTL time.Duration
	idleTTL   time.Duration
	now       func() time.Time
	logger    *slog.Logger
}

func NewRegistry(cfg *config.Config, svc *services.ServiceClient, tokens TokenStores) *Registry {
	if tokens == nil {
		tokens = func(string) auth.TokenStore { return &auth.MemoryTokenStore{} }
	}
	return &Registry{
		visitors:  make(map[string]*Workspace),
		svc:       svc,
		tokens:    tokens,
		notifyTTL: cfg.NotificationTTL,
		idleTTL:   cfg.VisitorIdleTTL,
		now:       time.Now,
		logger:    logging.New("visitor"),
	}
}

// Resolve returns the workspace for id. An unknown but well-formed id gets a
// new workspace under the same id so a persisted token can be restored; an
// empty or malformed id gets a fresh one.
func (r *Registry) Resolve(ctx context.Context, id string) *Workspace {
	now := r.now()

	r.mu.Lock()
	if ws, ok := r.visitors[id]; ok {
		r.mu.Unlock()
		ws.touch(now)
		return ws
	}
	if _, err := uuid.Parse(id); err != nil {
		id = uuid.NewString()
	}
	ws := r.newWorkspace(id, now)
	r.visitors[id] = ws
	n := len(r.visitors)
	r.mu.Unlock()

	telemetry.SetActiveVisitors(n)
	r.logger.Debug("Visitor workspace created", "visitor_id", id)

	ws.Session.Restore(ctx)
	return ws
}

func (r *Registry) newWorkspace(id string, now time.Time) *Workspace {
	store := cart.NewStore()
	store.OnAction(func(a cart.Action) { telemetry.CartAction(a.Kind()) })

	session := auth.NewSession(r.tokens(id), r.svc)
	return &Workspace{
		ID:            id,
		Cart:          store,
		Session:       session,
		Notifications: notify.NewQueue(r.notifyTTL),
		Client:        r.svc.ForVisitor(session),
		lastSeen:      now,
	}
}

func (r *Registry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.visitors)
}

// Sweep drops workspaces idle for longer than the idle TTL and returns how
// many went. Persisted tokens stay, so a returning visitor is restored.
func (r *Registry) Sweep(now time.Time) int {
	if r.idleTTL <= 0 {
		return 0
	}

	var stale []*Workspace
	r.mu.Lock()
	for id, ws := range r.visitors {
		if ws.idleSince(now) > r.idleTTL {
			stale = append(stale, ws)
			delete(r.visitors, id)
		}
	}
	n := len(r.visitors)
	r.mu.Unlock()

	for _, ws := range stale {
		ws.close()
	}
	if len(stale) > 0 {
		r.logger.Info("Swept idle visitors", "count", len(stale), "remaining", n)
	}
	telemetry.SetActiveVisitors(n)
	return len(stale)
}

// Janitor sweeps every interval until ctx is done.
func (r *Registry) Janitor(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case t := <-ticker.C:
			r.Sweep(t)
		}
	}
}
