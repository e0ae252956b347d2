package cart

import (
	"sync"

	"github.com/shopspring/decimal"

	"storefront-bff/internal/models"
)

// Store serializes actions for one visitor's cart.
type Store struct {
	mu       sync.Mutex
	state    State
	onAction func(Action)
}

func NewStore() *Store {
	return &Store{state: State{Lines: []models.CartLine{}}}
}

// OnAction registers a hook invoked after every dispatch, outside the lock.
func (s *Store) OnAction(fn func(Action)) {
	s.mu.Lock()
	s.onAction = fn
	s.mu.Unlock()
}

func (s *Store) Dispatch(action Action) State {
	s.mu.Lock()
	s.state = Reduce(s.state, action)
	next := s.state
	hook := s.onAction
	s.mu.Unlock()

	if hook != nil {
		hook(action)
	}
	return next
}

func (s *Store) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

func (s *Store) Subtotal() decimal.Decimal {
	return s.State().Subtotal()
}

func (s *Store) Count() int {
	return s.State().Count()
}
