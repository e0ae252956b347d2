// Package cart holds the visitor's cart as a pure reducer over tagged actions.
package cart

import (
	"github.com/shopspring/decimal"

	"storefront-bff/internal/models"
)

// Action is one of AddItem, UpdateQuantity, RemoveItem or ClearCart.
type Action interface {
	Kind() string
}

type AddItem struct {
	Product models.Product
}

type UpdateQuantity struct {
	ID       string
	Quantity int
}

type RemoveItem struct {
	ID string
}

type ClearCart struct{}

func (AddItem) Kind() string        { return "ADD_ITEM" }
func (UpdateQuantity) Kind() string { return "UPDATE_QUANTITY" }
func (RemoveItem) Kind() string     { return "REMOVE_ITEM" }
func (ClearCart) Kind() string      { return "CLEAR_CART" }

// State lists cart lines in the order they were first added.
type State struct {
	Lines []models.CartLine `json:"items"`
}

func (s State) Subtotal() decimal.Decimal {
	total := decimal.Zero
	for _, line := range s.Lines {
		total = total.Add(line.LineTotal())
	}
	return total
}

// Count is the total quantity across lines.
func (s State) Count() int {
	n := 0
	for _, line := range s.Lines {
		n += line.Quantity
	}
	return n
}

func (s State) Empty() bool {
	return len(s.Lines) == 0
}

func (s State) indexOf(id string) int {
	for i, line := range s.Lines {
		if line.ID == id {
			return i
		}
	}
	return -1
}

// Reduce applies an action and returns the next state. The input state is
// never modified; unknown ids and unknown actions leave the state as is.
func Reduce(state State, action Action) State {
	switch a := action.(type) {
	case AddItem:
		lines := clone(state.Lines)
		if i := state.indexOf(a.Product.ID); i >= 0 {
			lines[i].Quantity++
			return State{Lines: lines}
		}
		return State{Lines: append(lines, models.CartLine{Product: a.Product, Quantity: 1})}

	case UpdateQuantity:
		i := state.indexOf(a.ID)
		if i < 0 {
			return state
		}
		if a.Quantity <= 0 {
			return Reduce(state, RemoveItem{ID: a.ID})
		}
		lines := clone(state.Lines)
		lines[i].Quantity = a.Quantity
		return State{Lines: lines}

	case RemoveItem:
		i := state.indexOf(a.ID)
		if i < 0 {
			return state
		}
		lines := make([]models.CartLine, 0, len(state.Lines)-1)
		lines = append(lines, state.Lines[:i]...)
		lines = append(lines, state.Lines[i+1:]...)
		return State{Lines: lines}

	case ClearCart:
		return State{Lines: []models.CartLine{}}
	}
	return state
}

func clone(lines []models.CartLine) []models.CartLine {
	out := make([]models.CartLine, len(lines), len(lines)+1)
	copy(out, lines)
	return out
}
