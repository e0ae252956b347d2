package cart

import (
	"sync"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"storefront-bff/internal/models"
)

func product(id string, price int64) models.Product {
	return models.Product{
		ID:       id,
		Name:     "Product " + id,
		Category: models.CategoryLamps,
		Price:    decimal.NewFromInt(price),
	}
}

func quantities(s State) map[string]int {
	out := map[string]int{}
	for _, line := range s.Lines {
		out[line.ID] = line.Quantity
	}
	return out
}

func TestReduce_AddItemCountsCalls(t *testing.T) {
	calls := []string{"a", "b", "a", "c", "a", "b"}

	state := State{}
	for _, id := range calls {
		state = Reduce(state, AddItem{Product: product(id, 1)})
	}

	want := map[string]int{"a": 3, "b": 2, "c": 1}
	if diff := cmp.Diff(want, quantities(state)); diff != "" {
		t.Errorf("quantities mismatch (-want +got):\n%s", diff)
	}
	ids := []string{}
	for _, line := range state.Lines {
		ids = append(ids, line.ID)
	}
	if diff := cmp.Diff([]string{"a", "b", "c"}, ids); diff != "" {
		t.Errorf("line order mismatch (-want +got):\n%s", diff)
	}
}

func TestReduce_UpdateQuantity(t *testing.T) {
	state := Reduce(State{}, AddItem{Product: product("a", 10)})
	state = Reduce(state, AddItem{Product: product("b", 5)})

	t.Run("sets quantity without reordering", func(t *testing.T) {
		next := Reduce(state, UpdateQuantity{ID: "a", Quantity: 250})
		assert.Equal(t, "a", next.Lines[0].ID)
		assert.Equal(t, 250, next.Lines[0].Quantity)
	})

	t.Run("zero removes line", func(t *testing.T) {
		next := Reduce(state, UpdateQuantity{ID: "a", Quantity: 0})
		require.Len(t, next.Lines, 1)
		assert.Equal(t, "b", next.Lines[0].ID)
	})

	t.Run("negative removes line", func(t *testing.T) {
		next := Reduce(state, UpdateQuantity{ID: "b", Quantity: -3})
		require.Len(t, next.Lines, 1)
		assert.Equal(t, "a", next.Lines[0].ID)
	})

	t.Run("unknown id is a no-op", func(t *testing.T) {
		next := Reduce(state, UpdateQuantity{ID: "zzz", Quantity: 4})
		if diff := cmp.Diff(state, next); diff != "" {
			t.Errorf("state changed (-want +got):\n%s", diff)
		}
	})
}

func TestReduce_RemoveAndClear(t *testing.T) {
	state := Reduce(State{}, AddItem{Product: product("a", 10)})

	assert.Equal(t, state, Reduce(state, RemoveItem{ID: "missing"}))
	assert.True(t, Reduce(state, RemoveItem{ID: "a"}).Empty())
	assert.True(t, Reduce(state, ClearCart{}).Empty())
}

func TestReduce_DoesNotMutateInput(t *testing.T) {
	before := Reduce(State{}, AddItem{Product: product("a", 10)})
	snapshot := quantities(before)

	_ = Reduce(before, AddItem{Product: product("a", 10)})
	_ = Reduce(before, UpdateQuantity{ID: "a", Quantity: 9})
	_ = Reduce(before, RemoveItem{ID: "a"})

	assert.Equal(t, snapshot, quantities(before))
}

func TestSubtotal(t *testing.T) {
	state := Reduce(State{}, AddItem{Product: product("A", 10)})
	state = Reduce(state, AddItem{Product: product("A", 10)})
	state = Reduce(state, AddItem{Product: product("B", 5)})

	assert.True(t, decimal.NewFromInt(25).Equal(state.Subtotal()), "got %s", state.Subtotal())
	assert.Equal(t, 3, state.Count())

	state = Reduce(state, UpdateQuantity{ID: "B", Quantity: 3})
	assert.True(t, decimal.NewFromInt(35).Equal(state.Subtotal()), "got %s", state.Subtotal())
}

func TestSubtotal_Fractional(t *testing.T) {
	p := product("x", 0)
	p.Price = decimal.RequireFromString("19.99")

	state := Reduce(State{}, AddItem{Product: p})
	state = Reduce(state, UpdateQuantity{ID: "x", Quantity: 3})

	assert.Equal(t, "59.97", state.Subtotal().StringFixed(2))
}

func TestStore_ConcurrentDispatch(t *testing.T) {
	store := NewStore()
	var seen int
	var mu sync.Mutex
	store.OnAction(func(Action) {
		mu.Lock()
		seen++
		mu.Unlock()
	})

	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			store.Dispatch(AddItem{Product: product("a", 2)})
		}()
	}
	wg.Wait()

	assert.Equal(t, 50, store.Count())
	assert.True(t, decimal.NewFromInt(100).Equal(store.Subtotal()))
	assert.Equal(t, 50, seen)
}
