package cart

import (
	"math/rand"
	"sync"
	"testing"

	"github.com/fjod/go_pos/pos-service/internal/domain"
	"github.com/fjod/go_pos/pos-service/internal/ledger"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func product(id, name, price string) domain.Product {
	p := domain.Product{ID: domain.ProductID(id), ModelName: name}
	if price != "" {
		d := decimal.RequireFromString(price)
		p.SKUs = []domain.SKU{{SalePrice: &d}}
	}
	return p
}

func setupCart(t *testing.T, stock map[domain.ProductID]int) *Cart {
	t.Helper()
	l := ledger.New("42")
	for id, q := range stock {
		l.Set(id, q)
	}
	return New(l)
}

func assertConserved(t *testing.T, c *Cart, snapshot map[domain.ProductID]int) {
	t.Helper()
	for id, q := range snapshot {
		assert.Equal(t, q, c.Reserved(id)+c.Available(id), "product %s", id)
		assert.LessOrEqual(t, c.Reserved(id), q)
		assert.GreaterOrEqual(t, c.Available(id), 0)
	}
}

func TestCart_StartsEmpty(t *testing.T) {
	c := setupCart(t, map[domain.ProductID]int{"a": 2})
	assert.Equal(t, StateEmpty, c.State())
	assert.Equal(t, "42", c.StoreID())
	assert.Empty(t, c.Items())
	assert.True(t, c.Total().IsZero())
}

// A sale of two units with three in stock.
func TestCart_AddTwoOfThree(t *testing.T) {
	stock := map[domain.ProductID]int{"shoeA": 3}
	c := setupCart(t, stock)
	a := product("shoeA", "Runner", "100")

	require.NoError(t, c.AddItem(a))
	require.NoError(t, c.AdjustQuantity("shoeA", 1))

	assert.Equal(t, StateBuilding, c.State())
	assert.Equal(t, 2, c.Reserved("shoeA"))
	assert.Equal(t, 1, c.Available("shoeA"))
	assert.True(t, decimal.NewFromInt(200).Equal(c.Total()))
	assertConserved(t, c, stock)
}

func TestCart_OutOfStock(t *testing.T) {
	stock := map[domain.ProductID]int{"shoeB": 0, "shoeC": 1}
	c := setupCart(t, stock)

	err := c.AddItem(product("shoeB", "Bota", "50"))
	assert.ErrorIs(t, err, ErrOutOfStock)
	assert.Equal(t, StateEmpty, c.State())
	assert.Equal(t, 0, c.Available("shoeB"))

	// not in the ledger at all
	assert.ErrorIs(t, c.AddItem(product("ghost", "Ghost", "1")), ErrOutOfStock)

	require.NoError(t, c.AddItem(product("shoeC", "Sandalia", "10")))
	assert.ErrorIs(t, c.AddItem(product("shoeC", "Sandalia", "10")), ErrOutOfStock)
	assert.ErrorIs(t, c.AdjustQuantity("shoeC", 1), ErrOutOfStock)
	assert.Equal(t, 1, c.Reserved("shoeC"))
	assertConserved(t, c, stock)
}

func TestCart_AddExistingIncrements(t *testing.T) {
	stock := map[domain.ProductID]int{"a": 5}
	c := setupCart(t, stock)
	a := product("a", "Runner", "10")

	require.NoError(t, c.AddItem(a))
	require.NoError(t, c.AddItem(a))

	items := c.Items()
	require.Len(t, items, 1)
	assert.Equal(t, 2, items[0].Quantity)
	assertConserved(t, c, stock)
}

func TestCart_AdjustQuantity(t *testing.T) {
	stock := map[domain.ProductID]int{"a": 2}
	c := setupCart(t, stock)
	require.NoError(t, c.AddItem(product("a", "Runner", "10")))

	assert.ErrorIs(t, c.AdjustQuantity("a", 2), ErrInvalidDelta)
	assert.ErrorIs(t, c.AdjustQuantity("a", 0), ErrInvalidDelta)
	assert.ErrorIs(t, c.AdjustQuantity("b", 1), ErrItemNotFound)

	require.NoError(t, c.AdjustQuantity("a", -1))
	assert.Equal(t, StateEmpty, c.State())
	assert.Equal(t, 2, c.Available("a"))
	assertConserved(t, c, stock)
}

func TestCart_RemoveItem(t *testing.T) {
	stock := map[domain.ProductID]int{"a": 4, "b": 1}
	c := setupCart(t, stock)
	require.NoError(t, c.AddItem(product("a", "Runner", "10")))
	require.NoError(t, c.AdjustQuantity("a", 1))
	require.NoError(t, c.AddItem(product("b", "Bota", "20")))

	require.NoError(t, c.RemoveItem("a"))
	assert.Equal(t, 4, c.Available("a"))
	assert.ErrorIs(t, c.RemoveItem("a"), ErrItemNotFound)

	items := c.Items()
	require.Len(t, items, 1)
	assert.Equal(t, domain.ProductID("b"), items[0].ProductID)
	assertConserved(t, c, stock)

	// the released units can be sold again, and no more than that
	require.NoError(t, c.AddItem(product("a", "Runner", "10")))
	for i := 0; i < 3; i++ {
		require.NoError(t, c.AdjustQuantity("a", 1))
	}
	assert.Equal(t, 4, c.Reserved("a"))
	assert.Equal(t, 0, c.Available("a"))
	assert.ErrorIs(t, c.AddItem(product("a", "Runner", "10")), ErrOutOfStock)
	assert.ErrorIs(t, c.AdjustQuantity("a", 1), ErrOutOfStock)
	assert.Equal(t, 4, c.Reserved("a"))
	assertConserved(t, c, stock)
}

func TestCart_ItemsKeepInsertionOrder(t *testing.T) {
	c := setupCart(t, map[domain.ProductID]int{"z": 1, "a": 1, "m": 1})
	for _, id := range []string{"z", "a", "m"} {
		require.NoError(t, c.AddItem(product(id, id, "1")))
	}

	var ids []domain.ProductID
	for _, it := range c.Items() {
		ids = append(ids, it.ProductID)
	}
	assert.Equal(t, []domain.ProductID{"z", "a", "m"}, ids)
}

// Adding then clearing restores the view exactly.
func TestCart_ClearRestoresView(t *testing.T) {
	stock := map[domain.ProductID]int{"shoeA": 3}
	c := setupCart(t, stock)
	before := c.View()

	require.NoError(t, c.AddItem(product("shoeA", "Runner", "100")))
	require.NoError(t, c.Clear())

	assert.Equal(t, before, c.View())
	assert.Equal(t, StateEmpty, c.State())
}

func TestCart_ItemWithoutPrice(t *testing.T) {
	c := setupCart(t, map[domain.ProductID]int{"a": 1})
	require.NoError(t, c.AddItem(product("a", "Sin precio", "")))

	items := c.Items()
	require.Len(t, items, 1)
	assert.Nil(t, items[0].UnitPrice)
	assert.True(t, c.Total().IsZero())
}

func TestCart_FinalizingBlocksMutations(t *testing.T) {
	stock := map[domain.ProductID]int{"a": 3}
	c := setupCart(t, stock)
	a := product("a", "Runner", "10")
	require.NoError(t, c.AddItem(a))

	items, err := c.BeginFinalize()
	require.NoError(t, err)
	require.Len(t, items, 1)
	assert.Equal(t, StateFinalizing, c.State())

	assert.ErrorIs(t, c.AddItem(a), ErrFinalizing)
	assert.ErrorIs(t, c.AdjustQuantity("a", 1), ErrFinalizing)
	assert.ErrorIs(t, c.RemoveItem("a"), ErrFinalizing)
	assert.ErrorIs(t, c.Clear(), ErrFinalizing)
	_, err = c.BeginFinalize()
	assert.ErrorIs(t, err, ErrFinalizing)

	c.Abort()
	assert.Equal(t, StateBuilding, c.State())
	assert.Equal(t, 1, c.Reserved("a"))
	assertConserved(t, c, stock)
}

func TestCart_BeginFinalizeEmpty(t *testing.T) {
	c := setupCart(t, map[domain.ProductID]int{"a": 1})
	_, err := c.BeginFinalize()
	assert.ErrorIs(t, err, ErrEmpty)
	assert.Equal(t, StateEmpty, c.State())
}

func TestCart_CommitStartsOver(t *testing.T) {
	c := setupCart(t, map[domain.ProductID]int{"a": 3})
	require.NoError(t, c.AddItem(product("a", "Runner", "10")))
	_, err := c.BeginFinalize()
	require.NoError(t, err)

	after := ledger.New("42")
	after.Set("a", 2)
	c.Commit(after)

	assert.Equal(t, StateEmpty, c.State())
	assert.Equal(t, 2, c.Available("a"))
	assert.Empty(t, c.Items())
}

func TestCart_Rebase(t *testing.T) {
	c := setupCart(t, map[domain.ProductID]int{"a": 1})

	edited := ledger.New("42")
	edited.Set("a", 9)
	require.NoError(t, c.Rebase(edited))
	assert.Equal(t, 9, c.Available("a"))

	require.NoError(t, c.AddItem(product("a", "Runner", "1")))
	assert.ErrorIs(t, c.Rebase(edited), ErrNotEmpty)
}

func TestCart_SnapshotIsCopied(t *testing.T) {
	l := ledger.New("1")
	l.Set("a", 2)
	c := New(l)

	require.NoError(t, c.AddItem(product("a", "Runner", "1")))
	assert.Equal(t, 2, l.Get("a"))
}

// Random operation sequences never break reserved + available == snapshot.
func TestCart_ConservationUnderRandomOps(t *testing.T) {
	stock := map[domain.ProductID]int{"a": 0, "b": 1, "c": 3, "d": 10}
	ids := []domain.ProductID{"a", "b", "c", "d"}
	rng := rand.New(rand.NewSource(7))

	for round := 0; round < 50; round++ {
		c := setupCart(t, stock)
		for step := 0; step < 200; step++ {
			id := ids[rng.Intn(len(ids))]
			switch rng.Intn(5) {
			case 0, 1:
				_ = c.AddItem(product(string(id), string(id), "5"))
			case 2:
				_ = c.AdjustQuantity(id, []int{-1, 1}[rng.Intn(2)])
			case 3:
				_ = c.RemoveItem(id)
			case 4:
				if rng.Intn(10) == 0 {
					_ = c.Clear()
				}
			}
		}
		assertConserved(t, c, stock)
	}
}

func TestCart_ConcurrentAdds(t *testing.T) {
	stock := map[domain.ProductID]int{"a": 50}
	c := setupCart(t, stock)
	a := product("a", "Runner", "1")

	var wg sync.WaitGroup
	var mu sync.Mutex
	added := 0
	for i := 0; i < 80; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if c.AddItem(a) == nil {
				mu.Lock()
				added++
				mu.Unlock()
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, 50, added)
	assert.Equal(t, 50, c.Reserved("a"))
	assert.Equal(t, 0, c.Available("a"))
}
