package memory

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mstrand/vanir/internal/domain"
)

func seedProduct(t *testing.T, s *Store, id string, priceCents, stock int64) {
	t.Helper()
	err := s.UpsertProduct(context.Background(), domain.Product{
		ID:             id,
		Name:           "Product " + id,
		UnitPriceCents: priceCents,
		Stock:          stock,
		Available:      true,
	})
	require.NoError(t, err)
}

func testOrder(userID string, items ...domain.OrderItem) domain.Order {
	var total int64
	for _, it := range items {
		total += it.UnitPriceCents * it.Quantity
	}
	return domain.Order{
		ID:          "order-" + userID,
		OrderNumber: "ORD-20260828-TEST",
		UserID:      userID,
		Items:       items,
		TotalCents:  total,
		Status:      domain.OrderStatusPending,
		Delivery:    domain.DeliveryDetails{Name: "A", Email: "a@example.com"},
	}
}

func TestDecrementStock_RejectsWholeSetOnShortfall(t *testing.T) {
	ctx := context.Background()
	s := New()
	seedProduct(t, s, "prod-a", 1000, 5)
	seedProduct(t, s, "prod-b", 500, 0)

	err := s.DecrementStock(ctx, []domain.StockRequest{
		{ProductID: "prod-a", Quantity: 2},
		{ProductID: "prod-b", Quantity: 1},
	})

	var stockErr *domain.InsufficientStockError
	require.ErrorAs(t, err, &stockErr)
	require.Len(t, stockErr.Items, 1)
	assert.Equal(t, "prod-b", stockErr.Items[0].ProductID)
	assert.Equal(t, int64(0), stockErr.Items[0].Available)
	assert.Equal(t, int64(1), stockErr.Items[0].Requested)

	// The covered product must be untouched.
	stock, err := s.GetStock(ctx, []string{"prod-a", "prod-b"})
	require.NoError(t, err)
	assert.Equal(t, int64(5), stock["prod-a"])
	assert.Equal(t, int64(0), stock["prod-b"])
}

func TestDecrementStock_ReportsEveryShortLine(t *testing.T) {
	ctx := context.Background()
	s := New()
	seedProduct(t, s, "prod-a", 1000, 1)
	seedProduct(t, s, "prod-b", 500, 2)

	err := s.DecrementStock(ctx, []domain.StockRequest{
		{ProductID: "prod-b", Quantity: 5},
		{ProductID: "prod-a", Quantity: 3},
	})

	var stockErr *domain.InsufficientStockError
	require.ErrorAs(t, err, &stockErr)
	require.Len(t, stockErr.Items, 2)
	assert.Equal(t, "prod-a", stockErr.Items[0].ProductID)
	assert.Equal(t, "prod-b", stockErr.Items[1].ProductID)
}

func TestAddCartLine_MergesSameProductVariant(t *testing.T) {
	ctx := context.Background()
	s := New()

	first, err := s.AddCartLine(ctx, "user-1", "prod-a", "large", 2)
	require.NoError(t, err)
	second, err := s.AddCartLine(ctx, "user-1", "prod-a", "large", 3)
	require.NoError(t, err)

	assert.Equal(t, first.ID, second.ID)
	assert.Equal(t, int64(5), second.Quantity)

	// A different variant gets its own line.
	other, err := s.AddCartLine(ctx, "user-1", "prod-a", "small", 1)
	require.NoError(t, err)
	assert.NotEqual(t, first.ID, other.ID)

	cart, err := s.GetCart(ctx, "user-1")
	require.NoError(t, err)
	assert.Len(t, cart.Lines, 2)
}

func TestDeleteCartLine_IsIdempotent(t *testing.T) {
	ctx := context.Background()
	s := New()

	line, err := s.AddCartLine(ctx, "user-1", "prod-a", "", 1)
	require.NoError(t, err)

	removed, err := s.DeleteCartLine(ctx, "user-1", line.ID)
	require.NoError(t, err)
	assert.True(t, removed)

	removed, err = s.DeleteCartLine(ctx, "user-1", line.ID)
	require.NoError(t, err)
	assert.False(t, removed)
}

func TestCompleteCheckout_AppliesAllEffects(t *testing.T) {
	ctx := context.Background()
	s := New()
	seedProduct(t, s, "prod-a", 1000, 5)
	seedProduct(t, s, "prod-b", 500, 1)

	_, err := s.AddCartLine(ctx, "user-1", "prod-a", "", 2)
	require.NoError(t, err)
	_, err = s.AddCartLine(ctx, "user-1", "prod-b", "", 1)
	require.NoError(t, err)

	order := testOrder("user-1",
		domain.OrderItem{ProductID: "prod-a", ProductName: "A", Quantity: 2, UnitPriceCents: 1000},
		domain.OrderItem{ProductID: "prod-b", ProductName: "B", Quantity: 1, UnitPriceCents: 500},
	)
	committed, err := s.CompleteCheckout(ctx, order)
	require.NoError(t, err)
	assert.Equal(t, int64(2500), committed.TotalCents)

	stock, err := s.GetStock(ctx, []string{"prod-a", "prod-b"})
	require.NoError(t, err)
	assert.Equal(t, int64(3), stock["prod-a"])
	assert.Equal(t, int64(0), stock["prod-b"])

	cart, err := s.GetCart(ctx, "user-1")
	require.NoError(t, err)
	assert.Empty(t, cart.Lines)

	stored, err := s.GetOrder(ctx, order.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.OrderStatusPending, stored.Status)
	assert.Len(t, stored.Items, 2)
}

func TestCompleteCheckout_ShortfallLeavesEverythingUntouched(t *testing.T) {
	ctx := context.Background()
	s := New()
	seedProduct(t, s, "prod-a", 1000, 5)
	seedProduct(t, s, "prod-b", 500, 0)

	_, err := s.AddCartLine(ctx, "user-1", "prod-a", "", 2)
	require.NoError(t, err)
	_, err = s.AddCartLine(ctx, "user-1", "prod-b", "", 1)
	require.NoError(t, err)

	order := testOrder("user-1",
		domain.OrderItem{ProductID: "prod-a", ProductName: "A", Quantity: 2, UnitPriceCents: 1000},
		domain.OrderItem{ProductID: "prod-b", ProductName: "B", Quantity: 1, UnitPriceCents: 500},
	)
	_, err = s.CompleteCheckout(ctx, order)

	var stockErr *domain.InsufficientStockError
	require.ErrorAs(t, err, &stockErr)

	stock, err := s.GetStock(ctx, []string{"prod-a", "prod-b"})
	require.NoError(t, err)
	assert.Equal(t, int64(5), stock["prod-a"])

	cart, err := s.GetCart(ctx, "user-1")
	require.NoError(t, err)
	assert.Len(t, cart.Lines, 2)

	_, err = s.GetOrder(ctx, order.ID)
	assert.ErrorIs(t, err, domain.ErrOrderNotFound)
}

func TestCompleteCheckout_ConcurrentRaceHasOneWinner(t *testing.T) {
	ctx := context.Background()
	s := New()

	const quantity = int64(3)
	// Stock covers one full checkout but not two.
	seedProduct(t, s, "prod-a", 1000, 2*quantity-1)

	item := domain.OrderItem{ProductID: "prod-a", ProductName: "A", Quantity: quantity, UnitPriceCents: 1000}

	var wg sync.WaitGroup
	results := make([]error, 2)
	for i := range results {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			order := testOrder("user-"+string(rune('a'+i)), item)
			order.ID = order.ID + "-race"
			_, results[i] = s.CompleteCheckout(ctx, order)
		}(i)
	}
	wg.Wait()

	var wins, losses int
	for _, err := range results {
		if err == nil {
			wins++
			continue
		}
		var stockErr *domain.InsufficientStockError
		require.ErrorAs(t, err, &stockErr)
		losses++
	}
	assert.Equal(t, 1, wins)
	assert.Equal(t, 1, losses)

	stock, err := s.GetStock(ctx, []string{"prod-a"})
	require.NoError(t, err)
	assert.Equal(t, quantity-1, stock["prod-a"])
}

func TestUpdateOrderStatus_GuardsExpectedStatus(t *testing.T) {
	ctx := context.Background()
	s := New()
	seedProduct(t, s, "prod-a", 1000, 0)

	order := testOrder("user-1",
		domain.OrderItem{ProductID: "prod-a", ProductName: "A", Quantity: 2, UnitPriceCents: 1000})
	require.NoError(t, s.InsertOrder(ctx, order))

	// Stale expectation loses.
	err := s.UpdateOrderStatus(ctx, order.ID, domain.OrderStatusConfirmed, domain.OrderStatusShipped, nil)
	assert.ErrorIs(t, err, domain.ErrInvalidStatusTransition)

	// Cancellation returns the reserved stock.
	err = s.UpdateOrderStatus(ctx, order.ID, domain.OrderStatusPending, domain.OrderStatusCancelled,
		[]domain.StockRequest{{ProductID: "prod-a", Quantity: 2}})
	require.NoError(t, err)

	stock, err := s.GetStock(ctx, []string{"prod-a"})
	require.NoError(t, err)
	assert.Equal(t, int64(2), stock["prod-a"])

	updated, err := s.GetOrder(ctx, order.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.OrderStatusCancelled, updated.Status)
}

func TestUpdateOrderStatus_UnknownOrder(t *testing.T) {
	s := New()
	err := s.UpdateOrderStatus(context.Background(), "missing", domain.OrderStatusPending, domain.OrderStatusConfirmed, nil)
	assert.True(t, errors.Is(err, domain.ErrOrderNotFound))
}
