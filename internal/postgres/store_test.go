package postgres

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"sync"
	"testing"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mstrand/vanir/internal"
	"github.com/mstrand/vanir/internal/domain"
)

// newTestStore connects to the database named by TEST_DATABASE_URL, running
// migrations first. Tests are skipped when the variable is unset so the suite
// passes without a database.
func newTestStore(t *testing.T) *Store {
	t.Helper()
	url := os.Getenv("TEST_DATABASE_URL")
	if url == "" {
		t.Skip("TEST_DATABASE_URL not set")
	}

	sqlDB, err := sql.Open("pgx", url)
	require.NoError(t, err)
	t.Cleanup(func() { sqlDB.Close() })
	require.NoError(t, sqlDB.Ping())
	require.NoError(t, internal.RunMigrations(sqlDB))

	pool, err := pgxpool.New(context.Background(), url)
	require.NoError(t, err)
	t.Cleanup(pool.Close)

	return New(pool)
}

func seedTestProduct(t *testing.T, s *Store, priceCents, stock int64) string {
	t.Helper()
	id := "prod-" + uuid.New().String()
	err := s.UpsertProduct(context.Background(), domain.Product{
		ID:             id,
		Name:           "Test Product",
		UnitPriceCents: priceCents,
		Stock:          stock,
		Available:      true,
	})
	require.NoError(t, err)
	return id
}

func newTestUser() string {
	return "user-" + uuid.New().String()
}

func TestPostgresCompleteCheckout(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)

	user := newTestUser()
	prodA := seedTestProduct(t, s, 1000, 5)
	prodB := seedTestProduct(t, s, 500, 1)

	_, err := s.AddCartLine(ctx, user, prodA, "", 2)
	require.NoError(t, err)
	_, err = s.AddCartLine(ctx, user, prodB, "", 1)
	require.NoError(t, err)

	order := domain.Order{
		ID:          uuid.New().String(),
		OrderNumber: fmt.Sprintf("ORD-TEST-%s", uuid.New().String()[:8]),
		UserID:      user,
		Items: []domain.OrderItem{
			{ProductID: prodA, ProductName: "A", Quantity: 2, UnitPriceCents: 1000},
			{ProductID: prodB, ProductName: "B", Quantity: 1, UnitPriceCents: 500},
		},
		TotalCents: 2500,
		Status:     domain.OrderStatusPending,
		Delivery:   domain.DeliveryDetails{Name: "A", Email: "a@example.com", AddressLine1: "x", City: "y", PostalCode: "z", Country: "NO"},
	}
	committed, err := s.CompleteCheckout(ctx, order)
	require.NoError(t, err)
	assert.False(t, committed.CreatedAt.IsZero())

	stock, err := s.GetStock(ctx, []string{prodA, prodB})
	require.NoError(t, err)
	assert.Equal(t, int64(3), stock[prodA])
	assert.Equal(t, int64(0), stock[prodB])

	cart, err := s.GetCart(ctx, user)
	require.NoError(t, err)
	assert.Empty(t, cart.Lines)

	stored, err := s.GetOrder(ctx, order.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(2500), stored.TotalCents)
	assert.Len(t, stored.Items, 2)
	assert.Equal(t, "a@example.com", stored.Delivery.Email)
}

func TestPostgresCompleteCheckout_ShortfallRollsBack(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)

	user := newTestUser()
	prodA := seedTestProduct(t, s, 1000, 5)
	prodB := seedTestProduct(t, s, 500, 0)

	_, err := s.AddCartLine(ctx, user, prodA, "", 2)
	require.NoError(t, err)
	_, err = s.AddCartLine(ctx, user, prodB, "", 1)
	require.NoError(t, err)

	order := domain.Order{
		ID:          uuid.New().String(),
		OrderNumber: fmt.Sprintf("ORD-TEST-%s", uuid.New().String()[:8]),
		UserID:      user,
		Items: []domain.OrderItem{
			{ProductID: prodA, ProductName: "A", Quantity: 2, UnitPriceCents: 1000},
			{ProductID: prodB, ProductName: "B", Quantity: 1, UnitPriceCents: 500},
		},
		TotalCents: 2500,
		Status:     domain.OrderStatusPending,
		Delivery:   domain.DeliveryDetails{Name: "A", Email: "a@example.com"},
	}
	_, err = s.CompleteCheckout(ctx, order)

	var stockErr *domain.InsufficientStockError
	require.ErrorAs(t, err, &stockErr)
	require.Len(t, stockErr.Items, 1)
	assert.Equal(t, prodB, stockErr.Items[0].ProductID)

	// The transaction rolled back: stock, cart and orders untouched.
	stock, err := s.GetStock(ctx, []string{prodA})
	require.NoError(t, err)
	assert.Equal(t, int64(5), stock[prodA])

	cart, err := s.GetCart(ctx, user)
	require.NoError(t, err)
	assert.Len(t, cart.Lines, 2)

	_, err = s.GetOrder(ctx, order.ID)
	assert.ErrorIs(t, err, domain.ErrOrderNotFound)
}

func TestPostgresDecrementStock_ConcurrentOneWinner(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)

	const quantity = int64(3)
	prod := seedTestProduct(t, s, 1000, 2*quantity-1)

	var wg sync.WaitGroup
	results := make([]error, 2)
	for i := range results {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			results[i] = s.DecrementStock(ctx, []domain.StockRequest{{ProductID: prod, Quantity: quantity}})
		}(i)
	}
	wg.Wait()

	var wins int
	for _, err := range results {
		if err == nil {
			wins++
			continue
		}
		var stockErr *domain.InsufficientStockError
		require.ErrorAs(t, err, &stockErr)
	}
	assert.Equal(t, 1, wins)

	stock, err := s.GetStock(ctx, []string{prod})
	require.NoError(t, err)
	assert.Equal(t, quantity-1, stock[prod])
}

func TestPostgresUpdateOrderStatus(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)

	prod := seedTestProduct(t, s, 1000, 0)
	order := domain.Order{
		ID:          uuid.New().String(),
		OrderNumber: fmt.Sprintf("ORD-TEST-%s", uuid.New().String()[:8]),
		UserID:      newTestUser(),
		Items: []domain.OrderItem{
			{ProductID: prod, ProductName: "A", Quantity: 2, UnitPriceCents: 1000},
		},
		TotalCents: 2000,
		Status:     domain.OrderStatusPending,
		Delivery:   domain.DeliveryDetails{Name: "A", Email: "a@example.com"},
	}
	require.NoError(t, s.InsertOrder(ctx, order))

	// Guarded transition with a stale expectation fails.
	err := s.UpdateOrderStatus(ctx, order.ID, domain.OrderStatusConfirmed, domain.OrderStatusShipped, nil)
	assert.ErrorIs(t, err, domain.ErrInvalidStatusTransition)

	// Cancellation restocks in the same transaction.
	err = s.UpdateOrderStatus(ctx, order.ID, domain.OrderStatusPending, domain.OrderStatusCancelled,
		[]domain.StockRequest{{ProductID: prod, Quantity: 2}})
	require.NoError(t, err)

	stock, err := s.GetStock(ctx, []string{prod})
	require.NoError(t, err)
	assert.Equal(t, int64(2), stock[prod])
}
