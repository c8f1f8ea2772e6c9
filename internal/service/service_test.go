package service

import (
	"context"
	"log/slog"
	"sync"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/require"

	"github.com/mstrand/vanir/internal/domain"
	"github.com/mstrand/vanir/internal/memory"
	"github.com/mstrand/vanir/internal/notify"
	"github.com/mstrand/vanir/internal/store"
	"github.com/mstrand/vanir/internal/telemetry"
)

// testDeps bundles a fully wired service stack over the in-memory store.
type testDeps struct {
	store     store.Store
	mem       *memory.Store
	inventory *InventoryService
	cart      *CartService
	orders    *OrderService
	checkout  *CheckoutService
	events    *capturingPublisher
}

// newTestDeps wires the stack over a fresh memory store.
func newTestDeps(t *testing.T) *testDeps {
	return newTestDepsWith(t, nil)
}

// newTestDepsWith lets a test interpose a wrapper (fault injection, call
// counting) between the services and the memory store.
func newTestDepsWith(t *testing.T, wrap func(store.Store) store.Store) *testDeps {
	t.Helper()
	mem := memory.New()
	var st store.Store = mem
	if wrap != nil {
		st = wrap(mem)
	}
	logger := slog.New(slog.DiscardHandler)
	metrics := telemetry.NewMetrics("test", prometheus.NewRegistry())
	events := &capturingPublisher{}

	inventory := NewInventoryService(st, logger)
	cart := NewCartService(st, logger, metrics)
	orders := NewOrderService(st, logger, metrics)
	checkout := NewCheckoutService(st, cart, inventory, orders, events, logger, metrics)

	return &testDeps{
		store:     st,
		mem:       mem,
		inventory: inventory,
		cart:      cart,
		orders:    orders,
		checkout:  checkout,
		events:    events,
	}
}

func (d *testDeps) seedProduct(t *testing.T, id string, priceCents, stock int64, available bool) {
	t.Helper()
	err := d.mem.UpsertProduct(context.Background(), domain.Product{
		ID:             id,
		Name:           "Product " + id,
		UnitPriceCents: priceCents,
		Stock:          stock,
		Available:      available,
	})
	require.NoError(t, err)
}

func validDelivery() domain.DeliveryDetails {
	return domain.DeliveryDetails{
		Name:         "Astrid Larsen",
		Email:        "astrid@example.com",
		AddressLine1: "Storgata 1",
		City:         "Oslo",
		PostalCode:   "0155",
		Country:      "NO",
	}
}

// capturingPublisher records notifications for assertions.
type capturingPublisher struct {
	mu             sync.Mutex
	inventoryCalls [][]string
	cartCalls      []string
}

func (p *capturingPublisher) InventoryChanged(ctx context.Context, productIDs []string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.inventoryCalls = append(p.inventoryCalls, productIDs)
}

func (p *capturingPublisher) CartCleared(ctx context.Context, userID string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.cartCalls = append(p.cartCalls, userID)
}

var _ notify.Publisher = (*capturingPublisher)(nil)

// flakyStore wraps a real store and injects failures on read paths plus
// counts commit calls. Only the overridden methods differ from the inner
// store.
type flakyStore struct {
	store.Store

	mu            sync.Mutex
	failGetCart   int
	failGetStock  int
	completeCalls int
	completeErr   error
}

func (f *flakyStore) GetCart(ctx context.Context, userID string) (domain.Cart, error) {
	f.mu.Lock()
	fail := f.failGetCart > 0
	if fail {
		f.failGetCart--
	}
	f.mu.Unlock()
	if fail {
		return domain.Cart{}, domain.Internal(nil, "test.get_cart", "injected fault")
	}
	return f.Store.GetCart(ctx, userID)
}

func (f *flakyStore) GetStock(ctx context.Context, ids []string) (map[string]int64, error) {
	f.mu.Lock()
	fail := f.failGetStock > 0
	if fail {
		f.failGetStock--
	}
	f.mu.Unlock()
	if fail {
		return nil, domain.Internal(nil, "test.get_stock", "injected fault")
	}
	return f.Store.GetStock(ctx, ids)
}

func (f *flakyStore) CompleteCheckout(ctx context.Context, order domain.Order) (domain.Order, error) {
	f.mu.Lock()
	f.completeCalls++
	err := f.completeErr
	f.mu.Unlock()
	if err != nil {
		return domain.Order{}, err
	}
	return f.Store.CompleteCheckout(ctx, order)
}
