// Package memory implements store.Store with mutex-guarded maps. It backs
// dev mode and the deterministic concurrency tests; the commit section is
// serialized by the store mutex, giving the same one-winner semantics the
// postgres backend gets from row-level locking.
package memory

import (
	"context"
	"sort"
	"strconv"
	"sync"
	"time"

	"github.com/mstrand/vanir/internal/domain"
	"github.com/mstrand/vanir/internal/store"
)

// Store is the in-memory storage implementation.
type Store struct {
	mu       sync.Mutex
	products map[string]domain.Product
	carts    map[string]*cartState
	orders   map[string]domain.Order
	// orderSeq preserves insertion order for ListOrdersByUser.
	orderSeq []string
	lineSeq  int64
}

type cartState struct {
	createdAt time.Time
	updatedAt time.Time
	lines     map[string]domain.CartLine
}

// Compile-time check that Store implements store.Store.
var _ store.Store = (*Store)(nil)

// New creates an empty in-memory store.
func New() *Store {
	return &Store{
		products: make(map[string]domain.Product),
		carts:    make(map[string]*cartState),
		orders:   make(map[string]domain.Order),
	}
}

func (s *Store) GetProduct(ctx context.Context, id string) (domain.Product, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	p, ok := s.products[id]
	if !ok {
		return domain.Product{}, domain.ErrProductNotFound
	}
	return p, nil
}

func (s *Store) UpsertProduct(ctx context.Context, p domain.Product) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := time.Now()
	if existing, ok := s.products[p.ID]; ok {
		p.CreatedAt = existing.CreatedAt
	} else {
		p.CreatedAt = now
	}
	p.UpdatedAt = now
	s.products[p.ID] = p
	return nil
}

func (s *Store) GetStock(ctx context.Context, ids []string) (map[string]int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := make(map[string]int64, len(ids))
	for _, id := range ids {
		if p, ok := s.products[id]; ok {
			out[id] = p.Stock
		}
	}
	return out, nil
}

func (s *Store) DecrementStock(ctx context.Context, items []domain.StockRequest) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.decrementLocked(items)
}

func (s *Store) IncrementStock(ctx context.Context, items []domain.StockRequest) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.incrementLocked(items)
}

// decrementLocked validates the whole set before applying any change, so a
// shortfall on one product leaves every counter untouched.
func (s *Store) decrementLocked(items []domain.StockRequest) error {
	var shortfalls []domain.StockShortfall
	for _, it := range items {
		p, ok := s.products[it.ProductID]
		if !ok {
			return domain.NotFound("memory.decrement_stock", "product", it.ProductID)
		}
		if p.Stock < it.Quantity {
			shortfalls = append(shortfalls, domain.StockShortfall{
				ProductID: it.ProductID,
				Available: p.Stock,
				Requested: it.Quantity,
			})
		}
	}
	if len(shortfalls) > 0 {
		sort.Slice(shortfalls, func(i, j int) bool { return shortfalls[i].ProductID < shortfalls[j].ProductID })
		return &domain.InsufficientStockError{Items: shortfalls}
	}

	now := time.Now()
	for _, it := range items {
		p := s.products[it.ProductID]
		p.Stock -= it.Quantity
		p.UpdatedAt = now
		s.products[it.ProductID] = p
	}
	return nil
}

func (s *Store) incrementLocked(items []domain.StockRequest) error {
	now := time.Now()
	for _, it := range items {
		p, ok := s.products[it.ProductID]
		if !ok {
			return domain.NotFound("memory.increment_stock", "product", it.ProductID)
		}
		p.Stock += it.Quantity
		p.UpdatedAt = now
		s.products[it.ProductID] = p
	}
	return nil
}

func (s *Store) GetCart(ctx context.Context, userID string) (domain.Cart, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	cart := domain.Cart{UserID: userID}
	cs, ok := s.carts[userID]
	if !ok {
		return cart, nil
	}
	cart.CreatedAt = cs.createdAt
	cart.UpdatedAt = cs.updatedAt
	for _, l := range cs.lines {
		cart.Lines = append(cart.Lines, l)
	}
	sort.Slice(cart.Lines, func(i, j int) bool { return cart.Lines[i].ID < cart.Lines[j].ID })
	return cart, nil
}

func (s *Store) AddCartLine(ctx context.Context, userID, productID, variantID string, quantity int64) (domain.CartLine, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := time.Now()
	cs, ok := s.carts[userID]
	if !ok {
		cs = &cartState{createdAt: now, lines: make(map[string]domain.CartLine)}
		s.carts[userID] = cs
	}
	cs.updatedAt = now

	for id, l := range cs.lines {
		if l.ProductID == productID && l.VariantID == variantID {
			l.Quantity += quantity
			l.UpdatedAt = now
			cs.lines[id] = l
			return l, nil
		}
	}

	s.lineSeq++
	line := domain.CartLine{
		ID:        "line-" + strconv.FormatInt(s.lineSeq, 10),
		ProductID: productID,
		VariantID: variantID,
		Quantity:  quantity,
		CreatedAt: now,
		UpdatedAt: now,
	}
	cs.lines[line.ID] = line
	return line, nil
}

func (s *Store) GetCartLine(ctx context.Context, userID, lineID string) (domain.CartLine, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	cs, ok := s.carts[userID]
	if !ok {
		return domain.CartLine{}, domain.ErrCartLineNotFound
	}
	l, ok := cs.lines[lineID]
	if !ok {
		return domain.CartLine{}, domain.ErrCartLineNotFound
	}
	return l, nil
}

func (s *Store) SetCartLineQuantity(ctx context.Context, userID, lineID string, quantity int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	cs, ok := s.carts[userID]
	if !ok {
		return domain.ErrCartLineNotFound
	}
	l, ok := cs.lines[lineID]
	if !ok {
		return domain.ErrCartLineNotFound
	}
	now := time.Now()
	l.Quantity = quantity
	l.UpdatedAt = now
	cs.lines[lineID] = l
	cs.updatedAt = now
	return nil
}

func (s *Store) DeleteCartLine(ctx context.Context, userID, lineID string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	cs, ok := s.carts[userID]
	if !ok {
		return false, nil
	}
	if _, ok := cs.lines[lineID]; !ok {
		return false, nil
	}
	delete(cs.lines, lineID)
	cs.updatedAt = time.Now()
	return true, nil
}

func (s *Store) ClearCart(ctx context.Context, userID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.clearCartLocked(userID)
	return nil
}

func (s *Store) clearCartLocked(userID string) {
	cs, ok := s.carts[userID]
	if !ok {
		return
	}
	cs.lines = make(map[string]domain.CartLine)
	cs.updatedAt = time.Now()
}

// CompleteCheckout applies decrement, order insert and cart clear under one
// critical section; the early decrement validation means a shortfall leaves
// the store byte-for-byte unchanged.
func (s *Store) CompleteCheckout(ctx context.Context, order domain.Order) (domain.Order, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	requests := make([]domain.StockRequest, len(order.Items))
	for i, it := range order.Items {
		requests[i] = domain.StockRequest{ProductID: it.ProductID, Quantity: it.Quantity}
	}
	if err := s.decrementLocked(domain.MergeStockRequests(requests)); err != nil {
		return domain.Order{}, err
	}

	now := time.Now()
	order.CreatedAt = now
	order.UpdatedAt = now
	s.orders[order.ID] = order
	s.orderSeq = append(s.orderSeq, order.ID)
	s.clearCartLocked(order.UserID)
	return order, nil
}

func (s *Store) InsertOrder(ctx context.Context, order domain.Order) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := time.Now()
	order.CreatedAt = now
	order.UpdatedAt = now
	s.orders[order.ID] = order
	s.orderSeq = append(s.orderSeq, order.ID)
	return nil
}

func (s *Store) GetOrder(ctx context.Context, id string) (domain.Order, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	o, ok := s.orders[id]
	if !ok {
		return domain.Order{}, domain.ErrOrderNotFound
	}
	return o, nil
}

func (s *Store) ListOrdersByUser(ctx context.Context, userID string) ([]domain.Order, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var out []domain.Order
	// Newest first.
	for i := len(s.orderSeq) - 1; i >= 0; i-- {
		o := s.orders[s.orderSeq[i]]
		if o.UserID == userID {
			out = append(out, o)
		}
	}
	return out, nil
}

func (s *Store) UpdateOrderStatus(ctx context.Context, id string, from, to domain.OrderStatus, restock []domain.StockRequest) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	o, ok := s.orders[id]
	if !ok {
		return domain.ErrOrderNotFound
	}
	if o.Status != from {
		return domain.ErrInvalidStatusTransition
	}
	if len(restock) > 0 {
		if err := s.incrementLocked(restock); err != nil {
			return err
		}
	}
	o.Status = to
	o.UpdatedAt = time.Now()
	s.orders[id] = o
	return nil
}
