// Package postgres implements store.Store on PostgreSQL via pgx.
package postgres

import (
	"context"
	"errors"
	"sort"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/mstrand/vanir/internal/domain"
	"github.com/mstrand/vanir/internal/store"
)

// Store is the PostgreSQL-backed storage implementation.
type Store struct {
	pool *pgxpool.Pool
}

// Compile-time check that Store implements store.Store.
var _ store.Store = (*Store)(nil)

// New creates a PostgreSQL-backed store over an existing pool.
func New(pool *pgxpool.Pool) *Store {
	return &Store{pool: pool}
}

// GetProduct retrieves a single product by id.
func (s *Store) GetProduct(ctx context.Context, id string) (domain.Product, error) {
	var p domain.Product
	err := s.pool.QueryRow(ctx, `
		SELECT id, name, unit_price_cents, stock, available, created_at, updated_at
		FROM products
		WHERE id = $1`, id,
	).Scan(&p.ID, &p.Name, &p.UnitPriceCents, &p.Stock, &p.Available, &p.CreatedAt, &p.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return domain.Product{}, domain.ErrProductNotFound
		}
		return domain.Product{}, domain.Internal(err, "postgres.get_product", "failed to get product")
	}
	return p, nil
}

// UpsertProduct inserts or updates a catalog entry. Used by seeding and the
// (out of scope) catalog admin.
func (s *Store) UpsertProduct(ctx context.Context, p domain.Product) error {
	_, err := s.pool.Exec(ctx, `
		INSERT INTO products (id, name, unit_price_cents, stock, available)
		VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (id) DO UPDATE
		SET name = EXCLUDED.name,
		    unit_price_cents = EXCLUDED.unit_price_cents,
		    stock = EXCLUDED.stock,
		    available = EXCLUDED.available,
		    updated_at = now()`,
		p.ID, p.Name, p.UnitPriceCents, p.Stock, p.Available)
	if err != nil {
		return domain.Internal(err, "postgres.upsert_product", "failed to upsert product")
	}
	return nil
}

// GetStock returns current stock for the given product ids.
func (s *Store) GetStock(ctx context.Context, ids []string) (map[string]int64, error) {
	rows, err := s.pool.Query(ctx, `SELECT id, stock FROM products WHERE id = ANY($1)`, ids)
	if err != nil {
		return nil, domain.Internal(err, "postgres.get_stock", "failed to read stock")
	}
	defer rows.Close()

	out := make(map[string]int64, len(ids))
	for rows.Next() {
		var id string
		var stock int64
		if err := rows.Scan(&id, &stock); err != nil {
			return nil, domain.Internal(err, "postgres.get_stock", "failed to scan stock row")
		}
		out[id] = stock
	}
	if err := rows.Err(); err != nil {
		return nil, domain.Internal(err, "postgres.get_stock", "failed to read stock rows")
	}
	return out, nil
}

// DecrementStock atomically decreases stock for the whole set. Rows are
// updated in product-id order so concurrent decrements acquire row locks in a
// consistent order.
func (s *Store) DecrementStock(ctx context.Context, items []domain.StockRequest) error {
	err := withTx(ctx, s.pool, func(tx pgx.Tx) error {
		return decrementStockTx(ctx, tx, items)
	})
	var stockErr *domain.InsufficientStockError
	if err != nil && !errors.As(err, &stockErr) {
		return domain.Internal(err, "postgres.decrement_stock", "failed to decrement stock")
	}
	return err
}

// IncrementStock atomically returns stock to the ledger.
func (s *Store) IncrementStock(ctx context.Context, items []domain.StockRequest) error {
	err := withTx(ctx, s.pool, func(tx pgx.Tx) error {
		return incrementStockTx(ctx, tx, items)
	})
	if err != nil {
		return domain.Internal(err, "postgres.increment_stock", "failed to increment stock")
	}
	return nil
}

// decrementStockTx applies the conditional per-row decrement inside tx.
// "Decrement only if stock >= quantity" and a rows-affected check give the
// compare-and-swap semantics that serialize racing checkouts per product; a
// shortfall on any row aborts the whole transaction via the returned error.
func decrementStockTx(ctx context.Context, tx pgx.Tx, items []domain.StockRequest) error {
	ordered := make([]domain.StockRequest, len(items))
	copy(ordered, items)
	sort.Slice(ordered, func(i, j int) bool { return ordered[i].ProductID < ordered[j].ProductID })

	var shortfalls []domain.StockShortfall
	for _, it := range ordered {
		ct, err := tx.Exec(ctx, `
			UPDATE products
			SET stock = stock - $2, updated_at = now()
			WHERE id = $1 AND stock >= $2`,
			it.ProductID, it.Quantity)
		if err != nil {
			return err
		}
		if ct.RowsAffected() == 1 {
			continue
		}

		// Row missing or short; read the available count for the rejection
		// detail. FOR UPDATE so the reported count is stable within the tx.
		var available int64
		err = tx.QueryRow(ctx, `SELECT stock FROM products WHERE id = $1 FOR UPDATE`, it.ProductID).Scan(&available)
		if err != nil {
			if errors.Is(err, pgx.ErrNoRows) {
				return domain.NotFound("postgres.decrement_stock", "product", it.ProductID)
			}
			return err
		}
		shortfalls = append(shortfalls, domain.StockShortfall{
			ProductID: it.ProductID,
			Available: available,
			Requested: it.Quantity,
		})
	}

	if len(shortfalls) > 0 {
		return &domain.InsufficientStockError{Items: shortfalls}
	}
	return nil
}

func incrementStockTx(ctx context.Context, tx pgx.Tx, items []domain.StockRequest) error {
	ordered := make([]domain.StockRequest, len(items))
	copy(ordered, items)
	sort.Slice(ordered, func(i, j int) bool { return ordered[i].ProductID < ordered[j].ProductID })

	for _, it := range ordered {
		if _, err := tx.Exec(ctx, `
			UPDATE products
			SET stock = stock + $2, updated_at = now()
			WHERE id = $1`,
			it.ProductID, it.Quantity); err != nil {
			return err
		}
	}
	return nil
}
