package postgres

import (
	"context"
	"encoding/json"
	"errors"

	"github.com/jackc/pgx/v5"

	"github.com/mstrand/vanir/internal/domain"
)

// CompleteCheckout is the atomic checkout commit: conditional stock decrement
// for every order item, order + item-snapshot insert, and cart-line delete,
// all inside one transaction. A shortfall on any product rolls back the whole
// unit and returns *InsufficientStockError with every offending product.
func (s *Store) CompleteCheckout(ctx context.Context, order domain.Order) (domain.Order, error) {
	requests := make([]domain.StockRequest, len(order.Items))
	for i, it := range order.Items {
		requests[i] = domain.StockRequest{ProductID: it.ProductID, Quantity: it.Quantity}
	}
	requests = domain.MergeStockRequests(requests)

	err := withTx(ctx, s.pool, func(tx pgx.Tx) error {
		if err := decrementStockTx(ctx, tx, requests); err != nil {
			return err
		}
		if err := insertOrderTx(ctx, tx, &order); err != nil {
			return err
		}
		return clearCartTx(ctx, tx, order.UserID)
	})
	if err != nil {
		var stockErr *domain.InsufficientStockError
		if errors.As(err, &stockErr) {
			return domain.Order{}, stockErr
		}
		var domainErr *domain.Error
		if errors.As(err, &domainErr) {
			return domain.Order{}, err
		}
		return domain.Order{}, domain.Internal(err, "postgres.complete_checkout", "failed to commit checkout")
	}
	return order, nil
}

// InsertOrder persists an order with its item snapshot, without any stock or
// cart effects.
func (s *Store) InsertOrder(ctx context.Context, order domain.Order) error {
	err := withTx(ctx, s.pool, func(tx pgx.Tx) error {
		return insertOrderTx(ctx, tx, &order)
	})
	if err != nil {
		return domain.Internal(err, "postgres.insert_order", "failed to insert order")
	}
	return nil
}

func insertOrderTx(ctx context.Context, tx pgx.Tx, order *domain.Order) error {
	delivery, err := json.Marshal(order.Delivery)
	if err != nil {
		return err
	}

	err = tx.QueryRow(ctx, `
		INSERT INTO orders (id, order_number, user_id, total_cents, status, delivery)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING created_at, updated_at`,
		order.ID, order.OrderNumber, order.UserID, order.TotalCents, order.Status, delivery,
	).Scan(&order.CreatedAt, &order.UpdatedAt)
	if err != nil {
		return err
	}

	for _, it := range order.Items {
		if _, err := tx.Exec(ctx, `
			INSERT INTO order_items (order_id, product_id, variant_id, product_name, quantity, unit_price_cents)
			VALUES ($1, $2, $3, $4, $5, $6)`,
			order.ID, it.ProductID, it.VariantID, it.ProductName, it.Quantity, it.UnitPriceCents); err != nil {
			return err
		}
	}
	return nil
}

// GetOrder retrieves one order with its item snapshot.
func (s *Store) GetOrder(ctx context.Context, id string) (domain.Order, error) {
	order, err := s.scanOrder(ctx, `
		SELECT id, order_number, user_id, total_cents, status, delivery, created_at, updated_at
		FROM orders WHERE id = $1`, id)
	if err != nil {
		return domain.Order{}, err
	}

	items, err := s.orderItems(ctx, []string{order.ID})
	if err != nil {
		return domain.Order{}, err
	}
	order.Items = items[order.ID]
	return order, nil
}

// ListOrdersByUser returns a user's orders, newest first.
func (s *Store) ListOrdersByUser(ctx context.Context, userID string) ([]domain.Order, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT id, order_number, user_id, total_cents, status, delivery, created_at, updated_at
		FROM orders
		WHERE user_id = $1
		ORDER BY created_at DESC, id`, userID)
	if err != nil {
		return nil, domain.Internal(err, "postgres.list_orders", "failed to list orders")
	}
	defer rows.Close()

	var orders []domain.Order
	var ids []string
	for rows.Next() {
		order, err := scanOrderRow(rows)
		if err != nil {
			return nil, domain.Internal(err, "postgres.list_orders", "failed to scan order")
		}
		orders = append(orders, order)
		ids = append(ids, order.ID)
	}
	if err := rows.Err(); err != nil {
		return nil, domain.Internal(err, "postgres.list_orders", "failed to read orders")
	}

	if len(ids) == 0 {
		return orders, nil
	}
	items, err := s.orderItems(ctx, ids)
	if err != nil {
		return nil, err
	}
	for i := range orders {
		orders[i].Items = items[orders[i].ID]
	}
	return orders, nil
}

// UpdateOrderStatus performs a guarded transition: the row must still be in
// the expected `from` status. Restock items, if any, are returned to the
// ledger in the same transaction.
func (s *Store) UpdateOrderStatus(ctx context.Context, id string, from, to domain.OrderStatus, restock []domain.StockRequest) error {
	err := withTx(ctx, s.pool, func(tx pgx.Tx) error {
		ct, err := tx.Exec(ctx, `
			UPDATE orders
			SET status = $3, updated_at = now()
			WHERE id = $1 AND status = $2`, id, from, to)
		if err != nil {
			return err
		}
		if ct.RowsAffected() == 0 {
			// Either the order vanished or another writer moved it first.
			var current domain.OrderStatus
			if err := tx.QueryRow(ctx, `SELECT status FROM orders WHERE id = $1`, id).Scan(&current); err != nil {
				if errors.Is(err, pgx.ErrNoRows) {
					return domain.ErrOrderNotFound
				}
				return err
			}
			return domain.ErrInvalidStatusTransition
		}
		if len(restock) > 0 {
			return incrementStockTx(ctx, tx, restock)
		}
		return nil
	})
	if err != nil {
		var domainErr *domain.Error
		if errors.As(err, &domainErr) {
			return err
		}
		return domain.Internal(err, "postgres.update_order_status", "failed to update order status")
	}
	return nil
}

func (s *Store) scanOrder(ctx context.Context, query string, args ...any) (domain.Order, error) {
	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return domain.Order{}, domain.Internal(err, "postgres.get_order", "failed to get order")
	}
	defer rows.Close()

	if !rows.Next() {
		if err := rows.Err(); err != nil {
			return domain.Order{}, domain.Internal(err, "postgres.get_order", "failed to get order")
		}
		return domain.Order{}, domain.ErrOrderNotFound
	}
	order, err := scanOrderRow(rows)
	if err != nil {
		return domain.Order{}, domain.Internal(err, "postgres.get_order", "failed to scan order")
	}
	return order, nil
}

func scanOrderRow(row pgx.Rows) (domain.Order, error) {
	var o domain.Order
	var delivery []byte
	if err := row.Scan(&o.ID, &o.OrderNumber, &o.UserID, &o.TotalCents, &o.Status, &delivery, &o.CreatedAt, &o.UpdatedAt); err != nil {
		return domain.Order{}, err
	}
	if err := json.Unmarshal(delivery, &o.Delivery); err != nil {
		return domain.Order{}, err
	}
	return o, nil
}

func (s *Store) orderItems(ctx context.Context, orderIDs []string) (map[string][]domain.OrderItem, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT order_id, product_id, variant_id, product_name, quantity, unit_price_cents
		FROM order_items
		WHERE order_id = ANY($1)
		ORDER BY id`, orderIDs)
	if err != nil {
		return nil, domain.Internal(err, "postgres.order_items", "failed to get order items")
	}
	defer rows.Close()

	out := make(map[string][]domain.OrderItem, len(orderIDs))
	for rows.Next() {
		var orderID string
		var it domain.OrderItem
		if err := rows.Scan(&orderID, &it.ProductID, &it.VariantID, &it.ProductName, &it.Quantity, &it.UnitPriceCents); err != nil {
			return nil, domain.Internal(err, "postgres.order_items", "failed to scan order item")
		}
		out[orderID] = append(out[orderID], it)
	}
	if err := rows.Err(); err != nil {
		return nil, domain.Internal(err, "postgres.order_items", "failed to read order items")
	}
	return out, nil
}
