package postgres

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"

	"github.com/mstrand/vanir/internal/domain"
)

// GetCart returns the user's cart with all lines. A user with no cart row
// gets an empty cart; carts are created lazily by AddCartLine.
func (s *Store) GetCart(ctx context.Context, userID string) (domain.Cart, error) {
	cart := domain.Cart{UserID: userID}

	err := s.pool.QueryRow(ctx, `
		SELECT created_at, updated_at FROM carts WHERE user_id = $1`, userID,
	).Scan(&cart.CreatedAt, &cart.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return cart, nil
		}
		return domain.Cart{}, domain.Internal(err, "postgres.get_cart", "failed to get cart")
	}

	rows, err := s.pool.Query(ctx, `
		SELECT id, product_id, variant_id, quantity, created_at, updated_at
		FROM cart_lines
		WHERE user_id = $1
		ORDER BY created_at, id`, userID)
	if err != nil {
		return domain.Cart{}, domain.Internal(err, "postgres.get_cart", "failed to get cart lines")
	}
	defer rows.Close()

	for rows.Next() {
		var l domain.CartLine
		if err := rows.Scan(&l.ID, &l.ProductID, &l.VariantID, &l.Quantity, &l.CreatedAt, &l.UpdatedAt); err != nil {
			return domain.Cart{}, domain.Internal(err, "postgres.get_cart", "failed to scan cart line")
		}
		cart.Lines = append(cart.Lines, l)
	}
	if err := rows.Err(); err != nil {
		return domain.Cart{}, domain.Internal(err, "postgres.get_cart", "failed to read cart lines")
	}
	return cart, nil
}

// AddCartLine merges quantity into an existing (product, variant) line or
// inserts a new one, creating the cart row on first use.
func (s *Store) AddCartLine(ctx context.Context, userID, productID, variantID string, quantity int64) (domain.CartLine, error) {
	var line domain.CartLine
	err := withTx(ctx, s.pool, func(tx pgx.Tx) error {
		if _, err := tx.Exec(ctx, `
			INSERT INTO carts (user_id) VALUES ($1)
			ON CONFLICT (user_id) DO UPDATE SET updated_at = now()`, userID); err != nil {
			return err
		}

		return tx.QueryRow(ctx, `
			INSERT INTO cart_lines (user_id, product_id, variant_id, quantity)
			VALUES ($1, $2, $3, $4)
			ON CONFLICT (user_id, product_id, variant_id) DO UPDATE
			SET quantity = cart_lines.quantity + EXCLUDED.quantity,
			    updated_at = now()
			RETURNING id, product_id, variant_id, quantity, created_at, updated_at`,
			userID, productID, variantID, quantity,
		).Scan(&line.ID, &line.ProductID, &line.VariantID, &line.Quantity, &line.CreatedAt, &line.UpdatedAt)
	})
	if err != nil {
		return domain.CartLine{}, domain.Internal(err, "postgres.add_cart_line", "failed to add cart line")
	}
	return line, nil
}

// GetCartLine retrieves one cart line scoped to the owning user.
func (s *Store) GetCartLine(ctx context.Context, userID, lineID string) (domain.CartLine, error) {
	var l domain.CartLine
	err := s.pool.QueryRow(ctx, `
		SELECT id, product_id, variant_id, quantity, created_at, updated_at
		FROM cart_lines
		WHERE user_id = $1 AND id = $2`, userID, lineID,
	).Scan(&l.ID, &l.ProductID, &l.VariantID, &l.Quantity, &l.CreatedAt, &l.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return domain.CartLine{}, domain.ErrCartLineNotFound
		}
		return domain.CartLine{}, domain.Internal(err, "postgres.get_cart_line", "failed to get cart line")
	}
	return l, nil
}

// SetCartLineQuantity overwrites a line's quantity. Callers handle the
// quantity-0-removes rule; the check constraint rejects non-positive values.
func (s *Store) SetCartLineQuantity(ctx context.Context, userID, lineID string, quantity int64) error {
	ct, err := s.pool.Exec(ctx, `
		UPDATE cart_lines
		SET quantity = $3, updated_at = now()
		WHERE user_id = $1 AND id = $2`, userID, lineID, quantity)
	if err != nil {
		return domain.Internal(err, "postgres.set_cart_line_quantity", "failed to update cart line")
	}
	if ct.RowsAffected() == 0 {
		return domain.ErrCartLineNotFound
	}
	return nil
}

// DeleteCartLine removes a line, reporting whether it existed.
func (s *Store) DeleteCartLine(ctx context.Context, userID, lineID string) (bool, error) {
	ct, err := s.pool.Exec(ctx, `
		DELETE FROM cart_lines WHERE user_id = $1 AND id = $2`, userID, lineID)
	if err != nil {
		return false, domain.Internal(err, "postgres.delete_cart_line", "failed to delete cart line")
	}
	return ct.RowsAffected() > 0, nil
}

// ClearCart deletes all of the user's cart lines. The cart row survives;
// carts are cleared, not deleted. Clearing an empty or absent cart is a no-op.
func (s *Store) ClearCart(ctx context.Context, userID string) error {
	if _, err := s.pool.Exec(ctx, `DELETE FROM cart_lines WHERE user_id = $1`, userID); err != nil {
		return domain.Internal(err, "postgres.clear_cart", "failed to clear cart")
	}
	return nil
}

// clearCartTx is ClearCart inside an existing transaction (checkout commit).
func clearCartTx(ctx context.Context, tx pgx.Tx, userID string) error {
	_, err := tx.Exec(ctx, `DELETE FROM cart_lines WHERE user_id = $1`, userID)
	return err
}
