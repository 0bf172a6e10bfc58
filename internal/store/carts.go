package store

import (
	"context"
	"database/sql"
	"errors"

	"storefront/internal/models"
)

const cartItemColumns = `
	ci.id, ci.cart_id, ci.product_id, ci.quantity,
	p.name AS product_name, p.price AS product_price, p.stock AS product_stock`

// GetOrCreateCart returns the user's cart, creating it on first access
func (s *Store) GetOrCreateCart(ctx context.Context, userID int64) (*models.Cart, error) {
	_, err := s.ext.ExecContext(ctx,
		"INSERT INTO carts (user_id) VALUES ($1) ON CONFLICT (user_id) DO NOTHING", userID)
	if err != nil {
		return nil, translate(err)
	}

	var cart models.Cart
	if err := s.get(ctx, &cart, "SELECT * FROM carts WHERE user_id = $1", userID); err != nil {
		return nil, err
	}
	return &cart, nil
}

// ListCartItems retrieves the cart's items joined with their products
func (s *Store) ListCartItems(ctx context.Context, cartID int64) ([]models.CartItem, error) {
	items := []models.CartItem{}
	err := s.selectAll(ctx, &items, `
		SELECT`+cartItemColumns+`
		FROM cart_items ci
		JOIN products p ON p.id = ci.product_id
		WHERE ci.cart_id = $1
		ORDER BY ci.id`, cartID)
	return items, err
}

// AddCartItem inserts the product with quantity 1 or increments an existing row
func (s *Store) AddCartItem(ctx context.Context, cartID, productID int64) (*models.CartItem, error) {
	var item models.CartItem
	err := s.get(ctx, &item, `
		INSERT INTO cart_items (cart_id, product_id, quantity) VALUES ($1, $2, 1)
		ON CONFLICT (cart_id, product_id) DO UPDATE SET quantity = cart_items.quantity + 1
		RETURNING id, cart_id, product_id, quantity`,
		cartID, productID)
	if err != nil {
		return nil, translate(err)
	}
	return &item, nil
}

// GetCartItemForUser retrieves an item only if it sits in the user's cart
func (s *Store) GetCartItemForUser(ctx context.Context, userID, itemID int64) (*models.CartItem, error) {
	var item models.CartItem
	err := s.get(ctx, &item, `
		SELECT`+cartItemColumns+`
		FROM cart_items ci
		JOIN carts c ON c.id = ci.cart_id
		JOIN products p ON p.id = ci.product_id
		WHERE ci.id = $1 AND c.user_id = $2`, itemID, userID)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &item, nil
}

// SetCartItemQuantity sets an explicit quantity (>= 1)
func (s *Store) SetCartItemQuantity(ctx context.Context, itemID int64, quantity int) error {
	return s.execOne(ctx, "UPDATE cart_items SET quantity = $1 WHERE id = $2", quantity, itemID)
}

// DeleteCartItem deletes a single item
func (s *Store) DeleteCartItem(ctx context.Context, itemID int64) error {
	return s.execOne(ctx, "DELETE FROM cart_items WHERE id = $1", itemID)
}

// ClearCart deletes every item of the cart, keeping the cart row
func (s *Store) ClearCart(ctx context.Context, cartID int64) error {
	_, err := s.ext.ExecContext(ctx, "DELETE FROM cart_items WHERE cart_id = $1", cartID)
	return err
}
