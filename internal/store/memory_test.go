package store

import (
	"context"
	"errors"
	"testing"

	"storefront/internal/models"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func seedMemory(t *testing.T) (*MemoryStore, *models.Product) {
	t.Helper()
	ctx := context.Background()
	m := NewMemoryStore()

	category := &models.Category{Name: "Electronics"}
	require.NoError(t, m.CreateCategory(ctx, category))

	product := &models.Product{
		CategoryID: category.ID,
		Name:       "Headphones",
		Price:      decimal.RequireFromString("49.99"),
		Stock:      3,
	}
	require.NoError(t, m.CreateProduct(ctx, product))
	return m, product
}

func TestMemoryWithTxRollsBack(t *testing.T) {
	ctx := context.Background()
	m, product := seedMemory(t)
	boom := errors.New("boom")

	err := m.WithTx(ctx, func(tx Repository) error {
		require.NoError(t, tx.DecrementStock(ctx, product.ID, 2))
		require.NoError(t, tx.CreateOrder(ctx, &models.Order{UserID: 1, Status: models.OrderStatusPending}))
		return boom
	})
	assert.ErrorIs(t, err, boom)

	got, err := m.GetProduct(ctx, product.ID)
	require.NoError(t, err)
	assert.Equal(t, 3, got.Stock)

	orders, err := m.ListOrders(ctx, OrderFilter{})
	require.NoError(t, err)
	assert.Empty(t, orders)
}

func TestMemoryWithTxCommits(t *testing.T) {
	ctx := context.Background()
	m, product := seedMemory(t)

	err := m.WithTx(ctx, func(tx Repository) error {
		return tx.DecrementStock(ctx, product.ID, 3)
	})
	require.NoError(t, err)

	got, err := m.GetProduct(ctx, product.ID)
	require.NoError(t, err)
	assert.Equal(t, 0, got.Stock)
}

func TestMemoryDecrementStockGuard(t *testing.T) {
	ctx := context.Background()
	m, product := seedMemory(t)

	err := m.DecrementStock(ctx, product.ID, 4)
	assert.ErrorIs(t, err, ErrInsufficientStock)

	got, err := m.GetProduct(ctx, product.ID)
	require.NoError(t, err)
	assert.Equal(t, 3, got.Stock)
}

func TestMemoryCartItems(t *testing.T) {
	ctx := context.Background()
	m, product := seedMemory(t)

	owner := &models.Customer{Username: "kwame", Email: "kwame@example.com"}
	require.NoError(t, m.CreateCustomer(ctx, owner))

	cart, err := m.GetOrCreateCart(ctx, owner.ID)
	require.NoError(t, err)
	again, err := m.GetOrCreateCart(ctx, owner.ID)
	require.NoError(t, err)
	assert.Equal(t, cart.ID, again.ID)

	first, err := m.AddCartItem(ctx, cart.ID, product.ID)
	require.NoError(t, err)
	second, err := m.AddCartItem(ctx, cart.ID, product.ID)
	require.NoError(t, err)
	assert.Equal(t, first.ID, second.ID)
	assert.Equal(t, 2, second.Quantity)

	items, err := m.ListCartItems(ctx, cart.ID)
	require.NoError(t, err)
	require.Len(t, items, 1)
	assert.Equal(t, "Headphones", items[0].ProductName)
	assert.True(t, product.Price.Equal(items[0].ProductPrice))

	_, err = m.GetCartItemForUser(ctx, owner.ID+1, first.ID)
	assert.ErrorIs(t, err, ErrNotFound)

	require.NoError(t, m.ClearCart(ctx, cart.ID))
	items, err = m.ListCartItems(ctx, cart.ID)
	require.NoError(t, err)
	assert.Empty(t, items)
}

func TestMemoryDeleteProductReferencedByOrder(t *testing.T) {
	ctx := context.Background()
	m, product := seedMemory(t)

	order := &models.Order{UserID: 1, Status: models.OrderStatusPending}
	require.NoError(t, m.CreateOrder(ctx, order))
	require.NoError(t, m.CreateOrderItem(ctx, &models.OrderItem{
		OrderID: order.ID, ProductID: product.ID, Quantity: 1, Price: product.Price,
	}))

	assert.ErrorIs(t, m.DeleteProduct(ctx, product.ID), ErrReferenced)
	assert.ErrorIs(t, m.DeleteCategory(ctx, product.CategoryID), ErrReferenced)
}

func TestMemoryRevenueSkipsCancelled(t *testing.T) {
	ctx := context.Background()
	m := NewMemoryStore()

	require.NoError(t, m.CreateOrder(ctx, &models.Order{
		UserID: 1, Status: models.OrderStatusPending, TotalAmount: decimal.RequireFromString("10.00"),
	}))
	require.NoError(t, m.CreateOrder(ctx, &models.Order{
		UserID: 1, Status: models.OrderStatusCancelled, TotalAmount: decimal.RequireFromString("99.00"),
	}))

	total, err := m.TotalRevenue(ctx)
	require.NoError(t, err)
	assert.Equal(t, "10.00", total.StringFixed(2))
}

func TestMemoryCartRequiresCustomer(t *testing.T) {
	m := NewMemoryStore()
	_, err := m.GetOrCreateCart(context.Background(), 404)
	assert.ErrorIs(t, err, ErrReferenced)
}
