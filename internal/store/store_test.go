package store

import (
	"context"
	"errors"
	"fmt"
	"os"
	"testing"
	"time"

	"storefront/internal/models"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// openTestStore connects to TEST_DATABASE_URL and applies the schema.
func openTestStore(t *testing.T) *Store {
	t.Helper()

	url := os.Getenv("TEST_DATABASE_URL")
	if url == "" {
		t.Skip("Integration test - requires TEST_DATABASE_URL")
	}

	store, err := NewStore(url)
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })

	require.NoError(t, store.Migrate(context.Background()))
	return store
}

func seedCatalog(t *testing.T, store *Store, stock int) (*models.Customer, *models.Product) {
	t.Helper()
	ctx := context.Background()
	suffix := time.Now().UnixNano()

	customer := &models.Customer{Username: fmt.Sprintf("user-%d", suffix), Email: "user@example.com"}
	require.NoError(t, store.CreateCustomer(ctx, customer))

	category := &models.Category{Name: fmt.Sprintf("category-%d", suffix)}
	require.NoError(t, store.CreateCategory(ctx, category))

	product := &models.Product{
		CategoryID: category.ID,
		Name:       "Blender",
		Price:      decimal.RequireFromString("10.00"),
		Stock:      stock,
	}
	require.NoError(t, store.CreateProduct(ctx, product))
	return customer, product
}

func TestCreateOrder(t *testing.T) {
	store := openTestStore(t)
	ctx := context.Background()
	customer, product := seedCatalog(t, store, 5)

	order := &models.Order{
		UserID:          customer.ID,
		TotalAmount:     decimal.RequireFromString("20.00"),
		ShippingAddress: "1 Ring Road, Accra",
		PaymentMethod:   models.PaymentCashOnDelivery,
		Status:          models.OrderStatusPending,
	}
	require.NoError(t, store.CreateOrder(ctx, order))
	assert.NotZero(t, order.ID)

	item := &models.OrderItem{OrderID: order.ID, ProductID: product.ID, Quantity: 2, Price: product.Price}
	require.NoError(t, store.CreateOrderItem(ctx, item))
	assert.NotZero(t, item.ID)

	retrieved, err := store.GetOrderByID(ctx, order.ID)
	require.NoError(t, err)
	assert.Equal(t, order.UserID, retrieved.UserID)
	assert.True(t, order.TotalAmount.Equal(retrieved.TotalAmount))

	items, err := store.ListOrderItemsWithProducts(ctx, []int64{order.ID})
	require.NoError(t, err)
	require.Len(t, items, 1)
	assert.Equal(t, "Blender", items[0].ProductName)
}

func TestIdempotency(t *testing.T) {
	store := openTestStore(t)
	ctx := context.Background()
	customer, _ := seedCatalog(t, store, 1)

	key := fmt.Sprintf("idempotent-key-%d", time.Now().UnixNano())
	newOrder := func() *models.Order {
		return &models.Order{
			UserID:          customer.ID,
			TotalAmount:     decimal.Zero,
			ShippingAddress: "somewhere",
			PaymentMethod:   models.PaymentMobileMoney,
			Status:          models.OrderStatusPending,
			IdempotencyKey:  &key,
		}
	}

	require.NoError(t, store.CreateOrder(ctx, newOrder()))

	err := store.CreateOrder(ctx, newOrder())
	assert.ErrorIs(t, err, ErrDuplicate)
}

func TestDecrementStockNeverNegative(t *testing.T) {
	store := openTestStore(t)
	ctx := context.Background()
	_, product := seedCatalog(t, store, 2)

	require.NoError(t, store.DecrementStock(ctx, product.ID, 2))
	assert.ErrorIs(t, store.DecrementStock(ctx, product.ID, 1), ErrInsufficientStock)

	got, err := store.GetProduct(ctx, product.ID)
	require.NoError(t, err)
	assert.Equal(t, 0, got.Stock)
}

func TestWithTxRollback(t *testing.T) {
	store := openTestStore(t)
	ctx := context.Background()
	customer, product := seedCatalog(t, store, 5)
	boom := errors.New("boom")

	err := store.WithTx(ctx, func(tx Repository) error {
		locked, err := tx.LockProducts(ctx, []int64{product.ID})
		require.NoError(t, err)
		require.Len(t, locked, 1)

		require.NoError(t, tx.DecrementStock(ctx, product.ID, 5))
		cart, err := tx.GetOrCreateCart(ctx, customer.ID)
		require.NoError(t, err)
		_, err = tx.AddCartItem(ctx, cart.ID, product.ID)
		require.NoError(t, err)
		return boom
	})
	assert.ErrorIs(t, err, boom)

	got, err := store.GetProduct(ctx, product.ID)
	require.NoError(t, err)
	assert.Equal(t, 5, got.Stock)
}

func TestCartUpsertIncrements(t *testing.T) {
	store := openTestStore(t)
	ctx := context.Background()
	customer, product := seedCatalog(t, store, 5)

	cart, err := store.GetOrCreateCart(ctx, customer.ID)
	require.NoError(t, err)

	_, err = store.AddCartItem(ctx, cart.ID, product.ID)
	require.NoError(t, err)
	item, err := store.AddCartItem(ctx, cart.ID, product.ID)
	require.NoError(t, err)
	assert.Equal(t, 2, item.Quantity)

	owned, err := store.GetCartItemForUser(ctx, customer.ID, item.ID)
	require.NoError(t, err)
	assert.Equal(t, "Blender", owned.ProductName)

	_, err = store.GetCartItemForUser(ctx, customer.ID+1000000, item.ID)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestCartRequiresCustomer(t *testing.T) {
	store := openTestStore(t)
	_, err := store.GetOrCreateCart(context.Background(), -time.Now().UnixNano())
	assert.ErrorIs(t, err, ErrReferenced)
}
