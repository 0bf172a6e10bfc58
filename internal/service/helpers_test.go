package service

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"storefront/internal/models"
	"storefront/internal/store"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
)

var errBoom = errors.New("boom")

type fixture struct {
	repo     *store.MemoryStore
	customer *models.Customer
	productA *models.Product
	productB *models.Product
}

// newFixture seeds one customer and two products:
// A costs 10.00 with 5 in stock, B costs 3.50 with 1 in stock.
func newFixture(t *testing.T) *fixture {
	t.Helper()
	ctx := context.Background()
	repo := store.NewMemoryStore()

	customer := &models.Customer{Username: "ama", Email: "ama@example.com"}
	require.NoError(t, repo.CreateCustomer(ctx, customer))

	category := &models.Category{Name: "Kitchen"}
	require.NoError(t, repo.CreateCategory(ctx, category))

	productA := &models.Product{CategoryID: category.ID, Name: "Kettle", Price: decimal.RequireFromString("10.00"), Stock: 5}
	require.NoError(t, repo.CreateProduct(ctx, productA))
	productB := &models.Product{CategoryID: category.ID, Name: "Mug", Price: decimal.RequireFromString("3.50"), Stock: 1}
	require.NoError(t, repo.CreateProduct(ctx, productB))

	return &fixture{repo: repo, customer: customer, productA: productA, productB: productB}
}

// fillCart puts 2 x A and 1 x B into the customer's cart
func (f *fixture) fillCart(t *testing.T) {
	t.Helper()
	carts := NewCartService(f.repo, nil, 0)
	ctx := context.Background()

	for _, id := range []int64{f.productA.ID, f.productA.ID, f.productB.ID} {
		_, err := carts.AddToCart(ctx, f.customer.ID, id)
		require.NoError(t, err)
	}
}

func (f *fixture) stock(t *testing.T, productID int64) int {
	t.Helper()
	p, err := f.repo.GetProduct(context.Background(), productID)
	require.NoError(t, err)
	return p.Stock
}

func (f *fixture) cartItems(t *testing.T) []models.CartItem {
	t.Helper()
	cart, err := NewCartService(f.repo, nil, 0).GetCart(context.Background(), f.customer.ID)
	require.NoError(t, err)
	return cart.Items
}

func (f *fixture) orders(t *testing.T) []models.Order {
	t.Helper()
	orders, err := f.repo.ListOrders(context.Background(), store.OrderFilter{})
	require.NoError(t, err)
	return orders
}

func codForm() CheckoutForm {
	return CheckoutForm{
		ShippingAddress: "12 Oxford Street, Osu, Accra",
		PaymentMethod:   models.PaymentCashOnDelivery,
	}
}

// failingRepo hands a transaction to WithTx callers whose method named by
// failOn returns errBoom.
type failingRepo struct {
	store.Repository
	failOn string
}

func (r *failingRepo) WithTx(ctx context.Context, fn func(tx store.Repository) error) error {
	return r.Repository.WithTx(ctx, func(tx store.Repository) error {
		return fn(&failingTx{Repository: tx, failOn: r.failOn})
	})
}

type failingTx struct {
	store.Repository
	failOn string
}

func (tx *failingTx) CreateOrderItem(ctx context.Context, item *models.OrderItem) error {
	if tx.failOn == "CreateOrderItem" {
		return errBoom
	}
	return tx.Repository.CreateOrderItem(ctx, item)
}

func (tx *failingTx) ClearCart(ctx context.Context, cartID int64) error {
	if tx.failOn == "ClearCart" {
		return errBoom
	}
	return tx.Repository.ClearCart(ctx, cartID)
}

type fakeGuard struct {
	mu        sync.Mutex
	locks     map[string]string
	checkouts map[string]int64
	lockErr   error
	released  int
}

func newFakeGuard() *fakeGuard {
	return &fakeGuard{locks: map[string]string{}, checkouts: map[string]int64{}}
}

func (g *fakeGuard) AcquireLock(ctx context.Context, key string, ttl time.Duration) (string, bool, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.lockErr != nil {
		return "", false, g.lockErr
	}
	if _, held := g.locks[key]; held {
		return "", false, nil
	}
	token := uuid.NewString()
	g.locks[key] = token
	return token, true, nil
}

func (g *fakeGuard) ReleaseLock(ctx context.Context, key, token string) error {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.locks[key] == token {
		delete(g.locks, key)
		g.released++
	}
	return nil
}

func (g *fakeGuard) LookupCheckout(ctx context.Context, key string) (int64, bool, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	id, ok := g.checkouts[key]
	return id, ok, nil
}

func (g *fakeGuard) RememberCheckout(ctx context.Context, key string, orderID int64, ttl time.Duration) error {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.checkouts[key] = orderID
	return nil
}

type fakePublisher struct {
	mu      sync.Mutex
	placed  []*models.OrderPlacedEvent
	changed []*models.OrderStatusChangedEvent
	err     error
}

func (p *fakePublisher) PublishOrderPlaced(ctx context.Context, event *models.OrderPlacedEvent) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.placed = append(p.placed, event)
	return p.err
}

func (p *fakePublisher) PublishOrderStatusChanged(ctx context.Context, event *models.OrderStatusChangedEvent) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.changed = append(p.changed, event)
	return p.err
}

type fakeCache struct {
	counts      map[int64]int
	invalidated int
	readErr     error
}

func newFakeCache() *fakeCache {
	return &fakeCache{counts: map[int64]int{}}
}

func (c *fakeCache) GetCartCount(ctx context.Context, userID int64) (int, bool, error) {
	if c.readErr != nil {
		return 0, false, c.readErr
	}
	n, ok := c.counts[userID]
	return n, ok, nil
}

func (c *fakeCache) SetCartCount(ctx context.Context, userID int64, count int, ttl time.Duration) error {
	c.counts[userID] = count
	return nil
}

func (c *fakeCache) InvalidateCartCount(ctx context.Context, userID int64) error {
	delete(c.counts, userID)
	c.invalidated++
	return nil
}
