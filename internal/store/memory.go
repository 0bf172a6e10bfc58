package store

import (
	"context"
	"sort"
	"sync"
	"time"

	"storefront/internal/models"

	"github.com/shopspring/decimal"
)

// MemoryStore is an in-process Repository for local development and tests.
// WithTx serialises transactions behind one mutex and restores a snapshot of
// every table when the callback fails.
type MemoryStore struct {
	mu   *sync.Mutex
	data *memData
	inTx bool
}

var _ Repository = (*MemoryStore)(nil)

type memData struct {
	nextID     int64
	categories map[int64]models.Category
	products   map[int64]models.Product
	customers  map[int64]models.Customer
	carts      map[int64]models.Cart
	cartItems  map[int64]models.CartItem
	orders     map[int64]models.Order
	orderItems map[int64]models.OrderItem
	processed  map[string]models.ProcessedEvent
}

// NewMemoryStore creates an empty in-memory store
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		mu: &sync.Mutex{},
		data: &memData{
			categories: map[int64]models.Category{},
			products:   map[int64]models.Product{},
			customers:  map[int64]models.Customer{},
			carts:      map[int64]models.Cart{},
			cartItems:  map[int64]models.CartItem{},
			orders:     map[int64]models.Order{},
			orderItems: map[int64]models.OrderItem{},
			processed:  map[string]models.ProcessedEvent{},
		},
	}
}

func (d *memData) clone() *memData {
	c := &memData{
		nextID:     d.nextID,
		categories: make(map[int64]models.Category, len(d.categories)),
		products:   make(map[int64]models.Product, len(d.products)),
		customers:  make(map[int64]models.Customer, len(d.customers)),
		carts:      make(map[int64]models.Cart, len(d.carts)),
		cartItems:  make(map[int64]models.CartItem, len(d.cartItems)),
		orders:     make(map[int64]models.Order, len(d.orders)),
		orderItems: make(map[int64]models.OrderItem, len(d.orderItems)),
		processed:  make(map[string]models.ProcessedEvent, len(d.processed)),
	}
	for k, v := range d.categories {
		c.categories[k] = v
	}
	for k, v := range d.products {
		c.products[k] = v
	}
	for k, v := range d.customers {
		c.customers[k] = v
	}
	for k, v := range d.carts {
		c.carts[k] = v
	}
	for k, v := range d.cartItems {
		c.cartItems[k] = v
	}
	for k, v := range d.orders {
		c.orders[k] = v
	}
	for k, v := range d.orderItems {
		c.orderItems[k] = v
	}
	for k, v := range d.processed {
		c.processed[k] = v
	}
	return c
}

func (d *memData) id() int64 {
	d.nextID++
	return d.nextID
}

func (m *MemoryStore) lock() func() {
	if m.inTx {
		return func() {}
	}
	m.mu.Lock()
	return m.mu.Unlock
}

// WithTx runs fn against a transactional view of the store
func (m *MemoryStore) WithTx(ctx context.Context, fn func(tx Repository) error) error {
	if m.inTx {
		return fn(m)
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	snapshot := m.data.clone()
	if err := fn(&MemoryStore{mu: m.mu, data: m.data, inTx: true}); err != nil {
		*m.data = *snapshot
		return err
	}
	return nil
}

func (m *MemoryStore) ListCategories(ctx context.Context) ([]models.Category, error) {
	defer m.lock()()
	categories := []models.Category{}
	for _, c := range m.data.categories {
		categories = append(categories, c)
	}
	sort.Slice(categories, func(i, j int) bool { return categories[i].Name < categories[j].Name })
	return categories, nil
}

func (m *MemoryStore) GetCategory(ctx context.Context, id int64) (*models.Category, error) {
	defer m.lock()()
	c, ok := m.data.categories[id]
	if !ok {
		return nil, ErrNotFound
	}
	return &c, nil
}

func (m *MemoryStore) CreateCategory(ctx context.Context, category *models.Category) error {
	defer m.lock()()
	for _, c := range m.data.categories {
		if c.Name == category.Name {
			return ErrDuplicate
		}
	}
	category.ID = m.data.id()
	category.CreatedAt = time.Now()
	m.data.categories[category.ID] = *category
	return nil
}

func (m *MemoryStore) DeleteCategory(ctx context.Context, id int64) error {
	defer m.lock()()
	if _, ok := m.data.categories[id]; !ok {
		return ErrNotFound
	}
	for _, p := range m.data.products {
		if p.CategoryID == id {
			return ErrReferenced
		}
	}
	delete(m.data.categories, id)
	return nil
}

func (m *MemoryStore) ListProducts(ctx context.Context, filter ProductFilter) ([]models.Product, error) {
	defer m.lock()()
	products := []models.Product{}
	for _, p := range m.data.products {
		if filter.CategoryID != nil && p.CategoryID != *filter.CategoryID {
			continue
		}
		if filter.InStockOnly && p.Stock <= 0 {
			continue
		}
		products = append(products, p)
	}
	sortProducts(products)
	return products, nil
}

func (m *MemoryStore) GetProduct(ctx context.Context, id int64) (*models.Product, error) {
	defer m.lock()()
	p, ok := m.data.products[id]
	if !ok {
		return nil, ErrNotFound
	}
	return &p, nil
}

func (m *MemoryStore) GetProductsByIDs(ctx context.Context, ids []int64) ([]models.Product, error) {
	defer m.lock()()
	return m.productsByIDs(ids), nil
}

func (m *MemoryStore) productsByIDs(ids []int64) []models.Product {
	products := []models.Product{}
	seen := map[int64]bool{}
	for _, id := range ids {
		if p, ok := m.data.products[id]; ok && !seen[id] {
			seen[id] = true
			products = append(products, p)
		}
	}
	sortProducts(products)
	return products
}

func (m *MemoryStore) CreateProduct(ctx context.Context, product *models.Product) error {
	defer m.lock()()
	if _, ok := m.data.categories[product.CategoryID]; !ok {
		return ErrReferenced
	}
	now := time.Now()
	product.ID = m.data.id()
	product.CreatedAt = now
	product.UpdatedAt = now
	m.data.products[product.ID] = *product
	return nil
}

func (m *MemoryStore) UpdateProduct(ctx context.Context, product *models.Product) error {
	defer m.lock()()
	existing, ok := m.data.products[product.ID]
	if !ok {
		return ErrNotFound
	}
	if _, ok := m.data.categories[product.CategoryID]; !ok {
		return ErrReferenced
	}
	product.CreatedAt = existing.CreatedAt
	product.UpdatedAt = time.Now()
	m.data.products[product.ID] = *product
	return nil
}

func (m *MemoryStore) DeleteProduct(ctx context.Context, id int64) error {
	defer m.lock()()
	if _, ok := m.data.products[id]; !ok {
		return ErrNotFound
	}
	for _, oi := range m.data.orderItems {
		if oi.ProductID == id {
			return ErrReferenced
		}
	}
	for itemID, ci := range m.data.cartItems {
		if ci.ProductID == id {
			delete(m.data.cartItems, itemID)
		}
	}
	delete(m.data.products, id)
	return nil
}

func (m *MemoryStore) LockProducts(ctx context.Context, ids []int64) ([]models.Product, error) {
	defer m.lock()()
	return m.productsByIDs(ids), nil
}

func (m *MemoryStore) DecrementStock(ctx context.Context, productID int64, quantity int) error {
	defer m.lock()()
	p, ok := m.data.products[productID]
	if !ok || p.Stock < quantity {
		return ErrInsufficientStock
	}
	p.Stock -= quantity
	p.UpdatedAt = time.Now()
	m.data.products[productID] = p
	return nil
}

func (m *MemoryStore) ListLowStockProducts(ctx context.Context, threshold int) ([]models.Product, error) {
	defer m.lock()()
	products := []models.Product{}
	for _, p := range m.data.products {
		if p.Stock <= threshold {
			products = append(products, p)
		}
	}
	sort.Slice(products, func(i, j int) bool {
		if products[i].Stock != products[j].Stock {
			return products[i].Stock < products[j].Stock
		}
		return products[i].ID < products[j].ID
	})
	return products, nil
}

func (m *MemoryStore) CountProducts(ctx context.Context) (int, error) {
	defer m.lock()()
	return len(m.data.products), nil
}

func (m *MemoryStore) CreateCustomer(ctx context.Context, customer *models.Customer) error {
	defer m.lock()()
	for _, c := range m.data.customers {
		if c.Username == customer.Username {
			return ErrDuplicate
		}
	}
	customer.ID = m.data.id()
	customer.CreatedAt = time.Now()
	m.data.customers[customer.ID] = *customer
	return nil
}

func (m *MemoryStore) GetCustomer(ctx context.Context, id int64) (*models.Customer, error) {
	defer m.lock()()
	c, ok := m.data.customers[id]
	if !ok {
		return nil, ErrNotFound
	}
	return &c, nil
}

func (m *MemoryStore) ListCustomerSummaries(ctx context.Context) ([]models.CustomerSummary, error) {
	defer m.lock()()
	summaries := []models.CustomerSummary{}
	for _, c := range m.data.customers {
		s := models.CustomerSummary{Customer: c, TotalSpent: decimal.Zero}
		for _, o := range m.data.orders {
			if o.UserID == c.ID {
				s.OrderCount++
				s.TotalSpent = s.TotalSpent.Add(o.TotalAmount)
			}
		}
		summaries = append(summaries, s)
	}
	sort.Slice(summaries, func(i, j int) bool { return summaries[i].ID < summaries[j].ID })
	return summaries, nil
}

func (m *MemoryStore) CountCustomers(ctx context.Context) (int, error) {
	defer m.lock()()
	return len(m.data.customers), nil
}

func (m *MemoryStore) GetOrCreateCart(ctx context.Context, userID int64) (*models.Cart, error) {
	defer m.lock()()
	for _, c := range m.data.carts {
		if c.UserID == userID {
			return &c, nil
		}
	}
	if _, ok := m.data.customers[userID]; !ok {
		return nil, ErrReferenced
	}
	cart := models.Cart{ID: m.data.id(), UserID: userID, CreatedAt: time.Now()}
	m.data.carts[cart.ID] = cart
	return &cart, nil
}

func (m *MemoryStore) ListCartItems(ctx context.Context, cartID int64) ([]models.CartItem, error) {
	defer m.lock()()
	items := []models.CartItem{}
	for _, ci := range m.data.cartItems {
		if ci.CartID == cartID {
			items = append(items, m.joinProduct(ci))
		}
	}
	sort.Slice(items, func(i, j int) bool { return items[i].ID < items[j].ID })
	return items, nil
}

func (m *MemoryStore) joinProduct(ci models.CartItem) models.CartItem {
	p := m.data.products[ci.ProductID]
	ci.ProductName = p.Name
	ci.ProductPrice = p.Price
	ci.ProductStock = p.Stock
	return ci
}

func (m *MemoryStore) AddCartItem(ctx context.Context, cartID, productID int64) (*models.CartItem, error) {
	defer m.lock()()
	if _, ok := m.data.products[productID]; !ok {
		return nil, ErrReferenced
	}
	for id, ci := range m.data.cartItems {
		if ci.CartID == cartID && ci.ProductID == productID {
			ci.Quantity++
			m.data.cartItems[id] = ci
			return &ci, nil
		}
	}
	item := models.CartItem{ID: m.data.id(), CartID: cartID, ProductID: productID, Quantity: 1}
	m.data.cartItems[item.ID] = item
	return &item, nil
}

func (m *MemoryStore) GetCartItemForUser(ctx context.Context, userID, itemID int64) (*models.CartItem, error) {
	defer m.lock()()
	ci, ok := m.data.cartItems[itemID]
	if !ok || m.data.carts[ci.CartID].UserID != userID {
		return nil, ErrNotFound
	}
	joined := m.joinProduct(ci)
	return &joined, nil
}

func (m *MemoryStore) SetCartItemQuantity(ctx context.Context, itemID int64, quantity int) error {
	defer m.lock()()
	ci, ok := m.data.cartItems[itemID]
	if !ok {
		return ErrNotFound
	}
	ci.Quantity = quantity
	m.data.cartItems[itemID] = ci
	return nil
}

func (m *MemoryStore) DeleteCartItem(ctx context.Context, itemID int64) error {
	defer m.lock()()
	if _, ok := m.data.cartItems[itemID]; !ok {
		return ErrNotFound
	}
	delete(m.data.cartItems, itemID)
	return nil
}

func (m *MemoryStore) ClearCart(ctx context.Context, cartID int64) error {
	defer m.lock()()
	for id, ci := range m.data.cartItems {
		if ci.CartID == cartID {
			delete(m.data.cartItems, id)
		}
	}
	return nil
}

func (m *MemoryStore) CreateOrder(ctx context.Context, order *models.Order) error {
	defer m.lock()()
	if order.IdempotencyKey != nil {
		for _, o := range m.data.orders {
			if o.IdempotencyKey != nil && *o.IdempotencyKey == *order.IdempotencyKey {
				return ErrDuplicate
			}
		}
	}
	now := time.Now()
	order.ID = m.data.id()
	order.CreatedAt = now
	order.UpdatedAt = now
	stored := *order
	stored.Items = nil
	m.data.orders[order.ID] = stored
	return nil
}

func (m *MemoryStore) CreateOrderItem(ctx context.Context, item *models.OrderItem) error {
	defer m.lock()()
	if _, ok := m.data.orders[item.OrderID]; !ok {
		return ErrReferenced
	}
	if _, ok := m.data.products[item.ProductID]; !ok {
		return ErrReferenced
	}
	item.ID = m.data.id()
	stored := *item
	stored.ProductName = ""
	m.data.orderItems[item.ID] = stored
	return nil
}

func (m *MemoryStore) GetOrderByID(ctx context.Context, id int64) (*models.Order, error) {
	defer m.lock()()
	o, ok := m.data.orders[id]
	if !ok {
		return nil, ErrNotFound
	}
	return &o, nil
}

func (m *MemoryStore) GetOrderByIdempotencyKey(ctx context.Context, key string) (*models.Order, error) {
	defer m.lock()()
	for _, o := range m.data.orders {
		if o.IdempotencyKey != nil && *o.IdempotencyKey == key {
			return &o, nil
		}
	}
	return nil, ErrNotFound
}

func (m *MemoryStore) LockOrder(ctx context.Context, id int64) (*models.Order, error) {
	return m.GetOrderByID(ctx, id)
}

func (m *MemoryStore) ListOrders(ctx context.Context, filter OrderFilter) ([]models.Order, error) {
	defer m.lock()()
	orders := []models.Order{}
	for _, o := range m.data.orders {
		if filter.Status != nil && o.Status != *filter.Status {
			continue
		}
		if filter.UserID != nil && o.UserID != *filter.UserID {
			continue
		}
		orders = append(orders, o)
	}
	sort.Slice(orders, func(i, j int) bool {
		if !orders[i].CreatedAt.Equal(orders[j].CreatedAt) {
			return orders[i].CreatedAt.After(orders[j].CreatedAt)
		}
		return orders[i].ID > orders[j].ID
	})
	if filter.Limit > 0 && len(orders) > filter.Limit {
		orders = orders[:filter.Limit]
	}
	return orders, nil
}

func (m *MemoryStore) ListOrderItemsWithProducts(ctx context.Context, orderIDs []int64) ([]models.OrderItem, error) {
	defer m.lock()()
	wanted := map[int64]bool{}
	for _, id := range orderIDs {
		wanted[id] = true
	}
	items := []models.OrderItem{}
	for _, oi := range m.data.orderItems {
		if wanted[oi.OrderID] {
			oi.ProductName = m.data.products[oi.ProductID].Name
			items = append(items, oi)
		}
	}
	sort.Slice(items, func(i, j int) bool {
		if items[i].OrderID != items[j].OrderID {
			return items[i].OrderID < items[j].OrderID
		}
		return items[i].ID < items[j].ID
	})
	return items, nil
}

func (m *MemoryStore) UpdateOrderStatus(ctx context.Context, orderID int64, status models.OrderStatus) error {
	defer m.lock()()
	o, ok := m.data.orders[orderID]
	if !ok {
		return ErrNotFound
	}
	o.Status = status
	o.UpdatedAt = time.Now()
	m.data.orders[orderID] = o
	return nil
}

func (m *MemoryStore) CountOrdersByStatus(ctx context.Context) ([]models.StatusCount, error) {
	defer m.lock()()
	byStatus := map[models.OrderStatus]int{}
	for _, o := range m.data.orders {
		byStatus[o.Status]++
	}
	counts := []models.StatusCount{}
	for status, n := range byStatus {
		counts = append(counts, models.StatusCount{Status: status, Count: n})
	}
	sort.Slice(counts, func(i, j int) bool { return counts[i].Status < counts[j].Status })
	return counts, nil
}

func (m *MemoryStore) TotalRevenue(ctx context.Context) (decimal.Decimal, error) {
	defer m.lock()()
	total := decimal.Zero
	for _, o := range m.data.orders {
		if o.Status != models.OrderStatusCancelled {
			total = total.Add(o.TotalAmount)
		}
	}
	return total, nil
}

func (m *MemoryStore) IsEventProcessed(ctx context.Context, eventID string) (bool, error) {
	defer m.lock()()
	_, ok := m.data.processed[eventID]
	return ok, nil
}

func (m *MemoryStore) MarkEventProcessed(ctx context.Context, eventID, eventType string) error {
	defer m.lock()()
	if _, ok := m.data.processed[eventID]; !ok {
		m.data.processed[eventID] = models.ProcessedEvent{
			EventID:     eventID,
			EventType:   eventType,
			ProcessedAt: time.Now(),
		}
	}
	return nil
}

func sortProducts(products []models.Product) {
	sort.Slice(products, func(i, j int) bool { return products[i].ID < products[j].ID })
}
