package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// Category groups products in the catalog
type Category struct {
	ID          int64     `db:"id" json:"id"`
	Name        string    `db:"name" json:"name"`
	Description string    `db:"description" json:"description"`
	CreatedAt   time.Time `db:"created_at" json:"created_at"`
}

// Product represents a product in the catalog
type Product struct {
	ID          int64           `db:"id" json:"id"`
	CategoryID  int64           `db:"category_id" json:"category_id"`
	Name        string          `db:"name" json:"name"`
	Description string          `db:"description" json:"description"`
	Price       decimal.Decimal `db:"price" json:"price"`
	Stock       int             `db:"stock" json:"stock"`
	CreatedAt   time.Time       `db:"created_at" json:"created_at"`
	UpdatedAt   time.Time       `db:"updated_at" json:"updated_at"`
}

// InStock reports whether at least one unit can be sold
func (p Product) InStock() bool {
	return p.Stock > 0
}

// Customer is an identity row owned by the web layer
type Customer struct {
	ID        int64     `db:"id" json:"id"`
	Username  string    `db:"username" json:"username"`
	Email     string    `db:"email" json:"email"`
	IsStaff   bool      `db:"is_staff" json:"is_staff"`
	CreatedAt time.Time `db:"created_at" json:"created_at"`
}

// Cart is the per-user collection of items pending purchase
type Cart struct {
	ID        int64      `db:"id" json:"id"`
	UserID    int64      `db:"user_id" json:"user_id"`
	CreatedAt time.Time  `db:"created_at" json:"created_at"`
	Items     []CartItem `db:"-" json:"items"`
}

// TotalPrice sums quantity x current product price over all items
func (c *Cart) TotalPrice() decimal.Decimal {
	total := decimal.Zero
	for _, item := range c.Items {
		total = total.Add(item.LineTotal())
	}
	return total
}

// TotalItems sums quantities over all items
func (c *Cart) TotalItems() int {
	n := 0
	for _, item := range c.Items {
		n += item.Quantity
	}
	return n
}

// CartItem is a (cart, product) pair with quantity >= 1. Product fields are
// filled when the item is loaded joined with its product.
type CartItem struct {
	ID           int64           `db:"id" json:"id"`
	CartID       int64           `db:"cart_id" json:"cart_id"`
	ProductID    int64           `db:"product_id" json:"product_id"`
	Quantity     int             `db:"quantity" json:"quantity"`
	ProductName  string          `db:"product_name" json:"product_name,omitempty"`
	ProductPrice decimal.Decimal `db:"product_price" json:"product_price"`
	ProductStock int             `db:"product_stock" json:"product_stock"`
}

// LineTotal is quantity x current product price
func (ci CartItem) LineTotal() decimal.Decimal {
	return ci.ProductPrice.Mul(decimal.NewFromInt(int64(ci.Quantity)))
}

// Order represents a completed purchase
type Order struct {
	ID              int64           `db:"id" json:"id"`
	UserID          int64           `db:"user_id" json:"user_id"`
	TotalAmount     decimal.Decimal `db:"total_amount" json:"total_amount"`
	ShippingAddress string          `db:"shipping_address" json:"shipping_address"`
	PaymentMethod   PaymentMethod   `db:"payment_method" json:"payment_method"`
	Status          OrderStatus     `db:"status" json:"status"`
	IdempotencyKey  *string         `db:"idempotency_key" json:"-"`
	CreatedAt       time.Time       `db:"created_at" json:"created_at"`
	UpdatedAt       time.Time       `db:"updated_at" json:"updated_at"`
	Items           []OrderItem     `db:"-" json:"items,omitempty"`
}

// ItemsTotal recomputes the order total from its item snapshots
func (o *Order) ItemsTotal() decimal.Decimal {
	total := decimal.Zero
	for _, item := range o.Items {
		total = total.Add(item.LineTotal())
	}
	return total
}

// OrderItem is an immutable snapshot of a purchased product. Price is the
// unit price at the time of purchase, not a reference to Product.Price.
type OrderItem struct {
	ID          int64           `db:"id" json:"id"`
	OrderID     int64           `db:"order_id" json:"order_id"`
	ProductID   int64           `db:"product_id" json:"product_id"`
	Quantity    int             `db:"quantity" json:"quantity"`
	Price       decimal.Decimal `db:"price" json:"price"`
	ProductName string          `db:"product_name" json:"product_name,omitempty"`
}

// LineTotal is quantity x price-at-purchase
func (oi OrderItem) LineTotal() decimal.Decimal {
	return oi.Price.Mul(decimal.NewFromInt(int64(oi.Quantity)))
}

// OrderStatus is the order lifecycle state
type OrderStatus string

// Order statuses
const (
	OrderStatusPending    OrderStatus = "pending"
	OrderStatusProcessing OrderStatus = "processing"
	OrderStatusShipped    OrderStatus = "shipped"
	OrderStatusDelivered  OrderStatus = "delivered"
	OrderStatusCancelled  OrderStatus = "cancelled"
)

// OrderStatuses lists every valid status in lifecycle order
var OrderStatuses = []OrderStatus{
	OrderStatusPending,
	OrderStatusProcessing,
	OrderStatusShipped,
	OrderStatusDelivered,
	OrderStatusCancelled,
}

// Valid reports whether s is one of the enumerated statuses
func (s OrderStatus) Valid() bool {
	for _, v := range OrderStatuses {
		if s == v {
			return true
		}
	}
	return false
}

// Terminal reports whether no further transitions are allowed
func (s OrderStatus) Terminal() bool {
	return s == OrderStatusDelivered || s == OrderStatusCancelled
}

// PaymentMethod is how the customer pays
type PaymentMethod string

// Payment methods
const (
	PaymentMobileMoney    PaymentMethod = "mobile_money"
	PaymentCreditCard     PaymentMethod = "credit_card"
	PaymentDebitCard      PaymentMethod = "debit_card"
	PaymentCashOnDelivery PaymentMethod = "cash_on_delivery"
)

// RequiresCard reports whether card details must accompany the method
func (m PaymentMethod) RequiresCard() bool {
	return m == PaymentCreditCard || m == PaymentDebitCard
}

// CustomerSummary is a customer row with order aggregates for admin listing
type CustomerSummary struct {
	Customer
	OrderCount int             `db:"order_count" json:"order_count"`
	TotalSpent decimal.Decimal `db:"total_spent" json:"total_spent"`
}

// StatusCount is the number of orders in one status
type StatusCount struct {
	Status OrderStatus `db:"status" json:"status"`
	Count  int         `db:"count" json:"count"`
}

// Dashboard aggregates store-wide figures for the admin panel
type Dashboard struct {
	TotalOrders      int             `json:"total_orders"`
	OrdersByStatus   []StatusCount   `json:"orders_by_status"`
	TotalRevenue     decimal.Decimal `json:"total_revenue"`
	ProductCount     int             `json:"product_count"`
	CustomerCount    int             `json:"customer_count"`
	LowStockProducts []Product       `json:"low_stock_products"`
	RecentOrders     []Order         `json:"recent_orders"`
}

// ProcessedEvent for idempotency
type ProcessedEvent struct {
	EventID     string    `db:"event_id"`
	EventType   string    `db:"event_type"`
	ProcessedAt time.Time `db:"processed_at"`
}
