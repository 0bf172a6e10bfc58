package store

import (
	"context"
	"database/sql"
	"errors"
	"strings"

	"storefront/internal/models"
)

// ListCategories retrieves all categories by name
func (s *Store) ListCategories(ctx context.Context) ([]models.Category, error) {
	categories := []models.Category{}
	err := s.selectAll(ctx, &categories, "SELECT * FROM categories ORDER BY name")
	return categories, err
}

// GetCategory retrieves a category by ID
func (s *Store) GetCategory(ctx context.Context, id int64) (*models.Category, error) {
	var category models.Category
	err := s.get(ctx, &category, "SELECT * FROM categories WHERE id = $1", id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &category, nil
}

// CreateCategory inserts a category
func (s *Store) CreateCategory(ctx context.Context, category *models.Category) error {
	err := s.get(ctx, category,
		`INSERT INTO categories (name, description) VALUES ($1, $2)
		RETURNING id, created_at`,
		category.Name, category.Description)
	return translate(err)
}

// DeleteCategory deletes a category that no product references
func (s *Store) DeleteCategory(ctx context.Context, id int64) error {
	return s.execOne(ctx, "DELETE FROM categories WHERE id = $1", id)
}

// ListProducts retrieves products, optionally by category and in stock only
func (s *Store) ListProducts(ctx context.Context, filter ProductFilter) ([]models.Product, error) {
	var (
		conds []string
		args  []interface{}
	)
	if filter.CategoryID != nil {
		conds = append(conds, "category_id = ?")
		args = append(args, *filter.CategoryID)
	}
	if filter.InStockOnly {
		conds = append(conds, "stock > 0")
	}

	query := "SELECT * FROM products"
	if len(conds) > 0 {
		query += " WHERE " + strings.Join(conds, " AND ")
	}
	query += " ORDER BY id"

	products := []models.Product{}
	err := s.selectAll(ctx, &products, s.ext.Rebind(query), args...)
	return products, err
}

// GetProduct retrieves a product by ID
func (s *Store) GetProduct(ctx context.Context, id int64) (*models.Product, error) {
	var product models.Product
	err := s.get(ctx, &product, "SELECT * FROM products WHERE id = $1", id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &product, nil
}

// GetProductsByIDs retrieves multiple products by IDs
func (s *Store) GetProductsByIDs(ctx context.Context, ids []int64) ([]models.Product, error) {
	if len(ids) == 0 {
		return []models.Product{}, nil
	}

	query, args, err := s.in("SELECT * FROM products WHERE id IN (?) ORDER BY id", ids)
	if err != nil {
		return nil, err
	}

	var products []models.Product
	err = s.selectAll(ctx, &products, query, args...)
	return products, err
}

// CreateProduct inserts a product
func (s *Store) CreateProduct(ctx context.Context, product *models.Product) error {
	err := s.get(ctx, product,
		`INSERT INTO products (category_id, name, description, price, stock)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING id, created_at, updated_at`,
		product.CategoryID, product.Name, product.Description, product.Price, product.Stock)
	return translate(err)
}

// UpdateProduct overwrites the editable product fields
func (s *Store) UpdateProduct(ctx context.Context, product *models.Product) error {
	err := s.get(ctx, product,
		`UPDATE products
		SET category_id = $1, name = $2, description = $3, price = $4, stock = $5, updated_at = NOW()
		WHERE id = $6
		RETURNING created_at, updated_at`,
		product.CategoryID, product.Name, product.Description, product.Price, product.Stock, product.ID)
	if errors.Is(err, sql.ErrNoRows) {
		return ErrNotFound
	}
	return translate(err)
}

// DeleteProduct deletes a product no order item references
func (s *Store) DeleteProduct(ctx context.Context, id int64) error {
	return s.execOne(ctx, "DELETE FROM products WHERE id = $1", id)
}

// LockProducts selects products FOR UPDATE in id order. Must run inside WithTx.
func (s *Store) LockProducts(ctx context.Context, ids []int64) ([]models.Product, error) {
	if len(ids) == 0 {
		return []models.Product{}, nil
	}

	query, args, err := s.in("SELECT * FROM products WHERE id IN (?) ORDER BY id FOR UPDATE", ids)
	if err != nil {
		return nil, err
	}

	var products []models.Product
	err = s.selectAll(ctx, &products, query, args...)
	return products, err
}

// DecrementStock subtracts quantity only while stock covers it
func (s *Store) DecrementStock(ctx context.Context, productID int64, quantity int) error {
	err := s.execOne(ctx,
		"UPDATE products SET stock = stock - $1, updated_at = NOW() WHERE id = $2 AND stock >= $1",
		quantity, productID)
	if errors.Is(err, ErrNotFound) {
		return ErrInsufficientStock
	}
	return err
}

// ListLowStockProducts retrieves products with stock at or below threshold
func (s *Store) ListLowStockProducts(ctx context.Context, threshold int) ([]models.Product, error) {
	products := []models.Product{}
	err := s.selectAll(ctx, &products,
		"SELECT * FROM products WHERE stock <= $1 ORDER BY stock, id", threshold)
	return products, err
}

// CountProducts counts catalog products
func (s *Store) CountProducts(ctx context.Context) (int, error) {
	var n int
	err := s.get(ctx, &n, "SELECT COUNT(*) FROM products")
	return n, err
}

// CreateCustomer inserts a customer
func (s *Store) CreateCustomer(ctx context.Context, customer *models.Customer) error {
	err := s.get(ctx, customer,
		`INSERT INTO customers (username, email, is_staff) VALUES ($1, $2, $3)
		RETURNING id, created_at`,
		customer.Username, customer.Email, customer.IsStaff)
	return translate(err)
}

// GetCustomer retrieves a customer by ID
func (s *Store) GetCustomer(ctx context.Context, id int64) (*models.Customer, error) {
	var customer models.Customer
	err := s.get(ctx, &customer, "SELECT * FROM customers WHERE id = $1", id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &customer, nil
}

// ListCustomerSummaries retrieves customers with order count and spend
func (s *Store) ListCustomerSummaries(ctx context.Context) ([]models.CustomerSummary, error) {
	summaries := []models.CustomerSummary{}
	err := s.selectAll(ctx, &summaries, `
		SELECT c.id, c.username, c.email, c.is_staff, c.created_at,
			COUNT(o.id) AS order_count,
			COALESCE(SUM(o.total_amount), 0) AS total_spent
		FROM customers c
		LEFT JOIN orders o ON o.user_id = c.id
		GROUP BY c.id
		ORDER BY c.id`)
	return summaries, err
}

// CountCustomers counts customers
func (s *Store) CountCustomers(ctx context.Context) (int, error) {
	var n int
	err := s.get(ctx, &n, "SELECT COUNT(*) FROM customers")
	return n, err
}
