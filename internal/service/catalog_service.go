package service

import (
	"context"
	"errors"
	"fmt"

	"storefront/internal/models"
	"storefront/internal/store"
	"storefront/internal/util"

	"go.uber.org/zap"
)

// CatalogService manages categories and products
type CatalogService struct {
	repo   store.Repository
	logger *zap.Logger
}

// NewCatalogService creates a new catalog service
func NewCatalogService(repo store.Repository) *CatalogService {
	return &CatalogService{repo: repo, logger: util.GetLogger()}
}

func (s *CatalogService) ListCategories(ctx context.Context) ([]models.Category, error) {
	return s.repo.ListCategories(ctx)
}

func (s *CatalogService) CreateCategory(ctx context.Context, in CategoryInput) (*models.Category, error) {
	if err := in.Validate(); err != nil {
		return nil, err
	}

	category := &models.Category{Name: in.Name, Description: in.Description}
	err := s.repo.CreateCategory(ctx, category)
	if errors.Is(err, store.ErrDuplicate) {
		return nil, &ValidationError{Fields: map[string]string{
			"name": "Category with this name already exists.",
		}}
	}
	if err != nil {
		return nil, fmt.Errorf("failed to create category: %w", err)
	}

	s.logger.Info("Category created", zap.Int64("category_id", category.ID), zap.String("name", category.Name))
	return category, nil
}

// DeleteCategory deletes a category with no products
func (s *CatalogService) DeleteCategory(ctx context.Context, id int64) error {
	err := s.repo.DeleteCategory(ctx, id)
	if errors.Is(err, store.ErrReferenced) {
		return ErrCategoryInUse
	}
	return notFound(err)
}

// ListProducts lists products, optionally restricted to one category and to
// products in stock. A missing category is reported as not found.
func (s *CatalogService) ListProducts(ctx context.Context, categoryID *int64, inStockOnly bool) ([]models.Product, error) {
	if categoryID != nil {
		if _, err := s.repo.GetCategory(ctx, *categoryID); err != nil {
			return nil, notFound(err)
		}
	}
	return s.repo.ListProducts(ctx, store.ProductFilter{CategoryID: categoryID, InStockOnly: inStockOnly})
}

func (s *CatalogService) GetProduct(ctx context.Context, id int64) (*models.Product, error) {
	product, err := s.repo.GetProduct(ctx, id)
	if err != nil {
		return nil, notFound(err)
	}
	return product, nil
}

func (s *CatalogService) CreateProduct(ctx context.Context, in ProductInput) (*models.Product, error) {
	if err := in.Validate(); err != nil {
		return nil, err
	}

	product := &models.Product{
		CategoryID:  in.CategoryID,
		Name:        in.Name,
		Description: in.Description,
		Price:       in.Price,
		Stock:       in.Stock,
	}
	err := s.repo.CreateProduct(ctx, product)
	if errors.Is(err, store.ErrReferenced) {
		return nil, unknownCategory()
	}
	if err != nil {
		return nil, fmt.Errorf("failed to create product: %w", err)
	}

	s.logger.Info("Product created", zap.Int64("product_id", product.ID), zap.String("name", product.Name))
	return product, nil
}

func (s *CatalogService) UpdateProduct(ctx context.Context, id int64, in ProductInput) (*models.Product, error) {
	if err := in.Validate(); err != nil {
		return nil, err
	}

	product := &models.Product{
		ID:          id,
		CategoryID:  in.CategoryID,
		Name:        in.Name,
		Description: in.Description,
		Price:       in.Price,
		Stock:       in.Stock,
	}
	err := s.repo.UpdateProduct(ctx, product)
	if errors.Is(err, store.ErrReferenced) {
		return nil, unknownCategory()
	}
	if err != nil {
		return nil, notFound(err)
	}

	s.logger.Info("Product updated", zap.Int64("product_id", id), zap.Int("stock", product.Stock))
	return product, nil
}

// DeleteProduct deletes a product that no order references. Cart lines
// holding it go with it.
func (s *CatalogService) DeleteProduct(ctx context.Context, id int64) error {
	err := s.repo.DeleteProduct(ctx, id)
	if errors.Is(err, store.ErrReferenced) {
		return ErrProductInUse
	}
	if err != nil {
		return notFound(err)
	}
	s.logger.Info("Product deleted", zap.Int64("product_id", id))
	return nil
}

func unknownCategory() error {
	return &ValidationError{Fields: map[string]string{
		"category_id": "Select a valid choice. That choice is not one of the available choices.",
	}}
}
