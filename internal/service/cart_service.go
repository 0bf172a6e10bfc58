package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"storefront/internal/models"
	"storefront/internal/store"
	"storefront/internal/util"

	"go.uber.org/zap"
)

// CartService handles cart mutations for the signed-in customer
type CartService struct {
	repo     store.Repository
	cache    CartCountCache
	cacheTTL time.Duration
	logger   *zap.Logger
}

// NewCartService creates a new cart service. cache may be nil.
func NewCartService(repo store.Repository, cache CartCountCache, cacheTTL time.Duration) *CartService {
	return &CartService{
		repo:     repo,
		cache:    cache,
		cacheTTL: cacheTTL,
		logger:   util.GetLogger(),
	}
}

// userCart loads the user's cart. A user with no customer record cannot own one.
func userCart(ctx context.Context, repo store.Repository, userID int64) (*models.Cart, error) {
	cart, err := repo.GetOrCreateCart(ctx, userID)
	if errors.Is(err, store.ErrReferenced) {
		return nil, ErrUnknownCustomer
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get cart: %w", err)
	}
	return cart, nil
}

// GetCart returns the user's cart with items and current product prices,
// creating an empty cart on first access.
func (s *CartService) GetCart(ctx context.Context, userID int64) (cart *models.Cart, err error) {
	ctx, span := util.StartSpan(ctx, "CartService.GetCart")
	defer func() { util.EndSpan(span, err) }()

	cart, err = userCart(ctx, s.repo, userID)
	if err != nil {
		return nil, err
	}

	cart.Items, err = s.repo.ListCartItems(ctx, cart.ID)
	if err != nil {
		return nil, fmt.Errorf("failed to list cart items: %w", err)
	}
	return cart, nil
}

// AddToCart adds one unit of the product. A product already in the cart has
// its quantity incremented.
func (s *CartService) AddToCart(ctx context.Context, userID, productID int64) (item *models.CartItem, err error) {
	ctx, span := util.StartSpan(ctx, "CartService.AddToCart")
	defer func() { util.EndSpan(span, err) }()

	product, err := s.repo.GetProduct(ctx, productID)
	if err != nil {
		return nil, notFound(err)
	}

	cart, err := userCart(ctx, s.repo, userID)
	if err != nil {
		return nil, err
	}

	item, err = s.repo.AddCartItem(ctx, cart.ID, product.ID)
	if errors.Is(err, store.ErrReferenced) {
		// deleted between the lookup and the insert
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to add cart item: %w", err)
	}

	item.ProductName = product.Name
	item.ProductPrice = product.Price
	item.ProductStock = product.Stock

	s.invalidateCount(ctx, userID)
	util.CartMutationsTotal.WithLabelValues("add").Inc()
	s.logger.Info("Added to cart",
		zap.Int64("user_id", userID),
		zap.Int64("product_id", productID),
		zap.Int("quantity", item.Quantity))
	return item, nil
}

// UpdateItem sets an explicit quantity up to MaxCartItemQuantity. A quantity
// <= 0 removes the item. Items outside the user's cart are reported as not found.
func (s *CartService) UpdateItem(ctx context.Context, userID, itemID int64, quantity int) (err error) {
	ctx, span := util.StartSpan(ctx, "CartService.UpdateItem")
	defer func() { util.EndSpan(span, err) }()

	if fields := validateStruct(cartQuantity{Quantity: quantity}); fields != nil {
		return &ValidationError{Fields: fields}
	}

	item, err := s.repo.GetCartItemForUser(ctx, userID, itemID)
	if err != nil {
		return notFound(err)
	}

	op := "update"
	if quantity <= 0 {
		op = "remove"
		err = s.repo.DeleteCartItem(ctx, item.ID)
	} else {
		err = s.repo.SetCartItemQuantity(ctx, item.ID, quantity)
	}
	if err != nil {
		return notFound(err)
	}

	s.invalidateCount(ctx, userID)
	util.CartMutationsTotal.WithLabelValues(op).Inc()
	return nil
}

// RemoveItem deletes an item from the user's cart
func (s *CartService) RemoveItem(ctx context.Context, userID, itemID int64) (err error) {
	ctx, span := util.StartSpan(ctx, "CartService.RemoveItem")
	defer func() { util.EndSpan(span, err) }()

	item, err := s.repo.GetCartItemForUser(ctx, userID, itemID)
	if err != nil {
		return notFound(err)
	}
	if err := s.repo.DeleteCartItem(ctx, item.ID); err != nil {
		return notFound(err)
	}

	s.invalidateCount(ctx, userID)
	util.CartMutationsTotal.WithLabelValues("remove").Inc()
	return nil
}

// ItemCount returns the total quantity in the user's cart, served from cache when possible
func (s *CartService) ItemCount(ctx context.Context, userID int64) (int, error) {
	if s.cache != nil {
		count, ok, err := s.cache.GetCartCount(ctx, userID)
		if err != nil {
			s.logger.Warn("Cart count cache read failed", zap.Error(err))
		} else if ok {
			return count, nil
		}
	}

	cart, err := s.GetCart(ctx, userID)
	if err != nil {
		return 0, err
	}
	count := cart.TotalItems()

	if s.cache != nil {
		if err := s.cache.SetCartCount(ctx, userID, count, s.cacheTTL); err != nil {
			s.logger.Warn("Cart count cache write failed", zap.Error(err))
		}
	}
	return count, nil
}

func (s *CartService) invalidateCount(ctx context.Context, userID int64) {
	if s.cache == nil {
		return
	}
	if err := s.cache.InvalidateCartCount(ctx, userID); err != nil {
		s.logger.Warn("Failed to invalidate cart count",
			zap.Int64("user_id", userID),
			zap.Error(err))
	}
}
