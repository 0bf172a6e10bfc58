package service

import (
	"errors"
	"fmt"
	"sort"
	"strings"

	"storefront/internal/store"
)

var (
	ErrEmptyCart          = errors.New("cart is empty")
	ErrNotFound           = errors.New("not found")
	ErrInvalidStatus      = errors.New("invalid order status")
	ErrTerminalStatus     = errors.New("order status can no longer change")
	ErrCheckoutInProgress = errors.New("checkout already in progress")
	ErrCheckoutFailed     = errors.New("failed to process order")
	ErrProductInUse       = errors.New("product is referenced by existing orders")
	ErrCategoryInUse      = errors.New("category still has products")
	ErrUnknownCustomer    = errors.New("unknown customer")
)

// ValidationError carries field-level messages keyed by the submitted field name
type ValidationError struct {
	Fields map[string]string
}

func (e *ValidationError) Error() string {
	keys := make([]string, 0, len(e.Fields))
	for k := range e.Fields {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	parts := make([]string, 0, len(keys))
	for _, k := range keys {
		parts = append(parts, fmt.Sprintf("%s: %s", k, e.Fields[k]))
	}
	return "validation failed: " + strings.Join(parts, "; ")
}

// InsufficientStockError reports the first cart line stock could not cover
type InsufficientStockError struct {
	ProductID   int64
	ProductName string
	Requested   int
	Available   int
}

func (e *InsufficientStockError) Error() string {
	return fmt.Sprintf("insufficient stock for %q: requested %d, available %d",
		e.ProductName, e.Requested, e.Available)
}

// notFound maps store.ErrNotFound onto ErrNotFound and passes anything else through
func notFound(err error) error {
	if errors.Is(err, store.ErrNotFound) {
		return ErrNotFound
	}
	return err
}
