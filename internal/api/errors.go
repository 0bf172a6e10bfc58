package api

import (
	"errors"
	"fmt"
	"net/http"

	"storefront/internal/service"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// ErrorResponse is the body of every error reply
type ErrorResponse struct {
	Error   string            `json:"error"`
	Message string            `json:"message"`
	Fields  map[string]string `json:"fields,omitempty"`
}

// respondError maps service errors onto status codes. Anything unrecognised
// is logged and answered with internalMsg.
func (h *Handler) respondError(c *gin.Context, err error, internalMsg string) {
	var (
		validationErr *service.ValidationError
		stockErr      *service.InsufficientStockError
	)

	switch {
	case errors.As(err, &validationErr):
		c.JSON(http.StatusBadRequest, ErrorResponse{
			Error:   "VALIDATION_FAILED",
			Message: "Please correct the errors below.",
			Fields:  validationErr.Fields,
		})
	case errors.Is(err, service.ErrEmptyCart):
		c.JSON(http.StatusBadRequest, ErrorResponse{
			Error:   "EMPTY_CART",
			Message: "Your cart is empty.",
		})
	case errors.As(err, &stockErr):
		c.JSON(http.StatusConflict, ErrorResponse{
			Error:   "INSUFFICIENT_STOCK",
			Message: fmt.Sprintf("Only %d of %s left in stock.", stockErr.Available, stockErr.ProductName),
			Fields: map[string]string{
				"product_id": fmt.Sprint(stockErr.ProductID),
			},
		})
	case errors.Is(err, service.ErrCheckoutInProgress):
		c.JSON(http.StatusConflict, ErrorResponse{
			Error:   "CHECKOUT_IN_PROGRESS",
			Message: "Your order is already being processed.",
		})
	case errors.Is(err, service.ErrInvalidStatus):
		c.JSON(http.StatusBadRequest, ErrorResponse{
			Error:   "INVALID_STATUS",
			Message: "Invalid status.",
		})
	case errors.Is(err, service.ErrTerminalStatus):
		c.JSON(http.StatusConflict, ErrorResponse{
			Error:   "TERMINAL_STATUS",
			Message: "Delivered and cancelled orders cannot change status.",
		})
	case errors.Is(err, service.ErrUnknownCustomer):
		c.JSON(http.StatusUnauthorized, ErrorResponse{
			Error:   "UNAUTHORIZED",
			Message: "Unknown customer.",
		})
	case errors.Is(err, service.ErrNotFound):
		c.JSON(http.StatusNotFound, ErrorResponse{
			Error:   "NOT_FOUND",
			Message: "Not found.",
		})
	case errors.Is(err, service.ErrProductInUse), errors.Is(err, service.ErrCategoryInUse):
		c.JSON(http.StatusConflict, ErrorResponse{
			Error:   "IN_USE",
			Message: err.Error(),
		})
	default:
		h.logger.Error(internalMsg,
			zap.String("path", c.FullPath()),
			zap.Error(err))
		c.JSON(http.StatusInternalServerError, ErrorResponse{
			Error:   "INTERNAL",
			Message: internalMsg,
		})
	}
}

func badRequest(c *gin.Context, err error) {
	c.JSON(http.StatusBadRequest, ErrorResponse{
		Error:   "INVALID_INPUT",
		Message: "Invalid request body: " + err.Error(),
	})
}
