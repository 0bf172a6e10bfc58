package api

import (
	"net/http"

	"storefront/internal/service"

	"github.com/gin-gonic/gin"
)

// checkout handles POST /checkout. The body is the shipping and payment
// form; an optional Idempotency-Key header makes retries safe.
func (h *Handler) checkout(c *gin.Context) {
	var form service.CheckoutForm
	if err := c.ShouldBind(&form); err != nil {
		badRequest(c, err)
		return
	}

	order, err := h.svc.Checkout.Checkout(
		c.Request.Context(),
		currentUser(c),
		form,
		c.GetHeader("Idempotency-Key"),
	)
	if err != nil {
		h.respondError(c, err, "Failed to process order")
		return
	}

	c.JSON(http.StatusCreated, gin.H{
		"order_id": order.ID,
		"order":    order,
	})
}

// getOrder handles GET /orders/:id for the order's owner
func (h *Handler) getOrder(c *gin.Context) {
	orderID, ok := parseID(c, "id")
	if !ok {
		return
	}

	order, err := h.svc.Orders.GetOrderForUser(c.Request.Context(), currentUser(c), orderID)
	if err != nil {
		h.respondError(c, err, "Failed to load order")
		return
	}
	c.JSON(http.StatusOK, order)
}
