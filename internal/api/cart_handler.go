package api

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

type addToCartRequest struct {
	ProductID int64 `json:"product_id" form:"product_id" binding:"required"`
}

type updateCartItemRequest struct {
	Quantity *int `json:"quantity" form:"quantity" binding:"required"`
}

// getCart handles GET /cart
func (h *Handler) getCart(c *gin.Context) {
	cart, err := h.svc.Cart.GetCart(c.Request.Context(), currentUser(c))
	if err != nil {
		h.respondError(c, err, "Failed to load cart")
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"id":          cart.ID,
		"items":       cart.Items,
		"total_items": cart.TotalItems(),
		"total_price": cart.TotalPrice().StringFixed(2),
	})
}

// cartCount handles GET /cart/count
func (h *Handler) cartCount(c *gin.Context) {
	n, err := h.svc.Cart.ItemCount(c.Request.Context(), currentUser(c))
	if err != nil {
		h.respondError(c, err, "Failed to load cart")
		return
	}
	c.JSON(http.StatusOK, gin.H{"count": n})
}

// addToCart handles POST /cart/items
func (h *Handler) addToCart(c *gin.Context) {
	var req addToCartRequest
	if err := c.ShouldBind(&req); err != nil {
		badRequest(c, err)
		return
	}

	item, err := h.svc.Cart.AddToCart(c.Request.Context(), currentUser(c), req.ProductID)
	if err != nil {
		h.respondError(c, err, "Failed to add to cart")
		return
	}

	c.JSON(http.StatusCreated, gin.H{
		"item":    item,
		"message": item.ProductName + " added to cart.",
	})
}

// updateCartItem handles PUT /cart/items/:id. quantity <= 0 removes the item.
func (h *Handler) updateCartItem(c *gin.Context) {
	itemID, ok := parseID(c, "id")
	if !ok {
		return
	}

	var req updateCartItemRequest
	if err := c.ShouldBind(&req); err != nil {
		badRequest(c, err)
		return
	}

	if err := h.svc.Cart.UpdateItem(c.Request.Context(), currentUser(c), itemID, *req.Quantity); err != nil {
		h.respondError(c, err, "Failed to update cart")
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Cart updated."})
}

// removeFromCart handles DELETE /cart/items/:id
func (h *Handler) removeFromCart(c *gin.Context) {
	itemID, ok := parseID(c, "id")
	if !ok {
		return
	}

	if err := h.svc.Cart.RemoveItem(c.Request.Context(), currentUser(c), itemID); err != nil {
		h.respondError(c, err, "Failed to update cart")
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Item removed from cart."})
}
