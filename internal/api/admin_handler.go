package api

import (
	"net/http"
	"strconv"

	"storefront/internal/service"

	"github.com/gin-gonic/gin"
)

type statusRequest struct {
	Status string `json:"status" form:"status" binding:"required"`
}

func (h *Handler) dashboard(c *gin.Context) {
	dash, err := h.svc.Admin.Dashboard(c.Request.Context())
	if err != nil {
		h.respondError(c, err, "Failed to load dashboard")
		return
	}
	c.JSON(http.StatusOK, dash)
}

// listProducts handles GET /admin/products?category_id=&in_stock=
func (h *Handler) listProducts(c *gin.Context) {
	var categoryID *int64
	if raw := c.Query("category_id"); raw != "" {
		id, err := strconv.ParseInt(raw, 10, 64)
		if err != nil {
			c.JSON(http.StatusBadRequest, ErrorResponse{Error: "INVALID_INPUT", Message: "Invalid category_id"})
			return
		}
		categoryID = &id
	}
	var inStock bool
	if raw := c.Query("in_stock"); raw != "" {
		v, err := strconv.ParseBool(raw)
		if err != nil {
			c.JSON(http.StatusBadRequest, ErrorResponse{Error: "INVALID_INPUT", Message: "Invalid in_stock"})
			return
		}
		inStock = v
	}

	products, err := h.svc.Catalog.ListProducts(c.Request.Context(), categoryID, inStock)
	if err != nil {
		h.respondError(c, err, "Failed to list products")
		return
	}
	c.JSON(http.StatusOK, products)
}

func (h *Handler) createProduct(c *gin.Context) {
	var in service.ProductInput
	if err := c.ShouldBindJSON(&in); err != nil {
		badRequest(c, err)
		return
	}

	product, err := h.svc.Catalog.CreateProduct(c.Request.Context(), in)
	if err != nil {
		h.respondError(c, err, "Failed to create product")
		return
	}
	c.JSON(http.StatusCreated, product)
}

func (h *Handler) updateProduct(c *gin.Context) {
	id, ok := parseID(c, "id")
	if !ok {
		return
	}

	var in service.ProductInput
	if err := c.ShouldBindJSON(&in); err != nil {
		badRequest(c, err)
		return
	}

	product, err := h.svc.Catalog.UpdateProduct(c.Request.Context(), id, in)
	if err != nil {
		h.respondError(c, err, "Failed to update product")
		return
	}
	c.JSON(http.StatusOK, product)
}

func (h *Handler) deleteProduct(c *gin.Context) {
	id, ok := parseID(c, "id")
	if !ok {
		return
	}

	if err := h.svc.Catalog.DeleteProduct(c.Request.Context(), id); err != nil {
		h.respondError(c, err, "Failed to delete product")
		return
	}
	c.Status(http.StatusNoContent)
}

func (h *Handler) listCategories(c *gin.Context) {
	categories, err := h.svc.Catalog.ListCategories(c.Request.Context())
	if err != nil {
		h.respondError(c, err, "Failed to list categories")
		return
	}
	c.JSON(http.StatusOK, categories)
}

func (h *Handler) createCategory(c *gin.Context) {
	var in service.CategoryInput
	if err := c.ShouldBindJSON(&in); err != nil {
		badRequest(c, err)
		return
	}

	category, err := h.svc.Catalog.CreateCategory(c.Request.Context(), in)
	if err != nil {
		h.respondError(c, err, "Failed to create category")
		return
	}
	c.JSON(http.StatusCreated, category)
}

func (h *Handler) deleteCategory(c *gin.Context) {
	id, ok := parseID(c, "id")
	if !ok {
		return
	}

	if err := h.svc.Catalog.DeleteCategory(c.Request.Context(), id); err != nil {
		h.respondError(c, err, "Failed to delete category")
		return
	}
	c.Status(http.StatusNoContent)
}

func (h *Handler) listCustomers(c *gin.Context) {
	customers, err := h.svc.Admin.ListCustomers(c.Request.Context())
	if err != nil {
		h.respondError(c, err, "Failed to list customers")
		return
	}
	c.JSON(http.StatusOK, customers)
}

func (h *Handler) customerOrders(c *gin.Context) {
	id, ok := parseID(c, "id")
	if !ok {
		return
	}

	orders, err := h.svc.Orders.ListOrdersForCustomer(c.Request.Context(), id)
	if err != nil {
		h.respondError(c, err, "Failed to list orders")
		return
	}
	c.JSON(http.StatusOK, orders)
}

// listOrders handles GET /admin/orders?status=
func (h *Handler) listOrders(c *gin.Context) {
	orders, err := h.svc.Orders.ListOrders(c.Request.Context(), c.Query("status"))
	if err != nil {
		h.respondError(c, err, "Failed to list orders")
		return
	}
	c.JSON(http.StatusOK, orders)
}

// adminGetOrder handles GET /admin/orders/:id for any customer's order
func (h *Handler) adminGetOrder(c *gin.Context) {
	id, ok := parseID(c, "id")
	if !ok {
		return
	}

	order, err := h.svc.Orders.GetOrder(c.Request.Context(), id)
	if err != nil {
		h.respondError(c, err, "Failed to get order")
		return
	}
	c.JSON(http.StatusOK, order)
}

// updateOrderStatus handles PUT /admin/orders/:id/status
func (h *Handler) updateOrderStatus(c *gin.Context) {
	id, ok := parseID(c, "id")
	if !ok {
		return
	}

	var req statusRequest
	if err := c.ShouldBind(&req); err != nil {
		badRequest(c, err)
		return
	}

	order, err := h.svc.Orders.UpdateStatus(c.Request.Context(), id, req.Status)
	if err != nil {
		h.respondError(c, err, "Failed to update order status")
		return
	}
	c.JSON(http.StatusOK, order)
}
