package api

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strconv"
	"time"

	"storefront-service/internal/broadcast"
	"storefront-service/internal/models"
	"storefront-service/internal/service"
	"storefront-service/internal/util"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Handler contains HTTP handlers
type Handler struct {
	orderService     *service.OrderService
	cartService      *service.CartService
	inventoryService *service.InventoryService
	shipmentService  *service.ShipmentService
	hub              *broadcast.Hub
	sessionBuffer    int
}

// NewHandler creates a new HTTP handler
func NewHandler(
	orderService *service.OrderService,
	cartService *service.CartService,
	inventoryService *service.InventoryService,
	shipmentService *service.ShipmentService,
	hub *broadcast.Hub,
	sessionBuffer int,
) *Handler {
	return &Handler{
		orderService:     orderService,
		cartService:      cartService,
		inventoryService: inventoryService,
		shipmentService:  shipmentService,
		hub:              hub,
		sessionBuffer:    sessionBuffer,
	}
}

// SetupRoutes sets up HTTP routes
func (h *Handler) SetupRoutes(router *gin.Engine) {
	router.Use(gin.Recovery())
	router.Use(prometheusMiddleware())
	router.Use(gin.Logger())

	router.GET("/health", h.healthCheck)
	router.GET("/ready", h.readinessCheck)

	router.GET("/metrics", gin.WrapH(promhttp.Handler()))

	v1 := router.Group("/api/v1")
	{
		v1.POST("/orders", h.placeOrder)
		v1.GET("/orders/:id", h.getOrder)
		v1.PATCH("/orders/:id/status", h.updateOrderStatus)
		v1.GET("/orders/:id/shipment", h.getOrderShipment)
		v1.GET("/tracking/:trackingNumber", h.trackOrder)

		v1.GET("/users/:id/orders", h.listUserOrders)
		v1.GET("/users/:id/cart", h.getCart)
		v1.POST("/users/:id/cart/items", h.addCartItem)
		v1.PUT("/users/:id/cart/items/:productId", h.setCartItemQuantity)
		v1.DELETE("/users/:id/cart/items/:productId", h.removeCartItem)
		v1.DELETE("/users/:id/cart", h.clearCart)

		v1.GET("/products/:id/stock", h.getStock)
		v1.PUT("/products/:id/stock", h.adjustStock)
		v1.GET("/products/:id/transactions", h.listInventoryTransactions)
		v1.GET("/products/sku/:sku", h.getProductBySKU)
		v1.GET("/inventory/low-stock", h.listLowStockProducts)

		v1.GET("/shipments/:id", h.getShipment)
		v1.PATCH("/shipments/:id/status", h.updateShipment)

		v1.GET("/events/stream", h.streamEvents)
	}
}

// healthCheck handles health check requests
func (h *Handler) healthCheck(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status": "healthy",
		"time":   time.Now().Unix(),
	})
}

// readinessCheck handles readiness check requests
func (h *Handler) readinessCheck(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status": "ready",
		"time":   time.Now().Unix(),
	})
}

// respondError maps domain errors to HTTP statuses. Validation and
// insufficient-stock conditions are caller-correctable 400s; conflicts ask
// the caller to resubmit; anything else is a generic 500 without internal
// detail.
func respondError(c *gin.Context, err error) {
	var (
		validationErr *models.ValidationError
		notFoundErr   *models.NotFoundError
		stockErr      *models.InsufficientStockError
		conflictErr   *models.ConflictError
	)
	switch {
	case errors.As(err, &validationErr):
		c.JSON(http.StatusBadRequest, gin.H{"error": "validation_error", "details": validationErr.Error()})
	case errors.As(err, &stockErr):
		c.JSON(http.StatusBadRequest, gin.H{
			"error":     "insufficient_stock",
			"details":   stockErr.Error(),
			"product":   stockErr.ProductName,
			"requested": stockErr.Requested,
			"available": stockErr.Available,
		})
	case errors.As(err, &notFoundErr):
		c.JSON(http.StatusNotFound, gin.H{"error": "not_found", "details": notFoundErr.Error()})
	case errors.As(err, &conflictErr):
		c.JSON(http.StatusConflict, gin.H{"error": "conflict", "details": "concurrent update, please retry"})
	default:
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal_error"})
	}
}

func pathID(c *gin.Context, name string) (int64, bool) {
	id, err := strconv.ParseInt(c.Param(name), 10, 64)
	if err != nil || id <= 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "validation_error", "details": "invalid " + name})
		return 0, false
	}
	return id, true
}

// placeOrder handles order placement
func (h *Handler) placeOrder(c *gin.Context) {
	var req service.PlaceOrderRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "validation_error", "details": err.Error()})
		return
	}

	resp, err := h.orderService.PlaceOrder(c.Request.Context(), &req)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, resp)
}

// getOrder handles get order by ID
func (h *Handler) getOrder(c *gin.Context) {
	orderID, ok := pathID(c, "id")
	if !ok {
		return
	}

	order, items, err := h.orderService.GetOrder(c.Request.Context(), orderID)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"order": order, "items": items})
}

// updateOrderStatus handles admin order lifecycle updates
func (h *Handler) updateOrderStatus(c *gin.Context) {
	orderID, ok := pathID(c, "id")
	if !ok {
		return
	}

	var req struct {
		Status string `json:"status" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "validation_error", "details": err.Error()})
		return
	}

	order, err := h.orderService.UpdateOrderStatus(c.Request.Context(), orderID, req.Status)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, order)
}

// trackOrder handles customer-facing tracking lookup
func (h *Handler) trackOrder(c *gin.Context) {
	order, err := h.orderService.GetOrderByTrackingNumber(c.Request.Context(), c.Param("trackingNumber"))
	if err != nil {
		respondError(c, err)
		return
	}

	shipment, err := h.shipmentService.GetShipmentForOrder(c.Request.Context(), order.ID)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"order": order, "shipment": shipment})
}

// listUserOrders handles a user's order dashboard
func (h *Handler) listUserOrders(c *gin.Context) {
	userID, ok := pathID(c, "id")
	if !ok {
		return
	}

	orders, err := h.orderService.ListUserOrders(c.Request.Context(), userID)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"orders": orders})
}

// getCart returns the user's cart lines
func (h *Handler) getCart(c *gin.Context) {
	userID, ok := pathID(c, "id")
	if !ok {
		return
	}

	lines, err := h.cartService.GetLines(c.Request.Context(), userID)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"lines": lines})
}

// addCartItem adds or increments a cart line
func (h *Handler) addCartItem(c *gin.Context) {
	userID, ok := pathID(c, "id")
	if !ok {
		return
	}

	var req struct {
		ProductID int64 `json:"product_id" binding:"required"`
		Quantity  int   `json:"quantity" binding:"required,min=1"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "validation_error", "details": err.Error()})
		return
	}

	line, err := h.cartService.AddOrIncrement(c.Request.Context(), userID, req.ProductID, req.Quantity)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, line)
}

// setCartItemQuantity overwrites a line's quantity; zero or below removes it
func (h *Handler) setCartItemQuantity(c *gin.Context) {
	userID, ok := pathID(c, "id")
	if !ok {
		return
	}
	productID, ok := pathID(c, "productId")
	if !ok {
		return
	}

	var req struct {
		Quantity int `json:"quantity"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "validation_error", "details": err.Error()})
		return
	}

	line, err := h.cartService.SetQuantity(c.Request.Context(), userID, productID, req.Quantity)
	if err != nil {
		respondError(c, err)
		return
	}
	if line == nil {
		c.JSON(http.StatusOK, gin.H{"removed": true, "product_id": productID})
		return
	}
	c.JSON(http.StatusOK, line)
}

// removeCartItem deletes one cart line
func (h *Handler) removeCartItem(c *gin.Context) {
	userID, ok := pathID(c, "id")
	if !ok {
		return
	}
	productID, ok := pathID(c, "productId")
	if !ok {
		return
	}

	if err := h.cartService.Remove(c.Request.Context(), userID, productID); err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"removed": true, "product_id": productID})
}

// clearCart wipes the user's cart
func (h *Handler) clearCart(c *gin.Context) {
	userID, ok := pathID(c, "id")
	if !ok {
		return
	}

	if err := h.cartService.Clear(c.Request.Context(), userID); err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"cleared": true})
}

// getStock returns the live stock quantity for a product
func (h *Handler) getStock(c *gin.Context) {
	productID, ok := pathID(c, "id")
	if !ok {
		return
	}

	stock, err := h.inventoryService.GetStock(c.Request.Context(), productID)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"product_id": productID, "stock_quantity": stock})
}

// getProductBySKU resolves a product by its warehouse SKU
func (h *Handler) getProductBySKU(c *gin.Context) {
	product, err := h.inventoryService.GetProductBySKU(c.Request.Context(), c.Param("sku"))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, product)
}

// adjustStock handles admin restock/adjustment
func (h *Handler) adjustStock(c *gin.Context) {
	productID, ok := pathID(c, "id")
	if !ok {
		return
	}

	var req struct {
		Quantity int    `json:"quantity"`
		Reason   string `json:"reason" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "validation_error", "details": err.Error()})
		return
	}

	actor := models.SystemActor
	if v := c.GetHeader("X-Actor-ID"); v != "" {
		if parsed, err := strconv.ParseInt(v, 10, 64); err == nil {
			actor = parsed
		}
	}

	product, err := h.inventoryService.AdjustStock(c.Request.Context(), productID, req.Quantity, req.Reason, actor)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, product)
}

// listInventoryTransactions returns the audit trail for a product
func (h *Handler) listInventoryTransactions(c *gin.Context) {
	productID, ok := pathID(c, "id")
	if !ok {
		return
	}

	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "50"))
	rows, err := h.inventoryService.GetTransactions(c.Request.Context(), productID, limit)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"transactions": rows})
}

// listLowStockProducts returns products at or below their reorder threshold
func (h *Handler) listLowStockProducts(c *gin.Context) {
	products, err := h.inventoryService.GetLowStockProducts(c.Request.Context())
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"products": products})
}

// getShipment returns one shipment
func (h *Handler) getShipment(c *gin.Context) {
	shipmentID, ok := pathID(c, "id")
	if !ok {
		return
	}

	shipment, err := h.shipmentService.GetShipment(c.Request.Context(), shipmentID)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, shipment)
}

// updateShipment handles admin shipment lifecycle updates
func (h *Handler) updateShipment(c *gin.Context) {
	shipmentID, ok := pathID(c, "id")
	if !ok {
		return
	}

	var req service.UpdateShipmentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "validation_error", "details": err.Error()})
		return
	}

	shipment, err := h.shipmentService.UpdateShipment(c.Request.Context(), shipmentID, &req)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, shipment)
}

// getOrderShipment returns the shipment for an order
func (h *Handler) getOrderShipment(c *gin.Context) {
	orderID, ok := pathID(c, "id")
	if !ok {
		return
	}

	shipment, err := h.shipmentService.GetShipmentForOrder(c.Request.Context(), orderID)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, shipment)
}

// streamEvents attaches an SSE session to the broadcast hub. The session
// lives until the client disconnects; events it is too slow to drain are
// dropped, never queued unboundedly.
func (h *Handler) streamEvents(c *gin.Context) {
	userID, err := strconv.ParseInt(c.Query("user_id"), 10, 64)
	if err != nil || userID <= 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "validation_error", "details": "invalid user_id"})
		return
	}
	role := c.DefaultQuery("role", models.RoleCustomer)

	session := broadcast.NewSession(userID, role, h.sessionBuffer)
	h.hub.Connect(session)
	defer h.hub.Disconnect(session.ID)

	c.Writer.Header().Set("Content-Type", "text/event-stream")
	c.Writer.Header().Set("Cache-Control", "no-cache")
	c.Writer.Header().Set("Connection", "keep-alive")

	c.Stream(func(w io.Writer) bool {
		select {
		case env, open := <-session.Events():
			if !open {
				return false
			}
			c.SSEvent(env.EventType, json.RawMessage(env.Payload))
			return true
		case <-c.Request.Context().Done():
			return false
		}
	})
}

// prometheusMiddleware collects HTTP metrics
func prometheusMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()

		c.Next()

		duration := time.Since(start).Seconds()
		status := strconv.Itoa(c.Writer.Status())

		util.HTTPRequestDuration.WithLabelValues(
			c.Request.Method,
			c.FullPath(),
			status,
		).Observe(duration)

		util.HTTPRequestsTotal.WithLabelValues(
			c.Request.Method,
			c.FullPath(),
			status,
		).Inc()
	}
}
