package handlers

import (
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog/log"

	"example.com/backstage/services/orders/internal/models"
	"example.com/backstage/services/orders/internal/repositories"
	"example.com/backstage/services/orders/internal/services"
	"example.com/backstage/services/orders/internal/tracing"
)

// OrdersHandler handles order lifecycle HTTP requests
type OrdersHandler struct {
	orders       *services.OrderService
	confirmation *services.ConfirmationEngine
	tracer       tracing.Tracer
}

// NewOrdersHandler creates a new orders handler
func NewOrdersHandler(orders *services.OrderService, confirmation *services.ConfirmationEngine, tracer tracing.Tracer) *OrdersHandler {
	return &OrdersHandler{
		orders:       orders,
		confirmation: confirmation,
		tracer:       tracer,
	}
}

// ConfirmRequest carries the confirming user.
type ConfirmRequest struct {
	UserID uint `json:"user_id"`
}

// RescheduleRequest carries the new delivery date.
type RescheduleRequest struct {
	NewDate string `json:"new_date" binding:"required"`
}

// StatusRequest carries a target lifecycle state.
type StatusRequest struct {
	State  models.OrderState `json:"state" binding:"required"`
	Reason *string           `json:"reason,omitempty"`
}

// ReplaceItemsRequest carries the replacement lines.
type ReplaceItemsRequest struct {
	Items []services.ItemInput `json:"items" binding:"required"`
}

// HandleCreateOrder captures a new draft order
func (h *OrdersHandler) HandleCreateOrder(c *gin.Context) {
	txn := h.tracer.StartTransaction("api-create-order")
	defer h.tracer.EndTransaction(txn)

	var req services.CreateOrderInput
	if err := c.ShouldBindJSON(&req); err != nil {
		log.Warn().Err(err).Msg("invalid create order request")
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	order, err := h.orders.CreateDraft(c.Request.Context(), req)
	if err != nil {
		h.tracer.RecordError(txn, err)
		respondError(c, err)
		return
	}

	c.JSON(http.StatusCreated, order)
}

// HandleListOrders lists orders filtered by state, folio or delivery date
func (h *OrdersHandler) HandleListOrders(c *gin.Context) {
	filter := repositories.OrderFilter{
		State: models.OrderState(c.Query("state")),
		Folio: c.Query("folio"),
	}
	if raw := c.Query("delivery_date"); raw != "" {
		date, err := time.Parse("2006-01-02", raw)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "delivery_date must be YYYY-MM-DD"})
			return
		}
		filter.DeliveryDate = &date
	}

	orders, err := h.orders.List(c.Request.Context(), filter)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"orders": orders, "count": len(orders)})
}

// HandleGetOrder returns one order with its items
func (h *OrdersHandler) HandleGetOrder(c *gin.Context) {
	id, ok := orderID(c)
	if !ok {
		return
	}

	order, err := h.orders.Get(c.Request.Context(), id)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, order)
}

// HandleConfirmOrder confirms a draft order
func (h *OrdersHandler) HandleConfirmOrder(c *gin.Context) {
	txn := h.tracer.StartTransaction("api-confirm-order")
	defer h.tracer.EndTransaction(txn)

	id, ok := orderID(c)
	if !ok {
		return
	}

	var req ConfirmRequest
	if c.Request.ContentLength > 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
	}

	order, err := h.confirmation.Confirm(c.Request.Context(), id, req.UserID)
	if err != nil {
		h.tracer.RecordError(txn, err)
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, order)
}

// HandleRescheduleOrder moves a confirmed order to a new delivery date
func (h *OrdersHandler) HandleRescheduleOrder(c *gin.Context) {
	id, ok := orderID(c)
	if !ok {
		return
	}

	var req RescheduleRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	newDate, err := time.Parse("2006-01-02", req.NewDate)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "new_date must be YYYY-MM-DD"})
		return
	}

	order, err := h.confirmation.Reschedule(c.Request.Context(), id, newDate)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, order)
}

// HandleSetOrderStatus applies a generic state transition (the cancel path)
func (h *OrdersHandler) HandleSetOrderStatus(c *gin.Context) {
	id, ok := orderID(c)
	if !ok {
		return
	}

	var req StatusRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	order, err := h.confirmation.SetStatus(c.Request.Context(), id, req.State, req.Reason)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, order)
}

// HandleReplaceItems swaps out every item of a draft order
func (h *OrdersHandler) HandleReplaceItems(c *gin.Context) {
	id, ok := orderID(c)
	if !ok {
		return
	}

	var req ReplaceItemsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	order, err := h.orders.ReplaceItems(c.Request.Context(), id, req.Items)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, order)
}

// RegisterRoutes registers the handler's routes
func (h *OrdersHandler) RegisterRoutes(router *gin.Engine) {
	v1 := router.Group("/api/v1")
	v1.POST("/orders", h.HandleCreateOrder)
	v1.GET("/orders", h.HandleListOrders)
	v1.GET("/orders/:id", h.HandleGetOrder)
	v1.POST("/orders/:id/confirm", h.HandleConfirmOrder)
	v1.POST("/orders/:id/reschedule", h.HandleRescheduleOrder)
	v1.PATCH("/orders/:id/status", h.HandleSetOrderStatus)
	v1.PUT("/orders/:id/items", h.HandleReplaceItems)
}

func orderID(c *gin.Context) (uint, bool) {
	id, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "order id must be numeric"})
		return 0, false
	}
	return uint(id), true
}
