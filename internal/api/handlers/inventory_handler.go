package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"example.com/backstage/services/orders/internal/services"
	"example.com/backstage/services/orders/internal/tracing"
)

// InventoryHandler handles warehouse ledger HTTP requests
type InventoryHandler struct {
	inventory *services.InventoryService
	tracer    tracing.Tracer
}

// NewInventoryHandler creates a new inventory handler
func NewInventoryHandler(inventory *services.InventoryService, tracer tracing.Tracer) *InventoryHandler {
	return &InventoryHandler{
		inventory: inventory,
		tracer:    tracer,
	}
}

// HandleListHunucma returns the unit-denominated ledger
func (h *InventoryHandler) HandleListHunucma(c *gin.Context) {
	rows, err := h.inventory.ListHunucma(c.Request.Context())
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"inventory": rows, "count": len(rows)})
}

// HandleListZelma returns the box-denominated ledger
func (h *InventoryHandler) HandleListZelma(c *gin.Context) {
	rows, err := h.inventory.ListZelma(c.Request.Context())
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"inventory": rows, "count": len(rows)})
}

// HandleAdjust applies a manual stock correction
func (h *InventoryHandler) HandleAdjust(c *gin.Context) {
	txn := h.tracer.StartTransaction("api-adjust-inventory")
	defer h.tracer.EndTransaction(txn)

	var req services.AdjustInput
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	result, err := h.inventory.Adjust(c.Request.Context(), req)
	if err != nil {
		h.tracer.RecordError(txn, err)
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, result)
}

// RegisterRoutes registers the handler's routes
func (h *InventoryHandler) RegisterRoutes(router *gin.Engine) {
	v1 := router.Group("/api/v1")
	v1.GET("/inventory/hunucma", h.HandleListHunucma)
	v1.GET("/inventory/zelma", h.HandleListZelma)
	v1.POST("/inventory/adjust", h.HandleAdjust)
}
