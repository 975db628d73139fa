package handlers

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"example.com/backstage/services/orders/internal/services"
	"example.com/backstage/services/orders/internal/tracing"
)

// OperationsHandler exposes the batch operations: day-close and document
// generation.
type OperationsHandler struct {
	dayClose  *services.DayCloseProcessor
	documents *services.DocumentRunner
	tracer    tracing.Tracer
}

// NewOperationsHandler creates a new operations handler
func NewOperationsHandler(dayClose *services.DayCloseProcessor, documents *services.DocumentRunner, tracer tracing.Tracer) *OperationsHandler {
	return &OperationsHandler{
		dayClose:  dayClose,
		documents: documents,
		tracer:    tracer,
	}
}

// DocumentsRequest optionally narrows document generation to one date.
type DocumentsRequest struct {
	Date string `json:"date,omitempty"`
}

// HandleDayClose closes every confirmed order and deducts inventory
func (h *OperationsHandler) HandleDayClose(c *gin.Context) {
	txn := h.tracer.StartTransaction("api-day-close")
	defer h.tracer.EndTransaction(txn)

	result, err := h.dayClose.ProcessDay(c.Request.Context())
	if err != nil {
		h.tracer.RecordError(txn, err)
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, result)
}

// HandleGenerateDocuments queues printable documents for a delivery date
func (h *OperationsHandler) HandleGenerateDocuments(c *gin.Context) {
	txn := h.tracer.StartTransaction("api-generate-documents")
	defer h.tracer.EndTransaction(txn)

	var req DocumentsRequest
	if c.Request.ContentLength > 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
	}

	var date *time.Time
	if req.Date != "" {
		parsed, err := time.Parse("2006-01-02", req.Date)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "date must be YYYY-MM-DD"})
			return
		}
		date = &parsed
	}

	result, err := h.documents.GenerateDocuments(c.Request.Context(), date)
	if err != nil {
		h.tracer.RecordError(txn, err)
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, result)
}

// RegisterRoutes registers the handler's routes
func (h *OperationsHandler) RegisterRoutes(router *gin.Engine) {
	v1 := router.Group("/api/v1")
	v1.POST("/operations/day-close", h.HandleDayClose)
	v1.POST("/operations/documents", h.HandleGenerateDocuments)
}
