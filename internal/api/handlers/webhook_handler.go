package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog/log"

	"example.com/backstage/services/orders/internal/services"
	"example.com/backstage/services/orders/internal/tracing"
)

// WebhookHandler receives order batches from the external ordering portal
type WebhookHandler struct {
	ingestor *services.WebhookIngestor
	tracer   tracing.Tracer
}

// NewWebhookHandler creates a new webhook handler
func NewWebhookHandler(ingestor *services.WebhookIngestor, tracer tracing.Tracer) *WebhookHandler {
	return &WebhookHandler{
		ingestor: ingestor,
		tracer:   tracer,
	}
}

// HandleOrderRows ingests a batch of webhook rows. Row-level failures are
// reported in the response body, not as an HTTP error; partial success is
// the normal outcome.
func (h *WebhookHandler) HandleOrderRows(c *gin.Context) {
	txn := h.tracer.StartTransaction("api-webhook-orders")
	defer h.tracer.EndTransaction(txn)

	var batch services.WebhookBatch
	if err := c.ShouldBindJSON(&batch); err != nil {
		log.Warn().Err(err).Msg("invalid webhook batch")
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if len(batch.Rows) == 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "batch carries no rows"})
		return
	}

	result, err := h.ingestor.Ingest(c.Request.Context(), batch.Rows)
	if err != nil {
		h.tracer.RecordError(txn, err)
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, result)
}

// RegisterRoutes registers the handler's routes
func (h *WebhookHandler) RegisterRoutes(router *gin.Engine) {
	v1 := router.Group("/api/v1")
	v1.POST("/webhook/orders", h.HandleOrderRows)
}
