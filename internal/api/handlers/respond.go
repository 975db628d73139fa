package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog/log"

	"example.com/backstage/services/orders/internal/apperrors"
)

// respondError maps the typed error taxonomy to HTTP statuses. Anything
// outside the taxonomy is logged and surfaced as a generic 500.
func respondError(c *gin.Context, err error) {
	var notFound *apperrors.NotFoundError
	var validation *apperrors.ValidationError
	var conflict *apperrors.StateConflictError
	var stock *apperrors.InsufficientStockError
	var unique *apperrors.UniqueConstraintError

	switch {
	case errors.As(err, &notFound):
		c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
	case errors.As(err, &validation):
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error(), "field": validation.Field})
	case errors.As(err, &conflict):
		c.JSON(http.StatusConflict, gin.H{"error": err.Error(), "current_state": conflict.CurrentState})
	case errors.As(err, &stock):
		c.JSON(http.StatusConflict, gin.H{
			"error":      err.Error(),
			"product_id": stock.ProductID,
			"required":   stock.Required,
			"available":  stock.Available,
		})
	case errors.As(err, &unique):
		c.JSON(http.StatusConflict, gin.H{"error": err.Error(), "field": unique.Field})
	default:
		log.Error().Err(err).Str("path", c.Request.URL.Path).Msg("unhandled error")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal server error"})
	}
}
