package services

import (
	"context"
	"time"

	"github.com/rs/zerolog/log"

	"example.com/backstage/services/orders/internal/documents"
	"example.com/backstage/services/orders/internal/metrics"
	"example.com/backstage/services/orders/internal/models"
	"example.com/backstage/services/orders/internal/tracing"
)

// DocumentsResult lists the artifact references produced for one date.
type DocumentsResult struct {
	Date       string                  `json:"date"`
	OrderCount int                     `json:"order_count"`
	Notes      []documents.ArtifactRef `json:"notes"`
	Summary    *documents.ArtifactRef  `json:"summary,omitempty"`
}

// DocumentRunner generates the printable documents for a delivery date: one
// order note per confirmed order plus one delivery summary covering the
// non-pickup orders.
type DocumentRunner struct {
	orders   OrderStore
	renderer documents.Renderer
	metrics  *metrics.Metrics
	tracer   tracing.Tracer
	nowFn    func() time.Time
}

// NewDocumentRunner creates a new document runner
func NewDocumentRunner(
	orders OrderStore,
	renderer documents.Renderer,
	metricsCollector *metrics.Metrics,
	tracer tracing.Tracer,
) *DocumentRunner {
	return &DocumentRunner{
		orders:   orders,
		renderer: renderer,
		metrics:  metricsCollector,
		tracer:   tracer,
		nowFn:    time.Now,
	}
}

// GenerateDocuments queues documents for the confirmed orders of the given
// date (today when nil) and returns their artifact references.
func (r *DocumentRunner) GenerateDocuments(ctx context.Context, date *time.Time) (*DocumentsResult, error) {
	txn := r.tracer.StartTransaction("generate-documents")
	defer r.tracer.EndTransaction(txn)

	day := r.nowFn()
	if date != nil {
		day = *date
	}
	day = time.Date(day.Year(), day.Month(), day.Day(), 0, 0, 0, 0, day.Location())

	orders, err := r.orders.ListConfirmedForDate(ctx, day)
	if err != nil {
		r.tracer.RecordError(txn, err)
		return nil, err
	}

	result := &DocumentsResult{
		Date:       day.Format("2006-01-02"),
		OrderCount: len(orders),
		Notes:      []documents.ArtifactRef{},
	}

	var deliveries []models.Order
	for i := range orders {
		order := &orders[i]
		ref, err := r.renderer.RenderOrderNote(ctx, documents.BuildOrderNote(order))
		if err != nil {
			r.tracer.RecordError(txn, err)
			return nil, err
		}
		result.Notes = append(result.Notes, ref)

		if !order.IsPickup {
			deliveries = append(deliveries, *order)
		}
	}

	if len(deliveries) > 0 {
		summary := documents.DeliverySummary{Date: result.Date}
		for _, order := range deliveries {
			line := documents.SummaryLine{
				ClientName: order.Client.Name,
				BranchName: order.Branch.Name,
				ItemCount:  len(order.Items),
				Total:      order.Total.String(),
			}
			if order.Folio != nil {
				line.Folio = *order.Folio
			}
			summary.Orders = append(summary.Orders, line)
		}

		ref, err := r.renderer.RenderDeliverySummary(ctx, summary)
		if err != nil {
			r.tracer.RecordError(txn, err)
			return nil, err
		}
		result.Summary = &ref
	}

	r.metrics.IncrementCounterBy(metrics.DocumentsEmitted, int64(len(result.Notes)))
	log.Info().
		Str("date", result.Date).
		Int("order_count", result.OrderCount).
		Int("notes", len(result.Notes)).
		Bool("summary", result.Summary != nil).
		Msg("documents queued")

	return result, nil
}
