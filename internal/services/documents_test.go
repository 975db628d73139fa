package services

import (
	"context"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"example.com/backstage/services/orders/internal/documents"
	"example.com/backstage/services/orders/internal/metrics"
	"example.com/backstage/services/orders/internal/models"
)

func strPtr(s string) *string { return &s }

func TestGenerateDocumentsSplitsPickupFromDelivery(t *testing.T) {
	orders := new(MockOrderStore)
	renderer := new(MockRenderer)
	runner := NewDocumentRunner(orders, renderer, metrics.NewMetrics(), noopTracer())
	runner.nowFn = func() time.Time { return time.Date(2026, time.August, 26, 8, 0, 0, 0, time.UTC) }

	day := time.Date(2026, time.August, 26, 0, 0, 0, 0, time.UTC)
	confirmed := []models.Order{
		{
			ID:     1,
			Folio:  strPtr("FO-14051"),
			State:  models.StateConfirmed,
			Client: models.Client{Name: "Abarrotes Canul"},
			Branch: models.Branch{Name: "Centro"},
			Total:  decimal.RequireFromString("120.00"),
			Items:  []models.OrderItem{{ProductName: "Tortilla 1kg", QuantityUnits: 12}},
		},
		{
			ID:       2,
			Folio:    strPtr("FO-14052"),
			State:    models.StateConfirmed,
			IsPickup: true,
			Client:   models.Client{Name: "Super Akil"},
			Branch:   models.Branch{Name: "Norte"},
			Total:    decimal.RequireFromString("20.00"),
			Items:    []models.OrderItem{{ProductName: "Masa", QuantityUnits: 5}},
		},
	}
	orders.On("ListConfirmedForDate", mock.Anything, day).Return(confirmed, nil)

	renderer.On("RenderOrderNote", mock.Anything, mock.Anything).
		Return(documents.ArtifactRef{ID: "a", Kind: documents.KindOrderNote}, nil).Twice()

	var summary documents.DeliverySummary
	renderer.On("RenderDeliverySummary", mock.Anything, mock.Anything).Run(func(args mock.Arguments) {
		summary = args.Get(1).(documents.DeliverySummary)
	}).Return(documents.ArtifactRef{ID: "s", Kind: documents.KindDeliverySummary}, nil).Once()

	result, err := runner.GenerateDocuments(context.Background(), nil)
	require.NoError(t, err)

	require.Equal(t, "2026-08-26", result.Date)
	require.Equal(t, 2, result.OrderCount)
	require.Len(t, result.Notes, 2)
	require.NotNil(t, result.Summary)

	// The pickup order gets a note but stays out of the delivery summary.
	require.Len(t, summary.Orders, 1)
	require.Equal(t, "FO-14051", summary.Orders[0].Folio)
	renderer.AssertExpectations(t)
}

func TestGenerateDocumentsNoOrders(t *testing.T) {
	orders := new(MockOrderStore)
	renderer := new(MockRenderer)
	runner := NewDocumentRunner(orders, renderer, metrics.NewMetrics(), noopTracer())

	orders.On("ListConfirmedForDate", mock.Anything, mock.Anything).Return([]models.Order{}, nil)

	result, err := runner.GenerateDocuments(context.Background(), nil)
	require.NoError(t, err)

	require.Equal(t, 0, result.OrderCount)
	require.Empty(t, result.Notes)
	require.Nil(t, result.Summary)
	renderer.AssertNotCalled(t, "RenderOrderNote", mock.Anything, mock.Anything)
	renderer.AssertNotCalled(t, "RenderDeliverySummary", mock.Anything, mock.Anything)
}
