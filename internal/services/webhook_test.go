package services

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"example.com/backstage/services/orders/internal/apperrors"
	"example.com/backstage/services/orders/internal/cache"
	"example.com/backstage/services/orders/internal/metrics"
	"example.com/backstage/services/orders/internal/models"
)

func newIngestor(drafts *MockDraftCreator, branches *MockBranchStore, products *MockProductStore) *WebhookIngestor {
	return NewWebhookIngestor(fakeTx{}, drafts, branches, products, cache.Disabled(), metrics.NewMetrics(), noopTracer())
}

func TestIngestGroupsRowsByBranch(t *testing.T) {
	drafts := new(MockDraftCreator)
	branches := new(MockBranchStore)
	products := new(MockProductStore)
	ingestor := newIngestor(drafts, branches, products)

	centro := &models.Branch{ID: 7, ClientID: 1, Name: "Centro", Active: true}
	norte := &models.Branch{ID: 8, ClientID: 2, Name: "Norte", Active: true}
	branches.On("GetActiveByName", mock.Anything, "Centro").Return(centro, nil)
	branches.On("GetActiveByName", mock.Anything, "Norte").Return(norte, nil)

	boxed := &models.Product{ID: 10, Name: "Tortilla 1kg", BoxType: models.BoxFixed, UnitsPerBox: 6, Active: true}
	loose := &models.Product{ID: 11, Name: "Masa", BoxType: models.BoxVariable, UnitsPerBox: 1, Active: true}
	products.On("GetActiveByName", mock.Anything, "Tortilla 1kg").Return(boxed, nil)
	products.On("GetActiveByName", mock.Anything, "Masa").Return(loose, nil)

	var inputs []CreateOrderInput
	drafts.On("CreateDraftTx", mock.Anything, mock.Anything, mock.Anything).Run(func(args mock.Arguments) {
		inputs = append(inputs, args.Get(2).(CreateOrderInput))
	}).Return(&models.Order{ID: 42, Total: decimal.RequireFromString("120.00"),
		Items: []models.OrderItem{{}, {}}}, nil).Once()
	drafts.On("CreateDraftTx", mock.Anything, mock.Anything, mock.Anything).Run(func(args mock.Arguments) {
		inputs = append(inputs, args.Get(2).(CreateOrderInput))
	}).Return(&models.Order{ID: 43, Total: decimal.RequireFromString("20.00"),
		Items: []models.OrderItem{{}}}, nil).Once()

	result, err := ingestor.Ingest(context.Background(), []WebhookRow{
		{Branch: "Centro", Product: "Tortilla 1kg", Quantity: json.Number("2")},
		{Branch: "Centro", Product: "Masa", Quantity: json.Number("5")},
		{Branch: "Norte", Product: "Masa", Quantity: json.Number("3")},
	})
	require.NoError(t, err)

	require.Equal(t, 2, result.OrdersCreated)
	require.Empty(t, result.Errors)
	require.Len(t, result.Orders, 2)
	require.Equal(t, "Centro", result.Orders[0].Branch)
	require.Equal(t, 2, result.Orders[0].ItemCount)
	require.Equal(t, "Norte", result.Orders[1].Branch)

	require.Len(t, inputs, 2)
	require.Equal(t, uint(1), inputs[0].ClientID)
	require.Equal(t, uint(7), inputs[0].BranchID)
	require.Len(t, inputs[0].Items, 2)
	// Fixed-box product rows arrive in boxes; loose products in units.
	require.Equal(t, 2, inputs[0].Items[0].QuantityBoxes)
	require.Equal(t, 0, inputs[0].Items[0].QuantityUnits)
	require.Equal(t, 5, inputs[0].Items[1].QuantityUnits)
	require.Equal(t, uint(2), inputs[1].ClientID)
	require.Equal(t, 3, inputs[1].Items[0].QuantityUnits)
}

func TestIngestCollectsRowErrorsWithoutAborting(t *testing.T) {
	drafts := new(MockDraftCreator)
	branches := new(MockBranchStore)
	products := new(MockProductStore)
	ingestor := newIngestor(drafts, branches, products)

	centro := &models.Branch{ID: 7, ClientID: 1, Name: "Centro", Active: true}
	branches.On("GetActiveByName", mock.Anything, "Centro").Return(centro, nil)
	branches.On("GetActiveByName", mock.Anything, "Fantasma").
		Return(nil, apperrors.NotFound("branch", "Fantasma"))

	loose := &models.Product{ID: 11, Name: "Masa", BoxType: models.BoxVariable, UnitsPerBox: 1, Active: true}
	products.On("GetActiveByName", mock.Anything, "Masa").Return(loose, nil)

	drafts.On("CreateDraftTx", mock.Anything, mock.Anything, mock.Anything).
		Return(&models.Order{ID: 42, Items: []models.OrderItem{{}}}, nil)

	result, err := ingestor.Ingest(context.Background(), []WebhookRow{
		{Branch: "Fantasma", Product: "Masa", Quantity: json.Number("3")},
		{Branch: "Centro", Product: "Masa", Quantity: json.Number("5")},
		{Branch: "Centro", Product: "Masa", Quantity: json.Number("0")},
		{Branch: "Centro", Product: "Masa", Quantity: json.Number("2.5")},
	})
	require.NoError(t, err)

	require.Equal(t, 1, result.OrdersCreated)
	require.Len(t, result.Errors, 3)
	require.Equal(t, 0, result.Errors[0].Row)
	require.Contains(t, result.Errors[0].Reason, "not found")
	require.Equal(t, 2, result.Errors[1].Row)
	require.Contains(t, result.Errors[1].Reason, "positive")
	require.Equal(t, 3, result.Errors[2].Row)
	require.Contains(t, result.Errors[2].Reason, "whole number")
}

func TestIngestPrefersStableIDs(t *testing.T) {
	drafts := new(MockDraftCreator)
	branches := new(MockBranchStore)
	products := new(MockProductStore)
	ingestor := newIngestor(drafts, branches, products)

	branches.On("GetByID", mock.Anything, uint(7)).
		Return(&models.Branch{ID: 7, ClientID: 1, Name: "Centro", Active: true}, nil)
	products.On("GetByID", mock.Anything, uint(11)).
		Return(&models.Product{ID: 11, Name: "Masa", BoxType: models.BoxVariable, Active: true}, nil)

	drafts.On("CreateDraftTx", mock.Anything, mock.Anything, mock.Anything).
		Return(&models.Order{ID: 42, Items: []models.OrderItem{{}}}, nil)

	result, err := ingestor.Ingest(context.Background(), []WebhookRow{
		{BranchID: 7, ProductID: 11, Branch: "Stale Name", Product: "Stale Name", Quantity: json.Number("3")},
	})
	require.NoError(t, err)

	require.Equal(t, 1, result.OrdersCreated)
	branches.AssertNotCalled(t, "GetActiveByName", mock.Anything, mock.Anything)
	products.AssertNotCalled(t, "GetActiveByName", mock.Anything, mock.Anything)
}

func TestIngestRejectsInactiveProductByID(t *testing.T) {
	drafts := new(MockDraftCreator)
	branches := new(MockBranchStore)
	products := new(MockProductStore)
	ingestor := newIngestor(drafts, branches, products)

	branches.On("GetByID", mock.Anything, uint(7)).
		Return(&models.Branch{ID: 7, ClientID: 1, Name: "Centro", Active: true}, nil)
	products.On("GetByID", mock.Anything, uint(11)).
		Return(&models.Product{ID: 11, Name: "Masa", Active: false}, nil)

	result, err := ingestor.Ingest(context.Background(), []WebhookRow{
		{BranchID: 7, ProductID: 11, Quantity: json.Number("3")},
	})
	require.NoError(t, err)

	require.Equal(t, 0, result.OrdersCreated)
	require.Len(t, result.Errors, 1)
	require.Contains(t, result.Errors[0].Reason, "inactive")
}

func TestIngestFailingGroupAbortsWholeBatch(t *testing.T) {
	drafts := new(MockDraftCreator)
	branches := new(MockBranchStore)
	products := new(MockProductStore)
	ingestor := newIngestor(drafts, branches, products)

	branches.On("GetActiveByName", mock.Anything, "Centro").
		Return(&models.Branch{ID: 7, ClientID: 1, Name: "Centro", Active: true}, nil)
	branches.On("GetActiveByName", mock.Anything, "Norte").
		Return(&models.Branch{ID: 8, ClientID: 2, Name: "Norte", Active: true}, nil)
	products.On("GetActiveByName", mock.Anything, "Masa").
		Return(&models.Product{ID: 11, Name: "Masa", Active: true}, nil)

	// The first group materializes, the second fails; the transaction rolls
	// back and nothing is reported as created.
	drafts.On("CreateDraftTx", mock.Anything, mock.Anything, mock.Anything).
		Return(&models.Order{ID: 42, Items: []models.OrderItem{{}}}, nil).Once()
	drafts.On("CreateDraftTx", mock.Anything, mock.Anything, mock.Anything).
		Return(nil, apperrors.Validation("quantity", "must be positive")).Once()

	result, err := ingestor.Ingest(context.Background(), []WebhookRow{
		{Branch: "Centro", Product: "Masa", Quantity: json.Number("5")},
		{Branch: "Norte", Product: "Masa", Quantity: json.Number("3")},
	})
	require.Error(t, err)
	require.Nil(t, result)
	require.Contains(t, err.Error(), "Norte")
	drafts.AssertNumberOfCalls(t, "CreateDraftTx", 2)
}

func TestHandleMessageDropsMalformedBody(t *testing.T) {
	ingestor := newIngestor(new(MockDraftCreator), new(MockBranchStore), new(MockProductStore))

	require.NoError(t, ingestor.HandleMessage(context.Background(), []byte("not json")))
}
