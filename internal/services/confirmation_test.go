package services

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"example.com/backstage/services/orders/internal/apperrors"
	"example.com/backstage/services/orders/internal/calendar"
	"example.com/backstage/services/orders/internal/metrics"
	"example.com/backstage/services/orders/internal/models"
)

func newConfirmationEngine(orders *MockOrderStore, clients *MockClientStore, folios *MockFolioSource, stock *MockStockAllocator, now time.Time) *ConfirmationEngine {
	e := NewConfirmationEngine(fakeTx{}, orders, clients, folios, stock,
		calendar.NewRule(0), metrics.NewMetrics(), noopTracer())
	e.nowFn = func() time.Time { return now }
	return e
}

func draftWithItems() *models.Order {
	return &models.Order{
		ID:       42,
		ClientID: 1,
		State:    models.StateDraft,
		Items: []models.OrderItem{
			{ProductID: 10, ProductName: "Tortilla 1kg", QuantityUnits: 12, UnitsPerBoxSnapshot: 6},
			{ProductID: 11, ProductName: "Masa", QuantityUnits: 5, UnitsPerBoxSnapshot: 1},
		},
	}
}

func TestConfirmAssignsFolioDateAndExitType(t *testing.T) {
	orders := new(MockOrderStore)
	clients := new(MockClientStore)
	folios := new(MockFolioSource)
	stock := new(MockStockAllocator)

	// Monday 09:00, before cutoff: same-day delivery.
	now := time.Date(2026, time.August, 24, 9, 0, 0, 0, time.UTC)
	engine := newConfirmationEngine(orders, clients, folios, stock, now)

	order := draftWithItems()
	orders.On("GetForUpdate", mock.Anything, mock.Anything, uint(42)).Return(order, nil)
	orders.On("Save", mock.Anything, mock.Anything, order).Return(nil)
	clients.On("GetByID", mock.Anything, uint(1)).Return(&models.Client{ID: 1, ExitType: models.ExitFirst}, nil)
	folios.On("Next", mock.Anything, mock.Anything).Return("FO-14051", nil)
	stock.On("CheckAvailability", mock.Anything, mock.Anything, uint(10), "Tortilla 1kg", 12, 6).Return(nil)
	stock.On("CheckAvailability", mock.Anything, mock.Anything, uint(11), "Masa", 5, 1).Return(nil)

	confirmed, err := engine.Confirm(context.Background(), 42, 77)
	require.NoError(t, err)

	require.Equal(t, models.StateConfirmed, confirmed.State)
	require.Equal(t, "FO-14051", *confirmed.Folio)
	require.Equal(t, time.Date(2026, time.August, 24, 0, 0, 0, 0, time.UTC), *confirmed.DeliveryDate)
	require.Equal(t, models.ExitFirst, *confirmed.AppliedExitType)
	require.Equal(t, uint(77), *confirmed.ConfirmedBy)
	require.Equal(t, now, *confirmed.ConfirmedAt)
}

func TestConfirmPickupOverridesClientExitType(t *testing.T) {
	orders := new(MockOrderStore)
	clients := new(MockClientStore)
	folios := new(MockFolioSource)
	stock := new(MockStockAllocator)
	engine := newConfirmationEngine(orders, clients, folios, stock,
		time.Date(2026, time.August, 24, 9, 0, 0, 0, time.UTC))

	order := draftWithItems()
	order.IsPickup = true
	orders.On("GetForUpdate", mock.Anything, mock.Anything, uint(42)).Return(order, nil)
	orders.On("Save", mock.Anything, mock.Anything, order).Return(nil)
	clients.On("GetByID", mock.Anything, uint(1)).Return(&models.Client{ID: 1, ExitType: models.ExitNormal}, nil)
	folios.On("Next", mock.Anything, mock.Anything).Return("FO-14052", nil)
	stock.On("CheckAvailability", mock.Anything, mock.Anything, mock.Anything, mock.Anything, mock.Anything, mock.Anything).Return(nil)

	confirmed, err := engine.Confirm(context.Background(), 42, 77)
	require.NoError(t, err)
	require.Equal(t, models.ExitPickup, *confirmed.AppliedExitType)
}

func TestConfirmInsufficientStockFailsWholeOrder(t *testing.T) {
	orders := new(MockOrderStore)
	clients := new(MockClientStore)
	folios := new(MockFolioSource)
	stock := new(MockStockAllocator)
	engine := newConfirmationEngine(orders, clients, folios, stock,
		time.Date(2026, time.August, 24, 9, 0, 0, 0, time.UTC))

	orders.On("GetForUpdate", mock.Anything, mock.Anything, uint(42)).Return(draftWithItems(), nil)
	stock.On("CheckAvailability", mock.Anything, mock.Anything, uint(10), "Tortilla 1kg", 12, 6).Return(nil)
	stock.On("CheckAvailability", mock.Anything, mock.Anything, uint(11), "Masa", 5, 1).
		Return(&apperrors.InsufficientStockError{ProductID: 11, ProductName: "Masa", Required: 5, Available: 2})

	_, err := engine.Confirm(context.Background(), 42, 77)

	var insufficient *apperrors.InsufficientStockError
	require.ErrorAs(t, err, &insufficient)
	require.Equal(t, uint(11), insufficient.ProductID)
	folios.AssertNotCalled(t, "Next", mock.Anything, mock.Anything)
	orders.AssertNotCalled(t, "Save", mock.Anything, mock.Anything, mock.Anything)
}

func TestConfirmRequiresDraft(t *testing.T) {
	orders := new(MockOrderStore)
	engine := newConfirmationEngine(orders, new(MockClientStore), new(MockFolioSource), new(MockStockAllocator),
		time.Now())

	orders.On("GetForUpdate", mock.Anything, mock.Anything, uint(42)).
		Return(&models.Order{ID: 42, State: models.StateCancelled}, nil)

	_, err := engine.Confirm(context.Background(), 42, 77)

	var conflict *apperrors.StateConflictError
	require.ErrorAs(t, err, &conflict)
	require.Equal(t, models.StateCancelled, conflict.CurrentState)
}

func TestRescheduleArchivesPriorDate(t *testing.T) {
	orders := new(MockOrderStore)
	engine := newConfirmationEngine(orders, new(MockClientStore), new(MockFolioSource), new(MockStockAllocator),
		time.Now())

	prior := time.Date(2026, time.August, 25, 0, 0, 0, 0, time.UTC)
	order := &models.Order{ID: 42, State: models.StateConfirmed, DeliveryDate: &prior}
	orders.On("GetForUpdate", mock.Anything, mock.Anything, uint(42)).Return(order, nil)
	orders.On("Save", mock.Anything, mock.Anything, order).Return(nil)

	newDate := time.Date(2026, time.August, 28, 15, 30, 0, 0, time.UTC)
	rescheduled, err := engine.Reschedule(context.Background(), 42, newDate)
	require.NoError(t, err)

	require.Equal(t, models.StateRescheduled, rescheduled.State)
	require.Equal(t, prior, *rescheduled.RescheduledFrom)
	require.Equal(t, time.Date(2026, time.August, 28, 0, 0, 0, 0, time.UTC), *rescheduled.DeliveryDate)
}

func TestRescheduleRequiresConfirmed(t *testing.T) {
	orders := new(MockOrderStore)
	engine := newConfirmationEngine(orders, new(MockClientStore), new(MockFolioSource), new(MockStockAllocator),
		time.Now())

	orders.On("GetForUpdate", mock.Anything, mock.Anything, uint(42)).
		Return(&models.Order{ID: 42, State: models.StateDraft}, nil)

	_, err := engine.Reschedule(context.Background(), 42, time.Date(2026, time.August, 28, 0, 0, 0, 0, time.UTC))

	var conflict *apperrors.StateConflictError
	require.ErrorAs(t, err, &conflict)
}

func TestCancelFromRescheduledRecordsReason(t *testing.T) {
	orders := new(MockOrderStore)
	now := time.Date(2026, time.August, 26, 12, 0, 0, 0, time.UTC)
	engine := newConfirmationEngine(orders, new(MockClientStore), new(MockFolioSource), new(MockStockAllocator), now)

	order := &models.Order{ID: 42, State: models.StateRescheduled}
	orders.On("GetForUpdate", mock.Anything, mock.Anything, uint(42)).Return(order, nil)
	orders.On("Save", mock.Anything, mock.Anything, order).Return(nil)

	reason := "client closed the branch"
	cancelled, err := engine.Cancel(context.Background(), 42, &reason)
	require.NoError(t, err)

	require.Equal(t, models.StateCancelled, cancelled.State)
	require.Equal(t, now, *cancelled.CancelledAt)
	require.Equal(t, reason, *cancelled.CancelReason)
}

func TestSetStatusRejectsIllegalTransition(t *testing.T) {
	orders := new(MockOrderStore)
	engine := newConfirmationEngine(orders, new(MockClientStore), new(MockFolioSource), new(MockStockAllocator),
		time.Now())

	orders.On("GetForUpdate", mock.Anything, mock.Anything, uint(42)).
		Return(&models.Order{ID: 42, State: models.StateCancelled}, nil)

	_, err := engine.SetStatus(context.Background(), 42, models.StateConfirmed, nil)

	var conflict *apperrors.StateConflictError
	require.ErrorAs(t, err, &conflict)
	orders.AssertNotCalled(t, "Save", mock.Anything, mock.Anything, mock.Anything)
}

func TestSetStatusCannotClose(t *testing.T) {
	orders := new(MockOrderStore)
	engine := newConfirmationEngine(orders, new(MockClientStore), new(MockFolioSource), new(MockStockAllocator),
		time.Now())

	orders.On("GetForUpdate", mock.Anything, mock.Anything, uint(42)).
		Return(&models.Order{ID: 42, State: models.StateConfirmed}, nil)

	_, err := engine.SetStatus(context.Background(), 42, models.StateClosed, nil)

	var validation *apperrors.ValidationError
	require.ErrorAs(t, err, &validation)
	orders.AssertNotCalled(t, "Save", mock.Anything, mock.Anything, mock.Anything)
}
