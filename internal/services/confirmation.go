package services

import (
	"context"
	"time"

	"github.com/rs/zerolog/log"
	"gorm.io/gorm"

	"example.com/backstage/services/orders/internal/apperrors"
	"example.com/backstage/services/orders/internal/calendar"
	"example.com/backstage/services/orders/internal/metrics"
	"example.com/backstage/services/orders/internal/models"
	"example.com/backstage/services/orders/internal/tracing"
)

// ConfirmationEngine drives the order state machine
// draft -> confirmed -> {rescheduled, cancelled}, with closing reserved for
// the day-close batch.
type ConfirmationEngine struct {
	txm      TxManager
	orders   OrderStore
	clients  ClientStore
	folios   FolioSource
	stock    StockAllocator
	calendar *calendar.Rule
	metrics  *metrics.Metrics
	tracer   tracing.Tracer
	nowFn    func() time.Time
}

// NewConfirmationEngine creates a new confirmation engine
func NewConfirmationEngine(
	txm TxManager,
	orders OrderStore,
	clients ClientStore,
	folios FolioSource,
	stock StockAllocator,
	cal *calendar.Rule,
	metricsCollector *metrics.Metrics,
	tracer tracing.Tracer,
) *ConfirmationEngine {
	return &ConfirmationEngine{
		txm:      txm,
		orders:   orders,
		clients:  clients,
		folios:   folios,
		stock:    stock,
		calendar: cal,
		metrics:  metricsCollector,
		tracer:   tracer,
		nowFn:    time.Now,
	}
}

// Confirm moves a draft order to confirmed: checks availability of every
// item, assigns the folio and delivery date, and fixes the applied exit type.
// The availability check does not reserve stock; deduction happens at
// day-close.
func (e *ConfirmationEngine) Confirm(ctx context.Context, orderID, userID uint) (*models.Order, error) {
	txn := e.tracer.StartTransaction("confirm-order")
	defer e.tracer.EndTransaction(txn)

	var order *models.Order
	err := e.txm.Transaction(func(tx *gorm.DB) error {
		var err error
		order, err = e.orders.GetForUpdate(ctx, tx, orderID)
		if err != nil {
			return err
		}
		if order.State != models.StateDraft {
			return apperrors.StateConflict(order.State, "confirm")
		}

		for _, item := range order.Items {
			err := e.stock.CheckAvailability(ctx, tx, item.ProductID, item.ProductName,
				item.QuantityUnits, item.UnitsPerBoxSnapshot)
			if err != nil {
				return err
			}
		}

		client, err := e.clients.GetByID(ctx, order.ClientID)
		if err != nil {
			return err
		}
		exitType := client.ExitType
		if order.IsPickup {
			exitType = models.ExitPickup
		}

		folio, err := e.folios.Next(ctx, tx)
		if err != nil {
			return err
		}

		now := e.nowFn()
		deliveryDate := e.calendar.DeliveryDateFor(now)

		order.State = models.StateConfirmed
		order.Folio = &folio
		order.DeliveryDate = &deliveryDate
		order.AppliedExitType = &exitType
		order.ConfirmedAt = &now
		order.ConfirmedBy = &userID
		return e.orders.Save(ctx, tx, order)
	})
	if err != nil {
		e.tracer.RecordError(txn, err)
		return nil, err
	}

	e.metrics.IncrementCounter(metrics.OrdersConfirmed)
	log.Info().
		Uint("order_id", order.ID).
		Str("folio", *order.Folio).
		Str("delivery_date", order.DeliveryDate.Format("2006-01-02")).
		Str("exit_type", string(*order.AppliedExitType)).
		Msg("order confirmed")

	return order, nil
}

// Reschedule moves a confirmed order's delivery to a new date, archiving the
// original date.
func (e *ConfirmationEngine) Reschedule(ctx context.Context, orderID uint, newDate time.Time) (*models.Order, error) {
	txn := e.tracer.StartTransaction("reschedule-order")
	defer e.tracer.EndTransaction(txn)

	if newDate.IsZero() {
		return nil, apperrors.Validation("new_date", "must be provided")
	}
	newDate = time.Date(newDate.Year(), newDate.Month(), newDate.Day(), 0, 0, 0, 0, newDate.Location())

	var order *models.Order
	err := e.txm.Transaction(func(tx *gorm.DB) error {
		var err error
		order, err = e.orders.GetForUpdate(ctx, tx, orderID)
		if err != nil {
			return err
		}
		if order.State != models.StateConfirmed {
			return apperrors.StateConflict(order.State, "reschedule")
		}

		order.RescheduledFrom = order.DeliveryDate
		order.DeliveryDate = &newDate
		order.State = models.StateRescheduled
		return e.orders.Save(ctx, tx, order)
	})
	if err != nil {
		e.tracer.RecordError(txn, err)
		return nil, err
	}

	e.metrics.IncrementCounter(metrics.OrdersRescheduled)
	log.Info().
		Uint("order_id", order.ID).
		Str("new_date", newDate.Format("2006-01-02")).
		Msg("order rescheduled")

	return order, nil
}

// Cancel terminates a confirmed or rescheduled order. Cancellation never
// touches inventory; stock is only deducted at day-close.
func (e *ConfirmationEngine) Cancel(ctx context.Context, orderID uint, reason *string) (*models.Order, error) {
	return e.SetStatus(ctx, orderID, models.StateCancelled, reason)
}

// SetStatus applies a generic state transition, respecting the lifecycle
// legality table. Confirmation and closing have dedicated paths and are
// rejected here so their side effects cannot be skipped.
func (e *ConfirmationEngine) SetStatus(ctx context.Context, orderID uint, target models.OrderState, reason *string) (*models.Order, error) {
	txn := e.tracer.StartTransaction("set-order-status")
	defer e.tracer.EndTransaction(txn)

	var order *models.Order
	err := e.txm.Transaction(func(tx *gorm.DB) error {
		var err error
		order, err = e.orders.GetForUpdate(ctx, tx, orderID)
		if err != nil {
			return err
		}
		if !order.State.CanTransition(target) {
			return apperrors.StateConflict(order.State, "move to "+string(target))
		}

		switch target {
		case models.StateCancelled:
			now := e.nowFn()
			order.State = models.StateCancelled
			order.CancelledAt = &now
			order.CancelReason = reason
		case models.StateConfirmed:
			return apperrors.Validation("state", "confirmation must go through the confirm operation")
		case models.StateRescheduled:
			return apperrors.Validation("state", "rescheduling must go through the reschedule operation")
		case models.StateClosed:
			return apperrors.Validation("state", "orders are closed by the day-close batch")
		default:
			return apperrors.Validation("state", "unknown target state")
		}
		return e.orders.Save(ctx, tx, order)
	})
	if err != nil {
		e.tracer.RecordError(txn, err)
		return nil, err
	}

	if target == models.StateCancelled {
		e.metrics.IncrementCounter(metrics.OrdersCancelled)
	}
	log.Info().
		Uint("order_id", order.ID).
		Str("state", string(order.State)).
		Msg("order status updated")

	return order, nil
}
