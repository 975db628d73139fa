package services

import (
	"context"
	"time"

	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"
	"gorm.io/gorm"

	"example.com/backstage/services/orders/internal/metrics"
	"example.com/backstage/services/orders/internal/models"
	"example.com/backstage/services/orders/internal/tracing"
)

// DayCloseResult is the outcome of one day-close batch.
type DayCloseResult struct {
	OrdersProcessed int       `json:"orders_processed"`
	Timestamp       time.Time `json:"timestamp"`
}

// DayCloseEvent is published after a successful batch commit.
type DayCloseEvent struct {
	Type            string    `json:"type"`
	OrdersProcessed int       `json:"orders_processed"`
	Timestamp       time.Time `json:"timestamp"`
}

// DayCloseProcessor closes every confirmed order in one transaction,
// deducting inventory per the order's applied exit type. The batch is
// all-or-nothing: one failing order rolls everything back.
type DayCloseProcessor struct {
	txm         TxManager
	orders      OrderStore
	stock       StockAllocator
	indexer     ClosedOrderIndexer
	events      EventPublisher
	eventsQueue string
	metrics     *metrics.Metrics
	tracer      tracing.Tracer
	nowFn       func() time.Time
}

// NewDayCloseProcessor creates a new day-close processor. Indexer and events
// publisher are optional; both run post-commit and best-effort.
func NewDayCloseProcessor(
	txm TxManager,
	orders OrderStore,
	stock StockAllocator,
	indexer ClosedOrderIndexer,
	events EventPublisher,
	eventsQueue string,
	metricsCollector *metrics.Metrics,
	tracer tracing.Tracer,
) *DayCloseProcessor {
	return &DayCloseProcessor{
		txm:         txm,
		orders:      orders,
		stock:       stock,
		indexer:     indexer,
		events:      events,
		eventsQueue: eventsQueue,
		metrics:     metricsCollector,
		tracer:      tracer,
		nowFn:       time.Now,
	}
}

// ProcessDay closes all confirmed orders. With none confirmed it returns a
// zero-count result without side effects.
func (p *DayCloseProcessor) ProcessDay(ctx context.Context) (*DayCloseResult, error) {
	txn := p.tracer.StartTransaction("day-close")
	defer p.tracer.EndTransaction(txn)

	now := p.nowFn()
	var closedIDs []uint

	err := p.txm.Transaction(func(tx *gorm.DB) error {
		confirmed, err := p.orders.ListConfirmedWithItems(ctx, tx)
		if err != nil {
			return err
		}
		if len(confirmed) == 0 {
			return nil
		}

		for i := range confirmed {
			order := &confirmed[i]
			if order.AppliedExitType == nil {
				return errors.Errorf("confirmed order %d has no applied exit type", order.ID)
			}
			exitType := *order.AppliedExitType

			for _, item := range order.Items {
				err := p.stock.Allocate(ctx, tx, item.ProductID, item.QuantityUnits,
					item.UnitsPerBoxSnapshot, exitType)
				if err != nil {
					return errors.Wrapf(err, "order %d", order.ID)
				}
			}

			order.State = models.StateClosed
			order.ClosedAt = &now
			if err := p.orders.Save(ctx, tx, order); err != nil {
				return err
			}
			closedIDs = append(closedIDs, order.ID)
		}
		return nil
	})
	if err != nil {
		p.tracer.RecordError(txn, err)
		return nil, err
	}

	result := &DayCloseResult{OrdersProcessed: len(closedIDs), Timestamp: now}
	if len(closedIDs) == 0 {
		log.Info().Msg("day-close found no confirmed orders")
		return result, nil
	}

	p.metrics.IncrementCounterBy(metrics.OrdersClosed, int64(len(closedIDs)))
	log.Info().Int("orders_processed", len(closedIDs)).Msg("day-close batch committed")

	p.publishAftermath(ctx, closedIDs, result)
	return result, nil
}

// publishAftermath indexes the closed orders and publishes the day-close
// event. Both are best-effort; the batch is already committed.
func (p *DayCloseProcessor) publishAftermath(ctx context.Context, closedIDs []uint, result *DayCloseResult) {
	if p.indexer != nil {
		for _, id := range closedIDs {
			order, err := p.orders.GetWithItems(ctx, id)
			if err != nil {
				log.Error().Err(err).Uint("order_id", id).Msg("failed to reload closed order for indexing")
				continue
			}
			if err := p.indexer.IndexClosedOrder(ctx, order); err != nil {
				log.Error().Err(err).Uint("order_id", id).Msg("failed to index closed order")
			}
		}
	}

	if p.events != nil {
		event := DayCloseEvent{
			Type:            "day_close",
			OrdersProcessed: result.OrdersProcessed,
			Timestamp:       result.Timestamp,
		}
		if err := p.events.SendJSON(ctx, p.eventsQueue, event); err != nil {
			log.Error().Err(err).Msg("failed to publish day-close event")
		}
	}
}
