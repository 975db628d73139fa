package services

import (
	"context"

	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"example.com/backstage/services/orders/internal/apperrors"
	"example.com/backstage/services/orders/internal/metrics"
	"example.com/backstage/services/orders/internal/models"
	"example.com/backstage/services/orders/internal/repositories"
	"example.com/backstage/services/orders/internal/tracing"
)

// ItemInput is one requested order line. Quantities arrive in units, boxes,
// or both; UnitPrice overrides the product's general price when set.
type ItemInput struct {
	ProductID     uint             `json:"product_id"`
	QuantityUnits int              `json:"quantity_units"`
	QuantityBoxes int              `json:"quantity_boxes"`
	UnitPrice     *decimal.Decimal `json:"unit_price,omitempty"`
	Notes         *string          `json:"notes,omitempty"`
}

// CreateOrderInput is the request to capture a new draft order.
type CreateOrderInput struct {
	ClientID uint            `json:"client_id"`
	BranchID uint            `json:"branch_id"`
	IsPickup bool            `json:"is_pickup"`
	Discount decimal.Decimal `json:"discount"`
	Notes    *string         `json:"notes,omitempty"`
	Items    []ItemInput     `json:"items"`
}

// OrderService handles draft order capture and reads.
type OrderService struct {
	txm      TxManager
	orders   OrderStore
	clients  ClientStore
	branches BranchStore
	products ProductStore
	metrics  *metrics.Metrics
	tracer   tracing.Tracer
}

// NewOrderService creates a new order service
func NewOrderService(
	txm TxManager,
	orders OrderStore,
	clients ClientStore,
	branches BranchStore,
	products ProductStore,
	metricsCollector *metrics.Metrics,
	tracer tracing.Tracer,
) *OrderService {
	return &OrderService{
		txm:      txm,
		orders:   orders,
		clients:  clients,
		branches: branches,
		products: products,
		metrics:  metricsCollector,
		tracer:   tracer,
	}
}

// CreateDraft captures a new order in state draft. Client, branch and every
// product must resolve; any unresolved reference aborts the whole creation.
func (s *OrderService) CreateDraft(ctx context.Context, in CreateOrderInput) (*models.Order, error) {
	txn := s.tracer.StartTransaction("create-draft-order")
	defer s.tracer.EndTransaction(txn)

	var order *models.Order
	err := s.txm.Transaction(func(tx *gorm.DB) error {
		var err error
		order, err = s.CreateDraftTx(ctx, tx, in)
		return err
	})
	if err != nil {
		s.tracer.RecordError(txn, err)
		return nil, err
	}

	s.metrics.IncrementCounter(metrics.OrdersCreated)
	log.Info().
		Uint("order_id", order.ID).
		Uint("client_id", order.ClientID).
		Uint("branch_id", order.BranchID).
		Int("items", len(order.Items)).
		Str("total", order.Total.String()).
		Msg("draft order created")

	return order, nil
}

// CreateDraftTx captures a draft inside the caller's transaction. Webhook
// ingestion runs one transaction over a whole batch of grouped drafts so they
// commit or roll back together.
func (s *OrderService) CreateDraftTx(ctx context.Context, tx *gorm.DB, in CreateOrderInput) (*models.Order, error) {
	if len(in.Items) == 0 {
		return nil, apperrors.Validation("items", "at least one item is required")
	}
	if in.Discount.IsNegative() {
		return nil, apperrors.Validation("discount", "must not be negative")
	}

	if _, err := s.clients.GetByID(ctx, in.ClientID); err != nil {
		return nil, err
	}
	branch, err := s.branches.GetByID(ctx, in.BranchID)
	if err != nil {
		return nil, err
	}
	if branch.ClientID != in.ClientID {
		return nil, apperrors.Validation("branch_id", "branch does not belong to client")
	}

	order := &models.Order{
		ClientID: in.ClientID,
		BranchID: in.BranchID,
		State:    models.StateDraft,
		IsPickup: in.IsPickup,
		Discount: in.Discount,
		Notes:    in.Notes,
	}
	if err := s.orders.Create(ctx, tx, order); err != nil {
		return nil, err
	}
	if err := s.writeItems(ctx, tx, order, in.Items); err != nil {
		return nil, err
	}
	return order, nil
}

// ReplaceItems swaps out every item of a draft order and recomputes its
// totals. Orders past draft are immutable and fail with a state conflict.
func (s *OrderService) ReplaceItems(ctx context.Context, orderID uint, items []ItemInput) (*models.Order, error) {
	txn := s.tracer.StartTransaction("replace-order-items")
	defer s.tracer.EndTransaction(txn)

	if len(items) == 0 {
		return nil, apperrors.Validation("items", "at least one item is required")
	}

	var order *models.Order
	err := s.txm.Transaction(func(tx *gorm.DB) error {
		var err error
		order, err = s.orders.GetForUpdate(ctx, tx, orderID)
		if err != nil {
			return err
		}
		if order.State != models.StateDraft {
			return apperrors.StateConflict(order.State, "replace items of")
		}

		if err := s.orders.DeleteItems(ctx, tx, orderID); err != nil {
			return err
		}
		order.Items = nil
		return s.writeItems(ctx, tx, order, items)
	})
	if err != nil {
		s.tracer.RecordError(txn, err)
		return nil, err
	}

	log.Info().
		Uint("order_id", order.ID).
		Int("items", len(order.Items)).
		Str("total", order.Total.String()).
		Msg("order items replaced")

	return order, nil
}

// writeItems resolves and persists the requested lines against an existing
// order row, then saves the recomputed totals.
func (s *OrderService) writeItems(ctx context.Context, tx *gorm.DB, order *models.Order, items []ItemInput) error {
	subtotal := decimal.Zero
	for i, in := range items {
		product, err := s.products.GetByID(ctx, in.ProductID)
		if err != nil {
			return err
		}

		item, err := buildItem(order.ID, product, in)
		if err != nil {
			return errors.Wrapf(err, "item %d", i)
		}
		if err := s.orders.CreateItem(ctx, tx, item); err != nil {
			return err
		}

		order.Items = append(order.Items, *item)
		subtotal = subtotal.Add(item.Subtotal)
	}

	order.Subtotal = subtotal
	order.Total = subtotal.Sub(order.Discount)
	return s.orders.Save(ctx, tx, order)
}

// buildItem computes the billed units and pricing for one line and freezes
// the product snapshots. Fixed-box products ordered in boxes alone are billed
// at boxes times units-per-box.
func buildItem(orderID uint, product *models.Product, in ItemInput) (*models.OrderItem, error) {
	billedUnits := in.QuantityUnits
	if product.BoxType == models.BoxFixed && in.QuantityBoxes > 0 && in.QuantityUnits == 0 {
		billedUnits = in.QuantityBoxes * product.UnitsPerBox
	}
	if billedUnits <= 0 {
		return nil, apperrors.Validation("quantity", "must be positive")
	}

	price := product.GeneralPrice
	if in.UnitPrice != nil {
		if in.UnitPrice.IsNegative() {
			return nil, apperrors.Validation("unit_price", "must not be negative")
		}
		price = *in.UnitPrice
	}

	return &models.OrderItem{
		OrderID:             orderID,
		ProductID:           product.ID,
		ProductName:         product.Name,
		QuantityUnits:       billedUnits,
		QuantityBoxes:       in.QuantityBoxes,
		UnitPrice:           price,
		Subtotal:            price.Mul(decimal.NewFromInt(int64(billedUnits))),
		UnitsPerBoxSnapshot: product.UnitsPerBox,
		BoxTypeSnapshot:     product.BoxType,
		Notes:               in.Notes,
	}, nil
}

// Get returns an order with its items, client and branch
func (s *OrderService) Get(ctx context.Context, id uint) (*models.Order, error) {
	return s.orders.GetWithItems(ctx, id)
}

// List returns orders matching the filter, newest first
func (s *OrderService) List(ctx context.Context, f repositories.OrderFilter) ([]models.Order, error) {
	return s.orders.List(ctx, f)
}
