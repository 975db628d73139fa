package services

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"example.com/backstage/services/orders/internal/cache"
	"example.com/backstage/services/orders/internal/metrics"
	"example.com/backstage/services/orders/internal/models"
	"example.com/backstage/services/orders/internal/tracing"
)

// WebhookRow is one inbound row from the ordering portal. Stable IDs are
// preferred when the portal sends them; display names are the resolution
// fallback.
type WebhookRow struct {
	BranchID  uint        `json:"branch_id,omitempty"`
	ProductID uint        `json:"product_id,omitempty"`
	Branch    string      `json:"branch,omitempty"`
	Product   string      `json:"product,omitempty"`
	Quantity  json.Number `json:"quantity"`
}

// WebhookBatch is the message envelope carrying webhook rows.
type WebhookBatch struct {
	Rows []WebhookRow `json:"rows"`
}

// RowError reports one row that could not be turned into an order line.
type RowError struct {
	Row    int    `json:"row"`
	Branch string `json:"branch,omitempty"`
	Reason string `json:"reason"`
}

// OrderBrief summarizes one order created from a batch.
type OrderBrief struct {
	OrderID   uint   `json:"order_id"`
	Branch    string `json:"branch"`
	ItemCount int    `json:"item_count"`
	Total     string `json:"total"`
}

// IngestResult is the outcome of one webhook batch. Partial success is the
// normal, expected outcome.
type IngestResult struct {
	OrdersCreated int          `json:"orders_created"`
	Orders        []OrderBrief `json:"orders"`
	Errors        []RowError   `json:"errors,omitempty"`
}

// DraftCreator materializes one draft order per resolved group inside the
// ingestor's batch transaction.
type DraftCreator interface {
	CreateDraftTx(ctx context.Context, tx *gorm.DB, in CreateOrderInput) (*models.Order, error)
}

// WebhookIngestor turns portal webhook rows into draft orders, one per
// (client, branch) group. Bad rows are collected as row errors and never
// abort the batch.
type WebhookIngestor struct {
	txm      TxManager
	drafts   DraftCreator
	branches BranchStore
	products ProductStore
	cache    *cache.RedisCache
	metrics  *metrics.Metrics
	tracer   tracing.Tracer
}

// NewWebhookIngestor creates a new webhook ingestor
func NewWebhookIngestor(
	txm TxManager,
	drafts DraftCreator,
	branches BranchStore,
	products ProductStore,
	redisCache *cache.RedisCache,
	metricsCollector *metrics.Metrics,
	tracer tracing.Tracer,
) *WebhookIngestor {
	return &WebhookIngestor{
		txm:      txm,
		drafts:   drafts,
		branches: branches,
		products: products,
		cache:    redisCache,
		metrics:  metricsCollector,
		tracer:   tracer,
	}
}

type pendingOrder struct {
	clientID   uint
	branchID   uint
	branchName string
	items      []ItemInput
}

// Ingest processes a batch of webhook rows. Rows naming an unknown branch or
// product, or carrying a non-positive quantity, become row errors while the
// remaining rows continue. Resolved rows are grouped by branch into one draft
// order each.
func (w *WebhookIngestor) Ingest(ctx context.Context, rows []WebhookRow) (*IngestResult, error) {
	txn := w.tracer.StartTransaction("ingest-webhook-batch")
	defer w.tracer.EndTransaction(txn)

	result := &IngestResult{Orders: []OrderBrief{}}

	groups := make(map[uint]*pendingOrder)
	var groupOrder []uint

	for i, row := range rows {
		branch, err := w.resolveBranch(ctx, row)
		if err != nil {
			result.Errors = append(result.Errors, RowError{Row: i, Branch: row.Branch, Reason: err.Error()})
			continue
		}

		product, err := w.resolveProduct(ctx, row)
		if err != nil {
			result.Errors = append(result.Errors, RowError{Row: i, Branch: branch.Name, Reason: err.Error()})
			continue
		}

		quantity, err := parseQuantity(row.Quantity)
		if err != nil {
			result.Errors = append(result.Errors, RowError{Row: i, Branch: branch.Name, Reason: err.Error()})
			continue
		}

		// Fixed-box products are ordered in boxes; everything else in units.
		item := ItemInput{ProductID: product.ID}
		if product.BoxType == models.BoxFixed {
			item.QuantityBoxes = quantity
		} else {
			item.QuantityUnits = quantity
		}

		group, exists := groups[branch.ID]
		if !exists {
			group = &pendingOrder{
				clientID:   branch.ClientID,
				branchID:   branch.ID,
				branchName: branch.Name,
			}
			groups[branch.ID] = group
			groupOrder = append(groupOrder, branch.ID)
		}
		group.items = append(group.items, item)
	}

	// The resolved groups commit or roll back together; a failing group
	// aborts the whole batch so redelivery can retry it intact.
	if len(groupOrder) > 0 {
		err := w.txm.Transaction(func(tx *gorm.DB) error {
			for _, branchID := range groupOrder {
				group := groups[branchID]
				order, err := w.drafts.CreateDraftTx(ctx, tx, CreateOrderInput{
					ClientID: group.clientID,
					BranchID: group.branchID,
					Discount: decimal.Zero,
					Items:    group.items,
				})
				if err != nil {
					return errors.Wrapf(err, "branch %s", group.branchName)
				}

				result.OrdersCreated++
				result.Orders = append(result.Orders, OrderBrief{
					OrderID:   order.ID,
					Branch:    group.branchName,
					ItemCount: len(order.Items),
					Total:     order.Total.String(),
				})
			}
			return nil
		})
		if err != nil {
			w.tracer.RecordError(txn, err)
			return nil, err
		}
		w.metrics.IncrementCounterBy(metrics.OrdersCreated, int64(result.OrdersCreated))
	}

	resolved := len(rows) - len(result.Errors)
	if resolved > 0 {
		w.metrics.IncrementCounterBy(metrics.WebhookRowsOK, int64(resolved))
	}
	if len(result.Errors) > 0 {
		w.metrics.IncrementCounterBy(metrics.WebhookRowsFailed, int64(len(result.Errors)))
	}

	log.Info().
		Int("rows", len(rows)).
		Int("orders_created", result.OrdersCreated).
		Int("row_errors", len(result.Errors)).
		Msg("webhook batch ingested")

	return result, nil
}

// HandleMessage adapts Ingest to the Service Bus processing loop. Row errors
// are a normal outcome and do not trigger redelivery.
func (w *WebhookIngestor) HandleMessage(ctx context.Context, body []byte) error {
	var batch WebhookBatch
	if err := json.Unmarshal(body, &batch); err != nil {
		// Not retryable; log and drop.
		log.Error().Err(err).Msg("malformed webhook batch message")
		return nil
	}

	_, err := w.Ingest(ctx, batch.Rows)
	return err
}

func (w *WebhookIngestor) resolveBranch(ctx context.Context, row WebhookRow) (*models.Branch, error) {
	if row.BranchID != 0 {
		return w.branches.GetByID(ctx, row.BranchID)
	}
	if row.Branch == "" {
		return nil, fmt.Errorf("row names no branch")
	}

	var cachedID uint
	if err := w.cache.Get(ctx, cache.BranchNameKey(row.Branch), &cachedID); err == nil {
		return w.branches.GetByID(ctx, cachedID)
	}

	branch, err := w.branches.GetActiveByName(ctx, row.Branch)
	if err != nil {
		return nil, err
	}

	log.Debug().Str("branch", row.Branch).Uint("branch_id", branch.ID).
		Msg("branch resolved by display name")
	if err := w.cache.Set(ctx, cache.BranchNameKey(row.Branch), branch.ID, cache.ResolutionTTL); err != nil {
		log.Debug().Err(err).Msg("failed to cache branch resolution")
	}
	return branch, nil
}

func (w *WebhookIngestor) resolveProduct(ctx context.Context, row WebhookRow) (*models.Product, error) {
	if row.ProductID != 0 {
		product, err := w.products.GetByID(ctx, row.ProductID)
		if err != nil {
			return nil, err
		}
		if !product.Active {
			return nil, fmt.Errorf("product %q is inactive", product.Name)
		}
		return product, nil
	}
	if row.Product == "" {
		return nil, fmt.Errorf("row names no product")
	}

	var cachedID uint
	if err := w.cache.Get(ctx, cache.ProductNameKey(row.Product), &cachedID); err == nil {
		product, err := w.products.GetByID(ctx, cachedID)
		if err == nil && product.Active {
			return product, nil
		}
	}

	product, err := w.products.GetActiveByName(ctx, row.Product)
	if err != nil {
		return nil, err
	}

	log.Debug().Str("product", row.Product).Uint("product_id", product.ID).
		Msg("product resolved by display name")
	if err := w.cache.Set(ctx, cache.ProductNameKey(row.Product), product.ID, cache.ResolutionTTL); err != nil {
		log.Debug().Err(err).Msg("failed to cache product resolution")
	}
	return product, nil
}

func parseQuantity(q json.Number) (int, error) {
	n, err := q.Int64()
	if err != nil {
		return 0, fmt.Errorf("quantity %q is not a whole number", q.String())
	}
	if n <= 0 {
		return 0, fmt.Errorf("quantity must be positive, got %d", n)
	}
	return int(n), nil
}
