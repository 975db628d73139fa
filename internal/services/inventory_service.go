package services

import (
	"context"

	"github.com/rs/zerolog/log"
	"gorm.io/gorm"

	"example.com/backstage/services/orders/internal/inventory"
	"example.com/backstage/services/orders/internal/models"
	"example.com/backstage/services/orders/internal/tracing"
)

// LedgerReader lists the warehouse ledgers for the read API.
type LedgerReader interface {
	ListHunucma(ctx context.Context) ([]models.InventoryHunucma, error)
	ListZelma(ctx context.Context) ([]models.InventoryZelma, error)
}

// AdjustInput is a manual stock correction request.
type AdjustInput struct {
	Location  inventory.Location `json:"location"`
	ProductID uint               `json:"product_id"`
	Delta     int                `json:"delta"`
}

// AdjustResult reports the ledger state after a correction.
type AdjustResult struct {
	Location  inventory.Location `json:"location"`
	ProductID uint               `json:"product_id"`
	NewStock  int                `json:"new_stock"`
}

// InventoryService exposes ledger reads and manual adjustments.
type InventoryService struct {
	txm    TxManager
	ledger LedgerReader
	stock  StockAllocator
	tracer tracing.Tracer
}

// NewInventoryService creates a new inventory service
func NewInventoryService(txm TxManager, ledger LedgerReader, stock StockAllocator, tracer tracing.Tracer) *InventoryService {
	return &InventoryService{
		txm:    txm,
		ledger: ledger,
		stock:  stock,
		tracer: tracer,
	}
}

// ListHunucma returns the unit-denominated ledger
func (s *InventoryService) ListHunucma(ctx context.Context) ([]models.InventoryHunucma, error) {
	return s.ledger.ListHunucma(ctx)
}

// ListZelma returns the box-denominated ledger
func (s *InventoryService) ListZelma(ctx context.Context) ([]models.InventoryZelma, error) {
	return s.ledger.ListZelma(ctx)
}

// Adjust applies a manual stock correction in its own transaction
func (s *InventoryService) Adjust(ctx context.Context, in AdjustInput) (*AdjustResult, error) {
	txn := s.tracer.StartTransaction("adjust-inventory")
	defer s.tracer.EndTransaction(txn)

	var newStock int
	err := s.txm.Transaction(func(tx *gorm.DB) error {
		var err error
		newStock, err = s.stock.Adjust(ctx, tx, in.Location, in.ProductID, in.Delta)
		return err
	})
	if err != nil {
		s.tracer.RecordError(txn, err)
		return nil, err
	}

	log.Info().
		Str("location", string(in.Location)).
		Uint("product_id", in.ProductID).
		Int("delta", in.Delta).
		Int("new_stock", newStock).
		Msg("inventory adjusted")

	return &AdjustResult{Location: in.Location, ProductID: in.ProductID, NewStock: newStock}, nil
}
