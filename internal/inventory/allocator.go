// Package inventory applies the two-tier warehouse deduction policy.
//
// Hunucma tracks loose units and is a hard ledger: it never goes negative.
// Zelma tracks sealed boxes and absorbs overflow: negative stock there is a
// backorder signal, not an error.
package inventory

import (
	"context"

	"github.com/pkg/errors"
	"gorm.io/gorm"

	"example.com/backstage/services/orders/internal/apperrors"
	"example.com/backstage/services/orders/internal/models"
)

// Location identifies one of the two warehouse ledgers.
type Location string

const (
	LocationHunucma Location = "hunucma"
	LocationZelma   Location = "zelma"
)

// LedgerStore is the persistence surface the allocator needs. The ForUpdate
// reads must hold a row lock for the remainder of the transaction; a missing
// ledger row is returned as (nil, nil), not an error.
type LedgerStore interface {
	HunucmaForUpdate(ctx context.Context, tx *gorm.DB, productID uint) (*models.InventoryHunucma, error)
	ZelmaForUpdate(ctx context.Context, tx *gorm.DB, productID uint) (*models.InventoryZelma, error)
	SaveHunucma(ctx context.Context, tx *gorm.DB, inv *models.InventoryHunucma) error
	SaveZelma(ctx context.Context, tx *gorm.DB, inv *models.InventoryZelma) error
	CreateZelma(ctx context.Context, tx *gorm.DB, inv *models.InventoryZelma) error
}

// Allocator deducts order quantities from the warehouse ledgers according to
// the applied exit type. All methods participate in the caller's transaction.
type Allocator struct {
	store LedgerStore
}

// NewAllocator creates an allocator over the given ledger store.
func NewAllocator(store LedgerStore) *Allocator {
	return &Allocator{store: store}
}

// BoxesFor converts a unit quantity to whole boxes, rounding up. A
// units-per-box of zero or less is treated as one unit per box.
func BoxesFor(units, unitsPerBox int) int {
	if unitsPerBox <= 0 {
		unitsPerBox = 1
	}
	return (units + unitsPerBox - 1) / unitsPerBox
}

// Allocate deducts requiredUnits of a product from the ledgers.
//
// pickup and normal_exit orders draw boxes straight from Zelma. first_exit
// orders drain Hunucma units first and convert only the remainder to Zelma
// boxes. A missing ledger row counts as zero stock for that ledger; the
// deduction still proceeds against the other one.
func (a *Allocator) Allocate(ctx context.Context, tx *gorm.DB, productID uint, requiredUnits, unitsPerBox int, exitType models.ExitType) error {
	if requiredUnits <= 0 {
		return nil
	}

	if exitType != models.ExitFirst {
		return a.deductZelma(ctx, tx, productID, BoxesFor(requiredUnits, unitsPerBox))
	}

	hunucma, err := a.store.HunucmaForUpdate(ctx, tx, productID)
	if err != nil {
		return errors.Wrap(err, "failed to read hunucma ledger")
	}

	stockBefore := 0
	if hunucma != nil {
		stockBefore = hunucma.StockUnits
	}

	if stockBefore >= requiredUnits {
		hunucma.StockUnits -= requiredUnits
		return errors.Wrap(a.store.SaveHunucma(ctx, tx, hunucma), "failed to deduct hunucma stock")
	}

	// Drain whatever Hunucma has, then cover the rest in boxes from Zelma.
	if hunucma != nil && stockBefore > 0 {
		hunucma.StockUnits = 0
		if err := a.store.SaveHunucma(ctx, tx, hunucma); err != nil {
			return errors.Wrap(err, "failed to drain hunucma stock")
		}
	}

	remainder := requiredUnits - stockBefore
	return a.deductZelma(ctx, tx, productID, BoxesFor(remainder, unitsPerBox))
}

func (a *Allocator) deductZelma(ctx context.Context, tx *gorm.DB, productID uint, boxes int) error {
	zelma, err := a.store.ZelmaForUpdate(ctx, tx, productID)
	if err != nil {
		return errors.Wrap(err, "failed to read zelma ledger")
	}

	if zelma == nil {
		// No ledger row yet: record the backorder as negative stock.
		zelma = &models.InventoryZelma{ProductID: productID, StockBoxes: -boxes}
		return errors.Wrap(a.store.CreateZelma(ctx, tx, zelma), "failed to create zelma ledger row")
	}

	zelma.StockBoxes -= boxes
	return errors.Wrap(a.store.SaveZelma(ctx, tx, zelma), "failed to deduct zelma stock")
}

// CheckAvailability verifies, without deducting, that an item can be covered:
// either Hunucma holds enough units, or Zelma holds enough whole boxes for
// the full requirement. Missing rows count as zero stock.
func (a *Allocator) CheckAvailability(ctx context.Context, tx *gorm.DB, productID uint, productName string, requiredUnits, unitsPerBox int) error {
	if requiredUnits <= 0 {
		return nil
	}

	hunucma, err := a.store.HunucmaForUpdate(ctx, tx, productID)
	if err != nil {
		return errors.Wrap(err, "failed to read hunucma ledger")
	}

	hunucmaUnits := 0
	if hunucma != nil {
		hunucmaUnits = hunucma.StockUnits
	}
	if hunucmaUnits >= requiredUnits {
		return nil
	}

	zelma, err := a.store.ZelmaForUpdate(ctx, tx, productID)
	if err != nil {
		return errors.Wrap(err, "failed to read zelma ledger")
	}

	zelmaBoxes := 0
	if zelma != nil && zelma.StockBoxes > 0 {
		zelmaBoxes = zelma.StockBoxes
	}
	if zelmaBoxes >= BoxesFor(requiredUnits, unitsPerBox) {
		return nil
	}

	if unitsPerBox <= 0 {
		unitsPerBox = 1
	}
	return &apperrors.InsufficientStockError{
		ProductID:   productID,
		ProductName: productName,
		Required:    requiredUnits,
		Available:   hunucmaUnits + zelmaBoxes*unitsPerBox,
	}
}

// Adjust applies a manual stock correction outside order fulfillment. Hunucma
// rejects any adjustment that would drive stock below zero; Zelma has no
// floor. Adjustments target existing ledger rows only.
func (a *Allocator) Adjust(ctx context.Context, tx *gorm.DB, location Location, productID uint, delta int) (int, error) {
	switch location {
	case LocationHunucma:
		inv, err := a.store.HunucmaForUpdate(ctx, tx, productID)
		if err != nil {
			return 0, errors.Wrap(err, "failed to read hunucma ledger")
		}
		if inv == nil {
			return 0, apperrors.NotFound("hunucma inventory", productID)
		}

		newStock := inv.StockUnits + delta
		if newStock < 0 {
			return 0, apperrors.Validation("delta_units", "hunucma stock cannot go negative")
		}
		inv.StockUnits = newStock
		if err := a.store.SaveHunucma(ctx, tx, inv); err != nil {
			return 0, errors.Wrap(err, "failed to adjust hunucma stock")
		}
		return newStock, nil

	case LocationZelma:
		inv, err := a.store.ZelmaForUpdate(ctx, tx, productID)
		if err != nil {
			return 0, errors.Wrap(err, "failed to read zelma ledger")
		}
		if inv == nil {
			return 0, apperrors.NotFound("zelma inventory", productID)
		}

		inv.StockBoxes += delta
		if err := a.store.SaveZelma(ctx, tx, inv); err != nil {
			return 0, errors.Wrap(err, "failed to adjust zelma stock")
		}
		return inv.StockBoxes, nil

	default:
		return 0, apperrors.Validation("location", "unknown inventory location")
	}
}
