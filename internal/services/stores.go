package services

import (
	"context"
	"database/sql"
	"time"

	"gorm.io/gorm"

	"example.com/backstage/services/orders/internal/folio"
	"example.com/backstage/services/orders/internal/inventory"
	"example.com/backstage/services/orders/internal/models"
	"example.com/backstage/services/orders/internal/repositories"
)

// TxManager runs a function inside a database transaction. Satisfied by
// *gorm.DB.
type TxManager interface {
	Transaction(fc func(tx *gorm.DB) error, opts ...*sql.TxOptions) error
}

// OrderStore is the order persistence surface the services depend on.
type OrderStore interface {
	Create(ctx context.Context, tx *gorm.DB, order *models.Order) error
	CreateItem(ctx context.Context, tx *gorm.DB, item *models.OrderItem) error
	DeleteItems(ctx context.Context, tx *gorm.DB, orderID uint) error
	Save(ctx context.Context, tx *gorm.DB, order *models.Order) error
	GetWithItems(ctx context.Context, id uint) (*models.Order, error)
	GetForUpdate(ctx context.Context, tx *gorm.DB, id uint) (*models.Order, error)
	List(ctx context.Context, f repositories.OrderFilter) ([]models.Order, error)
	ListConfirmedWithItems(ctx context.Context, tx *gorm.DB) ([]models.Order, error)
	ListConfirmedForDate(ctx context.Context, date time.Time) ([]models.Order, error)
}

// ClientStore resolves clients.
type ClientStore interface {
	GetByID(ctx context.Context, id uint) (*models.Client, error)
}

// BranchStore resolves branches by ID or unique display name.
type BranchStore interface {
	GetByID(ctx context.Context, id uint) (*models.Branch, error)
	GetActiveByName(ctx context.Context, name string) (*models.Branch, error)
}

// ProductStore resolves products by ID or display name.
type ProductStore interface {
	GetByID(ctx context.Context, id uint) (*models.Product, error)
	GetActiveByName(ctx context.Context, name string) (*models.Product, error)
}

// FolioSource hands out the next folio inside the caller's transaction.
type FolioSource interface {
	Next(ctx context.Context, tx *gorm.DB) (string, error)
}

// StockAllocator is the inventory surface used at confirmation and day-close.
type StockAllocator interface {
	Allocate(ctx context.Context, tx *gorm.DB, productID uint, requiredUnits, unitsPerBox int, exitType models.ExitType) error
	CheckAvailability(ctx context.Context, tx *gorm.DB, productID uint, productName string, requiredUnits, unitsPerBox int) error
	Adjust(ctx context.Context, tx *gorm.DB, location inventory.Location, productID uint, delta int) (int, error)
}

// ClosedOrderIndexer indexes closed orders for search, post-commit.
type ClosedOrderIndexer interface {
	IndexClosedOrder(ctx context.Context, order *models.Order) error
}

// EventPublisher publishes domain events to a queue.
type EventPublisher interface {
	SendJSON(ctx context.Context, queueName string, body interface{}) error
}

var (
	_ OrderStore     = (*repositories.OrderRepository)(nil)
	_ ClientStore    = (*repositories.ClientRepository)(nil)
	_ BranchStore    = (*repositories.BranchRepository)(nil)
	_ ProductStore   = (*repositories.ProductRepository)(nil)
	_ FolioSource    = (*folio.Sequencer)(nil)
	_ StockAllocator = (*inventory.Allocator)(nil)
	_ LedgerReader   = (*repositories.InventoryRepository)(nil)
	_ TxManager      = (*gorm.DB)(nil)
)
