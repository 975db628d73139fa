package repositories

import (
	"context"
	"strings"
	"time"

	"github.com/pkg/errors"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"example.com/backstage/services/orders/internal/apperrors"
	"example.com/backstage/services/orders/internal/models"
)

// OrderFilter narrows order listings.
type OrderFilter struct {
	State        models.OrderState
	DeliveryDate *time.Time
	Folio        string
}

// OrderRepository provides access to orders and their items
type OrderRepository struct {
	db         *gorm.DB // Write database
	readOnlyDB *gorm.DB // Read-only database
}

// NewOrderRepository creates a new order repository
func NewOrderRepository(db *gorm.DB, readOnlyDB *gorm.DB) *OrderRepository {
	return &OrderRepository{
		db:         db,
		readOnlyDB: readOnlyDB,
	}
}

// Create inserts a new order within the caller's transaction
func (r *OrderRepository) Create(ctx context.Context, tx *gorm.DB, order *models.Order) error {
	return errors.Wrap(tx.WithContext(ctx).Create(order).Error, "failed to create order")
}

// CreateItem inserts a new order item within the caller's transaction
func (r *OrderRepository) CreateItem(ctx context.Context, tx *gorm.DB, item *models.OrderItem) error {
	return errors.Wrap(tx.WithContext(ctx).Create(item).Error, "failed to create order item")
}

// DeleteItems removes all items of an order within the caller's transaction
func (r *OrderRepository) DeleteItems(ctx context.Context, tx *gorm.DB, orderID uint) error {
	err := tx.WithContext(ctx).Where("order_id = ?", orderID).Delete(&models.OrderItem{}).Error
	return errors.Wrap(err, "failed to delete order items")
}

// Save persists order field changes within the caller's transaction
func (r *OrderRepository) Save(ctx context.Context, tx *gorm.DB, order *models.Order) error {
	return errors.Wrap(tx.WithContext(ctx).Omit("Items", "Client", "Branch").Save(order).Error, "failed to save order")
}

// GetWithItems gets an order with its items, client and branch preloaded
func (r *OrderRepository) GetWithItems(ctx context.Context, id uint) (*models.Order, error) {
	var order models.Order
	err := r.readOnlyDB.WithContext(ctx).
		Preload("Items").
		Preload("Client").
		Preload("Branch").
		First(&order, id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, apperrors.NotFound("order", id)
	}
	if err != nil {
		return nil, errors.Wrap(err, "failed to get order with items")
	}
	return &order, nil
}

// GetForUpdate locks an order row for the remainder of the transaction and
// returns it with items and client preloaded
func (r *OrderRepository) GetForUpdate(ctx context.Context, tx *gorm.DB, id uint) (*models.Order, error) {
	var order models.Order
	err := tx.WithContext(ctx).
		Clauses(clause.Locking{Strength: "UPDATE"}).
		First(&order, id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, apperrors.NotFound("order", id)
	}
	if err != nil {
		return nil, errors.Wrap(err, "failed to lock order")
	}

	if err := tx.WithContext(ctx).Where("order_id = ?", id).Find(&order.Items).Error; err != nil {
		return nil, errors.Wrap(err, "failed to load order items")
	}
	return &order, nil
}

// List returns orders matching the filter, newest first
func (r *OrderRepository) List(ctx context.Context, f OrderFilter) ([]models.Order, error) {
	q := r.readOnlyDB.WithContext(ctx).
		Preload("Items").
		Preload("Client").
		Preload("Branch").
		Order("created_at DESC")

	if f.State != "" {
		q = q.Where("state = ?", f.State)
	}
	if f.DeliveryDate != nil {
		q = q.Where("delivery_date = ?", f.DeliveryDate.Format("2006-01-02"))
	}
	if f.Folio != "" {
		q = q.Where("folio LIKE ?", "%"+f.Folio+"%")
	}

	var orders []models.Order
	if err := q.Find(&orders).Error; err != nil {
		return nil, errors.Wrap(err, "failed to list orders")
	}
	return orders, nil
}

// ListConfirmedWithItems locks and returns every confirmed order with its
// items, for the day-close batch
func (r *OrderRepository) ListConfirmedWithItems(ctx context.Context, tx *gorm.DB) ([]models.Order, error) {
	var orders []models.Order
	err := tx.WithContext(ctx).
		Clauses(clause.Locking{Strength: "UPDATE"}).
		Where("state = ?", models.StateConfirmed).
		Order("id").
		Find(&orders).Error
	if err != nil {
		return nil, errors.Wrap(err, "failed to list confirmed orders")
	}

	for i := range orders {
		if err := tx.WithContext(ctx).Where("order_id = ?", orders[i].ID).Find(&orders[i].Items).Error; err != nil {
			return nil, errors.Wrap(err, "failed to load confirmed order items")
		}
	}
	return orders, nil
}

// ListConfirmedForDate returns confirmed orders scheduled for a delivery date
func (r *OrderRepository) ListConfirmedForDate(ctx context.Context, date time.Time) ([]models.Order, error) {
	var orders []models.Order
	err := r.readOnlyDB.WithContext(ctx).
		Preload("Items").
		Preload("Client").
		Preload("Branch").
		Where("state = ? AND delivery_date = ?", models.StateConfirmed, date.Format("2006-01-02")).
		Order("id").
		Find(&orders).Error
	if err != nil {
		return nil, errors.Wrap(err, "failed to list confirmed orders for date")
	}
	return orders, nil
}

// ClientRepository provides access to client data
type ClientRepository struct {
	db         *gorm.DB
	readOnlyDB *gorm.DB
}

// NewClientRepository creates a new client repository
func NewClientRepository(db *gorm.DB, readOnlyDB *gorm.DB) *ClientRepository {
	return &ClientRepository{
		db:         db,
		readOnlyDB: readOnlyDB,
	}
}

// GetByID gets a client by ID
func (r *ClientRepository) GetByID(ctx context.Context, id uint) (*models.Client, error) {
	var client models.Client
	err := r.readOnlyDB.WithContext(ctx).First(&client, id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, apperrors.NotFound("client", id)
	}
	if err != nil {
		return nil, errors.Wrap(err, "failed to get client by ID")
	}
	return &client, nil
}

// BranchRepository provides access to branch data
type BranchRepository struct {
	db         *gorm.DB
	readOnlyDB *gorm.DB
}

// NewBranchRepository creates a new branch repository
func NewBranchRepository(db *gorm.DB, readOnlyDB *gorm.DB) *BranchRepository {
	return &BranchRepository{
		db:         db,
		readOnlyDB: readOnlyDB,
	}
}

// GetByID gets a branch by ID
func (r *BranchRepository) GetByID(ctx context.Context, id uint) (*models.Branch, error) {
	var branch models.Branch
	err := r.readOnlyDB.WithContext(ctx).First(&branch, id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, apperrors.NotFound("branch", id)
	}
	if err != nil {
		return nil, errors.Wrap(err, "failed to get branch by ID")
	}
	return &branch, nil
}

// GetActiveByName gets an active branch by its unique display name
func (r *BranchRepository) GetActiveByName(ctx context.Context, name string) (*models.Branch, error) {
	var branch models.Branch
	err := r.readOnlyDB.WithContext(ctx).
		Where("name = ? AND active = ?", strings.TrimSpace(name), true).
		First(&branch).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, apperrors.NotFound("branch", name)
	}
	if err != nil {
		return nil, errors.Wrap(err, "failed to get branch by name")
	}
	return &branch, nil
}

// ProductRepository provides access to product data
type ProductRepository struct {
	db         *gorm.DB
	readOnlyDB *gorm.DB
}

// NewProductRepository creates a new product repository
func NewProductRepository(db *gorm.DB, readOnlyDB *gorm.DB) *ProductRepository {
	return &ProductRepository{
		db:         db,
		readOnlyDB: readOnlyDB,
	}
}

// GetByID gets a product by ID
func (r *ProductRepository) GetByID(ctx context.Context, id uint) (*models.Product, error) {
	var product models.Product
	err := r.readOnlyDB.WithContext(ctx).First(&product, id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, apperrors.NotFound("product", id)
	}
	if err != nil {
		return nil, errors.Wrap(err, "failed to get product by ID")
	}
	return &product, nil
}

// GetActiveByName gets an active product by exact display name
func (r *ProductRepository) GetActiveByName(ctx context.Context, name string) (*models.Product, error) {
	var product models.Product
	err := r.readOnlyDB.WithContext(ctx).
		Where("name = ? AND active = ?", strings.TrimSpace(name), true).
		First(&product).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, apperrors.NotFound("product", name)
	}
	if err != nil {
		return nil, errors.Wrap(err, "failed to get product by name")
	}
	return &product, nil
}

// InventoryRepository provides access to both warehouse ledgers. It
// implements the allocator's LedgerStore: the ForUpdate reads take a row
// lock and report a missing ledger row as (nil, nil).
type InventoryRepository struct {
	db         *gorm.DB
	readOnlyDB *gorm.DB
}

// NewInventoryRepository creates a new inventory repository
func NewInventoryRepository(db *gorm.DB, readOnlyDB *gorm.DB) *InventoryRepository {
	return &InventoryRepository{
		db:         db,
		readOnlyDB: readOnlyDB,
	}
}

// HunucmaForUpdate locks and returns the Hunucma ledger row for a product
func (r *InventoryRepository) HunucmaForUpdate(ctx context.Context, tx *gorm.DB, productID uint) (*models.InventoryHunucma, error) {
	var inv models.InventoryHunucma
	err := tx.WithContext(ctx).
		Clauses(clause.Locking{Strength: "UPDATE"}).
		Where("product_id = ?", productID).
		First(&inv).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, errors.Wrap(err, "failed to lock hunucma inventory")
	}
	return &inv, nil
}

// ZelmaForUpdate locks and returns the Zelma ledger row for a product
func (r *InventoryRepository) ZelmaForUpdate(ctx context.Context, tx *gorm.DB, productID uint) (*models.InventoryZelma, error) {
	var inv models.InventoryZelma
	err := tx.WithContext(ctx).
		Clauses(clause.Locking{Strength: "UPDATE"}).
		Where("product_id = ?", productID).
		First(&inv).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, errors.Wrap(err, "failed to lock zelma inventory")
	}
	return &inv, nil
}

// SaveHunucma persists a Hunucma ledger row within the caller's transaction
func (r *InventoryRepository) SaveHunucma(ctx context.Context, tx *gorm.DB, inv *models.InventoryHunucma) error {
	return errors.Wrap(tx.WithContext(ctx).Save(inv).Error, "failed to save hunucma inventory")
}

// SaveZelma persists a Zelma ledger row within the caller's transaction
func (r *InventoryRepository) SaveZelma(ctx context.Context, tx *gorm.DB, inv *models.InventoryZelma) error {
	return errors.Wrap(tx.WithContext(ctx).Save(inv).Error, "failed to save zelma inventory")
}

// CreateZelma inserts a Zelma ledger row within the caller's transaction
func (r *InventoryRepository) CreateZelma(ctx context.Context, tx *gorm.DB, inv *models.InventoryZelma) error {
	return errors.Wrap(tx.WithContext(ctx).Create(inv).Error, "failed to create zelma inventory")
}

// ListHunucma returns the Hunucma ledger with products preloaded
func (r *InventoryRepository) ListHunucma(ctx context.Context) ([]models.InventoryHunucma, error) {
	var rows []models.InventoryHunucma
	err := r.readOnlyDB.WithContext(ctx).
		Preload("Product").
		Order("product_id").
		Find(&rows).Error
	if err != nil {
		return nil, errors.Wrap(err, "failed to list hunucma inventory")
	}
	return rows, nil
}

// ListZelma returns the Zelma ledger with products preloaded
func (r *InventoryRepository) ListZelma(ctx context.Context) ([]models.InventoryZelma, error) {
	var rows []models.InventoryZelma
	err := r.readOnlyDB.WithContext(ctx).
		Preload("Product").
		Order("product_id").
		Find(&rows).Error
	if err != nil {
		return nil, errors.Wrap(err, "failed to list zelma inventory")
	}
	return rows, nil
}

// FolioRepository provides access to the folio sequence counter
type FolioRepository struct {
	db         *gorm.DB
	readOnlyDB *gorm.DB
}

// NewFolioRepository creates a new folio repository
func NewFolioRepository(db *gorm.DB, readOnlyDB *gorm.DB) *FolioRepository {
	return &FolioRepository{
		db:         db,
		readOnlyDB: readOnlyDB,
	}
}

// LockSequence locks the named counter row for the remainder of the
// transaction; a missing counter is reported as (nil, nil)
func (r *FolioRepository) LockSequence(ctx context.Context, tx *gorm.DB, name string) (*models.FolioSequence, error) {
	var seq models.FolioSequence
	err := tx.WithContext(ctx).
		Clauses(clause.Locking{Strength: "UPDATE"}).
		Where("name = ?", name).
		First(&seq).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, errors.Wrap(err, "failed to lock folio sequence")
	}
	return &seq, nil
}

// CreateSequence inserts a counter row within the caller's transaction
func (r *FolioRepository) CreateSequence(ctx context.Context, tx *gorm.DB, seq *models.FolioSequence) error {
	return errors.Wrap(tx.WithContext(ctx).Create(seq).Error, "failed to create folio sequence")
}

// SaveSequence persists a counter row within the caller's transaction
func (r *FolioRepository) SaveSequence(ctx context.Context, tx *gorm.DB, seq *models.FolioSequence) error {
	return errors.Wrap(tx.WithContext(ctx).Save(seq).Error, "failed to save folio sequence")
}

// LastAssignedFolio returns the folio of the most recently created non-draft
// order, or "" when none exists
func (r *FolioRepository) LastAssignedFolio(ctx context.Context, tx *gorm.DB) (string, error) {
	var order models.Order
	err := tx.WithContext(ctx).
		Where("folio IS NOT NULL AND state <> ?", models.StateDraft).
		Order("id DESC").
		First(&order).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return "", nil
	}
	if err != nil {
		return "", errors.Wrap(err, "failed to look up last assigned folio")
	}
	if order.Folio == nil {
		return "", nil
	}
	return *order.Folio, nil
}
