package services

import (
	"context"
	"database/sql"
	"time"

	"github.com/stretchr/testify/mock"
	"gorm.io/gorm"

	"example.com/backstage/services/orders/internal/documents"
	"example.com/backstage/services/orders/internal/inventory"
	"example.com/backstage/services/orders/internal/models"
	"example.com/backstage/services/orders/internal/repositories"
	"example.com/backstage/services/orders/internal/tracing"
)

// fakeTx runs the transactional function directly with a nil handle; the
// mocked stores ignore it.
type fakeTx struct{}

func (fakeTx) Transaction(fc func(tx *gorm.DB) error, opts ...*sql.TxOptions) error {
	return fc(nil)
}

func noopTracer() tracing.Tracer {
	return &tracing.NewRelicTracer{}
}

type MockOrderStore struct {
	mock.Mock
}

func (m *MockOrderStore) Create(ctx context.Context, tx *gorm.DB, order *models.Order) error {
	args := m.Called(ctx, tx, order)
	return args.Error(0)
}

func (m *MockOrderStore) CreateItem(ctx context.Context, tx *gorm.DB, item *models.OrderItem) error {
	args := m.Called(ctx, tx, item)
	return args.Error(0)
}

func (m *MockOrderStore) DeleteItems(ctx context.Context, tx *gorm.DB, orderID uint) error {
	args := m.Called(ctx, tx, orderID)
	return args.Error(0)
}

func (m *MockOrderStore) Save(ctx context.Context, tx *gorm.DB, order *models.Order) error {
	args := m.Called(ctx, tx, order)
	return args.Error(0)
}

func (m *MockOrderStore) GetWithItems(ctx context.Context, id uint) (*models.Order, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Order), args.Error(1)
}

func (m *MockOrderStore) GetForUpdate(ctx context.Context, tx *gorm.DB, id uint) (*models.Order, error) {
	args := m.Called(ctx, tx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Order), args.Error(1)
}

func (m *MockOrderStore) List(ctx context.Context, f repositories.OrderFilter) ([]models.Order, error) {
	args := m.Called(ctx, f)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]models.Order), args.Error(1)
}

func (m *MockOrderStore) ListConfirmedWithItems(ctx context.Context, tx *gorm.DB) ([]models.Order, error) {
	args := m.Called(ctx, tx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]models.Order), args.Error(1)
}

func (m *MockOrderStore) ListConfirmedForDate(ctx context.Context, date time.Time) ([]models.Order, error) {
	args := m.Called(ctx, date)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]models.Order), args.Error(1)
}

type MockClientStore struct {
	mock.Mock
}

func (m *MockClientStore) GetByID(ctx context.Context, id uint) (*models.Client, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Client), args.Error(1)
}

type MockBranchStore struct {
	mock.Mock
}

func (m *MockBranchStore) GetByID(ctx context.Context, id uint) (*models.Branch, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Branch), args.Error(1)
}

func (m *MockBranchStore) GetActiveByName(ctx context.Context, name string) (*models.Branch, error) {
	args := m.Called(ctx, name)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Branch), args.Error(1)
}

type MockProductStore struct {
	mock.Mock
}

func (m *MockProductStore) GetByID(ctx context.Context, id uint) (*models.Product, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Product), args.Error(1)
}

func (m *MockProductStore) GetActiveByName(ctx context.Context, name string) (*models.Product, error) {
	args := m.Called(ctx, name)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Product), args.Error(1)
}

type MockFolioSource struct {
	mock.Mock
}

func (m *MockFolioSource) Next(ctx context.Context, tx *gorm.DB) (string, error) {
	args := m.Called(ctx, tx)
	return args.String(0), args.Error(1)
}

type MockStockAllocator struct {
	mock.Mock
}

func (m *MockStockAllocator) Allocate(ctx context.Context, tx *gorm.DB, productID uint, requiredUnits, unitsPerBox int, exitType models.ExitType) error {
	args := m.Called(ctx, tx, productID, requiredUnits, unitsPerBox, exitType)
	return args.Error(0)
}

func (m *MockStockAllocator) CheckAvailability(ctx context.Context, tx *gorm.DB, productID uint, productName string, requiredUnits, unitsPerBox int) error {
	args := m.Called(ctx, tx, productID, productName, requiredUnits, unitsPerBox)
	return args.Error(0)
}

func (m *MockStockAllocator) Adjust(ctx context.Context, tx *gorm.DB, location inventory.Location, productID uint, delta int) (int, error) {
	args := m.Called(ctx, tx, location, productID, delta)
	return args.Int(0), args.Error(1)
}

type MockDraftCreator struct {
	mock.Mock
}

func (m *MockDraftCreator) CreateDraftTx(ctx context.Context, tx *gorm.DB, in CreateOrderInput) (*models.Order, error) {
	args := m.Called(ctx, tx, in)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Order), args.Error(1)
}

type MockIndexer struct {
	mock.Mock
}

func (m *MockIndexer) IndexClosedOrder(ctx context.Context, order *models.Order) error {
	args := m.Called(ctx, order)
	return args.Error(0)
}

type MockEventPublisher struct {
	mock.Mock
}

func (m *MockEventPublisher) SendJSON(ctx context.Context, queueName string, body interface{}) error {
	args := m.Called(ctx, queueName, body)
	return args.Error(0)
}

type MockRenderer struct {
	mock.Mock
}

func (m *MockRenderer) RenderOrderNote(ctx context.Context, note documents.OrderNote) (documents.ArtifactRef, error) {
	args := m.Called(ctx, note)
	return args.Get(0).(documents.ArtifactRef), args.Error(1)
}

func (m *MockRenderer) RenderDeliverySummary(ctx context.Context, summary documents.DeliverySummary) (documents.ArtifactRef, error) {
	args := m.Called(ctx, summary)
	return args.Get(0).(documents.ArtifactRef), args.Error(1)
}
