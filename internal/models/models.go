package models

import (
	"time"

	"github.com/pkg/errors"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// OrderState is the lifecycle state of an order.
type OrderState string

const (
	StateDraft       OrderState = "draft"
	StateConfirmed   OrderState = "confirmed"
	StateRescheduled OrderState = "rescheduled"
	StateCancelled   OrderState = "cancelled"
	StateClosed      OrderState = "closed"
)

// ExitType is the fulfillment policy applied to an order at confirmation.
type ExitType string

const (
	ExitFirst  ExitType = "first_exit"
	ExitNormal ExitType = "normal_exit"
	ExitPickup ExitType = "pickup"
)

// BoxType describes how a product's boxes relate to loose units.
type BoxType string

const (
	BoxFixed         BoxType = "fixed"
	BoxVariable      BoxType = "variable"
	BoxNotApplicable BoxType = "not_applicable"
)

// Client represents a distributor client. Read-mostly; managed elsewhere.
type Client struct {
	ID        uint           `gorm:"primaryKey" json:"id"`
	CreatedAt time.Time      `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt time.Time      `gorm:"autoUpdateTime" json:"updated_at"`
	DeletedAt gorm.DeletedAt `gorm:"index" json:"-"`
	Name      string         `gorm:"not null" json:"name"`
	ExitType  ExitType       `gorm:"type:varchar(20);not null" json:"exit_type"`
	RFC       *string        `json:"rfc"`
	Email     *string        `json:"email"`
	Phone     *string        `json:"phone"`
	Notes     *string        `json:"notes"`
	Active    bool           `gorm:"not null;default:true" json:"active"`
	Branches  []Branch       `gorm:"foreignKey:ClientID" json:"-"`
}

// Branch is a delivery point belonging to a client. The branch name is
// globally unique because webhook rows are resolved by it.
type Branch struct {
	ID          uint           `gorm:"primaryKey" json:"id"`
	CreatedAt   time.Time      `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt   time.Time      `gorm:"autoUpdateTime" json:"updated_at"`
	DeletedAt   gorm.DeletedAt `gorm:"index" json:"-"`
	ClientID    uint           `gorm:"not null" json:"client_id"`
	Name        string         `gorm:"not null;uniqueIndex" json:"name"`
	Address     *string        `json:"address"`
	City        *string        `json:"city"`
	PostalCode  *string        `json:"postal_code"`
	Phone       *string        `json:"phone"`
	ManagerName *string        `json:"manager_name"`
	Active      bool           `gorm:"not null;default:true" json:"active"`
	Client      Client         `gorm:"foreignKey:ClientID" json:"-"`
}

// Product represents a sellable product. Read-mostly; managed elsewhere.
type Product struct {
	ID           uint            `gorm:"primaryKey" json:"id"`
	CreatedAt    time.Time       `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt    time.Time       `gorm:"autoUpdateTime" json:"updated_at"`
	DeletedAt    gorm.DeletedAt  `gorm:"index" json:"-"`
	InternalCode *string         `gorm:"uniqueIndex" json:"internal_code"`
	Name         string          `gorm:"not null" json:"name"`
	BoxType      BoxType         `gorm:"type:varchar(20);not null" json:"box_type"`
	UnitsPerBox  int             `gorm:"not null;default:1" json:"units_per_box"`
	GeneralPrice decimal.Decimal `gorm:"type:numeric(10,2)" json:"general_price"`
	Active       bool            `gorm:"not null;default:true" json:"active"`
}

// Order is a distributor sales order moving through the lifecycle
// draft -> confirmed -> {rescheduled, cancelled} -> {cancelled, closed}.
// The folio and delivery date stay null until confirmation.
type Order struct {
	ID              uint            `gorm:"primaryKey" json:"id"`
	CreatedAt       time.Time       `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt       time.Time       `gorm:"autoUpdateTime" json:"updated_at"`
	DeletedAt       gorm.DeletedAt  `gorm:"index" json:"-"`
	Folio           *string         `gorm:"uniqueIndex" json:"folio"`
	ClientID        uint            `gorm:"not null" json:"client_id"`
	BranchID        uint            `gorm:"not null" json:"branch_id"`
	State           OrderState      `gorm:"type:varchar(20);not null;default:draft;index" json:"state"`
	IsPickup        bool            `gorm:"not null;default:false" json:"is_pickup"`
	DeliveryDate    *time.Time      `gorm:"type:date" json:"delivery_date"`
	AppliedExitType *ExitType       `gorm:"type:varchar(20)" json:"applied_exit_type"`
	Subtotal        decimal.Decimal `gorm:"type:numeric(10,2)" json:"subtotal"`
	Discount        decimal.Decimal `gorm:"type:numeric(10,2)" json:"discount"`
	Total           decimal.Decimal `gorm:"type:numeric(10,2)" json:"total"`
	Notes           *string         `json:"notes"`
	ConfirmedAt     *time.Time      `json:"confirmed_at"`
	ConfirmedBy     *uint           `json:"confirmed_by"`
	RescheduledFrom *time.Time      `gorm:"type:date" json:"rescheduled_from"`
	CancelledAt     *time.Time      `json:"cancelled_at"`
	CancelReason    *string         `json:"cancel_reason"`
	ClosedAt        *time.Time      `json:"closed_at"`
	Client          Client          `gorm:"foreignKey:ClientID" json:"-"`
	Branch          Branch          `gorm:"foreignKey:BranchID" json:"-"`
	Items           []OrderItem     `gorm:"foreignKey:OrderID;constraint:OnDelete:CASCADE" json:"items"`
}

// OrderItem is a line of an order. Product name, units-per-box and box type
// are snapshotted at creation so later product edits cannot alter a
// committed order's bill of materials.
type OrderItem struct {
	ID                  uint            `gorm:"primaryKey" json:"id"`
	CreatedAt           time.Time       `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt           time.Time       `gorm:"autoUpdateTime" json:"updated_at"`
	OrderID             uint            `gorm:"not null;index" json:"order_id"`
	ProductID           uint            `gorm:"not null" json:"product_id"`
	ProductName         string          `gorm:"not null" json:"product_name"`
	QuantityUnits       int             `gorm:"not null;default:0" json:"quantity_units"`
	QuantityBoxes       int             `gorm:"not null;default:0" json:"quantity_boxes"`
	UnitPrice           decimal.Decimal `gorm:"type:numeric(10,2);not null" json:"unit_price"`
	Subtotal            decimal.Decimal `gorm:"type:numeric(10,2);not null" json:"subtotal"`
	UnitsPerBoxSnapshot int             `gorm:"not null;default:1" json:"units_per_box_snapshot"`
	BoxTypeSnapshot     BoxType         `gorm:"type:varchar(20)" json:"box_type_snapshot"`
	Notes               *string         `json:"notes"`
}

// InventoryHunucma is the unit-denominated primary warehouse ledger.
// Stock must never go negative after a committed mutation.
type InventoryHunucma struct {
	ID         uint      `gorm:"primaryKey" json:"id"`
	UpdatedAt  time.Time `gorm:"autoUpdateTime" json:"updated_at"`
	ProductID  uint      `gorm:"not null;uniqueIndex" json:"product_id"`
	StockUnits int       `gorm:"not null;default:0" json:"stock_units"`
	Product    Product   `gorm:"foreignKey:ProductID" json:"-"`
}

// InventoryZelma is the box-denominated overflow warehouse ledger.
// Negative stock is a backorder signal, not an error.
type InventoryZelma struct {
	ID         uint      `gorm:"primaryKey" json:"id"`
	UpdatedAt  time.Time `gorm:"autoUpdateTime" json:"updated_at"`
	ProductID  uint      `gorm:"not null;uniqueIndex" json:"product_id"`
	StockBoxes int       `gorm:"not null;default:0" json:"stock_boxes"`
	Product    Product   `gorm:"foreignKey:ProductID" json:"-"`
}

// FolioSequence is a dedicated counter row incremented under a row lock so
// concurrent confirmations cannot observe the same next folio.
type FolioSequence struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	UpdatedAt time.Time `gorm:"autoUpdateTime" json:"updated_at"`
	Name      string    `gorm:"not null;uniqueIndex" json:"name"`
	Value     int64     `gorm:"not null" json:"value"`
}

// CanTransition reports whether moving from the current state to the target
// state is legal. Cancelled and closed are terminal. Closing is only reached
// through day-close, never from a draft.
func (s OrderState) CanTransition(target OrderState) bool {
	switch s {
	case StateDraft:
		return target == StateConfirmed
	case StateConfirmed:
		return target == StateRescheduled || target == StateCancelled || target == StateClosed
	case StateRescheduled:
		return target == StateCancelled
	default:
		return false
	}
}

// SetupModels configures GORM models and runs migrations
func SetupModels(db *gorm.DB) error {
	// Apply all migrations
	err := db.AutoMigrate(
		&Client{},
		&Branch{},
		&Product{},
		&InventoryHunucma{},
		&InventoryZelma{},
		&Order{},
		&OrderItem{},
		&FolioSequence{},
	)

	if err != nil {
		return errors.Wrap(err, "failed to run auto migrations")
	}

	return nil
}
