// Package apperrors defines the typed error taxonomy surfaced to callers.
// Any failure inside a transactional operation rolls the transaction back and
// propagates one of these; internal failures stay generic and are only logged.
package apperrors

import (
	"fmt"

	"example.com/backstage/services/orders/internal/models"
)

// NotFoundError indicates a referenced entity does not exist.
type NotFoundError struct {
	Entity string
	ID     interface{}
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("%s %v not found", e.Entity, e.ID)
}

// NotFound creates a NotFoundError for an entity reference.
func NotFound(entity string, id interface{}) *NotFoundError {
	return &NotFoundError{Entity: entity, ID: id}
}

// ValidationError indicates a request field failed validation.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid %s: %s", e.Field, e.Reason)
}

// Validation creates a ValidationError for a field.
func Validation(field, reason string) *ValidationError {
	return &ValidationError{Field: field, Reason: reason}
}

// StateConflictError indicates an order state transition that the lifecycle
// does not allow.
type StateConflictError struct {
	CurrentState models.OrderState
	Attempted    string
}

func (e *StateConflictError) Error() string {
	return fmt.Sprintf("cannot %s an order in state %q", e.Attempted, e.CurrentState)
}

// StateConflict creates a StateConflictError for an illegal transition.
func StateConflict(current models.OrderState, attempted string) *StateConflictError {
	return &StateConflictError{CurrentState: current, Attempted: attempted}
}

// InsufficientStockError indicates neither warehouse can cover an item.
// Available is expressed in units, counting Zelma boxes at the item's
// units-per-box.
type InsufficientStockError struct {
	ProductID   uint
	ProductName string
	Required    int
	Available   int
}

func (e *InsufficientStockError) Error() string {
	return fmt.Sprintf("insufficient stock for product %q (id=%d): required %d units, available %d",
		e.ProductName, e.ProductID, e.Required, e.Available)
}

// UniqueConstraintError indicates a uniqueness violation on a field.
type UniqueConstraintError struct {
	Field string
}

func (e *UniqueConstraintError) Error() string {
	return fmt.Sprintf("duplicate value for unique field %s", e.Field)
}
