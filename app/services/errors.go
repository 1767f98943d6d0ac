package services

import (
	"errors"
	"fmt"
)

var (
	// ErrNotFound is returned for an unknown item, order, kitchen item or batch
	ErrNotFound = errors.New("not found")
	// ErrInsufficientStock is returned when a reduction would take stock below zero
	ErrInsufficientStock = errors.New("insufficient stock")
	// ErrInvalidQuantity is returned for non-positive quantities or more units than are pending
	ErrInvalidQuantity = errors.New("invalid quantity")
	// ErrInvalidTransition is returned for an order status change the state machine does not allow
	ErrInvalidTransition = errors.New("invalid status transition")
	// ErrExceedsRemaining is returned when converting more prepared units than remain
	ErrExceedsRemaining = errors.New("quantity exceeds prepared remaining")
)

// StockError describes which item blocked a reduction
type StockError struct {
	ItemID    string
	ItemName  string
	Requested int
	Available int
}

func (e *StockError) Error() string {
	return fmt.Sprintf("insufficient stock for %s (%s): requested %d, available %d",
		e.ItemName, e.ItemID, e.Requested, e.Available)
}

func (e *StockError) Unwrap() error {
	return ErrInsufficientStock
}

func notFound(kind, id string) error {
	return fmt.Errorf("%s %q: %w", kind, id, ErrNotFound)
}
