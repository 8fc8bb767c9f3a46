package utils

import (
	"errors"
	"fmt"

	"github.com/shopspring/decimal"
)

var ErrorRecordNotFound = errors.New("record not found")

// NotFoundError marks an absent record for the caller's tenant (404).
type NotFoundError struct {
	Msg string
}

func (e *NotFoundError) Error() string { return e.Msg }

func NotFound(format string, args ...any) error {
	return &NotFoundError{Msg: fmt.Sprintf(format, args...)}
}

// StateViolationError marks an operation rejected by the order state
// machine (400). The message names the required status.
type StateViolationError struct {
	Msg string
}

func (e *StateViolationError) Error() string { return e.Msg }

func StateViolation(format string, args ...any) error {
	return &StateViolationError{Msg: fmt.Sprintf(format, args...)}
}

// CapacityError marks a reservation that failed on available stock (400).
// It carries the shortage detail so callers can render it without a
// follow-up query.
type CapacityError struct {
	ProductId   int
	ProductName string
	Available   decimal.Decimal
	Required    decimal.Decimal
}

func (e *CapacityError) Error() string {
	return fmt.Sprintf("insufficient inventory for %s. Available: %s, Required: %s",
		e.ProductName, e.Available.String(), e.Required.String())
}

// ConflictError marks a transaction that kept aborting on concurrent
// contention after the bounded retries were spent (409). Safe to retry.
type ConflictError struct {
	Msg string
}

func (e *ConflictError) Error() string { return e.Msg }

func Conflict(format string, args ...any) error {
	return &ConflictError{Msg: fmt.Sprintf(format, args...)}
}
