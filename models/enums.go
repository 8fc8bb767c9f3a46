package models

import (
	"encoding/json"
	"errors"
)

// OrderStatus is the closed set of order lifecycle states.
//
//	Draft --confirm--> Confirmed --fulfill--> Fulfilled (terminal)
//	Draft <--revert--- Confirmed
//
// Cancelled is a deliberate extension point and not part of the enum yet.
type OrderStatus string

const (
	OrderStatusDraft     OrderStatus = "Draft"
	OrderStatusConfirmed OrderStatus = "Confirmed"
	OrderStatusFulfilled OrderStatus = "Fulfilled"
)

func (s OrderStatus) Valid() bool {
	switch s {
	case OrderStatusDraft, OrderStatusConfirmed, OrderStatusFulfilled:
		return true
	}
	return false
}

// Terminal reports whether no further transition may leave this status.
func (s OrderStatus) Terminal() bool {
	return s == OrderStatusFulfilled
}

// CanTransitionTo enforces the lifecycle edges exhaustively.
func (s OrderStatus) CanTransitionTo(next OrderStatus) bool {
	switch s {
	case OrderStatusDraft:
		return next == OrderStatusConfirmed
	case OrderStatusConfirmed:
		return next == OrderStatusDraft || next == OrderStatusFulfilled
	case OrderStatusFulfilled:
		return false
	default:
		return false
	}
}

func (s OrderStatus) MarshalJSON() ([]byte, error) {
	return json.Marshal(string(s))
}

func (s *OrderStatus) UnmarshalJSON(data []byte) error {
	var str string
	if err := json.Unmarshal(data, &str); err != nil {
		return errors.New("order status must be string")
	}
	v := OrderStatus(str)
	if !v.Valid() {
		return errors.New("invalid order status")
	}
	*s = v
	return nil
}
