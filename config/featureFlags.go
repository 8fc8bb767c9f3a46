package config

import (
	"os"
	"strconv"
	"strings"
)

// ReservationMaxRetries bounds how many times a reservation transaction is
// re-run after a deadlock/serialization abort before the conflict is
// surfaced to the caller.
//
// Set via env:
// - RESERVATION_MAX_RETRIES=3
func ReservationMaxRetries() int {
	v := strings.TrimSpace(os.Getenv("RESERVATION_MAX_RETRIES"))
	if v == "" {
		return 3
	}
	n, err := strconv.Atoi(v)
	if err != nil || n < 1 {
		return 3
	}
	return n
}

// StrictConfirmedOrderImmutability disables the notes/total-price edit window
// on Confirmed orders: once stock is reserved, the order must be reverted to
// Draft before any edit.
//
// Set via env:
// - STRICT_CONFIRMED_ORDER_IMMUTABLE=true
func StrictConfirmedOrderImmutability() bool {
	v := strings.ToLower(strings.TrimSpace(os.Getenv("STRICT_CONFIRMED_ORDER_IMMUTABLE")))
	return v == "1" || v == "true" || v == "yes" || v == "y"
}
