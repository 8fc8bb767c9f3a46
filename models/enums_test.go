package models

import (
	"encoding/json"
	"testing"
)

func TestOrderStatusTransitions(t *testing.T) {
	cases := []struct {
		from, to OrderStatus
		ok       bool
	}{
		{OrderStatusDraft, OrderStatusConfirmed, true},
		{OrderStatusDraft, OrderStatusFulfilled, false},
		{OrderStatusDraft, OrderStatusDraft, false},
		{OrderStatusConfirmed, OrderStatusDraft, true},
		{OrderStatusConfirmed, OrderStatusFulfilled, true},
		{OrderStatusConfirmed, OrderStatusConfirmed, false},
		{OrderStatusFulfilled, OrderStatusDraft, false},
		{OrderStatusFulfilled, OrderStatusConfirmed, false},
		{OrderStatusFulfilled, OrderStatusFulfilled, false},
		{OrderStatus("Cancelled"), OrderStatusDraft, false},
	}
	for _, c := range cases {
		if got := c.from.CanTransitionTo(c.to); got != c.ok {
			t.Errorf("%s -> %s: got %v, want %v", c.from, c.to, got, c.ok)
		}
	}
}

func TestOrderStatusTerminal(t *testing.T) {
	if OrderStatusDraft.Terminal() || OrderStatusConfirmed.Terminal() {
		t.Error("Draft/Confirmed must not be terminal")
	}
	if !OrderStatusFulfilled.Terminal() {
		t.Error("Fulfilled must be terminal")
	}
}

func TestOrderStatusUnmarshalJSON(t *testing.T) {
	var s OrderStatus
	if err := json.Unmarshal([]byte(`"Confirmed"`), &s); err != nil {
		t.Fatalf("unmarshal valid status: %v", err)
	}
	if s != OrderStatusConfirmed {
		t.Fatalf("got %s, want Confirmed", s)
	}

	if err := json.Unmarshal([]byte(`"Shipped"`), &s); err == nil {
		t.Error("expected error for unknown status")
	}
	if err := json.Unmarshal([]byte(`42`), &s); err == nil {
		t.Error("expected error for non-string status")
	}
}
