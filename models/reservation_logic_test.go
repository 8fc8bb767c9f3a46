package models

import (
	"testing"

	"github.com/shopspring/decimal"
)

func d(v string) decimal.Decimal {
	dec, err := decimal.NewFromString(v)
	if err != nil {
		panic(err)
	}
	return dec
}

func TestClampDecrement(t *testing.T) {
	cases := []struct {
		required, current, want string
	}{
		{"10", "100", "10"},
		{"10", "10", "10"},
		{"10", "4", "4"},
		{"10", "0", "0"},
		{"10", "-3", "0"},
		{"0.5", "0.25", "0.25"},
	}
	for _, c := range cases {
		got := clampDecrement(d(c.required), d(c.current))
		if !got.Equal(d(c.want)) {
			t.Errorf("clampDecrement(%s, %s) = %s, want %s", c.required, c.current, got, c.want)
		}
	}
}

func TestComputeShortages(t *testing.T) {
	products := map[int]*Product{
		1: {ID: 1, Name: "Croissant", QuantityOnHand: d("100"), QuantityReserved: d("40")},
		2: {ID: 2, Name: "Sourdough", QuantityOnHand: d("10"), QuantityReserved: d("0")},
	}

	items := []OrderItem{
		{ProductId: 1, ProductName: "Croissant", Quantity: d("60")},
		{ProductId: 2, ProductName: "Sourdough", Quantity: d("10")},
	}
	if shortages := computeShortages(items, products); len(shortages) != 0 {
		t.Fatalf("expected no shortages, got %+v", shortages)
	}

	items = []OrderItem{
		{ProductId: 1, ProductName: "Croissant", Quantity: d("61")},
		{ProductId: 2, ProductName: "Sourdough", Quantity: d("25")},
	}
	shortages := computeShortages(items, products)
	if len(shortages) != 2 {
		t.Fatalf("expected 2 shortages, got %d", len(shortages))
	}
	if !shortages[0].Shortage.Equal(d("1")) || !shortages[0].Available.Equal(d("60")) {
		t.Errorf("croissant shortage wrong: %+v", shortages[0])
	}
	if !shortages[1].Shortage.Equal(d("15")) || !shortages[1].Required.Equal(d("25")) {
		t.Errorf("sourdough shortage wrong: %+v", shortages[1])
	}
}

func TestComputeShortagesMissingProduct(t *testing.T) {
	items := []OrderItem{
		{ProductId: 99, ProductName: "Ghost", Quantity: d("5")},
	}
	shortages := computeShortages(items, map[int]*Product{})
	if len(shortages) != 1 {
		t.Fatalf("expected 1 shortage, got %d", len(shortages))
	}
	if !shortages[0].Available.IsZero() || !shortages[0].Shortage.Equal(d("5")) {
		t.Errorf("missing product must count as zero available: %+v", shortages[0])
	}
}

func TestProductQuantityAvailable(t *testing.T) {
	p := Product{QuantityOnHand: d("10"), QuantityReserved: d("4")}
	if got := p.QuantityAvailable(); !got.Equal(d("6")) {
		t.Errorf("got %s, want 6", got)
	}
	// External drift can push reserved past on-hand; availability floors at 0.
	p = Product{QuantityOnHand: d("3"), QuantityReserved: d("5")}
	if got := p.QuantityAvailable(); !got.IsZero() {
		t.Errorf("got %s, want 0", got)
	}
}
