package handlers

import (
	"testing"

	"github.com/go-playground/validator/v10"
	"github.com/shopspring/decimal"
)

func TestDecimalGreaterThanZeroValidation(t *testing.T) {
	v := validator.New()
	if err := v.RegisterValidation("dgt0", decimalGreaterThanZero); err != nil {
		t.Fatalf("RegisterValidation: %v", err)
	}

	type payload struct {
		Quantity decimal.Decimal `validate:"dgt0"`
	}

	if err := v.Struct(payload{Quantity: decimal.NewFromInt(5)}); err != nil {
		t.Errorf("positive quantity rejected: %v", err)
	}
	if err := v.Struct(payload{Quantity: decimal.NewFromFloat(0.25)}); err != nil {
		t.Errorf("fractional quantity rejected: %v", err)
	}
	if err := v.Struct(payload{Quantity: decimal.Zero}); err == nil {
		t.Error("zero quantity accepted")
	}
	if err := v.Struct(payload{Quantity: decimal.NewFromInt(-3)}); err == nil {
		t.Error("negative quantity accepted")
	}
}
