package validator

import (
	"testing"

	"github.com/go-playground/validator/v10"
	"github.com/shopspring/decimal"
)

type sample struct {
	Amount   decimal.Decimal  `validate:"required,gt=0"`
	Limit    *decimal.Decimal `validate:"omitempty,gt=0"`
	Type     string           `validate:"required,transaction_type"`
	Currency string           `validate:"omitempty,iso4217"`
	Color    string           `validate:"omitempty,hex_color"`
	Period   string           `validate:"omitempty,budget_period"`
	Priority string           `validate:"omitempty,goal_priority"`
}

func newValidate() *validator.Validate {
	v := validator.New()
	RegisterOn(v)
	return v
}

func TestCustomValidators(t *testing.T) {
	v := newValidate()
	negative := decimal.NewFromInt(-5)

	tests := []struct {
		name    string
		input   sample
		wantErr bool
	}{
		{"valid", sample{Amount: decimal.RequireFromString("12.50"), Type: "expense", Currency: "EUR", Color: "#28a745", Period: "weekly", Priority: "high"}, false},
		{"zero amount", sample{Amount: decimal.Zero, Type: "income"}, true},
		{"negative amount", sample{Amount: decimal.NewFromInt(-1), Type: "income"}, true},
		{"negative optional limit", sample{Amount: decimal.NewFromInt(1), Limit: &negative, Type: "income"}, true},
		{"unknown transaction type", sample{Amount: decimal.NewFromInt(1), Type: "investment"}, true},
		{"unknown currency", sample{Amount: decimal.NewFromInt(1), Type: "income", Currency: "ABC"}, true},
		{"bad colour", sample{Amount: decimal.NewFromInt(1), Type: "income", Color: "green"}, true},
		{"daily period", sample{Amount: decimal.NewFromInt(1), Type: "income", Period: "daily"}, true},
		{"urgent priority", sample{Amount: decimal.NewFromInt(1), Type: "income", Priority: "urgent"}, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := v.Struct(tt.input)
			if tt.wantErr && err == nil {
				t.Error("expected validation error")
			}
			if !tt.wantErr && err != nil {
				t.Errorf("unexpected error: %v", err)
			}
		})
	}
}
