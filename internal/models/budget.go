package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// BudgetPeriod represents the period type for a budget
type BudgetPeriod string

const (
	BudgetPeriodWeekly  BudgetPeriod = "weekly"
	BudgetPeriodMonthly BudgetPeriod = "monthly"
	BudgetPeriodYearly  BudgetPeriod = "yearly"
)

// Budget represents a spending limit for a category over a date window.
// SpentAmount accumulates expenses recorded while the window is current.
type Budget struct {
	Base
	UserID      string          `gorm:"type:char(36);not null;index" json:"user_id"`
	CategoryID  string          `gorm:"type:char(36);not null;index" json:"category_id"`
	Name        string          `gorm:"size:100;not null" json:"name"`
	Amount      decimal.Decimal `gorm:"type:numeric(15,2);not null" json:"amount"`
	SpentAmount decimal.Decimal `gorm:"type:numeric(15,2);not null;default:0" json:"spent_amount"`
	Period      BudgetPeriod    `gorm:"size:10;not null" json:"period"`
	StartDate   time.Time       `gorm:"not null" json:"start_date"`
	EndDate     time.Time       `gorm:"not null" json:"end_date"`
	IsActive    bool            `gorm:"not null;default:true" json:"is_active"`

	Category *Category `gorm:"foreignKey:CategoryID" json:"category,omitempty"`
}

// UsagePercentage returns spent/amount*100, or zero for a zero limit.
func (b *Budget) UsagePercentage() decimal.Decimal {
	if b.Amount.IsZero() {
		return decimal.Zero
	}
	return b.SpentAmount.Div(b.Amount).Mul(decimal.NewFromInt(100))
}
