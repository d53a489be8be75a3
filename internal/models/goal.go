package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// GoalPriority ranks goals for display.
type GoalPriority string

const (
	GoalPriorityLow    GoalPriority = "low"
	GoalPriorityMedium GoalPriority = "medium"
	GoalPriorityHigh   GoalPriority = "high"
)

// GoalStatus is the lifecycle state of a goal. Only active goals receive
// progress from income.
type GoalStatus string

const (
	GoalStatusActive    GoalStatus = "active"
	GoalStatusCompleted GoalStatus = "completed"
	GoalStatusPaused    GoalStatus = "paused"
	GoalStatusCancelled GoalStatus = "cancelled"
)

// FinancialGoal is a savings target owned by a user
type FinancialGoal struct {
	Base
	UserID        string          `gorm:"type:char(36);not null;index" json:"user_id"`
	Title         string          `gorm:"size:100;not null" json:"title"`
	Description   string          `json:"description,omitempty"`
	TargetAmount  decimal.Decimal `gorm:"type:numeric(15,2);not null" json:"target_amount"`
	CurrentAmount decimal.Decimal `gorm:"type:numeric(15,2);not null;default:0" json:"current_amount"`
	TargetDate    *time.Time      `json:"target_date,omitempty"`
	Priority      GoalPriority    `gorm:"size:10;not null;default:medium" json:"priority"`
	Status        GoalStatus      `gorm:"size:10;not null;default:active" json:"status"`
}

// TableName overrides the default table name
func (FinancialGoal) TableName() string {
	return "financial_goals"
}

// ProgressPercentage returns current/target*100, or zero for a zero target.
func (g *FinancialGoal) ProgressPercentage() decimal.Decimal {
	if g.TargetAmount.IsZero() {
		return decimal.Zero
	}
	return g.CurrentAmount.Div(g.TargetAmount).Mul(decimal.NewFromInt(100))
}
