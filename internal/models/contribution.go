package models

import (
	"time"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// ContributionTarget names the kind of row a transaction contributed to.
type ContributionTarget string

const (
	ContributionTargetBudget ContributionTarget = "budget"
	ContributionTargetGoal   ContributionTarget = "goal"
)

// TrackingContribution records the amount one transaction added to one budget
// or goal, so that an update or delete takes back exactly what was added.
type TrackingContribution struct {
	ID            string             `gorm:"type:char(36);primaryKey" json:"id"`
	TransactionID string             `gorm:"type:char(36);not null;index" json:"transaction_id"`
	TargetType    ContributionTarget `gorm:"size:10;not null" json:"target_type"`
	TargetID      string             `gorm:"type:char(36);not null;index" json:"target_id"`
	Amount        decimal.Decimal    `gorm:"type:numeric(15,2);not null" json:"amount"`

	// CompletedTarget is set when this contribution moved a goal to completed.
	CompletedTarget bool      `gorm:"not null;default:false" json:"completed_target"`
	CreatedAt       time.Time `json:"created_at"`
}

// TableName overrides the default table name
func (TrackingContribution) TableName() string {
	return "tracking_contributions"
}

// BeforeCreate assigns an identifier to new contributions.
func (c *TrackingContribution) BeforeCreate(tx *gorm.DB) error {
	if c.ID != "" {
		return nil
	}
	id, err := NewID()
	if err != nil {
		return err
	}
	c.ID = id
	return nil
}
