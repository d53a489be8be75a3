package models

import (
	"time"

	"gorm.io/gorm"
)

// Activity actions recorded by the application.
const (
	ActionUserRegistered       = "user_registered"
	ActionUserLoginSuccess     = "user_login_success"
	ActionUserLoginFailed      = "user_login_failed"
	ActionUserLogout           = "user_logout"
	ActionPasswordChanged      = "password_changed"
	ActionProfileUpdated       = "profile_updated"
	ActionTransactionCreated   = "transaction_created"
	ActionTransactionUpdated   = "transaction_updated"
	ActionTransactionDeleted   = "transaction_deleted"
	ActionAccountCreated       = "account_created"
	ActionAccountReconciled    = "account_reconciled"
	ActionBudgetCreated        = "budget_created"
	ActionBudgetAlertTriggered = "budget_alert_triggered"
	ActionGoalCreated          = "goal_created"
	ActionGoalAchieved         = "goal_achieved"
	ActionSettingsChanged      = "settings_changed"
)

// ActivityLog is an append-only audit record. Rows are never updated and are
// only removed by the retention purge.
type ActivityLog struct {
	ID         string    `gorm:"type:char(36);primaryKey" json:"id"`
	UserID     *string   `gorm:"type:char(36);index" json:"user_id,omitempty"`
	Action     string    `gorm:"size:100;not null;index" json:"action"`
	EntityType string    `gorm:"size:50" json:"entity_type,omitempty"`
	EntityID   *string   `gorm:"type:char(36)" json:"entity_id,omitempty"`
	Details    string    `gorm:"type:text" json:"-"`
	IPAddress  string    `gorm:"size:45" json:"ip_address,omitempty"`
	UserAgent  string    `gorm:"type:text" json:"user_agent,omitempty"`
	CreatedAt  time.Time `gorm:"index" json:"created_at"`
}

// TableName overrides the default table name
func (ActivityLog) TableName() string {
	return "activity_log"
}

// BeforeCreate assigns an identifier to new entries.
func (a *ActivityLog) BeforeCreate(tx *gorm.DB) error {
	if a.ID != "" {
		return nil
	}
	id, err := NewID()
	if err != nil {
		return err
	}
	a.ID = id
	return nil
}
