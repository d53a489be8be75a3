package models

import "github.com/shopspring/decimal"

// AccountType represents the type of account
type AccountType string

const (
	AccountTypeChecking   AccountType = "checking"
	AccountTypeSavings    AccountType = "savings"
	AccountTypeCreditCard AccountType = "credit_card"
	AccountTypeCash       AccountType = "cash"
	AccountTypeInvestment AccountType = "investment"
)

// Account represents a financial account in the system. Balance is a cache of
// the signed sum of the account's live transactions and is only ever moved by
// relative updates.
type Account struct {
	Base
	UserID      string          `gorm:"type:char(36);not null;index" json:"user_id"`
	Name        string          `gorm:"size:100;not null" json:"name"`
	Type        AccountType     `gorm:"size:20;not null" json:"type"`
	Description string          `json:"description,omitempty"`
	Balance     decimal.Decimal `gorm:"type:numeric(15,2);not null;default:0" json:"balance"`
	Currency    string          `gorm:"size:3;not null;default:USD" json:"currency"`
	IsActive    bool            `gorm:"not null;default:true" json:"is_active"`

	Transactions []Transaction `gorm:"foreignKey:AccountID" json:"-"`
}
