package models

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
	"time"

	"github.com/shopspring/decimal"
)

// TransactionType represents the type of transaction
type TransactionType string

const (
	TransactionTypeIncome   TransactionType = "income"
	TransactionTypeExpense  TransactionType = "expense"
	TransactionTypeTransfer TransactionType = "transfer"
)

// PaymentMethod describes how a transaction was paid.
type PaymentMethod string

const (
	PaymentMethodCash          PaymentMethod = "cash"
	PaymentMethodCard          PaymentMethod = "card"
	PaymentMethodBankTransfer  PaymentMethod = "bank_transfer"
	PaymentMethodDigitalWallet PaymentMethod = "digital_wallet"
	PaymentMethodCheck         PaymentMethod = "check"
	PaymentMethodOther         PaymentMethod = "other"
)

// Tags is a list of free-form labels stored as a JSON array.
type Tags []string

// Value implements driver.Valuer.
func (t Tags) Value() (driver.Value, error) {
	if len(t) == 0 {
		return nil, nil
	}
	b, err := json.Marshal([]string(t))
	if err != nil {
		return nil, err
	}
	return string(b), nil
}

// Scan implements sql.Scanner.
func (t *Tags) Scan(src any) error {
	var raw []byte
	switch v := src.(type) {
	case nil:
		*t = nil
		return nil
	case string:
		raw = []byte(v)
	case []byte:
		raw = v
	default:
		return fmt.Errorf("tags: unsupported source type %T", src)
	}
	if len(raw) == 0 {
		*t = nil
		return nil
	}
	return json.Unmarshal(raw, (*[]string)(t))
}

// Transaction represents a financial transaction in the system. Amount is
// always positive; the sign applied to the account comes from Type.
type Transaction struct {
	Base
	UserID          string          `gorm:"type:char(36);not null;index" json:"user_id"`
	AccountID       string          `gorm:"type:char(36);not null;index" json:"account_id"`
	CategoryID      string          `gorm:"type:char(36);not null;index" json:"category_id"`
	Type            TransactionType `gorm:"size:10;not null" json:"type"`
	Amount          decimal.Decimal `gorm:"type:numeric(15,2);not null" json:"amount"`
	Description     string          `gorm:"size:255;not null" json:"description"`
	TransactionDate time.Time       `gorm:"not null;index" json:"transaction_date"`
	PaymentMethod   PaymentMethod   `gorm:"size:20" json:"payment_method,omitempty"`
	ReferenceNumber string          `gorm:"size:100" json:"reference_number,omitempty"`
	Notes           string          `gorm:"type:text" json:"notes,omitempty"`
	ReceiptPath     string          `gorm:"size:255" json:"receipt_path,omitempty"`
	Tags            Tags            `gorm:"type:text" json:"tags,omitempty"`

	// IsOpeningBalance marks the income recorded for an account's initial
	// balance. It moves the balance only, never budgets or goals.
	IsOpeningBalance bool `gorm:"not null;default:false" json:"is_opening_balance"`

	Account  *Account  `gorm:"foreignKey:AccountID" json:"-"`
	Category *Category `gorm:"foreignKey:CategoryID" json:"-"`
}

// SignedAmount returns the balance effect of a transaction of the given type:
// income adds to the account, every other type subtracts.
func SignedAmount(t TransactionType, amount decimal.Decimal) decimal.Decimal {
	if t == TransactionTypeIncome {
		return amount
	}
	return amount.Neg()
}
