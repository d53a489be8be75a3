package services

import (
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	apperrors "stashsmart/internal/errors"
	"stashsmart/internal/models"
)

// balanceMaintainer applies signed transaction deltas to account balances.
// Balances only ever move relatively so concurrent writers to one account
// rely on the store's atomic increment.
type balanceMaintainer struct{}

// NewBalanceMaintainer creates a new BalanceMaintainer.
func NewBalanceMaintainer() BalanceMaintainer {
	return &balanceMaintainer{}
}

// ApplyCreate adds the forward effect of a new transaction to its account.
func (m *balanceMaintainer) ApplyCreate(tx *gorm.DB, t *models.Transaction) error {
	return adjustBalance(tx, t.AccountID, t.UserID, models.SignedAmount(t.Type, t.Amount))
}

// ApplyUpdate reverses the prior effect and applies the new one. When the
// account is unchanged the two deltas are netted into a single update.
func (m *balanceMaintainer) ApplyUpdate(tx *gorm.DB, before, after *models.Transaction) error {
	reversal := models.SignedAmount(before.Type, before.Amount).Neg()
	forward := models.SignedAmount(after.Type, after.Amount)

	if before.AccountID == after.AccountID {
		return adjustBalance(tx, after.AccountID, after.UserID, reversal.Add(forward))
	}

	if err := adjustBalance(tx, before.AccountID, before.UserID, reversal); err != nil {
		return err
	}
	return adjustBalance(tx, after.AccountID, after.UserID, forward)
}

// ApplyDelete reverses a transaction's effect on its account.
func (m *balanceMaintainer) ApplyDelete(tx *gorm.DB, t *models.Transaction) error {
	return adjustBalance(tx, t.AccountID, t.UserID, models.SignedAmount(t.Type, t.Amount).Neg())
}

// adjustBalance moves the balance of an account owned by userID by delta.
// Missing accounts surface as ErrAccountNotFound so the unit of work rolls back.
func adjustBalance(tx *gorm.DB, accountID, userID string, delta decimal.Decimal) error {
	result := tx.Model(&models.Account{}).
		Where("id = ? AND user_id = ?", accountID, userID).
		Update("balance", gorm.Expr("balance + ?", delta))
	if result.Error != nil {
		return apperrors.Wrap(apperrors.ErrInternalServer, result.Error)
	}
	if result.RowsAffected == 0 {
		return apperrors.ErrAccountNotFound
	}
	return nil
}
