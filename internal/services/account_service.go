package services

import (
	"errors"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	apperrors "stashsmart/internal/errors"
	"stashsmart/internal/models"
	"stashsmart/internal/pagination"
)

// OpeningBalanceDescription is the description of the transaction recorded
// for an account created with a non-zero balance.
const OpeningBalanceDescription = "Initial balance"

// accountService handles account-related business logic.
type accountService struct {
	db       *gorm.DB
	balances BalanceMaintainer
}

// NewAccountService creates a new AccountServicer.
func NewAccountService(db *gorm.DB, balances BalanceMaintainer) AccountServicer {
	return &accountService{db: db, balances: balances}
}

// CreateAccount creates a new account for a user. A positive initial balance
// is recorded as an income transaction so the balance stays equal to the
// sum of the account's transactions.
func (s *accountService) CreateAccount(userID, name string, accountType models.AccountType, description, currency string, initialBalance decimal.Decimal) (*models.Account, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, apperrors.WithMessage(apperrors.ErrInvalidInput, "account name is required")
	}
	if initialBalance.IsNegative() {
		return nil, apperrors.WithMessage(apperrors.ErrInvalidInput, "initial balance cannot be negative")
	}

	if currency == "" {
		currency = DefaultSettings["currency"]
	}

	account := &models.Account{
		UserID:      userID,
		Name:        name,
		Type:        accountType,
		Description: description,
		Balance:     decimal.Zero,
		Currency:    strings.ToUpper(currency),
		IsActive:    true,
	}

	err := s.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(account).Error; err != nil {
			return apperrors.Wrap(apperrors.ErrInternalServer, err)
		}

		if !initialBalance.IsPositive() {
			return nil
		}

		categoryID, err := openingBalanceCategory(tx, userID)
		if err != nil {
			return err
		}

		transaction := &models.Transaction{
			UserID:          userID,
			AccountID:       account.ID,
			CategoryID:      categoryID,
			Type:            models.TransactionTypeIncome,
			Amount:          initialBalance,
			Description:     OpeningBalanceDescription,
			TransactionDate: time.Now().UTC(),

			IsOpeningBalance: true,
		}
		if err := tx.Create(transaction).Error; err != nil {
			return apperrors.Wrap(apperrors.ErrInternalServer, err)
		}
		if err := s.balances.ApplyCreate(tx, transaction); err != nil {
			return err
		}
		account.Balance = initialBalance
		return nil
	})
	if err != nil {
		return nil, err
	}

	return account, nil
}

// openingBalanceCategory picks the user's "Other Income" category, falling
// back to any income category.
func openingBalanceCategory(tx *gorm.DB, userID string) (string, error) {
	var category models.Category
	err := tx.Where("user_id = ? AND type = ?", userID, models.CategoryTypeIncome).
		Order("CASE WHEN name = 'Other Income' THEN 0 ELSE 1 END").
		Order("created_at ASC").
		First(&category).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return "", apperrors.WithMessage(apperrors.ErrInvalidInput, "an income category is required to record an initial balance")
		}
		return "", apperrors.Wrap(apperrors.ErrInternalServer, err)
	}
	return category.ID, nil
}

// GetUserAccounts retrieves a paginated list of accounts for a user.
func (s *accountService) GetUserAccounts(userID string, page pagination.PageRequest, includeInactive bool) (*pagination.PageResponse[models.Account], error) {
	page.Defaults()

	base := s.db.Model(&models.Account{}).Where("user_id = ?", userID)
	if !includeInactive {
		base = base.Where("is_active = ?", true)
	}

	var totalItems int64
	if err := base.Count(&totalItems).Error; err != nil {
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}

	var accounts []models.Account
	if err := base.Scopes(pagination.Paginate(page)).Order("created_at ASC").Find(&accounts).Error; err != nil {
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}

	result := pagination.NewPageResponse(accounts, page.Page, page.PageSize, totalItems)
	return &result, nil
}

// GetAccountByID retrieves an account by ID for a specific user
func (s *accountService) GetAccountByID(userID, accountID string) (*models.Account, error) {
	var account models.Account
	if err := s.db.Where("id = ? AND user_id = ?", accountID, userID).First(&account).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperrors.ErrAccountNotFound
		}
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}
	return &account, nil
}

// UpdateAccount updates an account's descriptive fields. The balance is never
// written directly.
func (s *accountService) UpdateAccount(userID, accountID string, fields AccountUpdateFields) (*models.Account, error) {
	account, err := s.GetAccountByID(userID, accountID)
	if err != nil {
		return nil, err
	}

	updates := make(map[string]any)
	if fields.Name != nil && strings.TrimSpace(*fields.Name) != "" {
		updates["name"] = strings.TrimSpace(*fields.Name)
	}
	if fields.Description != nil {
		updates["description"] = *fields.Description
	}
	if fields.IsActive != nil {
		updates["is_active"] = *fields.IsActive
	}

	if len(updates) > 0 {
		if err := s.db.Model(account).Updates(updates).Error; err != nil {
			return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
		}
		// Reload to get fresh data
		if err := s.db.Where("id = ?", account.ID).First(account).Error; err != nil {
			return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
		}
	}

	return account, nil
}

// Reconcile recomputes an account's balance from its live transactions and
// reports the drift from the cached value. With repair set, the cached
// balance is corrected in the same database transaction that measured it.
func (s *accountService) Reconcile(userID, accountID string, repair bool) (*Reconciliation, error) {
	var result *Reconciliation
	err := s.db.Transaction(func(tx *gorm.DB) error {
		var account models.Account
		if err := tx.Where("id = ? AND user_id = ?", accountID, userID).First(&account).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return apperrors.ErrAccountNotFound
			}
			return apperrors.Wrap(apperrors.ErrInternalServer, err)
		}

		var transactions []models.Transaction
		if err := tx.Select("type", "amount").
			Where("account_id = ?", accountID).
			Find(&transactions).Error; err != nil {
			return apperrors.Wrap(apperrors.ErrInternalServer, err)
		}

		computed := decimal.Zero
		for _, t := range transactions {
			computed = computed.Add(models.SignedAmount(t.Type, t.Amount))
		}

		result = &Reconciliation{
			AccountID:        account.ID,
			CachedBalance:    account.Balance,
			ComputedBalance:  computed,
			Drift:            account.Balance.Sub(computed),
			TransactionCount: int64(len(transactions)),
		}

		if repair && !result.Drift.IsZero() {
			if err := tx.Model(&account).Update("balance", computed).Error; err != nil {
				return apperrors.Wrap(apperrors.ErrInternalServer, err)
			}
			result.Repaired = true
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}
