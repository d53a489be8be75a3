package services

import (
	"context"
	"errors"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	apperrors "stashsmart/internal/errors"
	"stashsmart/internal/logger"
	"stashsmart/internal/models"
)

// WorkflowOptions tunes the transaction workflow.
type WorkflowOptions struct {
	// ReverseTrackingOnMutation makes updates and deletes take a transaction's
	// budget and goal contributions back out before applying new ones. When
	// false only creation moves budgets and goals.
	ReverseTrackingOnMutation bool

	// Now overrides the clock used for budget windows. Nil means time.Now.
	Now func() time.Time
}

// transactionWorkflow sequences persist, balance, budget, goal and audit
// steps of a transaction mutation inside one database transaction.
type transactionWorkflow struct {
	db           *gorm.DB
	transactions TransactionServicer
	balances     BalanceMaintainer
	budgets      BudgetTracker
	goals        GoalProgressUpdater
	activity     ActivityLogger
	opts         WorkflowOptions
}

// NewTransactionWorkflow creates a new TransactionWorkflow.
func NewTransactionWorkflow(
	db *gorm.DB,
	transactions TransactionServicer,
	balances BalanceMaintainer,
	budgets BudgetTracker,
	goals GoalProgressUpdater,
	activity ActivityLogger,
	opts WorkflowOptions,
) TransactionWorkflow {
	if opts.Now == nil {
		opts.Now = time.Now
	}
	return &transactionWorkflow{
		db:           db,
		transactions: transactions,
		balances:     balances,
		budgets:      budgets,
		goals:        goals,
		activity:     activity,
		opts:         opts,
	}
}

// CreateTransaction persists a transaction, moves the account balance, feeds
// budgets and goals and records the activity, all or nothing.
func (w *transactionWorkflow) CreateTransaction(ctx context.Context, userID string, input CreateTransactionInput, meta RequestMeta) (*TransactionRecord, error) {
	if err := w.verifyReferences(ctx, userID, input.AccountID, input.CategoryID); err != nil {
		return nil, err
	}

	var record *TransactionRecord
	err := w.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		transaction, err := w.transactions.CreateWithDB(tx, userID, input)
		if err != nil {
			return err
		}

		if err := w.track(tx, transaction, meta); err != nil {
			return err
		}

		if err := w.activity.Record(tx, ActivityEntry{
			UserID:     userID,
			Action:     models.ActionTransactionCreated,
			EntityType: "transaction",
			EntityID:   transaction.ID,
			Details: map[string]any{
				"transaction_id": transaction.ID,
				"amount":         transaction.Amount.String(),
				"type":           transaction.Type,
			},
			Meta: meta,
		}); err != nil {
			return err
		}

		record, err = w.transactions.GetRecordWithDB(tx, userID, transaction.ID)
		return err
	})
	if err != nil {
		logRollback("create", userID, "", err)
		return nil, err
	}
	return record, nil
}

// UpdateTransaction replaces a transaction's fields. The balance effect of the
// old values is reversed and the new one applied in the same unit of work.
func (w *transactionWorkflow) UpdateTransaction(ctx context.Context, userID, transactionID string, input UpdateTransactionInput, meta RequestMeta) (*TransactionRecord, error) {
	if err := w.verifyReferences(ctx, userID, input.AccountID, input.CategoryID); err != nil {
		return nil, err
	}

	var record *TransactionRecord
	err := w.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		current, err := loadOwnedTransaction(tx, userID, transactionID)
		if err != nil {
			return err
		}
		before := *current

		updated := *current
		applyTransactionInput(&updated, input)
		if err := tx.Omit(clause.Associations).Save(&updated).Error; err != nil {
			return apperrors.Wrap(apperrors.ErrInternalServer, err)
		}

		if err := w.balances.ApplyUpdate(tx, &before, &updated); err != nil {
			return err
		}

		if w.opts.ReverseTrackingOnMutation && trackingChanged(&before, &updated) {
			if err := w.retrack(tx, &before, &updated, meta); err != nil {
				return err
			}
		}

		if err := w.activity.Record(tx, ActivityEntry{
			UserID:     userID,
			Action:     models.ActionTransactionUpdated,
			EntityType: "transaction",
			EntityID:   transactionID,
			Details: map[string]any{
				"transaction_id": transactionID,
				"changes":        transactionChanges(&before, &updated),
			},
			Meta: meta,
		}); err != nil {
			return err
		}

		record, err = w.transactions.GetRecordWithDB(tx, userID, transactionID)
		return err
	})
	if err != nil {
		logRollback("update", userID, transactionID, err)
		return nil, err
	}
	return record, nil
}

// DeleteTransaction removes a transaction and reverses its balance effect.
func (w *transactionWorkflow) DeleteTransaction(ctx context.Context, userID, transactionID string, meta RequestMeta) error {
	err := w.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		transaction, err := loadOwnedTransaction(tx, userID, transactionID)
		if err != nil {
			return err
		}

		if err := tx.Delete(transaction).Error; err != nil {
			return apperrors.Wrap(apperrors.ErrInternalServer, err)
		}

		if err := w.balances.ApplyDelete(tx, transaction); err != nil {
			return err
		}

		if w.opts.ReverseTrackingOnMutation && !transaction.IsOpeningBalance {
			if err := w.untrack(tx, transaction); err != nil {
				return err
			}
		}

		return w.activity.Record(tx, ActivityEntry{
			UserID:     userID,
			Action:     models.ActionTransactionDeleted,
			EntityType: "transaction",
			EntityID:   transactionID,
			Details: map[string]any{
				"transaction_id": transactionID,
				"amount":         transaction.Amount.String(),
				"type":           transaction.Type,
			},
			Meta: meta,
		})
	})
	if err != nil {
		logRollback("delete", userID, transactionID, err)
	}
	return err
}

// track feeds a transaction into budgets (expenses) and goals (income).
func (w *transactionWorkflow) track(tx *gorm.DB, t *models.Transaction, meta RequestMeta) error {
	if _, err := w.budgets.RecordExpense(tx, t, w.opts.Now(), meta); err != nil {
		return err
	}
	if _, err := w.goals.RecordIncome(tx, t, meta); err != nil {
		return err
	}
	return nil
}

// untrack takes a transaction's contribution back out of budgets and goals.
func (w *transactionWorkflow) untrack(tx *gorm.DB, t *models.Transaction) error {
	if _, err := w.budgets.ReverseExpense(tx, t); err != nil {
		return err
	}
	if _, err := w.goals.ReverseIncome(tx, t); err != nil {
		return err
	}
	return nil
}

// retrack replaces before's budget and goal contributions with after's.
func (w *transactionWorkflow) retrack(tx *gorm.DB, before, after *models.Transaction, meta RequestMeta) error {
	if _, err := w.budgets.ReplaceExpense(tx, before, after, w.opts.Now(), meta); err != nil {
		return err
	}
	if _, err := w.goals.ReplaceIncome(tx, before, after, meta); err != nil {
		return err
	}
	return nil
}

// trackingChanged reports whether an edit touches a field budgets or goals
// depend on. Opening balances never feed either.
func trackingChanged(before, after *models.Transaction) bool {
	if before.IsOpeningBalance {
		return false
	}
	return !before.Amount.Equal(after.Amount) ||
		before.Type != after.Type ||
		before.CategoryID != after.CategoryID
}

// verifyReferences checks that the account and category exist and belong to
// the acting user before any write starts.
func (w *transactionWorkflow) verifyReferences(ctx context.Context, userID, accountID, categoryID string) error {
	db := w.db.WithContext(ctx)

	var account models.Account
	if err := db.Select("id", "user_id").Where("id = ?", accountID).First(&account).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return apperrors.ErrAccountNotFound
		}
		return apperrors.Wrap(apperrors.ErrInternalServer, err)
	}
	if account.UserID != userID {
		return apperrors.ErrOwnershipViolation
	}

	var category models.Category
	if err := db.Select("id", "user_id").Where("id = ?", categoryID).First(&category).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return apperrors.ErrCategoryNotFound
		}
		return apperrors.Wrap(apperrors.ErrInternalServer, err)
	}
	if category.UserID != userID {
		return apperrors.ErrOwnershipViolation
	}
	return nil
}

// loadOwnedTransaction reads a transaction inside a unit of work and checks
// that it belongs to userID.
func loadOwnedTransaction(tx *gorm.DB, userID, transactionID string) (*models.Transaction, error) {
	var transaction models.Transaction
	if err := tx.Where("id = ?", transactionID).First(&transaction).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperrors.ErrTransactionNotFound
		}
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}
	if transaction.UserID != userID {
		return nil, apperrors.ErrOwnershipViolation
	}
	return &transaction, nil
}

// transactionChanges lists the balance-relevant fields that differ.
func transactionChanges(before, after *models.Transaction) map[string]any {
	changes := map[string]any{}
	if !before.Amount.Equal(after.Amount) {
		changes["amount"] = map[string]string{"old": before.Amount.String(), "new": after.Amount.String()}
	}
	if before.Type != after.Type {
		changes["type"] = map[string]string{"old": string(before.Type), "new": string(after.Type)}
	}
	if before.AccountID != after.AccountID {
		changes["account_id"] = map[string]string{"old": before.AccountID, "new": after.AccountID}
	}
	if before.CategoryID != after.CategoryID {
		changes["category_id"] = map[string]string{"old": before.CategoryID, "new": after.CategoryID}
	}
	if before.Description != after.Description {
		changes["description"] = map[string]string{"old": before.Description, "new": after.Description}
	}
	return changes
}

func logRollback(op, userID, transactionID string, err error) {
	var appErr *apperrors.AppError
	if errors.As(err, &appErr) && appErr.Internal == nil {
		return
	}
	logger.Get().Warnw("transaction workflow rolled back",
		"op", op,
		"user_id", userID,
		"transaction_id", transactionID,
		"error", err,
	)
}
