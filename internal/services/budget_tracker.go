package services

import (
	"time"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	apperrors "stashsmart/internal/errors"
	"stashsmart/internal/models"
)

// Budget usage thresholds, in percent.
var (
	BudgetWarningThreshold  = decimal.NewFromInt(80)
	BudgetExceededThreshold = decimal.NewFromInt(100)
)

// budgetTracker accumulates expenses into the spent amount of every active
// budget for the expense's category whose window contains the write time.
// Each increment is kept as a TrackingContribution so reversal touches only
// the budgets the expense actually fed.
type budgetTracker struct {
	activity ActivityLogger
}

// NewBudgetTracker creates a new BudgetTracker.
func NewBudgetTracker(activity ActivityLogger) BudgetTracker {
	return &budgetTracker{activity: activity}
}

// currentBudgets scopes a query to the user's active budgets for a category
// whose window contains now. The window is evaluated at write time, not at
// the transaction's own date.
func currentBudgets(tx *gorm.DB, userID, categoryID string, now time.Time) *gorm.DB {
	now = now.UTC()
	today := now.Truncate(24 * time.Hour)
	return tx.Model(&models.Budget{}).
		Where("user_id = ? AND category_id = ? AND is_active = ?", userID, categoryID, true).
		Where("start_date <= ? AND end_date >= ?", now, today)
}

// RecordExpense increments matching budgets and returns how many moved.
// Budgets whose usage crosses a threshold because of this expense get a
// budget_alert_triggered entry in the same unit of work.
func (b *budgetTracker) RecordExpense(tx *gorm.DB, t *models.Transaction, now time.Time, meta RequestMeta) (int64, error) {
	moved, err := b.apply(tx, t, now)
	if err != nil || len(moved) == 0 {
		return 0, err
	}

	baseline := make(map[string]decimal.Decimal, len(moved))
	for _, budget := range moved {
		baseline[budget.ID] = budget.SpentAmount.Sub(t.Amount)
	}
	if err := b.alertCrossings(tx, t, moved, baseline, meta); err != nil {
		return 0, err
	}
	return int64(len(moved)), nil
}

// ReverseExpense takes back what the expense added to each budget when it was
// recorded, never letting a spent amount drop below zero. Budgets the expense
// never fed are left alone.
func (b *budgetTracker) ReverseExpense(tx *gorm.DB, t *models.Transaction) (int64, error) {
	return reverseContributions(tx, t.ID, models.ContributionTargetBudget, func(c models.TrackingContribution) error {
		return tx.Model(&models.Budget{}).
			Where("id = ?", c.TargetID).
			Update("spent_amount", gorm.Expr(
				"CASE WHEN spent_amount - ? < 0 THEN 0 ELSE spent_amount - ? END", c.Amount, c.Amount)).
			Error
	})
}

// ReplaceExpense swaps before's budget effect for after's. Threshold alerts
// are judged on the net change, so an edit that leaves a budget on the same
// side of a threshold records nothing.
func (b *budgetTracker) ReplaceExpense(tx *gorm.DB, before, after *models.Transaction, now time.Time, meta RequestMeta) (int64, error) {
	baseline := map[string]decimal.Decimal{}
	if after.Type == models.TransactionTypeExpense {
		var budgets []models.Budget
		if err := currentBudgets(tx, after.UserID, after.CategoryID, now).Find(&budgets).Error; err != nil {
			return 0, apperrors.Wrap(apperrors.ErrInternalServer, err)
		}
		for _, budget := range budgets {
			baseline[budget.ID] = budget.SpentAmount
		}
	}

	if _, err := b.ReverseExpense(tx, before); err != nil {
		return 0, err
	}

	moved, err := b.apply(tx, after, now)
	if err != nil || len(moved) == 0 {
		return 0, err
	}
	if err := b.alertCrossings(tx, after, moved, baseline, meta); err != nil {
		return 0, err
	}
	return int64(len(moved)), nil
}

// apply adds an expense to every current budget of its category and returns
// those budgets with their new spent amount.
func (b *budgetTracker) apply(tx *gorm.DB, t *models.Transaction, now time.Time) ([]models.Budget, error) {
	if t.Type != models.TransactionTypeExpense {
		return nil, nil
	}

	var budgets []models.Budget
	if err := currentBudgets(tx, t.UserID, t.CategoryID, now).Find(&budgets).Error; err != nil {
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}

	for i := range budgets {
		budget := &budgets[i]
		if err := tx.Model(&models.Budget{}).
			Where("id = ?", budget.ID).
			Update("spent_amount", gorm.Expr("spent_amount + ?", t.Amount)).Error; err != nil {
			return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
		}
		if err := tx.Create(&models.TrackingContribution{
			TransactionID: t.ID,
			TargetType:    models.ContributionTargetBudget,
			TargetID:      budget.ID,
			Amount:        t.Amount,
		}).Error; err != nil {
			return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
		}
		budget.SpentAmount = budget.SpentAmount.Add(t.Amount)
	}
	return budgets, nil
}

// alertCrossings records one budget_alert_triggered entry per threshold a
// budget moved across, comparing baseline spent with the current value.
func (b *budgetTracker) alertCrossings(tx *gorm.DB, t *models.Transaction, budgets []models.Budget, baseline map[string]decimal.Decimal, meta RequestMeta) error {
	hundred := decimal.NewFromInt(100)
	for i := range budgets {
		budget := &budgets[i]
		if budget.Amount.IsZero() {
			continue
		}
		start, ok := baseline[budget.ID]
		if !ok {
			start = budget.SpentAmount.Sub(t.Amount)
		}
		before := start.Div(budget.Amount).Mul(hundred)
		after := budget.UsagePercentage()

		for _, threshold := range []decimal.Decimal{BudgetWarningThreshold, BudgetExceededThreshold} {
			if before.GreaterThanOrEqual(threshold) || after.LessThan(threshold) {
				continue
			}
			err := b.activity.Record(tx, ActivityEntry{
				UserID:     t.UserID,
				Action:     models.ActionBudgetAlertTriggered,
				EntityType: "budget",
				EntityID:   budget.ID,
				Details: map[string]any{
					"budget_id":      budget.ID,
					"transaction_id": t.ID,
					"threshold":      threshold.IntPart(),
					"percentage":     after.Round(2).InexactFloat64(),
				},
				Meta: meta,
			})
			if err != nil {
				return err
			}
		}
	}
	return nil
}

// reverseContributions undoes and removes every contribution of one kind
// made by a transaction, returning how many targets were touched.
func reverseContributions(tx *gorm.DB, transactionID string, target models.ContributionTarget, undo func(models.TrackingContribution) error) (int64, error) {
	var contributions []models.TrackingContribution
	if err := tx.Where("transaction_id = ? AND target_type = ?", transactionID, target).
		Find(&contributions).Error; err != nil {
		return 0, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}
	if len(contributions) == 0 {
		return 0, nil
	}

	for _, c := range contributions {
		if err := undo(c); err != nil {
			return 0, apperrors.Wrap(apperrors.ErrInternalServer, err)
		}
	}

	if err := tx.Where("transaction_id = ? AND target_type = ?", transactionID, target).
		Delete(&models.TrackingContribution{}).Error; err != nil {
		return 0, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}
	return int64(len(contributions)), nil
}
