package services

import (
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	apperrors "stashsmart/internal/errors"
	"stashsmart/internal/models"
)

// GoalContributionRate is the share of every income transaction credited to
// each of the user's active goals.
var GoalContributionRate = decimal.NewFromFloat(0.10)

// goalProgressUpdater broadcasts a fixed share of income to all active goals.
type goalProgressUpdater struct {
	activity ActivityLogger
}

// NewGoalProgressUpdater creates a new GoalProgressUpdater.
func NewGoalProgressUpdater(activity ActivityLogger) GoalProgressUpdater {
	return &goalProgressUpdater{activity: activity}
}

// GoalContribution returns the amount an income transaction adds to each goal.
func GoalContribution(amount decimal.Decimal) decimal.Decimal {
	return amount.Mul(GoalContributionRate).Round(2)
}

func activeGoals(tx *gorm.DB, userID string) *gorm.DB {
	return tx.Model(&models.FinancialGoal{}).
		Where("user_id = ? AND status = ?", userID, models.GoalStatusActive)
}

// RecordIncome credits every active goal and completes the ones that reach
// their target. It returns how many goals were credited.
func (g *goalProgressUpdater) RecordIncome(tx *gorm.DB, t *models.Transaction, meta RequestMeta) (int64, error) {
	return g.apply(tx, t, nil, meta)
}

// ReverseIncome takes back what the income gave each goal, never letting
// progress drop below zero. Goals the income completed are reopened when they
// fall short of the target again.
func (g *goalProgressUpdater) ReverseIncome(tx *gorm.DB, t *models.Transaction) (int64, error) {
	return reverseContributions(tx, t.ID, models.ContributionTargetGoal, func(c models.TrackingContribution) error {
		if err := tx.Model(&models.FinancialGoal{}).
			Where("id = ?", c.TargetID).
			Update("current_amount", gorm.Expr(
				"CASE WHEN current_amount - ? < 0 THEN 0 ELSE current_amount - ? END", c.Amount, c.Amount)).
			Error; err != nil {
			return err
		}
		if !c.CompletedTarget {
			return nil
		}
		return tx.Model(&models.FinancialGoal{}).
			Where("id = ? AND status = ? AND current_amount < target_amount", c.TargetID, models.GoalStatusCompleted).
			Update("status", models.GoalStatusActive).
			Error
	})
}

// ReplaceIncome swaps before's goal effect for after's. A goal that was
// already completed when the edit started is not announced as achieved again.
func (g *goalProgressUpdater) ReplaceIncome(tx *gorm.DB, before, after *models.Transaction, meta RequestMeta) (int64, error) {
	var completed []string
	if err := tx.Model(&models.FinancialGoal{}).
		Where("user_id = ? AND status = ?", after.UserID, models.GoalStatusCompleted).
		Pluck("id", &completed).Error; err != nil {
		return 0, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}
	announced := make(map[string]bool, len(completed))
	for _, id := range completed {
		announced[id] = true
	}

	if _, err := g.ReverseIncome(tx, before); err != nil {
		return 0, err
	}
	return g.apply(tx, after, announced, meta)
}

// apply credits active goals with an income's share. Goals listed in
// announced are completed silently.
func (g *goalProgressUpdater) apply(tx *gorm.DB, t *models.Transaction, announced map[string]bool, meta RequestMeta) (int64, error) {
	if t.Type != models.TransactionTypeIncome {
		return 0, nil
	}

	var goals []models.FinancialGoal
	if err := activeGoals(tx, t.UserID).Find(&goals).Error; err != nil {
		return 0, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}
	if len(goals) == 0 {
		return 0, nil
	}

	contribution := GoalContribution(t.Amount)
	for i := range goals {
		goal := &goals[i]
		goal.CurrentAmount = goal.CurrentAmount.Add(contribution)
		reached := goal.CurrentAmount.GreaterThanOrEqual(goal.TargetAmount)

		updates := map[string]any{"current_amount": gorm.Expr("current_amount + ?", contribution)}
		if reached {
			updates["status"] = models.GoalStatusCompleted
		}
		if err := tx.Model(&models.FinancialGoal{}).Where("id = ?", goal.ID).Updates(updates).Error; err != nil {
			return 0, apperrors.Wrap(apperrors.ErrInternalServer, err)
		}

		if err := tx.Create(&models.TrackingContribution{
			TransactionID:   t.ID,
			TargetType:      models.ContributionTargetGoal,
			TargetID:        goal.ID,
			Amount:          contribution,
			CompletedTarget: reached,
		}).Error; err != nil {
			return 0, apperrors.Wrap(apperrors.ErrInternalServer, err)
		}

		if !reached || announced[goal.ID] {
			continue
		}
		err := g.activity.Record(tx, ActivityEntry{
			UserID:     t.UserID,
			Action:     models.ActionGoalAchieved,
			EntityType: "goal",
			EntityID:   goal.ID,
			Details: map[string]any{
				"goal_id":        goal.ID,
				"transaction_id": t.ID,
				"target_amount":  goal.TargetAmount.String(),
			},
			Meta: meta,
		})
		if err != nil {
			return 0, err
		}
	}

	return int64(len(goals)), nil
}
