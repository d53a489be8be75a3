package services

import (
	"context"
	"errors"
	"strings"

	"gorm.io/gorm"

	apperrors "stashsmart/internal/errors"
	"stashsmart/internal/models"
	"stashsmart/internal/pagination"
)

// goalService manages financial goals.
type goalService struct {
	db       *gorm.DB
	activity ActivityLogger
}

// NewGoalService creates a new GoalServicer.
func NewGoalService(db *gorm.DB, activity ActivityLogger) GoalServicer {
	return &goalService{db: db, activity: activity}
}

// CreateGoal creates an active goal with zero progress.
func (s *goalService) CreateGoal(ctx context.Context, userID string, input CreateGoalInput, meta RequestMeta) (*models.FinancialGoal, error) {
	title := strings.TrimSpace(input.Title)
	if title == "" {
		return nil, apperrors.WithMessage(apperrors.ErrInvalidInput, "goal title is required")
	}
	if !input.TargetAmount.IsPositive() {
		return nil, apperrors.WithMessage(apperrors.ErrInvalidInput, "target amount must be greater than zero")
	}

	priority := input.Priority
	if priority == "" {
		priority = models.GoalPriorityMedium
	}

	goal := &models.FinancialGoal{
		UserID:       userID,
		Title:        title,
		Description:  strings.TrimSpace(input.Description),
		TargetAmount: input.TargetAmount,
		Priority:     priority,
		Status:       models.GoalStatusActive,
	}
	if input.TargetDate != nil {
		d := input.TargetDate.UTC()
		goal.TargetDate = &d
	}

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(goal).Error; err != nil {
			return apperrors.Wrap(apperrors.ErrInternalServer, err)
		}
		return s.activity.Record(tx, ActivityEntry{
			UserID:     userID,
			Action:     models.ActionGoalCreated,
			EntityType: "goal",
			EntityID:   goal.ID,
			Details: map[string]any{
				"goal_id":       goal.ID,
				"title":         goal.Title,
				"target_amount": goal.TargetAmount.String(),
			},
			Meta: meta,
		})
	})
	if err != nil {
		return nil, err
	}
	return goal, nil
}

// GetUserGoals returns a paginated list of the user's goals, nearest target date first.
func (s *goalService) GetUserGoals(ctx context.Context, userID string, page pagination.PageRequest, status *models.GoalStatus) (*pagination.PageResponse[models.FinancialGoal], error) {
	page.Defaults()

	base := s.db.WithContext(ctx).Model(&models.FinancialGoal{}).Where("user_id = ?", userID)
	if status != nil {
		base = base.Where("status = ?", *status)
	}

	var totalItems int64
	if err := base.Count(&totalItems).Error; err != nil {
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}

	var goals []models.FinancialGoal
	if err := base.Scopes(pagination.Paginate(page)).
		Order("CASE WHEN target_date IS NULL THEN 1 ELSE 0 END, target_date ASC, created_at ASC").
		Find(&goals).Error; err != nil {
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}

	result := pagination.NewPageResponse(goals, page.Page, page.PageSize, totalItems)
	return &result, nil
}

// GetGoalByID retrieves a goal by ID for a specific user.
func (s *goalService) GetGoalByID(ctx context.Context, userID, goalID string) (*models.FinancialGoal, error) {
	var goal models.FinancialGoal
	if err := s.db.WithContext(ctx).Where("id = ? AND user_id = ?", goalID, userID).First(&goal).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperrors.ErrGoalNotFound
		}
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}
	return &goal, nil
}

// UpdateGoal applies the non-nil fields. Moving a goal to completed, either
// explicitly or by raising progress to the target, records goal_achieved.
func (s *goalService) UpdateGoal(ctx context.Context, userID, goalID string, fields GoalUpdateFields, meta RequestMeta) (*models.FinancialGoal, error) {
	goal, err := s.GetGoalByID(ctx, userID, goalID)
	if err != nil {
		return nil, err
	}
	wasCompleted := goal.Status == models.GoalStatusCompleted

	updates := make(map[string]any)
	if fields.Title != nil {
		title := strings.TrimSpace(*fields.Title)
		if title == "" {
			return nil, apperrors.WithMessage(apperrors.ErrInvalidInput, "goal title is required")
		}
		updates["title"] = title
		goal.Title = title
	}
	if fields.Description != nil {
		updates["description"] = strings.TrimSpace(*fields.Description)
	}
	if fields.TargetAmount != nil {
		if !fields.TargetAmount.IsPositive() {
			return nil, apperrors.WithMessage(apperrors.ErrInvalidInput, "target amount must be greater than zero")
		}
		updates["target_amount"] = *fields.TargetAmount
		goal.TargetAmount = *fields.TargetAmount
	}
	if fields.CurrentAmount != nil {
		if fields.CurrentAmount.IsNegative() {
			return nil, apperrors.WithMessage(apperrors.ErrInvalidInput, "current amount cannot be negative")
		}
		updates["current_amount"] = *fields.CurrentAmount
		goal.CurrentAmount = *fields.CurrentAmount
	}
	if fields.TargetDate != nil {
		updates["target_date"] = fields.TargetDate.UTC()
	}
	if fields.Priority != nil {
		updates["priority"] = *fields.Priority
	}
	if fields.Status != nil {
		updates["status"] = *fields.Status
		goal.Status = *fields.Status
	}
	if goal.Status == models.GoalStatusActive && goal.CurrentAmount.GreaterThanOrEqual(goal.TargetAmount) {
		updates["status"] = models.GoalStatusCompleted
		goal.Status = models.GoalStatusCompleted
	}

	if len(updates) == 0 {
		return goal, nil
	}

	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Model(&models.FinancialGoal{}).
			Where("id = ? AND user_id = ?", goalID, userID).
			Updates(updates).Error; err != nil {
			return apperrors.Wrap(apperrors.ErrInternalServer, err)
		}
		if wasCompleted || goal.Status != models.GoalStatusCompleted {
			return nil
		}
		return s.activity.Record(tx, ActivityEntry{
			UserID:     userID,
			Action:     models.ActionGoalAchieved,
			EntityType: "goal",
			EntityID:   goalID,
			Details: map[string]any{
				"goal_id":       goalID,
				"target_amount": goal.TargetAmount.String(),
			},
			Meta: meta,
		})
	})
	if err != nil {
		return nil, err
	}

	return s.GetGoalByID(ctx, userID, goalID)
}

// DeleteGoal soft-deletes a goal.
func (s *goalService) DeleteGoal(ctx context.Context, userID, goalID string) error {
	goal, err := s.GetGoalByID(ctx, userID, goalID)
	if err != nil {
		return err
	}
	if err := s.db.WithContext(ctx).Delete(goal).Error; err != nil {
		return apperrors.Wrap(apperrors.ErrInternalServer, err)
	}
	return nil
}
