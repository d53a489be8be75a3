package services

import (
	"errors"
	"math"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	apperrors "stashsmart/internal/errors"
	"stashsmart/internal/models"
	"stashsmart/internal/pagination"
)

// budgetService handles budget-related business logic.
type budgetService struct {
	db *gorm.DB
}

// NewBudgetService creates a new BudgetServicer.
func NewBudgetService(db *gorm.DB) BudgetServicer {
	return &budgetService{db: db}
}

// CreateBudget creates a new budget for a category.
func (s *budgetService) CreateBudget(
	userID, categoryID string,
	name string,
	amount decimal.Decimal,
	period models.BudgetPeriod,
	startDate, endDate time.Time,
) (*models.Budget, error) {
	if !amount.IsPositive() {
		return nil, apperrors.WithMessage(apperrors.ErrInvalidInput, "budget amount must be greater than zero")
	}
	if !endDate.After(startDate) {
		return nil, apperrors.ErrInvalidBudgetSpan
	}

	// Verify category exists and belongs to user
	var category models.Category
	if err := s.db.Where("id = ? AND user_id = ?", categoryID, userID).First(&category).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperrors.ErrCategoryNotFound
		}
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}

	name = strings.TrimSpace(name)
	if name == "" {
		name = category.Name
	}

	budget := &models.Budget{
		UserID:      userID,
		CategoryID:  categoryID,
		Name:        name,
		Amount:      amount,
		SpentAmount: decimal.Zero,
		Period:      period,
		StartDate:   startDate.UTC(),
		EndDate:     endDate.UTC(),
		IsActive:    true,
	}

	if err := s.db.Create(budget).Error; err != nil {
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}

	budget.Category = &category
	return budget, nil
}

// GetUserBudgets returns a paginated list of budgets for the user with optional filters.
func (s *budgetService) GetUserBudgets(
	userID string,
	page pagination.PageRequest,
	isActive *bool,
	period *models.BudgetPeriod,
) (*pagination.PageResponse[models.Budget], error) {
	page.Defaults()

	base := s.db.Model(&models.Budget{}).Where("user_id = ?", userID)
	if isActive != nil {
		base = base.Where("is_active = ?", *isActive)
	}
	if period != nil {
		base = base.Where("period = ?", *period)
	}

	var totalItems int64
	if err := base.Count(&totalItems).Error; err != nil {
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}

	var budgets []models.Budget
	if err := base.Preload("Category").
		Scopes(pagination.Paginate(page)).
		Order("start_date DESC").
		Find(&budgets).Error; err != nil {
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}

	result := pagination.NewPageResponse(budgets, page.Page, page.PageSize, totalItems)
	return &result, nil
}

// GetBudgetByID retrieves a budget by ID for a specific user.
func (s *budgetService) GetBudgetByID(userID, budgetID string) (*models.Budget, error) {
	var budget models.Budget
	if err := s.db.Preload("Category").Where("id = ? AND user_id = ?", budgetID, userID).First(&budget).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperrors.ErrBudgetNotFound
		}
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}
	return &budget, nil
}

// UpdateBudget updates an existing budget's fields. The spent amount is
// derived and cannot be set here.
func (s *budgetService) UpdateBudget(userID, budgetID string, fields BudgetUpdateFields) (*models.Budget, error) {
	budget, err := s.GetBudgetByID(userID, budgetID)
	if err != nil {
		return nil, err
	}

	updates := make(map[string]any)
	if fields.Name != nil && strings.TrimSpace(*fields.Name) != "" {
		updates["name"] = strings.TrimSpace(*fields.Name)
	}
	if fields.Amount != nil {
		if !fields.Amount.IsPositive() {
			return nil, apperrors.WithMessage(apperrors.ErrInvalidInput, "budget amount must be greater than zero")
		}
		updates["amount"] = *fields.Amount
	}
	if fields.Period != nil {
		updates["period"] = *fields.Period
	}
	if fields.IsActive != nil {
		updates["is_active"] = *fields.IsActive
	}

	start, end := budget.StartDate, budget.EndDate
	if fields.StartDate != nil {
		start = fields.StartDate.UTC()
		updates["start_date"] = start
	}
	if fields.EndDate != nil {
		end = fields.EndDate.UTC()
		updates["end_date"] = end
	}
	if !end.After(start) {
		return nil, apperrors.ErrInvalidBudgetSpan
	}

	if len(updates) > 0 {
		if err := s.db.Model(budget).Updates(updates).Error; err != nil {
			return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
		}
	}

	return s.GetBudgetByID(userID, budgetID)
}

// DeleteBudget soft-deletes a budget.
func (s *budgetService) DeleteBudget(userID, budgetID string) error {
	budget, err := s.GetBudgetByID(userID, budgetID)
	if err != nil {
		return err
	}

	if err := s.db.Delete(budget).Error; err != nil {
		return apperrors.Wrap(apperrors.ErrInternalServer, err)
	}
	return nil
}

// GetBudgetProgress reports the spent accumulator against the limit, plus the
// total of the category's expenses dated inside the budget window.
func (s *budgetService) GetBudgetProgress(userID, budgetID string) (*BudgetProgress, error) {
	budget, err := s.GetBudgetByID(userID, budgetID)
	if err != nil {
		return nil, err
	}

	var total decimal.NullDecimal
	err = s.db.Model(&models.Transaction{}).
		Select("SUM(amount)").
		Where("user_id = ? AND category_id = ? AND type = ? AND transaction_date >= ? AND transaction_date <= ?",
			userID, budget.CategoryID, models.TransactionTypeExpense, budget.StartDate, budget.EndDate).
		Row().Scan(&total)
	if err != nil {
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}

	daysLeft := int(math.Ceil(time.Until(budget.EndDate).Hours() / 24))
	if daysLeft < 0 {
		daysLeft = 0
	}

	return &BudgetProgress{
		BudgetID:         budget.ID,
		Budgeted:         budget.Amount,
		Spent:            budget.SpentAmount,
		Remaining:        budget.Amount.Sub(budget.SpentAmount),
		Percentage:       budget.UsagePercentage().Round(2).InexactFloat64(),
		DaysLeft:         daysLeft,
		TransactionTotal: total.Decimal,
	}, nil
}
