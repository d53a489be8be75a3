package services

import (
	"cmp"
	"context"
	"fmt"
	"slices"
	"time"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	apperrors "stashsmart/internal/errors"
	"stashsmart/internal/models"
)

// Alert types.
const (
	AlertBudgetThreshold = "budget_threshold"
	AlertBudgetExceeded  = "budget_exceeded"
)

// Recommendation thresholds.
const (
	RecommendBudgetUsageAbove = 90
	RecommendSavingsRateBelow = 20
	DefaultInsightPeriodDays  = 30
	dashboardRecentLimit      = 10
	dateLayout                = "2006-01-02"
	monthLayout               = "2006-01"
)

var hundred = decimal.NewFromInt(100)

// BudgetAlert warns that a current budget is close to or over its limit.
type BudgetAlert struct {
	Type       string           `json:"type"`
	BudgetID   string           `json:"budget_id"`
	Category   string           `json:"category"`
	Percentage float64          `json:"percentage"`
	Spent      *decimal.Decimal `json:"spent,omitempty"`
	Budget     *decimal.Decimal `json:"budget,omitempty"`
	Message    string           `json:"message"`
}

// TypeTotal aggregates the transactions of one type.
type TypeTotal struct {
	Type    models.TransactionType `json:"type"`
	Total   decimal.Decimal        `json:"total"`
	Count   int64                  `json:"count"`
	Average decimal.Decimal        `json:"average"`
}

// CategorySpending aggregates the transactions of one category.
type CategorySpending struct {
	CategoryID string          `json:"category_id"`
	Name       string          `json:"name"`
	Color      string          `json:"color"`
	Total      decimal.Decimal `json:"total"`
	Count      int64           `json:"count"`
}

// TrendPoint is the total of one transaction type on one day.
type TrendPoint struct {
	Date  string                 `json:"date"`
	Type  models.TransactionType `json:"type"`
	Total decimal.Decimal        `json:"total"`
}

// GoalSnapshot is an active goal with its progress.
type GoalSnapshot struct {
	models.FinancialGoal
	ProgressPercentage float64 `json:"progress_percentage"`
	DaysRemaining      *int    `json:"days_remaining,omitempty"`
}

// BudgetPerformance is an active budget with its usage.
type BudgetPerformance struct {
	models.Budget
	CategoryName    string  `json:"category_name"`
	UsagePercentage float64 `json:"usage_percentage"`
}

// Recommendation is a rule-based suggestion derived from the other insights.
type Recommendation struct {
	Type     string `json:"type"`
	Message  string `json:"message"`
	Priority string `json:"priority"`
}

// Insights bundles the spending analysis of a trailing window.
type Insights struct {
	PeriodDays        int                 `json:"period_days"`
	StartDate         string              `json:"start_date"`
	EndDate           string              `json:"end_date"`
	IncomeExpense     []TypeTotal         `json:"income_expense"`
	CategorySpending  []CategorySpending  `json:"category_spending"`
	Trends            []TrendPoint        `json:"trends"`
	GoalProgress      []GoalSnapshot      `json:"goal_progress"`
	BudgetPerformance []BudgetPerformance `json:"budget_performance"`
	Recommendations   []Recommendation    `json:"recommendations"`
}

// MonthlySummary totals the current calendar month.
type MonthlySummary struct {
	Income       decimal.Decimal `json:"income"`
	Expense      decimal.Decimal `json:"expense"`
	IncomeCount  int64           `json:"income_count"`
	ExpenseCount int64           `json:"expense_count"`
	Net          decimal.Decimal `json:"net"`
}

// Dashboard is the landing-page snapshot of a user's finances.
type Dashboard struct {
	Accounts           []models.Account       `json:"accounts"`
	RecentTransactions []TransactionRecord    `json:"recent_transactions"`
	MonthlySummary     MonthlySummary         `json:"monthly_summary"`
	Goals              []models.FinancialGoal `json:"goals"`
}

// AnalyticsPeriod selects the range of a spending analysis.
type AnalyticsPeriod string

const (
	AnalyticsWeek   AnalyticsPeriod = "week"
	AnalyticsMonth  AnalyticsPeriod = "month"
	AnalyticsYear   AnalyticsPeriod = "year"
	AnalyticsCustom AnalyticsPeriod = "custom"
)

// AnalyticsQuery selects the range of GetSpendingAnalytics. From and To are
// only read for the custom period; a custom period without both covers all time.
type AnalyticsQuery struct {
	Period AnalyticsPeriod
	From   *time.Time
	To     *time.Time
}

// CategoryBreakdown totals one category and type.
type CategoryBreakdown struct {
	Name             string                 `json:"name"`
	Color            string                 `json:"color"`
	Icon             string                 `json:"icon"`
	Type             models.TransactionType `json:"type"`
	TotalAmount      decimal.Decimal        `json:"total_amount"`
	TransactionCount int64                  `json:"transaction_count"`
}

// MonthlyTrend totals one transaction type over one month.
type MonthlyTrend struct {
	Month       string                 `json:"month"`
	Type        models.TransactionType `json:"type"`
	TotalAmount decimal.Decimal        `json:"total_amount"`
}

// SpendingAnalytics is the category and month breakdown of a range.
type SpendingAnalytics struct {
	Period            AnalyticsPeriod     `json:"period"`
	StartDate         string              `json:"start_date,omitempty"`
	EndDate           string              `json:"end_date,omitempty"`
	CategoryBreakdown []CategoryBreakdown `json:"category_breakdown"`
	MonthlyTrends     []MonthlyTrend      `json:"monthly_trends"`
}

// insightService computes read-only aggregates. Grouping happens in Go so the
// same code runs on every supported database.
type insightService struct {
	db  *gorm.DB
	now func() time.Time
}

// NewInsightService creates a new InsightServicer.
func NewInsightService(db *gorm.DB) InsightServicer {
	return &insightService{db: db, now: time.Now}
}

func startOfDay(t time.Time) time.Time {
	t = t.UTC()
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}

func percentOf(part, whole decimal.Decimal) decimal.Decimal {
	if whole.IsZero() {
		return decimal.Zero
	}
	return part.Div(whole).Mul(hundred)
}

// GetBudgetAlerts checks every active budget that has not ended. A budget at
// or over its limit yields both a threshold and an exceeded alert.
func (s *insightService) GetBudgetAlerts(ctx context.Context, userID string) ([]BudgetAlert, error) {
	today := startOfDay(s.now())

	var budgets []models.Budget
	if err := s.db.WithContext(ctx).
		Preload("Category", func(db *gorm.DB) *gorm.DB { return db.Unscoped() }).
		Where("user_id = ? AND is_active = ? AND end_date >= ?", userID, true, today).
		Order("start_date ASC").
		Find(&budgets).Error; err != nil {
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}

	alerts := []BudgetAlert{}
	for i := range budgets {
		b := &budgets[i]
		pct := b.UsagePercentage()
		if pct.LessThan(BudgetWarningThreshold) {
			continue
		}

		category := ""
		if b.Category != nil {
			category = b.Category.Name
		}
		spent, limit := b.SpentAmount, b.Amount

		alerts = append(alerts, BudgetAlert{
			Type:       AlertBudgetThreshold,
			BudgetID:   b.ID,
			Category:   category,
			Percentage: pct.Round(2).InexactFloat64(),
			Spent:      &spent,
			Budget:     &limit,
			Message:    fmt.Sprintf("You've spent %s%% of your %s budget", pct.Round(1).String(), category),
		})

		if pct.GreaterThanOrEqual(BudgetExceededThreshold) {
			alerts = append(alerts, BudgetAlert{
				Type:       AlertBudgetExceeded,
				BudgetID:   b.ID,
				Category:   category,
				Percentage: pct.Round(2).InexactFloat64(),
				Message:    fmt.Sprintf("You've exceeded your %s budget by %s%%", category, pct.Sub(hundred).Round(1).String()),
			})
		}
	}
	return alerts, nil
}

// GetInsights analyses the last periodDays days, today included.
func (s *insightService) GetInsights(ctx context.Context, userID string, periodDays int) (*Insights, error) {
	if periodDays <= 0 {
		periodDays = DefaultInsightPeriodDays
	}
	db := s.db.WithContext(ctx)

	today := startOfDay(s.now())
	start := today.AddDate(0, 0, -periodDays)
	end := today.AddDate(0, 0, 1)

	transactions, err := s.transactionsBetween(db, userID, &start, &end)
	if err != nil {
		return nil, err
	}

	goals, err := s.goalSnapshots(db, userID, today)
	if err != nil {
		return nil, err
	}

	budgets, err := s.budgetPerformance(db, userID)
	if err != nil {
		return nil, err
	}

	insights := &Insights{
		PeriodDays:        periodDays,
		StartDate:         start.Format(dateLayout),
		EndDate:           today.Format(dateLayout),
		IncomeExpense:     totalsByType(transactions),
		CategorySpending:  spendingByCategory(transactions),
		Trends:            dailyTrends(transactions),
		GoalProgress:      goals,
		BudgetPerformance: budgets,
	}
	insights.Recommendations = recommend(insights)
	return insights, nil
}

func (s *insightService) transactionsBetween(db *gorm.DB, userID string, from, to *time.Time) ([]models.Transaction, error) {
	q := db.Preload("Category", func(db *gorm.DB) *gorm.DB { return db.Unscoped() }).
		Where("user_id = ?", userID)
	if from != nil {
		q = q.Where("transaction_date >= ?", *from)
	}
	if to != nil {
		q = q.Where("transaction_date < ?", *to)
	}

	var transactions []models.Transaction
	if err := q.Order("transaction_date ASC").Find(&transactions).Error; err != nil {
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}
	return transactions, nil
}

func (s *insightService) goalSnapshots(db *gorm.DB, userID string, today time.Time) ([]GoalSnapshot, error) {
	var goals []models.FinancialGoal
	if err := db.Where("user_id = ? AND status = ?", userID, models.GoalStatusActive).
		Order("created_at ASC").
		Find(&goals).Error; err != nil {
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}

	snapshots := make([]GoalSnapshot, 0, len(goals))
	for _, g := range goals {
		snap := GoalSnapshot{
			FinancialGoal:      g,
			ProgressPercentage: g.ProgressPercentage().Round(2).InexactFloat64(),
		}
		if g.TargetDate != nil {
			days := int(startOfDay(*g.TargetDate).Sub(today).Hours() / 24)
			snap.DaysRemaining = &days
		}
		snapshots = append(snapshots, snap)
	}
	return snapshots, nil
}

func (s *insightService) budgetPerformance(db *gorm.DB, userID string) ([]BudgetPerformance, error) {
	var budgets []models.Budget
	if err := db.Preload("Category", func(db *gorm.DB) *gorm.DB { return db.Unscoped() }).
		Where("user_id = ? AND is_active = ?", userID, true).
		Order("start_date ASC").
		Find(&budgets).Error; err != nil {
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}

	perf := make([]BudgetPerformance, 0, len(budgets))
	for _, b := range budgets {
		p := BudgetPerformance{
			Budget:          b,
			UsagePercentage: b.UsagePercentage().Round(2).InexactFloat64(),
		}
		if b.Category != nil {
			p.CategoryName = b.Category.Name
		}
		perf = append(perf, p)
	}
	return perf, nil
}

func totalsByType(transactions []models.Transaction) []TypeTotal {
	index := map[models.TransactionType]int{}
	totals := []TypeTotal{}
	for _, t := range transactions {
		i, ok := index[t.Type]
		if !ok {
			i = len(totals)
			index[t.Type] = i
			totals = append(totals, TypeTotal{Type: t.Type})
		}
		totals[i].Total = totals[i].Total.Add(t.Amount)
		totals[i].Count++
	}
	for i := range totals {
		totals[i].Average = totals[i].Total.Div(decimal.NewFromInt(totals[i].Count)).Round(2)
	}
	slices.SortFunc(totals, func(a, b TypeTotal) int { return cmp.Compare(a.Type, b.Type) })
	return totals
}

func spendingByCategory(transactions []models.Transaction) []CategorySpending {
	index := map[string]int{}
	rows := []CategorySpending{}
	for _, t := range transactions {
		i, ok := index[t.CategoryID]
		if !ok {
			i = len(rows)
			index[t.CategoryID] = i
			row := CategorySpending{CategoryID: t.CategoryID}
			if t.Category != nil {
				row.Name = t.Category.Name
				row.Color = t.Category.Color
			}
			rows = append(rows, row)
		}
		rows[i].Total = rows[i].Total.Add(t.Amount)
		rows[i].Count++
	}
	slices.SortStableFunc(rows, func(a, b CategorySpending) int { return b.Total.Cmp(a.Total) })
	return rows
}

func dailyTrends(transactions []models.Transaction) []TrendPoint {
	type key struct {
		date string
		typ  models.TransactionType
	}
	index := map[key]int{}
	points := []TrendPoint{}
	for _, t := range transactions {
		k := key{t.TransactionDate.UTC().Format(dateLayout), t.Type}
		i, ok := index[k]
		if !ok {
			i = len(points)
			index[k] = i
			points = append(points, TrendPoint{Date: k.date, Type: k.typ})
		}
		points[i].Total = points[i].Total.Add(t.Amount)
	}
	slices.SortStableFunc(points, func(a, b TrendPoint) int {
		return cmp.Or(cmp.Compare(a.Date, b.Date), cmp.Compare(a.Type, b.Type))
	})
	return points
}

func recommend(in *Insights) []Recommendation {
	recs := []Recommendation{}
	for _, b := range in.BudgetPerformance {
		if b.UsagePercentage > RecommendBudgetUsageAbove {
			recs = append(recs, Recommendation{
				Type:     "budget_warning",
				Message:  fmt.Sprintf("Consider reducing spending in %s category", b.CategoryName),
				Priority: "high",
			})
		}
	}

	var income, expense decimal.Decimal
	for _, t := range in.IncomeExpense {
		switch t.Type {
		case models.TransactionTypeIncome:
			income = t.Total
		case models.TransactionTypeExpense:
			expense = t.Total
		}
	}
	rate := percentOf(income.Sub(expense), income)
	if rate.LessThan(decimal.NewFromInt(RecommendSavingsRateBelow)) {
		recs = append(recs, Recommendation{
			Type:     "savings_recommendation",
			Message:  fmt.Sprintf("Try to save at least 20%% of your income. Currently saving %s%%", rate.Round(1).String()),
			Priority: "medium",
		})
	}
	return recs
}

// GetDashboard returns active accounts, the latest transactions, this
// month's totals and active goals.
func (s *insightService) GetDashboard(ctx context.Context, userID string) (*Dashboard, error) {
	db := s.db.WithContext(ctx)
	dash := &Dashboard{
		Accounts:           []models.Account{},
		RecentTransactions: []TransactionRecord{},
		Goals:              []models.FinancialGoal{},
	}

	if err := db.Where("user_id = ? AND is_active = ?", userID, true).
		Order("created_at ASC").
		Find(&dash.Accounts).Error; err != nil {
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}

	var recent []models.Transaction
	if err := withDisplayRelations(db).
		Where("user_id = ?", userID).
		Order("transaction_date DESC").Order("created_at DESC").
		Limit(dashboardRecentLimit).
		Find(&recent).Error; err != nil {
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}
	for _, t := range recent {
		dash.RecentTransactions = append(dash.RecentTransactions, newTransactionRecord(t))
	}

	now := s.now().UTC()
	monthStart := time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, time.UTC)
	monthEnd := monthStart.AddDate(0, 1, 0)
	var month []models.Transaction
	if err := db.Select("type", "amount").
		Where("user_id = ? AND transaction_date >= ? AND transaction_date < ?", userID, monthStart, monthEnd).
		Find(&month).Error; err != nil {
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}
	for _, t := range month {
		switch t.Type {
		case models.TransactionTypeIncome:
			dash.MonthlySummary.Income = dash.MonthlySummary.Income.Add(t.Amount)
			dash.MonthlySummary.IncomeCount++
		case models.TransactionTypeExpense:
			dash.MonthlySummary.Expense = dash.MonthlySummary.Expense.Add(t.Amount)
			dash.MonthlySummary.ExpenseCount++
		}
	}
	dash.MonthlySummary.Net = dash.MonthlySummary.Income.Sub(dash.MonthlySummary.Expense)

	if err := db.Where("user_id = ? AND status = ?", userID, models.GoalStatusActive).
		Order("CASE WHEN target_date IS NULL THEN 1 ELSE 0 END, target_date ASC").
		Find(&dash.Goals).Error; err != nil {
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}

	return dash, nil
}

// AnalyticsRange resolves a period to a half-open [from, to) range relative
// to now. Weeks run Monday to Sunday. A nil bound means unbounded.
func AnalyticsRange(q AnalyticsQuery, now time.Time) (from, to *time.Time, err error) {
	today := startOfDay(now)
	var start, end time.Time

	switch q.Period {
	case "", AnalyticsMonth:
		start = time.Date(today.Year(), today.Month(), 1, 0, 0, 0, 0, time.UTC)
		end = start.AddDate(0, 1, 0)
	case AnalyticsWeek:
		offset := (int(today.Weekday()) + 6) % 7
		start = today.AddDate(0, 0, -offset)
		end = start.AddDate(0, 0, 7)
	case AnalyticsYear:
		start = time.Date(today.Year(), 1, 1, 0, 0, 0, 0, time.UTC)
		end = start.AddDate(1, 0, 0)
	case AnalyticsCustom:
		if q.From == nil || q.To == nil {
			return nil, nil, nil
		}
		start = startOfDay(*q.From)
		end = startOfDay(*q.To).AddDate(0, 0, 1)
		if end.Before(start) {
			return nil, nil, apperrors.WithMessage(apperrors.ErrInvalidInput, "to_date must not be before from_date")
		}
	default:
		return nil, nil, apperrors.WithMessage(apperrors.ErrInvalidInput, "period must be one of week, month, year, custom")
	}
	return &start, &end, nil
}

// GetSpendingAnalytics breaks a range down by category/type and by month/type.
func (s *insightService) GetSpendingAnalytics(ctx context.Context, userID string, query AnalyticsQuery) (*SpendingAnalytics, error) {
	from, to, err := AnalyticsRange(query, s.now())
	if err != nil {
		return nil, err
	}

	transactions, err := s.transactionsBetween(s.db.WithContext(ctx), userID, from, to)
	if err != nil {
		return nil, err
	}

	period := query.Period
	if period == "" {
		period = AnalyticsMonth
	}
	result := &SpendingAnalytics{
		Period:            period,
		CategoryBreakdown: categoryBreakdown(transactions),
		MonthlyTrends:     monthlyTrends(transactions),
	}
	if from != nil {
		result.StartDate = from.Format(dateLayout)
		result.EndDate = to.AddDate(0, 0, -1).Format(dateLayout)
	}
	return result, nil
}

func categoryBreakdown(transactions []models.Transaction) []CategoryBreakdown {
	type key struct {
		category string
		typ      models.TransactionType
	}
	index := map[key]int{}
	rows := []CategoryBreakdown{}
	for _, t := range transactions {
		k := key{t.CategoryID, t.Type}
		i, ok := index[k]
		if !ok {
			i = len(rows)
			index[k] = i
			row := CategoryBreakdown{Type: t.Type}
			if t.Category != nil {
				row.Name = t.Category.Name
				row.Color = t.Category.Color
				row.Icon = t.Category.Icon
			}
			rows = append(rows, row)
		}
		rows[i].TotalAmount = rows[i].TotalAmount.Add(t.Amount)
		rows[i].TransactionCount++
	}
	slices.SortStableFunc(rows, func(a, b CategoryBreakdown) int { return b.TotalAmount.Cmp(a.TotalAmount) })
	return rows
}

func monthlyTrends(transactions []models.Transaction) []MonthlyTrend {
	type key struct {
		month string
		typ   models.TransactionType
	}
	index := map[key]int{}
	rows := []MonthlyTrend{}
	for _, t := range transactions {
		k := key{t.TransactionDate.UTC().Format(monthLayout), t.Type}
		i, ok := index[k]
		if !ok {
			i = len(rows)
			index[k] = i
			rows = append(rows, MonthlyTrend{Month: k.month, Type: k.typ})
		}
		rows[i].TotalAmount = rows[i].TotalAmount.Add(t.Amount)
	}
	// newest month first
	slices.SortStableFunc(rows, func(a, b MonthlyTrend) int {
		return cmp.Or(cmp.Compare(b.Month, a.Month), cmp.Compare(a.Type, b.Type))
	})
	return rows
}
