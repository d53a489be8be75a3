package services

import (
	"context"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"stashsmart/internal/models"
	"stashsmart/internal/testutil"
)

func TestGetBudgetAlerts(t *testing.T) {
	ctx := context.Background()

	t.Run("threshold_at_eighty_percent", func(t *testing.T) {
		db := testutil.SetupTestDB(t)
		defer testutil.TeardownTestDB(t, db)
		user := testutil.CreateTestUser(t, db)
		cat := testutil.CreateTestCategory(t, db, user.ID, models.CategoryTypeExpense)
		budget := testutil.CreateTestBudget(t, db, user.ID, cat.ID, decimal.NewFromInt(100), decimal.NewFromInt(80))

		alerts, err := NewInsightService(db).GetBudgetAlerts(ctx, user.ID)
		require.NoError(t, err)
		require.Len(t, alerts, 1)
		assert.Equal(t, AlertBudgetThreshold, alerts[0].Type)
		assert.Equal(t, budget.ID, alerts[0].BudgetID)
		assert.Equal(t, 80.0, alerts[0].Percentage)
		assert.Equal(t, "You've spent 80% of your "+cat.Name+" budget", alerts[0].Message)
	})

	t.Run("exceeded_yields_both_alerts", func(t *testing.T) {
		db := testutil.SetupTestDB(t)
		defer testutil.TeardownTestDB(t, db)
		user := testutil.CreateTestUser(t, db)
		cat := testutil.CreateTestCategory(t, db, user.ID, models.CategoryTypeExpense)
		testutil.CreateTestBudget(t, db, user.ID, cat.ID, decimal.NewFromInt(100), decimal.NewFromInt(120))

		alerts, err := NewInsightService(db).GetBudgetAlerts(ctx, user.ID)
		require.NoError(t, err)
		require.Len(t, alerts, 2)
		assert.Equal(t, AlertBudgetThreshold, alerts[0].Type)
		assert.Equal(t, 120.0, alerts[0].Percentage)
		assert.Equal(t, AlertBudgetExceeded, alerts[1].Type)
		assert.Equal(t, "You've exceeded your "+cat.Name+" budget by 20%", alerts[1].Message)
	})

	t.Run("ignores_quiet_ended_and_inactive_budgets", func(t *testing.T) {
		db := testutil.SetupTestDB(t)
		defer testutil.TeardownTestDB(t, db)
		user := testutil.CreateTestUser(t, db)
		cat := testutil.CreateTestCategory(t, db, user.ID, models.CategoryTypeExpense)
		today := testutil.Today()

		testutil.CreateTestBudget(t, db, user.ID, cat.ID, decimal.NewFromInt(100), decimal.NewFromInt(79))
		testutil.CreateTestBudgetWindow(t, db, user.ID, cat.ID, decimal.NewFromInt(100), decimal.NewFromInt(150),
			today.AddDate(0, -2, 0), today.AddDate(0, 0, -1))
		inactive := testutil.CreateTestBudget(t, db, user.ID, cat.ID, decimal.NewFromInt(100), decimal.NewFromInt(150))
		require.NoError(t, db.Model(inactive).Update("is_active", false).Error)
		testutil.CreateTestBudget(t, db, user.ID, cat.ID, decimal.Zero, decimal.NewFromInt(10))

		alerts, err := NewInsightService(db).GetBudgetAlerts(ctx, user.ID)
		require.NoError(t, err)
		assert.Empty(t, alerts)
	})
}

func TestGetInsights(t *testing.T) {
	ctx := context.Background()
	db := testutil.SetupTestDB(t)
	defer testutil.TeardownTestDB(t, db)

	user := testutil.CreateTestUser(t, db)
	account := testutil.CreateTestAccount(t, db, user.ID)
	salary := testutil.CreateTestCategory(t, db, user.ID, models.CategoryTypeIncome)
	food := testutil.CreateTestCategory(t, db, user.ID, models.CategoryTypeExpense)

	testutil.CreateTestTransaction(t, db, user.ID, account.ID, salary.ID, models.TransactionTypeIncome, decimal.NewFromInt(1000))
	testutil.CreateTestTransaction(t, db, user.ID, account.ID, food.ID, models.TransactionTypeExpense, decimal.NewFromInt(600))
	testutil.CreateTestTransaction(t, db, user.ID, account.ID, food.ID, models.TransactionTypeExpense, decimal.NewFromInt(300))
	old := testutil.CreateTestTransaction(t, db, user.ID, account.ID, food.ID, models.TransactionTypeExpense, decimal.NewFromInt(5000))
	require.NoError(t, db.Model(old).Update("transaction_date", time.Now().UTC().AddDate(0, 0, -60)).Error)

	testutil.CreateTestBudget(t, db, user.ID, food.ID, decimal.NewFromInt(1000), decimal.NewFromInt(950))
	goal := testutil.CreateTestGoal(t, db, user.ID, decimal.NewFromInt(200))
	require.NoError(t, db.Model(goal).Update("current_amount", decimal.NewFromInt(50)).Error)

	insights, err := NewInsightService(db).GetInsights(ctx, user.ID, 0)
	require.NoError(t, err)
	assert.Equal(t, DefaultInsightPeriodDays, insights.PeriodDays)

	require.Len(t, insights.IncomeExpense, 2)
	assert.Equal(t, models.TransactionTypeExpense, insights.IncomeExpense[0].Type)
	testutil.AssertDecimal(t, "expense total", "900", insights.IncomeExpense[0].Total)
	assert.EqualValues(t, 2, insights.IncomeExpense[0].Count)
	testutil.AssertDecimal(t, "expense average", "450", insights.IncomeExpense[0].Average)

	require.Len(t, insights.CategorySpending, 2)
	assert.Equal(t, salary.Name, insights.CategorySpending[0].Name)
	testutil.AssertDecimal(t, "top category", "1000", insights.CategorySpending[0].Total)

	require.Len(t, insights.Trends, 2)

	require.Len(t, insights.GoalProgress, 1)
	assert.Equal(t, 25.0, insights.GoalProgress[0].ProgressPercentage)

	require.Len(t, insights.BudgetPerformance, 1)
	assert.Equal(t, 95.0, insights.BudgetPerformance[0].UsagePercentage)
	assert.Equal(t, food.Name, insights.BudgetPerformance[0].CategoryName)

	types := []string{}
	for _, r := range insights.Recommendations {
		types = append(types, r.Type)
	}
	// savings rate is 10%
	assert.Equal(t, []string{"budget_warning", "savings_recommendation"}, types)
	assert.Equal(t, "Consider reducing spending in "+food.Name+" category", insights.Recommendations[0].Message)
	assert.Equal(t, "Try to save at least 20% of your income. Currently saving 10%", insights.Recommendations[1].Message)
}

func TestGetDashboard(t *testing.T) {
	ctx := context.Background()
	db := testutil.SetupTestDB(t)
	defer testutil.TeardownTestDB(t, db)

	user := testutil.CreateTestUser(t, db)
	account := testutil.CreateTestAccount(t, db, user.ID)
	closed := testutil.CreateTestAccount(t, db, user.ID)
	require.NoError(t, db.Model(closed).Update("is_active", false).Error)
	income := testutil.CreateTestCategory(t, db, user.ID, models.CategoryTypeIncome)
	expense := testutil.CreateTestCategory(t, db, user.ID, models.CategoryTypeExpense)

	for range 12 {
		testutil.CreateTestTransaction(t, db, user.ID, account.ID, expense.ID, models.TransactionTypeExpense, decimal.NewFromInt(10))
	}
	testutil.CreateTestTransaction(t, db, user.ID, account.ID, income.ID, models.TransactionTypeIncome, decimal.NewFromInt(500))
	testutil.CreateTestGoal(t, db, user.ID, decimal.NewFromInt(1000))
	testutil.CreateTestGoalWithStatus(t, db, user.ID, decimal.NewFromInt(1000), models.GoalStatusCompleted)

	svc := &insightService{db: db, now: time.Now}
	dash, err := svc.GetDashboard(ctx, user.ID)
	require.NoError(t, err)

	require.Len(t, dash.Accounts, 1)
	assert.Equal(t, account.ID, dash.Accounts[0].ID)
	require.Len(t, dash.RecentTransactions, dashboardRecentLimit)
	assert.Equal(t, account.Name, dash.RecentTransactions[0].AccountName)
	testutil.AssertDecimal(t, "income", "500", dash.MonthlySummary.Income)
	testutil.AssertDecimal(t, "expense", "120", dash.MonthlySummary.Expense)
	assert.EqualValues(t, 12, dash.MonthlySummary.ExpenseCount)
	testutil.AssertDecimal(t, "net", "380", dash.MonthlySummary.Net)
	assert.Len(t, dash.Goals, 1)
}

func TestAnalyticsRange(t *testing.T) {
	// Wednesday
	now := time.Date(2026, 3, 18, 15, 30, 0, 0, time.UTC)
	day := func(y int, m time.Month, d int) time.Time { return time.Date(y, m, d, 0, 0, 0, 0, time.UTC) }

	tests := []struct {
		name     string
		query    AnalyticsQuery
		from, to time.Time
	}{
		{"default_is_month", AnalyticsQuery{}, day(2026, 3, 1), day(2026, 4, 1)},
		{"week_starts_monday", AnalyticsQuery{Period: AnalyticsWeek}, day(2026, 3, 16), day(2026, 3, 23)},
		{"year", AnalyticsQuery{Period: AnalyticsYear}, day(2026, 1, 1), day(2027, 1, 1)},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			from, to, err := AnalyticsRange(tt.query, now)
			require.NoError(t, err)
			assert.Equal(t, tt.from, *from)
			assert.Equal(t, tt.to, *to)
		})
	}

	t.Run("custom_includes_last_day", func(t *testing.T) {
		a, b := day(2026, 2, 1), day(2026, 2, 10)
		from, to, err := AnalyticsRange(AnalyticsQuery{Period: AnalyticsCustom, From: &a, To: &b}, now)
		require.NoError(t, err)
		assert.Equal(t, a, *from)
		assert.Equal(t, day(2026, 2, 11), *to)
	})

	t.Run("custom_without_dates_is_unbounded", func(t *testing.T) {
		from, to, err := AnalyticsRange(AnalyticsQuery{Period: AnalyticsCustom}, now)
		require.NoError(t, err)
		assert.Nil(t, from)
		assert.Nil(t, to)
	})

	t.Run("unknown_period", func(t *testing.T) {
		_, _, err := AnalyticsRange(AnalyticsQuery{Period: "decade"}, now)
		testutil.AssertAppError(t, err, "INVALID_INPUT")
	})
}

func TestGetSpendingAnalytics(t *testing.T) {
	ctx := context.Background()
	db := testutil.SetupTestDB(t)
	defer testutil.TeardownTestDB(t, db)

	user := testutil.CreateTestUser(t, db)
	account := testutil.CreateTestAccount(t, db, user.ID)
	food := testutil.CreateTestCategory(t, db, user.ID, models.CategoryTypeExpense)
	salary := testutil.CreateTestCategory(t, db, user.ID, models.CategoryTypeIncome)

	testutil.CreateTestTransaction(t, db, user.ID, account.ID, food.ID, models.TransactionTypeExpense, decimal.NewFromInt(40))
	testutil.CreateTestTransaction(t, db, user.ID, account.ID, food.ID, models.TransactionTypeExpense, decimal.NewFromInt(60))
	testutil.CreateTestTransaction(t, db, user.ID, account.ID, salary.ID, models.TransactionTypeIncome, decimal.NewFromInt(70))

	result, err := NewInsightService(db).GetSpendingAnalytics(ctx, user.ID, AnalyticsQuery{Period: AnalyticsMonth})
	require.NoError(t, err)

	require.Len(t, result.CategoryBreakdown, 2)
	assert.Equal(t, food.Name, result.CategoryBreakdown[0].Name)
	testutil.AssertDecimal(t, "food", "100", result.CategoryBreakdown[0].TotalAmount)
	assert.EqualValues(t, 2, result.CategoryBreakdown[0].TransactionCount)

	require.Len(t, result.MonthlyTrends, 2)
	assert.Equal(t, time.Now().UTC().Format(monthLayout), result.MonthlyTrends[0].Month)
	assert.NotEmpty(t, result.StartDate)
}
