package testutil

import (
	"fmt"
	"sync/atomic"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"

	"stashsmart/internal/models"
)

// TestPassword is the plain-text password of every fixture user.
const TestPassword = "password123"

// counter provides unique values across fixtures within a test run.
var counter atomic.Int64

func nextID() int64 {
	return counter.Add(1)
}

// Today returns the current UTC date at midnight.
func Today() time.Time {
	return time.Now().UTC().Truncate(24 * time.Hour)
}

// CreateTestUser creates an active user with a hashed password and unique email.
func CreateTestUser(t *testing.T, db *gorm.DB) *models.User {
	t.Helper()
	email := fmt.Sprintf("user%d@test.com", nextID())
	return CreateTestUserWithEmail(t, db, email)
}

// CreateTestUserWithEmail creates an active user with the given email.
func CreateTestUserWithEmail(t *testing.T, db *gorm.DB, email string) *models.User {
	t.Helper()

	hash, err := bcrypt.GenerateFromPassword([]byte(TestPassword), bcrypt.MinCost)
	if err != nil {
		t.Fatalf("failed to hash password: %v", err)
	}

	user := &models.User{
		FullName: "Test User",
		Email:    email,
		Password: string(hash),
		Status:   models.UserStatusActive,
	}
	if err := db.Create(user).Error; err != nil {
		t.Fatalf("failed to create test user: %v", err)
	}
	return user
}

// CreateTestAccount creates a checking account with zero balance.
func CreateTestAccount(t *testing.T, db *gorm.DB, userID string) *models.Account {
	t.Helper()
	return CreateTestAccountWithBalance(t, db, userID, decimal.Zero)
}

// CreateTestAccountWithBalance creates a checking account with the given balance.
func CreateTestAccountWithBalance(t *testing.T, db *gorm.DB, userID string, balance decimal.Decimal) *models.Account {
	t.Helper()

	account := &models.Account{
		UserID:   userID,
		Name:     fmt.Sprintf("Test Account %d", nextID()),
		Type:     models.AccountTypeChecking,
		Balance:  balance,
		Currency: "USD",
		IsActive: true,
	}
	if err := db.Create(account).Error; err != nil {
		t.Fatalf("failed to create test account: %v", err)
	}
	return account
}

// CreateTestCategory creates a category of the given type.
func CreateTestCategory(t *testing.T, db *gorm.DB, userID string, categoryType models.CategoryType) *models.Category {
	t.Helper()

	category := &models.Category{
		UserID: userID,
		Name:   fmt.Sprintf("Test Category %d", nextID()),
		Type:   categoryType,
		Color:  "#6c757d",
	}
	if err := db.Create(category).Error; err != nil {
		t.Fatalf("failed to create test category: %v", err)
	}
	return category
}

// CreateTestTransaction inserts a transaction row dated now. It does not touch
// the account balance.
func CreateTestTransaction(t *testing.T, db *gorm.DB, userID, accountID, categoryID string, txType models.TransactionType, amount decimal.Decimal) *models.Transaction {
	t.Helper()

	tx := &models.Transaction{
		UserID:          userID,
		AccountID:       accountID,
		CategoryID:      categoryID,
		Type:            txType,
		Amount:          amount,
		Description:     fmt.Sprintf("Test Transaction %d", nextID()),
		TransactionDate: time.Now().UTC(),
	}
	if err := db.Create(tx).Error; err != nil {
		t.Fatalf("failed to create test transaction: %v", err)
	}
	return tx
}

// CreateTestBudget creates an active monthly budget whose window contains today.
func CreateTestBudget(t *testing.T, db *gorm.DB, userID, categoryID string, amount, spent decimal.Decimal) *models.Budget {
	t.Helper()

	today := Today()
	return CreateTestBudgetWindow(t, db, userID, categoryID, amount, spent, today.AddDate(0, 0, -1), today.AddDate(0, 1, 0))
}

// CreateTestBudgetWindow creates an active monthly budget over the given window.
func CreateTestBudgetWindow(t *testing.T, db *gorm.DB, userID, categoryID string, amount, spent decimal.Decimal, start, end time.Time) *models.Budget {
	t.Helper()

	budget := &models.Budget{
		UserID:      userID,
		CategoryID:  categoryID,
		Name:        fmt.Sprintf("Test Budget %d", nextID()),
		Amount:      amount,
		SpentAmount: spent,
		Period:      models.BudgetPeriodMonthly,
		StartDate:   start.UTC(),
		EndDate:     end.UTC(),
		IsActive:    true,
	}
	if err := db.Create(budget).Error; err != nil {
		t.Fatalf("failed to create test budget: %v", err)
	}
	return budget
}

// CreateTestGoal creates an active goal with the given target and zero progress.
func CreateTestGoal(t *testing.T, db *gorm.DB, userID string, target decimal.Decimal) *models.FinancialGoal {
	t.Helper()
	return CreateTestGoalWithStatus(t, db, userID, target, models.GoalStatusActive)
}

// CreateTestGoalWithStatus creates a goal in the given status.
func CreateTestGoalWithStatus(t *testing.T, db *gorm.DB, userID string, target decimal.Decimal, status models.GoalStatus) *models.FinancialGoal {
	t.Helper()

	goal := &models.FinancialGoal{
		UserID:        userID,
		Title:         fmt.Sprintf("Test Goal %d", nextID()),
		TargetAmount:  target,
		CurrentAmount: decimal.Zero,
		Priority:      models.GoalPriorityMedium,
		Status:        status,
	}
	if err := db.Create(goal).Error; err != nil {
		t.Fatalf("failed to create test goal: %v", err)
	}
	return goal
}

// ReloadAccount reads the account back from the database.
func ReloadAccount(t *testing.T, db *gorm.DB, id string) *models.Account {
	t.Helper()

	var account models.Account
	if err := db.First(&account, "id = ?", id).Error; err != nil {
		t.Fatalf("failed to reload account: %v", err)
	}
	return &account
}

// Dec parses a decimal literal, failing the test on malformed input.
func Dec(t *testing.T, s string) decimal.Decimal {
	t.Helper()

	d, err := decimal.NewFromString(s)
	if err != nil {
		t.Fatalf("invalid decimal %q: %v", s, err)
	}
	return d
}
