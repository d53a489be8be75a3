package services

import (
	"context"
	"time"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"stashsmart/internal/models"
	"stashsmart/internal/pagination"
)

// RequestMeta carries per-request client details into audited operations.
type RequestMeta struct {
	IPAddress string
	UserAgent string
}

// UserServicer defines the contract for user-related business logic.
type UserServicer interface {
	AttemptLogin(ctx context.Context, identifier, password string, meta RequestMeta) (*models.User, error)
	Logout(ctx context.Context, userID string, meta RequestMeta)
	GetUserByID(id string) (*models.User, error)
	UpdateProfile(ctx context.Context, userID string, fields ProfileUpdateFields, meta RequestMeta) (*models.User, error)
	ChangePassword(ctx context.Context, userID, currentPassword, newPassword string, meta RequestMeta) error
}

// ProfileUpdateFields holds optional profile changes. Nil fields are left untouched.
type ProfileUpdateFields struct {
	FullName *string
	Mobile   *string
	Username *string
}

// AccountUpdateFields holds optional account changes. Nil fields are left untouched.
type AccountUpdateFields struct {
	Name        *string
	Description *string
	IsActive    *bool
}

// Reconciliation compares an account's cached balance with the signed sum of
// its live transactions.
type Reconciliation struct {
	AccountID        string          `json:"account_id"`
	CachedBalance    decimal.Decimal `json:"cached_balance"`
	ComputedBalance  decimal.Decimal `json:"computed_balance"`
	Drift            decimal.Decimal `json:"drift"`
	TransactionCount int64           `json:"transaction_count"`
	Repaired         bool            `json:"repaired"`
}

// AccountServicer defines the contract for account-related business logic.
type AccountServicer interface {
	CreateAccount(userID, name string, accountType models.AccountType, description, currency string, initialBalance decimal.Decimal) (*models.Account, error)
	GetUserAccounts(userID string, page pagination.PageRequest, includeInactive bool) (*pagination.PageResponse[models.Account], error)
	GetAccountByID(userID, accountID string) (*models.Account, error)
	UpdateAccount(userID, accountID string, fields AccountUpdateFields) (*models.Account, error)
	Reconcile(userID, accountID string, repair bool) (*Reconciliation, error)
}

// CategoryUpdateFields holds optional category changes. Nil fields are left untouched.
type CategoryUpdateFields struct {
	Name        *string
	Description *string
	Icon        *string
	Color       *string
}

// CategoryServicer defines the contract for category-related business logic.
type CategoryServicer interface {
	CreateCategory(userID, name string, categoryType models.CategoryType, description, icon, color string) (*models.Category, error)
	GetUserCategories(userID string, page pagination.PageRequest, categoryType *models.CategoryType) (*pagination.PageResponse[models.Category], error)
	GetCategoryByID(userID, categoryID string) (*models.Category, error)
	UpdateCategory(userID, categoryID string, fields CategoryUpdateFields) (*models.Category, error)
	DeleteCategory(userID, categoryID string) error
}

// TransactionRecord is a transaction joined with the display fields of its
// category and account.
type TransactionRecord struct {
	models.Transaction
	CategoryName  string `json:"category_name"`
	CategoryColor string `json:"category_color"`
	CategoryIcon  string `json:"category_icon"`
	AccountName   string `json:"account_name"`
}

// CreateTransactionInput holds the validated fields of a transaction write.
type CreateTransactionInput struct {
	AccountID       string
	CategoryID      string
	Type            models.TransactionType
	Amount          decimal.Decimal
	Description     string
	TransactionDate time.Time
	PaymentMethod   models.PaymentMethod
	ReferenceNumber string
	Notes           string
	ReceiptPath     string
	Tags            []string
}

// UpdateTransactionInput replaces every writable field of a transaction.
type UpdateTransactionInput = CreateTransactionInput

// TransactionFilter holds optional filter parameters for listing transactions.
type TransactionFilter struct {
	FromDate   *time.Time
	ToDate     *time.Time
	Type       *models.TransactionType
	CategoryID *string
	AccountID  *string
	Search     string
}

// TransactionServicer defines the contract for transaction reads and the
// persist step of the transaction workflow.
type TransactionServicer interface {
	CreateWithDB(tx *gorm.DB, userID string, input CreateTransactionInput) (*models.Transaction, error)
	GetRecordWithDB(tx *gorm.DB, userID, transactionID string) (*TransactionRecord, error)
	GetTransactionByID(userID, transactionID string) (*TransactionRecord, error)
	GetUserTransactions(userID string, page pagination.PageRequest, filter TransactionFilter) (*pagination.PageResponse[TransactionRecord], error)
}

// BudgetUpdateFields holds optional budget changes. Nil fields are left untouched.
type BudgetUpdateFields struct {
	Name      *string
	Amount    *decimal.Decimal
	Period    *models.BudgetPeriod
	StartDate *time.Time
	EndDate   *time.Time
	IsActive  *bool
}

// BudgetProgress contains spending vs limit data for a budget.
type BudgetProgress struct {
	BudgetID   string          `json:"budget_id"`
	Budgeted   decimal.Decimal `json:"budgeted"`
	Spent      decimal.Decimal `json:"spent"`
	Remaining  decimal.Decimal `json:"remaining"`
	Percentage float64         `json:"percentage"`
	DaysLeft   int             `json:"days_left"`

	// TransactionTotal is the sum of the category's expenses dated inside the
	// window, for comparison with the Spent accumulator.
	TransactionTotal decimal.Decimal `json:"transaction_total"`
}

// BudgetServicer defines the contract for budget-related business logic.
type BudgetServicer interface {
	CreateBudget(userID, categoryID, name string, amount decimal.Decimal, period models.BudgetPeriod, startDate, endDate time.Time) (*models.Budget, error)
	GetUserBudgets(userID string, page pagination.PageRequest, isActive *bool, period *models.BudgetPeriod) (*pagination.PageResponse[models.Budget], error)
	GetBudgetByID(userID, budgetID string) (*models.Budget, error)
	UpdateBudget(userID, budgetID string, fields BudgetUpdateFields) (*models.Budget, error)
	DeleteBudget(userID, budgetID string) error
	GetBudgetProgress(userID, budgetID string) (*BudgetProgress, error)
}

// GoalUpdateFields holds optional goal changes. Nil fields are left untouched.
type GoalUpdateFields struct {
	Title         *string
	Description   *string
	TargetAmount  *decimal.Decimal
	CurrentAmount *decimal.Decimal
	TargetDate    *time.Time
	Priority      *models.GoalPriority
	Status        *models.GoalStatus
}

// CreateGoalInput holds the validated fields of a new goal.
type CreateGoalInput struct {
	Title        string
	Description  string
	TargetAmount decimal.Decimal
	TargetDate   *time.Time
	Priority     models.GoalPriority
}

// GoalServicer defines the contract for financial goal management.
type GoalServicer interface {
	CreateGoal(ctx context.Context, userID string, input CreateGoalInput, meta RequestMeta) (*models.FinancialGoal, error)
	GetUserGoals(ctx context.Context, userID string, page pagination.PageRequest, status *models.GoalStatus) (*pagination.PageResponse[models.FinancialGoal], error)
	GetGoalByID(ctx context.Context, userID, goalID string) (*models.FinancialGoal, error)
	UpdateGoal(ctx context.Context, userID, goalID string, fields GoalUpdateFields, meta RequestMeta) (*models.FinancialGoal, error)
	DeleteGoal(ctx context.Context, userID, goalID string) error
}

// SettingsServicer defines the contract for per-user preferences.
type SettingsServicer interface {
	GetSettings(ctx context.Context, userID string) (map[string]string, error)
	UpdateSettings(ctx context.Context, userID string, values map[string]string, meta RequestMeta) (map[string]string, error)
}

// BalanceMaintainer keeps an account's cached balance equal to the signed sum
// of its transactions. Every method runs inside the caller's unit of work.
type BalanceMaintainer interface {
	ApplyCreate(tx *gorm.DB, t *models.Transaction) error
	ApplyUpdate(tx *gorm.DB, before, after *models.Transaction) error
	ApplyDelete(tx *gorm.DB, t *models.Transaction) error
}

// BudgetTracker moves budget spent amounts for expenses recorded while a
// budget's window is current. Reversal undoes exactly what recording added.
type BudgetTracker interface {
	RecordExpense(tx *gorm.DB, t *models.Transaction, now time.Time, meta RequestMeta) (int64, error)
	ReverseExpense(tx *gorm.DB, t *models.Transaction) (int64, error)
	ReplaceExpense(tx *gorm.DB, before, after *models.Transaction, now time.Time, meta RequestMeta) (int64, error)
}

// GoalProgressUpdater moves goal progress in response to income.
type GoalProgressUpdater interface {
	RecordIncome(tx *gorm.DB, t *models.Transaction, meta RequestMeta) (int64, error)
	ReverseIncome(tx *gorm.DB, t *models.Transaction) (int64, error)
	ReplaceIncome(tx *gorm.DB, before, after *models.Transaction, meta RequestMeta) (int64, error)
}

// TransactionWorkflow runs each transaction mutation as one unit of work
// covering the row, the account balance, budgets, goals and the audit log.
type TransactionWorkflow interface {
	CreateTransaction(ctx context.Context, userID string, input CreateTransactionInput, meta RequestMeta) (*TransactionRecord, error)
	UpdateTransaction(ctx context.Context, userID, transactionID string, input UpdateTransactionInput, meta RequestMeta) (*TransactionRecord, error)
	DeleteTransaction(ctx context.Context, userID, transactionID string, meta RequestMeta) error
}

// RegistrationInput holds the fields of a new user. Password must already be hashed.
type RegistrationInput struct {
	FullName     string
	Email        string
	Mobile       string
	Username     string
	PasswordHash string
}

// RegistrationWorkflow creates a user together with the default seed data.
type RegistrationWorkflow interface {
	RegisterUser(ctx context.Context, input RegistrationInput, meta RequestMeta) (*models.User, error)
}

// InsightServicer produces read-only aggregates over a user's data.
type InsightServicer interface {
	GetBudgetAlerts(ctx context.Context, userID string) ([]BudgetAlert, error)
	GetInsights(ctx context.Context, userID string, periodDays int) (*Insights, error)
	GetDashboard(ctx context.Context, userID string) (*Dashboard, error)
	GetSpendingAnalytics(ctx context.Context, userID string, query AnalyticsQuery) (*SpendingAnalytics, error)
}

// ActivityEntry describes one audited event.
type ActivityEntry struct {
	UserID     string
	Action     string
	EntityType string
	EntityID   string
	Details    map[string]any
	Meta       RequestMeta
}

// ActivityLogger is the single audit-log interface. Record joins the caller's
// unit of work and fails it on error; Log is best-effort and never fails the caller.
type ActivityLogger interface {
	Record(tx *gorm.DB, entry ActivityEntry) error
	Log(ctx context.Context, entry ActivityEntry)
	History(ctx context.Context, userID string, page pagination.PageRequest) (*pagination.PageResponse[ActivityRecord], error)
	Summary(ctx context.Context, days int) ([]ActionSummary, error)
	ActiveUsers(ctx context.Context) (*ActiveUserCounts, error)
	Purge(ctx context.Context, olderThanDays int) (int64, error)
}
