// Package server assembles the HTTP router and the background jobs that run
// beside it.
package server

import (
	"net/http"

	"github.com/gin-gonic/gin"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
	"gorm.io/gorm"

	"stashsmart/internal/handlers"
	"stashsmart/internal/middleware"
	"stashsmart/internal/services"
)

// Options controls router-level behaviour that does not belong to a service.
type Options struct {
	CORSAllowedOrigins []string
	AdminAPIKey        string
	EnableSwagger      bool
}

// Services bundles every service the HTTP layer depends on.
type Services struct {
	Users        services.UserServicer
	Registration services.RegistrationWorkflow
	Accounts     services.AccountServicer
	Categories   services.CategoryServicer
	Transactions services.TransactionServicer
	Workflow     services.TransactionWorkflow
	Budgets      services.BudgetServicer
	Goals        services.GoalServicer
	Settings     services.SettingsServicer
	Insights     services.InsightServicer
	Activity     services.ActivityLogger
	Health       handlers.Pinger
}

// NewServices wires the production service graph on top of db.
func NewServices(db *gorm.DB, health handlers.Pinger, opts services.WorkflowOptions) Services {
	activity := services.NewActivityService(db)
	balances := services.NewBalanceMaintainer()
	transactions := services.NewTransactionService(db, balances)

	workflow := services.NewTransactionWorkflow(
		db,
		transactions,
		balances,
		services.NewBudgetTracker(activity),
		services.NewGoalProgressUpdater(activity),
		activity,
		opts,
	)

	return Services{
		Users:        services.NewUserService(db, activity),
		Registration: services.NewRegistrationWorkflow(db, activity),
		Accounts:     services.NewAccountService(db, balances),
		Categories:   services.NewCategoryService(db),
		Transactions: transactions,
		Workflow:     workflow,
		Budgets:      services.NewBudgetService(db),
		Goals:        services.NewGoalService(db, activity),
		Settings:     services.NewSettingsService(db, activity),
		Insights:     services.NewInsightService(db),
		Activity:     activity,
		Health:       health,
	}
}

// NewRouter builds the gin engine with middleware and every route mounted.
func NewRouter(svc Services, opts Options) *gin.Engine {
	authHandler := handlers.NewAuthHandler(svc.Users, svc.Registration)
	accountHandler := handlers.NewAccountHandler(svc.Accounts, svc.Activity)
	categoryHandler := handlers.NewCategoryHandler(svc.Categories)
	transactionHandler := handlers.NewTransactionHandler(svc.Transactions, svc.Workflow, svc.Insights)
	budgetHandler := handlers.NewBudgetHandler(svc.Budgets, svc.Activity)
	goalHandler := handlers.NewGoalHandler(svc.Goals)
	settingsHandler := handlers.NewSettingsHandler(svc.Settings)
	workflowHandler := handlers.NewWorkflowHandler(svc.Insights)
	activityHandler := handlers.NewActivityHandler(svc.Activity)

	router := gin.New()
	router.Use(middleware.RequestLogging())
	router.Use(middleware.ErrorHandler())
	router.Use(middleware.CORS(opts.CORSAllowedOrigins))

	if opts.EnableSwagger {
		router.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))
	}

	if svc.Health != nil {
		router.GET("/api/health", handlers.NewHealthHandler(svc.Health).Health)
	}

	v1 := router.Group("/api/v1")

	// Public routes
	auth := v1.Group("/auth")
	auth.POST("/register", authHandler.Register)
	auth.POST("/login", authHandler.Login)

	// Protected routes
	protected := v1.Group("/")
	protected.Use(middleware.AuthMiddleware())

	protected.POST("/auth/logout", authHandler.Logout)
	protected.GET("/profile", authHandler.GetProfile)
	protected.PUT("/profile", authHandler.UpdateProfile)
	protected.POST("/profile/password", authHandler.ChangePassword)

	accounts := protected.Group("/accounts")
	accounts.POST("", accountHandler.CreateAccount)
	accounts.GET("", accountHandler.GetUserAccounts)
	accounts.GET("/:id", accountHandler.GetAccountByID)
	accounts.PUT("/:id", accountHandler.UpdateAccount)
	accounts.GET("/:id/reconcile", accountHandler.CheckBalance)
	accounts.POST("/:id/reconcile", accountHandler.Reconcile)

	categories := protected.Group("/categories")
	categories.POST("", categoryHandler.CreateCategory)
	categories.GET("", categoryHandler.GetUserCategories)
	categories.GET("/:id", categoryHandler.GetCategoryByID)
	categories.PUT("/:id", categoryHandler.UpdateCategory)
	categories.DELETE("/:id", categoryHandler.DeleteCategory)

	transactions := protected.Group("/transactions")
	transactions.POST("", transactionHandler.CreateTransaction)
	transactions.GET("", transactionHandler.GetUserTransactions)
	transactions.GET("/analytics", transactionHandler.GetSpendingAnalytics)
	transactions.GET("/:id", transactionHandler.GetTransactionByID)
	transactions.PUT("/:id", transactionHandler.UpdateTransaction)
	transactions.DELETE("/:id", transactionHandler.DeleteTransaction)

	budgets := protected.Group("/budgets")
	budgets.POST("", budgetHandler.CreateBudget)
	budgets.GET("", budgetHandler.GetUserBudgets)
	budgets.GET("/:id", budgetHandler.GetBudgetByID)
	budgets.PUT("/:id", budgetHandler.UpdateBudget)
	budgets.DELETE("/:id", budgetHandler.DeleteBudget)
	budgets.GET("/:id/progress", budgetHandler.GetBudgetProgress)

	goals := protected.Group("/goals")
	goals.POST("", goalHandler.CreateGoal)
	goals.GET("", goalHandler.GetUserGoals)
	goals.GET("/:id", goalHandler.GetGoalByID)
	goals.PUT("/:id", goalHandler.UpdateGoal)
	goals.DELETE("/:id", goalHandler.DeleteGoal)

	protected.GET("/settings", settingsHandler.GetSettings)
	protected.PUT("/settings", settingsHandler.UpdateSettings)

	workflows := protected.Group("/workflows")
	workflows.GET("/alerts", workflowHandler.GetBudgetAlerts)
	workflows.GET("/insights", workflowHandler.GetInsights)
	workflows.GET("/dashboard", workflowHandler.GetDashboard)

	activity := protected.Group("/activity")
	activity.GET("", activityHandler.GetHistory)

	admin := activity.Group("", middleware.AdminKeyMiddleware(opts.AdminAPIKey))
	admin.GET("/summary", activityHandler.GetSummary)
	admin.GET("/active-users", activityHandler.GetActiveUsers)

	router.NoRoute(func(c *gin.Context) {
		c.JSON(http.StatusNotFound, gin.H{"error": gin.H{"code": "NOT_FOUND", "message": "Route not found"}})
	})

	return router
}
