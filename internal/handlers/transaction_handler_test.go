package handlers

import (
	"context"
	"net/http"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	apperrors "stashsmart/internal/errors"
	"stashsmart/internal/models"
	"stashsmart/internal/pagination"
	"stashsmart/internal/services"
)

const testTransactionID = "0192f0c8-0000-7000-8000-0000000000e1"

// --- mock transaction service ---

type mockTransactionService struct {
	getTransactionByIDFn  func(userID, transactionID string) (*services.TransactionRecord, error)
	getUserTransactionsFn func(userID string, page pagination.PageRequest, filter services.TransactionFilter) (*pagination.PageResponse[services.TransactionRecord], error)
}

func (m *mockTransactionService) CreateWithDB(_ *gorm.DB, _ string, _ services.CreateTransactionInput) (*models.Transaction, error) {
	return &models.Transaction{}, nil
}

func (m *mockTransactionService) GetRecordWithDB(_ *gorm.DB, _, _ string) (*services.TransactionRecord, error) {
	return &services.TransactionRecord{}, nil
}

func (m *mockTransactionService) GetTransactionByID(userID, transactionID string) (*services.TransactionRecord, error) {
	if m.getTransactionByIDFn != nil {
		return m.getTransactionByIDFn(userID, transactionID)
	}
	return &services.TransactionRecord{}, nil
}

func (m *mockTransactionService) GetUserTransactions(userID string, page pagination.PageRequest, filter services.TransactionFilter) (*pagination.PageResponse[services.TransactionRecord], error) {
	if m.getUserTransactionsFn != nil {
		return m.getUserTransactionsFn(userID, page, filter)
	}
	resp := pagination.NewPageResponse([]services.TransactionRecord{}, 1, 20, 0)
	return &resp, nil
}

var _ services.TransactionServicer = (*mockTransactionService)(nil)

// --- mock transaction workflow ---

type mockWorkflow struct {
	createFn func(ctx context.Context, userID string, input services.CreateTransactionInput, meta services.RequestMeta) (*services.TransactionRecord, error)
	updateFn func(ctx context.Context, userID, transactionID string, input services.UpdateTransactionInput, meta services.RequestMeta) (*services.TransactionRecord, error)
	deleteFn func(ctx context.Context, userID, transactionID string, meta services.RequestMeta) error
}

func (m *mockWorkflow) CreateTransaction(ctx context.Context, userID string, input services.CreateTransactionInput, meta services.RequestMeta) (*services.TransactionRecord, error) {
	if m.createFn != nil {
		return m.createFn(ctx, userID, input, meta)
	}
	return &services.TransactionRecord{}, nil
}

func (m *mockWorkflow) UpdateTransaction(ctx context.Context, userID, transactionID string, input services.UpdateTransactionInput, meta services.RequestMeta) (*services.TransactionRecord, error) {
	if m.updateFn != nil {
		return m.updateFn(ctx, userID, transactionID, input, meta)
	}
	return &services.TransactionRecord{}, nil
}

func (m *mockWorkflow) DeleteTransaction(ctx context.Context, userID, transactionID string, meta services.RequestMeta) error {
	if m.deleteFn != nil {
		return m.deleteFn(ctx, userID, transactionID, meta)
	}
	return nil
}

var _ services.TransactionWorkflow = (*mockWorkflow)(nil)

// --- mock insight service ---

type mockInsightService struct {
	getBudgetAlertsFn      func(ctx context.Context, userID string) ([]services.BudgetAlert, error)
	getInsightsFn          func(ctx context.Context, userID string, periodDays int) (*services.Insights, error)
	getDashboardFn         func(ctx context.Context, userID string) (*services.Dashboard, error)
	getSpendingAnalyticsFn func(ctx context.Context, userID string, query services.AnalyticsQuery) (*services.SpendingAnalytics, error)
}

func (m *mockInsightService) GetBudgetAlerts(ctx context.Context, userID string) ([]services.BudgetAlert, error) {
	if m.getBudgetAlertsFn != nil {
		return m.getBudgetAlertsFn(ctx, userID)
	}
	return []services.BudgetAlert{}, nil
}

func (m *mockInsightService) GetInsights(ctx context.Context, userID string, periodDays int) (*services.Insights, error) {
	if m.getInsightsFn != nil {
		return m.getInsightsFn(ctx, userID, periodDays)
	}
	return &services.Insights{}, nil
}

func (m *mockInsightService) GetDashboard(ctx context.Context, userID string) (*services.Dashboard, error) {
	if m.getDashboardFn != nil {
		return m.getDashboardFn(ctx, userID)
	}
	return &services.Dashboard{}, nil
}

func (m *mockInsightService) GetSpendingAnalytics(ctx context.Context, userID string, query services.AnalyticsQuery) (*services.SpendingAnalytics, error) {
	if m.getSpendingAnalyticsFn != nil {
		return m.getSpendingAnalyticsFn(ctx, userID, query)
	}
	return &services.SpendingAnalytics{}, nil
}

var _ services.InsightServicer = (*mockInsightService)(nil)

func setupTransactionRouter(handler *TransactionHandler) *gin.Engine {
	r := gin.New()
	auth := r.Group("", injectUserID(testUserID))
	auth.POST("/transactions", handler.CreateTransaction)
	auth.GET("/transactions", handler.GetUserTransactions)
	auth.GET("/transactions/analytics", handler.GetSpendingAnalytics)
	auth.GET("/transactions/:id", handler.GetTransactionByID)
	auth.PUT("/transactions/:id", handler.UpdateTransaction)
	auth.DELETE("/transactions/:id", handler.DeleteTransaction)
	return r
}

const validTransactionBody = `{"account_id":"` + testAccountID + `","category_id":"` + testCategoryID +
	`","type":"expense","amount":"42.10","description":"Groceries","transaction_date":"2026-03-14","tags":["food"]}`

func TestTransactionHandler_CreateTransaction(t *testing.T) {
	t.Run("returns 201 and passes a typed input to the workflow", func(t *testing.T) {
		var got services.CreateTransactionInput
		var meta services.RequestMeta
		workflow := &mockWorkflow{
			createFn: func(_ context.Context, _ string, input services.CreateTransactionInput, m services.RequestMeta) (*services.TransactionRecord, error) {
				got = input
				meta = m
				record := &services.TransactionRecord{CategoryName: "Food & Dining"}
				record.ID = testTransactionID
				return record, nil
			},
		}
		r := setupTransactionRouter(NewTransactionHandler(&mockTransactionService{}, workflow, &mockInsightService{}))

		rec := doRequest(r, "POST", "/transactions", validTransactionBody)

		if rec.Code != http.StatusCreated {
			t.Fatalf("expected 201, got %d: %s", rec.Code, rec.Body.String())
		}
		if got.Amount.String() != "42.1" {
			t.Errorf("expected amount 42.1, got %s", got.Amount)
		}
		if got.Type != models.TransactionTypeExpense {
			t.Errorf("expected expense, got %s", got.Type)
		}
		if !got.TransactionDate.Equal(time.Date(2026, 3, 14, 0, 0, 0, 0, time.UTC)) {
			t.Errorf("unexpected transaction date %s", got.TransactionDate)
		}
		if got.PaymentMethod != models.PaymentMethodCash {
			t.Errorf("expected payment method to default to cash, got %s", got.PaymentMethod)
		}
		if meta.IPAddress == "" {
			t.Error("expected request meta to carry the client IP")
		}
		record := parseJSON(t, rec)["transaction"].(map[string]interface{})
		if record["category_name"] != "Food & Dining" {
			t.Errorf("expected display fields, got %v", record)
		}
	})

	invalid := []struct {
		name string
		body string
	}{
		{"zero amount", `{"account_id":"` + testAccountID + `","category_id":"` + testCategoryID + `","type":"expense","amount":0}`},
		{"negative amount", `{"account_id":"` + testAccountID + `","category_id":"` + testCategoryID + `","type":"expense","amount":-3}`},
		{"unknown type", `{"account_id":"` + testAccountID + `","category_id":"` + testCategoryID + `","type":"refund","amount":3}`},
		{"missing account", `{"category_id":"` + testCategoryID + `","type":"income","amount":3}`},
		{"bad date", `{"account_id":"` + testAccountID + `","category_id":"` + testCategoryID + `","type":"income","amount":3,"transaction_date":"14/03/2026"}`},
	}
	for _, tt := range invalid {
		t.Run("returns 400 on "+tt.name, func(t *testing.T) {
			called := false
			workflow := &mockWorkflow{
				createFn: func(context.Context, string, services.CreateTransactionInput, services.RequestMeta) (*services.TransactionRecord, error) {
					called = true
					return &services.TransactionRecord{}, nil
				},
			}
			r := setupTransactionRouter(NewTransactionHandler(&mockTransactionService{}, workflow, &mockInsightService{}))

			rec := doRequest(r, "POST", "/transactions", tt.body)

			if rec.Code != http.StatusBadRequest {
				t.Fatalf("expected 400, got %d: %s", rec.Code, rec.Body.String())
			}
			assertErrorCode(t, parseJSON(t, rec), "INVALID_INPUT")
			if called {
				t.Error("workflow must not run for invalid input")
			}
		})
	}

	t.Run("returns 403 on ownership violation", func(t *testing.T) {
		workflow := &mockWorkflow{
			createFn: func(context.Context, string, services.CreateTransactionInput, services.RequestMeta) (*services.TransactionRecord, error) {
				return nil, apperrors.ErrOwnershipViolation
			},
		}
		r := setupTransactionRouter(NewTransactionHandler(&mockTransactionService{}, workflow, &mockInsightService{}))

		rec := doRequest(r, "POST", "/transactions", validTransactionBody)

		if rec.Code != http.StatusForbidden {
			t.Fatalf("expected 403, got %d", rec.Code)
		}
		assertErrorCode(t, parseJSON(t, rec), "OWNERSHIP_VIOLATION")
	})
}

func TestTransactionHandler_GetUserTransactions(t *testing.T) {
	t.Run("builds the filter from query parameters", func(t *testing.T) {
		var filter services.TransactionFilter
		txnSvc := &mockTransactionService{
			getUserTransactionsFn: func(_ string, _ pagination.PageRequest, f services.TransactionFilter) (*pagination.PageResponse[services.TransactionRecord], error) {
				filter = f
				resp := pagination.NewPageResponse([]services.TransactionRecord{}, 1, 20, 0)
				return &resp, nil
			},
		}
		r := setupTransactionRouter(NewTransactionHandler(txnSvc, &mockWorkflow{}, &mockInsightService{}))

		rec := doRequest(r, "GET", "/transactions?type=income&account_id="+testAccountID+"&from_date=2026-01-01&to_date=2026-01-31&search=rent", "")

		if rec.Code != http.StatusOK {
			t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
		}
		if filter.Type == nil || *filter.Type != models.TransactionTypeIncome {
			t.Errorf("expected income filter, got %v", filter.Type)
		}
		if filter.AccountID == nil || *filter.AccountID != testAccountID {
			t.Errorf("expected account filter, got %v", filter.AccountID)
		}
		if filter.CategoryID != nil {
			t.Errorf("expected no category filter, got %v", *filter.CategoryID)
		}
		if filter.FromDate == nil || !filter.FromDate.Equal(time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)) {
			t.Errorf("unexpected from date %v", filter.FromDate)
		}
		if filter.ToDate == nil || filter.ToDate.Day() != 31 || filter.ToDate.Hour() != 23 {
			t.Errorf("expected to_date to cover the whole day, got %v", filter.ToDate)
		}
		if filter.Search != "rent" {
			t.Errorf("expected search rent, got %q", filter.Search)
		}
	})

	t.Run("returns 400 on invalid type", func(t *testing.T) {
		r := setupTransactionRouter(NewTransactionHandler(&mockTransactionService{}, &mockWorkflow{}, &mockInsightService{}))

		rec := doRequest(r, "GET", "/transactions?type=refund", "")

		if rec.Code != http.StatusBadRequest {
			t.Fatalf("expected 400, got %d", rec.Code)
		}
	})
}

func TestTransactionHandler_GetTransactionByID(t *testing.T) {
	txnSvc := &mockTransactionService{
		getTransactionByIDFn: func(string, string) (*services.TransactionRecord, error) {
			return nil, apperrors.ErrTransactionNotFound
		},
	}
	r := setupTransactionRouter(NewTransactionHandler(txnSvc, &mockWorkflow{}, &mockInsightService{}))

	rec := doRequest(r, "GET", "/transactions/"+testTransactionID, "")

	if rec.Code != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", rec.Code)
	}
	assertErrorCode(t, parseJSON(t, rec), "TRANSACTION_NOT_FOUND")
}

func TestTransactionHandler_UpdateTransaction(t *testing.T) {
	var gotID string
	workflow := &mockWorkflow{
		updateFn: func(_ context.Context, _, transactionID string, _ services.UpdateTransactionInput, _ services.RequestMeta) (*services.TransactionRecord, error) {
			gotID = transactionID
			return &services.TransactionRecord{}, nil
		},
	}
	r := setupTransactionRouter(NewTransactionHandler(&mockTransactionService{}, workflow, &mockInsightService{}))

	rec := doRequest(r, "PUT", "/transactions/"+testTransactionID, validTransactionBody)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}
	if gotID != testTransactionID {
		t.Errorf("expected id %s, got %s", testTransactionID, gotID)
	}
}

func TestTransactionHandler_DeleteTransaction(t *testing.T) {
	t.Run("returns 204 on success", func(t *testing.T) {
		r := setupTransactionRouter(NewTransactionHandler(&mockTransactionService{}, &mockWorkflow{}, &mockInsightService{}))

		rec := doRequest(r, "DELETE", "/transactions/"+testTransactionID, "")

		if rec.Code != http.StatusNoContent {
			t.Fatalf("expected 204, got %d", rec.Code)
		}
	})

	t.Run("returns 500 without internals when the unit of work fails", func(t *testing.T) {
		workflow := &mockWorkflow{
			deleteFn: func(context.Context, string, string, services.RequestMeta) error {
				return apperrors.Wrap(apperrors.ErrInternalServer, context.DeadlineExceeded)
			},
		}
		r := setupTransactionRouter(NewTransactionHandler(&mockTransactionService{}, workflow, &mockInsightService{}))

		rec := doRequest(r, "DELETE", "/transactions/"+testTransactionID, "")

		if rec.Code != http.StatusInternalServerError {
			t.Fatalf("expected 500, got %d", rec.Code)
		}
		errObj := parseJSON(t, rec)["error"].(map[string]interface{})
		if errObj["message"] != apperrors.ErrInternalServer.Message {
			t.Errorf("expected generic message, got %v", errObj["message"])
		}
	})
}

func TestTransactionHandler_GetSpendingAnalytics(t *testing.T) {
	t.Run("forwards a custom range", func(t *testing.T) {
		var query services.AnalyticsQuery
		insights := &mockInsightService{
			getSpendingAnalyticsFn: func(_ context.Context, _ string, q services.AnalyticsQuery) (*services.SpendingAnalytics, error) {
				query = q
				return &services.SpendingAnalytics{}, nil
			},
		}
		r := setupTransactionRouter(NewTransactionHandler(&mockTransactionService{}, &mockWorkflow{}, insights))

		rec := doRequest(r, "GET", "/transactions/analytics?period=custom&from_date=2026-02-01&to_date=2026-02-28", "")

		if rec.Code != http.StatusOK {
			t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
		}
		if query.Period != services.AnalyticsCustom {
			t.Errorf("expected custom period, got %s", query.Period)
		}
		if query.From == nil || query.To == nil {
			t.Fatal("expected both range ends")
		}
	})

	t.Run("returns 400 on unknown period", func(t *testing.T) {
		r := setupTransactionRouter(NewTransactionHandler(&mockTransactionService{}, &mockWorkflow{}, &mockInsightService{}))

		rec := doRequest(r, "GET", "/transactions/analytics?period=decade", "")

		if rec.Code != http.StatusBadRequest {
			t.Fatalf("expected 400, got %d", rec.Code)
		}
	})
}
