package handlers

import (
	"context"
	"net/http"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"

	"stashsmart/internal/services"
)

func setupWorkflowRouter(handler *WorkflowHandler) *gin.Engine {
	r := gin.New()
	auth := r.Group("", injectUserID(testUserID))
	auth.GET("/workflows/alerts", handler.GetBudgetAlerts)
	auth.GET("/workflows/insights", handler.GetInsights)
	auth.GET("/workflows/dashboard", handler.GetDashboard)
	return r
}

func TestWorkflowHandler_GetBudgetAlerts(t *testing.T) {
	spent := decimal.NewFromInt(95)
	limit := decimal.NewFromInt(100)
	insights := &mockInsightService{
		getBudgetAlertsFn: func(context.Context, string) ([]services.BudgetAlert, error) {
			return []services.BudgetAlert{{
				Type:       "warning",
				Category:   "Food & Dining",
				Percentage: 95,
				Spent:      &spent,
				Budget:     &limit,
				Message:    "You've used 95.0% of your Food & Dining budget",
			}}, nil
		},
	}
	r := setupWorkflowRouter(NewWorkflowHandler(insights))

	rec := doRequest(r, "GET", "/workflows/alerts", "")

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	alerts := parseJSON(t, rec)["alerts"].([]interface{})
	if len(alerts) != 1 {
		t.Fatalf("expected 1 alert, got %d", len(alerts))
	}
	alert := alerts[0].(map[string]interface{})
	if alert["spent"] != "95" {
		t.Errorf("expected spent as decimal string, got %v", alert["spent"])
	}
}

func TestWorkflowHandler_GetInsights(t *testing.T) {
	tests := []struct {
		name       string
		query      string
		wantStatus int
		wantPeriod int
	}{
		{"defaults to thirty days", "", http.StatusOK, services.DefaultInsightPeriodDays},
		{"honours the period", "?period=90", http.StatusOK, 90},
		{"rejects zero-length windows", "?period=-5", http.StatusBadRequest, 0},
		{"rejects windows over a year", "?period=400", http.StatusBadRequest, 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var period int
			insights := &mockInsightService{
				getInsightsFn: func(_ context.Context, _ string, days int) (*services.Insights, error) {
					period = days
					return &services.Insights{PeriodDays: days}, nil
				},
			}
			r := setupWorkflowRouter(NewWorkflowHandler(insights))

			rec := doRequest(r, "GET", "/workflows/insights"+tt.query, "")

			if rec.Code != tt.wantStatus {
				t.Fatalf("expected %d, got %d", tt.wantStatus, rec.Code)
			}
			if period != tt.wantPeriod {
				t.Errorf("expected period %d, got %d", tt.wantPeriod, period)
			}
		})
	}
}

func TestWorkflowHandler_GetDashboard(t *testing.T) {
	t.Run("returns the dashboard", func(t *testing.T) {
		r := setupWorkflowRouter(NewWorkflowHandler(&mockInsightService{}))

		rec := doRequest(r, "GET", "/workflows/dashboard", "")

		if rec.Code != http.StatusOK {
			t.Fatalf("expected 200, got %d", rec.Code)
		}
		if _, ok := parseJSON(t, rec)["dashboard"]; !ok {
			t.Error("expected dashboard key")
		}
	})

	t.Run("returns 401 without a user", func(t *testing.T) {
		r := gin.New()
		h := NewWorkflowHandler(&mockInsightService{})
		r.GET("/workflows/dashboard", h.GetDashboard)

		rec := doRequest(r, "GET", "/workflows/dashboard", "")

		if rec.Code != http.StatusUnauthorized {
			t.Fatalf("expected 401, got %d", rec.Code)
		}
	})
}
