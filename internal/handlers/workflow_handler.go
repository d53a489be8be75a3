package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	apperrors "stashsmart/internal/errors"
	"stashsmart/internal/services"
)

// WorkflowHandler serves the read-only alert, insight and dashboard views.
type WorkflowHandler struct {
	insights services.InsightServicer
}

// NewWorkflowHandler creates a new WorkflowHandler.
func NewWorkflowHandler(insights services.InsightServicer) *WorkflowHandler {
	return &WorkflowHandler{insights: insights}
}

// InsightsQuery selects the trailing window of the insights report.
type InsightsQuery struct {
	Period int `form:"period" binding:"omitempty,min=1,max=366"`
}

// GetBudgetAlerts lists budgets at or above the warning threshold.
// @Summary     Budget alerts
// @Tags        workflows
// @Produce     json
// @Security    BearerAuth
// @Success     200 {array}  services.BudgetAlert "Alerts"
// @Failure     401 {object} ErrorResponse "Unauthorized"
// @Router      /workflows/alerts [get]
func (h *WorkflowHandler) GetBudgetAlerts(c *gin.Context) {
	userID, err := getUserID(c)
	if err != nil {
		respondWithError(c, err)
		return
	}

	alerts, err := h.insights.GetBudgetAlerts(c.Request.Context(), userID)
	if err != nil {
		respondWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"alerts": alerts})
}

// GetInsights reports totals, category spending, trends, goals, budget
// performance and recommendations over the last period days.
// @Summary     Financial insights
// @Tags        workflows
// @Produce     json
// @Security    BearerAuth
// @Param       period query int false "Days to look back (default 30)"
// @Success     200 {object} services.Insights "Insights"
// @Failure     400 {object} ErrorResponse "Invalid period"
// @Failure     401 {object} ErrorResponse "Unauthorized"
// @Router      /workflows/insights [get]
func (h *WorkflowHandler) GetInsights(c *gin.Context) {
	userID, err := getUserID(c)
	if err != nil {
		respondWithError(c, err)
		return
	}

	var query InsightsQuery
	if err := c.ShouldBindQuery(&query); err != nil {
		respondWithError(c, apperrors.WithMessage(apperrors.ErrInvalidInput, err.Error()))
		return
	}
	if query.Period == 0 {
		query.Period = services.DefaultInsightPeriodDays
	}

	insights, err := h.insights.GetInsights(c.Request.Context(), userID, query.Period)
	if err != nil {
		respondWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"insights": insights})
}

// GetDashboard returns accounts, recent transactions, the current month and active goals.
// @Summary     Dashboard
// @Tags        workflows
// @Produce     json
// @Security    BearerAuth
// @Success     200 {object} services.Dashboard "Dashboard"
// @Failure     401 {object} ErrorResponse "Unauthorized"
// @Router      /workflows/dashboard [get]
func (h *WorkflowHandler) GetDashboard(c *gin.Context) {
	userID, err := getUserID(c)
	if err != nil {
		respondWithError(c, err)
		return
	}

	dashboard, err := h.insights.GetDashboard(c.Request.Context(), userID)
	if err != nil {
		respondWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"dashboard": dashboard})
}
