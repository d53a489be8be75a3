package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	apperrors "stashsmart/internal/errors"
	"stashsmart/internal/pagination"
	"stashsmart/internal/services"
)

const defaultSummaryDays = 30

// ActivityHandler serves the audit log.
type ActivityHandler struct {
	activity services.ActivityLogger
}

// NewActivityHandler creates a new ActivityHandler.
func NewActivityHandler(activity services.ActivityLogger) *ActivityHandler {
	return &ActivityHandler{activity: activity}
}

// SummaryQuery selects the window of the activity summary.
type SummaryQuery struct {
	Days int `form:"days" binding:"omitempty,min=1,max=365"`
}

// GetHistory returns the caller's own activity, newest first.
// @Summary     Activity history
// @Tags        activity
// @Produce     json
// @Security    BearerAuth
// @Param       page      query int false "Page number (default 1)"
// @Param       page_size query int false "Items per page (default 20, max 100)"
// @Success     200 {object} pagination.PageResponse[services.ActivityRecord] "Paginated activity"
// @Failure     401 {object} ErrorResponse "Unauthorized"
// @Router      /activity [get]
func (h *ActivityHandler) GetHistory(c *gin.Context) {
	userID, err := getUserID(c)
	if err != nil {
		respondWithError(c, err)
		return
	}

	var page pagination.PageRequest
	if err := c.ShouldBindQuery(&page); err != nil {
		respondWithError(c, apperrors.WithMessage(apperrors.ErrInvalidInput, err.Error()))
		return
	}

	result, err := h.activity.History(c.Request.Context(), userID, page)
	if err != nil {
		respondWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, result)
}

// GetSummary counts activity by action across all users.
// @Summary     Activity summary
// @Tags        activity
// @Produce     json
// @Security    BearerAuth
// @Param       X-Admin-Key header string true  "Admin key"
// @Param       days        query  int    false "Days to look back (default 30)"
// @Success     200 {array}  services.ActionSummary "Counts by action"
// @Failure     403 {object} ErrorResponse "Missing admin key"
// @Router      /activity/summary [get]
func (h *ActivityHandler) GetSummary(c *gin.Context) {
	var query SummaryQuery
	if err := c.ShouldBindQuery(&query); err != nil {
		respondWithError(c, apperrors.WithMessage(apperrors.ErrInvalidInput, err.Error()))
		return
	}
	if query.Days == 0 {
		query.Days = defaultSummaryDays
	}

	summary, err := h.activity.Summary(c.Request.Context(), query.Days)
	if err != nil {
		respondWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"days": query.Days, "summary": summary})
}

// GetActiveUsers counts distinct active users over trailing windows.
// @Summary     Active users
// @Tags        activity
// @Produce     json
// @Security    BearerAuth
// @Param       X-Admin-Key header string true "Admin key"
// @Success     200 {object} services.ActiveUserCounts "Active users"
// @Failure     403 {object} ErrorResponse "Missing admin key"
// @Router      /activity/active-users [get]
func (h *ActivityHandler) GetActiveUsers(c *gin.Context) {
	counts, err := h.activity.ActiveUsers(c.Request.Context())
	if err != nil {
		respondWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"active_users": counts})
}
