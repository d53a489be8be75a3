package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	apperrors "stashsmart/internal/errors"
	"stashsmart/internal/services"
)

// SettingsHandler handles per-user preference requests.
type SettingsHandler struct {
	settingsService services.SettingsServicer
}

// NewSettingsHandler creates a new SettingsHandler.
func NewSettingsHandler(settingsService services.SettingsServicer) *SettingsHandler {
	return &SettingsHandler{settingsService: settingsService}
}

// UpdateSettingsRequest lists the writable settings. Omitted keys are unchanged.
type UpdateSettingsRequest struct {
	Currency             *string `json:"currency" binding:"omitempty,iso4217"`
	DateFormat           *string `json:"date_format" binding:"omitempty,oneof=Y-m-d d/m/Y m/d/Y"`
	NotificationsEnabled *string `json:"notifications_enabled" binding:"omitempty,oneof=0 1"`
	BudgetAlerts         *string `json:"budget_alerts" binding:"omitempty,oneof=0 1"`
	Theme                *string `json:"theme" binding:"omitempty,oneof=light dark"`
}

func (r UpdateSettingsRequest) values() map[string]string {
	values := map[string]string{}
	set := func(key string, v *string) {
		if v != nil {
			values[key] = *v
		}
	}
	set("currency", r.Currency)
	set("date_format", r.DateFormat)
	set("notifications_enabled", r.NotificationsEnabled)
	set("budget_alerts", r.BudgetAlerts)
	set("theme", r.Theme)
	return values
}

// GetSettings returns the user's settings as a key/value map.
// @Summary     Get settings
// @Tags        settings
// @Produce     json
// @Security    BearerAuth
// @Success     200 {object} map[string]string "Settings"
// @Failure     401 {object} ErrorResponse "Unauthorized"
// @Router      /settings [get]
func (h *SettingsHandler) GetSettings(c *gin.Context) {
	userID, err := getUserID(c)
	if err != nil {
		respondWithError(c, err)
		return
	}

	settings, err := h.settingsService.GetSettings(c.Request.Context(), userID)
	if err != nil {
		respondWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"settings": settings})
}

// UpdateSettings upserts the given settings.
// @Summary     Update settings
// @Tags        settings
// @Accept      json
// @Produce     json
// @Security    BearerAuth
// @Param       request body UpdateSettingsRequest true "Settings to change"
// @Success     200 {object} map[string]string "Settings after the update"
// @Failure     400 {object} ErrorResponse "Invalid input"
// @Failure     401 {object} ErrorResponse "Unauthorized"
// @Router      /settings [put]
func (h *SettingsHandler) UpdateSettings(c *gin.Context) {
	userID, err := getUserID(c)
	if err != nil {
		respondWithError(c, err)
		return
	}

	var req UpdateSettingsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondWithError(c, apperrors.WithMessage(apperrors.ErrInvalidInput, err.Error()))
		return
	}

	settings, err := h.settingsService.UpdateSettings(c.Request.Context(), userID, req.values(), requestMeta(c))
	if err != nil {
		respondWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"settings": settings})
}
