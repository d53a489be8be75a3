package services

import (
	"context"
	"encoding/json"
	"strings"
	"time"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
	"gorm.io/gorm"

	apperrors "stashsmart/internal/errors"
	"stashsmart/internal/logger"
	"stashsmart/internal/models"
	"stashsmart/internal/pagination"
)

// ActivityRecord is an activity log entry prepared for display.
type ActivityRecord struct {
	ID          string         `json:"id"`
	Action      string         `json:"action"`
	ActionLabel string         `json:"action_label"`
	EntityType  string         `json:"entity_type,omitempty"`
	EntityID    string         `json:"entity_id,omitempty"`
	Details     map[string]any `json:"details,omitempty"`
	IPAddress   string         `json:"ip_address,omitempty"`
	UserAgent   string         `json:"user_agent,omitempty"`
	CreatedAt   time.Time      `json:"created_at"`
}

// ActionSummary counts occurrences of one action over a window.
type ActionSummary struct {
	Action      string `json:"action"`
	Label       string `json:"label"`
	Count       int64  `json:"count"`
	UniqueUsers int64  `json:"unique_users"`
}

// ActiveUserCounts holds distinct active users over trailing windows.
type ActiveUserCounts struct {
	LastHour    int64 `json:"last_hour"`
	Last24Hours int64 `json:"last_24_hours"`
	Last7Days   int64 `json:"last_7_days"`
	Last30Days  int64 `json:"last_30_days"`
}

var actionLabels = map[string]string{
	models.ActionUserRegistered:       "User registered",
	models.ActionUserLoginSuccess:     "User logged in successfully",
	models.ActionUserLoginFailed:      "Failed login attempt",
	models.ActionUserLogout:           "User logged out",
	models.ActionTransactionCreated:   "Transaction created",
	models.ActionTransactionUpdated:   "Transaction updated",
	models.ActionTransactionDeleted:   "Transaction deleted",
	models.ActionBudgetAlertTriggered: "Budget alert triggered",
	models.ActionGoalCreated:          "Financial goal created",
	models.ActionGoalAchieved:         "Financial goal achieved",
	models.ActionSettingsChanged:      "Settings changed",
}

var labelCaser = cases.Title(language.English)

// ActionLabel returns the display label for an action. Unknown actions have
// underscores replaced and the first word capitalised.
func ActionLabel(action string) string {
	if label, ok := actionLabels[action]; ok {
		return label
	}
	words := strings.SplitN(strings.ReplaceAll(action, "_", " "), " ", 2)
	words[0] = labelCaser.String(words[0])
	return strings.Join(words, " ")
}

// activityService writes and reads the append-only activity log.
type activityService struct {
	db *gorm.DB
}

// NewActivityService creates a new ActivityLogger.
func NewActivityService(db *gorm.DB) ActivityLogger {
	return &activityService{db: db}
}

func buildActivityLog(entry ActivityEntry) (*models.ActivityLog, error) {
	log := &models.ActivityLog{
		Action:     entry.Action,
		EntityType: entry.EntityType,
		IPAddress:  entry.Meta.IPAddress,
		UserAgent:  entry.Meta.UserAgent,
	}
	if entry.UserID != "" {
		userID := entry.UserID
		log.UserID = &userID
	}
	if entry.EntityID != "" {
		entityID := entry.EntityID
		log.EntityID = &entityID
	}
	if entry.Details != nil {
		data, err := json.Marshal(entry.Details)
		if err != nil {
			return nil, err
		}
		log.Details = string(data)
	}
	return log, nil
}

// Record writes an entry inside the caller's unit of work. A failure is
// returned so the caller rolls back.
func (s *activityService) Record(tx *gorm.DB, entry ActivityEntry) error {
	log, err := buildActivityLog(entry)
	if err != nil {
		return apperrors.Wrap(apperrors.ErrInternalServer, err)
	}
	if err := tx.Create(log).Error; err != nil {
		return apperrors.Wrap(apperrors.ErrInternalServer, err)
	}
	return nil
}

// Log records an event outside any unit of work. Errors are logged but never
// propagate to avoid disrupting the main operation.
func (s *activityService) Log(ctx context.Context, entry ActivityEntry) {
	log, err := buildActivityLog(entry)
	if err != nil {
		logger.Get().Errorw("failed to marshal activity details", "error", err, "action", entry.Action)
		log, _ = buildActivityLog(ActivityEntry{UserID: entry.UserID, Action: entry.Action, EntityType: entry.EntityType, EntityID: entry.EntityID, Meta: entry.Meta})
	}

	if err := s.db.WithContext(ctx).Create(log).Error; err != nil {
		logger.Get().Errorw("failed to create activity log entry",
			"error", err,
			"user_id", entry.UserID,
			"action", entry.Action,
			"entity_type", entry.EntityType,
			"entity_id", entry.EntityID,
		)
	}
}

// History returns a user's activity, newest first, with details decoded.
func (s *activityService) History(ctx context.Context, userID string, page pagination.PageRequest) (*pagination.PageResponse[ActivityRecord], error) {
	page.Defaults()

	base := s.db.WithContext(ctx).Model(&models.ActivityLog{}).Where("user_id = ?", userID)

	var total int64
	if err := base.Count(&total).Error; err != nil {
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}

	var logs []models.ActivityLog
	if err := base.Scopes(pagination.Paginate(page)).
		Order("created_at DESC").
		Find(&logs).Error; err != nil {
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}

	records := make([]ActivityRecord, 0, len(logs))
	for i := range logs {
		records = append(records, toActivityRecord(&logs[i]))
	}

	result := pagination.NewPageResponse(records, page.Page, page.PageSize, total)
	return &result, nil
}

func toActivityRecord(l *models.ActivityLog) ActivityRecord {
	rec := ActivityRecord{
		ID:          l.ID,
		Action:      l.Action,
		ActionLabel: ActionLabel(l.Action),
		EntityType:  l.EntityType,
		IPAddress:   l.IPAddress,
		UserAgent:   l.UserAgent,
		CreatedAt:   l.CreatedAt,
	}
	if l.EntityID != nil {
		rec.EntityID = *l.EntityID
	}
	if l.Details != "" {
		if err := json.Unmarshal([]byte(l.Details), &rec.Details); err != nil {
			logger.Get().Warnw("undecodable activity details", "id", l.ID, "error", err)
		}
	}
	return rec
}

// Summary groups every user's activity of the last days by action.
func (s *activityService) Summary(ctx context.Context, days int) ([]ActionSummary, error) {
	if days <= 0 {
		return nil, apperrors.WithMessage(apperrors.ErrInvalidInput, "days must be positive")
	}
	since := time.Now().UTC().AddDate(0, 0, -days)

	var rows []ActionSummary
	if err := s.db.WithContext(ctx).Model(&models.ActivityLog{}).
		Select("action, COUNT(*) AS count, COUNT(DISTINCT user_id) AS unique_users").
		Where("created_at >= ?", since).
		Group("action").
		Order("count DESC").
		Scan(&rows).Error; err != nil {
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}

	for i := range rows {
		rows[i].Label = ActionLabel(rows[i].Action)
	}
	return rows, nil
}

type activeWindow struct {
	since time.Time
	dest  *int64
}

// ActiveUsers counts distinct users with any activity over trailing windows.
func (s *activityService) ActiveUsers(ctx context.Context) (*ActiveUserCounts, error) {
	now := time.Now().UTC()
	counts := &ActiveUserCounts{}
	windows := []activeWindow{
		{now.Add(-time.Hour), &counts.LastHour},
		{now.Add(-24 * time.Hour), &counts.Last24Hours},
		{now.AddDate(0, 0, -7), &counts.Last7Days},
		{now.AddDate(0, 0, -30), &counts.Last30Days},
	}

	for _, w := range windows {
		if err := s.db.WithContext(ctx).Model(&models.ActivityLog{}).
			Where("created_at >= ? AND user_id IS NOT NULL", w.since).
			Distinct("user_id").
			Count(w.dest).Error; err != nil {
			return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
		}
	}
	return counts, nil
}

// Purge deletes entries older than the retention window and returns the
// number removed.
func (s *activityService) Purge(ctx context.Context, olderThanDays int) (int64, error) {
	if olderThanDays <= 0 {
		return 0, apperrors.WithMessage(apperrors.ErrInvalidInput, "retention days must be positive")
	}
	cutoff := time.Now().UTC().AddDate(0, 0, -olderThanDays)

	result := s.db.WithContext(ctx).Where("created_at < ?", cutoff).Delete(&models.ActivityLog{})
	if result.Error != nil {
		return 0, apperrors.Wrap(apperrors.ErrInternalServer, result.Error)
	}
	return result.RowsAffected, nil
}
