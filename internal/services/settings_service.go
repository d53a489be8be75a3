package services

import (
	"context"
	"maps"
	"slices"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	apperrors "stashsmart/internal/errors"
	"stashsmart/internal/models"
)

// settingsService stores per-user preferences as key/value rows.
type settingsService struct {
	db       *gorm.DB
	activity ActivityLogger
}

// NewSettingsService creates a new SettingsServicer.
func NewSettingsService(db *gorm.DB, activity ActivityLogger) SettingsServicer {
	return &settingsService{db: db, activity: activity}
}

func sortedKeys[V any](m map[string]V) []string {
	return slices.Sorted(maps.Keys(m))
}

// GetSettings returns the user's preferences merged over the defaults.
func (s *settingsService) GetSettings(ctx context.Context, userID string) (map[string]string, error) {
	var rows []models.UserSetting
	if err := s.db.WithContext(ctx).Where("user_id = ?", userID).Find(&rows).Error; err != nil {
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}

	settings := maps.Clone(DefaultSettings)
	for _, row := range rows {
		settings[row.SettingKey] = row.SettingValue
	}
	return settings, nil
}

// UpdateSettings upserts the given keys and logs one settings_changed entry
// per value that actually changed.
func (s *settingsService) UpdateSettings(ctx context.Context, userID string, values map[string]string, meta RequestMeta) (map[string]string, error) {
	if len(values) == 0 {
		return nil, apperrors.WithMessage(apperrors.ErrInvalidInput, "no settings provided")
	}

	for key := range values {
		if _, known := DefaultSettings[key]; !known {
			return nil, apperrors.WithMessage(apperrors.ErrInvalidInput, "unknown setting: "+key)
		}
	}

	current, err := s.GetSettings(ctx, userID)
	if err != nil {
		return nil, err
	}

	rows := make([]models.UserSetting, 0, len(values))
	for _, key := range sortedKeys(values) {
		rows = append(rows, models.UserSetting{UserID: userID, SettingKey: key, SettingValue: values[key]})
	}

	if err := s.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "user_id"}, {Name: "setting_key"}},
		DoUpdates: clause.AssignmentColumns([]string{"setting_value", "updated_at"}),
	}).Create(&rows).Error; err != nil {
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}

	for _, key := range sortedKeys(values) {
		old, existed := current[key]
		if existed && old == values[key] {
			continue
		}
		s.activity.Log(ctx, ActivityEntry{
			UserID:     userID,
			Action:     models.ActionSettingsChanged,
			EntityType: "setting",
			Details: map[string]any{
				"setting_type": key,
				"old_value":    old,
				"new_value":    values[key],
			},
			Meta: meta,
		})
	}

	return s.GetSettings(ctx, userID)
}
