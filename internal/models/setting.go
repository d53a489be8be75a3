package models

import (
	"time"

	"gorm.io/gorm"
)

// UserSetting is a single per-user preference stored as a key/value pair.
type UserSetting struct {
	ID           string    `gorm:"type:char(36);primaryKey" json:"-"`
	UserID       string    `gorm:"type:char(36);not null;uniqueIndex:idx_user_setting" json:"-"`
	SettingKey   string    `gorm:"size:50;not null;uniqueIndex:idx_user_setting" json:"key"`
	SettingValue string    `gorm:"type:text" json:"value"`
	CreatedAt    time.Time `json:"-"`
	UpdatedAt    time.Time `json:"updated_at"`
}

// BeforeCreate assigns an identifier to new settings.
func (s *UserSetting) BeforeCreate(tx *gorm.DB) error {
	if s.ID != "" {
		return nil
	}
	id, err := NewID()
	if err != nil {
		return err
	}
	s.ID = id
	return nil
}
