package models

import "time"

// UserStatus is the lifecycle state of a user; only active users may log in.
type UserStatus string

const (
	UserStatusActive    UserStatus = "active"
	UserStatusInactive  UserStatus = "inactive"
	UserStatusSuspended UserStatus = "suspended"
)

// User represents the user model in the database
type User struct {
	Base
	FullName            string     `gorm:"size:100;not null" json:"full_name"`
	Email               string     `gorm:"size:255;uniqueIndex;not null" json:"email"`
	Mobile              string     `gorm:"size:20" json:"mobile,omitempty"`
	Username            *string    `gorm:"size:50;uniqueIndex" json:"username,omitempty"`
	Password            string     `gorm:"not null" json:"-"`
	Status              UserStatus `gorm:"size:20;not null;default:active" json:"status"`
	FailedLoginAttempts int        `gorm:"default:0" json:"-"`
	LockedUntil         *time.Time `json:"-"`
	LastLoginAt         *time.Time `json:"last_login_at,omitempty"`

	Accounts   []Account     `gorm:"foreignKey:UserID" json:"-"`
	Categories []Category    `gorm:"foreignKey:UserID" json:"-"`
	Settings   []UserSetting `gorm:"foreignKey:UserID" json:"-"`
}

// IsActive reports whether the user may authenticate.
func (u *User) IsActive() bool {
	return u.Status == UserStatusActive
}
