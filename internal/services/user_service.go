package services

import (
	"context"
	"errors"
	"strings"
	"time"

	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"

	apperrors "stashsmart/internal/errors"
	"stashsmart/internal/models"
)

// Login lockout policy.
const (
	MaxFailedLoginAttempts = 5
	LoginLockoutDuration   = 15 * time.Minute
)

// MinPasswordLength is the shortest accepted password.
const MinPasswordLength = 8

// userService handles authentication and profile management.
type userService struct {
	db       *gorm.DB
	activity ActivityLogger
	now      func() time.Time
}

// NewUserService creates a new UserServicer.
func NewUserService(db *gorm.DB, activity ActivityLogger) UserServicer {
	return &userService{db: db, activity: activity, now: time.Now}
}

// AttemptLogin authenticates by email or username. Unknown identifiers and
// wrong passwords both return ErrInvalidCredentials; repeated failures lock
// the user out for LoginLockoutDuration.
func (s *userService) AttemptLogin(ctx context.Context, identifier, password string, meta RequestMeta) (*models.User, error) {
	identifier = strings.TrimSpace(identifier)
	if identifier == "" || password == "" {
		return nil, apperrors.WithMessage(apperrors.ErrInvalidInput, "identifier and password are required")
	}

	db := s.db.WithContext(ctx)
	now := s.now().UTC()

	var user models.User
	err := db.Where("email = ? OR username = ?", strings.ToLower(identifier), identifier).First(&user).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			s.activity.Log(ctx, ActivityEntry{
				Action:  models.ActionUserLoginFailed,
				Details: map[string]any{"identifier": identifier, "reason": "unknown_user"},
				Meta:    meta,
			})
			return nil, apperrors.ErrInvalidCredentials
		}
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}

	if user.LockedUntil != nil && user.LockedUntil.After(now) {
		return nil, apperrors.ErrAccountLocked
	}

	if bcrypt.CompareHashAndPassword([]byte(user.Password), []byte(password)) != nil {
		s.recordFailure(ctx, &user, now, meta)
		return nil, apperrors.ErrInvalidCredentials
	}

	if !user.IsActive() {
		return nil, apperrors.ErrAccountInactive
	}

	if err := db.Model(&user).Updates(map[string]any{
		"failed_login_attempts": 0,
		"locked_until":          nil,
		"last_login_at":         now,
	}).Error; err != nil {
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}
	user.FailedLoginAttempts = 0
	user.LockedUntil = nil
	user.LastLoginAt = &now

	s.activity.Log(ctx, ActivityEntry{
		UserID:     user.ID,
		Action:     models.ActionUserLoginSuccess,
		EntityType: "user",
		EntityID:   user.ID,
		Meta:       meta,
	})
	return &user, nil
}

func (s *userService) recordFailure(ctx context.Context, user *models.User, now time.Time, meta RequestMeta) {
	updates := map[string]any{"failed_login_attempts": gorm.Expr("failed_login_attempts + 1")}
	attempts := user.FailedLoginAttempts + 1
	if attempts >= MaxFailedLoginAttempts {
		updates["failed_login_attempts"] = 0
		updates["locked_until"] = now.Add(LoginLockoutDuration)
	}
	// Failure bookkeeping must not mask the credentials error.
	_ = s.db.WithContext(ctx).Model(user).Updates(updates).Error

	s.activity.Log(ctx, ActivityEntry{
		UserID:     user.ID,
		Action:     models.ActionUserLoginFailed,
		EntityType: "user",
		EntityID:   user.ID,
		Details:    map[string]any{"reason": "bad_password", "attempts": attempts},
		Meta:       meta,
	})
}

// Logout records the logout. Tokens are stateless so nothing else changes.
func (s *userService) Logout(ctx context.Context, userID string, meta RequestMeta) {
	s.activity.Log(ctx, ActivityEntry{
		UserID:     userID,
		Action:     models.ActionUserLogout,
		EntityType: "user",
		EntityID:   userID,
		Meta:       meta,
	})
}

// GetUserByID retrieves a user by ID
func (s *userService) GetUserByID(id string) (*models.User, error) {
	var user models.User
	if err := s.db.Where("id = ?", id).First(&user).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperrors.ErrUserNotFound
		}
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}
	return &user, nil
}

// UpdateProfile changes name, mobile or username.
func (s *userService) UpdateProfile(ctx context.Context, userID string, fields ProfileUpdateFields, meta RequestMeta) (*models.User, error) {
	user, err := s.GetUserByID(userID)
	if err != nil {
		return nil, err
	}

	db := s.db.WithContext(ctx)
	updates := make(map[string]any)
	if fields.FullName != nil {
		name := strings.TrimSpace(*fields.FullName)
		if name == "" {
			return nil, apperrors.WithMessage(apperrors.ErrInvalidInput, "full name cannot be empty")
		}
		updates["full_name"] = name
	}
	if fields.Mobile != nil {
		updates["mobile"] = strings.TrimSpace(*fields.Mobile)
	}
	if fields.Username != nil {
		username := strings.TrimSpace(*fields.Username)
		if username == "" {
			updates["username"] = nil
		} else {
			var count int64
			if err := db.Model(&models.User{}).
				Where("username = ? AND id <> ?", username, userID).
				Count(&count).Error; err != nil {
				return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
			}
			if count > 0 {
				return nil, apperrors.ErrDuplicateUsername
			}
			updates["username"] = username
		}
	}

	if len(updates) == 0 {
		return user, nil
	}

	if err := db.Model(user).Updates(updates).Error; err != nil {
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}

	s.activity.Log(ctx, ActivityEntry{
		UserID:     userID,
		Action:     models.ActionProfileUpdated,
		EntityType: "user",
		EntityID:   userID,
		Details:    map[string]any{"fields": sortedKeys(updates)},
		Meta:       meta,
	})

	return s.GetUserByID(userID)
}

// ChangePassword replaces the password after verifying the current one.
func (s *userService) ChangePassword(ctx context.Context, userID, currentPassword, newPassword string, meta RequestMeta) error {
	user, err := s.GetUserByID(userID)
	if err != nil {
		return err
	}

	if bcrypt.CompareHashAndPassword([]byte(user.Password), []byte(currentPassword)) != nil {
		return apperrors.ErrInvalidCredentials
	}
	if len(newPassword) < MinPasswordLength {
		return apperrors.WithMessage(apperrors.ErrInvalidInput, "password must be at least 8 characters")
	}

	hashed, err := HashPassword(newPassword)
	if err != nil {
		return err
	}
	if err := s.db.WithContext(ctx).Model(user).Update("password", hashed).Error; err != nil {
		return apperrors.Wrap(apperrors.ErrInternalServer, err)
	}

	s.activity.Log(ctx, ActivityEntry{
		UserID:     userID,
		Action:     models.ActionPasswordChanged,
		EntityType: "user",
		EntityID:   userID,
		Meta:       meta,
	})
	return nil
}
