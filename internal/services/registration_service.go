package services

import (
	"context"
	"strings"

	"github.com/shopspring/decimal"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"

	apperrors "stashsmart/internal/errors"
	"stashsmart/internal/logger"
	"stashsmart/internal/models"
)

// DefaultCategory describes one category seeded for every new user.
type DefaultCategory struct {
	Name  string
	Type  models.CategoryType
	Color string
	Icon  string
}

// DefaultCategories is the catalogue seeded at registration.
var DefaultCategories = []DefaultCategory{
	{"Salary", models.CategoryTypeIncome, "#28a745", "fas fa-money-bill-wave"},
	{"Freelance", models.CategoryTypeIncome, "#17a2b8", "fas fa-laptop"},
	{"Investment", models.CategoryTypeIncome, "#6f42c1", "fas fa-chart-line"},
	{"Other Income", models.CategoryTypeIncome, "#6c757d", "fas fa-plus-circle"},
	{"Food & Dining", models.CategoryTypeExpense, "#dc3545", "fas fa-utensils"},
	{"Transportation", models.CategoryTypeExpense, "#fd7e14", "fas fa-car"},
	{"Shopping", models.CategoryTypeExpense, "#e83e8c", "fas fa-shopping-bag"},
	{"Entertainment", models.CategoryTypeExpense, "#6f42c1", "fas fa-film"},
	{"Bills & Utilities", models.CategoryTypeExpense, "#ffc107", "fas fa-file-invoice-dollar"},
	{"Healthcare", models.CategoryTypeExpense, "#20c997", "fas fa-heartbeat"},
	{"Education", models.CategoryTypeExpense, "#007bff", "fas fa-graduation-cap"},
	{"Other Expenses", models.CategoryTypeExpense, "#6c757d", "fas fa-minus-circle"},
}

// DefaultAccountName is the name of the account seeded at registration.
const DefaultAccountName = "Primary Account"

// DefaultSettings are the preferences seeded at registration.
var DefaultSettings = map[string]string{
	"currency":              "USD",
	"date_format":           "Y-m-d",
	"notifications_enabled": "1",
	"budget_alerts":         "1",
	"theme":                 "light",
}

// HashPassword hashes a plain-text password for storage.
func HashPassword(password string) (string, error) {
	hashed, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return "", apperrors.Wrap(apperrors.ErrInternalServer, err)
	}
	return string(hashed), nil
}

// registrationWorkflow creates a user and the seed data in one unit of work.
type registrationWorkflow struct {
	db       *gorm.DB
	activity ActivityLogger
}

// NewRegistrationWorkflow creates a new RegistrationWorkflow.
func NewRegistrationWorkflow(db *gorm.DB, activity ActivityLogger) RegistrationWorkflow {
	return &registrationWorkflow{db: db, activity: activity}
}

// RegisterUser creates the user, seeds default categories, the primary
// account and default settings, and records the registration. Either all of
// it is stored or none of it.
func (r *registrationWorkflow) RegisterUser(ctx context.Context, input RegistrationInput, meta RequestMeta) (*models.User, error) {
	email := strings.ToLower(strings.TrimSpace(input.Email))
	username := strings.TrimSpace(input.Username)
	if email == "" || input.PasswordHash == "" || strings.TrimSpace(input.FullName) == "" {
		return nil, apperrors.WithMessage(apperrors.ErrInvalidInput, "full name, email and password are required")
	}

	user := &models.User{
		FullName: strings.TrimSpace(input.FullName),
		Email:    email,
		Mobile:   strings.TrimSpace(input.Mobile),
		Password: input.PasswordHash,
		Status:   models.UserStatusActive,
	}
	if username != "" {
		user.Username = &username
	}

	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := ensureUnique(tx, user); err != nil {
			return err
		}

		if err := tx.Create(user).Error; err != nil {
			return apperrors.Wrap(apperrors.ErrRegistrationFailed, err)
		}

		if err := seedCategories(tx, user.ID); err != nil {
			return err
		}

		account := &models.Account{
			UserID:   user.ID,
			Name:     DefaultAccountName,
			Type:     models.AccountTypeChecking,
			Balance:  decimal.Zero,
			Currency: DefaultSettings["currency"],
			IsActive: true,
		}
		if err := tx.Create(account).Error; err != nil {
			return apperrors.Wrap(apperrors.ErrRegistrationFailed, err)
		}

		if err := seedSettings(tx, user.ID); err != nil {
			return err
		}

		return r.activity.Record(tx, ActivityEntry{
			UserID:     user.ID,
			Action:     models.ActionUserRegistered,
			EntityType: "user",
			EntityID:   user.ID,
			Details: map[string]any{
				"email":              user.Email,
				"default_categories": len(DefaultCategories),
				"default_account_id": account.ID,
			},
			Meta: meta,
		})
	})
	if err != nil {
		logger.Get().Warnw("registration rolled back", "email", email, "error", err)
		return nil, err
	}

	return user, nil
}

func ensureUnique(tx *gorm.DB, user *models.User) error {
	var count int64
	if err := tx.Model(&models.User{}).Where("email = ?", user.Email).Count(&count).Error; err != nil {
		return apperrors.Wrap(apperrors.ErrInternalServer, err)
	}
	if count > 0 {
		return apperrors.ErrDuplicateEmail
	}

	if user.Username != nil {
		if err := tx.Model(&models.User{}).Where("username = ?", *user.Username).Count(&count).Error; err != nil {
			return apperrors.Wrap(apperrors.ErrInternalServer, err)
		}
		if count > 0 {
			return apperrors.ErrDuplicateUsername
		}
	}
	return nil
}

func seedCategories(tx *gorm.DB, userID string) error {
	categories := make([]models.Category, 0, len(DefaultCategories))
	for _, d := range DefaultCategories {
		categories = append(categories, models.Category{
			UserID:    userID,
			Name:      d.Name,
			Type:      d.Type,
			Color:     d.Color,
			Icon:      d.Icon,
			IsDefault: true,
		})
	}
	if err := tx.Create(&categories).Error; err != nil {
		return apperrors.Wrap(apperrors.ErrRegistrationFailed, err)
	}
	return nil
}

func seedSettings(tx *gorm.DB, userID string) error {
	settings := make([]models.UserSetting, 0, len(DefaultSettings))
	for _, key := range sortedKeys(DefaultSettings) {
		settings = append(settings, models.UserSetting{
			UserID:       userID,
			SettingKey:   key,
			SettingValue: DefaultSettings[key],
		})
	}
	if err := tx.Create(&settings).Error; err != nil {
		return apperrors.Wrap(apperrors.ErrRegistrationFailed, err)
	}
	return nil
}
