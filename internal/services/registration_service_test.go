package services

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"stashsmart/internal/models"
	"stashsmart/internal/testutil"
)

func TestRegisterUser(t *testing.T) {
	ctx := context.Background()

	register := func(t *testing.T, r RegistrationWorkflow, email, username string) (*models.User, error) {
		t.Helper()
		hash, err := HashPassword(testutil.TestPassword)
		require.NoError(t, err)
		return r.RegisterUser(ctx, RegistrationInput{
			FullName:     "Jane Saver",
			Email:        email,
			Username:     username,
			PasswordHash: hash,
		}, RequestMeta{IPAddress: "127.0.0.1"})
	}

	t.Run("seeds_defaults_for_each_user", func(t *testing.T) {
		db := testutil.SetupTestDB(t)
		defer testutil.TeardownTestDB(t, db)
		r := NewRegistrationWorkflow(db, NewActivityService(db))

		for _, email := range []string{"one@example.com", "two@example.com"} {
			user, err := register(t, r, email, "")
			require.NoError(t, err)
			assert.Equal(t, models.UserStatusActive, user.Status)

			var income, expense int64
			require.NoError(t, db.Model(&models.Category{}).Where("user_id = ? AND type = ?", user.ID, models.CategoryTypeIncome).Count(&income).Error)
			require.NoError(t, db.Model(&models.Category{}).Where("user_id = ? AND type = ?", user.ID, models.CategoryTypeExpense).Count(&expense).Error)
			assert.EqualValues(t, 4, income)
			assert.EqualValues(t, 8, expense)

			var accounts []models.Account
			require.NoError(t, db.Where("user_id = ?", user.ID).Find(&accounts).Error)
			require.Len(t, accounts, 1)
			assert.Equal(t, DefaultAccountName, accounts[0].Name)
			assert.Equal(t, models.AccountTypeChecking, accounts[0].Type)
			testutil.AssertDecimal(t, "balance", "0.00", accounts[0].Balance)

			var settings int64
			require.NoError(t, db.Model(&models.UserSetting{}).Where("user_id = ?", user.ID).Count(&settings).Error)
			assert.EqualValues(t, len(DefaultSettings), settings)

			var logged int64
			require.NoError(t, db.Model(&models.ActivityLog{}).Where("user_id = ? AND action = ?", user.ID, models.ActionUserRegistered).Count(&logged).Error)
			assert.EqualValues(t, 1, logged)
		}
	})

	t.Run("email_is_normalised", func(t *testing.T) {
		db := testutil.SetupTestDB(t)
		defer testutil.TeardownTestDB(t, db)
		r := NewRegistrationWorkflow(db, NewActivityService(db))

		user, err := register(t, r, "  Mixed@Example.COM ", "")
		require.NoError(t, err)
		assert.Equal(t, "mixed@example.com", user.Email)
	})

	t.Run("duplicate_email_leaves_no_partial_user", func(t *testing.T) {
		db := testutil.SetupTestDB(t)
		defer testutil.TeardownTestDB(t, db)
		r := NewRegistrationWorkflow(db, NewActivityService(db))

		_, err := register(t, r, "dup@example.com", "")
		require.NoError(t, err)
		_, err = register(t, r, "DUP@example.com", "")
		testutil.AssertAppError(t, err, "DUPLICATE_EMAIL")

		var users, categories int64
		require.NoError(t, db.Model(&models.User{}).Count(&users).Error)
		require.NoError(t, db.Model(&models.Category{}).Count(&categories).Error)
		assert.EqualValues(t, 1, users)
		assert.EqualValues(t, len(DefaultCategories), categories)
	})

	t.Run("duplicate_username", func(t *testing.T) {
		db := testutil.SetupTestDB(t)
		defer testutil.TeardownTestDB(t, db)
		r := NewRegistrationWorkflow(db, NewActivityService(db))

		_, err := register(t, r, "a@example.com", "saver")
		require.NoError(t, err)
		_, err = register(t, r, "b@example.com", "saver")
		testutil.AssertAppError(t, err, "DUPLICATE_USERNAME")
	})

	t.Run("missing_fields", func(t *testing.T) {
		db := testutil.SetupTestDB(t)
		defer testutil.TeardownTestDB(t, db)
		r := NewRegistrationWorkflow(db, NewActivityService(db))

		_, err := r.RegisterUser(ctx, RegistrationInput{Email: "x@example.com"}, RequestMeta{})
		testutil.AssertAppError(t, err, "INVALID_INPUT")
	})
}
