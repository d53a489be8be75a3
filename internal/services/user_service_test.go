package services

import (
	"context"
	"testing"
	"time"

	"golang.org/x/crypto/bcrypt"

	"stashsmart/internal/models"
	"stashsmart/internal/testutil"
)

func TestAttemptLogin(t *testing.T) {
	ctx := context.Background()

	t.Run("by_email", func(t *testing.T) {
		db := testutil.SetupTestDB(t)
		defer testutil.TeardownTestDB(t, db)
		svc := NewUserService(db, NewActivityService(db))
		testutil.CreateTestUserWithEmail(t, db, "alice@example.com")

		user, err := svc.AttemptLogin(ctx, "ALICE@example.com", testutil.TestPassword, RequestMeta{IPAddress: "1.2.3.4"})
		testutil.AssertNoError(t, err)

		if user.LastLoginAt == nil {
			t.Error("expected last login to be stamped")
		}
		var count int64
		db.Model(&models.ActivityLog{}).Where("action = ?", models.ActionUserLoginSuccess).Count(&count)
		if count != 1 {
			t.Errorf("expected 1 login_success entry, got %d", count)
		}
	})

	t.Run("by_username", func(t *testing.T) {
		db := testutil.SetupTestDB(t)
		defer testutil.TeardownTestDB(t, db)
		svc := NewUserService(db, NewActivityService(db))
		user := testutil.CreateTestUser(t, db)
		db.Model(user).Update("username", "alice")

		_, err := svc.AttemptLogin(ctx, "alice", testutil.TestPassword, RequestMeta{})
		testutil.AssertNoError(t, err)
	})

	t.Run("wrong_password", func(t *testing.T) {
		db := testutil.SetupTestDB(t)
		defer testutil.TeardownTestDB(t, db)
		svc := NewUserService(db, NewActivityService(db))
		user := testutil.CreateTestUser(t, db)

		_, err := svc.AttemptLogin(ctx, user.Email, "wrong", RequestMeta{})
		testutil.AssertAppError(t, err, "INVALID_CREDENTIALS")

		var count int64
		db.Model(&models.ActivityLog{}).Where("action = ?", models.ActionUserLoginFailed).Count(&count)
		if count != 1 {
			t.Errorf("expected 1 login_failed entry, got %d", count)
		}
	})

	t.Run("unknown_user", func(t *testing.T) {
		db := testutil.SetupTestDB(t)
		defer testutil.TeardownTestDB(t, db)
		svc := NewUserService(db, NewActivityService(db))

		_, err := svc.AttemptLogin(ctx, "nobody@example.com", "whatever", RequestMeta{})
		testutil.AssertAppError(t, err, "INVALID_CREDENTIALS")
	})

	t.Run("inactive_user", func(t *testing.T) {
		db := testutil.SetupTestDB(t)
		defer testutil.TeardownTestDB(t, db)
		svc := NewUserService(db, NewActivityService(db))
		user := testutil.CreateTestUser(t, db)
		db.Model(user).Update("status", models.UserStatusSuspended)

		_, err := svc.AttemptLogin(ctx, user.Email, testutil.TestPassword, RequestMeta{})
		testutil.AssertAppError(t, err, "ACCOUNT_INACTIVE")
	})

	t.Run("lockout_after_repeated_failures", func(t *testing.T) {
		db := testutil.SetupTestDB(t)
		defer testutil.TeardownTestDB(t, db)
		svc := NewUserService(db, NewActivityService(db))
		user := testutil.CreateTestUser(t, db)

		for range MaxFailedLoginAttempts {
			_, err := svc.AttemptLogin(ctx, user.Email, "wrong", RequestMeta{})
			testutil.AssertAppError(t, err, "INVALID_CREDENTIALS")
		}

		_, err := svc.AttemptLogin(ctx, user.Email, testutil.TestPassword, RequestMeta{})
		testutil.AssertAppError(t, err, "ACCOUNT_LOCKED")
	})

	t.Run("lock_expires", func(t *testing.T) {
		db := testutil.SetupTestDB(t)
		defer testutil.TeardownTestDB(t, db)
		svc := &userService{db: db, activity: NewActivityService(db), now: time.Now}
		user := testutil.CreateTestUser(t, db)
		db.Model(user).Update("locked_until", time.Now().UTC().Add(-time.Minute))

		_, err := svc.AttemptLogin(ctx, user.Email, testutil.TestPassword, RequestMeta{})
		testutil.AssertNoError(t, err)

		reloaded, err := svc.GetUserByID(user.ID)
		testutil.AssertNoError(t, err)
		if reloaded.LockedUntil != nil {
			t.Error("expected lock to be cleared on successful login")
		}
	})
}

func TestUpdateProfile(t *testing.T) {
	ctx := context.Background()

	t.Run("valid", func(t *testing.T) {
		db := testutil.SetupTestDB(t)
		defer testutil.TeardownTestDB(t, db)
		svc := NewUserService(db, NewActivityService(db))
		user := testutil.CreateTestUser(t, db)

		name := "Alice Smith"
		username := "alice"
		updated, err := svc.UpdateProfile(ctx, user.ID, ProfileUpdateFields{FullName: &name, Username: &username}, RequestMeta{})
		testutil.AssertNoError(t, err)

		if updated.FullName != "Alice Smith" {
			t.Errorf("expected full name Alice Smith, got %s", updated.FullName)
		}
		if updated.Username == nil || *updated.Username != "alice" {
			t.Errorf("expected username alice, got %v", updated.Username)
		}
	})

	t.Run("username_taken", func(t *testing.T) {
		db := testutil.SetupTestDB(t)
		defer testutil.TeardownTestDB(t, db)
		svc := NewUserService(db, NewActivityService(db))
		first := testutil.CreateTestUser(t, db)
		db.Model(first).Update("username", "alice")
		second := testutil.CreateTestUser(t, db)

		username := "alice"
		_, err := svc.UpdateProfile(ctx, second.ID, ProfileUpdateFields{Username: &username}, RequestMeta{})
		testutil.AssertAppError(t, err, "DUPLICATE_USERNAME")
	})

	t.Run("empty_name", func(t *testing.T) {
		db := testutil.SetupTestDB(t)
		defer testutil.TeardownTestDB(t, db)
		svc := NewUserService(db, NewActivityService(db))
		user := testutil.CreateTestUser(t, db)

		empty := " "
		_, err := svc.UpdateProfile(ctx, user.ID, ProfileUpdateFields{FullName: &empty}, RequestMeta{})
		testutil.AssertAppError(t, err, "INVALID_INPUT")
	})
}

func TestChangePassword(t *testing.T) {
	ctx := context.Background()

	t.Run("valid", func(t *testing.T) {
		db := testutil.SetupTestDB(t)
		defer testutil.TeardownTestDB(t, db)
		svc := NewUserService(db, NewActivityService(db))
		user := testutil.CreateTestUser(t, db)

		err := svc.ChangePassword(ctx, user.ID, testutil.TestPassword, "newpassword456", RequestMeta{})
		testutil.AssertNoError(t, err)

		reloaded, _ := svc.GetUserByID(user.ID)
		if bcrypt.CompareHashAndPassword([]byte(reloaded.Password), []byte("newpassword456")) != nil {
			t.Error("expected new password to be stored")
		}
	})

	t.Run("wrong_current_password", func(t *testing.T) {
		db := testutil.SetupTestDB(t)
		defer testutil.TeardownTestDB(t, db)
		svc := NewUserService(db, NewActivityService(db))
		user := testutil.CreateTestUser(t, db)

		err := svc.ChangePassword(ctx, user.ID, "nope", "newpassword456", RequestMeta{})
		testutil.AssertAppError(t, err, "INVALID_CREDENTIALS")
	})

	t.Run("too_short", func(t *testing.T) {
		db := testutil.SetupTestDB(t)
		defer testutil.TeardownTestDB(t, db)
		svc := NewUserService(db, NewActivityService(db))
		user := testutil.CreateTestUser(t, db)

		err := svc.ChangePassword(ctx, user.ID, testutil.TestPassword, "short", RequestMeta{})
		testutil.AssertAppError(t, err, "INVALID_INPUT")
	})
}
