package services

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"stashsmart/internal/models"
	"stashsmart/internal/pagination"
	"stashsmart/internal/testutil"
)

func TestActionLabel(t *testing.T) {
	assert.Equal(t, "Transaction created", ActionLabel(models.ActionTransactionCreated))
	assert.Equal(t, "Receipt uploaded", ActionLabel("receipt_uploaded"))
}

func TestActivityService(t *testing.T) {
	ctx := context.Background()

	t.Run("history_decodes_details", func(t *testing.T) {
		db := testutil.SetupTestDB(t)
		defer testutil.TeardownTestDB(t, db)
		svc := NewActivityService(db)
		user := testutil.CreateTestUser(t, db)

		svc.Log(ctx, ActivityEntry{UserID: user.ID, Action: models.ActionUserLogout})
		require.NoError(t, svc.Record(db, ActivityEntry{
			UserID:     user.ID,
			Action:     models.ActionTransactionCreated,
			EntityType: "transaction",
			EntityID:   "t-1",
			Details:    map[string]any{"amount": "10.00"},
			Meta:       RequestMeta{IPAddress: "10.1.1.1", UserAgent: "curl"},
		}))

		page, err := svc.History(ctx, user.ID, pagination.PageRequest{})
		require.NoError(t, err)
		require.EqualValues(t, 2, page.Pagination.Total)

		var created ActivityRecord
		for _, r := range page.Items {
			if r.Action == models.ActionTransactionCreated {
				created = r
			}
		}
		assert.Equal(t, "Transaction created", created.ActionLabel)
		assert.Equal(t, "t-1", created.EntityID)
		assert.Equal(t, "10.00", created.Details["amount"])
		assert.Equal(t, "10.1.1.1", created.IPAddress)
	})

	t.Run("summary_and_active_users", func(t *testing.T) {
		db := testutil.SetupTestDB(t)
		defer testutil.TeardownTestDB(t, db)
		svc := NewActivityService(db)
		alice := testutil.CreateTestUser(t, db)
		bob := testutil.CreateTestUser(t, db)

		for _, id := range []string{alice.ID, alice.ID, bob.ID} {
			svc.Log(ctx, ActivityEntry{UserID: id, Action: models.ActionUserLoginSuccess})
		}
		svc.Log(ctx, ActivityEntry{UserID: bob.ID, Action: models.ActionUserLogout})
		svc.Log(ctx, ActivityEntry{Action: models.ActionUserLoginFailed})

		summary, err := svc.Summary(ctx, 7)
		require.NoError(t, err)
		require.NotEmpty(t, summary)
		assert.Equal(t, models.ActionUserLoginSuccess, summary[0].Action)
		assert.EqualValues(t, 3, summary[0].Count)
		assert.EqualValues(t, 2, summary[0].UniqueUsers)

		active, err := svc.ActiveUsers(ctx)
		require.NoError(t, err)
		assert.EqualValues(t, 2, active.LastHour)
		assert.EqualValues(t, 2, active.Last30Days)

		_, err = svc.Summary(ctx, 0)
		testutil.AssertAppError(t, err, "INVALID_INPUT")
	})

	t.Run("purge_removes_old_entries", func(t *testing.T) {
		db := testutil.SetupTestDB(t)
		defer testutil.TeardownTestDB(t, db)
		svc := NewActivityService(db)
		user := testutil.CreateTestUser(t, db)

		svc.Log(ctx, ActivityEntry{UserID: user.ID, Action: models.ActionUserLogout})
		svc.Log(ctx, ActivityEntry{UserID: user.ID, Action: models.ActionUserLoginSuccess})
		require.NoError(t, db.Model(&models.ActivityLog{}).
			Where("action = ?", models.ActionUserLogout).
			Update("created_at", time.Now().UTC().AddDate(0, 0, -100)).Error)

		removed, err := svc.Purge(ctx, 90)
		require.NoError(t, err)
		assert.EqualValues(t, 1, removed)

		var left int64
		require.NoError(t, db.Model(&models.ActivityLog{}).Count(&left).Error)
		assert.EqualValues(t, 1, left)
	})
}
