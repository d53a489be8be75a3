package integration

import (
	"net/http"
	"net/http/httptest"
	"testing"
)

func (app *testApp) adminRequest(path, token, key string) *httptest.ResponseRecorder {
	req := httptest.NewRequest("GET", path, http.NoBody)
	req.Header.Set("Authorization", "Bearer "+token)
	if key != "" {
		req.Header.Set("X-Admin-Key", key)
	}
	rec := httptest.NewRecorder()
	app.Router.ServeHTTP(rec, req)
	return rec
}

func TestActivityFlow_AdminReports(t *testing.T) {
	app := setupApp(t)
	token, _ := app.registerUser(t, "admin1@test.com", "password123")
	app.registerUser(t, "admin2@test.com", "password123")
	app.loginUser(t, "admin1@test.com", "password123")

	if rec := app.adminRequest("/api/v1/activity/summary", token, ""); rec.Code != http.StatusForbidden {
		t.Fatalf("expected 403 without key, got %d", rec.Code)
	}

	rec := app.adminRequest("/api/v1/activity/summary?days=7", token, adminKey)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}
	counts := map[string]float64{}
	for _, item := range parseJSON(t, rec)["summary"].([]interface{}) {
		row := item.(map[string]interface{})
		counts[row["action"].(string)] = row["count"].(float64)
	}
	if counts["user_registered"] != 2 || counts["user_login_success"] != 1 {
		t.Errorf("unexpected summary counts: %v", counts)
	}

	rec = app.adminRequest("/api/v1/activity/active-users", token, adminKey)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	active := parseJSON(t, rec)["active_users"].(map[string]interface{})
	if active["last_hour"] != float64(2) {
		t.Errorf("expected 2 users active in the last hour, got %v", active["last_hour"])
	}
}

func TestActivityFlow_HistoryIsPerUser(t *testing.T) {
	app := setupApp(t)
	first, _ := app.registerUser(t, "first@test.com", "password123")
	app.registerUser(t, "second@test.com", "password123")

	history := app.mustRequest(t, "GET", "/api/v1/activity", "", first, http.StatusOK)
	if n := len(history["items"].([]interface{})); n != 1 {
		t.Errorf("expected only the caller's own entry, got %d", n)
	}
}
