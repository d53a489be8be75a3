package server

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"

	"stashsmart/internal/logger"
	"stashsmart/internal/services"
	"stashsmart/internal/testutil"
	"stashsmart/internal/validator"
)

func init() {
	gin.SetMode(gin.TestMode)
	logger.Init("test")
	validator.Register()
}

type stubPinger struct{ err error }

func (p stubPinger) PingContext(context.Context) error { return p.err }

func setupRouter(t *testing.T, opts Options, pinger stubPinger) *gin.Engine {
	t.Helper()
	db := testutil.SetupTestDB(t)
	svc := NewServices(db, pinger, services.WorkflowOptions{ReverseTrackingOnMutation: true})
	return NewRouter(svc, opts)
}

func serve(r *gin.Engine, method, path, body string, headers map[string]string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	for k, v := range headers {
		req.Header.Set(k, v)
	}
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)
	return rec
}

func decode(t *testing.T, rec *httptest.ResponseRecorder) map[string]interface{} {
	t.Helper()
	var out map[string]interface{}
	if err := json.Unmarshal(rec.Body.Bytes(), &out); err != nil {
		t.Fatalf("failed to parse JSON: %v\nbody: %s", err, rec.Body.String())
	}
	return out
}

func registerToken(t *testing.T, r *gin.Engine) string {
	t.Helper()
	rec := serve(r, "POST", "/api/v1/auth/register",
		`{"full_name":"Router Test","email":"router@example.com","password":"password123"}`, nil)
	if rec.Code != http.StatusCreated {
		t.Fatalf("register failed: %d %s", rec.Code, rec.Body.String())
	}
	return decode(t, rec)["token"].(string)
}

func TestNewRouter_Health(t *testing.T) {
	t.Run("reports ok", func(t *testing.T) {
		r := setupRouter(t, Options{}, stubPinger{})
		rec := serve(r, "GET", "/api/health", "", nil)
		if rec.Code != http.StatusOK {
			t.Fatalf("expected 200, got %d", rec.Code)
		}
	})

	t.Run("reports unavailable", func(t *testing.T) {
		r := setupRouter(t, Options{}, stubPinger{err: errors.New("down")})
		rec := serve(r, "GET", "/api/health", "", nil)
		if rec.Code != http.StatusServiceUnavailable {
			t.Fatalf("expected 503, got %d", rec.Code)
		}
	})
}

func TestNewRouter_ProtectedRoutesRequireToken(t *testing.T) {
	r := setupRouter(t, Options{}, stubPinger{})

	paths := []string{
		"/api/v1/profile",
		"/api/v1/accounts",
		"/api/v1/transactions",
		"/api/v1/budgets",
		"/api/v1/goals",
		"/api/v1/settings",
		"/api/v1/workflows/dashboard",
		"/api/v1/activity",
	}
	for _, path := range paths {
		t.Run(path, func(t *testing.T) {
			rec := serve(r, "GET", path, "", nil)
			if rec.Code != http.StatusUnauthorized {
				t.Fatalf("expected 401, got %d", rec.Code)
			}
		})
	}
}

func TestNewRouter_AdminRoutes(t *testing.T) {
	t.Run("disabled without a configured key", func(t *testing.T) {
		r := setupRouter(t, Options{}, stubPinger{})
		token := registerToken(t, r)

		rec := serve(r, "GET", "/api/v1/activity/summary", "", map[string]string{"Authorization": "Bearer " + token})

		if rec.Code != http.StatusServiceUnavailable {
			t.Fatalf("expected 503, got %d", rec.Code)
		}
	})

	t.Run("rejects a wrong key", func(t *testing.T) {
		r := setupRouter(t, Options{AdminAPIKey: "s3cret"}, stubPinger{})
		token := registerToken(t, r)

		rec := serve(r, "GET", "/api/v1/activity/active-users", "", map[string]string{
			"Authorization": "Bearer " + token,
			"X-Admin-Key":   "nope",
		})

		if rec.Code != http.StatusForbidden {
			t.Fatalf("expected 403, got %d", rec.Code)
		}
	})

	t.Run("serves the summary with the key", func(t *testing.T) {
		r := setupRouter(t, Options{AdminAPIKey: "s3cret"}, stubPinger{})
		token := registerToken(t, r)

		rec := serve(r, "GET", "/api/v1/activity/summary?days=7", "", map[string]string{
			"Authorization": "Bearer " + token,
			"X-Admin-Key":   "s3cret",
		})

		if rec.Code != http.StatusOK {
			t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
		}
		summary := decode(t, rec)["summary"].([]interface{})
		if len(summary) == 0 {
			t.Fatal("expected the registration to be summarised")
		}
	})
}

func TestNewRouter_UnknownRoute(t *testing.T) {
	r := setupRouter(t, Options{}, stubPinger{})

	rec := serve(r, "GET", "/api/v1/nope", "", nil)

	if rec.Code != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", rec.Code)
	}
	errBody := decode(t, rec)["error"].(map[string]interface{})
	if errBody["code"] != "NOT_FOUND" {
		t.Errorf("expected NOT_FOUND, got %v", errBody["code"])
	}
}
