package integration

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"stashsmart/internal/logger"
	"stashsmart/internal/server"
	"stashsmart/internal/services"
	"stashsmart/internal/testutil"
	"stashsmart/internal/validator"
)

const adminKey = "integration-admin-key"

// testApp holds the full application stack for integration tests.
type testApp struct {
	DB     *gorm.DB
	Router *gin.Engine
}

func init() {
	gin.SetMode(gin.TestMode)
	logger.Init("test")
	validator.Register()
}

// setupApp creates a full application stack backed by an isolated in-memory SQLite.
func setupApp(t *testing.T) *testApp {
	t.Helper()
	return setupAppWithOptions(t, services.WorkflowOptions{ReverseTrackingOnMutation: true})
}

func setupAppWithOptions(t *testing.T, opts services.WorkflowOptions) *testApp {
	t.Helper()

	db := testutil.SetupTestDB(t)
	sqlDB, err := db.DB()
	if err != nil {
		t.Fatalf("failed to get underlying DB: %v", err)
	}

	svc := server.NewServices(db, sqlDB, opts)
	router := server.NewRouter(svc, server.Options{
		CORSAllowedOrigins: []string{"*"},
		AdminAPIKey:        adminKey,
	})

	return &testApp{DB: db, Router: router}
}

// request makes an HTTP request to the test router and returns the recorder.
func (app *testApp) request(method, path, body, token string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	app.Router.ServeHTTP(rec, req)
	return rec
}

// mustRequest performs a request and fails the test unless it answers want.
func (app *testApp) mustRequest(t *testing.T, method, path, body, token string, want int) map[string]interface{} {
	t.Helper()
	rec := app.request(method, path, body, token)
	if rec.Code != want {
		t.Fatalf("%s %s: expected %d, got %d: %s", method, path, want, rec.Code, rec.Body.String())
	}
	if rec.Body.Len() == 0 {
		return nil
	}
	return parseJSON(t, rec)
}

// parseJSON parses the response body into a map.
func parseJSON(t *testing.T, rec *httptest.ResponseRecorder) map[string]interface{} {
	t.Helper()
	var result map[string]interface{}
	if err := json.Unmarshal(rec.Body.Bytes(), &result); err != nil {
		t.Fatalf("failed to parse JSON: %v\nbody: %s", err, rec.Body.String())
	}
	return result
}

// registerUser registers a new user and returns the token and user ID.
func (app *testApp) registerUser(t *testing.T, email, password string) (token, userID string) {
	t.Helper()
	body := fmt.Sprintf(`{"full_name":"Test User","email":%q,"password":%q}`, email, password)
	result := app.mustRequest(t, "POST", "/api/v1/auth/register", body, "", http.StatusCreated)
	user := result["user"].(map[string]interface{})
	return result["token"].(string), user["id"].(string)
}

// loginUser logs in and returns the token.
func (app *testApp) loginUser(t *testing.T, login, password string) string {
	t.Helper()
	body := fmt.Sprintf(`{"login":%q,"password":%q}`, login, password)
	result := app.mustRequest(t, "POST", "/api/v1/auth/login", body, "", http.StatusOK)
	return result["token"].(string)
}

// primaryAccountID returns the account seeded at registration.
func (app *testApp) primaryAccountID(t *testing.T, token string) string {
	t.Helper()
	result := app.mustRequest(t, "GET", "/api/v1/accounts", "", token, http.StatusOK)
	items := result["items"].([]interface{})
	for _, item := range items {
		account := item.(map[string]interface{})
		if account["name"] == services.DefaultAccountName {
			return account["id"].(string)
		}
	}
	t.Fatalf("primary account not found in %v", items)
	return ""
}

// categoryID looks up one of the user's categories by name.
func (app *testApp) categoryID(t *testing.T, token, name string) string {
	t.Helper()
	result := app.mustRequest(t, "GET", "/api/v1/categories?page_size=100", "", token, http.StatusOK)
	for _, item := range result["items"].([]interface{}) {
		category := item.(map[string]interface{})
		if category["name"] == name {
			return category["id"].(string)
		}
	}
	t.Fatalf("category %q not found", name)
	return ""
}

// createTransaction posts a transaction and returns its ID.
func (app *testApp) createTransaction(t *testing.T, token, accountID, categoryID, txType, amount string) string {
	t.Helper()
	body := fmt.Sprintf(`{"account_id":%q,"category_id":%q,"type":%q,"amount":%q,"description":"test"}`,
		accountID, categoryID, txType, amount)
	result := app.mustRequest(t, "POST", "/api/v1/transactions", body, token, http.StatusCreated)
	return result["transaction"].(map[string]interface{})["id"].(string)
}

// accountBalance reads an account's balance through the API.
func (app *testApp) accountBalance(t *testing.T, token, accountID string) decimal.Decimal {
	t.Helper()
	result := app.mustRequest(t, "GET", "/api/v1/accounts/"+accountID, "", token, http.StatusOK)
	return decimalField(t, result["account"].(map[string]interface{}), "balance")
}

// decimalField parses a decimal rendered as a JSON string.
func decimalField(t *testing.T, m map[string]interface{}, key string) decimal.Decimal {
	t.Helper()
	raw, ok := m[key].(string)
	if !ok {
		t.Fatalf("expected %s as a decimal string, got %T (%v)", key, m[key], m[key])
	}
	d, err := decimal.NewFromString(raw)
	if err != nil {
		t.Fatalf("invalid decimal %s=%q: %v", key, raw, err)
	}
	return d
}

func assertDecimal(t *testing.T, what, want string, got decimal.Decimal) {
	t.Helper()
	if !got.Equal(decimal.RequireFromString(want)) {
		t.Errorf("%s: expected %s, got %s", what, want, got)
	}
}

func errorCode(t *testing.T, rec *httptest.ResponseRecorder) string {
	t.Helper()
	errObj, ok := parseJSON(t, rec)["error"].(map[string]interface{})
	if !ok {
		t.Fatalf("expected error object, got %s", rec.Body.String())
	}
	code, _ := errObj["code"].(string)
	return code
}

// currentWindow returns a budget window that contains today.
func currentWindow() (start, end string) {
	today := time.Now().UTC()
	return today.AddDate(0, 0, -1).Format("2006-01-02"), today.AddDate(0, 0, 30).Format("2006-01-02")
}
