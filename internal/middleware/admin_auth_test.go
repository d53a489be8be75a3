package middleware

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
)

func init() {
	gin.SetMode(gin.TestMode)
}

func setupAdminRouter(apiKey string) *gin.Engine {
	r := gin.New()
	r.Use(AdminKeyMiddleware(apiKey))
	r.GET("/test", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	return r
}

func doAdminRequest(r *gin.Engine, apiKey string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodGet, "/test", http.NoBody)
	if apiKey != "" {
		req.Header.Set("X-Admin-Key", apiKey)
	}
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)
	return rec
}

func parseBody(t *testing.T, rec *httptest.ResponseRecorder) map[string]interface{} {
	t.Helper()
	var result map[string]interface{}
	if err := json.Unmarshal(rec.Body.Bytes(), &result); err != nil {
		t.Fatalf("failed to parse response body: %v", err)
	}
	return result
}

func errorCode(t *testing.T, rec *httptest.ResponseRecorder) string {
	t.Helper()
	body := parseBody(t, rec)
	errObj, ok := body["error"].(map[string]interface{})
	if !ok {
		t.Fatalf("expected error object, got %v", body)
	}
	code, _ := errObj["code"].(string)
	return code
}

func TestAdminKeyMiddleware(t *testing.T) {
	tests := []struct {
		name          string
		configuredKey string
		requestKey    string
		wantStatus    int
		wantErrorCode string
	}{
		{"valid key", "secret-key", "secret-key", http.StatusOK, ""},
		{"wrong key", "secret-key", "wrong", http.StatusForbidden, "FORBIDDEN"},
		{"missing key", "secret-key", "", http.StatusForbidden, "FORBIDDEN"},
		{"not configured", "", "anything", http.StatusServiceUnavailable, "ADMIN_NOT_CONFIGURED"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := doAdminRequest(setupAdminRouter(tt.configuredKey), tt.requestKey)
			if rec.Code != tt.wantStatus {
				t.Fatalf("expected status %d, got %d", tt.wantStatus, rec.Code)
			}
			if tt.wantErrorCode != "" {
				if got := errorCode(t, rec); got != tt.wantErrorCode {
					t.Errorf("expected error code %s, got %s", tt.wantErrorCode, got)
				}
			}
		})
	}
}
