package middleware

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"

	"adaptive-learning-platform/internal/config"
)

func newTestAuth(secret string) *AuthMiddleware {
	return NewAuthMiddleware(&config.Config{
		JWTSecret:    secret,
		JWTExpiresIn: "1h",
	})
}

func protectedRouter(auth *AuthMiddleware) *gin.Engine {
	gin.SetMode(gin.TestMode)
	router := gin.New()
	router.GET("/admin/ping", auth.RequireAdmin(), func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"subject": c.GetString("admin_subject")})
	})
	return router
}

func TestIssuedTokenPassesRequireAdmin(t *testing.T) {
	auth := newTestAuth("test-secret")
	router := protectedRouter(auth)

	token, err := auth.IssueToken("ops@example.com")
	if err != nil {
		t.Fatalf("IssueToken failed: %v", err)
	}

	req := httptest.NewRequest(http.MethodGet, "/admin/ping", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}
	if body := rec.Body.String(); !strings.Contains(body, "ops@example.com") {
		t.Errorf("subject missing from response: %s", body)
	}
}

func TestRequireAdminRejectsMissingToken(t *testing.T) {
	router := protectedRouter(newTestAuth("test-secret"))

	req := httptest.NewRequest(http.MethodGet, "/admin/ping", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d", rec.Code)
	}
}

func TestRequireAdminRejectsTokenFromOtherSecret(t *testing.T) {
	router := protectedRouter(newTestAuth("test-secret"))

	foreign := newTestAuth("another-secret")
	token, err := foreign.IssueToken("ops@example.com")
	if err != nil {
		t.Fatalf("IssueToken failed: %v", err)
	}

	req := httptest.NewRequest(http.MethodGet, "/admin/ping", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d", rec.Code)
	}
}
