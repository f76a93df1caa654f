package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"github.com/Jethrr/moodlequest-sub000/internal/platform/logger"
	"github.com/Jethrr/moodlequest-sub000/internal/requestdata"
)

const testJWTSecret = "test-secret"

func init() {
	gin.SetMode(gin.TestMode)
}

func mustLogger(t *testing.T) *logger.Logger {
	t.Helper()
	log, err := logger.New("development")
	if err != nil {
		t.Fatalf("init logger: %v", err)
	}
	return log
}

func signToken(t *testing.T, secret string, userID uuid.UUID, role string, expiresIn time.Duration) string {
	t.Helper()
	claims := jwt.MapClaims{
		"sub": userID.String(),
		"exp": time.Now().Add(expiresIn).Unix(),
	}
	if role != "" {
		claims["role"] = role
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString([]byte(secret))
	if err != nil {
		t.Fatalf("sign token: %v", err)
	}
	return signed
}

func authTestRouter(t *testing.T) (*gin.Engine, *requestdata.RequestData) {
	t.Helper()
	captured := &requestdata.RequestData{}
	am := NewAuthMiddleware(mustLogger(t), testJWTSecret)

	router := gin.New()
	protected := router.Group("/")
	protected.Use(am.RequireAuth())
	protected.GET("/me", func(c *gin.Context) {
		if rd := requestdata.GetRequestData(c.Request.Context()); rd != nil {
			*captured = *rd
		}
		c.Status(http.StatusOK)
	})
	staff := protected.Group("/")
	staff.Use(am.RequireRole("teacher"))
	staff.GET("/staff", func(c *gin.Context) { c.Status(http.StatusOK) })
	return router, captured
}

func TestRequireAuthRejectsMissingToken(t *testing.T) {
	router, _ := authTestRouter(t)

	req := httptest.NewRequest(http.MethodGet, "/me", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("missing token: want 401 got %d", rec.Code)
	}
}

func TestRequireAuthAcceptsBearerHeader(t *testing.T) {
	router, captured := authTestRouter(t)
	userID := uuid.New()

	req := httptest.NewRequest(http.MethodGet, "/me", nil)
	req.Header.Set("Authorization", "Bearer "+signToken(t, testJWTSecret, userID, "student", time.Hour))
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("bearer token: want 200 got %d", rec.Code)
	}
	if captured.UserID != userID || captured.Role != "student" {
		t.Fatalf("request data not populated: %+v", captured)
	}
}

func TestRequireAuthAcceptsQueryToken(t *testing.T) {
	router, captured := authTestRouter(t)
	userID := uuid.New()

	// EventSource clients can only pass the token in the query string.
	req := httptest.NewRequest(http.MethodGet,
		"/me?token="+signToken(t, testJWTSecret, userID, "", time.Hour), nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("query token: want 200 got %d", rec.Code)
	}
	if captured.UserID != userID {
		t.Fatalf("request data not populated: %+v", captured)
	}
}

func TestRequireAuthRejectsExpiredAndForgedTokens(t *testing.T) {
	router, _ := authTestRouter(t)

	req := httptest.NewRequest(http.MethodGet, "/me", nil)
	req.Header.Set("Authorization", "Bearer "+signToken(t, testJWTSecret, uuid.New(), "", -time.Hour))
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("expired token: want 401 got %d", rec.Code)
	}

	req = httptest.NewRequest(http.MethodGet, "/me", nil)
	req.Header.Set("Authorization", "Bearer "+signToken(t, "other-secret", uuid.New(), "", time.Hour))
	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("forged token: want 401 got %d", rec.Code)
	}
}

func TestRequireRoleGatesStaffRoutes(t *testing.T) {
	router, _ := authTestRouter(t)

	req := httptest.NewRequest(http.MethodGet, "/staff", nil)
	req.Header.Set("Authorization", "Bearer "+signToken(t, testJWTSecret, uuid.New(), "student", time.Hour))
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	if rec.Code != http.StatusForbidden {
		t.Fatalf("student on staff route: want 403 got %d", rec.Code)
	}

	req = httptest.NewRequest(http.MethodGet, "/staff", nil)
	req.Header.Set("Authorization", "Bearer "+signToken(t, testJWTSecret, uuid.New(), "teacher", time.Hour))
	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("teacher on staff route: want 200 got %d", rec.Code)
	}
}
