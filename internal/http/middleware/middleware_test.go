package middleware

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/ulule/limiter/v3/drivers/store/memory"

	"github.com/astrobyab/consult-backend/internal/models"
	"github.com/astrobyab/consult-backend/internal/pkg/apperror"
	"github.com/astrobyab/consult-backend/internal/service"
)

func newEngine() *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.Use(ErrorHandler())
	return r
}

func TestErrorHandler_AppErrorWithRetryAfter(t *testing.T) {
	r := newEngine()
	r.GET("/", func(c *gin.Context) { _ = c.Error(apperror.RateLimited(42)) })

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/", nil))

	assert.Equal(t, http.StatusTooManyRequests, w.Code)
	assert.Equal(t, "42", w.Header().Get("Retry-After"))
	assert.Contains(t, w.Body.String(), `"code":"RATE_LIMITED"`)
}

func TestErrorHandler_MasksInternalErrors(t *testing.T) {
	r := newEngine()
	r.GET("/", func(c *gin.Context) { _ = c.Error(errors.New("pq: connection refused")) })

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/", nil))

	assert.Equal(t, http.StatusInternalServerError, w.Code)
	assert.NotContains(t, w.Body.String(), "pq:")
	assert.Contains(t, w.Body.String(), "Internal server error")
}

func TestAuthMiddleware(t *testing.T) {
	tokens := service.NewTokenManager("test-secret-test-secret-test-secret", time.Hour)
	admin := &models.User{ID: uuid.New(), Email: "admin@astrobyab.com", Role: models.RoleAdmin}
	user := &models.User{ID: uuid.New(), Email: "user@astrobyab.com", Role: models.RoleUser}
	adminToken, err := tokens.Issue(admin)
	require.NoError(t, err)
	userToken, err := tokens.Issue(user)
	require.NoError(t, err)

	r := newEngine()
	r.GET("/me", AuthMiddleware(tokens), func(c *gin.Context) {
		c.String(http.StatusOK, c.MustGet(ContextUserIDKey).(uuid.UUID).String())
	})
	r.GET("/admin", AuthMiddleware(tokens), AdminOnly(), func(c *gin.Context) { c.Status(http.StatusNoContent) })
	r.GET("/optional", OptionalAuthMiddleware(tokens), func(c *gin.Context) {
		_, ok := c.Get(ContextUserIDKey)
		if ok {
			c.Status(http.StatusOK)
			return
		}
		c.Status(http.StatusAccepted)
	})

	call := func(path, token string) *httptest.ResponseRecorder {
		req := httptest.NewRequest(http.MethodGet, path, nil)
		if token != "" {
			req.Header.Set("Authorization", "Bearer "+token)
		}
		w := httptest.NewRecorder()
		r.ServeHTTP(w, req)
		return w
	}

	assert.Equal(t, http.StatusUnauthorized, call("/me", "").Code)
	assert.Equal(t, http.StatusUnauthorized, call("/me", "garbage").Code)
	w := call("/me", userToken.Token)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, user.ID.String(), w.Body.String())

	assert.Equal(t, http.StatusForbidden, call("/admin", userToken.Token).Code)
	assert.Equal(t, http.StatusNoContent, call("/admin", adminToken.Token).Code)

	assert.Equal(t, http.StatusAccepted, call("/optional", "").Code)
	assert.Equal(t, http.StatusAccepted, call("/optional", "garbage").Code)
	assert.Equal(t, http.StatusOK, call("/optional", userToken.Token).Code)
}

func TestRateLimitMiddleware_BlocksAfterLimit(t *testing.T) {
	r := newEngine()
	r.POST("/otp", RateLimitMiddleware(memory.NewStore(), "auth", 2, time.Minute), func(c *gin.Context) {
		c.Status(http.StatusOK)
	})

	var last *httptest.ResponseRecorder
	for i := 0; i < 3; i++ {
		last = httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodPost, "/otp", nil)
		req.RemoteAddr = "10.0.0.1:1234"
		r.ServeHTTP(last, req)
		if i < 2 {
			assert.Equal(t, http.StatusOK, last.Code)
		}
	}

	assert.Equal(t, http.StatusTooManyRequests, last.Code)
	assert.NotEmpty(t, last.Header().Get("Retry-After"))
	assert.Equal(t, "0", last.Header().Get("X-RateLimit-Remaining"))
}

func TestUUIDValidator(t *testing.T) {
	r := newEngine()
	r.GET("/items/:id", UUIDValidator("id"), func(c *gin.Context) { c.Status(http.StatusOK) })

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/items/nope", nil))
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/items/"+uuid.NewString(), nil))
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestCORSMiddleware(t *testing.T) {
	r := newEngine()
	r.Use(CORSMiddleware([]string{"https://astrobyab.com"}))
	r.GET("/", func(c *gin.Context) { c.Status(http.StatusOK) })

	req := httptest.NewRequest(http.MethodOptions, "/", nil)
	req.Header.Set("Origin", "https://astrobyab.com")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	assert.Equal(t, http.StatusNoContent, w.Code)
	assert.Equal(t, "https://astrobyab.com", w.Header().Get("Access-Control-Allow-Origin"))

	req = httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("Origin", "https://evil.example")
	w = httptest.NewRecorder()
	r.ServeHTTP(w, req)
	assert.Empty(t, w.Header().Get("Access-Control-Allow-Origin"))
}
