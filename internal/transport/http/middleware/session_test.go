package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"cocoaguard/internal/pkg/jwtutil"
)

const (
	testSecret     = "test-secret"
	testCookieName = "session"
)

func testRouter() *gin.Engine {
	gin.SetMode(gin.TestMode)
	router := gin.New()
	router.GET("/protected", RequireSession(testSecret, testCookieName), func(c *gin.Context) {
		c.String(http.StatusOK, "farmer %d", c.GetUint(ContextFarmerIDKey))
	})
	router.GET("/api", RequireSessionAPI(testSecret, testCookieName), func(c *gin.Context) {
		c.String(http.StatusOK, "ok")
	})
	router.GET("/open", OptionalSession(testSecret, testCookieName), func(c *gin.Context) {
		c.String(http.StatusOK, "farmer %d", c.GetUint(ContextFarmerIDKey))
	})
	return router
}

func sessionCookie(t *testing.T) *http.Cookie {
	t.Helper()
	token, err := jwtutil.GenerateToken(testSecret, time.Hour, 42, "Kofi")
	require.NoError(t, err)
	return &http.Cookie{Name: testCookieName, Value: token}
}

func TestRequireSessionRedirectsWithoutCookie(t *testing.T) {
	router := testRouter()

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/protected", nil)
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusFound, w.Code)
	assert.Equal(t, "/login", w.Header().Get("Location"))
	assert.Contains(t, w.Header().Get("Set-Cookie"), FlashCookieName)
}

func TestRequireSessionRejectsTamperedToken(t *testing.T) {
	router := testRouter()

	token, err := jwtutil.GenerateToken("other-secret", time.Hour, 42, "Kofi")
	require.NoError(t, err)

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/protected", nil)
	req.AddCookie(&http.Cookie{Name: testCookieName, Value: token})
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusFound, w.Code)
}

func TestRequireSessionPassesWithValidCookie(t *testing.T) {
	router := testRouter()

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/protected", nil)
	req.AddCookie(sessionCookie(t))
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "farmer 42", w.Body.String())
}

func TestRequireSessionAPIAnswers401(t *testing.T) {
	router := testRouter()

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/api", nil)
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusUnauthorized, w.Code)
	assert.Contains(t, w.Body.String(), "not authenticated")
}

func TestOptionalSession(t *testing.T) {
	router := testRouter()

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/open", nil)
	router.ServeHTTP(w, req)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "farmer 0", w.Body.String())

	w = httptest.NewRecorder()
	req = httptest.NewRequest(http.MethodGet, "/open", nil)
	req.AddCookie(sessionCookie(t))
	router.ServeHTTP(w, req)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "farmer 42", w.Body.String())
}

func TestFlashRoundTrip(t *testing.T) {
	gin.SetMode(gin.TestMode)
	router := gin.New()
	router.GET("/set", func(c *gin.Context) {
		SetFlash(c, "success", "Login successful!")
		c.Status(http.StatusOK)
	})
	router.GET("/pop", func(c *gin.Context) {
		flash := PopFlash(c)
		require.NotNil(t, flash)
		c.String(http.StatusOK, "%s:%s", flash.Level, flash.Message)
	})

	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/set", nil))
	cookies := w.Result().Cookies()
	require.NotEmpty(t, cookies)

	w = httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/pop", nil)
	for _, cookie := range cookies {
		req.AddCookie(cookie)
	}
	router.ServeHTTP(w, req)

	assert.Equal(t, "success:Login successful!", w.Body.String())
}

func TestPopFlashWithoutCookie(t *testing.T) {
	gin.SetMode(gin.TestMode)
	router := gin.New()
	router.GET("/pop", func(c *gin.Context) {
		assert.Nil(t, PopFlash(c))
		c.Status(http.StatusOK)
	})

	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/pop", nil))
	assert.Equal(t, http.StatusOK, w.Code)
}
