package middleware_test

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"

	"github.com/yeisme/docvault/pkg/configs"
	"github.com/yeisme/docvault/pkg/middleware"
)

func init() { gin.SetMode(gin.TestMode) }

func serve(e *gin.Engine, path string) int {
	w := httptest.NewRecorder()
	e.ServeHTTP(w, httptest.NewRequest(http.MethodGet, path, nil))

	return w.Code
}

func TestRateLimitGlobal(t *testing.T) {
	e := gin.New()
	e.Use(middleware.RateLimitMiddleware(configs.RateLimitConfig{Enabled: true, RPS: 1, Burst: 2, Key: "global"}))
	e.GET("/", func(c *gin.Context) { c.Status(http.StatusOK) })

	assert.Equal(t, http.StatusOK, serve(e, "/"))
	assert.Equal(t, http.StatusOK, serve(e, "/"))
	assert.Equal(t, http.StatusTooManyRequests, serve(e, "/"))
}

func TestRateLimitPerHeaderAndExemptPaths(t *testing.T) {
	e := gin.New()
	e.Use(middleware.RateLimitMiddleware(configs.RateLimitConfig{
		Enabled: true, RPS: 1, Burst: 1, Key: "header:X-Client", ExemptPaths: []string{"/health"},
	}))
	e.GET("/", func(c *gin.Context) { c.Status(http.StatusOK) })
	e.GET("/health", func(c *gin.Context) { c.Status(http.StatusOK) })

	call := func(client string) int {
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		req.Header.Set("X-Client", client)

		w := httptest.NewRecorder()
		e.ServeHTTP(w, req)

		return w.Code
	}

	assert.Equal(t, http.StatusOK, call("a"))
	assert.Equal(t, http.StatusTooManyRequests, call("a"))
	assert.Equal(t, http.StatusOK, call("b"))

	for range 3 {
		assert.Equal(t, http.StatusOK, serve(e, "/health"))
	}
}

func TestRateLimitDisabled(t *testing.T) {
	e := gin.New()
	e.Use(middleware.RateLimitMiddleware(configs.RateLimitConfig{Enabled: false, RPS: 1, Burst: 1}))
	e.GET("/", func(c *gin.Context) { c.Status(http.StatusOK) })

	for range 5 {
		assert.Equal(t, http.StatusOK, serve(e, "/"))
	}
}

func TestCircuitBreakerOpensOnServerErrors(t *testing.T) {
	e := gin.New()
	e.Use(middleware.CircuitBreakerMiddleware(configs.CircuitBreakerConfig{
		Enabled:           true,
		FailureRate:       0.5,
		MinRequests:       2,
		Interval:          time.Minute,
		OpenTimeout:       time.Minute,
		MaxRequestsInHalf: 1,
	}))
	e.GET("/fail", func(c *gin.Context) { c.Status(http.StatusInternalServerError) })

	assert.Equal(t, http.StatusInternalServerError, serve(e, "/fail"))
	assert.Equal(t, http.StatusInternalServerError, serve(e, "/fail"))
	assert.Equal(t, http.StatusServiceUnavailable, serve(e, "/fail"))
}

func TestPrometheusUsesRouteTemplate(t *testing.T) {
	e := gin.New()
	e.Use(middleware.PrometheusMiddleware(), middleware.GinLoggerMiddleware())
	e.GET("/items/:id", func(c *gin.Context) { c.Status(http.StatusNoContent) })

	assert.Equal(t, http.StatusNoContent, serve(e, "/items/abc"))
	assert.Equal(t, http.StatusNotFound, serve(e, "/unknown"))
}
