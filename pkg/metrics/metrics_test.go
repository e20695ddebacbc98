package metrics_test

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/yeisme/docvault/pkg/configs"
	"github.com/yeisme/docvault/pkg/metrics"
)

func TestMetricsEndpoint(t *testing.T) {
	gin.SetMode(gin.TestMode)

	cfg := configs.MetricsConfig{Enabled: true, Path: "/metrics"}
	require.NoError(t, metrics.InitMetrics(cfg))
	require.NoError(t, metrics.InitMetrics(cfg))

	metrics.ItemsCreated.WithLabelValues("FOLDER").Inc()

	engine := gin.New()
	require.NoError(t, metrics.StartMetricsServer(cfg, engine))

	w := httptest.NewRecorder()
	engine.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/metrics", nil))

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "docvault_items_created_total")
}

func TestMetricsDisabled(t *testing.T) {
	engine := gin.New()
	require.NoError(t, metrics.StartMetricsServer(configs.MetricsConfig{}, engine))

	w := httptest.NewRecorder()
	engine.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	assert.Equal(t, http.StatusNotFound, w.Code)
}
