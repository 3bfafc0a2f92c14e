package http

import (
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const dashboardOrigin = "https://dashboard.mailqueue.test"

// newStatsRouter mounts a stand-in for the statistics route behind the CORS
// middleware built from allowOrigins.
func newStatsRouter(t *testing.T, allowOrigins string) *gin.Engine {
	t.Helper()
	gin.SetMode(gin.TestMode)

	middleware := createCORSMiddleware(true, allowOrigins, slog.New(slog.NewTextHandler(io.Discard, nil)))
	require.NotNil(t, middleware)

	router := gin.New()
	router.Use(middleware)
	router.GET("/v1/events/counts", func(c *gin.Context) {
		c.Header("X-Request-Id", "req-1")
		c.JSON(http.StatusOK, gin.H{"sent": 1})
	})
	return router
}

func TestCreateCORSMiddleware_Disabled(t *testing.T) {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))

	tests := []struct {
		name    string
		enabled bool
		origins string
	}{
		{name: "feature off", enabled: false, origins: dashboardOrigin},
		{name: "no origins", enabled: true, origins: ""},
		{name: "only separators", enabled: true, origins: " , ,"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Nil(t, createCORSMiddleware(tt.enabled, tt.origins, logger))
		})
	}
}

func TestCORS_DashboardReadsStats(t *testing.T) {
	router := newStatsRouter(t, dashboardOrigin)

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/v1/events/counts?hours=24", nil)
	req.Header.Set("Origin", dashboardOrigin)
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, dashboardOrigin, w.Header().Get("Access-Control-Allow-Origin"))
	exposed := w.Header().Get("Access-Control-Expose-Headers")
	assert.Contains(t, exposed, "X-Request-Id")
	assert.Contains(t, exposed, "Retry-After")
}

func TestCORS_PreflightAllowsOnlyServiceMethods(t *testing.T) {
	router := newStatsRouter(t, dashboardOrigin)

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodOptions, "/v1/events/counts", nil)
	req.Header.Set("Origin", dashboardOrigin)
	req.Header.Set("Access-Control-Request-Method", http.MethodGet)
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusNoContent, w.Code)
	methods := w.Header().Get("Access-Control-Allow-Methods")
	assert.Contains(t, methods, "GET")
	assert.Contains(t, methods, "POST")
	assert.NotContains(t, methods, "DELETE")
	assert.NotContains(t, methods, "PUT")
	assert.Contains(t, w.Header().Get("Access-Control-Allow-Headers"), "Content-Type")
	assert.Equal(t, "43200", w.Header().Get("Access-Control-Max-Age"))
}

func TestCORS_UnlistedOriginIsRejected(t *testing.T) {
	router := newStatsRouter(t, dashboardOrigin+", https://ops.mailqueue.test")

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/v1/events/counts", nil)
	req.Header.Set("Origin", "https://evil.test")
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusForbidden, w.Code)
	assert.Empty(t, w.Header().Get("Access-Control-Allow-Origin"))
}

func TestParseOrigins(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  []string
	}{
		{name: "empty", input: "", want: nil},
		{
			name:  "trims whitespace",
			input: " https://dashboard.mailqueue.test , https://ops.mailqueue.test ",
			want:  []string{"https://dashboard.mailqueue.test", "https://ops.mailqueue.test"},
		},
		{
			name:  "drops blank entries",
			input: "https://dashboard.mailqueue.test,, ,",
			want:  []string{"https://dashboard.mailqueue.test"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, parseOrigins(tt.input))
		})
	}
}
