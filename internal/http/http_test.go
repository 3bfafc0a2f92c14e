package http

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"os"
	"strings"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/gin-contrib/requestid"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/allisson/mailqueue/internal/config"
	"github.com/allisson/mailqueue/internal/email/domain"
	emailHTTP "github.com/allisson/mailqueue/internal/email/http"
	"github.com/allisson/mailqueue/internal/email/usecase/mocks"
	"github.com/allisson/mailqueue/internal/metrics"
)

func TestMain(m *testing.M) {
	gin.SetMode(gin.TestMode)
	os.Exit(m.Run())
}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func createTestServer() *Server {
	return NewServer(nil, "localhost", 8080, discardLogger())
}

type acceptAll struct{}

func (acceptAll) Verify(uuid.UUID, string) bool { return true }

type discardOpens struct{}

func (discardOpens) Record(uuid.UUID, json.RawMessage) bool { return true }

type routerFixture struct {
	server *Server
	stats  *mocks.MockStatsUseCase
}

func newRouterFixture(t *testing.T, cfg *config.Config) *routerFixture {
	t.Helper()

	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)

	logger := discardLogger()
	stats := &mocks.MockStatsUseCase{}
	handlers := RouteHandlers{
		Message: emailHTTP.NewMessageHandler(&mocks.MockMessageUseCase{}, time.UTC, logger),
		Stats:   emailHTTP.NewStatsHandler(stats, logger),
		Event: emailHTTP.NewEventHandler(
			&mocks.MockIngestionUseCase{}, discardOpens{}, acceptAll{}, nil, logger,
		),
	}

	server := createTestServer()
	server.SetupRouter(ctx, cfg, handlers, nil)
	return &routerFixture{server: server, stats: stats}
}

func serve(router http.Handler, method, path string, body io.Reader) *httptest.ResponseRecorder {
	w := httptest.NewRecorder()
	req := httptest.NewRequest(method, path, body)
	req.RemoteAddr = "192.0.2.10:5000"
	router.ServeHTTP(w, req)
	return w
}

func TestHealthHandler(t *testing.T) {
	server := createTestServer()

	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	c.Request = httptest.NewRequest(http.MethodGet, "/health", nil)

	server.healthHandler(c)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"status":"healthy"}`, w.Body.String())
}

func TestReadinessHandler(t *testing.T) {
	t.Run("NotReady_NilDB", func(t *testing.T) {
		server := createTestServer()

		w := httptest.NewRecorder()
		c, _ := gin.CreateTestContext(w)
		c.Request = httptest.NewRequest(http.MethodGet, "/ready", nil)
		server.readinessHandler(c)

		assert.Equal(t, http.StatusServiceUnavailable, w.Code)
		assert.JSONEq(t, `{"status":"not_ready","components":{"database":"error"}}`, w.Body.String())
	})

	t.Run("Ready_PingSucceeds", func(t *testing.T) {
		db, sqlMock, err := sqlmock.New(sqlmock.MonitorPingsOption(true))
		require.NoError(t, err)
		defer func() { _ = db.Close() }()
		sqlMock.ExpectPing()

		server := NewServer(db, "localhost", 8080, discardLogger())
		w := httptest.NewRecorder()
		c, _ := gin.CreateTestContext(w)
		c.Request = httptest.NewRequest(http.MethodGet, "/ready", nil)
		server.readinessHandler(c)

		assert.Equal(t, http.StatusOK, w.Code)
		assert.JSONEq(t, `{"status":"ready","components":{"database":"ok"}}`, w.Body.String())
		assert.NoError(t, sqlMock.ExpectationsWereMet())
	})

	t.Run("NotReady_PingFails", func(t *testing.T) {
		db, sqlMock, err := sqlmock.New(sqlmock.MonitorPingsOption(true))
		require.NoError(t, err)
		defer func() { _ = db.Close() }()
		sqlMock.ExpectPing().WillReturnError(errors.New("connection refused"))

		server := NewServer(db, "localhost", 8080, discardLogger())
		w := httptest.NewRecorder()
		c, _ := gin.CreateTestContext(w)
		c.Request = httptest.NewRequest(http.MethodGet, "/ready", nil)
		server.readinessHandler(c)

		assert.Equal(t, http.StatusServiceUnavailable, w.Code)
	})
}

func TestCustomLoggerMiddleware(t *testing.T) {
	router := gin.New()
	router.Use(requestid.New(requestid.WithGenerator(func() string {
		return uuid.Must(uuid.NewV7()).String()
	})))
	router.Use(CustomLoggerMiddleware(discardLogger()))
	router.GET("/test", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"message": "test"})
	})

	w := serve(router, http.MethodGet, "/test", nil)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"message":"test"}`, w.Body.String())
}

func TestRecoveryMiddleware(t *testing.T) {
	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(CustomLoggerMiddleware(discardLogger()))
	router.GET("/panic", func(c *gin.Context) {
		panic("test panic")
	})

	w := serve(router, http.MethodGet, "/panic", nil)

	assert.Equal(t, http.StatusInternalServerError, w.Code)
}

func TestSetupRouter_Routes(t *testing.T) {
	f := newRouterFixture(t, &config.Config{})
	f.stats.On("TopicStats", mock.Anything, "promo").Return(&domain.TopicStats{TopicID: "promo"}, nil).Once()
	f.stats.On("SentCount", mock.Anything, 12).Return(int64(7), nil).Once()

	w := serve(f.server.router, http.MethodGet, "/v1/topics/promo", nil)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.NotEmpty(t, w.Header().Get("X-Request-Id"))

	w = serve(f.server.router, http.MethodGet, "/v1/events/counts/sent?hours=12", nil)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"count":7}`, w.Body.String())

	w = serve(f.server.router, http.MethodGet, "/v1/events/open?requestId="+uuid.Must(uuid.NewV7()).String(), nil)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "image/png", w.Header().Get("Content-Type"))

	w = serve(f.server.router, http.MethodPost, "/v1/messages", strings.NewReader(`{"messages":[]}`))
	assert.Equal(t, http.StatusUnprocessableEntity, w.Code)

	w = serve(f.server.router, http.MethodGet, "/nonexistent", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)

	f.stats.AssertExpectations(t)
}

func TestSetupRouter_WebhookRateLimit(t *testing.T) {
	f := newRouterFixture(t, &config.Config{
		RateLimitWebhookEnabled:        true,
		RateLimitWebhookRequestsPerSec: 0.1,
		RateLimitWebhookBurst:          1,
	})
	body := `{"Type":"UnsubscribeConfirmation"}`

	w := serve(f.server.router, http.MethodPost, "/v1/events/results", strings.NewReader(body))
	assert.Equal(t, http.StatusOK, w.Code)

	w = serve(f.server.router, http.MethodPost, "/v1/events/results", strings.NewReader(body))
	assert.Equal(t, http.StatusTooManyRequests, w.Code)

	// Other routes are not limited.
	w = serve(f.server.router, http.MethodGet, "/health", nil)
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestServer_StartWithoutRouter(t *testing.T) {
	server := createTestServer()
	assert.Error(t, server.Start(context.Background()))
}

func TestServer_ShutdownGracefully(t *testing.T) {
	server := NewServer(nil, "127.0.0.1", 0, discardLogger())
	server.SetupRouter(context.Background(), &config.Config{}, RouteHandlers{
		Message: emailHTTP.NewMessageHandler(&mocks.MockMessageUseCase{}, time.UTC, discardLogger()),
		Stats:   emailHTTP.NewStatsHandler(&mocks.MockStatsUseCase{}, discardLogger()),
		Event: emailHTTP.NewEventHandler(
			&mocks.MockIngestionUseCase{}, discardOpens{}, acceptAll{}, nil, discardLogger(),
		),
	}, nil)

	errChan := make(chan error, 1)
	go func() {
		errChan <- server.Start(context.Background())
	}()

	time.Sleep(100 * time.Millisecond)

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	require.NoError(t, server.Shutdown(shutdownCtx))

	select {
	case err := <-errChan:
		assert.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("server did not stop")
	}
}

func TestMetricsServer_Endpoints(t *testing.T) {
	provider, err := metrics.NewProvider("test_app")
	require.NoError(t, err)
	defer func() {
		assert.NoError(t, provider.Shutdown(context.Background()))
	}()

	metricsServer := NewMetricsServer("localhost", 8081, discardLogger(), provider)
	require.NotNil(t, metricsServer)

	w := serve(metricsServer.GetHandler(), http.MethodGet, "/metrics", nil)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Header().Get("Content-Type"), "text/plain")
}

func TestMetricsServer_NilProvider(t *testing.T) {
	metricsServer := NewMetricsServer("localhost", 8081, discardLogger(), nil)

	w := serve(metricsServer.GetHandler(), http.MethodGet, "/metrics", nil)

	assert.Equal(t, http.StatusNotFound, w.Code)
}
