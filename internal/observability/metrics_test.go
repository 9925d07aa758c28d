package observability

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"

	"github.com/spec-kit/taskflow/internal/config"
)

func TestNilMetricsIsNoop(t *testing.T) {
	var m *Metrics
	assert.NotPanics(t, func() {
		m.RecordRequest("/", "GET", 200, time.Millisecond)
		m.RecordError("/", "GET", "X")
		m.RecordGuardDecision("allowed")
		m.RecordLogin("success")
		m.RecordRevoked(3)
	})
	assert.Nil(t, m.Registry())
}

func TestMetricsCounters(t *testing.T) {
	m := NewMetrics()

	m.RecordLogin("success")
	m.RecordLogin("success")
	m.RecordLogin("rejected")
	m.RecordGuardDecision("fragment_mismatch")
	m.RecordRevoked(2)
	m.RecordRevoked(0)

	assert.Equal(t, 2.0, testutil.ToFloat64(m.logins.WithLabelValues("success")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.logins.WithLabelValues("rejected")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.guardDecisions.WithLabelValues("fragment_mismatch")))
	assert.Equal(t, 2.0, testutil.ToFloat64(m.revoked))
}

func TestRequestLoggerUsesRouteTemplate(t *testing.T) {
	core, logs := observer.New(zap.InfoLevel)
	m := NewMetrics()

	app := fiber.New()
	app.Use(RequestLogger(zap.New(core), m))
	app.Get("/users/:id", func(c *fiber.Ctx) error { return c.SendStatus(http.StatusAccepted) })

	for _, path := range []string{"/users/1", "/users/2"} {
		resp, err := app.Test(httptest.NewRequest(http.MethodGet, path, nil))
		require.NoError(t, err)
		_ = resp.Body.Close()
	}

	assert.Equal(t, 2.0, testutil.ToFloat64(m.requests.WithLabelValues("/users/:id", "GET", "202")))
	require.Len(t, logs.All(), 2)
	assert.Equal(t, "/users/2", logs.All()[1].ContextMap()["path"])
}

func TestRequestLoggerRecordsTraceID(t *testing.T) {
	core, logs := observer.New(zap.InfoLevel)

	app := fiber.New()
	app.Use(func(c *fiber.Ctx) error {
		c.Set(TraceIDHeader, "trace-123")
		return c.Next()
	})
	app.Use(RequestLogger(zap.New(core), nil))
	app.Get("/ping", func(c *fiber.Ctx) error { return c.SendStatus(http.StatusNoContent) })

	resp, err := app.Test(httptest.NewRequest(http.MethodGet, "/ping", nil))
	require.NoError(t, err)
	_ = resp.Body.Close()

	require.Len(t, logs.All(), 1)
	assert.Equal(t, "trace-123", logs.All()[0].ContextMap()["request_id"])
}

func TestNewLoggerFallsBackToInfo(t *testing.T) {
	logger, err := NewLogger(config.LoggerConfig{Level: "loud"})
	require.NoError(t, err)
	assert.True(t, logger.Core().Enabled(zap.InfoLevel))
	assert.False(t, logger.Core().Enabled(zap.DebugLevel))
}
