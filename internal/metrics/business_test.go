package metrics

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// assertBizMetricLine matches a metric line by name, partial labels and value.
// The exporter adds OTel scope labels, hence the regex.
func assertBizMetricLine(t *testing.T, output, name, labels, value string) {
	t.Helper()
	pattern := name + `\{[^}]*` + labels + `[^}]*\} ` + value
	assert.Regexp(t, pattern, output)
}

func scrape(t *testing.T, provider *Provider) string {
	t.Helper()
	w := httptest.NewRecorder()
	provider.Handler().ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	return w.Body.String()
}

func TestNewNoOpBusinessMetrics(t *testing.T) {
	noOpMetrics := NewNoOpBusinessMetrics()

	assert.IsType(t, &NoOpBusinessMetrics{}, noOpMetrics)
	noOpMetrics.RecordOperation(context.Background(), "email", "dispatch_tick", "success")
	noOpMetrics.RecordDuration(context.Background(), "email", "dispatch_tick", time.Second, "error")
	noOpMetrics.RecordItems(context.Background(), "email", "dispatch_tick", "claimed", 3)
}

func TestBusinessMetrics_Integration(t *testing.T) {
	provider, err := NewProvider("integration_test")
	require.NoError(t, err)
	defer func() {
		assert.NoError(t, provider.Shutdown(context.Background()))
	}()

	bm, err := NewBusinessMetrics(provider.MeterProvider(), "integration_test")
	require.NoError(t, err)

	ctx := context.Background()
	bm.RecordOperation(ctx, "email", "dispatch_tick", "success")
	bm.RecordOperation(ctx, "email", "dispatch_tick", "success")
	bm.RecordOperation(ctx, "email", "ingest_result", "error")
	bm.RecordDuration(ctx, "email", "dispatch_tick", 50*time.Millisecond, "success")
	bm.RecordDuration(ctx, "email", "dispatch_tick", 70*time.Millisecond, "success")
	bm.RecordItems(ctx, "email", "dispatch_tick", "claimed", 5)
	bm.RecordItems(ctx, "email", "dispatch_tick", "claimed", 2)
	bm.RecordItems(ctx, "email", "dispatch_tick", "publish_failed", 0)

	output := scrape(t, provider)

	assertBizMetricLine(t, output,
		`integration_test_operations_total`,
		`domain="email".*operation="dispatch_tick".*status="success"`,
		`2`,
	)
	assertBizMetricLine(t, output,
		`integration_test_operations_total`,
		`domain="email".*operation="ingest_result".*status="error"`,
		`1`,
	)
	assertBizMetricLine(t, output,
		`integration_test_operation_duration_seconds_count`,
		`domain="email".*operation="dispatch_tick".*status="success"`,
		`2`,
	)
	assertBizMetricLine(t, output,
		`integration_test_items_total`,
		`domain="email".*operation="dispatch_tick".*outcome="claimed"`,
		`7`,
	)
	assert.NotContains(t, output, `outcome="publish_failed"`)
}
