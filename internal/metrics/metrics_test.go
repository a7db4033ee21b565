package metrics

import (
	"net/http/httptest"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCountersAndHandler(t *testing.T) {
	AnalysesTotal.WithLabelValues("TEST", "ok").Inc()
	FluctuationAlertsTotal.WithLabelValues("TEST").Inc()
	assert.Equal(t, 1.0, testutil.ToFloat64(FluctuationAlertsTotal.WithLabelValues("TEST")))

	rec := httptest.NewRecorder()
	Handler().ServeHTTP(rec, httptest.NewRequest("GET", "/metrics", nil))
	require.Equal(t, 200, rec.Code)
	assert.Contains(t, rec.Body.String(), `pricescope_analyses_total{result="ok",symbol="TEST"} 1`)
}
