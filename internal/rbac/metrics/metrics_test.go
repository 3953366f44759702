package metrics

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
)

func TestRecordDecision(t *testing.T) {
	m := NewMetrics(nil)
	m.RecordDecision("dashboard", "read", true)
	m.RecordDecision("dashboard", "read", false)
	m.RecordDecision("dashboard", "read", false)

	assert.Equal(t, 1.0, testutil.ToFloat64(m.PermissionDecisions.WithLabelValues("dashboard", "read", "allowed")))
	assert.Equal(t, 2.0, testutil.ToFloat64(m.PermissionDecisions.WithLabelValues("dashboard", "read", "denied")))
}

func TestNilMetricsIsNoop(t *testing.T) {
	var m *Metrics
	assert.NotPanics(t, func() {
		m.RecordDecision("x", "read", true)
		m.RecordCascade(false)
		m.RecordRewrites("x", 3)
		m.RecordCacheLookup(true)
		m.RecordValidationFailures("x", []string{"name"})
	})
}

func TestHandlerExposesCounters(t *testing.T) {
	m := NewMetrics(nil)
	m.RecordCascade(true)
	m.RecordRewrites("dashboard", 2)

	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))

	assert.Equal(t, http.StatusOK, rec.Code)
	body := rec.Body.String()
	assert.True(t, strings.Contains(body, `rolegate_role_cascades_total{result="success"} 1`))
	assert.True(t, strings.Contains(body, `rolegate_cascade_rewrites_total{target="dashboard"} 2`))
}
