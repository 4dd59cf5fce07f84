package metrics

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/smallbiznis/tutorbase/internal/errs"
	"github.com/stretchr/testify/require"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/metric/metricdata"
	"gorm.io/gorm"
)

func TestClassifyJobReason(t *testing.T) {
	cases := []struct {
		name string
		err  error
		want string
	}{
		{name: "deadline", err: context.DeadlineExceeded, want: JobReasonDeadlineExceeded},
		{name: "forbidden", err: errs.ErrForbidden, want: JobReasonForbidden},
		{name: "db_lock_timeout", err: &pgconn.PgError{Code: "55P03"}, want: JobReasonDBLockTimeout},
		{name: "serialization_failure", err: &pgconn.PgError{Code: "40001"}, want: JobReasonSerializationFailure},
		{name: "unique_violation", err: gorm.ErrDuplicatedKey, want: JobReasonUniqueViolation},
		{name: "unknown", err: errors.New("boom"), want: JobReasonUnknown},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			require.Equal(t, tc.want, ClassifyJobReason(tc.err))
		})
	}
}

func TestCountersRecordDomainEvents(t *testing.T) {
	m, err := New(prometheus.NewRegistry())
	require.NoError(t, err)

	m.IncIdentifierAllocation("CP", OutcomeAllocated)
	m.IncIdentifierAllocation("CP", OutcomeAllocated)
	m.IncClaimTransition("draft", "submitted")
	m.IncPremiumPayment("upi")
	m.IncAuditEntry("claim", nil)
	m.IncAuditEntry("claim", errors.New("disk full"))
	m.AddPoliciesExpired(3)
	m.AddPoliciesExpired(0)
	m.ObserveJob("expire_policies", 20*time.Millisecond, context.DeadlineExceeded)

	require.Equal(t, 2.0, testutil.ToFloat64(m.identifierAllocations.WithLabelValues("CP", OutcomeAllocated)))
	require.Equal(t, 1.0, testutil.ToFloat64(m.claimTransitions.WithLabelValues("draft", "submitted")))
	require.Equal(t, 1.0, testutil.ToFloat64(m.premiumPayments.WithLabelValues("upi")))
	require.Equal(t, 1.0, testutil.ToFloat64(m.auditEntries.WithLabelValues("claim", "written")))
	require.Equal(t, 1.0, testutil.ToFloat64(m.auditEntries.WithLabelValues("claim", "failed")))
	require.Equal(t, 3.0, testutil.ToFloat64(m.policiesExpired))
	require.Equal(t, 1.0, testutil.ToFloat64(m.jobRuns.WithLabelValues("expire_policies")))
	require.Equal(t, 1.0, testutil.ToFloat64(m.jobErrors.WithLabelValues("expire_policies", JobReasonDeadlineExceeded)))
}

func TestNilMetricsIsNoop(t *testing.T) {
	var m *Metrics
	require.NotPanics(t, func() {
		m.IncIdentifierAllocation("CP", OutcomeExhausted)
		m.IncClaimTransition("a", "b")
		m.ObserveJob("job", time.Second, errors.New("x"))
	})
}

func TestNewRejectsDuplicateRegistration(t *testing.T) {
	reg := prometheus.NewRegistry()
	_, err := New(reg)
	require.NoError(t, err)
	_, err = New(reg)
	require.Error(t, err)
}

func TestGinMiddlewareCountsRoutes(t *testing.T) {
	gin.SetMode(gin.TestMode)
	m, err := New(prometheus.NewRegistry())
	require.NoError(t, err)

	r := gin.New()
	r.Use(m.GinMiddleware())
	r.GET("/api/insurers/:id", func(c *gin.Context) { c.Status(http.StatusNotFound) })

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/insurers/42", nil))

	require.Equal(t, 1.0, testutil.ToFloat64(m.httpRequests.WithLabelValues(http.MethodGet, "/api/insurers/:id", "404")))
}

func TestBindMirrorsCountersToMeterProvider(t *testing.T) {
	m, err := New(prometheus.NewRegistry())
	require.NoError(t, err)

	reader := sdkmetric.NewManualReader()
	provider := sdkmetric.NewMeterProvider(sdkmetric.WithReader(reader))
	require.NoError(t, m.Bind(provider, "tutorbase-test"))

	m.IncPremiumPayment("upi")
	m.IncPremiumPayment("cash")
	m.AddPoliciesExpired(2)

	var rm metricdata.ResourceMetrics
	require.NoError(t, reader.Collect(context.Background(), &rm))

	totals := map[string]int64{}
	for _, scope := range rm.ScopeMetrics {
		for _, metric := range scope.Metrics {
			sum, ok := metric.Data.(metricdata.Sum[int64])
			require.True(t, ok, metric.Name)
			for _, point := range sum.DataPoints {
				totals[metric.Name] += point.Value
			}
		}
	}
	require.Equal(t, int64(2), totals["tutorbase_premium_payments"])
	require.Equal(t, int64(2), totals["tutorbase_customer_policies_expired"])
	require.Equal(t, 1.0, testutil.ToFloat64(m.premiumPayments.WithLabelValues("upi")))
}

func TestNewProviderDisabledIsNoop(t *testing.T) {
	provider, err := NewProvider(nil, Config{Enabled: false}, nil)
	require.NoError(t, err)
	require.NotNil(t, provider)

	m, err := New(prometheus.NewRegistry())
	require.NoError(t, err)
	require.NoError(t, m.Bind(provider, ""))
	require.NotPanics(t, func() { m.IncClaimTransition("draft", "submitted") })
}
