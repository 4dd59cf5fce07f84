package metrics

import (
	"context"
	"errors"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/smallbiznis/tutorbase/internal/errs"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
	"gorm.io/gorm"
)

const (
	OutcomeAllocated = "allocated"
	OutcomeRetried   = "retried"
	OutcomeExhausted = "exhausted"
)

const (
	JobReasonDeadlineExceeded     = "deadline_exceeded"
	JobReasonDBLockTimeout        = "db_lock_timeout"
	JobReasonSerializationFailure = "serialization_failure"
	JobReasonUniqueViolation      = "unique_violation"
	JobReasonForbidden            = "forbidden"
	JobReasonUnknown              = "unknown"
)

// Metrics holds the Prometheus collectors for the insurance workflows.
// A nil *Metrics is valid and records nothing.
type Metrics struct {
	identifierAllocations *prometheus.CounterVec
	claimTransitions      *prometheus.CounterVec
	premiumPayments       *prometheus.CounterVec
	auditEntries          *prometheus.CounterVec
	jobRuns               *prometheus.CounterVec
	jobErrors             *prometheus.CounterVec
	jobDuration           *prometheus.HistogramVec
	policiesExpired       prometheus.Counter
	httpRequests          *prometheus.CounterVec
	httpDuration          *prometheus.HistogramVec

	otlp *otlpInstruments
}

// New registers the collectors with reg.
func New(reg prometheus.Registerer) (*Metrics, error) {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}

	m := &Metrics{
		identifierAllocations: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "tutorbase_identifier_allocations_total",
			Help: "Human-readable identifier allocations by prefix and outcome.",
		}, []string{"prefix", "outcome"}),
		claimTransitions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "tutorbase_claim_transitions_total",
			Help: "Claim status transitions.",
		}, []string{"from", "to"}),
		premiumPayments: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "tutorbase_premium_payments_total",
			Help: "Premium payments recorded by payment mode.",
		}, []string{"mode"}),
		auditEntries: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "tutorbase_audit_entries_total",
			Help: "Audit entries written by entity type and outcome.",
		}, []string{"entity_type", "outcome"}),
		jobRuns: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "tutorbase_sweeper_job_runs_total",
			Help: "Sweeper job runs by name.",
		}, []string{"job"}),
		jobErrors: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "tutorbase_sweeper_job_errors_total",
			Help: "Sweeper job errors by low-cardinality reason.",
		}, []string{"job", "reason"}),
		jobDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "tutorbase_sweeper_job_duration_seconds",
			Help:    "Sweeper job latency.",
			Buckets: []float64{0.01, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30, 60},
		}, []string{"job"}),
		policiesExpired: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "tutorbase_customer_policies_expired_total",
			Help: "Customer policies moved to expired by the sweeper.",
		}),
		httpRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "tutorbase_http_requests_total",
			Help: "HTTP requests by route and status code.",
		}, []string{"method", "route", "status_code"}),
		httpDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "tutorbase_http_request_duration_seconds",
			Help:    "HTTP request latency by route.",
			Buckets: prometheus.DefBuckets,
		}, []string{"method", "route"}),
	}

	for _, c := range []prometheus.Collector{
		m.identifierAllocations,
		m.claimTransitions,
		m.premiumPayments,
		m.auditEntries,
		m.jobRuns,
		m.jobErrors,
		m.jobDuration,
		m.policiesExpired,
		m.httpRequests,
		m.httpDuration,
	} {
		if err := reg.Register(c); err != nil {
			return nil, err
		}
	}
	return m, nil
}

func (m *Metrics) IncIdentifierAllocation(prefix, outcome string) {
	if m == nil {
		return
	}
	m.identifierAllocations.WithLabelValues(strings.TrimSpace(prefix), outcome).Inc()
}

func (m *Metrics) IncClaimTransition(from, to string) {
	if m == nil {
		return
	}
	m.claimTransitions.WithLabelValues(from, to).Inc()
	if m.otlp != nil {
		m.otlp.claimTransitions.Add(context.Background(), 1,
			metric.WithAttributes(attribute.String("from", from), attribute.String("to", to)))
	}
}

func (m *Metrics) IncPremiumPayment(mode string) {
	if m == nil {
		return
	}
	m.premiumPayments.WithLabelValues(mode).Inc()
	if m.otlp != nil {
		m.otlp.premiumPayments.Add(context.Background(), 1, metric.WithAttributes(attribute.String("mode", mode)))
	}
}

func (m *Metrics) IncAuditEntry(entityType string, err error) {
	if m == nil {
		return
	}
	outcome := "written"
	if err != nil {
		outcome = "failed"
	}
	m.auditEntries.WithLabelValues(entityType, outcome).Inc()
}

// ObserveJob records one sweeper job execution.
func (m *Metrics) ObserveJob(job string, duration time.Duration, err error) {
	if m == nil {
		return
	}
	m.jobRuns.WithLabelValues(job).Inc()
	m.jobDuration.WithLabelValues(job).Observe(duration.Seconds())
	if err != nil {
		m.jobErrors.WithLabelValues(job, ClassifyJobReason(err)).Inc()
	}
}

func (m *Metrics) AddPoliciesExpired(count int) {
	if m == nil || count <= 0 {
		return
	}
	m.policiesExpired.Add(float64(count))
	if m.otlp != nil {
		m.otlp.policiesExpired.Add(context.Background(), int64(count))
	}
}

// GinMiddleware records request counts and latency per route.
func (m *Metrics) GinMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		if m == nil {
			c.Next()
			return
		}
		start := time.Now()
		c.Next()

		route := c.FullPath()
		if route == "" {
			route = "unknown"
		}
		status := c.Writer.Status()
		if status == 0 {
			status = http.StatusOK
		}
		m.httpRequests.WithLabelValues(c.Request.Method, route, strconv.Itoa(status)).Inc()
		m.httpDuration.WithLabelValues(c.Request.Method, route).Observe(time.Since(start).Seconds())
	}
}

// ClassifyJobReason maps an error to a low-cardinality label value.
func ClassifyJobReason(err error) string {
	if err == nil {
		return JobReasonUnknown
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return JobReasonDeadlineExceeded
	}
	if errors.Is(err, errs.ErrForbidden) {
		return JobReasonForbidden
	}
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return JobReasonUniqueViolation
	}
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		switch pgErr.Code {
		case "55P03":
			return JobReasonDBLockTimeout
		case "40001":
			return JobReasonSerializationFailure
		case "23505":
			return JobReasonUniqueViolation
		}
	}
	return JobReasonUnknown
}
