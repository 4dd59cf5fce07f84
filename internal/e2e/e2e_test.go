package e2e

import (
	"bytes"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/smallbiznis/tutorbase/internal/access"
	"github.com/smallbiznis/tutorbase/internal/clock"
	"github.com/smallbiznis/tutorbase/internal/config"
	"github.com/smallbiznis/tutorbase/internal/lock"
	"github.com/smallbiznis/tutorbase/internal/migration"
	obsmetrics "github.com/smallbiznis/tutorbase/internal/observability/metrics"
	"github.com/smallbiznis/tutorbase/internal/scheduler"
	"github.com/smallbiznis/tutorbase/internal/server"
	"github.com/smallbiznis/tutorbase/internal/testkit"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/fx"
	"go.uber.org/fx/fxtest"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest"
	"gorm.io/gorm"
)

const jwtSecret = "e2e-secret"

type testEnv struct {
	db     *gorm.DB
	clock  *clock.FakeClock
	sched  *scheduler.Scheduler
	server *httptest.Server
	client *http.Client
}

type envelope struct {
	Success    bool            `json:"success"`
	Data       json.RawMessage `json:"data"`
	Pagination json.RawMessage `json:"pagination"`
	Error      struct {
		Type    string `json:"type"`
		Code    string `json:"code"`
		Message string `json:"message"`
		Errors  []struct {
			Field string `json:"field"`
			Code  string `json:"code"`
		} `json:"errors"`
	} `json:"error"`
}

// startEnv boots the production module graph on an in-memory database.
func startEnv(t *testing.T) *testEnv {
	t.Helper()
	gin.SetMode(gin.TestMode)

	t.Setenv("AUTH_JWT_SECRET", jwtSecret)
	t.Setenv("HTTP_ADDR", "127.0.0.1:0")
	t.Setenv("SWEEPER_ENABLED", "false")
	t.Setenv("DEFAULT_CURRENCY", "INR")
	t.Setenv("IDENTIFIER_COUNTER", "count")
	t.Setenv("REDIS_ADDR", "")

	env := &testEnv{
		db:    testkit.OpenDB(t),
		clock: clock.NewFakeClock(time.Date(2024, 3, 12, 9, 0, 0, 0, time.UTC)),
	}

	var srv *server.Server
	app := fxtest.New(t,
		fx.NopLogger,
		fx.Supply(env.db),
		fx.Supply(zaptest.NewLogger(t, zaptest.Level(zap.WarnLevel))),
		fx.Provide(func() (*obsmetrics.Metrics, error) {
			return obsmetrics.New(prometheus.NewRegistry())
		}),
		fx.Provide(func() clock.Clock { return env.clock }),
		fx.Provide(func() (*snowflake.Node, error) { return snowflake.NewNode(1) }),
		config.Module,
		migration.Module,
		lock.Module,
		server.Module,
		scheduler.Module,
		fx.Populate(&srv, &env.sched),
	)
	app.RequireStart()
	t.Cleanup(app.RequireStop)

	env.server = httptest.NewServer(srv.Engine())
	t.Cleanup(env.server.Close)
	env.client = &http.Client{Timeout: 15 * time.Second}
	return env
}

func token(t *testing.T, subject, role string) string {
	t.Helper()
	claims := server.Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   subject,
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
		},
		Role: role,
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(jwtSecret))
	require.NoError(t, err)
	return signed
}

func (e *testEnv) doJSON(t *testing.T, method, path, bearer string, payload any) (int, envelope) {
	t.Helper()

	var body io.Reader
	if payload != nil {
		raw, err := json.Marshal(payload)
		require.NoError(t, err)
		body = bytes.NewReader(raw)
	}

	req, err := http.NewRequest(method, e.server.URL+path, body)
	require.NoError(t, err)
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if bearer != "" {
		req.Header.Set("Authorization", "Bearer "+bearer)
	}

	resp, err := e.client.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	require.NoError(t, err)

	var out envelope
	if len(data) > 0 {
		require.NoError(t, json.Unmarshal(data, &out), string(data))
	}
	return resp.StatusCode, out
}

// mustJSON performs the request and fails unless it returns want.
func (e *testEnv) mustJSON(t *testing.T, want int, method, path, bearer string, payload any) map[string]any {
	t.Helper()
	status, out := e.doJSON(t, method, path, bearer, payload)
	require.Equal(t, want, status, "%s %s: %+v", method, path, out.Error)
	if len(out.Data) == 0 {
		return nil
	}
	var data map[string]any
	require.NoError(t, json.Unmarshal(out.Data, &data))
	return data
}

func listOf(t *testing.T, out envelope) []map[string]any {
	t.Helper()
	var items []map[string]any
	require.NoError(t, json.Unmarshal(out.Data, &items))
	return items
}

func countRows(t *testing.T, db *gorm.DB, query string, args ...any) int64 {
	t.Helper()
	var count int64
	require.NoError(t, db.Raw(query, args...).Scan(&count).Error)
	return count
}

type actors struct {
	staff, other, moderator, admin string
}

func newActors(t *testing.T) actors {
	return actors{
		staff:     token(t, testkit.StaffID, "staff"),
		other:     token(t, testkit.OtherStaff, "staff"),
		moderator: token(t, testkit.ModeratorID, "moderator"),
		admin:     token(t, testkit.AdminID, "admin"),
	}
}

type catalog struct {
	insurerID string
	policyID  string
}

func (e *testEnv) createCatalog(t *testing.T, as actors) catalog {
	t.Helper()
	insurer := e.mustJSON(t, http.StatusCreated, http.MethodPost, "/api/insurers", as.moderator, map[string]any{
		"name":  "Acme Assurance",
		"code":  "ACM",
		"email": "claims@acme.example",
	})
	policy := e.mustJSON(t, http.StatusCreated, http.MethodPost, "/api/policies", as.moderator, map[string]any{
		"insurerId":        insurer["id"],
		"name":             "Student Cover",
		"premiumAmount":    "500.00",
		"premiumFrequency": "monthly",
		"termMonths":       12,
	})
	return catalog{insurerID: insurer["id"].(string), policyID: policy["id"].(string)}
}

func (e *testEnv) createBinding(t *testing.T, bearer, policyID, startDate string) map[string]any {
	t.Helper()
	customer := e.mustJSON(t, http.StatusCreated, http.MethodPost, "/api/customers", bearer, map[string]any{
		"name":  "Asha Rao",
		"email": "asha@example.com",
	})
	return e.mustJSON(t, http.StatusCreated, http.MethodPost, "/api/customer-policies", bearer, map[string]any{
		"customerId": customer["id"],
		"policyId":   policyID,
		"startDate":  startDate,
	})
}

func TestE2E_PolicyLifecycle(t *testing.T) {
	env := startEnv(t)
	as := newActors(t)
	cat := env.createCatalog(t, as)

	binding := env.createBinding(t, as.staff, cat.policyID, "2024-01-01")
	bindingID := binding["id"].(string)
	assert.Equal(t, "INS-ACM-2024-0001", binding["policyNumber"])
	assert.Equal(t, "active", binding["status"])
	assert.True(t, strings.HasPrefix(binding["nextPremiumDueDate"].(string), "2024-02-01"))

	payment := env.mustJSON(t, http.StatusCreated, http.MethodPost, "/api/policy-payments", as.staff, map[string]any{
		"customerPolicyId": bindingID,
		"amount":           "500.00",
		"paymentDate":      "2024-01-31",
		"modeOfPayment":    "upi",
	})
	assert.Equal(t, "TXN-20240131-0001", payment["transactionId"])

	binding = env.mustJSON(t, http.StatusOK, http.MethodGet, "/api/customer-policies/"+bindingID, as.staff, nil)
	assert.True(t, strings.HasPrefix(binding["nextPremiumDueDate"].(string), "2024-02-29"),
		"due date %v", binding["nextPremiumDueDate"])

	claim := env.mustJSON(t, http.StatusCreated, http.MethodPost, "/api/claims", as.staff, map[string]any{
		"customerPolicyId": bindingID,
		"amountClaimed":    "1200.50",
		"dateOfEvent":      "2024-03-01",
		"notes":            "fractured wrist at football practice",
	})
	claimID := claim["id"].(string)
	assert.Equal(t, "CLM-202403-0001", claim["claimNumber"])
	assert.Equal(t, "draft", claim["status"])
	assert.Nil(t, claim["handledBy"])

	transition := "/api/claims/" + claimID + "/transition"
	claim = env.mustJSON(t, http.StatusOK, http.MethodPost, transition, as.staff, map[string]any{"status": "submitted"})
	assert.Equal(t, "submitted", claim["status"])

	claim = env.mustJSON(t, http.StatusOK, http.MethodPost, transition, as.moderator, map[string]any{"status": "under_review"})
	assert.Equal(t, "under_review", claim["status"])
	assert.Equal(t, testkit.ModeratorID, claim["handledBy"])

	status, out := env.doJSON(t, http.MethodPost, transition, as.moderator, map[string]any{
		"status":         "approved",
		"amountApproved": "5000.00",
	})
	assert.Equal(t, http.StatusBadRequest, status)
	assert.Equal(t, "validation_error", out.Error.Type)

	claim = env.mustJSON(t, http.StatusOK, http.MethodPost, transition, as.moderator, map[string]any{
		"status":         "approved",
		"amountApproved": "1000.00",
	})
	assert.Equal(t, "approved", claim["status"])
	assert.NotNil(t, claim["amountApproved"])

	claim = env.mustJSON(t, http.StatusOK, http.MethodPost, transition, as.moderator, map[string]any{"status": "settled"})
	assert.Equal(t, "settled", claim["status"])

	status, out = env.doJSON(t, http.MethodPost, transition, as.moderator, map[string]any{"status": "under_review"})
	assert.Equal(t, http.StatusConflict, status)
	assert.Equal(t, "invalid_transition", out.Error.Type)

	status, out = env.doJSON(t, http.MethodGet, "/api/audit-logs?entityType=claim&entityId="+claimID, as.admin, nil)
	require.Equal(t, http.StatusOK, status)
	logs := listOf(t, out)
	require.Len(t, logs, 5)
	actions := map[string]int{}
	for _, entry := range logs {
		actions[entry["action"].(string)]++
	}
	assert.Equal(t, map[string]int{"create": 1, "transition": 4}, actions)

	status, _ = env.doJSON(t, http.MethodGet, "/api/audit-logs", as.moderator, nil)
	assert.Equal(t, http.StatusForbidden, status)
}

// TestE2E_AcmeBasicWalkthrough pays on the first due date and then walks a
// claim past the one step the workflow refuses: approval needs a review.
func TestE2E_AcmeBasicWalkthrough(t *testing.T) {
	env := startEnv(t)
	as := newActors(t)

	insurer := env.mustJSON(t, http.StatusCreated, http.MethodPost, "/api/insurers", as.moderator, map[string]any{
		"name":     "Acme",
		"code":     "ACM",
		"isActive": true,
	})
	policy := env.mustJSON(t, http.StatusCreated, http.MethodPost, "/api/policies", as.moderator, map[string]any{
		"insurerId":        insurer["id"],
		"name":             "Basic",
		"premiumAmount":    1000,
		"premiumFrequency": "monthly",
	})

	binding := env.createBinding(t, as.staff, policy["id"].(string), "2024-01-01")
	bindingID := binding["id"].(string)
	assert.Equal(t, "INS-ACM-2024-0001", binding["policyNumber"])
	assert.True(t, strings.HasPrefix(binding["nextPremiumDueDate"].(string), "2024-02-01"),
		"due date %v", binding["nextPremiumDueDate"])

	env.mustJSON(t, http.StatusCreated, http.MethodPost, "/api/policy-payments", as.staff, map[string]any{
		"customerPolicyId": bindingID,
		"amount":           1000,
		"paymentDate":      "2024-02-01",
	})
	binding = env.mustJSON(t, http.StatusOK, http.MethodGet, "/api/customer-policies/"+bindingID, as.staff, nil)
	assert.True(t, strings.HasPrefix(binding["nextPremiumDueDate"].(string), "2024-03-01"),
		"due date %v", binding["nextPremiumDueDate"])

	claim := env.mustJSON(t, http.StatusCreated, http.MethodPost, "/api/claims", as.staff, map[string]any{
		"customerPolicyId": bindingID,
		"status":           "draft",
	})
	claimID := claim["id"].(string)
	transition := "/api/claims/" + claimID + "/transition"

	claim = env.mustJSON(t, http.StatusOK, http.MethodPost, transition, as.staff, map[string]any{"status": "submitted"})
	assert.Equal(t, "submitted", claim["status"])

	status, out := env.doJSON(t, http.MethodPost, transition, as.moderator, map[string]any{"status": "approved"})
	assert.Equal(t, http.StatusConflict, status)
	assert.Equal(t, "invalid_transition", out.Error.Code)

	claim = env.mustJSON(t, http.StatusOK, http.MethodGet, "/api/claims/"+claimID, as.staff, nil)
	assert.Equal(t, "submitted", claim["status"])
	assert.Equal(t, []any{"under_review", "draft"}, claim["allowedTransitions"])

	env.mustJSON(t, http.StatusOK, http.MethodPost, transition, as.moderator, map[string]any{"status": "under_review"})
	claim = env.mustJSON(t, http.StatusOK, http.MethodPost, transition, as.moderator, map[string]any{"status": "approved"})
	assert.Equal(t, "approved", claim["status"])

	status, out = env.doJSON(t, http.MethodPost, transition, as.moderator, map[string]any{"status": "draft"})
	assert.Equal(t, http.StatusConflict, status)
	assert.Equal(t, "invalid_transition", out.Error.Type)

	claim = env.mustJSON(t, http.StatusOK, http.MethodGet, "/api/claims/"+claimID, as.staff, nil)
	assert.Equal(t, "approved", claim["status"])
}

func TestE2E_OwnershipScoping(t *testing.T) {
	env := startEnv(t)
	as := newActors(t)
	cat := env.createCatalog(t, as)

	binding := env.createBinding(t, as.staff, cat.policyID, "2024-01-01")
	bindingID := binding["id"].(string)
	claim := env.mustJSON(t, http.StatusCreated, http.MethodPost, "/api/claims", as.staff, map[string]any{
		"customerPolicyId": bindingID,
		"amountClaimed":    "300",
	})
	claimID := claim["id"].(string)

	for _, path := range []string{
		"/api/customer-policies/" + bindingID,
		"/api/claims/" + claimID,
	} {
		status, _ := env.doJSON(t, http.MethodGet, path, as.other, nil)
		assert.Equal(t, http.StatusNotFound, status, path)

		status, _ = env.doJSON(t, http.MethodGet, path, as.moderator, nil)
		assert.Equal(t, http.StatusOK, status, path)
	}

	for _, path := range []string{"/api/customer-policies", "/api/claims", "/api/customers"} {
		status, out := env.doJSON(t, http.MethodGet, path, as.other, nil)
		require.Equal(t, http.StatusOK, status, path)
		assert.Empty(t, listOf(t, out), path)

		status, out = env.doJSON(t, http.MethodGet, path, as.moderator, nil)
		require.Equal(t, http.StatusOK, status, path)
		assert.Len(t, listOf(t, out), 1, path)
	}

	status, out := env.doJSON(t, http.MethodPost, "/api/claims", as.other, map[string]any{
		"customerPolicyId": bindingID,
		"amountClaimed":    "10",
	})
	assert.Equal(t, http.StatusNotFound, status)
	assert.Equal(t, "customer_policy_not_found", out.Error.Code)

	status, _ = env.doJSON(t, http.MethodDelete, "/api/claims/"+claimID, as.staff, nil)
	assert.Equal(t, http.StatusForbidden, status)
}

func TestE2E_ReferentialIntegrity(t *testing.T) {
	env := startEnv(t)
	as := newActors(t)
	cat := env.createCatalog(t, as)

	binding := env.createBinding(t, as.staff, cat.policyID, "2024-01-01")
	bindingID := binding["id"].(string)
	env.mustJSON(t, http.StatusCreated, http.MethodPost, "/api/policy-payments", as.staff, map[string]any{
		"customerPolicyId": bindingID,
		"amount":           "500",
		"paymentDate":      "2024-01-15",
		"modeOfPayment":    "cash",
	})

	cases := []struct {
		path string
		code string
	}{
		{path: "/api/insurers/" + cat.insurerID, code: "insurer_has_policies"},
		{path: "/api/policies/" + cat.policyID, code: "policy_has_bindings"},
		{path: "/api/customer-policies/" + bindingID, code: "customer_policy_has_dependents"},
	}
	for _, tc := range cases {
		status, out := env.doJSON(t, http.MethodDelete, tc.path, as.moderator, nil)
		assert.Equal(t, http.StatusConflict, status, tc.path)
		assert.Equal(t, tc.code, out.Error.Code, tc.path)
	}

	assert.EqualValues(t, 1, countRows(t, env.db, `SELECT COUNT(*) FROM insurers`))
	assert.EqualValues(t, 1, countRows(t, env.db, `SELECT COUNT(*) FROM policies`))
	assert.EqualValues(t, 1, countRows(t, env.db, `SELECT COUNT(*) FROM customer_policies`))
	assert.EqualValues(t, 0, countRows(t, env.db,
		`SELECT COUNT(*) FROM audit_logs WHERE action = ?`, "delete"))
}

func TestE2E_AuditWrittenOncePerMutation(t *testing.T) {
	env := startEnv(t)
	as := newActors(t)

	insurer := env.mustJSON(t, http.StatusCreated, http.MethodPost, "/api/insurers", as.moderator, map[string]any{
		"name": "Acme Assurance",
	})
	insurerID := insurer["id"].(string)
	assert.EqualValues(t, 1, testkit.AuditCount(t, env.db, access.ObjectInsurer, insurerID, "create"))

	status, out := env.doJSON(t, http.MethodPost, "/api/insurers", as.moderator, map[string]any{
		"name": "acme assurance",
	})
	assert.Equal(t, http.StatusConflict, status)
	assert.Equal(t, "insurer_name_taken", out.Error.Code)
	assert.EqualValues(t, 1, countRows(t, env.db,
		`SELECT COUNT(*) FROM audit_logs WHERE entity_type = ?`, access.ObjectInsurer))

	env.mustJSON(t, http.StatusOK, http.MethodPatch, "/api/insurers/"+insurerID, as.moderator, map[string]any{
		"phone": "+91 80 1234 5678",
	})
	assert.EqualValues(t, 1, testkit.AuditCount(t, env.db, access.ObjectInsurer, insurerID, "update"))

	status, _ = env.doJSON(t, http.MethodPost, "/api/insurers", as.staff, map[string]any{"name": "Beta"})
	assert.Equal(t, http.StatusForbidden, status)
	assert.EqualValues(t, 2, countRows(t, env.db, `SELECT COUNT(*) FROM audit_logs`))
}

func TestE2E_MaturitySweep(t *testing.T) {
	env := startEnv(t)
	as := newActors(t)
	cat := env.createCatalog(t, as)

	matured := env.createBinding(t, as.staff, cat.policyID, "2023-01-01")
	current := env.createBinding(t, as.staff, cat.policyID, "2024-01-01")
	maturedID := matured["id"].(string)
	currentID := current["id"].(string)

	require.NoError(t, env.sched.RunOnce(t.Context()))

	got := env.mustJSON(t, http.StatusOK, http.MethodGet, "/api/customer-policies/"+maturedID, as.staff, nil)
	assert.Equal(t, "expired", got["status"])
	got = env.mustJSON(t, http.StatusOK, http.MethodGet, "/api/customer-policies/"+currentID, as.staff, nil)
	assert.Equal(t, "active", got["status"])

	status, out := env.doJSON(t, http.MethodGet,
		"/api/audit-logs?entityType=customer_policy&action=expire", as.admin, nil)
	require.Equal(t, http.StatusOK, status)
	logs := listOf(t, out)
	require.Len(t, logs, 1)
	assert.Equal(t, maturedID, logs[0]["entityId"])
	assert.Equal(t, "system", logs[0]["actorId"])

	require.NoError(t, env.sched.RunOnce(t.Context()))
	assert.EqualValues(t, 1, testkit.AuditCount(t, env.db, access.ObjectCustomerPolicy, maturedID, "expire"))
}
