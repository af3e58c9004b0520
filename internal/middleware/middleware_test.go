package middleware

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"

	"github.com/bryanwahyu/roundtable/internal/metrics"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

var ok = http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
	_, _ = w.Write([]byte(GetTenantFromContext(r.Context())))
})

func TestAPIKeyAuth(t *testing.T) {
	h := APIKeyAuth(map[string]string{"acme": "k-acme", "globex": "k-globex"})(ok)

	cases := []struct {
		name   string
		path   string
		header string
		status int
		body   string
	}{
		{"public path", "/health", "", http.StatusOK, ""},
		{"missing header", "/v1/acme/sessions", "", http.StatusUnauthorized, ""},
		{"bad key", "/v1/acme/sessions", "Bearer nope", http.StatusUnauthorized, ""},
		{"bearer", "/v1/acme/sessions", "Bearer k-acme", http.StatusOK, "acme"},
		{"raw key", "/v1/acme/sessions", "k-globex", http.StatusOK, "globex"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, tc.path, nil)
			if tc.header != "" {
				req.Header.Set("Authorization", tc.header)
			}
			rec := httptest.NewRecorder()
			h.ServeHTTP(rec, req)
			assert.Equal(t, tc.status, rec.Code)
			if tc.body != "" {
				assert.Equal(t, tc.body, rec.Body.String())
			}
		})
	}
}

func TestAPIKeyAuthDisabledWithoutKeys(t *testing.T) {
	rec := httptest.NewRecorder()
	APIKeyAuth(nil)(ok).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/v1/acme/sessions", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestRequireValidTenant(t *testing.T) {
	r := chi.NewRouter()
	r.Use(APIKeyAuth(map[string]string{"acme": "k-acme"}))
	r.Route("/v1/{tenant}", func(r chi.Router) {
		r.Use(RequireValidTenant)
		r.Get("/ping", ok)
	})

	do := func(path string) *httptest.ResponseRecorder {
		req := httptest.NewRequest(http.MethodGet, path, nil)
		req.Header.Set("Authorization", "Bearer k-acme")
		rec := httptest.NewRecorder()
		r.ServeHTTP(rec, req)
		return rec
	}

	assert.Equal(t, http.StatusOK, do("/v1/acme/ping").Code)
	assert.Equal(t, http.StatusForbidden, do("/v1/globex/ping").Code)
	assert.Equal(t, http.StatusBadRequest, do("/v1/bad%20tenant/ping").Code)
}

func TestLoggingMiddlewareLevels(t *testing.T) {
	core, logs := observer.New(zap.InfoLevel)
	logger := zap.New(core)

	fail := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		WriteError(w, http.StatusInternalServerError, "boom")
	})
	LoggingMiddleware(logger)(fail).ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/x", nil))
	LoggingMiddleware(logger)(ok).ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/y", nil))

	entries := logs.All()
	require.Len(t, entries, 2)
	assert.Equal(t, zap.ErrorLevel, entries[0].Level)
	assert.Equal(t, int64(500), entries[0].ContextMap()["status"])
	assert.Equal(t, zap.InfoLevel, entries[1].Level)
	assert.Equal(t, "/y", entries[1].ContextMap()["path"])
}

func TestRateLimiter(t *testing.T) {
	rl := NewRateLimiter(0.001, 2)
	defer rl.Close()
	h := rl.Middleware(ok)

	codes := make([]int, 0, 3)
	for i := 0; i < 3; i++ {
		req := httptest.NewRequest(http.MethodPost, "/v1/acme/sessions", nil)
		req.RemoteAddr = "10.0.0.1:5555"
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, req)
		codes = append(codes, rec.Code)
	}
	assert.Equal(t, []int{200, 200, 429}, codes)

	// other client has its own bucket
	req := httptest.NewRequest(http.MethodPost, "/v1/acme/sessions", nil)
	req.RemoteAddr = "10.0.0.2:5555"
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusOK, rec.Code)

	// public path never limited
	for i := 0; i < 5; i++ {
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/health", nil))
		assert.Equal(t, http.StatusOK, rec.Code)
	}
}

func TestRateLimiterEvictsIdle(t *testing.T) {
	rl := NewRateLimiter(1, 1)
	defer rl.Close()
	rl.Allow("a")
	rl.evict(rl.visitors["a"].lastSeen.Add(rl.idle + 1))
	assert.Empty(t, rl.visitors)
}

func TestValidators(t *testing.T) {
	assert.NoError(t, ValidateTenantID("acme_1-x"))
	assert.Error(t, ValidateTenantID(""))
	assert.Error(t, ValidateTenantID("a b"))

	assert.NoError(t, ValidateSessionID("0b8e6f0e-8a8f-4c7b-9d1a-5c7f2e0f9a11"))
	assert.Error(t, ValidateSessionID("nope"))

	q, err := ValidateQuestion("  what\x00 is churn?\x07 ")
	require.NoError(t, err)
	assert.Equal(t, "what is churn?", q)
	_, err = ValidateQuestion("   ")
	assert.Error(t, err)

	_, err = ValidateNodeText("")
	assert.Error(t, err)

	assert.NoError(t, ValidateFilename("sales.csv"))
	assert.NoError(t, ValidateFilename("Notes.MD"))
	assert.Error(t, ValidateFilename("../etc/passwd.txt"))
	assert.Error(t, ValidateFilename("a;b.csv"))
	assert.Error(t, ValidateFilename("report.pdf"))

	assert.Equal(t, 20, ValidateLimit(0))
	assert.Equal(t, 100, ValidateLimit(500))
	assert.Equal(t, 1, ValidatePage(-3))
}

func TestHealthHandlers(t *testing.T) {
	healthy := map[string]HealthChecker{"redis": CheckFunc(func(context.Context) error { return nil })}
	broken := map[string]HealthChecker{
		"redis": CheckFunc(func(context.Context) error { return nil }),
		"minio": CheckFunc(func(context.Context) error { return errors.New("down") }),
	}

	rec := httptest.NewRecorder()
	HealthHandler(healthy)(rec, httptest.NewRequest(http.MethodGet, "/health", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"status":"healthy"`)

	rec = httptest.NewRecorder()
	HealthHandler(broken)(rec, httptest.NewRequest(http.MethodGet, "/health", nil))
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
	assert.Contains(t, rec.Body.String(), "down")

	rec = httptest.NewRecorder()
	ReadinessHandler(broken)(rec, httptest.NewRequest(http.MethodGet, "/ready", nil))
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)

	rec = httptest.NewRecorder()
	LivenessHandler(rec, httptest.NewRequest(http.MethodGet, "/live", nil))
	assert.Equal(t, "ok", rec.Body.String())
}

func TestMetricsMiddlewareCountsStatus(t *testing.T) {
	counter := metrics.HTTPRequests.WithLabelValues(http.MethodDelete, "404")
	before := testutil.ToFloat64(counter)

	notFound := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		WriteError(w, http.StatusNotFound, "session not found")
	})
	MetricsMiddleware(notFound).ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodDelete, "/v1/acme/sessions/x", nil))

	assert.Equal(t, before+1, testutil.ToFloat64(counter))
	assert.Equal(t, float64(0), testutil.ToFloat64(metrics.HTTPInFlight))
}
