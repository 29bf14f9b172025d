package httptransport

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"eduhub/internal/credential/handler"
	"eduhub/internal/credential/issuer"
	"eduhub/internal/credential/ledger"
	"eduhub/internal/credential/payload"
	"eduhub/internal/credential/service"
	"eduhub/internal/platform/health"
	"eduhub/internal/platform/metrics"
	"eduhub/pkg/secrets"
	"eduhub/pkg/testutil"
)

type stubIssuer struct{}

func (stubIssuer) Submit(context.Context, issuer.Submission) (json.RawMessage, error) {
	return json.RawMessage(`{"ok":true}`), nil
}

func newTestRouter(t *testing.T, adminToken string) (http.Handler, *ledger.Memory) {
	t.Helper()
	return newTestRouterWith(t, Config{AdminToken: adminToken})
}

func newTestRouterWith(t *testing.T, cfg Config) (http.Handler, *ledger.Memory) {
	t.Helper()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	clock := clockwork.NewFakeClockAt(testutil.FixedTime)
	reg := metrics.NewRegistry()
	l := ledger.NewMemory()

	svc := service.New(l, stubIssuer{}, payload.NewBuilder(payload.Config{}),
		service.KeyFunc(func(bool) string { return "key" }),
		service.WithClock(clock),
	)
	cfg.RequestTimeout = time.Second
	cfg.MaxBodyBytes = 128
	return NewRouter(cfg, Deps{
		Claims:   handler.New(svc, logger),
		Health:   health.New("sandbox", clock),
		Registry: reg,
		Clock:    clock,
		Logger:   logger,
	}), l
}

func serve(h http.Handler, method, path, contentType, body string, headers ...string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}
	for i := 0; i+1 < len(headers); i += 2 {
		req.Header.Set(headers[i], headers[i+1])
	}
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

const smallBody = `{"credentialType":"tutorial","holderOcId":"a.edu","userName":"A","userEmail":"a@x.co"}`

func TestRouter_IssueThroughStack(t *testing.T) {
	router, l := newTestRouter(t, "")

	rec := serve(router, http.MethodPost, "/issue-credential", "application/json", smallBody,
		"X-Request-ID", "req-123")

	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Equal(t, "req-123", rec.Header().Get("X-Request-ID"))
	assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))

	ok, err := l.Has(context.Background(), "a.edu", "tutorial")
	require.NoError(t, err)
	assert.True(t, ok)

	var body map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	claim := body["claimRecord"].(map[string]any)
	assert.Equal(t, float64(testutil.FixedTime.UnixMilli()), claim["issuedAt"], "request time is pinned by middleware")
}

func TestRouter_RejectsNonJSONContentType(t *testing.T) {
	router, _ := newTestRouter(t, "")

	rec := serve(router, http.MethodPost, "/issue-credential", "text/plain", smallBody)

	assert.Equal(t, http.StatusUnsupportedMediaType, rec.Code)
}

func TestRouter_BodyLimit(t *testing.T) {
	router, _ := newTestRouter(t, "")
	big := `{"credentialType":"` + strings.Repeat("x", 200) + `"}`

	rec := serve(router, http.MethodPost, "/issue-credential", "application/json", big)

	assert.Equal(t, http.StatusRequestEntityTooLarge, rec.Code)
}

func TestRouter_AdminGuard(t *testing.T) {
	t.Run("disabled without token", func(t *testing.T) {
		router, _ := newTestRouter(t, "")
		rec := serve(router, http.MethodDelete, "/admin/claims", "", "")
		assert.Equal(t, http.StatusNotFound, rec.Code)
	})

	t.Run("wrong token", func(t *testing.T) {
		router, _ := newTestRouter(t, "s3cret")
		rec := serve(router, http.MethodDelete, "/admin/claims", "", "", "X-Admin-Token", "nope")
		assert.Equal(t, http.StatusUnauthorized, rec.Code)
	})

	t.Run("valid token clears", func(t *testing.T) {
		router, l := newTestRouter(t, "s3cret")
		require.NoError(t, l.Record(context.Background(), testutil.NewClaimBuilder().Build()))

		rec := serve(router, http.MethodDelete, "/admin/claims", "", "", "X-Admin-Token", "s3cret")

		assert.Equal(t, http.StatusOK, rec.Code)
		claims, err := l.ListFor(context.Background(), testutil.HolderOCID)
		require.NoError(t, err)
		assert.Empty(t, claims)
	})

	t.Run("hashed token", func(t *testing.T) {
		hash, err := secrets.AdminToken("ehat_s3cret").Hash()
		require.NoError(t, err)
		router, _ := newTestRouterWith(t, Config{AdminTokenHash: hash})

		rec := serve(router, http.MethodDelete, "/admin/claims", "", "", "X-Admin-Token", "nope")
		assert.Equal(t, http.StatusUnauthorized, rec.Code)

		rec = serve(router, http.MethodDelete, "/admin/claims", "", "", "X-Admin-Token", "ehat_s3cret")
		assert.Equal(t, http.StatusOK, rec.Code)
	})
}

func TestRouter_HealthAndMetrics(t *testing.T) {
	router, _ := newTestRouter(t, "")

	rec := serve(router, http.MethodGet, "/health/live", "", "")
	assert.Equal(t, http.StatusOK, rec.Code)

	serve(router, http.MethodGet, "/claims/a.edu", "", "")
	rec = serve(router, http.MethodGet, "/metrics", "", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.True(t, bytes.Contains(rec.Body.Bytes(), []byte(`route="/claims/{holderId}"`)),
		"latency is labelled by route pattern")
}
