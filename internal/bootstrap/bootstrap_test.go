package bootstrap

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/prometheus/client_golang/prometheus"
	promtest "github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"eduhub/internal/credential/ledger"
	"eduhub/internal/credential/models"
	"eduhub/internal/platform/config"
	"eduhub/pkg/testutil"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestOpenLedger(t *testing.T) {
	ctx := context.Background()

	t.Run("memory", func(t *testing.T) {
		b, err := OpenLedger(ctx, config.Ledger{Backend: config.LedgerMemory}, nil, discardLogger())
		require.NoError(t, err)
		assert.IsType(t, &ledger.Memory{}, b.Ledger)
		assert.Nil(t, b.Health)
		assert.NoError(t, b.Close())
	})

	t.Run("file persists across opens", func(t *testing.T) {
		cfg := config.Ledger{Backend: config.LedgerFile, Dir: t.TempDir(), Key: "claims"}
		b, err := OpenLedger(ctx, cfg, nil, discardLogger())
		require.NoError(t, err)
		require.NoError(t, b.Ledger.Record(ctx, testutil.NewClaimBuilder().Build()))

		reopened, err := OpenLedger(ctx, cfg, nil, discardLogger())
		require.NoError(t, err)
		ok, err := reopened.Ledger.Has(ctx, testutil.HolderOCID, "bootcamp")
		require.NoError(t, err)
		assert.True(t, ok)
	})

	t.Run("unknown backend", func(t *testing.T) {
		_, err := OpenLedger(ctx, config.Ledger{Backend: "etcd"}, nil, discardLogger())
		assert.ErrorContains(t, err, `unknown ledger backend "etcd"`)
	})
}

func gatewayConfig(baseURL string) config.Server {
	return config.Server{
		Issuer: config.Issuer{
			Environment:     config.EnvironmentSandbox,
			AchievementKey:  "oca-key",
			BaseURL:         baseURL,
			Timeout:         time.Second,
			BreakerFailures: 1,
			BreakerCooldown: time.Minute,
		},
		Templates: config.Templates{CredentialImageURL: "https://eduhub.dev/eduhub.png"},
		Kafka:     config.Kafka{ClaimsTopic: "eduhub.claims"},
	}
}

func TestGateway_IssuesAgainstIssuer(t *testing.T) {
	var gotKey atomic.Value
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotKey.Store(r.Header.Get("X-API-KEY"))
		var body map[string]any
		_ = json.NewDecoder(r.Body).Decode(&body)
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"credentialId":"vc-42"}`))
	}))
	defer srv.Close()

	l := ledger.NewMemory()
	gw, err := NewGateway(gatewayConfig(srv.URL), l, GatewayOptions{
		Registerer: prometheus.NewRegistry(),
		Clock:      clockwork.NewFakeClockAt(testutil.FixedTime),
		Logger:     discardLogger(),
	})
	require.NoError(t, err)
	defer gw.Close()

	result, err := gw.Service.Issue(context.Background(), testutil.AchievementRequest("bootcamp"))
	require.NoError(t, err)
	assert.Equal(t, models.OutcomeIssued, result.Outcome)
	assert.JSONEq(t, `{"credentialId":"vc-42"}`, string(result.Data))
	assert.Equal(t, "oca-key", gotKey.Load())
	assert.Equal(t, srv.URL+"/issuer/vc", gw.Issuer.Endpoint())
	assert.Nil(t, gw.EventsHealth(), "no kafka brokers configured")
}

func TestGateway_RecordsBreakerState(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer srv.Close()

	gw, err := NewGateway(gatewayConfig(srv.URL), ledger.NewMemory(), GatewayOptions{
		Registerer: prometheus.NewRegistry(),
		Logger:     discardLogger(),
	})
	require.NoError(t, err)
	defer gw.Close()

	_, err = gw.Service.Issue(context.Background(), testutil.AchievementRequest("bootcamp"))
	require.Error(t, err)

	gw.RecordBreakerState()
	assert.Equal(t, 1.0, promtest.ToFloat64(gw.Metrics.IssuerBreakerState), "one 5xx opens a breaker with threshold 1")
}

func TestStatsScheduler_RunsRecorders(t *testing.T) {
	var runs atomic.Int32
	sched, err := NewStatsScheduler(20*time.Millisecond, nil, discardLogger(),
		func() { runs.Add(1) },
		nil,
	)
	require.NoError(t, err)

	sched.Start()
	defer func() { _ = sched.Shutdown() }()

	assert.Eventually(t, func() bool { return runs.Load() >= 2 }, 2*time.Second, 10*time.Millisecond)
}
