package e2e

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"eduhub/e2e/issuerstub"
	"eduhub/internal/bootstrap"
	"eduhub/internal/credential/handler"
	"eduhub/internal/platform/config"
	"eduhub/internal/platform/health"
	httptransport "eduhub/internal/transport/http"
)

const adminToken = "e2e-admin-token"

// TestContext holds state between test steps. The gateway starts lazily on
// the first request so Given steps can still change its configuration.
type TestContext struct {
	Config           config.Server
	Issuer           *issuerstub.Server
	HTTPClient       *http.Client
	LastResponse     *http.Response
	LastResponseBody []byte

	server  *httptest.Server
	gateway *bootstrap.Gateway
	backend *bootstrap.LedgerBackend
}

// NewTestContext creates a context with a fresh fake issuer and an
// in-memory ledger.
func NewTestContext() *TestContext {
	issuer := issuerstub.New()
	return &TestContext{
		Issuer:     issuer,
		HTTPClient: &http.Client{Timeout: 10 * time.Second},
		Config: config.Server{
			RequestTimeout: 5 * time.Second,
			MaxBodyBytes:   64 << 10,
			AdminToken:     adminToken,
			Issuer: config.Issuer{
				Environment:     config.EnvironmentSandbox,
				AchievementKey:  "oca-e2e-key",
				BadgeKey:        "ocb-e2e-key",
				BaseURL:         issuer.URL(),
				Timeout:         2 * time.Second,
				BreakerFailures: 5,
				BreakerCooldown: 30 * time.Second,
			},
			Templates: config.Templates{
				CredentialImageURL: "https://eduhub.dev/eduhub.png",
				BadgeIconURL:       "https://app.eduhub.dev/eduplus.png",
			},
			Ledger: config.Ledger{Backend: config.LedgerMemory},
		},
	}
}

func (tc *TestContext) start() error {
	if tc.server != nil {
		return nil
	}
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	reg := prometheus.NewRegistry()

	backend, err := bootstrap.OpenLedger(context.Background(), tc.Config.Ledger, reg, logger)
	if err != nil {
		return err
	}
	gw, err := bootstrap.NewGateway(tc.Config, backend.Ledger, bootstrap.GatewayOptions{
		Registerer: reg,
		Logger:     logger,
	})
	if err != nil {
		return err
	}
	router := httptransport.NewRouter(httptransport.Config{
		RequestTimeout: tc.Config.RequestTimeout,
		MaxBodyBytes:   tc.Config.MaxBodyBytes,
		AdminToken:     tc.Config.AdminToken,
	}, httptransport.Deps{
		Claims:   handler.New(gw.Service, logger),
		Health:   health.New(tc.Config.Issuer.Environment, nil),
		Registry: reg,
		Logger:   logger,
	})

	tc.backend = backend
	tc.gateway = gw
	tc.server = httptest.NewServer(router)
	return nil
}

// Close stops the gateway and the issuer stub. It is safe to call twice.
func (tc *TestContext) Close() {
	if tc.server != nil {
		tc.server.Close()
		_ = tc.gateway.Close()
		_ = tc.backend.Close()
		tc.server = nil
	}
	tc.Issuer.Close()
}

// Do sends a request with an optional JSON body and stores the response.
func (tc *TestContext) Do(method, path string, body any, headers map[string]string) error {
	if err := tc.start(); err != nil {
		return fmt.Errorf("start gateway: %w", err)
	}

	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("failed to marshal request body: %w", err)
		}
		reader = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(context.Background(), method, tc.server.URL+path, reader)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	for k, v := range headers {
		req.Header.Set(k, v)
	}

	resp, err := tc.HTTPClient.Do(req)
	if err != nil {
		return fmt.Errorf("failed to make request: %w", err)
	}

	tc.LastResponse = resp
	tc.LastResponseBody, err = io.ReadAll(resp.Body)
	resp.Body.Close()
	if err != nil {
		return fmt.Errorf("failed to read response body: %w", err)
	}
	return nil
}

// POST makes a JSON POST request and stores the response.
func (tc *TestContext) POST(path string, body any) error {
	return tc.Do(http.MethodPost, path, body, nil)
}

// GET makes a GET request and stores the response.
func (tc *TestContext) GET(path string, headers map[string]string) error {
	return tc.Do(http.MethodGet, path, nil, headers)
}

// DELETE makes a DELETE request and stores the response.
func (tc *TestContext) DELETE(path string, headers map[string]string) error {
	return tc.Do(http.MethodDelete, path, nil, headers)
}

// GetResponseField extracts a field from the JSON response. Dots walk into
// nested objects, e.g. "claimRecord.holderOcId".
func (tc *TestContext) GetResponseField(field string) (any, error) {
	var data any
	if err := json.Unmarshal(tc.LastResponseBody, &data); err != nil {
		return nil, fmt.Errorf("failed to unmarshal response: %w", err)
	}

	for _, part := range strings.Split(field, ".") {
		obj, ok := data.(map[string]any)
		if !ok {
			return nil, fmt.Errorf("field %s: %v is not an object", field, data)
		}
		if data, ok = obj[part]; !ok {
			return nil, fmt.Errorf("field %s not found in response", field)
		}
	}
	return data, nil
}

// ResponseContains checks if the response body contains a field or text.
func (tc *TestContext) ResponseContains(text string) bool {
	if strings.Contains(string(tc.LastResponseBody), text) {
		return true
	}
	_, err := tc.GetResponseField(text)
	return err == nil
}

func (tc *TestContext) GetLastResponseStatus() int {
	if tc.LastResponse == nil {
		return 0
	}
	return tc.LastResponse.StatusCode
}

func (tc *TestContext) GetLastResponseBody() []byte {
	return tc.LastResponseBody
}

func (tc *TestContext) GetIssuer() *issuerstub.Server {
	return tc.Issuer
}

func (tc *TestContext) GetConfig() *config.Server {
	return &tc.Config
}

func (tc *TestContext) GetAdminToken() string {
	return adminToken
}
