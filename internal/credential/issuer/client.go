// Package issuer is the HTTP client for the Open Campus credential issuer.
package issuer

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	"eduhub/internal/credential/metrics"
	"eduhub/internal/credential/models"
	"eduhub/pkg/platform/circuit"

	"github.com/jonboulle/clockwork"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

const (
	issuePath               = "/issuer/vc"
	defaultTimeout          = 15 * time.Second
	defaultCollectionSymbol = "ocbadge"
	maxResponseBytes        = 1 << 20
)

// HTTPDoer is the part of *http.Client the issuer client needs.
type HTTPDoer interface {
	Do(req *http.Request) (*http.Response, error)
}

// Config configures a Client. Only BaseURL is required.
type Config struct {
	BaseURL          string
	CollectionSymbol string
	Timeout          time.Duration
	HTTPClient       HTTPDoer
	Breaker          *circuit.Breaker
	Metrics          *metrics.Metrics
	Tracer           trace.Tracer
	Clock            clockwork.Clock
	Logger           *slog.Logger
}

// Submission is one credential to issue.
type Submission struct {
	Mode          models.Mode
	APIKey        string
	Payload       models.CredentialPayload
	HolderOCID    string
	HolderAddress string
}

type requestBody struct {
	CredentialPayload models.CredentialPayload `json:"credentialPayload"`
	HolderOCID        string                   `json:"holderOcId,omitempty"`
	CollectionSymbol  string                   `json:"collectionSymbol,omitempty"`
	HolderAddress     string                   `json:"holderAddress,omitempty"`
}

// Client posts credentials to <BaseURL>/issuer/vc. It never retries; a run
// of transport failures or 5xx answers opens the breaker and later calls
// fail fast until it lets a probe through.
type Client struct {
	endpoint         string
	collectionSymbol string
	timeout          time.Duration
	http             HTTPDoer
	breaker          *circuit.Breaker
	metrics          *metrics.Metrics
	tracer           trace.Tracer
	clock            clockwork.Clock
	logger           *slog.Logger
}

func New(cfg Config) *Client {
	c := &Client{
		endpoint:         cfg.BaseURL + issuePath,
		collectionSymbol: cfg.CollectionSymbol,
		timeout:          cfg.Timeout,
		http:             cfg.HTTPClient,
		breaker:          cfg.Breaker,
		metrics:          cfg.Metrics,
		tracer:           cfg.Tracer,
		clock:            cfg.Clock,
		logger:           cfg.Logger,
	}
	if c.collectionSymbol == "" {
		c.collectionSymbol = defaultCollectionSymbol
	}
	if c.timeout <= 0 {
		c.timeout = defaultTimeout
	}
	if c.http == nil {
		c.http = &http.Client{}
	}
	if c.tracer == nil {
		c.tracer = otel.Tracer("eduhub/issuer")
	}
	if c.clock == nil {
		c.clock = clockwork.NewRealClock()
	}
	if c.logger == nil {
		c.logger = slog.Default()
	}
	return c
}

// Endpoint is the URL credentials are posted to.
func (c *Client) Endpoint() string {
	return c.endpoint
}

// BreakerState reports the circuit state; closed when no breaker is set.
func (c *Client) BreakerState() circuit.State {
	if c.breaker == nil {
		return circuit.StateClosed
	}
	return c.breaker.State()
}

// Submit issues one credential and returns the issuer's JSON response. A
// success body that is not JSON is returned as a JSON string. Failures are
// *TransportError or *IssuerError.
func (c *Client) Submit(ctx context.Context, sub Submission) (json.RawMessage, error) {
	ctx, span := c.tracer.Start(ctx, "issuer.submit", trace.WithAttributes(
		attribute.String("credential.mode", string(sub.Mode)),
		attribute.String("issuer.endpoint", c.endpoint),
	))
	defer span.End()

	data, status, err := c.submit(ctx, sub)
	if status > 0 {
		span.SetAttributes(attribute.Int("http.response.status_code", status))
	}
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	}
	return data, err
}

func (c *Client) submit(ctx context.Context, sub Submission) (json.RawMessage, int, error) {
	body, err := json.Marshal(c.requestBody(sub))
	if err != nil {
		return nil, 0, fmt.Errorf("encode issuer request: %w", err)
	}

	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, bytes.NewReader(body))
	if err != nil {
		return nil, 0, fmt.Errorf("build issuer request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")
	req.Header.Set("X-API-KEY", sub.APIKey)

	if c.breaker != nil && !c.breaker.Allow() {
		return nil, 0, &TransportError{Err: ErrCircuitOpen, Reason: "circuit open"}
	}

	start := c.clock.Now()
	resp, err := c.http.Do(req)
	if err != nil {
		c.observe(sub.Mode, 0, start)
		c.recordFailure(ctx)
		return nil, 0, c.transportError(ctx, err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	c.observe(sub.Mode, resp.StatusCode, start)
	if err != nil {
		c.recordFailure(ctx)
		return nil, resp.StatusCode, c.transportError(ctx, err)
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		ie := newIssuerError(resp.StatusCode, raw)
		if resp.StatusCode >= 500 {
			c.recordFailure(ctx)
		} else {
			c.recordSuccess(ctx)
		}
		c.logger.WarnContext(ctx, "issuer rejected credential",
			"mode", sub.Mode,
			"status", resp.StatusCode,
			"retryable", ie.Retryable(),
		)
		return nil, resp.StatusCode, ie
	}

	c.recordSuccess(ctx)
	return successData(raw), resp.StatusCode, nil
}

func (c *Client) requestBody(sub Submission) requestBody {
	rb := requestBody{CredentialPayload: sub.Payload}
	if sub.Mode.IsBadge() {
		rb.CollectionSymbol = c.collectionSymbol
		rb.HolderAddress = sub.HolderAddress
	} else {
		rb.HolderOCID = sub.HolderOCID
	}
	return rb
}

func (c *Client) transportError(ctx context.Context, err error) *TransportError {
	reason := "network"
	if errors.Is(err, context.DeadlineExceeded) || ctx.Err() == context.DeadlineExceeded {
		reason = "timeout"
	} else if errors.Is(err, context.Canceled) {
		reason = "canceled"
	}
	return &TransportError{Err: err, Reason: reason}
}

func (c *Client) observe(mode models.Mode, status int, start time.Time) {
	c.metrics.ObserveIssuerRequest(string(mode), status, c.clock.Since(start).Seconds())
}

func (c *Client) recordFailure(ctx context.Context) {
	if c.breaker == nil {
		return
	}
	if change := c.breaker.RecordFailure(); change.Opened {
		c.metrics.IncBreakerTrip()
		c.logger.WarnContext(ctx, "issuer circuit opened", "breaker", c.breaker.Name())
	}
	c.metrics.SetBreakerState(int(c.breaker.State()))
}

func (c *Client) recordSuccess(ctx context.Context) {
	if c.breaker == nil {
		return
	}
	if change := c.breaker.RecordSuccess(); change.Closed {
		c.logger.InfoContext(ctx, "issuer circuit closed", "breaker", c.breaker.Name())
	}
	c.metrics.SetBreakerState(int(c.breaker.State()))
}

func newIssuerError(status int, raw []byte) *IssuerError {
	ie := &IssuerError{StatusCode: status, Details: string(raw)}
	trimmed := bytes.TrimSpace(raw)
	if len(trimmed) > 0 && json.Valid(trimmed) {
		var indented bytes.Buffer
		if err := json.Indent(&indented, trimmed, "", "  "); err == nil {
			ie.Details = indented.String()
		}
		ie.Data = json.RawMessage(trimmed)
	}
	return ie
}

func successData(raw []byte) json.RawMessage {
	trimmed := bytes.TrimSpace(raw)
	if len(trimmed) == 0 {
		return json.RawMessage("null")
	}
	if json.Valid(trimmed) {
		return json.RawMessage(trimmed)
	}
	quoted, _ := json.Marshal(string(raw))
	return quoted
}
