// Package service is the issuance gateway: it validates a request, checks
// the claim ledger, calls the issuer and records confirmed claims.
package service

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"time"

	"eduhub/internal/credential/events"
	"eduhub/internal/credential/issuer"
	"eduhub/internal/credential/ledger"
	"eduhub/internal/credential/metrics"
	"eduhub/internal/credential/payload"
	"eduhub/pkg/platform/middleware/requesttime"

	"github.com/go-playground/validator/v10"
	"github.com/jonboulle/clockwork"
)

// Issuer submits a credential to the external issuer API.
type Issuer interface {
	Submit(ctx context.Context, sub issuer.Submission) (json.RawMessage, error)
}

// EventPublisher receives a ClaimIssued event after every confirmed issuance.
type EventPublisher interface {
	Publish(ctx context.Context, event events.ClaimIssued) error
}

// KeySource resolves the issuer API key for a mode. An empty key means the
// deployment is not configured for that mode.
type KeySource interface {
	APIKey(badge bool) string
}

// KeyFunc adapts a function to KeySource.
type KeyFunc func(badge bool) string

func (f KeyFunc) APIKey(badge bool) string { return f(badge) }

// Service is the issuance gateway.
type Service struct {
	ledger    ledger.Ledger
	issuer    Issuer
	builder   *payload.Builder
	keys      KeySource
	publisher EventPublisher
	clock     clockwork.Clock
	metrics   *metrics.Metrics
	logger    *slog.Logger
	validate  *validator.Validate
}

// Option configures a Service.
type Option func(*Service)

func WithLogger(logger *slog.Logger) Option {
	return func(s *Service) {
		s.logger = logger
	}
}

// WithClock sets the clock used when the context carries no request time.
func WithClock(clock clockwork.Clock) Option {
	return func(s *Service) {
		s.clock = clock
	}
}

func WithPublisher(p EventPublisher) Option {
	return func(s *Service) {
		s.publisher = p
	}
}

func WithMetrics(m *metrics.Metrics) Option {
	return func(s *Service) {
		s.metrics = m
	}
}

// New wires the gateway. The ledger is injected so each test can hand in a
// fresh one.
func New(l ledger.Ledger, iss Issuer, builder *payload.Builder, keys KeySource, opts ...Option) *Service {
	s := &Service{
		ledger:   l,
		issuer:   iss,
		builder:  builder,
		keys:     keys,
		clock:    clockwork.NewRealClock(),
		logger:   slog.New(slog.NewTextHandler(io.Discard, nil)),
		validate: newValidator(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *Service) now(ctx context.Context) time.Time {
	if t, ok := requesttime.From(ctx); ok {
		return t
	}
	return s.clock.Now()
}
