package bootstrap

import (
	"context"
	"log/slog"

	"github.com/jonboulle/clockwork"
	"github.com/prometheus/client_golang/prometheus"

	"eduhub/internal/credential/events"
	"eduhub/internal/credential/issuer"
	"eduhub/internal/credential/ledger"
	"eduhub/internal/credential/metrics"
	"eduhub/internal/credential/payload"
	"eduhub/internal/credential/service"
	"eduhub/internal/platform/config"
	"eduhub/internal/platform/kafka"
	"eduhub/pkg/platform/circuit"
)

const eventBuffer = 256

// Gateway is the issuance service with the collaborators built for it.
type Gateway struct {
	Service *service.Service
	Issuer  *issuer.Client
	Metrics *metrics.Metrics

	events   *events.Async
	producer *kafka.Producer
}

// GatewayOptions carries the pieces tests swap out.
type GatewayOptions struct {
	Registerer prometheus.Registerer
	Clock      clockwork.Clock
	Logger     *slog.Logger
	// HTTPClient overrides the issuer transport.
	HTTPClient issuer.HTTPDoer
}

// NewGateway wires the issuer client, payload builder and event sinks
// around l. Events always go to the log; Kafka is added when brokers are
// configured.
func NewGateway(cfg config.Server, l ledger.Ledger, opts GatewayOptions) (*Gateway, error) {
	if opts.Clock == nil {
		opts.Clock = clockwork.NewRealClock()
	}
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	m := metrics.New(opts.Registerer)

	breaker := circuit.New("issuer",
		circuit.WithFailureThreshold(cfg.Issuer.BreakerFailures),
		circuit.WithCooldown(cfg.Issuer.BreakerCooldown),
		circuit.WithClock(opts.Clock),
	)
	client := issuer.New(issuer.Config{
		BaseURL:          cfg.Issuer.IssuerBaseURL(),
		CollectionSymbol: cfg.Issuer.CollectionSymbol,
		Timeout:          cfg.Issuer.Timeout,
		HTTPClient:       opts.HTTPClient,
		Breaker:          breaker,
		Metrics:          m,
		Clock:            opts.Clock,
		Logger:           opts.Logger,
	})

	sinks := events.Fanout{events.NewLogPublisher(opts.Logger)}
	var producer *kafka.Producer
	if cfg.Kafka.Enabled() {
		p, err := kafka.New(kafka.Config{
			Brokers:  cfg.Kafka.Brokers,
			ClientID: cfg.Kafka.ClientID,
		}, opts.Logger)
		if err != nil {
			return nil, err
		}
		producer = p
		sinks = append(sinks, events.NewKafkaPublisher(p, cfg.Kafka.ClaimsTopic))
	}
	async := events.NewAsync(sinks, eventBuffer, opts.Logger, m)

	builder := payload.NewBuilder(payload.Config{
		CredentialImageURL: cfg.Templates.CredentialImageURL,
		BadgeIconURL:       cfg.Templates.BadgeIconURL,
		ProfileURLBase:     cfg.Issuer.ProfileURLBase(),
	})

	svc := service.New(l, client, builder, cfg.Issuer,
		service.WithClock(opts.Clock),
		service.WithLogger(opts.Logger),
		service.WithMetrics(m),
		service.WithPublisher(async),
	)

	return &Gateway{
		Service:  svc,
		Issuer:   client,
		Metrics:  m,
		events:   async,
		producer: producer,
	}, nil
}

// RecordBreakerState publishes the issuer breaker state gauge.
func (g *Gateway) RecordBreakerState() {
	g.Metrics.SetBreakerState(int(g.Issuer.BreakerState()))
}

// EventsHealth pings Kafka; nil when events are only logged.
func (g *Gateway) EventsHealth() func(ctx context.Context) error {
	if g.producer == nil {
		return nil
	}
	return g.producer.Health
}

// Close drains queued events and closes the Kafka producer.
func (g *Gateway) Close() error {
	g.events.Close()
	if g.producer != nil {
		return g.producer.Close()
	}
	return nil
}
