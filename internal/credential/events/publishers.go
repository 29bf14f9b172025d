package events

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"eduhub/internal/credential/metrics"
	"eduhub/internal/platform/kafka"
)

// LogPublisher writes each event as a structured log line.
type LogPublisher struct {
	logger *slog.Logger
}

func NewLogPublisher(logger *slog.Logger) *LogPublisher {
	return &LogPublisher{logger: logger}
}

func (p *LogPublisher) Publish(ctx context.Context, e ClaimIssued) error {
	p.logger.InfoContext(ctx, "claim issued",
		"event_id", e.ID,
		"mode", e.Mode,
		"credential_type", e.CredentialType,
		"holder_id", e.HolderID,
		"email", e.MaskedEmail,
		"client", e.Client,
		"client_network", e.ClientNetwork,
	)
	return nil
}

// Producer is the part of the Kafka producer the publisher uses.
type Producer interface {
	Produce(ctx context.Context, msg *kafka.Message) error
}

// KafkaPublisher writes events as JSON records keyed by holder, so one
// holder's claims stay ordered within a partition.
type KafkaPublisher struct {
	producer Producer
	topic    string
}

func NewKafkaPublisher(producer Producer, topic string) *KafkaPublisher {
	return &KafkaPublisher{producer: producer, topic: topic}
}

func (p *KafkaPublisher) Publish(ctx context.Context, e ClaimIssued) error {
	value, err := json.Marshal(e)
	if err != nil {
		return fmt.Errorf("encode claim event: %w", err)
	}
	err = p.producer.Produce(ctx, &kafka.Message{
		Topic: p.topic,
		Key:   []byte(e.HolderID),
		Value: value,
		Headers: map[string]string{
			"event_type": e.Type,
			"event_id":   e.ID,
		},
	})
	if err != nil {
		return fmt.Errorf("publish claim event: %w", err)
	}
	return nil
}

// Fanout publishes to every sink and joins their errors.
type Fanout []Publisher

func (f Fanout) Publish(ctx context.Context, e ClaimIssued) error {
	var errs []error
	for _, p := range f {
		if err := p.Publish(ctx, e); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// Async queues events and publishes them on a background goroutine so the
// request path never waits on a broker. Publish reports ErrQueueFull when
// the buffer is exhausted; Close drains what is queued.
type Async struct {
	next    Publisher
	events  chan queued
	wg      sync.WaitGroup
	logger  *slog.Logger
	metrics *metrics.Metrics

	mu     sync.RWMutex
	closed bool
}

type queued struct {
	ctx   context.Context
	event ClaimIssued
}

// ErrQueueFull is returned when the async buffer cannot take another event.
var ErrQueueFull = errors.New("claim event queue full")

// ErrPublisherClosed is returned by Publish after Close.
var ErrPublisherClosed = errors.New("claim event publisher closed")

func NewAsync(next Publisher, buffer int, logger *slog.Logger, m *metrics.Metrics) *Async {
	if buffer <= 0 {
		buffer = 1
	}
	if logger == nil {
		logger = slog.Default()
	}
	a := &Async{
		next:    next,
		events:  make(chan queued, buffer),
		logger:  logger,
		metrics: m,
	}
	a.wg.Add(1)
	go a.run()
	return a
}

func (a *Async) Publish(ctx context.Context, e ClaimIssued) error {
	a.mu.RLock()
	defer a.mu.RUnlock()
	if a.closed {
		return ErrPublisherClosed
	}
	select {
	case a.events <- queued{ctx: context.WithoutCancel(ctx), event: e}:
		return nil
	default:
		a.metrics.IncEventPublished(ErrQueueFull)
		return ErrQueueFull
	}
}

func (a *Async) run() {
	defer a.wg.Done()
	for q := range a.events {
		err := a.next.Publish(q.ctx, q.event)
		a.metrics.IncEventPublished(err)
		if err != nil {
			a.logger.ErrorContext(q.ctx, "failed to publish claim event",
				"event_id", q.event.ID,
				"credential_type", q.event.CredentialType,
				"error", err,
			)
		}
	}
}

// Close stops accepting events and waits for the queue to drain.
func (a *Async) Close() {
	a.mu.Lock()
	if a.closed {
		a.mu.Unlock()
		return
	}
	a.closed = true
	close(a.events)
	a.mu.Unlock()
	a.wg.Wait()
}
