//go:build integration

package events

import (
	"context"
	"encoding/json"
	"log/slog"
	"testing"
	"time"

	"eduhub/internal/platform/kafka"
	"eduhub/pkg/testutil/containers"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/twmb/franz-go/pkg/kgo"
)

func TestKafkaPublisherDeliversToTopic(t *testing.T) {
	kc := containers.GetManager().GetKafka(t)
	ctx := context.Background()
	const topic = "eduhub.claims.test"
	require.NoError(t, kc.CreateTopic(ctx, topic))

	producer, err := kafka.New(kafka.Config{Brokers: []string{kc.Brokers}, ClientID: "eduhub-test"}, slog.Default())
	require.NoError(t, err)
	t.Cleanup(func() { _ = producer.Close() })

	event := NewClaimIssued(ctx, testClaim(), "alice@example.com")
	require.NoError(t, NewKafkaPublisher(producer, topic).Publish(ctx, event))

	consumer, err := kc.NewConsumer("events-test", topic)
	require.NoError(t, err)
	t.Cleanup(consumer.Close)

	record := kc.WaitForRecord(ctx, consumer, 30*time.Second, func(r *kgo.Record) bool {
		return string(r.Key) == event.HolderID
	})
	require.NotNil(t, record)

	var got ClaimIssued
	require.NoError(t, json.Unmarshal(record.Value, &got))
	assert.Equal(t, event.ID, got.ID)
	assert.Equal(t, "eduplus", got.CredentialType)
}
