package redis

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jwalitptl/booking-api/pkg/circuitbreaker"
	"github.com/jwalitptl/booking-api/pkg/messaging"
)

func newBroker(t *testing.T) (*RedisBroker, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	broker, err := NewRedisBroker(context.Background(), Config{URL: "redis://" + mr.Addr()}, nil)
	require.NoError(t, err)
	t.Cleanup(func() { broker.Close() })
	return broker, mr
}

func TestRedisBroker_PublishSubscribe(t *testing.T) {
	broker, _ := newBroker(t)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	messages, err := broker.Subscribe(ctx, "booking.events")
	require.NoError(t, err)

	sent := messaging.Message{
		ID:      uuid.New(),
		Type:    "booking.created",
		Payload: json.RawMessage(`{"booking_id":"abc"}`),
	}
	require.NoError(t, broker.Publish(ctx, "booking.events", sent))

	select {
	case raw := <-messages:
		var got messaging.Message
		require.NoError(t, json.Unmarshal(raw, &got))
		assert.Equal(t, sent.ID, got.ID)
		assert.Equal(t, "booking.created", got.Type)
		assert.JSONEq(t, `{"booking_id":"abc"}`, string(got.Payload))
	case <-time.After(2 * time.Second):
		t.Fatal("message not received")
	}

	cancel()
	for range messages {
	}
}

func TestRedisBroker_InvalidURL(t *testing.T) {
	_, err := NewRedisBroker(context.Background(), Config{URL: "not a url"}, nil)
	assert.ErrorContains(t, err, "failed to parse Redis URL")
}

func TestRedisBroker_OpensCircuitWhenRedisIsDown(t *testing.T) {
	broker, mr := newBroker(t)
	mr.Close()

	var err error
	for i := 0; i < 6; i++ {
		err = broker.Publish(context.Background(), "booking.events", map[string]string{"n": "1"})
		require.Error(t, err)
	}
	assert.ErrorIs(t, err, circuitbreaker.ErrOpen)
}
