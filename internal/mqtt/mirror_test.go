package mqtt

import (
	"context"
	"encoding/json"
	"io"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"

	"github.com/jaja2302/Palm-counting-AI/internal/errors"
	"github.com/jaja2302/Palm-counting-AI/internal/events"
	"github.com/jaja2302/Palm-counting-AI/internal/logger"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

type published struct {
	topic   string
	payload []byte
}

// fakeClient records publishes instead of talking to a broker.
type fakeClient struct {
	mu        sync.Mutex
	connected bool
	block     chan struct{}
	messages  []published
}

func (f *fakeClient) Connect(context.Context) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.connected = true
	return nil
}

func (f *fakeClient) IsConnected() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.connected
}

func (f *fakeClient) Disconnect() {}

func (f *fakeClient) Publish(ctx context.Context, topic string, payload []byte) error {
	if f.block != nil {
		<-f.block
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.messages = append(f.messages, published{topic, payload})
	return nil
}

func quietLogger() logger.Logger {
	return logger.NewSlogLogger(io.Discard, logger.LogLevelDebug)
}

func TestMirror_PublishesInOrder(t *testing.T) {
	fc := &fakeClient{connected: true}
	m := NewMirror(fc, Config{Topic: "farm1"}, quietLogger())

	bus := events.NewEventBus(quietLogger())
	require.NoError(t, bus.RegisterConsumer(m))
	pub := events.NewPublisher(bus)

	pub.PackProgress(400, 1000)
	pub.PackPaused(400, 1000)
	pub.Done(events.DonePayload{Done: true, Successful: 2, Total: 2})
	m.Close()

	require.Len(t, fc.messages, 3)
	assert.Equal(t, "farm1/"+events.AIPackProgress, fc.messages[0].topic)
	assert.Equal(t, "farm1/"+events.AIPackPaused, fc.messages[1].topic)
	assert.Equal(t, "farm1/"+events.ProcessingDone, fc.messages[2].topic)

	var body struct {
		Event   string         `json:"event"`
		Payload map[string]any `json:"payload"`
	}
	require.NoError(t, json.Unmarshal(fc.messages[0].payload, &body))
	assert.Equal(t, events.AIPackProgress, body.Event)
	assert.InDelta(t, 40, body.Payload["percent"], 0)

	require.NoError(t, json.Unmarshal(fc.messages[1].payload, &body))
	assert.Equal(t, events.AIPackPaused, body.Event)
	assert.InDelta(t, 400, body.Payload["downloaded"], 0)
	assert.InDelta(t, 1000, body.Payload["total"], 0)
}

func TestMirror_SkipsWhileDisconnected(t *testing.T) {
	fc := &fakeClient{}
	m := NewMirror(fc, Config{}, quietLogger())
	require.NoError(t, m.ProcessEvent(events.Event{Name: events.AIPackDone}))
	m.Close()
	assert.Empty(t, fc.messages)
}

func TestMirror_DropsWhenQueueFull(t *testing.T) {
	fc := &fakeClient{connected: true, block: make(chan struct{})}
	m := NewMirror(fc, Config{}, quietLogger())

	for range defaultQueueSize + 10 {
		require.NoError(t, m.ProcessEvent(events.Event{Name: events.ProcessingLog, Payload: "line"}))
	}
	assert.Positive(t, m.Dropped())

	close(fc.block)
	m.Close()
	m.Close()
}

func TestClient_InvalidBroker(t *testing.T) {
	c := NewClient(Config{Broker: "::not a url"}, nil, quietLogger())
	err := c.Connect(t.Context())
	require.Error(t, err)
	assert.True(t, errors.IsCategory(err, errors.CategoryNetwork))
	assert.False(t, c.IsConnected())

	err = c.Publish(t.Context(), "palm-counting/x", []byte("{}"))
	require.Error(t, err)
	c.Disconnect()
}
