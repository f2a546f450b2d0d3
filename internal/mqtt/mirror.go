package mqtt

import (
	"context"
	"encoding/json"
	"sync"
	"sync/atomic"
	"time"

	"github.com/jaja2302/Palm-counting-AI/internal/events"
	"github.com/jaja2302/Palm-counting-AI/internal/logger"
)

const defaultQueueSize = 256

type message struct {
	topic   string
	payload []byte
}

// Mirror is an event consumer that republishes events on <prefix>/<event>.
// Publishing happens on a single worker goroutine so a slow broker never
// stalls the download or the sidecar reader. When the queue is full new
// events are dropped and counted.
type Mirror struct {
	client  Client
	prefix  string
	timeout time.Duration
	log     logger.Logger

	queue   chan message
	wg      sync.WaitGroup
	once    sync.Once
	dropped atomic.Uint64
}

// NewMirror starts the publish worker. Close must be called to stop it.
func NewMirror(c Client, cfg Config, log logger.Logger) *Mirror {
	if cfg.Topic == "" {
		cfg.Topic = DefaultConfig().Topic
	}
	if cfg.PublishTimeout <= 0 {
		cfg.PublishTimeout = DefaultConfig().PublishTimeout
	}
	if log == nil {
		log = logger.Global().Module("mqtt")
	}
	m := &Mirror{
		client:  c,
		prefix:  cfg.Topic,
		timeout: cfg.PublishTimeout,
		log:     log,
		queue:   make(chan message, defaultQueueSize),
	}
	m.wg.Go(m.run)
	return m
}

// Name implements events.EventConsumer.
func (m *Mirror) Name() string { return "mqtt" }

// ProcessEvent implements events.EventConsumer.
func (m *Mirror) ProcessEvent(e events.Event) error {
	body, err := json.Marshal(struct {
		Event   string    `json:"event"`
		Payload any       `json:"payload"`
		Time    time.Time `json:"time"`
	}{e.Name, e.Payload, e.Time})
	if err != nil {
		return err
	}

	select {
	case m.queue <- message{topic: m.prefix + "/" + e.Name, payload: body}:
	default:
		m.dropped.Add(1)
	}
	return nil
}

// Dropped reports how many events were discarded because the queue was full.
func (m *Mirror) Dropped() uint64 { return m.dropped.Load() }

// Close drains queued messages and stops the worker. ProcessEvent must not
// be called after Close.
func (m *Mirror) Close() {
	m.once.Do(func() { close(m.queue) })
	m.wg.Wait()
}

func (m *Mirror) run() {
	for msg := range m.queue {
		if !m.client.IsConnected() {
			continue
		}
		ctx, cancel := context.WithTimeout(context.Background(), m.timeout)
		err := m.client.Publish(ctx, msg.topic, msg.payload)
		cancel()
		if err != nil {
			m.log.Debug("mqtt publish failed",
				logger.String("topic", msg.topic),
				logger.Error(err))
		}
	}
}
