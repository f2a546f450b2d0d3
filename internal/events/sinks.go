package events

import (
	"encoding/json"
	"io"
	"slices"
	"sync"

	"github.com/jaja2302/Palm-counting-AI/internal/logger"
)

// JSONLinesSink writes each event as {"event":name,"payload":...} followed by
// a newline. It is the headless stand-in for the desktop front end.
type JSONLinesSink struct {
	mu  sync.Mutex
	enc *json.Encoder
}

// NewJSONLinesSink returns a sink writing to w.
func NewJSONLinesSink(w io.Writer) *JSONLinesSink {
	return &JSONLinesSink{enc: json.NewEncoder(w)}
}

func (s *JSONLinesSink) Name() string { return "jsonlines" }

func (s *JSONLinesSink) ProcessEvent(event Event) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.enc.Encode(struct {
		Event   string `json:"event"`
		Payload any    `json:"payload"`
	}{event.Name, event.Payload})
}

// LogSink mirrors events into the structured log. Progress events are logged
// at debug level, everything else at info.
type LogSink struct {
	log logger.Logger
}

// NewLogSink returns a sink logging through log.
func NewLogSink(log logger.Logger) *LogSink {
	return &LogSink{log: log}
}

func (s *LogSink) Name() string { return "log" }

func (s *LogSink) ProcessEvent(event Event) error {
	fields := []logger.Field{logger.String("event", event.Name)}
	if event.Payload != nil {
		fields = append(fields, logger.Any("payload", event.Payload))
	}
	switch event.Name {
	case AIPackProgress, AIPackExtractProgress, ProcessingProgress:
		s.log.Debug("event", fields...)
	case AIPackError, ModelConversionError:
		s.log.Warn("event", fields...)
	default:
		s.log.Info("event", fields...)
	}
	return nil
}

// Recorder keeps every event in memory. It doubles as an Emitter so tests can
// hand it straight to producers.
type Recorder struct {
	mu     sync.Mutex
	events []Event
}

func (r *Recorder) Name() string { return "recorder" }

func (r *Recorder) ProcessEvent(event Event) error {
	r.mu.Lock()
	r.events = append(r.events, event)
	r.mu.Unlock()
	return nil
}

// Emit records the event directly.
func (r *Recorder) Emit(name string, payload any) {
	_ = r.ProcessEvent(Event{Name: name, Payload: payload})
}

// Events returns a snapshot of everything recorded so far.
func (r *Recorder) Events() []Event {
	r.mu.Lock()
	defer r.mu.Unlock()
	return slices.Clone(r.events)
}

// Named returns the payloads of events called name, in order.
func (r *Recorder) Named(name string) []any {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []any
	for _, e := range r.events {
		if e.Name == name {
			out = append(out, e.Payload)
		}
	}
	return out
}

// Names returns the sequence of event names.
func (r *Recorder) Names() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]string, len(r.events))
	for i, e := range r.events {
		out[i] = e.Name
	}
	return out
}

// Count returns how many events called name were recorded.
func (r *Recorder) Count(name string) int {
	return len(r.Named(name))
}
