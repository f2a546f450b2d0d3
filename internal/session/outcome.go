package session

import (
	"sync"

	"github.com/jaja2302/Palm-counting-AI/internal/errors"
	"github.com/jaja2302/Palm-counting-AI/internal/events"
)

// Outcome watches terminal events so a command can turn a background run
// into an exit status.
type Outcome struct {
	mu         sync.Mutex
	packDone   bool
	packPaused bool
	packError  string
	done       *events.DonePayload
}

func (o *Outcome) Name() string { return "outcome" }

func (o *Outcome) ProcessEvent(e events.Event) error {
	o.mu.Lock()
	defer o.mu.Unlock()
	switch e.Name {
	case events.AIPackDone:
		o.packDone = true
	case events.AIPackPaused:
		o.packPaused = true
	case events.AIPackError:
		if msg, ok := e.Payload.(string); ok {
			o.packError = msg
		}
	case events.ProcessingDone:
		if d, ok := e.Payload.(events.DonePayload); ok {
			o.done = &d
		}
	}
	return nil
}

// PackErr returns the reported pack failure, if any. A pause is not a failure.
func (o *Outcome) PackErr() error {
	o.mu.Lock()
	defer o.mu.Unlock()
	if o.packError == "" {
		return nil
	}
	// Already built and reported by the producer; only the text travels.
	return errors.NewStd(o.packError)
}

// PackPaused reports whether the download stopped on a pause.
func (o *Outcome) PackPaused() bool {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.packPaused && !o.packDone
}

// Done returns the terminal processing payload, or nil if none arrived.
func (o *Outcome) Done() *events.DonePayload {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.done
}
