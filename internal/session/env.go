package session

import (
	"context"
	"encoding/json"
	"io"
	"os"
	"os/signal"
	"sync"
	"syscall"

	"github.com/jaja2302/Palm-counting-AI/internal/buildinfo"
	"github.com/jaja2302/Palm-counting-AI/internal/conf"
	"github.com/jaja2302/Palm-counting-AI/internal/events"
)

// Env is handed to every command constructor. Settings is populated by the
// root command before any command runs.
type Env struct {
	Settings *conf.Settings
	Build    *buildinfo.Context
	Stdout   io.Writer
	Stderr   io.Writer
}

// NewEnv returns an Env writing to the process's standard streams.
func NewEnv(build *buildinfo.Context) *Env {
	return &Env{
		Settings: &conf.Settings{},
		Build:    build,
		Stdout:   os.Stdout,
		Stderr:   os.Stderr,
	}
}

// Open starts a session. When stream is true events are written to Stdout
// as JSON lines.
func (e *Env) Open(ctx context.Context, stream bool, consumers ...events.EventConsumer) (*Session, error) {
	opts := Options{
		Settings:  e.Settings,
		Build:     e.Build,
		Console:   e.Stderr,
		Consumers: consumers,
	}
	if stream {
		opts.Events = e.Stdout
	}
	return Open(ctx, opts)
}

// PrintJSON writes v to Stdout as indented JSON.
func (e *Env) PrintJSON(v any) error {
	enc := json.NewEncoder(e.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

// OnInterrupt calls fn once on the first SIGINT or SIGTERM. The returned stop
// function unregisters the handler and must be called.
func OnInterrupt(fn func()) (stop func()) {
	sig := make(chan os.Signal, 1)
	signal.Notify(sig, os.Interrupt, syscall.SIGTERM)
	done := make(chan struct{})
	var wg sync.WaitGroup
	wg.Go(func() {
		select {
		case <-sig:
			fn()
		case <-done:
		}
	})
	return func() {
		signal.Stop(sig)
		close(done)
		wg.Wait()
	}
}
