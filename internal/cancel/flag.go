// Package cancel provides cooperative cancellation tokens for background
// runs. A Flag is owned by whoever starts the run and handed to the worker,
// which samples it at its own checkpoints.
package cancel

import "sync/atomic"

// Flag is a one-way cancel signal. The zero value is ready to use and unset.
type Flag struct {
	set atomic.Bool
}

// New returns an unset flag.
func New() *Flag { return &Flag{} }

// Set requests cancellation. Idempotent; a nil flag ignores the request.
func (f *Flag) Set() {
	if f != nil {
		f.set.Store(true)
	}
}

// IsSet reports whether cancellation was requested. A nil flag is never set.
func (f *Flag) IsSet() bool { return f != nil && f.set.Load() }
