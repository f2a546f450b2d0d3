// Package events is the typed, named event channel between the background
// workers (pack fetcher, installer, sidecar supervisor) and whatever front end
// is attached. Delivery is synchronous and ordered per emitter; consumer
// failures are counted and logged but never reach the emitter.
package events

import "time"

// Event names. These are part of the front-end contract and must not change.
const (
	AIPackProgress        = "ai-pack-progress"
	AIPackPaused          = "ai-pack-paused"
	AIPackExtracting      = "ai-pack-extracting"
	AIPackExtractProgress = "ai-pack-extract-progress"
	AIPackLog             = "ai-pack-log"
	AIPackDone            = "ai-pack-done"
	AIPackError           = "ai-pack-error"

	ProcessingProgress = "processing-progress"
	ProcessingLog      = "processing-log"
	ProcessingDone     = "processing-done"

	ModelConversionStart = "model-conversion-start"
	ModelConversionDone  = "model-conversion-done"
	ModelConversionError = "model-conversion-error"
)

// Event is one named payload as seen by consumers.
type Event struct {
	Name    string
	Payload any
	Time    time.Time
}

// Emitter is the narrow interface producers depend on.
type Emitter interface {
	Emit(name string, payload any)
}

// EventConsumer receives every event published on a Bus.
type EventConsumer interface {
	// Name returns the consumer name for identification
	Name() string

	// ProcessEvent handles a single event. Returned errors are counted, not propagated.
	ProcessEvent(event Event) error
}

// EmitterFunc adapts a function to the Emitter interface.
type EmitterFunc func(name string, payload any)

// Emit calls f(name, payload).
func (f EmitterFunc) Emit(name string, payload any) { f(name, payload) }

// Discard is an Emitter that drops everything.
var Discard Emitter = EmitterFunc(func(string, any) {})
