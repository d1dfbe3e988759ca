// Package backend issues single requests against a generative inference
// endpoint, yielding a lazy sequence of token-arrival events followed by
// a terminal outcome, stamping every event from the shared Clock at the
// point of observation.
package backend

import (
	"context"

	"github.com/guidellm/guidellm-go/internal/clock"
	"github.com/guidellm/guidellm-go/internal/record"
)

// EventKind tags which variant an Event carries.
type EventKind int

const (
	EventFirstByte EventKind = iota
	EventToken
	EventDone
	EventError
)

// Event is one element of the lazy sequence Execute produces. Exactly one
// of EventDone or EventError terminates the sequence.
type Event struct {
	Kind EventKind
	Time int64 // monotonic ns, stamped at observation

	// EventToken fields.
	TokenText       string
	TokenCountDelta int

	// EventDone fields.
	PromptTokens int
	OutputTokens int

	// EventError fields.
	ErrorKind record.ErrorKind
	Err       error
}

// Adapter is the contract every backend implementation satisfies. It
// MUST NOT retry internally; retry policy, if any, belongs to the
// Scheduler.
type Adapter interface {
	// Execute issues payload against the backend and streams events onto
	// the returned channel until a terminal event is sent, then the
	// channel is closed. deadline is a clock.Clock timestamp (not a
	// time.Time) after which the adapter must cancel itself and emit an
	// EventError with ErrorTimeout if it has not already terminated.
	Execute(ctx context.Context, payload record.Payload, deadline int64) <-chan Event

	// Probe validates reachability and model availability before any
	// benchmark run. A non-nil error is fatal (backend_unreachable) and
	// must abort the benchmarker before dispatch begins.
	Probe(ctx context.Context) error
}

// stampedEvent is a small helper so adapters stamp consistently.
func stampedEvent(c clock.Clock, kind EventKind) Event {
	return Event{Kind: kind, Time: c.Now()}
}
