package backend

import (
	"context"
	"sync/atomic"
	"time"

	"github.com/guidellm/guidellm-go/internal/clock"
	"github.com/guidellm/guidellm-go/internal/record"
)

// Fake is a deterministic in-memory Adapter for tests: it waits
// FirstByteDelay then emits TokenCount tokens spaced TokenInterval apart,
// waiting on the real wall clock via time.After (not the injected clock.Clock,
// since this fake exists to exercise worker-pool/scheduler timing, which
// does depend on a real or fake Clock for its own stamps).
type Fake struct {
	Clock          clock.Clock
	FirstByteDelay time.Duration
	TokenInterval  time.Duration
	TokenCount     int
	PromptTokens   int
	FailEvery      int // if > 0, every Nth call fails with ErrorHTTPStatus

	calls atomic.Int64
}

func (f *Fake) Execute(ctx context.Context, payload record.Payload, deadline int64) <-chan Event {
	events := make(chan Event, f.TokenCount+2)
	call := int(f.calls.Add(1))

	go func() {
		defer close(events)

		if f.FirstByteDelay > 0 {
			select {
			case <-ctx.Done():
				events <- Event{Kind: EventError, Time: f.Clock.Now(), ErrorKind: record.ErrorCancelled, Err: ctx.Err()}
				return
			case <-time.After(f.FirstByteDelay):
			}
		}
		events <- stampedEvent(f.Clock, EventFirstByte)

		if f.FailEvery > 0 && call%f.FailEvery == 0 {
			events <- Event{Kind: EventError, Time: f.Clock.Now(), ErrorKind: record.ErrorHTTPStatus, Err: errHTTPStatus}
			return
		}

		for i := 0; i < f.TokenCount; i++ {
			if f.TokenInterval > 0 {
				select {
				case <-ctx.Done():
					events <- Event{Kind: EventError, Time: f.Clock.Now(), ErrorKind: record.ErrorCancelled, Err: ctx.Err()}
					return
				case <-time.After(f.TokenInterval):
				}
			}
			events <- Event{Kind: EventToken, Time: f.Clock.Now(), TokenText: "x", TokenCountDelta: 1}
		}

		events <- Event{Kind: EventDone, Time: f.Clock.Now(), PromptTokens: f.PromptTokens, OutputTokens: f.TokenCount}
	}()

	return events
}

func (f *Fake) Probe(ctx context.Context) error {
	return nil
}

var errHTTPStatus = &fakeError{"simulated HTTP 500"}

type fakeError struct{ msg string }

func (e *fakeError) Error() string { return e.msg }
