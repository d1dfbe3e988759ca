// Package source provides restartable lazy sequences of request
// payloads, safe for single-consumer use. Dataset file loading lives
// above this package; here are the in-memory, repeating, and synthetic
// sources the engine needs to run at all.
package source

import "github.com/guidellm/guidellm-go/internal/record"

// Source is the contract every request source satisfies.
type Source interface {
	// Reset returns the source to its start.
	Reset()

	// Next yields the next payload, or ok=false if the source is
	// exhausted (finite sources only; infinite sources never return
	// ok=false).
	Next() (payload record.Payload, ok bool)
}
