package source

import "github.com/guidellm/guidellm-go/internal/record"

// Repeating is an infinite Source that yields the same fixed payload on
// every call, for workloads driven by a single operator-supplied prompt.
type Repeating struct {
	payload record.Payload
}

// NewRepeating builds an infinite fixed-payload source.
func NewRepeating(payload record.Payload) *Repeating {
	return &Repeating{payload: payload}
}

func (r *Repeating) Reset() {}

func (r *Repeating) Next() (record.Payload, bool) {
	return r.payload, true
}
