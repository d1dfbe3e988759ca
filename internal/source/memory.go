package source

import (
	"math/rand"

	"github.com/guidellm/guidellm-go/internal/record"
)

// Sampling selects how an in-memory source walks its items across
// successive Reset() calls.
type Sampling string

const (
	Sequential Sampling = "sequential"
	Shuffled   Sampling = "shuffled"
)

// Memory is a finite Source backed by a fixed slice of payloads, loaded
// ahead of time by whatever dataset/prompt-generation layer sits above
// this package.
type Memory struct {
	items    []record.Payload
	sampling Sampling
	seed     int64

	order []int
	pos   int
}

// NewMemory builds a Memory source. sampling==Shuffled reshuffles the
// order (deterministically, from seed) on every Reset.
func NewMemory(items []record.Payload, sampling Sampling, seed int64) *Memory {
	m := &Memory{items: items, sampling: sampling, seed: seed}
	m.Reset()
	return m
}

func (m *Memory) Reset() {
	m.pos = 0
	m.order = make([]int, len(m.items))
	for i := range m.order {
		m.order[i] = i
	}
	if m.sampling == Shuffled {
		rng := rand.New(rand.NewSource(m.seed))
		rng.Shuffle(len(m.order), func(i, j int) {
			m.order[i], m.order[j] = m.order[j], m.order[i]
		})
	}
}

func (m *Memory) Next() (record.Payload, bool) {
	if m.pos >= len(m.order) {
		return record.Payload{}, false
	}
	p := m.items[m.order[m.pos]]
	m.pos++
	return p, true
}

// Len reports the number of items in the source.
func (m *Memory) Len() int {
	return len(m.items)
}
