package source

import (
	"fmt"
	"math/rand"
	"strings"

	"github.com/guidellm/guidellm-go/internal/record"
)

// words exists only to produce text of a requested rough length, not to
// be linguistically meaningful.
var words = []string{
	"the", "quick", "brown", "fox", "jumps", "over", "lazy", "dog",
	"system", "prompt", "response", "model", "token", "latency",
	"throughput", "benchmark", "request", "stream", "endpoint", "service",
	"network", "cluster", "inference", "completion", "generation",
}

// Synthetic is an infinite Source that never ends, generating a random
// prompt of approximately numWords words for every call to Next.
type Synthetic struct {
	numWords  int
	maxTokens int
	kind      record.Kind
	rng       *rand.Rand
	seed      int64
}

// NewSynthetic builds an infinite synthetic source.
func NewSynthetic(kind record.Kind, numWords, maxTokens int, seed int64) *Synthetic {
	s := &Synthetic{kind: kind, numWords: numWords, maxTokens: maxTokens, seed: seed}
	s.Reset()
	return s
}

func (s *Synthetic) Reset() {
	s.rng = rand.New(rand.NewSource(s.seed))
}

func (s *Synthetic) Next() (record.Payload, bool) {
	phrase := s.generatePhrase()
	p := record.Payload{
		Kind:                s.kind,
		MaxTokens:           s.maxTokens,
		PromptTokenEstimate: s.numWords,
	}
	if s.kind == record.KindChat {
		p.Messages = []record.Message{{Role: "user", Content: phrase}}
	} else {
		p.Prompt = phrase
	}
	return p, true
}

func (s *Synthetic) generatePhrase() string {
	if s.numWords <= 0 {
		return ""
	}
	parts := make([]string, s.numWords)
	for i := range parts {
		parts[i] = words[s.rng.Intn(len(words))]
	}
	return strings.Join(parts, " ")
}

// String renders a short description for logging.
func (s *Synthetic) String() string {
	return fmt.Sprintf("synthetic(kind=%s words=%d)", s.kind, s.numWords)
}
