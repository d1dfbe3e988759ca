// Package record defines the data model shared by every stage of the
// scheduling and measurement pipeline: payloads, dispatch tickets,
// request records, and the outcome/phase enums.
package record

// Kind selects the OpenAI-compatible endpoint family a payload targets.
type Kind string

const (
	KindText Kind = "text"
	KindChat Kind = "chat"
)

// Phase marks which part of a run a ticket/record belongs to. Only
// PhaseMeasured records contribute to aggregator statistics.
type Phase string

const (
	PhaseWarmup   Phase = "warmup"
	PhaseMeasured Phase = "measured"
	PhaseCooldown Phase = "cooldown"
)

// Message is one chat turn. Used only when Kind == KindChat.
type Message struct {
	Role    string
	Content string
}

// Payload is an immutable request produced by a Request Source: target
// endpoint kind, prompt or message list, generation parameters, and
// opaque per-request metadata. Never mutated after construction.
type Payload struct {
	Kind Kind

	// Prompt is used when Kind == KindText.
	Prompt string
	// Messages is used when Kind == KindChat.
	Messages []Message

	MaxTokens     int
	Temperature   float32
	StopSequences []string

	// PromptTokenEstimate is a hint from the source, not a measurement.
	PromptTokenEstimate int
	// DatasetIndex is opaque metadata carried through to the record for
	// correlation with the originating dataset row, when one exists.
	DatasetIndex int
}

// Ticket is generated by the Scheduler for each payload it releases.
// Immutable once built.
type Ticket struct {
	Payload              Payload
	TargetedDispatchTime int64
	SequenceIndex        int
	Phase                Phase
}

// Outcome is the terminal state of a request.
type Outcome string

const (
	OutcomeCompleted Outcome = "completed"
	OutcomeError     Outcome = "error"
	OutcomeCancelled Outcome = "cancelled"
	OutcomeTimeout   Outcome = "timeout"
)

// ErrorKind classifies why a request failed.
type ErrorKind string

const (
	ErrorConnect    ErrorKind = "connect"
	ErrorTimeout    ErrorKind = "timeout"
	ErrorHTTPStatus ErrorKind = "http_status"
	ErrorDecode     ErrorKind = "decode"
	ErrorCancelled  ErrorKind = "cancelled"
)

// ErrorDetail carries the kind and message for a non-completed outcome.
type ErrorDetail struct {
	Kind    ErrorKind
	Message string
}

// Times holds every monotonic timestamp recorded against a request, all
// nullable (zero means "not reached"). When all are set, the invariant
// TargetedDispatch <= ActualDispatch <= FirstResponseByte <= FirstToken
// <= LastToken <= Completion holds.
type Times struct {
	TargetedDispatch  int64
	ActualDispatch    int64
	FirstResponseByte int64
	FirstToken        int64
	LastToken         int64
	Completion        int64
}

// Record is one row of measurement, filled progressively by the worker
// handling it and transferred to the Aggregator on completion. Created by
// the Scheduler at dispatch time; mutated only by its owning worker.
type Record struct {
	SequenceIndex int
	Phase         Phase

	Times Times

	// TokenArrivals is the ordered sequence of monotonic times, one per
	// streamed token or token group.
	TokenArrivals []int64

	PromptTokens int
	OutputTokens int

	Outcome Outcome
	Error   *ErrorDetail
}

// NewRecord creates a fresh in-flight record for a just-dispatched
// ticket, with TargetedDispatch already stamped.
func NewRecord(t Ticket) *Record {
	return &Record{
		SequenceIndex: t.SequenceIndex,
		Phase:         t.Phase,
		Times: Times{
			TargetedDispatch: t.TargetedDispatchTime,
		},
	}
}

// IsTerminal reports whether the record has reached one of the four
// terminal outcomes.
func (r *Record) IsTerminal() bool {
	return r.Outcome == OutcomeCompleted || r.Outcome == OutcomeError ||
		r.Outcome == OutcomeCancelled || r.Outcome == OutcomeTimeout
}
