package record

import "testing"

func TestCheckMonotonicAccepts(t *testing.T) {
	tm := Times{
		TargetedDispatch:  1,
		ActualDispatch:    2,
		FirstResponseByte: 3,
		FirstToken:        4,
		LastToken:         10,
		Completion:        12,
	}
	if err := CheckMonotonic(tm); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestCheckMonotonicAcceptsPartial(t *testing.T) {
	tm := Times{TargetedDispatch: 5, ActualDispatch: 6}
	if err := CheckMonotonic(tm); err != nil {
		t.Fatalf("unexpected error for partially-filled times: %v", err)
	}
}

func TestCheckMonotonicRejectsOutOfOrder(t *testing.T) {
	tm := Times{TargetedDispatch: 10, ActualDispatch: 5}
	if err := CheckMonotonic(tm); err == nil {
		t.Fatal("expected error for out-of-order timestamps")
	}
}

func TestNewRecordStampsTargetedDispatch(t *testing.T) {
	ticket := Ticket{SequenceIndex: 3, Phase: PhaseMeasured, TargetedDispatchTime: 42}
	r := NewRecord(ticket)
	if r.Times.TargetedDispatch != 42 {
		t.Fatalf("expected TargetedDispatch=42, got %d", r.Times.TargetedDispatch)
	}
	if r.SequenceIndex != 3 || r.Phase != PhaseMeasured {
		t.Fatalf("unexpected record identity: %+v", r)
	}
	if r.IsTerminal() {
		t.Fatal("freshly created record should not be terminal")
	}
}

func TestIsTerminal(t *testing.T) {
	cases := []struct {
		outcome  Outcome
		terminal bool
	}{
		{"", false},
		{OutcomeCompleted, true},
		{OutcomeError, true},
		{OutcomeCancelled, true},
		{OutcomeTimeout, true},
	}
	for _, c := range cases {
		r := &Record{Outcome: c.outcome}
		if got := r.IsTerminal(); got != c.terminal {
			t.Errorf("outcome %q: IsTerminal()=%v, want %v", c.outcome, got, c.terminal)
		}
	}
}
