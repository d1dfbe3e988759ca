package ratestrategy

import "testing"

func TestDefaultGeometricSweepStartsWithSyncThenThroughput(t *testing.T) {
	sweep := DefaultGeometricSweep(10, 200, 5)
	if len(sweep.Steps) != 7 {
		t.Fatalf("expected 2 + 5 steps, got %d", len(sweep.Steps))
	}
	if sweep.Steps[0].Config.Type != TypeSynchronous {
		t.Fatalf("expected first step synchronous, got %s", sweep.Steps[0].Config.Type)
	}
	if sweep.Steps[1].Config.Type != TypeThroughput {
		t.Fatalf("expected second step throughput, got %s", sweep.Steps[1].Config.Type)
	}
	for i, step := range sweep.Steps[2:] {
		if step.Config.Type != TypeConstant {
			t.Fatalf("expected constant step at index %d, got %s", i, step.Config.Type)
		}
		if step.Config.Rate <= 10 || step.Config.Rate >= 200 {
			t.Errorf("expected geometric step rate between endpoints, got %f", step.Config.Rate)
		}
	}
}

func TestDefaultGeometricSweepIsIncreasing(t *testing.T) {
	sweep := DefaultGeometricSweep(10, 200, 5)
	var last float64
	for _, step := range sweep.Steps[2:] {
		if step.Config.Rate <= last {
			t.Fatalf("expected strictly increasing rates, got %f after %f", step.Config.Rate, last)
		}
		last = step.Config.Rate
	}
}

func TestDefaultGeometricSweepDegenerateRange(t *testing.T) {
	sweep := DefaultGeometricSweep(0, 0, 5)
	if len(sweep.Steps) != 2 {
		t.Fatalf("expected no intermediate steps for a degenerate range, got %d", len(sweep.Steps))
	}
}
