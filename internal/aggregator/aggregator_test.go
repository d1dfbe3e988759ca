package aggregator

import (
	"math"
	"math/rand"
	"testing"
	"time"

	"github.com/guidellm/guidellm-go/internal/record"
)

const ms = int64(time.Millisecond)

// completedRecord builds a measured completed record dispatched at
// dispatch with the given end-to-end latency.
func completedRecord(seq int, dispatch, latency int64) *record.Record {
	return &record.Record{
		SequenceIndex: seq,
		Phase:         record.PhaseMeasured,
		Outcome:       record.OutcomeCompleted,
		Times: record.Times{
			TargetedDispatch: dispatch,
			ActualDispatch:   dispatch,
			Completion:       dispatch + latency,
		},
		OutputTokens: 10,
	}
}

func TestStatsFromKnownDistribution(t *testing.T) {
	a := New(1000, false)
	// 100 records, latencies 1ms..100ms, dispatched 1ms apart.
	for i := 0; i < 100; i++ {
		a.Add(completedRecord(i, int64(i)*ms, int64(i+1)*ms))
	}

	rep := a.Finalize(RunInfo{RunID: "test"})
	if !rep.StatisticsDefined {
		t.Fatal("expected statistics to be defined")
	}
	if rep.Latency.Count != 100 {
		t.Fatalf("expected latency count 100, got %d", rep.Latency.Count)
	}
	if got, want := rep.Latency.Mean, 0.0505; math.Abs(got-want) > 1e-9 {
		t.Errorf("mean: got %v, want %v", got, want)
	}
	if got := rep.Latency.Min; got != 0.001 {
		t.Errorf("min: got %v, want 0.001", got)
	}
	if got := rep.Latency.Max; got != 0.100 {
		t.Errorf("max: got %v, want 0.100", got)
	}
	if got := rep.Latency.P50; got != 0.050 {
		t.Errorf("p50: got %v, want 0.050", got)
	}
	if got := rep.Latency.P99; got != 0.099 {
		t.Errorf("p99: got %v, want 0.099", got)
	}
}

func TestStatisticsInvariantUnderPermutation(t *testing.T) {
	build := func(order []int) *Report {
		a := New(1000, false)
		for _, i := range order {
			r := completedRecord(i, int64(i)*ms, int64(i+1)*ms)
			r.TokenArrivals = []int64{r.Times.ActualDispatch + 5*ms, r.Times.ActualDispatch + 9*ms}
			r.Times.FirstToken = r.TokenArrivals[0]
			r.Times.LastToken = r.TokenArrivals[1]
			a.Add(r)
		}
		return a.Finalize(RunInfo{RunID: "perm"})
	}

	inOrder := make([]int, 200)
	for i := range inOrder {
		inOrder[i] = i
	}
	shuffled := append([]int(nil), inOrder...)
	rand.New(rand.NewSource(7)).Shuffle(len(shuffled), func(i, j int) {
		shuffled[i], shuffled[j] = shuffled[j], shuffled[i]
	})

	ra, rb := build(inOrder), build(shuffled)
	if ra.Latency != rb.Latency {
		t.Errorf("latency stats differ under permutation:\n%+v\n%+v", ra.Latency, rb.Latency)
	}
	if ra.TTFT != rb.TTFT {
		t.Errorf("ttft stats differ under permutation:\n%+v\n%+v", ra.TTFT, rb.TTFT)
	}
	if ra.ITL != rb.ITL {
		t.Errorf("itl stats differ under permutation:\n%+v\n%+v", ra.ITL, rb.ITL)
	}
	if ra.RequestRate != rb.RequestRate {
		t.Errorf("request rate differs: %v vs %v", ra.RequestRate, rb.RequestRate)
	}
}

func TestWarmupCooldownExcludedFromStats(t *testing.T) {
	a := New(1000, false)

	warm := completedRecord(0, 0, 500*ms)
	warm.Phase = record.PhaseWarmup
	cool := completedRecord(9, 100*ms, 500*ms)
	cool.Phase = record.PhaseCooldown
	a.Add(warm)
	a.Add(cool)
	for i := 1; i < 9; i++ {
		a.Add(completedRecord(i, int64(i)*10*ms, 10*ms))
	}

	rep := a.Finalize(RunInfo{})
	if rep.Latency.Count != 8 {
		t.Fatalf("expected 8 measured samples, got %d", rep.Latency.Count)
	}
	if rep.Latency.Max != 0.010 {
		t.Errorf("warmup/cooldown latencies leaked into stats: max %v", rep.Latency.Max)
	}
	if rep.Counts.Dispatched["warmup"] != 1 || rep.Counts.Dispatched["cooldown"] != 1 {
		t.Errorf("phase counts wrong: %+v", rep.Counts.Dispatched)
	}
	if len(rep.Records) != 8 {
		t.Errorf("expected only measured records retained, got %d", len(rep.Records))
	}
}

func TestRetainAllKeepsEveryPhase(t *testing.T) {
	a := New(1000, true)
	warm := completedRecord(0, 0, ms)
	warm.Phase = record.PhaseWarmup
	a.Add(warm)
	a.Add(completedRecord(1, ms, ms))

	rep := a.Finalize(RunInfo{})
	if len(rep.Records) != 2 {
		t.Fatalf("expected 2 retained records with retainAll, got %d", len(rep.Records))
	}
}

func TestErrorBreakdownAndRates(t *testing.T) {
	a := New(1000, false)
	// 10 completed and 10 http_status failures over a 1-second window.
	for i := 0; i < 10; i++ {
		a.Add(completedRecord(i, int64(i)*100*ms, 50*ms))
	}
	for i := 10; i < 20; i++ {
		r := completedRecord(i, int64(i-10)*100*ms, 50*ms)
		r.Outcome = record.OutcomeError
		r.Error = &record.ErrorDetail{Kind: record.ErrorHTTPStatus, Message: "500"}
		a.Add(r)
	}

	rep := a.Finalize(RunInfo{})
	if rep.Counts.Outcomes["completed"] != 10 || rep.Counts.Outcomes["error"] != 10 {
		t.Fatalf("outcome counts wrong: %+v", rep.Counts.Outcomes)
	}
	if rep.Counts.Errors["http_status"] != 10 {
		t.Fatalf("error breakdown wrong: %+v", rep.Counts.Errors)
	}
	if rep.Latency.Count != 10 {
		t.Errorf("failed requests leaked into latency stats: count %d", rep.Latency.Count)
	}
	// Window is 0..950ms; only the 10 successes count toward the rate.
	wantRate := 10.0 / 0.95
	if math.Abs(rep.RequestRate-wantRate) > 1e-9 {
		t.Errorf("request rate: got %v, want %v", rep.RequestRate, wantRate)
	}
}

func TestEmptyRunProducesWellFormedReport(t *testing.T) {
	a := New(1000, false)
	rep := a.Finalize(RunInfo{RunID: "empty"})

	if rep.StatisticsDefined {
		t.Error("empty run must flag statistics as undefined")
	}
	if rep.Latency.Count != 0 || rep.RequestRate != 0 {
		t.Errorf("empty run must have zero stats, got %+v", rep.Latency)
	}
	if len(rep.Records) != 0 {
		t.Errorf("empty run must retain no records, got %d", len(rep.Records))
	}
}

func TestITLPooledAcrossRequests(t *testing.T) {
	a := New(1000, false)

	r1 := completedRecord(0, 0, 100*ms)
	r1.TokenArrivals = []int64{10 * ms, 30 * ms, 50 * ms} // gaps: 20, 20
	r1.Times.FirstToken = 10 * ms
	r1.Times.LastToken = 50 * ms
	r2 := completedRecord(1, 0, 100*ms)
	r2.TokenArrivals = []int64{20 * ms, 60 * ms} // gap: 40
	r2.Times.FirstToken = 20 * ms
	r2.Times.LastToken = 60 * ms
	a.Add(r1)
	a.Add(r2)

	rep := a.Finalize(RunInfo{})
	if rep.ITL.Count != 3 {
		t.Fatalf("expected 3 pooled inter-token gaps, got %d", rep.ITL.Count)
	}
	wantMean := (0.020 + 0.020 + 0.040) / 3
	if math.Abs(rep.ITL.Mean-wantMean) > 1e-9 {
		t.Errorf("itl mean: got %v, want %v", rep.ITL.Mean, wantMean)
	}
}

func TestEstimatorOverflowFallsBackToHistogram(t *testing.T) {
	e := newEstimator(100)
	for i := 0; i < 1000; i++ {
		e.add(int64(i+1) * ms)
	}
	if !e.overflowed {
		t.Fatal("expected estimator to overflow its sample limit")
	}
	// 3-significant-figure histogram: p50 within 0.5% of the exact value.
	got := float64(e.quantile(50))
	want := 500 * float64(ms)
	if math.Abs(got-want)/want > 0.005 {
		t.Errorf("histogram p50 outside error bound: got %v, want ~%v", got, want)
	}
}
