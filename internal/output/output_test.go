package output

import (
	"bytes"
	"encoding/csv"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/guidellm/guidellm-go/internal/aggregator"
	"github.com/guidellm/guidellm-go/internal/benchmarker"
)

func sampleResult() *benchmarker.Result {
	return &benchmarker.Result{
		Reports: []*aggregator.Report{
			{
				Run: aggregator.RunInfo{
					RunID:      "run-1",
					Model:      "test-model",
					Target:     "http://localhost:8000/v1",
					Strategy:   "constant@20.00",
					Rate:       20,
					Seed:       42,
					StartedAt:  time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC),
					StopReason: "max_requests",
				},
				DurationSeconds:   4.975,
				StatisticsDefined: true,
				Counts: aggregator.Counts{
					Dispatched: map[string]int{"measured": 90, "warmup": 10},
					Outcomes:   map[string]int{"completed": 88, "error": 2},
					Errors:     map[string]int{"http_status": 2},
				},
				Latency:           aggregator.Stats{Count: 88, Mean: 0.0101, StdDev: 0.0002, Min: 0.0099, Max: 0.0123, P50: 0.0101, P75: 0.0102, P90: 0.0104, P95: 0.0106, P99: 0.0121},
				TTFT:              aggregator.Stats{Count: 88, Mean: 0.0042},
				ITL:               aggregator.Stats{Count: 1760, Mean: 0.0199},
				RequestRate:       17.69,
				OutputTokenRate:   353.8,
				TotalOutputTokens: 1760,
				Records: []aggregator.RecordRow{
					{SequenceIndex: 10, Phase: "measured", Outcome: "completed", TargetedDispatch: 500_000_000, ActualDispatch: 500_031_000, Completion: 510_200_000, PromptTokens: 12, OutputTokens: 20},
					{SequenceIndex: 11, Phase: "measured", Outcome: "error", ErrorKind: "http_status", TargetedDispatch: 550_000_000, ActualDispatch: 550_020_000, Completion: 551_000_000},
				},
			},
		},
	}
}

func TestJSONRoundTripIsByteIdentical(t *testing.T) {
	result := sampleResult()

	path := filepath.Join(t.TempDir(), "report.json")
	f, err := os.Create(path)
	if err != nil {
		t.Fatal(err)
	}
	if err := WriteJSON(f, result); err != nil {
		t.Fatalf("write: %v", err)
	}
	f.Close()

	reloaded, err := LoadJSON(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}

	var a, b bytes.Buffer
	if err := WriteJSON(&a, result); err != nil {
		t.Fatal(err)
	}
	if err := WriteJSON(&b, reloaded); err != nil {
		t.Fatal(err)
	}
	if !bytes.Equal(a.Bytes(), b.Bytes()) {
		t.Error("serialize-reload-serialize is not byte-identical")
	}
}

func TestCSVOneRowPerRecord(t *testing.T) {
	var buf bytes.Buffer
	if err := WriteCSV(&buf, sampleResult()); err != nil {
		t.Fatalf("write: %v", err)
	}

	rows, err := csv.NewReader(&buf).ReadAll()
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if len(rows) != 3 { // header + 2 records
		t.Fatalf("expected 3 rows, got %d", len(rows))
	}
	if rows[0][0] != "run_id" {
		t.Errorf("unexpected header: %v", rows[0])
	}
	if rows[2][5] != "http_status" {
		t.Errorf("error kind missing from CSV row: %v", rows[2])
	}
}

func TestYAMLContainsStableFieldNames(t *testing.T) {
	var buf bytes.Buffer
	if err := WriteYAML(&buf, sampleResult()); err != nil {
		t.Fatalf("write: %v", err)
	}
	out := buf.String()
	for _, field := range []string{"request-rate", "output-token-rate", "statistics-defined", "stop-reason"} {
		if !strings.Contains(out, field) {
			t.Errorf("yaml output missing field %q", field)
		}
	}
}

func TestTableListsEveryRun(t *testing.T) {
	result := sampleResult()
	empty := &aggregator.Report{
		Run:    aggregator.RunInfo{Strategy: "synchronous"},
		Counts: aggregator.Counts{Outcomes: map[string]int{}},
	}
	result.Reports = append(result.Reports, empty)

	var buf bytes.Buffer
	if err := WriteTable(&buf, result); err != nil {
		t.Fatalf("write: %v", err)
	}
	out := buf.String()
	if !strings.Contains(out, "constant@20.00") || !strings.Contains(out, "synchronous") {
		t.Errorf("table missing run rows:\n%s", out)
	}
	if !strings.Contains(out, "http_status") {
		t.Errorf("table missing error breakdown:\n%s", out)
	}
}
