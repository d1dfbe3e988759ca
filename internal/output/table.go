package output

import (
	"fmt"
	"io"
	"text/tabwriter"

	"github.com/cheynewallace/tabby"

	"github.com/guidellm/guidellm-go/internal/benchmarker"
)

// WriteTable renders the per-run summary table, one row per run. This is
// the CLI's default human-readable view; a sweep produces several rows.
func WriteTable(w io.Writer, result *benchmarker.Result) error {
	t := tabby.NewCustom(tabwriter.NewWriter(w, 0, 0, 2, ' ', 0))
	t.AddHeader(
		"STRATEGY", "REQUESTS", "ERRORS", "DURATION (s)", "REQ/S", "TOKENS/S",
		"MEAN LAT (s)", "P99 LAT (s)", "MEAN TTFT (s)", "MEAN ITL (s)",
	)

	for _, rep := range result.Reports {
		completed := rep.Counts.Outcomes["completed"]
		errored := 0
		for outcome, n := range rep.Counts.Outcomes {
			if outcome != "completed" {
				errored += n
			}
		}

		if !rep.StatisticsDefined {
			t.AddLine(rep.Run.Strategy, completed, errored,
				fmt.Sprintf("%.2f", rep.DurationSeconds),
				"-", "-", "-", "-", "-", "-")
			continue
		}

		t.AddLine(
			rep.Run.Strategy,
			completed,
			errored,
			fmt.Sprintf("%.2f", rep.DurationSeconds),
			fmt.Sprintf("%.2f", rep.RequestRate),
			fmt.Sprintf("%.2f", rep.OutputTokenRate),
			fmt.Sprintf("%.4f", rep.Latency.Mean),
			fmt.Sprintf("%.4f", rep.Latency.P99),
			fmt.Sprintf("%.4f", rep.TTFT.Mean),
			fmt.Sprintf("%.4f", rep.ITL.Mean),
		)
	}
	t.Print()

	for _, rep := range result.Reports {
		if len(rep.Counts.Errors) == 0 {
			continue
		}
		fmt.Fprintf(w, "\n%s error breakdown:\n", rep.Run.Strategy)
		for kind, n := range rep.Counts.Errors {
			fmt.Fprintf(w, "  %-16s %d\n", kind, n)
		}
	}
	return nil
}
