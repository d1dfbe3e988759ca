// Package output serializes benchmark results: JSON and YAML whole-
// report encodings, CSV per-record rows, and an aligned table summary
// for the CLI.
package output

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strconv"

	"go.yaml.in/yaml/v4"

	"github.com/guidellm/guidellm-go/internal/benchmarker"
)

// WriteJSON encodes the result as indented JSON.
func WriteJSON(w io.Writer, result *benchmarker.Result) error {
	data, err := json.MarshalIndent(result, "", "    ")
	if err != nil {
		return fmt.Errorf("error marshalling JSON: %w", err)
	}
	_, err = fmt.Fprintln(w, string(data))
	return err
}

// WriteYAML encodes the result as YAML.
func WriteYAML(w io.Writer, result *benchmarker.Result) error {
	data, err := yaml.Marshal(result)
	if err != nil {
		return fmt.Errorf("error marshalling yaml: %w", err)
	}
	_, err = w.Write(data)
	return err
}

// csvHeader lists the per-record CSV columns, one row per retained
// RequestRecord across every run in the result.
var csvHeader = []string{
	"run_id", "strategy", "sequence_index", "phase", "outcome", "error_kind",
	"targeted_dispatch", "actual_dispatch", "first_response_byte",
	"first_token", "last_token", "completion", "prompt_tokens", "output_tokens",
}

// WriteCSV emits one row per retained record.
func WriteCSV(w io.Writer, result *benchmarker.Result) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(csvHeader); err != nil {
		return err
	}
	for _, rep := range result.Reports {
		for _, row := range rep.Records {
			fields := []string{
				rep.Run.RunID,
				rep.Run.Strategy,
				strconv.Itoa(row.SequenceIndex),
				row.Phase,
				row.Outcome,
				row.ErrorKind,
				strconv.FormatInt(row.TargetedDispatch, 10),
				strconv.FormatInt(row.ActualDispatch, 10),
				strconv.FormatInt(row.FirstResponseByte, 10),
				strconv.FormatInt(row.FirstToken, 10),
				strconv.FormatInt(row.LastToken, 10),
				strconv.FormatInt(row.Completion, 10),
				strconv.Itoa(row.PromptTokens),
				strconv.Itoa(row.OutputTokens),
			}
			if err := cw.Write(fields); err != nil {
				return err
			}
		}
	}
	cw.Flush()
	return cw.Error()
}

// LoadJSON reads a result previously written by WriteJSON, for report
// post-processing and comparisons.
func LoadJSON(path string) (*benchmarker.Result, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading report: %w", err)
	}
	var result benchmarker.Result
	if err := json.Unmarshal(data, &result); err != nil {
		return nil, fmt.Errorf("parsing report %s: %w", path, err)
	}
	return &result, nil
}

// Write dispatches on format. path of "" writes to stdout.
func Write(path, format string, result *benchmarker.Result) error {
	var w io.Writer = os.Stdout
	if path != "" {
		f, err := os.Create(path)
		if err != nil {
			return fmt.Errorf("creating output file: %w", err)
		}
		defer f.Close()
		w = f
	}

	switch format {
	case "json":
		return WriteJSON(w, result)
	case "yaml":
		return WriteYAML(w, result)
	case "csv":
		return WriteCSV(w, result)
	case "table":
		return WriteTable(w, result)
	default:
		return fmt.Errorf("unknown output format %q", format)
	}
}
