// Package batch scans whole directories of box photographs.
package batch

import (
	"fmt"
	"os"
	"time"

	"github.com/veridose/boxscan/internal/pipeline"
)

// Config holds batch scan settings.
type Config struct {
	// Recursive descends into subdirectories during discovery.
	Recursive bool

	// IncludePatterns and ExcludePatterns filter discovered files by
	// glob against the basename.
	IncludePatterns []string
	ExcludePatterns []string

	// Workers bounds the number of images scanned at once.
	Workers int

	// Format selects the output encoding: json, csv, or text.
	Format string

	// OutputFile receives the formatted results; empty means stdout.
	OutputFile string

	// Quiet suppresses progress and statistics on stderr.
	Quiet bool
}

// DefaultConfig returns defaults for batch scanning.
func DefaultConfig() Config {
	return Config{
		Workers: 2,
		Format:  "json",
	}
}

// FileResult pairs an input path with its scan outcome.
type FileResult struct {
	Path   string                    `json:"path"`
	Result *pipeline.MultiDrugResult `json:"result,omitempty"`
	Error  string                    `json:"error,omitempty"`
}

// Result is the outcome of one batch run.
type Result struct {
	Files    []FileResult  `json:"files"`
	Duration time.Duration `json:"duration"`
}

// FormatResults renders the result in the requested format.
func (r *Result) FormatResults(format string) (string, error) {
	return formatResults(r.Files, format)
}

// SaveResults writes the formatted results to the output file, or to
// stdout when none is configured.
func (r *Result) SaveResults(format, outputFile string, quiet bool) error {
	output, err := r.FormatResults(format)
	if err != nil {
		return fmt.Errorf("format results: %w", err)
	}
	if outputFile == "" {
		fmt.Println(output)
		return nil
	}
	if err := os.WriteFile(outputFile, []byte(output), 0o600); err != nil {
		return fmt.Errorf("write output file: %w", err)
	}
	if !quiet {
		fmt.Fprintf(os.Stderr, "Results written to %s\n", outputFile)
	}
	return nil
}

// PrintStats summarizes the run on stderr.
func (r *Result) PrintStats(quiet bool) {
	if quiet {
		return
	}
	scanned, failed, drugs := 0, 0, 0
	for _, f := range r.Files {
		if f.Error != "" {
			failed++
			continue
		}
		scanned++
		drugs += len(f.Result.Drugs)
	}
	fmt.Fprintf(os.Stderr, "Scanned %d images (%d failed), %d drugs identified in %v\n",
		scanned, failed, drugs, r.Duration.Round(time.Millisecond))
}
