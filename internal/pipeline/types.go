package pipeline

import (
	"github.com/veridose/boxscan/internal/decision"
	"github.com/veridose/boxscan/internal/detector"
	"github.com/veridose/boxscan/internal/extractor"
	"github.com/veridose/boxscan/internal/match"
	"github.com/veridose/boxscan/internal/recovery"
)

// FailureKind classifies what went wrong in a region, if anything.
type FailureKind string

const (
	// FailureNone marks a region that completed every stage it needed.
	FailureNone FailureKind = ""

	// FailureExtraction marks a region whose text could not be read even
	// after retries. Timeouts of the recognition call land here too.
	FailureExtraction FailureKind = "extraction_failure"

	// FailureRecovery marks a damaged region whose text could not be
	// reconstructed. The original low-quality text was still matched.
	FailureRecovery FailureKind = "recovery_failure"

	// FailureNoMatch marks a region whose text matched nothing in the
	// catalog.
	FailureNoMatch FailureKind = "no_match_found"

	// FailureIndexUnavailable marks a region processed without visual
	// similarity because the index could not be reached.
	FailureIndexUnavailable FailureKind = "index_unavailable"
)

// RegionResult is the pipeline's verdict for one detected region.
type RegionResult struct {
	RegionID   string                  `json:"region_id"`
	Index      int                     `json:"index"`
	Box        [4]int                  `json:"box"` // x, y, w, h
	Condition  detector.BoxCondition   `json:"condition"`
	Extracted  extractor.ExtractedText `json:"extracted"`
	Recovered  *recovery.RecoveredText `json:"recovered,omitempty"`
	Best       *match.Candidate        `json:"best,omitempty"`
	Candidates []match.Candidate       `json:"candidates"`
	Action     decision.Action         `json:"action"`
	VisualHit  bool                    `json:"visual_hit"`
	Failure    FailureKind             `json:"failure,omitempty"`
	DurationMS int64                   `json:"duration_ms"`
}

// MatchedKey returns the text that was actually matched for the region,
// the recovered text when recovery superseded the extraction.
func (r RegionResult) MatchedKey() string {
	if r.Recovered != nil && r.Recovered.Succeeded() {
		return r.Recovered.Recovered
	}
	return r.Extracted.Normalized
}

// DrugDetection is one deduplicated drug in the final result.
type DrugDetection struct {
	DrugID     string          `json:"drug_id"`
	Name       string          `json:"name"`
	Confidence float64         `json:"confidence"`
	RegionID   string          `json:"region_id"`
	Duplicates []string        `json:"duplicate_region_ids,omitempty"`
	Action     decision.Action `json:"action"`
}

// MultiDrugResult is the output of one pipeline run over one image.
type MultiDrugResult struct {
	SessionID           string          `json:"session_id"`
	Source              string          `json:"source,omitempty"`
	Regions             []RegionResult  `json:"regions"`
	Drugs               []DrugDetection `json:"drugs"`
	AggregateConfidence float64         `json:"aggregate_confidence"`
	DurationMS          int64           `json:"duration_ms"`
}
