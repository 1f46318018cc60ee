// Package decision turns ranked match candidates into a recommended
// action for the dispensing workflow.
package decision

import (
	"sort"

	"github.com/veridose/boxscan/internal/match"
)

// Action is what the workflow should do with a region's candidates.
type Action string

const (
	// ActionAutoSelect means the top candidate is trustworthy enough to
	// dispense without operator review.
	ActionAutoSelect Action = "AUTO_SELECT"

	// ActionShowOptions means the operator should pick from the ranked
	// candidates.
	ActionShowOptions Action = "SHOW_OPTIONS"

	// ActionManualEntry means no candidate is usable and the operator
	// must type the drug in.
	ActionManualEntry Action = "MANUAL_ENTRY"

	// ActionRescan means the photo itself was the problem.
	ActionRescan Action = "RESCAN"
)

// Config holds decision thresholds.
type Config struct {
	// AutoSelectThreshold is the minimum confidence for AUTO_SELECT.
	AutoSelectThreshold float64

	// LowConfidenceFloor is the confidence below which candidates are
	// not worth showing.
	LowConfidenceFloor float64

	// TieMargin is the confidence gap under which two candidates count
	// as tied.
	TieMargin float64
}

// DefaultConfig returns default decision thresholds.
func DefaultConfig() Config {
	return Config{
		AutoSelectThreshold: 85,
		LowConfidenceFloor:  40,
		TieMargin:           5,
	}
}

// Input carries the per-region context the decision depends on.
type Input struct {
	Candidates []match.Candidate

	// VisualDisagrees is true when the visual index points to a drug
	// other than the leading text candidate.
	VisualDisagrees bool
}

// Decision is the engine's verdict for one region.
type Decision struct {
	Action     Action            `json:"action"`
	Selected   *match.Candidate  `json:"selected,omitempty"`
	Candidates []match.Candidate `json:"candidates"`
}

// Engine applies the decision rules.
type Engine struct {
	cfg Config
}

// NewEngine creates a decision engine.
func NewEngine(cfg Config) *Engine {
	if cfg.AutoSelectThreshold <= 0 {
		cfg.AutoSelectThreshold = DefaultConfig().AutoSelectThreshold
	}
	if cfg.TieMargin < 0 {
		cfg.TieMargin = 0
	}
	return &Engine{cfg: cfg}
}

// Decide ranks the candidates and picks an action. No candidates at all
// means the region needs a new photo; MANUAL_ENTRY is reserved for a
// best candidate that exists but falls below the low-confidence floor.
func (e *Engine) Decide(in Input) Decision {
	ranked := e.Rank(in.Candidates)

	if len(ranked) == 0 {
		return Decision{Action: ActionRescan}
	}

	top := ranked[0]
	if top.Confidence < e.cfg.LowConfidenceFloor {
		return Decision{Action: ActionManualEntry, Candidates: ranked}
	}
	if top.Confidence >= e.cfg.AutoSelectThreshold && e.topDistinct(ranked) && !in.VisualDisagrees {
		return Decision{Action: ActionAutoSelect, Selected: &ranked[0], Candidates: ranked}
	}
	return Decision{Action: ActionShowOptions, Candidates: ranked}
}

// topDistinct reports whether the leading candidate is separable from
// the runner-up. Candidates for different drugs tied on every criterion
// cannot be auto-selected.
func (e *Engine) topDistinct(ranked []match.Candidate) bool {
	if len(ranked) < 2 {
		return true
	}
	a, b := ranked[0], ranked[1]
	if a.Entry.ID == b.Entry.ID {
		return true
	}
	if a.Confidence-b.Confidence > e.cfg.TieMargin {
		return true
	}
	return preferenceRank(a) != preferenceRank(b) || a.Entry.UsageCount != b.Entry.UsageCount
}

// Rank orders candidates for presentation. Multi-algorithm agreement,
// visual confirmation, and exact matches earn a preference bonus worth
// less than one tie margin, so they decide close calls without ever
// overriding a clear confidence gap.
func (e *Engine) Rank(candidates []match.Candidate) []match.Candidate {
	ranked := make([]match.Candidate, len(candidates))
	copy(ranked, candidates)
	sort.SliceStable(ranked, func(i, j int) bool {
		return e.less(ranked[j], ranked[i])
	})
	return ranked
}

// less reports whether a ranks strictly below b. The keys compared are
// each a total order, which keeps the comparator transitive.
func (e *Engine) less(a, b match.Candidate) bool {
	if ea, eb := e.effective(a), e.effective(b); ea != eb {
		return ea < eb
	}
	if a.Confidence != b.Confidence {
		return a.Confidence < b.Confidence
	}
	if a.Entry.UsageCount != b.Entry.UsageCount {
		return a.Entry.UsageCount < b.Entry.UsageCount
	}
	return a.Entry.Name > b.Entry.Name
}

// effective is the candidate's confidence plus a preference bonus. The
// bonus steps are a quarter tie margin each, so the full ladder from
// unflagged to multi-algorithm stays inside one margin.
func (e *Engine) effective(c match.Candidate) float64 {
	step := e.cfg.TieMargin / 4
	return c.Confidence + float64(3-preferenceRank(c))*step
}

// preferenceRank orders the tie-break criteria; lower is better.
func preferenceRank(c match.Candidate) int {
	switch {
	case c.MultiAlgorithm:
		return 0
	case c.VisualConfirmed:
		return 1
	case c.Algorithm == match.AlgorithmExact:
		return 2
	default:
		return 3
	}
}
