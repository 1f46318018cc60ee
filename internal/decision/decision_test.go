package decision

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/veridose/boxscan/internal/catalog"
	"github.com/veridose/boxscan/internal/match"
)

func candidate(id, name string, conf float64, alg match.Algorithm) match.Candidate {
	return match.NewCandidate(catalog.Entry{ID: id, Name: name}, conf, alg)
}

func TestDecideAutoSelect(t *testing.T) {
	e := NewEngine(DefaultConfig())
	d := e.Decide(Input{
		Candidates: []match.Candidate{
			candidate("drug-1", "Ibuprofen", 100, match.AlgorithmExact),
			candidate("drug-2", "Ibuprofen 400", 62, match.AlgorithmEdit),
		},
	})
	assert.Equal(t, ActionAutoSelect, d.Action)
	require.NotNil(t, d.Selected)
	assert.Equal(t, "drug-1", d.Selected.Entry.ID)
}

func TestDecideCloseCallShowsOptions(t *testing.T) {
	e := NewEngine(DefaultConfig())
	d := e.Decide(Input{
		Candidates: []match.Candidate{
			candidate("drug-1", "Ibuprofen", 75, match.AlgorithmEdit),
			candidate("drug-2", "Ibuprofen 400", 74, match.AlgorithmEdit),
		},
	})
	assert.Equal(t, ActionShowOptions, d.Action)
	assert.Nil(t, d.Selected)
	assert.Len(t, d.Candidates, 2)
}

func TestDecideHighButTiedShowsOptions(t *testing.T) {
	// Indistinguishable candidates must not auto-select even above the
	// threshold.
	e := NewEngine(DefaultConfig())
	d := e.Decide(Input{
		Candidates: []match.Candidate{
			candidate("drug-1", "Ibuprofen", 90, match.AlgorithmEdit),
			candidate("drug-2", "Ibuprofex", 90, match.AlgorithmEdit),
		},
	})
	assert.Equal(t, ActionShowOptions, d.Action)
}

func TestDecideTiedButMultiAlgorithmAutoSelects(t *testing.T) {
	e := NewEngine(DefaultConfig())
	multi := candidate("drug-1", "Ibuprofen", 90, match.AlgorithmEdit)
	multi.MultiAlgorithm = true
	d := e.Decide(Input{
		Candidates: []match.Candidate{
			candidate("drug-2", "Ibuprofex", 91, match.AlgorithmEdit),
			multi,
		},
	})
	assert.Equal(t, ActionAutoSelect, d.Action)
	require.NotNil(t, d.Selected)
	assert.Equal(t, "drug-1", d.Selected.Entry.ID)
}

func TestDecideVisualDisagreementBlocksAutoSelect(t *testing.T) {
	e := NewEngine(DefaultConfig())
	d := e.Decide(Input{
		Candidates: []match.Candidate{
			candidate("drug-1", "Ibuprofen", 100, match.AlgorithmExact),
		},
		VisualDisagrees: true,
	})
	assert.Equal(t, ActionShowOptions, d.Action)
	assert.Nil(t, d.Selected)
}

func TestDecideLowConfidenceManualEntry(t *testing.T) {
	e := NewEngine(DefaultConfig())
	d := e.Decide(Input{
		Candidates: []match.Candidate{
			candidate("drug-1", "Ibuprofen", 25, match.AlgorithmPhonetic),
		},
	})
	assert.Equal(t, ActionManualEntry, d.Action)
	assert.Nil(t, d.Selected)
}

func TestDecideNoCandidatesRescans(t *testing.T) {
	e := NewEngine(DefaultConfig())

	d := e.Decide(Input{})
	assert.Equal(t, ActionRescan, d.Action)
	assert.Nil(t, d.Selected)
	assert.Empty(t, d.Candidates)

	d = e.Decide(Input{Candidates: []match.Candidate{}})
	assert.Equal(t, ActionRescan, d.Action)
}

func TestRankTieBreakOrder(t *testing.T) {
	e := NewEngine(DefaultConfig())

	exact := candidate("drug-1", "Alpha", 88, match.AlgorithmExact)
	visual := candidate("drug-2", "Bravo", 88, match.AlgorithmEdit)
	visual.VisualConfirmed = true
	multi := candidate("drug-3", "Charlie", 88, match.AlgorithmEdit)
	multi.MultiAlgorithm = true
	plain := candidate("drug-4", "Delta", 88, match.AlgorithmEdit)

	ranked := e.Rank([]match.Candidate{plain, exact, visual, multi})
	require.Len(t, ranked, 4)
	assert.Equal(t, "drug-3", ranked[0].Entry.ID)
	assert.Equal(t, "drug-2", ranked[1].Entry.ID)
	assert.Equal(t, "drug-1", ranked[2].Entry.ID)
	assert.Equal(t, "drug-4", ranked[3].Entry.ID)
}

func TestRankUsageBreaksFinalTie(t *testing.T) {
	e := NewEngine(DefaultConfig())

	rare := match.NewCandidate(catalog.Entry{ID: "drug-1", Name: "Alpha", UsageCount: 2}, 70, match.AlgorithmEdit)
	common := match.NewCandidate(catalog.Entry{ID: "drug-2", Name: "Bravo", UsageCount: 120}, 70, match.AlgorithmEdit)

	ranked := e.Rank([]match.Candidate{rare, common})
	assert.Equal(t, "drug-2", ranked[0].Entry.ID)
}

func TestRankClearConfidenceGapWins(t *testing.T) {
	e := NewEngine(DefaultConfig())

	// Outside the tie margin the flags do not matter.
	flagged := candidate("drug-1", "Alpha", 70, match.AlgorithmEdit)
	flagged.MultiAlgorithm = true
	strong := candidate("drug-2", "Bravo", 82, match.AlgorithmEdit)

	ranked := e.Rank([]match.Candidate{flagged, strong})
	assert.Equal(t, "drug-2", ranked[0].Entry.ID)
}

func TestRankStableAcrossInputOrder(t *testing.T) {
	// Confidences chain across overlapping tie margins; the order must
	// not depend on how the input happened to be arranged.
	e := NewEngine(DefaultConfig())
	low := candidate("drug-1", "Alpha", 70, match.AlgorithmEdit)
	mid := candidate("drug-2", "Bravo", 74, match.AlgorithmEdit)
	mid.MultiAlgorithm = true
	high := candidate("drug-3", "Charlie", 79, match.AlgorithmEdit)

	want := []string{"drug-3", "drug-2", "drug-1"}
	perms := [][]match.Candidate{
		{low, mid, high},
		{high, mid, low},
		{mid, high, low},
		{high, low, mid},
	}
	for _, perm := range perms {
		ranked := e.Rank(perm)
		require.Len(t, ranked, 3)
		for i, id := range want {
			assert.Equal(t, id, ranked[i].Entry.ID)
		}
	}
}

func TestRankDeterministic(t *testing.T) {
	e := NewEngine(DefaultConfig())
	in := []match.Candidate{
		candidate("drug-2", "Bravo", 70, match.AlgorithmEdit),
		candidate("drug-1", "Alpha", 70, match.AlgorithmEdit),
	}
	first := e.Rank(in)
	second := e.Rank([]match.Candidate{in[1], in[0]})
	assert.Equal(t, first[0].Entry.ID, second[0].Entry.ID)
	assert.Equal(t, "Alpha", first[0].Entry.Name)
}
