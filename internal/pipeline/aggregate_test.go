package pipeline

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/veridose/boxscan/internal/catalog"
	"github.com/veridose/boxscan/internal/decision"
	"github.com/veridose/boxscan/internal/match"
)

func regionResult(regionID, drugID, name string, conf float64) RegionResult {
	c := match.NewCandidate(catalog.Entry{ID: drugID, Name: name}, conf, match.AlgorithmExact)
	return RegionResult{
		RegionID: regionID,
		Best:     &c,
		Action:   decision.ActionAutoSelect,
	}
}

func TestAggregateKeepsHigherConfidenceDuplicate(t *testing.T) {
	res := aggregate([]RegionResult{
		regionResult("r1", "drug-1", "Ibuprofen", 72),
		regionResult("r2", "drug-1", "Ibuprofen", 91),
	})

	require.Len(t, res.Drugs, 1)
	drug := res.Drugs[0]
	assert.Equal(t, "r2", drug.RegionID)
	assert.InDelta(t, 91, drug.Confidence, 1e-9)
	assert.Equal(t, []string{"r1"}, drug.Duplicates)
	assert.InDelta(t, 91, res.AggregateConfidence, 1e-9)
}

func TestAggregateMeanConfidence(t *testing.T) {
	res := aggregate([]RegionResult{
		regionResult("r1", "drug-1", "Ibuprofen", 100),
		regionResult("r2", "drug-2", "Amoxicillin", 60),
	})
	require.Len(t, res.Drugs, 2)
	assert.InDelta(t, 80, res.AggregateConfidence, 1e-9)
}

func TestAggregateSkipsRegionsWithoutBest(t *testing.T) {
	res := aggregate([]RegionResult{
		{RegionID: "r1", Action: decision.ActionRescan, Failure: FailureExtraction},
		regionResult("r2", "drug-3", "Paracetamol", 85),
	})
	assert.Len(t, res.Regions, 2)
	require.Len(t, res.Drugs, 1)
	assert.Equal(t, "Paracetamol", res.Drugs[0].Name)
}

func TestAggregateEmpty(t *testing.T) {
	res := aggregate(nil)
	assert.Empty(t, res.Drugs)
	assert.Zero(t, res.AggregateConfidence)
}
