package feedback

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDiscardForwarder(t *testing.T) {
	var f Forwarder = Discard{}
	err := f.Forward(context.Background(), Correction{Kind: KindConfirmed})
	assert.NoError(t, err)
}

func TestCorrectionJSONShape(t *testing.T) {
	c := Correction{
		SessionID:    "sess-1",
		RegionID:     "region-1",
		Kind:         KindWrongDrug,
		ExtractedKey: "ibuprofem",
		SelectedID:   "drug-9",
		CorrectID:    "drug-1",
		CorrectName:  "Ibuprofen",
		CreatedAt:    time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC),
	}
	data, err := json.Marshal(c)
	require.NoError(t, err)

	var decoded map[string]any
	require.NoError(t, json.Unmarshal(data, &decoded))
	assert.Equal(t, "wrong_drug", decoded["kind"])
	assert.Equal(t, "drug-1", decoded["correct_id"])

	// Empty optional fields stay out of the payload.
	minimal, err := json.Marshal(Correction{SessionID: "s", Kind: KindMissedDrug})
	require.NoError(t, err)
	assert.NotContains(t, string(minimal), "extracted_key")
	assert.NotContains(t, string(minimal), "selected_id")
}
