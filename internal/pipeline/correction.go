package pipeline

import (
	"time"

	"github.com/veridose/boxscan/internal/feedback"
)

// Correction is an operator's fix for one region's verdict.
type Correction struct {
	RegionID     string
	Kind         feedback.Kind
	ExtractedKey string
	SelectedID   string
	CorrectID    string
	CorrectName  string
}

func (c Correction) toRecord() feedback.Correction {
	return feedback.Correction{
		RegionID:     c.RegionID,
		Kind:         c.Kind,
		ExtractedKey: c.ExtractedKey,
		SelectedID:   c.SelectedID,
		CorrectID:    c.CorrectID,
		CorrectName:  c.CorrectName,
		CreatedAt:    time.Now().UTC(),
	}
}
