// Package feedback records operator corrections so downstream training
// and catalog maintenance can learn from them.
package feedback

import (
	"context"
	"time"
)

// Kind classifies what the operator corrected.
type Kind string

const (
	// KindWrongDrug means the pipeline picked a different drug than the
	// box actually held.
	KindWrongDrug Kind = "wrong_drug"

	// KindMissedDrug means the pipeline found nothing but the operator
	// identified the drug.
	KindMissedDrug Kind = "missed_drug"

	// KindConfirmed means the operator confirmed a low-confidence
	// suggestion.
	KindConfirmed Kind = "confirmed"
)

// Correction is one operator correction for one region.
type Correction struct {
	SessionID    string    `json:"session_id"`
	RegionID     string    `json:"region_id"`
	Kind         Kind      `json:"kind"`
	ExtractedKey string    `json:"extracted_key,omitempty"`
	SelectedID   string    `json:"selected_id,omitempty"`
	CorrectID    string    `json:"correct_id"`
	CorrectName  string    `json:"correct_name"`
	CreatedAt    time.Time `json:"created_at"`
}

// Forwarder delivers corrections to whoever consumes them.
type Forwarder interface {
	Forward(ctx context.Context, c Correction) error
}

// Discard is a Forwarder that drops corrections. Used when no feedback
// backend is configured.
type Discard struct{}

// Forward implements Forwarder.
func (Discard) Forward(context.Context, Correction) error { return nil }
