// Package match scores extracted box text against the drug catalog using
// several independent string-matching algorithms and merges their output
// into a ranked candidate list.
package match

import (
	"github.com/veridose/boxscan/internal/catalog"
)

// Type is the confidence tier of a match candidate.
type Type string

const (
	TypeExact   Type = "EXACT"
	TypeHigh    Type = "HIGH"
	TypeMedium  Type = "MEDIUM"
	TypeLow     Type = "LOW"
	TypeNoMatch Type = "NO_MATCH"
)

// Confidence band boundaries. TypeForConfidence is the only place these
// are interpreted so the banding cannot drift between components.
const (
	ExactConfidence  = 100.0
	HighConfidence   = 80.0
	MediumConfidence = 60.0
)

// TypeForConfidence maps a confidence score (0-100] to its tier.
func TypeForConfidence(confidence float64) Type {
	switch {
	case confidence >= ExactConfidence:
		return TypeExact
	case confidence >= HighConfidence:
		return TypeHigh
	case confidence >= MediumConfidence:
		return TypeMedium
	case confidence > 0:
		return TypeLow
	default:
		return TypeNoMatch
	}
}

// Algorithm identifies which matcher produced a candidate.
type Algorithm string

const (
	AlgorithmExact    Algorithm = "exact"
	AlgorithmPrefix   Algorithm = "prefix"
	AlgorithmEdit     Algorithm = "edit_distance"
	AlgorithmPhonetic Algorithm = "phonetic"
)

// Candidate is a scored hypothesis linking extracted text to a catalog entry.
type Candidate struct {
	Entry      catalog.Entry `json:"entry"`
	Confidence float64       `json:"confidence"` // 0-100
	Algorithm  Algorithm     `json:"algorithm"`
	Type       Type          `json:"type"`

	// IsGenericMatch is set when the hit was a brand alias resolved to the
	// generic entry; Brand retains the originating alias for display.
	IsGenericMatch bool   `json:"is_generic_match"`
	Brand          string `json:"brand,omitempty"`

	// MultiAlgorithm is set during merging when more than one algorithm
	// agreed on the same entry.
	MultiAlgorithm bool `json:"multi_algorithm"`

	// VisualConfirmed is set by the pipeline when the visual index
	// independently points at the same entry.
	VisualConfirmed bool `json:"visual_confirmed"`
}

// NewCandidate builds a candidate with its tier derived from confidence,
// keeping the confidence/tier banding consistent by construction.
func NewCandidate(entry catalog.Entry, confidence float64, alg Algorithm) Candidate {
	if confidence < 0 {
		confidence = 0
	}
	if confidence > 100 {
		confidence = 100
	}
	return Candidate{
		Entry:      entry,
		Confidence: confidence,
		Algorithm:  alg,
		Type:       TypeForConfidence(confidence),
	}
}
