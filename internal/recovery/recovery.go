// Package recovery reconstructs degraded label text. When a box is
// damaged or the recognizer returns low-quality output, the engine first
// tries to complete the text against the drug catalog and then cross
// checks the result with the visual index.
package recovery

import (
	"context"
	"strings"

	"github.com/veridose/boxscan/internal/catalog"
	"github.com/veridose/boxscan/internal/detector"
	"github.com/veridose/boxscan/internal/extractor"
	"github.com/veridose/boxscan/internal/feature"
	"github.com/veridose/boxscan/internal/match"
)

// Method tags how a piece of text was recovered.
type Method string

const (
	// MethodDictionary means the text was completed from catalog names.
	MethodDictionary Method = "DICTIONARY_COMPLETION"

	// MethodVisual means the visual index identified the drug when the
	// text alone could not.
	MethodVisual Method = "VISUAL_CROSS_REFERENCE"

	// MethodNone means recovery failed and the original text stands.
	MethodNone Method = "NONE"
)

// RecoveredText is the outcome of a recovery attempt.
type RecoveredText struct {
	Original   string  `json:"original"`
	Recovered  string  `json:"recovered"`
	Method     Method  `json:"method"`
	Confidence float64 `json:"confidence"`
}

// Succeeded reports whether recovery produced usable text.
func (r RecoveredText) Succeeded() bool {
	return r.Method != MethodNone && r.Recovered != ""
}

// Config holds recovery settings.
type Config struct {
	// DamageQualityThreshold marks text below this quality as needing
	// recovery regardless of box condition.
	DamageQualityThreshold float64

	// MaxDistanceRatio bounds dictionary completion: edit distance over
	// candidate length must not exceed it.
	MaxDistanceRatio float64

	// VisualBoost is added to the confidence when the visual index
	// confirms a dictionary candidate.
	VisualBoost float64
}

// DefaultConfig returns default recovery settings.
func DefaultConfig() Config {
	return Config{
		DamageQualityThreshold: 0.5,
		MaxDistanceRatio:       0.34,
		VisualBoost:            0.15,
	}
}

// Engine recovers degraded text against a catalog and a visual index.
// The visual store may be nil, in which case only dictionary completion
// runs.
type Engine struct {
	store  catalog.Store
	visual feature.Store
	cfg    Config
}

// NewEngine creates a recovery engine.
func NewEngine(store catalog.Store, visual feature.Store, cfg Config) *Engine {
	if cfg.DamageQualityThreshold <= 0 {
		cfg.DamageQualityThreshold = DefaultConfig().DamageQualityThreshold
	}
	if cfg.MaxDistanceRatio <= 0 {
		cfg.MaxDistanceRatio = DefaultConfig().MaxDistanceRatio
	}
	return &Engine{store: store, visual: visual, cfg: cfg}
}

// NeedsRecovery decides whether a region's text should go through
// recovery before matching. Damaged boxes always qualify; otherwise the
// extraction quality decides.
func (e *Engine) NeedsRecovery(text extractor.ExtractedText, condition detector.BoxCondition) bool {
	if condition.IsDamaged() {
		return true
	}
	return text.Quality < e.cfg.DamageQualityThreshold
}

// Recover attempts to reconstruct the drug name from degraded text.
// Dictionary completion runs first; the visual fingerprint, when
// available, either confirms the dictionary candidate or supplies an
// identification of its own. A MethodNone result with the original text
// means nothing worked; that is not an error.
func (e *Engine) Recover(ctx context.Context, text string, vec feature.Vector) (RecoveredText, error) {
	failed := RecoveredText{Original: text, Recovered: "", Method: MethodNone, Confidence: 0}

	normalized := catalog.NormalizeKey(text)
	dict, dictOK, err := e.completeFromDictionary(ctx, normalized)
	if err != nil {
		return failed, err
	}

	visual, visualOK := e.crossReference(ctx, vec)

	switch {
	case dictOK && visualOK && sameDrug(dict.entry, visual.Record):
		conf := dict.confidence + e.cfg.VisualBoost
		if conf > 1 {
			conf = 1
		}
		return RecoveredText{
			Original:   text,
			Recovered:  dict.key,
			Method:     MethodDictionary,
			Confidence: conf,
		}, nil
	case dictOK:
		return RecoveredText{
			Original:   text,
			Recovered:  dict.key,
			Method:     MethodDictionary,
			Confidence: dict.confidence,
		}, nil
	case visualOK:
		return RecoveredText{
			Original:   text,
			Recovered:  catalog.NormalizeKey(visual.Record.DrugName),
			Method:     MethodVisual,
			Confidence: visual.Similarity,
		}, nil
	default:
		return failed, nil
	}
}

type dictCandidate struct {
	entry      catalog.Entry
	key        string
	confidence float64
}

// completeFromDictionary scans catalog search keys for the closest
// completion of the degraded text within the distance bound.
func (e *Engine) completeFromDictionary(ctx context.Context, normalized string) (dictCandidate, bool, error) {
	if normalized == "" {
		return dictCandidate{}, false, nil
	}
	entries, err := e.store.Entries(ctx)
	if err != nil {
		return dictCandidate{}, false, err
	}

	best := dictCandidate{}
	bestRatio := e.cfg.MaxDistanceRatio
	found := false
	for _, entry := range entries {
		for _, key := range entry.SearchKeys {
			ratio := distanceRatio(normalized, key)
			if ratio > bestRatio {
				continue
			}
			if !found || ratio < bestRatio || (ratio == bestRatio && key < best.key) {
				best = dictCandidate{entry: entry, key: key, confidence: 1 - ratio}
				bestRatio = ratio
				found = true
			}
		}
	}
	return best, found, nil
}

// distanceRatio is the edit distance between the degraded text and a
// candidate key, normalized by the candidate's length. Prefix damage is
// common with torn boxes, so a candidate that starts with the degraded
// text is scored by the missing suffix only.
func distanceRatio(text, key string) float64 {
	if key == "" {
		return 1
	}
	keyLen := len([]rune(key))
	if strings.HasPrefix(key, text) {
		return float64(keyLen-len([]rune(text))) / float64(keyLen)
	}
	return float64(match.Levenshtein(text, key)) / float64(keyLen)
}

// crossReference queries the visual index for the region fingerprint.
func (e *Engine) crossReference(ctx context.Context, vec feature.Vector) (feature.Match, bool) {
	if e.visual == nil || vec.IsZero() {
		return feature.Match{}, false
	}
	matches, err := e.visual.Search(ctx, vec, 1)
	if err != nil || len(matches) == 0 {
		// Index trouble degrades recovery, it does not fail it.
		return feature.Match{}, false
	}
	return matches[0], true
}

func sameDrug(entry catalog.Entry, rec feature.Record) bool {
	if rec.DrugID != "" && rec.DrugID == entry.ID {
		return true
	}
	return catalog.NormalizeKey(rec.DrugName) == entry.PrimaryKey()
}
