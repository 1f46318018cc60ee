package match

import (
	"context"
	"fmt"
	"sort"

	"github.com/veridose/boxscan/internal/catalog"
)

// Config holds matching thresholds.
type Config struct {
	// CategoryThresholds is the minimum normalized edit-distance similarity
	// required to emit a fuzzy candidate, per drug category. Categories not
	// listed use DefaultCategoryThreshold. Antibiotics are typically
	// configured stricter than over-the-counter analgesics.
	CategoryThresholds       map[string]float64
	DefaultCategoryThreshold float64

	// PhoneticCap limits the confidence of phonetic matches, which are a
	// weaker signal than edit-distance matches of equal apparent similarity.
	PhoneticCap float64

	// MaxCandidates bounds the merged ranked list.
	MaxCandidates int
}

// DefaultConfig returns default matching thresholds.
func DefaultConfig() Config {
	return Config{
		CategoryThresholds:       map[string]float64{},
		DefaultCategoryThreshold: 0.6,
		PhoneticCap:              75,
		MaxCandidates:            8,
	}
}

// fuzzyConfidenceCap keeps fuzzy and prefix matches below the EXACT band.
const fuzzyConfidenceCap = 95.0

// minPrefixOverlap is the token-overlap ratio below which prefix matches
// are considered noise.
const minPrefixOverlap = 0.5

// Engine runs the independent matching algorithms against a catalog store
// and merges their output.
type Engine struct {
	store catalog.Store
	cfg   Config
}

// NewEngine creates a match engine over the given catalog store.
func NewEngine(store catalog.Store, cfg Config) *Engine {
	if cfg.MaxCandidates <= 0 {
		cfg.MaxCandidates = DefaultConfig().MaxCandidates
	}
	if cfg.PhoneticCap <= 0 {
		cfg.PhoneticCap = DefaultConfig().PhoneticCap
	}
	if cfg.DefaultCategoryThreshold <= 0 {
		cfg.DefaultCategoryThreshold = DefaultConfig().DefaultCategoryThreshold
	}
	return &Engine{store: store, cfg: cfg}
}

// Match scores the candidate text against the catalog. Algorithms run
// independently and their outputs are unioned; candidates for the same
// entry are merged keeping the highest confidence.
func (e *Engine) Match(ctx context.Context, text string) ([]Candidate, error) {
	key := catalog.NormalizeKey(text)
	if key == "" {
		return nil, nil
	}

	var raw []Candidate

	exact, err := e.matchExact(ctx, key)
	if err != nil {
		return nil, err
	}
	raw = append(raw, exact...)

	entries, err := e.store.Entries(ctx)
	if err != nil {
		return nil, fmt.Errorf("match: catalog snapshot: %w", err)
	}

	raw = append(raw, e.matchPrefix(key, entries)...)
	raw = append(raw, e.matchEditDistance(key, entries)...)
	raw = append(raw, e.matchPhonetic(key, entries)...)

	return e.merge(raw), nil
}

// matchExact matches the normalized text against canonical names and
// brand aliases, confidence 100.
func (e *Engine) matchExact(ctx context.Context, key string) ([]Candidate, error) {
	entries, err := e.store.LookupByKey(ctx, key)
	if err != nil {
		return nil, fmt.Errorf("match: exact lookup: %w", err)
	}
	out := make([]Candidate, 0, len(entries))
	for _, entry := range entries {
		c := NewCandidate(entry, ExactConfidence, AlgorithmExact)
		attributeBrand(&c, entry, key)
		out = append(out, c)
	}
	return out, nil
}

// matchPrefix scores token containment between the text and each entry key,
// confidence scaled by the overlap ratio.
func (e *Engine) matchPrefix(key string, entries []catalog.Entry) []Candidate {
	textTokens := catalog.Tokens(key)
	if len(textTokens) == 0 {
		return nil
	}

	var out []Candidate
	for _, entry := range entries {
		bestRatio, bestKey := 0.0, ""
		for _, ek := range entry.SearchKeys {
			ratio := tokenOverlap(textTokens, catalog.Tokens(ek))
			if ratio > bestRatio {
				bestRatio, bestKey = ratio, ek
			}
		}
		if bestRatio < minPrefixOverlap || bestRatio >= 1.0 {
			// Full overlap is already covered by the exact matcher.
			continue
		}
		c := NewCandidate(entry, fuzzyConfidenceCap*bestRatio, AlgorithmPrefix)
		attributeBrand(&c, entry, bestKey)
		out = append(out, c)
	}
	return out
}

// matchEditDistance scores normalized edit-distance similarity, gated by
// the per-category threshold.
func (e *Engine) matchEditDistance(key string, entries []catalog.Entry) []Candidate {
	var out []Candidate
	for _, entry := range entries {
		threshold := e.categoryThreshold(entry.Category)
		bestSim, bestKey := 0.0, ""
		for _, ek := range entry.SearchKeys {
			if sim := Similarity(key, ek); sim > bestSim {
				bestSim, bestKey = sim, ek
			}
		}
		if bestSim < threshold || bestSim >= 1.0 {
			continue
		}
		c := NewCandidate(entry, fuzzyConfidenceCap*bestSim, AlgorithmEdit)
		attributeBrand(&c, entry, bestKey)
		out = append(out, c)
	}
	return out
}

// matchPhonetic scores OCR-confusion folded similarity, capped below
// edit-distance matches of equal apparent similarity.
func (e *Engine) matchPhonetic(key string, entries []catalog.Entry) []Candidate {
	var out []Candidate
	for _, entry := range entries {
		threshold := e.categoryThreshold(entry.Category)
		bestSim, bestKey := 0.0, ""
		for _, ek := range entry.SearchKeys {
			if ek == key {
				continue // exact matcher territory
			}
			if sim := PhoneticSimilarity(key, ek); sim > bestSim {
				bestSim, bestKey = sim, ek
			}
		}
		if bestSim < threshold {
			continue
		}
		c := NewCandidate(entry, e.cfg.PhoneticCap*bestSim, AlgorithmPhonetic)
		attributeBrand(&c, entry, bestKey)
		out = append(out, c)
	}
	return out
}

func (e *Engine) categoryThreshold(category string) float64 {
	if th, ok := e.cfg.CategoryThresholds[category]; ok {
		return th
	}
	return e.cfg.DefaultCategoryThreshold
}

// merge unions per-algorithm candidates: one candidate per catalog entry,
// highest individual confidence wins, multi-algorithm agreement flagged.
func (e *Engine) merge(raw []Candidate) []Candidate {
	if len(raw) == 0 {
		return nil
	}

	best := make(map[string]Candidate)
	algos := make(map[string]map[Algorithm]struct{})
	for _, c := range raw {
		id := c.Entry.ID
		if algos[id] == nil {
			algos[id] = make(map[Algorithm]struct{})
		}
		algos[id][c.Algorithm] = struct{}{}
		if prev, ok := best[id]; !ok || c.Confidence > prev.Confidence {
			best[id] = c
		}
	}

	merged := make([]Candidate, 0, len(best))
	for id, c := range best {
		c.MultiAlgorithm = len(algos[id]) > 1
		merged = append(merged, c)
	}

	sort.Slice(merged, func(i, j int) bool {
		if merged[i].Confidence != merged[j].Confidence {
			return merged[i].Confidence > merged[j].Confidence
		}
		if merged[i].Entry.UsageCount != merged[j].Entry.UsageCount {
			return merged[i].Entry.UsageCount > merged[j].Entry.UsageCount
		}
		return merged[i].Entry.Name < merged[j].Entry.Name
	})

	if len(merged) > e.cfg.MaxCandidates {
		merged = merged[:e.cfg.MaxCandidates]
	}
	return merged
}

// attributeBrand marks the candidate as a brand hit resolved to its generic
// entry when the matched key belongs to a brand alias.
func attributeBrand(c *Candidate, entry catalog.Entry, matchedKey string) {
	if brand, ok := entry.BrandForKey(matchedKey); ok {
		c.IsGenericMatch = true
		c.Brand = brand
	}
}

// tokenOverlap returns |a ∩ b| / max(|a|, |b|) over token sets.
func tokenOverlap(a, b []string) float64 {
	if len(a) == 0 || len(b) == 0 {
		return 0
	}
	set := make(map[string]struct{}, len(a))
	for _, t := range a {
		set[t] = struct{}{}
	}
	common := 0
	for _, t := range b {
		if _, ok := set[t]; ok {
			common++
		}
	}
	maxLen := len(a)
	if len(b) > maxLen {
		maxLen = len(b)
	}
	return float64(common) / float64(maxLen)
}
