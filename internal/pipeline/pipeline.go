// Package pipeline composes detection, extraction, recovery, visual
// similarity, matching, and decision making into one scan flow over a
// photograph of pharmaceutical boxes.
package pipeline

import (
	"errors"
	"runtime"
	"time"

	"github.com/veridose/boxscan/internal/catalog"
	"github.com/veridose/boxscan/internal/decision"
	"github.com/veridose/boxscan/internal/detector"
	"github.com/veridose/boxscan/internal/extractor"
	"github.com/veridose/boxscan/internal/feature"
	"github.com/veridose/boxscan/internal/feedback"
	"github.com/veridose/boxscan/internal/match"
	"github.com/veridose/boxscan/internal/recovery"
)

// Config collects the settings of every stage.
type Config struct {
	Detector detector.Config
	Extract  extractor.Config
	Recovery recovery.Config
	Match    match.Config
	Decision decision.Config

	// Weights blends the visual descriptors during similarity search.
	Weights feature.Weights

	// SimilarityFloor is the minimum visual similarity worth reporting.
	SimilarityFloor float64

	// VisualTimeout bounds a single visual index query.
	VisualTimeout time.Duration

	// Workers bounds the per-region worker pool (0 = NumCPU).
	Workers int

	// Source tags results with where the image came from.
	Source string
}

// DefaultConfig returns defaults for all stages.
func DefaultConfig() Config {
	return Config{
		Detector:        detector.DefaultConfig(),
		Extract:         extractor.DefaultConfig(),
		Recovery:        recovery.DefaultConfig(),
		Match:           match.DefaultConfig(),
		Decision:        decision.DefaultConfig(),
		Weights:         feature.DefaultWeights(),
		SimilarityFloor: 0.55,
		VisualTimeout:   5 * time.Second,
		Workers:         runtime.NumCPU(),
	}
}

// Builder assembles a Pipeline step by step.
type Builder struct {
	cfg       Config
	service   extractor.TextService
	store     catalog.Store
	visual    feature.Store
	forwarder feedback.Forwarder
}

// NewBuilder starts from the default configuration.
func NewBuilder() *Builder { return &Builder{cfg: DefaultConfig()} }

// WithConfig replaces the whole configuration.
func (b *Builder) WithConfig(cfg Config) *Builder {
	b.cfg = cfg
	return b
}

// WithTextService sets the external recognition backend.
func (b *Builder) WithTextService(svc extractor.TextService) *Builder {
	b.service = svc
	return b
}

// WithCatalog sets the drug catalog store.
func (b *Builder) WithCatalog(store catalog.Store) *Builder {
	b.store = store
	return b
}

// WithVisualIndex sets the visual similarity store. Optional; without
// it the pipeline matches on text alone.
func (b *Builder) WithVisualIndex(store feature.Store) *Builder {
	b.visual = store
	return b
}

// WithFeedback sets where operator corrections are forwarded.
func (b *Builder) WithFeedback(f feedback.Forwarder) *Builder {
	b.forwarder = f
	return b
}

// WithWorkers bounds the region worker pool.
func (b *Builder) WithWorkers(n int) *Builder {
	b.cfg.Workers = n
	return b
}

// WithSource tags results with an origin label.
func (b *Builder) WithSource(source string) *Builder {
	b.cfg.Source = source
	return b
}

// Config returns a copy of the current configuration.
func (b *Builder) Config() Config { return b.cfg }

// Validate checks that the mandatory collaborators are present.
func (b *Builder) Validate() error {
	if b.service == nil {
		return errors.New("text service is required")
	}
	if b.store == nil {
		return errors.New("catalog store is required")
	}
	return nil
}

// Pipeline wires together all scan stages.
type Pipeline struct {
	cfg       Config
	detector  *detector.Detector
	extractor *extractor.Extractor
	recovery  *recovery.Engine
	matcher   *match.Engine
	decider   *decision.Engine
	visual    feature.Store
	store     catalog.Store
	forwarder feedback.Forwarder
}

// Build initializes the pipeline components.
func (b *Builder) Build() (*Pipeline, error) {
	if err := b.Validate(); err != nil {
		return nil, err
	}
	if b.cfg.Workers <= 0 {
		b.cfg.Workers = runtime.NumCPU()
	}
	forwarder := b.forwarder
	if forwarder == nil {
		forwarder = feedback.Discard{}
	}
	return &Pipeline{
		cfg:       b.cfg,
		detector:  detector.NewDetector(b.cfg.Detector),
		extractor: extractor.NewExtractor(b.service, b.cfg.Extract),
		recovery:  recovery.NewEngine(b.store, b.visual, b.cfg.Recovery),
		matcher:   match.NewEngine(b.store, b.cfg.Match),
		decider:   decision.NewEngine(b.cfg.Decision),
		visual:    b.visual,
		store:     b.store,
		forwarder: forwarder,
	}, nil
}
