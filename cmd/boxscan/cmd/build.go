package cmd

import (
	"fmt"
	"strings"
	"time"

	"github.com/veridose/boxscan/internal/catalog"
	"github.com/veridose/boxscan/internal/config"
	"github.com/veridose/boxscan/internal/decision"
	"github.com/veridose/boxscan/internal/detector"
	"github.com/veridose/boxscan/internal/extractor"
	"github.com/veridose/boxscan/internal/feature"
	"github.com/veridose/boxscan/internal/feedback"
	"github.com/veridose/boxscan/internal/match"
	"github.com/veridose/boxscan/internal/pipeline"
	"github.com/veridose/boxscan/internal/recovery"
)

// scanStack bundles a built pipeline with the stores behind it so
// commands can reach the visual index and release connections on exit.
type scanStack struct {
	pipeline *pipeline.Pipeline
	visual   feature.Store
	closers  []func() error
}

// Close releases every store connection the stack opened.
func (s *scanStack) Close() {
	for _, c := range s.closers {
		_ = c()
	}
}

// buildScanStack wires catalog, visual index, feedback forwarder, and
// text service from configuration and assembles the scan pipeline.
func buildScanStack(cfg *config.Config, source string) (*scanStack, error) {
	stack := &scanStack{}

	store, err := buildCatalogStore(cfg.Catalog, stack)
	if err != nil {
		return nil, err
	}

	visual, err := buildVisualStore(cfg, stack)
	if err != nil {
		stack.Close()
		return nil, err
	}
	stack.visual = visual

	forwarder, err := buildForwarder(cfg.Feedback, stack)
	if err != nil {
		stack.Close()
		return nil, err
	}

	builder := pipeline.NewBuilder().
		WithConfig(pipelineConfig(cfg)).
		WithTextService(extractor.NewTesseractService(splitLanguages(cfg.Pipeline.Extractor.Languages))).
		WithCatalog(store).
		WithFeedback(forwarder).
		WithSource(source)
	if visual != nil {
		builder = builder.WithVisualIndex(visual)
	}
	if cfg.Pipeline.Parallel.MaxWorkers > 0 {
		builder = builder.WithWorkers(cfg.Pipeline.Parallel.MaxWorkers)
	}

	pl, err := builder.Build()
	if err != nil {
		stack.Close()
		return nil, fmt.Errorf("building pipeline: %w", err)
	}
	stack.pipeline = pl
	return stack, nil
}

func buildCatalogStore(cfg config.CatalogConfig, stack *scanStack) (catalog.Store, error) {
	switch cfg.Driver {
	case "postgres":
		store, err := catalog.NewPostgresStore(cfg.DSN)
		if err != nil {
			return nil, fmt.Errorf("connecting to catalog database: %w", err)
		}
		stack.closers = append(stack.closers, store.Close)
		return store, nil
	case "", "memory":
		if cfg.SeedFile == "" {
			return nil, fmt.Errorf("catalog: memory driver requires a seed file (catalog.seed_file)")
		}
		store, err := catalog.LoadSeedFile(cfg.SeedFile)
		if err != nil {
			return nil, fmt.Errorf("loading catalog seed file: %w", err)
		}
		return store, nil
	default:
		return nil, fmt.Errorf("catalog: unknown driver %q", cfg.Driver)
	}
}

func buildVisualStore(cfg *config.Config, stack *scanStack) (feature.Store, error) {
	weights := feature.Weights{
		Color:  cfg.Pipeline.Feature.ColorWeight,
		Edge:   cfg.Pipeline.Feature.EdgeWeight,
		Layout: cfg.Pipeline.Feature.LayoutWeight,
		Shape:  cfg.Pipeline.Feature.ShapeWeight,
	}
	floor := cfg.Pipeline.Feature.SimilarityFloor

	switch cfg.Visual.Driver {
	case "qdrant":
		index, err := feature.NewQdrantIndex(cfg.Visual.Address, cfg.Visual.Collection, floor)
		if err != nil {
			return nil, fmt.Errorf("connecting to visual index: %w", err)
		}
		stack.closers = append(stack.closers, index.Close)
		return index, nil
	case "", "memory":
		return feature.NewMemoryIndex(weights, floor), nil
	case "none":
		return nil, nil
	default:
		return nil, fmt.Errorf("visual: unknown driver %q", cfg.Visual.Driver)
	}
}

func buildForwarder(cfg config.FeedbackConfig, stack *scanStack) (feedback.Forwarder, error) {
	switch cfg.Driver {
	case "redis":
		f, err := feedback.NewRedisForwarder(cfg.Addr, cfg.Queue)
		if err != nil {
			return nil, fmt.Errorf("connecting to feedback queue: %w", err)
		}
		stack.closers = append(stack.closers, f.Close)
		return f, nil
	case "", "none":
		return feedback.Discard{}, nil
	default:
		return nil, fmt.Errorf("feedback: unknown driver %q", cfg.Driver)
	}
}

// pipelineConfig translates file/flag configuration into stage configs.
func pipelineConfig(cfg *config.Config) pipeline.Config {
	p := cfg.Pipeline
	return pipeline.Config{
		Detector: detector.Config{
			BinarizeThreshold:  p.Detector.BinarizeThreshold,
			EdgeRadius:         p.Detector.EdgeRadius,
			NMSIoUThreshold:    p.Detector.NMSIoUThreshold,
			MinRegionArea:      p.Detector.MinRegionArea,
			MaxRegions:         p.Detector.MaxRegions,
			MaxImageSize:       p.Detector.MaxImageSize,
			FallbackWholeImage: p.Detector.FallbackWholeImage,
		},
		Extract: extractor.Config{
			MaxRetries:   p.Extractor.MaxRetries,
			RetryBackoff: time.Duration(p.Extractor.RetryBackoffMS) * time.Millisecond,
			CallTimeout:  time.Duration(p.Extractor.TimeoutSec) * time.Second,
			MinQuality:   p.Extractor.MinQuality,
		},
		Recovery: recovery.Config{
			DamageQualityThreshold: p.Recovery.DamageQualityThreshold,
			MaxDistanceRatio:       p.Recovery.MaxDistanceRatio,
			VisualBoost:            p.Recovery.VisualBoost,
		},
		Match: match.Config{
			CategoryThresholds:       p.Match.CategoryThresholds,
			DefaultCategoryThreshold: p.Match.DefaultCategoryThreshold,
			PhoneticCap:              p.Match.PhoneticCap,
			MaxCandidates:            p.Match.MaxCandidates,
		},
		Decision: decision.Config{
			AutoSelectThreshold: p.Decision.AutoSelectThreshold,
			LowConfidenceFloor:  p.Decision.LowConfidenceFloor,
			TieMargin:           p.Decision.TieMargin,
		},
		Weights: feature.Weights{
			Color:  p.Feature.ColorWeight,
			Edge:   p.Feature.EdgeWeight,
			Layout: p.Feature.LayoutWeight,
			Shape:  p.Feature.ShapeWeight,
		},
		SimilarityFloor: p.Feature.SimilarityFloor,
		VisualTimeout:   time.Duration(p.Feature.TimeoutSec) * time.Second,
		Workers:         p.Parallel.MaxWorkers,
	}
}

// splitLanguages turns a tesseract language string like "eng+deu" into a list.
func splitLanguages(s string) []string {
	if s == "" {
		return nil
	}
	parts := strings.Split(s, "+")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}
