package config

import (
	"fmt"
	"runtime"
	"strings"
)

// DefaultConfig returns the default configuration for boxscan.
func DefaultConfig() Config {
	return Config{
		LogLevel: "info",
		Verbose:  false,
		Pipeline: PipelineConfig{
			Detector: DetectorConfig{
				BinarizeThreshold:  128,
				EdgeRadius:         1.0,
				NMSIoUThreshold:    0.4,
				MinRegionArea:      2500,
				MaxRegions:         16,
				MaxImageSize:       2048,
				FallbackWholeImage: true,
			},
			Extractor: ExtractorConfig{
				Languages:      "eng",
				MaxRetries:     3,
				RetryBackoffMS: 200,
				TimeoutSec:     10,
				MinQuality:     0.2,
			},
			Recovery: RecoveryConfig{
				DamageQualityThreshold: 0.5,
				MaxDistanceRatio:       0.34,
				VisualBoost:            0.15,
			},
			Feature: FeatureConfig{
				ColorWeight:     0.3,
				EdgeWeight:      0.2,
				LayoutWeight:    0.4,
				ShapeWeight:     0.1,
				SimilarityFloor: 0.55,
				TimeoutSec:      5,
			},
			Match: MatchConfig{
				CategoryThresholds:       map[string]float64{},
				DefaultCategoryThreshold: 0.6,
				PhoneticCap:              75,
				MaxCandidates:            8,
			},
			Decision: DecisionConfig{
				AutoSelectThreshold: 85,
				LowConfidenceFloor:  40,
				TieMargin:           5,
			},
			Parallel: ParallelConfig{
				MaxWorkers: runtime.NumCPU(),
			},
		},
		Catalog: CatalogConfig{
			Driver: "memory",
		},
		Visual: VisualConfig{
			Driver:     "memory",
			Collection: "boxscan_features",
		},
		Feedback: FeedbackConfig{
			Driver: "none",
			Queue:  "boxscan:corrections",
		},
		Output: OutputConfig{
			Format:              "json",
			ConfidencePrecision: 2,
		},
		Server: ServerConfig{
			Host:            "localhost",
			Port:            8080,
			CORSOrigin:      "*",
			MaxUploadMB:     20,
			TimeoutSec:      60,
			ShutdownTimeout: 10,
		},
		Batch: BatchConfig{
			Workers:         runtime.NumCPU(),
			ContinueOnError: true,
		},
	}
}

// Validate checks configuration values for consistency.
func (c *Config) Validate() error {
	if err := c.validateLogLevel(); err != nil {
		return err
	}
	if err := c.Pipeline.Validate(); err != nil {
		return fmt.Errorf("pipeline: %w", err)
	}
	if err := c.validateStores(); err != nil {
		return err
	}
	if c.Server.Port < 0 || c.Server.Port > 65535 {
		return fmt.Errorf("server: invalid port %d", c.Server.Port)
	}
	switch strings.ToLower(c.Output.Format) {
	case "json", "text":
	default:
		return fmt.Errorf("output: unsupported format %q", c.Output.Format)
	}
	return nil
}

func (c *Config) validateLogLevel() error {
	switch strings.ToLower(c.LogLevel) {
	case "debug", "info", "warn", "error":
		return nil
	default:
		return fmt.Errorf("invalid log level %q", c.LogLevel)
	}
}

func (c *Config) validateStores() error {
	switch c.Catalog.Driver {
	case "memory":
	case "postgres":
		if c.Catalog.DSN == "" {
			return fmt.Errorf("catalog: postgres driver requires a dsn")
		}
	default:
		return fmt.Errorf("catalog: unsupported driver %q", c.Catalog.Driver)
	}
	switch c.Visual.Driver {
	case "memory":
	case "qdrant":
		if c.Visual.Address == "" {
			return fmt.Errorf("visual: qdrant driver requires an address")
		}
	default:
		return fmt.Errorf("visual: unsupported driver %q", c.Visual.Driver)
	}
	switch c.Feedback.Driver {
	case "none":
	case "redis":
		if c.Feedback.Addr == "" {
			return fmt.Errorf("feedback: redis driver requires an addr")
		}
	default:
		return fmt.Errorf("feedback: unsupported driver %q", c.Feedback.Driver)
	}
	return nil
}

// Validate checks pipeline threshold ranges.
func (p *PipelineConfig) Validate() error {
	d := p.Detector
	if d.NMSIoUThreshold <= 0 || d.NMSIoUThreshold >= 1 {
		return fmt.Errorf("detector: nms_iou_threshold must be in (0,1), got %v", d.NMSIoUThreshold)
	}
	if d.MinRegionArea < 0 {
		return fmt.Errorf("detector: min_region_area must be >= 0")
	}
	if p.Extractor.MaxRetries < 0 {
		return fmt.Errorf("extractor: max_retries must be >= 0")
	}
	if p.Recovery.MaxDistanceRatio <= 0 || p.Recovery.MaxDistanceRatio > 1 {
		return fmt.Errorf("recovery: max_distance_ratio must be in (0,1]")
	}
	// The boost shares the recovery confidence's 0-1 scale; anything
	// larger saturates every visually confirmed candidate to 1.0.
	if p.Recovery.VisualBoost <= 0 || p.Recovery.VisualBoost > 1 {
		return fmt.Errorf("recovery: visual_boost must be in (0,1]")
	}
	if p.Feature.SimilarityFloor < 0 || p.Feature.SimilarityFloor > 1 {
		return fmt.Errorf("feature: similarity_floor must be in [0,1]")
	}
	sum := p.Feature.ColorWeight + p.Feature.EdgeWeight + p.Feature.LayoutWeight + p.Feature.ShapeWeight
	if sum <= 0 {
		return fmt.Errorf("feature: at least one feature weight must be positive")
	}
	for cat, th := range p.Match.CategoryThresholds {
		if th < 0 || th > 1 {
			return fmt.Errorf("match: category threshold for %q must be in [0,1], got %v", cat, th)
		}
	}
	if p.Match.DefaultCategoryThreshold < 0 || p.Match.DefaultCategoryThreshold > 1 {
		return fmt.Errorf("match: default_category_threshold must be in [0,1]")
	}
	if p.Decision.AutoSelectThreshold <= p.Decision.LowConfidenceFloor {
		return fmt.Errorf("decision: auto_select_threshold must exceed low_confidence_floor")
	}
	if p.Decision.TieMargin < 0 {
		return fmt.Errorf("decision: tie_margin must be >= 0")
	}
	if p.Parallel.MaxWorkers < 0 {
		return fmt.Errorf("parallel: max_workers must be >= 0")
	}
	return nil
}
