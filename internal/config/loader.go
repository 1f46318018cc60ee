package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/viper"
)

const (
	// ConfigFileName is the base name for configuration files (without extension).
	ConfigFileName = "boxscan"

	// EnvPrefix is the prefix for environment variables.
	EnvPrefix = "BOXSCAN"
)

// Loader handles loading configuration from various sources.
type Loader struct {
	v *viper.Viper
}

// NewLoader creates a new configuration loader.
// It uses the global viper instance so cobra flag bindings take effect.
func NewLoader() *Loader {
	return &Loader{v: viper.GetViper()}
}

// Load loads configuration from files, environment variables, and defaults.
func (l *Loader) Load() (*Config, error) {
	l.v.SetConfigName(ConfigFileName)
	l.v.SetConfigType("yaml")

	l.addConfigPaths()
	l.setupEnvironmentVariables()
	l.setDefaults()

	if err := l.v.ReadInConfig(); err != nil {
		// A missing config file is fine; defaults and env vars apply.
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("error reading config file: %w", err)
		}
	}

	var config Config
	if err := l.v.Unmarshal(&config); err != nil {
		return nil, fmt.Errorf("error unmarshaling config: %w", err)
	}
	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}
	return &config, nil
}

// LoadWithFile loads configuration from a specific file path.
func (l *Loader) LoadWithFile(configFile string) (*Config, error) {
	if configFile == "" {
		return l.Load()
	}
	if _, err := os.Stat(configFile); os.IsNotExist(err) {
		return nil, fmt.Errorf("config file does not exist: %s", configFile)
	}

	l.v.SetConfigFile(configFile)
	l.setupEnvironmentVariables()
	l.setDefaults()

	if err := l.v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("error reading config file %s: %w", configFile, err)
	}

	var config Config
	if err := l.v.Unmarshal(&config); err != nil {
		return nil, fmt.Errorf("error unmarshaling config: %w", err)
	}
	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}
	return &config, nil
}

// GetConfigFileUsed returns the path of the config file used.
func (l *Loader) GetConfigFileUsed() string {
	return l.v.ConfigFileUsed()
}

// GetViper returns the underlying viper instance for advanced usage.
func (l *Loader) GetViper() *viper.Viper {
	return l.v
}

// addConfigPaths adds the standard configuration search paths.
func (l *Loader) addConfigPaths() {
	l.v.AddConfigPath(".")

	if home, err := os.UserHomeDir(); err == nil {
		l.v.AddConfigPath(home)
	}

	l.v.AddConfigPath("/etc/boxscan")

	if configDir, exists := os.LookupEnv("XDG_CONFIG_HOME"); exists {
		l.v.AddConfigPath(filepath.Join(configDir, "boxscan"))
	} else if home, err := os.UserHomeDir(); err == nil {
		l.v.AddConfigPath(filepath.Join(home, ".config", "boxscan"))
	}
}

// setupEnvironmentVariables configures environment variable handling.
func (l *Loader) setupEnvironmentVariables() {
	l.v.SetEnvPrefix(EnvPrefix)
	l.v.AutomaticEnv()
	l.v.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_"))
}

// setDefaults sets default values for all configuration options.
func (l *Loader) setDefaults() {
	defaults := DefaultConfig()

	l.v.SetDefault("log_level", defaults.LogLevel)
	l.v.SetDefault("verbose", defaults.Verbose)

	l.v.SetDefault("pipeline.detector.binarize_threshold", defaults.Pipeline.Detector.BinarizeThreshold)
	l.v.SetDefault("pipeline.detector.edge_radius", defaults.Pipeline.Detector.EdgeRadius)
	l.v.SetDefault("pipeline.detector.nms_iou_threshold", defaults.Pipeline.Detector.NMSIoUThreshold)
	l.v.SetDefault("pipeline.detector.min_region_area", defaults.Pipeline.Detector.MinRegionArea)
	l.v.SetDefault("pipeline.detector.max_regions", defaults.Pipeline.Detector.MaxRegions)
	l.v.SetDefault("pipeline.detector.max_image_size", defaults.Pipeline.Detector.MaxImageSize)
	l.v.SetDefault("pipeline.detector.fallback_whole_image", defaults.Pipeline.Detector.FallbackWholeImage)

	l.v.SetDefault("pipeline.extractor.languages", defaults.Pipeline.Extractor.Languages)
	l.v.SetDefault("pipeline.extractor.max_retries", defaults.Pipeline.Extractor.MaxRetries)
	l.v.SetDefault("pipeline.extractor.retry_backoff_ms", defaults.Pipeline.Extractor.RetryBackoffMS)
	l.v.SetDefault("pipeline.extractor.timeout_sec", defaults.Pipeline.Extractor.TimeoutSec)
	l.v.SetDefault("pipeline.extractor.min_quality", defaults.Pipeline.Extractor.MinQuality)

	l.v.SetDefault("pipeline.recovery.damage_quality_threshold", defaults.Pipeline.Recovery.DamageQualityThreshold)
	l.v.SetDefault("pipeline.recovery.max_distance_ratio", defaults.Pipeline.Recovery.MaxDistanceRatio)
	l.v.SetDefault("pipeline.recovery.visual_boost", defaults.Pipeline.Recovery.VisualBoost)

	l.v.SetDefault("pipeline.feature.color_weight", defaults.Pipeline.Feature.ColorWeight)
	l.v.SetDefault("pipeline.feature.edge_weight", defaults.Pipeline.Feature.EdgeWeight)
	l.v.SetDefault("pipeline.feature.layout_weight", defaults.Pipeline.Feature.LayoutWeight)
	l.v.SetDefault("pipeline.feature.shape_weight", defaults.Pipeline.Feature.ShapeWeight)
	l.v.SetDefault("pipeline.feature.similarity_floor", defaults.Pipeline.Feature.SimilarityFloor)
	l.v.SetDefault("pipeline.feature.timeout_sec", defaults.Pipeline.Feature.TimeoutSec)

	l.v.SetDefault("pipeline.match.default_category_threshold", defaults.Pipeline.Match.DefaultCategoryThreshold)
	l.v.SetDefault("pipeline.match.phonetic_cap", defaults.Pipeline.Match.PhoneticCap)
	l.v.SetDefault("pipeline.match.max_candidates", defaults.Pipeline.Match.MaxCandidates)

	l.v.SetDefault("pipeline.decision.auto_select_threshold", defaults.Pipeline.Decision.AutoSelectThreshold)
	l.v.SetDefault("pipeline.decision.low_confidence_floor", defaults.Pipeline.Decision.LowConfidenceFloor)
	l.v.SetDefault("pipeline.decision.tie_margin", defaults.Pipeline.Decision.TieMargin)

	l.v.SetDefault("pipeline.parallel.max_workers", defaults.Pipeline.Parallel.MaxWorkers)

	l.v.SetDefault("catalog.driver", defaults.Catalog.Driver)
	l.v.SetDefault("visual.driver", defaults.Visual.Driver)
	l.v.SetDefault("visual.collection", defaults.Visual.Collection)
	l.v.SetDefault("feedback.driver", defaults.Feedback.Driver)
	l.v.SetDefault("feedback.queue", defaults.Feedback.Queue)

	l.v.SetDefault("output.format", defaults.Output.Format)
	l.v.SetDefault("output.confidence_precision", defaults.Output.ConfidencePrecision)

	l.v.SetDefault("server.host", defaults.Server.Host)
	l.v.SetDefault("server.port", defaults.Server.Port)
	l.v.SetDefault("server.cors_origin", defaults.Server.CORSOrigin)
	l.v.SetDefault("server.max_upload_mb", defaults.Server.MaxUploadMB)
	l.v.SetDefault("server.timeout_sec", defaults.Server.TimeoutSec)
	l.v.SetDefault("server.shutdown_timeout", defaults.Server.ShutdownTimeout)

	l.v.SetDefault("batch.workers", defaults.Batch.Workers)
	l.v.SetDefault("batch.continue_on_error", defaults.Batch.ContinueOnError)
}

// GetConfigSearchPaths returns the paths where configuration files are searched.
func GetConfigSearchPaths() []string {
	paths := []string{"."}

	if home, err := os.UserHomeDir(); err == nil {
		paths = append(paths, home)
		paths = append(paths, filepath.Join(home, ".config", "boxscan"))
	}

	if configDir, exists := os.LookupEnv("XDG_CONFIG_HOME"); exists {
		paths = append(paths, filepath.Join(configDir, "boxscan"))
	}

	paths = append(paths, "/etc/boxscan")

	return paths
}
