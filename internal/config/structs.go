//nolint:lll
package config

// Config represents the complete configuration for the boxscan application.
// It includes settings for all commands (scan, batch, serve, optimize) and
// supports loading from configuration files, environment variables, and command-line flags.
type Config struct {
	// Global settings
	LogLevel string `mapstructure:"log_level" yaml:"log_level" json:"log_level"`
	Verbose  bool   `mapstructure:"verbose" yaml:"verbose" json:"verbose"`

	// Pipeline configuration
	Pipeline PipelineConfig `mapstructure:"pipeline" yaml:"pipeline" json:"pipeline"`

	// Catalog store configuration
	Catalog CatalogConfig `mapstructure:"catalog" yaml:"catalog" json:"catalog"`

	// Visual store configuration
	Visual VisualConfig `mapstructure:"visual" yaml:"visual" json:"visual"`

	// Correction feedback configuration
	Feedback FeedbackConfig `mapstructure:"feedback" yaml:"feedback" json:"feedback"`

	// Output configuration
	Output OutputConfig `mapstructure:"output" yaml:"output" json:"output"`

	// Server configuration (for serve command)
	Server ServerConfig `mapstructure:"server" yaml:"server" json:"server"`

	// Batch processing configuration
	Batch BatchConfig `mapstructure:"batch" yaml:"batch" json:"batch"`
}

// PipelineConfig contains scan pipeline settings.
type PipelineConfig struct {
	// Region detection settings
	Detector DetectorConfig `mapstructure:"detector" yaml:"detector" json:"detector"`

	// Text extraction settings
	Extractor ExtractorConfig `mapstructure:"extractor" yaml:"extractor" json:"extractor"`

	// Damage recovery settings
	Recovery RecoveryConfig `mapstructure:"recovery" yaml:"recovery" json:"recovery"`

	// Visual feature settings
	Feature FeatureConfig `mapstructure:"feature" yaml:"feature" json:"feature"`

	// Text matching settings
	Match MatchConfig `mapstructure:"match" yaml:"match" json:"match"`

	// Decision thresholds
	Decision DecisionConfig `mapstructure:"decision" yaml:"decision" json:"decision"`

	// Parallel processing
	Parallel ParallelConfig `mapstructure:"parallel" yaml:"parallel" json:"parallel"`
}

// DetectorConfig contains box region detection settings.
type DetectorConfig struct {
	BinarizeThreshold  int     `mapstructure:"binarize_threshold" yaml:"binarize_threshold" json:"binarize_threshold"`
	EdgeRadius         float64 `mapstructure:"edge_radius" yaml:"edge_radius" json:"edge_radius"`
	NMSIoUThreshold    float64 `mapstructure:"nms_iou_threshold" yaml:"nms_iou_threshold" json:"nms_iou_threshold"`
	MinRegionArea      int     `mapstructure:"min_region_area" yaml:"min_region_area" json:"min_region_area"`
	MaxRegions         int     `mapstructure:"max_regions" yaml:"max_regions" json:"max_regions"`
	MaxImageSize       int     `mapstructure:"max_image_size" yaml:"max_image_size" json:"max_image_size"`
	FallbackWholeImage bool    `mapstructure:"fallback_whole_image" yaml:"fallback_whole_image" json:"fallback_whole_image"`
}

// ExtractorConfig contains external text-recognition settings.
type ExtractorConfig struct {
	Languages      string  `mapstructure:"languages" yaml:"languages" json:"languages"`
	MaxRetries     int     `mapstructure:"max_retries" yaml:"max_retries" json:"max_retries"`
	RetryBackoffMS int     `mapstructure:"retry_backoff_ms" yaml:"retry_backoff_ms" json:"retry_backoff_ms"`
	TimeoutSec     int     `mapstructure:"timeout_sec" yaml:"timeout_sec" json:"timeout_sec"`
	MinQuality     float64 `mapstructure:"min_quality" yaml:"min_quality" json:"min_quality"`
}

// RecoveryConfig contains damaged-text reconstruction settings.
type RecoveryConfig struct {
	DamageQualityThreshold float64 `mapstructure:"damage_quality_threshold" yaml:"damage_quality_threshold" json:"damage_quality_threshold"`
	MaxDistanceRatio       float64 `mapstructure:"max_distance_ratio" yaml:"max_distance_ratio" json:"max_distance_ratio"`
	VisualBoost            float64 `mapstructure:"visual_boost" yaml:"visual_boost" json:"visual_boost"`
}

// FeatureConfig contains visual feature extraction and similarity settings.
type FeatureConfig struct {
	ColorWeight     float64 `mapstructure:"color_weight" yaml:"color_weight" json:"color_weight"`
	EdgeWeight      float64 `mapstructure:"edge_weight" yaml:"edge_weight" json:"edge_weight"`
	LayoutWeight    float64 `mapstructure:"layout_weight" yaml:"layout_weight" json:"layout_weight"`
	ShapeWeight     float64 `mapstructure:"shape_weight" yaml:"shape_weight" json:"shape_weight"`
	SimilarityFloor float64 `mapstructure:"similarity_floor" yaml:"similarity_floor" json:"similarity_floor"`
	TimeoutSec      int     `mapstructure:"timeout_sec" yaml:"timeout_sec" json:"timeout_sec"`
}

// MatchConfig contains text matching settings.
type MatchConfig struct {
	// Minimum normalized edit-distance similarity per drug category.
	// Categories absent from the map use DefaultCategoryThreshold.
	CategoryThresholds       map[string]float64 `mapstructure:"category_thresholds" yaml:"category_thresholds" json:"category_thresholds"`
	DefaultCategoryThreshold float64            `mapstructure:"default_category_threshold" yaml:"default_category_threshold" json:"default_category_threshold"`
	PhoneticCap              float64            `mapstructure:"phonetic_cap" yaml:"phonetic_cap" json:"phonetic_cap"`
	MaxCandidates            int                `mapstructure:"max_candidates" yaml:"max_candidates" json:"max_candidates"`
}

// DecisionConfig contains confidence-tier and action thresholds.
type DecisionConfig struct {
	AutoSelectThreshold float64 `mapstructure:"auto_select_threshold" yaml:"auto_select_threshold" json:"auto_select_threshold"`
	LowConfidenceFloor  float64 `mapstructure:"low_confidence_floor" yaml:"low_confidence_floor" json:"low_confidence_floor"`
	TieMargin           float64 `mapstructure:"tie_margin" yaml:"tie_margin" json:"tie_margin"`
}

// ParallelConfig contains parallel processing settings.
type ParallelConfig struct {
	MaxWorkers int `mapstructure:"max_workers" yaml:"max_workers" json:"max_workers"`
}

// CatalogConfig selects and configures the drug catalog store.
type CatalogConfig struct {
	Driver   string `mapstructure:"driver" yaml:"driver" json:"driver"` // "memory" or "postgres"
	DSN      string `mapstructure:"dsn" yaml:"dsn" json:"dsn"`
	SeedFile string `mapstructure:"seed_file" yaml:"seed_file" json:"seed_file"`
}

// VisualConfig selects and configures the visual catalog store.
type VisualConfig struct {
	Driver     string `mapstructure:"driver" yaml:"driver" json:"driver"` // "memory" or "qdrant"
	Address    string `mapstructure:"address" yaml:"address" json:"address"`
	Collection string `mapstructure:"collection" yaml:"collection" json:"collection"`
}

// FeedbackConfig configures where correction records are forwarded.
type FeedbackConfig struct {
	Driver string `mapstructure:"driver" yaml:"driver" json:"driver"` // "none" or "redis"
	Addr   string `mapstructure:"addr" yaml:"addr" json:"addr"`
	Queue  string `mapstructure:"queue" yaml:"queue" json:"queue"`
}

// OutputConfig contains output formatting settings.
type OutputConfig struct {
	Format              string `mapstructure:"format" yaml:"format" json:"format"` // "json" or "text"
	File                string `mapstructure:"file" yaml:"file" json:"file"`
	ConfidencePrecision int    `mapstructure:"confidence_precision" yaml:"confidence_precision" json:"confidence_precision"`
}

// ServerConfig contains HTTP server settings.
type ServerConfig struct {
	Host            string `mapstructure:"host" yaml:"host" json:"host"`
	Port            int    `mapstructure:"port" yaml:"port" json:"port"`
	CORSOrigin      string `mapstructure:"cors_origin" yaml:"cors_origin" json:"cors_origin"`
	MaxUploadMB     int    `mapstructure:"max_upload_mb" yaml:"max_upload_mb" json:"max_upload_mb"`
	TimeoutSec      int    `mapstructure:"timeout_sec" yaml:"timeout_sec" json:"timeout_sec"`
	ShutdownTimeout int    `mapstructure:"shutdown_timeout" yaml:"shutdown_timeout" json:"shutdown_timeout"`
}

// BatchConfig contains batch processing settings.
type BatchConfig struct {
	Workers         int    `mapstructure:"workers" yaml:"workers" json:"workers"`
	OutputDir       string `mapstructure:"output_dir" yaml:"output_dir" json:"output_dir"`
	ContinueOnError bool   `mapstructure:"continue_on_error" yaml:"continue_on_error" json:"continue_on_error"`
}
