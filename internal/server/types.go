// Package server exposes the scan pipeline over HTTP.
package server

import (
	"context"
	"fmt"
	"image"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/veridose/boxscan/internal/feature"
	"github.com/veridose/boxscan/internal/pipeline"
)

// scanPipeline is what the server needs from a pipeline.
type scanPipeline interface {
	Process(ctx context.Context, img image.Image, session *pipeline.Session) (*pipeline.MultiDrugResult, error)
	ApplyCorrection(ctx context.Context, session *pipeline.Session, c pipeline.Correction) error
}

// indexMaintainer is implemented by visual stores that support offline
// maintenance: enrolling confirmed drug images and deduplicating.
type indexMaintainer interface {
	Add(ctx context.Context, rec feature.Record) (string, error)
	Optimize(ctx context.Context) (int, error)
}

// Config holds server settings.
type Config struct {
	Host        string
	Port        int
	CORSOrigin  string
	MaxUploadMB int64
	TimeoutSec  int
}

// Server holds the HTTP server state and dependencies.
type Server struct {
	pipeline    scanPipeline
	index       indexMaintainer
	session     *pipeline.Session
	corsOrigin  string
	maxUploadMB int64
	timeoutSec  int
}

// NewServer creates a server around an already built pipeline. The
// index maintainer may be nil when no visual store is configured.
func NewServer(cfg Config, p scanPipeline, index indexMaintainer) *Server {
	if cfg.MaxUploadMB <= 0 {
		cfg.MaxUploadMB = 50
	}
	if cfg.TimeoutSec <= 0 {
		cfg.TimeoutSec = 60
	}
	if cfg.CORSOrigin == "" {
		cfg.CORSOrigin = "*"
	}
	return &Server{
		pipeline:    p,
		index:       index,
		session:     pipeline.NewSession(),
		corsOrigin:  cfg.CORSOrigin,
		maxUploadMB: cfg.MaxUploadMB,
		timeoutSec:  cfg.TimeoutSec,
	}
}

// SetupRoutes registers all HTTP endpoints.
func (s *Server) SetupRoutes(mux *http.ServeMux) {
	mux.HandleFunc("/health", s.corsMiddleware(s.healthHandler))
	mux.HandleFunc("/scan", s.corsMiddleware(s.scanHandler))
	mux.HandleFunc("/scan/ws", s.scanWebSocketHandler)
	mux.HandleFunc("/corrections", s.corsMiddleware(s.correctionsHandler))
	mux.HandleFunc("/stats", s.corsMiddleware(s.statsHandler))
	mux.HandleFunc("/index/enroll", s.corsMiddleware(s.enrollHandler))
	mux.HandleFunc("/index/optimize", s.corsMiddleware(s.optimizeHandler))
	mux.Handle("/metrics", promhttp.Handler())
}

// Run builds a server and listens on the configured address.
func Run(cfg Config, p scanPipeline, index indexMaintainer) error {
	s := NewServer(cfg, p, index)
	mux := http.NewServeMux()
	s.SetupRoutes(mux)

	srv := &http.Server{
		Addr:         fmt.Sprintf("%s:%d", cfg.Host, cfg.Port),
		Handler:      mux,
		ReadTimeout:  time.Duration(s.timeoutSec) * time.Second,
		WriteTimeout: time.Duration(s.timeoutSec) * time.Second,
	}
	return srv.ListenAndServe()
}

// Response envelopes.
type HealthResponse struct {
	Status  string `json:"status"`
	Version string `json:"version,omitempty"`
	Time    string `json:"time"`
}

type ScanResponse struct {
	Success bool                      `json:"success"`
	Result  *pipeline.MultiDrugResult `json:"result,omitempty"`
	Error   string                    `json:"error,omitempty"`
}

type CorrectionRequest struct {
	RegionID     string `json:"region_id"`
	Kind         string `json:"kind"`
	ExtractedKey string `json:"extracted_key,omitempty"`
	SelectedID   string `json:"selected_id,omitempty"`
	CorrectID    string `json:"correct_id"`
	CorrectName  string `json:"correct_name"`
}

type OptimizeResponse struct {
	Success bool   `json:"success"`
	Removed int    `json:"removed"`
	Error   string `json:"error,omitempty"`
}

type EnrollResponse struct {
	Success bool   `json:"success"`
	ID      string `json:"id,omitempty"`
	Error   string `json:"error,omitempty"`
}
