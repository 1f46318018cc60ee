// Package extractor reads printed text off cropped box regions.
//
// Recognition itself is delegated to a TextService. The extractor wraps
// every call with a timeout, retries transient failures with exponential
// backoff, and scores the returned text so downstream stages can decide
// whether recovery is needed.
package extractor

import (
	"context"
	"errors"
	"fmt"
	"image"
	"strings"
	"time"

	"github.com/veridose/boxscan/internal/catalog"
)

var (
	// ErrServiceUnavailable indicates the recognition backend could not be
	// reached. Retried.
	ErrServiceUnavailable = errors.New("extractor: text service unavailable")

	// ErrTimeout indicates a single recognition call exceeded its budget.
	// Retried.
	ErrTimeout = errors.New("extractor: recognition timed out")

	// ErrInvalidInput indicates the region image cannot be recognized at
	// all. Not retried.
	ErrInvalidInput = errors.New("extractor: invalid input image")
)

// TextService recognizes printed text in an image.
type TextService interface {
	Recognize(ctx context.Context, img image.Image) (Recognition, error)
}

// Recognition is the raw output of a TextService call.
type Recognition struct {
	Text       string
	Confidence float64
}

// ExtractedText is the extractor's result for one region.
type ExtractedText struct {
	Raw        string  `json:"raw"`
	Normalized string  `json:"normalized"`
	Quality    float64 `json:"quality"`
	Confidence float64 `json:"confidence"`
	Attempts   int     `json:"attempts"`
}

// Empty reports whether recognition produced no usable text.
func (e ExtractedText) Empty() bool {
	return strings.TrimSpace(e.Normalized) == ""
}

// Config holds extraction settings.
type Config struct {
	// MaxRetries bounds additional attempts after the first call.
	MaxRetries int

	// RetryBackoff is the initial delay between attempts; it doubles
	// after every failure.
	RetryBackoff time.Duration

	// CallTimeout bounds a single recognition call.
	CallTimeout time.Duration

	// MinQuality is the floor below which text counts as unusable.
	MinQuality float64
}

// DefaultConfig returns default extraction settings.
func DefaultConfig() Config {
	return Config{
		MaxRetries:   3,
		RetryBackoff: 200 * time.Millisecond,
		CallTimeout:  10 * time.Second,
		MinQuality:   0.2,
	}
}

// Extractor runs recognition with retry and quality scoring.
type Extractor struct {
	service TextService
	cfg     Config
}

// NewExtractor creates an extractor around the given service.
func NewExtractor(service TextService, cfg Config) *Extractor {
	if cfg.MaxRetries < 0 {
		cfg.MaxRetries = 0
	}
	if cfg.RetryBackoff <= 0 {
		cfg.RetryBackoff = DefaultConfig().RetryBackoff
	}
	if cfg.CallTimeout <= 0 {
		cfg.CallTimeout = DefaultConfig().CallTimeout
	}
	return &Extractor{service: service, cfg: cfg}
}

// Extract recognizes text in the region image. Transient failures are
// retried up to MaxRetries times with exponential backoff; a service
// timeout counts as a transient failure. The returned error wraps the
// last failure when every attempt fails.
func (e *Extractor) Extract(ctx context.Context, img image.Image) (ExtractedText, error) {
	if img == nil {
		return ExtractedText{}, ErrInvalidInput
	}

	var lastErr error
	backoff := e.cfg.RetryBackoff
	for attempt := 1; attempt <= e.cfg.MaxRetries+1; attempt++ {
		rec, err := e.recognizeOnce(ctx, img)
		if err == nil {
			text := buildExtractedText(rec)
			text.Attempts = attempt
			return text, nil
		}
		if errors.Is(err, ErrInvalidInput) || ctx.Err() != nil {
			return ExtractedText{Attempts: attempt}, err
		}
		lastErr = err

		if attempt <= e.cfg.MaxRetries {
			select {
			case <-time.After(backoff):
				backoff *= 2
			case <-ctx.Done():
				return ExtractedText{Attempts: attempt}, ctx.Err()
			}
		}
	}
	return ExtractedText{Attempts: e.cfg.MaxRetries + 1},
		fmt.Errorf("extractor: all %d attempts failed: %w", e.cfg.MaxRetries+1, lastErr)
}

// Usable reports whether the extracted text clears the quality floor.
func (e *Extractor) Usable(text ExtractedText) bool {
	return !text.Empty() && text.Quality >= e.cfg.MinQuality
}

func (e *Extractor) recognizeOnce(ctx context.Context, img image.Image) (Recognition, error) {
	callCtx, cancel := context.WithTimeout(ctx, e.cfg.CallTimeout)
	defer cancel()

	rec, err := e.service.Recognize(callCtx, img)
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) && ctx.Err() == nil {
			return Recognition{}, ErrTimeout
		}
		return Recognition{}, err
	}
	return rec, nil
}

func buildExtractedText(rec Recognition) ExtractedText {
	normalized := catalog.NormalizeKey(rec.Text)
	return ExtractedText{
		Raw:        rec.Text,
		Normalized: normalized,
		Quality:    QualityScore(rec.Text),
		Confidence: rec.Confidence,
	}
}
