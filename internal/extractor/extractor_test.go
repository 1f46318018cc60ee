package extractor

import (
	"context"
	"image"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// stubService scripts one outcome per call.
type stubService struct {
	calls   int
	results []Recognition
	errs    []error
	delay   time.Duration
}

func (s *stubService) Recognize(ctx context.Context, img image.Image) (Recognition, error) {
	i := s.calls
	s.calls++
	if s.delay > 0 {
		select {
		case <-time.After(s.delay):
		case <-ctx.Done():
			return Recognition{}, ctx.Err()
		}
	}
	if i < len(s.errs) && s.errs[i] != nil {
		return Recognition{}, s.errs[i]
	}
	if i < len(s.results) {
		return s.results[i], nil
	}
	return Recognition{}, ErrServiceUnavailable
}

func testImage() image.Image {
	return image.NewRGBA(image.Rect(0, 0, 10, 10))
}

func quickConfig() Config {
	cfg := DefaultConfig()
	cfg.RetryBackoff = time.Millisecond
	cfg.CallTimeout = 50 * time.Millisecond
	return cfg
}

func TestExtractFirstTry(t *testing.T) {
	svc := &stubService{results: []Recognition{{Text: "Ibuprofen 400mg", Confidence: 0.93}}}
	ex := NewExtractor(svc, quickConfig())

	text, err := ex.Extract(context.Background(), testImage())
	require.NoError(t, err)
	assert.Equal(t, "Ibuprofen 400mg", text.Raw)
	assert.Equal(t, "ibuprofen 400mg", text.Normalized)
	assert.Equal(t, 1, text.Attempts)
	assert.InDelta(t, 0.93, text.Confidence, 1e-9)
	assert.True(t, ex.Usable(text))
}

func TestExtractRetriesTransientFailures(t *testing.T) {
	svc := &stubService{
		errs:    []error{ErrServiceUnavailable, ErrTimeout, nil},
		results: []Recognition{{}, {}, {Text: "Aspirin", Confidence: 0.8}},
	}
	ex := NewExtractor(svc, quickConfig())

	text, err := ex.Extract(context.Background(), testImage())
	require.NoError(t, err)
	assert.Equal(t, 3, text.Attempts)
	assert.Equal(t, "aspirin", text.Normalized)
}

func TestExtractExhaustsRetries(t *testing.T) {
	svc := &stubService{errs: []error{ErrServiceUnavailable, ErrServiceUnavailable, ErrServiceUnavailable, ErrServiceUnavailable}}
	cfg := quickConfig()
	cfg.MaxRetries = 3
	ex := NewExtractor(svc, cfg)

	_, err := ex.Extract(context.Background(), testImage())
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrServiceUnavailable)
	assert.Equal(t, 4, svc.calls)
}

func TestExtractInvalidInputNotRetried(t *testing.T) {
	svc := &stubService{errs: []error{ErrInvalidInput}}
	ex := NewExtractor(svc, quickConfig())

	_, err := ex.Extract(context.Background(), testImage())
	assert.ErrorIs(t, err, ErrInvalidInput)
	assert.Equal(t, 1, svc.calls)
}

func TestExtractCallTimeoutBecomesErrTimeout(t *testing.T) {
	svc := &stubService{delay: 200 * time.Millisecond}
	cfg := quickConfig()
	cfg.MaxRetries = 0
	ex := NewExtractor(svc, cfg)

	_, err := ex.Extract(context.Background(), testImage())
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrTimeout)
}

func TestExtractCanceledContext(t *testing.T) {
	svc := &stubService{delay: time.Second}
	ex := NewExtractor(svc, quickConfig())

	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		time.Sleep(10 * time.Millisecond)
		cancel()
	}()
	_, err := ex.Extract(ctx, testImage())
	assert.ErrorIs(t, err, context.Canceled)
}

func TestExtractNilImage(t *testing.T) {
	ex := NewExtractor(&stubService{}, quickConfig())
	_, err := ex.Extract(context.Background(), nil)
	assert.ErrorIs(t, err, ErrInvalidInput)
}

func TestQualityScore(t *testing.T) {
	tests := []struct {
		name string
		text string
		min  float64
		max  float64
	}{
		{"clean label", "Ibuprofen 400mg Tablets", 0.9, 1.0},
		{"empty", "", 0, 0},
		{"whitespace", "   \n\t", 0, 0},
		{"pure noise", "@# !% ^& *(", 0, 0.1},
		{"mixed", "Ibuprofen @#$ 400mg !!", 0.4, 0.8},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := QualityScore(tt.text)
			assert.GreaterOrEqual(t, got, tt.min)
			assert.LessOrEqual(t, got, tt.max)
		})
	}
}

func TestQualityOrdering(t *testing.T) {
	clean := QualityScore("Paracetamol 500mg")
	garbled := QualityScore("P@r@c#t%m*l 5&&mg")
	if clean <= garbled {
		t.Fatalf("clean text scored %v, garbled %v", clean, garbled)
	}
}

func TestUsableRespectsFloor(t *testing.T) {
	cfg := quickConfig()
	cfg.MinQuality = 0.5
	ex := NewExtractor(&stubService{}, cfg)

	assert.True(t, ex.Usable(ExtractedText{Normalized: "ibuprofen", Quality: 0.9}))
	assert.False(t, ex.Usable(ExtractedText{Normalized: "ibuprofen", Quality: 0.3}))
	assert.False(t, ex.Usable(ExtractedText{Normalized: "", Quality: 0.9}))
}
