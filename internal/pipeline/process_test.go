package pipeline

import (
	"context"
	"image"
	"image/color"
	"image/draw"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/veridose/boxscan/internal/catalog"
	"github.com/veridose/boxscan/internal/decision"
	"github.com/veridose/boxscan/internal/extractor"
	"github.com/veridose/boxscan/internal/feedback"
)

// sceneWithBoxes paints striped print-like rectangles on a gray field;
// each rectangle becomes a detectable region.
func sceneWithBoxes(w, h int, boxes ...image.Rectangle) image.Image {
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	draw.Draw(img, img.Bounds(), &image.Uniform{color.RGBA{128, 128, 128, 255}}, image.Point{}, draw.Src)
	for _, b := range boxes {
		for y := b.Min.Y; y < b.Max.Y; y++ {
			for x := b.Min.X; x < b.Max.X; x++ {
				if (x/2)%2 == 0 {
					img.Set(x, y, color.Black)
				} else {
					img.Set(x, y, color.White)
				}
			}
		}
	}
	return img
}

// sizedTextService answers by crop width so results do not depend on
// worker scheduling.
type sizedTextService struct {
	wide   string
	narrow string
	split  int
	delay  time.Duration
	err    error
}

func (s *sizedTextService) Recognize(ctx context.Context, img image.Image) (extractor.Recognition, error) {
	if s.delay > 0 {
		select {
		case <-time.After(s.delay):
		case <-ctx.Done():
			return extractor.Recognition{}, ctx.Err()
		}
	}
	if s.err != nil {
		return extractor.Recognition{}, s.err
	}
	if img.Bounds().Dx() >= s.split {
		return extractor.Recognition{Text: s.wide, Confidence: 0.9}, nil
	}
	return extractor.Recognition{Text: s.narrow, Confidence: 0.9}, nil
}

// failWideService fails for wide crops and recognizes narrow ones.
type failWideService struct {
	narrow string
	split  int
}

func (s *failWideService) Recognize(_ context.Context, img image.Image) (extractor.Recognition, error) {
	if img.Bounds().Dx() >= s.split {
		return extractor.Recognition{}, extractor.ErrServiceUnavailable
	}
	return extractor.Recognition{Text: s.narrow, Confidence: 0.9}, nil
}

func testStore() catalog.Store {
	return catalog.NewMemoryStore([]catalog.Entry{
		{ID: "drug-1", Name: "Ibuprofen", Category: "analgesic", Brands: []string{"Nurofen"}, UsageCount: 40},
		{ID: "drug-2", Name: "Amoxicillin", Category: "antibiotic", UsageCount: 12},
		{ID: "drug-3", Name: "Paracetamol", Category: "analgesic", UsageCount: 80},
	})
}

func buildPipeline(t *testing.T, svc extractor.TextService) *Pipeline {
	t.Helper()
	cfg := DefaultConfig()
	cfg.Extract.RetryBackoff = time.Millisecond
	cfg.Extract.CallTimeout = 100 * time.Millisecond
	cfg.Extract.MaxRetries = 1
	p, err := NewBuilder().
		WithConfig(cfg).
		WithTextService(svc).
		WithCatalog(testStore()).
		Build()
	require.NoError(t, err)
	return p
}

func twoBoxScene() image.Image {
	return sceneWithBoxes(640, 480,
		image.Rect(40, 40, 240, 180),    // narrow
		image.Rect(300, 260, 620, 460), // wide
	)
}

func TestProcessTwoDistinctDrugs(t *testing.T) {
	svc := &sizedTextService{narrow: "Ibuprofen", wide: "Amoxicillin", split: 280}
	p := buildPipeline(t, svc)
	session := NewSession()

	res, err := p.Process(context.Background(), twoBoxScene(), session)
	require.NoError(t, err)
	require.Len(t, res.Regions, 2)
	require.Len(t, res.Drugs, 2)

	assert.Equal(t, session.ID, res.SessionID)
	assert.Equal(t, 0, res.Regions[0].Index)
	assert.Equal(t, 1, res.Regions[1].Index)

	names := []string{res.Drugs[0].Name, res.Drugs[1].Name}
	assert.Contains(t, names, "Ibuprofen")
	assert.Contains(t, names, "Amoxicillin")
	for _, r := range res.Regions {
		assert.Equal(t, decision.ActionAutoSelect, r.Action)
		require.NotNil(t, r.Best)
		assert.InDelta(t, 100, r.Best.Confidence, 1e-9)
	}

	stats := session.Stats()
	assert.Equal(t, 1, stats.Scans)
	assert.Equal(t, 2, stats.Regions)
	assert.Equal(t, 2, stats.AutoSelected)
	assert.InDelta(t, 100, stats.AverageConfidence, 1e-9)
}

func TestProcessDeduplicatesSameDrug(t *testing.T) {
	svc := &sizedTextService{narrow: "Ibuprofen", wide: "Ibuprofen", split: 280}
	p := buildPipeline(t, svc)

	res, err := p.Process(context.Background(), twoBoxScene(), nil)
	require.NoError(t, err)
	require.Len(t, res.Regions, 2)
	require.Len(t, res.Drugs, 1)

	drug := res.Drugs[0]
	assert.Equal(t, "Ibuprofen", drug.Name)
	assert.Len(t, drug.Duplicates, 1)
	assert.NotEqual(t, drug.RegionID, drug.Duplicates[0])
	assert.InDelta(t, 100, res.AggregateConfidence, 1e-9)
}

func TestProcessDeterministicOutput(t *testing.T) {
	svc := &sizedTextService{narrow: "Ibuprofen", wide: "Amoxicillin", split: 280}
	p := buildPipeline(t, svc)

	first, err := p.Process(context.Background(), twoBoxScene(), nil)
	require.NoError(t, err)
	second, err := p.Process(context.Background(), twoBoxScene(), nil)
	require.NoError(t, err)

	require.Len(t, second.Regions, len(first.Regions))
	for i := range first.Regions {
		assert.Equal(t, first.Regions[i].Index, second.Regions[i].Index)
		assert.Equal(t, first.Regions[i].MatchedKey(), second.Regions[i].MatchedKey())
		assert.Equal(t, first.Regions[i].Action, second.Regions[i].Action)
	}
	require.Len(t, second.Drugs, len(first.Drugs))
	for i := range first.Drugs {
		assert.Equal(t, first.Drugs[i].Name, second.Drugs[i].Name)
	}
}

func TestProcessOneRegionFailsOthersSurvive(t *testing.T) {
	svc := &failWideService{narrow: "Ibuprofen", split: 280}
	p := buildPipeline(t, svc)

	res, err := p.Process(context.Background(), twoBoxScene(), nil)
	require.NoError(t, err)
	require.Len(t, res.Regions, 2)

	var failed, ok *RegionResult
	for i := range res.Regions {
		if res.Regions[i].Failure == FailureExtraction {
			failed = &res.Regions[i]
		} else {
			ok = &res.Regions[i]
		}
	}
	require.NotNil(t, failed)
	require.NotNil(t, ok)
	assert.Equal(t, decision.ActionRescan, failed.Action)
	assert.Equal(t, decision.ActionAutoSelect, ok.Action)
	require.Len(t, res.Drugs, 1)
	assert.Equal(t, "Ibuprofen", res.Drugs[0].Name)
}

func TestProcessTimeoutTreatedAsExtractionFailure(t *testing.T) {
	svc := &sizedTextService{narrow: "Ibuprofen", wide: "Ibuprofen", split: 1, delay: time.Second}
	p := buildPipeline(t, svc)

	res, err := p.Process(context.Background(), twoBoxScene(), nil)
	require.NoError(t, err)
	require.Len(t, res.Regions, 2)
	for _, r := range res.Regions {
		assert.Equal(t, FailureExtraction, r.Failure)
		assert.Equal(t, decision.ActionRescan, r.Action)
	}
	assert.Empty(t, res.Drugs)
}

func TestProcessWholeImageFallback(t *testing.T) {
	svc := &sizedTextService{narrow: "Paracetamol", wide: "Paracetamol", split: 1}
	p := buildPipeline(t, svc)

	// Featureless photo: detection finds nothing, whole image is used.
	res, err := p.Process(context.Background(), sceneWithBoxes(320, 240), nil)
	require.NoError(t, err)
	require.Len(t, res.Regions, 1)
	require.Len(t, res.Drugs, 1)
	assert.Equal(t, "Paracetamol", res.Drugs[0].Name)
}

func TestProcessCanceledContextOmitsRegions(t *testing.T) {
	svc := &sizedTextService{narrow: "Ibuprofen", wide: "Amoxicillin", split: 280, delay: time.Second}
	p := buildPipeline(t, svc)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	res, err := p.Process(ctx, twoBoxScene(), nil)
	require.NoError(t, err)
	assert.Empty(t, res.Regions)
	assert.Empty(t, res.Drugs)
}

func TestProcessNilImage(t *testing.T) {
	p := buildPipeline(t, &sizedTextService{split: 1})
	_, err := p.Process(context.Background(), nil, nil)
	assert.ErrorIs(t, err, ErrDetectionFailed)
}

// captureForwarder records forwarded corrections.
type captureForwarder struct {
	records []feedback.Correction
}

func (c *captureForwarder) Forward(_ context.Context, rec feedback.Correction) error {
	c.records = append(c.records, rec)
	return nil
}

func TestApplyCorrectionForwards(t *testing.T) {
	fwd := &captureForwarder{}
	cfg := DefaultConfig()
	p, err := NewBuilder().
		WithConfig(cfg).
		WithTextService(&sizedTextService{split: 1}).
		WithCatalog(testStore()).
		WithFeedback(fwd).
		Build()
	require.NoError(t, err)

	session := NewSession()
	err = p.ApplyCorrection(context.Background(), session, Correction{
		RegionID:    "region-1",
		Kind:        feedback.KindWrongDrug,
		SelectedID:  "drug-3",
		CorrectID:   "drug-1",
		CorrectName: "Ibuprofen",
	})
	require.NoError(t, err)

	require.Len(t, fwd.records, 1)
	rec := fwd.records[0]
	assert.Equal(t, session.ID, rec.SessionID)
	assert.Equal(t, "drug-1", rec.CorrectID)
	assert.Equal(t, feedback.KindWrongDrug, rec.Kind)
	assert.False(t, rec.CreatedAt.IsZero())
	assert.Equal(t, 1, session.Stats().Corrections)
}
