package detector

import (
	"errors"
	"image"
	"sort"

	"github.com/anthonynsimon/bild/effect"
	"github.com/anthonynsimon/bild/segment"
	"github.com/disintegration/imaging"

	"github.com/veridose/boxscan/internal/utils"
)

// Config holds region detection settings.
type Config struct {
	// BinarizeThreshold is the edge-magnitude cutoff (0-255) applied after
	// edge detection.
	BinarizeThreshold int

	// EdgeRadius is the edge-detection kernel radius.
	EdgeRadius float64

	// NMSIoUThreshold merges overlapping proposals above this IoU.
	NMSIoUThreshold float64

	// MinRegionArea rejects noise-sized proposals, in original-image pixels.
	MinRegionArea int

	// MaxRegions caps the number of proposals per image.
	MaxRegions int

	// MaxImageSize bounds the working image's longest side.
	MaxImageSize int

	// FallbackWholeImage treats the entire image as a single region when
	// detection yields nothing.
	FallbackWholeImage bool
}

// DefaultConfig returns default detection settings.
func DefaultConfig() Config {
	return Config{
		BinarizeThreshold:  128,
		EdgeRadius:         1.0,
		NMSIoUThreshold:    0.4,
		MinRegionArea:      2500,
		MaxRegions:         16,
		MaxImageSize:       2048,
		FallbackWholeImage: true,
	}
}

// ErrNoRegions is returned when nothing is detected and whole-image
// fallback is disabled.
var ErrNoRegions = errors.New("detector: no candidate regions found")

// Detector proposes candidate box regions in a photograph.
type Detector struct {
	cfg Config
}

// NewDetector creates a detector with the given configuration.
func NewDetector(cfg Config) *Detector {
	if cfg.MaxRegions <= 0 {
		cfg.MaxRegions = DefaultConfig().MaxRegions
	}
	if cfg.MaxImageSize <= 0 {
		cfg.MaxImageSize = DefaultConfig().MaxImageSize
	}
	if cfg.EdgeRadius <= 0 {
		cfg.EdgeRadius = DefaultConfig().EdgeRadius
	}
	if cfg.BinarizeThreshold <= 0 {
		cfg.BinarizeThreshold = DefaultConfig().BinarizeThreshold
	}
	return &Detector{cfg: cfg}
}

// Detect proposes candidate regions for distinct boxes in the image.
// Regions come back in reading order (top-to-bottom, left-to-right) with
// cropped pixels attached; this ordering defines the region indices the
// rest of the pipeline aggregates by.
func (d *Detector) Detect(img image.Image) ([]Region, error) {
	if img == nil {
		return nil, errors.New("detector: nil image")
	}
	bounds := img.Bounds()
	if bounds.Dx() == 0 || bounds.Dy() == 0 {
		return nil, errors.New("detector: empty image")
	}

	working, sx, sy := d.workingImage(img)
	props := d.propose(working)

	// Scale proposals back to original coordinates and drop noise.
	scaled := make([]proposal, 0, len(props))
	for _, p := range props {
		box := utils.NewBox(p.box.MinX*sx, p.box.MinY*sy, p.box.MaxX*sx, p.box.MaxY*sy)
		if int(box.Area()) < d.cfg.MinRegionArea {
			continue
		}
		scaled = append(scaled, proposal{box: box, confidence: p.confidence})
	}

	kept := nonMaxSuppression(scaled, d.cfg.NMSIoUThreshold)
	if len(kept) > d.cfg.MaxRegions {
		kept = kept[:d.cfg.MaxRegions]
	}

	if len(kept) == 0 {
		if !d.cfg.FallbackWholeImage {
			return nil, ErrNoRegions
		}
		return []Region{d.wholeImageRegion(img)}, nil
	}

	// Reading order keeps downstream aggregation deterministic.
	sort.Slice(kept, func(i, j int) bool {
		if kept[i].box.MinY != kept[j].box.MinY {
			return kept[i].box.MinY < kept[j].box.MinY
		}
		return kept[i].box.MinX < kept[j].box.MinX
	})

	regions := make([]Region, 0, len(kept))
	for i, p := range kept {
		crop := imaging.Crop(img, p.box.ToRect(bounds))
		cond, lighting := AssessCondition(crop)
		regions = append(regions, Region{
			ID:         newRegionID(),
			Index:      i,
			Box:        p.box,
			Confidence: p.confidence,
			Condition:  cond,
			Angle:      assessAngle(p.box),
			Lighting:   lighting,
			Image:      crop,
		})
	}
	return regions, nil
}

// workingImage downsizes large inputs and returns the scale factors that
// map working coordinates back to the original.
func (d *Detector) workingImage(img image.Image) (image.Image, float64, float64) {
	bounds := img.Bounds()
	w, h := bounds.Dx(), bounds.Dy()
	if w <= d.cfg.MaxImageSize && h <= d.cfg.MaxImageSize {
		return img, 1, 1
	}
	working := imaging.Fit(img, d.cfg.MaxImageSize, d.cfg.MaxImageSize, imaging.Lanczos)
	wb := working.Bounds()
	return working, float64(w) / float64(wb.Dx()), float64(h) / float64(wb.Dy())
}

// propose runs edge detection, binarization, and grid component analysis.
func (d *Detector) propose(img image.Image) []proposal {
	edges := effect.EdgeDetection(img, d.cfg.EdgeRadius)
	mask := segment.Threshold(edges, uint8(d.cfg.BinarizeThreshold)) //nolint:gosec // threshold validated to 0-255
	grid := buildEdgeGrid(mask)
	comps := connectedComponents(grid)
	return proposalsFromComponents(comps, img.Bounds().Dx(), img.Bounds().Dy())
}

// wholeImageRegion degrades gracefully when detection finds nothing.
func (d *Detector) wholeImageRegion(img image.Image) Region {
	bounds := img.Bounds()
	crop := imaging.Clone(img)
	cond, lighting := AssessCondition(crop)
	return Region{
		ID:         newRegionID(),
		Index:      0,
		Box:        utils.FromRect(bounds),
		Confidence: 0.3,
		Condition:  cond,
		Angle:      AngleStraight,
		Lighting:   lighting,
		Image:      crop,
	}
}
