package feature

import (
	"errors"
	"image"

	"github.com/anthonynsimon/bild/effect"
	"github.com/anthonynsimon/bild/segment"
	"github.com/disintegration/imaging"
	"github.com/lucasb-eyer/go-colorful"
)

// analysis geometry. Regions are resampled to a fixed size so the
// descriptors stay comparable across crops.
const (
	analysisSize  = 128
	hueBins       = 16
	satBins       = 4
	valBins       = 4
	edgeThreshold = 96
)

// ErrEmptyRegion is returned when the region has no pixels to describe.
var ErrEmptyRegion = errors.New("feature: empty region image")

// Extract computes the visual fingerprint of a box region.
func Extract(img image.Image) (Vector, error) {
	if img == nil {
		return Vector{}, ErrEmptyRegion
	}
	bounds := img.Bounds()
	if bounds.Dx() == 0 || bounds.Dy() == 0 {
		return Vector{}, ErrEmptyRegion
	}

	resized := imaging.Resize(img, analysisSize, analysisSize, imaging.Lanczos)
	edges := segment.Threshold(effect.EdgeDetection(resized, 1.0), edgeThreshold)

	return Vector{
		Color:  colorHistogram(resized),
		Edge:   edgeHistogram(edges),
		Layout: layoutProfile(edges),
		Shape:  shapeDescriptor(bounds, edges),
	}, nil
}

// colorHistogram bins pixels by hue, saturation, and value. Hue bins
// carry the packaging's brand colors; the saturation and value bins
// separate white boxes from dark ones.
func colorHistogram(img image.Image) []float64 {
	bins := make([]float64, ColorBins)
	b := img.Bounds()
	for y := b.Min.Y; y < b.Max.Y; y++ {
		for x := b.Min.X; x < b.Max.X; x++ {
			c, ok := colorful.MakeColor(img.At(x, y))
			if !ok {
				continue
			}
			h, s, v := c.Hsv()
			hi := int(h/360.0*float64(hueBins)) % hueBins
			if hi < 0 {
				hi += hueBins
			}
			bins[hi] += s // desaturated pixels contribute little hue signal
			bins[hueBins+binIndex(s, satBins)]++
			bins[hueBins+satBins+binIndex(v, valBins)]++
		}
	}
	normalizeHistogram(bins[:hueBins])
	normalizeHistogram(bins[hueBins : hueBins+satBins])
	normalizeHistogram(bins[hueBins+satBins:])
	return bins
}

// edgeHistogram measures edge density per image octant, a coarse map of
// where the printing sits.
func edgeHistogram(edges *image.Gray) []float64 {
	bins := make([]float64, EdgeBins)
	b := edges.Bounds()
	w, h := b.Dx(), b.Dy()
	if w == 0 || h == 0 {
		return bins
	}
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			if edges.GrayAt(b.Min.X+x, b.Min.Y+y).Y == 0 {
				continue
			}
			col := x * 4 / w
			row := y * 2 / h
			bins[row*4+col]++
		}
	}
	normalizeHistogram(bins)
	return bins
}

// layoutProfile captures horizontal and vertical edge projections, which
// reflect how text lines and graphic blocks are arranged on the box.
func layoutProfile(edges *image.Gray) []float64 {
	rows := LayoutBins / 2
	cols := LayoutBins - rows
	bins := make([]float64, LayoutBins)
	b := edges.Bounds()
	w, h := b.Dx(), b.Dy()
	if w == 0 || h == 0 {
		return bins
	}
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			if edges.GrayAt(b.Min.X+x, b.Min.Y+y).Y == 0 {
				continue
			}
			bins[y*rows/h]++
			bins[rows+x*cols/w]++
		}
	}
	normalizeHistogram(bins[:rows])
	normalizeHistogram(bins[rows:])
	return bins
}

// shapeDescriptor records aspect ratio and overall edge coverage of the
// original region.
func shapeDescriptor(bounds image.Rectangle, edges *image.Gray) []float64 {
	w := float64(bounds.Dx())
	h := float64(bounds.Dy())
	aspect := 0.0
	if h > 0 {
		aspect = w / h
	}
	if aspect > 4 {
		aspect = 4
	}

	var active float64
	eb := edges.Bounds()
	for y := eb.Min.Y; y < eb.Max.Y; y++ {
		for x := eb.Min.X; x < eb.Max.X; x++ {
			if edges.GrayAt(x, y).Y != 0 {
				active++
			}
		}
	}
	coverage := active / float64(analysisSize*analysisSize)

	return []float64{
		aspect / 4,     // normalized aspect ratio
		coverage,       // print density
		w / (w + 1000), // soft size signal, saturates for large crops
		h / (h + 1000),
	}
}

func binIndex(v float64, bins int) int {
	i := int(v * float64(bins))
	if i >= bins {
		i = bins - 1
	}
	if i < 0 {
		i = 0
	}
	return i
}
