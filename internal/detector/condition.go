package detector

import (
	"image"
	"math"

	"github.com/veridose/boxscan/internal/utils"
)

// Luminance statistics thresholds for condition and lighting heuristics.
// Printed boxes in good condition show strong luminance contrast; wear,
// blur, and damage flatten the distribution.
const (
	contrastPerfect = 55.0
	contrastWorn    = 35.0
	contrastDamaged = 18.0

	luminanceDim   = 60.0
	luminanceGlare = 200.0
)

// AssessCondition classifies the physical state and lighting of a cropped
// region from its luminance distribution.
func AssessCondition(img image.Image) (BoxCondition, BoxLighting) {
	mean, stddev := luminanceStats(img)

	lighting := LightingNormal
	switch {
	case mean < luminanceDim:
		lighting = LightingDim
	case mean > luminanceGlare:
		lighting = LightingGlare
	}

	var cond BoxCondition
	switch {
	case stddev >= contrastPerfect:
		cond = ConditionPerfect
	case stddev >= contrastWorn:
		cond = ConditionWorn
	case stddev >= contrastDamaged:
		cond = ConditionDamaged
	default:
		cond = ConditionSeverelyDamaged
	}
	return cond, lighting
}

// assessAngle estimates box orientation from the bounding-box aspect ratio.
// Pharmaceutical boxes photographed face-on stay near their natural aspect;
// extreme ratios indicate a steep viewing angle.
func assessAngle(box utils.Box) BoxAngle {
	w, h := box.Width(), box.Height()
	if w <= 0 || h <= 0 {
		return AngleSteep
	}
	aspect := w / h
	if aspect < 1 {
		aspect = 1 / aspect
	}
	switch {
	case aspect <= 2.5:
		return AngleStraight
	case aspect <= 4.0:
		return AngleTilted
	default:
		return AngleSteep
	}
}

// luminanceStats computes the mean and standard deviation of pixel
// luminance on a subsampled grid (ITU-R BT.601 weights).
func luminanceStats(img image.Image) (mean, stddev float64) {
	bounds := img.Bounds()
	w, h := bounds.Dx(), bounds.Dy()
	if w == 0 || h == 0 {
		return 0, 0
	}

	// Sample at most ~64x64 points; exact stats are not needed here.
	stepX := w / 64
	if stepX < 1 {
		stepX = 1
	}
	stepY := h / 64
	if stepY < 1 {
		stepY = 1
	}

	var sum, sumSq float64
	var n int
	for y := bounds.Min.Y; y < bounds.Max.Y; y += stepY {
		for x := bounds.Min.X; x < bounds.Max.X; x += stepX {
			r, g, b, _ := img.At(x, y).RGBA()
			lum := 0.299*float64(r>>8) + 0.587*float64(g>>8) + 0.114*float64(b>>8)
			sum += lum
			sumSq += lum * lum
			n++
		}
	}
	if n == 0 {
		return 0, 0
	}
	mean = sum / float64(n)
	variance := sumSq/float64(n) - mean*mean
	if variance < 0 {
		variance = 0
	}
	return mean, math.Sqrt(variance)
}
