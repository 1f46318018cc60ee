// Package feature computes and indexes visual fingerprints of box
// regions. A fingerprint combines color, edge, layout, and shape
// descriptors; the index answers nearest-neighbour queries with a
// weighted similarity so damaged or partially read boxes can still be
// matched by appearance.
package feature

import "math"

// Descriptor dimensions. The flattened vector is their sum.
const (
	ColorBins  = 24
	EdgeBins   = 8
	LayoutBins = 16
	ShapeBins  = 4

	// VectorDim is the flattened fingerprint length.
	VectorDim = ColorBins + EdgeBins + LayoutBins + ShapeBins
)

// Vector is the visual fingerprint of a single box region.
type Vector struct {
	Color  []float64 `json:"color"`
	Edge   []float64 `json:"edge"`
	Layout []float64 `json:"layout"`
	Shape  []float64 `json:"shape"`
}

// IsZero reports whether no descriptors were computed.
func (v Vector) IsZero() bool {
	return len(v.Color) == 0 && len(v.Edge) == 0 && len(v.Layout) == 0 && len(v.Shape) == 0
}

// Flatten concatenates the descriptors into one float32 slice, the form
// the vector store persists.
func (v Vector) Flatten() []float32 {
	out := make([]float32, 0, VectorDim)
	for _, part := range [][]float64{v.Color, v.Edge, v.Layout, v.Shape} {
		for _, f := range part {
			out = append(out, float32(f))
		}
	}
	return out
}

// Unflatten rebuilds a Vector from its persisted form.
func Unflatten(data []float32) (Vector, bool) {
	if len(data) != VectorDim {
		return Vector{}, false
	}
	toF64 := func(in []float32) []float64 {
		out := make([]float64, len(in))
		for i, f := range in {
			out[i] = float64(f)
		}
		return out
	}
	return Vector{
		Color:  toF64(data[:ColorBins]),
		Edge:   toF64(data[ColorBins : ColorBins+EdgeBins]),
		Layout: toF64(data[ColorBins+EdgeBins : ColorBins+EdgeBins+LayoutBins]),
		Shape:  toF64(data[ColorBins+EdgeBins+LayoutBins:]),
	}, true
}

// Weights controls how much each descriptor contributes to similarity.
type Weights struct {
	Color  float64
	Edge   float64
	Layout float64
	Shape  float64
}

// DefaultWeights favors layout, which survives wear better than color.
func DefaultWeights() Weights {
	return Weights{Color: 0.3, Edge: 0.2, Layout: 0.4, Shape: 0.1}
}

// Similarity computes the weighted similarity of two fingerprints in
// [0, 1]. Each descriptor is compared with cosine similarity and the
// results blended by weight.
func Similarity(a, b Vector, w Weights) float64 {
	total := w.Color + w.Edge + w.Layout + w.Shape
	if total <= 0 {
		return 0
	}
	sum := w.Color*cosine(a.Color, b.Color) +
		w.Edge*cosine(a.Edge, b.Edge) +
		w.Layout*cosine(a.Layout, b.Layout) +
		w.Shape*cosine(a.Shape, b.Shape)
	return sum / total
}

func cosine(a, b []float64) float64 {
	if len(a) == 0 || len(a) != len(b) {
		return 0
	}
	var dot, na, nb float64
	for i := range a {
		dot += a[i] * b[i]
		na += a[i] * a[i]
		nb += b[i] * b[i]
	}
	if na == 0 || nb == 0 {
		return 0
	}
	return dot / (math.Sqrt(na) * math.Sqrt(nb))
}

// normalizeHistogram scales bins so they sum to one.
func normalizeHistogram(bins []float64) {
	var sum float64
	for _, b := range bins {
		sum += b
	}
	if sum == 0 {
		return
	}
	for i := range bins {
		bins[i] /= sum
	}
}
