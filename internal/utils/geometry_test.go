package utils

import (
	"image"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNewBoxOrdersCoordinates(t *testing.T) {
	b := NewBox(10, 20, 0, 5)
	assert.InDelta(t, 0.0, b.MinX, 1e-9)
	assert.InDelta(t, 5.0, b.MinY, 1e-9)
	assert.InDelta(t, 10.0, b.MaxX, 1e-9)
	assert.InDelta(t, 20.0, b.MaxY, 1e-9)
}

func TestIoU(t *testing.T) {
	tests := []struct {
		name string
		a, b Box
		want float64
	}{
		{"identical", NewBox(0, 0, 10, 10), NewBox(0, 0, 10, 10), 1.0},
		{"disjoint", NewBox(0, 0, 10, 10), NewBox(20, 20, 30, 30), 0.0},
		{"touching edge", NewBox(0, 0, 10, 10), NewBox(10, 0, 20, 10), 0.0},
		{"half overlap", NewBox(0, 0, 10, 10), NewBox(5, 0, 15, 10), 50.0 / 150.0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.InDelta(t, tt.want, IoU(tt.a, tt.b), 1e-9)
			assert.InDelta(t, tt.want, IoU(tt.b, tt.a), 1e-9)
		})
	}
}

func TestBoxToRectClamps(t *testing.T) {
	bounds := image.Rect(0, 0, 100, 100)
	r := NewBox(-5, -5, 250, 50).ToRect(bounds)
	assert.Equal(t, image.Rect(0, 0, 100, 50), r)
}

func TestBoxArea(t *testing.T) {
	if got := NewBox(0, 0, 4, 5).Area(); got != 20 {
		t.Fatalf("expected area 20, got %v", got)
	}
}
