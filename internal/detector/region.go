// Package detector proposes rectangular candidate regions for distinct
// pharmaceutical boxes in a photograph. Detection is a pure function over
// the input image; regions are immutable once created.
package detector

import (
	"encoding/json"
	"image"

	"github.com/google/uuid"

	"github.com/veridose/boxscan/internal/utils"
)

// BoxCondition classifies the physical state of a detected box.
type BoxCondition string

const (
	ConditionPerfect         BoxCondition = "perfect"
	ConditionWorn            BoxCondition = "worn"
	ConditionDamaged         BoxCondition = "damaged"
	ConditionSeverelyDamaged BoxCondition = "severely_damaged"
)

// IsDamaged reports whether the condition warrants text recovery.
func (c BoxCondition) IsDamaged() bool {
	return c == ConditionDamaged || c == ConditionSeverelyDamaged
}

// BoxAngle classifies how the box is oriented towards the camera.
type BoxAngle string

const (
	AngleStraight BoxAngle = "straight"
	AngleTilted   BoxAngle = "tilted"
	AngleSteep    BoxAngle = "steep"
)

// BoxLighting classifies the illumination of the region.
type BoxLighting string

const (
	LightingNormal BoxLighting = "normal"
	LightingDim    BoxLighting = "dim"
	LightingGlare  BoxLighting = "glare"
)

// Region is one detected candidate box. Created once per candidate and
// owned by the pipeline invocation.
type Region struct {
	ID         string       `json:"id"`
	Index      int          `json:"index"` // position in original detection order
	Box        utils.Box    `json:"box"`
	Confidence float64      `json:"confidence"`
	Condition  BoxCondition `json:"condition"`
	Angle      BoxAngle     `json:"angle"`
	Lighting   BoxLighting  `json:"lighting"`

	// Image is the cropped region pixels; not serialized.
	Image image.Image `json:"-"`
}

// newRegionID returns a fresh region identifier.
func newRegionID() string { return uuid.New().String() }

// regionJSON is the serializable representation of detection output.
type regionJSON struct {
	ID         string       `json:"id"`
	Confidence float64      `json:"confidence"`
	X          int          `json:"x"`
	Y          int          `json:"y"`
	W          int          `json:"w"`
	H          int          `json:"h"`
	Condition  BoxCondition `json:"condition"`
	Angle      BoxAngle     `json:"angle"`
	Lighting   BoxLighting  `json:"lighting"`
}

// RegionsToJSON converts regions to indented JSON.
func RegionsToJSON(regions []Region) ([]byte, error) {
	out := make([]regionJSON, 0, len(regions))
	for _, r := range regions {
		out = append(out, regionJSON{
			ID:         r.ID,
			Confidence: r.Confidence,
			X:          int(r.Box.MinX),
			Y:          int(r.Box.MinY),
			W:          int(r.Box.Width()),
			H:          int(r.Box.Height()),
			Condition:  r.Condition,
			Angle:      r.Angle,
			Lighting:   r.Lighting,
		})
	}
	return json.MarshalIndent(out, "", "  ")
}
