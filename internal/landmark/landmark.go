// Package landmark provides the hand landmark types consumed by the recognition pipeline.
package landmark

import "math"

// Hand landmark indices following MediaPipe convention.
// See: https://developers.google.com/mediapipe/solutions/vision/hand_landmarker
const (
	Wrist        = 0
	ThumbCMC     = 1
	ThumbMCP     = 2
	ThumbIP      = 3
	ThumbTip     = 4
	IndexMCP     = 5
	IndexPIP     = 6
	IndexDIP     = 7
	IndexTip     = 8
	MiddleMCP    = 9
	MiddlePIP    = 10
	MiddleDIP    = 11
	MiddleTip    = 12
	RingMCP      = 13
	RingPIP      = 14
	RingDIP      = 15
	RingTip      = 16
	PinkyMCP     = 17
	PinkyPIP     = 18
	PinkyDIP     = 19
	PinkyTip     = 20
	NumLandmarks = 21
)

// FingerTips lists the fingertip indices from thumb to pinky.
var FingerTips = [5]int{ThumbTip, IndexTip, MiddleTip, RingTip, PinkyTip}

// minScale is the floor applied to the hand scale during normalization.
const minScale = 1e-6

// Point is a normalized 3D landmark. X and Y are conventionally in [0,1],
// Z is depth relative to the wrist and decodes to 0 when absent.
type Point struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
	Z float64 `json:"z"`
}

// Finite returns a copy of p with every NaN or infinite coordinate replaced by 0.
func (p Point) Finite() Point {
	return Point{X: finite(p.X), Y: finite(p.Y), Z: finite(p.Z)}
}

// Hand is a single hand observation: an ordered landmark sequence following
// the MediaPipe indexing. A complete observation has NumLandmarks points.
type Hand []Point

// Complete reports whether the observation carries enough landmarks to be classified.
func (h Hand) Complete() bool {
	return len(h) >= NumLandmarks
}

// At returns the sanitized landmark at index i and whether it is present.
func (h Hand) At(i int) (Point, bool) {
	if i < 0 || i >= len(h) {
		return Point{}, false
	}
	return h[i].Finite(), true
}

// Distance calculates the Euclidean distance between two points.
// Non-finite coordinates count as 0; a distance too large to represent
// saturates at math.MaxFloat64.
func Distance(a, b Point) float64 {
	a, b = a.Finite(), b.Finite()
	dx := Bound(a.X - b.X)
	dy := Bound(a.Y - b.Y)
	dz := Bound(a.Z - b.Z)
	return Bound(math.Hypot(math.Hypot(dx, dy), dz))
}

// Normalize translates the observation so the wrist sits at the origin and
// scales it so the landmark farthest from the wrist is at distance 1.
// Only the first NumLandmarks points are used; missing points are zero.
// The result always has NumLandmarks points, or none for an empty hand.
func (h Hand) Normalize() Hand {
	if len(h) == 0 {
		return nil
	}

	wrist, _ := h.At(Wrist)
	normalized := make(Hand, NumLandmarks)

	// Translate all points relative to wrist
	var scale float64
	for i := 0; i < NumLandmarks && i < len(h); i++ {
		p, _ := h.At(i)
		if d := Distance(p, wrist); d > scale {
			scale = d
		}
		normalized[i] = Point{X: Bound(p.X - wrist.X), Y: Bound(p.Y - wrist.Y), Z: Bound(p.Z - wrist.Z)}
	}

	// Avoid division by zero
	if scale < minScale {
		scale = minScale
	}

	for i := 0; i < len(h) && i < NumLandmarks; i++ {
		normalized[i].X = Bound(normalized[i].X / scale)
		normalized[i].Y = Bound(normalized[i].Y / scale)
		normalized[i].Z = Bound(normalized[i].Z / scale)
	}

	return normalized
}

// Bound maps NaN to 0 and clamps infinities to ±math.MaxFloat64, so
// arithmetic on extreme but finite coordinates stays finite.
func Bound(v float64) float64 {
	switch {
	case math.IsNaN(v):
		return 0
	case math.IsInf(v, 1):
		return math.MaxFloat64
	case math.IsInf(v, -1):
		return -math.MaxFloat64
	}
	return v
}

func finite(v float64) float64 {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return 0
	}
	return v
}
