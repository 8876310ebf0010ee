package landmark

// Preset poses are synthetic observations in image coordinates. They are
// shaped so their heuristic features sit close to the default letter
// prototypes and are used by tests and the mock source.

// FistLandmarks returns a closed fist, the canonical pose for "A".
// Fingertips are folded close to the wrist with the thumb resting beside the index.
func FistLandmarks() Hand {
	return pose(Point{X: 0.5, Y: 0.6}, [5]Point{
		{X: 0.56, Y: 0.55}, // thumb
		{X: 0.56, Y: 0.52}, // index
		{X: 0.50, Y: 0.51}, // middle
		{X: 0.47, Y: 0.52}, // ring
		{X: 0.44, Y: 0.61}, // pinky
	})
}

// OpenPalmLandmarks returns an open palm, the canonical pose for "B".
// All fingers are extended with the thumb out to the side.
func OpenPalmLandmarks() Hand {
	return pose(Point{X: 0.5, Y: 0.85}, [5]Point{
		{X: 0.70, Y: 0.70},
		{X: 0.60, Y: 0.59},
		{X: 0.50, Y: 0.47},
		{X: 0.40, Y: 0.51},
		{X: 0.30, Y: 0.82},
	})
}

// CShapeLandmarks returns a curved hand, the canonical pose for "C".
func CShapeLandmarks() Hand {
	return pose(Point{X: 0.5, Y: 0.8}, [5]Point{
		{X: 0.62, Y: 0.75},
		{X: 0.62, Y: 0.55},
		{X: 0.50, Y: 0.45},
		{X: 0.44, Y: 0.52},
		{X: 0.38, Y: 0.62},
	})
}

// pose builds a full observation from a wrist and five fingertips. Joints
// are placed along the wrist-to-tip segment of their finger.
func pose(wrist Point, tips [5]Point) Hand {
	h := make(Hand, NumLandmarks)
	h[Wrist] = wrist

	joints := [4]float64{0.3, 0.55, 0.8, 1}
	for finger, tip := range tips {
		base := 1 + finger*4
		for j, t := range joints {
			h[base+j] = Point{
				X: wrist.X + t*(tip.X-wrist.X),
				Y: wrist.Y + t*(tip.Y-wrist.Y),
				Z: wrist.Z + t*(tip.Z-wrist.Z),
			}
		}
	}

	return h
}
