// Package features derives fixed-length numeric vectors from hand observations.
//
// All functions are pure and fail soft: missing landmarks and non-finite
// coordinates read as 0, so a partially detected hand never produces NaN or
// infinite features.
package features

import (
	"math"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"

	"github.com/ryanhyunminbae/airtype/internal/landmark"
)

// Vector lengths.
const (
	// HeuristicLength is the length of the heuristic feature vector.
	HeuristicLength = 5
	// ModelLength is the length of the learned-model feature vector:
	// 21 normalized landmarks times 3 coordinates plus the heuristics.
	ModelLength = landmark.NumLandmarks*3 + HeuristicLength
)

// Heuristic vector layout.
const (
	AverageTipDistance = iota
	HorizontalSpread
	VerticalSpread
	ThumbIndexDistance
	TipDepthVariance
)

// Vector is an ordered feature vector.
type Vector []float64

// Heuristic computes the 5-element heuristic vector: average fingertip to
// wrist distance, horizontal and vertical fingertip spread, thumb to index
// distance and the population variance of fingertip depth.
func Heuristic(hand landmark.Hand) Vector {
	v := make(Vector, HeuristicLength)
	if len(hand) == 0 {
		return v
	}

	wrist, _ := hand.At(landmark.Wrist)

	var xs, ys, zs, ds []float64
	for _, idx := range landmark.FingerTips {
		tip, ok := hand.At(idx)
		if !ok {
			continue
		}
		ds = append(ds, landmark.Distance(tip, wrist))
		xs = append(xs, tip.X)
		ys = append(ys, tip.Y)
		zs = append(zs, tip.Z)
	}

	if len(xs) > 0 {
		for _, d := range ds {
			v[AverageTipDistance] += d / float64(len(ds))
		}
		v[HorizontalSpread] = floats.Max(xs) - floats.Min(xs)
		v[VerticalSpread] = floats.Max(ys) - floats.Min(ys)
	}

	thumb, okThumb := hand.At(landmark.ThumbTip)
	index, okIndex := hand.At(landmark.IndexTip)
	if okThumb && okIndex {
		v[ThumbIndexDistance] = landmark.Distance(thumb, index)
	}

	v[TipDepthVariance] = Variance(zs)
	return bound(v)
}

// Model computes the 68-element vector fed to the learned classifier: the
// wrist-relative, scale-normalized coordinates of landmarks 0..20 followed by
// the heuristic vector. The length is ModelLength whatever the input size.
func Model(hand landmark.Hand) Vector {
	if len(hand) == 0 {
		return make(Vector, ModelLength)
	}

	v := make(Vector, 0, ModelLength)
	for _, p := range hand.Normalize() {
		v = append(v, p.X, p.Y, p.Z)
	}
	return bound(append(v, Heuristic(hand)...))
}

// Distance returns the Euclidean distance between two vectors. Non-finite
// components count as 0 and the shorter vector is padded with zeros.
func Distance(a, b Vector) float64 {
	n := len(a)
	if len(b) > n {
		n = len(b)
	}
	if n == 0 {
		return 0
	}

	return landmark.Bound(floats.Distance(pad(a, n), pad(b, n), 2))
}

// Variance returns the population variance of values, treating non-finite
// entries as 0. An empty slice has zero variance.
func Variance(values []float64) float64 {
	if len(values) == 0 {
		return 0
	}
	return landmark.Bound(stat.PopVariance(pad(values, len(values)), nil))
}

// bound clamps every component of v in place so overflow never leaves the package.
func bound(v Vector) Vector {
	for i := range v {
		v[i] = landmark.Bound(v[i])
	}
	return v
}

// pad returns a sanitized copy of v with length n.
func pad(v []float64, n int) []float64 {
	out := make([]float64, n)
	for i := 0; i < n && i < len(v); i++ {
		if !math.IsNaN(v[i]) && !math.IsInf(v[i], 0) {
			out[i] = v[i]
		}
	}
	return out
}
