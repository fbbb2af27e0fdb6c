// Package facematch scores face descriptors against an enrolled profile.
package facematch

import "math"

// DefaultThreshold is the minimum similarity a live descriptor must reach to pass verification.
const DefaultThreshold = 70.0

// NoMatch is returned by Similarity for descriptors that cannot be compared.
// It is below every threshold.
var NoMatch = math.Inf(-1)

// Descriptor is a fixed-length face feature vector as produced by the client.
type Descriptor []float32

// EuclideanDistance returns the L2 distance between two descriptors of equal length.
// Mismatched lengths yield +Inf.
func EuclideanDistance(a, b Descriptor) float64 {
	if len(a) != len(b) {
		return math.Inf(1)
	}

	var sum float64
	for i := range a {
		diff := float64(a[i]) - float64(b[i])
		sum += diff * diff
	}
	return math.Sqrt(sum)
}

// Similarity converts the distance between two descriptors into a score.
// Identical descriptors score 100 and every unit of distance costs 10 points,
// floored at 0. Descriptors of different length score NoMatch.
func Similarity(a, b Descriptor) float64 {
	if len(a) != len(b) {
		return NoMatch
	}
	return math.Max(0, 100-EuclideanDistance(a, b)*10)
}

// BestMatch returns the highest similarity between the live descriptor and any enrolled descriptor.
// An empty profile scores 0; callers must reject empty enrollment separately.
func BestMatch(live Descriptor, enrolled []Descriptor) float64 {
	best := 0.0
	for _, d := range enrolled {
		if s := Similarity(live, d); s > best {
			best = s
		}
	}
	return best
}

// Passes reports whether score meets threshold.
func Passes(score, threshold float64) bool {
	return score >= threshold
}
