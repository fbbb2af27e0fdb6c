package facematch

import (
	"math"
	"testing"
)

func TestEuclideanDistance(t *testing.T) {
	tests := []struct {
		name     string
		a, b     Descriptor
		expected float64
	}{
		{"identical", Descriptor{1, 2, 3}, Descriptor{1, 2, 3}, 0},
		{"3-4-5 triangle", Descriptor{1, 1, 1}, Descriptor{4, 5, 1}, 5},
		{"unit offset", Descriptor{0}, Descriptor{1}, 1},
		{"empty", Descriptor{}, Descriptor{}, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := EuclideanDistance(tt.a, tt.b)
			if math.Abs(result-tt.expected) > 0.0001 {
				t.Errorf("EuclideanDistance(%v, %v) = %v, want %v", tt.a, tt.b, result, tt.expected)
			}
		})
	}

	if d := EuclideanDistance(Descriptor{1, 2}, Descriptor{1, 2, 3}); !math.IsInf(d, 1) {
		t.Errorf("expected +Inf for mismatched lengths, got %v", d)
	}
}

func TestSimilarity(t *testing.T) {
	tests := []struct {
		name     string
		a, b     Descriptor
		expected float64
	}{
		{"identical", Descriptor{1, 1, 1}, Descriptor{1, 1, 1}, 100},
		{"distance 1", Descriptor{0, 0}, Descriptor{1, 0}, 90},
		{"distance 3", Descriptor{0, 0}, Descriptor{0, 3}, 70},
		{"distance 5", Descriptor{1, 1, 1}, Descriptor{4, 5, 1}, 50},
		{"distance 10 floors at zero", Descriptor{0}, Descriptor{10}, 0},
		{"far apart clamped at zero", Descriptor{0}, Descriptor{100}, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := Similarity(tt.a, tt.b)
			if math.Abs(result-tt.expected) > 0.0001 {
				t.Errorf("Similarity(%v, %v) = %v, want %v", tt.a, tt.b, result, tt.expected)
			}
		})
	}
}

func TestSimilarity_SelfIsHundred(t *testing.T) {
	descriptors := []Descriptor{
		{0.5},
		{-0.1, 0.2, 0.3},
		make(Descriptor, 128),
	}
	for _, d := range descriptors {
		if s := Similarity(d, d); s != 100 {
			t.Errorf("Similarity(d, d) = %v, want 100", s)
		}
	}
}

func TestSimilarity_MismatchedLength(t *testing.T) {
	s := Similarity(Descriptor{1, 2, 3}, Descriptor{1, 2})
	if s != NoMatch {
		t.Errorf("expected NoMatch, got %v", s)
	}
	if Passes(s, DefaultThreshold) {
		t.Error("NoMatch must not pass the threshold")
	}
	if Passes(s, 0) {
		t.Error("NoMatch must not pass even a zero threshold")
	}
}

func TestBestMatch(t *testing.T) {
	live := Descriptor{1, 1, 1}

	tests := []struct {
		name     string
		enrolled []Descriptor
		expected float64
	}{
		{"empty profile", nil, 0},
		{"single exact", []Descriptor{{1, 1, 1}}, 100},
		{"picks best", []Descriptor{{4, 5, 1}, {1, 1, 2}, {1, 1, 1.5}}, 95},
		{"mismatched only", []Descriptor{{1, 1}}, 0},
		{"mismatched ignored", []Descriptor{{1, 1}, {4, 5, 1}}, 50},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := BestMatch(live, tt.enrolled)
			if math.Abs(result-tt.expected) > 0.0001 {
				t.Errorf("BestMatch() = %v, want %v", result, tt.expected)
			}
		})
	}
}

func TestPasses(t *testing.T) {
	if !Passes(70, DefaultThreshold) {
		t.Error("score equal to threshold should pass")
	}
	if Passes(69.999, DefaultThreshold) {
		t.Error("score below threshold should fail")
	}
	if !Passes(100, DefaultThreshold) {
		t.Error("perfect score should pass")
	}
}

func TestSimilarity_Float32Precision(t *testing.T) {
	// Client descriptors arrive as float64 JSON numbers and are stored as float32.
	const dims = 128
	a64 := make([]float64, dims)
	b64 := make([]float64, dims)
	a := make(Descriptor, dims)
	b := make(Descriptor, dims)
	var sum float64
	for i := range dims {
		a64[i] = float64(i) * 0.01
		b64[i] = a64[i] + 0.265
		a[i] = float32(a64[i])
		b[i] = float32(b64[i])
		sum += (a64[i] - b64[i]) * (a64[i] - b64[i])
	}
	want := 100 - 10*math.Sqrt(sum)

	got := Similarity(a, b)
	if math.Abs(got-want) > 1e-4 {
		t.Errorf("Similarity() = %v, float64 reference %v", got, want)
	}
	if !Passes(got, DefaultThreshold) || !Passes(want, DefaultThreshold) {
		t.Errorf("expected both %v and %v to pass %v", got, want, DefaultThreshold)
	}
}
