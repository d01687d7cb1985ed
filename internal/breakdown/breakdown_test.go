package breakdown

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestCoerce(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		in   float64
		want float64
	}{
		{"positive", 3.5, 3.5},
		{"zero", 0, 0},
		{"negative clamped", -2, 0},
		{"nan", math.NaN(), 0},
		{"positive inf", math.Inf(1), 0},
		{"negative inf", math.Inf(-1), 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			assert.Equal(t, tt.want, Coerce(tt.in))
		})
	}
}

func TestNormalize(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name          string
		raw           Breakdown
		fallback      float64
		allowFallback bool
		want          Breakdown
	}{
		{"non-empty passes through coerced", Breakdown{1, -2, math.NaN(), 4}, 9, true, Breakdown{1, 0, 0, 4}},
		{"empty with fallback", nil, 5, true, Breakdown{5}},
		{"empty fallback disallowed", nil, 5, false, Breakdown{}},
		{"empty zero fallback", nil, 0, true, Breakdown{}},
		{"empty negative fallback", nil, -3, true, Breakdown{}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			assert.Equal(t, tt.want, Normalize(tt.raw, tt.fallback, tt.allowFallback))
		})
	}
}

func TestAddInto(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name   string
		target Breakdown
		source Breakdown
		want   Breakdown
	}{
		{"same length", Breakdown{1, 2}, Breakdown{3, 4}, Breakdown{4, 6}},
		{"source longer grows target", Breakdown{1}, Breakdown{1, 2, 3}, Breakdown{2, 2, 3}},
		{"target longer", Breakdown{1, 2, 3}, Breakdown{1}, Breakdown{2, 2, 3}},
		{"empty target", nil, Breakdown{7}, Breakdown{7}},
		{"empty source", Breakdown{7}, nil, Breakdown{7}},
		{"source entries coerced", Breakdown{1}, Breakdown{-5, math.NaN()}, Breakdown{1, 0}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			assert.Equal(t, tt.want, AddInto(tt.target, tt.source))
		})
	}
}

func TestMinMaxRagged(t *testing.T) {
	t.Parallel()

	a := Breakdown{3, 1}
	b := Breakdown{2}

	assert.Equal(t, Breakdown{2, 0}, Min(a, b))
	assert.Equal(t, Breakdown{3, 1}, Max(a, b))

	// Symmetric argument order.
	assert.Equal(t, Breakdown{2, 0}, Min(b, a))
	assert.Equal(t, Breakdown{3, 1}, Max(b, a))

	// Empty operands never panic.
	assert.Equal(t, Breakdown{3, 1}, Max(a, nil))
	assert.Equal(t, Breakdown{0, 0}, Min(a, nil))
	assert.Equal(t, Breakdown{}, Min(nil, nil))
}

func TestSubClamped(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		a    Breakdown
		b    Breakdown
		want Breakdown
	}{
		{"simple", Breakdown{5, 3}, Breakdown{2, 1}, Breakdown{3, 2}},
		{"clamps negative", Breakdown{1}, Breakdown{4}, Breakdown{0}},
		{"ragged", Breakdown{3}, Breakdown{1, 2}, Breakdown{2, 0}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			assert.Equal(t, tt.want, SubClamped(tt.a, tt.b))
		})
	}
}

func TestSum(t *testing.T) {
	t.Parallel()

	assert.Equal(t, 6.0, Sum(Breakdown{1, 2, 3}))
	assert.Equal(t, 0.0, Sum(nil))
	assert.Equal(t, 3.0, Sum(Breakdown{3, -4, math.NaN()}))
}

func TestZeros(t *testing.T) {
	t.Parallel()

	assert.Equal(t, Breakdown{0, 0, 0}, Zeros(3))
	assert.Equal(t, Breakdown{}, Zeros(0))
	assert.Equal(t, Breakdown{}, Zeros(-1))
}
