// Package breakdown provides the quantity-by-variant vector arithmetic used
// throughout the production engine. A Breakdown is an ordered sequence of
// non-negative quantities where the index is the size/variant slot. Sources
// disagree on length, so every operation is ragged-safe: missing slots are
// treated as zero and results are padded to the longer operand.
package breakdown

import "math"

// Breakdown is a per-variant quantity vector. Index = size slot.
type Breakdown []float64

// Coerce maps any float64 to a usable quantity: non-finite and negative
// values become 0.
func Coerce(v float64) float64 {
	if math.IsNaN(v) || math.IsInf(v, 0) || v < 0 {
		return 0
	}
	return v
}

// Normalize coerces a raw vector into a clean Breakdown. When raw is empty
// and allowFallback is set, a positive fallback scalar becomes a
// single-slot breakdown; this covers activities recorded with a total
// quantity but no per-variant detail.
func Normalize(raw Breakdown, fallback float64, allowFallback bool) Breakdown {
	if len(raw) > 0 {
		out := make(Breakdown, len(raw))
		for i, v := range raw {
			out[i] = Coerce(v)
		}
		return out
	}
	if allowFallback {
		if fb := Coerce(fallback); fb > 0 {
			return Breakdown{fb}
		}
	}
	return Breakdown{}
}

// AddInto accumulates source into target element-wise, growing target to
// the longer length. The returned slice must be assigned back by the
// caller, append-style.
func AddInto(target, source Breakdown) Breakdown {
	if len(source) > len(target) {
		grown := make(Breakdown, len(source))
		copy(grown, target)
		target = grown
	}
	for i, v := range source {
		target[i] += Coerce(v)
	}
	return target
}

// Min returns the element-wise minimum, treating missing slots as 0.
func Min(a, b Breakdown) Breakdown {
	n := len(a)
	if len(b) > n {
		n = len(b)
	}
	out := make(Breakdown, n)
	for i := range out {
		out[i] = math.Min(at(a, i), at(b, i))
	}
	return out
}

// Max returns the element-wise maximum, treating missing slots as 0.
func Max(a, b Breakdown) Breakdown {
	n := len(a)
	if len(b) > n {
		n = len(b)
	}
	out := make(Breakdown, n)
	for i := range out {
		out[i] = math.Max(at(a, i), at(b, i))
	}
	return out
}

// SubClamped returns max(a-b, 0) element-wise, treating missing slots as 0.
func SubClamped(a, b Breakdown) Breakdown {
	n := len(a)
	if len(b) > n {
		n = len(b)
	}
	out := make(Breakdown, n)
	for i := range out {
		d := at(a, i) - at(b, i)
		if d < 0 {
			d = 0
		}
		out[i] = d
	}
	return out
}

// Sum returns the total across all slots. Entries are coerced, so a vector
// containing NaN still sums to a finite value.
func Sum(arr Breakdown) float64 {
	var total float64
	for _, v := range arr {
		total += Coerce(v)
	}
	return total
}

// Zeros returns a zero-filled breakdown of length n.
func Zeros(n int) Breakdown {
	if n <= 0 {
		return Breakdown{}
	}
	return make(Breakdown, n)
}

// Clone returns a copy of arr. A nil input clones to an empty breakdown.
func Clone(arr Breakdown) Breakdown {
	out := make(Breakdown, len(arr))
	copy(out, arr)
	return out
}

func at(arr Breakdown, i int) float64 {
	if i < len(arr) {
		return Coerce(arr[i])
	}
	return 0
}
