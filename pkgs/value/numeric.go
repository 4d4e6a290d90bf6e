package value

import "math/big"

// NormalizeForKey applies the numeric-normalization pre-filter required by
// the grouping-key encoder (spec §4.5): a Number that is exactly
// representable as a double is rewritten to a Double so that query-equal
// numerics across representations hash to the same binary key. Non-numeric
// values and Numbers with no exact double form pass through unchanged.
func NormalizeForKey(v Value) Value {
	if v.kind != KindNumber {
		return v
	}
	f, exact := v.numVal.Rat.Float64()
	if !exact {
		return v
	}
	back := new(big.Rat).SetFloat64(f)
	if back == nil || back.Cmp(v.numVal.Rat) != 0 {
		return v
	}
	return Double(f)
}
