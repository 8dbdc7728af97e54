//
// Copyright (c) 2026 Markku Rossi
//
// All rights reserved.
//

package field

// Bits returns the n least significant bits of x as field elements,
// most significant bit first.
func Bits(x Element, n int) []Element {
	result := make([]Element, n)
	for i := n - 1; i >= 0; i-- {
		result[i] = x & 1
		x >>= 1
	}
	return result
}

// FromBits combines the bits (most significant bit first) into a field
// element. The bits may be shares since the combination is linear.
func (f *Field) FromBits(bits []Element) Element {
	var result Element
	for _, bit := range bits {
		result = f.Add(f.Add(result, result), bit)
	}
	return result
}

// PBits returns the bits of the modulus, most significant bit first.
func (f *Field) PBits() []Element {
	return Bits(Element(f.p), f.bitLen)
}

// CeilSqrt returns the smallest integer r with r*r >= n.
func CeilSqrt(n int) int {
	if n <= 0 {
		return 0
	}
	r := 1
	for r*r < n {
		r++
	}
	return r
}
