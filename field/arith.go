//
// Copyright (c) 2026 Markku Rossi
//
// All rights reserved.
//

package field

// Pow returns base^exp.
func (f *Field) Pow(base Element, exp uint64) Element {
	p := uint64(f.p)
	result := uint64(1)
	b := uint64(base) % p
	for exp > 0 {
		if exp&1 == 1 {
			result = (result * b) % p
		}
		exp >>= 1
		b = (b * b) % p
	}
	return Element(result)
}

// Inverse returns the multiplicative inverse of x. It returns
// ErrNotInvertible if x is zero modulo p.
func (f *Field) Inverse(x Element) (Element, error) {
	a := int64(uint64(x) % uint64(f.p))
	if a == 0 {
		return 0, ErrNotInvertible
	}
	m := int64(f.p)
	var y, v int64 = 0, 1
	for a > 1 {
		q := a / m
		a, m = m, a%m
		y, v = v-q*y, y
	}
	if v < 0 {
		v += int64(f.p)
	}
	return Element(v), nil
}

// IsResidue tests if a is a quadratic residue by Euler's criterion.
// Zero is considered a residue.
func (f *Field) IsResidue(a Element) bool {
	a = f.Reduce(uint64(a))
	if a == 0 {
		return true
	}
	return f.Pow(a, uint64(f.p-1)/2) == 1
}

// Sqrt returns one of the square roots of a. It returns ErrNonResidue
// if a is not a quadratic residue.
func (f *Field) Sqrt(a Element) (Element, error) {
	a = f.Reduce(uint64(a))
	if a == 0 {
		return 0, nil
	}
	if !f.IsResidue(a) {
		return 0, ErrNonResidue
	}
	p := uint64(f.p)
	if p%4 == 3 {
		return f.Pow(a, (p+1)/4), nil
	}

	// Tonelli-Shanks: p-1 = q*2^s with q odd.
	q := p - 1
	var s int
	for q%2 == 0 {
		q /= 2
		s++
	}
	z := Element(2)
	for f.Pow(z, (p-1)/2) != Element(f.p-1) {
		z++
	}

	m := s
	c := f.Pow(z, q)
	t := f.Pow(a, q)
	r := f.Pow(a, (q+1)/2)

	for t != 1 {
		var i int
		for t2 := t; t2 != 1; i++ {
			t2 = f.Mul(t2, t2)
		}
		b := f.Pow(c, uint64(1)<<(m-i-1))
		m = i
		c = f.Mul(b, b)
		t = f.Mul(t, c)
		r = f.Mul(r, b)
	}
	return r, nil
}
