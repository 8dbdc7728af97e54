//
// Copyright (c) 2026 Markku Rossi
//
// All rights reserved.
//

package field

import (
	"fmt"
)

// Share creates a fresh Shamir sharing of value: a random polynomial
// of degree t-1 with constant term value, evaluated at x=1...D.
func (f *Field) Share(value Element) ([]Element, error) {
	coeffs := make([]Element, f.t)
	coeffs[0] = f.Reduce(uint64(value))
	for i := 1; i < f.t; i++ {
		c, err := f.Random()
		if err != nil {
			return nil, err
		}
		coeffs[i] = c
	}
	shares := make([]Element, f.d)
	for i := 0; i < f.d; i++ {
		shares[i] = f.Eval(coeffs, Element(i+1))
	}
	return shares, nil
}

// Eval evaluates the polynomial with coefficients coeffs (constant
// term first) at x.
func (f *Field) Eval(coeffs []Element, x Element) Element {
	var result Element
	for i := len(coeffs) - 1; i >= 0; i-- {
		result = f.Add(f.Mul(result, x), coeffs[i])
	}
	return result
}

// Reconstruct interpolates the shares at x=0. It uses all supplied
// shares with nodes 1...len(shares). The result is the secret when
// the shares lie on one polynomial of degree < len(shares).
func (f *Field) Reconstruct(shares []Element) (Element, error) {
	if len(shares) == 0 {
		return 0, ErrNoShares
	}
	if uint64(len(shares)) >= uint64(f.p) {
		return 0, fmt.Errorf("%w: %d shares exceed field size",
			ErrInvalidConfig, len(shares))
	}
	lambda := f.LagrangeZero(len(shares))

	var sum uint64
	for i, share := range shares {
		sum += uint64(f.Mul(lambda[i], share))
	}
	return f.Reduce(sum), nil
}

// LagrangeZero returns the Lagrange coefficients for interpolating at
// x=0 from the nodes 1...n. The tables are computed once per n. The
// caller must not modify the result.
func (f *Field) LagrangeZero(n int) []Element {
	f.m.Lock()
	lambda, ok := f.lagCache[n]
	f.m.Unlock()
	if ok {
		return lambda
	}

	lambda = make([]Element, n)
	for i := 0; i < n; i++ {
		num := Element(1)
		den := Element(1)
		xi := Element(i + 1)
		for j := 0; j < n; j++ {
			if i == j {
				continue
			}
			xj := Element(j + 1)
			num = f.Mul(num, xj)
			den = f.Mul(den, f.Sub(xj, xi))
		}
		inv, err := f.Inverse(den)
		if err != nil {
			// Distinct nodes below p always have a non-zero product.
			panic(err)
		}
		lambda[i] = f.Mul(num, inv)
	}

	f.m.Lock()
	f.lagCache[n] = lambda
	f.m.Unlock()

	return lambda
}

// VandermondeInvRow returns the first row of the inverse of the n×n
// Vandermonde matrix on nodes 1...n. The row projects the constant
// term of a polynomial of degree <= n-1 from its n evaluations.
func (f *Field) VandermondeInvRow(n int) ([]Element, error) {
	if n < 1 || uint64(n) >= uint64(f.p) {
		return nil, fmt.Errorf("%w: Vandermonde size %d", ErrInvalidConfig, n)
	}

	// Augmented matrix [V | I].
	mat := make([][]Element, n)
	for i := 0; i < n; i++ {
		row := make([]Element, 2*n)
		for j := 0; j < n; j++ {
			row[j] = f.Pow(Element(i+1), uint64(j))
		}
		row[n+i] = 1
		mat[i] = row
	}

	for col := 0; col < n; col++ {
		pivot := -1
		for r := col; r < n; r++ {
			if mat[r][col] != 0 {
				pivot = r
				break
			}
		}
		if pivot < 0 {
			return nil, fmt.Errorf("%w: singular Vandermonde matrix",
				ErrInvalidConfig)
		}
		mat[col], mat[pivot] = mat[pivot], mat[col]

		inv, err := f.Inverse(mat[col][col])
		if err != nil {
			return nil, err
		}
		for k := 0; k < 2*n; k++ {
			mat[col][k] = f.Mul(mat[col][k], inv)
		}
		for r := 0; r < n; r++ {
			if r == col || mat[r][col] == 0 {
				continue
			}
			factor := mat[r][col]
			for k := 0; k < 2*n; k++ {
				mat[r][k] = f.Sub(mat[r][k], f.Mul(factor, mat[col][k]))
			}
		}
	}

	result := make([]Element, n)
	copy(result, mat[0][n:])
	return result, nil
}

// LagrangeFan returns the coefficients (constant term first) of the
// degree n polynomial F with F(1)=0 and F(x)=1 for x=2...n+1. For bits
// b of length n, F(1+sum(b)) is the OR of the bits. The caller must
// not modify the result.
func (f *Field) LagrangeFan(n int) ([]Element, error) {
	if n < 1 || uint64(n)+1 >= uint64(f.p) {
		return nil, fmt.Errorf("%w: fan-in width %d", ErrInvalidConfig, n)
	}
	f.m.Lock()
	coeffs, ok := f.fanCache[n]
	f.m.Unlock()
	if ok {
		return coeffs, nil
	}

	coeffs = make([]Element, n+1)
	basis := make([]Element, n+1)

	for xj := 2; xj <= n+1; xj++ {
		for i := range basis {
			basis[i] = 0
		}
		basis[0] = 1
		deg := 0
		den := Element(1)

		for xm := 1; xm <= n+1; xm++ {
			if xm == xj {
				continue
			}
			den = f.Mul(den, f.Sub(Element(xj), Element(xm)))

			// basis *= (x - xm)
			deg++
			for k := deg; k > 0; k-- {
				basis[k] = f.Sub(basis[k-1], f.Mul(basis[k], Element(xm)))
			}
			basis[0] = f.Neg(f.Mul(basis[0], Element(xm)))
		}
		inv, err := f.Inverse(den)
		if err != nil {
			return nil, err
		}
		for i := range coeffs {
			coeffs[i] = f.Add(coeffs[i], f.Mul(basis[i], inv))
		}
	}

	f.m.Lock()
	f.fanCache[n] = coeffs
	f.m.Unlock()

	return coeffs, nil
}
