//
// Copyright (c) 2026 Markku Rossi
//
// All rights reserved.
//

package field

import (
	"errors"
	"testing"

	"github.com/markkurossi/tallier/env"
)

func newField(t *testing.T, p uint32, d, th int) *Field {
	t.Helper()
	f, err := New(p, d, th, &env.Config{
		Rand: env.NewPRG([32]byte{byte(d), byte(th), byte(p)}),
	})
	if err != nil {
		t.Fatalf("New(%d, %d, %d): %v", p, d, th, err)
	}
	return f
}

var invalidConfigs = []struct {
	p uint32
	d int
	t int
}{
	{p: 1, d: 3, t: 2},
	{p: 2, d: 1, t: 1},
	{p: 15, d: 3, t: 2},
	{p: Mersenne31 - 2, d: 3, t: 2},
	{p: 7, d: 7, t: 2},
	{p: 97, d: 0, t: 1},
	{p: 97, d: 65, t: 2},
	{p: 97, d: 3, t: 0},
	{p: 97, d: 3, t: 4},
}

func TestNewInvalid(t *testing.T) {
	for _, test := range invalidConfigs {
		_, err := New(test.p, test.d, test.t, nil)
		if !errors.Is(err, ErrInvalidConfig) {
			t.Errorf("New(%d, %d, %d): got %v, expected ErrInvalidConfig",
				test.p, test.d, test.t, err)
		}
	}
}

func TestArith(t *testing.T) {
	f := newField(t, 97, 3, 2)

	if v := f.Add(90, 10); v != 3 {
		t.Errorf("Add: got %v, expected 3", v)
	}
	if v := f.Sub(3, 10); v != 90 {
		t.Errorf("Sub: got %v, expected 90", v)
	}
	if v := f.Neg(0); v != 0 {
		t.Errorf("Neg(0): got %v", v)
	}
	if v := f.Mul(96, 96); v != 1 {
		t.Errorf("Mul: got %v, expected 1", v)
	}
	if v := f.Pow(5, 96); v != 1 {
		t.Errorf("Pow: Fermat failed: %v", v)
	}
	if v := f.Sum([]Element{50, 50, 50}); v != 53 {
		t.Errorf("Sum: got %v, expected 53", v)
	}
	if v := f.MulConst(2, 97+3); v != 6 {
		t.Errorf("MulConst: got %v, expected 6", v)
	}
}

func TestMersenneWideProduct(t *testing.T) {
	f := newField(t, Mersenne31, 3, 2)
	a := Element(Mersenne31 - 1)
	if v := f.Mul(a, a); v != 1 {
		t.Errorf("(-1)*(-1): got %v", v)
	}
	if v := f.Add(a, a); v != Element(Mersenne31-2) {
		t.Errorf("(-1)+(-1): got %v", v)
	}
}

func TestInverse(t *testing.T) {
	f := newField(t, 97, 3, 2)
	for x := Element(1); x < 97; x++ {
		inv, err := f.Inverse(x)
		if err != nil {
			t.Fatalf("Inverse(%v): %v", x, err)
		}
		if f.Mul(x, inv) != 1 {
			t.Errorf("Inverse(%v)=%v is not an inverse", x, inv)
		}
	}

	f = newField(t, Mersenne31, 3, 2)
	for i := 0; i < 1000; i++ {
		x, err := f.Random()
		if err != nil {
			t.Fatal(err)
		}
		if x == 0 {
			continue
		}
		inv, err := f.Inverse(x)
		if err != nil {
			t.Fatalf("Inverse(%v): %v", x, err)
		}
		if f.Mul(x, inv) != 1 {
			t.Errorf("Inverse(%v)=%v is not an inverse", x, inv)
		}
	}
	if _, err := f.Inverse(0); !errors.Is(err, ErrNotInvertible) {
		t.Errorf("Inverse(0): got %v, expected ErrNotInvertible", err)
	}
	if _, err := f.Inverse(Element(Mersenne31)); !errors.Is(err,
		ErrNotInvertible) {
		t.Errorf("Inverse(p): got %v, expected ErrNotInvertible", err)
	}
}

var sqrtPrimes = []uint32{
	13, 17, 97, 193, 65537, Mersenne31,
}

func TestSqrt(t *testing.T) {
	for _, p := range sqrtPrimes {
		f := newField(t, p, 3, 2)
		for i := 0; i < 500; i++ {
			x, err := f.Random()
			if err != nil {
				t.Fatal(err)
			}
			a := f.Mul(x, x)
			r, err := f.Sqrt(a)
			if err != nil {
				t.Fatalf("p=%d: Sqrt(%v): %v", p, a, err)
			}
			if f.Mul(r, r) != a {
				t.Errorf("p=%d: Sqrt(%v)=%v, squared %v", p, a, r, f.Mul(r, r))
			}
		}
	}
}

func TestSqrtNonResidue(t *testing.T) {
	for _, p := range sqrtPrimes {
		f := newField(t, p, 3, 2)
		var found bool
		for a := Element(2); a < 1000 && uint32(a) < p; a++ {
			if f.IsResidue(a) {
				continue
			}
			found = true
			if _, err := f.Sqrt(a); !errors.Is(err, ErrNonResidue) {
				t.Errorf("p=%d: Sqrt(%v): got %v, expected ErrNonResidue",
					p, a, err)
			}
			break
		}
		if !found {
			t.Errorf("p=%d: no non-residue found", p)
		}
	}
}

func TestShareReconstruct(t *testing.T) {
	f := newField(t, Mersenne31, 5, 3)

	for i := 0; i < 50; i++ {
		secret, err := f.Random()
		if err != nil {
			t.Fatal(err)
		}
		shares, err := f.Share(secret)
		if err != nil {
			t.Fatal(err)
		}
		if len(shares) != 5 {
			t.Fatalf("Share: got %d shares, expected 5", len(shares))
		}
		for n := 3; n <= 5; n++ {
			v, err := f.Reconstruct(shares[:n])
			if err != nil {
				t.Fatal(err)
			}
			if v != secret {
				t.Errorf("Reconstruct(%d shares): got %v, expected %v",
					n, v, secret)
			}
		}
	}
	if _, err := f.Reconstruct(nil); !errors.Is(err, ErrNoShares) {
		t.Errorf("Reconstruct(nil): got %v", err)
	}
}

func TestReconstructBelowThreshold(t *testing.T) {
	f := newField(t, Mersenne31, 5, 3)

	var recovered int
	for i := 0; i < 20; i++ {
		shares, err := f.Share(12345)
		if err != nil {
			t.Fatal(err)
		}
		v, err := f.Reconstruct(shares[:2])
		if err != nil {
			t.Fatal(err)
		}
		if v == 12345 {
			recovered++
		}
	}
	if recovered == 20 {
		t.Errorf("2 of 3 shares recovered the secret in every trial")
	}
}

func TestVandermondeMatchesLagrange(t *testing.T) {
	f := newField(t, Mersenne31, 3, 2)
	for n := 1; n <= 12; n++ {
		row, err := f.VandermondeInvRow(n)
		if err != nil {
			t.Fatalf("VandermondeInvRow(%d): %v", n, err)
		}
		lambda := f.LagrangeZero(n)
		for i := 0; i < n; i++ {
			if row[i] != lambda[i] {
				t.Errorf("n=%d: row[%d]=%v, lagrange=%v",
					n, i, row[i], lambda[i])
			}
		}
	}
}

func TestDegreeReduction(t *testing.T) {
	for _, cfg := range []struct{ d, t int }{{3, 2}, {5, 3}, {7, 4}, {6, 3}} {
		f := newField(t, Mersenne31, cfg.d, cfg.t)
		a, _ := f.Random()
		b, _ := f.Random()
		as, _ := f.Share(a)
		bs, _ := f.Share(b)

		var sum Element
		for i, l := range f.Vandermonde() {
			sum = f.Add(sum, f.Mul(l, f.Mul(as[i], bs[i])))
		}
		if sum != f.Mul(a, b) {
			t.Errorf("D=%d t=%d: projected %v, expected %v",
				cfg.d, cfg.t, sum, f.Mul(a, b))
		}
	}
}

func TestLagrangeFan(t *testing.T) {
	f := newField(t, Mersenne31, 3, 2)
	for n := 1; n <= 16; n++ {
		coeffs, err := f.LagrangeFan(n)
		if err != nil {
			t.Fatalf("LagrangeFan(%d): %v", n, err)
		}
		if len(coeffs) != n+1 {
			t.Fatalf("LagrangeFan(%d): %d coefficients", n, len(coeffs))
		}
		for k := 0; k <= n; k++ {
			v := f.Eval(coeffs, Element(1+k))
			var expected Element
			if k > 0 {
				expected = 1
			}
			if v != expected {
				t.Errorf("n=%d: F(%d)=%v, expected %v", n, 1+k, v, expected)
			}
		}
	}
	if _, err := f.LagrangeFan(0); !errors.Is(err, ErrInvalidConfig) {
		t.Errorf("LagrangeFan(0): got %v", err)
	}
}

func TestBits(t *testing.T) {
	f := newField(t, Mersenne31, 3, 2)

	bits := Bits(6, 4)
	expected := []Element{0, 1, 1, 0}
	for i := range expected {
		if bits[i] != expected[i] {
			t.Fatalf("Bits(6, 4): got %v, expected %v", bits, expected)
		}
	}
	for _, v := range []Element{0, 1, 5, 1 << 20, Element(Mersenne31 - 1)} {
		if r := f.FromBits(Bits(v, f.BitLen())); r != v {
			t.Errorf("FromBits(Bits(%v)): got %v", v, r)
		}
	}
	if f.BitLen() != 31 {
		t.Errorf("BitLen: got %d, expected 31", f.BitLen())
	}
	for i, b := range f.PBits() {
		if b != 1 {
			t.Errorf("PBits[%d]=%v, expected 1", i, b)
		}
	}
}

func TestCeilSqrt(t *testing.T) {
	tests := []struct {
		n int
		r int
	}{
		{0, 0}, {1, 1}, {2, 2}, {4, 2}, {5, 3}, {9, 3}, {10, 4}, {31, 6},
	}
	for _, test := range tests {
		if r := CeilSqrt(test.n); r != test.r {
			t.Errorf("CeilSqrt(%d): got %d, expected %d", test.n, r, test.r)
		}
	}
}
