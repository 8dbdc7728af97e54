//
// Copyright (c) 2026 Markku Rossi
//
// All rights reserved.
//

// Package field implements prime field arithmetic and Shamir secret
// sharing for the tallier committee. All functions are synchronous
// and free of I/O apart from drawing entropy.
package field

import (
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"math/big"
	"math/bits"
	"sync"

	"github.com/markkurossi/tallier/env"
	"github.com/markkurossi/tallier/pkg/math"
)

// Mersenne31 is the reference modulus 2^31-1.
const Mersenne31 uint32 = (1 << 31) - 1

var (
	// ErrInvalidConfig is returned for unusable field parameters.
	ErrInvalidConfig = errors.New("invalid field configuration")

	// ErrNotInvertible is returned when inverting zero.
	ErrNotInvertible = errors.New("element is not invertible")

	// ErrNonResidue is returned when taking the square root of a
	// quadratic non-residue.
	ErrNonResidue = errors.New("element is not a quadratic residue")

	// ErrNoShares is returned when reconstructing from an empty share
	// vector.
	ErrNoShares = errors.New("no shares")
)

// Element is a field element in [0, p).
type Element uint32

// Field holds the immutable parameters of one sharing configuration:
// the modulus p, the committee size D, and the reconstruction
// threshold t. The sharing polynomials have degree t-1. Field is safe
// for concurrent use.
type Field struct {
	p        uint32
	d        int
	t        int
	bitLen   int
	env      *env.Config
	vdm      []Element
	lagrange []Element

	m        sync.Mutex
	lagCache map[int][]Element
	fanCache map[int][]Element
}

// New creates a new field for modulus p, D parties, and threshold t.
func New(p uint32, d, t int, config *env.Config) (*Field, error) {
	if p < 3 || p%2 == 0 || !big.NewInt(int64(p)).ProbablyPrime(20) {
		return nil, fmt.Errorf("%w: modulus %d is not an odd prime",
			ErrInvalidConfig, p)
	}
	if d < 1 || d > math.MaxParties || uint32(d) >= p {
		return nil, fmt.Errorf("%w: invalid number of parties %d",
			ErrInvalidConfig, d)
	}
	if t < 1 || t > d {
		return nil, fmt.Errorf("%w: threshold %d not in [1...%d]",
			ErrInvalidConfig, t, d)
	}
	f := &Field{
		p:        p,
		d:        d,
		t:        t,
		bitLen:   bits.Len32(p),
		env:      config,
		lagCache: make(map[int][]Element),
		fanCache: make(map[int][]Element),
	}
	var err error
	f.vdm, err = f.VandermondeInvRow(d)
	if err != nil {
		return nil, err
	}
	f.lagrange = f.LagrangeZero(d)

	return f, nil
}

// P returns the field modulus.
func (f *Field) P() uint32 {
	return f.p
}

// Parties returns the committee size D.
func (f *Field) Parties() int {
	return f.d
}

// Threshold returns the reconstruction threshold t.
func (f *Field) Threshold() int {
	return f.t
}

// BitLen returns the bit length of the modulus.
func (f *Field) BitLen() int {
	return f.bitLen
}

// Env returns the system configuration of the field.
func (f *Field) Env() *env.Config {
	return f.env
}

// Vandermonde returns the precomputed first row of the inverse D×D
// Vandermonde matrix. The caller must not modify the result.
func (f *Field) Vandermonde() []Element {
	return f.vdm
}

func (f *Field) String() string {
	return fmt.Sprintf("GF(%d) D=%d t=%d", f.p, f.d, f.t)
}

// Reduce reduces v modulo p.
func (f *Field) Reduce(v uint64) Element {
	return Element(v % uint64(f.p))
}

// Add returns a+b.
func (f *Field) Add(a, b Element) Element {
	return Element((uint64(a) + uint64(b)) % uint64(f.p))
}

// Sub returns a-b.
func (f *Field) Sub(a, b Element) Element {
	return Element((uint64(a) + uint64(f.p) - uint64(b)%uint64(f.p)) %
		uint64(f.p))
}

// Neg returns -a.
func (f *Field) Neg(a Element) Element {
	return f.Sub(0, a)
}

// Mul returns a*b.
func (f *Field) Mul(a, b Element) Element {
	return Element((uint64(a) * uint64(b)) % uint64(f.p))
}

// AddConst adds the public constant c to the share a. Constants are
// valid sharings (constant polynomials) so every party adds c.
func (f *Field) AddConst(a Element, c uint64) Element {
	return f.Add(a, f.Reduce(c))
}

// MulConst multiplies the share a with the public constant c.
func (f *Field) MulConst(a Element, c uint64) Element {
	return f.Mul(a, f.Reduce(c))
}

// Sum returns the sum of the values.
func (f *Field) Sum(values []Element) Element {
	var sum uint64
	for _, v := range values {
		sum += uint64(v)
		if sum >= 1<<63 {
			sum %= uint64(f.p)
		}
	}
	return f.Reduce(sum)
}

// Random returns a uniformly random field element.
func (f *Field) Random() (Element, error) {
	var buf [4]byte
	mask := uint32((uint64(1) << f.bitLen) - 1)
	rand := f.env.GetRandom()
	for {
		if _, err := io.ReadFull(rand, buf[:]); err != nil {
			return 0, err
		}
		v := binary.BigEndian.Uint32(buf[:]) & mask
		if v < f.p {
			return Element(v), nil
		}
	}
}
