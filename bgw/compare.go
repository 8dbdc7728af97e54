//
// Copyright (c) 2026 Markku Rossi
//
// All rights reserved.
//

package bgw

import (
	"context"
	"fmt"

	"github.com/markkurossi/tallier/field"
)

// LessBitwise returns a share of 1 if a<b and 0 otherwise. The
// arguments are equal-length bit vectors, most significant bit
// first. Either vector may hold public bits.
func (s *Service) LessBitwise(ctx context.Context, id uint16,
	a, b []field.Element) (field.Element, error) {

	if len(a) != len(b) {
		return 0, fmt.Errorf("%w: %d != %d", ErrLengthMismatch,
			len(a), len(b))
	}
	if len(a) == 0 {
		return 0, ErrEmpty
	}
	if err := checkRange(id, LessBitwiseSpan(len(a))); err != nil {
		return 0, err
	}
	return s.lessBitwise(ctx, id, a, b)
}

func (s *Service) lessBitwise(ctx context.Context, id uint16,
	a, b []field.Element) (field.Element, error) {

	n := len(a)

	// c = a XOR b.
	c := make([]field.Element, n)
	err := parallel(ctx, n, func(ctx context.Context, i int) error {
		ab, err := s.Multiply(ctx, id+uint16(i), a[i], b[i])
		if err != nil {
			return err
		}
		c[i] = s.f.Sub(s.f.Add(a[i], b[i]), s.f.MulConst(ab, 2))
		return nil
	})
	if err != nil {
		return 0, err
	}

	d, err := s.prefixOR(ctx, id, c)
	if err != nil {
		return 0, err
	}

	// e is 1 at the first differing bit.
	e := make([]field.Element, n)
	e[0] = d[0]
	for i := 1; i < n; i++ {
		e[i] = s.f.Sub(d[i], d[i-1])
	}

	h := make([]field.Element, n)
	err = parallel(ctx, n, func(ctx context.Context, i int) error {
		v, err := s.Multiply(ctx, id+uint16(i), e[i], b[i])
		if err != nil {
			return err
		}
		h[i] = v
		return nil
	})
	if err != nil {
		return 0, err
	}
	return s.f.Sum(h), nil
}

// RandomNumberBits returns the shared bits, most significant bit
// first, of a uniformly random field element. The bit vectors are
// drawn until their value is below the modulus.
func (s *Service) RandomNumberBits(ctx context.Context, id uint16) (
	[]field.Element, error) {

	if err := checkRange(id, s.RandomNumberBitsSpan()); err != nil {
		return nil, err
	}
	return s.randomNumberBits(ctx, id)
}

func (s *Service) randomNumberBits(ctx context.Context, id uint16) (
	[]field.Element, error) {

	n := s.f.BitLen()
	for {
		bits := make([]field.Element, n)
		err := parallel(ctx, n, func(ctx context.Context, i int) error {
			v, err := s.RandomBit(ctx, id+uint16(i))
			if err != nil {
				return err
			}
			bits[i] = v
			return nil
		})
		if err != nil {
			return nil, err
		}
		lt, err := s.lessBitwise(ctx, id, bits, s.pBits)
		if err != nil {
			return nil, err
		}
		ok, err := s.Resolve(ctx, id, lt)
		if err != nil {
			return nil, err
		}
		if ok == 1 {
			return bits, nil
		}
		s.f.Env().Debugf("bgw: random bits not below modulus, retrying\n")
	}
}

// IsOdd returns a share of the least significant bit of x.
func (s *Service) IsOdd(ctx context.Context, id uint16, x field.Element) (
	field.Element, error) {

	if err := checkRange(id, s.IsOddSpan()); err != nil {
		return 0, err
	}
	return s.isOdd(ctx, id, x)
}

func (s *Service) isOdd(ctx context.Context, id uint16, x field.Element) (
	field.Element, error) {

	rb, err := s.randomNumberBits(ctx, id)
	if err != nil {
		return 0, err
	}
	n := len(rb)
	r := s.f.FromBits(rb)

	c, err := s.Resolve(ctx, id, s.f.Add(x, r))
	if err != nil {
		return 0, err
	}

	// Parity of x is parity(c) XOR parity(r), flipped if x+r wrapped
	// around the odd modulus, i.e. c<r.
	d := rb[n-1]
	if c%2 == 1 {
		d = s.f.Sub(1, d)
	}
	e, err := s.lessBitwise(ctx, id, field.Bits(c, n), rb)
	if err != nil {
		return 0, err
	}
	ed, err := s.Multiply(ctx, id, e, d)
	if err != nil {
		return 0, err
	}
	return s.f.Sub(s.f.Add(e, d), s.f.MulConst(ed, 2)), nil
}

// Less returns a share of 1 if a<b and 0 otherwise, for field elements
// in [0, p).
func (s *Service) Less(ctx context.Context, id uint16, a, b field.Element) (
	field.Element, error) {

	if err := checkRange(id, s.LessSpan()); err != nil {
		return 0, err
	}
	span := uint16(s.IsOddSpan())

	args := []field.Element{
		s.f.MulConst(a, 2),
		s.f.MulConst(b, 2),
		s.f.MulConst(s.f.Sub(a, b), 2),
	}
	// Inverted parities of 2a, 2b, and 2(a-b): 1 if the value is below
	// p/2.
	half := make([]field.Element, len(args))
	err := parallel(ctx, len(args), func(ctx context.Context, i int) error {
		v, err := s.isOdd(ctx, id+uint16(i)*span, args[i])
		if err != nil {
			return err
		}
		half[i] = s.f.Sub(1, v)
		return nil
	})
	if err != nil {
		return 0, err
	}
	w, x, y := half[0], half[1], half[2]

	c, err := s.Multiply(ctx, id, x, y)
	if err != nil {
		return 0, err
	}
	d := s.f.Sub(s.f.Add(x, y), c)
	e, err := s.Multiply(ctx, id, w, s.f.Sub(d, c))
	if err != nil {
		return 0, err
	}
	return s.f.Sub(s.f.AddConst(e, 1), d), nil
}
