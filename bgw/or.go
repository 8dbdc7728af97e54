//
// Copyright (c) 2026 Markku Rossi
//
// All rights reserved.
//

package bgw

import (
	"context"

	"github.com/markkurossi/tallier/field"
)

// FanInOR computes the OR of the shared bits. The bits are summed
// into A=1+sum(bits) and the public fan polynomial is evaluated at A.
// The powers of A are computed with ceil(log2(n)) multiplication
// rounds.
func (s *Service) FanInOR(ctx context.Context, id uint16,
	bits []field.Element) (field.Element, error) {

	if len(bits) == 0 {
		return 0, ErrEmpty
	}
	if err := checkRange(id, FanInORSpan(len(bits))); err != nil {
		return 0, err
	}
	return s.fanInOR(ctx, id, bits)
}

func (s *Service) fanInOR(ctx context.Context, id uint16,
	bits []field.Element) (field.Element, error) {

	n := len(bits)
	alpha, err := s.f.LagrangeFan(n)
	if err != nil {
		return 0, err
	}

	pow := make([]field.Element, n+1)
	pow[1] = s.f.AddConst(s.f.Sum(bits), 1)

	for h := 1; h < n; h *= 2 {
		count := min(h, n-h)
		err := parallel(ctx, count, func(ctx context.Context, i int) error {
			j := i + 1
			v, err := s.Multiply(ctx, id+uint16(i), pow[h], pow[j])
			if err != nil {
				return err
			}
			pow[h+j] = v
			return nil
		})
		if err != nil {
			return 0, err
		}
	}

	result := alpha[0]
	for k := 1; k <= n; k++ {
		result = s.f.Add(result, s.f.Mul(alpha[k], pow[k]))
	}
	return result, nil
}

// PrefixOR computes the prefix ORs of the shared bits: the result
// element i is the OR of bits 0...i. The bits are split into blocks of
// ceil(sqrt(n)) bits and the computation takes a fixed number of
// rounds of FanInOR and multiplication.
func (s *Service) PrefixOR(ctx context.Context, id uint16,
	bits []field.Element) ([]field.Element, error) {

	if len(bits) == 0 {
		return nil, ErrEmpty
	}
	if err := checkRange(id, PrefixORSpan(len(bits))); err != nil {
		return nil, err
	}
	return s.prefixOR(ctx, id, bits)
}

func (s *Service) prefixOR(ctx context.Context, id uint16,
	a []field.Element) ([]field.Element, error) {

	n := len(a)
	lam := field.CeilSqrt(n)
	blocks := (n + lam - 1) / lam
	fs := uint16(FanInORSpan(lam))

	// Block ORs.
	x := make([]field.Element, blocks)
	err := parallel(ctx, blocks, func(ctx context.Context, i int) error {
		end := min((i+1)*lam, n)
		v, err := s.fanInOR(ctx, id+uint16(i)*fs, a[i*lam:end])
		if err != nil {
			return err
		}
		x[i] = v
		return nil
	})
	if err != nil {
		return nil, err
	}

	// Prefix ORs of the block ORs.
	y := make([]field.Element, blocks)
	err = parallel(ctx, blocks, func(ctx context.Context, i int) error {
		v, err := s.fanInOR(ctx, id+uint16(i)*fs, x[:i+1])
		if err != nil {
			return err
		}
		y[i] = v
		return nil
	})
	if err != nil {
		return nil, err
	}

	// f is 1 for the first block with a set bit.
	f := make([]field.Element, blocks)
	f[0] = y[0]
	for i := 1; i < blocks; i++ {
		f[i] = s.f.Sub(y[i], y[i-1])
	}

	// Select the bits of the first non-zero block.
	g := make([]field.Element, n)
	err = parallel(ctx, n, func(ctx context.Context, k int) error {
		v, err := s.Multiply(ctx, id+uint16(k), f[k/lam], a[k])
		if err != nil {
			return err
		}
		g[k] = v
		return nil
	})
	if err != nil {
		return nil, err
	}
	c := make([]field.Element, lam)
	for k, v := range g {
		c[k%lam] = s.f.Add(c[k%lam], v)
	}

	// Prefix ORs inside the selected block.
	h := make([]field.Element, lam)
	err = parallel(ctx, lam, func(ctx context.Context, j int) error {
		v, err := s.fanInOR(ctx, id+uint16(j)*fs, c[:j+1])
		if err != nil {
			return err
		}
		h[j] = v
		return nil
	})
	if err != nil {
		return nil, err
	}

	result := make([]field.Element, n)
	err = parallel(ctx, n, func(ctx context.Context, k int) error {
		i := k / lam
		v, err := s.Multiply(ctx, id+uint16(k), f[i], h[k%lam])
		if err != nil {
			return err
		}
		result[k] = s.f.Sub(s.f.Add(v, y[i]), f[i])
		return nil
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}
