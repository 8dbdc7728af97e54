//
// Copyright (c) 2026 Markku Rossi
//
// All rights reserved.
//

// Package bgw implements the BGW-style secure computation primitives
// of the tallier committee. All values are Shamir shares of degree
// t-1 and every primitive that needs interaction runs one or more
// exchange rounds, each identified by a 16-bit message ID.
//
// Each primitive occupies a contiguous range of message IDs starting
// from its id argument; the span functions return the size of the
// range. Primitives running concurrently must use disjoint ranges,
// and all parties must run the same primitives with the same IDs.
package bgw

import (
	"context"
	"errors"
	"fmt"

	"github.com/markkurossi/tallier/field"
	"github.com/markkurossi/tallier/pkg/math"
	"golang.org/x/sync/errgroup"
)

var (
	// ErrThreshold is returned when the committee is too small for
	// the degree reduction of multiplication.
	ErrThreshold = errors.New("committee too small for threshold")

	// ErrQuorum is returned for quorums outside [t, D].
	ErrQuorum = errors.New("invalid quorum")

	// ErrLengthMismatch is returned when comparing bit vectors of
	// different lengths.
	ErrLengthMismatch = errors.New("bit vector length mismatch")

	// ErrEmpty is returned for empty bit vectors.
	ErrEmpty = errors.New("empty bit vector")

	// ErrMessageIDRange is returned when the message IDs of an
	// operation do not fit into the 16-bit message ID space.
	ErrMessageIDRange = errors.New("message ID range overflow")

	// ErrOwner is returned for invalid input owners.
	ErrOwner = errors.New("invalid input owner")
)

// Exchanger runs exchange rounds with the other committee members.
// Exchange sends shares[i] to party i and returns the shares that
// each party sent to this member, in party order.
type Exchanger interface {
	ID() int
	Exchange(ctx context.Context, msgID uint16,
		shares []field.Element) ([]field.Element, error)
}

// Options define optional service parameters.
type Options struct {
	// Quorum is the number of shares, counted from party 0, that
	// Resolve interpolates. The default is all D shares.
	Quorum int
}

// Service implements the secure computation primitives of one
// committee member.
type Service struct {
	f      *field.Field
	nw     Exchanger
	quorum int
	inv2   field.Element
	pBits  []field.Element
}

// NewService creates a new service for the field and exchanger.
func NewService(f *field.Field, nw Exchanger, opts *Options) (*Service, error) {
	d := f.Parties()
	t := f.Threshold()
	if d < 2*t-1 {
		return nil, fmt.Errorf("%w: D=%d < 2t-1=%d", ErrThreshold, d, 2*t-1)
	}
	if nw.ID() < 0 || nw.ID() >= d {
		return nil, fmt.Errorf("invalid party ID %d", nw.ID())
	}
	quorum := d
	if opts != nil && opts.Quorum != 0 {
		quorum = opts.Quorum
	}
	if quorum < t || quorum > d {
		return nil, fmt.Errorf("%w: %d not in [%d...%d]", ErrQuorum,
			quorum, t, d)
	}
	inv2, err := f.Inverse(2)
	if err != nil {
		return nil, err
	}
	return &Service{
		f:      f,
		nw:     nw,
		quorum: quorum,
		inv2:   inv2,
		pBits:  f.PBits(),
	}, nil
}

// Field returns the service field.
func (s *Service) Field() *field.Field {
	return s.f
}

// ID returns the party ID of the service.
func (s *Service) ID() int {
	return s.nw.ID()
}

func checkRange(id uint16, span int) error {
	if int(id)+span > math.NumMessageIDs {
		return fmt.Errorf("%w: %d+%d", ErrMessageIDRange, id, span)
	}
	return nil
}

// parallel runs fn for indices 0...n-1 concurrently and returns the
// first error.
func parallel(ctx context.Context, n int,
	fn func(ctx context.Context, i int) error) error {

	if n == 1 {
		return fn(ctx, 0)
	}
	g, ctx := errgroup.WithContext(ctx)
	for i := 0; i < n; i++ {
		g.Go(func() error {
			return fn(ctx, i)
		})
	}
	return g.Wait()
}

// Input shares the plaintext value of the owner party. Only the
// owner's value is used and the other parties' values are ignored.
// All parties receive their share of the owner's value.
func (s *Service) Input(ctx context.Context, id uint16, owner int,
	value field.Element) (field.Element, error) {

	if owner < 0 || owner >= s.f.Parties() {
		return 0, fmt.Errorf("%w: %d", ErrOwner, owner)
	}
	var shares []field.Element
	if owner == s.nw.ID() {
		var err error
		shares, err = s.f.Share(value)
		if err != nil {
			return 0, err
		}
	} else {
		shares = make([]field.Element, s.f.Parties())
	}
	result, err := s.nw.Exchange(ctx, id, shares)
	if err != nil {
		return 0, err
	}
	return result[owner], nil
}

// Multiply computes the share of a*b. The local product is reshared
// and the degree of the result is reduced with the inverse
// Vandermonde row.
func (s *Service) Multiply(ctx context.Context, id uint16,
	a, b field.Element) (field.Element, error) {

	h, err := s.f.Share(s.f.Mul(a, b))
	if err != nil {
		return 0, err
	}
	result, err := s.nw.Exchange(ctx, id, h)
	if err != nil {
		return 0, err
	}
	var sum uint64
	for i, v := range s.f.Vandermonde() {
		sum += uint64(s.f.Mul(result[i], v))
	}
	return s.f.Reduce(sum), nil
}

// Resolve opens the shared value to all parties.
func (s *Service) Resolve(ctx context.Context, id uint16,
	part field.Element) (field.Element, error) {

	shares := make([]field.Element, s.f.Parties())
	for i := range shares {
		shares[i] = part
	}
	result, err := s.nw.Exchange(ctx, id, shares)
	if err != nil {
		return 0, err
	}
	return s.f.Reconstruct(result[:s.quorum])
}

// RandomNumber returns a share of a uniformly random field element
// that no party knows.
func (s *Service) RandomNumber(ctx context.Context, id uint16) (
	field.Element, error) {

	r, err := s.f.Random()
	if err != nil {
		return 0, err
	}
	shares, err := s.f.Share(r)
	if err != nil {
		return 0, err
	}
	result, err := s.nw.Exchange(ctx, id, shares)
	if err != nil {
		return 0, err
	}
	return s.f.Sum(result), nil
}

// RandomBit returns a share of a uniformly random bit.
func (s *Service) RandomBit(ctx context.Context, id uint16) (
	field.Element, error) {

	for {
		r, err := s.RandomNumber(ctx, id)
		if err != nil {
			return 0, err
		}
		r2, err := s.Multiply(ctx, id, r, r)
		if err != nil {
			return 0, err
		}
		sq, err := s.Resolve(ctx, id, r2)
		if err != nil {
			return 0, err
		}
		if sq == 0 {
			continue
		}
		root, err := s.f.Sqrt(sq)
		if err != nil {
			return 0, err
		}
		inv, err := s.f.Inverse(root)
		if err != nil {
			return 0, err
		}
		// r/root is ±1; map it to {0, 1}.
		return s.f.Mul(s.f.AddConst(s.f.Mul(inv, r), 1), s.inv2), nil
	}
}
