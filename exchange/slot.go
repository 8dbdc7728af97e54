//
// Copyright (c) 2026 Markku Rossi
//
// All rights reserved.
//

// Package exchange implements the per-message rendezvous that collects
// exactly one contribution from each committee member before
// releasing the round to its consumer.
//
// Each slot has two banks so that contributions for the following
// round can be retained while the current round is still being
// consumed. A slot therefore tolerates at most one round of early
// arrival per contributor.
package exchange

import (
	"context"
	"errors"
	"fmt"
	"sync"
)

var (
	// ErrOverflow is returned when a contribution arrives for a party
	// that has already contributed to both banks.
	ErrOverflow = errors.New("contribution overflows both banks")

	// ErrInUse is returned when a round is started on a slot whose
	// previous local round has not been consumed.
	ErrInUse = errors.New("slot in use")

	// ErrNotReady is returned when taking the result of an incomplete
	// round.
	ErrNotReady = errors.New("slot not ready")

	// ErrIndex is returned for contribution indices outside the
	// committee.
	ErrIndex = errors.New("invalid contribution index")
)

var closedCh = func() chan struct{} {
	ch := make(chan struct{})
	close(ch)
	return ch
}()

type bank[T any] struct {
	missing uint64
	values  []T
}

// Slot collects the contributions of one message ID.
type Slot[T any] struct {
	m       sync.Mutex
	banks   [2]bank[T]
	cur     int
	full    uint64
	ready   bool
	claimed bool
	waiter  chan struct{}
}

func (s *Slot[T]) init(d int, arena []T) {
	// For d=64 the shift yields 0 and the subtraction wraps to all ones.
	s.full = uint64(1)<<d - 1
	for i := range s.banks {
		s.banks[i].missing = s.full
		s.banks[i].values = arena[i*d : (i+1)*d : (i+1)*d]
	}
}

// Deposit stores the contribution of party index. The value goes to
// the current bank if it still expects index, otherwise to the next
// bank. Completing the current bank marks the slot ready and wakes a
// parked consumer before Deposit returns.
func (s *Slot[T]) Deposit(value T, index int) error {
	if index < 0 || index >= len(s.banks[0].values) {
		return fmt.Errorf("%w: %d", ErrIndex, index)
	}
	bit := uint64(1) << index

	s.m.Lock()
	defer s.m.Unlock()

	for k := 0; k < len(s.banks); k++ {
		b := &s.banks[(s.cur+k)%len(s.banks)]
		if b.missing&bit == 0 {
			continue
		}
		b.values[index] = value
		b.missing &^= bit
		if k == 0 && b.missing == 0 {
			s.setReady()
		}
		return nil
	}
	return fmt.Errorf("%w: party %d", ErrOverflow, index)
}

func (s *Slot[T]) setReady() {
	s.ready = true
	if s.waiter != nil {
		close(s.waiter)
		s.waiter = nil
	}
}

// Ready returns a channel that is closed when the current bank has
// all contributions. If the bank is already complete, the returned
// channel is closed.
func (s *Slot[T]) Ready() <-chan struct{} {
	s.m.Lock()
	defer s.m.Unlock()

	if s.ready {
		return closedCh
	}
	if s.waiter == nil {
		s.waiter = make(chan struct{})
	}
	return s.waiter
}

// Wait waits until the current bank is complete or the context is
// done.
func (s *Slot[T]) Wait(ctx context.Context) error {
	select {
	case <-s.Ready():
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// IsReady tests if the current bank is complete.
func (s *Slot[T]) IsReady() bool {
	s.m.Lock()
	defer s.m.Unlock()
	return s.ready
}

// Missing returns the bitmask of parties that have not contributed to
// the current bank.
func (s *Slot[T]) Missing() uint64 {
	s.m.Lock()
	defer s.m.Unlock()
	return s.banks[s.cur].missing
}

// Claim marks the slot as used by a local round. It returns ErrInUse
// if the previous local round has not been consumed with Take.
func (s *Slot[T]) Claim() error {
	s.m.Lock()
	defer s.m.Unlock()

	if s.claimed {
		return ErrInUse
	}
	s.claimed = true
	return nil
}

// Take returns the contributions of the completed current bank in
// party index order and rotates the banks: the next bank, with any
// early contributions, becomes current and the consumed bank is reset
// to expect every party again.
func (s *Slot[T]) Take() ([]T, error) {
	s.m.Lock()
	defer s.m.Unlock()

	if !s.ready {
		return nil, ErrNotReady
	}
	cur := &s.banks[s.cur]
	result := make([]T, len(cur.values))
	copy(result, cur.values)

	clear(cur.values)
	cur.missing = s.full

	s.cur = (s.cur + 1) % len(s.banks)
	s.ready = false
	s.claimed = false
	if s.banks[s.cur].missing == 0 {
		s.setReady()
	}

	return result, nil
}
