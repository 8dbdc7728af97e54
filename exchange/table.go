//
// Copyright (c) 2026 Markku Rossi
//
// All rights reserved.
//

package exchange

import (
	"fmt"

	"github.com/markkurossi/tallier/pkg/math"
)

// Table holds one slot per message ID. The contribution values of all
// slots live in a single arena allocated when the table is created.
type Table[T any] struct {
	parties int
	slots   []Slot[T]
	arena   []T
}

// NewTable creates a table of size slots for a committee of parties
// members.
func NewTable[T any](size, parties int) (*Table[T], error) {
	if parties < 1 || parties > math.MaxParties {
		return nil, fmt.Errorf("invalid number of parties: %d", parties)
	}
	if size < 1 {
		return nil, fmt.Errorf("invalid table size: %d", size)
	}
	t := &Table[T]{
		parties: parties,
		slots:   make([]Slot[T], size),
		arena:   make([]T, size*2*parties),
	}
	stride := 2 * parties
	for i := range t.slots {
		t.slots[i].init(parties, t.arena[i*stride:(i+1)*stride])
	}
	return t, nil
}

// Size returns the number of slots in the table.
func (t *Table[T]) Size() int {
	return len(t.slots)
}

// Parties returns the number of contributions per round.
func (t *Table[T]) Parties() int {
	return t.parties
}

// Slot returns the slot of the message ID.
func (t *Table[T]) Slot(id int) *Slot[T] {
	return &t.slots[id]
}

// Deposit stores the contribution of party index for the message ID.
func (t *Table[T]) Deposit(id int, value T, index int) error {
	if id < 0 || id >= len(t.slots) {
		return fmt.Errorf("message ID %d out of range", id)
	}
	return t.slots[id].Deposit(value, index)
}
