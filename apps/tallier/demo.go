//
// Copyright (c) 2026 Markku Rossi
//
// All rights reserved.
//

package main

import (
	"context"
	"fmt"

	"github.com/markkurossi/tallier"
	"github.com/markkurossi/tallier/bgw"
	"github.com/markkurossi/tallier/field"
	"github.com/markkurossi/text/superscript"
	"github.com/markkurossi/text/symbols"
)

// Message ID layout of the demo.
const (
	numRandomBits = 32
	taskSpan      = 80
	maxTasks      = 50
	tallyID       = maxTasks * taskSpan
	compareID     = tallyID + 128
)

type demoOptions struct {
	Rounds int
	Tasks  int
	Vote   field.Element
}

func (opts demoOptions) validate() error {
	if opts.Tasks < 1 || opts.Tasks > maxTasks {
		return fmt.Errorf("invalid number of tasks %d: must be in [1...%d]",
			opts.Tasks, maxTasks)
	}
	if opts.Rounds < 0 {
		return fmt.Errorf("invalid number of rounds %d", opts.Rounds)
	}
	return nil
}

// demo runs the demo computations and returns the opened results.
// All parties must run demo with the same options, apart from the
// votes.
func demo(ctx context.Context, s *bgw.Service, opts demoOptions) (
	[]tallier.Result, error) {

	if err := opts.validate(); err != nil {
		return nil, err
	}
	f := s.Field()
	name := "Tallier" + superscript.Itoa(s.ID())

	var results []tallier.Result

	for round := 0; round < opts.Rounds; round++ {
		taskResults := make([]tallier.Result, opts.Tasks)
		err := runTasks(ctx, opts.Tasks, func(ctx context.Context, i int) error {
			r, err := randomOR(ctx, s, uint16(i*taskSpan))
			if err != nil {
				return err
			}
			r.Name = fmt.Sprintf("OR(bits) round %d task %d", round, i)
			taskResults[i] = r
			return nil
		})
		if err != nil {
			return nil, err
		}
		f.Env().Debugf("%s: round %d done\n", name, round)
		if round == opts.Rounds-1 {
			results = append(results, taskResults...)
		}
	}

	// Secure tally of the votes.
	var sum field.Element
	for i := 0; i < f.Parties(); i++ {
		v, err := s.Input(ctx, uint16(tallyID+i), i, opts.Vote)
		if err != nil {
			return nil, err
		}
		sum = f.Add(sum, v)
	}
	tally, err := s.Resolve(ctx, tallyID, sum)
	if err != nil {
		return nil, err
	}
	results = append(results, tallier.Result{
		Name:  "tally",
		Value: tally,
	})

	// Comparisons on party 0's inputs.
	var values [3]field.Element
	for i, v := range []field.Element{5, 3, 7} {
		values[i], err = s.Input(ctx, uint16(compareID+i), 0, v)
		if err != nil {
			return nil, err
		}
	}
	odd, err := s.IsOdd(ctx, compareID, values[0])
	if err != nil {
		return nil, err
	}
	less, err := s.Less(ctx, uint16(compareID+s.IsOddSpan()), values[1],
		values[2])
	if err != nil {
		return nil, err
	}
	for _, r := range []struct {
		name  string
		share field.Element
	}{
		{"is_odd(5)", odd},
		{"less(3, 7)", less},
	} {
		v, err := s.Resolve(ctx, compareID, r.share)
		if err != nil {
			return nil, err
		}
		results = append(results, tallier.Result{
			Name:  r.name,
			Kind:  tallier.KindBool,
			Value: v,
		})
	}
	return results, nil
}

// randomOR draws random bits, opens them, and opens their OR.
func randomOR(ctx context.Context, s *bgw.Service, id uint16) (
	tallier.Result, error) {

	bits := make([]field.Element, numRandomBits)
	err := runTasks(ctx, numRandomBits, func(ctx context.Context, i int) error {
		v, err := s.RandomBit(ctx, id+uint16(i))
		bits[i] = v
		return err
	})
	if err != nil {
		return tallier.Result{}, err
	}

	opened := make([]field.Element, numRandomBits)
	var or field.Element
	err = runTasks(ctx, numRandomBits+1, func(ctx context.Context, i int) error {
		if i == numRandomBits {
			v, err := s.FanInOR(ctx, id+numRandomBits, bits)
			or = v
			return err
		}
		v, err := s.Resolve(ctx, id+uint16(i), bits[i])
		opened[i] = v
		return err
	})
	if err != nil {
		return tallier.Result{}, err
	}
	v, err := s.Resolve(ctx, id, or)
	if err != nil {
		return tallier.Result{}, err
	}
	s.Field().Env().Debugf("%c%v -> %v\n", symbols.Lambda, opened, v)

	return tallier.Result{
		Kind:  tallier.KindBits,
		Value: v,
		Bits:  opened,
	}, nil
}
