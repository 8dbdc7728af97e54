//
// Copyright (c) 2026 Markku Rossi
//
// All rights reserved.
//

package p2p

import (
	"golang.org/x/sync/errgroup"
)

// NewPipeMesh creates the networks of a committee of the argument
// size, connected pairwise with in-memory pipes.
func NewPipeMesh(parties int, verbose bool) ([]*Network, error) {
	result := make([]*Network, parties)
	for i := 0; i < parties; i++ {
		nw, err := NewNetwork(Config{
			ID:      i,
			Parties: parties,
			Verbose: verbose,
		})
		if err != nil {
			CloseAll(result)
			return nil, err
		}
		result[i] = nw
	}

	var g errgroup.Group
	for i := 0; i < parties; i++ {
		for j := i + 1; j < parties; j++ {
			ci, cj := Pipe()
			g.Go(func() error {
				return result[i].AddConn(ci)
			})
			g.Go(func() error {
				return result[j].AddConn(cj)
			})
		}
	}
	if err := g.Wait(); err != nil {
		CloseAll(result)
		return nil, err
	}
	return result, nil
}

// CloseAll closes all non-nil networks concurrently.
func CloseAll(networks []*Network) error {
	var g errgroup.Group
	for _, nw := range networks {
		if nw != nil {
			g.Go(nw.Close)
		}
	}
	return g.Wait()
}
