//
// main.go
//
// Copyright (c) 2026 Markku Rossi
//
// All rights reserved.
//

package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"

	"github.com/markkurossi/tallier"
	"github.com/markkurossi/tallier/bgw"
	"github.com/markkurossi/tallier/env"
	"github.com/markkurossi/tallier/field"
	"github.com/markkurossi/tallier/p2p"
	"github.com/markkurossi/text/superscript"
	"golang.org/x/sync/errgroup"
)

func main() {
	configFile := flag.String("config", "", "YAML configuration `file`")
	id := flag.Int("id", 0, "party ID")
	local := flag.Bool("local", false, "run all parties in this process")
	end := flag.Bool("end", false, "signal end of session to party ID")
	rounds := flag.Int("rounds", 1, "number of random bit rounds")
	tasks := flag.Int("tasks", 10, "number of concurrent tasks per round")
	vote := flag.Uint("vote", 1, "party's vote")
	base := flag.Int("base", 0, "output base for numbers")
	stats := flag.Bool("stats", false, "print I/O statistics")
	fVerbose := flag.Bool("v", false, "verbose output")
	flag.Parse()

	log.SetFlags(0)

	v := newViper()
	if *fVerbose {
		v.Set("verbose", true)
	}
	config, err := readConfig(v, *configFile)
	if err != nil {
		log.Fatal(err)
	}

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt)
	defer cancel()

	if *end {
		addr := config.Network(*id).Addr(*id)
		if err := p2p.SignalEnd(ctx, addr); err != nil {
			log.Fatal(err)
		}
		return
	}

	opts := demoOptions{
		Rounds: *rounds,
		Tasks:  *tasks,
		Vote:   field.Element(*vote),
	}
	if *local {
		err = runLocal(ctx, config, opts, *base, *stats)
	} else {
		err = runParty(ctx, config, *id, opts, *base, *stats)
	}
	if err != nil {
		log.Fatal(err)
	}
}

func newField(config *Config) (*field.Field, error) {
	return field.New(config.Prime, config.Parties, config.Threshold,
		&env.Config{
			Verbose: config.Verbose,
		})
}

func runParty(ctx context.Context, config *Config, id int, opts demoOptions,
	base int, stats bool) error {

	f, err := newField(config)
	if err != nil {
		return err
	}
	nw, err := p2p.NewNetwork(config.Network(id))
	if err != nil {
		return err
	}
	defer nw.Close()

	name := "Tallier" + superscript.Itoa(id)
	fmt.Printf("%s: %v, building mesh at %s\n", name, f, config.Network(id).Addr(id))

	if err := nw.Build(ctx); err != nil {
		return err
	}
	fmt.Printf("%s: service\n", name)

	svc, err := bgw.NewService(f, nw, &bgw.Options{
		Quorum: config.Quorum,
	})
	if err != nil {
		return err
	}
	results, err := demo(ctx, svc, opts)
	if err != nil {
		return err
	}
	tallier.PrintResults(os.Stdout, results, base)
	if stats {
		nw.PrintStats(os.Stdout)
	}
	fmt.Printf("%s: done\n", name)
	return nil
}

func runLocal(ctx context.Context, config *Config, opts demoOptions,
	base int, stats bool) error {

	f, err := newField(config)
	if err != nil {
		return err
	}
	nws, err := p2p.NewPipeMesh(config.Parties, config.Verbose)
	if err != nil {
		return err
	}
	defer p2p.CloseAll(nws)

	fmt.Printf("%v: running %d parties locally\n", f, config.Parties)

	results := make([][]tallier.Result, len(nws))
	g, ctx := errgroup.WithContext(ctx)
	for i, nw := range nws {
		g.Go(func() error {
			svc, err := bgw.NewService(f, nw, &bgw.Options{
				Quorum: config.Quorum,
			})
			if err != nil {
				return err
			}
			results[i], err = demo(ctx, svc, opts)
			return err
		})
	}
	if err := g.Wait(); err != nil {
		return err
	}
	tallier.PrintResults(os.Stdout, results[0], base)
	if stats {
		for i, nw := range nws {
			fmt.Printf("Tallier%s:\n", superscript.Itoa(i))
			nw.PrintStats(os.Stdout)
		}
	}
	return nil
}

// runTasks runs fn for indices 0...n-1 concurrently.
func runTasks(ctx context.Context, n int,
	fn func(ctx context.Context, i int) error) error {

	g, ctx := errgroup.WithContext(ctx)
	for i := 0; i < n; i++ {
		g.Go(func() error {
			return fn(ctx, i)
		})
	}
	return g.Wait()
}
