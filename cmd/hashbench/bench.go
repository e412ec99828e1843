package main

import (
	"context"
	"flag"
	"fmt"
	"runtime"
	"sync/atomic"
	"time"

	"github.com/dustin/go-humanize"
	"golang.org/x/sync/errgroup"
	"lukechampine.com/frand"

	"github.com/hailam/chesshash/internal/hash"
)

type benchConfig struct {
	HashMB  int
	Workers int
	Ops     int
	Keys    int
}

type benchResult struct {
	Ops     uint64
	Stores  uint64
	Probes  uint64
	Hits    uint64
	Corrupt uint64
	// Generations is the most table generations any worker stored under.
	Generations uint64
	Elapsed     time.Duration
	Stats       hash.Stats
}

// keyValue derives the stored value from the key, so any hit can be checked
// against the key it was found under.
func keyValue(f uint64) int16 {
	return int16(f >> 48)
}

// runBench hammers one table from many goroutines over a shared key space.
// Every store writes a value derived from its key; a hit whose value does not
// match its key counts as corrupt.
func runBench(ctx context.Context, cfg benchConfig) (benchResult, error) {
	tt := hash.New(cfg.HashMB << 20)
	keys := make([]uint64, cfg.Keys)
	for i := range keys {
		// Keep the signature bits non-zero so no key looks empty.
		keys[i] = frand.Uint64n(1<<63) | 1<<48
	}

	// Each worker runs through four generations.
	genLength := cfg.Ops/4 + 1
	var stores, probes, hits, corrupt, gens atomic.Uint64
	g, ctx := errgroup.WithContext(ctx)
	start := time.Now()
	for w := 0; w < cfg.Workers; w++ {
		g.Go(func() error {
			age, generations := 1, uint64(1)
			defer func() { maxGenerations(&gens, generations) }()
			for i := 0; i < cfg.Ops; i++ {
				if i&4095 == 0 {
					if err := ctx.Err(); err != nil {
						return err
					}
				}
				if i > 0 && i%genLength == 0 {
					age = hash.NextAge(age)
					generations++
				}
				f := keys[frand.Intn(len(keys))]
				if frand.Intn(2) == 0 {
					depth := frand.Intn(30)
					tt.Store(f, depth, age, hash.Kind(frand.Intn(3)), keyValue(f), keyValue(f)/2, 0, hash.NoMove)
					stores.Add(1)
					continue
				}
				probes.Add(1)
				kind, e := tt.Probe(f, 0, age)
				if kind == hash.NotFound {
					continue
				}
				hits.Add(1)
				if e.Value() != int(keyValue(f)) {
					corrupt.Add(1)
				}
			}
			return nil
		})
	}
	err := g.Wait()
	return benchResult{
		Ops:         uint64(cfg.Workers) * uint64(cfg.Ops),
		Stores:      stores.Load(),
		Probes:      probes.Load(),
		Hits:        hits.Load(),
		Corrupt:     corrupt.Load(),
		Generations: gens.Load(),
		Elapsed:     time.Since(start),
		Stats:       tt.Stats(),
	}, err
}

func maxGenerations(v *atomic.Uint64, n uint64) {
	for {
		cur := v.Load()
		if n <= cur || v.CompareAndSwap(cur, n) {
			return
		}
	}
}

func benchCmd(args []string) error {
	fs := flag.NewFlagSet("bench", flag.ContinueOnError)
	cfg := benchConfig{}
	fs.IntVar(&cfg.HashMB, "hash", 16, "table size in MB")
	fs.IntVar(&cfg.Workers, "workers", runtime.NumCPU(), "concurrent goroutines")
	fs.IntVar(&cfg.Ops, "ops", 1_000_000, "operations per goroutine")
	fs.IntVar(&cfg.Keys, "keys", 1<<20, "distinct fingerprints")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if cfg.HashMB < 1 || cfg.Workers < 1 || cfg.Ops < 1 || cfg.Keys < 1 {
		return fmt.Errorf("bench: hash, workers, ops and keys must be positive")
	}

	res, err := runBench(context.Background(), cfg)
	if err != nil {
		return err
	}
	rate := float64(res.Ops) / res.Elapsed.Seconds()
	row("table", humanize.IBytes(uint64(cfg.HashMB)<<20))
	row("workers", cfg.Workers)
	row("operations", humanize.Comma(int64(res.Ops)))
	row("throughput", humanize.SIWithDigits(rate, 2, "ops/s"))
	row("generations", res.Generations)
	row("hit rate", fmt.Sprintf("%.1f%%", 100*float64(res.Hits)/float64(max(res.Probes, 1))))
	row("table", res.Stats)
	if res.Corrupt > 0 {
		row("corrupt hits", bad(humanize.Comma(int64(res.Corrupt))))
		return fmt.Errorf("bench: %d hits returned another key's value", res.Corrupt)
	}
	row("corrupt hits", good("0"))
	return nil
}
