package evo

import (
	"context"
	"errors"
	"fmt"
	"math/rand"

	"golang.org/x/sync/errgroup"
)

// ChainConfigFn builds the configuration for one chain. The returned config
// must not share its random source or any mutable oracle state with other
// chains unless that state is safe for concurrent use.
type ChainConfigFn func(chain int, rng *rand.Rand) (Config, error)

type ChainsResult struct {
	Results []Result
	Best    int
}

// RunChains runs independent chains concurrently, at most workers at a time.
// Chain i draws from rand.NewSource(seed+i). The first failing chain cancels
// the rest.
func RunChains(ctx context.Context, chains, workers int, seed int64, build ChainConfigFn) (ChainsResult, error) {
	if chains <= 0 {
		return ChainsResult{}, errors.New("chain count must be > 0")
	}
	if build == nil {
		return ChainsResult{}, errors.New("chain config builder is required")
	}
	if workers <= 0 {
		workers = 1
	}

	results := make([]Result, chains)
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(workers)
	for i := 0; i < chains; i++ {
		g.Go(func() error {
			rng := rand.New(rand.NewSource(seed + int64(i)))
			cfg, err := build(i, rng)
			if err != nil {
				return fmt.Errorf("chain %d: %w", i, err)
			}
			if cfg.Rand == nil {
				cfg.Rand = rng
			}
			if cfg.Logger != nil {
				cfg.Logger = cfg.Logger.With("chain", i)
			}
			res, err := Optimize(gctx, cfg)
			results[i] = res
			if err != nil {
				return fmt.Errorf("chain %d: %w", i, err)
			}
			return nil
		})
	}
	err := g.Wait()

	out := ChainsResult{Results: results, Best: -1}
	for i, res := range results {
		if res.Best == nil {
			continue
		}
		if out.Best < 0 || res.BestScore > results[out.Best].BestScore {
			out.Best = i
		}
	}
	return out, err
}
