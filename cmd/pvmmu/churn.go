// Copyright 2026 The pvmmu Authors.
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package main

import (
	"context"
	"flag"
	"fmt"
	"math/rand"

	"github.com/google/subcommands"
	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"

	"pvmmu.dev/pvmmu/pkg/hvsim"
	"pvmmu.dev/pvmmu/pkg/pagepool"
	"pvmmu.dev/pvmmu/pkg/pagetables"
)

// Churn implements subcommands.Command for the "churn" command.
type Churn struct {
	spaces     int
	iterations int
	workingSet int
	seed       int64
}

// Name implements subcommands.Command.
func (*Churn) Name() string {
	return "churn"
}

// Synopsis implements subcommands.Command.
func (*Churn) Synopsis() string {
	return "stress-cycles hold/release over random working sets"
}

// Usage implements subcommands.Command.
func (*Churn) Usage() string {
	return `churn [flags]
Runs hold/release cycles against independent simulated address spaces, one
goroutine per space. Cursors are single-threaded; parallelism is across
spaces only.
`
}

// SetFlags implements subcommands.Command.
func (c *Churn) SetFlags(f *flag.FlagSet) {
	f.IntVar(&c.spaces, "spaces", 4, "number of independent address spaces.")
	f.IntVar(&c.iterations, "iterations", 1000, "hold/release cycles per space.")
	f.IntVar(&c.workingSet, "working-set", 16, "addresses held per cycle.")
	f.Int64Var(&c.seed, "seed", 1, "base seed for address generation.")
}

// Execute implements subcommands.Command.Execute.
func (c *Churn) Execute(_ context.Context, f *flag.FlagSet, _ ...any) subcommands.ExitStatus {
	cfg, err := loadConfig(*configPath)
	if err != nil {
		fatalf("loading config: %v", err)
	}

	var g errgroup.Group
	for i := 0; i < c.spaces; i++ {
		i := i
		g.Go(func() error {
			return c.churnSpace(cfg, c.seed+int64(i))
		})
	}
	if err := g.Wait(); err != nil {
		logrus.Errorf("churn: %v", err)
		return subcommands.ExitFailure
	}
	fmt.Printf("churned %d spaces x %d iterations\n", c.spaces, c.iterations)
	return subcommands.ExitSuccess
}

// churnSpace runs the full cycle count against one private space with its
// own pool, machine and cursor.
func (c *Churn) churnSpace(cfg Config, seed int64) error {
	pool := pagepool.New(cfg.poolConfig())
	defer pool.Close()
	machine := hvsim.New(pool, cfg.machineOptions())
	space, err := hvsim.NewSpace(pool)
	if err != nil {
		return err
	}

	idx := pagetables.New(pool, machine)
	defer idx.Close()

	rng := rand.New(rand.NewSource(seed))
	vas := make([]uintptr, c.workingSet)
	for it := 0; it < c.iterations; it++ {
		for i := range vas {
			// Canonical low-half addresses, page aligned.
			vas[i] = uintptr(rng.Int63n(1<<47)) &^ (1<<12 - 1)
			if _, err := idx.Hold(space, vas[i]); err != nil {
				return fmt.Errorf("hold %#x: %v", vas[i], err)
			}
		}
		for _, va := range vas {
			if !idx.Inspect(space, va) {
				// A release earlier in this pass may have
				// reclaimed shared tables already.
				continue
			}
			if res := idx.Release(space, va); res.Status != pagetables.ReleaseCompleted {
				return fmt.Errorf("release %#x: %s", va, res.Status)
			}
		}
	}

	if live := pool.InUse() - 1; live != 0 { // the root is expected to remain
		return fmt.Errorf("leaked %d tables", live)
	}
	space.Close()
	return nil
}
