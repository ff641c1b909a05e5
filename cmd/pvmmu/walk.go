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
	"strconv"
	"strings"

	"github.com/google/subcommands"
	"github.com/sirupsen/logrus"

	"pvmmu.dev/pvmmu/pkg/hvsim"
	"pvmmu.dev/pvmmu/pkg/pagepool"
	"pvmmu.dev/pvmmu/pkg/pagetables"
)

// Walk implements subcommands.Command for the "walk" command.
type Walk struct {
	keep bool
}

// Name implements subcommands.Command.
func (*Walk) Name() string {
	return "walk"
}

// Synopsis implements subcommands.Command.
func (*Walk) Synopsis() string {
	return "holds, inspects and releases a list of virtual addresses"
}

// Usage implements subcommands.Command.
func (*Walk) Usage() string {
	return `walk [flags] <va> [<va>...]
Each va is a hexadecimal guest virtual address.
`
}

// SetFlags implements subcommands.Command.
func (w *Walk) SetFlags(f *flag.FlagSet) {
	f.BoolVar(&w.keep, "keep", false, "skip the release pass, leaving the hierarchy populated.")
}

// Execute implements subcommands.Command.Execute.
func (w *Walk) Execute(_ context.Context, f *flag.FlagSet, _ ...any) subcommands.ExitStatus {
	if f.NArg() == 0 {
		f.Usage()
		return subcommands.ExitUsageError
	}
	vas, err := parseAddrs(f.Args())
	if err != nil {
		logrus.Errorf("%v", err)
		return subcommands.ExitUsageError
	}
	cfg, err := loadConfig(*configPath)
	if err != nil {
		fatalf("loading config: %v", err)
	}

	pool := pagepool.New(cfg.poolConfig())
	defer pool.Close()
	machine := hvsim.New(pool, cfg.machineOptions())
	space, err := hvsim.NewSpace(pool)
	if err != nil {
		fatalf("creating space: %v", err)
	}

	idx := pagetables.New(pool, machine)
	defer idx.Close()

	for _, va := range vas {
		allocated, err := idx.Hold(space, va)
		if err != nil {
			fatalf("hold %#x: %v", va, err)
		}
		if !idx.Inspect(space, va) {
			fatalf("inspect %#x failed after hold", va)
		}
		fmt.Printf("%#016x allocated=%-5v pdpt=%#x pdt=%#x pt=%#x\n",
			va, allocated,
			pool.PhysicalFor(idx.PDPT()),
			pool.PhysicalFor(idx.PDT()),
			pool.PhysicalFor(idx.PT()))
	}

	if !w.keep {
		for _, va := range vas {
			if !idx.Inspect(space, va) {
				// Shared tables may already be gone.
				continue
			}
			res := idx.Release(space, va)
			fmt.Printf("%#016x release %s zapped=%d freed=%d\n", va, res.Status, res.Zapped, res.Freed)
		}
		space.Close()
	}

	stats := machine.Stats()
	fmt.Printf("pages: %d mapped, %d live; queue: %d queued, %d applied, %d flushes\n",
		pool.Mapped(), pool.InUse(), stats.Queued, stats.Applied, stats.Flushes)
	return subcommands.ExitSuccess
}

// parseAddrs converts hex arguments into canonical virtual addresses.
func parseAddrs(args []string) ([]uintptr, error) {
	vas := make([]uintptr, 0, len(args))
	for _, arg := range args {
		s := strings.TrimPrefix(strings.ToLower(arg), "0x")
		v, err := strconv.ParseUint(s, 16, 64)
		if err != nil {
			return nil, fmt.Errorf("bad virtual address %q: %w", arg, err)
		}
		vas = append(vas, uintptr(v))
	}
	return vas, nil
}
