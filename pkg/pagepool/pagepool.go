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

// Package pagepool allocates page-table pages from anonymous memory
// mappings.
//
// A Pool implements pagetables.Allocator and pagetables.Freer. Backing
// memory is obtained in chunks of pages; each page is assigned a sequential
// pseudo-physical address from a configurable nonzero base (pseudo-physical
// 0 is the hierarchy's absent sentinel and must stay unoccupied). Freed
// pages are recycled within the pool and re-zeroed before reuse.
package pagepool

import (
	"errors"

	"github.com/google/btree"

	"pvmmu.dev/pvmmu/pkg/pagetables"
)

const (
	pageShift = 12
	pageSize  = 1 << pageShift

	defaultChunkPages = 64
	defaultPhysBase   = 0x100000
)

// ErrExhausted is returned by NewPTEs when the pool has reached its page
// limit.
var ErrExhausted = errors.New("pagepool: out of table pages")

// Config sizes a Pool.
type Config struct {
	// ChunkPages is the number of pages mapped per backing chunk. Zero
	// means a default of 64.
	ChunkPages int

	// MaxPages caps the total pages the pool will ever map. Zero means
	// unlimited.
	MaxPages int

	// PhysBase is the first pseudo-physical address handed out. Zero
	// means a default well above the absent sentinel.
	PhysBase uintptr
}

// chunk is one anonymous mapping carved into table pages.
type chunk struct {
	base    uintptr // pseudo-physical address of the first page
	npages  int
	mapping []byte
}

// Pool hands out table pages backed by anonymous mappings. It is not
// synchronized.
type Pool struct {
	cfg    Config
	chunks *btree.BTreeG[*chunk]
	byPtr  map[*pagetables.PTEs]uintptr
	avail  []*pagetables.PTEs
	next   uintptr // next unassigned pseudo-physical address
	total  int     // pages mapped
	used   int     // pages handed out and not freed
	closed bool
}

// New returns an empty Pool; backing chunks are mapped on demand.
func New(cfg Config) *Pool {
	if cfg.ChunkPages == 0 {
		cfg.ChunkPages = defaultChunkPages
	}
	if cfg.PhysBase == 0 {
		cfg.PhysBase = defaultPhysBase
	}
	if cfg.PhysBase%pageSize != 0 {
		panic("pagepool: unaligned physical base")
	}
	return &Pool{
		cfg: cfg,
		chunks: btree.NewG(8, func(a, b *chunk) bool {
			return a.base < b.base
		}),
		byPtr: make(map[*pagetables.PTEs]uintptr),
		next:  cfg.PhysBase,
	}
}

func (p *Pool) check() {
	if p.closed {
		panic("pagepool: use of closed pool")
	}
}

// NewPTEs implements pagetables.Allocator.NewPTEs.
func (p *Pool) NewPTEs() (*pagetables.PTEs, error) {
	p.check()
	if len(p.avail) == 0 {
		if err := p.grow(); err != nil {
			return nil, err
		}
	}
	n := len(p.avail)
	ptes := p.avail[n-1]
	p.avail = p.avail[:n-1]
	for i := range ptes {
		ptes[i].Store(0)
	}
	p.used++
	return ptes, nil
}

// grow maps one more chunk and adds its pages to the freelist.
func (p *Pool) grow() error {
	npages := p.cfg.ChunkPages
	if p.cfg.MaxPages > 0 {
		left := p.cfg.MaxPages - p.total
		if left <= 0 {
			return ErrExhausted
		}
		if npages > left {
			npages = left
		}
	}
	mapping, err := mapPages(npages)
	if err != nil {
		return err
	}
	c := &chunk{base: p.next, npages: npages, mapping: mapping}
	p.chunks.ReplaceOrInsert(c)
	for i := 0; i < npages; i++ {
		ptes := c.ptes(i)
		p.byPtr[ptes] = c.base + uintptr(i)*pageSize
		p.avail = append(p.avail, ptes)
	}
	p.next += uintptr(npages) * pageSize
	p.total += npages
	return nil
}

// PhysicalFor implements pagetables.Allocator.PhysicalFor.
func (p *Pool) PhysicalFor(ptes *pagetables.PTEs) uintptr {
	p.check()
	phys, ok := p.byPtr[ptes]
	if !ok {
		panic("pagepool: PhysicalFor of unknown page")
	}
	return phys
}

// LookupPTEs implements pagetables.Allocator.LookupPTEs.
func (p *Pool) LookupPTEs(physical uintptr) *pagetables.PTEs {
	p.check()
	var c *chunk
	p.chunks.DescendLessOrEqual(&chunk{base: physical}, func(it *chunk) bool {
		c = it
		return false
	})
	if c == nil || physical >= c.base+uintptr(c.npages)*pageSize {
		panic("pagepool: lookup of unknown physical address")
	}
	return c.ptes(int((physical - c.base) >> pageShift))
}

// FreePTEs implements pagetables.Freer.FreePTEs.
func (p *Pool) FreePTEs(ptes *pagetables.PTEs) {
	p.check()
	if _, ok := p.byPtr[ptes]; !ok {
		panic("pagepool: free of unknown page")
	}
	p.avail = append(p.avail, ptes)
	p.used--
}

// InUse returns the number of live pages.
func (p *Pool) InUse() int {
	return p.used
}

// Mapped returns the number of pages backed by mappings, live or free.
func (p *Pool) Mapped() int {
	return p.total
}

// Close unmaps every chunk. Pages handed out by the pool are invalid
// afterward.
func (p *Pool) Close() error {
	p.check()
	p.closed = true
	var first error
	p.chunks.Ascend(func(c *chunk) bool {
		if err := unmapPages(c.mapping); err != nil && first == nil {
			first = err
		}
		return true
	})
	p.chunks.Clear(false)
	p.byPtr = nil
	p.avail = nil
	return first
}
