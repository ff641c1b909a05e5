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

package pagetables

// An Allocator supplies table pages and the translations between table
// pointers and pseudo-physical addresses. Pseudo-physical address 0 is
// reserved as the absent sentinel; no table may ever live there.
type Allocator interface {
	// NewPTEs returns a freshly zeroed table page, mapped and ready for
	// use. An error indicates the backend is out of pages; no partial
	// state is left behind.
	NewPTEs() (*PTEs, error)

	// PhysicalFor returns the pseudo-physical address of ptes. The
	// argument must have come from NewPTEs on this allocator.
	PhysicalFor(ptes *PTEs) uintptr

	// LookupPTEs resolves a pseudo-physical address previously returned
	// by PhysicalFor. Resolving an address this allocator never handed
	// out is a caller bug.
	LookupPTEs(physical uintptr) *PTEs
}

// Freer is optionally implemented by Allocators that can reclaim table
// pages. Without it, release unlinks entries but never frees tables.
type Freer interface {
	// FreePTEs releases a table page. The caller guarantees no live
	// entry references it.
	FreePTEs(ptes *PTEs)
}

// runtimePhysBase is the first pseudo-physical address handed out by a
// RuntimeAllocator. Nonzero so the absent sentinel stays unambiguous.
const runtimePhysBase = 0x10000

// RuntimeAllocator hands out table pages from the Go heap, assigning
// synthetic pseudo-physical addresses sequentially. Freed pages are recycled
// and re-zeroed. It implements Allocator and Freer.
//
// RuntimeAllocator is not synchronized.
type RuntimeAllocator struct {
	next   uintptr
	byPhys map[uintptr]*PTEs
	byPtr  map[*PTEs]uintptr
	avail  []*PTEs
	used   int
}

// NewRuntimeAllocator returns a ready allocator.
func NewRuntimeAllocator() *RuntimeAllocator {
	return &RuntimeAllocator{
		next:   runtimePhysBase,
		byPhys: make(map[uintptr]*PTEs),
		byPtr:  make(map[*PTEs]uintptr),
	}
}

// NewPTEs implements Allocator.NewPTEs. It never fails.
func (a *RuntimeAllocator) NewPTEs() (*PTEs, error) {
	var ptes *PTEs
	if n := len(a.avail); n > 0 {
		ptes = a.avail[n-1]
		a.avail = a.avail[:n-1]
		for i := range ptes {
			ptes[i].Store(0)
		}
	} else {
		ptes = new(PTEs)
		a.byPtr[ptes] = a.next
		a.byPhys[a.next] = ptes
		a.next += pageSize
	}
	a.used++
	return ptes, nil
}

// PhysicalFor implements Allocator.PhysicalFor.
func (a *RuntimeAllocator) PhysicalFor(ptes *PTEs) uintptr {
	phys, ok := a.byPtr[ptes]
	if !ok {
		panic("pagetables: PhysicalFor of unknown table")
	}
	return phys
}

// LookupPTEs implements Allocator.LookupPTEs.
func (a *RuntimeAllocator) LookupPTEs(physical uintptr) *PTEs {
	ptes, ok := a.byPhys[physical]
	if !ok {
		panic("pagetables: lookup of unknown table address")
	}
	return ptes
}

// FreePTEs implements Freer.FreePTEs. The page stays translatable so a
// stale-entry desync trips LookupPTEs' contract rather than corrupting an
// unrelated table.
func (a *RuntimeAllocator) FreePTEs(ptes *PTEs) {
	if _, ok := a.byPtr[ptes]; !ok {
		panic("pagetables: free of unknown table")
	}
	a.avail = append(a.avail, ptes)
	a.used--
}

// InUse returns the number of live (allocated, unfreed) tables.
func (a *RuntimeAllocator) InUse() int {
	return a.used
}
