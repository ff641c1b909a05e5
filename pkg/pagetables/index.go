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

// Index is the hierarchy cursor: per-walk scratch state caching the resolved
// table at every level for one virtual address at a time.
//
// A cursor is bound to one virtual address between a resolve (Inspect or
// Hold) and the matching Release; interleaving two addresses through the
// same cursor without releasing is a caller bug that the desync checks in
// Release will catch only by luck. The root slot is re-resolved from the
// address space on every operation and is never owned by the cursor.
type Index struct {
	// tables holds the cached table pointers, leaf first; tables[levelPML4]
	// is the root. A nil slot means the level is unresolved for the
	// current address.
	tables [numLevels]*PTEs

	allocator Allocator
	hv        Hypervisor

	// sane is the initialized-and-not-closed marker. Every public
	// operation rejects a cursor failing this check as a contract
	// violation.
	sane bool
}

// New returns a ready cursor bound to the given capabilities. Both are
// required; the capabilities are fixed for the cursor's lifetime.
func New(allocator Allocator, hv Hypervisor) *Index {
	if allocator == nil {
		panic("pagetables: New without an allocator")
	}
	if hv == nil {
		panic("pagetables: New without a hypervisor")
	}
	return &Index{
		allocator: allocator,
		hv:        hv,
		sane:      true,
	}
}

// Close invalidates the cursor. It does not walk or reclaim outstanding
// tables: intermediate tables are torn down per-address via Release, and a
// cursor may be closed while tables it once resolved are still live in the
// address space. Closing twice is a caller bug.
func (idx *Index) Close() {
	idx.check("Close")
	idx.sane = false
}

func (idx *Index) check(op string) {
	if idx == nil {
		panic("pagetables: " + op + " on nil cursor")
	}
	if !idx.sane {
		panic("pagetables: " + op + " on uninitialized or closed cursor")
	}
}

// PML4T returns the cached root table, or nil if no operation has resolved
// it yet.
func (idx *Index) PML4T() *PTEs {
	idx.check("PML4T")
	return idx.tables[levelPML4]
}

// PDPT returns the cached level-3 table for the current address.
func (idx *Index) PDPT() *PTEs {
	idx.check("PDPT")
	return idx.tables[levelPDPT]
}

// PDT returns the cached level-2 table for the current address.
func (idx *Index) PDT() *PTEs {
	idx.check("PDT")
	return idx.tables[levelPDT]
}

// PT returns the cached leaf page table for the current address.
func (idx *Index) PT() *PTEs {
	idx.check("PT")
	return idx.tables[levelPT]
}

// lookupChild reads the entry governing va in the table at the given level
// and returns the pseudo-physical address of the child table, or 0 if the
// entry is not present. Address 0 is reserved: a frame there is treated as
// absent. Side-effect free.
func (idx *Index) lookupChild(parent *PTEs, level int, va uintptr) uintptr {
	if parent == nil {
		panic("pagetables: lookup through nil " + levelNames[level])
	}
	pte := &parent[slotIndex(level, va)]
	if !pte.Valid() {
		return 0
	}
	return idx.hv.ToPhysical(pte.Machine())
}

// slotMachine returns the machine address of the entry slot governing va
// within the table at the given level.
func (idx *Index) slotMachine(parent *PTEs, level int, va uintptr) MachineAddr {
	phys := idx.allocator.PhysicalFor(parent) + uintptr(slotIndex(level, va))*entrySize
	return idx.hv.ToMachine(phys)
}

// dropBelow clears every cached slot strictly below the given level.
func (idx *Index) dropBelow(level int) {
	for l := level - 1; l >= levelPT; l-- {
		idx.tables[l] = nil
	}
}
