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

import (
	"fmt"
)

// Inspect resolves the hierarchy under va read-only, caching each level's
// table in the cursor as it descends. It stops at the first absent level,
// clearing the cursor slots below it, and returns false. True means all four
// levels resolved. Inspect never allocates and never mutates hypervisor
// state.
func (idx *Index) Inspect(as AddressSpace, va uintptr) bool {
	idx.check("Inspect")
	checkVA(va)

	idx.tables[levelPML4] = rootTable(as)
	for level := levelPML4; level > levelPT; level-- {
		phys := idx.lookupChild(idx.tables[level], level, va)
		if phys == 0 {
			idx.dropBelow(level)
			return false
		}
		idx.tables[level-1] = idx.allocator.LookupPTEs(phys)
	}
	return true
}

// Hold resolves the hierarchy under va, materializing every absent level.
//
// For each absent level the protocol is: allocate a zeroed table, queue a
// present|writable|user entry for it in the parent slot (machine addresses
// on both sides of the write), and flush before descending — the new table
// must be live before anything reads through it. Each level completes
// independently, so an allocation failure at a lower level leaves the levels
// already installed fully linked; the error reports the failing level and
// nothing is rolled back. Release on the same address reclaims whatever was
// installed.
//
// The returned bool reports whether any allocation occurred, letting the
// caller distinguish a fully pre-existing path from one freshly built.
func (idx *Index) Hold(as AddressSpace, va uintptr) (bool, error) {
	idx.check("Hold")
	checkVA(va)

	idx.tables[levelPML4] = rootTable(as)
	allocated := false
	for level := levelPML4; level > levelPT; level-- {
		parent := idx.tables[level]
		if phys := idx.lookupChild(parent, level, va); phys != 0 {
			idx.tables[level-1] = idx.allocator.LookupPTEs(phys)
			continue
		}

		child, err := idx.allocator.NewPTEs()
		if err != nil {
			idx.dropBelow(level)
			return allocated, fmt.Errorf("allocating %s for %#x: %w", levelNames[level-1], va, err)
		}
		allocated = true

		childMA := idx.hv.ToMachine(idx.allocator.PhysicalFor(child))
		idx.hv.QueuePTUpdate(idx.slotMachine(parent, level, va), tableEntry(childMA))
		idx.hv.FlushQueue()
		idx.tables[level-1] = child
	}
	return allocated, nil
}
