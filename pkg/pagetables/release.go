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

// ReleaseStatus describes how far a Release walk got.
type ReleaseStatus int

const (
	// ReleaseCompleted means the bottom-up walk examined every level.
	// Tables were freed or retained level by level per their emptiness.
	ReleaseCompleted ReleaseStatus = iota

	// ReleaseAborted means the walk stopped at a table whose own backing
	// page aliases the address being released. Reading through such a
	// table after its mapping is zapped is unsafe, so levels at and
	// above the aliasing one were left untouched and residue may remain.
	ReleaseAborted
)

// String implements fmt.Stringer.
func (s ReleaseStatus) String() string {
	switch s {
	case ReleaseCompleted:
		return "completed"
	case ReleaseAborted:
		return "aborted"
	}
	return "unknown"
}

// ReleaseResult reports the outcome of one Release walk.
type ReleaseResult struct {
	Status ReleaseStatus

	// Zapped counts parent entries cleared through the update queue.
	Zapped int

	// Freed counts tables returned to the allocator. Always equal to
	// Zapped when the allocator implements Freer, otherwise 0.
	Freed int
}

// Release walks the hierarchy under va bottom-up, unlinking and reclaiming
// tables that have become entirely empty. The cursor must have been
// populated for va by Inspect or Hold.
//
// Per level, leaf to L3: an unresolved cursor slot requires the parent's
// entry to be absent too (anything else means the cursor and the hierarchy
// have desynchronized, which is fatal); a table whose backing page aliases
// the page of va stops the walk with ReleaseAborted; an empty table has its
// parent entry zapped through the update queue (queue zero, then flush)
// before the table is handed back to the allocator, when the allocator
// supports freeing, and the cursor slot cleared; a non-empty table is
// retained and the walk continues upward, since its parent necessarily
// remains non-empty as well.
//
// The root table is never freed or cleared: its lifetime spans contexts
// outside this package's authority. Root entries are zapped like any other
// parent entry.
func (idx *Index) Release(as AddressSpace, va uintptr) ReleaseResult {
	idx.check("Release")
	checkVA(va)

	idx.tables[levelPML4] = rootTable(as)

	var res ReleaseResult
	for level := levelPT; level < levelPML4; level++ {
		table := idx.tables[level]
		parent := idx.tables[level+1]

		if table == nil {
			// Never resolved at this level; the hierarchy must
			// agree.
			if parent != nil && parent[slotIndex(level+1, va)].Valid() {
				panic("pagetables: " + levelNames[level+1] + " entry live for unresolved " + levelNames[level])
			}
			continue
		}
		if parent == nil {
			panic("pagetables: " + levelNames[level] + " resolved without its " + levelNames[level+1])
		}

		// Self-mapping hazard: if this table's own page backs va,
		// zapping its parent entry would invalidate the very mapping
		// we would then read through. Stop here; the caller sees the
		// partial outcome in the status.
		if pageFor(table) == va>>pageShift {
			res.Status = ReleaseAborted
			return res
		}

		if !table.Empty() {
			// Still carries live entries; everything above
			// necessarily does too, but walk on so desync at an
			// upper level is still caught.
			continue
		}

		// The table may be freed only after its parent entry is
		// zapped and the zap is visible.
		idx.hv.QueuePTUpdate(idx.slotMachine(parent, level+1, va), 0)
		idx.hv.FlushQueue()
		res.Zapped++

		if f, ok := idx.allocator.(Freer); ok {
			f.FreePTEs(table)
			res.Freed++
		}
		idx.tables[level] = nil
	}
	return res
}
