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

// Package pagetables manages the four-level translation hierarchy of a
// paravirtualized amd64 guest.
//
// The guest may not write live translation structures directly: every entry
// mutation is staged through the Hypervisor capability's batched update queue
// and flushed before its effect is relied upon. Table pages themselves come
// from an Allocator capability, which also provides the pseudo-physical to
// virtual translations needed to follow entries downward.
//
// All walk state for one virtual address at a time lives in an Index, a
// caller-owned cursor caching the resolved table at each level. An Index is
// not synchronized; callers serialize operations per cursor and per address
// space themselves.
package pagetables

// Translation geometry for 4 KiB pages on amd64. Virtual addresses are
// 48-bit canonical; each level above the leaf decodes 9 bits.
const (
	pageShift = 12
	pageSize  = 1 << pageShift

	ptShift   = 12
	pdtShift  = 21
	pdptShift = 30
	pml4Shift = 39

	entriesPerPage = 512
	entrySize      = 8

	// canonicalMask strips the architectural sign extension of bit 47.
	canonicalMask = uintptr(1)<<48 - 1

	// Spans covered by a single entry at each level, used to mask a
	// virtual address down before extracting the next level's index.
	pml4SpanMask = uintptr(1)<<pml4Shift - 1
	pdptSpanMask = uintptr(1)<<pdptShift - 1
)

// Levels of the hierarchy, ordered leaf to root. The root slot of an Index
// holds the PML4; release walks upward from the PT.
const (
	levelPT = iota
	levelPDT
	levelPDPT
	levelPML4
	numLevels
)

var levelNames = [numLevels]string{"pt", "pdt", "pdpt", "pml4t"}

// PTEs is a single table page: 512 entry words.
type PTEs [entriesPerPage]PTE

// Empty reports whether no entry in the table is live. The whole page is
// checked, not just architecturally meaningful slots: any nonzero word marks
// the table in use.
func (p *PTEs) Empty() bool {
	for i := range p {
		if p[i].load() != 0 {
			return false
		}
	}
	return true
}

// An AddressSpace owns the root (PML4) table of one guest address space for
// that address space's entire lifetime. This package resolves and mutates
// entries within the root but never allocates or frees the root itself.
type AddressSpace interface {
	// RootTable returns the PML4 table. It must not return nil for a
	// live address space.
	RootTable() *PTEs
}

// rootTable fetches and validates the root of as.
func rootTable(as AddressSpace) *PTEs {
	if as == nil {
		panic("pagetables: nil address space")
	}
	root := as.RootTable()
	if root == nil {
		panic("pagetables: address space has nil root table")
	}
	return root
}
