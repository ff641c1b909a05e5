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

// pml4Index extracts the PML4 slot decoded from va. amd64 sign extends bit
// 47 upward, so the high bits are masked off before shifting.
func pml4Index(va uintptr) uint16 {
	return uint16((va & canonicalMask) >> pml4Shift)
}

// pdptIndex extracts the PDPT slot decoded from va.
func pdptIndex(va uintptr) uint16 {
	return uint16((va & pml4SpanMask) >> pdptShift)
}

// pdtIndex extracts the PDT slot decoded from va.
func pdtIndex(va uintptr) uint16 {
	return uint16((va & pdptSpanMask) >> pdtShift)
}

// slotIndex returns the index within the table at the given level of the
// entry governing va. The leaf (PT) level holds frame mappings, not child
// tables, and is never indexed by the walk.
func slotIndex(level int, va uintptr) uint16 {
	switch level {
	case levelPML4:
		return pml4Index(va)
	case levelPDPT:
		return pdptIndex(va)
	case levelPDT:
		return pdtIndex(va)
	}
	panic("pagetables: no child slot at level " + levelNames[level])
}

// isCanonical reports whether va is a representable amd64 virtual address:
// bits 48+ must replicate bit 47.
func isCanonical(va uintptr) bool {
	const half = uintptr(1) << 47
	return va < half || va >= ^(half-1)
}

// checkVA rejects non-canonical addresses as caller bugs.
func checkVA(va uintptr) {
	if !isCanonical(va) {
		panic("pagetables: non-canonical virtual address")
	}
}
