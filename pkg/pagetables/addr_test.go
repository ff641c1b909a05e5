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
	"testing"
)

func TestIndexExtraction(t *testing.T) {
	for _, tc := range []struct {
		va              uintptr
		pml4, pdpt, pdt uint16
	}{
		{0, 0, 0, 0},
		{1 << pml4Shift, 1, 0, 0},
		{1 << pdptShift, 0, 1, 0},
		{1 << pdtShift, 0, 0, 1},
		{0x0000123456789000, 0x24, 0xd1, 0xb3},
		{511 << pml4Shift, 511, 0, 0},
		{uintptr(42)<<pml4Shift | uintptr(7)<<pdptShift | uintptr(511)<<pdtShift, 42, 7, 511},
	} {
		if got := pml4Index(tc.va); got != tc.pml4 {
			t.Errorf("pml4Index(%#x) = %d, want %d", tc.va, got, tc.pml4)
		}
		if got := pdptIndex(tc.va); got != tc.pdpt {
			t.Errorf("pdptIndex(%#x) = %d, want %d", tc.va, got, tc.pdpt)
		}
		if got := pdtIndex(tc.va); got != tc.pdt {
			t.Errorf("pdtIndex(%#x) = %d, want %d", tc.va, got, tc.pdt)
		}
	}
}

func TestSignExtensionIgnored(t *testing.T) {
	// A canonical negative address decomposes identically to the same
	// address with bits 48+ cleared.
	const high uintptr = 0xffff876543210000
	low := high & canonicalMask
	if got, want := pml4Index(high), pml4Index(low); got != want {
		t.Errorf("pml4Index(%#x) = %d, pml4Index(%#x) = %d; want equal", high, got, low, want)
	}
	if got, want := pdptIndex(high), pdptIndex(low); got != want {
		t.Errorf("pdptIndex mismatch: %d vs %d", got, want)
	}
	if got, want := pdtIndex(high), pdtIndex(low); got != want {
		t.Errorf("pdtIndex mismatch: %d vs %d", got, want)
	}
}

func TestCanonical(t *testing.T) {
	for _, tc := range []struct {
		va uintptr
		ok bool
	}{
		{0, true},
		{0x00007fffffffffff, true},
		{0xffff800000000000, true},
		{0xffffffffffffffff, true},
		{0x0000800000000000, false},
		{0xfffe000000000000, false},
		{1 << 48, false},
	} {
		if got := isCanonical(tc.va); got != tc.ok {
			t.Errorf("isCanonical(%#x) = %v, want %v", tc.va, got, tc.ok)
		}
	}
}

func TestCheckVAPanics(t *testing.T) {
	defer func() {
		if recover() == nil {
			t.Errorf("checkVA accepted a non-canonical address")
		}
	}()
	checkVA(0x0000800000000000)
}

func TestSlotIndexLeafPanics(t *testing.T) {
	defer func() {
		if recover() == nil {
			t.Errorf("slotIndex accepted the leaf level")
		}
	}()
	slotIndex(levelPT, 0)
}
