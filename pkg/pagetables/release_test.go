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

package pagetables_test

import (
	"testing"
	"unsafe"

	"github.com/google/go-cmp/cmp"

	"pvmmu.dev/pvmmu/pkg/hvsim"
	"pvmmu.dev/pvmmu/pkg/pagetables"
)

func mustPanic(t *testing.T, what string, f func()) {
	t.Helper()
	defer func() {
		if recover() == nil {
			t.Errorf("%s did not panic", what)
		}
	}()
	f()
}

func TestSelfMapAbort(t *testing.T) {
	e := newEnv(t)
	const v1 = 0x0000123456789000

	e.hold(t, v1)
	e.installLeaf(t, v1)
	live := e.alloc.InUse()
	flushes := e.machine.Stats().Flushes

	// An address backed by the leaf table's own page: releasing it would
	// require reading the table after its mapping is gone.
	hazard := uintptr(unsafe.Pointer(e.idx.PT()))

	res := e.idx.Release(e.space, hazard)
	want := pagetables.ReleaseResult{Status: pagetables.ReleaseAborted}
	if diff := cmp.Diff(want, res); diff != "" {
		t.Errorf("Release at self-mapped table (-want +got):\n%s", diff)
	}

	// Nothing was zapped, freed, or even flushed.
	if got := e.alloc.InUse(); got != live {
		t.Errorf("table count changed: %d -> %d", live, got)
	}
	if got := e.machine.Stats().Flushes; got != flushes {
		t.Errorf("aborted release flushed the queue")
	}
	if !e.space.RootTable()[pml4Slot(v1)].Valid() {
		t.Errorf("root entry gone after aborted release")
	}
	if e.idx.PT() == nil {
		t.Errorf("cursor leaf pointer cleared by aborted release")
	}
}

func TestReleaseDesyncPanics(t *testing.T) {
	e := newEnv(t)
	const v1 = 0x0000123456789000
	const v2 = v1 + (1 << 30) // shares only the PDPT

	e.hold(t, v1)

	// Populate a cursor for v2: PDPT resolves, PDT is absent.
	idx2 := pagetables.New(e.alloc, e.machine)
	if idx2.Inspect(e.space, v2) {
		t.Fatalf("Inspect(%#x) succeeded unexpectedly", v2)
	}

	// Behind the cursor's back, link a PDT for v2. The cursor now says
	// "unresolved" while the hierarchy says "present".
	rogue, err := e.alloc.NewPTEs()
	if err != nil {
		t.Fatalf("NewPTEs: %v", err)
	}
	slot := e.machine.ToMachine(e.alloc.PhysicalFor(idx2.PDPT()) + uintptr((v2>>30)&511)*8)
	e.machine.QueuePTUpdate(slot, pagetables.PTE(uint64(e.machine.ToMachine(e.alloc.PhysicalFor(rogue)))|0x7))
	e.machine.FlushQueue()

	mustPanic(t, "Release on a desynchronized cursor", func() {
		idx2.Release(e.space, v2)
	})
}

// noFreeAllocator hides the Freer side of a RuntimeAllocator.
type noFreeAllocator struct {
	a *pagetables.RuntimeAllocator
}

func (n *noFreeAllocator) NewPTEs() (*pagetables.PTEs, error)      { return n.a.NewPTEs() }
func (n *noFreeAllocator) PhysicalFor(p *pagetables.PTEs) uintptr  { return n.a.PhysicalFor(p) }
func (n *noFreeAllocator) LookupPTEs(phys uintptr) *pagetables.PTEs { return n.a.LookupPTEs(phys) }

func TestReleaseWithoutFreerUnlinksOnly(t *testing.T) {
	alloc := &noFreeAllocator{a: pagetables.NewRuntimeAllocator()}
	machine := hvsim.New(alloc, hvsim.Options{})
	space, err := hvsim.NewSpace(alloc)
	if err != nil {
		t.Fatalf("NewSpace: %v", err)
	}
	idx := pagetables.New(alloc, machine)

	const va = 0x0000123456789000
	if _, err := idx.Hold(space, va); err != nil {
		t.Fatalf("Hold: %v", err)
	}

	res := idx.Release(space, va)
	want := pagetables.ReleaseResult{Status: pagetables.ReleaseCompleted, Zapped: 3, Freed: 0}
	if diff := cmp.Diff(want, res); diff != "" {
		t.Errorf("Release without a freer (-want +got):\n%s", diff)
	}
	if idx.Inspect(space, va) {
		t.Errorf("hierarchy still linked after release")
	}
}

func TestCursorLifecycle(t *testing.T) {
	e := newEnv(t)

	mustPanic(t, "New without allocator", func() {
		pagetables.New(nil, e.machine)
	})
	mustPanic(t, "New without hypervisor", func() {
		pagetables.New(e.alloc, nil)
	})

	idx := pagetables.New(e.alloc, e.machine)
	idx.Close()
	mustPanic(t, "Inspect on closed cursor", func() {
		idx.Inspect(e.space, 0x1000)
	})
	mustPanic(t, "accessor on closed cursor", func() {
		idx.PML4T()
	})
	mustPanic(t, "double Close", func() {
		idx.Close()
	})
}

func TestNonCanonicalPanics(t *testing.T) {
	e := newEnv(t)
	mustPanic(t, "Hold of non-canonical address", func() {
		e.idx.Hold(e.space, 0x0000800000000000)
	})
	mustPanic(t, "Inspect of non-canonical address", func() {
		e.idx.Inspect(e.space, 1<<48)
	})
}
