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

// MachineAddr is a hypervisor machine address. Page-table entries store
// machine addresses; everything else in the guest works in pseudo-physical
// or virtual addresses. The distinct type keeps the two spaces from mixing
// without an explicit translation.
type MachineAddr uint64

// Hypervisor is the update-sink capability for a paravirtualized guest.
//
// Writes staged with QueuePTUpdate have no visible effect until FlushQueue
// returns. Writes staged before a flush are guaranteed visible after it;
// writes staged after are not visible until the next flush. The walk code
// flushes before reading through any entry it has queued.
type Hypervisor interface {
	// QueuePTUpdate stages a write of val to the entry slot at machine
	// address slot.
	QueuePTUpdate(slot MachineAddr, val PTE)

	// FlushQueue commits all staged writes.
	FlushQueue()

	// ToMachine translates a pseudo-physical address to a machine
	// address.
	ToMachine(phys uintptr) MachineAddr

	// ToPhysical translates a machine address back to pseudo-physical.
	ToPhysical(ma MachineAddr) uintptr
}
