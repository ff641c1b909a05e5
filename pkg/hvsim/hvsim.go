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

// Package hvsim is an in-process stand-in for a hypervisor's batched
// page-table update mechanism.
//
// A Machine implements pagetables.Hypervisor over a backing allocator:
// queued entry writes are staged and have no effect until FlushQueue, which
// resolves each slot's machine address through the allocator and stores the
// entry word. Machine addresses are pseudo-physical addresses displaced by a
// fixed offset, standing in for the real machine-frame translation tables.
package hvsim

import (
	"github.com/sirupsen/logrus"

	"pvmmu.dev/pvmmu/pkg/pagetables"
)

const (
	pageSize  = 4096
	entrySize = 8

	// defaultOffset displaces machine addresses far from any
	// pseudo-physical address the allocators hand out, so an
	// untranslated address faults the lookup instead of aliasing a
	// real table.
	defaultOffset = 0x40_0000_0000
)

type update struct {
	slot pagetables.MachineAddr
	val  pagetables.PTE
}

// Stats counts update-queue traffic.
type Stats struct {
	// Queued is the number of entry writes staged so far.
	Queued uint64

	// Applied is the number of entry writes committed by flushes.
	Applied uint64

	// Flushes is the number of FlushQueue calls, including empty ones.
	Flushes uint64
}

// Options configures a Machine.
type Options struct {
	// Offset is the machine-address displacement. Zero means
	// defaultOffset.
	Offset uint64

	// Logger receives debug-level traces of queued and flushed updates.
	// Nil means the standard logger.
	Logger *logrus.Logger
}

// Machine simulates the hypervisor side of the update protocol.
//
// A Machine is not synchronized; like the cursors driving it, it expects
// the caller to serialize operations.
type Machine struct {
	allocator pagetables.Allocator
	offset    uint64
	pending   []update
	stats     Stats
	log       *logrus.Logger
}

// New returns a Machine applying updates through allocator.
func New(allocator pagetables.Allocator, opts Options) *Machine {
	if allocator == nil {
		panic("hvsim: New without an allocator")
	}
	offset := opts.Offset
	if offset == 0 {
		offset = defaultOffset
	}
	log := opts.Logger
	if log == nil {
		log = logrus.StandardLogger()
	}
	return &Machine{
		allocator: allocator,
		offset:    offset,
		log:       log,
	}
}

// QueuePTUpdate implements pagetables.Hypervisor.QueuePTUpdate.
func (m *Machine) QueuePTUpdate(slot pagetables.MachineAddr, val pagetables.PTE) {
	if uint64(slot)%entrySize != 0 {
		panic("hvsim: misaligned entry slot")
	}
	m.pending = append(m.pending, update{slot: slot, val: val})
	m.stats.Queued++
	m.log.WithFields(logrus.Fields{
		"slot":  uint64(slot),
		"entry": val.Load(),
	}).Debug("queued pt update")
}

// FlushQueue implements pagetables.Hypervisor.FlushQueue. Staged writes are
// applied in queue order.
func (m *Machine) FlushQueue() {
	for _, u := range m.pending {
		phys := m.ToPhysical(u.slot)
		table := m.allocator.LookupPTEs(phys &^ (pageSize - 1))
		table[(phys%pageSize)/entrySize].Store(u.val.Load())
		m.stats.Applied++
	}
	n := len(m.pending)
	m.pending = m.pending[:0]
	m.stats.Flushes++
	m.log.WithField("applied", n).Debug("flushed pt update queue")
}

// ToMachine implements pagetables.Hypervisor.ToMachine.
func (m *Machine) ToMachine(phys uintptr) pagetables.MachineAddr {
	return pagetables.MachineAddr(uint64(phys) + m.offset)
}

// ToPhysical implements pagetables.Hypervisor.ToPhysical.
func (m *Machine) ToPhysical(ma pagetables.MachineAddr) uintptr {
	if uint64(ma) < m.offset {
		panic("hvsim: address is not a machine address")
	}
	return uintptr(uint64(ma) - m.offset)
}

// Pending returns the number of staged, unflushed writes.
func (m *Machine) Pending() int {
	return len(m.pending)
}

// Stats returns a snapshot of queue counters.
func (m *Machine) Stats() Stats {
	return m.stats
}
