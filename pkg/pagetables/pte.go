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
	"sync/atomic"
)

// amd64 page-table entry bits. Entries installed for intermediate tables
// carry present|writable|user; the frame field holds a machine address, not
// a pseudo-physical one.
const (
	present   = 0x001
	writable  = 0x002
	user      = 0x004
	frameMask = 0x000ffffffffff000
)

// PTE is a single entry word.
//
// This package never stores a PTE itself; entry words reach memory only
// through the Hypervisor's update queue. Loads are atomic so a flush applied
// from the hypervisor side is observed whole.
type PTE uint64

// Valid returns true iff the present bit is set.
func (p *PTE) Valid() bool {
	return p.load()&present != 0
}

// Writable returns true iff the entry permits writes.
func (p *PTE) Writable() bool {
	return p.load()&writable != 0
}

// User returns true iff the entry permits user-mode access.
func (p *PTE) User() bool {
	return p.load()&user != 0
}

// Machine returns the machine address of the frame the entry points at.
func (p *PTE) Machine() MachineAddr {
	return MachineAddr(p.load() & frameMask)
}

// Load returns the raw entry word.
func (p *PTE) Load() uint64 {
	return p.load()
}

// Store overwrites the raw entry word. Only an update-queue implementation
// applying a flushed write may call this; the walk code never does.
func (p *PTE) Store(v uint64) {
	atomic.StoreUint64((*uint64)(p), v)
}

func (p *PTE) load() uint64 {
	return atomic.LoadUint64((*uint64)(p))
}

// tableEntry builds the entry word installed for a freshly allocated
// intermediate table living at machine address ma.
func tableEntry(ma MachineAddr) PTE {
	return PTE(uint64(ma)&frameMask | present | writable | user)
}
