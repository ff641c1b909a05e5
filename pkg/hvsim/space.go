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

package hvsim

import (
	"pvmmu.dev/pvmmu/pkg/pagetables"
)

// Space is a minimal guest address space: it owns a root table for its
// whole lifetime. It implements pagetables.AddressSpace.
type Space struct {
	allocator pagetables.Allocator
	root      *pagetables.PTEs
}

// NewSpace allocates a root table and returns the owning Space.
func NewSpace(allocator pagetables.Allocator) (*Space, error) {
	root, err := allocator.NewPTEs()
	if err != nil {
		return nil, err
	}
	return &Space{allocator: allocator, root: root}, nil
}

// RootTable implements pagetables.AddressSpace.RootTable.
func (s *Space) RootTable() *pagetables.PTEs {
	if s.root == nil {
		panic("hvsim: use of closed space")
	}
	return s.root
}

// Close releases the root table. The caller guarantees every intermediate
// table under it has already been released; only the space itself may free
// its root.
func (s *Space) Close() {
	root := s.RootTable()
	s.root = nil
	if f, ok := s.allocator.(pagetables.Freer); ok {
		f.FreePTEs(root)
	}
}
