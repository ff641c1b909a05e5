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

package pagepool

import (
	"unsafe"

	"golang.org/x/sys/unix"

	"pvmmu.dev/pvmmu/pkg/pagetables"
)

// mapPages maps npages of zeroed, page-aligned anonymous memory.
func mapPages(npages int) ([]byte, error) {
	return unix.Mmap(-1, 0, npages*pageSize,
		unix.PROT_READ|unix.PROT_WRITE,
		unix.MAP_ANON|unix.MAP_PRIVATE)
}

// unmapPages releases a mapping returned by mapPages.
func unmapPages(mapping []byte) error {
	return unix.Munmap(mapping)
}

// ptes returns the i'th page of the chunk as a table. Mappings are page
// aligned, so the cast preserves entry alignment.
func (c *chunk) ptes(i int) *pagetables.PTEs {
	return (*pagetables.PTEs)(unsafe.Pointer(&c.mapping[i*pageSize]))
}
