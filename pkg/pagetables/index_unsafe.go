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
	"unsafe"
)

// pageFor returns the virtual page frame number of a table's backing page.
// Table pointers are virtual addresses in the same space the hierarchy maps,
// which is what makes the self-mapping hazard possible at all.
func pageFor(ptes *PTEs) uintptr {
	return uintptr(unsafe.Pointer(ptes)) >> pageShift
}
