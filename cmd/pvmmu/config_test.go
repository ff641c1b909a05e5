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

package main

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/google/go-cmp/cmp"
)

func TestLoadConfig(t *testing.T) {
	path := filepath.Join(t.TempDir(), "pvmmu.toml")
	data := `
[pool]
chunk_pages = 16
max_pages = 256
phys_base = 0x200000

[machine]
offset = 0x8000000000
`
	if err := os.WriteFile(path, []byte(data), 0644); err != nil {
		t.Fatalf("writing config: %v", err)
	}

	cfg, err := loadConfig(path)
	if err != nil {
		t.Fatalf("loadConfig: %v", err)
	}

	var want Config
	want.Pool.ChunkPages = 16
	want.Pool.MaxPages = 256
	want.Pool.PhysBase = 0x200000
	want.Machine.Offset = 0x8000000000
	if diff := cmp.Diff(want, cfg); diff != "" {
		t.Errorf("config (-want +got):\n%s", diff)
	}
}

func TestLoadConfigEmptyPath(t *testing.T) {
	cfg, err := loadConfig("")
	if err != nil {
		t.Fatalf("loadConfig(\"\"): %v", err)
	}
	if diff := cmp.Diff(Config{}, cfg); diff != "" {
		t.Errorf("defaults (-want +got):\n%s", diff)
	}
}

func TestLoadConfigUnknownKey(t *testing.T) {
	path := filepath.Join(t.TempDir(), "pvmmu.toml")
	if err := os.WriteFile(path, []byte("[pool]\npages = 1\n"), 0644); err != nil {
		t.Fatalf("writing config: %v", err)
	}
	if _, err := loadConfig(path); err == nil {
		t.Errorf("unknown key accepted")
	}
}

func TestParseAddrs(t *testing.T) {
	vas, err := parseAddrs([]string{"0x1000", "ffff800000000000"})
	if err != nil {
		t.Fatalf("parseAddrs: %v", err)
	}
	want := []uintptr{0x1000, 0xffff800000000000}
	if diff := cmp.Diff(want, vas); diff != "" {
		t.Errorf("addresses (-want +got):\n%s", diff)
	}
	if _, err := parseAddrs([]string{"zzz"}); err == nil {
		t.Errorf("bad address accepted")
	}
}
