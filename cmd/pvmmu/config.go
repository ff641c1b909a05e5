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
	"fmt"

	"github.com/BurntSushi/toml"

	"pvmmu.dev/pvmmu/pkg/hvsim"
	"pvmmu.dev/pvmmu/pkg/pagepool"
)

// Config is the TOML-backed configuration shared by all commands.
type Config struct {
	Pool struct {
		ChunkPages int    `toml:"chunk_pages"`
		MaxPages   int    `toml:"max_pages"`
		PhysBase   uint64 `toml:"phys_base"`
	} `toml:"pool"`

	Machine struct {
		Offset uint64 `toml:"offset"`
	} `toml:"machine"`
}

// loadConfig reads path, or returns defaults when path is empty.
func loadConfig(path string) (Config, error) {
	var cfg Config
	if path == "" {
		return cfg, nil
	}
	meta, err := toml.DecodeFile(path, &cfg)
	if err != nil {
		return cfg, fmt.Errorf("reading %s: %w", path, err)
	}
	if undecoded := meta.Undecoded(); len(undecoded) > 0 {
		return cfg, fmt.Errorf("unknown configuration key %q in %s", undecoded[0], path)
	}
	return cfg, nil
}

// poolConfig converts the TOML section to pool options.
func (c *Config) poolConfig() pagepool.Config {
	return pagepool.Config{
		ChunkPages: c.Pool.ChunkPages,
		MaxPages:   c.Pool.MaxPages,
		PhysBase:   uintptr(c.Pool.PhysBase),
	}
}

// machineOptions converts the TOML section to simulator options.
func (c *Config) machineOptions() hvsim.Options {
	return hvsim.Options{Offset: c.Machine.Offset}
}
