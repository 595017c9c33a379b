// Copyright 2020-2021 Dolthub, Inc.
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

// Package aggexec is the root of the aggregate execution engine module;
// this file holds the YAML-loaded tuning knobs the engine is constructed
// with (work-memory budget, spill batch count, redistribution ring sizing,
// worker count), the way the teacher's server package decodes a YAML
// configuration document into a typed struct.
package aggexec

import (
	"os"

	"gopkg.in/yaml.v2"
)

// Config holds the tunable parameters spec.md leaves to the operator: the
// SpillEngine's sizing inputs (§4.7) and the Redistributor's ring/worker
// topology (§4.8). Zero-value fields fall back to the documented
// defaults via Normalize.
type Config struct {
	// WorkMemBytes is the per-hash-table work-memory budget M; §4.7
	// computes nentries = floor(M/E) from it.
	WorkMemBytes int64 `yaml:"work_mem_bytes"`

	// NBatches is the fixed spill partition count; §4.7 default 32.
	NBatches int `yaml:"nbatches"`

	// RingBufferBytes is the byte capacity of each Redistributor SPSC
	// ring buffer (§4.8); implementation-defined per spec, fixed per
	// table.
	RingBufferBytes int `yaml:"ring_buffer_bytes"`

	// NumWorkers is the number of parallel worker processes the
	// Redistributor coordinates (§4.8, §5).
	NumWorkers int `yaml:"num_workers"`

	// SpillDir is the scratch directory SpillEngine and Redistributor
	// create their backing files under.
	SpillDir string `yaml:"spill_dir"`
}

// Defaults returns the documented default configuration.
func Defaults() Config {
	return Config{
		WorkMemBytes:    64 << 20, // 64MiB, a conservative work_mem default
		NBatches:        32,
		RingBufferBytes: 1 << 20, // 1MiB
		NumWorkers:      1,
		SpillDir:        os.TempDir(),
	}
}

// Normalize fills any zero-valued field with its documented default,
// mirroring the teacher's pattern of a decoded config struct plus a
// defaulting pass rather than requiring every field in the YAML document.
func (c Config) Normalize() Config {
	d := Defaults()
	if c.WorkMemBytes <= 0 {
		c.WorkMemBytes = d.WorkMemBytes
	}
	if c.NBatches <= 0 {
		c.NBatches = d.NBatches
	}
	if c.RingBufferBytes <= 0 {
		c.RingBufferBytes = d.RingBufferBytes
	}
	if c.NumWorkers <= 0 {
		c.NumWorkers = d.NumWorkers
	}
	if c.SpillDir == "" {
		c.SpillDir = d.SpillDir
	}
	return c
}

// LoadConfig decodes a YAML document at path into a Config, defaulting any
// field the document omits.
func LoadConfig(path string) (Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Config{}, err
	}
	var c Config
	if err := yaml.Unmarshal(data, &c); err != nil {
		return Config{}, err
	}
	return c.Normalize(), nil
}
