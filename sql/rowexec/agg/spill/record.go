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

// Package spill implements the hybrid hash-aggregation overflow protocol
// of spec.md §4.7: partitioning a full hash table's entries into on-disk
// batch files keyed on hash, and recursively re-partitioning a reload
// batch that is itself too large. Each SpillFile is backed by its own
// boltdb/bolt database (the module's stand-in for the buffered-file
// abstraction spec.md §1 declares out of scope) so a record can be
// appended and later streamed back in one bucket at a time without holding
// the whole batch in memory.
package spill

import (
	"bytes"
	"encoding/gob"
)

// Record is the on-disk record format of §4.7/§6: a hash key plus the
// representative-tuple bytes, the PerGroup-array bytes and the serialized
// transition values, concatenated in PerTrans order. Values are carried as
// already-encoded byte slices so the engine never needs to know a
// concrete Go type for a by-reference transition state — the caller
// (StateKit-aware code) is responsible for encoding/decoding them via the
// catalog's serialize/deserialize or a raw gob image for by-value states.
type Record struct {
	HashKey        uint32
	Representative []byte
	PerGroupBlob   []byte
	TransBlobs     [][]byte
}

// Encode serializes r with encoding/gob — the teacher's codebase favors
// the standard library for ephemeral spill-record framing rather than a
// wire-stability-sensitive format, since spill files never outlive one
// query execution on one host.
func (r Record) Encode() ([]byte, error) {
	var buf bytes.Buffer
	if err := gob.NewEncoder(&buf).Encode(r); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// DecodeRecord is the inverse of Encode.
func DecodeRecord(data []byte) (Record, error) {
	var r Record
	err := gob.NewDecoder(bytes.NewReader(data)).Decode(&r)
	return r, err
}
