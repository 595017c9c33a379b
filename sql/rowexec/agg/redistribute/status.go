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

// Package redistribute implements the parallel-worker repartitioning
// subsystem of spec.md §4.8: each worker hashes a row's grouping key and
// either consumes it locally or ships it to the peer that owns that key's
// partition, via lock-free SPSC ring buffers with file-backed overflow.
package redistribute

import "sync/atomic"

// Status is one worker's lifecycle state (§4.8, §6): monotone along
// None < Init < ProduceDone < ConsumeDone, except Error may be entered
// from any state.
type Status int32

const (
	None Status = iota
	Init
	ProduceDone
	ConsumeDone
	Error
)

func (s Status) String() string {
	switch s {
	case None:
		return "None"
	case Init:
		return "Init"
	case ProduceDone:
		return "ProduceDone"
	case ConsumeDone:
		return "ConsumeDone"
	case Error:
		return "Error"
	default:
		return "Unknown"
	}
}

// StatusBoard is the shared control plane array described in §4.8:
// status[w] per worker, visible via memory-order writes on a worker's own
// slot and reads of peers' slots (modeled with atomics rather than a
// mutex since only the owner ever writes its own slot).
type StatusBoard struct {
	slots []int32
}

// NewStatusBoard allocates a board for numWorkers, all starting at None.
func NewStatusBoard(numWorkers int) *StatusBoard {
	return &StatusBoard{slots: make([]int32, numWorkers)}
}

// Set updates worker w's own slot. Callers must only call this for their
// own worker id; cross-worker status transitions are not this type's
// concern (§4.8 "visible via memory-order writes on a worker's own slot").
func (b *StatusBoard) Set(w int, s Status) {
	atomic.StoreInt32(&b.slots[w], int32(s))
}

// Get reads worker w's slot, the peer-status poll of §4.8's shutdown/
// consume protocol.
func (b *StatusBoard) Get(w int) Status {
	return Status(atomic.LoadInt32(&b.slots[w]))
}

// AllAtLeast reports whether every worker's status is >= min, the
// "when all peers have reached >= ConsumeDone" condition of §4.8.
func (b *StatusBoard) AllAtLeast(min Status) bool {
	for i := range b.slots {
		if Status(atomic.LoadInt32(&b.slots[i])) < min {
			return false
		}
	}
	return true
}

// AnyError reports whether any worker has transitioned to Error, used
// alongside a process-wide parallel-error flag to abort observers
// (§4.8, §7 cross-worker error propagation).
func (b *StatusBoard) AnyError() bool {
	for i := range b.slots {
		if Status(atomic.LoadInt32(&b.slots[i])) == Error {
			return true
		}
	}
	return false
}
