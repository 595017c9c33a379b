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

// Package arena models the memory-context tree of spec.md §3/§5:
// tmpcontext, aggcontexts[setno], hashcontext and outputcontext, each a
// node in a hierarchy whose Reset cascades to children and fires any
// callback registered for that generation (the "aggcontext callback" API
// of §6, used by register_callback).
//
// Go's garbage collector makes the byte-arena itself unnecessary — values
// allocated "in" an Arena are ordinary Go values reachable however the
// caller holds them — so Arena is pure bookkeeping: generation counting
// (to invalidate stale handles) and cascading reset-callback dispatch. No
// suitable third-party arena allocator appears anywhere in the retrieval
// pack (the closest analogues, erigon's state snapshots and sneller's
// vector pools, solve a different problem — pooled reuse of fixed-shape
// buffers, not hierarchical scoped lifetime), so this component is
// deliberately stdlib-only; see DESIGN.md.
package arena

import "sync"

// Arena is one node of the memory-context tree.
type Arena struct {
	mu         sync.Mutex
	name       string
	parent     *Arena
	children   []*Arena
	generation uint64
	callbacks  []func()
}

// New creates a root arena (used for the operator's top-level contexts).
func New(name string) *Arena {
	return &Arena{name: name}
}

// NewChild creates a child arena whose Reset is cascaded whenever the
// parent resets, mirroring the tree-owned arenas of §5.
func (a *Arena) NewChild(name string) *Arena {
	a.mu.Lock()
	defer a.mu.Unlock()
	child := &Arena{name: name, parent: a}
	a.children = append(a.children, child)
	return child
}

// OnReset registers a shutdown callback that runs the next time this arena
// (not a child) is reset — the register_callback entry of the aggregate
// support API (§6). Callbacks do NOT run on error unwind (§7); callers that
// need error-path cleanup must arrange for it themselves via defer.
func (a *Arena) OnReset(fn func()) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.callbacks = append(a.callbacks, fn)
}

// Reset fires this arena's registered callbacks, bumps its generation (so
// handles minted before this point are logically stale), and cascades to
// every child arena, matching "resetting a parent cascades" (§3).
func (a *Arena) Reset() {
	a.mu.Lock()
	callbacks := a.callbacks
	a.callbacks = nil
	a.generation++
	children := append([]*Arena(nil), a.children...)
	a.mu.Unlock()

	for _, cb := range callbacks {
		cb()
	}
	for _, c := range children {
		c.Reset()
	}
}

// Generation returns the current reset generation, used by callers that
// need to detect "has my group's arena been reset since I last looked".
func (a *Arena) Generation() uint64 {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.generation
}

// Name returns the arena's diagnostic name (e.g. "aggcontext[2]").
func (a *Arena) Name() string { return a.name }
