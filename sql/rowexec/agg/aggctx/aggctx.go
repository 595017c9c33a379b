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

// Package aggctx is the aggregate-function support API of spec.md §6: the
// handful of entry points a transition or final function can use to tell
// it is being driven by this engine (rather than called as a plain
// function) and to get at the current grouping-set's arena.
//
// The source hangs this off a function call's persistent flinfo->fn_extra;
// §9 explicitly warns against that here because one call site services
// many grouping sets. Instead CallContext is a standalone value built per
// (PerTrans, grouping set) by whoever calls New, never cached on the
// Aggregation itself; TransitionDriver and FinalizeDriver do not build or
// pass one.
package aggctx

import "github.com/dolthub/aggexec/sql/rowexec/agg/arena"

// Kind is the answer to check_call_context.
type Kind int

const (
	None Kind = iota
	Aggregate
	Window
)

// AggrefInfo is the minimal shape of "the current aggregate call
// expression" that get_aggref exposes; ordered-set aggregates use it to
// recover their sort specification inside a custom finalfn.
type AggrefInfo struct {
	Name       string
	NumArgs    int
	DirectArgs int
}

// CallContext is passed to transition/final functions that need to call
// back into the engine.
type CallContext struct {
	kind     Kind
	setArena *arena.Arena
	tmp      *arena.Arena
	aggref   *AggrefInfo
}

// New builds a CallContext for a transition/final function invocation
// against the given grouping-set arena.
func New(kind Kind, setArena, tmp *arena.Arena, aggref *AggrefInfo) *CallContext {
	return &CallContext{kind: kind, setArena: setArena, tmp: tmp, aggref: aggref}
}

// CheckCallContext answers "am I being invoked by the aggregate engine,
// and if so in which grouping-set arena can I allocate state that
// persists across rows of this group".
func (c *CallContext) CheckCallContext() (Kind, *arena.Arena) {
	if c == nil {
		return None, nil
	}
	return c.kind, c.setArena
}

// GetAggref returns the current aggregate call expression, or nil.
func (c *CallContext) GetAggref() *AggrefInfo {
	if c == nil {
		return nil
	}
	return c.aggref
}

// GetTempMemoryContext returns a short-lived arena safe for a finalfn to
// reset without disturbing any other group's state.
func (c *CallContext) GetTempMemoryContext() *arena.Arena {
	if c == nil {
		return nil
	}
	return c.tmp
}

// RegisterCallback registers a shutdown hook that fires when the current
// grouping-set arena is rescanned (group boundary or operator rescan), not
// on error paths (§7).
func (c *CallContext) RegisterCallback(fn func()) {
	if c == nil || c.setArena == nil {
		return
	}
	c.setArena.OnReset(fn)
}
