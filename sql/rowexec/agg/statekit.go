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

// Package agg is the CORE aggregate execution engine: StateKit,
// GroupHashTable, PhaseScheduler, TransitionDriver, FinalizeDriver and
// their SpillEngine/Redistributor extensions (spec.md §4).
package agg

import (
	"fmt"

	"github.com/dolthub/aggexec/sql"
)

// TransValue is the per-(group, transition) working state described as
// PerGroup in spec.md §3: an opaque value plus the two flags that drive
// advance_transition. Unlike the source's pointer-aliasing "expanded
// object" trick (§9), Go's garbage collector means a by-reference TransValue
// needs no owning-arena bookkeeping to be mutated or replaced safely, so
// Val is carried as a plain interface{}. PerTrans still records whether a
// transition type is ByValue; the SpillEngine (§4.7) and Redistributor do
// not read that flag.
type TransValue struct {
	Val          interface{}
	IsNull       bool
	NoTransValue bool
}

// NewTransValue builds the initial PerGroup state from a PerTrans's
// declared initial value (§3 PerTrans invariants).
func NewTransValue(initial interface{}, initialIsNull bool) TransValue {
	return TransValue{Val: initial, IsNull: initialIsNull, NoTransValue: initialIsNull}
}

// TransFunc is a transition or combine function: given the current
// transition value and the (already filtered, already evaluated)
// argument list, produce the next transition value.
type TransFunc func(state interface{}, args []interface{}) (interface{}, error)

// Advance implements advance_transition (§4.4) for one (group, transition)
// pair. It realizes invariants 1–2 of §8 generically, independent of what
// concrete aggregate owns tv:
//
//  1. a strict transfn never runs on a row with any null argument;
//  2. the first non-null input a strict transfn ever sees becomes the
//     transition value without invoking transfn at all (valid because the
//     caller is responsible for having already coerced args[0] into a
//     value binary-compatible with the transition type, §3);
//  3. once a strict transfn has produced a null result, transValueIsNull
//     stays true for the rest of the group (sticky null) and transfn is
//     no longer invoked.
func Advance(tv *TransValue, strict bool, args []interface{}, invoke TransFunc) error {
	if strict {
		for _, a := range args {
			if a == nil {
				return nil
			}
		}
		if tv.NoTransValue {
			tv.Val = args[0]
			tv.IsNull = false
			tv.NoTransValue = false
			return nil
		}
		if tv.IsNull {
			return nil
		}
	}
	result, err := invoke(tv.Val, args)
	if err != nil {
		return err
	}
	tv.Val = result
	tv.IsNull = result == nil
	return nil
}

// CombineTransition implements the combine-mode transition of §4.4: the
// skeleton is the same as Advance, but Strict is never consulted (and
// NewPerTrans does not check a combinefn's strictness), and the
// noTransValue-initialization branch is NOT the strict-shortcut of
// Advance — the incoming state is always adopted directly on first
// arrival, regardless of whether it is itself null. While the current
// state is null, the next incoming state likewise replaces it instead of
// being passed to combine. This
// mandatory first-input initialization is the §9 "open question": the
// source's hybrid-hash variant skips this branch under combine even though
// nothing else in the surrounding conditions forbids it, which looks like
// an oversight rather than intentional behavior; this port treats
// initializing on first combine input as mandatory and documents the
// deviation here and in DESIGN.md rather than reproducing the omission.
func CombineTransition(tv *TransValue, srcVal interface{}, srcIsNull bool, combine TransFunc) error {
	if tv.NoTransValue || tv.IsNull {
		tv.Val = srcVal
		tv.IsNull = srcIsNull
		tv.NoTransValue = false
		return nil
	}
	result, err := combine(tv.Val, []interface{}{srcVal})
	if err != nil {
		return err
	}
	tv.Val = result
	tv.IsNull = result == nil
	return nil
}

// PerTrans is the transition-state descriptor of §3: one per unique
// transition-state identity, possibly shared by several PerAgg.
type PerTrans struct {
	// Name identifies the transition for diagnostics and for the
	// dedup equality check in AddTrans.
	Name string

	TransFn   TransFunc
	CombineFn TransFunc // nil if this aggregate does not support combine

	Strict bool

	InitialValue  interface{}
	InitialIsNull bool

	// ByValue matches §3: transtype is fixed at construction, and if
	// Strict && InitialIsNull the first input's type must be binary
	// compatible with the transition type — callers (concrete
	// aggregations) are responsible for that coercion before calling
	// Advance; StateKit only records the flag and nothing in the engine
	// reads it.
	ByValue bool

	SerializeFn   func(ctx *sql.Context, state interface{}) ([]byte, error)
	DeserializeFn func(ctx *sql.Context, data []byte) (interface{}, error)

	// NumSortCols/NumDistinctCols describe the DISTINCT/ORDER BY
	// pre-processing of §4.5; zero means no sort is needed and the
	// tuple is aggregated directly off the hot path.
	NumSortCols     int
	NumDistinctCols int
	Sort            sql.SortFields

	// ArgOffset is this PerTrans's column offset into StateKit's
	// combined input projection (§4.1).
	ArgOffset int
	NumArgs   int
}

// NewPerTrans validates the plan invariants of §6/§7 that apply to a
// single transition descriptor and returns it.
func NewPerTrans(pt PerTrans) (*PerTrans, error) {
	// Strict governs only the Advance path (transfn over raw input rows);
	// CombineTransition never consults it, so a transition whose normal
	// path is strict (SUM, COUNT) can still declare a combinefn for
	// partial-aggregation composition.
	if pt.NumSortCols > 0 && pt.CombineFn != nil {
		// combine mode never uses DISTINCT/ORDER BY (§6 invariants).
		return nil, sql.ErrPlanInvariant.New(fmt.Sprintf("transition %q: combine mode cannot be combined with DISTINCT/ORDER BY", pt.Name))
	}
	if pt.Strict && pt.InitialIsNull && pt.NumArgs == 0 {
		return nil, sql.ErrPlanInvariant.New(fmt.Sprintf("transition %q: strict transition with null initial value needs at least one argument", pt.Name))
	}
	cp := pt
	return &cp, nil
}

// PerAgg is the per-aggregate-call descriptor of §3: stronger equality
// than PerTrans (two calls can share a PerTrans but not a PerAgg when
// their finalfn differs, §4.1).
type PerAgg struct {
	Name string
	// TransIndex is the PerTrans this call's state is drawn from
	// (transno in §3).
	TransIndex int

	FinalFn func(ctx *sql.Context, state interface{}, isNull bool, directArgs []interface{}) (interface{}, error)
	// FinalStrict: if set and any argument (state + direct args) is
	// null, FinalFn is skipped and the result is null (§4.6 step 3).
	FinalStrict bool

	DirectArgs []sql.Expression

	// SkipFinal marks a partial-aggregation plan (aggsplit §6): emit
	// SerializeFn(state) (or the raw state) instead of invoking
	// FinalFn.
	SkipFinal bool
}

// StateKit owns the deduplicated PerTrans/PerAgg vectors and the combined
// input projection every TransitionDriver evaluates once per tuple (§4.1).
type StateKit struct {
	Trans []*PerTrans
	Aggs  []*PerAgg

	// transByIdentity lets AddTrans share a PerTrans across aggregate
	// calls whose transition identity (see transIdentityKey) matches
	// (§4.1).
	transByIdentity map[string]int
}

// NewStateKit constructs an empty StateKit ready for AddTrans calls.
func NewStateKit() *StateKit {
	return &StateKit{transByIdentity: make(map[string]int)}
}

// transIdentityKey is the equality StateKit dedups PerTrans on: the
// transition Name, strictness, whether serialize/deserialize functions are
// present, and initial value (null-equals-null), per §4.1; the transition
// type is not part of the key. Two aggregate calls whose
// finalfn differs still land on the same key and therefore share state.
func transIdentityKey(pt PerTrans) string {
	init := "NULL"
	if !pt.InitialIsNull {
		init = fmt.Sprintf("%v", pt.InitialValue)
	}
	hasSer := pt.SerializeFn != nil
	hasDeser := pt.DeserializeFn != nil
	return fmt.Sprintf("%s|%v|%v|%v|%s", pt.Name, pt.Strict, hasSer, hasDeser, init)
}

// AddTrans registers pt, reusing an existing PerTrans index when one with
// an identical identity already exists (§4.1 state sharing), and returns
// its index for PerAgg.TransIndex.
func (k *StateKit) AddTrans(pt PerTrans) (int, error) {
	key := transIdentityKey(pt)
	if idx, ok := k.transByIdentity[key]; ok {
		return idx, nil
	}
	built, err := NewPerTrans(pt)
	if err != nil {
		return 0, err
	}
	built.ArgOffset = totalArgs(k.Trans)
	idx := len(k.Trans)
	k.Trans = append(k.Trans, built)
	k.transByIdentity[key] = idx
	return idx, nil
}

// AddAgg registers a PerAgg descriptor (no dedup: PerAgg equality is
// caller's responsibility per §4.1 — same inputs with a different finalfn
// must not collapse).
func (k *StateKit) AddAgg(pa PerAgg) int {
	cp := pa
	k.Aggs = append(k.Aggs, &cp)
	return len(k.Aggs) - 1
}

func totalArgs(trans []*PerTrans) int {
	total := 0
	for _, t := range trans {
		total += t.NumArgs
	}
	return total
}

// NewGroup allocates a fresh PerGroup array (one TransValue per PerTrans)
// for a newly observed group, the way GroupHashTable populates a miss and
// PhaseScheduler resets a sorted group boundary (§4.3, §4.2).
func (k *StateKit) NewGroup() []TransValue {
	out := make([]TransValue, len(k.Trans))
	for i, t := range k.Trans {
		out[i] = NewTransValue(t.InitialValue, t.InitialIsNull)
	}
	return out
}
