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

// Package plan holds the planner-supplied contract the aggregate engine
// consumes: the Agg node tree, its strategy, split mode and grouping-set
// layout (§6). Nothing here executes; sql/rowexec/agg is the runtime that
// walks this tree.
package plan

import (
	"fmt"

	"github.com/dolthub/aggexec/sql"
)

// Strategy is the execution strategy of one phase's worth of an Agg node,
// as named in §4.2.
type Strategy byte

const (
	Plain Strategy = iota
	Sorted
	Hashed
	Mixed
)

func (s Strategy) String() string {
	switch s {
	case Plain:
		return "PLAIN"
	case Sorted:
		return "SORTED"
	case Hashed:
		return "HASHED"
	case Mixed:
		return "MIXED"
	default:
		return "UNKNOWN"
	}
}

// SplitMode packs the two independent "skip final" / "combine" bits plus
// serialize/deserialize named in §6: NONE, INITIAL_SERIAL, COMBINE_DESERIAL,
// COMBINE, SERIAL, DESERIAL.
type SplitMode struct {
	SkipFinal  bool
	Combine    bool
	Serialize  bool
	Deserialize bool
}

var (
	SplitNone            = SplitMode{}
	SplitInitialSerial   = SplitMode{SkipFinal: true, Serialize: true}
	SplitCombineDeserial = SplitMode{Combine: true, Deserialize: true}
	SplitCombine         = SplitMode{SkipFinal: true, Combine: true}
	SplitSerial          = SplitMode{SkipFinal: true, Serialize: true}
	SplitDeserial        = SplitMode{Combine: true, Deserialize: true}
)

// GroupingSet is one subset of the grouping columns, expressed as an
// ordered prefix of the phase's grouping columns (§3 PerPhase).
type GroupingSet struct {
	// Columns are the grouping-key expressions, most-specific ordering
	// first within a phase's set list (§4.2).
	Columns []sql.Expression
	// PrefixLen is this set's prefix length into the phase's full column
	// list; §4.2's "prefix covers the changed columns" boundary check
	// operates on this length.
	PrefixLen int
}

// AggCall is one aggregate function invocation attached to this node:
// enough of the nominal call identity (§4.1) for StateKit to dedup PerTrans/
// PerAgg, plus the Aggregation implementation itself.
type AggCall struct {
	Agg    sql.Aggregation
	Filter sql.Expression // optional qual (§4.4 step 2a)
}

// SortSpec describes the Sort subnode the planner prefixes onto a chained
// Agg node when a re-sort is needed entering the next phase (§4.2, §6).
type SortSpec struct {
	Fields sql.SortFields
}

// AggNode is one phase of the plan tree rooted at an Agg node (§6): a
// strategy, split mode, the grouping sets it computes, its aggregate calls,
// an optional re-sort prefix, and the chain of further phases. PLAIN nodes
// have no Chain; hashed chained nodes must precede sorted chained nodes
// (checked by Validate).
type AggNode struct {
	Strategy Strategy
	Split    SplitMode

	GroupingSets []GroupingSet
	Calls        []AggCall

	// Having is evaluated by FinalizeDriver step 5 against the projected
	// output row.
	Having sql.Expression

	// Sort is non-nil when this node is entered via a re-sort of the
	// previous phase's output (§4.2 "entering phase k").
	Sort *SortSpec

	// Chain holds sibling hash phases (phase 0) and/or further sorted
	// phases, in the planner's intended execution order.
	Chain []*AggNode
}

// Validate asserts the plan invariants of §6 that the core relies on
// rather than re-derives: hashed chained nodes precede sorted chained
// nodes, PLAIN carries no chain, and every combine-mode call omits
// DISTINCT/ORDER-BY (checked indirectly through the aggregate's declared
// sort spec via sql.DistinctCapable/agg.PerTrans at StateKit-build time,
// not here).
func (n *AggNode) Validate() error {
	if n.Strategy == Plain && len(n.Chain) > 0 {
		return sql.ErrPlanInvariant.New("PLAIN aggregate node must not have a chain")
	}
	sawSorted := false
	for _, c := range n.Chain {
		if c.Strategy == Hashed {
			if sawSorted {
				return sql.ErrPlanInvariant.New("hashed chained nodes must precede sorted chained nodes")
			}
			continue
		}
		sawSorted = true
	}
	if n.Split.Combine && n.Split.SkipFinal && n.Split.Serialize {
		return sql.ErrPlanInvariant.New(fmt.Sprintf("node %s: combine and serialize-initial split modes are mutually exclusive", n.Strategy))
	}
	return nil
}
