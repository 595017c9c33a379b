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

// Package rowexec hosts the top-level operator iterators; Aggregate ties
// together sql/rowexec/agg's StateKit, PhaseScheduler, TransitionDriver,
// FinalizeDriver, spill.Engine and redistribute.Redistributor into a single
// pull-based sql.RowIter, the way the teacher's own rowexec package wraps
// its plan nodes into iterators.
package rowexec

import (
	"fmt"
	"io"
	"os"
	"sort"

	"github.com/RoaringBitmap/roaring"
	"github.com/opentracing/opentracing-go"
	"github.com/prometheus/client_golang/prometheus"

	aggexec "github.com/dolthub/aggexec"
	"github.com/dolthub/aggexec/sql"
	"github.com/dolthub/aggexec/sql/expression"
	"github.com/dolthub/aggexec/sql/plan"
	"github.com/dolthub/aggexec/sql/rowexec/agg"
	"github.com/dolthub/aggexec/sql/rowexec/agg/redistribute"
	"github.com/dolthub/aggexec/sql/rowexec/agg/spill"
)

var (
	groupsFinalized = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "aggexec",
		Name:      "groups_finalized_total",
		Help:      "Number of groups finalized by the aggregate operator, by strategy.",
	}, []string{"strategy"})

	rowsConsumed = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: "aggexec",
		Name:      "rows_consumed_total",
		Help:      "Number of input rows consumed by the aggregate operator.",
	})
)

func init() {
	prometheus.MustRegister(groupsFinalized, rowsConsumed)
}

// spillEntrySizeEstimate is the fixed per-entry byte cost used to convert
// Config.WorkMemBytes into a hash table's entry budget (§4.7: "nentries =
// floor(work_mem / per-entry size)"); this port picks one conservative
// constant rather than introspecting concrete TransValue sizes.
const spillEntrySizeEstimate = 256

// AggregateIter drives an entire plan.AggNode chain (§4.2, §6) to
// completion over its child's input. Unlike a strictly row-at-a-time
// pipeline, it fully materializes the child once (Next's first call) and
// then runs every phase in the chain as its own pass: phases feeding a
// combine-mode successor hand it their finalized rows directly (the
// mandatory §4.4 partial-merge contract), every other phase scans the
// materialized base rows independently. This trades the strict
// one-suspension-point-per-pull-boundary model for one clean place a
// single phase's grouping-set fan-out, spill and redistribution logic
// can all be exercised against the same data.
type AggregateIter struct {
	root *plan.AggNode
	cfg  aggexec.Config

	child   sql.RowIter
	ran     bool
	pending []sql.Row
	pendPos int
}

// NewAggregateIter builds an iterator for root (and its Chain) pulling
// from child, tuned by cfg (spill sizing, redistribution topology).
func NewAggregateIter(root *plan.AggNode, child sql.RowIter, cfg aggexec.Config) (*AggregateIter, error) {
	if err := root.Validate(); err != nil {
		return nil, err
	}
	return &AggregateIter{root: root, child: child, cfg: cfg.Normalize()}, nil
}

// Next runs the whole chain to completion on its first call (the single
// suspension point this operator offers its own caller) and then drains
// the accumulated output rows one at a time.
func (it *AggregateIter) Next(ctx *sql.Context) (sql.Row, error) {
	span, _ := opentracing.StartSpanFromContext(ctx, "aggexec.AggregateIter.Next")
	defer span.Finish()

	if !it.ran {
		if err := it.run(ctx); err != nil {
			return nil, err
		}
		it.ran = true
	}
	if it.pendPos >= len(it.pending) {
		return nil, io.EOF
	}
	row := it.pending[it.pendPos]
	it.pendPos++
	return row, nil
}

// run materializes the child and drives every phase node (root plus
// root.Chain) in the planner's intended order.
func (it *AggregateIter) run(ctx *sql.Context) error {
	rows, err := sql.RowsToSlice(ctx, it.child)
	if err != nil {
		return err
	}
	rowsConsumed.Add(float64(len(rows)))

	nodes := append([]*plan.AggNode{it.root}, it.root.Chain...)

	var producerOutputs []sql.Row
	for i, node := range nodes {
		p, err := buildAggPhase(ctx, node, it.cfg)
		if err != nil {
			return err
		}

		input := rows
		if node.Split.Combine {
			input = producerOutputs
		}

		out, err := p.run(ctx, input)
		if err != nil {
			return err
		}
		groupsFinalized.WithLabelValues(node.Strategy.String()).Add(float64(len(out)))

		feedsNext := i+1 < len(nodes) && nodes[i+1].Split.Combine
		if feedsNext {
			producerOutputs = out
		} else {
			it.pending = append(it.pending, out...)
		}
	}
	return nil
}

// Close releases the child iterator. Arenas in this port are just GC'd Go
// values (see sql/rowexec/agg/arena's package doc), so there is no
// explicit rescan/reset step here beyond closing the pull chain.
func (it *AggregateIter) Close(ctx *sql.Context) error {
	return it.child.Close(ctx)
}

// aggPhase is the runtime built from one *plan.AggNode: its own
// StateKit-driven kit/driver/final, plus whichever of the sorted-scheduler
// or per-grouping-set/per-worker hash tables its strategy needs. Worker
// count 1 (the common case) and worker count >1 share the exact same
// table-driving code; only the row-assignment step differs.
type aggPhase struct {
	node   *plan.AggNode
	cfg    aggexec.Config
	kit    *agg.StateKit
	driver *agg.TransitionDriver
	final  *agg.FinalizeDriver

	numWorkers int
	tables     [][]*agg.GroupHashTable // tables[worker][groupingSetIndex]
	engines    [][]*spill.Engine       // engines[worker][groupingSetIndex], lazily populated

	// combineTable is used instead of tables when node.Split.Combine; a
	// combine-mode merge phase only ever targets its first grouping set
	// (§4.1: a merge phase recomposes the same PerTrans vector its
	// producer phase built, not a fresh grouping-sets fan-out).
	combineTable *agg.GroupHashTable
}

func buildAggPhase(ctx *sql.Context, node *plan.AggNode, cfg aggexec.Config) (*aggPhase, error) {
	kit, driver, final, err := buildEngine(ctx, node)
	if err != nil {
		return nil, err
	}
	p := &aggPhase{node: node, cfg: cfg, kit: kit, driver: driver, final: final}

	switch {
	case node.Split.Combine:
		var cols agg.HashKeyCols
		if len(node.GroupingSets) > 0 {
			gs := node.GroupingSets[0]
			cols = agg.HashKeyCols{KeyExprs: gs.Columns, NumCols: len(gs.Columns), Membership: membershipOf(gs.Columns)}
		}
		p.combineTable = agg.NewGroupHashTable(cols, kit)

	case node.Strategy == plan.Hashed:
		nw := cfg.NumWorkers
		if nw < 1 {
			nw = 1
		}
		p.numWorkers = nw
		p.tables = make([][]*agg.GroupHashTable, nw)
		p.engines = make([][]*spill.Engine, nw)
		for w := 0; w < nw; w++ {
			p.tables[w] = make([]*agg.GroupHashTable, len(node.GroupingSets))
			p.engines[w] = make([]*spill.Engine, len(node.GroupingSets))
			for s, gs := range node.GroupingSets {
				cols := agg.HashKeyCols{KeyExprs: gs.Columns, NumCols: len(gs.Columns), Membership: membershipOf(gs.Columns)}
				p.tables[w][s] = agg.NewGroupHashTable(cols, kit)
			}
		}
	}

	return p, nil
}

// run dispatches to this phase's strategy and returns the rows it
// finalized (in project()'s output shape: masked representative columns
// followed by per-PerAgg results).
func (p *aggPhase) run(ctx *sql.Context, input []sql.Row) ([]sql.Row, error) {
	var out []sql.Row
	emit := func(row sql.Row) error {
		out = append(out, row)
		return nil
	}

	var err error
	switch {
	case p.node.Split.Combine:
		err = p.runCombine(ctx, input, emit)
	case p.node.Strategy == plan.Hashed:
		err = p.runHashed(ctx, input, emit)
	default:
		err = p.runSorted(ctx, input, emit)
	}
	if err != nil {
		return nil, err
	}
	return out, nil
}

// buildEngine builds the StateKit/TransitionDriver/FinalizeDriver triple
// shared by every strategy, from node.Calls (§4.1).
func buildEngine(ctx *sql.Context, node *plan.AggNode) (*agg.StateKit, *agg.TransitionDriver, *agg.FinalizeDriver, error) {
	kit := agg.NewStateKit()
	var transCalls []agg.TransCall
	var finals []agg.FinalCall

	for _, call := range node.Calls {
		specer, ok := call.Agg.(agg.TransSpecer)
		if !ok {
			return nil, nil, nil, sql.ErrCatalogMiss.New(fmt.Sprintf("aggregate %s has no StateKit transition descriptor", call.Agg))
		}
		pt := specer.TransSpec()
		// StateKit's dedup key is name+strictness+init-value only (it
		// never sees a call's own arguments), so two distinct calls on
		// the same function (SUM(x), SUM(y)) need distinguishing names
		// or they would wrongly collapse onto one shared transition.
		pt.Name = fmt.Sprintf("%s(%s)", pt.Name, argsSignature(call.Agg.Children()))
		if node.Split.Serialize && pt.SerializeFn == nil {
			pt.SerializeFn = agg.GobSerialize
		}
		if node.Split.Deserialize && pt.DeserializeFn == nil {
			pt.DeserializeFn = agg.GobDeserialize
		}

		idx, err := kit.AddTrans(pt)
		if err != nil {
			return nil, nil, nil, err
		}
		if idx == len(transCalls) {
			transCalls = append(transCalls, agg.TransCall{Args: call.Agg.Children(), Filter: call.Filter})
		}

		kit.AddAgg(agg.PerAgg{
			Name:        call.Agg.String(),
			TransIndex:  idx,
			FinalFn:     identityFinal,
			FinalStrict: pt.InitialIsNull,
			SkipFinal:   node.Split.SkipFinal,
		})
		finals = append(finals, agg.FinalCall{})
	}

	driver := agg.NewTransitionDriver(kit, transCalls, ctx.Logger())
	final := agg.NewFinalizeDriver(kit, finals, node.Having, projectRow)
	return kit, driver, final, nil
}

func argsSignature(args []sql.Expression) string {
	s := ""
	for i, a := range args {
		if i > 0 {
			s += ","
		}
		s += a.String()
	}
	return s
}

// identityFinal is every wired aggregation's finalfn: the PerTrans's own
// transition value already IS the result (Sum/Count/Min/Max/bit ops all
// return their transition state verbatim from Eval), so a single generic
// identity closure covers them all; FinalStrict (set to the PerTrans's own
// InitialIsNull) reproduces each Eval's null check without per-function
// special-casing.
func identityFinal(ctx *sql.Context, state interface{}, isNull bool, directArgs []interface{}) (interface{}, error) {
	return state, nil
}

// projectRow is the uniform output shape every phase finalizes to: the
// (masked) representative columns followed by one result per PerAgg. A
// SkipFinal phase's results are partials, which makes this exact shape
// double as the "[grouping cols..., partials...]" row a downstream
// combine-mode phase consumes (see aggPhase.runCombine).
func projectRow(ctx *sql.Context, rep sql.Row, groups []agg.TransValue, results []interface{}) (sql.Row, error) {
	out := make(sql.Row, len(rep)+len(results))
	copy(out, rep)
	copy(out[len(rep):], results)
	return out, nil
}

// membershipOf builds the column-membership bitmap FinalizeDriver needs to
// null out non-member columns for a grouping set (§4.6 step 1, §8 scenario
// B), from the GetField expressions composing it.
func membershipOf(cols []sql.Expression) *roaring.Bitmap {
	bm := roaring.New()
	for _, c := range cols {
		if gf, ok := c.(*expression.GetField); ok {
			bm.Add(uint32(gf.Index()))
		}
	}
	return bm
}

// sortedPhaseSets builds phase.go's PhaseSet list with the most-specific
// (longest prefix) grouping set LAST: node.GroupingSets is documented
// most-specific first, but PhaseScheduler.ProcessSortedPhase walks its Sets
// slice from the end backward when finalizing a boundary.
func sortedPhaseSets(node *plan.AggNode) []agg.PhaseSet {
	n := len(node.GroupingSets)
	sets := make([]agg.PhaseSet, n)
	for i, gs := range node.GroupingSets {
		sets[n-1-i] = agg.PhaseSet{Columns: gs.Columns, PrefixLen: gs.PrefixLen, Membership: membershipOf(gs.Columns)}
	}
	return sets
}

func widestColumns(sets []plan.GroupingSet) []sql.Expression {
	var widest []sql.Expression
	for _, s := range sets {
		if len(s.Columns) > len(widest) {
			widest = s.Columns
		}
	}
	return widest
}

func lessByColumns(ctx *sql.Context, cols []sql.Expression, a, b sql.Row) bool {
	for _, c := range cols {
		av, _ := c.Eval(ctx, a)
		bv, _ := c.Eval(ctx, b)
		cmp := c.Type().Compare(av, bv)
		if cmp != 0 {
			return cmp < 0
		}
	}
	return false
}

// runSorted drives a PLAIN/SORTED phase over input, pre-sorted by the
// widest grouping set's columns (this leaf operator owns its own sort
// rather than assuming a Sort subnode already ran, since full
// materialization replaces the original streaming pipeline). A phase with
// exactly one grouping set gets real per-group DISTINCT/ORDER-BY drivers
// (§4.5); a multi-set (ROLLUP-style) phase does not, since resetting a
// trans's deferred sort in lockstep with each PhaseSet's own boundary
// would need PhaseScheduler to report which boundary was its last for a
// given row, which it does not.
func (p *aggPhase) runSorted(ctx *sql.Context, input []sql.Row, emit func(sql.Row) error) error {
	widest := widestColumns(p.node.GroupingSets)
	sorted := make([]sql.Row, len(input))
	copy(sorted, input)
	sort.SliceStable(sorted, func(i, j int) bool {
		return lessByColumns(ctx, widest, sorted[i], sorted[j])
	})

	pr := &agg.Phase{Strategy: p.node.Strategy, Sets: sortedPhaseSets(p.node), Kit: p.kit, Driver: p.driver}

	singleSet := len(p.node.GroupingSets) == 1
	groupSorts := make([]*agg.SortDriver, len(p.kit.Trans))
	attachFreshSorts := func() {
		for i, pt := range p.kit.Trans {
			if singleSet && pt.NumSortCols > 0 {
				groupSorts[i] = agg.NewSortDriver(pt.Sort, pt.NumDistinctCols, pt.NumArgs)
			} else {
				groupSorts[i] = nil
			}
			p.driver.SetSort(i, groupSorts[i])
		}
	}
	attachFreshSorts()

	sched := agg.NewPhaseScheduler([]*agg.Phase{pr}, func(phaseNum int, set agg.PhaseSet, groups []agg.TransValue, rep sql.Row) error {
		cur := append([]*agg.SortDriver(nil), groupSorts...)
		if err := p.final.Finalize(ctx, rep, set.Membership, groups, cur, emit); err != nil {
			return err
		}
		if singleSet {
			attachFreshSorts()
		}
		return nil
	})

	for _, row := range sorted {
		if err := sched.ProcessSortedPhase(ctx, pr, row); err != nil {
			return err
		}
	}
	return sched.FlushSortedPhase(ctx, pr)
}

// runHashed drives a HASHED phase: insert every input row into each
// grouping set's table (spilling via spill.Engine when a table outgrows
// Config.WorkMemBytes), optionally fanning rows out across Config.NumWorkers
// simulated workers via redistribute.Redistributor first, then drains
// every table through PhaseScheduler.DrainHashPhase.
func (p *aggPhase) runHashed(ctx *sql.Context, input []sql.Row, emit func(sql.Row) error) error {
	maxEntries := int(p.cfg.WorkMemBytes / spillEntrySizeEstimate)
	if maxEntries < 1 {
		maxEntries = 1
	}

	if p.numWorkers <= 1 {
		for _, row := range input {
			if err := p.insertHashed(ctx, 0, row, maxEntries); err != nil {
				return err
			}
		}
	} else if err := p.runHashedDistributed(ctx, input, maxEntries); err != nil {
		return err
	}

	for w := 0; w < p.numWorkers; w++ {
		for s := range p.node.GroupingSets {
			if err := p.mergeSpilled(ctx, w, s); err != nil {
				return err
			}
		}
	}

	for w := 0; w < p.numWorkers; w++ {
		for s := range p.node.GroupingSets {
			if err := p.drainTable(ctx, w, s, emit); err != nil {
				return err
			}
		}
	}
	return nil
}

// insertHashed folds row into every grouping set's table for worker w,
// attaching that group's own DISTINCT/ORDER-BY drivers (if any) before
// calling TransitionDriver.ProcessRow, and spills the table once it
// outgrows maxEntries.
func (p *aggPhase) insertHashed(ctx *sql.Context, w int, row sql.Row, maxEntries int) error {
	for s := range p.node.GroupingSets {
		table := p.tables[w][s]
		entry, _, err := table.Lookup(ctx, row)
		if err != nil {
			return err
		}
		if entry.Sorts == nil {
			entry.Sorts = make([]*agg.SortDriver, len(p.kit.Trans))
		}
		for i, pt := range p.kit.Trans {
			if pt.NumSortCols > 0 {
				if entry.Sorts[i] == nil {
					entry.Sorts[i] = agg.NewSortDriver(pt.Sort, pt.NumDistinctCols, pt.NumArgs)
				}
				p.driver.SetSort(i, entry.Sorts[i])
			} else {
				p.driver.SetSort(i, nil)
			}
		}
		if err := p.driver.ProcessRow(ctx, row, entry.Groups); err != nil {
			return err
		}
		if table.Len() > maxEntries {
			if err := p.spillTable(ctx, w, s); err != nil {
				return err
			}
		}
	}
	return nil
}

// spillTable implements §4.7's write protocol for one overflowing table:
// encode every resident entry, hand the batch to spill.Engine, and reset
// the table so it keeps accepting new groups.
func (p *aggPhase) spillTable(ctx *sql.Context, w, s int) error {
	table := p.tables[w][s]
	engine := p.engines[w][s]
	if engine == nil {
		dir, err := os.MkdirTemp(p.cfg.SpillDir, "aggspill-*")
		if err != nil {
			return sql.ErrSpillIO.New(err.Error())
		}
		engine, err = spill.NewEngine(dir, p.cfg.NBatches)
		if err != nil {
			return err
		}
		p.engines[w][s] = engine
	}

	var entries []spill.Entry
	err := table.Each(func(e *agg.GroupEntry) error {
		hk, err := table.HashOf(e.Key)
		if err != nil {
			return err
		}
		se, err := agg.EncodeSpillEntry(hk, e)
		if err != nil {
			return err
		}
		entries = append(entries, se)
		return nil
	})
	if err != nil {
		return err
	}
	if err := engine.SpillEntries(entries); err != nil {
		return err
	}
	table.Reset()
	return nil
}

// mergeSpilled implements §4.7's read protocol for one table: replay every
// spilled entry and fold it back in by grouping key, merging via each
// trans's combinefn (an entry re-populated since the spill, or the
// decoded state itself on first sight, either way CombineTransition's own
// noTransValue branch chooses correctly).
func (p *aggPhase) mergeSpilled(ctx *sql.Context, w, s int) error {
	engine := p.engines[w][s]
	if engine == nil || !engine.HasSpilled() {
		return nil
	}
	defer engine.Close()

	table := p.tables[w][s]
	engine.BeginRead()
	for {
		ent, ok, err := engine.Next()
		if err != nil {
			return err
		}
		if !ok {
			break
		}
		rep, groups, err := agg.DecodeSpillEntry(ent)
		if err != nil {
			return err
		}
		entry, _, err := table.Lookup(ctx, rep)
		if err != nil {
			return err
		}
		for i, pt := range p.kit.Trans {
			if pt.CombineFn == nil {
				if entry.Groups[i].NoTransValue {
					entry.Groups[i] = groups[i]
				}
				continue
			}
			if err := agg.CombineTransition(&entry.Groups[i], groups[i].Val, groups[i].IsNull, pt.CombineFn); err != nil {
				return err
			}
		}
	}
	return nil
}

// drainTable finalizes every group resident in one (worker, groupingSet)
// table via PhaseScheduler.DrainHashPhase, recovering each group's own
// DISTINCT/ORDER-BY drivers by the stable pointer identity of its
// TransValue slice (DrainHashPhase's onEmit only receives groups/rep, not
// the owning *GroupEntry).
func (p *aggPhase) drainTable(ctx *sql.Context, w, s int, emit func(sql.Row) error) error {
	table := p.tables[w][s]

	sortsByGroup := make(map[*agg.TransValue][]*agg.SortDriver)
	_ = table.Each(func(e *agg.GroupEntry) error {
		if len(e.Groups) > 0 {
			sortsByGroup[&e.Groups[0]] = e.Sorts
		}
		return nil
	})

	ps := agg.PhaseSet{Hash: table, Membership: table.Membership()}
	ph := &agg.Phase{Strategy: plan.Hashed, Sets: []agg.PhaseSet{ps}}
	sched := agg.NewPhaseScheduler([]*agg.Phase{ph}, func(phaseNum int, set agg.PhaseSet, groups []agg.TransValue, rep sql.Row) error {
		var sorts []*agg.SortDriver
		if len(groups) > 0 {
			sorts = sortsByGroup[&groups[0]]
		}
		return p.final.Finalize(ctx, rep, set.Membership, groups, sorts, emit)
	})
	return sched.DrainHashPhase(ctx, ph)
}

// runHashedDistributed fans input across p.numWorkers simulated workers
// via redistribute.Redistributor: one real goroutine plays every worker's
// producer and consumer role in turn (§4.8), so Route/TryEnqueue/
// TryDequeue/the spill-file fallback and FileListStore all run for real
// without requiring actual concurrency.
func (p *aggPhase) runHashedDistributed(ctx *sql.Context, input []sql.Row, maxEntries int) error {
	nw := p.numWorkers
	rings := redistribute.NewSharedRings(nw, p.cfg.RingBufferBytes)
	status := redistribute.NewStatusBoard(nw)
	files := redistribute.NewFileListStore()

	scratch, err := os.MkdirTemp(p.cfg.SpillDir, "aggredist-*")
	if err != nil {
		return sql.ErrSpillIO.New(err.Error())
	}
	defer os.RemoveAll(scratch)

	rds := make([]*redistribute.Redistributor, nw)
	for w := 0; w < nw; w++ {
		rds[w] = redistribute.New(w, nw, p.cfg.RingBufferBytes, status, rings, files, scratch)
		status.Set(w, redistribute.Init)
	}

	var keyExpr sql.Expression
	if len(p.node.GroupingSets) > 0 && len(p.node.GroupingSets[0].Columns) > 0 {
		keyExpr = p.node.GroupingSets[0].Columns[0]
	}

	local := make([][]sql.Row, nw)
	for i, row := range input {
		producer := i % nw

		var keyVal interface{}
		if keyExpr != nil {
			v, err := keyExpr.Eval(ctx, row)
			if err != nil {
				return err
			}
			keyVal = v
		}

		payload, err := agg.EncodeRow(row)
		if err != nil {
			return err
		}
		shipped, err := rds[producer].Route(keyVal, redistribute.KindDataRow, payload)
		if err != nil {
			return err
		}
		if !shipped {
			local[producer] = append(local[producer], row)
		}
		for _, drained := range rds[producer].DrainedPayloads() {
			drow, err := agg.DecodeRow(drained)
			if err != nil {
				return err
			}
			local[producer] = append(local[producer], drow)
		}
	}
	for w := 0; w < nw; w++ {
		// A worker that never routed locally (Route only drains
		// opportunistically on its own calls) may still have residue
		// waiting in its incoming rings; pull it in before publishing.
		for _, drained := range rds[w].DrainedPayloads() {
			drow, err := agg.DecodeRow(drained)
			if err != nil {
				return err
			}
			local[w] = append(local[w], drow)
		}
		if err := rds[w].FinishProducing(); err != nil {
			return err
		}
	}

	for w := 0; w < nw; w++ {
		if !rds[w].ReadyToConsume() {
			return sql.ErrWorkerFailed.New(fmt.Sprintf("redistribution worker %d: peers not ready to consume", w))
		}

		for _, row := range local[w] {
			if err := p.insertHashed(ctx, w, row, maxEntries); err != nil {
				return err
			}
		}

		decode := func(target int) func([]byte) error {
			return func(payload []byte) error {
				row, err := agg.DecodeRow(payload)
				if err != nil {
					return err
				}
				return p.insertHashed(ctx, target, row, maxEntries)
			}
		}(w)

		for peer := 0; peer < nw; peer++ {
			if peer == w {
				continue
			}
			if err := redistribute.DrainRing(rings[peer][w], decode); err != nil {
				return err
			}
			if err := redistribute.ReadPublished(files, peer, w, decode); err != nil {
				return err
			}
		}
		status.Set(w, redistribute.ConsumeDone)
	}

	if status.AnyError() {
		return sql.ErrWorkerFailed.New("redistribution: a worker reported an error")
	}
	return nil
}

// runCombine implements the combine-mode merge phase of §4.4: each input
// row is "[grouping cols..., one partial per PerTrans in StateKit
// order]" (projectRow's own output shape under SkipFinal), produced by
// this node's immediate predecessor in the chain.
func (p *aggPhase) runCombine(ctx *sql.Context, input []sql.Row, emit func(sql.Row) error) error {
	nTrans := len(p.kit.Trans)
	for _, row := range input {
		if len(row) < nTrans {
			return sql.ErrPlanInvariant.New("combine input row narrower than the trans vector it must supply partials for")
		}
		groupCols := row[:len(row)-nTrans]
		partials := []interface{}(row[len(row)-nTrans:])

		entry, _, err := p.combineTable.Lookup(ctx, groupCols)
		if err != nil {
			return err
		}
		if err := p.driver.ProcessCombineRow(ctx, partials, entry.Groups); err != nil {
			return err
		}
	}

	return p.combineTable.Each(func(e *agg.GroupEntry) error {
		return p.final.Finalize(ctx, e.Representative, p.combineTable.Membership(), e.Groups, nil, emit)
	})
}
