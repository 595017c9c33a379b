package agg

import (
	"github.com/RoaringBitmap/roaring"

	"github.com/dolthub/aggexec/sql"
)

// FinalCall is the per-PerAgg contract FinalizeDriver needs beyond
// StateKit's PerAgg descriptor: the projection/HAVING context for one
// completed group.
type FinalCall struct {
	DirectArgs []sql.Expression
}

// FinalizeDriver implements §4.6: for each completed group × grouping set,
// project a representative slot, run deferred DISTINCT/ORDER-BY sorts,
// invoke finalfn (or serializefn under skip-final), then HAVING-filter and
// emit.
type FinalizeDriver struct {
	kit     *StateKit
	finals  []FinalCall
	having  sql.Expression
	project func(ctx *sql.Context, rep sql.Row, groups []TransValue, results []interface{}) (sql.Row, error)
}

// NewFinalizeDriver builds a driver over kit with one FinalCall per
// PerAgg, an optional HAVING qual, and a projection function producing the
// final output row from the representative tuple and per-aggregate
// results.
func NewFinalizeDriver(kit *StateKit, finals []FinalCall, having sql.Expression, project func(*sql.Context, sql.Row, []TransValue, []interface{}) (sql.Row, error)) *FinalizeDriver {
	return &FinalizeDriver{kit: kit, finals: finals, having: having, project: project}
}

// maskRepresentative implements §4.6 step 1: null out any column not in
// the current grouping set's membership bitmap (the rollup-NULL behavior
// of grouping sets, §8 scenario B).
func maskRepresentative(rep sql.Row, membership *roaring.Bitmap) sql.Row {
	if membership == nil {
		return rep
	}
	out := rep.Copy()
	for i := range out {
		if !membership.Contains(uint32(i)) {
			out[i] = nil
		}
	}
	return out
}

// Finalize runs §4.6 steps 2-5 for one completed group in one grouping
// set. sorts, parallel to kit.Trans, holds each PerTrans's pending
// DISTINCT/ORDER-BY driver (nil when that PerTrans aggregates directly).
// emit is called with the final output row when the HAVING qual passes.
func (d *FinalizeDriver) Finalize(ctx *sql.Context, rep sql.Row, membership *roaring.Bitmap, groups []TransValue, sorts []*SortDriver, emit func(sql.Row) error) error {
	rep = maskRepresentative(rep, membership)

	// Step 2: run any deferred sorted DISTINCT/ORDER-BY aggregation.
	for i, pt := range d.kit.Trans {
		if sorts == nil || sorts[i] == nil {
			continue
		}
		sd := sorts[i]
		err := sd.StreamAccepted(func(row sql.Row) error {
			args := make([]interface{}, len(row))
			copy(args, row)
			return Advance(&groups[i], pt.Strict, args, pt.TransFn)
		})
		if err != nil {
			return err
		}
	}

	results := make([]interface{}, len(d.kit.Aggs))
	for i, pa := range d.kit.Aggs {
		tv := groups[pa.TransIndex]

		if pa.SkipFinal {
			// §4.6 step 3, skip-final branch: finalize_partial.
			trans := d.kit.Trans[pa.TransIndex]
			if trans.SerializeFn != nil {
				if tv.IsNull && trans.Strict {
					results[i] = nil
					continue
				}
				blob, err := trans.SerializeFn(ctx, tv.Val)
				if err != nil {
					return err
				}
				results[i] = blob
				continue
			}
			results[i] = tv.Val
			continue
		}

		directArgs := d.finals[i].DirectArgs
		args := make([]interface{}, 1+len(directArgs))
		args[0] = tv.Val
		anyNull := tv.IsNull
		for j, de := range directArgs {
			v, err := de.Eval(ctx, rep)
			if err != nil {
				return err
			}
			args[1+j] = v
			if v == nil {
				anyNull = true
			}
		}

		if pa.FinalStrict && anyNull {
			results[i] = nil
			continue
		}
		if pa.FinalFn == nil {
			results[i] = tv.Val
			continue
		}
		v, err := pa.FinalFn(ctx, tv.Val, tv.IsNull, args[1:])
		if err != nil {
			return err
		}
		results[i] = v
	}

	out, err := d.project(ctx, rep, groups, results)
	if err != nil {
		return err
	}

	if d.having != nil {
		keep, err := d.having.Eval(ctx, out)
		if err != nil {
			return err
		}
		if keep == nil || keep == false {
			return nil
		}
	}
	return emit(out)
}
