package agg

import (
	"github.com/sirupsen/logrus"

	"github.com/dolthub/aggexec/sql"
)

// TransCall is the per-PerTrans evaluation contract TransitionDriver needs
// beyond the StateKit descriptor: the already-resolved argument expressions
// and optional row filter (§4.4 step 2a), matched 1:1 with StateKit.Trans
// by index.
type TransCall struct {
	Args   []sql.Expression
	Filter sql.Expression
	// Sort, when non-nil, is this PerTrans's DISTINCT/ORDER-BY driver in
	// the current grouping set (§4.4 step 2b); nil means aggregate
	// directly off the hot path (step 2c).
	Sort *SortDriver
}

// TransitionDriver is the per-input-tuple hot path of §4.4. It holds the
// StateKit (shared PerTrans/PerAgg vectors) and one TransCall per PerTrans.
type TransitionDriver struct {
	kit   *StateKit
	calls []TransCall
	log   *logrus.Entry
}

// NewTransitionDriver builds a driver over kit; calls must be parallel to
// kit.Trans (one TransCall per PerTrans, §4.1's combined-projection
// ordering).
func NewTransitionDriver(kit *StateKit, calls []TransCall, log *logrus.Entry) *TransitionDriver {
	return &TransitionDriver{kit: kit, calls: calls, log: log}
}

// SetSort attaches (or clears, via nil) the DISTINCT/ORDER-BY driver for
// one PerTrans. A TransitionDriver is shared across every group a phase
// ever opens, but a SortDriver's accumulated run belongs to exactly one
// group, so the caller swaps it in right before processing that group's
// rows and swaps it back out (or replaces it) at the next group boundary.
func (d *TransitionDriver) SetSort(transIndex int, sd *SortDriver) {
	d.calls[transIndex].Sort = sd
}

// ProcessRow implements §4.4's per-input-tuple algorithm against a flat
// PerGroup array (the sorted/plain path; the hashed/mixed path calls
// ProcessRow once per target hashed set's PerGroup array via
// GroupHashTable.Lookup).
func (d *TransitionDriver) ProcessRow(ctx *sql.Context, row sql.Row, groups []TransValue) error {
	for i, pt := range d.kit.Trans {
		call := d.calls[i]

		if call.Filter != nil {
			keep, err := call.Filter.Eval(ctx, row)
			if err != nil {
				return err
			}
			if keep == nil || keep == false {
				continue
			}
		}

		args := make([]interface{}, len(call.Args))
		anyNull := false
		for j, argExpr := range call.Args {
			v, err := argExpr.Eval(ctx, row)
			if err != nil {
				return err
			}
			args[j] = v
			if v == nil {
				anyNull = true
			}
		}

		if pt.NumSortCols > 0 {
			// §4.4 step 2b: defer to the sort; suppress pushes a
			// strict transfn would ignore anyway.
			if pt.Strict && anyNull {
				continue
			}
			if call.Sort != nil {
				if len(args) == 1 {
					call.Sort.Push(sql.NewRow(args[0]))
				} else {
					call.Sort.Push(sql.Row(args))
				}
			}
			continue
		}

		if err := Advance(&groups[i], pt.Strict, args, pt.TransFn); err != nil {
			return err
		}
	}
	return nil
}

// ProcessCombineRow implements §4.4's combine-mode transition. partials
// holds one incoming value per PerTrans, in StateKit order: when a
// PerTrans has a DeserializeFn, its partial is a serialized []byte blob
// (or nil) and is deserialized here before combining; otherwise the
// partial is already the combine-ready value.
func (d *TransitionDriver) ProcessCombineRow(ctx *sql.Context, partials []interface{}, groups []TransValue) error {
	for i, pt := range d.kit.Trans {
		if pt.CombineFn == nil {
			continue
		}
		srcVal := partials[i]
		srcIsNull := srcVal == nil

		if pt.DeserializeFn != nil {
			if srcIsNull {
				// deserializefn strict-null-passthrough: §4.4
				// "unless input is null and deserializefn is
				// strict, in which case pass null through
				// untouched".
			} else {
				blob, _ := srcVal.([]byte)
				deser, err := pt.DeserializeFn(ctx, blob)
				if err != nil {
					return err
				}
				srcVal = deser
			}
		}

		if err := CombineTransition(&groups[i], srcVal, srcIsNull, pt.CombineFn); err != nil {
			return err
		}
	}
	return nil
}
