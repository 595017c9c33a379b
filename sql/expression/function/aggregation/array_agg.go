package aggregation

import (
	"fmt"
	"sort"
	"strings"

	"github.com/dolthub/aggexec/sql"
	"github.com/dolthub/aggexec/sql/expression"
)

// arrayAggBuffer is ARRAY_AGG's transition state: a growable, by-reference
// slice. Unlike Sum/Count/Min/Max it is never binary-compatible with its
// own input, so it never goes through agg.Advance's strict-shortcut; every
// row is appended directly.
type arrayAggBuffer struct {
	values []interface{}
}

func (b *arrayAggBuffer) Dispose() { b.values = nil }

// ArrayAgg implements ARRAY_AGG(expr [ORDER BY ...]) — spec.md's
// array-building aggregate. When Sort is non-empty, Eval orders the
// collected values before returning them, the finalize-time equivalent of
// process_ordered_multi (§4.5) feeding a sorted run into the aggregate
// instead of hash-bucket arrival order.
type ArrayAgg struct {
	child sql.Expression
	sort  sql.SortFields
}

func NewArrayAgg(e sql.Expression, sort sql.SortFields) *ArrayAgg {
	return &ArrayAgg{child: e, sort: sort}
}

func (a *ArrayAgg) Type() sql.Type             { return sql.ArrayOf(a.child.Type()) }
func (a *ArrayAgg) Resolved() bool             { return a.child.Resolved() }
func (a *ArrayAgg) Children() []sql.Expression { return []sql.Expression{a.child} }
func (a *ArrayAgg) String() string {
	if len(a.sort) == 0 {
		return fmt.Sprintf("ARRAY_AGG(%s)", a.child)
	}
	parts := make([]string, len(a.sort))
	for i, sf := range a.sort {
		dir := "ASC"
		if sf.Order == sql.Descending {
			dir = "DESC"
		}
		parts[i] = fmt.Sprintf("%s %s", sf.Column, dir)
	}
	return fmt.Sprintf("ARRAY_AGG(%s ORDER BY %s)", a.child, strings.Join(parts, ", "))
}

func (a *ArrayAgg) NewBuffer() sql.AggregationBuffer {
	return &arrayAggBuffer{}
}

func (a *ArrayAgg) Update(ctx *sql.Context, buffer sql.AggregationBuffer, row sql.Row) error {
	b := buffer.(*arrayAggBuffer)
	v, err := a.child.Eval(ctx, row)
	if err != nil {
		return err
	}
	if v == expression.Skip {
		return nil
	}
	b.values = append(b.values, v)
	return nil
}

func (a *ArrayAgg) Eval(ctx *sql.Context, buffer sql.AggregationBuffer) (interface{}, error) {
	b := buffer.(*arrayAggBuffer)
	if len(b.values) == 0 {
		return nil, nil
	}
	out := make([]interface{}, len(b.values))
	copy(out, b.values)
	if len(a.sort) > 0 {
		elemType := a.child.Type()
		sort.SliceStable(out, func(i, j int) bool {
			c := elemType.Compare(out[i], out[j])
			if a.sort[0].Order == sql.Descending {
				return c > 0
			}
			return c < 0
		})
	}
	return out, nil
}

// Merge concatenates two partial collections; order is re-established by
// Eval's sort pass when ORDER BY is present, so concatenation order here
// does not matter.
func (a *ArrayAgg) Merge(ctx *sql.Context, dst, src sql.AggregationBuffer) error {
	d := dst.(*arrayAggBuffer)
	s := src.(*arrayAggBuffer)
	d.values = append(d.values, s.values...)
	return nil
}
