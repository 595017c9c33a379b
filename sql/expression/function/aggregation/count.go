package aggregation

import (
	"fmt"

	"github.com/dolthub/aggexec/sql"
	"github.com/dolthub/aggexec/sql/expression"
	"github.com/dolthub/aggexec/sql/rowexec/agg"
)

// Count implements COUNT(expr) / COUNT(*). Its transition function is
// strict over the argument but its initial value (int64(0)) is not null,
// so the §4.4 strict-shortcut never triggers: every row that isn't null
// (or COUNT(*), whose argument is expression.Star and never null)
// increments the running total via transFn.
type Count struct {
	child sql.Expression
	// Distinct marks COUNT(DISTINCT expr): TransSpec defers to the engine's
	// own sorted-DISTINCT path (§4.5) rather than deduplicating here, so
	// this flag only affects TransSpec, not Update/Eval/Merge.
	Distinct bool
}

func NewCount(ctx *sql.Context, e sql.Expression) *Count {
	return &Count{child: e}
}

// NewCountDistinct builds COUNT(DISTINCT expr), engine-side dedup only.
func NewCountDistinct(e sql.Expression) *Count {
	return &Count{child: e, Distinct: true}
}

// IsDistinct implements sql.DistinctCapable.
func (c *Count) IsDistinct() bool { return c.Distinct }

func (c *Count) Type() sql.Type             { return sql.Int64 }
func (c *Count) Resolved() bool             { return c.child.Resolved() }
func (c *Count) Children() []sql.Expression { return []sql.Expression{c.child} }
func (c *Count) String() string {
	if _, ok := c.child.(*expression.Star); ok {
		return "COUNT(*)"
	}
	return fmt.Sprintf("COUNT(%s)", c.child)
}

func (c *Count) NewBuffer() sql.AggregationBuffer {
	return newTransBuffer(int64(0), false)
}

func (c *Count) transFn(state interface{}, args []interface{}) (interface{}, error) {
	return state.(int64) + 1, nil
}

func (c *Count) Update(ctx *sql.Context, buffer sql.AggregationBuffer, row sql.Row) error {
	b := buffer.(*transBuffer)
	v, err := c.child.Eval(ctx, row)
	if err != nil {
		return err
	}
	if v == expression.Skip {
		return nil
	}
	return agg.Advance(&b.TransValue, true, []interface{}{v}, c.transFn)
}

func (c *Count) Eval(ctx *sql.Context, buffer sql.AggregationBuffer) (interface{}, error) {
	b := buffer.(*transBuffer)
	return b.Val, nil
}

func (c *Count) Merge(ctx *sql.Context, dst, src sql.AggregationBuffer) error {
	d := dst.(*transBuffer)
	s := src.(*transBuffer)
	return agg.CombineTransition(&d.TransValue, s.Val, s.IsNull, func(state interface{}, args []interface{}) (interface{}, error) {
		return state.(int64) + args[0].(int64), nil
	})
}

// TransSpec exposes Count's transition descriptor for StateKit wiring. A
// distinct count cannot also declare CombineFn: the deferred sort already
// materializes every surviving (post-dedup) row once per group, so there is
// nothing meaningful for a second, partial-aggregation-style merge to
// recombine, and NumSortCols>0 is disallowed together with CombineFn by
// NewPerTrans's own plan invariant.
func (c *Count) TransSpec() agg.PerTrans {
	pt := agg.PerTrans{
		Name:          "count",
		TransFn:       c.transFn,
		Strict:        true,
		InitialValue:  int64(0),
		InitialIsNull: false,
		ByValue:       true,
		NumArgs:       1,
	}
	if c.Distinct {
		pt.Name = "count_distinct"
		pt.NumSortCols = 1
		pt.NumDistinctCols = 1
		pt.Sort = sql.SortFields{{Column: expression.NewGetField(0, c.child.Type(), "", true), Order: sql.Ascending}}
		return pt
	}
	pt.CombineFn = func(state interface{}, args []interface{}) (interface{}, error) { return state.(int64) + args[0].(int64), nil }
	return pt
}
