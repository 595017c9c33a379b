package aggregation

import (
	"fmt"

	"github.com/dolthub/aggexec/sql"
	"github.com/dolthub/aggexec/sql/expression"
	"github.com/dolthub/aggexec/sql/rowexec/agg"
)

// Sum implements SUM(expr): a strict transition function over a null
// initial value (spec.md §8 scenario A is this aggregate exactly).
type Sum struct {
	child sql.Expression
}

func NewSum(ctx *sql.Context, e sql.Expression) *Sum {
	return &Sum{child: e}
}

func (s *Sum) Type() sql.Type             { return sql.Float64 }
func (s *Sum) Resolved() bool             { return s.child.Resolved() }
func (s *Sum) Children() []sql.Expression { return []sql.Expression{s.child} }
func (s *Sum) String() string             { return fmt.Sprintf("SUM(%s)", s.child) }

func (s *Sum) NewBuffer() sql.AggregationBuffer {
	return newTransBuffer(nil, true)
}

func (s *Sum) transFn(state interface{}, args []interface{}) (interface{}, error) {
	return state.(float64) + args[0].(float64), nil
}

func (s *Sum) Update(ctx *sql.Context, buffer sql.AggregationBuffer, row sql.Row) error {
	b := buffer.(*transBuffer)
	v, err := s.child.Eval(ctx, row)
	if err != nil {
		return err
	}
	if v == expression.Skip {
		return nil
	}
	var arg interface{}
	if v != nil {
		arg = toFloat64(v)
	}
	return agg.Advance(&b.TransValue, true, []interface{}{arg}, s.transFn)
}

func (s *Sum) Eval(ctx *sql.Context, buffer sql.AggregationBuffer) (interface{}, error) {
	b := buffer.(*transBuffer)
	if b.IsNull {
		return nil, nil
	}
	return b.Val, nil
}

// Merge implements sql.Combinable: SUM's combine function adds two partial
// sums, adopting the incoming state directly on first arrival (§4.4
// combine-mode paragraph).
func (s *Sum) Merge(ctx *sql.Context, dst, src sql.AggregationBuffer) error {
	d := dst.(*transBuffer)
	sb := src.(*transBuffer)
	return agg.CombineTransition(&d.TransValue, sb.Val, sb.IsNull, func(state interface{}, args []interface{}) (interface{}, error) {
		if args[0] == nil {
			return state, nil
		}
		return state.(float64) + args[0].(float64), nil
	})
}

// TransSpec exposes Sum's transition descriptor for StateKit wiring.
func (s *Sum) TransSpec() agg.PerTrans {
	return agg.PerTrans{
		Name:          "sum",
		TransFn:       s.transFn,
		CombineFn:     func(state interface{}, args []interface{}) (interface{}, error) { return state.(float64) + args[0].(float64), nil },
		Strict:        true,
		InitialValue:  nil,
		InitialIsNull: true,
		ByValue:       true,
		NumArgs:       1,
	}
}
