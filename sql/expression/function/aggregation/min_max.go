package aggregation

import (
	"fmt"

	"github.com/dolthub/aggexec/sql"
	"github.com/dolthub/aggexec/sql/expression"
	"github.com/dolthub/aggexec/sql/rowexec/agg"
)

// Min implements MIN(expr): a strict transition function with a null
// initial value whose input type is trivially binary-compatible with its
// own transition type (both are the column's own type), so the §4.4
// strict-shortcut applies on the first row exactly as written.
type Min struct {
	child sql.Expression
}

func NewMin(e sql.Expression) *Min { return &Min{child: e} }

func (m *Min) Type() sql.Type             { return m.child.Type() }
func (m *Min) Resolved() bool             { return m.child.Resolved() }
func (m *Min) Children() []sql.Expression { return []sql.Expression{m.child} }
func (m *Min) String() string             { return fmt.Sprintf("MIN(%s)", m.child) }

func (m *Min) NewBuffer() sql.AggregationBuffer {
	return newTransBuffer(nil, true)
}

func (m *Min) transFn(state interface{}, args []interface{}) (interface{}, error) {
	if m.child.Type().Compare(args[0], state) < 0 {
		return args[0], nil
	}
	return state, nil
}

func (m *Min) Update(ctx *sql.Context, buffer sql.AggregationBuffer, row sql.Row) error {
	b := buffer.(*transBuffer)
	v, err := m.child.Eval(ctx, row)
	if err != nil {
		return err
	}
	if v == expression.Skip {
		return nil
	}
	return agg.Advance(&b.TransValue, true, []interface{}{v}, m.transFn)
}

func (m *Min) Eval(ctx *sql.Context, buffer sql.AggregationBuffer) (interface{}, error) {
	b := buffer.(*transBuffer)
	if b.IsNull {
		return nil, nil
	}
	return b.Val, nil
}

func (m *Min) Merge(ctx *sql.Context, dst, src sql.AggregationBuffer) error {
	d := dst.(*transBuffer)
	s := src.(*transBuffer)
	return agg.CombineTransition(&d.TransValue, s.Val, s.IsNull, func(state interface{}, args []interface{}) (interface{}, error) {
		if m.child.Type().Compare(args[0], state) < 0 {
			return args[0], nil
		}
		return state, nil
	})
}

// TransSpec exposes Min's transition descriptor for StateKit wiring.
func (m *Min) TransSpec() agg.PerTrans {
	return agg.PerTrans{
		Name:    "min",
		TransFn: m.transFn,
		CombineFn: func(state interface{}, args []interface{}) (interface{}, error) {
			if m.child.Type().Compare(args[0], state) < 0 {
				return args[0], nil
			}
			return state, nil
		},
		Strict:        true,
		InitialValue:  nil,
		InitialIsNull: true,
		ByValue:       m.child.Type().ByValue(),
		NumArgs:       1,
	}
}

// Max implements MAX(expr); the mirror image of Min.
type Max struct {
	child sql.Expression
}

func NewMax(e sql.Expression) *Max { return &Max{child: e} }

func (x *Max) Type() sql.Type             { return x.child.Type() }
func (x *Max) Resolved() bool             { return x.child.Resolved() }
func (x *Max) Children() []sql.Expression { return []sql.Expression{x.child} }
func (x *Max) String() string             { return fmt.Sprintf("MAX(%s)", x.child) }

func (x *Max) NewBuffer() sql.AggregationBuffer {
	return newTransBuffer(nil, true)
}

func (x *Max) transFn(state interface{}, args []interface{}) (interface{}, error) {
	if x.child.Type().Compare(args[0], state) > 0 {
		return args[0], nil
	}
	return state, nil
}

func (x *Max) Update(ctx *sql.Context, buffer sql.AggregationBuffer, row sql.Row) error {
	b := buffer.(*transBuffer)
	v, err := x.child.Eval(ctx, row)
	if err != nil {
		return err
	}
	if v == expression.Skip {
		return nil
	}
	return agg.Advance(&b.TransValue, true, []interface{}{v}, x.transFn)
}

func (x *Max) Eval(ctx *sql.Context, buffer sql.AggregationBuffer) (interface{}, error) {
	b := buffer.(*transBuffer)
	if b.IsNull {
		return nil, nil
	}
	return b.Val, nil
}

func (x *Max) Merge(ctx *sql.Context, dst, src sql.AggregationBuffer) error {
	d := dst.(*transBuffer)
	s := src.(*transBuffer)
	return agg.CombineTransition(&d.TransValue, s.Val, s.IsNull, func(state interface{}, args []interface{}) (interface{}, error) {
		if x.child.Type().Compare(args[0], state) > 0 {
			return args[0], nil
		}
		return state, nil
	})
}

// TransSpec exposes Max's transition descriptor for StateKit wiring.
func (x *Max) TransSpec() agg.PerTrans {
	return agg.PerTrans{
		Name:    "max",
		TransFn: x.transFn,
		CombineFn: func(state interface{}, args []interface{}) (interface{}, error) {
			if x.child.Type().Compare(args[0], state) > 0 {
				return args[0], nil
			}
			return state, nil
		},
		Strict:        true,
		InitialValue:  nil,
		InitialIsNull: true,
		ByValue:       x.child.Type().ByValue(),
		NumArgs:       1,
	}
}
