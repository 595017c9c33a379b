package aggregation

import (
	"fmt"

	"github.com/dolthub/aggexec/sql"
	"github.com/dolthub/aggexec/sql/expression"
	"github.com/dolthub/aggexec/sql/rowexec/agg"
	"github.com/spf13/cast"
)

func toUint64(v interface{}) uint64 {
	u, err := cast.ToUint64E(v)
	if err != nil {
		f, ferr := cast.ToFloat64E(v)
		if ferr != nil {
			return 0
		}
		return uint64(int64(f))
	}
	return u
}

// BitAnd implements BIT_AND(expr). Its initial value is all-ones (the
// bitwise identity element), not null, so an all-null group still reports
// ^uint64(0) rather than NULL.
type BitAnd struct {
	child sql.Expression
}

func NewBitAnd(e sql.Expression) *BitAnd { return &BitAnd{child: e} }

func (a *BitAnd) Type() sql.Type             { return sql.Uint64 }
func (a *BitAnd) Resolved() bool             { return a.child.Resolved() }
func (a *BitAnd) Children() []sql.Expression { return []sql.Expression{a.child} }
func (a *BitAnd) String() string             { return fmt.Sprintf("BITAND(%s)", a.child) }

func (a *BitAnd) NewBuffer() sql.AggregationBuffer {
	return newTransBuffer(^uint64(0), false)
}

func (a *BitAnd) transFn(state interface{}, args []interface{}) (interface{}, error) {
	return state.(uint64) & args[0].(uint64), nil
}

func (a *BitAnd) Update(ctx *sql.Context, buffer sql.AggregationBuffer, row sql.Row) error {
	b := buffer.(*transBuffer)
	v, err := a.child.Eval(ctx, row)
	if err != nil {
		return err
	}
	if v == expression.Skip || v == nil {
		return nil
	}
	return agg.Advance(&b.TransValue, false, []interface{}{toUint64(v)}, a.transFn)
}

func (a *BitAnd) Eval(ctx *sql.Context, buffer sql.AggregationBuffer) (interface{}, error) {
	return buffer.(*transBuffer).Val, nil
}

func (a *BitAnd) Merge(ctx *sql.Context, dst, src sql.AggregationBuffer) error {
	d := dst.(*transBuffer)
	s := src.(*transBuffer)
	return agg.CombineTransition(&d.TransValue, s.Val, s.IsNull, func(state interface{}, args []interface{}) (interface{}, error) {
		return state.(uint64) & args[0].(uint64), nil
	})
}

// TransSpec exposes BitAnd's transition descriptor for StateKit wiring.
// Strict is true here (unlike Update's own non-strict Advance call) because
// the generic TransitionDriver evaluates row arguments without Update's
// surrounding null check; a strict transfn over a non-null identity initial
// value reproduces the same "ignore null inputs" behavior.
func (a *BitAnd) TransSpec() agg.PerTrans {
	return agg.PerTrans{
		Name:    "bit_and",
		TransFn: a.transFn,
		CombineFn: func(state interface{}, args []interface{}) (interface{}, error) {
			return state.(uint64) & args[0].(uint64), nil
		},
		Strict:        true,
		InitialValue:  ^uint64(0),
		InitialIsNull: false,
		ByValue:       true,
		NumArgs:       1,
	}
}

// BitOr implements BIT_OR(expr): identity element zero.
type BitOr struct {
	child sql.Expression
}

func NewBitOr(e sql.Expression) *BitOr { return &BitOr{child: e} }

func (o *BitOr) Type() sql.Type             { return sql.Uint64 }
func (o *BitOr) Resolved() bool             { return o.child.Resolved() }
func (o *BitOr) Children() []sql.Expression { return []sql.Expression{o.child} }
func (o *BitOr) String() string             { return fmt.Sprintf("BITOR(%s)", o.child) }

func (o *BitOr) NewBuffer() sql.AggregationBuffer {
	return newTransBuffer(uint64(0), false)
}

func (o *BitOr) transFn(state interface{}, args []interface{}) (interface{}, error) {
	return state.(uint64) | args[0].(uint64), nil
}

func (o *BitOr) Update(ctx *sql.Context, buffer sql.AggregationBuffer, row sql.Row) error {
	b := buffer.(*transBuffer)
	v, err := o.child.Eval(ctx, row)
	if err != nil {
		return err
	}
	if v == expression.Skip || v == nil {
		return nil
	}
	return agg.Advance(&b.TransValue, false, []interface{}{toUint64(v)}, o.transFn)
}

func (o *BitOr) Eval(ctx *sql.Context, buffer sql.AggregationBuffer) (interface{}, error) {
	return buffer.(*transBuffer).Val, nil
}

func (o *BitOr) Merge(ctx *sql.Context, dst, src sql.AggregationBuffer) error {
	d := dst.(*transBuffer)
	s := src.(*transBuffer)
	return agg.CombineTransition(&d.TransValue, s.Val, s.IsNull, func(state interface{}, args []interface{}) (interface{}, error) {
		return state.(uint64) | args[0].(uint64), nil
	})
}

// TransSpec exposes BitOr's transition descriptor for StateKit wiring.
func (o *BitOr) TransSpec() agg.PerTrans {
	return agg.PerTrans{
		Name:    "bit_or",
		TransFn: o.transFn,
		CombineFn: func(state interface{}, args []interface{}) (interface{}, error) {
			return state.(uint64) | args[0].(uint64), nil
		},
		Strict:        true,
		InitialValue:  uint64(0),
		InitialIsNull: false,
		ByValue:       true,
		NumArgs:       1,
	}
}

// BitXor implements BIT_XOR(expr): identity element zero.
type BitXor struct {
	child sql.Expression
}

func NewBitXor(e sql.Expression) *BitXor { return &BitXor{child: e} }

func (x *BitXor) Type() sql.Type             { return sql.Uint64 }
func (x *BitXor) Resolved() bool             { return x.child.Resolved() }
func (x *BitXor) Children() []sql.Expression { return []sql.Expression{x.child} }
func (x *BitXor) String() string             { return fmt.Sprintf("BITXOR(%s)", x.child) }

func (x *BitXor) NewBuffer() sql.AggregationBuffer {
	return newTransBuffer(uint64(0), false)
}

func (x *BitXor) transFn(state interface{}, args []interface{}) (interface{}, error) {
	return state.(uint64) ^ args[0].(uint64), nil
}

func (x *BitXor) Update(ctx *sql.Context, buffer sql.AggregationBuffer, row sql.Row) error {
	b := buffer.(*transBuffer)
	v, err := x.child.Eval(ctx, row)
	if err != nil {
		return err
	}
	if v == expression.Skip || v == nil {
		return nil
	}
	return agg.Advance(&b.TransValue, false, []interface{}{toUint64(v)}, x.transFn)
}

func (x *BitXor) Eval(ctx *sql.Context, buffer sql.AggregationBuffer) (interface{}, error) {
	return buffer.(*transBuffer).Val, nil
}

func (x *BitXor) Merge(ctx *sql.Context, dst, src sql.AggregationBuffer) error {
	d := dst.(*transBuffer)
	s := src.(*transBuffer)
	return agg.CombineTransition(&d.TransValue, s.Val, s.IsNull, func(state interface{}, args []interface{}) (interface{}, error) {
		return state.(uint64) ^ args[0].(uint64), nil
	})
}

// TransSpec exposes BitXor's transition descriptor for StateKit wiring.
func (x *BitXor) TransSpec() agg.PerTrans {
	return agg.PerTrans{
		Name:    "bit_xor",
		TransFn: x.transFn,
		CombineFn: func(state interface{}, args []interface{}) (interface{}, error) {
			return state.(uint64) ^ args[0].(uint64), nil
		},
		Strict:        true,
		InitialValue:  uint64(0),
		InitialIsNull: false,
		ByValue:       true,
		NumArgs:       1,
	}
}
