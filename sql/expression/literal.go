package expression

import (
	"fmt"

	"github.com/dolthub/aggexec/sql"
)

// Literal is a constant value expression.
type Literal struct {
	value     interface{}
	fieldType sql.Type
}

func NewLiteral(value interface{}, fieldType sql.Type) *Literal {
	return &Literal{value: value, fieldType: fieldType}
}

func (l *Literal) Type() sql.Type             { return l.fieldType }
func (l *Literal) Resolved() bool             { return true }
func (l *Literal) Children() []sql.Expression { return nil }
func (l *Literal) String() string {
	if s, ok := l.value.(string); ok {
		return fmt.Sprintf("%q", s)
	}
	return fmt.Sprint(l.value)
}
func (l *Literal) Eval(ctx *sql.Context, row sql.Row) (interface{}, error) {
	return l.value, nil
}

// Star stands in for COUNT(*): it evaluates to a sentinel non-nil value so
// COUNT never treats it as a null argument, matching the teacher's
// NewStar()/COUNT(*) special case (count_test.go TestCountEvalStar).
type Star struct{}

func NewStar() *Star { return &Star{} }

func (s *Star) Type() sql.Type             { return sql.Boolean }
func (s *Star) Resolved() bool             { return true }
func (s *Star) Children() []sql.Expression { return nil }
func (s *Star) String() string             { return "*" }
func (s *Star) Eval(ctx *sql.Context, row sql.Row) (interface{}, error) {
	return true, nil
}

// Alias renames the result of an inner expression, used for the projected
// output columns of a GroupBy plan node.
type Alias struct {
	name string
	expr sql.Expression
}

func NewAlias(name string, expr sql.Expression) *Alias {
	return &Alias{name: name, expr: expr}
}

func (a *Alias) Type() sql.Type             { return a.expr.Type() }
func (a *Alias) Resolved() bool             { return a.expr.Resolved() }
func (a *Alias) Children() []sql.Expression { return []sql.Expression{a.expr} }
func (a *Alias) String() string             { return fmt.Sprintf("%s AS %s", a.expr, a.name) }
func (a *Alias) Name() string               { return a.name }
func (a *Alias) Eval(ctx *sql.Context, row sql.Row) (interface{}, error) {
	return a.expr.Eval(ctx, row)
}

// IsNull tests whether its child evaluates to SQL NULL; used in the
// grouping-sets rollup scenario to build a grouping key component that can
// distinguish a real NULL from a rollup-synthesized one upstream of the
// aggregate node.
type IsNull struct {
	expr sql.Expression
}

func NewIsNull(expr sql.Expression) *IsNull { return &IsNull{expr: expr} }

func (n *IsNull) Type() sql.Type             { return sql.Boolean }
func (n *IsNull) Resolved() bool             { return n.expr.Resolved() }
func (n *IsNull) Children() []sql.Expression { return []sql.Expression{n.expr} }
func (n *IsNull) String() string             { return fmt.Sprintf("%s IS NULL", n.expr) }
func (n *IsNull) Eval(ctx *sql.Context, row sql.Row) (interface{}, error) {
	v, err := n.expr.Eval(ctx, row)
	if err != nil {
		return nil, err
	}
	return v == nil, nil
}
