package expression

import (
	"fmt"

	"github.com/dolthub/aggexec/sql"
	"github.com/mitchellh/hashstructure"
)

// Skip is the sentinel DistinctExpression.Eval returns for a value already
// seen by this buffer's lifetime. Aggregation.Update implementations treat
// it exactly like a failed filter qual (§4.4 step 2a): skip the row without
// touching transition state.
var Skip = &struct{ skip bool }{skip: true}

// DistinctExpression wraps an aggregate's argument expression with the
// DISTINCT pre-processing of §4.5: a per-buffer-lifetime seen-set that
// turns repeat values into Skip. It is itself the thing StateKit keys
// PerTrans DISTINCT equality on (§4.1).
type DistinctExpression struct {
	expr sql.Expression
	seen map[uint64]struct{}
}

func NewDistinctExpression(expr sql.Expression) *DistinctExpression {
	return &DistinctExpression{expr: expr, seen: make(map[uint64]struct{})}
}

func (d *DistinctExpression) Type() sql.Type             { return d.expr.Type() }
func (d *DistinctExpression) Resolved() bool             { return d.expr.Resolved() }
func (d *DistinctExpression) Children() []sql.Expression { return []sql.Expression{d.expr} }
func (d *DistinctExpression) String() string             { return fmt.Sprintf("DISTINCT %s", d.expr) }

// Dispose clears the seen-set, the way a group-boundary arena reset clears
// a DISTINCT aggregate's scratch state between groups (§4.5).
func (d *DistinctExpression) Dispose() {
	d.seen = make(map[uint64]struct{})
}

func (d *DistinctExpression) Eval(ctx *sql.Context, row sql.Row) (interface{}, error) {
	v, err := d.expr.Eval(ctx, row)
	if err != nil {
		return nil, err
	}
	h, err := hashstructure.Hash(v, nil)
	if err != nil {
		return nil, err
	}
	if _, ok := d.seen[h]; ok {
		return Skip, nil
	}
	d.seen[h] = struct{}{}
	return v, nil
}
