package aggregation

import (
	"fmt"

	"github.com/dolthub/aggexec/sql"
	"github.com/dolthub/aggexec/sql/expression"
)

// avgState is AVG's compound transition value: running sum and count.
// Scenario F (§8) exercises this exact aggregate split four ways and
// recombined via Merge.
type avgState struct {
	sum   float64
	count int64
}

type avgBuffer struct {
	state  avgState
	isNull bool
}

func (b *avgBuffer) Dispose() {}

// Avg implements AVG(expr). Unlike Sum/Count, its transition state is a
// compound (sum, count) pair that cannot be adopted raw from the first
// input (it is never binary-compatible with a scalar column value), so it
// does not use the §4.4 strict-shortcut at all — every non-null row goes
// through the transition function.
type Avg struct {
	child sql.Expression
}

func NewAvg(ctx *sql.Context, e sql.Expression) *Avg {
	return &Avg{child: e}
}

func (a *Avg) Type() sql.Type             { return sql.Float64 }
func (a *Avg) Resolved() bool             { return a.child.Resolved() }
func (a *Avg) Children() []sql.Expression { return []sql.Expression{a.child} }
func (a *Avg) String() string {
	if d, ok := a.child.(*expression.DistinctExpression); ok {
		return fmt.Sprintf("AVG(DISTINCT %s)", d.Children()[0])
	}
	return fmt.Sprintf("AVG(%s)", a.child)
}

func (a *Avg) NewBuffer() sql.AggregationBuffer {
	return &avgBuffer{isNull: true}
}

func (a *Avg) Update(ctx *sql.Context, buffer sql.AggregationBuffer, row sql.Row) error {
	b := buffer.(*avgBuffer)
	v, err := a.child.Eval(ctx, row)
	if err != nil {
		return err
	}
	if v == expression.Skip || v == nil {
		return nil
	}
	b.state.sum += toFloat64(v)
	b.state.count++
	b.isNull = false
	return nil
}

func (a *Avg) Eval(ctx *sql.Context, buffer sql.AggregationBuffer) (interface{}, error) {
	b := buffer.(*avgBuffer)
	if b.isNull || b.state.count == 0 {
		return nil, nil
	}
	return b.state.sum / float64(b.state.count), nil
}

// Merge combines two partial AVG states by adding sums and counts — the
// textbook example of why AVG needs a real combine function rather than
// recombining finalized averages (spec.md §8 scenario F).
func (a *Avg) Merge(ctx *sql.Context, dst, src sql.AggregationBuffer) error {
	d := dst.(*avgBuffer)
	s := src.(*avgBuffer)
	if s.isNull {
		return nil
	}
	d.state.sum += s.state.sum
	d.state.count += s.state.count
	d.isNull = false
	return nil
}
