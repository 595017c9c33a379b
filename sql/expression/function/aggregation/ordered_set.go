package aggregation

import (
	"fmt"
	"sort"

	"github.com/dolthub/aggexec/sql"
	"github.com/dolthub/aggexec/sql/expression"
)

// percentileBuffer collects every observed value for its group; the
// ordered-set finalfn (PercentileCont.Eval) needs the complete, sorted
// population and therefore cannot use a running transition value at all —
// exactly the process_ordered_multi path of spec.md §4.5, where a sort node
// feeds the aggregate a run ordered on WITHIN GROUP's columns rather than
// on arrival order.
type percentileBuffer struct {
	values []float64
}

func (b *percentileBuffer) Dispose() { b.values = nil }

// PercentileCont implements PERCENTILE_CONT(fraction) WITHIN GROUP
// (ORDER BY expr), the ordered-set aggregate spec.md's supplemented
// feature list calls for: fraction is a constant fixed at construction
// (not a per-group DirectArg expression), and the aggregated column is
// sorted before Eval performs linear interpolation between the two
// bracketing order statistics.
type PercentileCont struct {
	child    sql.Expression
	fraction float64
}

func NewPercentileCont(e sql.Expression, fraction float64) *PercentileCont {
	return &PercentileCont{child: e, fraction: fraction}
}

func (p *PercentileCont) Type() sql.Type             { return sql.Float64 }
func (p *PercentileCont) Resolved() bool             { return p.child.Resolved() }
func (p *PercentileCont) Children() []sql.Expression { return []sql.Expression{p.child} }
func (p *PercentileCont) String() string {
	return fmt.Sprintf("PERCENTILE_CONT(%v) WITHIN GROUP (ORDER BY %s)", p.fraction, p.child)
}

func (p *PercentileCont) NewBuffer() sql.AggregationBuffer {
	return &percentileBuffer{}
}

func (p *PercentileCont) Update(ctx *sql.Context, buffer sql.AggregationBuffer, row sql.Row) error {
	b := buffer.(*percentileBuffer)
	v, err := p.child.Eval(ctx, row)
	if err != nil {
		return err
	}
	if v == expression.Skip || v == nil {
		return nil
	}
	b.values = append(b.values, toFloat64(v))
	return nil
}

func (p *PercentileCont) Eval(ctx *sql.Context, buffer sql.AggregationBuffer) (interface{}, error) {
	b := buffer.(*percentileBuffer)
	n := len(b.values)
	if n == 0 {
		return nil, nil
	}
	sorted := make([]float64, n)
	copy(sorted, b.values)
	sort.Float64s(sorted)

	if n == 1 {
		return sorted[0], nil
	}
	rank := p.fraction * float64(n-1)
	lo := int(rank)
	if lo >= n-1 {
		return sorted[n-1], nil
	}
	frac := rank - float64(lo)
	return sorted[lo] + frac*(sorted[lo+1]-sorted[lo]), nil
}

// Merge concatenates partial populations; PercentileCont needs the full
// sorted population at finalize time regardless of how it arrived, so
// partial aggregation buys no early interpolation, only deferred sorting.
func (p *PercentileCont) Merge(ctx *sql.Context, dst, src sql.AggregationBuffer) error {
	d := dst.(*percentileBuffer)
	s := src.(*percentileBuffer)
	d.values = append(d.values, s.values...)
	return nil
}
