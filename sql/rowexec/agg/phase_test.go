package agg

import (
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/require"

	"github.com/dolthub/aggexec/sql"
	"github.com/dolthub/aggexec/sql/expression"
	"github.com/dolthub/aggexec/sql/plan"
)

func TestPhaseScheduler_OverallStrategy(t *testing.T) {
	assert := require.New(t)

	sched := NewPhaseScheduler([]*Phase{{Strategy: plan.Sorted}}, nil)
	assert.Equal(plan.Sorted, sched.OverallStrategy())

	sched = NewPhaseScheduler([]*Phase{{Strategy: plan.Hashed}}, nil)
	assert.Equal(plan.Hashed, sched.OverallStrategy())

	sched = NewPhaseScheduler([]*Phase{{Strategy: plan.Sorted}, {Strategy: plan.Hashed}}, nil)
	assert.Equal(plan.Mixed, sched.OverallStrategy())
}

func TestPhaseScheduler_SortedPhase_BoundaryFinalizesMostSpecificFirst(t *testing.T) {
	assert := require.New(t)
	ctx := sql.NewEmptyContext()

	kit := NewStateKit()
	_, err := kit.AddTrans(PerTrans{Name: "sum", TransFn: sumTransFn, Strict: true, InitialIsNull: true, NumArgs: 1})
	assert.NoError(err)

	calls := []TransCall{{Args: []sql.Expression{expression.NewGetField(1, sql.Float64, "v", true)}}}
	driver := NewTransitionDriver(kit, calls, logrus.NewEntry(logrus.New()))

	col0 := expression.NewGetField(0, sql.Int64, "a", true)
	col1 := expression.NewGetField(1, sql.Int64, "b", true)

	p := &Phase{
		Number:   1,
		Strategy: plan.Sorted,
		Kit:      kit,
		Driver:   driver,
		Sets: []PhaseSet{
			{Columns: []sql.Expression{col0}, PrefixLen: 1},
			{Columns: []sql.Expression{col0, col1}, PrefixLen: 2},
		},
	}

	var emitted []struct {
		setPrefix int
		rep       sql.Row
	}
	sched := NewPhaseScheduler([]*Phase{p}, func(phaseNum int, set PhaseSet, groups []TransValue, rep sql.Row) error {
		emitted = append(emitted, struct {
			setPrefix int
			rep       sql.Row
		}{set.PrefixLen, rep})
		return nil
	})

	rows := []sql.Row{
		sql.NewRow(int64(1), int64(1), 10.0),
		sql.NewRow(int64(1), int64(1), 20.0),
		sql.NewRow(int64(1), int64(2), 30.0),
		sql.NewRow(int64(2), int64(1), 40.0),
	}
	for _, r := range rows {
		assert.NoError(sched.ProcessSortedPhase(ctx, p, r))
	}
	assert.NoError(sched.FlushSortedPhase(ctx, p))

	// Two boundaries mid-stream (at row index 2 and row index 3) each
	// finalize prefix-2 then prefix-1 where their prefix covers the
	// change, plus the final flush finalizes both sets for the last group.
	assert.True(len(emitted) >= 3)
	assert.Equal(2, emitted[0].setPrefix)
}

func TestPhaseScheduler_DrainHashPhase(t *testing.T) {
	assert := require.New(t)
	ctx := sql.NewEmptyContext()

	kit := NewStateKit()
	_, err := kit.AddTrans(PerTrans{Name: "sum", TransFn: sumTransFn, Strict: true, InitialIsNull: true, NumArgs: 1})
	assert.NoError(err)

	cols := HashKeyCols{KeyExprs: []sql.Expression{expression.NewGetField(0, sql.Int64, "k", true)}, NumCols: 1}
	table := NewGroupHashTable(cols, kit)
	_, _, err = table.Lookup(ctx, sql.NewRow(int64(1)))
	assert.NoError(err)
	_, _, err = table.Lookup(ctx, sql.NewRow(int64(2)))
	assert.NoError(err)

	p := &Phase{Number: 0, Strategy: plan.Hashed, Sets: []PhaseSet{{Hash: table}}}
	sched := NewPhaseScheduler([]*Phase{p}, nil)

	count := 0
	sched.onEmit = func(phaseNum int, set PhaseSet, groups []TransValue, rep sql.Row) error {
		count++
		return nil
	}
	assert.NoError(sched.DrainHashPhase(ctx, p))
	assert.Equal(2, count)
}
