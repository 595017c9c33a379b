package agg

import (
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/require"

	"github.com/dolthub/aggexec/sql"
	"github.com/dolthub/aggexec/sql/expression"
)

func TestTransitionDriver_ProcessRow_StrictSkipsNull(t *testing.T) {
	assert := require.New(t)
	ctx := sql.NewEmptyContext()

	kit := NewStateKit()
	idx, err := kit.AddTrans(PerTrans{Name: "sum", TransFn: sumTransFn, Strict: true, InitialIsNull: true, NumArgs: 1})
	assert.NoError(err)
	assert.Equal(0, idx)

	calls := []TransCall{{Args: []sql.Expression{expression.NewGetField(0, sql.Float64, "v", true)}}}
	driver := NewTransitionDriver(kit, calls, logrus.NewEntry(logrus.New()))

	groups := kit.NewGroup()
	assert.NoError(driver.ProcessRow(ctx, sql.NewRow(nil), groups))
	assert.True(groups[0].NoTransValue)

	assert.NoError(driver.ProcessRow(ctx, sql.NewRow(3.0), groups))
	assert.Equal(3.0, groups[0].Val)

	assert.NoError(driver.ProcessRow(ctx, sql.NewRow(5.0), groups))
	assert.Equal(8.0, groups[0].Val)
}

func TestTransitionDriver_FilterSkipsRow(t *testing.T) {
	assert := require.New(t)
	ctx := sql.NewEmptyContext()

	kit := NewStateKit()
	_, err := kit.AddTrans(PerTrans{Name: "sum", TransFn: sumTransFn, Strict: true, InitialIsNull: true, NumArgs: 1})
	assert.NoError(err)

	falseFilter := expression.NewLiteral(false, sql.Boolean)
	calls := []TransCall{{
		Args:   []sql.Expression{expression.NewGetField(0, sql.Float64, "v", true)},
		Filter: falseFilter,
	}}
	driver := NewTransitionDriver(kit, calls, logrus.NewEntry(logrus.New()))

	groups := kit.NewGroup()
	assert.NoError(driver.ProcessRow(ctx, sql.NewRow(3.0), groups))
	assert.True(groups[0].NoTransValue)
}

func TestTransitionDriver_ProcessCombineRow(t *testing.T) {
	assert := require.New(t)
	ctx := sql.NewEmptyContext()

	kit := NewStateKit()
	_, err := kit.AddTrans(PerTrans{Name: "sum", CombineFn: sumTransFn, InitialIsNull: true, NumArgs: 1})
	assert.NoError(err)

	driver := NewTransitionDriver(kit, []TransCall{{}}, logrus.NewEntry(logrus.New()))
	groups := kit.NewGroup()

	assert.NoError(driver.ProcessCombineRow(ctx, []interface{}{3.0}, groups))
	assert.Equal(3.0, groups[0].Val)
	assert.NoError(driver.ProcessCombineRow(ctx, []interface{}{4.0}, groups))
	assert.Equal(7.0, groups[0].Val)
}
