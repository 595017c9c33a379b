package aggregation

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/dolthub/aggexec/sql"
	"github.com/dolthub/aggexec/sql/expression"
)

func TestMin_Eval(t *testing.T) {
	assert := require.New(t)
	ctx := sql.NewEmptyContext()

	m := NewMin(expression.NewGetField(0, sql.Int64, "field", true))
	buf := m.NewBuffer()

	assert.NoError(m.Update(ctx, buf, sql.NewRow(int64(5))))
	assert.NoError(m.Update(ctx, buf, sql.NewRow(int64(1))))
	assert.NoError(m.Update(ctx, buf, sql.NewRow(int64(3))))

	v, err := m.Eval(ctx, buf)
	assert.NoError(err)
	assert.Equal(int64(1), v)
}

func TestMin_Eval_Empty(t *testing.T) {
	assert := require.New(t)
	ctx := sql.NewEmptyContext()

	m := NewMin(expression.NewGetField(0, sql.Int64, "field", true))
	buf := m.NewBuffer()

	v, err := m.Eval(ctx, buf)
	assert.NoError(err)
	assert.Nil(v)
}

func TestMax_Eval(t *testing.T) {
	assert := require.New(t)
	ctx := sql.NewEmptyContext()

	m := NewMax(expression.NewGetField(0, sql.Int64, "field", true))
	buf := m.NewBuffer()

	assert.NoError(m.Update(ctx, buf, sql.NewRow(int64(5))))
	assert.NoError(m.Update(ctx, buf, sql.NewRow(int64(9))))
	assert.NoError(m.Update(ctx, buf, sql.NewRow(int64(3))))

	v, err := m.Eval(ctx, buf)
	assert.NoError(err)
	assert.Equal(int64(9), v)
}

func TestMax_Merge(t *testing.T) {
	assert := require.New(t)
	ctx := sql.NewEmptyContext()

	m := NewMax(expression.NewGetField(0, sql.Int64, "field", true))

	left := m.NewBuffer()
	assert.NoError(m.Update(ctx, left, sql.NewRow(int64(5))))

	right := m.NewBuffer()
	assert.NoError(m.Update(ctx, right, sql.NewRow(int64(9))))
	assert.NoError(m.Update(ctx, right, sql.NewRow(int64(2))))

	assert.NoError(m.Merge(ctx, left, right))

	v, err := m.Eval(ctx, left)
	assert.NoError(err)
	assert.Equal(int64(9), v)
}

func TestMinMax_String(t *testing.T) {
	min := NewMin(expression.NewGetField(0, sql.Int64, "field", true))
	max := NewMax(expression.NewGetField(0, sql.Int64, "field", true))
	require.Equal(t, "MIN(field)", min.String())
	require.Equal(t, "MAX(field)", max.String())
}
