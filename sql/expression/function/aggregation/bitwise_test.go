package aggregation

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/dolthub/aggexec/sql"
	"github.com/dolthub/aggexec/sql/expression"
)

func TestBitAnd_Eval(t *testing.T) {
	assert := require.New(t)
	ctx := sql.NewEmptyContext()

	a := NewBitAnd(expression.NewGetField(0, sql.Int64, "field", true))
	buf := a.NewBuffer()

	assert.NoError(a.Update(ctx, buf, sql.NewRow(int64(1))))
	assert.NoError(a.Update(ctx, buf, sql.NewRow(int64(3))))
	assert.NoError(a.Update(ctx, buf, sql.NewRow(int64(7))))

	v, err := a.Eval(ctx, buf)
	assert.NoError(err)
	assert.Equal(uint64(1), v)
}

func TestBitAnd_Eval_AllNull(t *testing.T) {
	assert := require.New(t)
	ctx := sql.NewEmptyContext()

	a := NewBitAnd(expression.NewGetField(0, sql.Int64, "field", true))
	buf := a.NewBuffer()

	assert.NoError(a.Update(ctx, buf, sql.NewRow(nil)))

	v, err := a.Eval(ctx, buf)
	assert.NoError(err)
	assert.Equal(^uint64(0), v)
}

func TestBitOr_Eval(t *testing.T) {
	assert := require.New(t)
	ctx := sql.NewEmptyContext()

	o := NewBitOr(expression.NewGetField(0, sql.Int64, "field", true))
	buf := o.NewBuffer()

	assert.NoError(o.Update(ctx, buf, sql.NewRow(int64(1))))
	assert.NoError(o.Update(ctx, buf, sql.NewRow(int64(2))))
	assert.NoError(o.Update(ctx, buf, sql.NewRow(int64(4))))

	v, err := o.Eval(ctx, buf)
	assert.NoError(err)
	assert.Equal(uint64(7), v)
}

func TestBitXor_Eval(t *testing.T) {
	assert := require.New(t)
	ctx := sql.NewEmptyContext()

	x := NewBitXor(expression.NewGetField(0, sql.Int64, "field", true))
	buf := x.NewBuffer()

	assert.NoError(x.Update(ctx, buf, sql.NewRow(int64(5))))
	assert.NoError(x.Update(ctx, buf, sql.NewRow(int64(3))))

	v, err := x.Eval(ctx, buf)
	assert.NoError(err)
	assert.Equal(uint64(6), v)
}

func TestBitwise_String(t *testing.T) {
	field := expression.NewGetField(0, sql.Int64, "field", true)
	require.Equal(t, "BITAND(field)", NewBitAnd(field).String())
	require.Equal(t, "BITOR(field)", NewBitOr(field).String())
	require.Equal(t, "BITXOR(field)", NewBitXor(field).String())
}
