package aggregation

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/dolthub/aggexec/sql"
	"github.com/dolthub/aggexec/sql/expression"
)

func TestPercentileCont_Median(t *testing.T) {
	assert := require.New(t)
	ctx := sql.NewEmptyContext()

	p := NewPercentileCont(expression.NewGetField(0, sql.Float64, "field", true), 0.5)
	buf := p.NewBuffer()

	for _, v := range []float64{3, 1, 4, 2} {
		assert.NoError(p.Update(ctx, buf, sql.NewRow(v)))
	}

	v, err := p.Eval(ctx, buf)
	assert.NoError(err)
	assert.Equal(2.5, v)
}

func TestPercentileCont_Empty(t *testing.T) {
	assert := require.New(t)
	ctx := sql.NewEmptyContext()

	p := NewPercentileCont(expression.NewGetField(0, sql.Float64, "field", true), 0.5)
	buf := p.NewBuffer()

	v, err := p.Eval(ctx, buf)
	assert.NoError(err)
	assert.Nil(v)
}

func TestPercentileCont_SingleValue(t *testing.T) {
	assert := require.New(t)
	ctx := sql.NewEmptyContext()

	p := NewPercentileCont(expression.NewGetField(0, sql.Float64, "field", true), 0.9)
	buf := p.NewBuffer()
	assert.NoError(p.Update(ctx, buf, sql.NewRow(7.0)))

	v, err := p.Eval(ctx, buf)
	assert.NoError(err)
	assert.Equal(7.0, v)
}

func TestPercentileCont_Merge(t *testing.T) {
	assert := require.New(t)
	ctx := sql.NewEmptyContext()

	p := NewPercentileCont(expression.NewGetField(0, sql.Float64, "field", true), 0.5)

	left := p.NewBuffer()
	assert.NoError(p.Update(ctx, left, sql.NewRow(1.0)))
	assert.NoError(p.Update(ctx, left, sql.NewRow(3.0)))

	right := p.NewBuffer()
	assert.NoError(p.Update(ctx, right, sql.NewRow(2.0)))
	assert.NoError(p.Update(ctx, right, sql.NewRow(4.0)))

	assert.NoError(p.Merge(ctx, left, right))

	v, err := p.Eval(ctx, left)
	assert.NoError(err)
	assert.Equal(2.5, v)
}
