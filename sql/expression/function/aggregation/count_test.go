package aggregation

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/dolthub/aggexec/sql"
	"github.com/dolthub/aggexec/sql/expression"
)

func TestCount_Eval(t *testing.T) {
	assert := require.New(t)
	ctx := sql.NewEmptyContext()

	c := NewCount(ctx, expression.NewGetField(0, sql.Int64, "field", true))
	buf := c.NewBuffer()

	assert.NoError(c.Update(ctx, buf, sql.NewRow(int64(1))))
	assert.NoError(c.Update(ctx, buf, sql.NewRow(nil)))
	assert.NoError(c.Update(ctx, buf, sql.NewRow(int64(3))))

	v, err := c.Eval(ctx, buf)
	assert.NoError(err)
	assert.Equal(int64(2), v)
}

func TestCount_Star(t *testing.T) {
	assert := require.New(t)
	ctx := sql.NewEmptyContext()

	c := NewCount(ctx, expression.NewStar())
	buf := c.NewBuffer()

	assert.NoError(c.Update(ctx, buf, sql.NewRow(nil)))
	assert.NoError(c.Update(ctx, buf, sql.NewRow(int64(3))))

	v, err := c.Eval(ctx, buf)
	assert.NoError(err)
	assert.Equal(int64(2), v)
	assert.Equal("COUNT(*)", c.String())
}

func TestCount_Merge(t *testing.T) {
	assert := require.New(t)
	ctx := sql.NewEmptyContext()

	c := NewCount(ctx, expression.NewGetField(0, sql.Int64, "field", true))

	left := c.NewBuffer()
	assert.NoError(c.Update(ctx, left, sql.NewRow(int64(1))))
	assert.NoError(c.Update(ctx, left, sql.NewRow(int64(2))))

	right := c.NewBuffer()
	assert.NoError(c.Update(ctx, right, sql.NewRow(int64(3))))

	assert.NoError(c.Merge(ctx, left, right))

	v, err := c.Eval(ctx, left)
	assert.NoError(err)
	assert.Equal(int64(3), v)
}
