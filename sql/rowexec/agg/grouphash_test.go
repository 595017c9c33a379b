package agg

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/dolthub/aggexec/sql"
	"github.com/dolthub/aggexec/sql/expression"
)

func TestGroupHashTable_LookupMissThenHit(t *testing.T) {
	assert := require.New(t)
	ctx := sql.NewEmptyContext()

	kit := NewStateKit()
	_, err := kit.AddTrans(PerTrans{Name: "sum", TransFn: sumTransFn, Strict: true, InitialIsNull: true, NumArgs: 1})
	assert.NoError(err)

	cols := HashKeyCols{
		KeyExprs: []sql.Expression{expression.NewGetField(0, sql.Int64, "k", true)},
		NumCols:  1,
	}
	table := NewGroupHashTable(cols, kit)

	row1 := sql.NewRow(int64(1), 10.0)
	entry1, isNew1, err := table.Lookup(ctx, row1)
	assert.NoError(err)
	assert.True(isNew1)
	assert.Len(entry1.Groups, 1)

	row2 := sql.NewRow(int64(1), 20.0)
	entry2, isNew2, err := table.Lookup(ctx, row2)
	assert.NoError(err)
	assert.False(isNew2)
	assert.Same(entry1, entry2)

	row3 := sql.NewRow(int64(2), 30.0)
	entry3, isNew3, err := table.Lookup(ctx, row3)
	assert.NoError(err)
	assert.True(isNew3)
	assert.NotSame(entry1, entry3)

	assert.Equal(2, table.Len())
}

func TestGroupHashTable_ResetEmptiesTable(t *testing.T) {
	assert := require.New(t)
	ctx := sql.NewEmptyContext()

	kit := NewStateKit()
	_, err := kit.AddTrans(PerTrans{Name: "sum", TransFn: sumTransFn, Strict: true, InitialIsNull: true, NumArgs: 1})
	assert.NoError(err)

	cols := HashKeyCols{KeyExprs: []sql.Expression{expression.NewGetField(0, sql.Int64, "k", true)}, NumCols: 1}
	table := NewGroupHashTable(cols, kit)

	_, _, err = table.Lookup(ctx, sql.NewRow(int64(1)))
	assert.NoError(err)
	assert.Equal(1, table.Len())

	table.Reset()
	assert.Equal(0, table.Len())
}

func TestGroupHashTable_EachVisitsAllEntries(t *testing.T) {
	assert := require.New(t)
	ctx := sql.NewEmptyContext()

	kit := NewStateKit()
	_, err := kit.AddTrans(PerTrans{Name: "sum", TransFn: sumTransFn, Strict: true, InitialIsNull: true, NumArgs: 1})
	assert.NoError(err)

	cols := HashKeyCols{KeyExprs: []sql.Expression{expression.NewGetField(0, sql.Int64, "k", true)}, NumCols: 1}
	table := NewGroupHashTable(cols, kit)

	for i := int64(0); i < 5; i++ {
		_, _, err := table.Lookup(ctx, sql.NewRow(i))
		assert.NoError(err)
	}

	count := 0
	err = table.Each(func(e *GroupEntry) error {
		count++
		return nil
	})
	assert.NoError(err)
	assert.Equal(5, count)
}
