package agg

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/dolthub/aggexec/sql"
	"github.com/dolthub/aggexec/sql/expression"
)

func TestMemSort_PutPerformSortGet(t *testing.T) {
	assert := require.New(t)

	fields := sql.SortFields{{Column: expression.NewGetField(0, sql.Int64, "a", true), Order: sql.Ascending}}
	s := NewSort(fields)
	s.Put(sql.NewRow(int64(3)))
	s.Put(sql.NewRow(int64(1)))
	s.Put(sql.NewRow(int64(2)))
	s.PerformSort()

	var got []int64
	for {
		row, ok := s.Get()
		if !ok {
			break
		}
		got = append(got, row[0].(int64))
	}
	assert.Equal([]int64{1, 2, 3}, got)
	s.End()
	_, ok := s.Get()
	assert.False(ok)
}

func TestSortDriver_StreamAccepted_SuppressesDuplicates(t *testing.T) {
	assert := require.New(t)

	fields := sql.SortFields{{Column: expression.NewGetField(0, sql.Int64, "a", true), Order: sql.Ascending}}
	d := NewSortDriver(fields, 1, 1)
	d.Push(sql.NewRow(int64(1)))
	d.Push(sql.NewRow(int64(2)))
	d.Push(sql.NewRow(int64(1)))
	d.Push(sql.NewRow(int64(2)))

	var accepted []int64
	err := d.StreamAccepted(func(row sql.Row) error {
		accepted = append(accepted, row[0].(int64))
		return nil
	})
	assert.NoError(err)
	assert.Equal([]int64{1, 2}, accepted)
}

func TestSortDriver_StreamAccepted_NoDistinctKeepsAll(t *testing.T) {
	assert := require.New(t)

	fields := sql.SortFields{{Column: expression.NewGetField(0, sql.Int64, "a", true), Order: sql.Ascending}}
	d := NewSortDriver(fields, 0, 1)
	d.Push(sql.NewRow(int64(1)))
	d.Push(sql.NewRow(int64(1)))

	var count int
	err := d.StreamAccepted(func(row sql.Row) error {
		count++
		return nil
	})
	assert.NoError(err)
	assert.Equal(2, count)
}
