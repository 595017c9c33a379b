package sql

import "io"

// Row is a single tuple flowing through the engine: one value per column
// of the producing node's Schema. A nil interface{} element means SQL NULL.
type Row []interface{}

// NewRow builds a Row from its values.
func NewRow(values ...interface{}) Row {
	return Row(values)
}

// Copy returns a shallow copy of the row, the way a representative tuple is
// copied out of a hash-table probe or a group's first row is stashed aside.
func (r Row) Copy() Row {
	cp := make(Row, len(r))
	copy(cp, r)
	return cp
}

// RowIter is the pull-based iterator contract every node in this module
// produces and consumes. Suspension points (child fetch, sort produce,
// spill-file read) only ever occur inside Next.
type RowIter interface {
	// Next returns the next row, or io.EOF when exhausted.
	Next(ctx *Context) (Row, error)
	Close(ctx *Context) error
}

// RowsToRowIter adapts a fixed slice of rows into a RowIter, used by tests
// standing in for a child operator.
func RowsToRowIter(rows ...Row) RowIter {
	return &sliceRowIter{rows: rows}
}

type sliceRowIter struct {
	rows []Row
	pos  int
}

func (i *sliceRowIter) Next(ctx *Context) (Row, error) {
	if i.pos >= len(i.rows) {
		return nil, io.EOF
	}
	r := i.rows[i.pos]
	i.pos++
	return r, nil
}

func (i *sliceRowIter) Close(ctx *Context) error { return nil }

// RowsToSlice drains a RowIter into a slice; used by tests and by the
// inter-phase re-sort when materializing a small intermediate result.
func RowsToSlice(ctx *Context, iter RowIter) ([]Row, error) {
	var out []Row
	for {
		row, err := iter.Next(ctx)
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, err
		}
		out = append(out, row)
	}
	return out, iter.Close(ctx)
}
