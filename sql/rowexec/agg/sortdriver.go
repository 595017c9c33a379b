package agg

import (
	"sort"

	"github.com/dolthub/aggexec/sql"
)

// Sort is the external-sort black box spec.md §1 names as an out-of-scope
// collaborator ("put tuple", "perform sort", "get tuple/get datum"). This
// module only needs the three-verb contract, so SortDriver wraps an
// in-memory implementation behind the same interface a real external merge
// sort would expose; its caller (SortDriver, which backs FinalizeDriver's
// §4.5 DISTINCT/ORDER-BY materialization) never observes the difference.
// PhaseScheduler does not use it.
type Sort interface {
	// Put appends a tuple to the unsorted run.
	Put(row sql.Row)
	// PerformSort finalizes the run; no further Put calls are valid.
	PerformSort()
	// Get returns the next tuple in sorted order, or ok=false when
	// exhausted.
	Get() (sql.Row, bool)
	// End releases the sort's resources (§4.5 "both paths end the sort
	// and clear its handle").
	End()
}

// memSort is the in-memory Sort implementation. A spill-to-disk variant
// would satisfy the same interface; nothing outside this file depends on
// the representation.
type memSort struct {
	fields sql.SortFields
	rows   []sql.Row
	pos    int
	done   bool
}

// NewSort builds a Sort ordered by fields.
func NewSort(fields sql.SortFields) Sort {
	return &memSort{fields: fields}
}

func (s *memSort) Put(row sql.Row) {
	s.rows = append(s.rows, row)
}

func (s *memSort) PerformSort() {
	fields := s.fields
	sort.SliceStable(s.rows, func(i, j int) bool {
		return lessRow(fields, s.rows[i], s.rows[j])
	})
	s.done = true
}

func (s *memSort) Get() (sql.Row, bool) {
	if !s.done || s.pos >= len(s.rows) {
		return nil, false
	}
	r := s.rows[s.pos]
	s.pos++
	return r, true
}

func (s *memSort) End() {
	s.rows = nil
	s.pos = 0
	s.done = false
}

// lessRow compares two rows by a SortFields specification for memSort.
// Group-boundary detection and §4.5's duplicate skipping use their own
// comparisons, not this one.
func lessRow(fields sql.SortFields, a, b sql.Row) bool {
	for _, f := range fields {
		av, _ := f.Column.Eval(nil, a)
		bv, _ := f.Column.Eval(nil, b)
		c := f.Column.Type().Compare(av, bv)
		if c == 0 {
			continue
		}
		if f.Order == sql.Descending {
			return c > 0
		}
		return c < 0
	}
	return false
}

// SortDriver wraps a Sort for one PerTrans's DISTINCT/ORDER-BY
// materialization in one grouping set, §4.5's process_ordered_single /
// process_ordered_multi paths.
type SortDriver struct {
	sort            Sort
	numDistinctCols int
	numTransInputs  int
}

// NewSortDriver builds a driver over fields with numDistinctCols leading
// columns significant for duplicate suppression and numTransInputs leading
// columns significant for the transition function's own arguments.
func NewSortDriver(fields sql.SortFields, numDistinctCols, numTransInputs int) *SortDriver {
	return &SortDriver{
		sort:            NewSort(fields),
		numDistinctCols: numDistinctCols,
		numTransInputs:  numTransInputs,
	}
}

// Push appends one materialized sort slot (§4.4 step 2b).
func (d *SortDriver) Push(row sql.Row) { d.sort.Put(row) }

// StreamAccepted performs §4.5's perform-sort-then-stream protocol,
// invoking accept for each row that survives duplicate suppression (when
// numDistinctCols>0, rows whose leading numDistinctCols/numTransInputs
// columns equal the immediately preceding accepted row are skipped).
func (d *SortDriver) StreamAccepted(accept func(sql.Row) error) error {
	d.sort.PerformSort()
	defer d.sort.End()

	var prev sql.Row
	havePrev := false
	checkCols := d.numDistinctCols
	if checkCols == 0 {
		checkCols = d.numTransInputs
	}
	for {
		row, ok := d.sort.Get()
		if !ok {
			break
		}
		if d.numDistinctCols > 0 && havePrev && rowPrefixEqual(prev, row, checkCols) {
			continue
		}
		if err := accept(row); err != nil {
			return err
		}
		prev = row
		havePrev = true
	}
	return nil
}

func rowPrefixEqual(a, b sql.Row, n int) bool {
	for i := 0; i < n && i < len(a) && i < len(b); i++ {
		if a[i] == nil && b[i] == nil {
			continue
		}
		if a[i] != b[i] {
			return false
		}
	}
	return true
}
