package agg

import (
	"github.com/RoaringBitmap/roaring"

	"github.com/dolthub/aggexec/sql"
	"github.com/dolthub/aggexec/sql/plan"
)

// PhaseSet is one grouping set inside a phase, carrying the boundary-
// detection prefix length of §4.2: at a group boundary, the sets whose
// PrefixLen is greater than the first differing column index are finalized.
type PhaseSet struct {
	Columns   []sql.Expression
	PrefixLen int
	Hash      *GroupHashTable // non-nil only for phase 0 sets

	// Membership is the column-membership bitmap the caller passes through
	// to FinalizeDriver.Finalize for this set's representative masking
	// (§4.6 step 1); PhaseScheduler itself never reads it.
	Membership *roaring.Bitmap
}

// Phase is one pass described by §4.2: sorted phases 1..P have a fixed
// input order and their own PhaseSet list (most-specific last); the
// optional phase 0 holds every hashed grouping set.
type Phase struct {
	Number   int
	Strategy plan.Strategy
	Sets     []PhaseSet
	Kit      *StateKit
	Driver   *TransitionDriver

	// flat is the current sorted-path PerGroup array, valid only while a
	// group within this phase is open; nil for phase 0.
	flat      []TransValue
	prevRow   sql.Row
	havePrev  bool
}

// PhaseScheduler sequences a plan.AggNode chain into the phase order of
// §4.2: sorted phases 1..P in order, then (if any) hash phase 0 last.
type PhaseScheduler struct {
	phases []*Phase
	onEmit func(phaseNum int, set PhaseSet, groups []TransValue, rep sql.Row) error
}

// NewPhaseScheduler builds a scheduler over phases already constructed by
// the caller (one per plan.AggNode in the chain), with onEmit invoked for
// every group finalized at a boundary or at hash-phase drain time.
func NewPhaseScheduler(phases []*Phase, onEmit func(int, PhaseSet, []TransValue, sql.Row) error) *PhaseScheduler {
	return &PhaseScheduler{phases: phases, onEmit: onEmit}
}

// OverallStrategy derives MIXED/SORTED/HASHED/PLAIN for the scheduler as a
// whole from its phase list, per §4.2's definitions.
func (s *PhaseScheduler) OverallStrategy() plan.Strategy {
	hasHash, hasSorted := false, false
	for _, p := range s.phases {
		if p.Strategy == plan.Hashed {
			hasHash = true
		} else {
			hasSorted = true
		}
	}
	switch {
	case hasHash && hasSorted:
		return plan.Mixed
	case hasHash:
		return plan.Hashed
	case hasSorted:
		return plan.Sorted
	default:
		return plan.Plain
	}
}

// ProcessSortedPhase drives one sorted phase's input stream, detecting
// group boundaries on the leading grouping columns and finalizing/
// resetting sets whose prefix is covered by the change, most-specific
// first (§4.2 last bullet, §8 invariant 4).
func (s *PhaseScheduler) ProcessSortedPhase(ctx *sql.Context, p *Phase, row sql.Row) error {
	if p.flat == nil {
		p.flat = p.Kit.NewGroup()
	}

	if p.havePrev {
		changedAt := firstDifferingColumn(ctx, p.prevRow, row, widestSetColumns(p.Sets))
		if changedAt >= 0 {
			// Most specific (longest prefix) first, per §4.2: a set whose
			// grouping prefix reaches past changedAt has actually changed
			// and must be finalized; a set whose prefix lies entirely
			// within the unchanged leading columns keeps accumulating.
			for i := len(p.Sets) - 1; i >= 0; i-- {
				set := p.Sets[i]
				if set.PrefixLen <= changedAt {
					continue
				}
				if err := s.onEmit(p.Number, set, p.flat, p.prevRow); err != nil {
					return err
				}
			}
			p.flat = p.Kit.NewGroup()
		}
	}

	if err := p.Driver.ProcessRow(ctx, row, p.flat); err != nil {
		return err
	}
	p.prevRow = row.Copy()
	p.havePrev = true
	return nil
}

// FlushSortedPhase finalizes the last open group of a sorted phase at
// end-of-input.
func (s *PhaseScheduler) FlushSortedPhase(ctx *sql.Context, p *Phase) error {
	if !p.havePrev {
		return nil
	}
	for i := len(p.Sets) - 1; i >= 0; i-- {
		if err := s.onEmit(p.Number, p.Sets[i], p.flat, p.prevRow); err != nil {
			return err
		}
	}
	return nil
}

// DrainHashPhase iterates every hashed grouping set's table at end-of-
// input, the phase-0 drain step of §4.2 ("entering phase 0... iterate hash
// tables").
func (s *PhaseScheduler) DrainHashPhase(ctx *sql.Context, p *Phase) error {
	for _, set := range p.Sets {
		if set.Hash == nil {
			continue
		}
		err := set.Hash.Each(func(e *GroupEntry) error {
			return s.onEmit(p.Number, set, e.Groups, e.Representative)
		})
		if err != nil {
			return err
		}
	}
	return nil
}

func widestSetColumns(sets []PhaseSet) []sql.Expression {
	var widest []sql.Expression
	for _, s := range sets {
		if len(s.Columns) > len(widest) {
			widest = s.Columns
		}
	}
	return widest
}

// firstDifferingColumn returns the index of the first grouping column
// whose value differs between prev and cur, or -1 if all match.
func firstDifferingColumn(ctx *sql.Context, prev, cur sql.Row, cols []sql.Expression) int {
	for i, c := range cols {
		pv, _ := c.Eval(ctx, prev)
		cv, _ := c.Eval(ctx, cur)
		if c.Type().Compare(pv, cv) != 0 {
			return i
		}
	}
	return -1
}
