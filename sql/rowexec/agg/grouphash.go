package agg

import (
	"github.com/RoaringBitmap/roaring"
	"github.com/mitchellh/hashstructure"

	"github.com/dolthub/aggexec/sql"
)

// GroupEntry is a group hash entry (§3 "Group hash entry"): the
// representative minimal tuple plus the PerGroup array of length numtrans
// for this group.
type GroupEntry struct {
	Key            sql.Row
	Representative sql.Row
	Groups         []TransValue

	// Sorts holds this group's own per-trans DISTINCT/ORDER-BY drivers,
	// parallel to Groups, lazily populated by the caller driving a hashed
	// phase (nil entries are trans with no deferred sort). GroupHashTable
	// itself never reads or writes this slice; it exists here because the
	// hash table, not a flat single-group driver, is what owns a group's
	// lifetime in the hashed-strategy path.
	Sorts []*SortDriver
}

// HashKeyCols describes the projection a hashed grouping set's hash table
// is keyed by (§4.3): the first NumCols of KeyExprs are the hash-key
// columns, reserved contiguous and first exactly as the source requires.
type HashKeyCols struct {
	KeyExprs []sql.Expression
	NumCols  int
	// Membership is the column-membership bitmap for this grouping set,
	// used by FinalizeDriver to null out non-member columns (§4.6 step 1)
	// and built with RoaringBitmap for the grouping-sets case where many
	// sets share mostly-overlapping membership.
	Membership *roaring.Bitmap
}

// GroupHashTable is the tuple hash table of §4.3: a Go map from the hash
// of a projected grouping-column tuple to a chain of GroupEntry values
// whose keys collide on that hash (separate chaining). One instance
// exists per hashed grouping set of a phase-0 PerHash descriptor.
type GroupHashTable struct {
	cols HashKeyCols
	kit  *StateKit

	entries map[uint64][]*GroupEntry // hash bucket -> entries (collision chain)
	count   int
}

// NewGroupHashTable builds an empty table for one hashed grouping set.
func NewGroupHashTable(cols HashKeyCols, kit *StateKit) *GroupHashTable {
	return &GroupHashTable{
		cols:    cols,
		kit:     kit,
		entries: make(map[uint64][]*GroupEntry),
	}
}

// keyTuple materializes the hash slot: the first NumCols columns of the
// hashed grouping set's projection, evaluated against row (§4.3 step 1).
func (h *GroupHashTable) keyTuple(ctx *sql.Context, row sql.Row) (sql.Row, error) {
	key := make(sql.Row, h.cols.NumCols)
	for i := 0; i < h.cols.NumCols; i++ {
		v, err := h.cols.KeyExprs[i].Eval(ctx, row)
		if err != nil {
			return nil, err
		}
		key[i] = v
	}
	return key, nil
}

func (h *GroupHashTable) hashKey(key sql.Row) (uint64, error) {
	return hashstructure.Hash(key, nil)
}

func keyEquals(a, b sql.Row) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] == nil && b[i] == nil {
			continue
		}
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

// Lookup implements §4.3's per-lookup protocol: materialize the hash slot,
// probe, and on miss allocate a fresh PerGroup array via the StateKit and
// record the representative tuple. The returned bool is true when a new
// entry was created.
func (h *GroupHashTable) Lookup(ctx *sql.Context, row sql.Row) (*GroupEntry, bool, error) {
	key, err := h.keyTuple(ctx, row)
	if err != nil {
		return nil, false, err
	}
	hv, err := h.hashKey(key)
	if err != nil {
		return nil, false, err
	}
	for _, e := range h.entries[hv] {
		if keyEquals(e.Key, key) {
			return e, false, nil
		}
	}
	entry := &GroupEntry{
		Key:            key,
		Representative: row.Copy(),
		Groups:         h.kit.NewGroup(),
	}
	h.entries[hv] = append(h.entries[hv], entry)
	h.count++
	return entry, true, nil
}

// Len reports the number of distinct groups currently resident in memory;
// SpillEngine compares this against nentries to decide when the table is
// full (§4.7).
func (h *GroupHashTable) Len() int { return h.count }

// Each iterates every resident entry in unspecified order, the non-hybrid
// output path of §4.7's read protocol step 1.
func (h *GroupHashTable) Each(fn func(*GroupEntry) error) error {
	for _, bucket := range h.entries {
		for _, e := range bucket {
			if err := fn(e); err != nil {
				return err
			}
		}
	}
	return nil
}

// Reset empties the table (§4.7 write protocol step 3: "reset the hash
// table and its arena; the table is now empty and receives new inserts").
func (h *GroupHashTable) Reset() {
	h.entries = make(map[uint64][]*GroupEntry)
	h.count = 0
}

// HashOf computes the full (unmodded) grouping-key hash for key, the value
// a caller spilling this table's entries stashes as Entry.HashKey so the
// spill engine can re-derive a bucket under whatever modulus its current
// recursion level uses (§4.7 write protocol).
func (h *GroupHashTable) HashOf(key sql.Row) (uint32, error) {
	hv, err := h.hashKey(key)
	if err != nil {
		return 0, err
	}
	return uint32(hv), nil
}

// Membership exposes this table's grouping-set membership bitmap, the way
// a caller draining this table via PhaseScheduler.DrainHashPhase recovers
// the PhaseSet.Membership it needs to pass into FinalizeDriver.Finalize.
func (h *GroupHashTable) Membership() *roaring.Bitmap { return h.cols.Membership }

// BucketFor computes the partition index for key under modulus nbatches,
// used by SpillEngine to route a full table's entries (§4.7 step 2:
// "spill_files[hashkey mod num_files]").
func (h *GroupHashTable) BucketFor(key sql.Row, nbatches int) (uint32, error) {
	hv, err := h.hashKey(key)
	if err != nil {
		return 0, err
	}
	return uint32(hv) % uint32(nbatches), nil
}
