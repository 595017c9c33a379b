package spill

import (
	"os"

	"github.com/dolthub/aggexec/sql"
)

// Entry is the caller-facing (already-encoded) view of one spilled hash
// entry: the byte-encoded pieces named in §6's record format, plus the
// hash key the write protocol routes on. Encoding/decoding representative
// tuples, PerGroup arrays and transition values is StateKit-aware work the
// agg package performs before/after calling into this package, keeping
// spill ignorant of concrete transition-value types (avoiding an import
// cycle back to sql/rowexec/agg).
type Entry struct {
	HashKey        uint32
	Representative []byte
	PerGroupBlob   []byte
	TransBlobs     [][]byte
}

func (e Entry) toRecord() Record {
	return Record{HashKey: e.HashKey, Representative: e.Representative, PerGroupBlob: e.PerGroupBlob, TransBlobs: e.TransBlobs}
}

func entryFromRecord(r Record) Entry {
	return Entry{HashKey: r.HashKey, Representative: r.Representative, PerGroupBlob: r.PerGroupBlob, TransBlobs: r.TransBlobs}
}

// Engine implements the hybrid hash-aggregation overflow protocol of
// §4.7 for one hash table: sizing is the caller's responsibility
// (nentries = work_mem / per-entry size); this type only owns the
// partition-file bookkeeping.
type Engine struct {
	dir      string
	nbatches int

	root *SpillSet
	cur  *SpillSet
}

// NewEngine prepares an engine rooted at dir (a scratch directory the
// caller owns and eventually removes) with a fixed partition count
// nbatches (§4.7 "default 32").
func NewEngine(dir string, nbatches int) (*Engine, error) {
	if err := os.MkdirAll(dir, 0700); err != nil {
		return nil, sql.ErrSpillIO.New(err.Error())
	}
	return &Engine{dir: dir, nbatches: nbatches}, nil
}

// HasSpilled reports whether this table has ever spilled (§4.7 write
// protocol step 1: "if the table has no spill set, allocate one").
func (e *Engine) HasSpilled() bool { return e.root != nil }

// SpillEntries writes every entry of a full in-memory table to
// spill_files[hashkey mod num_files] (§4.7 write protocol steps 1-2),
// allocating the root SpillSet on first call.
func (e *Engine) SpillEntries(entries []Entry) error {
	if e.root == nil {
		root, err := newSpillSet(e.dir, e.nbatches, 0, nil)
		if err != nil {
			return err
		}
		e.root = root
	}
	for _, ent := range entries {
		bucket := ent.HashKey % uint32(e.root.NumFiles)
		if err := e.root.Files[bucket].Write(ent.toRecord()); err != nil {
			return err
		}
	}
	return nil
}

// BeginRead positions the engine at the root SpillSet to start the
// post-input read protocol (§4.7 read protocol step 2).
func (e *Engine) BeginRead() {
	e.cur = e.root
}

// Next returns the next spilled entry in file/set traversal order, or
// ok=false once the root SpillSet is exhausted (engine finalized). It
// implements the file-then-sibling-then-parent descent of §4.7 step 2's
// bullet list, including the child-SpillSet descent created by a prior
// PromoteAndRespill.
func (e *Engine) Next() (Entry, bool, error) {
	for {
		if e.cur == nil {
			return Entry{}, false, nil
		}
		f := e.cur.CurrentFile()
		if f == nil {
			e.cur = e.cur.Parent
			continue
		}
		rec, ok, err := f.ReadNext()
		if err != nil {
			return Entry{}, false, err
		}
		if !ok {
			if !f.Exhausted() {
				return Entry{}, false, sql.ErrSpillIO.New("spill file record count mismatch on reload")
			}
			if f.Child != nil {
				child := f.Child
				f.Close()
				e.cur.Advance()
				e.cur = child
				continue
			}
			f.Close()
			e.cur.Advance()
			continue
		}
		return entryFromRecord(rec), true, nil
	}
}

// PromoteAndRespill implements the "missed AND table again full" branch
// of §4.7 step 2: the current file (wherever e.cur's cursor currently
// points) gains a child SpillSet one level deeper with one more file than
// its parent, and ent is re-spilled into that child by hash. Recursion
// invariant: NumFiles strictly increases at each descent, bounding fan-out.
func (e *Engine) PromoteAndRespill(ent Entry) error {
	f := e.cur.CurrentFile()
	if f == nil {
		return sql.ErrSpillIO.New("promote requested with no current spill file")
	}
	if f.Child == nil {
		child, err := newSpillSet(e.dir, e.cur.NumFiles+1, e.cur.Level+1, e.cur)
		if err != nil {
			return err
		}
		f.Child = child
	}
	bucket := ent.HashKey % uint32(f.Child.NumFiles)
	return f.Child.Files[bucket].Write(ent.toRecord())
}

// Close releases every SpillFile ever created by this engine, walking the
// full SpillSet tree, and removes the scratch directory.
func (e *Engine) Close() error {
	var walk func(s *SpillSet)
	walk = func(s *SpillSet) {
		if s == nil {
			return
		}
		for _, f := range s.Files {
			walk(f.Child)
			f.Close()
		}
	}
	walk(e.root)
	return os.RemoveAll(e.dir)
}
