package redistribute

import (
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"sync/atomic"

	iradix "github.com/hashicorp/go-immutable-radix"
	"github.com/mitchellh/hashstructure"
)

// FileListStore publishes, per (sender, receiver) pair, the append-once
// list of on-disk spill-file names a sender has flushed (§4.8's
// ReDistributeBufFile descriptor). It is backed by an immutable radix
// tree so a consumer can read a consistent snapshot without locking
// against a sender publishing a newer one — exactly the kind of
// lock-free, append-mostly shared structure hashicorp/go-immutable-radix
// is built for.
type FileListStore struct {
	tree atomic.Value // *iradix.Tree
}

// NewFileListStore builds an empty store.
func NewFileListStore() *FileListStore {
	s := &FileListStore{}
	s.tree.Store(iradix.New())
	return s
}

func pairKey(sender, receiver int) []byte {
	return []byte(fmt.Sprintf("%d,%d", sender, receiver))
}

// Publish records the final file list for (sender, receiver); called once
// by the sender after flushing (§4.8 "publishes their names into the
// shared descriptor").
func (s *FileListStore) Publish(sender, receiver int, files []string) {
	for {
		old := s.tree.Load().(*iradix.Tree)
		updated, _, _ := old.Insert(pairKey(sender, receiver), files)
		if s.tree.CompareAndSwap(old, updated) {
			return
		}
	}
}

// Files reads the published list for (sender, receiver), or nil if the
// sender has not published yet.
func (s *FileListStore) Files(sender, receiver int) []string {
	tree := s.tree.Load().(*iradix.Tree)
	v, ok := tree.Get(pairKey(sender, receiver))
	if !ok {
		return nil
	}
	return v.([]string)
}

// spillWriter accumulates a sender's overflow rows for one target worker
// into a sequence of small files under dir, the "sender's local spill-
// file dedicated to target" of §4.8 step 3.
type spillWriter struct {
	dir    string
	target int
	files  []string
	cur    *os.File
}

func newSpillWriter(dir string, target int) *spillWriter {
	return &spillWriter{dir: dir, target: target}
}

func (w *spillWriter) Write(payload []byte) error {
	if w.cur == nil {
		if err := os.MkdirAll(w.dir, 0700); err != nil {
			return err
		}
		name := filepath.Join(w.dir, fmt.Sprintf("redist-%d-%d.bin", w.target, len(w.files)))
		f, err := os.Create(name)
		if err != nil {
			return err
		}
		w.cur = f
		w.files = append(w.files, name)
	}
	var lenBuf [4]byte
	lenBuf[0] = byte(len(payload))
	lenBuf[1] = byte(len(payload) >> 8)
	lenBuf[2] = byte(len(payload) >> 16)
	lenBuf[3] = byte(len(payload) >> 24)
	if _, err := w.cur.Write(lenBuf[:]); err != nil {
		return err
	}
	_, err := w.cur.Write(payload)
	return err
}

func (w *spillWriter) Flush() ([]string, error) {
	if w.cur != nil {
		if err := w.cur.Close(); err != nil {
			return nil, err
		}
		w.cur = nil
	}
	return w.files, nil
}

// Redistributor implements §4.8's row-routing and shutdown/consume
// protocol for one worker among numWorkers launched siblings.
type Redistributor struct {
	self       int
	numWorkers int

	ringCapacity int
	rings        [][]*Ring // rings[sender][receiver]
	status       *StatusBoard
	files        *FileListStore

	spillers map[int]*spillWriter
	scratch  string

	mu      sync.Mutex
	drained [][]byte
}

// New builds a Redistributor for worker `self` among numWorkers peers,
// sharing status, rings and the file-list store (constructed once by the
// launching coordinator and handed to every worker instance).
func New(self, numWorkers, ringCapacity int, status *StatusBoard, rings [][]*Ring, files *FileListStore, scratchDir string) *Redistributor {
	return &Redistributor{
		self:         self,
		numWorkers:   numWorkers,
		ringCapacity: ringCapacity,
		rings:        rings,
		status:       status,
		files:        files,
		spillers:     make(map[int]*spillWriter),
		scratch:      scratchDir,
	}
}

// NewSharedRings builds the numWorkers x numWorkers ring matrix a
// coordinator allocates once and shares across worker instances.
func NewSharedRings(numWorkers, ringCapacity int) [][]*Ring {
	rings := make([][]*Ring, numWorkers)
	for s := range rings {
		rings[s] = make([]*Ring, numWorkers)
		for r := range rings[s] {
			if s != r {
				rings[s][r] = NewRing(ringCapacity)
			}
		}
	}
	return rings
}

// TargetWorker computes the destination worker for a grouping-key value,
// §4.8 step 1: null routes to worker 0; otherwise
// target = (hash(value) mod 2^W) mod W, where W is numWorkers and hash is
// the 64-bit hashstructure hash. For W >= 64 the inner modulus exceeds the
// hash range and leaves the hash unchanged.
func (rd *Redistributor) TargetWorker(value interface{}) (int, error) {
	if value == nil {
		return 0, nil
	}
	h, err := hashstructure.Hash(value, nil)
	if err != nil {
		return 0, err
	}
	if rd.numWorkers < 64 {
		h %= uint64(1) << uint(rd.numWorkers)
	}
	return int(h % uint64(rd.numWorkers)), nil
}

// Route implements §4.8 steps 1-4 for one input row's grouping-key value
// and its already-encoded tuple image. Returns true when the row was
// shipped to a peer (caller should not process it locally), false when it
// should be processed locally (either because this worker owns the key,
// or as a courtesy drain of one incoming row per call, see step 4).
func (rd *Redistributor) Route(value interface{}, kind Kind, payload []byte) (shipped bool, err error) {
	target, err := rd.TargetWorker(value)
	if err != nil {
		return false, err
	}
	if target == rd.self {
		rd.drainOneIncoming()
		return false, nil
	}

	ring := rd.rings[rd.self][target]
	ok, err := ring.TryEnqueue(kind, payload)
	if err != nil {
		return false, err
	}
	if !ok {
		rd.mu.Lock()
		w, exists := rd.spillers[target]
		if !exists {
			w = newSpillWriter(rd.scratch, target)
			rd.spillers[target] = w
		}
		werr := w.Write(payload)
		rd.mu.Unlock()
		if werr != nil {
			return false, werr
		}
	}

	rd.drainOneIncoming()
	return true, nil
}

// drainOneIncoming opportunistically pops one row from an incoming ring
// (§4.8 step 4), so a worker that never emits locally does not starve a
// producer waiting for ring space. The caller is responsible for actually
// consuming drained payloads via DrainedPayloads; this module only
// enforces that the attempt happens on every Route call.
func (rd *Redistributor) drainOneIncoming() {
	for peer := 0; peer < rd.numWorkers; peer++ {
		if peer == rd.self {
			continue
		}
		if payload, ok := rd.rings[peer][rd.self].TryDequeue(); ok {
			rd.mu.Lock()
			rd.drained = append(rd.drained, payload)
			rd.mu.Unlock()
			return
		}
	}
}

// DrainedPayloads returns and clears every payload drainOneIncoming has
// opportunistically pulled off an incoming ring since the last call. The
// caller must fold these into its own local processing; drainOneIncoming
// only makes room in the ring, it does not process the row itself.
func (rd *Redistributor) DrainedPayloads() [][]byte {
	rd.mu.Lock()
	defer rd.mu.Unlock()
	out := rd.drained
	rd.drained = nil
	return out
}

// FinishProducing flushes this worker's spill writers, publishes their
// file lists, and transitions to ProduceDone (§4.8 "Shutdown and
// consume").
func (rd *Redistributor) FinishProducing() error {
	rd.mu.Lock()
	defer rd.mu.Unlock()
	for target, w := range rd.spillers {
		names, err := w.Flush()
		if err != nil {
			return err
		}
		rd.files.Publish(rd.self, target, names)
	}
	rd.status.Set(rd.self, ProduceDone)
	return nil
}

// ReadyToConsume reports whether every peer that routes rows to this
// worker has reached at least ProduceDone, i.e. this worker may safely
// open their published spill files and drain remaining ring residue.
func (rd *Redistributor) ReadyToConsume() bool {
	for peer := 0; peer < rd.numWorkers; peer++ {
		if peer == rd.self {
			continue
		}
		if rd.status.Get(peer) < ProduceDone {
			return false
		}
	}
	return true
}
