package spill

import (
	"encoding/binary"
	"os"
	"path/filepath"

	"github.com/boltdb/bolt"
	uuid "github.com/satori/go.uuid"

	"github.com/dolthub/aggexec/sql"
)

var recordsBucket = []byte("records")

// SpillFile owns one buffered file (a single-bucket boltdb database),
// read/write tuple counters, a spilled flag, and optionally a child
// SpillSet created when this batch itself overflowed during reload
// (§4.7 "Missed AND table again full").
type SpillFile struct {
	path string
	db   *bolt.DB

	NTupsWritten int
	NTupsRead    int
	Spilled      bool

	Child *SpillSet

	readKey uint64
}

// newSpillFile creates a fresh, uniquely-named backing file under dir. The
// name is a uuid rather than a sequence number so sibling SpillSets at
// different recursion levels never collide, matching the teacher's
// practice of uuid-naming scratch files it cannot otherwise guarantee are
// unique across concurrent operators.
func newSpillFile(dir string) (*SpillFile, error) {
	name := uuid.NewV4().String() + ".spill"
	path := filepath.Join(dir, name)
	db, err := bolt.Open(path, 0600, nil)
	if err != nil {
		return nil, sql.ErrSpillIO.New(err.Error())
	}
	err = db.Update(func(tx *bolt.Tx) error {
		_, err := tx.CreateBucketIfNotExists(recordsBucket)
		return err
	})
	if err != nil {
		db.Close()
		return nil, sql.ErrSpillIO.New(err.Error())
	}
	return &SpillFile{path: path, db: db}, nil
}

// Write appends one record (§4.7 write protocol step 2).
func (f *SpillFile) Write(rec Record) error {
	data, err := rec.Encode()
	if err != nil {
		return sql.ErrSpillIO.New(err.Error())
	}
	err = f.db.Update(func(tx *bolt.Tx) error {
		b := tx.Bucket(recordsBucket)
		key, err := b.NextSequence()
		if err != nil {
			return err
		}
		keyBytes := make([]byte, 8)
		binary.BigEndian.PutUint64(keyBytes, key)
		return b.Put(keyBytes, data)
	})
	if err != nil {
		return sql.ErrSpillIO.New(err.Error())
	}
	f.NTupsWritten++
	f.Spilled = true
	return nil
}

// ReadNext returns the next record in key order, or ok=false when the file
// is exhausted (§4.7 read protocol: "read one record at a time").
func (f *SpillFile) ReadNext() (Record, bool, error) {
	var rec Record
	var found bool
	err := f.db.View(func(tx *bolt.Tx) error {
		c := tx.Bucket(recordsBucket).Cursor()
		keyBytes := make([]byte, 8)
		binary.BigEndian.PutUint64(keyBytes, f.readKey)
		k, v := c.Seek(keyBytes)
		if k == nil {
			return nil
		}
		found = true
		f.readKey = binary.BigEndian.Uint64(k) + 1
		var decErr error
		rec, decErr = DecodeRecord(v)
		return decErr
	})
	if err != nil {
		return Record{}, false, sql.ErrSpillIO.New(err.Error())
	}
	if !found {
		return Record{}, false, nil
	}
	f.NTupsRead++
	return rec, true, nil
}

// Exhausted reports whether every written record has been read back, the
// §4.7 "sanity-check ntups_read == ntups_write" condition.
func (f *SpillFile) Exhausted() bool {
	return f.NTupsRead >= f.NTupsWritten
}

// Close releases the backing file and removes it from disk; spill files
// never outlive the query that created them.
func (f *SpillFile) Close() error {
	if f.db == nil {
		return nil
	}
	err := f.db.Close()
	f.db = nil
	os.Remove(f.path)
	return err
}
