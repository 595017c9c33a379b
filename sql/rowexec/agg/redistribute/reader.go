package redistribute

import (
	"io"
	"os"
)

// spillReader replays one overflow file written by a peer's spillWriter
// back into length-prefixed payloads, the consumer-side half of §4.8's
// spill-file fallback that only a writer previously existed for.
type spillReader struct {
	f *os.File
}

func openSpillReader(path string) (*spillReader, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	return &spillReader{f: f}, nil
}

// Next returns the next payload in the file, or ok=false at clean EOF.
func (r *spillReader) Next() (payload []byte, ok bool, err error) {
	var lenBuf [4]byte
	if _, err := io.ReadFull(r.f, lenBuf[:]); err != nil {
		if err == io.EOF {
			return nil, false, nil
		}
		return nil, false, err
	}
	n := int(lenBuf[0]) | int(lenBuf[1])<<8 | int(lenBuf[2])<<16 | int(lenBuf[3])<<24
	buf := make([]byte, n)
	if _, err := io.ReadFull(r.f, buf); err != nil {
		return nil, false, err
	}
	return buf, true, nil
}

func (r *spillReader) Close() error { return r.f.Close() }

// ReadPublished drains every payload published by sender for receiver's
// consumption (§4.8 "Shutdown and consume": once a peer reaches
// ProduceDone, its published file list is final and safe to read in
// full). fn is called once per payload, in file-then-within-file order.
func ReadPublished(files *FileListStore, sender, receiver int, fn func([]byte) error) error {
	for _, path := range files.Files(sender, receiver) {
		r, err := openSpillReader(path)
		if err != nil {
			return err
		}
		for {
			payload, ok, err := r.Next()
			if err != nil {
				r.Close()
				return err
			}
			if !ok {
				break
			}
			if err := fn(payload); err != nil {
				r.Close()
				return err
			}
		}
		if err := r.Close(); err != nil {
			return err
		}
	}
	return nil
}

// DrainRing pops every currently-available payload off ring without
// blocking, the in-memory counterpart to ReadPublished used once a peer
// has stopped producing and its ring no longer needs opportunistic
// draining a row at a time via Route.
func DrainRing(ring *Ring, fn func([]byte) error) error {
	for {
		payload, ok := ring.TryDequeue()
		if !ok {
			return nil
		}
		if err := fn(payload); err != nil {
			return err
		}
	}
}
