package agg

import (
	"github.com/dolthub/aggexec/sql"
	"github.com/dolthub/aggexec/sql/rowexec/agg/spill"
)

// EncodeSpillEntry converts one in-memory group entry into the byte-only
// spill.Entry the overflow engine persists (§4.7 write protocol step 2):
// spill stays ignorant of TransValue's concrete shape, so encoding happens
// here rather than in the spill package itself.
func EncodeSpillEntry(hashKey uint32, e *GroupEntry) (spill.Entry, error) {
	rep, err := EncodeRow(e.Representative)
	if err != nil {
		return spill.Entry{}, err
	}
	blobs := make([][]byte, len(e.Groups))
	for i, tv := range e.Groups {
		b, err := EncodeTransValue(tv)
		if err != nil {
			return spill.Entry{}, err
		}
		blobs[i] = b
	}
	return spill.Entry{HashKey: hashKey, Representative: rep, TransBlobs: blobs}, nil
}

// DecodeSpillEntry is the inverse of EncodeSpillEntry, used by the §4.7
// read protocol to reconstruct a representative row and its PerGroup array
// from a record pulled back off a spill file.
func DecodeSpillEntry(ent spill.Entry) (sql.Row, []TransValue, error) {
	rep, err := DecodeRow(ent.Representative)
	if err != nil {
		return nil, nil, err
	}
	groups := make([]TransValue, len(ent.TransBlobs))
	for i, b := range ent.TransBlobs {
		tv, err := DecodeTransValue(b)
		if err != nil {
			return nil, nil, err
		}
		groups[i] = tv
	}
	return rep, groups, nil
}
