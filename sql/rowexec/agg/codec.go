package agg

import (
	"bytes"
	"encoding/gob"

	"github.com/dolthub/aggexec/sql"
)

// init registers the concrete dynamic types a TransValue.Val or a sql.Row
// element actually takes on across this module's wired aggregations, the
// way gob requires every concrete type flowing through an interface{} to
// be named once up front. Anything outside this set (a catalog-added
// aggregate whose transition state is, say, its own struct) needs its own
// gob.Register call alongside its TransSpec, the same obligation a real
// catalog entry already carries for SerializeFn/DeserializeFn.
func init() {
	gob.Register(float64(0))
	gob.Register(int64(0))
	gob.Register(uint64(0))
	gob.Register(int(0))
	gob.Register(string(""))
	gob.Register(bool(false))
}

// GobSerialize is the generic SerializeFn every wired PerTrans falls back
// to when a split plan needs SkipFinal/Serialize and the aggregate itself
// declares no SerializeFn (§6 INITIAL_SERIAL/SERIAL): gob-encode the
// transition value's dynamic type directly, the transBuffer-free analogue
// of a catalog send/receive function pair.
func GobSerialize(ctx *sql.Context, state interface{}) ([]byte, error) {
	var buf bytes.Buffer
	if err := gob.NewEncoder(&buf).Encode(&state); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// GobDeserialize is the generic DeserializeFn matching GobSerialize.
func GobDeserialize(ctx *sql.Context, data []byte) (interface{}, error) {
	var state interface{}
	if err := gob.NewDecoder(bytes.NewReader(data)).Decode(&state); err != nil {
		return nil, err
	}
	return state, nil
}

// EncodeRow gob-encodes a whole row, used to serialize a representative
// tuple onto a spill file or a redistributed-tuple ring/overflow payload.
func EncodeRow(row sql.Row) ([]byte, error) {
	cp := make([]interface{}, len(row))
	copy(cp, row)
	var buf bytes.Buffer
	if err := gob.NewEncoder(&buf).Encode(&cp); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// DecodeRow is the inverse of EncodeRow.
func DecodeRow(data []byte) (sql.Row, error) {
	var cp []interface{}
	if err := gob.NewDecoder(bytes.NewReader(data)).Decode(&cp); err != nil {
		return nil, err
	}
	return sql.Row(cp), nil
}

// EncodeTransValue gob-encodes one TransValue, used by the spill write
// protocol to persist a group's partial state alongside its representative
// tuple (§4.7's TransBlobs record field).
func EncodeTransValue(tv TransValue) ([]byte, error) {
	var buf bytes.Buffer
	enc := gob.NewEncoder(&buf)
	if err := enc.Encode(tv.IsNull); err != nil {
		return nil, err
	}
	if err := enc.Encode(tv.NoTransValue); err != nil {
		return nil, err
	}
	hasVal := tv.Val != nil
	if err := enc.Encode(hasVal); err != nil {
		return nil, err
	}
	if hasVal {
		v := tv.Val
		if err := enc.Encode(&v); err != nil {
			return nil, err
		}
	}
	return buf.Bytes(), nil
}

// DecodeTransValue is the inverse of EncodeTransValue.
func DecodeTransValue(data []byte) (TransValue, error) {
	dec := gob.NewDecoder(bytes.NewReader(data))
	var tv TransValue
	if err := dec.Decode(&tv.IsNull); err != nil {
		return TransValue{}, err
	}
	if err := dec.Decode(&tv.NoTransValue); err != nil {
		return TransValue{}, err
	}
	var hasVal bool
	if err := dec.Decode(&hasVal); err != nil {
		return TransValue{}, err
	}
	if hasVal {
		var v interface{}
		if err := dec.Decode(&v); err != nil {
			return TransValue{}, err
		}
		tv.Val = v
	}
	return tv, nil
}
