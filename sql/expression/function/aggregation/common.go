// Copyright 2020-2021 Dolthub, Inc.
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

// Package aggregation holds the catalog-level aggregate function
// descriptors (PerTrans.transfn/combinefn/serializefn plus PerAgg.finalfn,
// §3/§6) for the functions named in spec.md's Purpose line: SUM, AVG,
// COUNT, MIN/MAX, an array-building aggregate and an ordered-set
// aggregate, plus the bit_and/bit_or/bit_xor family the teacher also
// carries.
//
// Every aggregation here is a simple sql.Aggregation (NewBuffer/Update/
// Eval, usable standalone the way the teacher's tests exercise them).
// Sum, Count, Min, Max, BitAnd, BitOr and BitXor are also TransSpec()
// providers consumed by StateKit when the aggregate engine wires them into
// the full TransitionDriver/PhaseScheduler pipeline (sql/rowexec/agg); for
// those, the two views share one underlying agg.TransValue. Avg, ArrayAgg
// and PercentileCont keep their own buffers and have no TransSpec, so they
// are usable standalone only.
package aggregation

import (
	"github.com/dolthub/aggexec/sql/rowexec/agg"
	"github.com/spf13/cast"
)

// transBuffer adapts an agg.TransValue to sql.AggregationBuffer.
type transBuffer struct {
	agg.TransValue
}

func newTransBuffer(initial interface{}, initialIsNull bool) *transBuffer {
	return &transBuffer{agg.NewTransValue(initial, initialIsNull)}
}

func (b *transBuffer) Dispose() {}

// toFloat64 coerces a dynamically-typed column value to float64 the way a
// numeric aggregate's transition function must before folding it in;
// unparseable strings coerce to 0, matching the teacher's historical
// SUM/AVG behavior for non-numeric strings.
func toFloat64(v interface{}) float64 {
	f, err := cast.ToFloat64E(v)
	if err != nil {
		return 0
	}
	return f
}
