package sql

import (
	"fmt"

	"github.com/mitchellh/hashstructure"
)

// Type describes a column or transition-state's representation: whether
// Go values of this type are safe to copy by assignment (ByValue) or must
// be explicitly duplicated when moved into a longer-lived arena
// (by-reference, §3 PerTrans invariants / §9 expanded objects).
type Type interface {
	Name() string
	ByValue() bool
	// Compare orders two values of this type; used by SortDriver's ORDER
	// BY columns. GroupHashTable key equality does not go through it.
	Compare(a, b interface{}) int
	// Equals reports value equality ignoring collation (§9 known
	// limitation: DISTINCT equality never receives a collation).
	Equals(a, b interface{}) bool
	// Hash produces a stable hash of v. GroupHashTable and Redistributor
	// call hashstructure directly rather than through this method.
	Hash(v interface{}) (uint64, error)
	// Zero returns the type's zero placeholder; every built-in type
	// returns nil.
	Zero() interface{}
}

type baseType struct {
	name    string
	byValue bool
	less    func(a, b interface{}) int
}

func (t *baseType) Name() string    { return t.name }
func (t *baseType) ByValue() bool   { return t.byValue }
func (t *baseType) Compare(a, b interface{}) int {
	if a == nil && b == nil {
		return 0
	}
	if a == nil {
		return -1
	}
	if b == nil {
		return 1
	}
	return t.less(a, b)
}
func (t *baseType) Equals(a, b interface{}) bool { return t.Compare(a, b) == 0 }
func (t *baseType) Hash(v interface{}) (uint64, error) {
	return hashstructure.Hash(v, nil)
}
func (t *baseType) Zero() interface{} { return nil }

func (t *baseType) String() string { return t.name }

func cmpFloat(a, b interface{}) int {
	af, bf := toFloat(a), toFloat(b)
	switch {
	case af < bf:
		return -1
	case af > bf:
		return 1
	default:
		return 0
	}
}

func toFloat(v interface{}) float64 {
	switch n := v.(type) {
	case int:
		return float64(n)
	case int32:
		return float64(n)
	case int64:
		return float64(n)
	case uint64:
		return float64(n)
	case float32:
		return float64(n)
	case float64:
		return n
	case string:
		var f float64
		fmt.Sscanf(n, "%f", &f)
		return f
	default:
		return 0
	}
}

func cmpString(a, b interface{}) int {
	as, bs := fmt.Sprint(a), fmt.Sprint(b)
	switch {
	case as < bs:
		return -1
	case as > bs:
		return 1
	default:
		return 0
	}
}

func cmpBool(a, b interface{}) int {
	ab, _ := a.(bool)
	bb, _ := b.(bool)
	if ab == bb {
		return 0
	}
	if !ab {
		return -1
	}
	return 1
}

// Concrete types. Numeric types are by-value (Go copies them on
// assignment); text/array/ordered-set transition states are by-reference.
var (
	Int32   Type = &baseType{name: "INT32", byValue: true, less: cmpFloat}
	Int64   Type = &baseType{name: "INT64", byValue: true, less: cmpFloat}
	Uint64  Type = &baseType{name: "UINT64", byValue: true, less: cmpFloat}
	Float32 Type = &baseType{name: "FLOAT32", byValue: true, less: cmpFloat}
	Float64 Type = &baseType{name: "FLOAT64", byValue: true, less: cmpFloat}
	Boolean Type = &baseType{name: "BOOLEAN", byValue: true, less: cmpBool}
	Text    Type = &baseType{name: "TEXT", byValue: false, less: cmpString}
	LongText Type = &baseType{name: "LONGTEXT", byValue: false, less: cmpString}
)

// ArrayOf returns a by-reference Type for array-building/ordered-set
// aggregates (ARRAY_AGG), whose transition state is a growable []interface{}.
func ArrayOf(elem Type) Type {
	return &baseType{name: "ARRAY<" + elem.Name() + ">", byValue: false, less: cmpString}
}
