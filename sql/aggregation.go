package sql

// AggregationBuffer is the opaque, per-(group, transition) transition
// state described as PerGroup.transValue in spec.md §3. It is boxed behind
// an interface rather than a raw pointer so a systems-language reader can
// see clearly which variant (by-value vs by-reference vs expanded object,
// §9) a concrete Aggregation chooses; StateKit never inspects its
// contents, and the interface's only method is Dispose.
type AggregationBuffer interface {
	// Dispose releases any resources the buffer owns outside of its
	// owning arena (e.g. a file handle an ordered-set aggregate kept
	// open). The aggregate engine itself never calls it.
	Dispose()
}

// Aggregation is the catalog-level contract for one aggregate function:
// PerTrans.transfn, PerAgg.finalfn and (optionally) the combine/serialize/
// deserialize functions of §6, bundled behind the single type the StateKit
// dedups on. Concrete aggregations live in
// sql/expression/function/aggregation.
type Aggregation interface {
	String() string
	Type() Type
	Resolved() bool
	Children() []Expression
	// NewBuffer allocates a fresh, noTransValue buffer. Construction
	// must not itself invoke the transition function (§4.4 strict-
	// transfn-with-null-initval shortcut).
	NewBuffer() AggregationBuffer
	// Update is the regular-transition path of advance_transition
	// (§4.4): evaluate filtered, non-distinct/order-by input and fold
	// row into buf.
	Update(ctx *Context, buf AggregationBuffer, row Row) error
	// Eval is finalize_partial / the finalfn invocation of §4.6: produce
	// this aggregate's output value from its transition state.
	Eval(ctx *Context, buf AggregationBuffer) (interface{}, error)
}

// Combinable is implemented by aggregations usable under partial
// aggregation's combine mode (§4.4, §6 aggsplit). Merge folds src's state
// into dst, the combine-function transition described in §4.4.
type Combinable interface {
	Merge(ctx *Context, dst, src AggregationBuffer) error
}

// Serializable is implemented by aggregations whose transition state needs
// a portable byte image: partial-aggregation SERIAL/DESERIAL modes and the
// SpillEngine write/read protocol (§4.7) both require it for internal-
// typed by-value states.
type Serializable interface {
	Serialize(ctx *Context, buf AggregationBuffer) ([]byte, error)
	Deserialize(ctx *Context, data []byte) (AggregationBuffer, error)
}

// DistinctCapable marks an Aggregation whose single input argument should
// be deduplicated before folding (§4.5 process_ordered_single path, the
// numDistinctCols==1 case). Concrete aggregations wrap their argument
// expression in expression.NewDistinctExpression to get this for free; the
// marker exists so FinalizeDriver can tell ordered-set work is needed
// without evaluating the argument.
type DistinctCapable interface {
	IsDistinct() bool
}
