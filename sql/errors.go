package sql

import (
	goerrors "gopkg.in/src-d/go-errors.v1"
)

// Error taxonomy, §7. Each Kind is raised at the point named in its
// comment; callers match with errors.Is / Kind.Is the way the teacher's
// sql/errors_test.go matches against its ErrXxx sentinels.
var (
	// ErrPlanInvariant is raised when the planner handed the operator a
	// plan that violates one of the invariants in §6 (combine mode over
	// DISTINCT/ORDER-BY, a strict combine function over internal state,
	// a SERIALIZE plan aggregate missing a serialize function, ...).
	ErrPlanInvariant = goerrors.NewKind("invalid function definition: %s")

	// ErrPermissionDenied is raised at StateKit construction when the
	// catalog reports the caller lacks EXECUTE on a transition/final/
	// serialize/deserialize function.
	ErrPermissionDenied = goerrors.NewKind("permission denied for function %s")

	// ErrCatalogMiss is raised at StateKit construction when an aggregate
	// function oid cannot be resolved in the catalog.
	ErrCatalogMiss = goerrors.NewKind("aggregate function %s not found in catalog")

	// ErrNestedAggregate is raised while initializing an aggregate call's
	// argument expressions if another aggregate call is found nested
	// inside them.
	ErrNestedAggregate = goerrors.NewKind("aggregate function calls cannot be nested")

	// ErrSpillIO is raised on any spill-file write/read failure (§4.7);
	// fatal to the query.
	ErrSpillIO = goerrors.NewKind("spill file I/O error: %s")

	// ErrWorkerFailed is raised by the Redistributor when a peer worker
	// transitions to Error or the process-wide parallel-error flag is
	// observed set (§4.8, §7).
	ErrWorkerFailed = goerrors.NewKind("data corrupted: peer worker %d failed")
)
