package agg

// TransSpecer is implemented by an aggregate function descriptor that can
// hand StateKit its transition descriptor, the bridge between the
// standalone sql.Aggregation view (NewBuffer/Update/Eval, usable without
// this package at all) and the StateKit/TransitionDriver/PhaseScheduler
// pipeline every real operator drives. An aggregate with no TransSpec is
// usable only through the standalone interface; AggregateIter rejects it
// at plan-build time rather than silently skipping it.
type TransSpecer interface {
	TransSpec() PerTrans
}
