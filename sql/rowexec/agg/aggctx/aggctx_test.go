package aggctx

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/dolthub/aggexec/sql/rowexec/agg/arena"
)

func TestCallContext_CheckCallContext(t *testing.T) {
	assert := require.New(t)

	setArena := arena.New("set0")
	tmp := arena.New("tmp")
	cc := New(Aggregate, setArena, tmp, &AggrefInfo{Name: "sum", NumArgs: 1})

	kind, got := cc.CheckCallContext()
	assert.Equal(Aggregate, kind)
	assert.Same(setArena, got)
	assert.Equal("sum", cc.GetAggref().Name)
	assert.Same(tmp, cc.GetTempMemoryContext())
}

func TestCallContext_NilIsSafe(t *testing.T) {
	assert := require.New(t)

	var cc *CallContext
	kind, got := cc.CheckCallContext()
	assert.Equal(None, kind)
	assert.Nil(got)
	assert.Nil(cc.GetAggref())
	assert.Nil(cc.GetTempMemoryContext())
	cc.RegisterCallback(func() {}) // must not panic
}

func TestCallContext_RegisterCallbackFiresOnReset(t *testing.T) {
	assert := require.New(t)

	setArena := arena.New("set0")
	cc := New(Aggregate, setArena, nil, nil)

	fired := false
	cc.RegisterCallback(func() { fired = true })
	setArena.Reset()
	assert.True(fired)
}
