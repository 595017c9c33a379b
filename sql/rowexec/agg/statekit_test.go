package agg

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func sumTransFn(state interface{}, args []interface{}) (interface{}, error) {
	return state.(float64) + args[0].(float64), nil
}

func TestAdvance_StrictShortcutAndStickyNull(t *testing.T) {
	assert := require.New(t)

	tv := NewTransValue(nil, true)
	assert.NoError(Advance(&tv, true, []interface{}{nil}, sumTransFn))
	assert.True(tv.NoTransValue)

	assert.NoError(Advance(&tv, true, []interface{}{3.0}, sumTransFn))
	assert.False(tv.NoTransValue)
	assert.Equal(3.0, tv.Val)

	assert.NoError(Advance(&tv, true, []interface{}{5.0}, sumTransFn))
	assert.Equal(8.0, tv.Val)
}

func TestAdvance_StickyNullOnceTransIsNull(t *testing.T) {
	assert := require.New(t)

	nullFn := func(state interface{}, args []interface{}) (interface{}, error) {
		return nil, nil
	}
	tv := NewTransValue(0.0, false)
	assert.NoError(Advance(&tv, false, []interface{}{1.0}, nullFn))
	assert.True(tv.IsNull)

	called := false
	tracking := func(state interface{}, args []interface{}) (interface{}, error) {
		called = true
		return 1.0, nil
	}
	assert.NoError(Advance(&tv, true, []interface{}{1.0}, tracking))
	assert.False(called)
	assert.True(tv.IsNull)
}

func TestCombineTransition_MandatoryFirstInputInit(t *testing.T) {
	assert := require.New(t)

	tv := NewTransValue(nil, true)
	assert.NoError(CombineTransition(&tv, nil, true, sumTransFn))
	assert.True(tv.IsNull)
	assert.False(tv.NoTransValue)

	assert.NoError(CombineTransition(&tv, 4.0, false, sumTransFn))
	assert.Equal(4.0, tv.Val)
}

func TestNewPerTrans_AllowsStrictTransWithCombine(t *testing.T) {
	// SUM/COUNT are strict over their normal transfn but still declare a
	// combinefn for partial-aggregation composition; CombineTransition
	// never consults Strict, so this must build cleanly.
	_, err := NewPerTrans(PerTrans{Name: "sum", Strict: true, TransFn: sumTransFn, InitialIsNull: true, CombineFn: sumTransFn, NumArgs: 1})
	require.NoError(t, err)
}

func TestNewPerTrans_RejectsDistinctWithCombine(t *testing.T) {
	_, err := NewPerTrans(PerTrans{Name: "bad", NumSortCols: 1, CombineFn: sumTransFn})
	require.Error(t, err)
}

func TestStateKit_DedupesIdenticalTrans(t *testing.T) {
	assert := require.New(t)
	kit := NewStateKit()

	pt := PerTrans{Name: "sum", TransFn: sumTransFn, Strict: true, InitialIsNull: true, NumArgs: 1}
	i1, err := kit.AddTrans(pt)
	assert.NoError(err)
	i2, err := kit.AddTrans(pt)
	assert.NoError(err)
	assert.Equal(i1, i2)
	assert.Len(kit.Trans, 1)
}

func TestStateKit_NewGroupMatchesTransCount(t *testing.T) {
	assert := require.New(t)
	kit := NewStateKit()
	_, err := kit.AddTrans(PerTrans{Name: "sum", TransFn: sumTransFn, Strict: true, InitialIsNull: true, NumArgs: 1})
	assert.NoError(err)
	_, err = kit.AddTrans(PerTrans{Name: "count", TransFn: sumTransFn, Strict: true, InitialValue: 0.0, NumArgs: 1})
	assert.NoError(err)

	groups := kit.NewGroup()
	assert.Len(groups, 2)
}
