package agg

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/dolthub/aggexec/sql"
	"github.com/dolthub/aggexec/sql/expression"
)

func simpleProject(ctx *sql.Context, rep sql.Row, groups []TransValue, results []interface{}) (sql.Row, error) {
	out := make(sql.Row, len(rep)+len(results))
	copy(out, rep)
	copy(out[len(rep):], results)
	return out, nil
}

func TestFinalizeDriver_DirectFinalFn(t *testing.T) {
	assert := require.New(t)
	ctx := sql.NewEmptyContext()

	kit := NewStateKit()
	_, err := kit.AddTrans(PerTrans{Name: "sum", TransFn: sumTransFn, Strict: true, InitialIsNull: true, NumArgs: 1})
	assert.NoError(err)
	kit.AddAgg(PerAgg{Name: "sum", TransIndex: 0, FinalFn: func(ctx *sql.Context, state interface{}, isNull bool, directArgs []interface{}) (interface{}, error) {
		if isNull {
			return nil, nil
		}
		return state.(float64) * 2, nil
	}})

	driver := NewFinalizeDriver(kit, []FinalCall{{}}, nil, simpleProject)

	groups := kit.NewGroup()
	assert.NoError(Advance(&groups[0], true, []interface{}{5.0}, sumTransFn))

	var emitted sql.Row
	err = driver.Finalize(ctx, sql.NewRow(int64(1)), nil, groups, nil, func(row sql.Row) error {
		emitted = row
		return nil
	})
	assert.NoError(err)
	assert.Equal(10.0, emitted[1])
}

func TestFinalizeDriver_SkipFinalSerializes(t *testing.T) {
	assert := require.New(t)
	ctx := sql.NewEmptyContext()

	kit := NewStateKit()
	_, err := kit.AddTrans(PerTrans{
		Name: "sum", TransFn: sumTransFn, Strict: true, InitialIsNull: true, NumArgs: 1,
		SerializeFn: func(ctx *sql.Context, state interface{}) ([]byte, error) {
			return []byte("blob"), nil
		},
	})
	assert.NoError(err)
	kit.AddAgg(PerAgg{Name: "sum", TransIndex: 0, SkipFinal: true})

	driver := NewFinalizeDriver(kit, []FinalCall{{}}, nil, simpleProject)
	groups := kit.NewGroup()
	assert.NoError(Advance(&groups[0], true, []interface{}{5.0}, sumTransFn))

	var emitted sql.Row
	err = driver.Finalize(ctx, sql.NewRow(int64(1)), nil, groups, nil, func(row sql.Row) error {
		emitted = row
		return nil
	})
	assert.NoError(err)
	assert.Equal([]byte("blob"), emitted[1])
}

func TestFinalizeDriver_HavingFiltersOut(t *testing.T) {
	assert := require.New(t)
	ctx := sql.NewEmptyContext()

	kit := NewStateKit()
	_, err := kit.AddTrans(PerTrans{Name: "sum", TransFn: sumTransFn, Strict: true, InitialIsNull: true, NumArgs: 1})
	assert.NoError(err)
	kit.AddAgg(PerAgg{Name: "sum", TransIndex: 0})

	having := expression.NewLiteral(false, sql.Boolean)
	driver := NewFinalizeDriver(kit, []FinalCall{{}}, having, simpleProject)
	groups := kit.NewGroup()
	assert.NoError(Advance(&groups[0], true, []interface{}{5.0}, sumTransFn))

	called := false
	err = driver.Finalize(ctx, sql.NewRow(int64(1)), nil, groups, nil, func(row sql.Row) error {
		called = true
		return nil
	})
	assert.NoError(err)
	assert.False(called)
}

func TestFinalizeDriver_FinalStrictNullPropagation(t *testing.T) {
	assert := require.New(t)
	ctx := sql.NewEmptyContext()

	kit := NewStateKit()
	_, err := kit.AddTrans(PerTrans{Name: "sum", TransFn: sumTransFn, Strict: true, InitialIsNull: true, NumArgs: 1})
	assert.NoError(err)
	called := false
	kit.AddAgg(PerAgg{Name: "sum", TransIndex: 0, FinalStrict: true, FinalFn: func(ctx *sql.Context, state interface{}, isNull bool, directArgs []interface{}) (interface{}, error) {
		called = true
		return 1, nil
	}})

	driver := NewFinalizeDriver(kit, []FinalCall{{}}, nil, simpleProject)
	groups := kit.NewGroup() // never advanced: stays NoTransValue/IsNull

	var emitted sql.Row
	err = driver.Finalize(ctx, sql.NewRow(int64(1)), nil, groups, nil, func(row sql.Row) error {
		emitted = row
		return nil
	})
	assert.NoError(err)
	assert.False(called)
	assert.Nil(emitted[1])
}
