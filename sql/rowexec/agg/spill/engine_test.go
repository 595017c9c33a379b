package spill

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestEngine_SpillAndReloadRoundTrip(t *testing.T) {
	assert := require.New(t)
	dir := filepath.Join(t.TempDir(), "spill")

	e, err := NewEngine(dir, 4)
	assert.NoError(err)
	defer e.Close()

	entries := []Entry{
		{HashKey: 1, Representative: []byte("a")},
		{HashKey: 2, Representative: []byte("b")},
		{HashKey: 5, Representative: []byte("c")},
		{HashKey: 9, Representative: []byte("d")},
	}
	assert.NoError(e.SpillEntries(entries))
	assert.True(e.HasSpilled())

	e.BeginRead()
	var got []Entry
	for {
		ent, ok, err := e.Next()
		assert.NoError(err)
		if !ok {
			break
		}
		got = append(got, ent)
	}
	assert.Len(got, len(entries))

	seen := make(map[string]bool)
	for _, g := range got {
		seen[string(g.Representative)] = true
	}
	for _, e := range entries {
		assert.True(seen[string(e.Representative)])
	}
}

func TestEngine_PromoteAndRespill(t *testing.T) {
	assert := require.New(t)
	dir := filepath.Join(t.TempDir(), "spill")

	e, err := NewEngine(dir, 2)
	assert.NoError(err)
	defer e.Close()

	assert.NoError(e.SpillEntries([]Entry{{HashKey: 0, Representative: []byte("x")}}))

	e.BeginRead()
	ent, ok, err := e.Next()
	assert.NoError(err)
	assert.True(ok)
	assert.Equal("x", string(ent.Representative))

	assert.NoError(e.PromoteAndRespill(Entry{HashKey: 3, Representative: []byte("y")}))

	found := false
	for {
		ent, ok, err := e.Next()
		assert.NoError(err)
		if !ok {
			break
		}
		if string(ent.Representative) == "y" {
			found = true
		}
	}
	assert.True(found)
}
