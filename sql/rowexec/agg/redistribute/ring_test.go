package redistribute

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestRing_EnqueueDequeueRoundTrip(t *testing.T) {
	assert := require.New(t)
	r := NewRing(64)

	ok, err := r.TryEnqueue(KindDataRow, []byte("hello"))
	assert.NoError(err)
	assert.True(ok)

	ok, err = r.TryEnqueue(KindDataRow, []byte("world"))
	assert.NoError(err)
	assert.True(ok)

	got, ok := r.TryDequeue()
	assert.True(ok)
	assert.Equal("hello", string(got))

	got, ok = r.TryDequeue()
	assert.True(ok)
	assert.Equal("world", string(got))

	_, ok = r.TryDequeue()
	assert.False(ok)
}

func TestRing_KindMismatchRejected(t *testing.T) {
	assert := require.New(t)
	r := NewRing(64)

	ok, err := r.TryEnqueue(KindDataRow, []byte("a"))
	assert.NoError(err)
	assert.True(ok)

	_, err = r.TryEnqueue(KindHeapTup, []byte("b"))
	assert.Error(err)
}

func TestRing_FullReportsNoRoom(t *testing.T) {
	assert := require.New(t)
	r := NewRing(8)

	ok, err := r.TryEnqueue(KindDataRow, []byte("abc"))
	assert.NoError(err)
	assert.True(ok)

	ok, err = r.TryEnqueue(KindDataRow, []byte("defgh"))
	assert.NoError(err)
	assert.False(ok)
}
