package redistribute

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

func newTestPair(t *testing.T) (*Redistributor, *Redistributor, *StatusBoard) {
	status := NewStatusBoard(2)
	rings := NewSharedRings(2, 256)
	files := NewFileListStore()
	dir := t.TempDir()

	w0 := New(0, 2, 256, status, rings, files, filepath.Join(dir, "w0"))
	w1 := New(1, 2, 256, status, rings, files, filepath.Join(dir, "w1"))
	return w0, w1, status
}

func TestRedistributor_LocalKeyNotShipped(t *testing.T) {
	assert := require.New(t)
	w0, _, _ := newTestPair(t)

	target, err := w0.TargetWorker("some-key")
	assert.NoError(err)

	shipped, err := w0.Route("some-key", KindDataRow, []byte("payload"))
	assert.NoError(err)
	assert.Equal(target != 0, shipped)
}

func TestRedistributor_NullRoutesToWorkerZero(t *testing.T) {
	assert := require.New(t)
	w0, _, _ := newTestPair(t)

	target, err := w0.TargetWorker(nil)
	assert.NoError(err)
	assert.Equal(0, target)
}

func TestRedistributor_ShipAndFlush(t *testing.T) {
	assert := require.New(t)
	w0, w1, status := newTestPair(t)

	// Force routing to worker 1 regardless of hash by overflowing the
	// ring immediately: fill it, then any further enqueue spills to file.
	ring := w0
	for i := 0; i < 1000; i++ {
		_, err := ring.Route(fixedValueFor(w0, 1), KindDataRow, []byte("xxxxxxxxxxxxxxxxxxxxxxxxxxxxxxxxxxxxxxxx"))
		assert.NoError(err)
	}

	assert.NoError(w0.FinishProducing())
	assert.Equal(ProduceDone, status.Get(0))
	assert.True(w1.ReadyToConsume())
}

// fixedValueFor returns a value whose TargetWorker resolves to want,
// brute-forcing small integers since hashstructure's hash is not under
// this test's control.
func fixedValueFor(rd *Redistributor, want int) int {
	for i := 0; i < 10000; i++ {
		t, err := rd.TargetWorker(i)
		if err == nil && t == want {
			return i
		}
	}
	return want
}
