package redistribute

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestStatusBoard_AllAtLeast(t *testing.T) {
	assert := require.New(t)
	b := NewStatusBoard(3)

	assert.False(b.AllAtLeast(ProduceDone))

	b.Set(0, ProduceDone)
	b.Set(1, ProduceDone)
	assert.False(b.AllAtLeast(ProduceDone))

	b.Set(2, ConsumeDone)
	assert.True(b.AllAtLeast(ProduceDone))
	assert.False(b.AllAtLeast(ConsumeDone))
}

func TestStatusBoard_AnyError(t *testing.T) {
	assert := require.New(t)
	b := NewStatusBoard(2)
	assert.False(b.AnyError())

	b.Set(1, Error)
	assert.True(b.AnyError())
}
