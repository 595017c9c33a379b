package aggexec

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestLoadConfig_Defaults(t *testing.T) {
	assert := require.New(t)
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	assert.NoError(os.WriteFile(path, []byte("num_workers: 4\n"), 0600))

	c, err := LoadConfig(path)
	assert.NoError(err)
	assert.Equal(4, c.NumWorkers)
	assert.Equal(32, c.NBatches)
	assert.Equal(Defaults().WorkMemBytes, c.WorkMemBytes)
}

func TestConfig_NormalizeLeavesExplicitValues(t *testing.T) {
	assert := require.New(t)
	c := Config{NBatches: 8}.Normalize()
	assert.Equal(8, c.NBatches)
	assert.Equal(Defaults().NumWorkers, c.NumWorkers)
}
