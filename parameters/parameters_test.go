package parameters

import (
	"os"
	"testing"

	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaults(t *testing.T) {
	p := Get()
	assert.True(t, p.ReorderMeshes)
	assert.Equal(t, PartitionerBlock, p.Partitioner)
	assert.Equal(t, 1, p.QuadratureDegreeBoost)
}

func TestSetReorderMeshesRestores(t *testing.T) {
	for _, reorder := range []bool{false, true} {
		old := Get().ReorderMeshes
		restore := SetReorderMeshes(reorder)
		assert.Equal(t, reorder, Get().ReorderMeshes)
		restore()
		assert.Equal(t, old, Get().ReorderMeshes)
	}
}

func TestSetValidates(t *testing.T) {
	p := Defaults()
	p.Partitioner = "scotch"
	_, err := Set(p)
	assert.Error(t, err)

	p = Defaults()
	p.QuadratureDegreeBoost = -1
	_, err = Set(p)
	assert.Error(t, err)

	p = Defaults()
	p.Partitioner = PartitionerMetis
	restore, err := Set(p)
	require.NoError(t, err)
	assert.Equal(t, PartitionerMetis, Get().Partitioner)
	restore()
	assert.Equal(t, PartitionerBlock, Get().Partitioner)
}

func TestLoadFromViper(t *testing.T) {
	{ // empty viper yields defaults
		restore, err := LoadFromViper(viper.New())
		require.NoError(t, err)
		assert.Equal(t, Defaults(), Get())
		restore()
	}
	{ // environment overrides
		require.NoError(t, os.Setenv("FEMESH_REORDER_MESHES", "false"))
		defer os.Unsetenv("FEMESH_REORDER_MESHES")
		v := viper.New()
		v.SetEnvPrefix("FEMESH")
		v.AutomaticEnv()
		restore, err := LoadFromViper(v)
		require.NoError(t, err)
		assert.False(t, Get().ReorderMeshes)
		restore()
		assert.True(t, Get().ReorderMeshes)
	}
}
