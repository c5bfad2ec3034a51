package mesh

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/notargets/femesh/parameters"
)

func TestDefaultPartitionConfig(t *testing.T) {
	cfg := DefaultPartitionConfig(4)
	assert.Equal(t, int32(4), cfg.NumPartitions)
	assert.Equal(t, parameters.PartitionerBlock, cfg.Method)
	assert.Equal(t, "vol", cfg.Objective)
}

func TestBuildMetisGraph(t *testing.T) {
	tests := []struct {
		name  string
		build func() (*Mesh, error)
	}{
		{"square", func() (*Mesh, error) { return UnitSquareMesh(3, 2) }},
		{"periodic interval", func() (*Mesh, error) { return PeriodicUnitIntervalMesh(3) }},
		{"periodic 10x1", func() (*Mesh, error) { return PeriodicRectangleMesh(10, 1, 1, 1) }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m, err := tt.build()
			require.NoError(t, err)
			m.Init()
			mp := NewMeshPartitioner(m, DefaultPartitionConfig(2))
			xadj, adjncy, vwgt, adjwgt := mp.buildMetisGraph()

			require.Len(t, xadj, m.NumElements+1)
			assert.Equal(t, int32(0), xadj[0])
			assert.Equal(t, int(xadj[m.NumElements]), len(adjncy))
			assert.Len(t, vwgt, m.NumElements)
			assert.Len(t, adjwgt, len(adjncy))

			// Symmetric, no self loops, equal weights both ways
			edges := make(map[[2]int32]int32)
			for elem := 0; elem < m.NumElements; elem++ {
				for i := xadj[elem]; i < xadj[elem+1]; i++ {
					assert.NotEqual(t, int32(elem), adjncy[i])
					edges[[2]int32{int32(elem), adjncy[i]}] = adjwgt[i]
				}
			}
			for e, w := range edges {
				back, ok := edges[[2]int32{e[1], e[0]}]
				assert.True(t, ok, "missing reverse edge for %v", e)
				assert.Equal(t, w, back)
			}
		})
	}
}

func TestPartitionBlock(t *testing.T) {
	m, err := UnitSquareMesh(3, 3)
	require.NoError(t, err)
	cfg := DefaultPartitionConfig(2)
	cfg.Method = parameters.PartitionerBlock
	mp := NewMeshPartitioner(m, cfg)
	require.NoError(t, mp.Partition())

	require.Len(t, mp.EToP, m.NumElements)
	assert.Len(t, mp.GetPartitionElements(0), 9)
	assert.Len(t, mp.GetPartitionElements(1), 9)
	for k := 1; k < m.NumElements; k++ {
		assert.GreaterOrEqual(t, mp.EToP[k], mp.EToP[k-1], "block partitions are contiguous")
	}

	stats := mp.Stats()
	require.Len(t, stats, 2)
	assert.Equal(t, 18, stats[0].NumElements+stats[1].NumElements)
	assert.Equal(t, int64(9*3), stats[0].ComputeLoad)
	assert.Len(t, stats[0].NumNeighbors, 1)

	// Every exterior facet shows up in the boundary list of its owner
	boundary := mp.GetPartitionBoundaryFaces()
	var total int
	for _, faces := range boundary {
		total += len(faces)
	}
	assert.GreaterOrEqual(t, total, len(m.ExteriorFacets()))
}

func TestPartitionErrors(t *testing.T) {
	m, err := UnitIntervalMesh(3)
	require.NoError(t, err)

	err = NewMeshPartitioner(m, DefaultPartitionConfig(0)).Partition()
	assert.ErrorIs(t, err, ErrInvalidArgument)

	err = NewMeshPartitioner(m, DefaultPartitionConfig(4)).Partition()
	assert.ErrorIs(t, err, ErrInvalidArgument)

	cfg := DefaultPartitionConfig(2)
	cfg.Method = "scotch"
	err = NewMeshPartitioner(m, cfg).Partition()
	assert.ErrorIs(t, err, ErrInvalidArgument)
}

func TestPartitionSingle(t *testing.T) {
	m, err := UnitCubeMesh(1, 1, 1)
	require.NoError(t, err)
	mp := NewMeshPartitioner(m, nil)
	require.NoError(t, mp.Partition())
	for _, p := range mp.EToP {
		assert.Equal(t, 0, p)
	}
}

func TestPartitionMetis(t *testing.T) {
	if !HaveMetis() {
		t.Skip("METIS not available, build with -tags metis to run")
	}
	m, err := UnitCubeMesh(3, 3, 3)
	require.NoError(t, err)
	cfg := DefaultPartitionConfig(2)
	cfg.Method = parameters.PartitionerMetis
	cfg.Objective = "cut"
	mp := NewMeshPartitioner(m, cfg)
	require.NoError(t, mp.Partition())

	counts := make([]int, cfg.NumPartitions)
	for _, p := range mp.EToP {
		require.True(t, p >= 0 && p < int(cfg.NumPartitions))
		counts[p]++
	}
	for i, c := range counts {
		assert.NotZero(t, c, "partition %d has no elements", i)
	}
}

func TestPartitionMetisUnavailable(t *testing.T) {
	if HaveMetis() {
		t.Skip("built with METIS")
	}
	m, err := UnitSquareMesh(2, 2)
	require.NoError(t, err)
	cfg := DefaultPartitionConfig(2)
	cfg.Method = parameters.PartitionerMetis
	err = NewMeshPartitioner(m, cfg).Partition()
	assert.ErrorIs(t, err, ErrBackendUnavailable)
}

func TestPartitionsOfOneMesh(t *testing.T) {
	m, err := UnitSquareMesh(4, 4)
	require.NoError(t, err)
	two := NewMeshPartitioner(m, DefaultPartitionConfig(2))
	require.NoError(t, two.Partition())
	before := append([]int(nil), two.EToP...)

	three := NewMeshPartitioner(m, DefaultPartitionConfig(3))
	require.NoError(t, three.Partition())
	assert.Equal(t, before, two.EToP)
	assert.Len(t, two.Stats(), 2)
	assert.Len(t, three.Stats(), 3)
}
