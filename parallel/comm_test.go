package parallel

import (
	"context"
	"errors"
	"fmt"
	"math"
	"testing"

	"github.com/samber/lo"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/sync/errgroup"

	"github.com/notargets/femesh/fem"
	"github.com/notargets/femesh/mesh"
	"github.com/notargets/femesh/parameters"
)

func TestParallelIntegrateOne(t *testing.T) {
	ctx := context.Background()
	tests := []struct {
		name  string
		build func() (*mesh.Mesh, error)
		want  float64
	}{
		{"unit interval", func() (*mesh.Mesh, error) { return mesh.UnitIntervalMesh(30) }, 1},
		{"interval", func() (*mesh.Mesh, error) { return mesh.IntervalMesh(30, 5.0) }, 5},
		{"periodic unit interval", func() (*mesh.Mesh, error) { return mesh.PeriodicUnitIntervalMesh(30) }, 1},
		{"periodic interval", func() (*mesh.Mesh, error) { return mesh.PeriodicIntervalMesh(30, 5.0) }, 5},
		{"unit square", func() (*mesh.Mesh, error) { return mesh.UnitSquareMesh(5, 5) }, 1},
		{"periodic unit square", func() (*mesh.Mesh, error) { return mesh.PeriodicUnitSquareMesh(5, 5) }, 1},
		{"unit cube", func() (*mesh.Mesh, error) { return mesh.UnitCubeMesh(3, 3, 3) }, 1},
	}
	for _, tt := range tests {
		for _, ranks := range []int{1, 2, 3} {
			t.Run(fmt.Sprintf("%s/ranks=%d", tt.name, ranks), func(t *testing.T) {
				m, err := tt.build()
				require.NoError(t, err)
				got, err := IntegrateOne(ctx, ranks, m)
				require.NoError(t, err)
				assert.InDelta(t, tt.want, got, 1e-3)
			})
		}
	}
}

func TestParallelMatchesSerial(t *testing.T) {
	ctx := context.Background()
	m, err := mesh.BoxMesh(3, 2, 2, 1, 2, 3)
	require.NoError(t, err)
	serial, err := fem.Assemble(ctx, m, 1, func(q *fem.QuadraturePoint) float64 { return q.X[2] })
	require.NoError(t, err)

	comm, err := NewComm(4)
	require.NoError(t, err)
	d, err := Distribute(ctx, comm, m)
	require.NoError(t, err)
	distributed, err := d.Assemble(ctx, 1, func(q *fem.QuadraturePoint) float64 { return q.X[2] })
	require.NoError(t, err)
	assert.InDelta(t, serial, distributed, 1e-12)

	var owned int
	for _, cells := range d.Owned {
		assert.NotEmpty(t, cells)
		owned += len(cells)
	}
	assert.Equal(t, m.NumElements, owned)
	assert.Len(t, d.Stats(), 4)
}

func TestParallelExteriorFacets(t *testing.T) {
	ctx := context.Background()
	comm, err := NewComm(2)
	require.NoError(t, err)

	square, err := mesh.UnitSquareMesh(5, 5)
	require.NoError(t, err)
	d, err := Distribute(ctx, comm, square)
	require.NoError(t, err)
	counts, err := d.ExteriorFacets(ctx)
	require.NoError(t, err)
	assert.Equal(t, 20, counts[0]+counts[1])
	assert.NotEmpty(t, d.InterfaceFacets())

	for _, build := range []func() (*mesh.Mesh, error){
		func() (*mesh.Mesh, error) { return mesh.UnitIcosahedralSphereMesh(2, 1) },
		func() (*mesh.Mesh, error) { return mesh.UnitCubedSphereMesh(2, 1) },
		func() (*mesh.Mesh, error) { return mesh.PeriodicUnitSquareMesh(4, 4) },
	} {
		m, err := build()
		require.NoError(t, err)
		d, err := Distribute(ctx, comm, m)
		require.NoError(t, err)
		counts, err := d.ExteriorFacets(ctx)
		require.NoError(t, err)
		assert.Equal(t, []int{0, 0}, counts, m.Name)
	}
}

func TestDistributionsOfOneMesh(t *testing.T) {
	ctx := context.Background()
	m, err := mesh.UnitSquareMesh(4, 4)
	require.NoError(t, err)
	two, err := NewComm(2)
	require.NoError(t, err)
	three, err := NewComm(3)
	require.NoError(t, err)

	d2, err := Distribute(ctx, two, m)
	require.NoError(t, err)
	before, err := d2.ExteriorFacets(ctx)
	require.NoError(t, err)
	assert.Equal(t, []int{8, 8}, before)
	interfaces := d2.InterfaceFacets()

	_, err = Distribute(ctx, three, m)
	require.NoError(t, err)
	after, err := d2.ExteriorFacets(ctx)
	require.NoError(t, err)
	assert.Equal(t, before, after)
	assert.Equal(t, interfaces, d2.InterfaceFacets())

	// Concurrent distributions of the same mesh
	var eg errgroup.Group
	for size := 1; size <= 4; size++ {
		eg.Go(func() error {
			comm, err := NewComm(size)
			if err != nil {
				return err
			}
			d, err := Distribute(ctx, comm, m)
			if err != nil {
				return err
			}
			counts, err := d.ExteriorFacets(ctx)
			if err != nil {
				return err
			}
			if total := AllReduceSum(lo.Map(counts, func(n int, _ int) float64 { return float64(n) })); total != 16 {
				return fmt.Errorf("%d ranks: %v exterior facets", size, total)
			}
			return nil
		})
	}
	assert.NoError(t, eg.Wait())
}

func TestParallelSphereArea(t *testing.T) {
	ctx := context.Background()
	for degree := 1; degree <= 3; degree++ {
		m, err := mesh.IcosahedralSphereMesh(5.0, 3, degree)
		require.NoError(t, err)
		got, err := IntegrateOne(ctx, 2, m)
		require.NoError(t, err)
		assert.InEpsilon(t, 4*math.Pi*25, got, 0.02, "degree %d", degree)
	}
}

func TestParallelErrors(t *testing.T) {
	ctx := context.Background()
	_, err := NewComm(0)
	assert.ErrorIs(t, err, mesh.ErrInvalidArgument)

	m, err := mesh.UnitIntervalMesh(3)
	require.NoError(t, err)
	_, err = IntegrateOne(ctx, 4, m)
	assert.ErrorIs(t, err, mesh.ErrInvalidArgument)

	_, err = parameters.Set(parameters.Parameters{
		ReorderMeshes:         true,
		Partitioner:           "scotch",
		QuadratureDegreeBoost: 1,
	})
	assert.Error(t, err)
	assert.Equal(t, parameters.PartitionerBlock, parameters.Get().Partitioner)

	cancelled, cancel := context.WithCancel(ctx)
	cancel()
	_, err = IntegrateOne(cancelled, 2, m)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestRunStopsOnError(t *testing.T) {
	comm, err := NewComm(3)
	require.NoError(t, err)
	boom := errors.New("boom")
	_, err = Run(context.Background(), comm, func(ctx context.Context, rank int) (int, error) {
		if rank == 1 {
			return 0, boom
		}
		return rank, nil
	})
	assert.ErrorIs(t, err, boom)
	assert.Contains(t, err.Error(), "rank 1")

	got, err := Run(context.Background(), comm, func(ctx context.Context, rank int) (int, error) {
		return rank * rank, nil
	})
	require.NoError(t, err)
	assert.Equal(t, []int{0, 1, 4}, got)
}
