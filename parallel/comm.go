// Package parallel runs mesh operations over a simulated communicator: the
// cells are partitioned across ranks, every rank works on the cells it owns
// in its own goroutine, and the per rank results are reduced in rank order
// so that a run is reproducible for a given partition.
package parallel

import (
	"context"
	"fmt"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/notargets/femesh/fem"
	"github.com/notargets/femesh/mesh"
	"github.com/notargets/femesh/utils"
)

// Comm is a communicator of Size ranks
type Comm struct {
	Size int
}

func NewComm(size int) (*Comm, error) {
	if size < 1 {
		return nil, fmt.Errorf("%w: communicator size must be positive, got %d", mesh.ErrInvalidArgument, size)
	}
	return &Comm{Size: size}, nil
}

// Distribution records which cells each rank owns
type Distribution struct {
	Comm        *Comm
	Mesh        *mesh.Mesh
	Owned       [][]int // Cells per rank
	partitioner *mesh.MeshPartitioner
}

// Distribute partitions m over the ranks of comm with the partitioner
// selected by the global parameters
func Distribute(ctx context.Context, comm *Comm, m *mesh.Mesh) (d *Distribution, err error) {
	if err = ctx.Err(); err != nil {
		return
	}
	mp := mesh.NewMeshPartitioner(m, mesh.DefaultPartitionConfig(int32(comm.Size)))
	if err = mp.Partition(); err != nil {
		return nil, fmt.Errorf("distributing %s over %d ranks: %w", m.Name, comm.Size, err)
	}
	d = &Distribution{
		Comm:        comm,
		Mesh:        m,
		Owned:       make([][]int, comm.Size),
		partitioner: mp,
	}
	for rank := range d.Owned {
		d.Owned[rank] = mp.GetPartitionElements(rank)
	}
	utils.Logger().Debug("distributed mesh",
		zap.String("mesh", m.Name),
		zap.Int("ranks", comm.Size),
		zap.Ints("owned", d.ownedCounts()))
	return
}

func (d *Distribution) ownedCounts() (counts []int) {
	counts = make([]int, len(d.Owned))
	for rank, cells := range d.Owned {
		counts[rank] = len(cells)
	}
	return
}

// Stats returns the per rank partition statistics
func (d *Distribution) Stats() []mesh.PartitionStats {
	return d.partitioner.Stats()
}

// Run calls fn once per rank concurrently and returns the per rank results
// in rank order. The first error cancels the other ranks.
func Run[T any](ctx context.Context, comm *Comm, fn func(ctx context.Context, rank int) (T, error)) (results []T, err error) {
	results = make([]T, comm.Size)
	eg, ctx := errgroup.WithContext(ctx)
	for rank := 0; rank < comm.Size; rank++ {
		eg.Go(func() (err error) {
			results[rank], err = fn(ctx, rank)
			if err != nil {
				err = fmt.Errorf("rank %d: %w", rank, err)
			}
			return
		})
	}
	if err = eg.Wait(); err != nil {
		return nil, err
	}
	return
}

// AllReduceSum adds the per rank values in rank order
func AllReduceSum(values []float64) (sum float64) {
	for _, v := range values {
		sum += v
	}
	return
}

// Assemble integrates the integrand over the whole mesh, every rank
// covering the cells it owns
func (d *Distribution) Assemble(ctx context.Context, degree int, integrand fem.Integrand) (float64, error) {
	partials, err := Run(ctx, d.Comm, func(ctx context.Context, rank int) (float64, error) {
		return fem.AssembleCells(ctx, d.Mesh, d.Owned[rank], degree, integrand)
	})
	if err != nil {
		return 0, err
	}
	return AllReduceSum(partials), nil
}

// IntegrateOne measures the domain the way fem.IntegrateOne does, with the
// integral split across ranks
func (d *Distribution) IntegrateOne(ctx context.Context) (float64, error) {
	V, err := fem.NewFunctionSpace(d.Mesh, fem.CG, 1)
	if err != nil {
		return 0, err
	}
	u := fem.NewFunction(V, "u")
	if err = u.Interpolate(fem.Constant(1)); err != nil {
		return 0, err
	}
	return d.Assemble(ctx, 1, func(q *fem.QuadraturePoint) float64 {
		return q.Eval(u)
	})
}

// ExteriorFacets counts the exterior facets owned by each rank. A facet is
// owned by the rank owning its parent cell.
func (d *Distribution) ExteriorFacets(ctx context.Context) ([]int, error) {
	var (
		faces = d.Mesh.Faces
		owner = d.partitioner.EToP
	)
	return Run(ctx, d.Comm, func(ctx context.Context, rank int) (n int, err error) {
		for _, id := range d.Mesh.ExteriorFacets() {
			if owner[faces[id].Element] == rank {
				n++
			}
		}
		return
	})
}

// InterfaceFacets returns, per rank, the facets it shares with another rank
func (d *Distribution) InterfaceFacets() map[int][]int {
	var (
		m      = d.Mesh
		shared = make(map[int][]int)
	)
	for rank, ids := range d.partitioner.GetPartitionBoundaryFaces() {
		for _, id := range ids {
			if !m.Faces[id].IsExterior() {
				shared[rank] = append(shared[rank], id)
			}
		}
	}
	return shared
}

// IntegrateOne distributes m over size ranks and measures it
func IntegrateOne(ctx context.Context, size int, m *mesh.Mesh) (float64, error) {
	comm, err := NewComm(size)
	if err != nil {
		return 0, err
	}
	d, err := Distribute(ctx, comm, m)
	if err != nil {
		return 0, err
	}
	return d.IntegrateOne(ctx)
}
