package fem

import (
	"context"
	"fmt"
	"runtime"

	"golang.org/x/sync/errgroup"

	"github.com/notargets/femesh/mesh"
	"github.com/notargets/femesh/utils"
)

// QuadraturePoint is handed to an Integrand at every quadrature point
type QuadraturePoint struct {
	Cell   int
	Index  int       // Point index within the rule
	Ref    []float64 // Reference coordinates
	X      []float64 // Physical coordinates
	Weight float64   // Quadrature weight times the volume scaling
	rule   *Rule
}

// Eval returns the value of the scalar function f at the point. f must be
// defined on the mesh being integrated.
func (q *QuadraturePoint) Eval(f *Function) float64 {
	tab := f.Space.Element.Tabulate(q.rule)
	return f.evalCell(q.Cell, tab.Phi[q.Index], 0)
}

// EvalVector returns every component of f at the point
func (q *QuadraturePoint) EvalVector(f *Function) (v []float64) {
	tab := f.Space.Element.Tabulate(q.rule)
	v = make([]float64, f.Space.ValueSize)
	for c := range v {
		v[c] = f.evalCell(q.Cell, tab.Phi[q.Index], c)
	}
	return
}

// Integrand returns the value to integrate at a quadrature point
type Integrand func(q *QuadraturePoint) float64

// Assemble integrates the integrand over every cell of m with a rule exact
// for polynomials of the given degree on affine cells
func Assemble(ctx context.Context, m *mesh.Mesh, degree int, integrand Integrand) (float64, error) {
	m.Init()
	cells := make([]int, m.NumElements)
	for k := range cells {
		cells[k] = k
	}
	return AssembleCells(ctx, m, cells, degree, integrand)
}

// AssembleCells integrates over the listed cells only. Cells are split in
// contiguous chunks summed concurrently; the chunk sums are added in order.
func AssembleCells(ctx context.Context, m *mesh.Mesh, cells []int, degree int,
	integrand Integrand) (total float64, err error) {
	g, err := meshGeometry(m)
	if err != nil {
		return
	}
	rule, err := QuadratureRule(m.CellType, quadratureDegree(m, degree))
	if err != nil {
		return
	}
	if len(cells) == 0 {
		return
	}
	var (
		tab      = g.elem.Tabulate(rule)
		nchunks  = min(runtime.GOMAXPROCS(0), len(cells))
		pm       = utils.NewPartitionMap(nchunks, len(cells))
		partials = make([]float64, nchunks)
	)
	eg, ctx := errgroup.WithContext(ctx)
	for c := 0; c < nchunks; c++ {
		kMin, kMax := pm.GetBucketRange(c)
		eg.Go(func() error {
			var sum float64
			for _, k := range cells[kMin:kMax] {
				if err := ctx.Err(); err != nil {
					return err
				}
				if k < 0 || k >= m.NumElements {
					return fmt.Errorf("%w: cell %d out of range for %s", mesh.ErrInvalidArgument, k, m.Name)
				}
				for qi, w := range rule.Weights {
					q := QuadraturePoint{
						Cell:   k,
						Index:  qi,
						Ref:    rule.Points[qi],
						X:      g.mapPoint(k, tab.Phi[qi]),
						Weight: w * g.detJ(k, tab.DPhi[qi]),
						rule:   rule,
					}
					sum += q.Weight * integrand(&q)
				}
			}
			partials[c] = sum
			return nil
		})
	}
	if err = eg.Wait(); err != nil {
		return 0, err
	}
	for _, p := range partials {
		total += p
	}
	return
}

// Integrate returns the integral of the scalar function f over its mesh
func Integrate(ctx context.Context, f *Function) (float64, error) {
	if f.Space.ValueSize != 1 {
		return 0, fmt.Errorf("%w: integral of a %d component function", ErrIncompatible, f.Space.ValueSize)
	}
	return Assemble(ctx, f.Space.Mesh, f.Space.Degree, func(q *QuadraturePoint) float64 {
		return q.Eval(f)
	})
}

// SquaredDifference returns the integral of (a-b)^2 over the common mesh
func SquaredDifference(ctx context.Context, a, b *Function) (float64, error) {
	if a.Space.Mesh != b.Space.Mesh {
		return 0, fmt.Errorf("%w: %s and %s live on different meshes", ErrIncompatible, a.Name, b.Name)
	}
	if a.Space.ValueSize != 1 || b.Space.ValueSize != 1 {
		return 0, fmt.Errorf("%w: squared difference of vector valued functions", ErrIncompatible)
	}
	degree := 2 * max(a.Space.Degree, b.Space.Degree)
	return Assemble(ctx, a.Space.Mesh, degree, func(q *QuadraturePoint) float64 {
		d := q.Eval(a) - q.Eval(b)
		return d * d
	})
}

// IntegrateOne interpolates the constant 1 into the degree one continuous
// space of m and integrates it, which measures the domain
func IntegrateOne(m *mesh.Mesh) (float64, error) {
	return IntegrateOneContext(context.Background(), m)
}

func IntegrateOneContext(ctx context.Context, m *mesh.Mesh) (float64, error) {
	V, err := NewFunctionSpace(m, CG, 1)
	if err != nil {
		return 0, err
	}
	u := NewFunction(V, "u")
	if err = u.Interpolate(Constant(1)); err != nil {
		return 0, err
	}
	return Integrate(ctx, u)
}
