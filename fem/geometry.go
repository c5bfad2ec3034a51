package fem

import (
	"fmt"
	"math"

	lru "github.com/hashicorp/golang-lru/v2"
	"gonum.org/v1/gonum/mat"

	"github.com/notargets/femesh/mesh"
	"github.com/notargets/femesh/parameters"
)

// geometry is the coordinate field of a mesh: a Lagrange element of the
// mesh coordinate degree and the physical position of its nodes per cell
type geometry struct {
	mesh  *mesh.Mesh
	elem  *Element
	nodes [][][]float64 // [cell][coordinate node][gdim]
}

var geometryCache, _ = lru.New[*mesh.Mesh, *geometry](32)

func meshGeometry(m *mesh.Mesh) (g *geometry, err error) {
	m.Init()
	if g, ok := geometryCache.Get(m); ok {
		return g, nil
	}
	el, err := NewElement(m.CellType, m.CoordinateDegree)
	if err != nil {
		return nil, fmt.Errorf("coordinate field of %s: %w", m.Name, err)
	}
	g = &geometry{
		mesh:  m,
		elem:  el,
		nodes: make([][][]float64, m.NumElements),
	}
	for k := range g.nodes {
		g.nodes[k] = make([][]float64, el.NumNodes())
		for i, ref := range el.Nodes {
			g.nodes[k][i] = m.MapReference(k, ref)
		}
	}
	geometryCache.Add(m, g)
	return
}

// mapPoint returns the physical position of the point whose coordinate
// basis values are phi
func (g *geometry) mapPoint(k int, phi []float64) (x []float64) {
	x = make([]float64, g.mesh.GeometricDimension)
	for i, X := range g.nodes[k] {
		for d := range x {
			x[d] += phi[i] * X[d]
		}
	}
	return
}

// detJ is the volume scaling of cell k at a point with coordinate basis
// gradients dphi: |det J| for full dimensional cells, sqrt(det(J^T J)) for
// cells immersed in a higher dimensional space
func (g *geometry) detJ(k int, dphi [][]float64) float64 {
	var (
		gdim = g.mesh.GeometricDimension
		tdim = g.mesh.TopologicalDimension()
		J    = mat.NewDense(gdim, tdim, nil)
	)
	for i, X := range g.nodes[k] {
		for d := 0; d < gdim; d++ {
			for r := 0; r < tdim; r++ {
				J.Set(d, r, J.At(d, r)+X[d]*dphi[i][r])
			}
		}
	}
	if gdim == tdim {
		return math.Abs(mat.Det(J))
	}
	var G mat.Dense
	G.Mul(J.T(), J)
	return math.Sqrt(math.Abs(mat.Det(&G)))
}

// quadratureDegree adds the degree of the coordinate map and the global
// boost to the polynomial degree of an integrand
func quadratureDegree(m *mesh.Mesh, degree int) int {
	tdim := m.TopologicalDimension()
	geo := (m.CoordinateDegree - 1) * tdim
	if m.CellType == mesh.Quadrilateral {
		geo++
	}
	return degree + geo + parameters.Get().QuadratureDegreeBoost
}

// Coordinates returns the coordinate field of m as a vector function. Its
// nodes are those of the coordinate element, continuous unless the mesh is
// periodic.
func Coordinates(m *mesh.Mesh) (*Function, error) {
	g, err := meshGeometry(m)
	if err != nil {
		return nil, err
	}
	family := CG
	if m.IsPeriodic() {
		family = DG
	}
	V, err := NewVectorFunctionSpace(m, family, m.CoordinateDegree)
	if err != nil {
		return nil, err
	}
	f := NewFunction(V, "coordinates")
	dat := f.Dat()
	for k, nodes := range V.CellNodes {
		for i, n := range nodes {
			copy(dat[n], g.nodes[k][i])
		}
	}
	return f, nil
}
