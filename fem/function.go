package fem

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/notargets/femesh/utils"
)

// Expression is a scalar field given by its value at a physical point
type Expression func(x []float64) float64

// VectorExpression is a vector field given by its value at a physical point
type VectorExpression func(x []float64) []float64

// Constant is the expression with value c everywhere
func Constant(c float64) Expression {
	return func([]float64) float64 { return c }
}

// Function is a member of a function space, stored as ValueSize values per
// global node
type Function struct {
	Space *FunctionSpace
	Name  string
	data  []float64
}

func NewFunction(V *FunctionSpace, name string) *Function {
	return &Function{
		Space: V,
		Name:  name,
		data:  make([]float64, V.Dim()),
	}
}

// Data is the flat value array, node major
func (f *Function) Data() []float64 {
	return f.data
}

// Dat returns one row of ValueSize values per node. The rows alias the
// function data.
func (f *Function) Dat() (rows [][]float64) {
	vs := f.Space.ValueSize
	rows = make([][]float64, f.Space.NumNodes)
	for n := range rows {
		rows[n] = f.data[n*vs : (n+1)*vs : (n+1)*vs]
	}
	return
}

// Assign sets every value to c
func (f *Function) Assign(c float64) *Function {
	for i := range f.data {
		f.data[i] = c
	}
	return f
}

// nodePositions calls fn with the physical position of every node, visiting
// each global node once. A continuous node shared by cells that disagree on
// its position, as across a periodic seam, takes the position seen from the
// first cell.
func (f *Function) nodePositions(fn func(node int, x []float64)) error {
	var (
		V       = f.Space
		visited = make([]bool, V.NumNodes)
	)
	g, err := meshGeometry(V.Mesh)
	if err != nil {
		return err
	}
	coordPhi := make([][]float64, V.Element.NumNodes())
	for i, ref := range V.Element.Nodes {
		coordPhi[i] = g.elem.Eval(ref)
	}
	for k, nodes := range V.CellNodes {
		for i, n := range nodes {
			if visited[n] {
				continue
			}
			visited[n] = true
			fn(n, g.mapPoint(k, coordPhi[i]))
		}
	}
	return nil
}

// Interpolate sets the nodal values of a scalar function from e
func (f *Function) Interpolate(e Expression) error {
	if f.Space.ValueSize != 1 {
		return fmt.Errorf("%w: scalar expression into %d component space", ErrIncompatible, f.Space.ValueSize)
	}
	return f.nodePositions(func(n int, x []float64) {
		f.data[n] = e(x)
	})
}

// InterpolateVector sets the nodal values of a vector function from e
func (f *Function) InterpolateVector(e VectorExpression) (err error) {
	vs := f.Space.ValueSize
	perr := f.nodePositions(func(n int, x []float64) {
		v := e(x)
		if len(v) != vs {
			if err == nil {
				err = fmt.Errorf("%w: expression has %d components, space has %d", ErrIncompatible, len(v), vs)
			}
			return
		}
		copy(f.data[n*vs:(n+1)*vs], v)
	})
	if perr != nil {
		return perr
	}
	return
}

// evalCell returns component comp of f in cell k at a point where the basis
// of f takes the values phi
func (f *Function) evalCell(k int, phi []float64, comp int) (v float64) {
	vs := f.Space.ValueSize
	for i, n := range f.Space.CellNodes[k] {
		v += phi[i] * f.data[n*vs+comp]
	}
	return
}

// Project sets f to the L2 projection of src, solving with the mass matrix
// of the space of f. Both functions must be scalar and live on the same
// mesh.
func (f *Function) Project(ctx context.Context, src *Function) (err error) {
	var (
		V = f.Space
		m = V.Mesh
	)
	if src.Space.Mesh != m {
		return fmt.Errorf("%w: projection across meshes %s and %s", ErrIncompatible, src.Space.Mesh.Name, m.Name)
	}
	if V.ValueSize != 1 || src.Space.ValueSize != 1 {
		return fmt.Errorf("%w: projection of vector valued functions", ErrIncompatible)
	}
	g, err := meshGeometry(m)
	if err != nil {
		return err
	}
	rule, err := QuadratureRule(m.CellType, quadratureDegree(m, V.Degree+src.Space.Degree))
	if err != nil {
		return err
	}
	var (
		n       = V.NumNodes
		M       = utils.NewDOK(n, n)
		b       = make([]float64, n)
		tabV    = V.Element.Tabulate(rule)
		tabSrc  = src.Space.Element.Tabulate(rule)
		tabGeom = g.elem.Tabulate(rule)
	)
	for k, nodes := range V.CellNodes {
		if k%256 == 0 {
			if err = ctx.Err(); err != nil {
				return
			}
		}
		for q, w := range rule.Weights {
			var (
				wdet = w * g.detJ(k, tabGeom.DPhi[q])
				phi  = tabV.Phi[q]
				s    = src.evalCell(k, tabSrc.Phi[q], 0)
			)
			for i, ni := range nodes {
				b[ni] += wdet * s * phi[i]
				for j, nj := range nodes {
					M.AddTo(ni, nj, wdet*phi[i]*phi[j])
				}
			}
		}
	}
	M.SetReadOnly("mass matrix")
	x, iters, err := utils.SolveCG(M.ToCSR(), b, 1e-12, 0)
	if err != nil {
		return fmt.Errorf("projecting %s onto %s: %w", src.Name, V, err)
	}
	copy(f.data, x)
	utils.Logger().Debug("projection",
		zap.String("space", V.String()),
		zap.Int("dofs", n),
		zap.Int("iterations", iters))
	return
}
