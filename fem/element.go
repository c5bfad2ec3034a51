package fem

import (
	"fmt"
	"math"
	"sync"

	lru "github.com/hashicorp/golang-lru/v2"
	"gonum.org/v1/gonum/mat"

	"github.com/notargets/femesh/mesh"
)

// MaxDegree is the highest supported Lagrange degree
const MaxDegree = 4

// Element is an equispaced Lagrange element on a reference cell.
//
// Every node carries integer vertex weights: barycentric coordinates scaled
// by the degree for simplices, scaled bilinear weights for quadrilaterals.
// Two cells sharing a vertex, edge or facet see the same weights on the same
// global vertices at a shared node, which is how continuous spaces number
// their nodes.
type Element struct {
	Cell    mesh.CellType
	Degree  int
	Nodes   [][]float64 // Reference coordinates [nnodes][tdim]
	Weights [][]int     // Vertex weights [nnodes][nverts]

	exponents [][]int    // Monomial exponents [nbasis][tdim]
	coeffs    *mat.Dense // Monomial coefficients, column i is basis function i

	tabs sync.Map // ruleKey -> *Tabulation
}

type elementKey struct {
	cell   mesh.CellType
	degree int
}

var elementCache, _ = lru.New[elementKey, *Element](64)

// NewElement returns the Lagrange element of the given degree on cell
func NewElement(cell mesh.CellType, degree int) (el *Element, err error) {
	if degree < 0 || degree > MaxDegree {
		return nil, fmt.Errorf("%w: element degree %d outside [0,%d]", ErrUnsupported, degree, MaxDegree)
	}
	if cell.Dimension() < 0 {
		return nil, fmt.Errorf("%w: unknown cell %v", ErrUnsupported, cell)
	}
	key := elementKey{cell: cell, degree: degree}
	if el, ok := elementCache.Get(key); ok {
		return el, nil
	}
	el = &Element{Cell: cell, Degree: degree}
	el.Nodes, el.Weights = lagrangeNodes(cell, degree)
	el.exponents = monomialExponents(cell, degree)

	np := len(el.Nodes)
	V := mat.NewDense(np, np, nil)
	for i, x := range el.Nodes {
		V.SetRow(i, evalMonomials(el.exponents, x))
	}
	el.coeffs = mat.NewDense(np, np, nil)
	if err = el.coeffs.Inverse(V); err != nil {
		return nil, fmt.Errorf("%v degree %d Vandermonde inversion: %w", cell, degree, err)
	}
	elementCache.Add(key, el)
	return
}

// NumNodes is the number of nodes, and basis functions, of the element
func (el *Element) NumNodes() int {
	return len(el.Nodes)
}

// lagrangeNodes lays out the equispaced nodes with their vertex weights
func lagrangeNodes(cell mesh.CellType, k int) (nodes [][]float64, weights [][]int) {
	var (
		kf = float64(k)
		at = func(i int) float64 { return float64(i) / kf }
	)
	if k == 0 {
		// Single node at the centroid
		ref := cell.ReferenceVertices()
		c := make([]float64, cell.Dimension())
		for _, v := range ref {
			for d := range c {
				c[d] += v[d] / float64(len(ref))
			}
		}
		w := make([]int, len(ref))
		for i := range w {
			w[i] = 1
		}
		return [][]float64{c}, [][]int{w}
	}
	switch cell {
	case mesh.Interval:
		for i := 0; i <= k; i++ {
			nodes = append(nodes, []float64{at(i)})
			weights = append(weights, []int{k - i, i})
		}
	case mesh.Quadrilateral:
		for j := 0; j <= k; j++ {
			for i := 0; i <= k; i++ {
				nodes = append(nodes, []float64{at(i), at(j)})
				weights = append(weights, []int{(k - i) * (k - j), i * (k - j), i * j, (k - i) * j})
			}
		}
	case mesh.Triangle:
		for j := 0; j <= k; j++ {
			for i := 0; i+j <= k; i++ {
				nodes = append(nodes, []float64{at(i), at(j)})
				weights = append(weights, []int{k - i - j, i, j})
			}
		}
	case mesh.Tetrahedron:
		for l := 0; l <= k; l++ {
			for j := 0; j+l <= k; j++ {
				for i := 0; i+j+l <= k; i++ {
					nodes = append(nodes, []float64{at(i), at(j), at(l)})
					weights = append(weights, []int{k - i - j - l, i, j, l})
				}
			}
		}
	}
	return
}

// monomialExponents spans P_k on simplices and Q_k on the quadrilateral
func monomialExponents(cell mesh.CellType, k int) (exps [][]int) {
	switch cell {
	case mesh.Interval:
		for a := 0; a <= k; a++ {
			exps = append(exps, []int{a})
		}
	case mesh.Quadrilateral:
		for b := 0; b <= k; b++ {
			for a := 0; a <= k; a++ {
				exps = append(exps, []int{a, b})
			}
		}
	case mesh.Triangle:
		for b := 0; b <= k; b++ {
			for a := 0; a+b <= k; a++ {
				exps = append(exps, []int{a, b})
			}
		}
	case mesh.Tetrahedron:
		for c := 0; c <= k; c++ {
			for b := 0; b+c <= k; b++ {
				for a := 0; a+b+c <= k; a++ {
					exps = append(exps, []int{a, b, c})
				}
			}
		}
	}
	return
}

func evalMonomials(exps [][]int, x []float64) (m []float64) {
	m = make([]float64, len(exps))
	for j, e := range exps {
		v := 1.
		for d, p := range e {
			v *= math.Pow(x[d], float64(p))
		}
		m[j] = v
	}
	return
}

// evalMonomialDerivs returns d/dx_dir of every monomial
func evalMonomialDerivs(exps [][]int, x []float64, dir int) (m []float64) {
	m = make([]float64, len(exps))
	for j, e := range exps {
		if e[dir] == 0 {
			continue
		}
		v := float64(e[dir])
		for d, p := range e {
			if d == dir {
				p--
			}
			v *= math.Pow(x[d], float64(p))
		}
		m[j] = v
	}
	return
}

// Eval returns the value of every basis function at reference point x
func (el *Element) Eval(x []float64) (phi []float64) {
	m := mat.NewVecDense(len(el.exponents), evalMonomials(el.exponents, x))
	var out mat.VecDense
	out.MulVec(el.coeffs.T(), m)
	return out.RawVector().Data
}

// Grad returns the reference gradient of every basis function at x,
// indexed [basis][direction]
func (el *Element) Grad(x []float64) (dphi [][]float64) {
	var (
		np   = el.NumNodes()
		tdim = len(x)
	)
	dphi = make([][]float64, np)
	for i := range dphi {
		dphi[i] = make([]float64, tdim)
	}
	for dir := 0; dir < tdim; dir++ {
		m := mat.NewVecDense(np, evalMonomialDerivs(el.exponents, x, dir))
		var out mat.VecDense
		out.MulVec(el.coeffs.T(), m)
		for i := range dphi {
			dphi[i][dir] = out.AtVec(i)
		}
	}
	return
}

// Tabulation holds basis values and gradients at every point of a rule
type Tabulation struct {
	Phi  [][]float64   // [point][basis]
	DPhi [][][]float64 // [point][basis][direction]
}

// Tabulate evaluates the basis on the points of r, results are cached per
// rule cell and degree
func (el *Element) Tabulate(r *Rule) *Tabulation {
	key := ruleKey{cell: r.Cell, degree: r.Degree}
	if t, ok := el.tabs.Load(key); ok {
		return t.(*Tabulation)
	}
	t := &Tabulation{
		Phi:  make([][]float64, r.NumPoints()),
		DPhi: make([][][]float64, r.NumPoints()),
	}
	for q, x := range r.Points {
		t.Phi[q] = el.Eval(x)
		t.DPhi[q] = el.Grad(x)
	}
	actual, _ := el.tabs.LoadOrStore(key, t)
	return actual.(*Tabulation)
}
