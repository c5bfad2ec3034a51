package fem

import (
	"fmt"
	"math"

	lru "github.com/hashicorp/golang-lru/v2"
	"gonum.org/v1/gonum/mat"

	"github.com/notargets/femesh/mesh"
)

// Rule is a quadrature rule on a reference cell
type Rule struct {
	Cell    mesh.CellType
	Degree  int         // Polynomials up to this degree are integrated exactly
	Points  [][]float64 // Reference coordinates
	Weights []float64
}

// NumPoints is the number of quadrature points
func (r *Rule) NumPoints() int {
	return len(r.Weights)
}

type ruleKey struct {
	cell   mesh.CellType
	degree int
}

var ruleCache, _ = lru.New[ruleKey, *Rule](128)

// MaxQuadratureDegree bounds the degree of the quadrature rules
const MaxQuadratureDegree = 40

// QuadratureRule returns a rule on the reference cell exact for polynomials
// of the given degree: tensor Gauss-Legendre on intervals and
// quadrilaterals, collapsed Gauss-Jacobi on triangles and tetrahedra.
func QuadratureRule(cell mesh.CellType, degree int) (r *Rule, err error) {
	if degree < 0 {
		degree = 0
	}
	if degree > MaxQuadratureDegree {
		return nil, fmt.Errorf("%w: quadrature degree %d exceeds %d", ErrUnsupported, degree, MaxQuadratureDegree)
	}
	key := ruleKey{cell: cell, degree: degree}
	if r, ok := ruleCache.Get(key); ok {
		return r, nil
	}
	n := degree/2 + 1
	switch cell {
	case mesh.Interval:
		r = intervalRule(n)
	case mesh.Quadrilateral:
		r = quadrilateralRule(n)
	case mesh.Triangle:
		r = triangleRule(n)
	case mesh.Tetrahedron:
		r = tetrahedronRule(n)
	default:
		return nil, fmt.Errorf("%w: no quadrature on %v", ErrUnsupported, cell)
	}
	r.Cell, r.Degree = cell, degree
	ruleCache.Add(key, r)
	return
}

// JacobiGQ computes the N+1 point Gauss-Jacobi rule on [-1,1] for the weight
// (1-x)^alpha (1+x)^beta from the eigen decomposition of the Jacobi matrix
func JacobiGQ(alpha, beta float64, N int) (X, W []float64) {
	if N == 0 {
		X = []float64{-(alpha - beta) / (alpha + beta + 2.)}
		W = []float64{gamma0(alpha, beta)}
		return
	}

	h1 := make([]float64, N+1)
	for i := range h1 {
		h1[i] = 2*float64(i) + alpha + beta
	}

	JJ := mat.NewSymDense(N+1, nil)
	// main diagonal: -(alpha^2-beta^2)./(h1+2)./h1
	fac := -(alpha*alpha - beta*beta)
	for i := 0; i < N+1; i++ {
		val := h1[i]
		JJ.SetSym(i, i, fac/(val*(val+2.)))
	}
	// Handle division by zero
	if alpha+beta < 10*1.e-16 {
		JJ.SetSym(0, 0, 0)
	}
	// 1st upper diagonal
	for i := 0; i < N; i++ {
		ip1 := float64(i + 1)
		val := h1[i]
		d1 := 2. / (val + 2.)
		d1 *= math.Sqrt(ip1 * (ip1 + alpha + beta) * (ip1 + alpha) * (ip1 + beta) / ((val + 1.) * (val + 3.)))
		JJ.SetSym(i, i+1, d1)
	}

	var eig mat.EigenSym
	if ok := eig.Factorize(JJ, true); !ok {
		panic("eigenvalue decomposition failed")
	}
	X = eig.Values(nil)

	var VVr mat.Dense
	eig.VectorsTo(&VVr)
	g0 := gamma0(alpha, beta)
	W = make([]float64, N+1)
	for i := range W {
		v := VVr.At(0, i)
		W[i] = v * v * g0
	}
	return
}

// gamma0 is the integral of the Jacobi weight over [-1,1]
func gamma0(alpha, beta float64) float64 {
	ab1 := alpha + beta + 1.
	a1 := alpha + 1.
	b1 := beta + 1.
	return math.Gamma(a1) * math.Gamma(b1) * math.Pow(2, ab1) / ab1 / math.Gamma(ab1)
}

// intervalRule maps the n point Gauss-Legendre rule onto [0,1]
func intervalRule(n int) *Rule {
	x, w := JacobiGQ(0, 0, n-1)
	r := &Rule{}
	for i := range x {
		r.Points = append(r.Points, []float64{0.5 * (1 + x[i])})
		r.Weights = append(r.Weights, 0.5*w[i])
	}
	return r
}

func quadrilateralRule(n int) *Rule {
	line := intervalRule(n)
	r := &Rule{}
	for j := range line.Points {
		for i := range line.Points {
			r.Points = append(r.Points, []float64{line.Points[i][0], line.Points[j][0]})
			r.Weights = append(r.Weights, line.Weights[i]*line.Weights[j])
		}
	}
	return r
}

// triangleRule uses the collapsed map x = (1+a)(1-b)/4, y = (1+b)/2 whose
// Jacobian (1-b)/8 is absorbed by the Gauss-Jacobi weight in b
func triangleRule(n int) *Rule {
	var (
		a, wa = JacobiGQ(0, 0, n-1)
		b, wb = JacobiGQ(1, 0, n-1)
		r     = &Rule{}
	)
	for j := range b {
		for i := range a {
			r.Points = append(r.Points, []float64{
				(1 + a[i]) * (1 - b[j]) / 4,
				(1 + b[j]) / 2,
			})
			r.Weights = append(r.Weights, wa[i]*wb[j]/8)
		}
	}
	return r
}

// tetrahedronRule collapses the cube twice, the Jacobian is
// (1-b)(1-c)^2/64
func tetrahedronRule(n int) *Rule {
	var (
		a, wa = JacobiGQ(0, 0, n-1)
		b, wb = JacobiGQ(1, 0, n-1)
		c, wc = JacobiGQ(2, 0, n-1)
		r     = &Rule{}
	)
	for l := range c {
		for j := range b {
			for i := range a {
				r.Points = append(r.Points, []float64{
					(1 + a[i]) * (1 - b[j]) * (1 - c[l]) / 8,
					(1 + b[j]) * (1 - c[l]) / 4,
					(1 + c[l]) / 2,
				})
				r.Weights = append(r.Weights, wa[i]*wb[j]*wc[l]/64)
			}
		}
	}
	return r
}
