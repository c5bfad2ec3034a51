package fem

import (
	"fmt"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/notargets/femesh/mesh"
)

func factorial(n int) float64 {
	f := 1.
	for i := 2; i <= n; i++ {
		f *= float64(i)
	}
	return f
}

// exactMonomial integrates x^e over the reference cell
func exactMonomial(cell mesh.CellType, e []int) float64 {
	switch cell {
	case mesh.Interval:
		return 1 / float64(e[0]+1)
	case mesh.Quadrilateral:
		return 1 / float64((e[0]+1)*(e[1]+1))
	case mesh.Triangle:
		return factorial(e[0]) * factorial(e[1]) / factorial(e[0]+e[1]+2)
	case mesh.Tetrahedron:
		return factorial(e[0]) * factorial(e[1]) * factorial(e[2]) / factorial(e[0]+e[1]+e[2]+3)
	}
	return math.NaN()
}

func TestJacobiGQ(t *testing.T) {
	X, W := JacobiGQ(0, 0, 1)
	assert.InDeltaSlice(t, []float64{-1 / math.Sqrt(3), 1 / math.Sqrt(3)}, X, 1e-14)
	assert.InDeltaSlice(t, []float64{1, 1}, W, 1e-14)

	// Zeros of P_2^(1,0) are (-1 +- sqrt(6))/5
	X, W = JacobiGQ(1, 0, 1)
	assert.InDeltaSlice(t, []float64{(-1 - math.Sqrt(6)) / 5, (-1 + math.Sqrt(6)) / 5}, X, 1e-14)
	assert.InDelta(t, -2./3, W[0]*X[0]+W[1]*X[1], 1e-14)

	// Weights integrate the Jacobi weight function
	for _, ab := range [][2]float64{{0, 0}, {1, 0}, {2, 0}, {1, 1}} {
		_, W = JacobiGQ(ab[0], ab[1], 4)
		var sum float64
		for _, w := range W {
			sum += w
		}
		assert.InDelta(t, gamma0(ab[0], ab[1]), sum, 1e-12)
	}
}

func TestQuadratureExactness(t *testing.T) {
	cells := []mesh.CellType{mesh.Interval, mesh.Quadrilateral, mesh.Triangle, mesh.Tetrahedron}
	for _, cell := range cells {
		for degree := 0; degree <= 8; degree++ {
			t.Run(fmt.Sprintf("%v/degree=%d", cell, degree), func(t *testing.T) {
				r, err := QuadratureRule(cell, degree)
				require.NoError(t, err)
				assert.Equal(t, degree, r.Degree)

				var sum float64
				for _, w := range r.Weights {
					sum += w
				}
				assert.InDelta(t, cell.ReferenceMeasure(), sum, 1e-13)

				exps := monomialExponents(cell, degree)
				if cell == mesh.Quadrilateral {
					// Q_k holds degree 2k terms, only P_k is guaranteed
					exps = monomialExponents(mesh.Triangle, degree)
				}
				for _, e := range exps {
					var got float64
					for q, x := range r.Points {
						got += r.Weights[q] * evalMonomials([][]int{e}, x)[0]
					}
					assert.InDelta(t, exactMonomial(cell, e), got, 1e-13, "monomial %v", e)
				}
			})
		}
	}
}

func TestQuadratureRuleCached(t *testing.T) {
	a, err := QuadratureRule(mesh.Triangle, 5)
	require.NoError(t, err)
	b, err := QuadratureRule(mesh.Triangle, 5)
	require.NoError(t, err)
	assert.Same(t, a, b)

	_, err = QuadratureRule(mesh.Triangle, MaxQuadratureDegree+1)
	assert.ErrorIs(t, err, ErrUnsupported)
}
