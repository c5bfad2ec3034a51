package mesh

import (
	"fmt"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func norm(x []float64) float64 {
	var s float64
	for _, xi := range x {
		s += xi * xi
	}
	return math.Sqrt(s)
}

func TestSphereMeshNumExteriorFacets(t *testing.T) {
	ico, err := UnitIcosahedralSphereMesh(0, 1)
	require.NoError(t, err)
	ico.Init()
	assert.Empty(t, ico.ExteriorFacets())

	cube, err := UnitCubedSphereMesh(0, 1)
	require.NoError(t, err)
	cube.Init()
	assert.Empty(t, cube.ExteriorFacets())
}

func TestSphereMeshRefinement(t *testing.T) {
	for r := 0; r <= 3; r++ {
		t.Run(fmt.Sprintf("refinement=%d", r), func(t *testing.T) {
			scale := 1 << (2 * r) // 4^r
			ico, err := UnitIcosahedralSphereMesh(r, 1)
			require.NoError(t, err)
			assert.Equal(t, 20*scale, ico.NumElements)
			assert.Equal(t, 10*scale+2, ico.NumVertices)
			// Closed surface of genus zero
			assert.Equal(t, 2, ico.NumVertices-ico.Stats().Facets+ico.NumElements)
			assert.Empty(t, ico.ExteriorFacets())

			cube, err := UnitCubedSphereMesh(r, 1)
			require.NoError(t, err)
			assert.Equal(t, 6*scale, cube.NumElements)
			assert.Equal(t, 6*scale+2, cube.NumVertices)
			assert.Equal(t, 2, cube.NumVertices-cube.Stats().Facets+cube.NumElements)
			assert.Empty(t, cube.ExteriorFacets())
		})
	}
}

func TestSphereMeshVerticesOnSphere(t *testing.T) {
	for _, radius := range []float64{1, 5} {
		for degree := 1; degree <= 3; degree++ {
			t.Run(fmt.Sprintf("r=%g degree=%d", radius, degree), func(t *testing.T) {
				for _, build := range []func() (*Mesh, error){
					func() (*Mesh, error) { return IcosahedralSphereMesh(radius, 1, degree) },
					func() (*Mesh, error) { return CubedSphereMesh(radius, 1, degree) },
				} {
					m, err := build()
					require.NoError(t, err)
					assert.Equal(t, degree, m.CoordinateDegree)
					assert.Equal(t, 3, m.GeometricDimension)
					assert.Equal(t, 2, m.TopologicalDimension())
					for _, x := range m.Vertices {
						assert.InDelta(t, radius, norm(x), 1e-12)
					}
					// Interior points of the cells are pushed onto the sphere
					ref := []float64{0.2, 0.3}
					for k := 0; k < m.NumElements; k++ {
						assert.InDelta(t, radius, norm(m.MapReference(k, ref)), 1e-12)
					}
				}
			})
		}
	}
}
