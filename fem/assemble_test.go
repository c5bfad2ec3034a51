package fem

import (
	"context"
	"errors"
	"fmt"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/notargets/femesh/mesh"
)

func TestIntegrateOne(t *testing.T) {
	tests := []struct {
		name  string
		build func() (*mesh.Mesh, error)
		want  float64
	}{
		{"unit interval", func() (*mesh.Mesh, error) { return mesh.UnitIntervalMesh(3) }, 1},
		{"interval", func() (*mesh.Mesh, error) { return mesh.IntervalMesh(3, 5.0) }, 5},
		{"interval three arg", func() (*mesh.Mesh, error) { return mesh.IntervalMeshRange(10, -1, 1) }, 2},
		{"periodic unit interval", func() (*mesh.Mesh, error) { return mesh.PeriodicUnitIntervalMesh(3) }, 1},
		{"periodic interval", func() (*mesh.Mesh, error) { return mesh.PeriodicIntervalMesh(3, 5.0) }, 5},
		{"unit square", func() (*mesh.Mesh, error) { return mesh.UnitSquareMesh(3, 3) }, 1},
		{"unit square crossed", func() (*mesh.Mesh, error) {
			return mesh.UnitSquareMesh(3, 3, mesh.WithDiagonal(mesh.DiagonalCrossed))
		}, 1},
		{"unit square quads", func() (*mesh.Mesh, error) {
			return mesh.UnitSquareMesh(3, 3, mesh.WithQuadrilateral(true))
		}, 1},
		{"rectangle", func() (*mesh.Mesh, error) { return mesh.RectangleMesh(3, 3, 10, 2) }, 20},
		{"periodic rectangle", func() (*mesh.Mesh, error) { return mesh.PeriodicRectangleMesh(4, 3, 2, 3) }, 6},
		{"periodic 10x1", func() (*mesh.Mesh, error) { return mesh.PeriodicRectangleMesh(10, 1, 1, 1) }, 1},
		{"unit cube", func() (*mesh.Mesh, error) { return mesh.UnitCubeMesh(3, 3, 3) }, 1},
		{"box", func() (*mesh.Mesh, error) { return mesh.BoxMesh(3, 3, 3, 1, 2, 3) }, 6},
		{"unit triangle", func() (*mesh.Mesh, error) { return mesh.UnitTriangleMesh() }, 0.5},
		{"unit tetrahedron", func() (*mesh.Mesh, error) { return mesh.UnitTetrahedronMesh() }, 0.5 / 3},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m, err := tt.build()
			require.NoError(t, err)
			got, err := IntegrateOne(m)
			require.NoError(t, err)
			assert.InDelta(t, tt.want, got, 1e-3)
		})
	}
}

func TestIntegrateOneUnitCircle(t *testing.T) {
	m, err := mesh.UnitCircleMesh(4)
	if errors.Is(err, mesh.ErrBackendUnavailable) {
		t.Skip("triangulation backend not compiled in")
	}
	require.NoError(t, err)
	got, err := IntegrateOne(m)
	require.NoError(t, err)
	assert.InDelta(t, math.Pi*0.5*0.5, got, 0.02)
}

func TestIntegrateOneSphere(t *testing.T) {
	sphereArea := 4 * math.Pi
	coarse, err := mesh.UnitIcosahedralSphereMesh(1, 1)
	require.NoError(t, err)
	curved, err := mesh.UnitIcosahedralSphereMesh(1, 2)
	require.NoError(t, err)
	fine, err := mesh.UnitIcosahedralSphereMesh(3, 1)
	require.NoError(t, err)

	aCoarse, err := IntegrateOne(coarse)
	require.NoError(t, err)
	aCurved, err := IntegrateOne(curved)
	require.NoError(t, err)
	aFine, err := IntegrateOne(fine)
	require.NoError(t, err)

	// Flat facets underestimate the area
	assert.Less(t, aCoarse, sphereArea)
	assert.Less(t, math.Abs(aCurved-sphereArea), math.Abs(aCoarse-sphereArea))
	assert.InEpsilon(t, sphereArea, aFine, 0.02)

	cubed, err := mesh.CubedSphereMesh(2, 3, 2)
	require.NoError(t, err)
	aCubed, err := IntegrateOne(cubed)
	require.NoError(t, err)
	assert.InEpsilon(t, 4*math.Pi*4, aCubed, 0.02)
}

func sphereCoordinateNorms(t *testing.T, m *mesh.Mesh, radius float64) {
	t.Helper()
	coords, err := Coordinates(m)
	require.NoError(t, err)
	assert.Equal(t, m.CoordinateDegree, coords.Space.Degree)
	for _, x := range coords.Dat() {
		assert.InDelta(t, radius, math.Sqrt(x[0]*x[0]+x[1]*x[1]+x[2]*x[2]), 1e-12)
	}
}

func TestBendySphereCoordinates(t *testing.T) {
	for degree := 1; degree <= 3; degree++ {
		t.Run(fmt.Sprintf("degree=%d", degree), func(t *testing.T) {
			icos, err := mesh.IcosahedralSphereMesh(5.0, 1, degree)
			require.NoError(t, err)
			sphereCoordinateNorms(t, icos, 5)

			icosUnit, err := mesh.UnitIcosahedralSphereMesh(1, degree)
			require.NoError(t, err)
			sphereCoordinateNorms(t, icosUnit, 1)

			cube, err := mesh.CubedSphereMesh(5.0, 1, degree)
			require.NoError(t, err)
			sphereCoordinateNorms(t, cube, 5)

			cubeUnit, err := mesh.UnitCubedSphereMesh(1, degree)
			require.NoError(t, err)
			sphereCoordinateNorms(t, cubeUnit, 1)
		})
	}
}

func TestCoordinatesPeriodic(t *testing.T) {
	m, err := mesh.PeriodicIntervalMesh(4, 2)
	require.NoError(t, err)
	coords, err := Coordinates(m)
	require.NoError(t, err)
	assert.Equal(t, DG, coords.Space.Family)
	var maxX float64
	for _, x := range coords.Dat() {
		maxX = max(maxX, x[0])
	}
	assert.Equal(t, 2.0, maxX)
}

func TestOneElementMeshProjection(t *testing.T) {
	var (
		ctx = context.Background()
	)
	m, err := mesh.PeriodicRectangleMesh(10, 1, 1.0, 1.0)
	require.NoError(t, err)
	V, err := NewFunctionSpace(m, CG, 1)
	require.NoError(t, err)
	Vdg, err := NewFunctionSpace(m, DG, 1)
	require.NoError(t, err)
	r := NewFunction(Vdg, "r")
	u := NewFunction(V, "u")

	// A doubly periodic function interpolated into DG comes back unchanged
	// when projected into CG
	require.NoError(t, r.Interpolate(func(x []float64) float64 { return math.Sin(2 * math.Pi * x[0]) }))
	require.NoError(t, u.Project(ctx, r))
	e, err := SquaredDifference(ctx, u, r)
	require.NoError(t, err)
	assert.Less(t, math.Abs(e), 1.0e-4)

	// y is averaged away, the single cell across y identifies top and bottom
	require.NoError(t, r.Interpolate(func(x []float64) float64 { return x[1] }))
	require.NoError(t, u.Project(ctx, r))
	half := NewFunction(V, "half").Assign(0.5)
	e, err = SquaredDifference(ctx, u, half)
	require.NoError(t, err)
	assert.Less(t, math.Abs(e), 1.0e-4)

	// x jumps across the periodic seam and cannot be represented
	require.NoError(t, r.Interpolate(func(x []float64) float64 { return x[0] }))
	require.NoError(t, u.Project(ctx, r))
	e, err = SquaredDifference(ctx, u, r)
	require.NoError(t, err)
	assert.Greater(t, math.Abs(e), 1.0e-2)
}

func TestProjectReproducesSpaceMembers(t *testing.T) {
	ctx := context.Background()
	m, err := mesh.UnitSquareMesh(4, 3)
	require.NoError(t, err)
	V2, err := NewFunctionSpace(m, CG, 2)
	require.NoError(t, err)
	src := NewFunction(V2, "src")
	require.NoError(t, src.Interpolate(func(x []float64) float64 { return x[0]*x[1] + x[1]*x[1] - 3 }))

	u := NewFunction(V2, "u")
	require.NoError(t, u.Project(ctx, src))
	assert.InDeltaSlice(t, src.Data(), u.Data(), 1e-8)

	// Integral of x y + y^2 - 3 over the unit square
	got, err := Integrate(ctx, u)
	require.NoError(t, err)
	assert.InDelta(t, 0.25+1./3-3, got, 1e-10)
}

func TestAssembleCoordinates(t *testing.T) {
	ctx := context.Background()
	m, err := mesh.BoxMesh(2, 2, 2, 1, 2, 3)
	require.NoError(t, err)
	// First moments of the box: volume times centroid
	for d, want := range []float64{6 * 0.5, 6 * 1, 6 * 1.5} {
		got, err := Assemble(ctx, m, 1, func(q *QuadraturePoint) float64 { return q.X[d] })
		require.NoError(t, err)
		assert.InDelta(t, want, got, 1e-12)
	}

	// Mixed moments on the reference simplices
	tri, err := mesh.UnitTriangleMesh()
	require.NoError(t, err)
	got, err := Assemble(ctx, tri, 2, func(q *QuadraturePoint) float64 { return q.X[0] * q.X[1] })
	require.NoError(t, err)
	assert.InDelta(t, 1./24, got, 1e-14)

	tet, err := mesh.UnitTetrahedronMesh()
	require.NoError(t, err)
	got, err = Assemble(ctx, tet, 3, func(q *QuadraturePoint) float64 { return q.X[0] * q.X[1] * q.X[2] })
	require.NoError(t, err)
	assert.InDelta(t, 1./720, got, 1e-14)
}

func TestAssembleCells(t *testing.T) {
	ctx := context.Background()
	m, err := mesh.UnitSquareMesh(2, 2)
	require.NoError(t, err)
	one := func(*QuadraturePoint) float64 { return 1 }

	got, err := AssembleCells(ctx, m, []int{0, 1}, 0, one)
	require.NoError(t, err)
	assert.InDelta(t, 0.25, got, 1e-14)

	got, err = AssembleCells(ctx, m, nil, 0, one)
	require.NoError(t, err)
	assert.Zero(t, got)

	_, err = AssembleCells(ctx, m, []int{99}, 0, one)
	assert.ErrorIs(t, err, mesh.ErrInvalidArgument)
}

func TestAssembleCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	m, err := mesh.UnitCubeMesh(2, 2, 2)
	require.NoError(t, err)
	_, err = Assemble(ctx, m, 1, func(*QuadraturePoint) float64 { return 1 })
	assert.ErrorIs(t, err, context.Canceled)
}

func TestVectorInterpolation(t *testing.T) {
	m, err := mesh.UnitSquareMesh(2, 2)
	require.NoError(t, err)
	W, err := NewVectorFunctionSpace(m, CG, 1)
	require.NoError(t, err)
	f := NewFunction(W, "f")
	require.NoError(t, f.InterpolateVector(func(x []float64) []float64 { return []float64{x[1], -x[0]} }))
	got, err := Assemble(context.Background(), m, 2, func(q *QuadraturePoint) float64 {
		v := q.EvalVector(f)
		return v[0]*v[0] + v[1]*v[1]
	})
	require.NoError(t, err)
	assert.InDelta(t, 2./3, got, 1e-12)

	assert.ErrorIs(t, f.InterpolateVector(func([]float64) []float64 { return []float64{1} }), ErrIncompatible)
	assert.ErrorIs(t, f.Interpolate(Constant(1)), ErrIncompatible)
}
