package fem

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/notargets/femesh/mesh"
)

func TestFunctionSpaceDimensions(t *testing.T) {
	square, err := mesh.UnitSquareMesh(3, 3)
	require.NoError(t, err)
	periodic, err := mesh.PeriodicRectangleMesh(4, 3, 1, 1)
	require.NoError(t, err)
	thin, err := mesh.PeriodicRectangleMesh(10, 1, 1, 1)
	require.NoError(t, err)
	quads, err := mesh.UnitSquareMesh(2, 2, mesh.WithQuadrilateral(true))
	require.NoError(t, err)
	cube, err := mesh.UnitCubeMesh(2, 2, 2)
	require.NoError(t, err)

	tests := []struct {
		name   string
		m      *mesh.Mesh
		family Family
		degree int
		nodes  int
	}{
		{"CG1 square", square, CG, 1, 16},
		{"CG2 square", square, CG, 2, 49},
		{"CG3 square", square, CG, 3, 100},
		{"DG0 square", square, DG, 0, 18},
		{"DG1 square", square, DG, 1, 54},
		{"CG1 periodic", periodic, CG, 1, 12},
		{"CG2 periodic", periodic, CG, 2, 48},
		{"CG1 periodic 10x1", thin, CG, 1, 10},
		{"DG1 periodic 10x1", thin, DG, 1, 60},
		{"Q2 square", quads, CG, 2, 25},
		{"CG2 cube", cube, CG, 2, 125},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			V, err := NewFunctionSpace(tt.m, tt.family, tt.degree)
			require.NoError(t, err)
			assert.Equal(t, tt.nodes, V.NumNodes)
			assert.Equal(t, tt.nodes, V.Dim())
			for _, nodes := range V.CellNodes {
				for _, n := range nodes {
					assert.True(t, n >= 0 && n < V.NumNodes)
				}
			}
		})
	}

	W, err := NewVectorFunctionSpace(cube, CG, 1)
	require.NoError(t, err)
	assert.Equal(t, 3, W.ValueSize)
	assert.Equal(t, 3*27, W.Dim())
}

func TestFunctionSpaceErrors(t *testing.T) {
	square, err := mesh.UnitSquareMesh(1, 1)
	require.NoError(t, err)
	_, err = NewFunctionSpace(square, CG, 0)
	assert.ErrorIs(t, err, ErrUnsupported)
	_, err = NewFunctionSpace(square, "RT", 1)
	assert.ErrorIs(t, err, ErrUnsupported)

	// Cells with identified vertices only carry linear continuous spaces
	thin, err := mesh.PeriodicRectangleMesh(10, 1, 1, 1)
	require.NoError(t, err)
	_, err = NewFunctionSpace(thin, CG, 2)
	assert.ErrorIs(t, err, ErrUnsupported)
}

func TestParseFamily(t *testing.T) {
	for s, want := range map[string]Family{"CG": CG, "lagrange": CG, "P": CG, "DG": DG, "dq": DG} {
		got, err := ParseFamily(s)
		require.NoError(t, err)
		assert.Equal(t, want, got)
	}
	_, err := ParseFamily("N1curl")
	assert.ErrorIs(t, err, ErrUnsupported)
}
