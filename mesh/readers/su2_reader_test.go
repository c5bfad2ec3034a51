package readers

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/notargets/femesh/mesh"
)

func createTempSU2File(t *testing.T, content string) string {
	t.Helper()
	tmpFile := filepath.Join(t.TempDir(), "test.su2")
	require.NoError(t, os.WriteFile(tmpFile, []byte(content), 0644))
	return tmpFile
}

func TestReadSU2UnitSquare(t *testing.T) {
	m, err := ReadMeshFile(filepath.Join("testdata", "unit_square.su2"), mesh.WithReorder(false))
	require.NoError(t, err)
	assert.Equal(t, "unit_square.su2", m.Name)
	assert.Equal(t, mesh.Triangle, m.CellType)
	assert.Equal(t, 2, m.GeometricDimension)
	assert.Equal(t, 4, m.NumElements)
	assert.Equal(t, 5, m.NumVertices)
	assert.Equal(t, []int{0, 0, 0, 0}, m.CellTags)
	assert.Len(t, m.ExteriorFacets(), 4)
	assert.Equal(t, []float64{0.5, 0.5}, m.Vertices[4])
}

func TestReadSU2Tetrahedron(t *testing.T) {
	content := `NDIME= 3
NPOIN= 4 4
0 0 0
1 0 0
0 1 0
0 0 1
NELEM= 1
10 0 1 2 3 0
`
	m, err := ReadSU2(createTempSU2File(t, content))
	require.NoError(t, err)
	assert.Equal(t, mesh.Tetrahedron, m.CellType)
	assert.Equal(t, 3, m.GeometricDimension)
	assert.Len(t, m.ExteriorFacets(), 4)
}

func TestReadSU2Errors(t *testing.T) {
	tests := []struct {
		name    string
		content string
		want    error
	}{
		{"missing NDIME", "NPOIN= 1\n0 0\n", mesh.ErrInvalidMesh},
		{"one dimensional", "NDIME= 1\n", ErrUnsupportedFormat},
		{"missing NELEM", "NDIME= 2\nNPOIN= 1\n0 0\n", mesh.ErrInvalidMesh},
		{"missing NPOIN", "NDIME= 2\nNELEM= 1\n5 0 1 2\n", mesh.ErrInvalidMesh},
		{"truncated points", "NDIME= 2\nNPOIN= 3\n0 0\n", mesh.ErrInvalidMesh},
		{"bad coordinate", "NDIME= 2\nNPOIN= 1\nx 0\n", mesh.ErrInvalidMesh},
		{"unknown element", "NDIME= 2\nNPOIN= 3\n0 0\n1 0\n0 1\nNELEM= 1\n99 0 1 2\n", mesh.ErrInvalidMesh},
		{"short element", "NDIME= 2\nNPOIN= 3\n0 0\n1 0\n0 1\nNELEM= 1\n5 0 1\n", mesh.ErrInvalidMesh},
		{"unknown node", "NDIME= 2\nNPOIN= 3\n0 0\n1 0\n0 1\nNELEM= 1\n5 0 1 7\n", mesh.ErrInvalidMesh},
		{"orphan point", "NDIME= 2\nNPOIN= 4\n0 0\n1 0\n0 1\n5 5\nNELEM= 1\n5 0 1 2\n", mesh.ErrInvalidMesh},
		{"hexahedra", "NDIME= 3\nNPOIN= 8\n0 0 0\n1 0 0\n1 1 0\n0 1 0\n0 0 1\n1 0 1\n1 1 1\n0 1 1\nNELEM= 1\n12 0 1 2 3 4 5 6 7\n",
			ErrUnsupportedFormat},
		{"bad marker", "NDIME= 2\nNPOIN= 3\n0 0\n1 0\n0 1\nNELEM= 1\n5 0 1 2\nNMARK= 1\nMARKER_ELEMS= 1\n", mesh.ErrInvalidMesh},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ReadSU2(createTempSU2File(t, tt.content))
			require.Error(t, err)
			assert.ErrorIs(t, err, tt.want)
		})
	}
}
