// Package readers loads meshes from files. Every reader hands the file
// content to mesh.New, so a file whose points do not all lie in the closure
// of some cell is rejected with mesh.ErrInvalidMesh.
package readers

import (
	"fmt"
	"path/filepath"
	"strings"

	"github.com/notargets/femesh/mesh"
)

// ReadMeshFile reads a mesh file based on extension
func ReadMeshFile(filename string, opts ...mesh.Option) (*mesh.Mesh, error) {
	ext := strings.ToLower(filepath.Ext(filename))

	switch ext {
	case ".msh":
		return ReadGmshAuto(filename, opts...)
	case ".su2":
		return ReadSU2(filename, opts...)
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnsupportedFormat, ext)
	}
}
