//go:build triangle

package mesh

import (
	"github.com/pradeep-pyro/triangle"
)

func init() {
	delaunayBackend = triangle.Delaunay
}
