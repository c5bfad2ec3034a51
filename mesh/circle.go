package mesh

import (
	"fmt"
	"math"
)

// delaunayBackend triangulates a point cloud, returning vertex index
// triples. It is nil unless a triangulation backend was compiled in.
var delaunayBackend func(pts [][2]float64) [][3]int32

// HaveCircleBackend reports whether UnitCircleMesh can build meshes
func HaveCircleBackend() bool {
	return delaunayBackend != nil
}

// UnitCircleMesh triangulates the disc of radius 0.5 centred at the origin.
// Points are laid out on resolution concentric rings, ring j holding 6j
// points, and handed to the Delaunay backend. Without a backend the
// constructor fails with ErrBackendUnavailable.
func UnitCircleMesh(resolution int, opts ...Option) (*Mesh, error) {
	if err := checkCounts(resolution); err != nil {
		return nil, err
	}
	if delaunayBackend == nil {
		return nil, fmt.Errorf("%w: UnitCircleMesh needs the triangle backend (build with -tags triangle)",
			ErrBackendUnavailable)
	}
	const radius = 0.5
	pts := [][2]float64{{0, 0}}
	for j := 1; j <= resolution; j++ {
		var (
			r  = radius * float64(j) / float64(resolution)
			np = 6 * j
		)
		for i := 0; i < np; i++ {
			theta := 2 * math.Pi * float64(i) / float64(np)
			pts = append(pts, [2]float64{r * math.Cos(theta), r * math.Sin(theta)})
		}
	}
	tris := delaunayBackend(pts)
	if len(tris) == 0 {
		return nil, fmt.Errorf("%w: triangulation of %d points produced no cells", ErrInvalidMesh, len(pts))
	}
	vertices := make([][]float64, len(pts))
	for i, p := range pts {
		vertices[i] = []float64{p[0], p[1]}
	}
	cells := make([][]int, len(tris))
	for k, t := range tris {
		cells[k] = []int{int(t[0]), int(t[1]), int(t[2])}
	}
	o := collectOptions(opts)
	if o.name == "" {
		o.name = fmt.Sprintf("unit circle resolution=%d", resolution)
	}
	return newMesh(Triangle, vertices, cells, o)
}
