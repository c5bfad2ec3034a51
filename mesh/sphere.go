package mesh

import (
	"fmt"
	"math"
)

// MaxCoordinateDegree bounds the degree of curved coordinate fields
const MaxCoordinateDegree = 4

func checkSphere(radius float64, refinement, degree int) error {
	if err := checkLengths(radius); err != nil {
		return err
	}
	if refinement < 0 {
		return fmt.Errorf("%w: refinement level must be non negative, got %d", ErrInvalidArgument, refinement)
	}
	if degree < 1 || degree > MaxCoordinateDegree {
		return fmt.Errorf("%w: coordinate degree must be in [1,%d], got %d",
			ErrInvalidArgument, MaxCoordinateDegree, degree)
	}
	return nil
}

func projectToSphere(radius float64) func(x []float64) []float64 {
	return func(x []float64) []float64 {
		var r2 float64
		for _, xi := range x {
			r2 += xi * xi
		}
		scale := radius / math.Sqrt(r2)
		out := make([]float64, len(x))
		for i, xi := range x {
			out[i] = xi * scale
		}
		return out
	}
}

// edgeMidpoints hands out one new vertex per refined edge
type edgeMidpoints struct {
	vertices *[][]float64
	project  func(x []float64) []float64
	ids      map[[2]int]int
}

func (e *edgeMidpoints) get(a, b int) int {
	key := [2]int{min(a, b), max(a, b)}
	if id, ok := e.ids[key]; ok {
		return id
	}
	verts := *e.vertices
	xa, xb := verts[a], verts[b]
	mid := make([]float64, len(xa))
	for i := range mid {
		mid[i] = 0.5 * (xa[i] + xb[i])
	}
	id := len(verts)
	*e.vertices = append(verts, e.project(mid))
	e.ids[key] = id
	return id
}

// UnitIcosahedralSphereMesh is IcosahedralSphereMesh with radius one
func UnitIcosahedralSphereMesh(refinement, degree int, opts ...Option) (*Mesh, error) {
	return IcosahedralSphereMesh(1, refinement, degree, opts...)
}

// IcosahedralSphereMesh builds a triangulated sphere by refining an
// icosahedron, splitting every triangle into four per level. Vertices of
// each level are pushed onto the sphere; a coordinate field of degree > 1
// places its higher order nodes on the sphere as well.
func IcosahedralSphereMesh(radius float64, refinement, degree int, opts ...Option) (*Mesh, error) {
	if err := checkSphere(radius, refinement, degree); err != nil {
		return nil, err
	}
	var (
		phi     = (1 + math.Sqrt(5)) / 2
		project = projectToSphere(radius)
	)
	vertices := [][]float64{
		{-1, phi, 0}, {1, phi, 0}, {-1, -phi, 0}, {1, -phi, 0},
		{0, -1, phi}, {0, 1, phi}, {0, -1, -phi}, {0, 1, -phi},
		{phi, 0, -1}, {phi, 0, 1}, {-phi, 0, -1}, {-phi, 0, 1},
	}
	for i := range vertices {
		vertices[i] = project(vertices[i])
	}
	cells := [][]int{
		{0, 11, 5}, {0, 5, 1}, {0, 1, 7}, {0, 7, 10}, {0, 10, 11},
		{1, 5, 9}, {5, 11, 4}, {11, 10, 2}, {10, 7, 6}, {7, 1, 8},
		{3, 9, 4}, {3, 4, 2}, {3, 2, 6}, {3, 6, 8}, {3, 8, 9},
		{4, 9, 5}, {2, 4, 11}, {6, 2, 10}, {8, 6, 7}, {9, 8, 1},
	}
	for level := 0; level < refinement; level++ {
		mids := &edgeMidpoints{vertices: &vertices, project: project, ids: make(map[[2]int]int)}
		refined := make([][]int, 0, 4*len(cells))
		for _, c := range cells {
			a, b, d := c[0], c[1], c[2]
			ab, bd, da := mids.get(a, b), mids.get(b, d), mids.get(d, a)
			refined = append(refined,
				[]int{a, ab, da}, []int{ab, b, bd}, []int{da, bd, d}, []int{ab, bd, da})
		}
		cells = refined
	}
	o := collectOptions(opts)
	if o.name == "" {
		o.name = fmt.Sprintf("icosahedral sphere r=%g refinement=%d degree=%d", radius, refinement, degree)
	}
	m, err := newMesh(Triangle, vertices, cells, o)
	if err != nil {
		return nil, err
	}
	m.CoordinateDegree = degree
	m.NodeTransform = project
	return m, nil
}

// UnitCubedSphereMesh is CubedSphereMesh with radius one
func UnitCubedSphereMesh(refinement, degree int, opts ...Option) (*Mesh, error) {
	return CubedSphereMesh(1, refinement, degree, opts...)
}

// CubedSphereMesh builds a quadrilateral sphere by refining the six faces of
// a cube, splitting every quadrilateral into four per level.
func CubedSphereMesh(radius float64, refinement, degree int, opts ...Option) (*Mesh, error) {
	if err := checkSphere(radius, refinement, degree); err != nil {
		return nil, err
	}
	project := projectToSphere(radius)
	vertices := make([][]float64, 8)
	for v := range vertices {
		vertices[v] = project([]float64{
			float64(2*(v&1) - 1),
			float64(2*((v>>1)&1) - 1),
			float64(2*((v>>2)&1) - 1),
		})
	}
	cells := [][]int{
		{0, 4, 6, 2}, {1, 3, 7, 5},
		{0, 1, 5, 4}, {2, 6, 7, 3},
		{0, 2, 3, 1}, {4, 5, 7, 6},
	}
	for level := 0; level < refinement; level++ {
		mids := &edgeMidpoints{vertices: &vertices, project: project, ids: make(map[[2]int]int)}
		refined := make([][]int, 0, 4*len(cells))
		for _, c := range cells {
			a, b, cc, d := c[0], c[1], c[2], c[3]
			ab, bc, cd, da := mids.get(a, b), mids.get(b, cc), mids.get(cc, d), mids.get(d, a)
			center := make([]float64, 3)
			for _, v := range c {
				for i := range center {
					center[i] += 0.25 * vertices[v][i]
				}
			}
			ctr := len(vertices)
			vertices = append(vertices, project(center))
			refined = append(refined,
				[]int{a, ab, ctr, da}, []int{ab, b, bc, ctr},
				[]int{ctr, bc, cc, cd}, []int{da, ctr, cd, d})
		}
		cells = refined
	}
	o := collectOptions(opts)
	if o.name == "" {
		o.name = fmt.Sprintf("cubed sphere r=%g refinement=%d degree=%d", radius, refinement, degree)
	}
	m, err := newMesh(Quadrilateral, vertices, cells, o)
	if err != nil {
		return nil, err
	}
	m.CoordinateDegree = degree
	m.NodeTransform = project
	return m, nil
}
