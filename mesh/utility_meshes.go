package mesh

import (
	"fmt"
)

func checkCounts(counts ...int) error {
	for _, n := range counts {
		if n <= 0 {
			return fmt.Errorf("%w: number of cells must be positive, got %d", ErrInvalidArgument, n)
		}
	}
	return nil
}

func checkLengths(lengths ...float64) error {
	for _, L := range lengths {
		if !(L > 0) {
			return fmt.Errorf("%w: domain length must be positive, got %g", ErrInvalidGeometry, L)
		}
	}
	return nil
}

// UnitIntervalMesh builds n equal cells on [0, 1]
func UnitIntervalMesh(n int, opts ...Option) (*Mesh, error) {
	return IntervalMeshRange(n, 0, 1, opts...)
}

// IntervalMesh builds n equal cells on [0, length]
func IntervalMesh(n int, length float64, opts ...Option) (*Mesh, error) {
	return IntervalMeshRange(n, 0, length, opts...)
}

// IntervalMeshRange builds n equal cells on [left, right]. A right end that
// does not lie strictly right of the left end is an ErrInvalidGeometry.
func IntervalMeshRange(n int, left, right float64, opts ...Option) (*Mesh, error) {
	if err := checkCounts(n); err != nil {
		return nil, err
	}
	if !(right > left) {
		return nil, fmt.Errorf("%w: interval [%g, %g] has non positive length %g",
			ErrInvalidGeometry, left, right, right-left)
	}
	var (
		h        = (right - left) / float64(n)
		vertices = make([][]float64, n+1)
		cells    = make([][]int, n)
	)
	for i := range vertices {
		vertices[i] = []float64{left + float64(i)*h}
	}
	vertices[n][0] = right
	for i := range cells {
		cells[i] = []int{i, i + 1}
	}
	o := collectOptions(opts)
	if o.name == "" {
		o.name = fmt.Sprintf("interval[%g,%g] n=%d", left, right, n)
	}
	return newMesh(Interval, vertices, cells, o)
}

// UnitSquareMesh builds an nx by ny structured mesh of [0,1]^2
func UnitSquareMesh(nx, ny int, opts ...Option) (*Mesh, error) {
	return RectangleMesh(nx, ny, 1, 1, opts...)
}

// SquareMesh builds an nx by ny structured mesh of [0,L]^2
func SquareMesh(nx, ny int, L float64, opts ...Option) (*Mesh, error) {
	return RectangleMesh(nx, ny, L, L, opts...)
}

// RectangleMesh builds an nx by ny structured mesh of [0,Lx]x[0,Ly]. Each
// rectangle becomes a quadrilateral or is split into triangles according to
// the diagonal option.
func RectangleMesh(nx, ny int, Lx, Ly float64, opts ...Option) (*Mesh, error) {
	if err := checkCounts(nx, ny); err != nil {
		return nil, err
	}
	if err := checkLengths(Lx, Ly); err != nil {
		return nil, err
	}
	o := collectOptions(opts)
	if o.name == "" {
		o.name = fmt.Sprintf("rectangle %gx%g (%dx%d)", Lx, Ly, nx, ny)
	}
	var (
		vid = func(i, j int) int { return i + j*(nx+1) }
	)
	vertices := make([][]float64, 0, (nx+1)*(ny+1))
	for j := 0; j <= ny; j++ {
		for i := 0; i <= nx; i++ {
			vertices = append(vertices, []float64{Lx * float64(i) / float64(nx), Ly * float64(j) / float64(ny)})
		}
	}
	cellType, cells, extra, err := splitStructured(nx, ny, o, func(i, j int) [4]int {
		return [4]int{vid(i, j), vid(i+1, j), vid(i+1, j+1), vid(i, j+1)}
	}, len(vertices))
	if err != nil {
		return nil, err
	}
	for _, c := range extra {
		vertices = append(vertices, []float64{Lx * c[0] / float64(nx), Ly * c[1] / float64(ny)})
	}
	return newMesh(cellType, vertices, cells, o)
}

// splitStructured turns the structured grid quads into cells. corners returns
// the counter clockwise vertex ids of quad (i,j). The crossed diagonal adds a
// vertex at every quad center, numbered from nextVertex on, and reports its
// grid coordinates in extra.
func splitStructured(nx, ny int, o *options, corners func(i, j int) [4]int,
	nextVertex int) (cellType CellType, cells [][]int, extra [][2]float64, err error) {
	if o.quadrilateral {
		cellType = Quadrilateral
	} else {
		cellType = Triangle
	}
	for j := 0; j < ny; j++ {
		for i := 0; i < nx; i++ {
			c := corners(i, j)
			v00, v10, v11, v01 := c[0], c[1], c[2], c[3]
			if o.quadrilateral {
				cells = append(cells, []int{v00, v10, v11, v01})
				continue
			}
			switch o.diagonal {
			case DiagonalLeft:
				cells = append(cells, []int{v00, v10, v01}, []int{v10, v11, v01})
			case DiagonalRight:
				cells = append(cells, []int{v00, v10, v11}, []int{v00, v11, v01})
			case DiagonalCrossed:
				mid := nextVertex + len(extra)
				extra = append(extra, [2]float64{float64(i) + 0.5, float64(j) + 0.5})
				cells = append(cells,
					[]int{v00, v10, mid}, []int{v10, v11, mid},
					[]int{v11, v01, mid}, []int{v01, v00, mid})
			default:
				err = fmt.Errorf("%w: unknown diagonal %q", ErrInvalidArgument, o.diagonal)
				return
			}
		}
	}
	return
}

// UnitCubeMesh builds an nx by ny by nz tetrahedral mesh of [0,1]^3
func UnitCubeMesh(nx, ny, nz int, opts ...Option) (*Mesh, error) {
	return BoxMesh(nx, ny, nz, 1, 1, 1, opts...)
}

// CubeMesh builds an nx by ny by nz tetrahedral mesh of [0,L]^3
func CubeMesh(nx, ny, nz int, L float64, opts ...Option) (*Mesh, error) {
	return BoxMesh(nx, ny, nz, L, L, L, opts...)
}

// BoxMesh builds a tetrahedral mesh of [0,Lx]x[0,Ly]x[0,Lz]. Every hexahedron
// is cut into six tetrahedra sharing its main diagonal, which keeps the
// facets conforming between neighbors.
func BoxMesh(nx, ny, nz int, Lx, Ly, Lz float64, opts ...Option) (*Mesh, error) {
	if err := checkCounts(nx, ny, nz); err != nil {
		return nil, err
	}
	if err := checkLengths(Lx, Ly, Lz); err != nil {
		return nil, err
	}
	o := collectOptions(opts)
	if o.name == "" {
		o.name = fmt.Sprintf("box %gx%gx%g (%dx%dx%d)", Lx, Ly, Lz, nx, ny, nz)
	}
	var (
		vid = func(i, j, k int) int { return i + j*(nx+1) + k*(nx+1)*(ny+1) }
	)
	vertices := make([][]float64, 0, (nx+1)*(ny+1)*(nz+1))
	for k := 0; k <= nz; k++ {
		for j := 0; j <= ny; j++ {
			for i := 0; i <= nx; i++ {
				vertices = append(vertices, []float64{
					Lx * float64(i) / float64(nx),
					Ly * float64(j) / float64(ny),
					Lz * float64(k) / float64(nz),
				})
			}
		}
	}
	// Monotone paths from corner 000 to corner 111
	paths := [6][3][3]int{
		{{1, 0, 0}, {1, 1, 0}, {1, 1, 1}},
		{{1, 0, 0}, {1, 0, 1}, {1, 1, 1}},
		{{0, 1, 0}, {1, 1, 0}, {1, 1, 1}},
		{{0, 1, 0}, {0, 1, 1}, {1, 1, 1}},
		{{0, 0, 1}, {1, 0, 1}, {1, 1, 1}},
		{{0, 0, 1}, {0, 1, 1}, {1, 1, 1}},
	}
	cells := make([][]int, 0, 6*nx*ny*nz)
	for k := 0; k < nz; k++ {
		for j := 0; j < ny; j++ {
			for i := 0; i < nx; i++ {
				for _, p := range paths {
					cells = append(cells, []int{
						vid(i, j, k),
						vid(i+p[0][0], j+p[0][1], k+p[0][2]),
						vid(i+p[1][0], j+p[1][1], k+p[1][2]),
						vid(i+p[2][0], j+p[2][1], k+p[2][2]),
					})
				}
			}
		}
	}
	return newMesh(Tetrahedron, vertices, cells, o)
}

// UnitTriangleMesh is the reference triangle as a one cell mesh
func UnitTriangleMesh(opts ...Option) (*Mesh, error) {
	o := collectOptions(opts)
	if o.name == "" {
		o.name = "unit triangle"
	}
	return newMesh(Triangle, Triangle.ReferenceVertices(), [][]int{{0, 1, 2}}, o)
}

// UnitTetrahedronMesh is the reference tetrahedron as a one cell mesh
func UnitTetrahedronMesh(opts ...Option) (*Mesh, error) {
	o := collectOptions(opts)
	if o.name == "" {
		o.name = "unit tetrahedron"
	}
	return newMesh(Tetrahedron, Tetrahedron.ReferenceVertices(), [][]int{{0, 1, 2, 3}}, o)
}
