package mesh

import (
	"fmt"
)

// PeriodicUnitIntervalMesh builds n cells on the circle of length 1
func PeriodicUnitIntervalMesh(n int, opts ...Option) (*Mesh, error) {
	return PeriodicIntervalMesh(n, 1, opts...)
}

// PeriodicIntervalMesh builds n cells on [0, length] with the end points
// identified. The coordinate field is discontinuous so that the last cell
// keeps its true extent. At least three cells are needed for the two
// vertices of every cell to be distinct and not shared by both neighbors.
func PeriodicIntervalMesh(n int, length float64, opts ...Option) (*Mesh, error) {
	if err := checkCounts(n); err != nil {
		return nil, err
	}
	if n < 3 {
		return nil, fmt.Errorf("%w: periodic interval meshes need at least 3 cells, got %d",
			ErrInvalidArgument, n)
	}
	if err := checkLengths(length); err != nil {
		return nil, err
	}
	var (
		h          = length / float64(n)
		vertices   = make([][]float64, n)
		cells      = make([][]int, n)
		cellCoords = make([][][]float64, n)
	)
	for i := range vertices {
		vertices[i] = []float64{float64(i) * h}
	}
	for i := range cells {
		cells[i] = []int{i, (i + 1) % n}
		right := float64(i+1) * h
		if i == n-1 {
			right = length
		}
		cellCoords[i] = [][]float64{{float64(i) * h}, {right}}
	}
	o := collectOptions(opts)
	if o.name == "" {
		o.name = fmt.Sprintf("periodic interval [0,%g] n=%d", length, n)
	}
	m, err := newMesh(Interval, vertices, cells, o)
	if err != nil {
		return nil, err
	}
	m.CellVertexCoords = cellCoords
	return m, nil
}

// PeriodicUnitSquareMesh builds a doubly periodic nx by ny mesh of [0,1]^2
func PeriodicUnitSquareMesh(nx, ny int, opts ...Option) (*Mesh, error) {
	return PeriodicRectangleMesh(nx, ny, 1, 1, opts...)
}

// PeriodicSquareMesh builds a doubly periodic nx by ny mesh of [0,L]^2
func PeriodicSquareMesh(nx, ny int, L float64, opts ...Option) (*Mesh, error) {
	return PeriodicRectangleMesh(nx, ny, L, L, opts...)
}

// PeriodicRectangleMesh builds a mesh of [0,Lx]x[0,Ly] periodic in both
// directions. A direction with a single cell yields cells whose vertices
// are identified with one another; such meshes support only degree one
// continuous spaces.
func PeriodicRectangleMesh(nx, ny int, Lx, Ly float64, opts ...Option) (*Mesh, error) {
	if err := checkCounts(nx, ny); err != nil {
		return nil, err
	}
	if err := checkLengths(Lx, Ly); err != nil {
		return nil, err
	}
	o := collectOptions(opts)
	if o.name == "" {
		o.name = fmt.Sprintf("periodic rectangle %gx%g (%dx%d)", Lx, Ly, nx, ny)
	}
	var (
		periodicID = func(i, j int) int { return i%nx + (j%ny)*nx }
		gridID     = func(i, j int) int { return i + j*(nx+1) }
		gridPoint  = func(gi, gj float64) []float64 {
			return []float64{Lx * gi / float64(nx), Ly * gj / float64(ny)}
		}
	)
	vertices := make([][]float64, 0, nx*ny)
	for j := 0; j < ny; j++ {
		for i := 0; i < nx; i++ {
			vertices = append(vertices, gridPoint(float64(i), float64(j)))
		}
	}
	cellType, cells, extra, err := splitStructured(nx, ny, o, func(i, j int) [4]int {
		return [4]int{periodicID(i, j), periodicID(i+1, j), periodicID(i+1, j+1), periodicID(i, j+1)}
	}, len(vertices))
	if err != nil {
		return nil, err
	}
	// The same split over the unwrapped grid supplies the cell geometry
	nGrid := (nx + 1) * (ny + 1)
	_, gridCells, _, err := splitStructured(nx, ny, o, func(i, j int) [4]int {
		return [4]int{gridID(i, j), gridID(i+1, j), gridID(i+1, j+1), gridID(i, j+1)}
	}, nGrid)
	if err != nil {
		return nil, err
	}
	for _, c := range extra {
		vertices = append(vertices, gridPoint(c[0], c[1]))
	}
	cellCoords := make([][][]float64, len(gridCells))
	for k, gc := range gridCells {
		cellCoords[k] = make([][]float64, len(gc))
		for i, g := range gc {
			if g < nGrid {
				cellCoords[k][i] = gridPoint(float64(g%(nx+1)), float64(g/(nx+1)))
			} else {
				c := extra[g-nGrid]
				cellCoords[k][i] = gridPoint(c[0], c[1])
			}
		}
	}
	m, err := newMesh(cellType, vertices, cells, o)
	if err != nil {
		return nil, err
	}
	m.CellVertexCoords = cellCoords
	return m, nil
}
