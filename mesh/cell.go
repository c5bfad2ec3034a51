package mesh

import "fmt"

// CellType represents the supported reference cells
type CellType int

const (
	Interval CellType = iota
	Triangle
	Quadrilateral
	Tetrahedron
)

func (c CellType) String() string {
	switch c {
	case Interval:
		return "Interval"
	case Triangle:
		return "Triangle"
	case Quadrilateral:
		return "Quadrilateral"
	case Tetrahedron:
		return "Tetrahedron"
	}
	return fmt.Sprintf("CellType(%d)", int(c))
}

// Dimension is the topological dimension of the cell
func (c CellType) Dimension() int {
	switch c {
	case Interval:
		return 1
	case Triangle, Quadrilateral:
		return 2
	case Tetrahedron:
		return 3
	}
	return -1
}

// NumVertices is the number of vertices of the cell
func (c CellType) NumVertices() int {
	return len(c.ReferenceVertices())
}

// IsSimplex reports whether the cell is an interval, triangle or tetrahedron
func (c CellType) IsSimplex() bool {
	return c != Quadrilateral
}

// ReferenceVertices returns the vertex coordinates of the reference cell.
// Simplices use the unit simplex, the quadrilateral is [0,1]^2 with
// counter clockwise vertex order.
func (c CellType) ReferenceVertices() [][]float64 {
	switch c {
	case Interval:
		return [][]float64{{0}, {1}}
	case Triangle:
		return [][]float64{{0, 0}, {1, 0}, {0, 1}}
	case Quadrilateral:
		return [][]float64{{0, 0}, {1, 0}, {1, 1}, {0, 1}}
	case Tetrahedron:
		return [][]float64{{0, 0, 0}, {1, 0, 0}, {0, 1, 0}, {0, 0, 1}}
	}
	return nil
}

// LocalFacets returns the local vertex indices of each facet. For simplices
// facet i is opposite vertex i.
func (c CellType) LocalFacets() [][]int {
	switch c {
	case Interval:
		return [][]int{{1}, {0}}
	case Triangle:
		return [][]int{{1, 2}, {0, 2}, {0, 1}}
	case Quadrilateral:
		return [][]int{{0, 1}, {1, 2}, {2, 3}, {3, 0}}
	case Tetrahedron:
		return [][]int{{1, 2, 3}, {0, 2, 3}, {0, 1, 3}, {0, 1, 2}}
	}
	return nil
}

// ReferenceMeasure is the length, area or volume of the reference cell
func (c CellType) ReferenceMeasure() float64 {
	switch c {
	case Interval, Quadrilateral:
		return 1
	case Triangle:
		return 0.5
	case Tetrahedron:
		return 1. / 6.
	}
	return 0
}

// FlatShape evaluates the multilinear vertex shape functions of the cell at
// reference point ref: barycentric coordinates for simplices, bilinear
// weights for the quadrilateral.
func (c CellType) FlatShape(ref []float64) (N []float64) {
	switch c {
	case Quadrilateral:
		x, y := ref[0], ref[1]
		N = []float64{(1 - x) * (1 - y), x * (1 - y), x * y, (1 - x) * y}
	default:
		N = make([]float64, len(ref)+1)
		N[0] = 1
		for i, r := range ref {
			N[i+1] = r
			N[0] -= r
		}
	}
	return
}
