// Package fem provides Lagrange function spaces on the meshes of package
// mesh: interpolation, L2 projection and assembly of integrals.
package fem

import (
	"fmt"
	"sort"
	"strings"

	"github.com/samber/lo"
	"go.uber.org/zap"

	"github.com/notargets/femesh/mesh"
	"github.com/notargets/femesh/utils"
)

// Family selects continuous or discontinuous Lagrange elements
type Family string

const (
	CG Family = "CG"
	DG Family = "DG"
)

// ParseFamily accepts the usual spellings of the Lagrange families
func ParseFamily(s string) (Family, error) {
	switch strings.ToUpper(strings.TrimSpace(s)) {
	case "CG", "P", "LAGRANGE", "Q":
		return CG, nil
	case "DG", "DP", "DQ", "DISCONTINUOUS LAGRANGE":
		return DG, nil
	}
	return "", fmt.Errorf("%w: unknown element family %q", ErrUnsupported, s)
}

// FunctionSpace is a Lagrange space on a mesh. Scalar spaces have
// ValueSize 1, vector spaces one component per geometric dimension.
type FunctionSpace struct {
	Mesh      *mesh.Mesh
	Family    Family
	Degree    int
	ValueSize int
	Element   *Element
	CellNodes [][]int // Cell to global node map [ncells][nodes per cell]
	NumNodes  int
}

// NewFunctionSpace builds the scalar space of the family and degree on m
func NewFunctionSpace(m *mesh.Mesh, family Family, degree int) (*FunctionSpace, error) {
	return newSpace(m, family, degree, 1)
}

// NewVectorFunctionSpace builds the space with one component per geometric
// dimension
func NewVectorFunctionSpace(m *mesh.Mesh, family Family, degree int) (*FunctionSpace, error) {
	return newSpace(m, family, degree, m.GeometricDimension)
}

func newSpace(m *mesh.Mesh, family Family, degree, valueSize int) (V *FunctionSpace, err error) {
	m.Init()
	el, err := NewElement(m.CellType, degree)
	if err != nil {
		return nil, err
	}
	V = &FunctionSpace{
		Mesh:      m,
		Family:    family,
		Degree:    degree,
		ValueSize: valueSize,
		Element:   el,
		CellNodes: make([][]int, m.NumElements),
	}
	switch family {
	case DG:
		np := el.NumNodes()
		for k := range V.CellNodes {
			V.CellNodes[k] = make([]int, np)
			for i := range V.CellNodes[k] {
				V.CellNodes[k][i] = k*np + i
			}
		}
		V.NumNodes = np * m.NumElements
	case CG:
		if degree < 1 {
			return nil, fmt.Errorf("%w: continuous spaces need degree >= 1, got %d", ErrUnsupported, degree)
		}
		if err = V.numberContinuous(); err != nil {
			return nil, err
		}
	default:
		return nil, fmt.Errorf("%w: unknown element family %q", ErrUnsupported, family)
	}
	utils.Logger().Debug("function space",
		zap.String("mesh", m.Name),
		zap.String("family", string(family)),
		zap.Int("degree", degree),
		zap.Int("value_size", valueSize),
		zap.Int("nodes", V.NumNodes))
	return
}

// numberContinuous gives one global node to every set of cell nodes with
// the same weights on the same global vertices
func (V *FunctionSpace) numberContinuous() error {
	var (
		m     = V.Mesh
		el    = V.Element
		index = make(map[string]int)
	)
	for k, cell := range m.EToV {
		if V.Degree > 1 && len(lo.Uniq(cell)) != len(cell) {
			return fmt.Errorf("%w: cell %d of %s has repeated vertices %v, only degree 1 continuous spaces are supported",
				ErrUnsupported, k, m.Name, cell)
		}
		V.CellNodes[k] = make([]int, el.NumNodes())
		for i, w := range el.Weights {
			key := nodeKey(cell, w)
			id, ok := index[key]
			if !ok {
				id = len(index)
				index[key] = id
			}
			V.CellNodes[k][i] = id
		}
	}
	V.NumNodes = len(index)
	return nil
}

func nodeKey(cell []int, weights []int) string {
	pairs := make([][2]int, 0, len(weights))
	for i, w := range weights {
		if w != 0 {
			pairs = append(pairs, [2]int{cell[i], w})
		}
	}
	sort.Slice(pairs, func(i, j int) bool {
		if pairs[i][0] != pairs[j][0] {
			return pairs[i][0] < pairs[j][0]
		}
		return pairs[i][1] < pairs[j][1]
	})
	return fmt.Sprint(pairs)
}

// Dim is the number of degrees of freedom
func (V *FunctionSpace) Dim() int {
	return V.NumNodes * V.ValueSize
}

func (V *FunctionSpace) String() string {
	return fmt.Sprintf("%s%d(%s)x%d", V.Family, V.Degree, V.Mesh.Name, V.ValueSize)
}
