package mesh

import (
	"fmt"
	"sort"
	"sync"

	"go.uber.org/multierr"
	"go.uber.org/zap"
)

// maxReportedOrphans bounds how many orphan points are listed individually
// in a validation error.
const maxReportedOrphans = 10

// Face represents a facet shared by up to two cells
type Face struct {
	Vertices        []int // Sorted vertex indices
	Element         int   // Parent element
	LocalID         int   // Local face ID within element
	Neighbor        int   // Neighboring element, -1 on the boundary
	NeighborLocalID int   // Local face ID within the neighbor, -1 on the boundary
}

// IsExterior reports whether the facet lies on the domain boundary
func (f Face) IsExterior() bool {
	return f.Neighbor < 0
}

// Mesh represents a discretized domain with all connectivity
type Mesh struct {
	Name     string
	CellType CellType

	// Geometry
	GeometricDimension int
	Vertices           [][]float64 // Vertex coordinates [nvertices][gdim]
	// CellVertexCoords holds per cell vertex coordinates when the
	// coordinate field is discontinuous, as on periodic meshes. It is nil
	// when every cell takes its coordinates from Vertices.
	CellVertexCoords [][][]float64
	// CoordinateDegree is the polynomial degree of the coordinate field.
	CoordinateDegree int
	// NodeTransform, when set, maps every coordinate node after it has been
	// placed on the flat cell. Sphere meshes use it to push nodes onto the
	// sphere.
	NodeTransform func(x []float64) []float64

	// Element data
	EToV     [][]int // Element to vertex connectivity [nelems][nverts_per_elem]
	CellTags []int   // Physical group/tag for each element

	// Connectivity (built during Init)
	EToE [][]int // Element to element connectivity [nelems][nfaces_per_elem]
	EToF [][]int // Element to face connectivity [nelems][nfaces_per_elem]

	// Face data
	Faces   []Face         // All unique faces in mesh
	FaceMap map[string]int // Map from sorted vertex string to face ID

	NumElements int
	NumVertices int
	NumFaces    int

	reorder       bool
	didReordering bool
	once          sync.Once
	log           *zap.Logger
}

// New builds and validates a mesh from explicit vertex coordinates and cell
// to vertex connectivity. Connectivity is built lazily by Init.
func New(cellType CellType, vertices [][]float64, cells [][]int, opts ...Option) (*Mesh, error) {
	return newMesh(cellType, vertices, cells, collectOptions(opts))
}

func newMesh(cellType CellType, vertices [][]float64, cells [][]int, o *options) (m *Mesh, err error) {
	m = &Mesh{
		Name:             o.name,
		CellType:         cellType,
		Vertices:         vertices,
		EToV:             cells,
		CoordinateDegree: 1,
		NumElements:      len(cells),
		NumVertices:      len(vertices),
		FaceMap:          make(map[string]int),
		reorder:          o.resolveReorder(),
		log:              o.log,
	}
	if len(vertices) != 0 {
		m.GeometricDimension = len(vertices[0])
	}
	if m.Name == "" {
		m.Name = fmt.Sprintf("%s mesh", cellType)
	}
	if err = m.Validate(); err != nil {
		return nil, err
	}
	m.log.Debug("mesh created",
		zap.String("name", m.Name),
		zap.Stringer("cell", m.CellType),
		zap.Int("cells", m.NumElements),
		zap.Int("vertices", m.NumVertices),
		zap.Bool("reorder", m.reorder))
	return m, nil
}

// Validate checks the raw mesh data: cell arity, vertex ranges, geometric
// dimension and that every point lies in the closure of at least one cell.
func (m *Mesh) Validate() (err error) {
	var (
		nv     = len(m.Vertices)
		nvCell = m.CellType.NumVertices()
		tdim   = m.CellType.Dimension()
	)
	if tdim < 0 {
		return fmt.Errorf("%w: unknown cell type %v", ErrInvalidMesh, m.CellType)
	}
	if len(m.EToV) == 0 {
		return fmt.Errorf("%w: mesh has no cells", ErrInvalidMesh)
	}
	if nv == 0 {
		return fmt.Errorf("%w: mesh has no points", ErrInvalidMesh)
	}
	if m.GeometricDimension < tdim {
		return fmt.Errorf("%w: geometric dimension %d below topological dimension %d",
			ErrInvalidMesh, m.GeometricDimension, tdim)
	}
	for i, x := range m.Vertices {
		if len(x) != m.GeometricDimension {
			err = multierr.Append(err, fmt.Errorf("%w: point %d has %d coordinates, expected %d",
				ErrInvalidMesh, i, len(x), m.GeometricDimension))
		}
	}
	referenced := make([]bool, nv)
	for k, cell := range m.EToV {
		if len(cell) != nvCell {
			err = multierr.Append(err, fmt.Errorf("%w: cell %d has %d vertices, a %s has %d",
				ErrInvalidMesh, k, len(cell), m.CellType, nvCell))
			continue
		}
		for _, v := range cell {
			if v < 0 || v >= nv {
				err = multierr.Append(err, fmt.Errorf("%w: cell %d references unknown point %d",
					ErrInvalidMesh, k, v))
				continue
			}
			referenced[v] = true
		}
	}
	if m.CellVertexCoords != nil && len(m.CellVertexCoords) != len(m.EToV) {
		err = multierr.Append(err, fmt.Errorf("%w: %d cell coordinate sets for %d cells",
			ErrInvalidMesh, len(m.CellVertexCoords), len(m.EToV)))
	}
	var orphans int
	for v, ok := range referenced {
		if ok {
			continue
		}
		orphans++
		if orphans <= maxReportedOrphans {
			err = multierr.Append(err, fmt.Errorf("%w: point %d %v is not in the closure of any cell",
				ErrInvalidMesh, v, m.Vertices[v]))
		}
	}
	if orphans > maxReportedOrphans {
		err = multierr.Append(err, fmt.Errorf("%w: %d points in total are not reachable from any cell",
			ErrInvalidMesh, orphans))
	}
	return
}

// Init performs the deferred mesh setup exactly once: entity reordering when
// requested, followed by facet connectivity.
func (m *Mesh) Init() {
	m.once.Do(func() {
		if m.reorder {
			m.reorderEntities()
			m.didReordering = true
		}
		m.BuildConnectivity()
		m.log.Debug("mesh initialised",
			zap.String("name", m.Name),
			zap.Bool("reordered", m.didReordering),
			zap.Int("facets", m.NumFaces),
			zap.Int("exterior_facets", m.countExterior()))
	})
}

// DidReordering reports whether Init renumbered the mesh entities.
func (m *Mesh) DidReordering() bool {
	m.Init()
	return m.didReordering
}

// IsPeriodic reports whether the coordinate field is discontinuous.
func (m *Mesh) IsPeriodic() bool {
	return m.CellVertexCoords != nil
}

// TopologicalDimension is the dimension of the cells
func (m *Mesh) TopologicalDimension() int {
	return m.CellType.Dimension()
}

// BuildConnectivity builds element-to-element and face connectivity
func (m *Mesh) BuildConnectivity() {
	m.EToE = make([][]int, m.NumElements)
	m.EToF = make([][]int, m.NumElements)
	m.Faces = m.Faces[:0]
	m.FaceMap = make(map[string]int)
	localFacets := m.CellType.LocalFacets()

	for elemID := 0; elemID < m.NumElements; elemID++ {
		vertices := m.EToV[elemID]

		m.EToE[elemID] = make([]int, len(localFacets))
		m.EToF[elemID] = make([]int, len(localFacets))

		for localFaceID, lf := range localFacets {
			m.EToE[elemID][localFaceID] = -1

			sorted := make([]int, len(lf))
			for i, lv := range lf {
				sorted[i] = vertices[lv]
			}
			sort.Ints(sorted)
			key := fmt.Sprintf("%v", sorted)

			if faceID, exists := m.FaceMap[key]; exists {
				face := &m.Faces[faceID]
				// Facets of degenerate periodic cells can be met more than
				// twice, only the first pairing is recorded
				if face.Neighbor < 0 {
					face.Neighbor = elemID
					face.NeighborLocalID = localFaceID
					m.EToE[face.Element][face.LocalID] = elemID
				}
				m.EToE[elemID][localFaceID] = face.Element
				m.EToF[elemID][localFaceID] = faceID
			} else {
				faceID := len(m.Faces)
				m.Faces = append(m.Faces, Face{
					Vertices:        sorted,
					Element:         elemID,
					LocalID:         localFaceID,
					Neighbor:        -1,
					NeighborLocalID: -1,
				})
				m.FaceMap[key] = faceID
				m.EToF[elemID][localFaceID] = faceID
			}
		}
	}
	m.NumFaces = len(m.Faces)
}

func (m *Mesh) countExterior() (n int) {
	for _, f := range m.Faces {
		if f.IsExterior() {
			n++
		}
	}
	return
}

// ExteriorFacets returns the IDs of facets on the domain boundary
func (m *Mesh) ExteriorFacets() (ids []int) {
	m.Init()
	for id, f := range m.Faces {
		if f.IsExterior() {
			ids = append(ids, id)
		}
	}
	return
}

// InteriorFacets returns the IDs of facets shared by two cells
func (m *Mesh) InteriorFacets() (ids []int) {
	m.Init()
	for id, f := range m.Faces {
		if !f.IsExterior() {
			ids = append(ids, id)
		}
	}
	return
}

// CellVertices returns the coordinates of the vertices of cell k as seen by
// that cell.
func (m *Mesh) CellVertices(k int) [][]float64 {
	if m.CellVertexCoords != nil {
		return m.CellVertexCoords[k]
	}
	verts := make([][]float64, len(m.EToV[k]))
	for i, v := range m.EToV[k] {
		verts[i] = m.Vertices[v]
	}
	return verts
}

// MapReference places the reference point ref of cell k in physical space
// using the straight sided cell followed by NodeTransform.
func (m *Mesh) MapReference(k int, ref []float64) (x []float64) {
	m.Init()
	var (
		verts = m.CellVertices(k)
		N     = m.CellType.FlatShape(ref)
	)
	x = make([]float64, m.GeometricDimension)
	for i, vert := range verts {
		for d := range x {
			x[d] += N[i] * vert[d]
		}
	}
	if m.NodeTransform != nil {
		x = m.NodeTransform(x)
	}
	return
}

// Stats summarises a mesh
type Stats struct {
	Name               string
	CellType           CellType
	GeometricDimension int
	CoordinateDegree   int
	Cells              int
	Vertices           int
	Facets             int
	ExteriorFacets     int
	Periodic           bool
	Reordered          bool
}

func (m *Mesh) Stats() Stats {
	m.Init()
	return Stats{
		Name:               m.Name,
		CellType:           m.CellType,
		GeometricDimension: m.GeometricDimension,
		CoordinateDegree:   m.CoordinateDegree,
		Cells:              m.NumElements,
		Vertices:           m.NumVertices,
		Facets:             m.NumFaces,
		ExteriorFacets:     len(m.ExteriorFacets()),
		Periodic:           m.IsPeriodic(),
		Reordered:          m.didReordering,
	}
}
