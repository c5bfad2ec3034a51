package mesh

import (
	"fmt"
	"math"
	"sort"

	"go.uber.org/zap"

	"github.com/notargets/femesh/parameters"
	"github.com/notargets/femesh/utils"
)

// PartitionConfig holds configuration for mesh partitioning
type PartitionConfig struct {
	NumPartitions    int32
	Method           string  // "block" or "metis"
	ImbalanceFactor  float32 // e.g., 1.05 for 5% imbalance
	UseEdgeWeights   bool
	UseVertexWeights bool
	Objective        string // "cut" or "vol"
}

// DefaultPartitionConfig returns the partitioning configuration selected by
// the global parameters
func DefaultPartitionConfig(nparts int32) *PartitionConfig {
	return &PartitionConfig{
		NumPartitions:    nparts,
		Method:           parameters.Get().Partitioner,
		ImbalanceFactor:  1.05,
		UseEdgeWeights:   true,
		UseVertexWeights: true,
		Objective:        "vol", // minimize communication volume
	}
}

// metisPartGraph is the METIS k-way partitioner, present when built with
// the metis tag
var metisPartGraph func(xadj, adjncy, vwgt, adjwgt []int32, nparts int32,
	ubvec []float32, objective string) (part []int32, objval int32, err error)

// HaveMetis reports whether the metis partitioner can run
func HaveMetis() bool {
	return metisPartGraph != nil
}

// MeshPartitioner assigns every cell of a mesh to a partition. The
// assignment belongs to the partitioner, so several partitions of one mesh
// can coexist.
type MeshPartitioner struct {
	mesh   *Mesh
	config *PartitionConfig
	log    *zap.Logger

	EToP []int // Element to partition mapping (set by Partition)

	// Cost models
	computeCostModel func(cellType CellType) int32
	commCostModel    func(facetVertices int) int32
}

// NewMeshPartitioner creates a new partitioner for the given mesh
func NewMeshPartitioner(mesh *Mesh, config *PartitionConfig) *MeshPartitioner {
	if config == nil {
		config = DefaultPartitionConfig(1)
	}
	mp := &MeshPartitioner{
		mesh:   mesh,
		config: config,
		log:    mesh.log,
	}
	if mp.log == nil {
		mp.log = utils.Logger()
	}

	mp.computeCostModel = func(cellType CellType) int32 {
		// Relative cost follows the number of vertices
		return int32(cellType.NumVertices())
	}
	mp.commCostModel = func(facetVertices int) int32 {
		// Linear data on a facet is one value per vertex
		return int32(facetVertices)
	}
	return mp
}

// Partition fills EToP. Asking for more partitions than cells is an
// ErrInvalidArgument.
func (mp *MeshPartitioner) Partition() (err error) {
	var (
		m      = mp.mesh
		nparts = int(mp.config.NumPartitions)
	)
	m.Init()
	if nparts < 1 {
		return fmt.Errorf("%w: number of partitions must be positive, got %d", ErrInvalidArgument, nparts)
	}
	if nparts > m.NumElements {
		return fmt.Errorf("%w: %d partitions requested for %d cells",
			ErrInvalidArgument, nparts, m.NumElements)
	}
	mp.log.Debug("partitioning mesh",
		zap.String("mesh", m.Name),
		zap.Int("cells", m.NumElements),
		zap.Int("partitions", nparts),
		zap.String("method", mp.config.Method))

	var objval int32
	switch {
	case nparts == 1:
		mp.EToP = make([]int, m.NumElements)
	case mp.config.Method == parameters.PartitionerMetis:
		if objval, err = mp.partitionMetis(); err != nil {
			return
		}
	case mp.config.Method == parameters.PartitionerBlock, mp.config.Method == "":
		mp.partitionBlock()
	default:
		return fmt.Errorf("%w: unknown partitioning method %q", ErrInvalidArgument, mp.config.Method)
	}
	mp.analyzePartition(objval)
	return
}

// partitionBlock splits the cells in contiguous ranges of equal size
func (mp *MeshPartitioner) partitionBlock() {
	var (
		m  = mp.mesh
		pm = utils.NewPartitionMap(int(mp.config.NumPartitions), m.NumElements)
	)
	mp.EToP = make([]int, m.NumElements)
	for k := range mp.EToP {
		mp.EToP[k], _, _ = pm.GetBucket(k)
	}
}

func (mp *MeshPartitioner) partitionMetis() (objval int32, err error) {
	if metisPartGraph == nil {
		return 0, fmt.Errorf("%w: the metis partitioner needs the METIS library (build with -tags metis)",
			ErrBackendUnavailable)
	}
	// Build METIS graph
	xadj, adjncy, vwgt, adjwgt := mp.buildMetisGraph()
	ubvec := []float32{mp.config.ImbalanceFactor}

	part, objval, err := metisPartGraph(xadj, adjncy, vwgt, adjwgt,
		mp.config.NumPartitions, ubvec, mp.config.Objective)
	if err != nil {
		return 0, fmt.Errorf("METIS partitioning failed: %w", err)
	}
	mp.EToP = make([]int, mp.mesh.NumElements)
	for i := range mp.EToP {
		mp.EToP[i] = int(part[i])
	}
	return
}

// buildMetisGraph converts cell adjacency to CSR form. Periodic meshes can
// pair two cells through several facets, those are merged into one edge
// whose weight is the sum.
func (mp *MeshPartitioner) buildMetisGraph() (xadj, adjncy, vwgt, adjwgt []int32) {
	var (
		m   = mp.mesh
		ne  = m.NumElements
		adj = make([]map[int]int32, ne)
	)
	for i := range adj {
		adj[i] = make(map[int]int32)
	}
	for _, f := range m.Faces {
		if f.IsExterior() || f.Neighbor == f.Element {
			continue
		}
		cost := mp.commCostModel(len(f.Vertices))
		adj[f.Element][f.Neighbor] += cost
		adj[f.Neighbor][f.Element] += cost
	}

	if mp.config.UseVertexWeights {
		vwgt = make([]int32, ne)
		for i := range vwgt {
			vwgt[i] = mp.computeCostModel(m.CellType)
		}
	}

	xadj = make([]int32, ne+1)
	for elem := 0; elem < ne; elem++ {
		neighbors := make([]int, 0, len(adj[elem]))
		for nb := range adj[elem] {
			neighbors = append(neighbors, nb)
		}
		sort.Ints(neighbors)
		for _, nb := range neighbors {
			adjncy = append(adjncy, int32(nb))
			if mp.config.UseEdgeWeights {
				adjwgt = append(adjwgt, adj[elem][nb])
			}
		}
		xadj[elem+1] = int32(len(adjncy))
	}
	return
}

// PartitionStats holds statistics for a single partition
type PartitionStats struct {
	ID           int
	NumElements  int
	ComputeLoad  int64
	NumNeighbors map[int]int // neighbor partition -> shared faces
}

// analyzePartition computes partition quality metrics and logs them
func (mp *MeshPartitioner) analyzePartition(objval int32) (partStats []PartitionStats) {
	var (
		m      = mp.mesh
		nparts = int(mp.config.NumPartitions)
	)
	partStats = make([]PartitionStats, nparts)
	for i := range partStats {
		partStats[i].ID = i
		partStats[i].NumNeighbors = make(map[int]int)
	}
	for elem := 0; elem < m.NumElements; elem++ {
		stats := &partStats[mp.EToP[elem]]
		stats.NumElements++
		stats.ComputeLoad += int64(mp.computeCostModel(m.CellType))
	}

	var (
		cutEdges   int
		commVolume int64
	)
	for _, f := range m.Faces {
		if f.IsExterior() {
			continue
		}
		p1, p2 := mp.EToP[f.Element], mp.EToP[f.Neighbor]
		if p1 == p2 {
			continue
		}
		cutEdges++
		commVolume += int64(mp.commCostModel(len(f.Vertices)))
		partStats[p1].NumNeighbors[p2]++
		partStats[p2].NumNeighbors[p1]++
	}

	var (
		avgLoad float64
		maxLoad int64
		minLoad = int64(math.MaxInt64)
	)
	for _, stats := range partStats {
		avgLoad += float64(stats.ComputeLoad)
		maxLoad = max(maxLoad, stats.ComputeLoad)
		minLoad = min(minLoad, stats.ComputeLoad)
	}
	avgLoad /= float64(nparts)

	mp.log.Debug("partition analysis",
		zap.String("mesh", m.Name),
		zap.Int32("objective", objval),
		zap.Int("cut_facets", cutEdges),
		zap.Int64("comm_volume", commVolume),
		zap.Float64("imbalance", float64(maxLoad)/avgLoad-1),
		zap.Int64("min_load", minLoad),
		zap.Int64("max_load", maxLoad))
	for _, stats := range partStats {
		mp.log.Debug("partition",
			zap.Int("id", stats.ID),
			zap.Int("cells", stats.NumElements),
			zap.Int64("load", stats.ComputeLoad),
			zap.Int("neighbors", len(stats.NumNeighbors)))
	}
	return
}

// Stats recomputes the per partition statistics of EToP
func (mp *MeshPartitioner) Stats() []PartitionStats {
	return mp.analyzePartition(0)
}

// GetPartitionBoundaryFaces returns, per partition, the facets on the domain
// boundary or on a partition interface
func (mp *MeshPartitioner) GetPartitionBoundaryFaces() map[int][]int {
	var (
		m             = mp.mesh
		boundaryFaces = make(map[int][]int) // partition -> face IDs
	)
	for elem := 0; elem < m.NumElements; elem++ {
		elemPart := mp.EToP[elem]
		for faceIdx, neighbor := range m.EToE[elem] {
			if neighbor < 0 || mp.EToP[neighbor] != elemPart {
				boundaryFaces[elemPart] = append(boundaryFaces[elemPart], m.EToF[elem][faceIdx])
			}
		}
	}
	return boundaryFaces
}

// GetPartitionElements returns all elements in a given partition
func (mp *MeshPartitioner) GetPartitionElements(partID int) []int {
	elements := []int{}
	for elem := 0; elem < mp.mesh.NumElements; elem++ {
		if mp.EToP[elem] == partID {
			elements = append(elements, elem)
		}
	}
	return elements
}
