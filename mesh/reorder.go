package mesh

import (
	"sort"

	"github.com/samber/lo"
)

// reorderEntities renumbers vertices with reverse Cuthill-McKee on the vertex
// adjacency graph, then sorts cells by their lowest renumbered vertex so that
// neighboring cells sit close together in memory.
func (m *Mesh) reorderEntities() {
	var (
		perm = reverseCuthillMcKee(m.NumVertices, m.EToV)
	)
	vertices := make([][]float64, m.NumVertices)
	for old, nw := range perm {
		vertices[nw] = m.Vertices[old]
	}
	m.Vertices = vertices
	for _, cell := range m.EToV {
		for i, v := range cell {
			cell[i] = perm[v]
		}
	}

	order := make([]int, m.NumElements)
	for k := range order {
		order[k] = k
	}
	lowest := lo.Map(m.EToV, func(cell []int, _ int) int { return lo.Min(cell) })
	sort.SliceStable(order, func(i, j int) bool {
		return lowest[order[i]] < lowest[order[j]]
	})
	m.EToV = permuteCells(m.EToV, order)
	if m.CellVertexCoords != nil {
		m.CellVertexCoords = permuteCells(m.CellVertexCoords, order)
	}
	if m.CellTags != nil {
		m.CellTags = permuteCells(m.CellTags, order)
	}
}

func permuteCells[T any](data []T, order []int) (out []T) {
	out = make([]T, len(data))
	for nw, old := range order {
		out[nw] = data[old]
	}
	return
}

// reverseCuthillMcKee returns perm with perm[old] = new. Each connected
// component is started from a minimum degree vertex and traversed breadth
// first, visiting neighbors in increasing degree.
func reverseCuthillMcKee(nv int, cells [][]int) (perm []int) {
	adj := make([]map[int]struct{}, nv)
	for i := range adj {
		adj[i] = make(map[int]struct{})
	}
	for _, cell := range cells {
		for _, a := range cell {
			for _, b := range cell {
				if a != b {
					adj[a][b] = struct{}{}
				}
			}
		}
	}
	neighbors := make([][]int, nv)
	for v := range adj {
		neighbors[v] = lo.Keys(adj[v])
	}
	degree := func(v int) int { return len(neighbors[v]) }
	for v := range neighbors {
		sort.Slice(neighbors[v], func(i, j int) bool {
			a, b := neighbors[v][i], neighbors[v][j]
			if degree(a) != degree(b) {
				return degree(a) < degree(b)
			}
			return a < b
		})
	}

	byDegree := make([]int, nv)
	for v := range byDegree {
		byDegree[v] = v
	}
	sort.SliceStable(byDegree, func(i, j int) bool {
		return degree(byDegree[i]) < degree(byDegree[j])
	})

	var (
		visited = make([]bool, nv)
		order   = make([]int, 0, nv)
	)
	for _, start := range byDegree {
		if visited[start] {
			continue
		}
		visited[start] = true
		queue := []int{start}
		for len(queue) != 0 {
			v := queue[0]
			queue = queue[1:]
			order = append(order, v)
			for _, w := range neighbors[v] {
				if !visited[w] {
					visited[w] = true
					queue = append(queue, w)
				}
			}
		}
	}

	perm = make([]int, nv)
	for i, v := range order {
		perm[v] = nv - 1 - i
	}
	return
}
