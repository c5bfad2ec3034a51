package readers

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"math"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"go.uber.org/multierr"
	"go.uber.org/zap"

	"github.com/notargets/femesh/mesh"
	"github.com/notargets/femesh/utils"
)

// ErrUnsupportedFormat reports a mesh file this package cannot read, such
// as an unknown extension or a binary Gmsh file.
var ErrUnsupportedFormat = errors.New("unsupported mesh format")

// gmshElement describes a Gmsh element type
type gmshElement struct {
	Dimension int
	NumNodes  int
	Cell      mesh.CellType
	Supported bool // usable as a cell of a mesh.Mesh
}

// gmshElementTypes maps the Gmsh element type numbers shared by formats 2
// and 4 to their shape. Types that are not supported as cells can still
// appear as lower dimensional markers and are skipped.
var gmshElementTypes = map[int]gmshElement{
	1:  {Dimension: 1, NumNodes: 2, Cell: mesh.Interval, Supported: true},
	2:  {Dimension: 2, NumNodes: 3, Cell: mesh.Triangle, Supported: true},
	3:  {Dimension: 2, NumNodes: 4, Cell: mesh.Quadrilateral, Supported: true},
	4:  {Dimension: 3, NumNodes: 4, Cell: mesh.Tetrahedron, Supported: true},
	5:  {Dimension: 3, NumNodes: 8},  // Hexahedron
	6:  {Dimension: 3, NumNodes: 6},  // Prism
	7:  {Dimension: 3, NumNodes: 5},  // Pyramid
	8:  {Dimension: 1, NumNodes: 3},  // Second order line
	9:  {Dimension: 2, NumNodes: 6},  // Second order triangle
	10: {Dimension: 2, NumNodes: 9},  // Second order quadrangle
	11: {Dimension: 3, NumNodes: 10}, // Second order tetrahedron
	15: {Dimension: 0, NumNodes: 1},  // Point
	16: {Dimension: 2, NumNodes: 8},  // Serendipity quadrangle
}

// rawElement is one element as stored in the file
type rawElement struct {
	Tag      int
	GmshType int
	Tags     []int
	Nodes    []int
}

// rawMesh is the file content before conversion to a mesh.Mesh
type rawMesh struct {
	FormatVersion string
	IsBinary      bool
	DataSize      int
	PhysicalNames map[int]string

	NodeTags  []int
	NodeIndex map[int]int // node tag -> position in NodeTags
	Coords    [][3]float64
	Elements  []rawElement
}

func newRawMesh() *rawMesh {
	return &rawMesh{
		PhysicalNames: make(map[int]string),
		NodeIndex:     make(map[int]int),
	}
}

func (r *rawMesh) addNode(tag int, xyz [3]float64) error {
	if _, dup := r.NodeIndex[tag]; dup {
		return fmt.Errorf("%w: duplicate node tag %d", mesh.ErrInvalidMesh, tag)
	}
	r.NodeIndex[tag] = len(r.NodeTags)
	r.NodeTags = append(r.NodeTags, tag)
	r.Coords = append(r.Coords, xyz)
	return nil
}

func newScanner(r io.Reader) *bufio.Scanner {
	scanner := bufio.NewScanner(r)
	// Increase scanner buffer for large files
	const maxScanTokenSize = 1024 * 1024 * 10 // 10MB
	buf := make([]byte, 64*1024)
	scanner.Buffer(buf, maxScanTokenSize)
	return scanner
}

// nextFields scans the next non blank line and splits it
func nextFields(scanner *bufio.Scanner, section string) ([]string, error) {
	for scanner.Scan() {
		fields := strings.Fields(scanner.Text())
		if len(fields) != 0 {
			return fields, nil
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, err
	}
	return nil, fmt.Errorf("%w: unexpected EOF in %s", mesh.ErrInvalidMesh, section)
}

func atoiFields(fields []string, section string) (ints []int, err error) {
	ints = make([]int, len(fields))
	for i, f := range fields {
		if ints[i], err = strconv.Atoi(f); err != nil {
			return nil, fmt.Errorf("%w: invalid integer %q in %s", mesh.ErrInvalidMesh, f, section)
		}
	}
	return
}

func parseCoords(fields []string, section string) (xyz [3]float64, err error) {
	if len(fields) < 3 {
		return xyz, fmt.Errorf("%w: node coordinates need 3 values in %s, got %d",
			mesh.ErrInvalidMesh, section, len(fields))
	}
	for i := range xyz {
		if xyz[i], err = strconv.ParseFloat(fields[i], 64); err != nil {
			return xyz, fmt.Errorf("%w: invalid coordinate %q in %s", mesh.ErrInvalidMesh, fields[i], section)
		}
	}
	return
}

// skipSection advances past the end marker of the current section
func skipSection(scanner *bufio.Scanner, endMarker string) error {
	for scanner.Scan() {
		if strings.TrimSpace(scanner.Text()) == endMarker {
			return nil
		}
	}
	return fmt.Errorf("%w: missing %s", mesh.ErrInvalidMesh, endMarker)
}

// readMeshFormat reads the MeshFormat section
func readMeshFormat(scanner *bufio.Scanner, raw *rawMesh) error {
	parts, err := nextFields(scanner, "MeshFormat")
	if err != nil {
		return err
	}
	if len(parts) < 3 {
		return fmt.Errorf("%w: invalid MeshFormat line", mesh.ErrInvalidMesh)
	}
	raw.FormatVersion = parts[0]
	fileType, _ := strconv.Atoi(parts[1])
	raw.IsBinary = fileType == 1
	raw.DataSize, _ = strconv.Atoi(parts[2])
	if raw.IsBinary {
		return fmt.Errorf("%w: binary Gmsh files are not supported", ErrUnsupportedFormat)
	}
	return skipSection(scanner, "$EndMeshFormat")
}

// readPhysicalNames reads physical entity names
func readPhysicalNames(scanner *bufio.Scanner, raw *rawMesh) error {
	header, err := nextFields(scanner, "PhysicalNames")
	if err != nil {
		return err
	}
	numPhysical, err := strconv.Atoi(header[0])
	if err != nil {
		return fmt.Errorf("%w: invalid number of physical names: %v", mesh.ErrInvalidMesh, err)
	}
	for i := 0; i < numPhysical; i++ {
		fields, err := nextFields(scanner, "PhysicalNames")
		if err != nil {
			return err
		}
		if len(fields) < 3 {
			return fmt.Errorf("%w: invalid physical name entry", mesh.ErrInvalidMesh)
		}
		tag, err := strconv.Atoi(fields[1])
		if err != nil {
			return fmt.Errorf("%w: invalid physical tag %q", mesh.ErrInvalidMesh, fields[1])
		}
		raw.PhysicalNames[tag] = strings.Trim(strings.Join(fields[2:], " "), "\"")
	}
	return skipSection(scanner, "$EndPhysicalNames")
}

// ReadGmshAuto reads a Gmsh ASCII file, detecting format 2 or 4
func ReadGmshAuto(filename string, opts ...mesh.Option) (*mesh.Mesh, error) {
	file, err := os.Open(filename)
	if err != nil {
		return nil, err
	}
	defer file.Close()

	scanner := newScanner(file)
	for scanner.Scan() {
		if strings.TrimSpace(scanner.Text()) != "$MeshFormat" {
			continue
		}
		versionLine, err := nextFields(scanner, "MeshFormat")
		if err != nil {
			return nil, err
		}
		version := versionLine[0]
		opts = append([]mesh.Option{mesh.WithName(filepath.Base(filename))}, opts...)
		switch {
		case strings.HasPrefix(version, "2"):
			return ReadGmsh22(filename, opts...)
		case strings.HasPrefix(version, "4"):
			return ReadGmsh4(filename, opts...)
		}
		return nil, fmt.Errorf("%w: Gmsh version %s", ErrUnsupportedFormat, version)
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("scanner error: %w", err)
	}
	return nil, fmt.Errorf("%w: no $MeshFormat section found in %s", mesh.ErrInvalidMesh, filename)
}

// toMesh keeps the elements of the highest dimension as cells and hands them
// to mesh.New, which rejects points outside the closure of every cell.
// Lower dimensional elements only mark boundaries.
func (r *rawMesh) toMesh(opts ...mesh.Option) (m *mesh.Mesh, err error) {
	var (
		log  = utils.Logger()
		tdim = -1
	)
	for _, e := range r.Elements {
		et, ok := gmshElementTypes[e.GmshType]
		if !ok {
			err = multierr.Append(err, fmt.Errorf("%w: element %d has unknown gmsh type %d",
				ErrUnsupportedFormat, e.Tag, e.GmshType))
			continue
		}
		tdim = max(tdim, et.Dimension)
	}
	if err != nil {
		return nil, err
	}
	if tdim < 1 {
		return nil, fmt.Errorf("%w: file contains no cells", mesh.ErrInvalidMesh)
	}

	var (
		cellType = mesh.CellType(-1)
		cells    [][]int
		tags     []int
		markers  int
	)
	for _, e := range r.Elements {
		et := gmshElementTypes[e.GmshType]
		if et.Dimension < tdim {
			markers++
			continue
		}
		if !et.Supported {
			err = multierr.Append(err, fmt.Errorf("%w: element %d of gmsh type %d is not a supported cell",
				ErrUnsupportedFormat, e.Tag, e.GmshType))
			continue
		}
		if cellType < 0 {
			cellType = et.Cell
		} else if cellType != et.Cell {
			err = multierr.Append(err, fmt.Errorf("%w: mixed %s and %s cells",
				mesh.ErrInvalidMesh, cellType, et.Cell))
			continue
		}
		cell := make([]int, len(e.Nodes))
		for i, tag := range e.Nodes {
			idx, ok := r.NodeIndex[tag]
			if !ok {
				err = multierr.Append(err, fmt.Errorf("%w: element %d references unknown node %d",
					mesh.ErrInvalidMesh, e.Tag, tag))
			}
			cell[i] = idx
		}
		cells = append(cells, cell)
		tag := 0
		if len(e.Tags) != 0 {
			tag = e.Tags[0]
		}
		tags = append(tags, tag)
	}
	if err != nil {
		return nil, err
	}

	// Geometric dimension: the last coordinate that is not identically zero
	gdim := tdim
	for _, xyz := range r.Coords {
		for d := 2; d >= gdim; d-- {
			if math.Abs(xyz[d]) > 0 {
				gdim = d + 1
				break
			}
		}
	}
	vertices := make([][]float64, len(r.Coords))
	for i, xyz := range r.Coords {
		vertices[i] = append([]float64(nil), xyz[:gdim]...)
	}

	if m, err = mesh.New(cellType, vertices, cells, opts...); err != nil {
		return nil, err
	}
	m.CellTags = tags
	log.Debug("read gmsh mesh",
		zap.String("version", r.FormatVersion),
		zap.Stringer("cell", cellType),
		zap.Int("cells", len(cells)),
		zap.Int("nodes", len(vertices)),
		zap.Int("boundary_markers", markers),
		zap.Int("physical_names", len(r.PhysicalNames)))
	return
}
