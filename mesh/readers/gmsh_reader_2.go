package readers

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/notargets/femesh/mesh"
)

// ReadGmsh22 reads a Gmsh 2.2 ASCII file
func ReadGmsh22(filename string, opts ...mesh.Option) (*mesh.Mesh, error) {
	file, err := os.Open(filename)
	if err != nil {
		return nil, err
	}
	defer file.Close()

	raw, err := parseGmsh22(file)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", filename, err)
	}
	m, err := raw.toMesh(opts...)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", filename, err)
	}
	return m, nil
}

func parseGmsh22(r io.Reader) (raw *rawMesh, err error) {
	var (
		scanner                 = newScanner(r)
		haveNodes, haveElements bool
	)
	raw = newRawMesh()
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())

		switch line {
		case "$MeshFormat":
			err = readMeshFormat(scanner, raw)
		case "$PhysicalNames":
			err = readPhysicalNames(scanner, raw)
		case "$Nodes":
			haveNodes = true
			err = readNodes22(scanner, raw)
		case "$Elements":
			haveElements = true
			err = readElements22(scanner, raw)
		case "$Periodic":
			err = skipSection(scanner, "$EndPeriodic")
		case "$NodeData":
			err = skipSection(scanner, "$EndNodeData")
		case "$ElementData":
			err = skipSection(scanner, "$EndElementData")
		case "$ElementNodeData":
			err = skipSection(scanner, "$EndElementNodeData")
		}
		if err != nil {
			return nil, err
		}
	}
	if err = scanner.Err(); err != nil {
		return nil, fmt.Errorf("scanner error: %w", err)
	}
	if !haveNodes || !haveElements {
		return nil, fmt.Errorf("%w: missing $Nodes or $Elements section", mesh.ErrInvalidMesh)
	}
	return
}

// readNodes22 reads the Nodes section: one "id x y z" line per node
func readNodes22(scanner *bufio.Scanner, raw *rawMesh) error {
	header, err := nextFields(scanner, "Nodes")
	if err != nil {
		return err
	}
	numNodes, err := strconv.Atoi(header[0])
	if err != nil {
		return fmt.Errorf("%w: invalid number of nodes: %v", mesh.ErrInvalidMesh, err)
	}
	for i := 0; i < numNodes; i++ {
		fields, err := nextFields(scanner, "Nodes")
		if err != nil {
			return err
		}
		nodeID, err := strconv.Atoi(fields[0])
		if err != nil {
			return fmt.Errorf("%w: invalid node ID %q", mesh.ErrInvalidMesh, fields[0])
		}
		xyz, err := parseCoords(fields[1:], "Nodes")
		if err != nil {
			return err
		}
		if err = raw.addNode(nodeID, xyz); err != nil {
			return err
		}
	}
	return skipSection(scanner, "$EndNodes")
}

// readElements22 reads the Elements section:
// "id type ntags tag... node..." per element
func readElements22(scanner *bufio.Scanner, raw *rawMesh) error {
	header, err := nextFields(scanner, "Elements")
	if err != nil {
		return err
	}
	numElems, err := strconv.Atoi(header[0])
	if err != nil {
		return fmt.Errorf("%w: invalid number of elements: %v", mesh.ErrInvalidMesh, err)
	}
	for i := 0; i < numElems; i++ {
		fields, err := nextFields(scanner, "Elements")
		if err != nil {
			return err
		}
		ints, err := atoiFields(fields, "Elements")
		if err != nil {
			return err
		}
		if len(ints) < 3 {
			return fmt.Errorf("%w: invalid element entry %d", mesh.ErrInvalidMesh, i+1)
		}
		var (
			elemID   = ints[0]
			gmshType = ints[1]
			numTags  = ints[2]
		)
		if numTags < 0 || len(ints) < 3+numTags {
			return fmt.Errorf("%w: element %d has a bad tag count %d", mesh.ErrInvalidMesh, elemID, numTags)
		}
		nodes := ints[3+numTags:]
		if et, ok := gmshElementTypes[gmshType]; ok && len(nodes) != et.NumNodes {
			return fmt.Errorf("%w: element %d of gmsh type %d has %d nodes, expected %d",
				mesh.ErrInvalidMesh, elemID, gmshType, len(nodes), et.NumNodes)
		}
		raw.Elements = append(raw.Elements, rawElement{
			Tag:      elemID,
			GmshType: gmshType,
			Tags:     ints[3 : 3+numTags],
			Nodes:    nodes,
		})
	}
	return skipSection(scanner, "$EndElements")
}
