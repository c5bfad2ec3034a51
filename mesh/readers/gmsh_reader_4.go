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

// entityKey identifies a geometric entity by dimension and tag
type entityKey struct {
	Dim, Tag int
}

// ReadGmsh4 reads a Gmsh 4.1 ASCII file
func ReadGmsh4(filename string, opts ...mesh.Option) (*mesh.Mesh, error) {
	file, err := os.Open(filename)
	if err != nil {
		return nil, err
	}
	defer file.Close()

	raw, err := parseGmsh4(file)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", filename, err)
	}
	m, err := raw.toMesh(opts...)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", filename, err)
	}
	return m, nil
}

func parseGmsh4(r io.Reader) (raw *rawMesh, err error) {
	var (
		scanner                 = newScanner(r)
		physical                = make(map[entityKey][]int)
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
		case "$Entities":
			err = readEntities4(scanner, physical)
		case "$Nodes":
			haveNodes = true
			err = readNodes4(scanner, raw)
		case "$Elements":
			haveElements = true
			err = readElements4(scanner, raw, physical)
		case "$PartitionedEntities":
			err = skipSection(scanner, "$EndPartitionedEntities")
		case "$Periodic":
			err = skipSection(scanner, "$EndPeriodic")
		case "$GhostElements":
			err = skipSection(scanner, "$EndGhostElements")
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

// readEntities4 collects the physical tags of every entity. Points carry
// "tag x y z numPhysical phys..." and higher entities carry a bounding box
// before the physical tags.
func readEntities4(scanner *bufio.Scanner, physical map[entityKey][]int) error {
	header, err := nextFields(scanner, "Entities")
	if err != nil {
		return err
	}
	counts, err := atoiFields(header, "Entities")
	if err != nil {
		return err
	}
	if len(counts) < 4 {
		return fmt.Errorf("%w: invalid entity counts", mesh.ErrInvalidMesh)
	}
	for dim := 0; dim < 4; dim++ {
		offset := 7 // tag + bounding box
		if dim == 0 {
			offset = 4 // tag + point coordinates
		}
		for i := 0; i < counts[dim]; i++ {
			fields, err := nextFields(scanner, "Entities")
			if err != nil {
				return err
			}
			if len(fields) < offset+1 {
				return fmt.Errorf("%w: invalid entity of dimension %d", mesh.ErrInvalidMesh, dim)
			}
			tag, err := strconv.Atoi(fields[0])
			if err != nil {
				return fmt.Errorf("%w: invalid entity tag %q", mesh.ErrInvalidMesh, fields[0])
			}
			numPhys, err := strconv.Atoi(fields[offset])
			if err != nil || numPhys < 0 || len(fields) < offset+1+numPhys {
				return fmt.Errorf("%w: invalid physical tag count for entity %d", mesh.ErrInvalidMesh, tag)
			}
			phys, err := atoiFields(fields[offset+1:offset+1+numPhys], "Entities")
			if err != nil {
				return err
			}
			physical[entityKey{Dim: dim, Tag: tag}] = phys
		}
	}
	return skipSection(scanner, "$EndEntities")
}

// readNodes4 reads node blocks: a block header, the node tags, then one
// coordinate line per node
func readNodes4(scanner *bufio.Scanner, raw *rawMesh) error {
	header, err := nextFields(scanner, "Nodes")
	if err != nil {
		return err
	}
	// Format: numEntityBlocks numNodes minNodeTag maxNodeTag
	counts, err := atoiFields(header, "Nodes")
	if err != nil {
		return err
	}
	if len(counts) < 4 {
		return fmt.Errorf("%w: invalid Nodes header", mesh.ErrInvalidMesh)
	}
	for i := 0; i < counts[0]; i++ {
		// Read entity info: entityDim entityTag parametric numNodes
		fields, err := nextFields(scanner, "Nodes")
		if err != nil {
			return err
		}
		block, err := atoiFields(fields, "Nodes")
		if err != nil {
			return err
		}
		if len(block) < 4 {
			return fmt.Errorf("%w: invalid node block header", mesh.ErrInvalidMesh)
		}
		numNodesInBlock := block[3]
		nodeTags := make([]int, numNodesInBlock)
		for j := range nodeTags {
			fields, err := nextFields(scanner, "Nodes")
			if err != nil {
				return err
			}
			if nodeTags[j], err = strconv.Atoi(fields[0]); err != nil {
				return fmt.Errorf("%w: invalid node tag %q", mesh.ErrInvalidMesh, fields[0])
			}
		}
		for j := range nodeTags {
			fields, err := nextFields(scanner, "Nodes")
			if err != nil {
				return err
			}
			xyz, err := parseCoords(fields, "Nodes")
			if err != nil {
				return err
			}
			if err = raw.addNode(nodeTags[j], xyz); err != nil {
				return err
			}
		}
	}
	if len(raw.NodeTags) != counts[1] {
		return fmt.Errorf("%w: header announces %d nodes, found %d",
			mesh.ErrInvalidMesh, counts[1], len(raw.NodeTags))
	}
	return skipSection(scanner, "$EndNodes")
}

// readElements4 reads element blocks. The cell tag is the first physical
// tag of the block entity, or the entity tag when it has none.
func readElements4(scanner *bufio.Scanner, raw *rawMesh, physical map[entityKey][]int) error {
	header, err := nextFields(scanner, "Elements")
	if err != nil {
		return err
	}
	// Format: numEntityBlocks numElements minElementTag maxElementTag
	counts, err := atoiFields(header, "Elements")
	if err != nil {
		return err
	}
	if len(counts) < 4 {
		return fmt.Errorf("%w: invalid Elements header", mesh.ErrInvalidMesh)
	}
	for i := 0; i < counts[0]; i++ {
		// Read entity info: entityDim entityTag elementType numElements
		fields, err := nextFields(scanner, "Elements")
		if err != nil {
			return err
		}
		block, err := atoiFields(fields, "Elements")
		if err != nil {
			return err
		}
		if len(block) < 4 {
			return fmt.Errorf("%w: invalid element block header", mesh.ErrInvalidMesh)
		}
		var (
			entityDim       = block[0]
			entityTag       = block[1]
			gmshType        = block[2]
			numElemsInBlock = block[3]
			tags            = []int{entityTag}
		)
		if phys := physical[entityKey{Dim: entityDim, Tag: entityTag}]; len(phys) != 0 {
			tags = append([]int{phys[0]}, tags...)
		}
		et, known := gmshElementTypes[gmshType]
		for j := 0; j < numElemsInBlock; j++ {
			fields, err := nextFields(scanner, "Elements")
			if err != nil {
				return err
			}
			ints, err := atoiFields(fields, "Elements")
			if err != nil {
				return err
			}
			if known && len(ints) != 1+et.NumNodes {
				return fmt.Errorf("%w: element %d of gmsh type %d has %d nodes, expected %d",
					mesh.ErrInvalidMesh, ints[0], gmshType, len(ints)-1, et.NumNodes)
			}
			raw.Elements = append(raw.Elements, rawElement{
				Tag:      ints[0],
				GmshType: gmshType,
				Tags:     tags,
				Nodes:    ints[1:],
			})
		}
	}
	return skipSection(scanner, "$EndElements")
}
