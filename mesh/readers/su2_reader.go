package readers

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/notargets/femesh/mesh"
)

// su2ElementTypes maps SU2 (VTK) element identifiers to the equivalent
// Gmsh element types so both formats share one conversion
var su2ElementTypes = map[int]int{
	3:  1, // VTK_LINE
	5:  2, // VTK_TRIANGLE
	9:  3, // VTK_QUAD
	10: 4, // VTK_TETRA
	12: 5, // VTK_HEXAHEDRON
	13: 6, // VTK_WEDGE
	14: 7, // VTK_PYRAMID
}

// ReadSU2 reads an SU2 native format file
func ReadSU2(filename string, opts ...mesh.Option) (*mesh.Mesh, error) {
	file, err := os.Open(filename)
	if err != nil {
		return nil, err
	}
	defer file.Close()

	raw, err := parseSU2(file)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", filename, err)
	}
	opts = append([]mesh.Option{mesh.WithName(filepath.Base(filename))}, opts...)
	m, err := raw.toMesh(opts...)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", filename, err)
	}
	return m, nil
}

// su2Line strips the comment that starts at %
func su2Line(line string) string {
	if idx := strings.Index(line, "%"); idx >= 0 {
		line = line[:idx]
	}
	return strings.TrimSpace(line)
}

// nextSU2Fields returns the fields of the next line that is not blank or a
// comment
func nextSU2Fields(scanner *bufio.Scanner, section string) ([]string, error) {
	for scanner.Scan() {
		if line := su2Line(scanner.Text()); line != "" {
			return strings.Fields(line), nil
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, err
	}
	return nil, fmt.Errorf("%w: unexpected EOF in %s", mesh.ErrInvalidMesh, section)
}

// su2Count parses "KEY= n", ignoring anything after n such as the domain
// point count some writers add to NPOIN
func su2Count(line, key string) (n int, err error) {
	fields := strings.Fields(strings.TrimPrefix(line, key))
	if len(fields) == 0 {
		return 0, fmt.Errorf("%w: invalid %s line %q", mesh.ErrInvalidMesh, key, line)
	}
	if n, err = strconv.Atoi(fields[0]); err != nil || n < 0 {
		return 0, fmt.Errorf("%w: invalid %s line %q", mesh.ErrInvalidMesh, key, line)
	}
	return
}

func parseSU2(r io.Reader) (raw *rawMesh, err error) {
	var (
		scanner          = newScanner(r)
		ndime            int
		hasNDIME         bool
		hasNPOIN         bool
		hasNELEM         bool
		elementsExpected int
	)
	raw = newRawMesh()
	raw.FormatVersion = "su2"
	for scanner.Scan() {
		line := su2Line(scanner.Text())
		switch {
		case line == "":
		case strings.HasPrefix(line, "NDIME="):
			if ndime, err = su2Count(line, "NDIME="); err != nil {
				return nil, err
			}
			if ndime != 2 && ndime != 3 {
				return nil, fmt.Errorf("%w: NDIME=%d", ErrUnsupportedFormat, ndime)
			}
			hasNDIME = true
		case strings.HasPrefix(line, "NPOIN="):
			if !hasNDIME {
				return nil, fmt.Errorf("%w: NPOIN before NDIME", mesh.ErrInvalidMesh)
			}
			hasNPOIN = true
			if err = readSU2Points(scanner, raw, line, ndime); err != nil {
				return nil, err
			}
		case strings.HasPrefix(line, "NELEM="):
			hasNELEM = true
			if elementsExpected, err = su2Count(line, "NELEM="); err != nil {
				return nil, err
			}
			if err = readSU2Elements(scanner, raw, elementsExpected, 0, "NELEM"); err != nil {
				return nil, err
			}
		case strings.HasPrefix(line, "NMARK="):
			if err = readSU2Markers(scanner, raw, line); err != nil {
				return nil, err
			}
		}
	}
	if err = scanner.Err(); err != nil {
		return nil, err
	}
	switch {
	case !hasNDIME:
		return nil, fmt.Errorf("%w: missing NDIME", mesh.ErrInvalidMesh)
	case !hasNPOIN:
		return nil, fmt.Errorf("%w: missing NPOIN", mesh.ErrInvalidMesh)
	case !hasNELEM:
		return nil, fmt.Errorf("%w: missing NELEM", mesh.ErrInvalidMesh)
	}
	return
}

// readSU2Points reads NPOIN lines of coordinates. Point numbers are
// implicit and start at 0; a trailing explicit index is ignored.
func readSU2Points(scanner *bufio.Scanner, raw *rawMesh, header string, ndime int) error {
	npoin, err := su2Count(header, "NPOIN=")
	if err != nil {
		return err
	}
	for i := 0; i < npoin; i++ {
		fields, err := nextSU2Fields(scanner, "NPOIN")
		if err != nil {
			return err
		}
		if len(fields) < ndime {
			return fmt.Errorf("%w: point %d needs %d coordinates", mesh.ErrInvalidMesh, i, ndime)
		}
		var xyz [3]float64
		for d := 0; d < ndime; d++ {
			if xyz[d], err = strconv.ParseFloat(fields[d], 64); err != nil {
				return fmt.Errorf("%w: invalid coordinate %q of point %d", mesh.ErrInvalidMesh, fields[d], i)
			}
		}
		if err = raw.addNode(i, xyz); err != nil {
			return err
		}
	}
	return nil
}

// readSU2Elements reads n element lines, tagging them with tag
func readSU2Elements(scanner *bufio.Scanner, raw *rawMesh, n, tag int, section string) error {
	for i := 0; i < n; i++ {
		fields, err := nextSU2Fields(scanner, section)
		if err != nil {
			return err
		}
		ints, err := atoiFields(fields, section)
		if err != nil {
			return err
		}
		gmshType, ok := su2ElementTypes[ints[0]]
		if !ok {
			return fmt.Errorf("%w: unknown SU2 element type %d", mesh.ErrInvalidMesh, ints[0])
		}
		numNodes := gmshElementTypes[gmshType].NumNodes
		if len(ints) < numNodes+1 {
			return fmt.Errorf("%w: SU2 element type %d needs %d nodes, got %d",
				mesh.ErrInvalidMesh, ints[0], numNodes, len(ints)-1)
		}
		raw.Elements = append(raw.Elements, rawElement{
			Tag:      len(raw.Elements),
			GmshType: gmshType,
			Tags:     []int{tag},
			Nodes:    ints[1 : numNodes+1],
		})
	}
	return nil
}

// readSU2Markers reads the boundary markers. Each marker becomes a physical
// name whose tag is its position, starting at 1.
func readSU2Markers(scanner *bufio.Scanner, raw *rawMesh, header string) error {
	nmark, err := su2Count(header, "NMARK=")
	if err != nil {
		return err
	}
	for i := 1; i <= nmark; i++ {
		fields, err := nextSU2Fields(scanner, "NMARK")
		if err != nil {
			return err
		}
		line := strings.Join(fields, " ")
		if !strings.HasPrefix(line, "MARKER_TAG=") {
			return fmt.Errorf("%w: expected MARKER_TAG=, got %q", mesh.ErrInvalidMesh, line)
		}
		raw.PhysicalNames[i] = strings.TrimSpace(strings.TrimPrefix(line, "MARKER_TAG="))

		if fields, err = nextSU2Fields(scanner, "NMARK"); err != nil {
			return err
		}
		n, err := su2Count(strings.Join(fields, " "), "MARKER_ELEMS=")
		if err != nil {
			return err
		}
		if err = readSU2Elements(scanner, raw, n, i, "MARKER_ELEMS"); err != nil {
			return err
		}
	}
	return nil
}
