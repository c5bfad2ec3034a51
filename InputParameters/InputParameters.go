package InputParameters

import (
	"context"
	"errors"
	"fmt"
	"io"
	"math"
	"os"
	"strconv"

	"github.com/ghodss/yaml"
	"github.com/olekukonko/tablewriter"
	"go.uber.org/zap"

	"github.com/notargets/femesh/fem"
	"github.com/notargets/femesh/mesh"
	"github.com/notargets/femesh/mesh/readers"
	"github.com/notargets/femesh/parallel"
	"github.com/notargets/femesh/parameters"
	"github.com/notargets/femesh/utils"
)

// Checks a case can run against its mesh
const (
	CheckIntegrateOne    = "integrate_one"
	CheckExteriorFacets  = "exterior_facets"
	CheckCoordinateNorms = "coordinate_norms"
	CheckValidate        = "validate"
)

// Error kinds a case can expect
var errorKinds = map[string]error{
	"invalid_argument":    mesh.ErrInvalidArgument,
	"invalid_geometry":    mesh.ErrInvalidGeometry,
	"invalid_mesh":        mesh.ErrInvalidMesh,
	"backend_unavailable": mesh.ErrBackendUnavailable,
	"unsupported_format":  readers.ErrUnsupportedFormat,
}

// MeshCase is one regression case: a mesh built from a named constructor
// or read from a file, and the check to run on it
type MeshCase struct {
	Name          string    `json:"Name"`
	Mesh          string    `json:"Mesh"` // Registered constructor name
	File          string    `json:"File"` // Mesh file, used when Mesh is empty
	Ints          []int     `json:"Ints"`
	Floats        []float64 `json:"Floats"`
	Quadrilateral bool      `json:"Quadrilateral"`
	Diagonal      string    `json:"Diagonal"`
	Reorder       *bool     `json:"Reorder"` // Overrides the suite default when set
	Ranks         int       `json:"Ranks"`
	Check         string    `json:"Check"` // Defaults to integrate_one
	Expected      float64   `json:"Expected"`
	Tolerance     float64   `json:"Tolerance"` // Defaults to 1e-3
	ExpectError   string    `json:"ExpectError"`
}

// InputParameters is a regression suite read from YAML
type InputParameters struct {
	Title      string                 `json:"Title"`
	Parameters *parameters.Parameters `json:"Parameters"`
	Cases      []MeshCase             `json:"Cases"`
}

func (ip *InputParameters) Parse(data []byte) (err error) {
	if err = yaml.Unmarshal(data, ip); err != nil {
		return
	}
	for i, c := range ip.Cases {
		if c.Mesh == "" && c.File == "" {
			return fmt.Errorf("case %d (%s): one of Mesh or File is required", i, c.Name)
		}
		if c.ExpectError != "" {
			if _, ok := errorKinds[c.ExpectError]; !ok {
				return fmt.Errorf("case %d (%s): unknown error kind %q", i, c.Name, c.ExpectError)
			}
		}
		switch c.Check {
		case "", CheckIntegrateOne, CheckExteriorFacets, CheckCoordinateNorms, CheckValidate:
		default:
			return fmt.Errorf("case %d (%s): unknown check %q", i, c.Name, c.Check)
		}
	}
	if ip.Parameters != nil {
		return ip.Parameters.Validate()
	}
	return
}

// ReadFile parses the suite in filename
func ReadFile(filename string) (ip *InputParameters, err error) {
	var data []byte
	if data, err = os.ReadFile(filename); err != nil {
		return
	}
	ip = &InputParameters{}
	if err = ip.Parse(data); err != nil {
		return nil, fmt.Errorf("%s: %w", filename, err)
	}
	return
}

func (ip *InputParameters) Print(w io.Writer) {
	fmt.Fprintf(w, "\"%s\"\t\t= Title\n", ip.Title)
	if ip.Parameters != nil {
		fmt.Fprintf(w, "%v\t\t\t= Reorder Meshes\n", ip.Parameters.ReorderMeshes)
		fmt.Fprintf(w, "[%s]\t\t\t= Partitioner\n", ip.Parameters.Partitioner)
		fmt.Fprintf(w, "[%d]\t\t\t\t= Quadrature Degree Boost\n", ip.Parameters.QuadratureDegreeBoost)
	}
	fmt.Fprintf(w, "[%d]\t\t\t\t= Cases\n", len(ip.Cases))
}

// Result is the outcome of one case
type Result struct {
	Case    MeshCase
	Value   float64
	Err     error
	Pass    bool
	Skipped bool
}

// Run executes every case in order. The suite parameters, when given, are
// installed for the duration of the run.
func (ip *InputParameters) Run(ctx context.Context) (results []Result, err error) {
	if ip.Parameters != nil {
		var restore func()
		if restore, err = parameters.Set(*ip.Parameters); err != nil {
			return
		}
		defer restore()
	}
	log := utils.Logger()
	for _, c := range ip.Cases {
		if err = ctx.Err(); err != nil {
			return
		}
		r := c.run(ctx)
		log.Debug("case",
			zap.String("name", c.Name),
			zap.Float64("value", r.Value),
			zap.Bool("pass", r.Pass),
			zap.Bool("skipped", r.Skipped),
			zap.Error(r.Err))
		results = append(results, r)
	}
	return
}

func (c MeshCase) options() (opts []mesh.Option) {
	opts = append(opts, mesh.WithQuadrilateral(c.Quadrilateral))
	if c.Name != "" {
		opts = append(opts, mesh.WithName(c.Name))
	}
	if c.Diagonal != "" {
		opts = append(opts, mesh.WithDiagonal(mesh.Diagonal(c.Diagonal)))
	}
	if c.Reorder != nil {
		opts = append(opts, mesh.WithReorder(*c.Reorder))
	}
	return
}

func (c MeshCase) build() (*mesh.Mesh, error) {
	if c.Mesh == "" {
		return readers.ReadMeshFile(c.File, c.options()...)
	}
	return mesh.Build(c.Mesh, c.Ints, c.Floats, c.options()...)
}

func (c MeshCase) run(ctx context.Context) (r Result) {
	r.Case = c
	var m *mesh.Mesh
	m, r.Err = c.build()
	if r.Err == nil {
		r.Value, r.Err = c.check(ctx, m)
	}
	if c.ExpectError != "" {
		r.Pass = errors.Is(r.Err, errorKinds[c.ExpectError])
		return
	}
	if errors.Is(r.Err, mesh.ErrBackendUnavailable) {
		r.Skipped = true
		return
	}
	if r.Err != nil {
		return
	}
	tol := c.Tolerance
	if tol == 0 {
		tol = 1e-3
	}
	r.Pass = math.Abs(r.Value-c.Expected) <= tol
	return
}

func (c MeshCase) check(ctx context.Context, m *mesh.Mesh) (float64, error) {
	switch c.Check {
	case CheckValidate:
		return float64(m.NumElements), m.Validate()
	case CheckExteriorFacets:
		return float64(len(m.ExteriorFacets())), nil
	case CheckCoordinateNorms:
		return maxNormDeviation(m, c.Expected)
	}
	if c.Ranks > 1 {
		return parallel.IntegrateOne(ctx, c.Ranks, m)
	}
	return fem.IntegrateOneContext(ctx, m)
}

// maxNormDeviation returns the largest coordinate norm, or the first norm
// that differs from radius by more than a round off
func maxNormDeviation(m *mesh.Mesh, radius float64) (norm float64, err error) {
	coords, err := fem.Coordinates(m)
	if err != nil {
		return
	}
	for _, x := range coords.Dat() {
		var s float64
		for _, v := range x {
			s += v * v
		}
		n := math.Sqrt(s)
		if math.Abs(n-radius) > 1e-12*max(1, radius) {
			return n, nil
		}
		norm = max(norm, n)
	}
	return
}

// PrintResults writes the results as a table and returns the number of
// failed cases
func PrintResults(w io.Writer, results []Result) (failed int) {
	table := tablewriter.NewWriter(w)
	table.SetHeader([]string{"Case", "Mesh", "Check", "Value", "Expected", "Status"})
	for _, r := range results {
		var (
			source = r.Case.Mesh
			check  = r.Case.Check
			value  = strconv.FormatFloat(r.Value, 'g', 8, 64)
			status = "ok"
		)
		if source == "" {
			source = r.Case.File
		}
		if check == "" {
			check = CheckIntegrateOne
		}
		expected := strconv.FormatFloat(r.Case.Expected, 'g', 8, 64)
		if r.Case.ExpectError != "" {
			expected = r.Case.ExpectError
			value = fmt.Sprint(r.Err)
		}
		switch {
		case r.Skipped:
			status = "skipped"
		case !r.Pass:
			status = "FAIL"
			if r.Err != nil && r.Case.ExpectError == "" {
				value = r.Err.Error()
			}
			failed++
		}
		table.Append([]string{r.Case.Name, source, check, value, expected, status})
	}
	table.Render()
	return
}
