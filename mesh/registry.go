package mesh

import (
	"fmt"
	"sort"
	"strings"

	"github.com/samber/lo"
)

// Constructor describes a named mesh constructor and its positional
// arguments, integers first then floats.
type Constructor struct {
	Name   string
	Ints   []string
	Floats []string
	build  func(ints []int, floats []float64, opts ...Option) (*Mesh, error)
}

// Usage renders the constructor signature, e.g. "rectangle nx ny Lx Ly"
func (c Constructor) Usage() string {
	return strings.Join(append(append([]string{c.Name}, c.Ints...), c.Floats...), " ")
}

var constructors = map[string]Constructor{}

func register(name string, ints, floats []string, build func([]int, []float64, ...Option) (*Mesh, error)) {
	constructors[name] = Constructor{Name: name, Ints: ints, Floats: floats, build: build}
}

func init() {
	var (
		n      = []string{"n"}
		nxny   = []string{"nx", "ny"}
		nxnynz = []string{"nx", "ny", "nz"}
		sphere = []string{"refinement", "degree"}
	)
	register("unit_interval", n, nil, func(i []int, _ []float64, o ...Option) (*Mesh, error) {
		return UnitIntervalMesh(i[0], o...)
	})
	register("interval", n, []string{"length"}, func(i []int, f []float64, o ...Option) (*Mesh, error) {
		return IntervalMesh(i[0], f[0], o...)
	})
	register("interval_range", n, []string{"left", "right"}, func(i []int, f []float64, o ...Option) (*Mesh, error) {
		return IntervalMeshRange(i[0], f[0], f[1], o...)
	})
	register("periodic_unit_interval", n, nil, func(i []int, _ []float64, o ...Option) (*Mesh, error) {
		return PeriodicUnitIntervalMesh(i[0], o...)
	})
	register("periodic_interval", n, []string{"length"}, func(i []int, f []float64, o ...Option) (*Mesh, error) {
		return PeriodicIntervalMesh(i[0], f[0], o...)
	})
	register("unit_square", nxny, nil, func(i []int, _ []float64, o ...Option) (*Mesh, error) {
		return UnitSquareMesh(i[0], i[1], o...)
	})
	register("square", nxny, []string{"L"}, func(i []int, f []float64, o ...Option) (*Mesh, error) {
		return SquareMesh(i[0], i[1], f[0], o...)
	})
	register("rectangle", nxny, []string{"Lx", "Ly"}, func(i []int, f []float64, o ...Option) (*Mesh, error) {
		return RectangleMesh(i[0], i[1], f[0], f[1], o...)
	})
	register("periodic_unit_square", nxny, nil, func(i []int, _ []float64, o ...Option) (*Mesh, error) {
		return PeriodicUnitSquareMesh(i[0], i[1], o...)
	})
	register("periodic_square", nxny, []string{"L"}, func(i []int, f []float64, o ...Option) (*Mesh, error) {
		return PeriodicSquareMesh(i[0], i[1], f[0], o...)
	})
	register("periodic_rectangle", nxny, []string{"Lx", "Ly"}, func(i []int, f []float64, o ...Option) (*Mesh, error) {
		return PeriodicRectangleMesh(i[0], i[1], f[0], f[1], o...)
	})
	register("unit_cube", nxnynz, nil, func(i []int, _ []float64, o ...Option) (*Mesh, error) {
		return UnitCubeMesh(i[0], i[1], i[2], o...)
	})
	register("cube", nxnynz, []string{"L"}, func(i []int, f []float64, o ...Option) (*Mesh, error) {
		return CubeMesh(i[0], i[1], i[2], f[0], o...)
	})
	register("box", nxnynz, []string{"Lx", "Ly", "Lz"}, func(i []int, f []float64, o ...Option) (*Mesh, error) {
		return BoxMesh(i[0], i[1], i[2], f[0], f[1], f[2], o...)
	})
	register("unit_triangle", nil, nil, func(_ []int, _ []float64, o ...Option) (*Mesh, error) {
		return UnitTriangleMesh(o...)
	})
	register("unit_tetrahedron", nil, nil, func(_ []int, _ []float64, o ...Option) (*Mesh, error) {
		return UnitTetrahedronMesh(o...)
	})
	register("unit_circle", []string{"resolution"}, nil, func(i []int, _ []float64, o ...Option) (*Mesh, error) {
		return UnitCircleMesh(i[0], o...)
	})
	register("icosahedral_sphere", sphere, []string{"radius"}, func(i []int, f []float64, o ...Option) (*Mesh, error) {
		return IcosahedralSphereMesh(f[0], i[0], i[1], o...)
	})
	register("unit_icosahedral_sphere", sphere, nil, func(i []int, _ []float64, o ...Option) (*Mesh, error) {
		return UnitIcosahedralSphereMesh(i[0], i[1], o...)
	})
	register("cubed_sphere", sphere, []string{"radius"}, func(i []int, f []float64, o ...Option) (*Mesh, error) {
		return CubedSphereMesh(f[0], i[0], i[1], o...)
	})
	register("unit_cubed_sphere", sphere, nil, func(i []int, _ []float64, o ...Option) (*Mesh, error) {
		return UnitCubedSphereMesh(i[0], i[1], o...)
	})
}

// Constructors lists the registered constructors sorted by name
func Constructors() []Constructor {
	names := lo.Keys(constructors)
	sort.Strings(names)
	return lo.Map(names, func(name string, _ int) Constructor { return constructors[name] })
}

// LookupConstructor finds a constructor by name
func LookupConstructor(name string) (c Constructor, ok bool) {
	c, ok = constructors[name]
	return
}

// Build runs the named constructor with positional arguments
func Build(name string, ints []int, floats []float64, opts ...Option) (*Mesh, error) {
	c, ok := constructors[name]
	if !ok {
		return nil, fmt.Errorf("%w: unknown mesh constructor %q", ErrInvalidArgument, name)
	}
	if len(ints) != len(c.Ints) || len(floats) != len(c.Floats) {
		return nil, fmt.Errorf("%w: %s takes %d integer and %d float arguments (%s), got %d and %d",
			ErrInvalidArgument, name, len(c.Ints), len(c.Floats), c.Usage(), len(ints), len(floats))
	}
	return c.build(ints, floats, opts...)
}
