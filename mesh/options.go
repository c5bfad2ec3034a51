package mesh

import (
	"go.uber.org/zap"

	"github.com/notargets/femesh/parameters"
	"github.com/notargets/femesh/utils"
)

// Diagonal selects how the structured quadrilaterals of square meshes are
// split into triangles
type Diagonal string

const (
	DiagonalLeft    Diagonal = "left"
	DiagonalRight   Diagonal = "right"
	DiagonalCrossed Diagonal = "crossed"
)

type options struct {
	reorder       *bool
	name          string
	log           *zap.Logger
	quadrilateral bool
	diagonal      Diagonal
}

// Option customises a mesh constructor
type Option func(*options)

// WithReorder overrides the process wide reorder_meshes parameter for one
// mesh.
func WithReorder(reorder bool) Option {
	return func(o *options) {
		o.reorder = &reorder
	}
}

func WithName(name string) Option {
	return func(o *options) {
		o.name = name
	}
}

func WithLogger(l *zap.Logger) Option {
	return func(o *options) {
		o.log = l
	}
}

// WithQuadrilateral makes square and rectangle meshes use quadrilateral
// cells.
func WithQuadrilateral(quad bool) Option {
	return func(o *options) {
		o.quadrilateral = quad
	}
}

func WithDiagonal(d Diagonal) Option {
	return func(o *options) {
		o.diagonal = d
	}
}

func collectOptions(opts []Option) (o *options) {
	o = &options{
		diagonal: DiagonalLeft,
	}
	for _, opt := range opts {
		opt(o)
	}
	if o.log == nil {
		o.log = utils.Logger()
	}
	return
}

// resolveReorder applies the per call override over the global default.
func (o *options) resolveReorder() bool {
	if o.reorder != nil {
		return *o.reorder
	}
	return parameters.Get().ReorderMeshes
}
