package fem

import (
	"errors"

	"github.com/notargets/femesh/utils"
)

var (
	// ErrUnsupported reports a space, element or rule that cannot be built
	ErrUnsupported = errors.New("unsupported finite element configuration")
	// ErrIncompatible reports functions or spaces that do not share a mesh
	// or value shape
	ErrIncompatible = errors.New("incompatible function spaces")
	// ErrNotConverged is returned when the projection solve fails to reach
	// its tolerance
	ErrNotConverged = utils.ErrNotConverged
)
