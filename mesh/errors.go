package mesh

import "errors"

var (
	// ErrInvalidGeometry reports a domain that cannot be meshed, such as an
	// interval whose right end lies left of its left end.
	ErrInvalidGeometry = errors.New("invalid mesh geometry")
	// ErrInvalidMesh reports inconsistent mesh data, such as points that do
	// not belong to the closure of any cell.
	ErrInvalidMesh = errors.New("invalid mesh")
	// ErrInvalidArgument reports bad constructor arguments.
	ErrInvalidArgument = errors.New("invalid argument")
	// ErrBackendUnavailable is returned by constructors that need an optional
	// mesh generation backend which was not compiled in.
	ErrBackendUnavailable = errors.New("mesh generation backend unavailable")
)
