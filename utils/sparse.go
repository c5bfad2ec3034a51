package utils

import (
	"errors"
	"fmt"
	"math"

	"github.com/james-bowman/sparse"
	"github.com/james-bowman/sparse/blas"
	"gonum.org/v1/gonum/mat"
)

// ErrNotConverged is returned when an iterative solve runs out of iterations.
var ErrNotConverged = errors.New("iterative solver did not converge")

// DOK is an accumulating dictionary-of-keys matrix used during assembly.
type DOK struct {
	M        *sparse.DOK
	readOnly bool
	name     string
}

func NewDOK(nr, nc int) (R DOK) {
	R = DOK{
		sparse.NewDOK(nr, nc),
		false,
		"unnamed - hint: pass a variable name to SetReadOnly()",
	}
	return
}

// Dims, At and T minimally satisfy the mat.Matrix interface.
func (m DOK) Dims() (r, c int)              { return m.M.Dims() }
func (m DOK) At(i, j int) float64           { return m.M.At(i, j) }
func (m DOK) T() mat.Matrix                 { return m.M.T() }
func (m DOK) RawMatrix() *blas.SparseMatrix { return m.M.ToCSR().RawMatrix() }

// AddTo accumulates val into entry (i,j).
func (m DOK) AddTo(i, j int, val float64) {
	m.checkWritable()
	if val == 0 {
		return
	}
	m.M.Set(i, j, m.M.At(i, j)+val)
}

func (m *DOK) SetReadOnly(name ...string) {
	if len(name) != 0 {
		m.name = name[0]
	}
	m.readOnly = true
}

func (m DOK) checkWritable() {
	if m.readOnly {
		err := fmt.Errorf("attempt to write to a read only matrix named: \"%v\"", m.name)
		panic(err)
	}
}

func (m DOK) ToCSR() CSR {
	return CSR{
		M:    m.M.ToCSR(),
		name: m.name,
	}
}

// CSR is the compressed row form used by the solvers.
type CSR struct {
	M    *sparse.CSR
	name string
}

func (m CSR) Dims() (r, c int)              { return m.M.Dims() }
func (m CSR) At(i, j int) float64           { return m.M.At(i, j) }
func (m CSR) T() mat.Matrix                 { return m.M.T() }
func (m CSR) RawMatrix() *blas.SparseMatrix { return m.M.RawMatrix() }
func (m CSR) NNZ() int                      { return m.M.NNZ() }

// MulVec computes dst = A*x directly on the compressed storage.
func (m CSR) MulVec(dst, x []float64) {
	var (
		raw = m.RawMatrix()
	)
	for i := 0; i < raw.I; i++ {
		var sum float64
		for k := raw.Indptr[i]; k < raw.Indptr[i+1]; k++ {
			sum += raw.Data[k] * x[raw.Ind[k]]
		}
		dst[i] = sum
	}
}

// Diagonal returns the main diagonal of the matrix.
func (m CSR) Diagonal() (d []float64) {
	var (
		raw = m.RawMatrix()
	)
	d = make([]float64, raw.I)
	for i := 0; i < raw.I; i++ {
		for k := raw.Indptr[i]; k < raw.Indptr[i+1]; k++ {
			if raw.Ind[k] == i {
				d[i] += raw.Data[k]
			}
		}
	}
	return
}

// SolveCG solves A x = b for symmetric positive definite A with Jacobi
// preconditioned conjugate gradients. The iteration stops once the residual
// norm drops below tol times the norm of b.
func SolveCG(A CSR, b []float64, tol float64, maxIter int) (x []float64, iters int, err error) {
	var (
		n, nc = A.Dims()
		r     = make([]float64, n)
		z     = make([]float64, n)
		p     = make([]float64, n)
		Ap    = make([]float64, n)
		diag  = A.Diagonal()
	)
	if n != nc || len(b) != n {
		err = fmt.Errorf("dimension mismatch: A is %dx%d, len(b) = %d", n, nc, len(b))
		return
	}
	x = make([]float64, n)
	if n == 0 {
		return
	}
	if maxIter <= 0 {
		maxIter = 10 * n
	}
	for i := range diag {
		if diag[i] <= 0 {
			err = fmt.Errorf("non positive diagonal %g at row %d of %q", diag[i], i, A.name)
			return
		}
	}
	bnorm := norm2(b)
	if bnorm == 0 {
		return
	}
	copy(r, b)
	for i := range z {
		z[i] = r[i] / diag[i]
	}
	copy(p, z)
	rz := dot(r, z)
	for iters = 0; iters < maxIter; iters++ {
		if norm2(r) <= tol*bnorm {
			return
		}
		A.MulVec(Ap, p)
		alpha := rz / dot(p, Ap)
		for i := range x {
			x[i] += alpha * p[i]
			r[i] -= alpha * Ap[i]
		}
		for i := range z {
			z[i] = r[i] / diag[i]
		}
		rzNew := dot(r, z)
		beta := rzNew / rz
		rz = rzNew
		for i := range p {
			p[i] = z[i] + beta*p[i]
		}
	}
	if norm2(r) <= tol*bnorm {
		return
	}
	err = fmt.Errorf("%w after %d iterations, residual %g", ErrNotConverged, iters, norm2(r)/bnorm)
	return
}

func dot(a, b []float64) (s float64) {
	for i := range a {
		s += a[i] * b[i]
	}
	return
}

func norm2(a []float64) float64 {
	return math.Sqrt(dot(a, a))
}
