package utils

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func laplacian1D(n int) DOK {
	A := NewDOK(n, n)
	for i := 0; i < n; i++ {
		A.AddTo(i, i, 2)
		if i > 0 {
			A.AddTo(i, i-1, -1)
		}
		if i < n-1 {
			A.AddTo(i, i+1, -1)
		}
	}
	return A
}

func TestDOKAccumulates(t *testing.T) {
	A := NewDOK(2, 2)
	A.AddTo(0, 0, 1.5)
	A.AddTo(0, 0, 2.5)
	A.AddTo(1, 0, 0)
	assert.Equal(t, 4.0, A.At(0, 0))
	assert.Equal(t, 0.0, A.At(1, 0))

	A.SetReadOnly("A")
	assert.Panics(t, func() { A.AddTo(1, 1, 1) })
}

func TestCSRMulVec(t *testing.T) {
	A := laplacian1D(4).ToCSR()
	y := make([]float64, 4)
	A.MulVec(y, []float64{1, 1, 1, 1})
	assert.Equal(t, []float64{1, 0, 0, 1}, y)
	assert.Equal(t, []float64{2, 2, 2, 2}, A.Diagonal())
	assert.Equal(t, 10, A.NNZ())
}

func TestSolveCG(t *testing.T) {
	n := 20
	A := laplacian1D(n).ToCSR()
	xe := make([]float64, n)
	for i := range xe {
		xe[i] = float64(i) * 0.25
	}
	b := make([]float64, n)
	A.MulVec(b, xe)

	x, iters, err := SolveCG(A, b, 1.e-12, 0)
	require.NoError(t, err)
	assert.LessOrEqual(t, iters, n)
	assert.InDeltaSlice(t, xe, x, 1.e-9)

	{ // zero right hand side gives zero
		x, _, err = SolveCG(A, make([]float64, n), 1.e-12, 0)
		require.NoError(t, err)
		assert.Equal(t, make([]float64, n), x)
	}
	{ // starved iteration count
		_, _, err = SolveCG(A, b, 1.e-14, 2)
		assert.True(t, errors.Is(err, ErrNotConverged))
	}
	{ // dimension mismatch
		_, _, err = SolveCG(A, b[:3], 1.e-12, 0)
		assert.Error(t, err)
	}
}
