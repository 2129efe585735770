package cpu

import (
	"fmt"

	"github.com/jasonlats/lc0/internal/parallel"
	"github.com/jasonlats/lc0/internal/tensor"
)

// Gemm computes c = alpha*op(a)@op(b) + beta*c for row-major matrices,
// where op(a) is m x k, op(b) is k x n and c is m x n.
func (cpu *Backend) Gemm(transA, transB bool, m, n, k int, alpha float64, a, b *tensor.Buffer, beta float64, c *tensor.Buffer) error {
	if m <= 0 || n <= 0 || k <= 0 {
		return fmt.Errorf("cpu: gemm: invalid dimensions m=%d n=%d k=%d", m, n, k)
	}
	dtype := a.DType()
	if b.DType() != dtype || c.DType() != dtype {
		return fmt.Errorf("cpu: gemm: mixed dtypes (a=%s b=%s c=%s)", dtype, b.DType(), c.DType())
	}
	if a.NumElements() < m*k || b.NumElements() < k*n || c.NumElements() < m*n {
		return fmt.Errorf("cpu: gemm: buffers too small for m=%d n=%d k=%d", m, n, k)
	}

	switch dtype {
	case tensor.Float32:
		gemm(transA, transB, m, n, k, alpha, tensor.As[float32](a), tensor.As[float32](b), beta, tensor.As[float32](c), cpu.par)
	case tensor.Float64:
		gemm(transA, transB, m, n, k, alpha, tensor.As[float64](a), tensor.As[float64](b), beta, tensor.As[float64](c), cpu.par)
	default:
		return fmt.Errorf("cpu: gemm: unsupported dtype %s", dtype)
	}
	return nil
}

func gemm[T tensor.DType](transA, transB bool, m, n, k int, alpha float64, a, b []T, beta float64, c []T, par parallel.Config) {
	// One work item per output element: m is often just the batch size, so
	// row-level chunks would leave most cores idle.
	parallel.ForBatch(m, n, func(i, j int) {
		var sum float64
		for p := 0; p < k; p++ {
			var av, bv T
			if transA {
				av = a[p*m+i]
			} else {
				av = a[i*k+p]
			}
			if transB {
				bv = b[j*k+p]
			} else {
				bv = b[p*n+j]
			}
			sum += float64(av) * float64(bv)
		}
		if beta == 0 {
			c[i*n+j] = T(alpha * sum)
		} else {
			c[i*n+j] = T(alpha*sum + beta*float64(c[i*n+j]))
		}
	}, par)
}
