// Package cpu implements the primitive math handles in pure Go.
//
// It serves as both the convolution/softmax handle (backend.DNN) and the
// dense-algebra handle (backend.BLAS): a single *Backend can be passed for
// both sides of the evaluation contract.
package cpu

import (
	"github.com/jasonlats/lc0/internal/backend"
	"github.com/jasonlats/lc0/internal/parallel"
)

// Backend implements backend.DNN and backend.BLAS on the host CPU.
//
// All operations are synchronous: when a call returns, the output buffer
// holds the result. The heavy loops (matrix multiply, convolution) are
// chunked across cores.
type Backend struct {
	par parallel.Config
}

// New creates a new CPU backend parallelized over the available cores.
func New() *Backend {
	return &Backend{par: parallel.DefaultConfig()}
}

// NewSequential creates a CPU backend restricted to a single goroutine.
func NewSequential() *Backend {
	return &Backend{par: parallel.Config{Enabled: false}}
}

// Name returns the backend name.
func (cpu *Backend) Name() string {
	return "CPU"
}

// Compile-time interface checks.
var (
	_ backend.DNN  = (*Backend)(nil)
	_ backend.BLAS = (*Backend)(nil)
)
