// Package backend defines the narrow contract between the layer core and the
// primitive math libraries that execute its heavy kernels.
//
// Two handles mirror the split found in accelerator stacks between the
// convolution/activation primitive library and the dense-algebra primitive
// library. Both are caller-owned: layers receive them at evaluation time and
// pass them through unchanged, never retaining or releasing them.
package backend

import "github.com/jasonlats/lc0/internal/tensor"

// DNN is the convolution and softmax primitive handle.
//
// All buffers are caller-owned and must share the same element type. Tensor
// geometry is passed explicitly; buffers carry no shape.
type DNN interface {
	// Name identifies the implementation ("CPU", "WebGPU", ...).
	Name() string

	// Conv2D computes the n-batch forward convolution described by desc.
	//
	// in holds NCHW elements of shape (n, desc.CIn, desc.H, desc.W), filter
	// holds OIHW elements of shape (desc.COut, desc.CIn, k, k), and out
	// receives (n, desc.COut, desc.H, desc.W). Stride is 1 and padding k/2,
	// so spatial dimensions are preserved.
	//
	// scratch must provide at least desc.WorkspaceSize(n, dtype) bytes and
	// may be overwritten. It must not alias in, out, or filter.
	Conv2D(desc *ConvDescriptor, n int, out, in, filter, scratch *tensor.Buffer) error

	// Softmax normalizes in across c independently for each of the
	// n*spatial (batch, position) pairs and writes the result to out.
	// in and out hold (n, c, spatial) elements.
	Softmax(n, c, spatial int, out, in *tensor.Buffer) error
}

// BLAS is the dense-algebra primitive handle.
type BLAS interface {
	// Name identifies the implementation.
	Name() string

	// Gemm computes c = alpha*op(a)@op(b) + beta*c for row-major matrices,
	// where op transposes its argument when the corresponding flag is set.
	// op(a) is m x k, op(b) is k x n and c is m x n.
	Gemm(transA, transB bool, m, n, k int, alpha float64, a, b *tensor.Buffer, beta float64, c *tensor.Buffer) error
}
