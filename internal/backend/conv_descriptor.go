package backend

import (
	"fmt"

	"github.com/jasonlats/lc0/internal/tensor"
)

// ConvAlgo selects the forward convolution algorithm.
type ConvAlgo int

// Supported forward algorithms.
const (
	// ConvAlgoDirect accumulates the projection in place and needs no
	// workspace. Only valid for 1x1 filters.
	ConvAlgoDirect ConvAlgo = iota
	// ConvAlgoIm2Col lowers the convolution to a patch matrix followed by a
	// matrix multiply. Requires a workspace for the patch matrix.
	ConvAlgoIm2Col
)

// String returns a human-readable algorithm name.
func (a ConvAlgo) String() string {
	switch a {
	case ConvAlgoDirect:
		return "direct"
	case ConvAlgoIm2Col:
		return "im2col"
	default:
		return "unknown"
	}
}

// ConvDescriptor fixes the geometry of a forward convolution: output
// channels, input channels, output spatial size and square filter size.
// Stride is always 1 and padding FilterSize/2, so the spatial size of the
// input equals that of the output.
//
// A descriptor is created once by the owning layer at construction, together
// with its forward algorithm, and is immutable afterwards.
type ConvDescriptor struct {
	COut       int
	CIn        int
	H          int
	W          int
	FilterSize int
	Algo       ConvAlgo
}

// NewConvDescriptor creates a descriptor and resolves its forward algorithm.
func NewConvDescriptor(cOut, cIn, h, w, filterSize int) *ConvDescriptor {
	if cOut <= 0 || cIn <= 0 {
		panic(fmt.Sprintf("backend: invalid conv channels out=%d, in=%d", cOut, cIn))
	}
	if h <= 0 || w <= 0 {
		panic(fmt.Sprintf("backend: invalid conv spatial size %dx%d", h, w))
	}
	if filterSize <= 0 || filterSize%2 == 0 {
		panic(fmt.Sprintf("backend: invalid filter size %d (must be odd)", filterSize))
	}
	d := &ConvDescriptor{
		COut:       cOut,
		CIn:        cIn,
		H:          h,
		W:          w,
		FilterSize: filterSize,
	}
	d.Algo = chooseConvAlgorithm(d)
	return d
}

// chooseConvAlgorithm resolves the forward algorithm for a descriptor.
// 1x1 filters reduce to a plain channel projection; larger filters go
// through the patch-matrix lowering.
func chooseConvAlgorithm(d *ConvDescriptor) ConvAlgo {
	if d.FilterSize == 1 {
		return ConvAlgoDirect
	}
	return ConvAlgoIm2Col
}

// WorkspaceSize returns the scratch bytes Conv2D may use for batch size n
// and the given element type. Zero for algorithms that run in place.
func (d *ConvDescriptor) WorkspaceSize(n int, dtype tensor.DataType) int {
	if d.Algo != ConvAlgoIm2Col {
		return 0
	}
	k := d.FilterSize
	return dtype.Size() * n * d.CIn * k * k * d.H * d.W
}
