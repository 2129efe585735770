// Package layers implements the forward-inference layer chain: a typed
// sequence of computational stages, each owning its trained parameters and
// consuming caller-provided scratch memory to execute one step of a
// convolutional-residual network forward pass.
//
// Layers only hold memory for weights, biases and descriptors; memory for
// input, output and scratch tensors is provided by the caller of Eval.
package layers

import (
	"fmt"

	"github.com/jasonlats/lc0/internal/backend"
	"github.com/jasonlats/lc0/internal/tensor"
)

// Shape is the per-sample output geometry a layer declares at construction:
// channel count, height and width. Immutable once declared; a layer never
// infers shape from the data it processes.
type Shape struct {
	C, H, W int
}

// NumElements returns the per-sample element count C*H*W.
func (s Shape) NumElements() int {
	return s.C * s.H * s.W
}

// String returns the shape as "(C, H, W)".
func (s Shape) String() string {
	return fmt.Sprintf("(%d, %d, %d)", s.C, s.H, s.W)
}

// Layer is one stage of the forward-evaluation chain.
//
// A layer owns its parameter buffers and any descriptors it created, released
// with the layer itself; every tensor buffer passed to Eval is owned by the
// caller and never retained. The input shape of a layer is always its
// predecessor's declared output shape.
type Layer[T tensor.DType] interface {
	// OutputShape returns the (C, H, W) tensor shape this layer produces
	// for one sample.
	OutputShape() Shape

	// GetOutputSize returns the exact byte size of one evaluation's output
	// for batch size n: sizeof(T) * n * C * H * W. Callers must
	// pre-allocate output and scratch buffers at least this large.
	GetOutputSize(n int) int

	// Eval produces output from input for a batch of n samples. input2 is
	// an optional secondary tensor whose meaning is layer-specific (usually
	// a skip connection shaped like the predecessor's output); layers that
	// take none ignore it. scratch provides at least scratchSize bytes of
	// reusable workspace for intermediate results and may be overwritten.
	//
	// Buffer shapes are a documented precondition, not a runtime check.
	// Eval must not resize any buffer, must not retain any reference after
	// returning, and propagates primitive-library failures unchanged.
	Eval(n int, output, input, input2, scratch *tensor.Buffer, scratchSize int,
		dnn backend.DNN, blas backend.BLAS) error
}

// base carries the declared output shape and the non-owning predecessor link
// shared by every layer kind.
type base[T tensor.DType] struct {
	prev  Layer[T]
	shape Shape
}

func newBase[T tensor.DType](prev Layer[T], c, h, w int) base[T] {
	if c <= 0 || h <= 0 || w <= 0 {
		panic(fmt.Sprintf("layers: invalid output shape (%d, %d, %d)", c, h, w))
	}
	return base[T]{prev: prev, shape: Shape{C: c, H: h, W: w}}
}

// OutputShape returns the declared per-sample output shape.
func (b *base[T]) OutputShape() Shape {
	return b.shape
}

// GetOutputSize returns sizeof(T) * n * C * H * W.
func (b *base[T]) GetOutputSize(n int) int {
	return tensor.TypeOf[T]().Size() * n * b.shape.NumElements()
}

// inputShape returns the predecessor's declared output shape, which is this
// layer's implicit input shape.
func (b *base[T]) inputShape() Shape {
	if b.prev == nil {
		panic("layers: layer has no predecessor")
	}
	return b.prev.OutputShape()
}
