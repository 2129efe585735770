package layers

import (
	"fmt"

	"github.com/jasonlats/lc0/internal/backend"
	"github.com/jasonlats/lc0/internal/tensor"
)

// SoftMax normalizes across the channel dimension per sample and spatial
// position. Stateless aside from the shape inherited from the predecessor;
// typically the terminal layer of a policy head.
type SoftMax[T tensor.DType] struct {
	base[T]
}

// NewSoftMax creates a softmax layer over the predecessor's output shape.
func NewSoftMax[T tensor.DType](prev Layer[T]) *SoftMax[T] {
	if prev == nil {
		panic("layers: softmax requires a predecessor")
	}
	in := prev.OutputShape()
	return &SoftMax[T]{base: newBase[T](prev, in.C, in.H, in.W)}
}

// Eval normalizes input into output through the primitive handle.
// input2 and scratch are unused.
func (l *SoftMax[T]) Eval(n int, output, input, _ *tensor.Buffer, _ *tensor.Buffer, _ int,
	dnn backend.DNN, _ backend.BLAS) error {
	if err := dnn.Softmax(n, l.shape.C, l.shape.H*l.shape.W, output, input); err != nil {
		return fmt.Errorf("softmax eval: %w", err)
	}
	return nil
}
