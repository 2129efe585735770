package layers

import (
	"fmt"

	"github.com/jasonlats/lc0/internal/backend"
	"github.com/jasonlats/lc0/internal/tensor"
)

// FC is a fully connected layer: output = activation(W @ input + b), mapping
// the predecessor's flattened output to the declared C*H*W output size.
type FC[T tensor.DType] struct {
	base[T]

	inSize     int
	useBias    bool
	useRelu    bool
	useTanh    bool
	useSigmoid bool

	weights *tensor.Buffer // (outSize, inSize) row-major, owned
	biases  *tensor.Buffer // (outSize), owned, nil unless useBias
}

// NewFC creates a fully connected layer producing c*h*w outputs from the
// predecessor's flattened output. At most one of relu, tanh and sigmoid may
// be set.
func NewFC[T tensor.DType](prev Layer[T], c, h, w int, bias, relu, tanh, sigmoid bool) *FC[T] {
	if prev == nil {
		panic("layers: fc requires a predecessor")
	}
	active := 0
	for _, f := range []bool{relu, tanh, sigmoid} {
		if f {
			active++
		}
	}
	if active > 1 {
		panic("layers: fc: at most one activation may be configured")
	}
	return &FC[T]{
		base:       newBase[T](prev, c, h, w),
		inSize:     prev.OutputShape().NumElements(),
		useBias:    bias,
		useRelu:    relu,
		useTanh:    tanh,
		useSigmoid: sigmoid,
	}
}

// LoadWeights stages the host-resident (outSize, inSize) weight matrix, and
// bias when configured, into owned storage. scratch is the staging area for
// the element conversion, touched only during this one-time load.
func (l *FC[T]) LoadWeights(weight, bias []float32, scratch *tensor.Buffer) error {
	outSize := l.shape.NumElements()
	if want := outSize * l.inSize; len(weight) != want {
		return fmt.Errorf("layers: fc weight: expected %d elements, got %d", want, len(weight))
	}

	weights, err := stageWeights[T](weight, scratch)
	if err != nil {
		return err
	}

	if l.useBias {
		if len(bias) != outSize {
			return fmt.Errorf("layers: fc bias: expected %d elements, got %d", outSize, len(bias))
		}
		biases, err := stageWeights[T](bias, scratch)
		if err != nil {
			return err
		}
		l.biases = biases
	}

	l.weights = weights
	return nil
}

// Eval multiplies the flattened input batch by the transposed weight matrix
// through the dense-algebra handle and applies the bias/activation epilogue.
// input2 is unused.
func (l *FC[T]) Eval(n int, output, input, _ *tensor.Buffer, _ *tensor.Buffer, _ int,
	_ backend.DNN, blas backend.BLAS) error {
	outSize := l.shape.NumElements()

	// output[n, outSize] = input[n, inSize] @ weights[outSize, inSize]^T
	if err := blas.Gemm(false, true, n, outSize, l.inSize, 1, input, l.weights, 0, output); err != nil {
		return fmt.Errorf("fc eval: %w", err)
	}

	out := tensor.As[T](output)[:n*outSize]
	if l.useBias {
		addRowBias(out, tensor.As[T](l.biases), n, outSize)
	}
	switch {
	case l.useRelu:
		reluInPlace(out)
	case l.useTanh:
		tanhInPlace(out)
	case l.useSigmoid:
		sigmoidInPlace(out)
	}
	return nil
}
