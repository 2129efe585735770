package layers

import (
	"fmt"

	"github.com/jasonlats/lc0/internal/backend"
	"github.com/jasonlats/lc0/internal/tensor"
)

// Conv performs 2-D convolution of the input against a square filter, with
// optional fused bias add and ReLU. Stride is 1 and padding filterSize/2, so
// the spatial size of the output equals that of the input.
//
// The 1x1-filter, no-activation configuration is also valid and is used for
// channel-projection layers (e.g. head inputs and SE projections).
type Conv[T tensor.DType] struct {
	base[T]

	cIn        int
	filterSize int
	useRelu    bool
	useBias    bool

	desc    *backend.ConvDescriptor
	weights *tensor.Buffer // (C, cIn, k, k), owned
	biases  *tensor.Buffer // (C), owned, nil unless useBias
}

// NewConv creates a convolution layer producing c channels at h x w.
//
// prev may be nil for the input-adjacent layer, in which case cIn describes
// the raw input planes; otherwise the predecessor's output shape must equal
// (cIn, h, w). The convolution descriptor, including the forward algorithm
// and any workspace requirement, is resolved here, not per call.
func NewConv[T tensor.DType](prev Layer[T], c, h, w, filterSize, cIn int, relu, bias bool) *Conv[T] {
	l := &Conv[T]{
		base:       newBase[T](prev, c, h, w),
		cIn:        cIn,
		filterSize: filterSize,
		useRelu:    relu,
		useBias:    bias,
	}
	if prev != nil {
		in := prev.OutputShape()
		if in.C != cIn || in.H != h || in.W != w {
			panic(fmt.Sprintf("layers: conv input shape %s incompatible with (%d, %d, %d)", in, cIn, h, w))
		}
	}
	l.desc = backend.NewConvDescriptor(c, cIn, h, w, filterSize)
	return l
}

// LoadWeights stages the host-resident filter, and bias when configured,
// into owned storage. scratch is used as the staging area for the element
// conversion and is only touched during this one-time load, never by Eval.
func (l *Conv[T]) LoadWeights(filter, bias []float32, scratch *tensor.Buffer) error {
	k := l.filterSize
	if want := l.shape.C * l.cIn * k * k; len(filter) != want {
		return fmt.Errorf("layers: conv filter: expected %d elements, got %d", want, len(filter))
	}

	weights, err := stageWeights[T](filter, scratch)
	if err != nil {
		return err
	}

	if l.useBias {
		if len(bias) != l.shape.C {
			return fmt.Errorf("layers: conv bias: expected %d elements, got %d", l.shape.C, len(bias))
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

// ScratchSize returns the convolution workspace bytes Eval requires for
// batch size n. Zero for the direct algorithm.
func (l *Conv[T]) ScratchSize(n int) int {
	return l.desc.WorkspaceSize(n, tensor.TypeOf[T]())
}

// Eval convolves input into output and applies the fused bias/ReLU epilogue.
// input2 is unused. scratch serves as the convolution workspace.
func (l *Conv[T]) Eval(n int, output, input, _ *tensor.Buffer, scratch *tensor.Buffer, scratchSize int,
	dnn backend.DNN, _ backend.BLAS) error {
	if need := l.desc.WorkspaceSize(n, tensor.TypeOf[T]()); need > scratchSize {
		return fmt.Errorf("layers: conv: scratch holds %d bytes, workspace needs %d", scratchSize, need)
	}
	if err := dnn.Conv2D(l.desc, n, output, input, l.weights, scratch); err != nil {
		return fmt.Errorf("conv eval: %w", err)
	}

	out := tensor.As[T](output)[:n*l.shape.NumElements()]
	if l.useBias {
		addChannelBias(out, tensor.As[T](l.biases), n, l.shape.C, l.shape.H*l.shape.W)
	}
	if l.useRelu {
		reluInPlace(out)
	}
	return nil
}
