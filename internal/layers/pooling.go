package layers

import (
	"fmt"

	"github.com/jasonlats/lc0/internal/backend"
	"github.com/jasonlats/lc0/internal/tensor"
)

// GlobalAvgPool reduces an (N, C, H, W) tensor to (N, C) by averaging every
// spatial position of each channel: one value per board plane. This is the
// squeeze primitive of squeeze-and-excitation, usable standalone.
type GlobalAvgPool[T tensor.DType] struct {
	base[T]
}

// NewGlobalAvgPool creates a pooling layer with declared shape (C, 1, 1)
// over the predecessor's C channels.
func NewGlobalAvgPool[T tensor.DType](prev Layer[T]) *GlobalAvgPool[T] {
	if prev == nil {
		panic("layers: global avg pool requires a predecessor")
	}
	return &GlobalAvgPool[T]{base: newBase[T](prev, prev.OutputShape().C, 1, 1)}
}

// Eval averages input over the predecessor's H x W positions per channel.
// input2 and scratch are unused.
func (l *GlobalAvgPool[T]) Eval(n int, output, input, _ *tensor.Buffer, _ *tensor.Buffer, _ int,
	_ backend.DNN, _ backend.BLAS) error {
	in := l.inputShape()
	globalAvgPool(tensor.As[T](output), tensor.As[T](input), n, in.C, in.H*in.W)
	return nil
}

// GlobalScale rescales each spatial position of the primary (N, C, H, W)
// tensor by its channel's factor from the secondary (N, C) tensor and adds
// the unscaled primary tensor back in: the excite-plus-skip primitive of
// squeeze-and-excitation.
type GlobalScale[T tensor.DType] struct {
	base[T]
}

// NewGlobalScale creates a scaling layer over the predecessor's output shape.
func NewGlobalScale[T tensor.DType](prev Layer[T]) *GlobalScale[T] {
	if prev == nil {
		panic("layers: global scale requires a predecessor")
	}
	in := prev.OutputShape()
	return &GlobalScale[T]{base: newBase[T](prev, in.C, in.H, in.W)}
}

// Eval computes output = factor_c*input + input, with per-channel factors
// taken from input2.
func (l *GlobalScale[T]) Eval(n int, output, input, input2 *tensor.Buffer, _ *tensor.Buffer, _ int,
	_ backend.DNN, _ backend.BLAS) error {
	if input2 == nil {
		return fmt.Errorf("layers: global scale: missing per-channel factor tensor")
	}
	globalScale(tensor.As[T](output), tensor.As[T](input), tensor.As[T](input2),
		n, l.shape.C, l.shape.H*l.shape.W)
	return nil
}

// globalAvgPool writes out[s, c] = mean over spatial of in[s, c, xy].
// Shared by the standalone layer and the fused SE squeeze step.
func globalAvgPool[T tensor.DType](out, in []T, n, c, spatial int) {
	inv := 1 / float64(spatial)
	for s := 0; s < n; s++ {
		for ci := 0; ci < c; ci++ {
			row := in[(s*c+ci)*spatial : (s*c+ci+1)*spatial]
			var sum float64
			for _, v := range row {
				sum += float64(v)
			}
			out[s*c+ci] = T(sum * inv)
		}
	}
}

// globalScale writes out[s, c, xy] = factors[s, c]*in[s, c, xy] + in[s, c, xy].
func globalScale[T tensor.DType](out, in, factors []T, n, c, spatial int) {
	for s := 0; s < n; s++ {
		for ci := 0; ci < c; ci++ {
			f := float64(factors[s*c+ci])
			row := (s*c + ci) * spatial
			for xy := 0; xy < spatial; xy++ {
				x := float64(in[row+xy])
				out[row+xy] = T(f*x + x)
			}
		}
	}
}
