package layers

import (
	"fmt"
	"math"

	"github.com/jasonlats/lc0/internal/backend"
	"github.com/jasonlats/lc0/internal/tensor"
)

// BatchNorm applies per-channel normalization using precomputed mean and
// variance statistics, with an optional skip-connection add and an optional
// fused ReLU.
//
// The statistics are always held in float64 regardless of the active element
// type: they are small and precision-insensitive, so narrowing them buys
// nothing. The normalization is computed by the layer itself rather than
// through a primitive handle.
type BatchNorm[T tensor.DType] struct {
	base[T]

	useRelu bool

	means     []float64
	variances []float64
}

// NewBatchNorm creates a normalization layer over the predecessor's output
// shape.
func NewBatchNorm[T tensor.DType](prev Layer[T], relu bool) *BatchNorm[T] {
	if prev == nil {
		panic("layers: batchnorm requires a predecessor")
	}
	in := prev.OutputShape()
	return &BatchNorm[T]{
		base:    newBase[T](prev, in.C, in.H, in.W),
		useRelu: relu,
	}
}

// LoadWeights stores the per-channel means and variances. The loader is
// expected to have folded the stabilizing epsilon into the variances.
func (l *BatchNorm[T]) LoadWeights(means, variances []float32) error {
	if len(means) != l.shape.C || len(variances) != l.shape.C {
		return fmt.Errorf("layers: batchnorm statistics: expected %d channels, got %d means and %d variances",
			l.shape.C, len(means), len(variances))
	}
	l.means = make([]float64, l.shape.C)
	l.variances = make([]float64, l.shape.C)
	for i := range means {
		l.means[i] = float64(means[i])
		l.variances[i] = float64(variances[i])
	}
	return nil
}

// Eval computes output = relu?((input - mean) / sqrt(variance) + input2),
// where the input2 skip add and the ReLU each apply only when configured.
func (l *BatchNorm[T]) Eval(n int, output, input, input2 *tensor.Buffer, _ *tensor.Buffer, _ int,
	_ backend.DNN, _ backend.BLAS) error {
	c := l.shape.C
	spatial := l.shape.H * l.shape.W

	in := tensor.As[T](input)
	out := tensor.As[T](output)
	var skip []T
	if input2 != nil {
		skip = tensor.As[T](input2)
	}

	for s := 0; s < n; s++ {
		for ci := 0; ci < c; ci++ {
			mean := l.means[ci]
			inv := 1 / math.Sqrt(l.variances[ci])
			row := (s*c + ci) * spatial
			for xy := 0; xy < spatial; xy++ {
				v := (float64(in[row+xy]) - mean) * inv
				if skip != nil {
					v += float64(skip[row+xy])
				}
				if l.useRelu && v < 0 {
					v = 0
				}
				out[row+xy] = T(v)
			}
		}
	}
	return nil
}
