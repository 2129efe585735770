package cpu

import (
	"fmt"
	"math"

	"github.com/jasonlats/lc0/internal/tensor"
)

// Softmax normalizes in across c independently for each of the n*spatial
// (batch, position) pairs. Uses the max-subtraction form for stability.
func (cpu *Backend) Softmax(n, c, spatial int, out, in *tensor.Buffer) error {
	if n <= 0 || c <= 0 || spatial <= 0 {
		return fmt.Errorf("cpu: softmax: invalid dimensions n=%d c=%d spatial=%d", n, c, spatial)
	}
	if out.DType() != in.DType() {
		return fmt.Errorf("cpu: softmax: mixed dtypes (in=%s out=%s)", in.DType(), out.DType())
	}
	if in.NumElements() < n*c*spatial || out.NumElements() < n*c*spatial {
		return fmt.Errorf("cpu: softmax: buffers too small for n=%d c=%d spatial=%d", n, c, spatial)
	}

	switch in.DType() {
	case tensor.Float32:
		softmax(n, c, spatial, tensor.As[float32](out), tensor.As[float32](in))
	case tensor.Float64:
		softmax(n, c, spatial, tensor.As[float64](out), tensor.As[float64](in))
	default:
		return fmt.Errorf("cpu: softmax: unsupported dtype %s", in.DType())
	}
	return nil
}

func softmax[T tensor.DType](n, c, spatial int, out, in []T) {
	for s := 0; s < n; s++ {
		for xy := 0; xy < spatial; xy++ {
			base := s * c * spatial

			maxVal := math.Inf(-1)
			for ci := 0; ci < c; ci++ {
				v := float64(in[base+ci*spatial+xy])
				if v > maxVal {
					maxVal = v
				}
			}

			var sum float64
			for ci := 0; ci < c; ci++ {
				e := math.Exp(float64(in[base+ci*spatial+xy]) - maxVal)
				out[base+ci*spatial+xy] = T(e)
				sum += e
			}

			inv := 1 / sum
			for ci := 0; ci < c; ci++ {
				out[base+ci*spatial+xy] = T(float64(out[base+ci*spatial+xy]) * inv)
			}
		}
	}
}
