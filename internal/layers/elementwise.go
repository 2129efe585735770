package layers

import (
	"fmt"
	"math"

	"github.com/jasonlats/lc0/internal/tensor"
)

// Elementwise helpers shared by the layers that perform their own pointwise
// math rather than delegating to a primitive handle.

func reluInPlace[T tensor.DType](data []T) {
	for i, v := range data {
		if v < 0 {
			data[i] = 0
		}
	}
}

func tanhInPlace[T tensor.DType](data []T) {
	for i, v := range data {
		data[i] = T(math.Tanh(float64(v)))
	}
}

func sigmoidInPlace[T tensor.DType](data []T) {
	for i, v := range data {
		data[i] = T(sigmoid(float64(v)))
	}
}

func sigmoid(x float64) float64 {
	return 1 / (1 + math.Exp(-x))
}

// addChannelBias adds bias[c] to every spatial position of channel c:
// data holds (n, c, spatial) elements.
func addChannelBias[T tensor.DType](data, bias []T, n, c, spatial int) {
	for s := 0; s < n; s++ {
		for ci := 0; ci < c; ci++ {
			b := bias[ci]
			row := data[(s*c+ci)*spatial : (s*c+ci+1)*spatial]
			for i := range row {
				row[i] += b
			}
		}
	}
}

// addRowBias adds bias[j] to column j of every row: data holds (n, width)
// elements.
func addRowBias[T tensor.DType](data, bias []T, n, width int) {
	for s := 0; s < n; s++ {
		row := data[s*width : (s+1)*width]
		for j := range row {
			row[j] += bias[j]
		}
	}
}

// stageWeights moves host-resident float32 parameters into an owned buffer of
// the active element type, staging the converted values through scratch the
// way a device upload would. scratch must hold sizeof(T)*len(host) bytes and
// is only touched for the duration of the call.
func stageWeights[T tensor.DType](host []float32, scratch *tensor.Buffer) (*tensor.Buffer, error) {
	need := tensor.TypeOf[T]().Size() * len(host)
	if scratch == nil || scratch.ByteSize() < need {
		have := 0
		if scratch != nil {
			have = scratch.ByteSize()
		}
		return nil, fmt.Errorf("layers: weight staging scratch too small: need %d bytes, have %d", need, have)
	}

	view := scratch.View(0, need)
	staged := tensor.As[T](view)
	for i, v := range host {
		staged[i] = T(v)
	}

	owned := tensor.NewBuffer(len(host), tensor.TypeOf[T]())
	copy(owned.Data(), view.Data())
	return owned, nil
}
