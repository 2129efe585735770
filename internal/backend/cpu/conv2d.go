package cpu

import (
	"fmt"

	"github.com/jasonlats/lc0/internal/backend"
	"github.com/jasonlats/lc0/internal/parallel"
	"github.com/jasonlats/lc0/internal/tensor"
)

// Conv2D computes the forward convolution described by desc for a batch of n
// samples. Stride is 1 and padding desc.FilterSize/2, so spatial dimensions
// are preserved.
//
// 1x1 filters take the direct channel-projection path; larger filters are
// lowered to a patch matrix in scratch followed by a matrix multiply
// (im2col, Chellapilla et al., 2006).
func (cpu *Backend) Conv2D(desc *backend.ConvDescriptor, n int, out, in, filter, scratch *tensor.Buffer) error {
	if n <= 0 {
		return fmt.Errorf("cpu: conv2d: invalid batch size %d", n)
	}
	dtype := in.DType()
	if out.DType() != dtype || filter.DType() != dtype {
		return fmt.Errorf("cpu: conv2d: mixed dtypes (in=%s out=%s filter=%s)",
			dtype, out.DType(), filter.DType())
	}
	if need := desc.WorkspaceSize(n, dtype); need > 0 {
		if scratch == nil || scratch.ByteSize() < need {
			have := 0
			if scratch != nil {
				have = scratch.ByteSize()
			}
			return fmt.Errorf("cpu: conv2d: workspace too small: need %d bytes, have %d", need, have)
		}
	}

	switch dtype {
	case tensor.Float32:
		conv2d[float32](desc, n, out, in, filter, scratch, cpu.par)
	case tensor.Float64:
		conv2d[float64](desc, n, out, in, filter, scratch, cpu.par)
	default:
		return fmt.Errorf("cpu: conv2d: unsupported dtype %s", dtype)
	}
	return nil
}

func conv2d[T tensor.DType](desc *backend.ConvDescriptor, n int, out, in, filter, scratch *tensor.Buffer, par parallel.Config) {
	outData := tensor.As[T](out)
	inData := tensor.As[T](in)
	filterData := tensor.As[T](filter)

	if desc.Algo == backend.ConvAlgoDirect {
		conv1x1(desc, n, outData, inData, filterData, par)
		return
	}

	col := tensor.As[T](scratch)
	spatial := desc.H * desc.W
	patch := desc.CIn * desc.FilterSize * desc.FilterSize

	// Each sample has its own patch-matrix region in scratch, so samples
	// are independent work items. Per-sample work is a full im2col plus a
	// matmul; chunking by threshold would serialize small batches.
	perSample := par
	perSample.MinChunkSize = 1
	parallel.For(n, func(s int) {
		colSample := col[s*patch*spatial : (s+1)*patch*spatial]
		im2col(desc, colSample, inData[s*desc.CIn*spatial:(s+1)*desc.CIn*spatial])

		// out_s[cOut, spatial] = filter[cOut, patch] @ colSample[patch, spatial]
		outSample := outData[s*desc.COut*spatial : (s+1)*desc.COut*spatial]
		for i := 0; i < desc.COut; i++ {
			for j := 0; j < spatial; j++ {
				var sum T
				for p := 0; p < patch; p++ {
					sum += filterData[i*patch+p] * colSample[p*spatial+j]
				}
				outSample[i*spatial+j] = sum
			}
		}
	}, perSample)
}

// conv1x1 projects channels directly: out[s, co, xy] = sum_ci f[co, ci] * in[s, ci, xy].
func conv1x1[T tensor.DType](desc *backend.ConvDescriptor, n int, out, in, filter []T, par parallel.Config) {
	spatial := desc.H * desc.W
	parallel.ForBatch(n, desc.COut, func(s, co int) {
		inSample := in[s*desc.CIn*spatial:]
		outSample := out[s*desc.COut*spatial:]
		for xy := 0; xy < spatial; xy++ {
			var sum T
			for ci := 0; ci < desc.CIn; ci++ {
				sum += filter[co*desc.CIn+ci] * inSample[ci*spatial+xy]
			}
			outSample[co*spatial+xy] = sum
		}
	}, par)
}

// im2col expands one sample into the patch matrix
// col[(ci*k + kh)*k + kw, oh*W + ow] = in[ci, oh+kh-pad, ow+kw-pad],
// with zero fill outside the input.
func im2col[T tensor.DType](desc *backend.ConvDescriptor, col, in []T) {
	k := desc.FilterSize
	pad := k / 2
	h, w := desc.H, desc.W
	spatial := h * w

	row := 0
	for ci := 0; ci < desc.CIn; ci++ {
		for kh := 0; kh < k; kh++ {
			for kw := 0; kw < k; kw++ {
				dst := col[row*spatial:]
				for oh := 0; oh < h; oh++ {
					ih := oh + kh - pad
					for ow := 0; ow < w; ow++ {
						iw := ow + kw - pad
						if ih < 0 || ih >= h || iw < 0 || iw >= w {
							dst[oh*w+ow] = 0
						} else {
							dst[oh*w+ow] = in[ci*spatial+ih*w+iw]
						}
					}
				}
				row++
			}
		}
	}
}
