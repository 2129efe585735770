package webgpu

import (
	"encoding/binary"
	"fmt"
	"math"

	"github.com/go-webgpu/webgpu/wgpu"

	"github.com/jasonlats/lc0/internal/backend"
	"github.com/jasonlats/lc0/internal/tensor"
)

var (
	_ backend.DNN  = (*Backend)(nil)
	_ backend.BLAS = (*Backend)(nil)
)

// Gemm computes c = alpha*op(a)@op(b) + beta*c on the GPU for row-major
// float32 matrices, where op(a) is m x k, op(b) is k x n and c is m x n.
func (b *Backend) Gemm(transA, transB bool, m, n, k int, alpha float64, a, bm *tensor.Buffer, beta float64, c *tensor.Buffer) error {
	if m <= 0 || n <= 0 || k <= 0 {
		return fmt.Errorf("webgpu: gemm: invalid dimensions m=%d n=%d k=%d", m, n, k)
	}
	if a.DType() != tensor.Float32 || bm.DType() != tensor.Float32 || c.DType() != tensor.Float32 {
		return fmt.Errorf("webgpu: only float32 is supported, got %s/%s/%s", a.DType(), bm.DType(), c.DType())
	}
	if a.NumElements() < m*k || bm.NumElements() < k*n || c.NumElements() < m*n {
		return fmt.Errorf("webgpu: gemm: buffers too small for m=%d n=%d k=%d", m, n, k)
	}

	return b.runGemm(transA, transB, m, n, k, alpha, a.Data()[:m*k*4], bm.Data()[:k*n*4], beta, c.Data()[:m*n*4])
}

// runGemm uploads the operands, dispatches the gemm shader over a 16x16 grid
// and reads the result back into c.
func (b *Backend) runGemm(transA, transB bool, m, n, k int, alpha float64, a, bm []byte, beta float64, c []byte) error {
	shader := b.compileShader("gemm", gemmShader)
	pipeline := b.getOrCreatePipeline("gemm", shader)

	bufferA := b.createBuffer(a, wgpu.BufferUsageStorage|wgpu.BufferUsageCopySrc)
	defer bufferA.Release()
	bufferB := b.createBuffer(bm, wgpu.BufferUsageStorage|wgpu.BufferUsageCopySrc)
	defer bufferB.Release()

	// Upload c as well: the shader reads it back when beta is nonzero.
	resultSize := uint64(len(c))
	bufferResult := b.createBuffer(c, wgpu.BufferUsageStorage|wgpu.BufferUsageCopySrc|wgpu.BufferUsageCopyDst)
	defer bufferResult.Release()

	flag := func(v bool) uint32 {
		if v {
			return 1
		}
		return 0
	}
	params := make([]byte, 32)
	binary.LittleEndian.PutUint32(params[0:4], uint32(m))
	binary.LittleEndian.PutUint32(params[4:8], uint32(k))
	binary.LittleEndian.PutUint32(params[8:12], uint32(n))
	binary.LittleEndian.PutUint32(params[12:16], flag(transA))
	binary.LittleEndian.PutUint32(params[16:20], flag(transB))
	binary.LittleEndian.PutUint32(params[20:24], math.Float32bits(float32(alpha)))
	binary.LittleEndian.PutUint32(params[24:28], math.Float32bits(float32(beta)))
	bufferParams := b.createUniformBuffer(params)
	defer bufferParams.Release()

	bindGroupLayout := pipeline.GetBindGroupLayout(0)
	bindGroup := b.device.CreateBindGroupSimple(bindGroupLayout, []wgpu.BindGroupEntry{
		wgpu.BufferBindingEntry(0, bufferA, 0, uint64(len(a))),
		wgpu.BufferBindingEntry(1, bufferB, 0, uint64(len(bm))),
		wgpu.BufferBindingEntry(2, bufferResult, 0, resultSize),
		wgpu.BufferBindingEntry(3, bufferParams, 0, 32),
	})
	defer bindGroup.Release()

	encoder := b.device.CreateCommandEncoder(nil)
	computePass := encoder.BeginComputePass(nil)
	computePass.SetPipeline(pipeline)
	computePass.SetBindGroup(0, bindGroup, nil)
	workgroupsX := uint32((n + 15) / 16)
	workgroupsY := uint32((m + 15) / 16)
	computePass.DispatchWorkgroups(workgroupsX, workgroupsY, 1)
	computePass.End()

	cmdBuffer := encoder.Finish(nil)
	b.queue.Submit(cmdBuffer)

	resultData, err := b.readBuffer(bufferResult, resultSize)
	if err != nil {
		return err
	}
	copy(c, resultData)
	return nil
}

// Softmax normalizes across the channel dimension of the (n, c, spatial)
// input on the GPU, one shader thread per (sample, spatial position) pair.
func (b *Backend) Softmax(n, c, spatial int, out, in *tensor.Buffer) error {
	if n <= 0 || c <= 0 || spatial <= 0 {
		return fmt.Errorf("webgpu: softmax: invalid dimensions n=%d c=%d spatial=%d", n, c, spatial)
	}
	if in.DType() != tensor.Float32 || out.DType() != tensor.Float32 {
		return fmt.Errorf("webgpu: only float32 is supported, got %s/%s", in.DType(), out.DType())
	}
	total := n * c * spatial
	if in.NumElements() < total || out.NumElements() < total {
		return fmt.Errorf("webgpu: softmax: buffers too small for n=%d c=%d spatial=%d", n, c, spatial)
	}

	shader := b.compileShader("channel_softmax", channelSoftmaxShader)
	pipeline := b.getOrCreatePipeline("channel_softmax", shader)

	bufferInput := b.createBuffer(in.Data()[:total*4], wgpu.BufferUsageStorage|wgpu.BufferUsageCopySrc)
	defer bufferInput.Release()

	resultSize := uint64(total * 4)
	bufferResult := b.device.CreateBuffer(&wgpu.BufferDescriptor{
		Usage: wgpu.BufferUsageStorage | wgpu.BufferUsageCopySrc | wgpu.BufferUsageCopyDst,
		Size:  resultSize,
	})
	defer bufferResult.Release()

	params := make([]byte, 16)
	binary.LittleEndian.PutUint32(params[0:4], uint32(n))
	binary.LittleEndian.PutUint32(params[4:8], uint32(c))
	binary.LittleEndian.PutUint32(params[8:12], uint32(spatial))
	bufferParams := b.createUniformBuffer(params)
	defer bufferParams.Release()

	bindGroupLayout := pipeline.GetBindGroupLayout(0)
	bindGroup := b.device.CreateBindGroupSimple(bindGroupLayout, []wgpu.BindGroupEntry{
		wgpu.BufferBindingEntry(0, bufferInput, 0, resultSize),
		wgpu.BufferBindingEntry(1, bufferResult, 0, resultSize),
		wgpu.BufferBindingEntry(2, bufferParams, 0, 16),
	})
	defer bindGroup.Release()

	encoder := b.device.CreateCommandEncoder(nil)
	computePass := encoder.BeginComputePass(nil)
	computePass.SetPipeline(pipeline)
	computePass.SetBindGroup(0, bindGroup, nil)
	rows := n * spatial
	workgroups := uint32((rows + workgroupSize - 1) / workgroupSize)
	computePass.DispatchWorkgroups(workgroups, 1, 1)
	computePass.End()

	cmdBuffer := encoder.Finish(nil)
	b.queue.Submit(cmdBuffer)

	resultData, err := b.readBuffer(bufferResult, resultSize)
	if err != nil {
		return err
	}
	copy(out.Data()[:total*4], resultData)
	return nil
}

// Conv2D computes the forward convolution described by desc, lowering each
// sample to a patch matrix on the host and multiplying it on the GPU. The
// 1x1 direct algorithm skips the lowering: the input sample already is the
// patch matrix.
func (b *Backend) Conv2D(desc *backend.ConvDescriptor, n int, out, in, filter, scratch *tensor.Buffer) error {
	if n <= 0 {
		return fmt.Errorf("webgpu: conv2d: invalid batch size %d", n)
	}
	if in.DType() != tensor.Float32 || out.DType() != tensor.Float32 || filter.DType() != tensor.Float32 {
		return fmt.Errorf("webgpu: only float32 is supported, got %s/%s/%s", in.DType(), out.DType(), filter.DType())
	}

	spatial := desc.H * desc.W
	patch := desc.CIn * desc.FilterSize * desc.FilterSize
	inSampleBytes := desc.CIn * spatial * 4
	outSampleBytes := desc.COut * spatial * 4

	var col []float32
	if desc.Algo != backend.ConvAlgoDirect {
		need := desc.WorkspaceSize(n, tensor.Float32)
		if scratch == nil || scratch.ByteSize() < need {
			have := 0
			if scratch != nil {
				have = scratch.ByteSize()
			}
			return fmt.Errorf("webgpu: conv2d: workspace too small: need %d bytes, have %d", need, have)
		}
		col = tensor.As[float32](scratch)[:patch*spatial]
	}

	filterBytes := filter.Data()[:desc.COut*patch*4]
	for s := 0; s < n; s++ {
		inSample := in.Data()[s*inSampleBytes : (s+1)*inSampleBytes]
		outSample := out.Data()[s*outSampleBytes : (s+1)*outSampleBytes]

		colBytes := inSample
		if desc.Algo != backend.ConvAlgoDirect {
			im2col(desc, col, tensor.As[float32](in)[s*desc.CIn*spatial:(s+1)*desc.CIn*spatial])
			colBytes = scratch.Data()[:patch*spatial*4]
		}

		// out_s[cOut, spatial] = filter[cOut, patch] @ col[patch, spatial]
		if err := b.runGemm(false, false, desc.COut, spatial, patch, 1, filterBytes, colBytes, 0, outSample); err != nil {
			return err
		}
	}
	return nil
}

// im2col expands one sample into the patch matrix
// col[(ci*k + kh)*k + kw, oh*W + ow] = in[ci, oh+kh-pad, ow+kw-pad],
// with zero fill outside the input.
func im2col(desc *backend.ConvDescriptor, col, in []float32) {
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
