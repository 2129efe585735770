package cpu

import (
	"math"
	"testing"

	"github.com/jasonlats/lc0/internal/backend"
	"github.com/jasonlats/lc0/internal/tensor"
)

func TestConv2D_Direct1x1(t *testing.T) {
	cpu := New()

	// 2 -> 2 channels on a 2x2 board: plain channel projection.
	desc := backend.NewConvDescriptor(2, 2, 2, 2, 1)

	in := tensor.NewBuffer(1*2*2*2, tensor.Float32)
	inData := in.AsFloat32()
	for i := range inData {
		inData[i] = float32(i + 1) // ch0: 1..4, ch1: 5..8
	}

	// filter[co, ci]: out0 = in0 + in1, out1 = 2*in0
	filter := tensor.NewBuffer(2*2, tensor.Float32)
	f := filter.AsFloat32()
	f[0], f[1] = 1, 1
	f[2], f[3] = 2, 0

	out := tensor.NewBuffer(1*2*2*2, tensor.Float32)
	if err := cpu.Conv2D(desc, 1, out, in, filter, nil); err != nil {
		t.Fatalf("Conv2D: %v", err)
	}

	expected := []float32{6, 8, 10, 12, 2, 4, 6, 8}
	for i, want := range expected {
		if got := out.AsFloat32()[i]; got != want {
			t.Errorf("out[%d]: expected %f, got %f", i, want, got)
		}
	}
}

func TestConv2D_Im2Col3x3(t *testing.T) {
	cpu := New()

	// 1 -> 1 channel, 3x3 all-ones filter on a 3x3 input with same padding:
	// each output is the sum of the 3x3 neighborhood.
	desc := backend.NewConvDescriptor(1, 1, 3, 3, 3)

	in := tensor.NewBuffer(9, tensor.Float32)
	inData := in.AsFloat32()
	for i := range inData {
		inData[i] = float32(i + 1)
	}

	filter := tensor.NewBuffer(9, tensor.Float32)
	fData := filter.AsFloat32()
	for i := range fData {
		fData[i] = 1
	}

	out := tensor.NewBuffer(9, tensor.Float32)
	scratch := tensor.NewBufferBytes(desc.WorkspaceSize(1, tensor.Float32), tensor.Float32)

	if err := cpu.Conv2D(desc, 1, out, in, filter, scratch); err != nil {
		t.Fatalf("Conv2D: %v", err)
	}

	expected := []float32{12, 21, 16, 27, 45, 33, 24, 39, 28}
	for i, want := range expected {
		if got := out.AsFloat32()[i]; got != want {
			t.Errorf("out[%d]: expected %f, got %f", i, want, got)
		}
	}
}

func TestConv2D_WorkspaceTooSmall(t *testing.T) {
	cpu := New()
	desc := backend.NewConvDescriptor(1, 1, 3, 3, 3)

	in := tensor.NewBuffer(9, tensor.Float32)
	filter := tensor.NewBuffer(9, tensor.Float32)
	out := tensor.NewBuffer(9, tensor.Float32)
	scratch := tensor.NewBuffer(4, tensor.Float32)

	if err := cpu.Conv2D(desc, 1, out, in, filter, scratch); err == nil {
		t.Error("expected error for undersized workspace")
	}
	if err := cpu.Conv2D(desc, 1, out, in, filter, nil); err == nil {
		t.Error("expected error for nil workspace")
	}
}

func TestGemm(t *testing.T) {
	cpu := New()

	// a: 2x3, b: 3x2, c = a @ b
	a := tensor.NewBuffer(6, tensor.Float32)
	copy(a.AsFloat32(), []float32{1, 2, 3, 4, 5, 6})
	b := tensor.NewBuffer(6, tensor.Float32)
	copy(b.AsFloat32(), []float32{7, 8, 9, 10, 11, 12})
	c := tensor.NewBuffer(4, tensor.Float32)

	if err := cpu.Gemm(false, false, 2, 2, 3, 1, a, b, 0, c); err != nil {
		t.Fatalf("Gemm: %v", err)
	}
	expected := []float32{58, 64, 139, 154}
	for i, want := range expected {
		if got := c.AsFloat32()[i]; got != want {
			t.Errorf("c[%d]: expected %f, got %f", i, want, got)
		}
	}
}

func TestGemm_TransB(t *testing.T) {
	cpu := New()

	// a: 2x3, b stored as 2x3, op(b) = b^T: 3x2.
	a := tensor.NewBuffer(6, tensor.Float64)
	copy(a.AsFloat64(), []float64{1, 2, 3, 4, 5, 6})
	b := tensor.NewBuffer(6, tensor.Float64)
	copy(b.AsFloat64(), []float64{7, 9, 11, 8, 10, 12})
	c := tensor.NewBuffer(4, tensor.Float64)

	if err := cpu.Gemm(false, true, 2, 2, 3, 1, a, b, 0, c); err != nil {
		t.Fatalf("Gemm: %v", err)
	}
	expected := []float64{58, 64, 139, 154}
	for i, want := range expected {
		if got := c.AsFloat64()[i]; got != want {
			t.Errorf("c[%d]: expected %f, got %f", i, want, got)
		}
	}
}

func TestGemm_AlphaBeta(t *testing.T) {
	cpu := New()

	// 1x1 matrices: c = 2*(a@b) + 3*c = 2*6 + 3*10 = 42.
	a := tensor.NewBuffer(1, tensor.Float32)
	a.AsFloat32()[0] = 2
	b := tensor.NewBuffer(1, tensor.Float32)
	b.AsFloat32()[0] = 3
	c := tensor.NewBuffer(1, tensor.Float32)
	c.AsFloat32()[0] = 10

	if err := cpu.Gemm(false, false, 1, 1, 1, 2, a, b, 3, c); err != nil {
		t.Fatalf("Gemm: %v", err)
	}
	if got := c.AsFloat32()[0]; got != 42 {
		t.Errorf("expected 42, got %f", got)
	}
}

func TestParallelMatchesSequential(t *testing.T) {
	par := New()
	seq := NewSequential()

	// Large enough to cross the chunking threshold. Each output element is
	// computed by a single goroutine in a fixed order, so the parallel and
	// sequential results must match exactly.
	m, n, k := 37, 29, 17
	a := tensor.NewBuffer(m*k, tensor.Float32)
	b := tensor.NewBuffer(k*n, tensor.Float32)
	for i := range a.AsFloat32() {
		a.AsFloat32()[i] = float32(i%13) - 6
	}
	for i := range b.AsFloat32() {
		b.AsFloat32()[i] = float32(i%7)*0.5 - 1.5
	}

	cp := tensor.NewBuffer(m*n, tensor.Float32)
	cs := tensor.NewBuffer(m*n, tensor.Float32)
	if err := par.Gemm(false, false, m, n, k, 1, a, b, 0, cp); err != nil {
		t.Fatalf("parallel Gemm: %v", err)
	}
	if err := seq.Gemm(false, false, m, n, k, 1, a, b, 0, cs); err != nil {
		t.Fatalf("sequential Gemm: %v", err)
	}
	for i := range cp.AsFloat32() {
		if cp.AsFloat32()[i] != cs.AsFloat32()[i] {
			t.Fatalf("gemm c[%d]: parallel %f, sequential %f", i, cp.AsFloat32()[i], cs.AsFloat32()[i])
		}
	}

	// Same check for the im2col convolution path with a multi-sample batch.
	batch := 3
	desc := backend.NewConvDescriptor(4, 4, 8, 8, 3)
	in := tensor.NewBuffer(batch*4*8*8, tensor.Float32)
	for i := range in.AsFloat32() {
		in.AsFloat32()[i] = float32(i%11) - 5
	}
	filter := tensor.NewBuffer(4*4*3*3, tensor.Float32)
	for i := range filter.AsFloat32() {
		filter.AsFloat32()[i] = float32(i%5)*0.25 - 0.5
	}
	scratch := tensor.NewBufferBytes(desc.WorkspaceSize(batch, tensor.Float32), tensor.Float32)

	op := tensor.NewBuffer(batch*4*8*8, tensor.Float32)
	os := tensor.NewBuffer(batch*4*8*8, tensor.Float32)
	if err := par.Conv2D(desc, batch, op, in, filter, scratch); err != nil {
		t.Fatalf("parallel Conv2D: %v", err)
	}
	if err := seq.Conv2D(desc, batch, os, in, filter, scratch); err != nil {
		t.Fatalf("sequential Conv2D: %v", err)
	}
	for i := range op.AsFloat32() {
		if op.AsFloat32()[i] != os.AsFloat32()[i] {
			t.Fatalf("conv out[%d]: parallel %f, sequential %f", i, op.AsFloat32()[i], os.AsFloat32()[i])
		}
	}
}

func TestSoftmax(t *testing.T) {
	cpu := New()

	// 3 channels, one position: known distribution.
	in := tensor.NewBuffer(3, tensor.Float32)
	copy(in.AsFloat32(), []float32{1, 2, 3})
	out := tensor.NewBuffer(3, tensor.Float32)

	if err := cpu.Softmax(1, 3, 1, out, in); err != nil {
		t.Fatalf("Softmax: %v", err)
	}

	var sum float64
	data := out.AsFloat32()
	for _, v := range data {
		sum += float64(v)
	}
	if math.Abs(sum-1) > 1e-6 {
		t.Errorf("softmax sum: expected 1, got %f", sum)
	}
	if !(data[2] > data[1] && data[1] > data[0]) {
		t.Errorf("softmax ordering violated: %v", data)
	}

	// e^1 : e^2 : e^3 normalized.
	denom := math.Exp(1) + math.Exp(2) + math.Exp(3)
	for i := 0; i < 3; i++ {
		want := math.Exp(float64(i+1)) / denom
		if math.Abs(float64(data[i])-want) > 1e-6 {
			t.Errorf("out[%d]: expected %f, got %f", i, want, data[i])
		}
	}
}

func TestSoftmax_PerPosition(t *testing.T) {
	cpu := New()

	// 2 channels over 2 positions: each position normalizes independently.
	// Position 0: (0, 0) -> (0.5, 0.5). Position 1: (big, small).
	in := tensor.NewBuffer(4, tensor.Float64)
	copy(in.AsFloat64(), []float64{0, 10, 0, 0}) // ch0: [0, 10], ch1: [0, 0]
	out := tensor.NewBuffer(4, tensor.Float64)

	if err := cpu.Softmax(1, 2, 2, out, in); err != nil {
		t.Fatalf("Softmax: %v", err)
	}

	data := out.AsFloat64()
	if math.Abs(data[0]-0.5) > 1e-12 || math.Abs(data[2]-0.5) > 1e-12 {
		t.Errorf("position 0: expected (0.5, 0.5), got (%f, %f)", data[0], data[2])
	}
	if data[1] < 0.99 {
		t.Errorf("position 1 channel 0: expected near 1, got %f", data[1])
	}
}
