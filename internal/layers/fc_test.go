package layers

import (
	"math"
	"testing"

	"github.com/jasonlats/lc0/internal/backend/cpu"
	"github.com/jasonlats/lc0/internal/tensor"
)

func TestFC_Identity(t *testing.T) {
	be := cpu.New()

	// Identity weight matrix, no activation: reproduces the flattened input.
	fc := NewFC[float32](anchor[float32](2, 1, 2), 4, 1, 1, false, false, false, false)
	scratch := tensor.NewBuffer(64, tensor.Float32)
	if err := fc.LoadWeights(identityFilter(4), nil, scratch); err != nil {
		t.Fatalf("LoadWeights: %v", err)
	}

	n := 2
	input := tensor.NewBuffer(n*4, tensor.Float32)
	in := input.AsFloat32()
	for i := range in {
		in[i] = float32(i)*0.25 - 1
	}
	output := tensor.NewBuffer(n*4, tensor.Float32)

	if err := fc.Eval(n, output, input, nil, nil, 0, be, be); err != nil {
		t.Fatalf("Eval: %v", err)
	}
	for i := range in {
		if output.AsFloat32()[i] != in[i] {
			t.Errorf("out[%d]: expected %f, got %f", i, in[i], output.AsFloat32()[i])
		}
	}
}

func TestFC_BiasAndTanh(t *testing.T) {
	be := cpu.New()

	// 2 -> 1 with weights (1, 1), bias 0.5, tanh.
	fc := NewFC[float64](anchor[float64](2, 1, 1), 1, 1, 1, true, false, true, false)
	scratch := tensor.NewBuffer(16, tensor.Float64)
	if err := fc.LoadWeights([]float32{1, 1}, []float32{0.5}, scratch); err != nil {
		t.Fatalf("LoadWeights: %v", err)
	}

	input := tensor.NewBuffer(2, tensor.Float64)
	copy(input.AsFloat64(), []float64{0.25, 0.25})
	output := tensor.NewBuffer(1, tensor.Float64)

	if err := fc.Eval(1, output, input, nil, nil, 0, be, be); err != nil {
		t.Fatalf("Eval: %v", err)
	}
	want := math.Tanh(1)
	if got := output.AsFloat64()[0]; math.Abs(got-want) > 1e-12 {
		t.Errorf("expected tanh(1)=%f, got %f", want, got)
	}
}

func TestFC_Relu(t *testing.T) {
	be := cpu.New()

	fc := NewFC[float32](anchor[float32](1, 1, 2), 2, 1, 1, false, true, false, false)
	scratch := tensor.NewBuffer(32, tensor.Float32)
	// Row 0 sums the inputs, row 1 negates the sum.
	if err := fc.LoadWeights([]float32{1, 1, -1, -1}, nil, scratch); err != nil {
		t.Fatalf("LoadWeights: %v", err)
	}

	input := tensor.NewBuffer(2, tensor.Float32)
	copy(input.AsFloat32(), []float32{2, 3})
	output := tensor.NewBuffer(2, tensor.Float32)

	if err := fc.Eval(1, output, input, nil, nil, 0, be, be); err != nil {
		t.Fatalf("Eval: %v", err)
	}
	if out := output.AsFloat32(); out[0] != 5 || out[1] != 0 {
		t.Errorf("expected (5, 0), got (%f, %f)", out[0], out[1])
	}
}

func TestFC_SigmoidAtZero(t *testing.T) {
	be := cpu.New()

	fc := NewFC[float32](anchor[float32](1, 1, 1), 1, 1, 1, false, false, false, true)
	scratch := tensor.NewBuffer(16, tensor.Float32)
	if err := fc.LoadWeights([]float32{0}, nil, scratch); err != nil {
		t.Fatalf("LoadWeights: %v", err)
	}

	input := tensor.NewBuffer(1, tensor.Float32)
	input.AsFloat32()[0] = 42
	output := tensor.NewBuffer(1, tensor.Float32)

	if err := fc.Eval(1, output, input, nil, nil, 0, be, be); err != nil {
		t.Fatalf("Eval: %v", err)
	}
	if got := output.AsFloat32()[0]; got != 0.5 {
		t.Errorf("sigmoid(0): expected 0.5, got %f", got)
	}
}

func TestFC_ActivationFlagsExclusive(t *testing.T) {
	defer func() {
		if recover() == nil {
			t.Error("expected panic when two activation flags are set")
		}
	}()
	NewFC[float32](anchor[float32](1, 1, 1), 1, 1, 1, false, true, true, false)
}

func TestFC_WeightSizeValidation(t *testing.T) {
	fc := NewFC[float32](anchor[float32](2, 1, 1), 3, 1, 1, false, false, false, false)
	scratch := tensor.NewBuffer(64, tensor.Float32)
	if err := fc.LoadWeights([]float32{1, 2, 3}, nil, scratch); err == nil {
		t.Error("expected error for wrong weight matrix size")
	}
}
