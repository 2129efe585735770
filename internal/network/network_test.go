package network

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jasonlats/lc0/internal/backend/cpu"
	"github.com/jasonlats/lc0/internal/tensor"
)

func zf(n int) []float32 { return make([]float32, n) }

func of(n int) []float32 {
	v := make([]float32, n)
	for i := range v {
		v[i] = 1
	}
	return v
}

// lcg produces a deterministic stream of small weights.
type lcg struct{ state uint64 }

func (g *lcg) arr(n int) []float32 {
	out := make([]float32, n)
	for i := range out {
		g.state = g.state*6364136223846793005 + 1442695040888963407
		out[i] = float32((g.state>>33)%1000)/2000 - 0.25
	}
	return out
}

func (g *lcg) convBlock(cOut, cIn, k int) ConvBlockWeights {
	return ConvBlockWeights{
		Filter:      g.arr(cOut * cIn * k * k),
		BNMeans:     g.arr(cOut),
		BNVariances: of(cOut),
	}
}

func randomWeights(cfg Config, seed uint64) *Weights {
	g := &lcg{state: seed}
	board := cfg.BoardSize
	spatial := board * board

	w := &Weights{Input: g.convBlock(cfg.Filters, cfg.InputPlanes, 3)}
	for i := 0; i < cfg.Blocks; i++ {
		r := ResidualWeights{
			Conv1: g.convBlock(cfg.Filters, cfg.Filters, 3),
			Conv2: g.convBlock(cfg.Filters, cfg.Filters, 3),
		}
		if cfg.SEChannels > 0 {
			r.SE = SEWeights{
				W1: g.arr(cfg.SEChannels * cfg.Filters),
				B1: g.arr(cfg.SEChannels),
				W2: g.arr(2 * cfg.Filters * cfg.SEChannels),
				B2: g.arr(2 * cfg.Filters),
			}
		}
		w.Residual = append(w.Residual, r)
	}
	w.Policy = PolicyHeadWeights{
		Conv: g.convBlock(cfg.PolicyChannels, cfg.Filters, 1),
		FCW:  g.arr(cfg.PolicyOutputs * cfg.PolicyChannels * spatial),
		FCB:  g.arr(cfg.PolicyOutputs),
	}
	w.Value = ValueHeadWeights{
		Conv: g.convBlock(cfg.ValueChannels, cfg.Filters, 1),
		FC1W: g.arr(cfg.ValueFCSize * cfg.ValueChannels * spatial),
		FC1B: g.arr(cfg.ValueFCSize),
		FC2W: g.arr(cfg.ValueFCSize),
		FC2B: g.arr(1),
	}
	return w
}

// With every filter zeroed the heads reduce to closed forms: uniform policy
// from zero logits, and tanh over the summed FC1 biases for the value.
func TestForward_ClosedForm(t *testing.T) {
	be := cpu.New()
	cfg := Config{
		InputPlanes: 2, Filters: 3, Blocks: 0,
		BoardSize:      2,
		PolicyChannels: 2, PolicyOutputs: 4,
		ValueChannels: 2, ValueFCSize: 3,
		MaxBatch: 2,
	}
	board := cfg.BoardSize * cfg.BoardSize
	w := &Weights{
		Input: ConvBlockWeights{Filter: zf(3 * 2 * 9), BNMeans: zf(3), BNVariances: of(3)},
		Policy: PolicyHeadWeights{
			Conv: ConvBlockWeights{Filter: zf(2 * 3), BNMeans: zf(2), BNVariances: of(2)},
			FCW:  zf(4 * 2 * board),
			FCB:  zf(4),
		},
		Value: ValueHeadWeights{
			Conv: ConvBlockWeights{Filter: zf(2 * 3), BNMeans: zf(2), BNVariances: of(2)},
			FC1W: zf(3 * 2 * board),
			FC1B: of(3), // hidden activations land at relu(1) = 1
			FC2W: of(3), // so the value is tanh(1+1+1)
			FC2B: zf(1),
		},
	}

	nw, err := New[float64](cfg, w, be, be)
	require.NoError(t, err)

	const n = 2
	input := tensor.NewBuffer(n*cfg.InputPlanes*board, tensor.Float64)
	for i := range input.AsFloat64() {
		input.AsFloat64()[i] = float64(i) // irrelevant under zero filters
	}
	policy := tensor.NewBuffer(n*cfg.PolicyOutputs, tensor.Float64)
	value := tensor.NewBuffer(n, tensor.Float64)

	require.NoError(t, nw.Forward(n, input, policy, value))

	for i, p := range policy.AsFloat64() {
		assert.InDelta(t, 0.25, p, 1e-12, "policy element %d", i)
	}
	for i, v := range value.AsFloat64() {
		assert.InDelta(t, math.Tanh(3), v, 1e-12, "value element %d", i)
	}
}

func TestForward_SETower(t *testing.T) {
	be := cpu.New()
	cfg := Config{
		InputPlanes: 3, Filters: 4, Blocks: 2, SEChannels: 2,
		BoardSize:      4,
		PolicyChannels: 2, PolicyOutputs: 5,
		ValueChannels: 2, ValueFCSize: 4,
		MaxBatch: 4,
	}
	nw, err := New[float32](cfg, randomWeights(cfg, 7), be, be)
	require.NoError(t, err)

	board := cfg.BoardSize * cfg.BoardSize
	sampleLen := cfg.InputPlanes * board
	g := lcg{state: 99}

	// Batch of two identical samples.
	input := tensor.NewBuffer(2*sampleLen, tensor.Float32)
	sample := g.arr(sampleLen)
	copy(input.AsFloat32()[:sampleLen], sample)
	copy(input.AsFloat32()[sampleLen:], sample)

	policy := tensor.NewBuffer(2*cfg.PolicyOutputs, tensor.Float32)
	value := tensor.NewBuffer(2, tensor.Float32)
	require.NoError(t, nw.Forward(2, input, policy, value))

	p := policy.AsFloat32()
	for _, row := range [][]float32{p[:cfg.PolicyOutputs], p[cfg.PolicyOutputs:]} {
		sum := float32(0)
		for _, v := range row {
			assert.Positive(t, v)
			sum += v
		}
		assert.InDelta(t, 1.0, sum, 1e-5)
	}
	// Identical samples must produce identical head outputs.
	assert.Equal(t, p[:cfg.PolicyOutputs], p[cfg.PolicyOutputs:])
	v := value.AsFloat32()
	assert.Equal(t, v[0], v[1])
	assert.LessOrEqual(t, float64(v[0]), 1.0)
	assert.GreaterOrEqual(t, float64(v[0]), -1.0)

	// Evaluation is deterministic across calls.
	policy2 := tensor.NewBuffer(2*cfg.PolicyOutputs, tensor.Float32)
	value2 := tensor.NewBuffer(2, tensor.Float32)
	require.NoError(t, nw.Forward(2, input, policy2, value2))
	assert.Equal(t, policy.AsFloat32(), policy2.AsFloat32())
	assert.Equal(t, value.AsFloat32(), value2.AsFloat32())

	// A single-sample batch of the same position agrees with the batched run.
	policy1 := tensor.NewBuffer(cfg.PolicyOutputs, tensor.Float32)
	value1 := tensor.NewBuffer(1, tensor.Float32)
	single := tensor.NewBuffer(sampleLen, tensor.Float32)
	copy(single.AsFloat32(), sample)
	require.NoError(t, nw.Forward(1, single, policy1, value1))
	assert.Equal(t, p[:cfg.PolicyOutputs], policy1.AsFloat32())
	assert.Equal(t, v[0], value1.AsFloat32()[0])
}

func TestNew_WeightValidation(t *testing.T) {
	be := cpu.New()
	cfg := Config{
		InputPlanes: 2, Filters: 3, Blocks: 1,
		BoardSize:      2,
		PolicyChannels: 2, PolicyOutputs: 4,
		ValueChannels: 2, ValueFCSize: 3,
		MaxBatch: 1,
	}

	_, err := New[float32](cfg, &Weights{}, be, be)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "residual blocks")

	w := randomWeights(cfg, 1)
	w.Residual[0].Conv2.Filter = w.Residual[0].Conv2.Filter[:10]
	_, err = New[float32](cfg, w, be, be)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "block 0 conv2")

	w = randomWeights(cfg, 1)
	w.Value.FC1B = nil
	_, err = New[float32](cfg, w, be, be)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "value fc1")
}

func TestForward_BatchBounds(t *testing.T) {
	be := cpu.New()
	cfg := Config{
		InputPlanes: 2, Filters: 3, Blocks: 0,
		BoardSize:      2,
		PolicyChannels: 2, PolicyOutputs: 4,
		ValueChannels: 2, ValueFCSize: 3,
		MaxBatch: 2,
	}
	nw, err := New[float32](cfg, randomWeights(cfg, 5), be, be)
	require.NoError(t, err)

	input := tensor.NewBuffer(3*cfg.InputPlanes*4, tensor.Float32)
	policy := tensor.NewBuffer(3*cfg.PolicyOutputs, tensor.Float32)
	value := tensor.NewBuffer(3, tensor.Float32)

	assert.Error(t, nw.Forward(3, input, policy, value))
	assert.Error(t, nw.Forward(0, input, policy, value))
}

func TestNew_ConfigValidation(t *testing.T) {
	be := cpu.New()
	cfg := Config{InputPlanes: 2, Filters: 3, PolicyChannels: 2, PolicyOutputs: 4,
		ValueChannels: 2, ValueFCSize: 3} // MaxBatch missing
	assert.Panics(t, func() {
		_, _ = New[float32](cfg, &Weights{}, be, be)
	})
}
