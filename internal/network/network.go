// Package network assembles the layer chain of a residual-tower position
// evaluator and drives complete forward passes over it: an input convolution
// stage, a configurable number of residual blocks with optional fused
// squeeze-and-excitation, and separate policy and value heads.
//
// A Network owns its layers and the activation/scratch buffers they evaluate
// through. Forward is synchronous and not safe for concurrent use; concurrent
// batches need separate Network instances.
package network

import (
	"fmt"

	"github.com/jasonlats/lc0/internal/backend"
	"github.com/jasonlats/lc0/internal/layers"
	"github.com/jasonlats/lc0/internal/tensor"
)

type residualBlock[T tensor.DType] struct {
	conv1 *layers.Conv[T]
	bn1   *layers.BatchNorm[T]
	conv2 *layers.Conv[T]
	bn2   *layers.BatchNorm[T]
	se    *layers.SE[T] // nil for plain blocks
}

// Network is a fully assembled evaluator. Weights are loaded once during New
// and immutable afterwards.
type Network[T tensor.DType] struct {
	cfg  Config
	dnn  backend.DNN
	blas backend.BLAS

	inputConv *layers.Conv[T]
	inputBN   *layers.BatchNorm[T]
	blocks    []residualBlock[T]

	policyConv    *layers.Conv[T]
	policyBN      *layers.BatchNorm[T]
	policyFC      *layers.FC[T]
	policySoftmax *layers.SoftMax[T]

	valueConv *layers.Conv[T]
	valueBN   *layers.BatchNorm[T]
	valueFC1  *layers.FC[T]
	valueFC2  *layers.FC[T]

	// Two of the three activation buffers ping-pong through the tower while
	// the third holds the residual skip input; all are sized for MaxBatch.
	t0, t1, t2 *tensor.Buffer
	scratch    *tensor.Buffer
}

// New builds the layer chain for cfg leaf-first, loads w into it and
// allocates the evaluation buffers. Invalid geometry panics; weight arrays of
// the wrong size return an error.
func New[T tensor.DType](cfg Config, w *Weights, dnn backend.DNN, blas backend.BLAS) (*Network[T], error) {
	if cfg.BoardSize == 0 {
		cfg.BoardSize = 8
	}
	validateConfig(cfg)
	if len(w.Residual) != cfg.Blocks {
		return nil, fmt.Errorf("network: expected weights for %d residual blocks, got %d", cfg.Blocks, len(w.Residual))
	}

	board := cfg.BoardSize
	nw := &Network[T]{cfg: cfg, dnn: dnn, blas: blas}

	nw.inputConv = layers.NewConv[T](nil, cfg.Filters, board, board, 3, cfg.InputPlanes, false, false)
	nw.inputBN = layers.NewBatchNorm[T](nw.inputConv, true)

	var prev layers.Layer[T] = nw.inputBN
	for i := 0; i < cfg.Blocks; i++ {
		blk := residualBlock[T]{}
		blk.conv1 = layers.NewConv[T](prev, cfg.Filters, board, board, 3, cfg.Filters, false, false)
		blk.bn1 = layers.NewBatchNorm[T](blk.conv1, true)
		blk.conv2 = layers.NewConv[T](blk.bn1, cfg.Filters, board, board, 3, cfg.Filters, false, false)
		if cfg.SEChannels > 0 {
			// SE applies the skip connection and the final ReLU itself.
			blk.bn2 = layers.NewBatchNorm[T](blk.conv2, false)
			blk.se = layers.NewSE[T](blk.bn2, cfg.SEChannels, false)
			prev = blk.se
		} else {
			blk.bn2 = layers.NewBatchNorm[T](blk.conv2, true)
			prev = blk.bn2
		}
		nw.blocks = append(nw.blocks, blk)
	}

	nw.policyConv = layers.NewConv[T](prev, cfg.PolicyChannels, board, board, 1, cfg.Filters, false, false)
	nw.policyBN = layers.NewBatchNorm[T](nw.policyConv, true)
	nw.policyFC = layers.NewFC[T](nw.policyBN, cfg.PolicyOutputs, 1, 1, true, false, false, false)
	nw.policySoftmax = layers.NewSoftMax[T](nw.policyFC)

	nw.valueConv = layers.NewConv[T](prev, cfg.ValueChannels, board, board, 1, cfg.Filters, false, false)
	nw.valueBN = layers.NewBatchNorm[T](nw.valueConv, true)
	nw.valueFC1 = layers.NewFC[T](nw.valueBN, cfg.ValueFCSize, 1, 1, true, true, false, false)
	nw.valueFC2 = layers.NewFC[T](nw.valueFC1, 1, 1, 1, true, false, true, false)

	nw.allocate(w)
	if err := nw.load(w); err != nil {
		return nil, err
	}
	return nw, nil
}

func validateConfig(cfg Config) {
	for _, d := range []struct {
		name string
		v    int
	}{
		{"input planes", cfg.InputPlanes},
		{"filters", cfg.Filters},
		{"board size", cfg.BoardSize},
		{"policy channels", cfg.PolicyChannels},
		{"policy outputs", cfg.PolicyOutputs},
		{"value channels", cfg.ValueChannels},
		{"value fc size", cfg.ValueFCSize},
		{"max batch", cfg.MaxBatch},
	} {
		if d.v <= 0 {
			panic(fmt.Sprintf("network: %s must be positive, got %d", d.name, d.v))
		}
	}
	if cfg.Blocks < 0 {
		panic(fmt.Sprintf("network: block count must not be negative, got %d", cfg.Blocks))
	}
	if cfg.SEChannels < 0 {
		panic(fmt.Sprintf("network: se channels must not be negative, got %d", cfg.SEChannels))
	}
}

// allocate sizes the three activation buffers by the largest per-layer output
// and the shared scratch by the largest of the convolution workspaces, the
// SE intermediates and the weight-staging footprint.
func (nw *Network[T]) allocate(w *Weights) {
	n := nw.cfg.MaxBatch
	es := tensor.TypeOf[T]().Size()

	maxOut := 0
	scratchBytes := 0
	for _, l := range nw.chain() {
		if s := l.GetOutputSize(n); s > maxOut {
			maxOut = s
		}
		switch l := l.(type) {
		case *layers.Conv[T]:
			if s := l.ScratchSize(n); s > scratchBytes {
				scratchBytes = s
			}
		case *layers.SE[T]:
			if s := l.ScratchSize(n); s > scratchBytes {
				scratchBytes = s
			}
		}
	}
	// Input conv consumes the raw planes, which may be wider than any layer
	// output.
	if s := es * n * nw.cfg.InputPlanes * nw.cfg.BoardSize * nw.cfg.BoardSize; s > maxOut {
		maxOut = s
	}
	if s := es * maxWeightLen(w); s > scratchBytes {
		scratchBytes = s
	}

	dtype := tensor.TypeOf[T]()
	nw.t0 = tensor.NewBuffer(maxOut/es, dtype)
	nw.t1 = tensor.NewBuffer(maxOut/es, dtype)
	nw.t2 = tensor.NewBuffer(maxOut/es, dtype)
	nw.scratch = tensor.NewBuffer(scratchBytes/es, dtype)
}

// chain returns every layer in evaluation order.
func (nw *Network[T]) chain() []layers.Layer[T] {
	ls := []layers.Layer[T]{nw.inputConv, nw.inputBN}
	for _, blk := range nw.blocks {
		ls = append(ls, blk.conv1, blk.bn1, blk.conv2, blk.bn2)
		if blk.se != nil {
			ls = append(ls, blk.se)
		}
	}
	ls = append(ls,
		nw.policyConv, nw.policyBN, nw.policyFC, nw.policySoftmax,
		nw.valueConv, nw.valueBN, nw.valueFC1, nw.valueFC2)
	return ls
}

func maxWeightLen(w *Weights) int {
	m := 0
	grow := func(arrs ...[]float32) {
		for _, a := range arrs {
			if len(a) > m {
				m = len(a)
			}
		}
	}
	grow(w.Input.Filter, w.Policy.Conv.Filter, w.Policy.FCW, w.Policy.FCB,
		w.Value.Conv.Filter, w.Value.FC1W, w.Value.FC1B, w.Value.FC2W, w.Value.FC2B)
	for _, r := range w.Residual {
		grow(r.Conv1.Filter, r.Conv2.Filter, r.SE.W1, r.SE.B1, r.SE.W2, r.SE.B2)
	}
	return m
}

func (nw *Network[T]) load(w *Weights) error {
	loadConvBlock := func(name string, conv *layers.Conv[T], bn *layers.BatchNorm[T], cw ConvBlockWeights) error {
		if err := conv.LoadWeights(cw.Filter, nil, nw.scratch); err != nil {
			return fmt.Errorf("network: %s: %w", name, err)
		}
		if err := bn.LoadWeights(cw.BNMeans, cw.BNVariances); err != nil {
			return fmt.Errorf("network: %s: %w", name, err)
		}
		return nil
	}

	if err := loadConvBlock("input", nw.inputConv, nw.inputBN, w.Input); err != nil {
		return err
	}
	for i, blk := range nw.blocks {
		rw := w.Residual[i]
		if err := loadConvBlock(fmt.Sprintf("block %d conv1", i), blk.conv1, blk.bn1, rw.Conv1); err != nil {
			return err
		}
		if err := loadConvBlock(fmt.Sprintf("block %d conv2", i), blk.conv2, blk.bn2, rw.Conv2); err != nil {
			return err
		}
		if blk.se != nil {
			if err := blk.se.LoadWeights(rw.SE.W1, rw.SE.B1, rw.SE.W2, rw.SE.B2, nil, nw.scratch); err != nil {
				return fmt.Errorf("network: block %d se: %w", i, err)
			}
		}
	}

	if err := loadConvBlock("policy conv", nw.policyConv, nw.policyBN, w.Policy.Conv); err != nil {
		return err
	}
	if err := nw.policyFC.LoadWeights(w.Policy.FCW, w.Policy.FCB, nw.scratch); err != nil {
		return fmt.Errorf("network: policy fc: %w", err)
	}

	if err := loadConvBlock("value conv", nw.valueConv, nw.valueBN, w.Value.Conv); err != nil {
		return err
	}
	if err := nw.valueFC1.LoadWeights(w.Value.FC1W, w.Value.FC1B, nw.scratch); err != nil {
		return fmt.Errorf("network: value fc1: %w", err)
	}
	if err := nw.valueFC2.LoadWeights(w.Value.FC2W, w.Value.FC2B, nw.scratch); err != nil {
		return fmt.Errorf("network: value fc2: %w", err)
	}
	return nil
}

// Config returns the geometry the network was built with, including any
// defaults applied.
func (nw *Network[T]) Config() Config {
	return nw.cfg
}

// Forward evaluates a batch of n encoded positions. input holds
// n*InputPlanes*BoardSize*BoardSize elements; the policy buffer receives
// n*PolicyOutputs softmaxed move probabilities and the value buffer n tanh
// scalars. All three buffers are caller-owned and never retained.
func (nw *Network[T]) Forward(n int, input, policy, value *tensor.Buffer) error {
	if n < 1 || n > nw.cfg.MaxBatch {
		return fmt.Errorf("network: batch size %d outside [1, %d]", n, nw.cfg.MaxBatch)
	}

	t0, t1, t2 := nw.t0, nw.t1, nw.t2
	scratch := nw.scratch
	sb := scratch.ByteSize()

	step := func(name string, err error) error {
		if err != nil {
			return fmt.Errorf("network: %s: %w", name, err)
		}
		return nil
	}

	if err := step("input conv", nw.inputConv.Eval(n, t0, input, nil, scratch, sb, nw.dnn, nw.blas)); err != nil {
		return err
	}
	if err := step("input bn", nw.inputBN.Eval(n, t0, t0, nil, scratch, sb, nw.dnn, nw.blas)); err != nil {
		return err
	}

	// Residual tower. t0 holds the block input throughout; the block result
	// is swapped back into t0 at the end of each iteration.
	for i, blk := range nw.blocks {
		if err := step(fmt.Sprintf("block %d conv1", i), blk.conv1.Eval(n, t1, t0, nil, scratch, sb, nw.dnn, nw.blas)); err != nil {
			return err
		}
		if err := step(fmt.Sprintf("block %d bn1", i), blk.bn1.Eval(n, t1, t1, nil, scratch, sb, nw.dnn, nw.blas)); err != nil {
			return err
		}
		if err := step(fmt.Sprintf("block %d conv2", i), blk.conv2.Eval(n, t2, t1, nil, scratch, sb, nw.dnn, nw.blas)); err != nil {
			return err
		}
		if blk.se != nil {
			if err := step(fmt.Sprintf("block %d bn2", i), blk.bn2.Eval(n, t2, t2, nil, scratch, sb, nw.dnn, nw.blas)); err != nil {
				return err
			}
			if err := step(fmt.Sprintf("block %d se", i), blk.se.Eval(n, t1, t2, t0, scratch, sb, nw.dnn, nw.blas)); err != nil {
				return err
			}
			t0, t1 = t1, t0
		} else {
			if err := step(fmt.Sprintf("block %d bn2", i), blk.bn2.Eval(n, t2, t2, t0, scratch, sb, nw.dnn, nw.blas)); err != nil {
				return err
			}
			t0, t2 = t2, t0
		}
	}

	// Policy head.
	if err := step("policy conv", nw.policyConv.Eval(n, t1, t0, nil, scratch, sb, nw.dnn, nw.blas)); err != nil {
		return err
	}
	if err := step("policy bn", nw.policyBN.Eval(n, t1, t1, nil, scratch, sb, nw.dnn, nw.blas)); err != nil {
		return err
	}
	if err := step("policy fc", nw.policyFC.Eval(n, t2, t1, nil, scratch, sb, nw.dnn, nw.blas)); err != nil {
		return err
	}
	if err := step("policy softmax", nw.policySoftmax.Eval(n, policy, t2, nil, scratch, sb, nw.dnn, nw.blas)); err != nil {
		return err
	}

	// Value head.
	if err := step("value conv", nw.valueConv.Eval(n, t1, t0, nil, scratch, sb, nw.dnn, nw.blas)); err != nil {
		return err
	}
	if err := step("value bn", nw.valueBN.Eval(n, t1, t1, nil, scratch, sb, nw.dnn, nw.blas)); err != nil {
		return err
	}
	if err := step("value fc1", nw.valueFC1.Eval(n, t2, t1, nil, scratch, sb, nw.dnn, nw.blas)); err != nil {
		return err
	}
	if err := step("value fc2", nw.valueFC2.Eval(n, value, t2, nil, scratch, sb, nw.dnn, nw.blas)); err != nil {
		return err
	}
	return nil
}
