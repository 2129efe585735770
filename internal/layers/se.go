package layers

import (
	"fmt"

	"github.com/jasonlats/lc0/internal/backend"
	"github.com/jasonlats/lc0/internal/tensor"
)

// SE is the fused squeeze-and-excitation layer:
//
//	(optional deferred bias add) -> global average pool -> FC1 (ReLU) ->
//	FC2 -> sigmoid-gated scale + per-channel bias + skip connection -> ReLU
//
// all in one evaluation, replacing what would otherwise be four separate
// layer passes over the full tensor. FC2 produces 2*C outputs per sample:
// the first C are gate logits, the second C additive terms.
//
// addPrevLayerBias supports directly following a bias-less convolution: the
// convolution's bias is staged here and fused into the first step instead of
// costing an extra full-tensor pass.
type SE[T tensor.DType] struct {
	base[T]

	numFc1Out        int
	addPrevLayerBias bool

	w1    *tensor.Buffer // (numFc1Out, C), owned
	b1    *tensor.Buffer // (numFc1Out), owned
	w2    *tensor.Buffer // (2C, numFc1Out), owned
	b2    *tensor.Buffer // (2C), owned
	bPrev *tensor.Buffer // (C), owned, nil unless addPrevLayerBias
}

// NewSE creates a fused SE layer over the predecessor's output shape, with
// an FC1 reduction width of numFc1Out channels.
func NewSE[T tensor.DType](prev Layer[T], numFc1Out int, addPrevLayerBias bool) *SE[T] {
	if prev == nil {
		panic("layers: se requires a predecessor")
	}
	if numFc1Out <= 0 {
		panic(fmt.Sprintf("layers: se: invalid fc1 width %d", numFc1Out))
	}
	in := prev.OutputShape()
	return &SE[T]{
		base:             newBase[T](prev, in.C, in.H, in.W),
		numFc1Out:        numFc1Out,
		addPrevLayerBias: addPrevLayerBias,
	}
}

// LoadWeights stages the two FC stages and, when configured, the deferred
// previous-layer bias into owned storage. w1 is (numFc1Out, C), b1
// (numFc1Out), w2 (2C, numFc1Out), b2 (2C) and prevLayerBias (C); all
// row-major host float32. scratch is the conversion staging area, touched
// only during this one-time load.
func (l *SE[T]) LoadWeights(w1, b1, w2, b2, prevLayerBias []float32, scratch *tensor.Buffer) error {
	c := l.shape.C
	sizes := []struct {
		name string
		got  int
		want int
	}{
		{"w1", len(w1), l.numFc1Out * c},
		{"b1", len(b1), l.numFc1Out},
		{"w2", len(w2), 2 * c * l.numFc1Out},
		{"b2", len(b2), 2 * c},
	}
	for _, s := range sizes {
		if s.got != s.want {
			return fmt.Errorf("layers: se %s: expected %d elements, got %d", s.name, s.want, s.got)
		}
	}

	var err error
	if l.w1, err = stageWeights[T](w1, scratch); err != nil {
		return err
	}
	if l.b1, err = stageWeights[T](b1, scratch); err != nil {
		return err
	}
	if l.w2, err = stageWeights[T](w2, scratch); err != nil {
		return err
	}
	if l.b2, err = stageWeights[T](b2, scratch); err != nil {
		return err
	}

	if l.addPrevLayerBias {
		if len(prevLayerBias) != c {
			return fmt.Errorf("layers: se previous-layer bias: expected %d elements, got %d", c, len(prevLayerBias))
		}
		if l.bPrev, err = stageWeights[T](prevLayerBias, scratch); err != nil {
			return err
		}
	}
	return nil
}

// ScratchSize returns the bytes Eval carves out of scratch for batch size n:
// the bias-corrected copy (only when addPrevLayerBias is set), the pooled
// (N, C) summary and the two FC intermediates.
func (l *SE[T]) ScratchSize(n int) int {
	c := l.shape.C
	elems := n*c + n*l.numFc1Out + n*2*c
	if l.addPrevLayerBias {
		elems += n * l.shape.NumElements()
	}
	return tensor.TypeOf[T]().Size() * elems
}

// Eval computes output = relu(sigmoid(gate_c)*x + bias_c + input2), where x
// is input with the deferred previous-layer bias applied when configured,
// and gate/bias come from the two FC stages over the pooled summary of x.
// input2 is the skip connection; when nil no skip term is added.
//
// The sub-steps share their math with the standalone GlobalAvgPool and
// GlobalScale layers; intermediates live in caller scratch, carved through
// buffer views.
func (l *SE[T]) Eval(n int, output, input, input2 *tensor.Buffer, scratch *tensor.Buffer, scratchSize int,
	_ backend.DNN, blas backend.BLAS) error {
	if need := l.ScratchSize(n); scratchSize < need || scratch == nil || scratch.ByteSize() < need {
		return fmt.Errorf("layers: se: scratch holds %d bytes, need %d", scratchSize, need)
	}

	c := l.shape.C
	spatial := l.shape.H * l.shape.W
	es := tensor.TypeOf[T]().Size()

	// Carve the intermediates out of scratch.
	offset := 0
	carve := func(elems int) *tensor.Buffer {
		v := scratch.View(offset, elems*es)
		offset += elems * es
		return v
	}

	x := input
	if l.addPrevLayerBias {
		corrected := carve(n * c * spatial)
		copy(corrected.Data(), input.Data()[:n*c*spatial*es])
		addChannelBias(tensor.As[T](corrected), tensor.As[T](l.bPrev), n, c, spatial)
		x = corrected
	}
	pooled := carve(n * c)
	fc1 := carve(n * l.numFc1Out)
	fc2 := carve(n * 2 * c)

	// Squeeze: one scalar per channel per sample.
	globalAvgPool(tensor.As[T](pooled), tensor.As[T](x), n, c, spatial)

	// FC1 reduction with ReLU.
	if err := blas.Gemm(false, true, n, l.numFc1Out, c, 1, pooled, l.w1, 0, fc1); err != nil {
		return fmt.Errorf("se eval fc1: %w", err)
	}
	addRowBias(tensor.As[T](fc1), tensor.As[T](l.b1), n, l.numFc1Out)
	reluInPlace(tensor.As[T](fc1))

	// FC2 expansion to gate logits and additive terms.
	if err := blas.Gemm(false, true, n, 2*c, l.numFc1Out, 1, fc1, l.w2, 0, fc2); err != nil {
		return fmt.Errorf("se eval fc2: %w", err)
	}
	addRowBias(tensor.As[T](fc2), tensor.As[T](l.b2), n, 2*c)

	// Excite: gated scale, additive term, skip connection, ReLU.
	xData := tensor.As[T](x)
	outData := tensor.As[T](output)
	fc2Data := tensor.As[T](fc2)
	var skip []T
	if input2 != nil {
		skip = tensor.As[T](input2)
	}
	for s := 0; s < n; s++ {
		for ci := 0; ci < c; ci++ {
			gate := sigmoid(float64(fc2Data[s*2*c+ci]))
			add := float64(fc2Data[s*2*c+c+ci])
			row := (s*c + ci) * spatial
			for xy := 0; xy < spatial; xy++ {
				v := gate*float64(xData[row+xy]) + add
				if skip != nil {
					v += float64(skip[row+xy])
				}
				if v < 0 {
					v = 0
				}
				outData[row+xy] = T(v)
			}
		}
	}
	return nil
}
