// Copyright 2025 The lc0 Authors. All rights reserved.
// Use of this source code is governed by an Apache 2.0
// license that can be found in the LICENSE file.

// Package layers provides the public API for the forward-inference layer
// chain. Each layer owns its trained parameters and descriptors; all
// input, output and scratch memory is caller-owned and passed into Eval.
package layers

import (
	"github.com/jasonlats/lc0/internal/layers"
	"github.com/jasonlats/lc0/tensor"
)

// Shape is a layer's per-sample output geometry.
type Shape = layers.Shape

// Layer is one stage of the forward-evaluation chain.
type Layer[T tensor.DType] = layers.Layer[T]

// Conv is a stride-1, spatial-preserving 2-D convolution with optional fused
// bias and ReLU.
type Conv[T tensor.DType] = layers.Conv[T]

// BatchNorm applies precomputed per-channel normalization statistics with an
// optional skip add and ReLU.
type BatchNorm[T tensor.DType] = layers.BatchNorm[T]

// FC is a fully connected layer with an optional bias and at most one of
// ReLU, tanh or sigmoid.
type FC[T tensor.DType] = layers.FC[T]

// SoftMax normalizes across the channel dimension.
type SoftMax[T tensor.DType] = layers.SoftMax[T]

// SE is the fused squeeze-and-excitation layer.
type SE[T tensor.DType] = layers.SE[T]

// GlobalAvgPool reduces each channel plane to its mean.
type GlobalAvgPool[T tensor.DType] = layers.GlobalAvgPool[T]

// GlobalScale computes f_c*x + x from per-channel factors in the secondary
// input.
type GlobalScale[T tensor.DType] = layers.GlobalScale[T]

// NewConv creates a convolution layer producing c channels at h x w from cIn
// input channels. prev may be nil for the input-adjacent layer.
func NewConv[T tensor.DType](prev Layer[T], c, h, w, filterSize, cIn int, relu, bias bool) *Conv[T] {
	return layers.NewConv[T](prev, c, h, w, filterSize, cIn, relu, bias)
}

// NewBatchNorm creates a normalization layer over prev's output shape.
func NewBatchNorm[T tensor.DType](prev Layer[T], relu bool) *BatchNorm[T] {
	return layers.NewBatchNorm[T](prev, relu)
}

// NewFC creates a fully connected layer producing c*h*w outputs.
func NewFC[T tensor.DType](prev Layer[T], c, h, w int, bias, relu, tanh, sigmoid bool) *FC[T] {
	return layers.NewFC[T](prev, c, h, w, bias, relu, tanh, sigmoid)
}

// NewSoftMax creates a channel softmax layer over prev's output shape.
func NewSoftMax[T tensor.DType](prev Layer[T]) *SoftMax[T] {
	return layers.NewSoftMax[T](prev)
}

// NewSE creates a fused squeeze-and-excitation layer with an FC1 reduction
// width of numFc1Out.
func NewSE[T tensor.DType](prev Layer[T], numFc1Out int, addPrevLayerBias bool) *SE[T] {
	return layers.NewSE[T](prev, numFc1Out, addPrevLayerBias)
}

// NewGlobalAvgPool creates a global average pooling layer.
func NewGlobalAvgPool[T tensor.DType](prev Layer[T]) *GlobalAvgPool[T] {
	return layers.NewGlobalAvgPool[T](prev)
}

// NewGlobalScale creates a global scaling layer.
func NewGlobalScale[T tensor.DType](prev Layer[T]) *GlobalScale[T] {
	return layers.NewGlobalScale[T](prev)
}
