// Copyright 2025 The lc0 Authors. All rights reserved.
// Use of this source code is governed by an Apache 2.0
// license that can be found in the LICENSE file.

// Package network provides the public API for assembling and evaluating a
// complete residual-tower position evaluator.
package network

import (
	"github.com/jasonlats/lc0/backend"
	"github.com/jasonlats/lc0/internal/network"
	"github.com/jasonlats/lc0/tensor"
)

// Config describes the tower and head geometry.
type Config = network.Config

// Weights holds the trained parameters as in-memory float32 arrays.
type Weights = network.Weights

// Weight groupings.
type (
	ConvBlockWeights  = network.ConvBlockWeights
	ResidualWeights   = network.ResidualWeights
	SEWeights         = network.SEWeights
	PolicyHeadWeights = network.PolicyHeadWeights
	ValueHeadWeights  = network.ValueHeadWeights
)

// Network is a fully assembled evaluator.
type Network[T tensor.DType] = network.Network[T]

// New builds the layer chain for cfg, loads w and allocates the evaluation
// buffers.
func New[T tensor.DType](cfg Config, w *Weights, dnn backend.DNN, blas backend.BLAS) (*Network[T], error) {
	return network.New[T](cfg, w, dnn, blas)
}
