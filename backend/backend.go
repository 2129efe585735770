// Copyright 2025 The lc0 Authors. All rights reserved.
// Use of this source code is governed by an Apache 2.0
// license that can be found in the LICENSE file.

// Package backend provides the public API for the primitive-library handles
// layers evaluate through: a convolution/softmax library (DNN) and a dense
// algebra library (BLAS), plus the convolution descriptor shared with them.
package backend

import (
	"github.com/jasonlats/lc0/internal/backend"
)

// DNN is the convolution and softmax primitive library.
type DNN = backend.DNN

// BLAS is the dense-algebra primitive library.
type BLAS = backend.BLAS

// ConvAlgo selects the forward convolution algorithm.
type ConvAlgo = backend.ConvAlgo

// Forward algorithm constants.
const (
	ConvAlgoDirect ConvAlgo = backend.ConvAlgoDirect
	ConvAlgoIm2Col ConvAlgo = backend.ConvAlgoIm2Col
)

// ConvDescriptor describes one convolution's geometry and resolved forward
// algorithm.
type ConvDescriptor = backend.ConvDescriptor

// NewConvDescriptor resolves the descriptor for a cIn -> c convolution of
// filterSize x filterSize filters over h x w planes. Panics on invalid or
// even filter sizes.
func NewConvDescriptor(c, cIn, h, w, filterSize int) *ConvDescriptor {
	return backend.NewConvDescriptor(c, cIn, h, w, filterSize)
}
