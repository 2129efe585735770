// Copyright 2025 The lc0 Authors. All rights reserved.
// Use of this source code is governed by an Apache 2.0
// license that can be found in the LICENSE file.

// Package tensor provides the public API for evaluation memory: flat typed
// buffers with no shape metadata, and the numeric precision types the layer
// chain is generic over.
//
// Example:
//
//	buf := tensor.NewBuffer(batch*channels*64, tensor.Float32)
//	data := tensor.As[float32](buf)
package tensor

import (
	"github.com/jasonlats/lc0/internal/tensor"
)

// DType is the constraint for the two supported element types.
type DType = tensor.DType

// DataType is the runtime tag of a buffer's element type.
type DataType = tensor.DataType

// Data type constants.
const (
	Float32 DataType = tensor.Float32
	Float64 DataType = tensor.Float64
)

// Buffer is a flat, caller-owned region of evaluation memory.
type Buffer = tensor.Buffer

// NewBuffer allocates a zeroed buffer of numElements elements of dtype.
func NewBuffer(numElements int, dtype DataType) *Buffer {
	return tensor.NewBuffer(numElements, dtype)
}

// As returns the buffer's contents as a typed slice sharing the underlying
// memory. Panics if T does not match the buffer's data type.
func As[T DType](b *Buffer) []T {
	return tensor.As[T](b)
}

// FromFloat32 allocates a buffer of the active element type holding the
// converted host values.
func FromFloat32[T DType](host []float32) *Buffer {
	return tensor.FromFloat32[T](host)
}

// TypeOf returns the runtime tag for the element type T.
func TypeOf[T DType]() DataType {
	return tensor.TypeOf[T]()
}
