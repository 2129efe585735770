// Copyright 2025 The lc0 Authors. All rights reserved.
// Use of this source code is governed by an Apache 2.0
// license that can be found in the LICENSE file.

package webgpu

import (
	"github.com/jasonlats/lc0/backend"
	internalwebgpu "github.com/jasonlats/lc0/internal/backend/webgpu"
)

// Backend is the WebGPU primitive library: WGSL compute dispatch through
// go-webgpu's zero-CGO bindings. Float32 only.
type Backend = internalwebgpu.Backend

// Compile-time checks that Backend implements both handle interfaces.
var (
	_ backend.DNN  = (*Backend)(nil)
	_ backend.BLAS = (*Backend)(nil)
)

// New initializes a WebGPU backend on the best available adapter. Returns an
// error when WebGPU is not available; callers typically fall back to the CPU
// backend.
func New() (*Backend, error) {
	return internalwebgpu.New()
}

// IsAvailable reports whether a WebGPU adapter can be acquired.
func IsAvailable() bool {
	return internalwebgpu.IsAvailable()
}
