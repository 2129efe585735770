// Copyright 2025 The lc0 Authors. All rights reserved.
// Use of this source code is governed by an Apache 2.0
// license that can be found in the LICENSE file.

package cpu

import (
	"github.com/jasonlats/lc0/backend"
	internalcpu "github.com/jasonlats/lc0/internal/backend/cpu"
)

// Backend is the pure Go primitive library. It serves as both the DNN and
// the BLAS handle and supports both precisions.
type Backend = internalcpu.Backend

// Compile-time checks that Backend implements both handle interfaces.
var (
	_ backend.DNN  = (*Backend)(nil)
	_ backend.BLAS = (*Backend)(nil)
)

// New creates a CPU backend.
//
// Example:
//
//	be := cpu.New()
//	err := layer.Eval(n, out, in, nil, scratch, scratch.ByteSize(), be, be)
func New() *Backend {
	return internalcpu.New()
}
