// Copyright 2026 The FBGEMM-Go Authors. SPDX-License-Identifier: Apache-2.0

// Package fbgemm implements the differentiable sparse-tensor operators: segment packing,
// batched unary embedding lookup, and a locality-aware gather along axis 0.
//
// Each operator is a forward/backward pair bound by a Context: forward runs the device
// kernel and populates the context, backward consumes the context once and returns one
// Gradient slot per forward input, in input order. The Apply functions are the usual entry
// points; they create the context, run forward, and return both the output and the context
// to later hand to Backward.
//
// The numeric kernels themselves are backend collaborators (see package backends); this
// layer owns only the pairing bookkeeping: what forward must save, how gradients route back
// to only the differentiable inputs, and the index-sorting and duplicate-accumulation
// strategy of the gather.
//
// Errors: precondition and contract violations (device mismatch, double-consumed context,
// wrong upstream gradient count) are caller bugs and panic with a stack trace
// (github.com/gomlx/exceptions). Kernel failures are made fatal too, no partial gradients
// are ever returned.
package fbgemm

import (
	"github.com/Svetlitski-FB/FBGEMM/types/tensors"
	"github.com/gomlx/exceptions"
)

// Function is one differentiable operator: forward entry points are typed per operator
// (see PackSegments.Forward and friends), the backward side is uniform.
type Function interface {
	// Name of the operator, stable across processes. Used as the registry key.
	Name() string

	// Backward consumes the context populated by this operator's forward pass and returns
	// one gradient slot per forward input, in the forward input order.
	//
	// upstream carries the gradients of the forward outputs; each operator documents how
	// many entries it accepts.
	Backward(ctx *Context, upstream []*tensors.Tensor) []Gradient
}

// assertOneUpstream is the standard check for operators with a single forward output.
func assertOneUpstream(name string, upstream []*tensors.Tensor) *tensors.Tensor {
	if len(upstream) != 1 {
		exceptions.Panicf("%s.Backward: expected 1 upstream gradient, got %d", name, len(upstream))
	}
	return upstream[0]
}

// assertSameDevice panics unless every tensor lives on the same backend device as the
// first one. Kernels only operate within one device.
func assertSameDevice(name string, ts ...*tensors.Tensor) {
	for _, t := range ts[1:] {
		if !ts[0].OnSameDevice(t) {
			exceptions.Panicf("%s: tensors must reside on the same backend device, got %s (device %d) and %s (device %d)",
				name, ts[0].Backend().Name(), ts[0].DeviceNum(), t.Backend().Name(), t.DeviceNum())
		}
	}
}
