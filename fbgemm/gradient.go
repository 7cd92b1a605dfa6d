// Copyright 2026 The FBGEMM-Go Authors. SPDX-License-Identifier: Apache-2.0

package fbgemm

import (
	"github.com/Svetlitski-FB/FBGEMM/types/tensors"
	"github.com/gomlx/exceptions"
)

type gradientKind int

const (
	gradientTensor gradientKind = iota
	gradientNotDifferentiable
	gradientEmpty
)

// Gradient is one slot of the gradient list a backward pass returns: either a gradient
// tensor shaped like the corresponding forward input, the marker for a non-differentiable
// input (integer configuration, lengths, offsets), or the structurally-empty marker for
// non-trainable integer tensors that still participate in the computation graph.
//
// The two markers are distinct on purpose: a host framework treats a non-differentiable
// slot as "no gradient ever flows here", while an empty gradient is a real graph edge
// carrying no values.
type Gradient struct {
	kind   gradientKind
	tensor *tensors.Tensor
}

// TensorGradient wraps a gradient tensor into a slot.
func TensorGradient(t *tensors.Tensor) Gradient {
	if t == nil {
		exceptions.Panicf("TensorGradient: nil tensor, use NotDifferentiable or EmptyGradient markers instead")
	}
	return Gradient{kind: gradientTensor, tensor: t}
}

// NotDifferentiable is the marker slot for inputs no gradient flows to.
func NotDifferentiable() Gradient {
	return Gradient{kind: gradientNotDifferentiable}
}

// EmptyGradient is the marker slot for non-trainable tensor inputs (like gather indices):
// a graph edge exists but it carries no gradient values.
func EmptyGradient() Gradient {
	return Gradient{kind: gradientEmpty}
}

// IsNotDifferentiable reports whether this slot is the non-differentiable marker.
func (g Gradient) IsNotDifferentiable() bool { return g.kind == gradientNotDifferentiable }

// IsEmpty reports whether this slot is the structurally-empty gradient marker.
func (g Gradient) IsEmpty() bool { return g.kind == gradientEmpty }

// Tensor returns the gradient tensor of the slot. It panics on marker slots.
func (g Gradient) Tensor() *tensors.Tensor {
	if g.kind != gradientTensor {
		exceptions.Panicf("Gradient.Tensor: slot is a marker, not a gradient tensor")
	}
	return g.tensor
}

// String implements fmt.Stringer.
func (g Gradient) String() string {
	switch g.kind {
	case gradientNotDifferentiable:
		return "Gradient(not differentiable)"
	case gradientEmpty:
		return "Gradient(empty)"
	default:
		return "Gradient(" + g.tensor.String() + ")"
	}
}
