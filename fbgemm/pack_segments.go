// Copyright 2026 The FBGEMM-Go Authors. SPDX-License-Identifier: Apache-2.0

package fbgemm

import (
	"github.com/Svetlitski-FB/FBGEMM/types/tensors"
	"github.com/gomlx/exceptions"
	"github.com/janpfeifer/must"
	"k8s.io/klog/v2"
)

const (
	packSegmentsMaxLengthKey   = "max_length"
	packSegmentsTotalLengthKey = "total_length"
)

// PackSegments packs a row-major concatenation of variable-length segments into a padded,
// segment-major tensor: each segment occupies exactly maxLength rows, zero-padded, and
// segments longer than maxLength are truncated.
type PackSegments struct{}

// Name implements Function.
func (PackSegments) Name() string { return "pack_segments" }

// Forward packs tIn (shaped [totalLength, ...]) per the segment lengths, populating ctx for
// the backward pass.
func (op PackSegments) Forward(ctx *Context, tIn, lengths *tensors.Tensor, maxLength int) *tensors.Tensor {
	assertSameDevice(op.Name(), tIn, lengths)
	ctx.SetInt(packSegmentsMaxLengthKey, maxLength)
	ctx.SetInt(packSegmentsTotalLengthKey, tIn.Shape().Dim(0))
	ctx.SaveForBackward(lengths)

	backend := tIn.Backend()
	packed := must.M1(backend.PackSegmentsForward(tIn.Buffer(), lengths.Buffer(), maxLength))
	return tensors.FromBuffer(backend, packed)
}

// Backward inverts the packing for gradients: padded-gradient rows are scattered back to
// their original unpadded positions, padding rows contribute nothing.
//
// It accepts one or two upstream gradients; a second entry corresponds to an auxiliary
// forward output that carries no gradient and is ignored. The returned slots are
// (tIn, lengths, maxLength): only tIn is differentiable.
func (op PackSegments) Backward(ctx *Context, upstream []*tensors.Tensor) []Gradient {
	if len(upstream) != 1 && len(upstream) != 2 {
		exceptions.Panicf("%s.Backward: expected 1 or 2 upstream gradients, got %d", op.Name(), len(upstream))
	}
	grad := upstream[0]
	ctx.Consume()
	maxLength := ctx.GetInt(packSegmentsMaxLengthKey)
	totalLength := ctx.GetInt(packSegmentsTotalLengthKey)
	lengths := ctx.SavedTensors(1)[0]
	assertSameDevice(op.Name()+".Backward", grad, lengths)

	backend := grad.Backend()
	gradIn := must.M1(backend.PackSegmentsBackward(grad.Buffer(), lengths.Buffer(), totalLength, maxLength))
	return []Gradient{
		TensorGradient(tensors.FromBuffer(backend, gradIn)),
		NotDifferentiable(),
		NotDifferentiable(),
	}
}

// ApplyPackSegments runs the forward pass with a fresh context and returns both the packed
// output and the context to hand to PackSegments.Backward.
func ApplyPackSegments(tIn, lengths *tensors.Tensor, maxLength int) (*tensors.Tensor, *Context) {
	op := PackSegments{}
	klog.V(2).Infof("%s: packing %s into %d-row segments", op.Name(), tIn.Shape(), maxLength)
	ctx := NewContext()
	return op.Forward(ctx, tIn, lengths, maxLength), ctx
}
