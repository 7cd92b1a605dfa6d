// Copyright 2026 The FBGEMM-Go Authors. SPDX-License-Identifier: Apache-2.0

package fbgemm

import (
	"github.com/Svetlitski-FB/FBGEMM/types/shapes"
	"github.com/Svetlitski-FB/FBGEMM/types/tensors"
	"github.com/janpfeifer/must"
	"k8s.io/klog/v2"
)

const (
	indexSelectInputShapeKey  = "input_shape"
	indexSelectRangeStartKey  = "consecutive_range_start"
	indexSelectRangeLengthKey = "consecutive_range_length"
	indexSelectSkipSortingKey = "skip_indices_sorting"
)

// IndexSelectDim0 gathers rows of input at the positions given by indices.
//
// By default the indices are sorted ascending before the gather, which promotes memory
// locality on the device and is the input ordering the backward accumulation relies on; the
// sorted values and the permutation back to the original order are what gets saved. With
// skipIndicesSorting the sort is skipped at forward time (worth it when the caller
// guarantees no backward pass, like pure inference) and deferred to backward time if one
// happens anyway.
//
// consecutiveRangeStart/consecutiveRangeLength optionally declare a sub-range of index
// values known to be contiguous and duplicate-free, letting the backward kernel accumulate
// that span without duplicate handling. Pass 0, 0 when no such guarantee exists.
type IndexSelectDim0 struct{}

// Name implements Function.
func (IndexSelectDim0) Name() string { return "index_select_dim0" }

// Forward gathers input rows. input and indices must reside on the same device.
func (op IndexSelectDim0) Forward(ctx *Context, input, indices *tensors.Tensor,
	consecutiveRangeStart, consecutiveRangeLength int, skipIndicesSorting bool) *tensors.Tensor {
	assertSameDevice(op.Name(), input, indices)
	ctx.SetDims(indexSelectInputShapeKey, input.Shape().Dimensions)
	ctx.SetInt(indexSelectRangeStartKey, consecutiveRangeStart)
	ctx.SetInt(indexSelectRangeLengthKey, consecutiveRangeLength)
	ctx.SetBool(indexSelectSkipSortingKey, skipIndicesSorting)

	backend := input.Backend()
	if skipIndicesSorting {
		ctx.SaveForBackward(indices)
		out := must.M1(backend.IndexSelect(input.Buffer(), indices.Buffer(), nil, false))
		return tensors.FromBuffer(backend, out)
	}

	sortedBuf, origBuf := must.M2(backend.SortIndices(indices.Buffer()))
	sorted := tensors.FromBuffer(backend, sortedBuf)
	orig := tensors.FromBuffer(backend, origBuf)
	ctx.SaveForBackward(sorted, orig)
	out := must.M1(backend.IndexSelect(input.Buffer(), sorted.Buffer(), orig.Buffer(), true))
	return tensors.FromBuffer(backend, out)
}

// Backward scatter-accumulates the upstream gradient into a zero-initialized tensor shaped
// like the original input: sorted indices target the rows, the permutation maps each
// gradient row back to its pre-sort position, and duplicate indices sum. Within the
// declared consecutive range the kernel skips duplicate handling.
//
// The returned slots follow the forward input order (input, indices,
// consecutiveRangeStart, consecutiveRangeLength, skipIndicesSorting): input gets the
// gradient, indices gets the structurally-empty marker since it is a non-trainable tensor
// in the graph, and the scalars get the non-differentiable marker.
func (op IndexSelectDim0) Backward(ctx *Context, upstream []*tensors.Tensor) []Gradient {
	grad := assertOneUpstream(op.Name(), upstream)
	ctx.Consume()
	inputDims := ctx.GetDims(indexSelectInputShapeKey)
	rangeStart := ctx.GetInt(indexSelectRangeStartKey)
	rangeLength := ctx.GetInt(indexSelectRangeLengthKey)

	var sorted, orig *tensors.Tensor
	if ctx.GetBool(indexSelectSkipSortingKey) {
		// Deferred sort: forward only saved the raw indices.
		indices := ctx.SavedTensors(1)[0]
		sortedBuf, origBuf := must.M2(indices.Backend().SortIndices(indices.Buffer()))
		sorted = tensors.FromBuffer(indices.Backend(), sortedBuf)
		orig = tensors.FromBuffer(indices.Backend(), origBuf)
	} else {
		saved := ctx.SavedTensors(2)
		sorted, orig = saved[0], saved[1]
	}
	assertSameDevice(op.Name()+".Backward", grad, sorted)

	backend := grad.Backend()
	inputShape := shapes.Make(grad.DType(), inputDims...)
	gradInput := must.M1(backend.IndexAddWithUniqueIndices(
		grad.Buffer(), sorted.Buffer(), orig.Buffer(), inputShape, rangeStart, rangeLength))
	return []Gradient{
		TensorGradient(tensors.FromBuffer(backend, gradInput)),
		EmptyGradient(),
		NotDifferentiable(),
		NotDifferentiable(),
		NotDifferentiable(),
	}
}

// ApplyIndexSelectDim0 runs the forward pass with a fresh context and returns both the
// gathered output and the context to hand to IndexSelectDim0.Backward.
func ApplyIndexSelectDim0(input, indices *tensors.Tensor,
	consecutiveRangeStart, consecutiveRangeLength int, skipIndicesSorting bool) (*tensors.Tensor, *Context) {
	op := IndexSelectDim0{}
	klog.V(2).Infof("%s: gathering %d rows from %s (skipIndicesSorting=%v)",
		op.Name(), indices.Size(), input.Shape(), skipIndicesSorting)
	ctx := NewContext()
	return op.Forward(ctx, input, indices, consecutiveRangeStart, consecutiveRangeLength, skipIndicesSorting), ctx
}
