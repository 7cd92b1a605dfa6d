// Copyright 2026 The FBGEMM-Go Authors. SPDX-License-Identifier: Apache-2.0

package fbgemm

import (
	"github.com/Svetlitski-FB/FBGEMM/types/tensors"
	"github.com/janpfeifer/must"
	"k8s.io/klog/v2"
)

// BatchedUnaryEmbeddingLookup looks up one scalar per (batch element, table) from a flat
// weight vector: tableOffsets delimits where each table's weights begin, offsets delimits
// per-batch-element ranges into indices, and indices selects rows within each table.
type BatchedUnaryEmbeddingLookup struct{}

// Name implements Function.
func (BatchedUnaryEmbeddingLookup) Name() string { return "batched_unary_embeddings" }

// Forward runs the lookup. All four inputs are saved verbatim; the backward pass needs the
// exact same tensors to route each batch element's gradient to the weights it read.
func (op BatchedUnaryEmbeddingLookup) Forward(ctx *Context, weight, tableOffsets, offsets, indices *tensors.Tensor) *tensors.Tensor {
	assertSameDevice(op.Name(), weight, tableOffsets, offsets, indices)
	ctx.SaveForBackward(weight, tableOffsets, offsets, indices)

	backend := weight.Backend()
	out := must.M1(backend.BatchedUnaryEmbeddingsForward(
		weight.Buffer(), tableOffsets.Buffer(), offsets.Buffer(), indices.Buffer()))
	return tensors.FromBuffer(backend, out)
}

// Backward scatter-accumulates the upstream gradient back into a tensor shaped like weight.
// Duplicate indices sum inside the kernel; no sorting happens at this layer. The returned
// slots are (weight, tableOffsets, offsets, indices): only weight is differentiable.
func (op BatchedUnaryEmbeddingLookup) Backward(ctx *Context, upstream []*tensors.Tensor) []Gradient {
	grad := assertOneUpstream(op.Name(), upstream)
	ctx.Consume()
	saved := ctx.SavedTensors(4)
	weight, tableOffsets, offsets, indices := saved[0], saved[1], saved[2], saved[3]
	assertSameDevice(op.Name()+".Backward", grad, weight)

	backend := grad.Backend()
	gradWeight := must.M1(backend.BatchedUnaryEmbeddingsBackward(
		grad.Buffer(), weight.Buffer(), tableOffsets.Buffer(), offsets.Buffer(), indices.Buffer()))
	return []Gradient{
		TensorGradient(tensors.FromBuffer(backend, gradWeight)),
		NotDifferentiable(),
		NotDifferentiable(),
		NotDifferentiable(),
	}
}

// ApplyBatchedUnaryEmbeddingLookup runs the forward pass with a fresh context and returns
// both the lookup output and the context to hand to BatchedUnaryEmbeddingLookup.Backward.
func ApplyBatchedUnaryEmbeddingLookup(weight, tableOffsets, offsets, indices *tensors.Tensor) (*tensors.Tensor, *Context) {
	op := BatchedUnaryEmbeddingLookup{}
	klog.V(2).Infof("%s: %d weights, %d indices", op.Name(), weight.Size(), indices.Size())
	ctx := NewContext()
	return op.Forward(ctx, weight, tableOffsets, offsets, indices), ctx
}
