// Copyright 2026 The FBGEMM-Go Authors. SPDX-License-Identifier: Apache-2.0

package fbgemm

import (
	"testing"

	"github.com/Svetlitski-FB/FBGEMM/types/tensors"
	"github.com/stretchr/testify/require"
)

func TestBatchedUnaryEmbeddingLookup(t *testing.T) {
	// One table with 3 rows, batch of 2: batch 0 selects rows {0, 2}, batch 1 selects {1}.
	weight := vector[float32](1, 2, 3)
	tableOffsets := vector[int32](0, 3)
	offsets := vector[int32](0, 2, 3)
	indices := vector[int32](0, 2, 1)

	out, ctx := ApplyBatchedUnaryEmbeddingLookup(weight, tableOffsets, offsets, indices)
	require.Equal(t, []int{2, 1}, out.Shape().Dimensions)
	require.Equal(t, []float32{4, 2}, tensors.FlatData[float32](out))

	grad := tensors.FromFlatData(backend, 0, []float32{10, 100}, 2, 1)
	grads := BatchedUnaryEmbeddingLookup{}.Backward(ctx, []*tensors.Tensor{grad})

	require.Len(t, grads, 4)
	require.Equal(t, []float32{10, 100, 10}, tensors.FlatData[float32](grads[0].Tensor()))
	for slot := 1; slot < 4; slot++ {
		require.True(t, grads[slot].IsNotDifferentiable(), "slot %d must be the non-differentiable marker", slot)
	}
}

func TestBatchedUnaryEmbeddingLookupBackwardRequiresOneUpstream(t *testing.T) {
	weight := vector[float32](1, 2)
	tableOffsets := vector[int32](0, 2)
	offsets := vector[int32](0, 1)
	indices := vector[int32](0)

	_, ctx := ApplyBatchedUnaryEmbeddingLookup(weight, tableOffsets, offsets, indices)
	require.Panics(t, func() {
		BatchedUnaryEmbeddingLookup{}.Backward(ctx, nil)
	})
}

func TestBatchedUnaryEmbeddingLookupDoubleBackwardIsFatal(t *testing.T) {
	weight := vector[float32](1, 2)
	tableOffsets := vector[int32](0, 2)
	offsets := vector[int32](0, 1)
	indices := vector[int32](0)

	_, ctx := ApplyBatchedUnaryEmbeddingLookup(weight, tableOffsets, offsets, indices)
	grad := tensors.FromFlatData(backend, 0, []float32{1}, 1, 1)
	BatchedUnaryEmbeddingLookup{}.Backward(ctx, []*tensors.Tensor{grad})
	require.Panics(t, func() {
		BatchedUnaryEmbeddingLookup{}.Backward(ctx, []*tensors.Tensor{grad})
	})
}
