// Copyright 2026 The FBGEMM-Go Authors. SPDX-License-Identifier: Apache-2.0

package simplego

import (
	"testing"

	"github.com/Svetlitski-FB/FBGEMM/backends"
	"github.com/stretchr/testify/require"
)

// Two tables (3 and 2 rows), batch of 2. Weight layout is the flat concatenation of the
// tables' unary weights; offsets is batch-major with one range per (batch, table), so
// batchSize*numTables+1 = 5 entries.
func unaryEmbeddingsFixture(t *testing.T) (weight, tableOffsets, offsets, indices backends.Buffer) {
	t.Helper()
	return bufferOf(t, []float32{1, 2, 3, 10, 20}, 5),
		vectorOf[int32](t, 0, 3, 5),
		vectorOf[int32](t, 0, 2, 3, 4, 4),
		vectorOf[int32](t, 0, 2, 1, 1)
}

func TestBatchedUnaryEmbeddingsForward(t *testing.T) {
	weight, tableOffsets, offsets, indices := unaryEmbeddingsFixture(t)

	out, err := backend.BatchedUnaryEmbeddingsForward(weight, tableOffsets, offsets, indices)
	require.NoError(t, err)
	// Batch 0: table 0 sums rows {0, 2} = 1+3, table 1 sums row {1} = 20.
	// Batch 1: table 0 sums row {1} = 2, table 1 has an empty range.
	require.Equal(t, []float32{4, 20, 2, 0}, flatOf[float32](t, out, 2, 2))
}

func TestBatchedUnaryEmbeddingsForwardValidation(t *testing.T) {
	weight, tableOffsets, offsets, _ := unaryEmbeddingsFixture(t)

	_, err := backend.BatchedUnaryEmbeddingsForward(weight, tableOffsets, offsets,
		vectorOf[int32](t, 0, 2, 1, 3))
	require.Error(t, err, "index 3 is out of bounds for the 3-row table 0")

	_, err = backend.BatchedUnaryEmbeddingsForward(weight, tableOffsets,
		vectorOf[int32](t, 0, 2, 3, 4), vectorOf[int32](t, 0, 2, 1, 1))
	require.Error(t, err, "offsets count must be a multiple of the table count")
}

func TestBatchedUnaryEmbeddingsRejectsMalformedTableOffsets(t *testing.T) {
	weight := bufferOf(t, []float32{1, 2, 3}, 3)
	offsets := vectorOf[int32](t, 0, 1)
	indices := vectorOf[int32](t, 0)

	// A negative table start would turn into a negative weight index; it must surface as
	// an error, not a crash.
	_, err := backend.BatchedUnaryEmbeddingsForward(weight, vectorOf[int32](t, -5, 3), offsets, indices)
	require.Error(t, err)

	_, err = backend.BatchedUnaryEmbeddingsForward(weight, vectorOf[int32](t, 0, 3, 2), offsets, indices)
	require.Error(t, err, "tableOffsets must be ascending")
}

func TestBatchedUnaryEmbeddingsBackward(t *testing.T) {
	weight, tableOffsets, offsets, indices := unaryEmbeddingsFixture(t)
	gradOutput := bufferOf(t, []float32{1, 10, 100, 1000}, 2, 2)

	out, err := backend.BatchedUnaryEmbeddingsBackward(gradOutput, weight, tableOffsets, offsets, indices)
	require.NoError(t, err)
	// Row 0 and 2 of table 0 receive grad(0,0)=1; row 1 receives grad(1,0)=100.
	// Table 1's row 1 receives grad(0,1)=10; grad(1,1) selects nothing.
	require.Equal(t, []float32{1, 100, 1, 0, 10}, flatOf[float32](t, out, 5))
}

func TestBatchedUnaryEmbeddingsBackwardAccumulatesDuplicates(t *testing.T) {
	weight := bufferOf(t, []float32{5, 7}, 2)
	tableOffsets := vectorOf[int32](t, 0, 2)
	offsets := vectorOf[int32](t, 0, 3)
	indices := vectorOf[int32](t, 0, 1, 0)
	gradOutput := bufferOf(t, []float32{2}, 1, 1)

	out, err := backend.BatchedUnaryEmbeddingsBackward(gradOutput, weight, tableOffsets, offsets, indices)
	require.NoError(t, err)
	require.Equal(t, []float32{4, 2}, flatOf[float32](t, out, 2))
}

func TestBatchedUnaryEmbeddingsBackwardShapeCheck(t *testing.T) {
	weight, tableOffsets, offsets, indices := unaryEmbeddingsFixture(t)
	gradOutput := bufferOf(t, []float32{1, 10, 100}, 3)

	_, err := backend.BatchedUnaryEmbeddingsBackward(gradOutput, weight, tableOffsets, offsets, indices)
	require.Error(t, err, "gradOutput must be shaped [batchSize, numTables]")
}
