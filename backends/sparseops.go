// Copyright 2026 The FBGEMM-Go Authors. SPDX-License-Identifier: Apache-2.0

package backends

import "github.com/Svetlitski-FB/FBGEMM/types/shapes"

// SparseOps is the Backend's sub-interface with the sparse kernels: one pure function per
// operator. Kernels are stateless and gradient-unaware; shape and dtype contracts are
// documented per method and anything beyond them is backend internal.
//
// All buffers passed to a kernel must live on the same device; the returned buffer is
// allocated on that device.
type SparseOps interface {
	// PackSegmentsForward packs a row-major concatenation of segments into fixed-width,
	// segment-major blocks.
	//
	// tIn is shaped [totalLength, ...], lengths is an integer vector with one entry per
	// segment and must sum to totalLength. The output is shaped [len(lengths), maxLength, ...]:
	// each segment occupies exactly maxLength rows, zero-padded, and segments longer than
	// maxLength are truncated.
	PackSegmentsForward(tIn, lengths Buffer, maxLength int) (Buffer, error)

	// PackSegmentsBackward inverts PackSegmentsForward for gradients: grad is shaped like the
	// packed output, and the result is shaped [totalLength, ...], with padding rows dropped
	// and truncated rows receiving zeros.
	PackSegmentsBackward(grad, lengths Buffer, totalLength, maxLength int) (Buffer, error)

	// BatchedUnaryEmbeddingsForward looks up one scalar per (batch element, table).
	//
	// weight is a flat float vector concatenating all tables' unary weights; tableOffsets
	// (size numTables+1) delimits where each table's weights begin; offsets (size
	// batchSize*numTables+1, batch-major) delimits per-(batch, table) ranges into indices;
	// indices selects rows within each table. The output is shaped [batchSize, numTables]
	// where each entry is the sum of the selected weights.
	BatchedUnaryEmbeddingsForward(weight, tableOffsets, offsets, indices Buffer) (Buffer, error)

	// BatchedUnaryEmbeddingsBackward scatter-accumulates gradOutput (shaped like the forward
	// output) back into a buffer shaped like weight. Duplicate indices sum.
	BatchedUnaryEmbeddingsBackward(gradOutput, weight, tableOffsets, offsets, indices Buffer) (Buffer, error)

	// SortIndices sorts an integer vector ascending and also returns the permutation mapping
	// sorted position back to original position (same dtype as indices).
	SortIndices(indices Buffer) (sorted, origPositions Buffer, err error)

	// IndexSelect gathers rows (axis 0) of input at the positions given by indices.
	//
	// If indicesSorted is true, indices must be sorted ascending and origIndices must hold the
	// permutation returned by SortIndices; row i of input[indices[i]] is then written to output
	// row origIndices[i], restoring the caller's original order. If indicesSorted is false,
	// origIndices is ignored (may be nil) and output row i is input[indices[i]].
	IndexSelect(input, indices, origIndices Buffer, indicesSorted bool) (Buffer, error)

	// IndexAddWithUniqueIndices scatter-accumulates gradOutput rows into a zero-initialized
	// buffer of shape inputShape: row gradOutput[origIndices[i]] is added to output row
	// sortedIndices[i]. Duplicate indices sum. When consecutiveRangeLength > 0, indices inside
	// [consecutiveRangeStart, consecutiveRangeStart+consecutiveRangeLength) are guaranteed
	// unique by the caller and the kernel may skip duplicate handling for them.
	IndexAddWithUniqueIndices(gradOutput, sortedIndices, origIndices Buffer,
		inputShape shapes.Shape, consecutiveRangeStart, consecutiveRangeLength int) (Buffer, error)

	// AsynchronousExclusiveCumSum returns the exclusive cumulative sum of a vector:
	// output[i] = sum(values[:i]), same length as values.
	AsynchronousExclusiveCumSum(values Buffer) (Buffer, error)

	// AsynchronousInclusiveCumSum returns the inclusive cumulative sum of a vector:
	// output[i] = sum(values[:i+1]), same length as values.
	AsynchronousInclusiveCumSum(values Buffer) (Buffer, error)

	// AsynchronousCompleteCumSum returns the exclusive cumulative sum plus a final entry with
	// the total: length len(values)+1.
	AsynchronousCompleteCumSum(values Buffer) (Buffer, error)

	// OffsetsRange expands offsets (ascending start positions) into a vector of outputSize
	// entries where each segment [offsets[i], nextOffset) holds 0, 1, 2, ...
	OffsetsRange(offsets Buffer, outputSize int) (Buffer, error)

	// LengthsRange expands an integer lengths vector into the concatenation of
	// iota(lengths[0]), iota(lengths[1]), ...
	LengthsRange(lengths Buffer) (Buffer, error)
}
