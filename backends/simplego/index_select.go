// Copyright 2026 The FBGEMM-Go Authors. SPDX-License-Identifier: Apache-2.0

package simplego

import (
	"sort"

	"github.com/Svetlitski-FB/FBGEMM/backends"
	"github.com/Svetlitski-FB/FBGEMM/types/shapes"
	"github.com/Svetlitski-FB/FBGEMM/types/xslices"
	"github.com/pkg/errors"
	"github.com/x448/float16"
)

// SortIndices implements backends.SparseOps.
//
// It returns the values sorted ascending plus the permutation mapping each sorted position
// back to its original position, with the same dtype as indices.
func (b *Backend) SortIndices(indices backends.Buffer) (sorted, origPositions backends.Buffer, err error) {
	idxBuf, err := b.castBuffer(indices, "indices")
	if err != nil {
		return nil, nil, err
	}
	if err = idxBuf.shape.CheckRank(1); err != nil {
		return nil, nil, errors.WithMessage(err, "indices must be a vector")
	}
	sortedBuf := b.getBuffer(idxBuf.shape.Clone())
	origBuf := b.getBuffer(idxBuf.shape.Clone())
	switch flat := idxBuf.flat.(type) {
	case []int32:
		sortIndicesImpl(flat, sortedBuf.flat.([]int32), origBuf.flat.([]int32))
	case []int64:
		sortIndicesImpl(flat, sortedBuf.flat.([]int64), origBuf.flat.([]int64))
	default:
		b.putBuffer(sortedBuf)
		b.putBuffer(origBuf)
		return nil, nil, errors.Errorf("indices must be Int32 or Int64, got %s", idxBuf.shape.DType)
	}
	return sortedBuf, origBuf, nil
}

func sortIndicesImpl[T int32 | int64](values, sorted, orig []T) {
	perm := xslices.Iota(0, len(values))
	sort.SliceStable(perm, func(i, j int) bool { return values[perm[i]] < values[perm[j]] })
	for ii, p := range perm {
		sorted[ii] = values[p]
		orig[ii] = T(p)
	}
}

// IndexSelect implements backends.SparseOps.
//
// Gathers rows of input along axis 0. With indicesSorted, the gather walks the indices in
// ascending order (better memory locality on large inputs) and origIndices restores the
// caller's original row order in the output.
func (b *Backend) IndexSelect(input, indices, origIndices backends.Buffer, indicesSorted bool) (backends.Buffer, error) {
	in, err := b.castBuffer(input, "input")
	if err != nil {
		return nil, err
	}
	if in.shape.Rank() < 1 {
		return nil, errors.Errorf("input must have at least rank 1, got shape %s", in.shape)
	}
	idxBuf, err := b.castBuffer(indices, "indices")
	if err != nil {
		return nil, err
	}
	idx, err := intVectorValues(idxBuf, "indices")
	if err != nil {
		return nil, err
	}
	var orig []int
	if indicesSorted {
		origBuf, err := b.castBuffer(origIndices, "origIndices")
		if err != nil {
			return nil, err
		}
		orig, err = intVectorValues(origBuf, "origIndices")
		if err != nil {
			return nil, err
		}
		if len(orig) != len(idx) {
			return nil, errors.Errorf("origIndices has %d entries, indices has %d", len(orig), len(idx))
		}
	}

	numRows := in.shape.Dimensions[0]
	for _, v := range idx {
		if v < 0 || v >= numRows {
			return nil, errors.Errorf("index %d out of bounds for input with %d rows", v, numRows)
		}
	}
	outDims := append([]int{len(idx)}, in.shape.Dimensions[1:]...)
	out := b.getBuffer(shapes.Make(in.shape.DType, outDims...))
	row := rowSize(in)
	switch flat := in.flat.(type) {
	case []float32:
		indexSelectImpl(flat, out.flat.([]float32), idx, orig, row)
	case []float64:
		indexSelectImpl(flat, out.flat.([]float64), idx, orig, row)
	case []float16.Float16:
		indexSelectImpl(flat, out.flat.([]float16.Float16), idx, orig, row)
	case []int32:
		indexSelectImpl(flat, out.flat.([]int32), idx, orig, row)
	case []int64:
		indexSelectImpl(flat, out.flat.([]int64), idx, orig, row)
	default:
		b.putBuffer(out)
		return nil, notImplementedForDType("IndexSelect", in.shape.DType)
	}
	return out, nil
}

// indexSelectImpl gathers rows; orig == nil means indices are in the caller's order already.
func indexSelectImpl[T any](in, out []T, idx, orig []int, row int) {
	for ii, source := range idx {
		dst := ii
		if orig != nil {
			dst = orig[ii]
		}
		copy(out[dst*row:(dst+1)*row], in[source*row:(source+1)*row])
	}
}

// IndexAddWithUniqueIndices implements backends.SparseOps.
//
// Scatter-accumulates gradOutput rows into a zero-initialized buffer of shape inputShape.
// sortedIndices must be sorted ascending (duplicates adjacent) and origIndices maps each of
// them back to the gradOutput row that carries its contribution. Indices within the
// consecutive range are guaranteed unique by the caller and are written with a straight
// copy; all others accumulate.
func (b *Backend) IndexAddWithUniqueIndices(gradOutput, sortedIndices, origIndices backends.Buffer,
	inputShape shapes.Shape, consecutiveRangeStart, consecutiveRangeLength int) (backends.Buffer, error) {
	gradBuf, err := b.castBuffer(gradOutput, "gradOutput")
	if err != nil {
		return nil, err
	}
	sortedBuf, err := b.castBuffer(sortedIndices, "sortedIndices")
	if err != nil {
		return nil, err
	}
	origBuf, err := b.castBuffer(origIndices, "origIndices")
	if err != nil {
		return nil, err
	}
	sorted, err := intVectorValues(sortedBuf, "sortedIndices")
	if err != nil {
		return nil, err
	}
	orig, err := intVectorValues(origBuf, "origIndices")
	if err != nil {
		return nil, err
	}
	if len(sorted) != len(orig) {
		return nil, errors.Errorf("sortedIndices has %d entries, origIndices has %d", len(sorted), len(orig))
	}
	if inputShape.Rank() < 1 {
		return nil, errors.Errorf("inputShape must have at least rank 1, got %s", inputShape)
	}
	wantGradDims := append([]int{len(sorted)}, inputShape.Dimensions[1:]...)
	if err = gradBuf.shape.Check(inputShape.DType, wantGradDims...); err != nil {
		return nil, errors.WithMessage(err, "gradOutput doesn't match inputShape rows selected by sortedIndices")
	}
	numRows := inputShape.Dimensions[0]
	for _, v := range sorted {
		if v < 0 || v >= numRows {
			return nil, errors.Errorf("index %d out of bounds for input with %d rows", v, numRows)
		}
	}
	for _, v := range orig {
		if v < 0 || v >= len(sorted) {
			return nil, errors.Errorf("origIndices entry %d out of bounds for %d gradient rows", v, len(sorted))
		}
	}

	out := b.getBuffer(inputShape.Clone())
	row := 1
	for _, dim := range inputShape.Dimensions[1:] {
		row *= dim
	}
	uniqueEnd := consecutiveRangeStart + consecutiveRangeLength
	switch flat := gradBuf.flat.(type) {
	case []float32:
		indexAddImpl(flat, out.flat.([]float32), sorted, orig, row, consecutiveRangeStart, uniqueEnd)
	case []float64:
		indexAddImpl(flat, out.flat.([]float64), sorted, orig, row, consecutiveRangeStart, uniqueEnd)
	case []float16.Float16:
		// The fp16 path always accumulates in a float32 staging area, the unique-range
		// shortcut saves nothing there.
		indexAddFloat16(flat, out.flat.([]float16.Float16), sorted, orig, row)
	default:
		b.putBuffer(out)
		return nil, notImplementedForDType("IndexAddWithUniqueIndices", gradBuf.shape.DType)
	}
	return out, nil
}

func indexAddImpl[T PODFloatConstraints](grad, out []T, sorted, orig []int, row, uniqueStart, uniqueEnd int) {
	clear(out)
	for ii, dst := range sorted {
		gradRow := grad[orig[ii]*row : (orig[ii]+1)*row]
		outRow := out[dst*row : (dst+1)*row]
		if dst >= uniqueStart && dst < uniqueEnd {
			// Caller guarantees no duplicates in this span.
			copy(outRow, gradRow)
			continue
		}
		for jj, v := range gradRow {
			outRow[jj] += v
		}
	}
}

// indexAddFloat16 stages accumulation in float32 to avoid compounding fp16 rounding on
// duplicate indices.
func indexAddFloat16(grad, out []float16.Float16, sorted, orig []int, row int) {
	staging := make([]float32, len(out))
	for ii, dst := range sorted {
		gradRow := grad[orig[ii]*row : (orig[ii]+1)*row]
		outRow := staging[dst*row : (dst+1)*row]
		for jj, v := range gradRow {
			outRow[jj] += float16ToF32(v)
		}
	}
	for ii, v := range staging {
		out[ii] = f32ToFloat16(v)
	}
}
