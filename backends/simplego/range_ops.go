// Copyright 2026 The FBGEMM-Go Authors. SPDX-License-Identifier: Apache-2.0

package simplego

import (
	"github.com/Svetlitski-FB/FBGEMM/backends"
	"github.com/Svetlitski-FB/FBGEMM/types/shapes"
	"github.com/pkg/errors"
)

// cumSumKind selects which of the three cumulative-sum variants to compute.
type cumSumKind int

const (
	cumSumExclusive cumSumKind = iota
	cumSumInclusive
	cumSumComplete
)

func (b *Backend) cumSum(values backends.Buffer, kind cumSumKind) (backends.Buffer, error) {
	in, err := b.castBuffer(values, "values")
	if err != nil {
		return nil, err
	}
	if err = in.shape.CheckRank(1); err != nil {
		return nil, errors.WithMessage(err, "values must be a vector")
	}
	outLen := in.shape.Dimensions[0]
	if kind == cumSumComplete {
		outLen++
	}
	out := b.getBuffer(shapes.Make(in.shape.DType, outLen))
	switch flat := in.flat.(type) {
	case []int32:
		cumSumImpl(flat, out.flat.([]int32), kind)
	case []int64:
		cumSumImpl(flat, out.flat.([]int64), kind)
	case []float32:
		cumSumImpl(flat, out.flat.([]float32), kind)
	case []float64:
		cumSumImpl(flat, out.flat.([]float64), kind)
	default:
		b.putBuffer(out)
		return nil, notImplementedForDType("cumulative sum", in.shape.DType)
	}
	return out, nil
}

func cumSumImpl[T PODNumericConstraints](in, out []T, kind cumSumKind) {
	var sum T
	for ii, v := range in {
		if kind == cumSumInclusive {
			sum += v
			out[ii] = sum
		} else {
			out[ii] = sum
			sum += v
		}
	}
	if kind == cumSumComplete {
		out[len(in)] = sum
	}
}

// AsynchronousExclusiveCumSum implements backends.SparseOps.
func (b *Backend) AsynchronousExclusiveCumSum(values backends.Buffer) (backends.Buffer, error) {
	return b.cumSum(values, cumSumExclusive)
}

// AsynchronousInclusiveCumSum implements backends.SparseOps.
func (b *Backend) AsynchronousInclusiveCumSum(values backends.Buffer) (backends.Buffer, error) {
	return b.cumSum(values, cumSumInclusive)
}

// AsynchronousCompleteCumSum implements backends.SparseOps.
func (b *Backend) AsynchronousCompleteCumSum(values backends.Buffer) (backends.Buffer, error) {
	return b.cumSum(values, cumSumComplete)
}

// OffsetsRange implements backends.SparseOps.
func (b *Backend) OffsetsRange(offsets backends.Buffer, outputSize int) (backends.Buffer, error) {
	in, err := b.castBuffer(offsets, "offsets")
	if err != nil {
		return nil, err
	}
	starts, err := intVectorValues(in, "offsets")
	if err != nil {
		return nil, err
	}
	if outputSize < 0 {
		return nil, errors.Errorf("outputSize must be non-negative, got %d", outputSize)
	}
	for ii, start := range starts {
		next := outputSize
		if ii+1 < len(starts) {
			next = starts[ii+1]
		}
		if start < 0 || start > next || next > outputSize {
			return nil, errors.Errorf("offsets must be ascending within [0, %d], got offsets[%d]=%d", outputSize, ii, start)
		}
	}
	var out *Buffer
	if outputSize == 0 {
		out = emptyVector(in.shape.DType)
	} else {
		out = b.getBuffer(shapes.Make(in.shape.DType, outputSize))
	}
	switch flat := out.flat.(type) {
	case []int32:
		offsetsRangeImpl(starts, flat)
	case []int64:
		offsetsRangeImpl(starts, flat)
	default:
		b.putBuffer(out)
		return nil, notImplementedForDType("OffsetsRange", in.shape.DType)
	}
	return out, nil
}

func offsetsRangeImpl[T int32 | int64](starts []int, out []T) {
	clear(out)
	for ii, start := range starts {
		next := len(out)
		if ii+1 < len(starts) {
			next = starts[ii+1]
		}
		for jj := start; jj < next; jj++ {
			out[jj] = T(jj - start)
		}
	}
}

// LengthsRange implements backends.SparseOps.
func (b *Backend) LengthsRange(lengths backends.Buffer) (backends.Buffer, error) {
	in, err := b.castBuffer(lengths, "lengths")
	if err != nil {
		return nil, err
	}
	lens, err := intVectorValues(in, "lengths")
	if err != nil {
		return nil, err
	}
	total := 0
	for ii, l := range lens {
		if l < 0 {
			return nil, errors.Errorf("lengths must be non-negative, got lengths[%d]=%d", ii, l)
		}
		total += l
	}
	var out *Buffer
	if total == 0 {
		out = emptyVector(in.shape.DType)
	} else {
		out = b.getBuffer(shapes.Make(in.shape.DType, total))
	}
	switch flat := out.flat.(type) {
	case []int32:
		lengthsRangeImpl(lens, flat)
	case []int64:
		lengthsRangeImpl(lens, flat)
	default:
		b.putBuffer(out)
		return nil, notImplementedForDType("LengthsRange", in.shape.DType)
	}
	return out, nil
}

func lengthsRangeImpl[T int32 | int64](lens []int, out []T) {
	pos := 0
	for _, l := range lens {
		for jj := 0; jj < l; jj++ {
			out[pos] = T(jj)
			pos++
		}
	}
}
