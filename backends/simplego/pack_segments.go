// Copyright 2026 The FBGEMM-Go Authors. SPDX-License-Identifier: Apache-2.0

package simplego

import (
	"github.com/Svetlitski-FB/FBGEMM/backends"
	"github.com/Svetlitski-FB/FBGEMM/types/shapes"
	"github.com/pkg/errors"
	"github.com/x448/float16"
)

// PackSegmentsForward implements backends.SparseOps.
//
// The segments of tIn (rows along axis 0, demarcated by lengths) are rearranged into a
// segment-major output of shape [numSegments, maxLength, ...]: zero-padded, and truncated
// at maxLength rows.
func (b *Backend) PackSegmentsForward(tIn, lengths backends.Buffer, maxLength int) (backends.Buffer, error) {
	in, err := b.castBuffer(tIn, "tIn")
	if err != nil {
		return nil, err
	}
	lengthsBuf, err := b.castBuffer(lengths, "lengths")
	if err != nil {
		return nil, err
	}
	lens, err := intVectorValues(lengthsBuf, "lengths")
	if err != nil {
		return nil, err
	}
	if maxLength <= 0 {
		return nil, errors.Errorf("maxLength must be positive, got %d", maxLength)
	}
	if in.shape.Rank() < 1 {
		return nil, errors.Errorf("tIn must have at least rank 1, got shape %s", in.shape)
	}
	totalLength := in.shape.Dimensions[0]
	sum := 0
	for _, l := range lens {
		if l < 0 {
			return nil, errors.Errorf("lengths must be non-negative, got %v", lens)
		}
		sum += l
	}
	if sum != totalLength {
		return nil, errors.Errorf("lengths sum to %d, but tIn has %d rows (shape %s)", sum, totalLength, in.shape)
	}

	outDims := append([]int{len(lens), maxLength}, in.shape.Dimensions[1:]...)
	out := b.getBuffer(shapes.Make(in.shape.DType, outDims...))
	row := rowSize(in)
	switch flat := in.flat.(type) {
	case []float32:
		packSegmentsForwardImpl(flat, out.flat.([]float32), lens, maxLength, row)
	case []float64:
		packSegmentsForwardImpl(flat, out.flat.([]float64), lens, maxLength, row)
	case []float16.Float16:
		packSegmentsForwardImpl(flat, out.flat.([]float16.Float16), lens, maxLength, row)
	case []int32:
		packSegmentsForwardImpl(flat, out.flat.([]int32), lens, maxLength, row)
	case []int64:
		packSegmentsForwardImpl(flat, out.flat.([]int64), lens, maxLength, row)
	default:
		b.putBuffer(out)
		return nil, notImplementedForDType("PackSegmentsForward", in.shape.DType)
	}
	return out, nil
}

func packSegmentsForwardImpl[T any](in, out []T, lens []int, maxLength, row int) {
	clear(out)
	inRow := 0
	for seg, l := range lens {
		n := min(l, maxLength)
		copy(out[seg*maxLength*row:], in[inRow*row:(inRow+n)*row])
		inRow += l
	}
}

// PackSegmentsBackward implements backends.SparseOps.
//
// It scatters the packed gradient rows back to their original unpadded positions: padding
// rows contribute nothing, and rows truncated by the forward pass receive zeros.
func (b *Backend) PackSegmentsBackward(grad, lengths backends.Buffer, totalLength, maxLength int) (backends.Buffer, error) {
	gradBuf, err := b.castBuffer(grad, "grad")
	if err != nil {
		return nil, err
	}
	lengthsBuf, err := b.castBuffer(lengths, "lengths")
	if err != nil {
		return nil, err
	}
	lens, err := intVectorValues(lengthsBuf, "lengths")
	if err != nil {
		return nil, err
	}
	if gradBuf.shape.Rank() < 2 {
		return nil, errors.Errorf("grad must have at least rank 2, got shape %s", gradBuf.shape)
	}
	if gradBuf.shape.Dimensions[0] != len(lens) || gradBuf.shape.Dimensions[1] != maxLength {
		return nil, errors.Errorf("grad shape %s is incompatible with %d segments of maxLength %d",
			gradBuf.shape, len(lens), maxLength)
	}
	sum := 0
	for _, l := range lens {
		sum += l
	}
	if sum != totalLength {
		return nil, errors.Errorf("lengths sum to %d, but totalLength is %d", sum, totalLength)
	}

	outDims := append([]int{totalLength}, gradBuf.shape.Dimensions[2:]...)
	out := b.getBuffer(shapes.Make(gradBuf.shape.DType, outDims...))
	row := 1
	for _, dim := range gradBuf.shape.Dimensions[2:] {
		row *= dim
	}
	switch flat := gradBuf.flat.(type) {
	case []float32:
		packSegmentsBackwardImpl(flat, out.flat.([]float32), lens, maxLength, row)
	case []float64:
		packSegmentsBackwardImpl(flat, out.flat.([]float64), lens, maxLength, row)
	case []float16.Float16:
		packSegmentsBackwardImpl(flat, out.flat.([]float16.Float16), lens, maxLength, row)
	case []int32:
		packSegmentsBackwardImpl(flat, out.flat.([]int32), lens, maxLength, row)
	case []int64:
		packSegmentsBackwardImpl(flat, out.flat.([]int64), lens, maxLength, row)
	default:
		b.putBuffer(out)
		return nil, notImplementedForDType("PackSegmentsBackward", gradBuf.shape.DType)
	}
	return out, nil
}

func packSegmentsBackwardImpl[T any](grad, out []T, lens []int, maxLength, row int) {
	clear(out)
	outRow := 0
	for seg, l := range lens {
		n := min(l, maxLength)
		copy(out[outRow*row:(outRow+n)*row], grad[seg*maxLength*row:])
		outRow += l
	}
}
