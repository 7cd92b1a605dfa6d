// Copyright 2026 The FBGEMM-Go Authors. SPDX-License-Identifier: Apache-2.0

package simplego

import (
	"github.com/Svetlitski-FB/FBGEMM/backends"
	"github.com/Svetlitski-FB/FBGEMM/types/shapes"
	"github.com/pkg/errors"
	"github.com/x448/float16"
)

// unaryEmbeddingsArgs holds the decoded integer arguments shared by the forward and
// backward unary-embeddings kernels.
type unaryEmbeddingsArgs struct {
	tableOffsets []int
	offsets      []int
	indices      []int
	numTables    int
	batchSize    int
	numWeights   int
}

func (b *Backend) unaryEmbeddingsArgs(weight *Buffer, tableOffsets, offsets, indices backends.Buffer) (args unaryEmbeddingsArgs, err error) {
	if err = weight.shape.CheckRank(1); err != nil {
		return args, errors.WithMessage(err, "weight must be a flat vector")
	}
	var buf *Buffer
	if buf, err = b.castBuffer(tableOffsets, "tableOffsets"); err != nil {
		return args, err
	}
	if args.tableOffsets, err = intVectorValues(buf, "tableOffsets"); err != nil {
		return args, err
	}
	if buf, err = b.castBuffer(offsets, "offsets"); err != nil {
		return args, err
	}
	if args.offsets, err = intVectorValues(buf, "offsets"); err != nil {
		return args, err
	}
	if buf, err = b.castBuffer(indices, "indices"); err != nil {
		return args, err
	}
	if args.indices, err = intVectorValues(buf, "indices"); err != nil {
		return args, err
	}

	args.numWeights = weight.shape.Dimensions[0]
	args.numTables = len(args.tableOffsets) - 1
	if args.numTables < 1 {
		return args, errors.Errorf("tableOffsets must delimit at least one table, got %d entries", len(args.tableOffsets))
	}
	if args.tableOffsets[0] < 0 {
		return args, errors.Errorf("tableOffsets must be non-negative, got tableOffsets[0]=%d", args.tableOffsets[0])
	}
	for ii := 1; ii <= args.numTables; ii++ {
		if args.tableOffsets[ii] < args.tableOffsets[ii-1] {
			return args, errors.Errorf("tableOffsets must be ascending, got %v", args.tableOffsets)
		}
	}
	if args.tableOffsets[args.numTables] > args.numWeights {
		return args, errors.Errorf("tableOffsets end at %d, beyond the %d weights", args.tableOffsets[args.numTables], args.numWeights)
	}
	if (len(args.offsets)-1)%args.numTables != 0 {
		return args, errors.Errorf("offsets has %d ranges, not a multiple of the %d tables", len(args.offsets)-1, args.numTables)
	}
	args.batchSize = (len(args.offsets) - 1) / args.numTables
	return args, nil
}

// lookupRange returns the bounds into indices for the (batch, table) pair, checking them.
func (args *unaryEmbeddingsArgs) lookupRange(batch, table int) (start, end int, err error) {
	pos := batch*args.numTables + table
	start, end = args.offsets[pos], args.offsets[pos+1]
	if start < 0 || end < start || end > len(args.indices) {
		return 0, 0, errors.Errorf("offsets[%d:%d]=[%d, %d) out of bounds for %d indices",
			pos, pos+2, start, end, len(args.indices))
	}
	return start, end, nil
}

// weightIndex resolves one lookup into a position in the flat weight vector, checking bounds
// against the table limits.
func (args *unaryEmbeddingsArgs) weightIndex(table, i int) (int, error) {
	idx := args.indices[i]
	tableStart, tableEnd := args.tableOffsets[table], args.tableOffsets[table+1]
	if idx < 0 || tableStart+idx >= tableEnd {
		return 0, errors.Errorf("index %d out of bounds for table %d with %d rows", idx, table, tableEnd-tableStart)
	}
	return tableStart + idx, nil
}

// BatchedUnaryEmbeddingsForward implements backends.SparseOps.
//
// The output is shaped [batchSize, numTables]; entry (b, t) is the sum of the weights the
// indices in range offsets[b*numTables+t] select within table t.
func (b *Backend) BatchedUnaryEmbeddingsForward(weight, tableOffsets, offsets, indices backends.Buffer) (backends.Buffer, error) {
	weightBuf, err := b.castBuffer(weight, "weight")
	if err != nil {
		return nil, err
	}
	args, err := b.unaryEmbeddingsArgs(weightBuf, tableOffsets, offsets, indices)
	if err != nil {
		return nil, err
	}
	out := b.getBuffer(shapes.Make(weightBuf.shape.DType, args.batchSize, args.numTables))
	switch flat := weightBuf.flat.(type) {
	case []float32:
		err = unaryEmbeddingsForwardImpl(flat, out.flat.([]float32), &args)
	case []float64:
		err = unaryEmbeddingsForwardImpl(flat, out.flat.([]float64), &args)
	case []float16.Float16:
		err = unaryEmbeddingsForwardFloat16(flat, out.flat.([]float16.Float16), &args)
	default:
		err = notImplementedForDType("BatchedUnaryEmbeddingsForward", weightBuf.shape.DType)
	}
	if err != nil {
		b.putBuffer(out)
		return nil, err
	}
	return out, nil
}

func unaryEmbeddingsForwardImpl[T PODFloatConstraints](weight, out []T, args *unaryEmbeddingsArgs) error {
	for batch := 0; batch < args.batchSize; batch++ {
		for table := 0; table < args.numTables; table++ {
			start, end, err := args.lookupRange(batch, table)
			if err != nil {
				return err
			}
			var acc T
			for i := start; i < end; i++ {
				wIdx, err := args.weightIndex(table, i)
				if err != nil {
					return err
				}
				acc += weight[wIdx]
			}
			out[batch*args.numTables+table] = acc
		}
	}
	return nil
}

// unaryEmbeddingsForwardFloat16 accumulates in float32 and converts once per output entry.
func unaryEmbeddingsForwardFloat16(weight, out []float16.Float16, args *unaryEmbeddingsArgs) error {
	for batch := 0; batch < args.batchSize; batch++ {
		for table := 0; table < args.numTables; table++ {
			start, end, err := args.lookupRange(batch, table)
			if err != nil {
				return err
			}
			var acc float32
			for i := start; i < end; i++ {
				wIdx, err := args.weightIndex(table, i)
				if err != nil {
					return err
				}
				acc += float16ToF32(weight[wIdx])
			}
			out[batch*args.numTables+table] = f32ToFloat16(acc)
		}
	}
	return nil
}

// BatchedUnaryEmbeddingsBackward implements backends.SparseOps.
//
// Gradient contributions are scatter-accumulated back into a buffer shaped like weight;
// duplicate indices sum.
func (b *Backend) BatchedUnaryEmbeddingsBackward(gradOutput, weight, tableOffsets, offsets, indices backends.Buffer) (backends.Buffer, error) {
	gradBuf, err := b.castBuffer(gradOutput, "gradOutput")
	if err != nil {
		return nil, err
	}
	weightBuf, err := b.castBuffer(weight, "weight")
	if err != nil {
		return nil, err
	}
	args, err := b.unaryEmbeddingsArgs(weightBuf, tableOffsets, offsets, indices)
	if err != nil {
		return nil, err
	}
	if err = gradBuf.shape.Check(weightBuf.shape.DType, args.batchSize, args.numTables); err != nil {
		return nil, errors.WithMessage(err, "gradOutput doesn't match the forward output shape")
	}
	out := b.getBuffer(weightBuf.shape.Clone())
	switch flat := gradBuf.flat.(type) {
	case []float32:
		err = unaryEmbeddingsBackwardImpl(flat, out.flat.([]float32), &args)
	case []float64:
		err = unaryEmbeddingsBackwardImpl(flat, out.flat.([]float64), &args)
	case []float16.Float16:
		err = unaryEmbeddingsBackwardFloat16(flat, out.flat.([]float16.Float16), &args)
	default:
		err = notImplementedForDType("BatchedUnaryEmbeddingsBackward", gradBuf.shape.DType)
	}
	if err != nil {
		b.putBuffer(out)
		return nil, err
	}
	return out, nil
}

func unaryEmbeddingsBackwardImpl[T PODFloatConstraints](gradOutput, gradWeight []T, args *unaryEmbeddingsArgs) error {
	clear(gradWeight)
	for batch := 0; batch < args.batchSize; batch++ {
		for table := 0; table < args.numTables; table++ {
			start, end, err := args.lookupRange(batch, table)
			if err != nil {
				return err
			}
			grad := gradOutput[batch*args.numTables+table]
			for i := start; i < end; i++ {
				wIdx, err := args.weightIndex(table, i)
				if err != nil {
					return err
				}
				gradWeight[wIdx] += grad
			}
		}
	}
	return nil
}

// unaryEmbeddingsBackwardFloat16 stages the accumulation in float32 and converts once at the
// end, to avoid compounding rounding on repeated indices.
func unaryEmbeddingsBackwardFloat16(gradOutput, gradWeight []float16.Float16, args *unaryEmbeddingsArgs) error {
	staging := make([]float32, len(gradWeight))
	for batch := 0; batch < args.batchSize; batch++ {
		for table := 0; table < args.numTables; table++ {
			start, end, err := args.lookupRange(batch, table)
			if err != nil {
				return err
			}
			grad := float16ToF32(gradOutput[batch*args.numTables+table])
			for i := start; i < end; i++ {
				wIdx, err := args.weightIndex(table, i)
				if err != nil {
					return err
				}
				staging[wIdx] += grad
			}
		}
	}
	for ii, v := range staging {
		gradWeight[ii] = f32ToFloat16(v)
	}
	return nil
}
