// Copyright 2026 The FBGEMM-Go Authors. SPDX-License-Identifier: Apache-2.0

package simplego

import (
	"github.com/gomlx/gopjrt/dtypes"
	"github.com/pkg/errors"
	"github.com/x448/float16"
)

// PODNumericConstraints are used for generics for the Golang pod (plain-old-data) types.
// Float16 is not included because it is a specialized type, not natively supported by Go.
type PODNumericConstraints interface {
	int8 | int16 | int32 | int64 | uint8 | uint16 | uint32 | uint64 | float32 | float64
}

// PODFloatConstraints are used for generics for the Golang pod (plain-old-data) types.
// Float16 is not included because it is a specialized type, not natively supported by Go.
type PODFloatConstraints interface {
	float32 | float64
}

// PODIntegerConstraints are used for generics for the Golang pod (plain-old-data) types.
type PODIntegerConstraints interface {
	int8 | int16 | int32 | int64 | uint8 | uint16 | uint32 | uint64
}

// intVectorValues reads a rank-1 integer buffer (the dtypes used for lengths, offsets and
// indices) into a plain []int.
func intVectorValues(buf *Buffer, name string) ([]int, error) {
	if err := buf.shape.CheckRank(1); err != nil {
		return nil, errors.WithMessagef(err, "%s must be a vector", name)
	}
	switch flat := buf.flat.(type) {
	case []int32:
		values := make([]int, len(flat))
		for ii, v := range flat {
			values[ii] = int(v)
		}
		return values, nil
	case []int64:
		values := make([]int, len(flat))
		for ii, v := range flat {
			values[ii] = int(v)
		}
		return values, nil
	default:
		return nil, errors.Errorf("%s must be Int32 or Int64, got %s", name, buf.shape.DType)
	}
}

// rowSize is the number of elements of one axis-0 row: the product of the trailing dimensions.
func rowSize(buf *Buffer) int {
	size := 1
	for _, dim := range buf.shape.Dimensions[1:] {
		size *= dim
	}
	return size
}

// notImplementedForDType is the standard error for kernels called with a dtype this backend
// doesn't support.
func notImplementedForDType(kernel string, dtype dtypes.DType) error {
	return errors.Errorf("SimpleGo kernel %s does not support dtype %s", kernel, dtype)
}

// float16ToF32 and f32ToFloat16 convert between the storage and accumulation types for fp16
// kernels: accumulation always happens in float32.
func float16ToF32(v float16.Float16) float32 { return v.Float32() }
func f32ToFloat16(v float32) float16.Float16 { return float16.Fromfloat32(v) }
