// Copyright 2026 The FBGEMM-Go Authors. SPDX-License-Identifier: Apache-2.0

package simplego

import (
	"testing"

	"github.com/gomlx/gopjrt/dtypes"
	"github.com/stretchr/testify/require"
)

func TestAsynchronousCumSums(t *testing.T) {
	values := vectorOf[int32](t, 3, 0, 2, 1)

	out, err := backend.AsynchronousExclusiveCumSum(values)
	require.NoError(t, err)
	require.Equal(t, []int32{0, 3, 3, 5}, flatOf[int32](t, out, 4))

	out, err = backend.AsynchronousInclusiveCumSum(values)
	require.NoError(t, err)
	require.Equal(t, []int32{3, 3, 5, 6}, flatOf[int32](t, out, 4))

	out, err = backend.AsynchronousCompleteCumSum(values)
	require.NoError(t, err)
	require.Equal(t, []int32{0, 3, 3, 5, 6}, flatOf[int32](t, out, 5))
}

func TestAsynchronousCumSumFloat(t *testing.T) {
	out, err := backend.AsynchronousCompleteCumSum(vectorOf[float64](t, 0.5, 1.5))
	require.NoError(t, err)
	require.Equal(t, []float64{0, 0.5, 2}, flatOf[float64](t, out, 3))
}

func TestAsynchronousCumSumRejectsMatrices(t *testing.T) {
	_, err := backend.AsynchronousExclusiveCumSum(bufferOf(t, []int32{1, 2, 3, 4}, 2, 2))
	require.Error(t, err)
}

func TestOffsetsRange(t *testing.T) {
	out, err := backend.OffsetsRange(vectorOf[int32](t, 0, 2, 2, 5), 7)
	require.NoError(t, err)
	require.Equal(t, []int32{0, 1, 0, 1, 2, 0, 1}, flatOf[int32](t, out, 7))
}

func TestOffsetsRangeValidation(t *testing.T) {
	_, err := backend.OffsetsRange(vectorOf[int32](t, 0, 5, 2), 7)
	require.Error(t, err, "offsets must be ascending")

	_, err = backend.OffsetsRange(vectorOf[int32](t, 0, 9), 7)
	require.Error(t, err, "offsets must stay within outputSize")
}

func TestLengthsRange(t *testing.T) {
	out, err := backend.LengthsRange(vectorOf[int64](t, 2, 0, 3))
	require.NoError(t, err)
	require.Equal(t, []int64{0, 1, 0, 1, 2}, flatOf[int64](t, out, 5))
}

func TestLengthsRangeEmpty(t *testing.T) {
	out, err := backend.LengthsRange(vectorOf[int32](t, 0, 0))
	require.NoError(t, err)
	require.Empty(t, flatOf[int32](t, out, 0))
}

func TestLengthsRangeValidation(t *testing.T) {
	_, err := backend.LengthsRange(vectorOf[int32](t, 2, -1))
	require.Error(t, err)
}

func TestOffsetsRangeEmpty(t *testing.T) {
	out, err := backend.OffsetsRange(vectorOf[int32](t, 0), 0)
	require.NoError(t, err)
	require.Empty(t, flatOf[int32](t, out, 0))
}

func TestEmptyRangeResultsAreNotPooled(t *testing.T) {
	out, err := backend.LengthsRange(vectorOf[int32](t, 0, 0))
	require.NoError(t, err)
	require.NoError(t, backend.BufferFinalize(out))
	_, err = backend.BufferShape(out)
	require.Error(t, err, "finalized buffers must be rejected")

	// Pools are keyed by (dtype, length) with length > 0; finalizing the empty result must
	// not have created a zero-length pool class.
	sb := backend.(*Backend)
	_, found := sb.bufferPools.Load(bufferPoolKey{dtype: dtypes.Int32, length: 0})
	require.False(t, found)
}
