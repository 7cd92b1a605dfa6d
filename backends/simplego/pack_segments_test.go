// Copyright 2026 The FBGEMM-Go Authors. SPDX-License-Identifier: Apache-2.0

package simplego

import (
	"testing"

	"github.com/stretchr/testify/require"
	"github.com/x448/float16"
)

func TestPackSegmentsForward(t *testing.T) {
	// 3 segments of lengths 2, 0, 3 over rows of width 2.
	tIn := bufferOf(t, []float32{
		1, 2,
		3, 4,
		5, 6,
		7, 8,
		9, 10,
	}, 5, 2)
	lengths := vectorOf[int32](t, 2, 0, 3)

	out, err := backend.PackSegmentsForward(tIn, lengths, 3)
	require.NoError(t, err)
	require.Equal(t, []float32{
		1, 2, 3, 4, 0, 0,
		0, 0, 0, 0, 0, 0,
		5, 6, 7, 8, 9, 10,
	}, flatOf[float32](t, out, 3, 3, 2))
}

func TestPackSegmentsForwardTruncates(t *testing.T) {
	tIn := vectorOf[float64](t, 1, 2, 3, 4)
	lengths := vectorOf[int64](t, 3, 1)

	out, err := backend.PackSegmentsForward(tIn, lengths, 2)
	require.NoError(t, err)
	require.Equal(t, []float64{1, 2, 4, 0}, flatOf[float64](t, out, 2, 2))
}

func TestPackSegmentsForwardValidation(t *testing.T) {
	tIn := vectorOf[float32](t, 1, 2, 3)

	_, err := backend.PackSegmentsForward(tIn, vectorOf[int32](t, 1, 1), 2)
	require.Error(t, err, "lengths must sum to the number of rows")

	_, err = backend.PackSegmentsForward(tIn, vectorOf[int32](t, 4, -1), 2)
	require.Error(t, err, "lengths must be non-negative")

	_, err = backend.PackSegmentsForward(tIn, vectorOf[int32](t, 3), 0)
	require.Error(t, err, "maxLength must be positive")
}

func TestPackSegmentsBackward(t *testing.T) {
	grad := bufferOf(t, []float32{
		10, 20, 0,
		30, 40, 50,
	}, 2, 3)
	lengths := vectorOf[int32](t, 2, 3)

	out, err := backend.PackSegmentsBackward(grad, lengths, 5, 3)
	require.NoError(t, err)
	require.Equal(t, []float32{10, 20, 30, 40, 50}, flatOf[float32](t, out, 5))
}

func TestPackSegmentsBackwardTruncatedRowsGetZeros(t *testing.T) {
	// Forward with maxLength=2 truncated the first segment's third row; its
	// gradient must come back as zero.
	grad := bufferOf(t, []float32{
		10, 20,
		30, 0,
	}, 2, 2)
	lengths := vectorOf[int32](t, 3, 1)

	out, err := backend.PackSegmentsBackward(grad, lengths, 4, 2)
	require.NoError(t, err)
	require.Equal(t, []float32{10, 20, 0, 30}, flatOf[float32](t, out, 4))
}

func TestPackSegmentsFloat16RoundTrip(t *testing.T) {
	values := []float16.Float16{
		float16.Fromfloat32(1), float16.Fromfloat32(2), float16.Fromfloat32(3),
	}
	tIn := bufferOf(t, values, 3)
	lengths := vectorOf[int32](t, 1, 2)

	packed, err := backend.PackSegmentsForward(tIn, lengths, 2)
	require.NoError(t, err)
	unpacked, err := backend.PackSegmentsBackward(packed, lengths, 3, 2)
	require.NoError(t, err)
	require.Equal(t, values, flatOf[float16.Float16](t, unpacked, 3))
}
