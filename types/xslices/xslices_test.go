// Copyright 2026 The FBGEMM-Go Authors. SPDX-License-Identifier: Apache-2.0

package xslices

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestSliceWithValue(t *testing.T) {
	require.Equal(t, []float32{1.5, 1.5, 1.5}, SliceWithValue(3, float32(1.5)))
	require.Empty(t, SliceWithValue(0, 7))
}

func TestIota(t *testing.T) {
	require.Equal(t, []int32{3, 4, 5}, Iota(int32(3), 3))
	require.Equal(t, []float64{0, 1}, Iota(0.0, 2))
}

func TestMap(t *testing.T) {
	require.Equal(t, []int{2, 4, 6}, Map([]int{1, 2, 3}, func(e int) int { return 2 * e }))
}
