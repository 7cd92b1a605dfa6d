// Copyright 2026 The FBGEMM-Go Authors. SPDX-License-Identifier: Apache-2.0

package tensors_test

import (
	"fmt"
	"os"
	"testing"

	"github.com/Svetlitski-FB/FBGEMM/backends"
	_ "github.com/Svetlitski-FB/FBGEMM/backends/simplego"
	"github.com/Svetlitski-FB/FBGEMM/types/tensors"
	"github.com/gomlx/gopjrt/dtypes"
	"github.com/stretchr/testify/require"
	"k8s.io/klog/v2"
)

var backend backends.Backend

func TestMain(m *testing.M) {
	klog.InitFlags(nil)
	backend = backends.New()
	fmt.Printf("Backend: %s, %s\n", backend.Name(), backend.Description())
	code := m.Run()
	backend.Finalize()
	os.Exit(code)
}

func TestFromFlatData(t *testing.T) {
	x := tensors.FromFlatData(backend, 0, []float32{1, 2, 3, 4, 5, 6}, 2, 3)
	require.Equal(t, dtypes.Float32, x.DType())
	require.Equal(t, 2, x.Rank())
	require.Equal(t, 6, x.Size())
	require.Equal(t, backend, x.Backend())
	require.Equal(t, backends.DeviceNum(0), x.DeviceNum())
	require.Equal(t, []float32{1, 2, 3, 4, 5, 6}, tensors.FlatData[float32](x))

	require.Panics(t, func() {
		tensors.FromFlatData(backend, 0, []float32{1, 2}, 2, 3)
	})
}

func TestFromScalar(t *testing.T) {
	x := tensors.FromScalar(backend, 0, int64(42))
	require.True(t, x.Shape().IsScalar())
	require.Equal(t, []int64{42}, tensors.FlatData[int64](x))
}

func TestFromBuffer(t *testing.T) {
	src := tensors.FromFlatData(backend, 0, []int32{7, 8}, 2)
	wrapped := tensors.FromBuffer(backend, src.Buffer())
	require.True(t, wrapped.Shape().Equal(src.Shape()))
	require.True(t, wrapped.OnSameDevice(src))
}

func TestFlatDataDTypeIsChecked(t *testing.T) {
	x := tensors.FromFlatData(backend, 0, []float32{1}, 1)
	require.Panics(t, func() { tensors.FlatData[float64](x) })
}

func TestConstFlatDataIsACopy(t *testing.T) {
	x := tensors.FromFlatData(backend, 0, []float32{1, 2}, 2)
	flat := tensors.FlatData[float32](x)
	flat[0] = 99
	require.Equal(t, []float32{1, 2}, tensors.FlatData[float32](x))
}

func TestString(t *testing.T) {
	small := tensors.FromFlatData(backend, 0, []float32{1, 2}, 2)
	require.Contains(t, small.String(), "[1 2]")

	big := tensors.FromFlatData(backend, 0, make([]float32, 100), 10, 10)
	require.Contains(t, big.String(), "100 elements")
}

func TestFinalize(t *testing.T) {
	x := tensors.FromFlatData(backend, 0, []float32{1, 2}, 2)
	x.Finalize()
	require.Nil(t, x.Buffer())
	x.Finalize() // Idempotent.
}
