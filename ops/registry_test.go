// Copyright 2026 The FBGEMM-Go Authors. SPDX-License-Identifier: Apache-2.0

package ops

import (
	"fmt"
	"os"
	"testing"

	"github.com/Svetlitski-FB/FBGEMM/backends"
	"github.com/Svetlitski-FB/FBGEMM/backends/simplego"
	"github.com/Svetlitski-FB/FBGEMM/fbgemm"
	"github.com/Svetlitski-FB/FBGEMM/types/tensors"
	"github.com/janpfeifer/must"
	"github.com/stretchr/testify/require"
	"k8s.io/klog/v2"
)

var backend backends.Backend

func init() {
	klog.InitFlags(nil)
}

func setup() {
	if os.Getenv(backends.ConfigEnvVar) == "" {
		must.M(os.Setenv(backends.ConfigEnvVar, simplego.BackendName))
	}
	backend = backends.New()
	fmt.Printf("Backend: %s, %s\n", backend.Name(), backend.Description())
}

func teardown() {
	backend.Finalize()
}

func TestMain(m *testing.M) {
	setup()
	code := m.Run()
	teardown()
	os.Exit(code)
}

func TestListIncludesBindings(t *testing.T) {
	entries := List()
	require.Contains(t, entries, "pack_segments@go")
	require.Contains(t, entries, "batched_unary_embeddings@go")
	require.Contains(t, entries, "index_select_dim0@go")
	require.Contains(t, entries, "asynchronous_complete_cumsum@go")
}

func TestLookupMissIsACatchableError(t *testing.T) {
	_, err := Lookup("nonexistent_op", simplego.BackendName)
	require.Error(t, err)
	require.Contains(t, err.Error(), "nonexistent_op")

	_, err = Invoke("nonexistent_op", simplego.BackendName)
	require.Error(t, err)

	_, err = Lookup("pack_segments", "no_such_backend")
	require.Error(t, err)
}

func TestDuplicateRegistrationPanics(t *testing.T) {
	require.Panics(t, func() {
		Register("pack_segments", simplego.BackendName, packSegmentsBinding)
	})
}

func TestInvokeDifferentiableOperator(t *testing.T) {
	input := tensors.FromFlatData(backend, 0, []float32{1, 2, 3}, 3, 1)
	indices := tensors.FromFlatData(backend, 0, []int64{2, 0, 2}, 3)

	result, err := Invoke("index_select_dim0", simplego.BackendName, input, indices)
	require.NoError(t, err)
	applied, ok := result.(Applied)
	require.True(t, ok)
	require.Equal(t, []float32{3, 1, 3}, tensors.FlatData[float32](applied.Output))

	grad := tensors.FromFlatData(backend, 0, []float32{10, 20, 30}, 3, 1)
	grads := fbgemm.IndexSelectDim0{}.Backward(applied.Context, []*tensors.Tensor{grad})
	require.Equal(t, []float32{20, 0, 40}, tensors.FlatData[float32](grads[0].Tensor()))
}

func TestInvokeStatelessKernels(t *testing.T) {
	values := tensors.FromFlatData(backend, 0, []int32{2, 0, 1}, 3)

	result, err := Invoke("asynchronous_complete_cumsum", simplego.BackendName, values)
	require.NoError(t, err)
	require.Equal(t, []int32{0, 2, 2, 3}, tensors.FlatData[int32](result.(*tensors.Tensor)))

	result, err = Invoke("lengths_range", simplego.BackendName, values)
	require.NoError(t, err)
	require.Equal(t, []int32{0, 1, 0}, tensors.FlatData[int32](result.(*tensors.Tensor)))

	offsets := tensors.FromFlatData(backend, 0, []int32{0, 2}, 2)
	result, err = Invoke("offsets_range", simplego.BackendName, offsets, 4)
	require.NoError(t, err)
	require.Equal(t, []int32{0, 1, 0, 1}, tensors.FlatData[int32](result.(*tensors.Tensor)))
}

func TestInvokeArgumentValidation(t *testing.T) {
	_, err := Invoke("pack_segments", simplego.BackendName, "not a tensor", 1, 2)
	require.Error(t, err)

	_, err = Invoke("pack_segments", simplego.BackendName)
	require.Error(t, err)
}
