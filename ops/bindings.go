// Copyright 2026 The FBGEMM-Go Authors. SPDX-License-Identifier: Apache-2.0

package ops

import (
	"github.com/Svetlitski-FB/FBGEMM/backends"
	"github.com/Svetlitski-FB/FBGEMM/backends/simplego"
	"github.com/Svetlitski-FB/FBGEMM/fbgemm"
	"github.com/Svetlitski-FB/FBGEMM/types/tensors"
	"github.com/pkg/errors"
)

// Applied is the result of invoking a differentiable operator through the registry: the
// forward output plus the context to later hand to the operator's Backward.
type Applied struct {
	Output  *tensors.Tensor
	Context *fbgemm.Context
}

func argTensor(name string, args []any, i int) (*tensors.Tensor, error) {
	t, ok := args[i].(*tensors.Tensor)
	if !ok {
		return nil, errors.Errorf("%s: argument #%d must be a *tensors.Tensor, got %T", name, i, args[i])
	}
	return t, nil
}

func argInt(name string, args []any, i int) (int, error) {
	v, ok := args[i].(int)
	if !ok {
		return 0, errors.Errorf("%s: argument #%d must be an int, got %T", name, i, args[i])
	}
	return v, nil
}

func argBool(name string, args []any, i int) (bool, error) {
	v, ok := args[i].(bool)
	if !ok {
		return false, errors.Errorf("%s: argument #%d must be a bool, got %T", name, i, args[i])
	}
	return v, nil
}

func argCount(name string, args []any, want ...int) error {
	for _, w := range want {
		if len(args) == w {
			return nil
		}
	}
	return errors.Errorf("%s: expected %v arguments, got %d", name, want, len(args))
}

func packSegmentsBinding(args ...any) (any, error) {
	const name = "pack_segments"
	if err := argCount(name, args, 3); err != nil {
		return nil, err
	}
	tIn, err := argTensor(name, args, 0)
	if err != nil {
		return nil, err
	}
	lengths, err := argTensor(name, args, 1)
	if err != nil {
		return nil, err
	}
	maxLength, err := argInt(name, args, 2)
	if err != nil {
		return nil, err
	}
	out, ctx := fbgemm.ApplyPackSegments(tIn, lengths, maxLength)
	return Applied{Output: out, Context: ctx}, nil
}

func batchedUnaryEmbeddingsBinding(args ...any) (any, error) {
	const name = "batched_unary_embeddings"
	if err := argCount(name, args, 4); err != nil {
		return nil, err
	}
	ts := make([]*tensors.Tensor, 4)
	for i := range ts {
		var err error
		if ts[i], err = argTensor(name, args, i); err != nil {
			return nil, err
		}
	}
	out, ctx := fbgemm.ApplyBatchedUnaryEmbeddingLookup(ts[0], ts[1], ts[2], ts[3])
	return Applied{Output: out, Context: ctx}, nil
}

// indexSelectDim0Binding accepts either just (input, indices), defaulting to no known
// consecutive range and eager sorting, or the full five arguments.
func indexSelectDim0Binding(args ...any) (any, error) {
	const name = "index_select_dim0"
	if err := argCount(name, args, 2, 5); err != nil {
		return nil, err
	}
	input, err := argTensor(name, args, 0)
	if err != nil {
		return nil, err
	}
	indices, err := argTensor(name, args, 1)
	if err != nil {
		return nil, err
	}
	var rangeStart, rangeLength int
	var skipSorting bool
	if len(args) == 5 {
		if rangeStart, err = argInt(name, args, 2); err != nil {
			return nil, err
		}
		if rangeLength, err = argInt(name, args, 3); err != nil {
			return nil, err
		}
		if skipSorting, err = argBool(name, args, 4); err != nil {
			return nil, err
		}
	}
	out, ctx := fbgemm.ApplyIndexSelectDim0(input, indices, rangeStart, rangeLength, skipSorting)
	return Applied{Output: out, Context: ctx}, nil
}

// vectorKernelBinding adapts a stateless single-tensor kernel into a Callable.
func vectorKernelBinding(name string, kernel func(backend backends.Backend, buffer backends.Buffer) (backends.Buffer, error)) Callable {
	return func(args ...any) (any, error) {
		if err := argCount(name, args, 1); err != nil {
			return nil, err
		}
		in, err := argTensor(name, args, 0)
		if err != nil {
			return nil, err
		}
		out, err := kernel(in.Backend(), in.Buffer())
		if err != nil {
			return nil, errors.WithMessage(err, name)
		}
		return tensors.FromBuffer(in.Backend(), out), nil
	}
}

func offsetsRangeBinding(args ...any) (any, error) {
	const name = "offsets_range"
	if err := argCount(name, args, 2); err != nil {
		return nil, err
	}
	offsets, err := argTensor(name, args, 0)
	if err != nil {
		return nil, err
	}
	outputSize, err := argInt(name, args, 1)
	if err != nil {
		return nil, err
	}
	out, err := offsets.Backend().OffsetsRange(offsets.Buffer(), outputSize)
	if err != nil {
		return nil, errors.WithMessage(err, name)
	}
	return tensors.FromBuffer(offsets.Backend(), out), nil
}

func init() {
	backendName := simplego.BackendName

	// Differentiable operators.
	Register("pack_segments", backendName, packSegmentsBinding)
	Register("batched_unary_embeddings", backendName, batchedUnaryEmbeddingsBinding)
	Register("index_select_dim0", backendName, indexSelectDim0Binding)

	// Stateless kernel bindings.
	Register("asynchronous_exclusive_cumsum", backendName, vectorKernelBinding(
		"asynchronous_exclusive_cumsum", backends.Backend.AsynchronousExclusiveCumSum))
	Register("asynchronous_inclusive_cumsum", backendName, vectorKernelBinding(
		"asynchronous_inclusive_cumsum", backends.Backend.AsynchronousInclusiveCumSum))
	Register("asynchronous_complete_cumsum", backendName, vectorKernelBinding(
		"asynchronous_complete_cumsum", backends.Backend.AsynchronousCompleteCumSum))
	Register("lengths_range", backendName, vectorKernelBinding(
		"lengths_range", backends.Backend.LengthsRange))
	Register("offsets_range", backendName, offsetsRangeBinding)
}
