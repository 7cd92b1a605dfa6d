// Copyright 2026 The FBGEMM-Go Authors. SPDX-License-Identifier: Apache-2.0

// Package tensors implements a Tensor, a multi-dimensional array resident on a kernel
// backend's device.
//
// A Tensor is a thin, immutable handle: a shape plus the opaque backend Buffer holding the
// values. Tensors are created from flat Go slices with FromFlatData, or wrap a buffer
// returned by a kernel with FromBuffer. Values are read back with ConstFlatData or the
// generic FlatData.
//
// Tensors are never mutated in place by the sparse operators except via a declared output;
// ownership stays with the caller unless a saved context retains the tensor for a backward
// pass, in which case it is shared until both holders are done.
package tensors

import (
	"fmt"
	"reflect"
	"strings"

	"github.com/Svetlitski-FB/FBGEMM/backends"
	"github.com/Svetlitski-FB/FBGEMM/types/shapes"
	"github.com/dustin/go-humanize"
	"github.com/gomlx/exceptions"
	"github.com/gomlx/gopjrt/dtypes"
	"github.com/janpfeifer/must"
)

// Tensor represents a multidimensional array (from scalar with 0 dimensions, to arbitrarily
// large dimensions), defined by its shape and its content, stored on a backend device.
type Tensor struct {
	shape     shapes.Shape
	backend   backends.Backend
	deviceNum backends.DeviceNum
	buffer    backends.Buffer
}

// FromBuffer wraps a buffer returned by a backend kernel into a Tensor.
// The shape and device are queried from the backend.
//
// It panics if the buffer is invalid for the backend.
func FromBuffer(backend backends.Backend, buffer backends.Buffer) *Tensor {
	shape := must.M1(backend.BufferShape(buffer))
	deviceNum := must.M1(backend.BufferDeviceNum(buffer))
	return &Tensor{
		shape:     shape,
		backend:   backend,
		deviceNum: deviceNum,
		buffer:    buffer,
	}
}

// FromFlatData creates a Tensor on the given backend device with the given dimensions, set
// with the flattened values in flat.
//
// Example:
//
//	t := tensors.FromFlatData(backend, 0, []float32{1, 2, 3, 4}, 2, 2) // Tensor with [[1,2], [3,4]]
func FromFlatData[T dtypes.Supported](backend backends.Backend, deviceNum backends.DeviceNum, flat []T, dimensions ...int) *Tensor {
	shape := shapes.Make(dtypes.FromGenericsType[T](), dimensions...)
	if len(flat) != shape.Size() {
		exceptions.Panicf("tensors.FromFlatData: shape %s needs %d values, got %d", shape, shape.Size(), len(flat))
	}
	buffer := must.M1(backend.BufferFromFlatData(deviceNum, flat, shape))
	return &Tensor{
		shape:     shape,
		backend:   backend,
		deviceNum: deviceNum,
		buffer:    buffer,
	}
}

// FromScalar creates a scalar (rank 0) Tensor on the given backend device.
func FromScalar[T dtypes.Supported](backend backends.Backend, deviceNum backends.DeviceNum, value T) *Tensor {
	shape := shapes.Scalar[T]()
	buffer := must.M1(backend.BufferFromFlatData(deviceNum, []T{value}, shape))
	return &Tensor{
		shape:     shape,
		backend:   backend,
		deviceNum: deviceNum,
		buffer:    buffer,
	}
}

// Shape of the Tensor. It implements shapes.HasShape.
func (t *Tensor) Shape() shapes.Shape { return t.shape }

// DType of the Tensor's unit element.
func (t *Tensor) DType() dtypes.DType { return t.shape.DType }

// Rank of the Tensor: the number of axes. Scalars have rank 0.
func (t *Tensor) Rank() int { return t.shape.Rank() }

// Size is the number of elements stored by the Tensor.
func (t *Tensor) Size() int { return t.shape.Size() }

// Backend holding the Tensor's data.
func (t *Tensor) Backend() backends.Backend { return t.backend }

// DeviceNum of the device holding the Tensor's data.
func (t *Tensor) DeviceNum() backends.DeviceNum { return t.deviceNum }

// Buffer returns the opaque backend buffer holding the Tensor's data.
// It is only meaningful to the backend that created it.
func (t *Tensor) Buffer() backends.Buffer { return t.buffer }

// OnSameDevice returns whether both tensors reside on the same device of the same backend.
func (t *Tensor) OnSameDevice(other *Tensor) bool {
	return t.backend == other.backend && t.deviceNum == other.deviceNum
}

// ConstFlatData transfers the Tensor's values back to a newly allocated flat Go slice of the
// underlying dtype. The returned slice is a copy, mutating it doesn't affect the Tensor.
func (t *Tensor) ConstFlatData() any {
	flat := reflect.MakeSlice(reflect.SliceOf(t.shape.DType.GoType()), t.Size(), t.Size()).Interface()
	must.M(t.backend.BufferToFlatData(t.buffer, flat))
	return flat
}

// FlatData is the typed version of Tensor.ConstFlatData.
//
// It panics if T doesn't match the Tensor's dtype.
func FlatData[T dtypes.Supported](t *Tensor) []T {
	if got := dtypes.FromGenericsType[T](); got != t.shape.DType {
		exceptions.Panicf("tensors.FlatData[%s]: tensor has dtype %s", got, t.shape.DType)
	}
	return t.ConstFlatData().([]T)
}

// Finalize releases the underlying device buffer immediately. The Tensor becomes invalid.
func (t *Tensor) Finalize() {
	if t.buffer == nil {
		return
	}
	must.M(t.backend.BufferFinalize(t.buffer))
	t.buffer = nil
}

// maxElementsToPrint before Tensor.String elides the values.
const maxElementsToPrint = 16

// String prints the shape and, for small tensors, the flat values.
func (t *Tensor) String() string {
	if t.Size() > maxElementsToPrint {
		return fmt.Sprintf("Tensor%s: (%s elements)", t.shape, humanize.Comma(int64(t.Size())))
	}
	var sb strings.Builder
	fmt.Fprintf(&sb, "Tensor%s: %v", t.shape, t.ConstFlatData())
	return sb.String()
}
