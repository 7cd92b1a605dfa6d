// Copyright 2026 The FBGEMM-Go Authors. SPDX-License-Identifier: Apache-2.0

package simplego

import (
	"reflect"
	"sync"

	"github.com/Svetlitski-FB/FBGEMM/backends"
	"github.com/Svetlitski-FB/FBGEMM/types/shapes"
	"github.com/gomlx/gopjrt/dtypes"
	"github.com/pkg/errors"
)

// Compile-time check:
var _ backends.DataInterface = (*Backend)(nil)

// Buffer for SimpleGo backend holds a shape and a reference to the flat data.
//
// flat is always a slice of the underlying data type (shape.DType); buffers come from a
// per-dtype/size pool and go back to it when finalized.
type Buffer struct {
	shape shapes.Shape
	valid bool

	// flat is always a slice of the underlying data type (shape.DType).
	flat any
}

type bufferPoolKey struct {
	dtype  dtypes.DType
	length int
}

// getBufferPool for given dtype/length.
func (b *Backend) getBufferPool(dtype dtypes.DType, length int) *sync.Pool {
	key := bufferPoolKey{dtype: dtype, length: length}
	poolInterface, ok := b.bufferPools.Load(key)
	if !ok {
		poolInterface, _ = b.bufferPools.LoadOrStore(key, &sync.Pool{
			New: func() interface{} {
				return &Buffer{
					flat:  reflect.MakeSlice(reflect.SliceOf(dtype.GoType()), length, length).Interface(),
					shape: shapes.Make(dtype, length),
				}
			},
		})
	}
	return poolInterface.(*sync.Pool)
}

// getBuffer from backend pool of buffers. The data is not zeroed.
func (b *Backend) getBuffer(shape shapes.Shape) *Buffer {
	pool := b.getBufferPool(shape.DType, shape.Size())
	buf := pool.Get().(*Buffer)
	buf.shape = shape.Clone()
	buf.valid = true
	return buf
}

// putBuffer back into the backend pool of buffers.
// After this any references to buffer should be dropped.
func (b *Backend) putBuffer(buffer *Buffer) {
	if buffer == nil || !buffer.shape.Ok() {
		return
	}
	buffer.valid = false
	if buffer.shape.Size() == 0 {
		// Empty buffers (see emptyVector) never come from the pools.
		return
	}
	pool := b.getBufferPool(buffer.shape.DType, buffer.shape.Size())
	pool.Put(buffer)
}

// emptyVector returns a valid zero-length rank-1 buffer. It is allocated directly, not
// pooled: shapes.Make rejects zero dimensions, so the pools only ever hold buffers with a
// positive size.
func emptyVector(dtype dtypes.DType) *Buffer {
	return &Buffer{
		shape: shapes.Shape{DType: dtype, Dimensions: []int{0}},
		valid: true,
		flat:  reflect.MakeSlice(reflect.SliceOf(dtype.GoType()), 0, 0).Interface(),
	}
}

// castBuffer checks that the opaque backends.Buffer belongs to this backend and is valid.
func (b *Backend) castBuffer(buffer backends.Buffer, name string) (*Buffer, error) {
	buf, ok := buffer.(*Buffer)
	if !ok {
		return nil, errors.Errorf("buffer %q is not a SimpleGo buffer (%T)", name, buffer)
	}
	if !buf.valid {
		return nil, errors.Errorf("buffer %q was already finalized", name)
	}
	return buf, nil
}

// copyFlat assumes both flat slices are of the same underlying type.
func copyFlat(flatDst, flatSrc any) {
	reflect.Copy(reflect.ValueOf(flatDst), reflect.ValueOf(flatSrc))
}

// BufferFinalize implements backends.DataInterface.
func (b *Backend) BufferFinalize(buffer backends.Buffer) error {
	buf, err := b.castBuffer(buffer, "buffer")
	if err != nil {
		return err
	}
	b.putBuffer(buf)
	return nil
}

// BufferShape implements backends.DataInterface.
func (b *Backend) BufferShape(buffer backends.Buffer) (shapes.Shape, error) {
	buf, err := b.castBuffer(buffer, "buffer")
	if err != nil {
		return shapes.Invalid(), err
	}
	return buf.shape, nil
}

// BufferDeviceNum implements backends.DataInterface. SimpleGo has a single device.
func (b *Backend) BufferDeviceNum(buffer backends.Buffer) (backends.DeviceNum, error) {
	if _, err := b.castBuffer(buffer, "buffer"); err != nil {
		return 0, err
	}
	return 0, nil
}

// BufferToFlatData implements backends.DataInterface.
func (b *Backend) BufferToFlatData(buffer backends.Buffer, flat any) error {
	buf, err := b.castBuffer(buffer, "buffer")
	if err != nil {
		return err
	}
	flatV := reflect.ValueOf(flat)
	if flatV.Kind() != reflect.Slice || flatV.Type() != reflect.TypeOf(buf.flat) {
		return errors.Errorf("flat data must be a %T, got %T", buf.flat, flat)
	}
	if flatV.Len() != buf.shape.Size() {
		return errors.Errorf("flat data for shape %s must have %d elements, got %d",
			buf.shape, buf.shape.Size(), flatV.Len())
	}
	copyFlat(flat, buf.flat)
	return nil
}

// BufferFromFlatData implements backends.DataInterface.
func (b *Backend) BufferFromFlatData(deviceNum backends.DeviceNum, flat any, shape shapes.Shape) (backends.Buffer, error) {
	if deviceNum != 0 {
		return nil, errors.Errorf("SimpleGo only has one device (deviceNum=0), got deviceNum=%d", deviceNum)
	}
	if !shape.Ok() {
		return nil, errors.Errorf("invalid shape %s", shape)
	}
	flatV := reflect.ValueOf(flat)
	if flatV.Kind() != reflect.Slice || flatV.Type().Elem() != shape.DType.GoType() {
		return nil, errors.Errorf("flat data for shape %s must be a []%s, got %T", shape, shape.DType, flat)
	}
	if flatV.Len() != shape.Size() {
		return nil, errors.Errorf("flat data for shape %s must have %d elements, got %d",
			shape, shape.Size(), flatV.Len())
	}
	buf := b.getBuffer(shape)
	copyFlat(buf.flat, flat)
	return buf, nil
}
