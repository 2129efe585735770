package tensor

import (
	"fmt"
	"unsafe"
)

// Buffer is a flat region of evaluation memory: parameter storage owned by a
// layer, or an input/output/scratch tensor owned by the pipeline driver.
//
// A Buffer deliberately carries no shape. Tensor geometry is implied by the
// configuration of the layer that produces or consumes it, plus the per-call
// batch size; only the element type and byte size travel with the memory.
type Buffer struct {
	data  []byte
	dtype DataType
}

// NewBuffer allocates a zero-initialized buffer holding numElements elements
// of the given type.
func NewBuffer(numElements int, dtype DataType) *Buffer {
	if numElements <= 0 {
		panic(fmt.Sprintf("tensor: invalid buffer size %d", numElements))
	}
	return &Buffer{
		data:  make([]byte, numElements*dtype.Size()),
		dtype: dtype,
	}
}

// NewBufferBytes allocates a zero-initialized buffer of the given byte size,
// viewed as elements of the given type. The size must be a multiple of the
// element size.
func NewBufferBytes(byteSize int, dtype DataType) *Buffer {
	if byteSize <= 0 || byteSize%dtype.Size() != 0 {
		panic(fmt.Sprintf("tensor: invalid buffer byte size %d for %s", byteSize, dtype))
	}
	return &Buffer{
		data:  make([]byte, byteSize),
		dtype: dtype,
	}
}

// DType returns the buffer's element type.
func (b *Buffer) DType() DataType {
	return b.dtype
}

// NumElements returns the number of elements the buffer holds.
func (b *Buffer) NumElements() int {
	return len(b.data) / b.dtype.Size()
}

// ByteSize returns the buffer's total size in bytes.
func (b *Buffer) ByteSize() int {
	return len(b.data)
}

// Data returns the raw byte slice.
// WARNING: direct access to the underlying memory. Use with caution.
func (b *Buffer) Data() []byte {
	return b.data
}

// View returns a non-owning sub-buffer aliasing size bytes of b starting at
// the given byte offset. Writes through the view are visible in b. The offset
// and size must be element-aligned.
func (b *Buffer) View(offset, size int) *Buffer {
	es := b.dtype.Size()
	if offset < 0 || size <= 0 || offset+size > len(b.data) {
		panic(fmt.Sprintf("tensor: view [%d:+%d] out of range for %d-byte buffer", offset, size, len(b.data)))
	}
	if offset%es != 0 || size%es != 0 {
		panic(fmt.Sprintf("tensor: view [%d:+%d] not aligned to %s elements", offset, size, b.dtype))
	}
	return &Buffer{
		data:  b.data[offset : offset+size : offset+size],
		dtype: b.dtype,
	}
}

// Zero clears the buffer's contents.
func (b *Buffer) Zero() {
	clear(b.data)
}

// AsFloat32 interprets the data as []float32.
// Panics if the buffer's dtype is not Float32.
func (b *Buffer) AsFloat32() []float32 {
	if b.dtype != Float32 {
		panic(fmt.Sprintf("buffer dtype is %s, not float32", b.dtype))
	}
	//nolint:gosec // unsafe.Slice for zero-copy access, bounds checked by NumElements()
	return unsafe.Slice((*float32)(unsafe.Pointer(&b.data[0])), b.NumElements())
}

// AsFloat64 interprets the data as []float64.
// Panics if the buffer's dtype is not Float64.
func (b *Buffer) AsFloat64() []float64 {
	if b.dtype != Float64 {
		panic(fmt.Sprintf("buffer dtype is %s, not float64", b.dtype))
	}
	//nolint:gosec // unsafe.Slice for zero-copy access, bounds checked by NumElements()
	return unsafe.Slice((*float64)(unsafe.Pointer(&b.data[0])), b.NumElements())
}

// As interprets the buffer's data as a slice of the generic element type.
// Panics if T does not match the buffer's dtype.
func As[T DType](b *Buffer) []T {
	if TypeOf[T]() != b.dtype {
		panic(fmt.Sprintf("buffer dtype is %s, not %s", b.dtype, TypeOf[T]()))
	}
	//nolint:gosec // unsafe.Slice for zero-copy access, bounds checked by NumElements()
	return unsafe.Slice((*T)(unsafe.Pointer(&b.data[0])), b.NumElements())
}

// FromFloat32 allocates a buffer of the generic element type and fills it
// with the given host values, converting each element. This is the staging
// path weight loading uses to move host parameters into owned storage.
func FromFloat32[T DType](host []float32) *Buffer {
	b := NewBuffer(len(host), TypeOf[T]())
	dst := As[T](b)
	for i, v := range host {
		dst[i] = T(v)
	}
	return b
}
