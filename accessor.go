package gltfx

import (
	"encoding/binary"
	"math"

	"github.com/reoring/gltfx/wire"
)

// ElementType is the shape of one accessor element.
type ElementType string

const (
	Scalar ElementType = "SCALAR"
	Vec2   ElementType = "VEC2"
	Vec3   ElementType = "VEC3"
	Vec4   ElementType = "VEC4"
	Mat2   ElementType = "MAT2"
	Mat3   ElementType = "MAT3"
	Mat4   ElementType = "MAT4"
)

// Size returns the number of components per element, or 0 if unknown.
func (t ElementType) Size() int {
	switch t {
	case Scalar:
		return 1
	case Vec2:
		return 2
	case Vec3:
		return 3
	case Vec4, Mat2:
		return 4
	case Mat3:
		return 9
	case Mat4:
		return 16
	}
	return 0
}

// ComponentType is the numeric type of accessor components, using the
// glTF enum values.
type ComponentType int

const (
	Byte          ComponentType = wire.ComponentByte
	UnsignedByte  ComponentType = wire.ComponentUnsignedByte
	Short         ComponentType = wire.ComponentShort
	UnsignedShort ComponentType = wire.ComponentUnsignedShort
	UnsignedInt   ComponentType = wire.ComponentUnsignedInt
	Float         ComponentType = wire.ComponentFloat
)

// Size returns the byte size of one component, or 0 if unknown.
func (c ComponentType) Size() int {
	switch c {
	case Byte, UnsignedByte:
		return 1
	case Short, UnsignedShort:
		return 2
	case UnsignedInt, Float:
		return 4
	}
	return 0
}

func (c ComponentType) String() string {
	switch c {
	case Byte:
		return "BYTE"
	case UnsignedByte:
		return "UNSIGNED_BYTE"
	case Short:
		return "SHORT"
	case UnsignedShort:
		return "UNSIGNED_SHORT"
	case UnsignedInt:
		return "UNSIGNED_INT"
	case Float:
		return "FLOAT"
	}
	return "UNKNOWN"
}

// Accessor is a typed numeric array stored as packed little-endian bytes.
type Accessor struct {
	propertyBase

	elementType   ElementType
	componentType ComponentType
	normalized    bool
	sparse        bool
	array         []byte

	buffer *Link
}

func (a *Accessor) PropertyType() PropertyType { return PropertyAccessor }

func (a *Accessor) ElementType() ElementType     { return a.elementType }
func (a *Accessor) ComponentType() ComponentType { return a.componentType }
func (a *Accessor) Normalized() bool             { return a.normalized }
func (a *Accessor) Sparse() bool                 { return a.sparse }

// SetElementType changes the element shape without touching the bytes.
func (a *Accessor) SetElementType(t ElementType) *Accessor {
	a.elementType = t
	return a
}

// SetComponentType changes the component type without touching the bytes.
// Use SetValues to replace the data with a different component type.
func (a *Accessor) SetComponentType(c ComponentType) *Accessor {
	a.componentType = c
	return a
}

func (a *Accessor) SetNormalized(v bool) *Accessor {
	a.normalized = v
	return a
}

// SetSparse marks the accessor to be written in sparse form.
func (a *Accessor) SetSparse(v bool) *Accessor {
	a.sparse = v
	return a
}

// Array returns the packed bytes. The slice is shared with the accessor.
func (a *Accessor) Array() []byte { return a.array }

// SetArray replaces the packed bytes.
func (a *Accessor) SetArray(b []byte) *Accessor {
	a.array = b
	return a
}

// Buffer returns the buffer that will store the accessor bytes.
func (a *Accessor) Buffer() *Buffer { return refAs[*Buffer](a.buffer) }

func (a *Accessor) SetBuffer(b *Buffer) *Accessor {
	var child Property
	if b != nil {
		child = b
	}
	a.setRef(&a.buffer, "buffer", LinkGeneric, child)
	return a
}

// ElementSize returns the byte size of one element, which is also the
// tightly packed byte stride.
func (a *Accessor) ElementSize() int {
	return a.elementType.Size() * a.componentType.Size()
}

// Count returns the number of elements.
func (a *Accessor) Count() int {
	if n := a.ElementSize(); n > 0 {
		return len(a.array) / n
	}
	return 0
}

// Element reads the raw component values of element i into dst, which is
// grown as needed.
func (a *Accessor) Element(i int, dst []float64) []float64 {
	n := a.elementType.Size()
	dst = dst[:0]
	cs := a.componentType.Size()
	off := i * n * cs
	for k := range n {
		dst = append(dst, readComponent(a.array[off+k*cs:], a.componentType))
	}
	return dst
}

// SetElement writes the raw component values of element i.
func (a *Accessor) SetElement(i int, v []float64) *Accessor {
	n := a.elementType.Size()
	cs := a.componentType.Size()
	off := i * n * cs
	for k := 0; k < n && k < len(v); k++ {
		writeComponent(a.array[off+k*cs:], a.componentType, v[k])
	}
	return a
}

// NormalizedElement reads element i, mapping normalized integers to
// [-1, 1] or [0, 1].
func (a *Accessor) NormalizedElement(i int, dst []float64) []float64 {
	dst = a.Element(i, dst)
	if a.normalized {
		for k := range dst {
			dst[k] = Denormalize(dst[k], a.componentType)
		}
	}
	return dst
}

// Min returns the per-component minimum of the raw values.
func (a *Accessor) Min() []float64 { return a.bounds(math.Min, math.Inf(1)) }

// Max returns the per-component maximum of the raw values.
func (a *Accessor) Max() []float64 { return a.bounds(math.Max, math.Inf(-1)) }

func (a *Accessor) bounds(pick func(x, y float64) float64, init float64) []float64 {
	n := a.elementType.Size()
	out := make([]float64, n)
	for k := range out {
		out[k] = init
	}
	var el []float64
	for i := range a.Count() {
		el = a.Element(i, el)
		for k, v := range el {
			out[k] = pick(out[k], v)
		}
	}
	return out
}

// Denormalize maps a raw normalized integer to a float.
func Denormalize(v float64, c ComponentType) float64 {
	switch c {
	case Byte:
		return math.Max(v/127, -1)
	case UnsignedByte:
		return v / 255
	case Short:
		return math.Max(v/32767, -1)
	case UnsignedShort:
		return v / 65535
	}
	return v
}

// Normalize maps a float in [-1, 1] or [0, 1] to a raw normalized integer.
func Normalize(v float64, c ComponentType) float64 {
	switch c {
	case Byte:
		return math.Round(v * 127)
	case UnsignedByte:
		return math.Round(v * 255)
	case Short:
		return math.Round(v * 32767)
	case UnsignedShort:
		return math.Round(v * 65535)
	}
	return v
}

func readComponent(b []byte, c ComponentType) float64 {
	switch c {
	case Byte:
		return float64(int8(b[0]))
	case UnsignedByte:
		return float64(b[0])
	case Short:
		return float64(int16(binary.LittleEndian.Uint16(b)))
	case UnsignedShort:
		return float64(binary.LittleEndian.Uint16(b))
	case UnsignedInt:
		return float64(binary.LittleEndian.Uint32(b))
	case Float:
		return float64(math.Float32frombits(binary.LittleEndian.Uint32(b)))
	}
	return 0
}

func writeComponent(b []byte, c ComponentType, v float64) {
	switch c {
	case Byte:
		b[0] = byte(int8(v))
	case UnsignedByte:
		b[0] = uint8(v)
	case Short:
		binary.LittleEndian.PutUint16(b, uint16(int16(v)))
	case UnsignedShort:
		binary.LittleEndian.PutUint16(b, uint16(v))
	case UnsignedInt:
		binary.LittleEndian.PutUint32(b, uint32(v))
	case Float:
		binary.LittleEndian.PutUint32(b, math.Float32bits(float32(v)))
	}
}
