package gltfx

import (
	"encoding/binary"
	"math"

	"golang.org/x/exp/constraints"
)

// Component is the set of Go types that map onto a glTF component type.
type Component interface {
	int8 | uint8 | int16 | uint16 | uint32 | float32
}

// ComponentTypeOf returns the component type matching T.
func ComponentTypeOf[T Component]() ComponentType {
	var zero T
	switch any(zero).(type) {
	case int8:
		return Byte
	case uint8:
		return UnsignedByte
	case int16:
		return Short
	case uint16:
		return UnsignedShort
	case uint32:
		return UnsignedInt
	case float32:
		return Float
	}
	return 0
}

// SetValues replaces the accessor data with values, updating the component
// type to match T.
func SetValues[T Component](a *Accessor, values []T) *Accessor {
	c := ComponentTypeOf[T]()
	cs := c.Size()
	out := make([]byte, len(values)*cs)
	for i, v := range values {
		writeComponent(out[i*cs:], c, float64(v))
	}
	a.componentType = c
	a.array = out
	return a
}

// Values converts the raw accessor components to T.
func Values[T constraints.Integer | constraints.Float](a *Accessor) []T {
	cs := a.componentType.Size()
	if cs == 0 {
		return nil
	}
	out := make([]T, len(a.array)/cs)
	for i := range out {
		out[i] = T(readComponent(a.array[i*cs:], a.componentType))
	}
	return out
}

// Float32s returns the accessor values as float32, denormalizing when the
// accessor is normalized.
func Float32s(a *Accessor) []float32 {
	cs := a.componentType.Size()
	if cs == 0 {
		return nil
	}
	out := make([]float32, len(a.array)/cs)
	for i := range out {
		v := readComponent(a.array[i*cs:], a.componentType)
		if a.normalized {
			v = Denormalize(v, a.componentType)
		}
		out[i] = float32(v)
	}
	return out
}

// Fround rounds v to the nearest float32.
func Fround(v float64) float64 {
	return float64(float32(v))
}

// PackFloat32s packs values as little-endian float32 bytes.
func PackFloat32s(values []float32) []byte {
	out := make([]byte, len(values)*4)
	for i, v := range values {
		binary.LittleEndian.PutUint32(out[i*4:], math.Float32bits(v))
	}
	return out
}
