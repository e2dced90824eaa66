package draco

import (
	"context"
	"encoding/binary"

	"github.com/cockroachdb/errors"

	"github.com/reoring/gltfx"
	"github.com/reoring/gltfx/codec"
)

type readSession struct {
	rc  *gltfx.ReaderContext
	dec codec.DracoDecoder
}

func (s *readSession) Preread(_ context.Context, t gltfx.PropertyType) error {
	if t != gltfx.PropertyPrimitive {
		return nil
	}
	g := s.rc.JSONDoc.JSON
	for mi, m := range g.Meshes {
		for pi, pdef := range m.Primitives {
			var ext primitiveExtension
			ok, err := pdef.Extensions.Decode(Name, &ext)
			if err != nil {
				return errors.Wrapf(err, "meshes[%d].primitives[%d]", mi, pi)
			}
			if !ok {
				continue
			}
			if err := s.decode(pdef.Indices, pdef.Attributes, ext); err != nil {
				return errors.Wrapf(err, "meshes[%d].primitives[%d]", mi, pi)
			}
		}
	}
	return nil
}

// decode replaces the arrays of the primitive's accessors with the
// decoded mesh.
func (s *readSession) decode(indices *int, attributes map[string]int, ext primitiveExtension) error {
	if ext.BufferView < 0 || ext.BufferView >= len(s.rc.BufferViews) {
		return errors.Newf("bufferView %d out of range", ext.BufferView)
	}
	data := s.rc.BufferViews[ext.BufferView]
	if data == nil {
		return errors.Wrapf(gltfx.ErrExternalResourceUnavailable, "bufferView %d has no data", ext.BufferView)
	}
	mesh, err := s.dec.Decode(data, ext.Attributes)
	if err != nil {
		return errors.Wrap(err, "decode")
	}

	accessor := func(i int) (*gltfx.Accessor, error) {
		if i < 0 || i >= len(s.rc.Accessors) {
			return nil, errors.Newf("accessor index %d out of range", i)
		}
		return s.rc.Accessors[i], nil
	}
	if indices != nil {
		a, err := accessor(*indices)
		if err != nil {
			return err
		}
		if err := putIndices(a, mesh.Indices); err != nil {
			return errors.Wrap(err, "indices")
		}
	}
	for _, attr := range mesh.Attributes {
		i, ok := attributes[attr.Semantic]
		if !ok {
			continue
		}
		a, err := accessor(i)
		if err != nil {
			return err
		}
		if attr.ComponentType != int(a.ComponentType()) || attr.Components != a.ElementType().Size() ||
			len(attr.Data) != a.Count()*a.ElementSize() {
			return errors.Wrapf(gltfx.ErrInvalidAccessor, "attribute %s does not match its accessor", attr.Semantic)
		}
		a.SetArray(attr.Data)
	}
	return nil
}

func (s *readSession) Read(context.Context) error { return nil }

// putIndices writes decoded indices into a scalar integer accessor.
func putIndices(a *gltfx.Accessor, indices []uint32) error {
	if len(indices) != a.Count() {
		return errors.Wrapf(gltfx.ErrInvalidAccessor, "decoded %d indices, accessor has %d", len(indices), a.Count())
	}
	size := a.ComponentType().Size()
	out := make([]byte, len(indices)*size)
	for i, v := range indices {
		switch size {
		case 1:
			out[i] = byte(v)
		case 2:
			binary.LittleEndian.PutUint16(out[i*2:], uint16(v))
		case 4:
			binary.LittleEndian.PutUint32(out[i*4:], v)
		default:
			return errors.Wrapf(gltfx.ErrInvalidAccessor, "index component type %s", a.ComponentType())
		}
	}
	a.SetArray(out)
	return nil
}
