package draco

import (
	"context"

	"github.com/cockroachdb/errors"

	"github.com/reoring/gltfx"
	"github.com/reoring/gltfx/codec"
	"github.com/reoring/gltfx/wire"
)

type encodedPrimitive struct {
	prim *gltfx.Primitive
	data []byte
	ids  map[string]int
	view *gltfx.OtherBufferView
}

type writeSession struct {
	ext   *Extension
	wc    *gltfx.WriterContext
	enc   codec.DracoEncoder
	prims []*encodedPrimitive
}

func (s *writeSession) Prewrite(_ context.Context, t gltfx.PropertyType) error {
	switch t {
	case gltfx.PropertyAccessor:
		return s.prewriteAccessors()
	case gltfx.PropertyBuffer:
		return s.prewriteBuffers()
	}
	return nil
}

// prewriteAccessors encodes eligible primitives and claims their
// accessors with view-less definitions.
func (s *writeSession) prewriteAccessors() error {
	opts := s.ext.options
	for _, m := range s.wc.Document().Root().ListMeshes() {
		for pi, p := range m.Primitives() {
			if reason := s.skipReason(p); reason != "" {
				s.wc.Logger().Debug("draco skipping primitive", "mesh", m.Name(), "primitive", pi, "reason", reason)
				continue
			}
			data, ids, err := s.enc.Encode(meshOf(p), codec.DracoEncodeOptions{
				Method:           opts.Method,
				QuantizationBits: opts.QuantizationBits,
			})
			if err != nil {
				return errors.Wrapf(err, "mesh %q primitive %d", m.Name(), pi)
			}
			for _, a := range accessorsOf(p) {
				s.wc.ClaimAccessor(a, s.wc.CreateAccessorDef(a))
			}
			s.prims = append(s.prims, &encodedPrimitive{prim: p, data: data, ids: ids})
		}
	}
	return nil
}

func (s *writeSession) skipReason(p *gltfx.Primitive) string {
	switch {
	case p.Mode() != gltfx.ModeTriangles:
		return "not triangles"
	case p.Indices() == nil:
		return "no indices"
	case len(p.Targets()) > 0:
		return "morph targets"
	}
	for _, a := range accessorsOf(p) {
		switch {
		case s.wc.IsClaimed(a):
			return "accessor already written"
		case a.Sparse():
			return "sparse accessor"
		case len(a.ListParents()) != 1:
			return "shared accessor"
		}
	}
	return ""
}

func (s *writeSession) prewriteBuffers() error {
	for _, ep := range s.prims {
		b := ep.prim.Indices().Buffer()
		if b == nil {
			return errors.Wrapf(gltfx.ErrMissingBuffer, "[%s] indices %q", Name, ep.prim.Indices().Name())
		}
		ep.view = s.wc.AddOtherBufferView(b, ep.data)
	}
	return nil
}

func (s *writeSession) Write(context.Context) error {
	for _, ep := range s.prims {
		idx, ok := s.wc.OtherBufferViewIndex(ep.view)
		if !ok {
			return errors.AssertionFailedf("encoded primitive has no buffer view")
		}
		def := s.wc.PrimitiveDef(ep.prim)
		if def == nil {
			return errors.AssertionFailedf("encoded primitive was not written")
		}
		if err := wire.Set(&def.Extensions, Name, primitiveExtension{BufferView: idx, Attributes: ep.ids}); err != nil {
			return err
		}
	}
	return nil
}

func (s *writeSession) Close() error { return nil }

func accessorsOf(p *gltfx.Primitive) []*gltfx.Accessor {
	return append(p.Attributes(), p.Indices())
}

func meshOf(p *gltfx.Primitive) codec.DracoMesh {
	mesh := codec.DracoMesh{Indices: gltfx.Values[uint32](p.Indices())}
	for _, semantic := range p.Semantics() {
		a := p.Attribute(semantic)
		mesh.Attributes = append(mesh.Attributes, codec.DracoAttribute{
			Semantic:      semantic,
			ComponentType: int(a.ComponentType()),
			Components:    a.ElementType().Size(),
			Normalized:    a.Normalized(),
			Data:          a.Array(),
		})
	}
	return mesh
}
