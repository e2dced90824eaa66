package meshopt

import (
	"context"

	"github.com/cockroachdb/errors"

	"github.com/reoring/gltfx"
	"github.com/reoring/gltfx/codec"
	"github.com/reoring/gltfx/wire"
)

// readSession holds the state of one read.
type readSession struct {
	ext *Extension
	rc  *gltfx.ReaderContext
	dec codec.MeshoptDecoder

	// fallbacks maps fallback buffers to the buffers holding their
	// encoded data, in discovery order.
	fallbacks []fallbackPair
}

type fallbackPair struct {
	fallback, buffer *gltfx.Buffer
}

func newReadSession(e *Extension, rc *gltfx.ReaderContext, dec codec.MeshoptDecoder) *readSession {
	return &readSession{ext: e, rc: rc, dec: dec}
}

func (s *readSession) Preread(_ context.Context, t gltfx.PropertyType) error {
	switch t {
	case gltfx.PropertyBuffer:
		return s.prereadBuffers()
	case gltfx.PropertyPrimitive:
		return s.prereadPrimitives()
	}
	return nil
}

// prereadBuffers decodes every compressed view into the reader's view
// table.
func (s *readSession) prereadBuffers() error {
	jsonDoc := s.rc.JSONDoc
	for i, def := range jsonDoc.JSON.BufferViews {
		ext, ok, err := payloadOf(def)
		if err != nil {
			return errors.Wrapf(err, "bufferViews[%d]", i)
		}
		if !ok {
			continue
		}
		src, ok := jsonDoc.BufferResource(ext.Buffer)
		if !ok {
			return errors.Wrapf(gltfx.ErrExternalResourceUnavailable, "bufferViews[%d]: buffer %d", i, ext.Buffer)
		}
		end := ext.ByteOffset + ext.ByteLength
		if ext.ByteOffset < 0 || end > len(src) {
			return errors.Wrapf(gltfx.ErrInvalidAccessor, "bufferViews[%d]: encoded range [%d, %d) exceeds buffer %d of %d bytes",
				i, ext.ByteOffset, end, ext.Buffer, len(src))
		}
		if ext.Count < 0 || ext.ByteStride <= 0 {
			return errors.Wrapf(gltfx.ErrInvalidAccessor, "bufferViews[%d]: count %d byteStride %d", i, ext.Count, ext.ByteStride)
		}
		filter := ext.Filter
		if filter == "" {
			filter = codec.FilterNone
		}
		dst := make([]byte, ext.Count*ext.ByteStride)
		if err := s.dec.DecodeGltfBuffer(dst, ext.Count, ext.ByteStride, src[ext.ByteOffset:end], ext.Mode, filter); err != nil {
			return errors.Wrapf(err, "bufferViews[%d]: decode", i)
		}
		s.rc.SetBufferView(i, dst, ext.ByteStride)
	}
	return nil
}

// prereadPrimitives records the fallback buffer of every compressed view.
// It only needs buffers to exist, so it runs in the primitive phase.
func (s *readSession) prereadPrimitives() error {
	g := s.rc.JSONDoc.JSON
	seen := map[*gltfx.Buffer]bool{}
	for i, def := range g.BufferViews {
		ext, ok, err := payloadOf(def)
		if err != nil || !ok {
			continue
		}
		if def.Buffer < 0 || def.Buffer >= len(s.rc.Buffers) || ext.Buffer < 0 || ext.Buffer >= len(s.rc.Buffers) {
			return errors.Newf("bufferViews[%d]: buffer index out of range", i)
		}
		if !isFallbackBuffer(g.Buffers[def.Buffer]) {
			continue
		}
		fallback := s.rc.Buffers[def.Buffer]
		if seen[fallback] {
			continue
		}
		seen[fallback] = true
		s.fallbacks = append(s.fallbacks, fallbackPair{fallback: fallback, buffer: s.rc.Buffers[ext.Buffer]})
	}
	return nil
}

// Read moves accessors off fallback buffers and disposes them. Documents
// that list the extension as optional keep their fallback buffers, which
// then hold usable data.
func (s *readSession) Read(context.Context) error {
	if !s.ext.IsRequired() {
		return nil
	}
	for _, p := range s.fallbacks {
		for _, parent := range p.fallback.ListParents() {
			if a, ok := parent.(*gltfx.Accessor); ok {
				a.Swap(p.fallback, p.buffer)
			}
		}
		if err := p.fallback.Dispose(); err != nil {
			return errors.Wrapf(err, "dispose fallback buffer")
		}
	}
	return nil
}

func payloadOf(def *wire.BufferView) (bufferViewExtension, bool, error) {
	var ext bufferViewExtension
	ok, err := def.Extensions.Decode(Name, &ext)
	return ext, ok, err
}

func isFallbackBuffer(def *wire.Buffer) bool {
	var ext bufferExtension
	ok, err := def.Extensions.Decode(Name, &ext)
	return ok && err == nil && ext.Fallback
}
