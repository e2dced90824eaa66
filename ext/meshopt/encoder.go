package meshopt

import (
	"context"
	"encoding/binary"
	"fmt"
	"strings"

	"github.com/cockroachdb/errors"

	"github.com/reoring/gltfx"
	"github.com/reoring/gltfx/codec"
	"github.com/reoring/gltfx/wire"
)

// groupKey partitions accessors into compressed buffer views.
type groupKey struct {
	usage gltfx.BufferViewUsage
	// parent identifies the owning property for usages grouped by parent:
	// 0 when the usage is not, -1 for an accessor without parents.
	parent int
	mode   codec.MeshoptMode
	filter codec.MeshoptFilter
	stride int
	buffer int
}

func (k groupKey) String() string {
	return fmt.Sprintf("%s:%d:%s:%s:%d:%d", k.usage, k.parent, k.mode, k.filter, k.stride, k.buffer)
}

// group accumulates the accessors of one compressed buffer view.
type group struct {
	key    groupKey
	buffer *gltfx.Buffer
	count  int
	data   [][]byte
	// length is the uncompressed byte length; encoded the compressed one.
	length  int
	encoded int
	defs    []*wire.Accessor
	view    *gltfx.OtherBufferView
}

// writeSession holds the state of one write. Nothing survives Close.
type writeSession struct {
	ext *Extension
	wc  *gltfx.WriterContext
	enc codec.MeshoptEncoder

	fallback *gltfx.Buffer
	keys     []groupKey
	groups   map[groupKey]*group
}

func newWriteSession(e *Extension, wc *gltfx.WriterContext, enc codec.MeshoptEncoder) *writeSession {
	return &writeSession{ext: e, wc: wc, enc: enc, groups: map[groupKey]*group{}}
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

// prewriteAccessors claims every eligible accessor and assigns it to a
// group, in root order.
func (s *writeSession) prewriteAccessors() error {
	doc := s.wc.Document()
	root := doc.Root()
	s.fallback = doc.CreateBuffer("")

	parentIDs := map[gltfx.Property]int{}
	for _, a := range root.ListAccessors() {
		if !eligible(a) {
			continue
		}
		b := a.Buffer()
		if b == nil {
			return errors.Wrapf(gltfx.ErrMissingBuffer, "[%s] accessors[%d] %q", Name, root.IndexOf(a), a.Name())
		}

		usage := s.wc.AccessorUsage(a)
		mode := modeOf(a, usage)
		f := filterNone
		if s.ext.options.Method == MethodFilter && mode == codec.ModeAttributes {
			f = selectFilter(a)
		}
		p := s.prepare(a, mode, f)

		key := groupKey{
			usage:  usage,
			mode:   mode,
			filter: f.filter,
			stride: p.stride,
			buffer: root.IndexOf(b),
		}
		if s.wc.GroupedByParent(usage) {
			key.parent = parentID(a, parentIDs)
		}
		g, ok := s.groups[key]
		if !ok {
			g = &group{key: key, buffer: b}
			s.groups[key] = g
			s.keys = append(s.keys, key)
		}

		def := s.wc.CreateAccessorDef(a)
		def.ComponentType = int(p.componentType)
		def.Normalized = p.normalized
		def.ByteOffset = g.length
		s.wc.ClaimAccessor(a, def)

		g.defs = append(g.defs, def)
		g.data = append(g.data, p.data)
		g.length += len(p.data)
		g.count += a.Count()
	}
	s.wc.Logger().Debug("meshopt accessors grouped", "groups", len(s.keys))
	return nil
}

// prewriteBuffers encodes every group and queues the padded result in the
// group's buffer.
func (s *writeSession) prewriteBuffers() error {
	for _, key := range s.keys {
		g := s.groups[key]
		src := gltfx.Concat(g.data...)
		out, err := s.enc.EncodeGltfBuffer(src, g.count, key.stride, key.mode)
		if err != nil {
			return errors.Wrapf(err, "encode group %s", key)
		}
		g.encoded = len(out)
		g.data = nil
		g.view = s.wc.AddOtherBufferView(g.buffer, gltfx.Pad(out))
		s.wc.Logger().Debug("meshopt group encoded",
			"key", key.String(), "count", g.count, "bytes", g.length, "encoded", g.encoded)
	}
	return nil
}

// Write rewrites the placed views into their uncompressed shape over the
// fallback buffer, moves the encoded location into the payload and
// disposes the fallback buffer.
func (s *writeSession) Write(context.Context) error {
	if s.fallback == nil {
		return nil
	}
	g := s.wc.JSONDoc().JSON
	fallbackIndex, ok := s.wc.BufferIndex(s.fallback)
	if !ok {
		return errors.AssertionFailedf("fallback buffer was not written")
	}

	offset := 0
	for _, key := range s.keys {
		grp := s.groups[key]
		idx, ok := s.wc.OtherBufferViewIndex(grp.view)
		if !ok {
			return errors.AssertionFailedf("group %s has no buffer view", key)
		}
		for _, def := range grp.defs {
			def.BufferView = wire.Int(idx)
		}

		view := g.BufferViews[idx]
		payload := bufferViewExtension{
			Buffer:     view.Buffer,
			ByteOffset: view.ByteOffset,
			ByteLength: grp.encoded,
			ByteStride: key.stride,
			Count:      grp.count,
			Mode:       key.mode,
		}
		if key.filter != codec.FilterNone {
			payload.Filter = key.filter
		}
		*view = wire.BufferView{
			Buffer:     fallbackIndex,
			ByteOffset: offset,
			ByteLength: grp.length,
			Target:     key.usage.Target(),
		}
		if key.usage == gltfx.UsageArrayBuffer {
			view.ByteStride = key.stride
		}
		if err := wire.Set(&view.Extensions, Name, payload); err != nil {
			return err
		}
		offset += gltfx.PadNumber(grp.length)
	}

	if len(s.keys) == 0 && fallbackIndex == len(g.Buffers)-1 {
		g.Buffers = g.Buffers[:fallbackIndex]
	} else {
		def := g.Buffers[fallbackIndex]
		def.ByteLength = offset
		if err := wire.Set(&def.Extensions, Name, bufferExtension{Fallback: true}); err != nil {
			return err
		}
	}
	return s.disposeFallback()
}

func (s *writeSession) Close() error {
	return s.disposeFallback()
}

func (s *writeSession) disposeFallback() error {
	if s.fallback == nil || s.fallback.IsDisposed() {
		return nil
	}
	return s.fallback.Dispose()
}

// eligible excludes accessors the format cannot carry: morph weight
// animation data, whose alignment is not guaranteed, and sparse accessors.
func eligible(a *gltfx.Accessor) bool {
	return targetPath(a) != gltfx.PathWeights && !a.Sparse()
}

// targetPath returns the path animated by a sampler reading a, or "".
func targetPath(a *gltfx.Accessor) string {
	for _, p := range a.ListParents() {
		sampler, ok := p.(*gltfx.AnimationSampler)
		if !ok {
			continue
		}
		for _, q := range sampler.ListParents() {
			if c, ok := q.(*gltfx.AnimationChannel); ok {
				return c.TargetPath()
			}
		}
	}
	return ""
}

// parentID numbers the first parent of a in encounter order.
func parentID(a *gltfx.Accessor, ids map[gltfx.Property]int) int {
	parents := a.ListParents()
	if len(parents) == 0 {
		return -1
	}
	id, ok := ids[parents[0]]
	if !ok {
		id = len(ids) + 1
		ids[parents[0]] = id
	}
	return id
}

func modeOf(a *gltfx.Accessor, usage gltfx.BufferViewUsage) codec.MeshoptMode {
	if usage != gltfx.UsageElementArrayBuffer {
		return codec.ModeAttributes
	}
	for _, p := range a.ListParents() {
		if prim, ok := p.(*gltfx.Primitive); ok && prim.Mode() == gltfx.ModeTriangles {
			return codec.ModeTriangles
		}
	}
	return codec.ModeIndices
}

type filterSpec struct {
	filter codec.MeshoptFilter
	bits   int
}

var (
	filterNone = filterSpec{filter: codec.FilterNone}
	filterOct  = filterSpec{filter: codec.FilterOctahedral, bits: octahedralBits}
	filterExp  = filterSpec{filter: codec.FilterExponential, bits: exponentialBits}
)

// selectFilter picks the filter of an attribute-mode accessor from the
// first link that names a known role.
func selectFilter(a *gltfx.Accessor) filterSpec {
	for _, l := range a.Document().Graph().ListParentLinks(a) {
		name := l.Name()
		if l.Kind() == gltfx.LinkAttribute {
			switch {
			case name == "NORMAL":
				return filterNone
			case name == "TANGENT":
				return filterOct
			case strings.HasPrefix(name, "JOINTS_"), strings.HasPrefix(name, "WEIGHTS_"):
				return filterNone
			}
			continue
		}
		switch name {
		case "output":
			switch targetPath(a) {
			case gltfx.PathTranslation, gltfx.PathScale:
				return expOrNone(a)
			}
			return filterNone
		case "input", "inverseBindMatrices":
			return filterNone
		}
	}
	return expOrNone(a)
}

// expOrNone keeps integer data, which the exponential filter cannot carry,
// unfiltered.
func expOrNone(a *gltfx.Accessor) filterSpec {
	if a.ComponentType() != gltfx.Float {
		return filterNone
	}
	return filterExp
}

// prepared is accessor data in the shape it is encoded with.
type prepared struct {
	data          []byte
	stride        int
	componentType gltfx.ComponentType
	normalized    bool
}

// prepare applies the filter and the stride rules of the encoder: index
// data is at least 16 bits wide and attribute strides are multiples of 4.
func (s *writeSession) prepare(a *gltfx.Accessor, mode codec.MeshoptMode, f filterSpec) prepared {
	p := prepared{
		data:          a.Array(),
		stride:        a.ElementSize(),
		componentType: a.ComponentType(),
		normalized:    a.Normalized(),
	}
	count := a.Count()
	if mode != codec.ModeAttributes {
		if p.componentType == gltfx.UnsignedByte {
			p.data = widenIndices(p.data)
			p.stride = 2
			p.componentType = gltfx.UnsignedShort
		}
		return p
	}

	components := a.ElementType().Size()
	switch f.filter {
	case codec.FilterExponential:
		p.stride = components * 4
		p.componentType = gltfx.Float
		p.normalized = false
		p.data = s.enc.EncodeFilterExp(gltfx.Float32s(a), count, p.stride, f.bits)
	case codec.FilterOctahedral:
		p.stride = 4
		p.componentType = gltfx.Byte
		if f.bits > 8 {
			p.stride = 8
			p.componentType = gltfx.Short
		}
		p.normalized = true
		src := gltfx.Float32s(a)
		if components == 3 {
			src = padVec3(src)
		}
		p.data = s.enc.EncodeFilterOct(src, count, p.stride, f.bits)
	default:
		if p.stride%4 != 0 {
			p.data = gltfx.PadElements(p.data, count, p.stride)
			p.stride = gltfx.PadNumber(p.stride)
		}
	}
	return p
}

func widenIndices(src []byte) []byte {
	out := make([]byte, len(src)*2)
	for i, v := range src {
		binary.LittleEndian.PutUint16(out[i*2:], uint16(v))
	}
	return out
}

// padVec3 expands xyz triples to xyzw with w = 0.
func padVec3(src []float32) []float32 {
	n := len(src) / 3
	out := make([]float32, n*4)
	for i := range n {
		copy(out[i*4:i*4+3], src[i*3:i*3+3])
	}
	return out
}
