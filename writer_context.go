package gltfx

import (
	"log/slog"

	"github.com/reoring/gltfx/wire"
)

// BufferViewUsage is the role of the buffer view an accessor is written to.
type BufferViewUsage string

const (
	UsageArrayBuffer         BufferViewUsage = "ARRAY_BUFFER"
	UsageElementArrayBuffer  BufferViewUsage = "ELEMENT_ARRAY_BUFFER"
	UsageInverseBindMatrices BufferViewUsage = "INVERSE_BIND_MATRICES"
	UsageOther               BufferViewUsage = "OTHER"
	UsageSparse              BufferViewUsage = "SPARSE"
)

// Target returns the bufferView.target value for the usage, or 0 when the
// target is left unset.
func (u BufferViewUsage) Target() int {
	switch u {
	case UsageArrayBuffer:
		return wire.TargetArrayBuffer
	case UsageElementArrayBuffer:
		return wire.TargetElementArrayBuffer
	}
	return 0
}

// OtherBufferView is a byte region supplied by an extension. The writer
// places it into its buffer after the accessor views and assigns it an
// index, looked up by handle.
type OtherBufferView struct {
	buffer *Buffer
	data   []byte
}

func (v *OtherBufferView) Buffer() *Buffer { return v.buffer }
func (v *OtherBufferView) Data() []byte    { return v.data }

// WriterContext is shared by the writer and the write sessions of
// extensions for the duration of one write.
type WriterContext struct {
	doc     *Document
	jsonDoc *wire.JSONDocument
	opts    WriteOptions

	bufferIndex    map[*Buffer]int
	accessorIndex  map[*Accessor]int
	otherViews     map[*Buffer][]*OtherBufferView
	otherViewIndex map[*OtherBufferView]int
	primitiveDefs  map[*Primitive]*wire.Primitive
}

func newWriterContext(doc *Document, jsonDoc *wire.JSONDocument, opts WriteOptions) *WriterContext {
	return &WriterContext{
		doc:            doc,
		jsonDoc:        jsonDoc,
		opts:           opts,
		bufferIndex:    map[*Buffer]int{},
		accessorIndex:  map[*Accessor]int{},
		otherViews:     map[*Buffer][]*OtherBufferView{},
		otherViewIndex: map[*OtherBufferView]int{},
		primitiveDefs:  map[*Primitive]*wire.Primitive{},
	}
}

func (wc *WriterContext) Document() *Document         { return wc.doc }
func (wc *WriterContext) JSONDoc() *wire.JSONDocument { return wc.jsonDoc }
func (wc *WriterContext) Options() WriteOptions       { return wc.opts }
func (wc *WriterContext) Logger() *slog.Logger        { return wc.doc.Logger() }

// AccessorUsage classifies a from the links pointing at it. Sparse
// accessors are always UsageSparse.
func (wc *WriterContext) AccessorUsage(a *Accessor) BufferViewUsage {
	if a.Sparse() {
		return UsageSparse
	}
	for _, l := range wc.doc.graph.ListParentLinks(a) {
		switch {
		case l.kind == LinkIndex:
			return UsageElementArrayBuffer
		case l.kind == LinkAttribute:
			return UsageArrayBuffer
		case l.name == "inverseBindMatrices":
			return UsageInverseBindMatrices
		}
	}
	return UsageOther
}

// GroupedByParent reports whether accessors of this usage are grouped per
// parent property.
func (wc *WriterContext) GroupedByParent(u BufferViewUsage) bool {
	return u == UsageArrayBuffer
}

// CreateAccessorDef returns the JSON definition of a without buffer view
// placement. POSITION attributes and animation inputs get min and max.
func (wc *WriterContext) CreateAccessorDef(a *Accessor) *wire.Accessor {
	def := &wire.Accessor{
		Name:          a.Name(),
		ComponentType: int(a.ComponentType()),
		Normalized:    a.Normalized(),
		Count:         a.Count(),
		Type:          string(a.ElementType()),
		Extras:        a.Extras(),
	}
	if wc.needsBounds(a) {
		def.Min = froundAll(a.Min())
		def.Max = froundAll(a.Max())
	}
	return def
}

func (wc *WriterContext) needsBounds(a *Accessor) bool {
	for _, l := range wc.doc.graph.ListParentLinks(a) {
		if l.kind == LinkAttribute && l.name == "POSITION" {
			return true
		}
		if l.kind == LinkGeneric && l.name == "input" {
			return true
		}
	}
	return false
}

func froundAll(v []float64) []float64 {
	for i := range v {
		v[i] = Fround(v[i])
	}
	return v
}

// ClaimAccessor appends def to the output accessors and records its index.
// The writer leaves claimed accessors alone.
func (wc *WriterContext) ClaimAccessor(a *Accessor, def *wire.Accessor) int {
	idx := len(wc.jsonDoc.JSON.Accessors)
	wc.jsonDoc.JSON.Accessors = append(wc.jsonDoc.JSON.Accessors, def)
	wc.accessorIndex[a] = idx
	return idx
}

func (wc *WriterContext) IsClaimed(a *Accessor) bool {
	_, ok := wc.accessorIndex[a]
	return ok
}

// AccessorIndex returns the output index of a claimed accessor.
func (wc *WriterContext) AccessorIndex(a *Accessor) (int, bool) {
	i, ok := wc.accessorIndex[a]
	return i, ok
}

// AddOtherBufferView queues data for placement in buffer b.
func (wc *WriterContext) AddOtherBufferView(b *Buffer, data []byte) *OtherBufferView {
	v := &OtherBufferView{buffer: b, data: data}
	wc.otherViews[b] = append(wc.otherViews[b], v)
	return v
}

// OtherBufferViewIndex returns the buffer view index assigned to v. It is
// available once buffers have been written.
func (wc *WriterContext) OtherBufferViewIndex(v *OtherBufferView) (int, bool) {
	i, ok := wc.otherViewIndex[v]
	return i, ok
}

// BufferIndex returns the output index of b. It is available once
// buffers have been written.
func (wc *WriterContext) BufferIndex(b *Buffer) (int, bool) {
	i, ok := wc.bufferIndex[b]
	return i, ok
}

// PrimitiveDef returns the JSON definition written for p. It is available
// in the final write phase.
func (wc *WriterContext) PrimitiveDef(p *Primitive) *wire.Primitive {
	return wc.primitiveDefs[p]
}
