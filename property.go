package gltfx

import (
	json "github.com/goccy/go-json"
)

// PropertyType names the concrete kind of a Property. Extensions declare
// the types they preread and prewrite with these values.
type PropertyType string

const (
	PropertyBuffer           PropertyType = "Buffer"
	PropertyAccessor         PropertyType = "Accessor"
	PropertyPrimitive        PropertyType = "Primitive"
	PropertyPrimitiveTarget  PropertyType = "PrimitiveTarget"
	PropertyMesh             PropertyType = "Mesh"
	PropertyNode             PropertyType = "Node"
	PropertySkin             PropertyType = "Skin"
	PropertyScene            PropertyType = "Scene"
	PropertyAnimation        PropertyType = "Animation"
	PropertyAnimationChannel PropertyType = "AnimationChannel"
	PropertyAnimationSampler PropertyType = "AnimationSampler"
	PropertyImage            PropertyType = "Image"
	PropertyExtension        PropertyType = "Extension"
)

// Property is a node of the document graph. Identity is pointer identity.
type Property interface {
	PropertyType() PropertyType
	Name() string
	SetName(name string)
	Extras() json.RawMessage
	SetExtras(extras json.RawMessage)
	Document() *Document
	IsDisposed() bool

	// ListParents returns the properties holding a link to this one. Root
	// listing is not a link and is never reported.
	ListParents() []Property
	// Swap rewires the links held by this property from old to replacement.
	Swap(old, replacement Property)
	// Dispose removes the property from its document. It fails with
	// ErrInvariantViolation while parent links remain.
	Dispose() error

	base() *propertyBase
}

type propertyBase struct {
	doc      *Document
	self     Property
	name     string
	extras   json.RawMessage
	disposed bool
}

func (p *propertyBase) base() *propertyBase { return p }

func (p *propertyBase) Name() string        { return p.name }
func (p *propertyBase) SetName(name string) { p.name = name }

func (p *propertyBase) Extras() json.RawMessage          { return p.extras }
func (p *propertyBase) SetExtras(extras json.RawMessage) { p.extras = extras }

func (p *propertyBase) Document() *Document { return p.doc }
func (p *propertyBase) IsDisposed() bool    { return p.disposed }

func (p *propertyBase) ListParents() []Property {
	return p.doc.graph.ListParents(p.self)
}

func (p *propertyBase) Swap(old, replacement Property) {
	p.doc.graph.SwapChild(p.self, old, replacement)
}

func (p *propertyBase) Dispose() error {
	if err := p.doc.graph.Dispose(p.self); err != nil {
		return err
	}
	p.doc.root.remove(p.self)
	return nil
}

// setRef replaces a single-valued reference held by the property.
func (p *propertyBase) setRef(ref **Link, name string, kind LinkKind, child Property) {
	if *ref != nil {
		p.doc.graph.unlink(*ref)
		*ref = nil
	}
	if child == nil {
		return
	}
	*ref = p.doc.graph.link(name, kind, p.self, child)
}

// addRef appends a reference to a list held by the property.
func (p *propertyBase) addRef(refs *[]*Link, name string, child Property) {
	*refs = append(*refs, p.doc.graph.link(name, LinkGeneric, p.self, child))
}

// removeRef drops every reference in refs that points at child.
func (p *propertyBase) removeRef(refs *[]*Link, child Property) {
	out := (*refs)[:0]
	for _, l := range *refs {
		if l.child == child {
			p.doc.graph.unlink(l)
			continue
		}
		out = append(out, l)
	}
	*refs = out
}

// refChild returns the live child of a reference, or nil.
func refChild(l *Link) Property {
	if l == nil || l.disposed {
		return nil
	}
	return l.child
}

// refChildren returns the live children of a reference list.
func refChildren[T Property](refs []*Link) []T {
	out := make([]T, 0, len(refs))
	for _, l := range refs {
		if l.disposed {
			continue
		}
		if c, ok := l.child.(T); ok {
			out = append(out, c)
		}
	}
	return out
}

// refAs returns the live child of a reference as T.
func refAs[T Property](l *Link) T {
	var zero T
	c, ok := refChild(l).(T)
	if !ok {
		return zero
	}
	return c
}
