package gltfx

// Buffer is one binary resource. It holds no bytes itself; the writer
// derives its content from the accessors, images and extension views that
// reference it.
type Buffer struct {
	propertyBase
	uri string
}

func (b *Buffer) PropertyType() PropertyType { return PropertyBuffer }

func (b *Buffer) URI() string { return b.uri }

func (b *Buffer) SetURI(uri string) *Buffer {
	b.uri = uri
	return b
}

// PrimitiveMode is the draw mode of a primitive.
type PrimitiveMode int

const (
	ModePoints PrimitiveMode = iota
	ModeLines
	ModeLineLoop
	ModeLineStrip
	ModeTriangles
	ModeTriangleStrip
	ModeTriangleFan
)

// attributeSet is the ordered vertex attribute table shared by primitives
// and morph targets.
type attributeSet struct {
	links []*Link
}

func (s *attributeSet) get(semantic string) *Accessor {
	for _, l := range s.links {
		if l.name == semantic && !l.disposed {
			return refAs[*Accessor](l)
		}
	}
	return nil
}

func (s *attributeSet) set(p *propertyBase, semantic string, a *Accessor) {
	for i, l := range s.links {
		if l.name != semantic {
			continue
		}
		p.doc.graph.unlink(l)
		if a == nil {
			s.links = append(s.links[:i:i], s.links[i+1:]...)
			return
		}
		s.links[i] = p.doc.graph.link(semantic, LinkAttribute, p.self, a)
		return
	}
	if a != nil {
		s.links = append(s.links, p.doc.graph.link(semantic, LinkAttribute, p.self, a))
	}
}

func (s *attributeSet) semantics() []string {
	out := make([]string, 0, len(s.links))
	for _, l := range s.links {
		if !l.disposed {
			out = append(out, l.name)
		}
	}
	return out
}

func (s *attributeSet) accessors() []*Accessor { return refChildren[*Accessor](s.links) }

// Primitive is one draw call of a mesh.
type Primitive struct {
	propertyBase
	attributeSet

	mode     PrimitiveMode
	indices  *Link
	targets  []*Link
	material *int
}

func (p *Primitive) PropertyType() PropertyType { return PropertyPrimitive }

func (p *Primitive) Mode() PrimitiveMode { return p.mode }

func (p *Primitive) SetMode(m PrimitiveMode) *Primitive {
	p.mode = m
	return p
}

// Attribute returns the accessor bound to semantic, or nil.
func (p *Primitive) Attribute(semantic string) *Accessor { return p.get(semantic) }

// SetAttribute binds a to semantic. A nil accessor removes the attribute.
func (p *Primitive) SetAttribute(semantic string, a *Accessor) *Primitive {
	p.set(&p.propertyBase, semantic, a)
	return p
}

// Semantics lists the attribute semantics in insertion order.
func (p *Primitive) Semantics() []string { return p.semantics() }

// Attributes lists the attribute accessors in insertion order.
func (p *Primitive) Attributes() []*Accessor { return p.accessors() }

func (p *Primitive) Indices() *Accessor { return refAs[*Accessor](p.indices) }

func (p *Primitive) SetIndices(a *Accessor) *Primitive {
	var child Property
	if a != nil {
		child = a
	}
	p.setRef(&p.indices, "indices", LinkIndex, child)
	return p
}

func (p *Primitive) Targets() []*PrimitiveTarget { return refChildren[*PrimitiveTarget](p.targets) }

func (p *Primitive) AddTarget(t *PrimitiveTarget) *Primitive {
	p.addRef(&p.targets, "targets", t)
	return p
}

func (p *Primitive) RemoveTarget(t *PrimitiveTarget) *Primitive {
	p.removeRef(&p.targets, t)
	return p
}

// Material returns the index of the opaque material, if any.
func (p *Primitive) Material() (int, bool) {
	if p.material == nil {
		return 0, false
	}
	return *p.material, true
}

func (p *Primitive) SetMaterial(index int) *Primitive {
	p.material = &index
	return p
}

// PrimitiveTarget is a morph target: a set of attribute displacements.
type PrimitiveTarget struct {
	propertyBase
	attributeSet
}

func (t *PrimitiveTarget) PropertyType() PropertyType { return PropertyPrimitiveTarget }

func (t *PrimitiveTarget) Attribute(semantic string) *Accessor { return t.get(semantic) }

func (t *PrimitiveTarget) SetAttribute(semantic string, a *Accessor) *PrimitiveTarget {
	t.set(&t.propertyBase, semantic, a)
	return t
}

func (t *PrimitiveTarget) Semantics() []string     { return t.semantics() }
func (t *PrimitiveTarget) Attributes() []*Accessor { return t.accessors() }

// Mesh groups primitives drawn together.
type Mesh struct {
	propertyBase
	primitives []*Link
	weights    []float64
}

func (m *Mesh) PropertyType() PropertyType { return PropertyMesh }

func (m *Mesh) Primitives() []*Primitive { return refChildren[*Primitive](m.primitives) }

func (m *Mesh) AddPrimitive(p *Primitive) *Mesh {
	m.addRef(&m.primitives, "primitives", p)
	return m
}

func (m *Mesh) RemovePrimitive(p *Primitive) *Mesh {
	m.removeRef(&m.primitives, p)
	return m
}

// Weights returns the default morph target weights.
func (m *Mesh) Weights() []float64 { return m.weights }

func (m *Mesh) SetWeights(w []float64) *Mesh {
	m.weights = w
	return m
}
