package gltfx

import (
	"context"
	"log/slog"

	"github.com/cockroachdb/errors"
)

// Transform is a document-wide edit. Transforms are applied one at a time.
type Transform func(ctx context.Context, doc *Document) error

// Document owns a property graph and the root listing of its properties.
type Document struct {
	graph  *Graph
	root   *Root
	logger *slog.Logger
}

// NewDocument returns an empty document logging to slog.Default().
func NewDocument() *Document {
	return &Document{
		graph:  newGraph(),
		root:   &Root{},
		logger: slog.Default(),
	}
}

func (d *Document) Graph() *Graph        { return d.graph }
func (d *Document) Root() *Root          { return d.root }
func (d *Document) Logger() *slog.Logger { return d.logger }

// SetLogger replaces the logger. A nil logger restores slog.Default().
func (d *Document) SetLogger(l *slog.Logger) *Document {
	if l == nil {
		l = slog.Default()
	}
	d.logger = l
	return d
}

// Transform applies transforms in order and stops at the first error.
func (d *Document) Transform(ctx context.Context, transforms ...Transform) error {
	for i, t := range transforms {
		if err := ctx.Err(); err != nil {
			return err
		}
		if err := t(ctx, d); err != nil {
			return errors.Wrapf(err, "transform %d", i)
		}
	}
	return nil
}

func (d *Document) register(p Property, name string) {
	b := p.base()
	b.doc = d
	b.self = p
	b.name = name
	d.root.add(p)
}

func (d *Document) CreateBuffer(name string) *Buffer {
	b := &Buffer{}
	d.register(b, name)
	return b
}

// CreateAccessor returns an empty FLOAT SCALAR accessor stored in the
// first buffer of the document, if there is one.
func (d *Document) CreateAccessor(name string) *Accessor {
	a := &Accessor{elementType: Scalar, componentType: Float}
	d.register(a, name)
	if d.root.buffers.len() > 0 {
		a.SetBuffer(d.root.buffers.at(0))
	}
	return a
}

func (d *Document) CreatePrimitive() *Primitive {
	p := &Primitive{mode: ModeTriangles}
	d.register(p, "")
	return p
}

func (d *Document) CreatePrimitiveTarget(name string) *PrimitiveTarget {
	t := &PrimitiveTarget{}
	d.register(t, name)
	return t
}

func (d *Document) CreateMesh(name string) *Mesh {
	m := &Mesh{}
	d.register(m, name)
	return m
}

func (d *Document) CreateNode(name string) *Node {
	n := &Node{}
	d.register(n, name)
	return n
}

func (d *Document) CreateSkin(name string) *Skin {
	s := &Skin{}
	d.register(s, name)
	return s
}

func (d *Document) CreateScene(name string) *Scene {
	s := &Scene{}
	d.register(s, name)
	return s
}

func (d *Document) CreateAnimation(name string) *Animation {
	a := &Animation{}
	d.register(a, name)
	return a
}

func (d *Document) CreateAnimationChannel(name string) *AnimationChannel {
	c := &AnimationChannel{}
	d.register(c, name)
	return c
}

func (d *Document) CreateAnimationSampler(name string) *AnimationSampler {
	s := &AnimationSampler{}
	d.register(s, name)
	return s
}

func (d *Document) CreateImage(name string) *Image {
	i := &Image{}
	d.register(i, name)
	return i
}

// CreateExtension returns the document's instance of t, creating it on
// first use.
func (d *Document) CreateExtension(t ExtensionType) Extension {
	if ext := d.Extension(t.Name); ext != nil {
		return ext
	}
	ext := t.New()
	ext.extensionBase().extensionName = t.Name
	d.register(ext, t.Name)
	return ext
}

// Extension returns the extension named name, or nil.
func (d *Document) Extension(name string) Extension {
	for _, ext := range d.root.extensions.items {
		if ext.ExtensionName() == name {
			return ext
		}
	}
	return nil
}
