package gltfx

import (
	"slices"

	json "github.com/goccy/go-json"
)

// Asset is the asset block of the document. The version is always written
// as 2.0.
type Asset struct {
	Generator  string
	Copyright  string
	MinVersion string
	Extras     json.RawMessage
}

// Root lists every live property of a document per type, in creation
// order. The listing is weak: it is not made of links and never counts
// toward disposal eligibility.
type Root struct {
	Asset Asset

	// Opaque arrays carried through read and write in order.
	Materials []json.RawMessage
	Textures  []json.RawMessage
	Samplers  []json.RawMessage
	Cameras   []json.RawMessage

	buffers    listing[*Buffer]
	accessors  listing[*Accessor]
	meshes     listing[*Mesh]
	primitives listing[*Primitive]
	targets    listing[*PrimitiveTarget]
	nodes      listing[*Node]
	skins      listing[*Skin]
	scenes     listing[*Scene]
	animations listing[*Animation]
	channels   listing[*AnimationChannel]
	samplers   listing[*AnimationSampler]
	images     listing[*Image]
	extensions listing[Extension]

	defaultScene *Scene
}

func (r *Root) ListBuffers() []*Buffer       { return r.buffers.list() }
func (r *Root) ListAccessors() []*Accessor   { return r.accessors.list() }
func (r *Root) ListMeshes() []*Mesh          { return r.meshes.list() }
func (r *Root) ListNodes() []*Node           { return r.nodes.list() }
func (r *Root) ListSkins() []*Skin           { return r.skins.list() }
func (r *Root) ListScenes() []*Scene         { return r.scenes.list() }
func (r *Root) ListAnimations() []*Animation { return r.animations.list() }
func (r *Root) ListImages() []*Image         { return r.images.list() }

// ListExtensionsUsed returns the extensions created on the document.
func (r *Root) ListExtensionsUsed() []Extension { return r.extensions.list() }

// DefaultScene returns the scene shown on load, or nil.
func (r *Root) DefaultScene() *Scene { return r.defaultScene }

func (r *Root) SetDefaultScene(s *Scene) *Root {
	r.defaultScene = s
	return r
}

// IndexOf returns the position of p in its root listing, or -1. Positions
// in the listing are the indices the writer assigns.
func (r *Root) IndexOf(p Property) int {
	switch v := p.(type) {
	case *Buffer:
		return r.buffers.indexOf(v)
	case *Accessor:
		return r.accessors.indexOf(v)
	case *Mesh:
		return r.meshes.indexOf(v)
	case *Node:
		return r.nodes.indexOf(v)
	case *Skin:
		return r.skins.indexOf(v)
	case *Scene:
		return r.scenes.indexOf(v)
	case *Animation:
		return r.animations.indexOf(v)
	case *Image:
		return r.images.indexOf(v)
	}
	return -1
}

func (r *Root) add(p Property) {
	switch v := p.(type) {
	case *Buffer:
		r.buffers.add(v)
	case *Accessor:
		r.accessors.add(v)
	case *Mesh:
		r.meshes.add(v)
	case *Primitive:
		r.primitives.add(v)
	case *PrimitiveTarget:
		r.targets.add(v)
	case *Node:
		r.nodes.add(v)
	case *Skin:
		r.skins.add(v)
	case *Scene:
		r.scenes.add(v)
	case *Animation:
		r.animations.add(v)
	case *AnimationChannel:
		r.channels.add(v)
	case *AnimationSampler:
		r.samplers.add(v)
	case *Image:
		r.images.add(v)
	case Extension:
		r.extensions.add(v)
	}
}

func (r *Root) remove(p Property) {
	switch v := p.(type) {
	case *Buffer:
		r.buffers.remove(v)
	case *Accessor:
		r.accessors.remove(v)
	case *Mesh:
		r.meshes.remove(v)
	case *Primitive:
		r.primitives.remove(v)
	case *PrimitiveTarget:
		r.targets.remove(v)
	case *Node:
		r.nodes.remove(v)
	case *Skin:
		r.skins.remove(v)
	case *Scene:
		r.scenes.remove(v)
		if r.defaultScene == v {
			r.defaultScene = nil
		}
	case *Animation:
		r.animations.remove(v)
	case *AnimationChannel:
		r.channels.remove(v)
	case *AnimationSampler:
		r.samplers.remove(v)
	case *Image:
		r.images.remove(v)
	case Extension:
		r.extensions.remove(v)
	}
}

// listing is an ordered property list with constant time position lookup.
type listing[T comparable] struct {
	items []T
	index map[T]int
}

func (l *listing[T]) list() []T { return slices.Clone(l.items) }

func (l *listing[T]) len() int { return len(l.items) }

func (l *listing[T]) at(i int) T { return l.items[i] }

func (l *listing[T]) indexOf(v T) int {
	if i, ok := l.index[v]; ok {
		return i
	}
	return -1
}

func (l *listing[T]) add(v T) {
	if l.index == nil {
		l.index = map[T]int{}
	}
	if _, ok := l.index[v]; ok {
		return
	}
	l.index[v] = len(l.items)
	l.items = append(l.items, v)
}

// remove deletes v and shifts the positions of the items after it.
func (l *listing[T]) remove(v T) {
	i, ok := l.index[v]
	if !ok {
		return
	}
	delete(l.index, v)
	l.items = slices.Delete(l.items, i, i+1)
	for k := i; k < len(l.items); k++ {
		l.index[l.items[k]] = k
	}
}
