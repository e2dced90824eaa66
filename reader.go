package gltfx

import (
	"context"
	"encoding/binary"
	"log/slog"
	"maps"
	"math"
	"slices"

	"github.com/Masterminds/semver/v3"
	"github.com/cockroachdb/errors"

	"github.com/reoring/gltfx/wire"
)

// ReaderContext is shared by the reader and the read sessions of
// extensions. Extensions fill BufferViews during the buffer preread phase;
// the reader slices every view they leave empty from its buffer resource.
type ReaderContext struct {
	JSONDoc  *wire.JSONDocument
	Document *Document

	Buffers           []*Buffer
	BufferViews       [][]byte
	BufferViewBuffers []*Buffer
	Accessors         []*Accessor
	Images            []*Image

	strides map[int]int
}

// SetBufferView provides the bytes of buffer view index. A stride greater
// than zero overrides the byteStride declared on the view.
func (rc *ReaderContext) SetBufferView(index int, data []byte, stride int) {
	rc.BufferViews[index] = data
	if stride > 0 {
		rc.strides[index] = stride
	}
}

func (rc *ReaderContext) Logger() *slog.Logger { return rc.Document.Logger() }

type reader struct {
	extensions   []ExtensionType
	dependencies map[string]any
	logger       *slog.Logger
}

type readStep struct {
	participant ReadParticipant
	session     ReadSession
}

func (r *reader) read(ctx context.Context, jsonDoc *wire.JSONDocument) (*Document, error) {
	g := jsonDoc.JSON
	if err := checkVersion(g.Asset.Version); err != nil {
		return nil, err
	}

	doc := NewDocument().SetLogger(r.logger)
	rc := &ReaderContext{
		JSONDoc:     jsonDoc,
		Document:    doc,
		BufferViews: make([][]byte, len(g.BufferViews)),
		strides:     map[int]int{},
	}
	root := doc.Root()
	root.Asset = Asset{
		Generator:  g.Asset.Generator,
		Copyright:  g.Asset.Copyright,
		MinVersion: g.Asset.MinVersion,
		Extras:     g.Asset.Extras,
	}
	root.Materials = g.Materials
	root.Textures = g.Textures
	root.Samplers = g.Samplers
	root.Cameras = g.Cameras

	steps, err := r.beginExtensions(ctx, rc)
	if err != nil {
		return nil, err
	}

	if err := preread(ctx, steps, PropertyBuffer); err != nil {
		return nil, err
	}
	for _, def := range g.Buffers {
		b := doc.CreateBuffer(def.Name).SetURI(def.URI)
		b.SetExtras(def.Extras)
		rc.Buffers = append(rc.Buffers, b)
	}
	if err := r.readBufferViews(rc); err != nil {
		return nil, err
	}
	for i, def := range g.Accessors {
		a, err := r.readAccessor(rc, i, def)
		if err != nil {
			return nil, err
		}
		rc.Accessors = append(rc.Accessors, a)
	}
	for i, def := range g.Images {
		rc.Images = append(rc.Images, r.readImage(rc, i, def))
	}

	if err := preread(ctx, steps, PropertyPrimitive); err != nil {
		return nil, err
	}
	if err := r.readGraph(rc); err != nil {
		return nil, err
	}

	for _, s := range steps {
		if err := s.session.Read(ctx); err != nil {
			return nil, errors.Wrapf(err, "[%s] read", s.participant.ExtensionName())
		}
	}
	return doc, nil
}

func checkVersion(version string) error {
	v, err := semver.NewVersion(version)
	if err != nil {
		return errors.Wrapf(ErrUnsupportedVersion, "asset.version %q: %v", version, err)
	}
	if v.Major() != 2 {
		return errors.Wrapf(ErrUnsupportedVersion, "asset.version %q", version)
	}
	return nil
}

// beginExtensions creates the extensions listed by the document, installs
// their dependencies and opens a read session for each participant.
func (r *reader) beginExtensions(ctx context.Context, rc *ReaderContext) ([]readStep, error) {
	g := rc.JSONDoc.JSON
	names := slices.Clone(g.ExtensionsUsed)
	for _, name := range g.ExtensionsRequired {
		if !slices.Contains(names, name) {
			names = append(names, name)
		}
	}

	var steps []readStep
	for _, name := range names {
		required := slices.Contains(g.ExtensionsRequired, name)
		idx := slices.IndexFunc(r.extensions, func(t ExtensionType) bool { return t.Name == name })
		if idx < 0 {
			if required {
				return nil, errors.Wrapf(ErrUnsupportedExtension, "%s", name)
			}
			r.logger.Warn("extension not registered, dropping", "extension", name)
			continue
		}
		ext := rc.Document.CreateExtension(r.extensions[idx])
		ext.SetRequired(required)
		installDependencies(ext, r.dependencies)

		p, ok := ext.(ReadParticipant)
		if !ok {
			continue
		}
		s, err := p.BeginRead(ctx, rc)
		if err != nil {
			return nil, errors.Wrapf(err, "[%s] begin read", name)
		}
		steps = append(steps, readStep{participant: p, session: s})
	}
	return steps, nil
}

func preread(ctx context.Context, steps []readStep, t PropertyType) error {
	for _, s := range steps {
		if !slices.Contains(s.participant.PrereadTypes(), t) {
			continue
		}
		if err := s.session.Preread(ctx, t); err != nil {
			return errors.Wrapf(err, "[%s] preread %s", s.participant.ExtensionName(), t)
		}
	}
	return nil
}

func (r *reader) readBufferViews(rc *ReaderContext) error {
	g := rc.JSONDoc.JSON
	rc.BufferViewBuffers = make([]*Buffer, len(g.BufferViews))
	warned := map[int]bool{}
	for i, def := range g.BufferViews {
		b, err := lookup(rc.Buffers, def.Buffer, "buffer")
		if err != nil {
			return errors.Wrapf(err, "bufferViews[%d]", i)
		}
		rc.BufferViewBuffers[i] = b
		if rc.BufferViews[i] != nil {
			continue
		}
		res, ok := rc.JSONDoc.BufferResource(def.Buffer)
		if !ok {
			if !warned[def.Buffer] {
				warned[def.Buffer] = true
				r.logger.Warn("buffer resource unavailable",
					"buffer", def.Buffer, "uri", g.Buffers[def.Buffer].URI,
					"error", ErrExternalResourceUnavailable)
			}
			continue
		}
		end := def.ByteOffset + def.ByteLength
		if def.ByteOffset < 0 || end > len(res) {
			return errors.Wrapf(ErrInvalidAccessor, "bufferViews[%d] range [%d, %d) exceeds buffer %d of %d bytes",
				i, def.ByteOffset, end, def.Buffer, len(res))
		}
		rc.BufferViews[i] = res[def.ByteOffset:end]
	}
	return nil
}

// maxAccessorBytes bounds the decoded size of one accessor.
const maxAccessorBytes = math.MaxInt32

func (r *reader) readAccessor(rc *ReaderContext, i int, def *wire.Accessor) (*Accessor, error) {
	et := ElementType(def.Type)
	ct := ComponentType(def.ComponentType)
	elementSize := et.Size() * ct.Size()
	if elementSize == 0 {
		return nil, errors.Wrapf(ErrInvalidAccessor, "accessors[%d]: type %q componentType %d", i, def.Type, def.ComponentType)
	}

	if def.Count < 0 || def.Count > maxAccessorBytes/elementSize {
		return nil, errors.Wrapf(ErrInvalidAccessor, "accessors[%d]: count %d", i, def.Count)
	}

	var array []byte
	var buffer *Buffer
	if def.BufferView != nil {
		v := *def.BufferView
		data, err := r.viewData(rc, v)
		if err != nil {
			return nil, errors.Wrapf(err, "accessors[%d]", i)
		}
		stride := elementSize
		if s, ok := rc.strides[v]; ok {
			stride = s
		} else if bs := rc.JSONDoc.JSON.BufferViews[v].ByteStride; bs > 0 {
			stride = bs
		}
		array, err = deinterleave(data, def.ByteOffset, stride, elementSize, def.Count)
		if err != nil {
			return nil, errors.Wrapf(err, "accessors[%d]", i)
		}
		buffer = rc.BufferViewBuffers[v]
	} else {
		array = make([]byte, def.Count*elementSize)
		if len(rc.Buffers) > 0 {
			buffer = rc.Buffers[0]
		}
	}

	if def.Sparse != nil {
		if err := r.applySparse(rc, array, elementSize, def.Sparse); err != nil {
			return nil, errors.Wrapf(err, "accessors[%d].sparse", i)
		}
		if buffer == nil {
			buffer = rc.BufferViewBuffers[def.Sparse.Values.BufferView]
		}
	}

	a := rc.Document.CreateAccessor(def.Name).
		SetElementType(et).
		SetComponentType(ct).
		SetNormalized(def.Normalized).
		SetSparse(def.Sparse != nil).
		SetArray(array).
		SetBuffer(buffer)
	a.SetExtras(def.Extras)
	return a, nil
}

func (r *reader) viewData(rc *ReaderContext, v int) ([]byte, error) {
	if v < 0 || v >= len(rc.BufferViews) {
		return nil, errors.Newf("bufferView %d out of range", v)
	}
	data := rc.BufferViews[v]
	if data == nil {
		return nil, errors.Wrapf(ErrExternalResourceUnavailable, "bufferView %d has no data", v)
	}
	return data, nil
}

func deinterleave(data []byte, offset, stride, elementSize, count int) ([]byte, error) {
	if count == 0 {
		return []byte{}, nil
	}
	if offset < 0 || stride < elementSize || offset+elementSize > len(data) ||
		count-1 > (len(data)-offset-elementSize)/stride {
		return nil, errors.Wrapf(ErrInvalidAccessor, "%d elements of stride %d at offset %d exceed view of %d bytes",
			count, stride, offset, len(data))
	}
	out := make([]byte, count*elementSize)
	if stride == elementSize {
		copy(out, data[offset:])
		return out, nil
	}
	for k := range count {
		src := offset + k*stride
		copy(out[k*elementSize:(k+1)*elementSize], data[src:src+elementSize])
	}
	return out, nil
}

func (r *reader) applySparse(rc *ReaderContext, array []byte, elementSize int, sp *wire.Sparse) error {
	idxData, err := r.viewData(rc, sp.Indices.BufferView)
	if err != nil {
		return err
	}
	valData, err := r.viewData(rc, sp.Values.BufferView)
	if err != nil {
		return err
	}
	ct := ComponentType(sp.Indices.ComponentType)
	is := ct.Size()
	if is == 0 || ct == Float {
		return errors.Wrapf(ErrInvalidAccessor, "indices componentType %d", sp.Indices.ComponentType)
	}
	if sp.Count < 0 || sp.Count > len(array)/elementSize || sp.Indices.ByteOffset < 0 || sp.Values.ByteOffset < 0 ||
		sp.Indices.ByteOffset+sp.Count*is > len(idxData) || sp.Values.ByteOffset+sp.Count*elementSize > len(valData) {
		return errors.Wrapf(ErrInvalidAccessor, "%d substitutions exceed their views", sp.Count)
	}
	for k := range sp.Count {
		var idx int
		b := idxData[sp.Indices.ByteOffset+k*is:]
		switch is {
		case 1:
			idx = int(b[0])
		case 2:
			idx = int(binary.LittleEndian.Uint16(b))
		default:
			idx = int(binary.LittleEndian.Uint32(b))
		}
		if (idx+1)*elementSize > len(array) {
			return errors.Wrapf(ErrInvalidAccessor, "sparse index %d out of range", idx)
		}
		src := sp.Values.ByteOffset + k*elementSize
		copy(array[idx*elementSize:(idx+1)*elementSize], valData[src:src+elementSize])
	}
	return nil
}

func (r *reader) readImage(rc *ReaderContext, i int, def *wire.Image) *Image {
	img := rc.Document.CreateImage(def.Name).SetMimeType(def.MimeType)
	img.SetExtras(def.Extras)
	switch {
	case def.BufferView != nil:
		data, err := r.viewData(rc, *def.BufferView)
		if err != nil {
			r.logger.Warn("image data unavailable", "image", i, "error", err)
			break
		}
		img.SetData(data)
	case def.URI != "":
		img.SetURI(def.URI)
		if data, ok := rc.JSONDoc.Resources[def.URI]; ok {
			img.SetData(data)
		} else {
			r.logger.Warn("image resource unavailable", "image", i, "uri", def.URI)
		}
	}
	return img
}

// readGraph builds meshes, nodes, skins, animations and scenes.
func (r *reader) readGraph(rc *ReaderContext) error {
	g := rc.JSONDoc.JSON
	doc := rc.Document
	accessor := func(i int) (*Accessor, error) { return lookup(rc.Accessors, i, "accessor") }

	meshes := make([]*Mesh, 0, len(g.Meshes))
	for mi, def := range g.Meshes {
		m := doc.CreateMesh(def.Name).SetWeights(def.Weights)
		m.SetExtras(def.Extras)
		for pi, pdef := range def.Primitives {
			p := doc.CreatePrimitive()
			p.SetExtras(pdef.Extras)
			if pdef.Mode != nil {
				p.SetMode(PrimitiveMode(*pdef.Mode))
			}
			if pdef.Material != nil {
				p.SetMaterial(*pdef.Material)
			}
			for _, semantic := range slices.Sorted(maps.Keys(pdef.Attributes)) {
				a, err := accessor(pdef.Attributes[semantic])
				if err != nil {
					return errors.Wrapf(err, "meshes[%d].primitives[%d].attributes.%s", mi, pi, semantic)
				}
				p.SetAttribute(semantic, a)
			}
			if pdef.Indices != nil {
				a, err := accessor(*pdef.Indices)
				if err != nil {
					return errors.Wrapf(err, "meshes[%d].primitives[%d].indices", mi, pi)
				}
				p.SetIndices(a)
			}
			for ti, tdef := range pdef.Targets {
				t := doc.CreatePrimitiveTarget("")
				for _, semantic := range slices.Sorted(maps.Keys(tdef)) {
					a, err := accessor(tdef[semantic])
					if err != nil {
						return errors.Wrapf(err, "meshes[%d].primitives[%d].targets[%d].%s", mi, pi, ti, semantic)
					}
					t.SetAttribute(semantic, a)
				}
				p.AddTarget(t)
			}
			m.AddPrimitive(p)
		}
		meshes = append(meshes, m)
	}

	nodes := make([]*Node, 0, len(g.Nodes))
	for _, def := range g.Nodes {
		n := doc.CreateNode(def.Name).
			SetTranslation(def.Translation).
			SetRotation(def.Rotation).
			SetScale(def.Scale).
			SetMatrix(def.Matrix).
			SetWeights(def.Weights)
		n.SetExtras(def.Extras)
		if def.Camera != nil {
			n.SetCamera(*def.Camera)
		}
		nodes = append(nodes, n)
	}

	skins := make([]*Skin, 0, len(g.Skins))
	for si, def := range g.Skins {
		s := doc.CreateSkin(def.Name)
		s.SetExtras(def.Extras)
		if def.InverseBindMatrices != nil {
			a, err := accessor(*def.InverseBindMatrices)
			if err != nil {
				return errors.Wrapf(err, "skins[%d].inverseBindMatrices", si)
			}
			s.SetInverseBindMatrices(a)
		}
		if def.Skeleton != nil {
			n, err := lookup(nodes, *def.Skeleton, "node")
			if err != nil {
				return errors.Wrapf(err, "skins[%d].skeleton", si)
			}
			s.SetSkeleton(n)
		}
		for _, j := range def.Joints {
			n, err := lookup(nodes, j, "node")
			if err != nil {
				return errors.Wrapf(err, "skins[%d].joints", si)
			}
			s.AddJoint(n)
		}
		skins = append(skins, s)
	}

	for ni, def := range g.Nodes {
		n := nodes[ni]
		if def.Mesh != nil {
			m, err := lookup(meshes, *def.Mesh, "mesh")
			if err != nil {
				return errors.Wrapf(err, "nodes[%d].mesh", ni)
			}
			n.SetMesh(m)
		}
		if def.Skin != nil {
			s, err := lookup(skins, *def.Skin, "skin")
			if err != nil {
				return errors.Wrapf(err, "nodes[%d].skin", ni)
			}
			n.SetSkin(s)
		}
		for _, c := range def.Children {
			child, err := lookup(nodes, c, "node")
			if err != nil {
				return errors.Wrapf(err, "nodes[%d].children", ni)
			}
			n.AddChild(child)
		}
	}

	for ai, def := range g.Animations {
		anim := doc.CreateAnimation(def.Name)
		anim.SetExtras(def.Extras)
		samplers := make([]*AnimationSampler, 0, len(def.Samplers))
		for si, sdef := range def.Samplers {
			in, err := accessor(sdef.Input)
			if err != nil {
				return errors.Wrapf(err, "animations[%d].samplers[%d].input", ai, si)
			}
			out, err := accessor(sdef.Output)
			if err != nil {
				return errors.Wrapf(err, "animations[%d].samplers[%d].output", ai, si)
			}
			s := doc.CreateAnimationSampler("").
				SetInterpolation(sdef.Interpolation).
				SetInput(in).
				SetOutput(out)
			s.SetExtras(sdef.Extras)
			anim.AddSampler(s)
			samplers = append(samplers, s)
		}
		for ci, cdef := range def.Channels {
			s, err := lookup(samplers, cdef.Sampler, "sampler")
			if err != nil {
				return errors.Wrapf(err, "animations[%d].channels[%d]", ai, ci)
			}
			c := doc.CreateAnimationChannel("").
				SetTargetPath(cdef.Target.Path).
				SetSampler(s)
			c.SetExtras(cdef.Extras)
			if cdef.Target.Node != nil {
				n, err := lookup(nodes, *cdef.Target.Node, "node")
				if err != nil {
					return errors.Wrapf(err, "animations[%d].channels[%d].target", ai, ci)
				}
				c.SetTargetNode(n)
			}
			anim.AddChannel(c)
		}
	}

	scenes := make([]*Scene, 0, len(g.Scenes))
	for si, def := range g.Scenes {
		s := doc.CreateScene(def.Name)
		s.SetExtras(def.Extras)
		for _, ni := range def.Nodes {
			n, err := lookup(nodes, ni, "node")
			if err != nil {
				return errors.Wrapf(err, "scenes[%d].nodes", si)
			}
			s.AddChild(n)
		}
		scenes = append(scenes, s)
	}
	if g.Scene != nil {
		s, err := lookup(scenes, *g.Scene, "scene")
		if err != nil {
			return err
		}
		doc.Root().SetDefaultScene(s)
	}
	return nil
}

func lookup[T any](list []T, i int, kind string) (T, error) {
	if i < 0 || i >= len(list) {
		var zero T
		return zero, errors.Newf("%s index %d out of range (%d defined)", kind, i, len(list))
	}
	return list[i], nil
}
