package gltfx

import (
	"context"
	"encoding/binary"
	"fmt"
	"log/slog"
	"slices"

	"github.com/cockroachdb/errors"

	"github.com/reoring/gltfx/wire"
)

// Format selects the output container.
type Format int

const (
	// FormatGLB stores buffer 0 in the binary chunk of a GLB container.
	FormatGLB Format = iota
	// FormatJSON stores every buffer as an external resource.
	FormatJSON
)

// VertexLayout controls how vertex attributes of one primitive are packed.
type VertexLayout int

const (
	// LayoutInterleaved packs the attributes of a primitive into one
	// strided buffer view.
	LayoutInterleaved VertexLayout = iota
	// LayoutSeparate gives every attribute its own buffer view.
	LayoutSeparate
)

// Generator is written to asset.generator when the document sets none.
const Generator = "gltfx"

// WriteOptions configures one write.
type WriteOptions struct {
	Format       Format
	VertexLayout VertexLayout
	// Basename names generated resources (basename.bin, basename_1.bin).
	Basename string
}

type writer struct {
	extensions   []ExtensionType
	dependencies map[string]any
	logger       *slog.Logger
}

type writeStep struct {
	participant WriteParticipant
	session     WriteSession
}

func (w *writer) write(ctx context.Context, doc *Document, opts WriteOptions) (_ *wire.JSONDocument, err error) {
	if opts.Basename == "" {
		opts.Basename = "buffer"
	}
	jsonDoc := wire.NewJSONDocument()
	g := jsonDoc.JSON
	root := doc.Root()
	g.Asset = wire.Asset{
		Version:    "2.0",
		Generator:  root.Asset.Generator,
		Copyright:  root.Asset.Copyright,
		MinVersion: root.Asset.MinVersion,
		Extras:     root.Asset.Extras,
	}
	if g.Asset.Generator == "" {
		g.Asset.Generator = Generator
	}
	wc := newWriterContext(doc, jsonDoc, opts)

	var steps []writeStep
	defer func() {
		for _, s := range steps {
			if cerr := s.session.Close(); cerr != nil {
				err = errors.CombineErrors(err, errors.Wrapf(cerr, "[%s] close", s.participant.ExtensionName()))
			}
		}
	}()
	for _, ext := range root.ListExtensionsUsed() {
		name := ext.ExtensionName()
		if !slices.ContainsFunc(w.extensions, func(t ExtensionType) bool { return t.Name == name }) {
			w.logger.Warn("extension not registered, skipping", "extension", name)
			continue
		}
		installDependencies(ext, w.dependencies)
		g.ExtensionsUsed = append(g.ExtensionsUsed, name)
		if ext.IsRequired() {
			g.ExtensionsRequired = append(g.ExtensionsRequired, name)
		}
		p, ok := ext.(WriteParticipant)
		if !ok {
			continue
		}
		s, err := p.BeginWrite(ctx, wc)
		if err != nil {
			return nil, errors.Wrapf(err, "[%s] begin write", name)
		}
		steps = append(steps, writeStep{participant: p, session: s})
	}

	if err := prewrite(ctx, steps, PropertyAccessor); err != nil {
		return nil, err
	}
	if err := prewrite(ctx, steps, PropertyBuffer); err != nil {
		return nil, err
	}
	imageViews := w.writeBuffers(wc)
	for _, a := range root.ListAccessors() {
		if wc.IsClaimed(a) {
			continue
		}
		if len(a.ListParents()) > 0 {
			return nil, errors.Wrapf(ErrMissingBuffer, "accessors[%d] %q", root.IndexOf(a), a.Name())
		}
		w.logger.Warn("skipping unused accessor without buffer", "accessor", a.Name())
	}
	w.writeImages(wc, imageViews)
	if err := w.writeGraph(wc); err != nil {
		return nil, err
	}
	g.Materials = root.Materials
	g.Textures = root.Textures
	g.Samplers = root.Samplers
	g.Cameras = root.Cameras

	for _, s := range steps {
		if err := s.session.Write(ctx); err != nil {
			return nil, errors.Wrapf(err, "[%s] write", s.participant.ExtensionName())
		}
	}
	return jsonDoc, nil
}

func prewrite(ctx context.Context, steps []writeStep, t PropertyType) error {
	for _, s := range steps {
		if !slices.Contains(s.participant.PrewriteTypes(), t) {
			continue
		}
		if err := s.session.Prewrite(ctx, t); err != nil {
			return errors.Wrapf(err, "[%s] prewrite %s", s.participant.ExtensionName(), t)
		}
	}
	return nil
}

// bufferWriter accumulates the views of one output buffer.
type bufferWriter struct {
	wc     *WriterContext
	index  int
	chunks [][]byte
	length int
}

func (bw *bufferWriter) addView(data []byte, stride, target int) int {
	g := bw.wc.jsonDoc.JSON
	idx := len(g.BufferViews)
	g.BufferViews = append(g.BufferViews, &wire.BufferView{
		Buffer:     bw.index,
		ByteOffset: bw.length,
		ByteLength: len(data),
		ByteStride: stride,
		Target:     target,
	})
	padded := Pad(data)
	bw.chunks = append(bw.chunks, padded)
	bw.length += len(padded)
	return idx
}

// writeBuffers groups the unclaimed accessors of every buffer, then places
// GLB images and extension views, and finally the buffer definitions. It
// returns the buffer view of each embedded image.
func (w *writer) writeBuffers(wc *WriterContext) map[*Image]int {
	doc := wc.doc
	g := wc.jsonDoc.JSON
	buffers := doc.Root().ListBuffers()
	for i, b := range buffers {
		wc.bufferIndex[b] = i
	}

	byBuffer := map[*Buffer][]*Accessor{}
	for _, a := range doc.Root().ListAccessors() {
		if wc.IsClaimed(a) {
			continue
		}
		if b := a.Buffer(); b != nil {
			byBuffer[b] = append(byBuffer[b], a)
		}
	}

	imageViews := map[*Image]int{}
	usedURIs := map[string]bool{}
	for _, b := range buffers {
		if b.URI() != "" {
			usedURIs[b.URI()] = true
		}
	}
	generated := 0

	for bi, b := range buffers {
		bw := &bufferWriter{wc: wc, index: bi}

		var usages []BufferViewUsage
		groups := map[BufferViewUsage][]*Accessor{}
		for _, a := range byBuffer[b] {
			u := wc.AccessorUsage(a)
			if _, ok := groups[u]; !ok {
				usages = append(usages, u)
			}
			groups[u] = append(groups[u], a)
		}
		for _, u := range usages {
			accessors := groups[u]
			switch {
			case wc.GroupedByParent(u):
				for _, group := range groupByParent(doc, accessors) {
					if wc.opts.VertexLayout == LayoutInterleaved {
						bw.writeInterleaved(group)
						continue
					}
					for _, a := range group {
						bw.writeInterleaved([]*Accessor{a})
					}
				}
			case u == UsageSparse:
				for _, a := range accessors {
					bw.writeSparse(a)
				}
			default:
				bw.writeConcat(accessors, u.Target())
			}
		}

		if bi == 0 && wc.opts.Format == FormatGLB {
			for _, img := range doc.Root().ListImages() {
				if len(img.Data()) > 0 {
					imageViews[img] = bw.addView(img.Data(), 0, 0)
				}
			}
		}
		for _, v := range wc.otherViews[b] {
			wc.otherViewIndex[v] = bw.addView(v.data, 0, 0)
		}

		def := &wire.Buffer{Name: b.Name(), ByteLength: bw.length, Extras: b.Extras()}
		if bw.length > 0 {
			data := Concat(bw.chunks...)
			if bi == 0 && wc.opts.Format == FormatGLB {
				wc.jsonDoc.Resources[wire.GLBBuffer] = data
			} else {
				uri := b.URI()
				if uri == "" {
					uri, generated = nextURI(wc.opts.Basename, generated, usedURIs)
				}
				def.URI = uri
				wc.jsonDoc.Resources[uri] = data
			}
		}
		g.Buffers = append(g.Buffers, def)
	}
	return imageViews
}

func nextURI(basename string, n int, used map[string]bool) (string, int) {
	for {
		uri := basename + ".bin"
		if n > 0 {
			uri = fmt.Sprintf("%s_%d.bin", basename, n)
		}
		n++
		if !used[uri] {
			used[uri] = true
			return uri, n
		}
	}
}

// groupByParent splits accessors by their first parent, keeping encounter
// order of both groups and members.
func groupByParent(doc *Document, accessors []*Accessor) [][]*Accessor {
	var order []Property
	groups := map[Property][]*Accessor{}
	for _, a := range accessors {
		var parent Property
		if parents := doc.graph.ListParents(a); len(parents) > 0 {
			parent = parents[0]
		}
		if _, ok := groups[parent]; !ok {
			order = append(order, parent)
		}
		groups[parent] = append(groups[parent], a)
	}
	out := make([][]*Accessor, 0, len(order))
	for _, p := range order {
		out = append(out, groups[p])
	}
	return out
}

// writeInterleaved packs vertex attributes with equal counts into one
// strided view. Every element slot is padded to 4 bytes.
func (bw *bufferWriter) writeInterleaved(accessors []*Accessor) {
	count := accessors[0].Count()
	for _, a := range accessors[1:] {
		if a.Count() != count {
			for _, a := range accessors {
				bw.writeInterleaved([]*Accessor{a})
			}
			return
		}
	}
	offsets := make([]int, len(accessors))
	stride := 0
	for i, a := range accessors {
		offsets[i] = stride
		stride += PadNumber(a.ElementSize())
	}
	data := make([]byte, count*stride)
	for k, a := range accessors {
		es := a.ElementSize()
		src := a.Array()
		for i := range count {
			copy(data[i*stride+offsets[k]:], src[i*es:(i+1)*es])
		}
	}
	view := bw.addView(data, stride, wire.TargetArrayBuffer)
	for k, a := range accessors {
		def := bw.wc.CreateAccessorDef(a)
		def.BufferView = wire.Int(view)
		def.ByteOffset = offsets[k]
		bw.wc.ClaimAccessor(a, def)
	}
}

// writeConcat places accessors back to back in one view, each aligned to 4
// bytes.
func (bw *bufferWriter) writeConcat(accessors []*Accessor, target int) {
	parts := make([][]byte, 0, len(accessors))
	offsets := make([]int, len(accessors))
	length := 0
	for i, a := range accessors {
		offsets[i] = length
		p := Pad(a.Array())
		parts = append(parts, p)
		length += len(p)
	}
	view := bw.addView(Concat(parts...), 0, target)
	for i, a := range accessors {
		def := bw.wc.CreateAccessorDef(a)
		def.BufferView = wire.Int(view)
		def.ByteOffset = offsets[i]
		bw.wc.ClaimAccessor(a, def)
	}
}

// writeSparse stores the non-zero elements of a as sparse substitutions
// over an implicit zero base.
func (bw *bufferWriter) writeSparse(a *Accessor) {
	es := a.ElementSize()
	src := a.Array()
	var indices []int
	for i := range a.Count() {
		if slices.ContainsFunc(src[i*es:(i+1)*es], func(b byte) bool { return b != 0 }) {
			indices = append(indices, i)
		}
	}
	def := bw.wc.CreateAccessorDef(a)
	if len(indices) > 0 {
		ct := UnsignedInt
		switch last := indices[len(indices)-1]; {
		case last < 1<<8:
			ct = UnsignedByte
		case last < 1<<16:
			ct = UnsignedShort
		}
		is := ct.Size()
		idxData := make([]byte, len(indices)*is)
		valData := make([]byte, 0, len(indices)*es)
		for k, i := range indices {
			switch is {
			case 1:
				idxData[k] = byte(i)
			case 2:
				binary.LittleEndian.PutUint16(idxData[k*2:], uint16(i))
			default:
				binary.LittleEndian.PutUint32(idxData[k*4:], uint32(i))
			}
			valData = append(valData, src[i*es:(i+1)*es]...)
		}
		iv := bw.addView(idxData, 0, 0)
		vv := bw.addView(valData, 0, 0)
		def.Sparse = &wire.Sparse{
			Count:   len(indices),
			Indices: wire.SparseIndices{BufferView: iv, ComponentType: int(ct)},
			Values:  wire.SparseValues{BufferView: vv},
		}
	}
	bw.wc.ClaimAccessor(a, def)
}

func (w *writer) writeImages(wc *WriterContext, views map[*Image]int) {
	g := wc.jsonDoc.JSON
	for i, img := range wc.doc.Root().ListImages() {
		def := &wire.Image{Name: img.Name(), MimeType: img.MimeType(), Extras: img.Extras()}
		if v, ok := views[img]; ok {
			def.BufferView = wire.Int(v)
		} else {
			def.URI = img.URI()
			if len(img.Data()) > 0 {
				if def.URI == "" {
					def.URI = fmt.Sprintf("image_%d%s", i, imageExtension(img.MimeType()))
				}
				wc.jsonDoc.Resources[def.URI] = img.Data()
			}
		}
		g.Images = append(g.Images, def)
	}
}

func imageExtension(mime string) string {
	switch mime {
	case "image/png":
		return ".png"
	case "image/jpeg":
		return ".jpg"
	case "image/webp":
		return ".webp"
	case "image/ktx2":
		return ".ktx2"
	}
	return ".bin"
}

// writeGraph writes meshes, nodes, skins, animations and scenes. Every
// referenced accessor must have been claimed by now.
func (w *writer) writeGraph(wc *WriterContext) error {
	doc := wc.doc
	root := doc.Root()
	g := wc.jsonDoc.JSON

	accessorIndex := func(a *Accessor, where string) (int, error) {
		i, ok := wc.AccessorIndex(a)
		if !ok {
			return 0, errors.Wrapf(ErrMissingBuffer, "%s: accessor %q was not written", where, a.Name())
		}
		return i, nil
	}
	index := func(p Property) *int {
		if i := root.IndexOf(p); i >= 0 {
			return wire.Int(i)
		}
		return nil
	}

	for mi, m := range root.ListMeshes() {
		def := &wire.Mesh{Name: m.Name(), Weights: m.Weights(), Extras: m.Extras()}
		for pi, p := range m.Primitives() {
			where := fmt.Sprintf("meshes[%d].primitives[%d]", mi, pi)
			pdef := &wire.Primitive{Attributes: map[string]int{}, Extras: p.Extras()}
			if p.Mode() != ModeTriangles {
				pdef.Mode = wire.Int(int(p.Mode()))
			}
			if mat, ok := p.Material(); ok {
				pdef.Material = wire.Int(mat)
			}
			for _, semantic := range p.Semantics() {
				i, err := accessorIndex(p.Attribute(semantic), where)
				if err != nil {
					return err
				}
				pdef.Attributes[semantic] = i
			}
			if a := p.Indices(); a != nil {
				i, err := accessorIndex(a, where)
				if err != nil {
					return err
				}
				pdef.Indices = wire.Int(i)
			}
			for _, t := range p.Targets() {
				tdef := map[string]int{}
				for _, semantic := range t.Semantics() {
					i, err := accessorIndex(t.Attribute(semantic), where)
					if err != nil {
						return err
					}
					tdef[semantic] = i
				}
				pdef.Targets = append(pdef.Targets, tdef)
			}
			wc.primitiveDefs[p] = pdef
			def.Primitives = append(def.Primitives, pdef)
		}
		g.Meshes = append(g.Meshes, def)
	}

	for _, n := range root.ListNodes() {
		def := &wire.Node{
			Name:        n.Name(),
			Translation: n.Translation(),
			Rotation:    n.Rotation(),
			Scale:       n.Scale(),
			Matrix:      n.Matrix(),
			Weights:     n.Weights(),
			Extras:      n.Extras(),
		}
		if c, ok := n.Camera(); ok {
			def.Camera = wire.Int(c)
		}
		if m := n.Mesh(); m != nil {
			def.Mesh = index(m)
		}
		if s := n.Skin(); s != nil {
			def.Skin = index(s)
		}
		for _, c := range n.Children() {
			def.Children = append(def.Children, root.IndexOf(c))
		}
		g.Nodes = append(g.Nodes, def)
	}

	for si, s := range root.ListSkins() {
		def := &wire.Skin{Name: s.Name(), Joints: []int{}, Extras: s.Extras()}
		if a := s.InverseBindMatrices(); a != nil {
			i, err := accessorIndex(a, fmt.Sprintf("skins[%d]", si))
			if err != nil {
				return err
			}
			def.InverseBindMatrices = wire.Int(i)
		}
		if n := s.Skeleton(); n != nil {
			def.Skeleton = index(n)
		}
		for _, j := range s.Joints() {
			def.Joints = append(def.Joints, root.IndexOf(j))
		}
		g.Skins = append(g.Skins, def)
	}

	for ai, anim := range root.ListAnimations() {
		def := &wire.Animation{Name: anim.Name(), Extras: anim.Extras()}
		samplers := anim.Samplers()
		for si, s := range samplers {
			where := fmt.Sprintf("animations[%d].samplers[%d]", ai, si)
			if s.Input() == nil || s.Output() == nil {
				return errors.Newf("%s: sampler needs input and output", where)
			}
			in, err := accessorIndex(s.Input(), where)
			if err != nil {
				return err
			}
			out, err := accessorIndex(s.Output(), where)
			if err != nil {
				return err
			}
			def.Samplers = append(def.Samplers, &wire.AnimationSampler{
				Input:         in,
				Output:        out,
				Interpolation: s.Interpolation(),
				Extras:        s.Extras(),
			})
		}
		for _, c := range anim.Channels() {
			si := slices.Index(samplers, c.Sampler())
			if si < 0 {
				w.logger.Warn("skipping animation channel without sampler", "animation", anim.Name())
				continue
			}
			cdef := &wire.AnimationChannel{
				Sampler: si,
				Target:  wire.AnimationChannelTarget{Path: c.TargetPath()},
				Extras:  c.Extras(),
			}
			if n := c.TargetNode(); n != nil {
				cdef.Target.Node = index(n)
			}
			def.Channels = append(def.Channels, cdef)
		}
		g.Animations = append(g.Animations, def)
	}

	for _, s := range root.ListScenes() {
		def := &wire.Scene{Name: s.Name(), Extras: s.Extras()}
		for _, n := range s.Children() {
			def.Nodes = append(def.Nodes, root.IndexOf(n))
		}
		g.Scenes = append(g.Scenes, def)
	}
	if s := root.DefaultScene(); s != nil {
		g.Scene = index(s)
	}
	return nil
}
