package validate

import (
	"context"
	"log/slog"
	"slices"
	"strings"

	"github.com/Masterminds/semver/v3"
	"github.com/buger/jsonparser"

	"github.com/reoring/gltfx"
	"github.com/reoring/gltfx/ext/draco"
	"github.com/reoring/gltfx/ext/meshopt"
	"github.com/reoring/gltfx/internal/engine"
	"github.com/reoring/gltfx/wire"
)

// checker runs the structural checks over one decoded asset. Index
// references are followed on the raw JSON, so that untyped parts such as
// materials and textures are covered as well.
type checker struct {
	c        *collector
	raw      []byte
	g        *wire.GLTF
	glb      bool
	bin      []byte
	known    []string
	resource ResourceFunc
	logger   *slog.Logger

	usedAccessors map[int]bool
	fallbacks     map[int]bool
}

func (k *checker) run(ctx context.Context) error {
	k.checkAsset()
	k.checkExtensions()
	k.checkReferences()
	if err := k.checkBuffers(ctx); err != nil {
		return err
	}
	k.checkBufferViews()
	k.checkAccessors()
	k.checkMeshopt()
	k.checkUnused()
	return nil
}

func (k *checker) checkAsset() {
	asset, dt, _, err := jsonparser.Get(k.raw, "asset")
	if err != nil || dt != jsonparser.Object {
		k.c.add(CodeMissingAsset, SeverityError, engine.At("asset"))
		return
	}
	raw, _ := jsonparser.GetString(asset, "version")
	version, err := semver.NewVersion(raw)
	if err != nil {
		k.c.add(CodeInvalidVersion, SeverityError, engine.At("asset", "version"), raw)
		return
	}
	if version.Major() != 2 {
		k.c.add(CodeUnknownMajorVersion, SeverityError, engine.At("asset", "version"), raw)
	}
	rawMin, err := jsonparser.GetString(asset, "minVersion")
	if err != nil {
		return
	}
	minVersion, err := semver.NewVersion(rawMin)
	if err != nil {
		k.c.add(CodeInvalidVersion, SeverityError, engine.At("asset", "minVersion"), rawMin)
		return
	}
	if minVersion.GreaterThan(version) {
		k.c.add(CodeMinVersionGreater, SeverityError, engine.At("asset", "minVersion"), rawMin, raw)
	}
}

func (k *checker) checkExtensions() {
	for i, name := range k.g.ExtensionsRequired {
		if !slices.Contains(k.g.ExtensionsUsed, name) {
			k.c.add(CodeRequiredNotUsed, SeverityError, engine.At("extensionsRequired", i), name)
		}
	}
	for i, name := range k.g.ExtensionsUsed {
		if slices.Contains(k.known, name) {
			continue
		}
		sev := SeverityWarning
		if slices.Contains(k.g.ExtensionsRequired, name) {
			sev = SeverityError
		}
		k.c.add(CodeUnsupportedExtension, sev, engine.At("extensionsUsed", i), name)
	}
}

// refRule maps every index found at path to the top-level array it points
// into. A "*" segment matches every array element or object member.
type refRule struct {
	path   string
	target string
}

var refRules = []refRule{
	{"accessors/*/bufferView", "bufferViews"},
	{"accessors/*/sparse/indices/bufferView", "bufferViews"},
	{"accessors/*/sparse/values/bufferView", "bufferViews"},
	{"bufferViews/*/buffer", "buffers"},
	{"images/*/bufferView", "bufferViews"},
	{"meshes/*/primitives/*/attributes/*", "accessors"},
	{"meshes/*/primitives/*/indices", "accessors"},
	{"meshes/*/primitives/*/material", "materials"},
	{"meshes/*/primitives/*/targets/*/*", "accessors"},
	{"meshes/*/primitives/*/extensions/" + draco.Name + "/bufferView", "bufferViews"},
	{"nodes/*/mesh", "meshes"},
	{"nodes/*/skin", "skins"},
	{"nodes/*/camera", "cameras"},
	{"nodes/*/children/*", "nodes"},
	{"skins/*/inverseBindMatrices", "accessors"},
	{"skins/*/skeleton", "nodes"},
	{"skins/*/joints/*", "nodes"},
	{"animations/*/samplers/*/input", "accessors"},
	{"animations/*/samplers/*/output", "accessors"},
	{"animations/*/channels/*/target/node", "nodes"},
	{"scenes/*/nodes/*", "nodes"},
	{"scene", "scenes"},
	{"textures/*/source", "images"},
	{"textures/*/sampler", "samplers"},
	{"materials/*/pbrMetallicRoughness/baseColorTexture/index", "textures"},
	{"materials/*/pbrMetallicRoughness/metallicRoughnessTexture/index", "textures"},
	{"materials/*/normalTexture/index", "textures"},
	{"materials/*/occlusionTexture/index", "textures"},
	{"materials/*/emissiveTexture/index", "textures"},
	{"bufferViews/*/extensions/" + meshopt.Name + "/buffer", "buffers"},
}

func (k *checker) checkReferences() {
	g := k.g
	counts := map[string]int{
		"accessors":   len(g.Accessors),
		"animations":  len(g.Animations),
		"buffers":     len(g.Buffers),
		"bufferViews": len(g.BufferViews),
		"cameras":     len(g.Cameras),
		"images":      len(g.Images),
		"materials":   len(g.Materials),
		"meshes":      len(g.Meshes),
		"nodes":       len(g.Nodes),
		"samplers":    len(g.Samplers),
		"scenes":      len(g.Scenes),
		"skins":       len(g.Skins),
		"textures":    len(g.Textures),
	}
	k.usedAccessors = map[int]bool{}
	for _, rule := range refRules {
		count := counts[rule.target]
		walk(k.raw, jsonparser.Object, strings.Split(rule.path, "/"), engine.Root, func(v []byte, dt jsonparser.ValueType, ptr engine.Pointer) {
			if dt != jsonparser.Number {
				return
			}
			idx, err := jsonparser.ParseInt(v)
			if err != nil || idx < 0 || int(idx) >= count {
				k.c.add(CodeUnresolvedReference, SeverityError, ptr, idx, rule.target, count)
				return
			}
			if rule.target == "accessors" {
				k.usedAccessors[int(idx)] = true
			}
		})
	}

	// Channel samplers index into their own animation.
	for ai, anim := range g.Animations {
		for ci, ch := range anim.Channels {
			if ch.Sampler < 0 || ch.Sampler >= len(anim.Samplers) {
				k.c.add(CodeUnresolvedReference, SeverityError,
					engine.At("animations", ai, "channels", ci, "sampler"), ch.Sampler, "samplers", len(anim.Samplers))
			}
		}
	}
}

// walk calls fn for every value matching segs below data.
func walk(data []byte, dt jsonparser.ValueType, segs []string, ptr engine.Pointer, fn func([]byte, jsonparser.ValueType, engine.Pointer)) {
	if len(segs) == 0 {
		fn(data, dt, ptr)
		return
	}
	seg, rest := segs[0], segs[1:]
	if seg != "*" {
		if dt != jsonparser.Object {
			return
		}
		v, vt, _, err := jsonparser.Get(data, seg)
		if err != nil {
			return
		}
		walk(v, vt, rest, ptr.Field(seg), fn)
		return
	}
	switch dt {
	case jsonparser.Array:
		i := 0
		_, _ = jsonparser.ArrayEach(data, func(v []byte, vt jsonparser.ValueType, _ int, _ error) {
			walk(v, vt, rest, ptr.Index(i), fn)
			i++
		})
	case jsonparser.Object:
		_ = jsonparser.ObjectEach(data, func(key, v []byte, vt jsonparser.ValueType, _ int) error {
			walk(v, vt, rest, ptr.Field(string(key)), fn)
			return nil
		})
	}
}

func (k *checker) checkBuffers(ctx context.Context) error {
	k.fallbacks = map[int]bool{}
	for i, b := range k.g.Buffers {
		ptr := engine.At("buffers", i)
		var fallback struct {
			Fallback bool `json:"fallback"`
		}
		if ok, err := b.Extensions.Decode(meshopt.Name, &fallback); ok && err == nil && fallback.Fallback {
			k.fallbacks[i] = true
			continue
		}

		var data []byte
		switch {
		case b.URI == "" && i == 0 && k.glb:
			data = k.bin
		case b.URI == "":
			k.c.add(CodeBufferMissingURI, SeverityError, ptr)
			continue
		case strings.HasPrefix(b.URI, "data:"):
			var err error
			if data, err = gltfx.DecodeDataURI(b.URI); err != nil {
				k.c.add(CodeIOError, SeverityError, ptr.Field("uri"), "data:", err)
				continue
			}
		case k.resource == nil:
			k.c.add(CodeResourceNotChecked, SeverityHint, ptr.Field("uri"), b.URI)
			continue
		default:
			var err error
			data, err = k.resource(ctx, b.URI)
			if ctxErr := ctx.Err(); ctxErr != nil {
				return ctxErr
			}
			if err != nil {
				k.logger.Warn("buffer resource unavailable", "uri", b.URI, "error", err)
				k.c.add(CodeIOError, SeverityWarning, ptr.Field("uri"), b.URI, err)
				continue
			}
		}
		if b.ByteLength > len(data) {
			k.c.add(CodeBufferByteLength, SeverityError, ptr.Field("byteLength"), b.ByteLength, len(data))
		}
	}
	return nil
}

func (k *checker) checkBufferViews() {
	for i, v := range k.g.BufferViews {
		ptr := engine.At("bufferViews", i)
		if v.Buffer >= 0 && v.Buffer < len(k.g.Buffers) {
			length := k.g.Buffers[v.Buffer].ByteLength
			if end := v.ByteOffset + v.ByteLength; v.ByteOffset < 0 || end > length {
				k.c.add(CodeBufferViewTooLong, SeverityError, ptr.Field("byteLength"), v.ByteOffset, end, length)
			}
		}
		if s := v.ByteStride; s != 0 && (s < 4 || s > 252 || s%4 != 0) {
			k.c.add(CodeBufferViewInvalidStride, SeverityError, ptr.Field("byteStride"), s)
		}
	}
}

func (k *checker) checkAccessors() {
	for i, a := range k.g.Accessors {
		if a.BufferView == nil || *a.BufferView < 0 || *a.BufferView >= len(k.g.BufferViews) || a.Count == 0 {
			continue
		}
		elementSize := gltfx.ElementType(a.Type).Size() * gltfx.ComponentType(a.ComponentType).Size()
		if elementSize == 0 {
			continue
		}
		view := k.g.BufferViews[*a.BufferView]
		stride := elementSize
		if view.ByteStride > 0 {
			stride = view.ByteStride
		}
		if need := a.ByteOffset + (a.Count-1)*stride + elementSize; need > view.ByteLength {
			k.c.add(CodeAccessorTooLong, SeverityError, engine.At("accessors", i), need, view.ByteLength)
		}
	}
}

// checkMeshopt verifies that fallback buffers are referenced only by the
// outer side of compressed buffer views.
func (k *checker) checkMeshopt() {
	if len(k.fallbacks) == 0 {
		return
	}
	for i, v := range k.g.BufferViews {
		ptr := engine.At("bufferViews", i)
		raw, ok := v.Extensions[meshopt.Name]
		if !ok {
			if k.fallbacks[v.Buffer] {
				k.c.add(CodeMeshoptFallbackMisuse, SeverityError, ptr.Field("buffer"), v.Buffer)
			}
			continue
		}
		if b, err := jsonparser.GetInt(raw, "buffer"); err == nil && k.fallbacks[int(b)] {
			k.c.add(CodeMeshoptFallbackReference, SeverityError, ptr.Field("extensions").Field(meshopt.Name).Field("buffer"), b)
		}
	}
}

func (k *checker) checkUnused() {
	for i := range k.g.Accessors {
		if !k.usedAccessors[i] {
			k.c.add(CodeUnusedObject, SeverityInfo, engine.At("accessors", i), "accessor")
		}
	}
}
