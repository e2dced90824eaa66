package gltfx_test

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/cockroachdb/errors"
	json "github.com/goccy/go-json"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/reoring/gltfx"
	"github.com/reoring/gltfx/internal/fixture"
	"github.com/reoring/gltfx/wire"
)

func newIO() *gltfx.IO {
	return gltfx.NewIO().SetLogger(fixture.Logger())
}

func TestWriteJSON_Layout(t *testing.T) {
	tests := []struct {
		name    string
		layout  gltfx.VertexLayout
		views   []wire.BufferView
		offsets map[string]int
	}{
		{
			name:   "interleaved",
			layout: gltfx.LayoutInterleaved,
			views: []wire.BufferView{
				{Buffer: 0, ByteOffset: 0, ByteLength: 720, ByteStride: 24, Target: wire.TargetArrayBuffer},
				{Buffer: 0, ByteOffset: 720, ByteLength: 60, Target: wire.TargetElementArrayBuffer},
			},
			offsets: map[string]int{"position": 0, "NORMAL": 12, "indices": 0},
		},
		{
			name:   "separate",
			layout: gltfx.LayoutSeparate,
			views: []wire.BufferView{
				{Buffer: 0, ByteOffset: 0, ByteLength: 360, ByteStride: 12, Target: wire.TargetArrayBuffer},
				{Buffer: 0, ByteOffset: 360, ByteLength: 360, ByteStride: 12, Target: wire.TargetArrayBuffer},
				{Buffer: 0, ByteOffset: 720, ByteLength: 60, Target: wire.TargetElementArrayBuffer},
			},
			offsets: map[string]int{"position": 0, "NORMAL": 0, "indices": 0},
		},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			m := fixture.Triangles(30)
			m.AddAttribute("NORMAL", gltfx.Vec3, fixture.Normals(30))

			jsonDoc, err := newIO().WriteJSON(context.Background(), m.Doc, gltfx.WriteOptions{Format: gltfx.FormatJSON, VertexLayout: tc.layout})
			require.NoError(t, err)
			g := jsonDoc.JSON

			require.Len(t, g.BufferViews, len(tc.views))
			for i, want := range tc.views {
				got := *g.BufferViews[i]
				got.Extensions = nil
				assert.Equal(t, want, got, "bufferViews[%d]", i)
			}
			for _, a := range g.Accessors {
				assert.Equal(t, tc.offsets[a.Name], a.ByteOffset, a.Name)
			}
			require.Len(t, g.Buffers, 1)
			assert.Equal(t, 780, g.Buffers[0].ByteLength)
			assert.Equal(t, "buffer.bin", g.Buffers[0].URI)
			assert.Len(t, jsonDoc.Resources["buffer.bin"], 780)
		})
	}
}

func TestWriteJSON_Bounds(t *testing.T) {
	m := fixture.Triangles(3)
	anim := m.Doc.CreateAnimation("anim")
	m.AddSampler(anim, "translation", gltfx.Vec3, []float32{0, 1.5}, []float32{0, 0, 0, 1, 2, 3})

	jsonDoc, err := newIO().WriteJSON(context.Background(), m.Doc, gltfx.WriteOptions{})
	require.NoError(t, err)
	byName := map[string]*wire.Accessor{}
	for _, a := range jsonDoc.JSON.Accessors {
		byName[a.Name] = a
	}
	assert.Len(t, byName["position"].Min, 3)
	assert.Equal(t, []float64{0}, byName["translation_input"].Min)
	assert.Equal(t, []float64{1.5}, byName["translation_input"].Max)
	assert.Nil(t, byName["translation_output"].Min)
	assert.Nil(t, byName["indices"].Min)
}

func TestWriteJSON_MissingBuffer(t *testing.T) {
	doc := gltfx.NewDocument().SetLogger(fixture.Logger())
	doc.CreateAccessor("unused")
	a := gltfx.SetValues(doc.CreateAccessor("orphan").SetElementType(gltfx.Vec3), fixture.Positions(3))
	doc.CreateMesh("mesh").AddPrimitive(doc.CreatePrimitive().SetAttribute("POSITION", a))

	_, err := newIO().WriteJSON(context.Background(), doc, gltfx.WriteOptions{})
	require.Error(t, err)
	assert.True(t, errors.Is(err, gltfx.ErrMissingBuffer))
	assert.Contains(t, err.Error(), `accessors[1] "orphan"`)

	// Unreferenced accessors without a buffer are dropped.
	doc = gltfx.NewDocument().SetLogger(fixture.Logger())
	doc.CreateAccessor("unused")
	jsonDoc, err := newIO().WriteJSON(context.Background(), doc, gltfx.WriteOptions{})
	require.NoError(t, err)
	assert.Empty(t, jsonDoc.JSON.Accessors)
}

func TestRoundTrip_Graph(t *testing.T) {
	m := fixture.Triangles(30)
	doc := m.Doc
	doc.Root().Asset.Copyright = "test"
	m.Primitive.SetMaterial(0)
	doc.Root().Materials = []json.RawMessage{json.RawMessage(`{"name":"mat"}`)}
	m.Node.SetTranslation([]float64{1, 2, 3}).SetScale([]float64{2, 2, 2})
	child := doc.CreateNode("child")
	m.Node.AddChild(child)

	ibm := make([]float32, 32)
	for i := range 2 {
		for k := 0; k < 16; k += 5 {
			ibm[i*16+k] = 1
		}
	}
	skin := doc.CreateSkin("skin").
		SetSkeleton(m.Node).
		AddJoint(m.Node).
		AddJoint(child).
		SetInverseBindMatrices(gltfx.SetValues(doc.CreateAccessor("ibm").SetElementType(gltfx.Mat4), ibm))
	child.SetSkin(skin)
	anim := doc.CreateAnimation("anim")
	m.AddSampler(anim, "rotation", gltfx.Vec4, []float32{0, 1}, []float32{0, 0, 0, 1, 0, 1, 0, 0})

	glb, err := newIO().WriteBinary(context.Background(), doc)
	require.NoError(t, err)
	out, err := newIO().ReadBinary(context.Background(), glb)
	require.NoError(t, err)
	root := out.Root()

	assert.Equal(t, "test", root.Asset.Copyright)
	assert.Equal(t, gltfx.Generator, root.Asset.Generator)
	require.Len(t, root.Materials, 1)
	assert.JSONEq(t, `{"name":"mat"}`, string(root.Materials[0]))

	prim := root.ListMeshes()[0].Primitives()[0]
	assert.Equal(t, fixture.Positions(30), gltfx.Float32s(prim.Attribute("POSITION")))
	assert.Equal(t, gltfx.Values[uint16](m.Indices), gltfx.Values[uint16](prim.Indices()))
	mat, ok := prim.Material()
	assert.True(t, ok)
	assert.Equal(t, 0, mat)

	nodes := root.ListNodes()
	require.Len(t, nodes, 2)
	assert.Equal(t, []float64{1, 2, 3}, nodes[0].Translation())
	assert.Equal(t, []*gltfx.Node{nodes[1]}, nodes[0].Children())
	assert.Same(t, prim, nodes[0].Mesh().Primitives()[0])

	s := nodes[1].Skin()
	require.NotNil(t, s)
	assert.Same(t, nodes[0], s.Skeleton())
	assert.Equal(t, []*gltfx.Node{nodes[0], nodes[1]}, s.Joints())
	assert.Equal(t, ibm, gltfx.Float32s(s.InverseBindMatrices()))

	a := root.ListAnimations()[0]
	require.Len(t, a.Channels(), 1)
	ch := a.Channels()[0]
	assert.Equal(t, "rotation", ch.TargetPath())
	assert.Same(t, nodes[0], ch.TargetNode())
	assert.Equal(t, "LINEAR", ch.Sampler().Interpolation())
	assert.Equal(t, []float32{0, 1}, gltfx.Float32s(ch.Sampler().Input()))

	require.NotNil(t, root.DefaultScene())
	assert.Equal(t, []*gltfx.Node{nodes[0]}, root.DefaultScene().Children())
}

func TestRoundTrip_Sparse(t *testing.T) {
	m := fixture.Triangles(3)
	values := make([]float32, 300*3)
	values[3*7+1] = 2
	values[3*299] = -1
	delta := gltfx.SetValues(m.Doc.CreateAccessor("delta").SetElementType(gltfx.Vec3), values).SetSparse(true)
	m.Doc.CreateMesh("morph").AddPrimitive(m.Doc.CreatePrimitive().
		SetAttribute("POSITION", gltfx.SetValues(m.Doc.CreateAccessor("base").SetElementType(gltfx.Vec3), make([]float32, 900))).
		AddTarget(m.Doc.CreatePrimitiveTarget("").SetAttribute("POSITION", delta)))

	jsonDoc, err := newIO().WriteJSON(context.Background(), m.Doc, gltfx.WriteOptions{})
	require.NoError(t, err)
	var sparse *wire.Accessor
	for _, a := range jsonDoc.JSON.Accessors {
		if a.Name == "delta" {
			sparse = a
		}
	}
	require.NotNil(t, sparse)
	assert.Nil(t, sparse.BufferView)
	require.NotNil(t, sparse.Sparse)
	assert.Equal(t, 2, sparse.Sparse.Count)
	assert.Equal(t, int(gltfx.UnsignedShort), sparse.Sparse.Indices.ComponentType)

	doc, err := newIO().ReadJSON(context.Background(), jsonDoc)
	require.NoError(t, err)
	got := doc.Root().ListMeshes()[1].Primitives()[0].Targets()[0].Attribute("POSITION")
	assert.True(t, got.Sparse())
	assert.Equal(t, values, gltfx.Float32s(got))
}

func TestRead_Errors(t *testing.T) {
	tests := []struct {
		name string
		json string
		err  error
	}{
		{"version", `{"asset":{"version":"1.0"}}`, gltfx.ErrUnsupportedVersion},
		{"bad version", `{"asset":{"version":"two"}}`, gltfx.ErrUnsupportedVersion},
		{"required extension", `{"asset":{"version":"2.0"},"extensionsUsed":["EXT_x"],"extensionsRequired":["EXT_x"]}`, gltfx.ErrUnsupportedExtension},
		{"accessor type", `{"asset":{"version":"2.0"},"accessors":[{"componentType":5126,"count":1,"type":"VEC9"}]}`, gltfx.ErrInvalidAccessor},
		{"negative count", `{"asset":{"version":"2.0"},"accessors":[{"componentType":5126,"count":-1,"type":"VEC3"}]}`, gltfx.ErrInvalidAccessor},
		{"huge count", `{"asset":{"version":"2.0"},"accessors":[{"componentType":5126,"count":9223372036854775807,"type":"VEC3"}]}`, gltfx.ErrInvalidAccessor},
		{"huge count in view", `{"asset":{"version":"2.0"},"buffers":[{"byteLength":4}],"bufferViews":[{"buffer":0,"byteLength":4}],"accessors":[{"bufferView":0,"componentType":5126,"count":768614336404564650,"type":"VEC3"}]}`, gltfx.ErrInvalidAccessor},
		{"count exceeds view", `{"asset":{"version":"2.0"},"buffers":[{"byteLength":4}],"bufferViews":[{"buffer":0,"byteLength":4}],"accessors":[{"bufferView":0,"componentType":5126,"count":2,"type":"SCALAR"}]}`, gltfx.ErrInvalidAccessor},
		{"view range", `{"asset":{"version":"2.0"},"buffers":[{"byteLength":4}],"bufferViews":[{"buffer":0,"byteLength":8}]}`, gltfx.ErrInvalidAccessor},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			_, err := newIO().ReadBinary(context.Background(), gltfx.EncodeGLB([]byte(tc.json), []byte{0, 0, 0, 0}))
			require.Error(t, err)
			assert.True(t, errors.Is(err, tc.err), "%v", err)
		})
	}
}

func TestRead_OptionalUnknownExtension(t *testing.T) {
	data := []byte(`{"asset":{"version":"2.1"},"extensionsUsed":["EXT_x"]}`)
	doc, err := newIO().ReadBinary(context.Background(), gltfx.EncodeGLB(data, nil))
	require.NoError(t, err)
	assert.Empty(t, doc.Root().ListExtensionsUsed())
}

func TestIO_Files(t *testing.T) {
	m := fixture.Triangles(9)
	img := m.Doc.CreateImage("albedo").SetMimeType("image/png").SetData([]byte{0x89, 'P', 'N', 'G'})
	dir := t.TempDir()
	x := newIO()

	path := filepath.Join(dir, "scene.gltf")
	require.NoError(t, x.Write(context.Background(), path, m.Doc))
	assert.FileExists(t, filepath.Join(dir, "scene.bin"))
	assert.FileExists(t, filepath.Join(dir, "image_0.png"))

	doc, err := x.Read(context.Background(), path)
	require.NoError(t, err)
	prim := doc.Root().ListMeshes()[0].Primitives()[0]
	assert.Equal(t, fixture.Positions(9), gltfx.Float32s(prim.Attribute("POSITION")))
	require.Len(t, doc.Root().ListImages(), 1)
	assert.Equal(t, img.Data(), doc.Root().ListImages()[0].Data())

	glbPath := filepath.Join(dir, "scene.glb")
	require.NoError(t, x.Write(context.Background(), glbPath, doc))
	data, err := os.ReadFile(glbPath)
	require.NoError(t, err)
	assert.Equal(t, "glTF", string(data[:4]))

	doc, err = x.Read(context.Background(), glbPath)
	require.NoError(t, err)
	assert.Equal(t, img.Data(), doc.Root().ListImages()[0].Data())
	assert.Empty(t, doc.Root().ListBuffers()[0].URI())
}

func TestIO_MissingResource(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "scene.gltf")
	require.NoError(t, os.WriteFile(path, []byte(`{
		"asset":{"version":"2.0"},
		"buffers":[{"uri":"missing.bin","byteLength":12}],
		"bufferViews":[{"buffer":0,"byteLength":12}],
		"accessors":[{"bufferView":0,"componentType":5126,"count":1,"type":"VEC3"}]
	}`), 0o644))

	_, err := newIO().Read(context.Background(), path)
	require.Error(t, err)
	assert.True(t, errors.Is(err, gltfx.ErrExternalResourceUnavailable))
}

func TestDirLoader_UnsafeURI(t *testing.T) {
	parent := t.TempDir()
	dir := filepath.Join(parent, "assets")
	require.NoError(t, os.Mkdir(dir, 0o755))
	secret := filepath.Join(parent, "secret.bin")
	require.NoError(t, os.WriteFile(secret, []byte{1, 2, 3, 4}, 0o644))
	require.NoError(t, os.MkdirAll(filepath.Join(dir, "sub"), 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "sub", "ok.bin"), []byte{5}, 0o644))

	loader := gltfx.DirLoader{Dir: dir}
	for _, uri := range []string{"../secret.bin", "sub/../../secret.bin", "%2E%2E/secret.bin", secret, "file:///etc/passwd"} {
		t.Run(uri, func(t *testing.T) {
			_, err := loader.Load(context.Background(), uri)
			require.ErrorIs(t, err, gltfx.ErrUnsafeURI)
		})
	}

	data, err := loader.Load(context.Background(), "sub/./ok.bin")
	require.NoError(t, err)
	assert.Equal(t, []byte{5}, data)
}

func TestIO_ReadUnsafeURI(t *testing.T) {
	parent := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(parent, "outside.bin"), make([]byte, 12), 0o644))
	dir := filepath.Join(parent, "scene")
	require.NoError(t, os.Mkdir(dir, 0o755))
	path := filepath.Join(dir, "scene.gltf")
	require.NoError(t, os.WriteFile(path, []byte(`{
		"asset":{"version":"2.0"},
		"buffers":[{"uri":"../outside.bin","byteLength":12}],
		"bufferViews":[{"buffer":0,"byteLength":12}],
		"accessors":[{"bufferView":0,"componentType":5126,"count":1,"type":"VEC3"}]
	}`), 0o644))

	_, err := newIO().Read(context.Background(), path)
	require.Error(t, err)
	assert.True(t, errors.Is(err, gltfx.ErrExternalResourceUnavailable), "%v", err)
}

func TestIO_WriteUnsafeURI(t *testing.T) {
	for _, uri := range []string{"../escape.bin", "/tmp/escape.bin"} {
		t.Run(uri, func(t *testing.T) {
			m := fixture.Triangles(9)
			m.Buffer.SetURI(uri)
			parent := t.TempDir()
			dir := filepath.Join(parent, "out")
			require.NoError(t, os.Mkdir(dir, 0o755))
			path := filepath.Join(dir, "scene.gltf")

			err := newIO().Write(context.Background(), path, m.Doc)
			require.ErrorIs(t, err, gltfx.ErrUnsafeURI)
			assert.NoFileExists(t, path)
			assert.NoFileExists(t, filepath.Join(parent, "escape.bin"))
		})
	}
}

func TestDecodeDataURI(t *testing.T) {
	data, err := gltfx.DecodeDataURI("data:application/octet-stream;base64,AQID")
	require.NoError(t, err)
	assert.Equal(t, []byte{1, 2, 3}, data)

	_, err = gltfx.DecodeDataURI("data:application/octet-stream;base64,@@")
	assert.Error(t, err)
}
