// Package fixture builds small documents for tests.
package fixture

import (
	"io"
	"log/slog"
	"math"
	"testing"

	"github.com/reoring/gltfx"
	"github.com/reoring/gltfx/codec"
	"github.com/reoring/gltfx/codec/refcodec"
)

// Mesh is a document with one buffer and one triangle primitive.
type Mesh struct {
	Doc       *gltfx.Document
	Buffer    *gltfx.Buffer
	Mesh      *gltfx.Mesh
	Node      *gltfx.Node
	Primitive *gltfx.Primitive
	Position  *gltfx.Accessor
	Indices   *gltfx.Accessor
}

// Triangles returns a document whose primitive has n float POSITION
// vertices and n/3 triangles indexed with 16-bit indices. n must be a
// multiple of 3.
func Triangles(n int) *Mesh {
	doc := gltfx.NewDocument().SetLogger(Logger())
	m := &Mesh{Doc: doc}
	m.Buffer = doc.CreateBuffer("main")
	m.Position = gltfx.SetValues(doc.CreateAccessor("position").SetElementType(gltfx.Vec3), Positions(n))
	idx := make([]uint16, n)
	for i := range idx {
		idx[i] = uint16(i)
	}
	m.Indices = gltfx.SetValues(doc.CreateAccessor("indices"), idx)
	m.Primitive = doc.CreatePrimitive().
		SetAttribute("POSITION", m.Position).
		SetIndices(m.Indices)
	m.Mesh = doc.CreateMesh("mesh").AddPrimitive(m.Primitive)
	m.Node = doc.CreateNode("node").SetMesh(m.Mesh)
	doc.Root().SetDefaultScene(doc.CreateScene("scene").AddChild(m.Node))
	return m
}

// AddAttribute adds a float attribute to the primitive.
func (m *Mesh) AddAttribute(semantic string, t gltfx.ElementType, values []float32) *gltfx.Accessor {
	a := gltfx.SetValues(m.Doc.CreateAccessor(semantic).SetElementType(t), values)
	m.Primitive.SetAttribute(semantic, a)
	return a
}

// AddSampler animates the node along path with a linear sampler.
func (m *Mesh) AddSampler(anim *gltfx.Animation, path string, t gltfx.ElementType, times, values []float32) *gltfx.AnimationSampler {
	doc := m.Doc
	in := gltfx.SetValues(doc.CreateAccessor(path+"_input"), times)
	out := gltfx.SetValues(doc.CreateAccessor(path+"_output").SetElementType(t), values)
	s := doc.CreateAnimationSampler("").
		SetInterpolation("LINEAR").
		SetInput(in).
		SetOutput(out)
	anim.AddSampler(s)
	anim.AddChannel(doc.CreateAnimationChannel("").
		SetTargetNode(m.Node).
		SetTargetPath(path).
		SetSampler(s))
	return s
}

// Positions returns n vertices on a spiral, as xyz triples.
func Positions(n int) []float32 {
	out := make([]float32, 0, n*3)
	for i := range n {
		a := float64(i) * 0.37
		r := 1 + float64(i)*0.01
		out = append(out, float32(r*math.Cos(a)), float32(i)*0.05, float32(r*math.Sin(a)))
	}
	return out
}

// Normals returns n unit vectors, as xyz triples.
func Normals(n int) []float32 {
	out := make([]float32, 0, n*3)
	for i := range n {
		a := float64(i) * 0.61
		x, y, z := math.Cos(a), 0.5, math.Sin(a)
		l := math.Sqrt(x*x + y*y + z*z)
		out = append(out, float32(x/l), float32(y/l), float32(z/l))
	}
	return out
}

// Tangents returns n unit tangents with handedness, as xyzw.
func Tangents(n int) []float32 {
	out := make([]float32, 0, n*4)
	for i, v := range Normals(n) {
		out = append(out, v)
		if i%3 == 2 {
			out = append(out, 1)
		}
	}
	return out
}

// Codec returns a reference codec closed with the test.
func Codec(tb testing.TB) *refcodec.Codec {
	tb.Helper()
	c, err := refcodec.New()
	if err != nil {
		tb.Fatalf("refcodec: %v", err)
	}
	tb.Cleanup(c.Close)
	return c
}

// Dependencies returns every codec dependency backed by c.
func Dependencies(c *refcodec.Codec) map[string]any {
	d := refcodec.NewDraco(c)
	return map[string]any{
		codec.MeshoptEncoderKey: c,
		codec.MeshoptDecoderKey: c,
		codec.DracoEncoderKey:   d,
		codec.DracoDecoderKey:   d,
	}
}

// Logger discards everything.
func Logger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}
