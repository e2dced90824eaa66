package meshopt

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/reoring/gltfx"
	"github.com/reoring/gltfx/codec"
	"github.com/reoring/gltfx/internal/fixture"
)

func TestSelectFilter(t *testing.T) {
	m := fixture.Triangles(3)
	doc := m.Doc
	attr := func(semantic string, et gltfx.ElementType) *gltfx.Accessor {
		return m.AddAttribute(semantic, et, make([]float32, 3*et.Size()))
	}
	anim := doc.CreateAnimation("anim")
	sampler := func(path string) *gltfx.AnimationSampler {
		return m.AddSampler(anim, path, gltfx.Vec3, []float32{0}, []float32{0, 0, 0})
	}
	skin := doc.CreateSkin("skin")
	ibm := gltfx.SetValues(doc.CreateAccessor("ibm").SetElementType(gltfx.Mat4), make([]float32, 16))
	skin.SetInverseBindMatrices(ibm)
	custom := gltfx.SetValues(doc.CreateAccessor("custom"), []float32{1})
	ids := gltfx.SetValues(doc.CreateAccessor("_ID"), []uint16{1, 2, 3})
	m.Primitive.SetAttribute("_ID", ids)

	tests := []struct {
		name string
		a    *gltfx.Accessor
		want codec.MeshoptFilter
	}{
		{"normal", attr("NORMAL", gltfx.Vec3), codec.FilterNone},
		{"tangent", attr("TANGENT", gltfx.Vec4), codec.FilterOctahedral},
		{"joints", attr("JOINTS_0", gltfx.Vec4), codec.FilterNone},
		{"weights", attr("WEIGHTS_1", gltfx.Vec4), codec.FilterNone},
		{"texcoord", attr("TEXCOORD_0", gltfx.Vec2), codec.FilterExponential},
		{"position", m.Position, codec.FilterExponential},
		{"translation output", sampler(gltfx.PathTranslation).Output(), codec.FilterExponential},
		{"scale output", sampler(gltfx.PathScale).Output(), codec.FilterExponential},
		{"rotation output", sampler(gltfx.PathRotation).Output(), codec.FilterNone},
		{"sampler input", sampler(gltfx.PathTranslation).Input(), codec.FilterNone},
		{"inverse bind matrices", ibm, codec.FilterNone},
		{"unreferenced", custom, codec.FilterExponential},
		{"integer custom attribute", ids, codec.FilterNone},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, selectFilter(tc.a).filter)
		})
	}
}

func TestSelectFilter_Bits(t *testing.T) {
	m := fixture.Triangles(3)
	tangent := m.AddAttribute("TANGENT", gltfx.Vec4, make([]float32, 12))
	assert.Equal(t, octahedralBits, selectFilter(tangent).bits)
	assert.Equal(t, exponentialBits, selectFilter(m.Position).bits)
}

func TestModeOf(t *testing.T) {
	m := fixture.Triangles(6)
	assert.Equal(t, codec.ModeTriangles, modeOf(m.Indices, gltfx.UsageElementArrayBuffer))
	assert.Equal(t, codec.ModeAttributes, modeOf(m.Position, gltfx.UsageArrayBuffer))

	strip := gltfx.SetValues(m.Doc.CreateAccessor("strip"), []uint16{0, 1, 2, 3})
	m.Mesh.AddPrimitive(m.Doc.CreatePrimitive().SetMode(gltfx.ModeTriangleStrip).SetIndices(strip))
	assert.Equal(t, codec.ModeIndices, modeOf(strip, gltfx.UsageElementArrayBuffer))
}

func TestParentID(t *testing.T) {
	m := fixture.Triangles(3)
	normal := m.AddAttribute("NORMAL", gltfx.Vec3, make([]float32, 9))
	orphan := gltfx.SetValues(m.Doc.CreateAccessor("orphan"), []float32{1})
	other := gltfx.SetValues(m.Doc.CreateAccessor("other").SetElementType(gltfx.Vec3), make([]float32, 9))
	m.Mesh.AddPrimitive(m.Doc.CreatePrimitive().SetAttribute("POSITION", other))

	ids := map[gltfx.Property]int{}
	assert.Equal(t, 1, parentID(m.Position, ids))
	assert.Equal(t, 1, parentID(normal, ids))
	assert.Equal(t, 2, parentID(other, ids))
	assert.Equal(t, -1, parentID(orphan, ids))
}
