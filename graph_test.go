package gltfx_test

import (
	"testing"

	"github.com/cockroachdb/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/reoring/gltfx"
	"github.com/reoring/gltfx/internal/fixture"
)

func TestGraph_ParentLinks(t *testing.T) {
	m := fixture.Triangles(3)
	g := m.Doc.Graph()

	links := g.ListParentLinks(m.Position)
	require.Len(t, links, 1)
	assert.Equal(t, "POSITION", links[0].Name())
	assert.Equal(t, gltfx.LinkAttribute, links[0].Kind())
	assert.Same(t, m.Primitive, links[0].Parent())

	links = g.ListParentLinks(m.Indices)
	require.Len(t, links, 1)
	assert.Equal(t, gltfx.LinkIndex, links[0].Kind())
	assert.Equal(t, "index", links[0].Kind().String())
}

func TestGraph_ListParentsDistinct(t *testing.T) {
	m := fixture.Triangles(3)
	m.Primitive.SetAttribute("TEXCOORD_0", m.Position)
	other := m.Doc.CreatePrimitive().SetAttribute("POSITION", m.Position)

	assert.Len(t, m.Doc.Graph().ListParentLinks(m.Position), 3)
	assert.Equal(t, []gltfx.Property{m.Primitive, other}, m.Position.ListParents())
}

func TestGraph_SetAttributeReplaces(t *testing.T) {
	m := fixture.Triangles(3)
	next := gltfx.SetValues(m.Doc.CreateAccessor("next").SetElementType(gltfx.Vec3), fixture.Positions(3))
	m.Primitive.SetAttribute("POSITION", next)

	assert.Empty(t, m.Position.ListParents())
	assert.Same(t, next, m.Primitive.Attribute("POSITION"))
	assert.Equal(t, []string{"POSITION"}, m.Primitive.Semantics())

	m.Primitive.SetAttribute("POSITION", nil)
	assert.Nil(t, m.Primitive.Attribute("POSITION"))
	assert.Empty(t, next.ListParents())
}

func TestGraph_Swap(t *testing.T) {
	m := fixture.Triangles(3)
	other := m.Doc.CreatePrimitive().SetAttribute("POSITION", m.Position)
	next := gltfx.SetValues(m.Doc.CreateAccessor("next").SetElementType(gltfx.Vec3), fixture.Positions(3))

	m.Primitive.Swap(m.Position, next)
	assert.Same(t, next, m.Primitive.Attribute("POSITION"))
	assert.Same(t, m.Position, other.Attribute("POSITION"))

	m.Doc.Graph().Swap(m.Position, next)
	assert.Same(t, next, other.Attribute("POSITION"))
	assert.Empty(t, m.Position.ListParents())
	assert.Len(t, next.ListParents(), 2)
}

func TestGraph_Dispose(t *testing.T) {
	m := fixture.Triangles(3)

	err := m.Position.Dispose()
	require.Error(t, err)
	assert.True(t, errors.Is(err, gltfx.ErrInvariantViolation))
	assert.False(t, m.Position.IsDisposed())

	m.Primitive.SetAttribute("POSITION", nil)
	require.NoError(t, m.Position.Dispose())
	assert.True(t, m.Position.IsDisposed())
	assert.Equal(t, -1, m.Doc.Root().IndexOf(m.Position))
	assert.NotContains(t, m.Doc.Root().ListAccessors(), m.Position)
	require.NoError(t, m.Position.Dispose())
}

func TestGraph_DisposeReleasesChildren(t *testing.T) {
	m := fixture.Triangles(3)
	m.Mesh.RemovePrimitive(m.Primitive)
	require.NoError(t, m.Primitive.Dispose())

	assert.Empty(t, m.Position.ListParents())
	assert.Empty(t, m.Indices.ListParents())
	assert.Empty(t, m.Doc.Graph().ListChildLinks(m.Primitive))
	for _, l := range m.Doc.Graph().ListParentLinks(m.Buffer) {
		assert.False(t, l.IsDisposed())
	}
}

func TestRoot_IndexOf(t *testing.T) {
	m := fixture.Triangles(3)
	a := m.Doc.CreateAccessor("extra")
	root := m.Doc.Root()

	assert.Equal(t, 0, root.IndexOf(m.Position))
	assert.Equal(t, 1, root.IndexOf(m.Indices))
	assert.Equal(t, 2, root.IndexOf(a))
	assert.Equal(t, 0, root.IndexOf(m.Node))
	assert.Equal(t, -1, root.IndexOf(m.Primitive))
}

func TestRoot_IndexOfAfterDispose(t *testing.T) {
	doc := gltfx.NewDocument().SetLogger(fixture.Logger())
	nodes := make([]*gltfx.Node, 200)
	for i := range nodes {
		nodes[i] = doc.CreateNode("")
	}
	root := doc.Root()
	for _, i := range []int{150, 0, 75} {
		require.NoError(t, nodes[i].Dispose())
	}

	listed := root.ListNodes()
	require.Len(t, listed, 197)
	for i, n := range listed {
		assert.Equal(t, i, root.IndexOf(n))
	}
	assert.Equal(t, -1, root.IndexOf(nodes[75]))
	assert.Equal(t, 0, root.IndexOf(nodes[1]))
	assert.Equal(t, 196, root.IndexOf(nodes[199]))

	n := doc.CreateNode("late")
	assert.Equal(t, 197, root.IndexOf(n))
}

func TestRoot_DisposeDefaultScene(t *testing.T) {
	m := fixture.Triangles(3)
	scene := m.Doc.Root().DefaultScene()
	require.NotNil(t, scene)
	require.NoError(t, scene.Dispose())
	assert.Nil(t, m.Doc.Root().DefaultScene())
}
