package gltfx

// Node is an element of the scene hierarchy. Transform values are carried
// through unchanged; no transform math is performed.
type Node struct {
	propertyBase

	translation []float64
	rotation    []float64
	scale       []float64
	matrix      []float64
	weights     []float64
	camera      *int

	mesh     *Link
	skin     *Link
	children []*Link
}

func (n *Node) PropertyType() PropertyType { return PropertyNode }

func (n *Node) Translation() []float64 { return n.translation }
func (n *Node) Rotation() []float64    { return n.rotation }
func (n *Node) Scale() []float64       { return n.scale }
func (n *Node) Matrix() []float64      { return n.matrix }
func (n *Node) Weights() []float64     { return n.weights }

func (n *Node) SetTranslation(v []float64) *Node {
	n.translation = v
	return n
}

func (n *Node) SetRotation(v []float64) *Node {
	n.rotation = v
	return n
}

func (n *Node) SetScale(v []float64) *Node {
	n.scale = v
	return n
}

func (n *Node) SetMatrix(v []float64) *Node {
	n.matrix = v
	return n
}

func (n *Node) SetWeights(v []float64) *Node {
	n.weights = v
	return n
}

// Camera returns the index of the opaque camera, if any.
func (n *Node) Camera() (int, bool) {
	if n.camera == nil {
		return 0, false
	}
	return *n.camera, true
}

func (n *Node) SetCamera(index int) *Node {
	n.camera = &index
	return n
}

func (n *Node) Mesh() *Mesh { return refAs[*Mesh](n.mesh) }

func (n *Node) SetMesh(m *Mesh) *Node {
	var child Property
	if m != nil {
		child = m
	}
	n.setRef(&n.mesh, "mesh", LinkGeneric, child)
	return n
}

func (n *Node) Skin() *Skin { return refAs[*Skin](n.skin) }

func (n *Node) SetSkin(s *Skin) *Node {
	var child Property
	if s != nil {
		child = s
	}
	n.setRef(&n.skin, "skin", LinkGeneric, child)
	return n
}

func (n *Node) Children() []*Node { return refChildren[*Node](n.children) }

func (n *Node) AddChild(c *Node) *Node {
	n.addRef(&n.children, "children", c)
	return n
}

func (n *Node) RemoveChild(c *Node) *Node {
	n.removeRef(&n.children, c)
	return n
}

// Skin binds joints to a skinned mesh.
type Skin struct {
	propertyBase

	inverseBindMatrices *Link
	skeleton            *Link
	joints              []*Link
}

func (s *Skin) PropertyType() PropertyType { return PropertySkin }

func (s *Skin) InverseBindMatrices() *Accessor { return refAs[*Accessor](s.inverseBindMatrices) }

func (s *Skin) SetInverseBindMatrices(a *Accessor) *Skin {
	var child Property
	if a != nil {
		child = a
	}
	s.setRef(&s.inverseBindMatrices, "inverseBindMatrices", LinkGeneric, child)
	return s
}

func (s *Skin) Skeleton() *Node { return refAs[*Node](s.skeleton) }

func (s *Skin) SetSkeleton(n *Node) *Skin {
	var child Property
	if n != nil {
		child = n
	}
	s.setRef(&s.skeleton, "skeleton", LinkGeneric, child)
	return s
}

func (s *Skin) Joints() []*Node { return refChildren[*Node](s.joints) }

func (s *Skin) AddJoint(n *Node) *Skin {
	s.addRef(&s.joints, "joints", n)
	return s
}

func (s *Skin) RemoveJoint(n *Node) *Skin {
	s.removeRef(&s.joints, n)
	return s
}

// Scene is a set of root nodes.
type Scene struct {
	propertyBase
	children []*Link
}

func (s *Scene) PropertyType() PropertyType { return PropertyScene }

func (s *Scene) Children() []*Node { return refChildren[*Node](s.children) }

func (s *Scene) AddChild(n *Node) *Scene {
	s.addRef(&s.children, "children", n)
	return s
}

func (s *Scene) RemoveChild(n *Node) *Scene {
	s.removeRef(&s.children, n)
	return s
}
