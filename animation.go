package gltfx

// Animation target paths.
const (
	PathTranslation = "translation"
	PathRotation    = "rotation"
	PathScale       = "scale"
	PathWeights     = "weights"
)

// Animation groups channels and the samplers they read from.
type Animation struct {
	propertyBase
	channels []*Link
	samplers []*Link
}

func (a *Animation) PropertyType() PropertyType { return PropertyAnimation }

func (a *Animation) Channels() []*AnimationChannel {
	return refChildren[*AnimationChannel](a.channels)
}

func (a *Animation) AddChannel(c *AnimationChannel) *Animation {
	a.addRef(&a.channels, "channels", c)
	return a
}

func (a *Animation) RemoveChannel(c *AnimationChannel) *Animation {
	a.removeRef(&a.channels, c)
	return a
}

func (a *Animation) Samplers() []*AnimationSampler {
	return refChildren[*AnimationSampler](a.samplers)
}

func (a *Animation) AddSampler(s *AnimationSampler) *Animation {
	a.addRef(&a.samplers, "samplers", s)
	return a
}

func (a *Animation) RemoveSampler(s *AnimationSampler) *Animation {
	a.removeRef(&a.samplers, s)
	return a
}

// AnimationChannel drives one property of a node from a sampler.
type AnimationChannel struct {
	propertyBase
	targetPath string
	targetNode *Link
	sampler    *Link
}

func (c *AnimationChannel) PropertyType() PropertyType { return PropertyAnimationChannel }

// TargetPath is one of the Path* constants.
func (c *AnimationChannel) TargetPath() string { return c.targetPath }

func (c *AnimationChannel) SetTargetPath(path string) *AnimationChannel {
	c.targetPath = path
	return c
}

func (c *AnimationChannel) TargetNode() *Node { return refAs[*Node](c.targetNode) }

func (c *AnimationChannel) SetTargetNode(n *Node) *AnimationChannel {
	var child Property
	if n != nil {
		child = n
	}
	c.setRef(&c.targetNode, "targetNode", LinkGeneric, child)
	return c
}

func (c *AnimationChannel) Sampler() *AnimationSampler { return refAs[*AnimationSampler](c.sampler) }

func (c *AnimationChannel) SetSampler(s *AnimationSampler) *AnimationChannel {
	var child Property
	if s != nil {
		child = s
	}
	c.setRef(&c.sampler, "sampler", LinkGeneric, child)
	return c
}

// AnimationSampler pairs keyframe times (input) with values (output).
type AnimationSampler struct {
	propertyBase
	interpolation string
	input         *Link
	output        *Link
}

func (s *AnimationSampler) PropertyType() PropertyType { return PropertyAnimationSampler }

// Interpolation is LINEAR, STEP or CUBICSPLINE. Empty means LINEAR.
func (s *AnimationSampler) Interpolation() string { return s.interpolation }

func (s *AnimationSampler) SetInterpolation(v string) *AnimationSampler {
	s.interpolation = v
	return s
}

func (s *AnimationSampler) Input() *Accessor { return refAs[*Accessor](s.input) }

func (s *AnimationSampler) SetInput(a *Accessor) *AnimationSampler {
	var child Property
	if a != nil {
		child = a
	}
	s.setRef(&s.input, "input", LinkGeneric, child)
	return s
}

func (s *AnimationSampler) Output() *Accessor { return refAs[*Accessor](s.output) }

func (s *AnimationSampler) SetOutput(a *Accessor) *AnimationSampler {
	var child Property
	if a != nil {
		child = a
	}
	s.setRef(&s.output, "output", LinkGeneric, child)
	return s
}
