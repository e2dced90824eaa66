// Package wire holds the glTF 2.0 JSON definitions exchanged between the
// reader and writer pipelines and their extensions.
//
// Only the parts of the schema that the property graph models are typed.
// Materials, textures, samplers and cameras are kept as raw JSON.
package wire

import (
	json "github.com/goccy/go-json"
)

// Component types.
const (
	ComponentByte          = 5120
	ComponentUnsignedByte  = 5121
	ComponentShort         = 5122
	ComponentUnsignedShort = 5123
	ComponentUnsignedInt   = 5125
	ComponentFloat         = 5126
)

// Buffer view targets.
const (
	TargetArrayBuffer        = 34962
	TargetElementArrayBuffer = 34963
)

// Extensions maps extension names to their raw JSON payloads.
type Extensions map[string]json.RawMessage

type Asset struct {
	Version    string          `json:"version"`
	Generator  string          `json:"generator,omitempty"`
	Copyright  string          `json:"copyright,omitempty"`
	MinVersion string          `json:"minVersion,omitempty"`
	Extensions Extensions      `json:"extensions,omitempty"`
	Extras     json.RawMessage `json:"extras,omitempty"`
}

type Buffer struct {
	Name       string          `json:"name,omitempty"`
	URI        string          `json:"uri,omitempty"`
	ByteLength int             `json:"byteLength"`
	Extensions Extensions      `json:"extensions,omitempty"`
	Extras     json.RawMessage `json:"extras,omitempty"`
}

type BufferView struct {
	Name       string          `json:"name,omitempty"`
	Buffer     int             `json:"buffer"`
	ByteOffset int             `json:"byteOffset,omitempty"`
	ByteLength int             `json:"byteLength"`
	ByteStride int             `json:"byteStride,omitempty"`
	Target     int             `json:"target,omitempty"`
	Extensions Extensions      `json:"extensions,omitempty"`
	Extras     json.RawMessage `json:"extras,omitempty"`
}

type Accessor struct {
	Name          string          `json:"name,omitempty"`
	BufferView    *int            `json:"bufferView,omitempty"`
	ByteOffset    int             `json:"byteOffset,omitempty"`
	ComponentType int             `json:"componentType"`
	Normalized    bool            `json:"normalized,omitempty"`
	Count         int             `json:"count"`
	Type          string          `json:"type"`
	Max           []float64       `json:"max,omitempty"`
	Min           []float64       `json:"min,omitempty"`
	Sparse        *Sparse         `json:"sparse,omitempty"`
	Extensions    Extensions      `json:"extensions,omitempty"`
	Extras        json.RawMessage `json:"extras,omitempty"`
}

type Sparse struct {
	Count   int           `json:"count"`
	Indices SparseIndices `json:"indices"`
	Values  SparseValues  `json:"values"`
}

type SparseIndices struct {
	BufferView    int `json:"bufferView"`
	ByteOffset    int `json:"byteOffset,omitempty"`
	ComponentType int `json:"componentType"`
}

type SparseValues struct {
	BufferView int `json:"bufferView"`
	ByteOffset int `json:"byteOffset,omitempty"`
}

type Primitive struct {
	Attributes map[string]int   `json:"attributes"`
	Indices    *int             `json:"indices,omitempty"`
	Material   *int             `json:"material,omitempty"`
	Mode       *int             `json:"mode,omitempty"`
	Targets    []map[string]int `json:"targets,omitempty"`
	Extensions Extensions       `json:"extensions,omitempty"`
	Extras     json.RawMessage  `json:"extras,omitempty"`
}

type Mesh struct {
	Name       string          `json:"name,omitempty"`
	Primitives []*Primitive    `json:"primitives"`
	Weights    []float64       `json:"weights,omitempty"`
	Extensions Extensions      `json:"extensions,omitempty"`
	Extras     json.RawMessage `json:"extras,omitempty"`
}

type Node struct {
	Name        string          `json:"name,omitempty"`
	Camera      *int            `json:"camera,omitempty"`
	Children    []int           `json:"children,omitempty"`
	Skin        *int            `json:"skin,omitempty"`
	Matrix      []float64       `json:"matrix,omitempty"`
	Mesh        *int            `json:"mesh,omitempty"`
	Rotation    []float64       `json:"rotation,omitempty"`
	Scale       []float64       `json:"scale,omitempty"`
	Translation []float64       `json:"translation,omitempty"`
	Weights     []float64       `json:"weights,omitempty"`
	Extensions  Extensions      `json:"extensions,omitempty"`
	Extras      json.RawMessage `json:"extras,omitempty"`
}

type Skin struct {
	Name                string          `json:"name,omitempty"`
	InverseBindMatrices *int            `json:"inverseBindMatrices,omitempty"`
	Skeleton            *int            `json:"skeleton,omitempty"`
	Joints              []int           `json:"joints"`
	Extensions          Extensions      `json:"extensions,omitempty"`
	Extras              json.RawMessage `json:"extras,omitempty"`
}

type Animation struct {
	Name       string              `json:"name,omitempty"`
	Channels   []*AnimationChannel `json:"channels"`
	Samplers   []*AnimationSampler `json:"samplers"`
	Extensions Extensions          `json:"extensions,omitempty"`
	Extras     json.RawMessage     `json:"extras,omitempty"`
}

type AnimationChannel struct {
	Sampler    int                    `json:"sampler"`
	Target     AnimationChannelTarget `json:"target"`
	Extensions Extensions             `json:"extensions,omitempty"`
	Extras     json.RawMessage        `json:"extras,omitempty"`
}

type AnimationChannelTarget struct {
	Node       *int            `json:"node,omitempty"`
	Path       string          `json:"path"`
	Extensions Extensions      `json:"extensions,omitempty"`
	Extras     json.RawMessage `json:"extras,omitempty"`
}

type AnimationSampler struct {
	Input         int             `json:"input"`
	Interpolation string          `json:"interpolation,omitempty"`
	Output        int             `json:"output"`
	Extensions    Extensions      `json:"extensions,omitempty"`
	Extras        json.RawMessage `json:"extras,omitempty"`
}

type Scene struct {
	Name       string          `json:"name,omitempty"`
	Nodes      []int           `json:"nodes,omitempty"`
	Extensions Extensions      `json:"extensions,omitempty"`
	Extras     json.RawMessage `json:"extras,omitempty"`
}

type Image struct {
	Name       string          `json:"name,omitempty"`
	URI        string          `json:"uri,omitempty"`
	MimeType   string          `json:"mimeType,omitempty"`
	BufferView *int            `json:"bufferView,omitempty"`
	Extensions Extensions      `json:"extensions,omitempty"`
	Extras     json.RawMessage `json:"extras,omitempty"`
}

// GLTF is the top-level glTF JSON object.
type GLTF struct {
	Asset              Asset             `json:"asset"`
	ExtensionsUsed     []string          `json:"extensionsUsed,omitempty"`
	ExtensionsRequired []string          `json:"extensionsRequired,omitempty"`
	Accessors          []*Accessor       `json:"accessors,omitempty"`
	Animations         []*Animation      `json:"animations,omitempty"`
	Buffers            []*Buffer         `json:"buffers,omitempty"`
	BufferViews        []*BufferView     `json:"bufferViews,omitempty"`
	Cameras            []json.RawMessage `json:"cameras,omitempty"`
	Images             []*Image          `json:"images,omitempty"`
	Materials          []json.RawMessage `json:"materials,omitempty"`
	Meshes             []*Mesh           `json:"meshes,omitempty"`
	Nodes              []*Node           `json:"nodes,omitempty"`
	Samplers           []json.RawMessage `json:"samplers,omitempty"`
	Scene              *int              `json:"scene,omitempty"`
	Scenes             []*Scene          `json:"scenes,omitempty"`
	Skins              []*Skin           `json:"skins,omitempty"`
	Textures           []json.RawMessage `json:"textures,omitempty"`
	Extensions         Extensions        `json:"extensions,omitempty"`
	Extras             json.RawMessage   `json:"extras,omitempty"`
}

// Int returns a pointer to i, for optional index fields.
func Int(i int) *int { return &i }
