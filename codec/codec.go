// Package codec defines the call contracts of the compression kernels that
// extensions depend on. Hosts install implementations on an IO with
// RegisterDependencies, keyed by the constants below.
package codec

// Dependency keys.
const (
	MeshoptDecoderKey = "meshopt.decoder"
	MeshoptEncoderKey = "meshopt.encoder"
	DracoDecoderKey   = "draco.decoder"
	DracoEncoderKey   = "draco.encoder"
)

// MeshoptMode selects the encoding of a meshopt buffer view.
type MeshoptMode string

const (
	ModeAttributes MeshoptMode = "ATTRIBUTES"
	ModeTriangles  MeshoptMode = "TRIANGLES"
	ModeIndices    MeshoptMode = "INDICES"
)

// MeshoptFilter is the lossy pre-transform applied before encoding.
type MeshoptFilter string

const (
	FilterNone        MeshoptFilter = "NONE"
	FilterOctahedral  MeshoptFilter = "OCTAHEDRAL"
	FilterQuaternion  MeshoptFilter = "QUATERNION"
	FilterExponential MeshoptFilter = "EXPONENTIAL"
)

// MeshoptEncoder compresses glTF buffer data.
type MeshoptEncoder interface {
	// Supported reports whether an executable backend is available.
	Supported() bool
	// EncodeGltfBuffer encodes count elements of stride bytes.
	EncodeGltfBuffer(src []byte, count, stride int, mode MeshoptMode) ([]byte, error)
	// EncodeFilterOct encodes unit vectors with the octahedral filter.
	// src holds count elements of 4 floats; stride is 4 or 8.
	EncodeFilterOct(src []float32, count, stride, bits int) []byte
	// EncodeFilterQuat encodes unit quaternions; stride is 8.
	EncodeFilterQuat(src []float32, count, stride, bits int) []byte
	// EncodeFilterExp encodes floats with a shared exponent per element;
	// stride is 4 times the components per element.
	EncodeFilterExp(src []float32, count, stride, bits int) []byte
}

// MeshoptDecoder decompresses glTF buffer data.
type MeshoptDecoder interface {
	Supported() bool
	// DecodeGltfBuffer decodes src into dst, which holds count*stride bytes.
	DecodeGltfBuffer(dst []byte, count, stride int, src []byte, mode MeshoptMode, filter MeshoptFilter) error
}

// DracoMethod selects the mesh connectivity encoding.
type DracoMethod string

const (
	DracoEdgebreaker DracoMethod = "EDGEBREAKER"
	DracoSequential  DracoMethod = "SEQUENTIAL"
)

// DracoAttribute is one vertex attribute handed to or returned by a Draco
// codec. Data is tightly packed little-endian.
type DracoAttribute struct {
	Semantic      string
	ComponentType int
	Components    int
	Normalized    bool
	Data          []byte
}

// DracoMesh is an indexed triangle mesh.
type DracoMesh struct {
	Indices    []uint32
	Attributes []DracoAttribute
}

// DracoEncodeOptions tunes a Draco encode.
type DracoEncodeOptions struct {
	Method DracoMethod
	// QuantizationBits maps attribute classes (POSITION, NORMAL, COLOR,
	// TEX_COORD, GENERIC) to bit depths.
	QuantizationBits map[string]int
}

// DracoEncoder compresses a mesh. The returned ids give the unique id of
// each attribute in the encoded stream, by semantic.
type DracoEncoder interface {
	Supported() bool
	Encode(mesh DracoMesh, opts DracoEncodeOptions) (data []byte, ids map[string]int, err error)
}

// DracoDecoder decompresses a mesh. ids maps semantics to the unique ids
// found in the stream.
type DracoDecoder interface {
	Supported() bool
	Decode(data []byte, ids map[string]int) (DracoMesh, error)
}
