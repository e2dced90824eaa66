package meshopt

import (
	"github.com/reoring/gltfx/codec"
)

// Name is the glTF extension name.
const Name = "EXT_meshopt_compression"

// Method selects the pre-processing applied before lossless encoding.
type Method string

const (
	// MethodQuantize encodes data as is. Pair it with a quantization
	// pass run before writing.
	MethodQuantize Method = "QUANTIZE"
	// MethodFilter applies lossy per-semantic filters. Output is larger
	// before supercompression and smaller after it.
	MethodFilter Method = "FILTER"
)

// Filter bit depths.
const (
	octahedralBits  = 8
	exponentialBits = 12
)

// bufferViewExtension is the payload stored on a compressed buffer view.
type bufferViewExtension struct {
	Buffer     int                 `json:"buffer"`
	ByteOffset int                 `json:"byteOffset,omitempty"`
	ByteLength int                 `json:"byteLength"`
	ByteStride int                 `json:"byteStride"`
	Count      int                 `json:"count"`
	Mode       codec.MeshoptMode   `json:"mode"`
	Filter     codec.MeshoptFilter `json:"filter,omitempty"`
}

// bufferExtension marks a fallback buffer.
type bufferExtension struct {
	Fallback bool `json:"fallback,omitempty"`
}
