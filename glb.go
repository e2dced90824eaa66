package gltfx

import (
	"encoding/binary"

	"github.com/cockroachdb/errors"
)

const (
	glbMagic      = 0x46546C67 // "glTF"
	glbVersion    = 2
	glbHeaderSize = 12
	chunkJSON     = 0x4E4F534A // "JSON"
	chunkBIN      = 0x004E4942 // "BIN\0"
)

// EncodeGLB wraps glTF JSON and an optional binary chunk into a GLB
// container. The JSON chunk is padded with spaces, the binary chunk with
// zeros.
func EncodeGLB(jsonData, bin []byte) []byte {
	jsonChunk := padWith(jsonData, ' ')
	total := glbHeaderSize + 8 + len(jsonChunk)
	var binChunk []byte
	if len(bin) > 0 {
		binChunk = padWith(bin, 0)
		total += 8 + len(binChunk)
	}

	out := make([]byte, 0, total)
	out = binary.LittleEndian.AppendUint32(out, glbMagic)
	out = binary.LittleEndian.AppendUint32(out, glbVersion)
	out = binary.LittleEndian.AppendUint32(out, uint32(total))
	out = binary.LittleEndian.AppendUint32(out, uint32(len(jsonChunk)))
	out = binary.LittleEndian.AppendUint32(out, chunkJSON)
	out = append(out, jsonChunk...)
	if binChunk != nil {
		out = binary.LittleEndian.AppendUint32(out, uint32(len(binChunk)))
		out = binary.LittleEndian.AppendUint32(out, chunkBIN)
		out = append(out, binChunk...)
	}
	return out
}

// DecodeGLB splits a GLB container into its JSON and binary chunks. bin is
// nil when the container has no binary chunk.
func DecodeGLB(data []byte) (jsonData, bin []byte, err error) {
	if len(data) < glbHeaderSize {
		return nil, nil, errors.Wrap(ErrInvalidGLB, "truncated header")
	}
	if binary.LittleEndian.Uint32(data) != glbMagic {
		return nil, nil, errors.Wrap(ErrInvalidGLB, "bad magic")
	}
	if v := binary.LittleEndian.Uint32(data[4:]); v != glbVersion {
		return nil, nil, errors.Wrapf(ErrInvalidGLB, "unsupported version %d", v)
	}
	length := int(binary.LittleEndian.Uint32(data[8:]))
	if length > len(data) {
		return nil, nil, errors.Wrapf(ErrInvalidGLB, "declared length %d exceeds %d bytes", length, len(data))
	}
	data = data[:length]

	off := glbHeaderSize
	for off+8 <= len(data) {
		size := int(binary.LittleEndian.Uint32(data[off:]))
		typ := binary.LittleEndian.Uint32(data[off+4:])
		off += 8
		if off+size > len(data) {
			return nil, nil, errors.Wrapf(ErrInvalidGLB, "chunk of %d bytes overruns container", size)
		}
		chunk := data[off : off+size]
		switch {
		case typ == chunkJSON && jsonData == nil:
			jsonData = chunk
		case typ == chunkBIN && bin == nil:
			if jsonData == nil {
				return nil, nil, errors.Wrap(ErrInvalidGLB, "binary chunk before JSON chunk")
			}
			bin = chunk
		}
		off += size
	}
	if jsonData == nil {
		return nil, nil, errors.Wrap(ErrInvalidGLB, "missing JSON chunk")
	}
	return jsonData, bin, nil
}

func padWith(b []byte, fill byte) []byte {
	n := PadNumber(len(b))
	out := make([]byte, n)
	copy(out, b)
	for i := len(b); i < n; i++ {
		out[i] = fill
	}
	return out
}
