package refcodec

import (
	"encoding/binary"

	"github.com/cockroachdb/errors"

	"github.com/reoring/gltfx/codec"
)

// Stream layout: one mode tag byte, uvarint count, uvarint stride, then a
// zstd frame holding the transformed elements.
const (
	tagAttributes = 0xA0
	tagTriangles  = 0xE1
	tagIndices    = 0xD1
)

func modeTag(mode codec.MeshoptMode) (byte, error) {
	switch mode {
	case codec.ModeAttributes:
		return tagAttributes, nil
	case codec.ModeTriangles:
		return tagTriangles, nil
	case codec.ModeIndices:
		return tagIndices, nil
	}
	return 0, errors.Newf("unknown mode %q", mode)
}

func (c *Codec) encodeBuffer(src []byte, count, stride int, mode codec.MeshoptMode) ([]byte, error) {
	tag, err := modeTag(mode)
	if err != nil {
		return nil, err
	}
	if stride <= 0 || len(src) != count*stride {
		return nil, errors.Newf("source holds %d bytes, want %d elements of %d", len(src), count, stride)
	}
	if tag != tagAttributes {
		if stride != 2 && stride != 4 {
			return nil, errors.Newf("index stride %d, want 2 or 4", stride)
		}
		if tag == tagTriangles && count%3 != 0 {
			return nil, errors.Newf("triangle index count %d is not a multiple of 3", count)
		}
	}

	buf := make([]byte, len(src))
	copy(buf, src)
	if tag != tagAttributes {
		deltaIndices(buf, stride)
	}
	transposed := transpose(buf, count, stride)
	if tag == tagAttributes {
		deltaLanes(transposed, count, stride)
	}

	out := []byte{tag}
	out = binary.AppendUvarint(out, uint64(count))
	out = binary.AppendUvarint(out, uint64(stride))
	return c.enc.EncodeAll(transposed, out), nil
}

func (c *Codec) decodeBuffer(dst []byte, count, stride int, src []byte, mode codec.MeshoptMode) error {
	tag, err := modeTag(mode)
	if err != nil {
		return err
	}
	if len(dst) != count*stride {
		return errors.Newf("destination holds %d bytes, want %d", len(dst), count*stride)
	}
	if len(src) == 0 || src[0] != tag {
		return errors.Newf("stream is not %s data", mode)
	}
	rest := src[1:]
	n, k := binary.Uvarint(rest)
	if k <= 0 || int(n) != count {
		return errors.Newf("stream count %d, want %d", n, count)
	}
	rest = rest[k:]
	s, k := binary.Uvarint(rest)
	if k <= 0 || int(s) != stride {
		return errors.Newf("stream stride %d, want %d", s, stride)
	}
	rest = rest[k:]

	raw, err := c.dec.DecodeAll(rest, make([]byte, 0, len(dst)))
	if err != nil {
		return errors.Wrap(err, "zstd")
	}
	if len(raw) != len(dst) {
		return errors.Newf("decoded %d bytes, want %d", len(raw), len(dst))
	}
	if tag == tagAttributes {
		undeltaLanes(raw, count, stride)
	}
	untranspose(dst, raw, count, stride)
	if tag != tagAttributes {
		undeltaIndices(dst, stride)
	}
	return nil
}

// transpose groups byte k of every element together.
func transpose(src []byte, count, stride int) []byte {
	out := make([]byte, len(src))
	for i := range count {
		for k := range stride {
			out[k*count+i] = src[i*stride+k]
		}
	}
	return out
}

func untranspose(dst, src []byte, count, stride int) {
	for i := range count {
		for k := range stride {
			dst[i*stride+k] = src[k*count+i]
		}
	}
}

// deltaLanes replaces every byte of a transposed lane by its difference
// with the previous byte of the same lane.
func deltaLanes(b []byte, count, stride int) {
	for k := range stride {
		lane := b[k*count : (k+1)*count]
		for i := len(lane) - 1; i > 0; i-- {
			lane[i] -= lane[i-1]
		}
	}
}

func undeltaLanes(b []byte, count, stride int) {
	for k := range stride {
		lane := b[k*count : (k+1)*count]
		for i := 1; i < len(lane); i++ {
			lane[i] += lane[i-1]
		}
	}
}

// deltaIndices stores each index as the wrapping difference with the
// previous one.
func deltaIndices(b []byte, width int) {
	n := len(b) / width
	for i := n - 1; i > 0; i-- {
		cur, prev := index(b, i, width), index(b, i-1, width)
		putIndex(b, i, width, cur-prev)
	}
}

func undeltaIndices(b []byte, width int) {
	n := len(b) / width
	for i := 1; i < n; i++ {
		putIndex(b, i, width, index(b, i, width)+index(b, i-1, width))
	}
}

func index(b []byte, i, width int) uint32 {
	if width == 2 {
		return uint32(binary.LittleEndian.Uint16(b[i*2:]))
	}
	return binary.LittleEndian.Uint32(b[i*4:])
}

func putIndex(b []byte, i, width int, v uint32) {
	if width == 2 {
		binary.LittleEndian.PutUint16(b[i*2:], uint16(v))
		return
	}
	binary.LittleEndian.PutUint32(b[i*4:], v)
}
