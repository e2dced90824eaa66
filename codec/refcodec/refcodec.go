// Package refcodec is a pure Go implementation of the codec contracts. The
// meshopt filters follow the reference bit layouts; the lossless stage is a
// byte transpose with per-lane deltas compressed with zstd, so streams are
// only readable by this package. It lets documents round trip without a
// native encoder.
package refcodec

import (
	"github.com/cockroachdb/errors"
	"github.com/klauspost/compress/zstd"

	"github.com/reoring/gltfx/codec"
)

// Codec implements codec.MeshoptEncoder and codec.MeshoptDecoder. It is
// safe for concurrent use.
type Codec struct {
	enc *zstd.Encoder
	dec *zstd.Decoder
}

var (
	_ codec.MeshoptEncoder = (*Codec)(nil)
	_ codec.MeshoptDecoder = (*Codec)(nil)
)

// New returns a codec using the default zstd level.
func New() (*Codec, error) {
	return NewWithLevel(zstd.SpeedDefault)
}

// NewWithLevel returns a codec using the given zstd level.
func NewWithLevel(level zstd.EncoderLevel) (*Codec, error) {
	enc, err := zstd.NewWriter(nil, zstd.WithEncoderLevel(level))
	if err != nil {
		return nil, errors.Wrap(err, "zstd encoder")
	}
	dec, err := zstd.NewReader(nil)
	if err != nil {
		return nil, errors.Wrap(err, "zstd decoder")
	}
	return &Codec{enc: enc, dec: dec}, nil
}

// Close releases the zstd decoder.
func (c *Codec) Close() {
	c.dec.Close()
}

func (c *Codec) Supported() bool { return c != nil && c.enc != nil && c.dec != nil }

func (c *Codec) EncodeGltfBuffer(src []byte, count, stride int, mode codec.MeshoptMode) ([]byte, error) {
	return c.encodeBuffer(src, count, stride, mode)
}

func (c *Codec) DecodeGltfBuffer(dst []byte, count, stride int, src []byte, mode codec.MeshoptMode, filter codec.MeshoptFilter) error {
	if err := c.decodeBuffer(dst, count, stride, src, mode); err != nil {
		return err
	}
	return applyFilter(dst, count, stride, filter)
}

func (c *Codec) EncodeFilterOct(src []float32, count, stride, bits int) []byte {
	return encodeFilterOct(src, count, stride, bits)
}

func (c *Codec) EncodeFilterQuat(src []float32, count, stride, bits int) []byte {
	return encodeFilterQuat(src, count, bits)
}

func (c *Codec) EncodeFilterExp(src []float32, count, stride, bits int) []byte {
	return encodeFilterExp(src, count, stride, bits)
}
