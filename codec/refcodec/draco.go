package refcodec

import (
	"encoding/binary"

	"github.com/cockroachdb/errors"

	"github.com/reoring/gltfx/codec"
)

var dracoMagic = []byte("GXDR")

// Draco implements codec.DracoEncoder and codec.DracoDecoder with a
// lossless mesh stream. Attributes are identified by unique id, as in
// Draco; semantics travel in the glTF payload.
type Draco struct {
	c *Codec
}

var (
	_ codec.DracoEncoder = (*Draco)(nil)
	_ codec.DracoDecoder = (*Draco)(nil)
)

// NewDraco returns a mesh codec sharing c's zstd state.
func NewDraco(c *Codec) *Draco { return &Draco{c: c} }

func (d *Draco) Supported() bool { return d != nil && d.c.Supported() }

func (d *Draco) Encode(mesh codec.DracoMesh, opts codec.DracoEncodeOptions) ([]byte, map[string]int, error) {
	if len(mesh.Indices)%3 != 0 {
		return nil, nil, errors.Newf("index count %d is not a multiple of 3", len(mesh.Indices))
	}
	method := byte(0)
	if opts.Method == codec.DracoSequential {
		method = 1
	}
	body := []byte{method}
	body = binary.AppendUvarint(body, uint64(len(mesh.Indices)))
	prev := int64(0)
	for _, idx := range mesh.Indices {
		body = binary.AppendVarint(body, int64(idx)-prev)
		prev = int64(idx)
	}

	ids := make(map[string]int, len(mesh.Attributes))
	body = binary.AppendUvarint(body, uint64(len(mesh.Attributes)))
	for id, a := range mesh.Attributes {
		ids[a.Semantic] = id
		body = binary.AppendUvarint(body, uint64(id))
		body = binary.AppendUvarint(body, uint64(a.ComponentType))
		body = binary.AppendUvarint(body, uint64(a.Components))
		norm := byte(0)
		if a.Normalized {
			norm = 1
		}
		body = append(body, norm)
		body = binary.AppendUvarint(body, uint64(len(a.Data)))
		body = append(body, a.Data...)
	}
	return d.c.enc.EncodeAll(body, append([]byte(nil), dracoMagic...)), ids, nil
}

func (d *Draco) Decode(data []byte, ids map[string]int) (codec.DracoMesh, error) {
	var mesh codec.DracoMesh
	if len(data) < len(dracoMagic) || string(data[:len(dracoMagic)]) != string(dracoMagic) {
		return mesh, errors.New("not a mesh stream")
	}
	body, err := d.c.dec.DecodeAll(data[len(dracoMagic):], nil)
	if err != nil {
		return mesh, errors.Wrap(err, "zstd")
	}
	if len(body) == 0 {
		return mesh, errors.New("empty mesh stream")
	}
	r := &byteReader{b: body[1:]}

	n := r.uvarint()
	mesh.Indices = make([]uint32, 0, min(n, uint64(len(body))))
	prev := int64(0)
	for range n {
		if r.err != nil {
			break
		}
		prev += r.varint()
		mesh.Indices = append(mesh.Indices, uint32(prev))
	}

	semantics := make(map[int]string, len(ids))
	for s, id := range ids {
		semantics[id] = s
	}
	count := r.uvarint()
	for range count {
		if r.err != nil {
			break
		}
		id := int(r.uvarint())
		a := codec.DracoAttribute{
			ComponentType: int(r.uvarint()),
			Components:    int(r.uvarint()),
			Normalized:    r.u8() == 1,
		}
		a.Data = r.bytes(int(r.uvarint()))
		if s, ok := semantics[id]; ok {
			a.Semantic = s
			mesh.Attributes = append(mesh.Attributes, a)
		}
	}
	if r.err != nil {
		return codec.DracoMesh{}, r.err
	}
	return mesh, nil
}

// byteReader reads a mesh stream, latching the first error.
type byteReader struct {
	b   []byte
	err error
}

func (r *byteReader) fail() {
	if r.err == nil {
		r.err = errors.New("truncated mesh stream")
	}
	r.b = nil
}

func (r *byteReader) uvarint() uint64 {
	v, n := binary.Uvarint(r.b)
	if n <= 0 {
		r.fail()
		return 0
	}
	r.b = r.b[n:]
	return v
}

func (r *byteReader) varint() int64 {
	v, n := binary.Varint(r.b)
	if n <= 0 {
		r.fail()
		return 0
	}
	r.b = r.b[n:]
	return v
}

func (r *byteReader) u8() byte {
	if len(r.b) == 0 {
		r.fail()
		return 0
	}
	v := r.b[0]
	r.b = r.b[1:]
	return v
}

func (r *byteReader) bytes(n int) []byte {
	if n < 0 || n > len(r.b) {
		r.fail()
		return nil
	}
	v := append([]byte(nil), r.b[:n]...)
	r.b = r.b[n:]
	return v
}
