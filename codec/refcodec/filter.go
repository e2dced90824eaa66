package refcodec

import (
	"encoding/binary"
	"math"

	"github.com/chewxy/math32"
	"github.com/cockroachdb/errors"

	"github.com/reoring/gltfx/codec"
)

// quantizeSnorm maps v in [-1, 1] to a signed integer of n bits.
func quantizeSnorm(v float32, n int) int {
	scale := float32(int(1)<<(n-1) - 1)
	round := float32(0.5)
	if v < 0 {
		round = -0.5
	}
	v = max(-1, min(1, v))
	return int(v*scale + round)
}

func roundToInt(v float32) int {
	if v >= 0 {
		return int(v + 0.5)
	}
	return int(v - 0.5)
}

func sign(v float32) float32 {
	if v >= 0 {
		return 1
	}
	return -1
}

func encodeFilterOct(src []float32, count, stride, bits int) []byte {
	out := make([]byte, count*stride)
	wbits := stride * 2
	for i := range count {
		n := src[i*4 : i*4+4]
		nx, ny, nz, nw := n[0], n[1], n[2], n[3]
		nl := math32.Abs(nx) + math32.Abs(ny) + math32.Abs(nz)
		var ns float32
		if nl != 0 {
			ns = 1 / nl
		}
		nx *= ns
		ny *= ns
		u, v := nx, ny
		if nz < 0 {
			u = (1 - math32.Abs(ny)) * sign(nx)
			v = (1 - math32.Abs(nx)) * sign(ny)
		}
		vals := [4]int{
			quantizeSnorm(u, bits),
			quantizeSnorm(v, bits),
			quantizeSnorm(1, bits),
			quantizeSnorm(nw, wbits),
		}
		for k, q := range vals {
			if stride == 4 {
				out[i*4+k] = byte(int8(q))
			} else {
				binary.LittleEndian.PutUint16(out[i*8+k*2:], uint16(int16(q)))
			}
		}
	}
	return out
}

func decodeFilterOct(data []byte, count, stride int) {
	width := stride / 4
	maxv := float32(int(1)<<(width*8-1) - 1)
	get := func(i int) float32 {
		if width == 1 {
			return float32(int8(data[i]))
		}
		return float32(int16(binary.LittleEndian.Uint16(data[i*2:])))
	}
	put := func(i, v int) {
		if width == 1 {
			data[i] = byte(int8(v))
			return
		}
		binary.LittleEndian.PutUint16(data[i*2:], uint16(int16(v)))
	}
	for i := 0; i < count*4; i += 4 {
		x := get(i)
		y := get(i + 1)
		z := get(i+2) - math32.Abs(x) - math32.Abs(y)
		t := min(z, 0)
		if x >= 0 {
			x += t
		} else {
			x -= t
		}
		if y >= 0 {
			y += t
		} else {
			y -= t
		}
		l := math32.Sqrt(x*x + y*y + z*z)
		s := maxv / l
		put(i, roundToInt(x*s))
		put(i+1, roundToInt(y*s))
		put(i+2, roundToInt(z*s))
	}
}

func encodeFilterQuat(src []float32, count, bits int) []byte {
	out := make([]byte, count*8)
	scaler := math32.Sqrt(2)
	for i := range count {
		q := src[i*4 : i*4+4]
		qc := 0
		for k := 1; k < 4; k++ {
			if math32.Abs(q[k]) > math32.Abs(q[qc]) {
				qc = k
			}
		}
		s := float32(1)
		if q[qc] < 0 {
			s = -1
		}
		d := [4]int{
			quantizeSnorm(q[(qc+1)&3]*scaler*s, bits),
			quantizeSnorm(q[(qc+2)&3]*scaler*s, bits),
			quantizeSnorm(q[(qc+3)&3]*scaler*s, bits),
			(quantizeSnorm(1, bits) &^ 3) | qc,
		}
		for k, v := range d {
			binary.LittleEndian.PutUint16(out[i*8+k*2:], uint16(int16(v)))
		}
	}
	return out
}

func decodeFilterQuat(data []byte, count int) {
	scale := 1 / math32.Sqrt(2)
	for i := range count {
		e := data[i*8 : i*8+8]
		get := func(k int) int { return int(int16(binary.LittleEndian.Uint16(e[k*2:]))) }
		w3 := get(3)
		ss := scale / float32(w3|3)
		x := float32(get(0)) * ss
		y := float32(get(1)) * ss
		z := float32(get(2)) * ss
		ww := 1 - x*x - y*y - z*z
		w := math32.Sqrt(max(ww, 0))

		qc := w3 & 3
		put := func(k, v int) { binary.LittleEndian.PutUint16(e[k*2:], uint16(int16(v))) }
		put((qc+1)&3, roundToInt(x*32767))
		put((qc+2)&3, roundToInt(y*32767))
		put((qc+3)&3, roundToInt(z*32767))
		put(qc, roundToInt(w*32767))
	}
}

func encodeFilterExp(src []float32, count, stride, bits int) []byte {
	out := make([]byte, count*stride)
	n := stride / 4
	const mmask = 1<<24 - 1
	for i := range count {
		v := src[i*n : i*n+n]
		exp := -100
		for _, f := range v {
			_, e := math32.Frexp(f)
			exp = max(exp, e)
		}
		exp -= bits - 1
		for j, f := range v {
			m := roundToInt(math32.Ldexp(f, -exp))
			word := uint32(m)&mmask | uint32(exp)<<24
			binary.LittleEndian.PutUint32(out[(i*n+j)*4:], word)
		}
	}
	return out
}

func decodeFilterExp(data []byte, count, stride int) {
	for i := 0; i < count*stride; i += 4 {
		v := binary.LittleEndian.Uint32(data[i:])
		m := int32(v<<8) >> 8
		e := int32(v) >> 24
		f := math32.Ldexp(float32(m), int(e))
		binary.LittleEndian.PutUint32(data[i:], math.Float32bits(f))
	}
}

func applyFilter(dst []byte, count, stride int, filter codec.MeshoptFilter) error {
	switch filter {
	case "", codec.FilterNone:
		return nil
	case codec.FilterOctahedral:
		if stride != 4 && stride != 8 {
			return errors.Newf("octahedral filter stride %d, want 4 or 8", stride)
		}
		decodeFilterOct(dst, count, stride)
	case codec.FilterQuaternion:
		if stride != 8 {
			return errors.Newf("quaternion filter stride %d, want 8", stride)
		}
		decodeFilterQuat(dst, count)
	case codec.FilterExponential:
		if stride%4 != 0 {
			return errors.Newf("exponential filter stride %d is not a multiple of 4", stride)
		}
		decodeFilterExp(dst, count, stride)
	default:
		return errors.Newf("unknown filter %q", filter)
	}
	return nil
}
