package gltfx

// Alignment is the byte alignment of every region written into a buffer.
const Alignment = 4

// PadNumber rounds n up to the next multiple of Alignment.
func PadNumber(n int) int {
	if r := n % Alignment; r != 0 {
		return n + Alignment - r
	}
	return n
}

// Pad returns b zero-padded to a multiple of Alignment. b is returned as is
// when already aligned.
func Pad(b []byte) []byte {
	n := PadNumber(len(b))
	if n == len(b) {
		return b
	}
	out := make([]byte, n)
	copy(out, b)
	return out
}

// Concat joins byte slices into a new slice.
func Concat(parts ...[]byte) []byte {
	n := 0
	for _, p := range parts {
		n += len(p)
	}
	out := make([]byte, 0, n)
	for _, p := range parts {
		out = append(out, p...)
	}
	return out
}

// PadElements copies count elements of elementSize bytes into a new array
// whose stride is elementSize rounded up to Alignment.
func PadElements(src []byte, count, elementSize int) []byte {
	stride := PadNumber(elementSize)
	if stride == elementSize {
		return src
	}
	out := make([]byte, count*stride)
	for i := range count {
		copy(out[i*stride:i*stride+elementSize], src[i*elementSize:])
	}
	return out
}
