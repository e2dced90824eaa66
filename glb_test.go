package gltfx_test

import (
	"encoding/binary"
	"testing"

	"github.com/cockroachdb/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/reoring/gltfx"
)

func TestGLB_RoundTrip(t *testing.T) {
	jsonData := []byte(`{"asset":{"version":"2.0"}}`)
	bin := []byte{1, 2, 3, 4, 5}

	glb := gltfx.EncodeGLB(jsonData, bin)
	assert.Zero(t, len(glb)%4)
	assert.Equal(t, uint32(len(glb)), binary.LittleEndian.Uint32(glb[8:]))

	gotJSON, gotBin, err := gltfx.DecodeGLB(glb)
	require.NoError(t, err)
	assert.JSONEq(t, string(jsonData), string(gotJSON))
	assert.Equal(t, []byte(" "), gotJSON[len(jsonData):])
	assert.Equal(t, []byte{1, 2, 3, 4, 5, 0, 0, 0}, gotBin)
}

func TestGLB_WithoutBin(t *testing.T) {
	glb := gltfx.EncodeGLB([]byte(`{}`), nil)
	assert.Len(t, glb, 12+8+4)
	_, bin, err := gltfx.DecodeGLB(glb)
	require.NoError(t, err)
	assert.Nil(t, bin)
}

func TestGLB_Invalid(t *testing.T) {
	valid := gltfx.EncodeGLB([]byte(`{}`), []byte{1})
	badVersion := append([]byte(nil), valid...)
	binary.LittleEndian.PutUint32(badVersion[4:], 1)
	overrun := append([]byte(nil), valid...)
	binary.LittleEndian.PutUint32(overrun[12:], 1000)
	onlyBin := gltfx.EncodeGLB(nil, nil)[:12]
	onlyBin = binary.LittleEndian.AppendUint32(onlyBin, 4)
	onlyBin = binary.LittleEndian.AppendUint32(onlyBin, 0x004E4942)
	onlyBin = append(onlyBin, 0, 0, 0, 0)
	binary.LittleEndian.PutUint32(onlyBin[8:], uint32(len(onlyBin)))

	tests := []struct {
		name string
		data []byte
	}{
		{"truncated", valid[:8]},
		{"magic", append([]byte("gLTF"), valid[4:]...)},
		{"version", badVersion},
		{"length", valid[:len(valid)-4]},
		{"chunk overrun", overrun},
		{"bin before json", onlyBin},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			_, _, err := gltfx.DecodeGLB(tc.data)
			require.Error(t, err)
			assert.True(t, errors.Is(err, gltfx.ErrInvalidGLB))
		})
	}
}
