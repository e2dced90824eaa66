package engine_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/reoring/gltfx/internal/engine"
)

func TestDetectDuplicateKeys(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want []engine.DuplicateKey
	}{
		{"none", `{"a":1,"b":{"a":2}}`, nil},
		{"top level", `{"asset":{},"asset":{}}`, []engine.DuplicateKey{{Key: "asset", Pointer: "/asset"}}},
		{"in array", `{"accessors":[{"count":1},{"count":1,"count":2}]}`,
			[]engine.DuplicateKey{{Key: "count", Pointer: "/accessors/1/count"}}},
		{"after nested values", `{"a":[1,[2],{"x":null}],"b":true,"a":"s"}`,
			[]engine.DuplicateKey{{Key: "a", Pointer: "/a"}}},
		{"escaped", `{"x":{"a/b":1,"a/b":2}}`, []engine.DuplicateKey{{Key: "a/b", Pointer: "/x/a~1b"}}},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			got, err := engine.DetectDuplicateKeys(engine.NewBytes([]byte(tc.in)), engine.DetectOptions{})
			require.NoError(t, err)
			assert.Equal(t, tc.want, got)
		})
	}
}

func TestDetectDuplicateKeys_MaxIssues(t *testing.T) {
	got, err := engine.DetectDuplicateKeys(engine.NewBytes([]byte(`{"a":1,"a":2,"a":3,"a":4}`)), engine.DetectOptions{MaxIssues: 2})
	require.NoError(t, err)
	assert.Len(t, got, 2)
}

func TestDetectDuplicateKeys_MaxDepth(t *testing.T) {
	_, err := engine.DetectDuplicateKeys(engine.NewBytes([]byte(`{"a":{"b":{"c":[]}}}`)), engine.DetectOptions{MaxDepth: 3})
	require.ErrorIs(t, err, engine.ErrMaxDepth)
}

func TestDetectDuplicateKeys_SyntaxError(t *testing.T) {
	for _, in := range []string{
		`{"a":1,"a" 2}`,
		`{"a":1 "b":2}`,
		`[1 2]`,
		`{"a":1,}`,
		`{"a":1`,
		`{"a":1} {}`,
	} {
		t.Run(in, func(t *testing.T) {
			_, err := engine.DetectDuplicateKeys(engine.NewBytes([]byte(in)), engine.DetectOptions{})
			require.Error(t, err)
			assert.Contains(t, err.Error(), "json syntax")
		})
	}
}

func TestDetectDuplicateKeys_Empty(t *testing.T) {
	got, err := engine.DetectDuplicateKeys(engine.NewBytes(nil), engine.DetectOptions{})
	require.NoError(t, err)
	assert.Empty(t, got)
}

func TestPointer(t *testing.T) {
	assert.Equal(t, "", engine.Root.String())
	assert.Equal(t, "/", engine.Root.Field("").String())
	assert.Equal(t, "/meshes/0/primitives/1/attributes/POSITION",
		engine.At("meshes", 0, "primitives", 1, "attributes", "POSITION").String())
	assert.Equal(t, "/a~0b~1c", engine.Root.Field("a~b/c").String())

	base := engine.At("buffers")
	a, b := base.Index(0), base.Index(1)
	assert.Equal(t, "/buffers/0", a.String())
	assert.Equal(t, "/buffers/1", b.String())
}
