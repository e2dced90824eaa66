package main

import (
	"bytes"
	"context"
	"flag"
	"io"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/reoring/gltfx"
	"github.com/reoring/gltfx/codec"
	"github.com/reoring/gltfx/ext/draco"
	"github.com/reoring/gltfx/ext/meshopt"
	"github.com/reoring/gltfx/functions"
	"github.com/reoring/gltfx/internal/fixture"
	"github.com/reoring/gltfx/validate"
)

func writeFixture(t *testing.T) string {
	t.Helper()
	m := fixture.Triangles(30)
	m.AddAttribute("NORMAL", gltfx.Vec3, fixture.Normals(30))
	glb, err := gltfx.NewIO().SetLogger(fixture.Logger()).WriteBinary(context.Background(), m.Doc)
	require.NoError(t, err)
	path := filepath.Join(t.TempDir(), "in.glb")
	require.NoError(t, os.WriteFile(path, glb, 0o644))
	return path
}

func TestConvert(t *testing.T) {
	tests := []struct {
		name      string
		transform gltfx.Transform
		ext       string
	}{
		{"meshopt", functions.Meshopt(functions.MeshoptOptions{Method: meshopt.MethodFilter}), meshopt.Name},
		{"draco", functions.Draco(functions.DracoOptions{}), draco.Name},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			in := writeFixture(t)
			out := filepath.Join(t.TempDir(), "out", "model.glb")
			cfg := defaultConfig()
			convert(context.Background(), cfg, in, out, tc.transform)

			data, err := os.ReadFile(out)
			require.NoError(t, err)
			report, err := validate.New().ValidateBytes(context.Background(), data, validate.Options{})
			require.NoError(t, err)
			assert.NoError(t, report.Err())
			assert.Equal(t, []string{tc.ext}, report.Info.ExtensionsRequired)

			x, done := newIO(cfg, fixture.Logger())
			defer done()
			doc, err := x.Read(context.Background(), out)
			require.NoError(t, err)
			prim := doc.Root().ListMeshes()[0].Primitives()[0]
			assert.Equal(t, 30, prim.Attribute("POSITION").Count())
		})
	}
}

func TestConvert_SeparateGLTF(t *testing.T) {
	in := writeFixture(t)
	dir := t.TempDir()
	out := filepath.Join(dir, "model.gltf")
	cfg := defaultConfig()
	cfg.Layout = "separate"
	convert(context.Background(), cfg, in, out)

	assert.FileExists(t, filepath.Join(dir, "model.bin"))
	data, err := os.ReadFile(out)
	require.NoError(t, err)
	loader := gltfx.DirLoader{Dir: dir}
	report, err := validate.New().ValidateBytes(context.Background(), data, validate.Options{ExternalResource: loader.Load})
	require.NoError(t, err)
	assert.Empty(t, report.Issues)
}

func TestValidateCmd_ExitCode(t *testing.T) {
	in := writeFixture(t)
	assert.Equal(t, 0, validateCmd(context.Background(), []string{in}))

	bad := filepath.Join(t.TempDir(), "bad.gltf")
	require.NoError(t, os.WriteFile(bad, []byte(`{"asset":{"version":"1.0"}}`), 0o644))
	assert.Equal(t, 1, validateCmd(context.Background(), []string{"-limit", "3", bad}))
}

func TestParseArgs(t *testing.T) {
	tests := []struct {
		name   string
		args   []string
		pos    []string
		method string
	}{
		{"flags first", []string{"--method", "filter", "in.glb", "out.glb"}, []string{"in.glb", "out.glb"}, "filter"},
		{"flags last", []string{"in.glb", "out.glb", "--method", "filter"}, []string{"in.glb", "out.glb"}, "filter"},
		{"flags between", []string{"in.glb", "-method=filter", "out.glb"}, []string{"in.glb", "out.glb"}, "filter"},
		{"terminator", []string{"in.glb", "--", "-out.glb"}, []string{"in.glb", "-out.glb"}, ""},
		{"no flags", []string{"in.glb"}, []string{"in.glb"}, ""},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			fs := flag.NewFlagSet("test", flag.ContinueOnError)
			fs.SetOutput(io.Discard)
			method := fs.String("method", "", "")
			pos, err := parseArgs(fs, tc.args)
			require.NoError(t, err)
			assert.Equal(t, tc.pos, pos)
			assert.Equal(t, tc.method, *method)
		})
	}
}

func TestParseArgs_UnknownFlag(t *testing.T) {
	fs := flag.NewFlagSet("test", flag.ContinueOnError)
	fs.SetOutput(io.Discard)
	_, err := parseArgs(fs, []string{"in.glb", "out.glb", "--nope"})
	require.Error(t, err)
}

func TestMeshoptCmd_TrailingFlags(t *testing.T) {
	in := writeFixture(t)
	out := filepath.Join(t.TempDir(), "out.glb")
	meshoptCmd(context.Background(), []string{in, out, "--method", "filter"})

	data, err := os.ReadFile(out)
	require.NoError(t, err)
	jsonData, _, err := gltfx.DecodeGLB(data)
	require.NoError(t, err)
	assert.True(t, bytes.Contains(jsonData, []byte(codec.FilterExponential)), "positions should use the exponential filter")
}

func TestValidateCmd_TrailingFlags(t *testing.T) {
	bad := filepath.Join(t.TempDir(), "bad.gltf")
	require.NoError(t, os.WriteFile(bad, []byte(`{"asset":{"version":"1.0"}}`), 0o644))
	assert.Equal(t, 1, validateCmd(context.Background(), []string{bad, "-limit", "3"}))
}
