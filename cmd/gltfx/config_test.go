package main

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/reoring/gltfx"
	"github.com/reoring/gltfx/codec"
	"github.com/reoring/gltfx/ext/meshopt"
)

func writeFile(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestLoadConfig_Defaults(t *testing.T) {
	cfg, err := loadConfig("")
	require.NoError(t, err)
	assert.Equal(t, defaultConfig(), cfg)
}

func TestLoadConfig_YAML(t *testing.T) {
	path := writeFile(t, "gltfx.yaml", `
verbose: true
layout: separate
meshopt:
  method: filter
draco:
  quantizationBits:
    POSITION: 11
validate:
  limit: 5
  ignore: [UNUSED_OBJECT]
`)
	cfg, err := loadConfig(path)
	require.NoError(t, err)
	assert.True(t, cfg.Verbose)
	assert.Equal(t, "separate", cfg.Layout)
	assert.Equal(t, "filter", cfg.Meshopt.Method)
	assert.Equal(t, "edgebreaker", cfg.Draco.Method)
	assert.Equal(t, map[string]int{"POSITION": 11}, cfg.Draco.QuantizationBits)
	assert.Equal(t, ValidateConfig{Limit: 5, Ignore: []string{"UNUSED_OBJECT"}}, cfg.Validate)
}

func TestLoadConfig_TOML(t *testing.T) {
	path := writeFile(t, "gltfx.toml", `
stats = true
concurrency = 2

[draco]
method = "sequential"

[draco.quantization_bits]
NORMAL = 8
`)
	cfg, err := loadConfig(path)
	require.NoError(t, err)
	assert.True(t, cfg.Stats)
	assert.Equal(t, 2, cfg.Concurrency)
	assert.Equal(t, "sequential", cfg.Draco.Method)
	assert.Equal(t, map[string]int{"NORMAL": 8}, cfg.Draco.QuantizationBits)
	assert.Equal(t, "quantize", cfg.Meshopt.Method)
}

func TestLoadConfig_Errors(t *testing.T) {
	tests := []struct {
		name string
		path func(t *testing.T) string
	}{
		{"missing", func(t *testing.T) string { return filepath.Join(t.TempDir(), "none.yaml") }},
		{"format", func(t *testing.T) string { return writeFile(t, "gltfx.json", "{}") }},
		{"syntax", func(t *testing.T) string { return writeFile(t, "gltfx.toml", "stats = ") }},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			_, err := loadConfig(tc.path(t))
			assert.Error(t, err)
		})
	}
}

func TestParseMethods(t *testing.T) {
	m, err := parseMeshoptMethod("filter")
	require.NoError(t, err)
	assert.Equal(t, meshopt.MethodFilter, m)
	_, err = parseMeshoptMethod("zip")
	assert.Error(t, err)

	d, err := parseDracoMethod("Sequential")
	require.NoError(t, err)
	assert.Equal(t, codec.DracoSequential, d)
	_, err = parseDracoMethod("")
	assert.Error(t, err)

	l, err := parseLayout("")
	require.NoError(t, err)
	assert.Equal(t, gltfx.LayoutInterleaved, l)
	l, err = parseLayout("SEPARATE")
	require.NoError(t, err)
	assert.Equal(t, gltfx.LayoutSeparate, l)
	_, err = parseLayout("packed")
	assert.Error(t, err)
}

func TestSplitCSV(t *testing.T) {
	assert.Nil(t, splitCSV(""))
	assert.Equal(t, []string{"A", "B"}, splitCSV(" A, ,B "))
}

func TestMeasure(t *testing.T) {
	data := bytes.Repeat([]byte("vertex"), 1000)
	s, err := measure(data)
	require.NoError(t, err)
	assert.Equal(t, len(data), s.Raw)
	assert.Less(t, s.Gzip, s.Raw)
	assert.Less(t, s.Zstd, s.Raw)

	var buf bytes.Buffer
	printSizes(&buf, "out.glb", s)
	assert.Contains(t, buf.String(), "out.glb: 5.9 KiB raw")
}

func TestHuman(t *testing.T) {
	assert.Equal(t, "12 B", human(12))
	assert.Equal(t, "1.0 KiB", human(1024))
	assert.Equal(t, "1.5 MiB", human(3<<19))
}
