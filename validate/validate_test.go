package validate_test

import (
	"bytes"
	"context"
	"strings"
	"testing"

	"github.com/cockroachdb/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/reoring/gltfx"
	"github.com/reoring/gltfx/ext/meshopt"
	"github.com/reoring/gltfx/internal/fixture"
	"github.com/reoring/gltfx/validate"
)

const (
	fourBytes  = "data:application/octet-stream;base64,AAAAAA=="
	eightBytes = "data:application/octet-stream;base64,AAAAAAAAAAA="
)

func run(t *testing.T, data string, opts validate.Options) *validate.Report {
	t.Helper()
	if opts.Logger == nil {
		opts.Logger = fixture.Logger()
	}
	report, err := validate.New().ValidateBytes(context.Background(), []byte(data), opts)
	require.NoError(t, err)
	return report
}

func find(r *validate.Report, code string) (validate.Issue, bool) {
	for _, it := range r.Issues {
		if it.Code == code {
			return it, true
		}
	}
	return validate.Issue{}, false
}

func TestValidateBytes_WrittenAssetIsClean(t *testing.T) {
	m := fixture.Triangles(30)
	glb, err := gltfx.NewIO().SetLogger(fixture.Logger()).WriteBinary(context.Background(), m.Doc)
	require.NoError(t, err)

	report, err := validate.New().ValidateBytes(context.Background(), glb, validate.Options{Logger: fixture.Logger()})
	require.NoError(t, err)
	assert.Empty(t, report.Issues)
	assert.NoError(t, report.Err())
	assert.Equal(t, "2.0", report.Info.Version)
	assert.Equal(t, 1, report.Info.Primitives)
	assert.Equal(t, 2, report.Info.Accessors)
}

func TestValidateBytes_MeshoptAssetIsClean(t *testing.T) {
	m := fixture.Triangles(30)
	meshopt.Get(m.Doc).SetRequired(true)
	x := gltfx.NewIO().
		SetLogger(fixture.Logger()).
		RegisterExtensions(meshopt.Type).
		RegisterDependencies(fixture.Dependencies(fixture.Codec(t)))
	glb, err := x.WriteBinary(context.Background(), m.Doc)
	require.NoError(t, err)

	report, err := validate.New().ValidateBytes(context.Background(), glb, validate.Options{Logger: fixture.Logger()})
	require.NoError(t, err)
	assert.Empty(t, report.Issues)
}

func TestValidateBytes_Issues(t *testing.T) {
	tests := []struct {
		name     string
		in       string
		code     string
		severity validate.Severity
		pointer  string
	}{
		{"syntax", `{"asset":`, validate.CodeInvalidJSON, validate.SeverityError, ""},
		{"duplicate key", `{"asset":{"version":"2.0"},"asset":{"version":"2.0"}}`,
			validate.CodeDuplicateKey, validate.SeverityError, "/asset"},
		{"missing asset", `{}`, validate.CodeMissingAsset, validate.SeverityError, "/asset"},
		{"bad version", `{"asset":{"version":"two"}}`, validate.CodeInvalidVersion, validate.SeverityError, "/asset/version"},
		{"major version", `{"asset":{"version":"3.0"}}`, validate.CodeUnknownMajorVersion, validate.SeverityError, "/asset/version"},
		{"min version", `{"asset":{"version":"2.0","minVersion":"2.1"}}`,
			validate.CodeMinVersionGreater, validate.SeverityError, "/asset/minVersion"},
		{"required not used", `{"asset":{"version":"2.0"},"extensionsRequired":["EXT_meshopt_compression"]}`,
			validate.CodeRequiredNotUsed, validate.SeverityError, "/extensionsRequired/0"},
		{"unknown extension", `{"asset":{"version":"2.0"},"extensionsUsed":["EXT_unknown"]}`,
			validate.CodeUnsupportedExtension, validate.SeverityWarning, "/extensionsUsed/0"},
		{"node mesh", `{"asset":{"version":"2.0"},"nodes":[{"mesh":3}]}`,
			validate.CodeUnresolvedReference, validate.SeverityError, "/nodes/0/mesh"},
		{"material texture", `{"asset":{"version":"2.0"},"materials":[{"normalTexture":{"index":0}}]}`,
			validate.CodeUnresolvedReference, validate.SeverityError, "/materials/0/normalTexture/index"},
		{"channel sampler", `{"asset":{"version":"2.0"},"animations":[{"samplers":[],"channels":[{"sampler":1,"target":{"path":"scale"}}]}]}`,
			validate.CodeUnresolvedReference, validate.SeverityError, "/animations/0/channels/0/sampler"},
		{"missing uri", `{"asset":{"version":"2.0"},"buffers":[{"byteLength":4}]}`,
			validate.CodeBufferMissingURI, validate.SeverityError, "/buffers/0"},
		{"short resource", `{"asset":{"version":"2.0"},"buffers":[{"byteLength":8,"uri":"` + fourBytes + `"}]}`,
			validate.CodeBufferByteLength, validate.SeverityError, "/buffers/0/byteLength"},
		{"view range", `{"asset":{"version":"2.0"},"buffers":[{"byteLength":8,"uri":"` + eightBytes + `"}],
			"bufferViews":[{"buffer":0,"byteOffset":4,"byteLength":8}]}`,
			validate.CodeBufferViewTooLong, validate.SeverityError, "/bufferViews/0/byteLength"},
		{"view stride", `{"asset":{"version":"2.0"},"buffers":[{"byteLength":8,"uri":"` + eightBytes + `"}],
			"bufferViews":[{"buffer":0,"byteLength":8,"byteStride":6}]}`,
			validate.CodeBufferViewInvalidStride, validate.SeverityError, "/bufferViews/0/byteStride"},
		{"accessor range", `{"asset":{"version":"2.0"},"buffers":[{"byteLength":8,"uri":"` + eightBytes + `"}],
			"bufferViews":[{"buffer":0,"byteLength":8}],
			"accessors":[{"bufferView":0,"componentType":5126,"count":3,"type":"SCALAR"}]}`,
			validate.CodeAccessorTooLong, validate.SeverityError, "/accessors/0"},
		{"unused accessor", `{"asset":{"version":"2.0"},"accessors":[{"componentType":5126,"count":1,"type":"SCALAR"}]}`,
			validate.CodeUnusedObject, validate.SeverityInfo, "/accessors/0"},
		{"external resource", `{"asset":{"version":"2.0"},"buffers":[{"byteLength":4,"uri":"a.bin"}]}`,
			validate.CodeResourceNotChecked, validate.SeverityHint, "/buffers/0/uri"},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			report := run(t, tc.in, validate.Options{})
			it, ok := find(report, tc.code)
			require.True(t, ok, "issues: %v", report.Issues)
			assert.Equal(t, tc.severity, it.Severity)
			assert.Equal(t, tc.pointer, it.Pointer)
			assert.NotEmpty(t, it.Message)
		})
	}
}

func TestValidateBytes_MeshoptFallback(t *testing.T) {
	in := `{"asset":{"version":"2.0"},"extensionsUsed":["EXT_meshopt_compression"],
		"buffers":[
			{"byteLength":4,"uri":"` + fourBytes + `"},
			{"byteLength":4,"extensions":{"EXT_meshopt_compression":{"fallback":true}}}],
		"bufferViews":[
			{"buffer":1,"byteLength":4},
			{"buffer":1,"byteLength":4,"extensions":{"EXT_meshopt_compression":
				{"buffer":1,"byteLength":4,"byteStride":4,"count":1,"mode":"ATTRIBUTES"}}}]}`
	report := run(t, in, validate.Options{})

	misuse, ok := find(report, validate.CodeMeshoptFallbackMisuse)
	require.True(t, ok)
	assert.Equal(t, "/bufferViews/0/buffer", misuse.Pointer)
	ref, ok := find(report, validate.CodeMeshoptFallbackReference)
	require.True(t, ok)
	assert.Equal(t, "/bufferViews/1/extensions/EXT_meshopt_compression/buffer", ref.Pointer)
	_, ok = find(report, validate.CodeBufferMissingURI)
	assert.False(t, ok)
}

func TestValidateBytes_InvalidGLB(t *testing.T) {
	report := run(t, "glTF\x01\x00\x00\x00", validate.Options{})
	require.Len(t, report.Issues, 1)
	assert.Equal(t, validate.CodeInvalidGLB, report.Issues[0].Code)
}

func TestValidateBytes_Options(t *testing.T) {
	in := `{"asset":{"version":"2.0"},"nodes":[{"mesh":1},{"mesh":2},{"mesh":3}],
		"accessors":[{"componentType":5126,"count":1,"type":"SCALAR"}]}`

	t.Run("max issues", func(t *testing.T) {
		report := run(t, in, validate.Options{MaxIssues: 2})
		assert.True(t, report.Truncated)
		require.Len(t, report.Issues, 3)
		assert.Equal(t, validate.CodeTruncated, report.Issues[2].Code)
	})
	t.Run("unlimited", func(t *testing.T) {
		report := run(t, in, validate.Options{MaxIssues: -1})
		assert.False(t, report.Truncated)
		assert.Len(t, report.Issues, 4)
	})
	t.Run("ignore", func(t *testing.T) {
		report := run(t, in, validate.Options{Ignore: []string{validate.CodeUnresolvedReference}})
		require.Len(t, report.Issues, 1)
		assert.Equal(t, validate.CodeUnusedObject, report.Issues[0].Code)
	})
}

func TestValidateBytes_ExternalResource(t *testing.T) {
	in := `{"asset":{"version":"2.0"},"buffers":[{"byteLength":8,"uri":"a.bin"}]}`

	t.Run("load failure", func(t *testing.T) {
		report := run(t, in, validate.Options{ExternalResource: func(context.Context, string) ([]byte, error) {
			return nil, errors.New("no such file")
		}})
		it, ok := find(report, validate.CodeIOError)
		require.True(t, ok)
		assert.Equal(t, validate.SeverityWarning, it.Severity)
	})
	t.Run("short", func(t *testing.T) {
		var loaded []string
		report := run(t, in, validate.Options{ExternalResource: func(_ context.Context, uri string) ([]byte, error) {
			loaded = append(loaded, uri)
			return make([]byte, 4), nil
		}})
		assert.Equal(t, []string{"a.bin"}, loaded)
		_, ok := find(report, validate.CodeBufferByteLength)
		assert.True(t, ok)
	})
	t.Run("canceled", func(t *testing.T) {
		ctx, cancel := context.WithCancel(context.Background())
		_, err := validate.New().ValidateBytes(ctx, []byte(in), validate.Options{
			Logger: fixture.Logger(),
			ExternalResource: func(context.Context, string) ([]byte, error) {
				cancel()
				return nil, context.Canceled
			},
		})
		require.ErrorIs(t, err, context.Canceled)
	})
}

func TestValidateBytes_DoesNotMutateInput(t *testing.T) {
	in := []byte(`{"asset":{"version":"2.0"},"nodes":[{"mesh":1}]}`)
	orig := bytes.Clone(in)
	_, err := validate.New().ValidateBytes(context.Background(), in, validate.Options{Logger: fixture.Logger()})
	require.NoError(t, err)
	assert.Equal(t, orig, in)
}

func TestReport_Err(t *testing.T) {
	report := run(t, `{"asset":{"version":"2.0"},"nodes":[{"mesh":1}]}`, validate.Options{})
	err := report.Err()
	require.Error(t, err)
	iss, ok := validate.AsIssues(err)
	require.True(t, ok)
	assert.Equal(t, validate.CodeUnresolvedReference, iss[0].Code)
}

func TestReport_Print(t *testing.T) {
	report := run(t, `{"asset":{"version":"2.0"},"extensionsUsed":["EXT_unknown"],"nodes":[{"mesh":1}]}`, validate.Options{})
	var buf bytes.Buffer
	require.NoError(t, report.Print(&buf, validate.PrintOptions{}))
	out := buf.String()

	assert.Contains(t, out, "Errors (1)")
	assert.Contains(t, out, "Warnings (1)")
	assert.NotContains(t, out, "Hints")
	assert.Contains(t, out, "/nodes/0/mesh")
	assert.NotContains(t, out, "\x1b[")
	assert.Less(t, strings.Index(out, "Errors"), strings.Index(out, "Warnings"))
}

func TestReport_PrintClean(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, (&validate.Report{}).Print(&buf, validate.PrintOptions{}))
	assert.Contains(t, buf.String(), "No issues found.")
}
