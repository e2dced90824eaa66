// Package validate checks glTF 2.0 assets without building a document.
//
// A Validator never mutates its input and never fails on a bad asset:
// every finding becomes an Issue in the returned Report. Errors are only
// returned when the context is done.
package validate

import (
	"bytes"
	"context"
	"log/slog"
	"slices"

	"github.com/cockroachdb/errors"

	"github.com/reoring/gltfx"
	"github.com/reoring/gltfx/ext/draco"
	"github.com/reoring/gltfx/ext/meshopt"
	"github.com/reoring/gltfx/internal/engine"
	"github.com/reoring/gltfx/wire"
)

// DefaultMaxIssues bounds a report when Options.MaxIssues is zero.
const DefaultMaxIssues = 100

// DefaultMaxDepth bounds JSON nesting.
const DefaultMaxDepth = 64

// ResourceFunc loads an external resource by URI.
type ResourceFunc func(ctx context.Context, uri string) ([]byte, error)

// Options configures one validation.
type Options struct {
	// MaxIssues stops collecting after that many issues. Negative means
	// no limit.
	MaxIssues int
	// Ignore lists issue codes to drop.
	Ignore []string
	// ExternalResource loads buffers referenced by URI. Without it,
	// external buffers are not checked against their byteLength.
	ExternalResource ResourceFunc
	// Logger receives resource load failures. Defaults to slog.Default().
	Logger *slog.Logger
}

// Info summarizes the validated asset.
type Info struct {
	Version            string
	Generator          string
	ExtensionsUsed     []string
	ExtensionsRequired []string
	Buffers            int
	Accessors          int
	Meshes             int
	Primitives         int
	Nodes              int
	Animations         int
}

// Report is the outcome of one validation.
type Report struct {
	Issues    Issues
	Truncated bool
	Info      Info
}

// Count returns the number of issues with severity s.
func (r *Report) Count(s Severity) int { return len(r.Issues.Filter(s)) }

// Err returns the error-severity issues, or nil when there are none.
func (r *Report) Err() error {
	if errs := r.Issues.Filter(SeverityError); len(errs) > 0 {
		return errs
	}
	return nil
}

// Validator checks assets against the glTF 2.0 structure rules and the
// extensions it knows.
type Validator struct {
	known []string
}

// New returns a validator that accepts the given extension names besides
// the ones this module implements.
func New(extensions ...string) *Validator {
	return &Validator{known: append([]string{meshopt.Name, draco.Name}, extensions...)}
}

// collector accumulates issues, honoring ignore lists and the limit.
type collector struct {
	report *Report
	ignore []string
	max    int
}

func (c *collector) add(code string, sev Severity, ptr engine.Pointer, args ...any) {
	c.addAt(code, sev, ptr.String(), args...)
}

func (c *collector) addAt(code string, sev Severity, ptr string, args ...any) {
	if c.report.Truncated || slices.Contains(c.ignore, code) {
		return
	}
	if c.max >= 0 && len(c.report.Issues) >= c.max {
		c.report.Truncated = true
		c.report.Issues = append(c.report.Issues, Issue{
			Code:     CodeTruncated,
			Message:  message(CodeTruncated, c.max),
			Severity: SeverityInfo,
			Pointer:  engine.Root.String(),
		})
		return
	}
	c.report.Issues = append(c.report.Issues, Issue{
		Code:     code,
		Message:  message(code, args...),
		Severity: sev,
		Pointer:  ptr,
	})
}

// ValidateBytes validates a GLB container or glTF JSON.
func (v *Validator) ValidateBytes(ctx context.Context, data []byte, opts Options) (*Report, error) {
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	report := &Report{}
	c := &collector{report: report, ignore: opts.Ignore, max: opts.MaxIssues}
	if c.max == 0 {
		c.max = DefaultMaxIssues
	}

	jsonData := data
	var bin []byte
	glb := bytes.HasPrefix(data, []byte("glTF"))
	if glb {
		var err error
		jsonData, bin, err = gltfx.DecodeGLB(data)
		if err != nil {
			c.add(CodeInvalidGLB, SeverityError, engine.Root, err)
			return report, nil
		}
	}

	dups, err := engine.DetectDuplicateKeys(engine.NewBytes(jsonData), engine.DetectOptions{MaxDepth: DefaultMaxDepth})
	for _, d := range dups {
		c.addAt(CodeDuplicateKey, SeverityError, d.Pointer, d.Key)
	}
	if err != nil {
		if errors.Is(err, engine.ErrMaxDepth) {
			c.add(CodeMaxDepth, SeverityError, engine.Root, DefaultMaxDepth)
		} else {
			c.add(CodeInvalidJSON, SeverityError, engine.Root, err)
		}
		return report, nil
	}

	g, err := wire.Unmarshal(jsonData)
	if err != nil {
		c.add(CodeInvalidJSON, SeverityError, engine.Root, err)
		return report, nil
	}
	report.Info = summarize(g)

	chk := &checker{
		c:        c,
		raw:      jsonData,
		g:        g,
		glb:      glb,
		bin:      bin,
		known:    v.known,
		resource: opts.ExternalResource,
		logger:   opts.Logger,
	}
	if err := chk.run(ctx); err != nil {
		return nil, err
	}
	return report, nil
}

func summarize(g *wire.GLTF) Info {
	info := Info{
		Version:            g.Asset.Version,
		Generator:          g.Asset.Generator,
		ExtensionsUsed:     g.ExtensionsUsed,
		ExtensionsRequired: g.ExtensionsRequired,
		Buffers:            len(g.Buffers),
		Accessors:          len(g.Accessors),
		Meshes:             len(g.Meshes),
		Nodes:              len(g.Nodes),
		Animations:         len(g.Animations),
	}
	for _, m := range g.Meshes {
		info.Primitives += len(m.Primitives)
	}
	return info
}
