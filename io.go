package gltfx

import (
	"context"
	"encoding/base64"
	"log/slog"
	"net/url"
	"os"
	"path/filepath"
	"strings"

	"github.com/cockroachdb/errors"
	"golang.org/x/sync/errgroup"

	"github.com/reoring/gltfx/wire"
)

// ResourceLoader fetches the bytes of an external resource by URI.
type ResourceLoader interface {
	Load(ctx context.Context, uri string) ([]byte, error)
}

// DirLoader resolves relative URIs against a directory.
type DirLoader struct {
	Dir string
}

func (l DirLoader) Load(_ context.Context, uri string) ([]byte, error) {
	path, err := resolveURI(l.Dir, uri)
	if err != nil {
		return nil, err
	}
	return os.ReadFile(path)
}

// resolveURI maps a relative URI to a path inside dir.
func resolveURI(dir, uri string) (string, error) {
	path, err := url.PathUnescape(uri)
	if err != nil {
		path = uri
	}
	path = filepath.FromSlash(path)
	if !filepath.IsLocal(path) || strings.Contains(path, ":") {
		return "", errors.Wrapf(ErrUnsafeURI, "%q", uri)
	}
	return filepath.Join(dir, path), nil
}

// DefaultConcurrency bounds parallel resource loads.
const DefaultConcurrency = 8

// IO reads and writes documents. Extensions must be registered to be read
// or written; their codecs are provided as dependencies.
type IO struct {
	extensions   []ExtensionType
	dependencies map[string]any
	logger       *slog.Logger
	loader       ResourceLoader
	concurrency  int
	layout       VertexLayout
}

func NewIO() *IO {
	return &IO{
		dependencies: map[string]any{},
		logger:       slog.Default(),
		concurrency:  DefaultConcurrency,
	}
}

// RegisterExtensions enables reading and writing of the given extensions.
// Registering a name twice keeps the latest type.
func (x *IO) RegisterExtensions(types ...ExtensionType) *IO {
	for _, t := range types {
		replaced := false
		for i := range x.extensions {
			if x.extensions[i].Name == t.Name {
				x.extensions[i] = t
				replaced = true
			}
		}
		if !replaced {
			x.extensions = append(x.extensions, t)
		}
	}
	return x
}

// RegisterDependencies installs codec handles by key, for example
// "meshopt.encoder". Later registrations replace earlier ones.
func (x *IO) RegisterDependencies(deps map[string]any) *IO {
	for k, v := range deps {
		x.dependencies[k] = v
	}
	return x
}

func (x *IO) SetLogger(l *slog.Logger) *IO {
	if l == nil {
		l = slog.Default()
	}
	x.logger = l
	return x
}

// SetResourceLoader sets the loader used for external resources. Read
// defaults to a DirLoader for the directory of the file.
func (x *IO) SetResourceLoader(l ResourceLoader) *IO {
	x.loader = l
	return x
}

// SetConcurrency bounds parallel resource loads. Values below 1 mean
// DefaultConcurrency.
func (x *IO) SetConcurrency(n int) *IO {
	if n < 1 {
		n = DefaultConcurrency
	}
	x.concurrency = n
	return x
}

func (x *IO) SetVertexLayout(l VertexLayout) *IO {
	x.layout = l
	return x
}

func (x *IO) reader() *reader {
	return &reader{extensions: x.extensions, dependencies: x.dependencies, logger: x.logger}
}

func (x *IO) writer() *writer {
	return &writer{extensions: x.extensions, dependencies: x.dependencies, logger: x.logger}
}

// ReadJSON builds a document from JSON and its resources. Resources
// missing from jsonDoc are fetched with the resource loader, if any.
func (x *IO) ReadJSON(ctx context.Context, jsonDoc *wire.JSONDocument) (*Document, error) {
	if err := x.loadResources(ctx, jsonDoc, x.loader); err != nil {
		return nil, err
	}
	return x.reader().read(ctx, jsonDoc)
}

// WriteJSON serializes doc. Every buffer is written as a resource keyed by
// its URI unless opts.Format is FormatGLB.
func (x *IO) WriteJSON(ctx context.Context, doc *Document, opts WriteOptions) (*wire.JSONDocument, error) {
	return x.writer().write(ctx, doc, opts)
}

// ReadBinary reads a GLB container.
func (x *IO) ReadBinary(ctx context.Context, data []byte) (*Document, error) {
	jsonDoc, err := x.decodeBinary(data)
	if err != nil {
		return nil, err
	}
	return x.ReadJSON(ctx, jsonDoc)
}

func (x *IO) decodeBinary(data []byte) (*wire.JSONDocument, error) {
	jsonData, bin, err := DecodeGLB(data)
	if err != nil {
		return nil, err
	}
	g, err := wire.Unmarshal(jsonData)
	if err != nil {
		return nil, errors.Wrap(err, "parse JSON chunk")
	}
	jsonDoc := &wire.JSONDocument{JSON: g, Resources: map[string][]byte{}}
	if bin != nil {
		jsonDoc.Resources[wire.GLBBuffer] = bin
	}
	return jsonDoc, nil
}

// WriteBinary serializes doc as a GLB container. Resources other than the
// binary chunk are dropped with a warning; use Write to keep them.
func (x *IO) WriteBinary(ctx context.Context, doc *Document) ([]byte, error) {
	jsonDoc, err := x.WriteJSON(ctx, doc, WriteOptions{Format: FormatGLB, VertexLayout: x.layout})
	if err != nil {
		return nil, err
	}
	for uri := range jsonDoc.Resources {
		if uri != wire.GLBBuffer {
			x.logger.Warn("external resource not embedded in GLB", "uri", uri)
		}
	}
	return encodeBinary(jsonDoc)
}

func encodeBinary(jsonDoc *wire.JSONDocument) ([]byte, error) {
	jsonData, err := wire.Marshal(jsonDoc.JSON, false)
	if err != nil {
		return nil, err
	}
	return EncodeGLB(jsonData, jsonDoc.Resources[wire.GLBBuffer]), nil
}

// Read loads a .glb or .gltf file and its external resources.
func (x *IO) Read(ctx context.Context, path string) (*Document, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	loader := x.loader
	if loader == nil {
		loader = DirLoader{Dir: filepath.Dir(path)}
	}

	var jsonDoc *wire.JSONDocument
	if isGLB(path, data) {
		jsonDoc, err = x.decodeBinary(data)
	} else {
		var g *wire.GLTF
		g, err = wire.Unmarshal(data)
		jsonDoc = &wire.JSONDocument{JSON: g, Resources: map[string][]byte{}}
	}
	if err != nil {
		return nil, errors.Wrapf(err, "read %s", path)
	}
	if err := x.loadResources(ctx, jsonDoc, loader); err != nil {
		return nil, err
	}
	return x.reader().read(ctx, jsonDoc)
}

func isGLB(path string, data []byte) bool {
	if strings.EqualFold(filepath.Ext(path), ".glb") {
		return true
	}
	return len(data) >= 4 && string(data[:4]) == "glTF"
}

// Write saves doc as .glb or .gltf depending on the extension of path.
// External resources are written next to the file.
func (x *IO) Write(ctx context.Context, path string, doc *Document) error {
	dir := filepath.Dir(path)
	base := strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
	format := FormatJSON
	if strings.EqualFold(filepath.Ext(path), ".glb") {
		format = FormatGLB
	}
	jsonDoc, err := x.WriteJSON(ctx, doc, WriteOptions{Format: format, VertexLayout: x.layout, Basename: base})
	if err != nil {
		return err
	}

	var main []byte
	if format == FormatGLB {
		main, err = encodeBinary(jsonDoc)
	} else {
		main, err = wire.Marshal(jsonDoc.JSON, true)
	}
	if err != nil {
		return err
	}
	targets := map[string]string{}
	for uri := range jsonDoc.Resources {
		if uri == wire.GLBBuffer || strings.HasPrefix(uri, "data:") {
			continue
		}
		target, err := resolveURI(dir, uri)
		if err != nil {
			return err
		}
		targets[uri] = target
	}
	if err := os.WriteFile(path, main, 0o644); err != nil {
		return err
	}
	for uri, target := range targets {
		if err := os.MkdirAll(filepath.Dir(target), 0o755); err != nil {
			return err
		}
		if err := os.WriteFile(target, jsonDoc.Resources[uri], 0o644); err != nil {
			return err
		}
	}
	return nil
}

// loadResources fills jsonDoc.Resources for every buffer and image URI not
// present yet. Data URIs are decoded inline; other URIs go through loader
// in parallel. Failures are logged and leave the resource absent.
func (x *IO) loadResources(ctx context.Context, jsonDoc *wire.JSONDocument, loader ResourceLoader) error {
	var uris []string
	seen := map[string]bool{}
	add := func(uri string) {
		if uri == "" || seen[uri] {
			return
		}
		seen[uri] = true
		if _, ok := jsonDoc.Resources[uri]; !ok {
			uris = append(uris, uri)
		}
	}
	for _, b := range jsonDoc.JSON.Buffers {
		add(b.URI)
	}
	for _, img := range jsonDoc.JSON.Images {
		if img.BufferView == nil {
			add(img.URI)
		}
	}

	results := make([][]byte, len(uris))
	eg, ctx := errgroup.WithContext(ctx)
	eg.SetLimit(x.concurrency)
	for i, uri := range uris {
		if strings.HasPrefix(uri, "data:") {
			data, err := DecodeDataURI(uri)
			if err != nil {
				x.logger.Warn("invalid data URI", "error", err)
				continue
			}
			results[i] = data
			continue
		}
		if loader == nil {
			x.logger.Warn("no resource loader for external resource", "uri", uri, "error", ErrExternalResourceUnavailable)
			continue
		}
		eg.Go(func() error {
			data, err := loader.Load(ctx, uri)
			if err != nil {
				if ctx.Err() != nil {
					return ctx.Err()
				}
				x.logger.Warn("external resource unavailable", "uri", uri, "error", err)
				return nil
			}
			results[i] = data
			return nil
		})
	}
	if err := eg.Wait(); err != nil {
		return err
	}
	for i, uri := range uris {
		if results[i] != nil {
			jsonDoc.Resources[uri] = results[i]
		}
	}
	return nil
}

// DecodeDataURI decodes a base64 or percent-encoded data URI.
func DecodeDataURI(uri string) ([]byte, error) {
	header, payload, ok := strings.Cut(strings.TrimPrefix(uri, "data:"), ",")
	if !ok {
		return nil, errors.New("data URI without payload")
	}
	if strings.HasSuffix(header, ";base64") {
		return base64.StdEncoding.DecodeString(payload)
	}
	s, err := url.PathUnescape(payload)
	return []byte(s), err
}
