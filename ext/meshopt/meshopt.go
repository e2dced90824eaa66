// Package meshopt implements EXT_meshopt_compression.
//
// Writing regroups accessor data into compressed buffer views. Each group
// keeps an uncompressed-shape view in a fallback buffer, created for one
// write and disposed at its end, while the encoded bytes are placed in the
// accessor's own buffer and described by the view's extension payload.
// Reading decodes those payloads and, when the extension is required,
// rewires accessors from fallback buffers to the real ones.
//
// A codec must be installed under codec.MeshoptEncoderKey for writing and
// codec.MeshoptDecoderKey for reading:
//
//	io := gltfx.NewIO().
//		RegisterExtensions(meshopt.Type).
//		RegisterDependencies(map[string]any{
//			codec.MeshoptEncoderKey: c,
//			codec.MeshoptDecoderKey: c,
//		})
package meshopt

import (
	"context"

	"github.com/reoring/gltfx"
	"github.com/reoring/gltfx/codec"
)

// EncoderOptions tunes compression.
type EncoderOptions struct {
	Method Method
}

// DefaultEncoderOptions is used until SetEncoderOptions is called.
var DefaultEncoderOptions = EncoderOptions{Method: MethodQuantize}

// Extension is the per-document EXT_meshopt_compression instance. It holds
// configuration and installed codecs only; all read and write state lives
// in sessions.
type Extension struct {
	gltfx.ExtensionBase
	options EncoderOptions
}

var (
	_ gltfx.ReadParticipant  = (*Extension)(nil)
	_ gltfx.WriteParticipant = (*Extension)(nil)
)

// Type registers the extension with an IO.
var Type = gltfx.ExtensionType{
	Name: Name,
	New:  func() gltfx.Extension { return &Extension{options: DefaultEncoderOptions} },
}

// Get returns the document's extension, creating it when absent.
func Get(doc *gltfx.Document) *Extension {
	return doc.CreateExtension(Type).(*Extension)
}

func (e *Extension) EncoderOptions() EncoderOptions { return e.options }

// SetEncoderOptions replaces the options. An empty method selects
// MethodQuantize.
func (e *Extension) SetEncoderOptions(opts EncoderOptions) *Extension {
	if opts.Method == "" {
		opts.Method = DefaultEncoderOptions.Method
	}
	e.options = opts
	return e
}

func (e *Extension) ReadDependencies() []string  { return []string{codec.MeshoptDecoderKey} }
func (e *Extension) WriteDependencies() []string { return []string{codec.MeshoptEncoderKey} }

func (e *Extension) PrereadTypes() []gltfx.PropertyType {
	return []gltfx.PropertyType{gltfx.PropertyBuffer, gltfx.PropertyPrimitive}
}

func (e *Extension) PrewriteTypes() []gltfx.PropertyType {
	return []gltfx.PropertyType{gltfx.PropertyBuffer, gltfx.PropertyAccessor}
}

// BeginRead opens a read session. Without a usable decoder the session is
// a no-op, unless the document requires the extension.
func (e *Extension) BeginRead(_ context.Context, rc *gltfx.ReaderContext) (gltfx.ReadSession, error) {
	dec, err := e.decoder()
	if err != nil {
		if e.IsRequired() {
			return nil, err
		}
		rc.Logger().Debug("meshopt decoder unavailable, leaving views compressed", "error", err)
		return gltfx.NoopReadSession{}, nil
	}
	return newReadSession(e, rc, dec), nil
}

// BeginWrite opens a write session. Without a usable encoder the session
// is a no-op, unless the extension is required.
func (e *Extension) BeginWrite(_ context.Context, wc *gltfx.WriterContext) (gltfx.WriteSession, error) {
	enc, err := e.encoder()
	if err != nil {
		if e.IsRequired() {
			return nil, err
		}
		wc.Logger().Debug("meshopt encoder unavailable, writing uncompressed", "error", err)
		return gltfx.NoopWriteSession{}, nil
	}
	return newWriteSession(e, wc, enc), nil
}

func (e *Extension) decoder() (codec.MeshoptDecoder, error) {
	dec, err := gltfx.Require[codec.MeshoptDecoder](e, codec.MeshoptDecoderKey)
	if err != nil {
		return nil, err
	}
	if !dec.Supported() {
		return nil, gltfx.UnsupportedRuntimeError(Name, codec.MeshoptDecoderKey)
	}
	return dec, nil
}

func (e *Extension) encoder() (codec.MeshoptEncoder, error) {
	enc, err := gltfx.Require[codec.MeshoptEncoder](e, codec.MeshoptEncoderKey)
	if err != nil {
		return nil, err
	}
	if !enc.Supported() {
		return nil, gltfx.UnsupportedRuntimeError(Name, codec.MeshoptEncoderKey)
	}
	return enc, nil
}
