// Package draco implements KHR_draco_mesh_compression.
//
// Writing encodes every indexed triangle primitive whose accessors belong
// to it alone into one mesh stream, stored as a buffer view in the buffer
// of its indices. The primitive's accessors are written without buffer
// views. Reading decodes the streams back into those accessors.
package draco

import (
	"context"
	"maps"

	"github.com/reoring/gltfx"
	"github.com/reoring/gltfx/codec"
)

// Name is the glTF extension name.
const Name = "KHR_draco_mesh_compression"

// EncoderOptions tunes compression.
type EncoderOptions struct {
	Method codec.DracoMethod
	// QuantizationBits maps attribute classes to bit depths. Classes left
	// out use the defaults.
	QuantizationBits map[string]int
}

// Attribute classes used by QuantizationBits.
const (
	ClassPosition = "POSITION"
	ClassNormal   = "NORMAL"
	ClassColor    = "COLOR"
	ClassTexCoord = "TEX_COORD"
	ClassGeneric  = "GENERIC"
)

// DefaultEncoderOptions returns the options used until SetEncoderOptions
// is called.
func DefaultEncoderOptions() EncoderOptions {
	return EncoderOptions{
		Method: codec.DracoEdgebreaker,
		QuantizationBits: map[string]int{
			ClassPosition: 14,
			ClassNormal:   10,
			ClassColor:    8,
			ClassTexCoord: 12,
			ClassGeneric:  12,
		},
	}
}

// Extension is the per-document KHR_draco_mesh_compression instance.
type Extension struct {
	gltfx.ExtensionBase
	options EncoderOptions
}

var (
	_ gltfx.ReadParticipant  = (*Extension)(nil)
	_ gltfx.WriteParticipant = (*Extension)(nil)
)

// Type registers the extension with an IO. Instances start out required,
// since compressed primitives carry no uncompressed data.
var Type = gltfx.ExtensionType{
	Name: Name,
	New: func() gltfx.Extension {
		e := &Extension{options: DefaultEncoderOptions()}
		e.SetRequired(true)
		return e
	},
}

// Get returns the document's extension, creating it when absent.
func Get(doc *gltfx.Document) *Extension {
	return doc.CreateExtension(Type).(*Extension)
}

func (e *Extension) EncoderOptions() EncoderOptions { return e.options }

// SetEncoderOptions merges opts over the defaults.
func (e *Extension) SetEncoderOptions(opts EncoderOptions) *Extension {
	merged := DefaultEncoderOptions()
	if opts.Method != "" {
		merged.Method = opts.Method
	}
	maps.Copy(merged.QuantizationBits, opts.QuantizationBits)
	e.options = merged
	return e
}

func (e *Extension) ReadDependencies() []string  { return []string{codec.DracoDecoderKey} }
func (e *Extension) WriteDependencies() []string { return []string{codec.DracoEncoderKey} }

func (e *Extension) PrereadTypes() []gltfx.PropertyType {
	return []gltfx.PropertyType{gltfx.PropertyPrimitive}
}

func (e *Extension) PrewriteTypes() []gltfx.PropertyType {
	return []gltfx.PropertyType{gltfx.PropertyAccessor, gltfx.PropertyBuffer}
}

func (e *Extension) BeginRead(_ context.Context, rc *gltfx.ReaderContext) (gltfx.ReadSession, error) {
	dec, err := gltfx.Require[codec.DracoDecoder](e, codec.DracoDecoderKey)
	if err == nil && !dec.Supported() {
		err = gltfx.UnsupportedRuntimeError(Name, codec.DracoDecoderKey)
	}
	if err != nil {
		if e.IsRequired() {
			return nil, err
		}
		rc.Logger().Debug("draco decoder unavailable", "error", err)
		return gltfx.NoopReadSession{}, nil
	}
	return &readSession{rc: rc, dec: dec}, nil
}

func (e *Extension) BeginWrite(_ context.Context, wc *gltfx.WriterContext) (gltfx.WriteSession, error) {
	enc, err := gltfx.Require[codec.DracoEncoder](e, codec.DracoEncoderKey)
	if err == nil && !enc.Supported() {
		err = gltfx.UnsupportedRuntimeError(Name, codec.DracoEncoderKey)
	}
	if err != nil {
		if e.IsRequired() {
			return nil, err
		}
		wc.Logger().Debug("draco encoder unavailable, writing uncompressed", "error", err)
		return gltfx.NoopWriteSession{}, nil
	}
	return &writeSession{ext: e, wc: wc, enc: enc}, nil
}

// primitiveExtension is the payload stored on a compressed primitive.
type primitiveExtension struct {
	BufferView int            `json:"bufferView"`
	Attributes map[string]int `json:"attributes"`
}
