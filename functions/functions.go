// Package functions holds document transforms that configure compression
// extensions for the next write.
package functions

import (
	"context"

	"github.com/reoring/gltfx"
	"github.com/reoring/gltfx/codec"
	"github.com/reoring/gltfx/ext/draco"
	"github.com/reoring/gltfx/ext/meshopt"
)

// MeshoptOptions configures Meshopt.
type MeshoptOptions struct {
	Method meshopt.Method
}

// Meshopt returns a transform that enables EXT_meshopt_compression as a
// required extension. The document is compressed when it is written by an
// IO with a meshopt encoder installed.
func Meshopt(opts MeshoptOptions) gltfx.Transform {
	return func(_ context.Context, doc *gltfx.Document) error {
		ext := meshopt.Get(doc).SetEncoderOptions(meshopt.EncoderOptions{Method: opts.Method})
		ext.SetRequired(true)
		doc.Logger().Debug("meshopt: enabled", "method", ext.EncoderOptions().Method)
		return nil
	}
}

// DracoOptions configures Draco.
type DracoOptions struct {
	Method           codec.DracoMethod
	QuantizationBits map[string]int
}

// Draco returns a transform that enables KHR_draco_mesh_compression.
func Draco(opts DracoOptions) gltfx.Transform {
	return func(_ context.Context, doc *gltfx.Document) error {
		ext := draco.Get(doc).SetEncoderOptions(draco.EncoderOptions{
			Method:           opts.Method,
			QuantizationBits: opts.QuantizationBits,
		})
		ext.SetRequired(true)
		doc.Logger().Debug("draco: enabled", "method", ext.EncoderOptions().Method)
		return nil
	}
}
