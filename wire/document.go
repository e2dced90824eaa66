package wire

import (
	"bytes"

	json "github.com/goccy/go-json"
)

// GLBBuffer is the resource key of the binary chunk of a GLB container.
// It can only back buffer 0.
const GLBBuffer = "@glb.bin"

// JSONDocument pairs a glTF JSON object with the binary resources it
// references, keyed by URI (or GLBBuffer).
type JSONDocument struct {
	JSON      *GLTF
	Resources map[string][]byte
}

// NewJSONDocument returns an empty document for glTF 2.0.
func NewJSONDocument() *JSONDocument {
	return &JSONDocument{
		JSON:      &GLTF{Asset: Asset{Version: "2.0"}},
		Resources: map[string][]byte{},
	}
}

// BufferResource returns the bytes backing the buffer at index, resolving
// URIs and the GLB binary chunk. ok is false when the bytes are absent.
func (d *JSONDocument) BufferResource(index int) (data []byte, ok bool) {
	if index < 0 || index >= len(d.JSON.Buffers) {
		return nil, false
	}
	def := d.JSON.Buffers[index]
	if def.URI != "" {
		data, ok = d.Resources[def.URI]
		return data, ok
	}
	if index != 0 {
		return nil, false
	}
	data, ok = d.Resources[GLBBuffer]
	return data, ok
}

// Unmarshal decodes glTF JSON.
func Unmarshal(data []byte) (*GLTF, error) {
	var g GLTF
	dec := json.NewDecoder(bytes.NewReader(data))
	if err := dec.Decode(&g); err != nil {
		return nil, err
	}
	return &g, nil
}

// Marshal encodes glTF JSON. Indented output is used for .gltf files,
// compact output for GLB containers.
func Marshal(g *GLTF, indent bool) ([]byte, error) {
	if indent {
		return json.MarshalIndent(g, "", "  ")
	}
	return json.Marshal(g)
}

// Has reports whether an extension payload is present under name.
func (e Extensions) Has(name string) bool {
	_, ok := e[name]
	return ok
}

// Decode unmarshals the payload stored under name into v. It reports
// false, with a nil error, when there is no such payload.
func (e Extensions) Decode(name string, v any) (bool, error) {
	raw, ok := e[name]
	if !ok || len(raw) == 0 {
		return false, nil
	}
	if err := json.Unmarshal(raw, v); err != nil {
		return true, err
	}
	return true, nil
}

// Set stores v under name, allocating the map when needed.
func Set(e *Extensions, name string, v any) error {
	raw, err := json.Marshal(v)
	if err != nil {
		return err
	}
	if *e == nil {
		*e = Extensions{}
	}
	(*e)[name] = raw
	return nil
}
