package validate

import "fmt"

// Translator renders issue messages. Args follow the order of the
// built-in English templates.
type Translator interface {
	Message(code string, args ...any) string
}

type dictTranslator map[string]string

func (t dictTranslator) Message(code string, args ...any) string {
	tmpl, ok := t[code]
	if !ok {
		return code
	}
	return fmt.Sprintf(tmpl, args...)
}

var english = dictTranslator{
	CodeInvalidJSON:              "invalid JSON: %v",
	CodeDuplicateKey:             "duplicate key %q",
	CodeMaxDepth:                 "nesting deeper than %d levels",
	CodeInvalidGLB:               "invalid GLB container: %v",
	CodeMissingAsset:             "asset object is missing",
	CodeInvalidVersion:           "version %q is not a valid version string",
	CodeUnknownMajorVersion:      "unknown glTF major version %q",
	CodeMinVersionGreater:        "minVersion %q is greater than version %q",
	CodeRequiredNotUsed:          "extension %q is required but not listed in extensionsUsed",
	CodeUnsupportedExtension:     "extension %q is not supported by the validator",
	CodeUnresolvedReference:      "index %d does not resolve; %s has %d entries",
	CodeBufferByteLength:         "byteLength %d exceeds the %d bytes of the resource",
	CodeBufferMissingURI:         "buffer has no uri and is not the GLB binary chunk",
	CodeIOError:                  "resource %q could not be loaded: %v",
	CodeResourceNotChecked:       "resource %q was not loaded, its byteLength is unchecked",
	CodeBufferViewTooLong:        "range [%d, %d) exceeds buffer byteLength %d",
	CodeBufferViewInvalidStride:  "byteStride %d is not a multiple of 4 in [4, 252]",
	CodeAccessorTooLong:          "accessor needs %d bytes, buffer view has %d",
	CodeMeshoptFallbackMisuse:    "buffer view uses fallback buffer %d without a compression payload",
	CodeMeshoptFallbackReference: "compression payload points at fallback buffer %d",
	CodeUnusedObject:             "%s is not referenced",
	CodeTruncated:                "stopped after %d issues",
}

var translator Translator = english

// SetTranslator replaces the message renderer. Nil restores English.
func SetTranslator(t Translator) {
	if t == nil {
		t = english
	}
	translator = t
}

func message(code string, args ...any) string { return translator.Message(code, args...) }
