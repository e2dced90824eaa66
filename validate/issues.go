package validate

import (
	"fmt"
	"strings"

	"github.com/cockroachdb/errors"
)

// Issue codes.
const (
	CodeInvalidJSON              = "INVALID_JSON"
	CodeDuplicateKey             = "JSON_DUPLICATE_KEY"
	CodeInvalidGLB               = "GLB_INVALID"
	CodeMissingAsset             = "ASSET_MISSING"
	CodeInvalidVersion           = "ASSET_INVALID_VERSION"
	CodeUnknownMajorVersion      = "ASSET_UNKNOWN_MAJOR_VERSION"
	CodeMinVersionGreater        = "ASSET_MIN_VERSION_GREATER_THAN_VERSION"
	CodeRequiredNotUsed          = "EXTENSION_REQUIRED_NOT_USED"
	CodeUnsupportedExtension     = "UNSUPPORTED_EXTENSION"
	CodeUnresolvedReference      = "UNRESOLVED_REFERENCE"
	CodeBufferByteLength         = "BUFFER_BYTE_LENGTH_MISMATCH"
	CodeBufferMissingURI         = "BUFFER_MISSING_URI"
	CodeIOError                  = "IO_ERROR"
	CodeBufferViewTooLong        = "BUFFER_VIEW_TOO_LONG"
	CodeBufferViewInvalidStride  = "BUFFER_VIEW_INVALID_BYTE_STRIDE"
	CodeAccessorTooLong          = "ACCESSOR_TOO_LONG"
	CodeMeshoptFallbackMisuse    = "MESHOPT_FALLBACK_MISUSE"
	CodeMeshoptFallbackReference = "MESHOPT_FALLBACK_REFERENCED_BY_PAYLOAD"
	CodeUnusedObject             = "UNUSED_OBJECT"
	CodeMaxDepth                 = "JSON_MAX_DEPTH"
	CodeResourceNotChecked       = "RESOURCE_NOT_CHECKED"
	CodeTruncated                = "ISSUES_TRUNCATED"
)

// Severity orders issues from most to least serious.
type Severity int

const (
	SeverityError Severity = iota
	SeverityWarning
	SeverityInfo
	SeverityHint
)

var severityNames = [...]string{"error", "warning", "info", "hint"}

func (s Severity) String() string {
	if s < 0 || int(s) >= len(severityNames) {
		return fmt.Sprintf("severity(%d)", int(s))
	}
	return severityNames[s]
}

// Severities lists every severity in report order.
func Severities() []Severity {
	return []Severity{SeverityError, SeverityWarning, SeverityInfo, SeverityHint}
}

// Issue is a single validation finding.
type Issue struct {
	Code     string
	Message  string
	Severity Severity
	Pointer  string // JSON Pointer (for example: /accessors/2/bufferView).
}

// Issues is a collection of findings that implements error.
type Issues []Issue

// Error summarizes the first few issues.
func (iss Issues) Error() string {
	if len(iss) == 0 {
		return ""
	}
	const maxShown = 3
	b := &strings.Builder{}
	n := len(iss)
	lim := min(n, maxShown)
	for i := 0; i < lim; i++ {
		if i > 0 {
			b.WriteString("; ")
		}
		it := iss[i]
		fmt.Fprintf(b, "%s at %s", it.Code, it.Pointer)
	}
	if n > lim {
		fmt.Fprintf(b, "; ... (total %d)", n)
	}
	return b.String()
}

// Filter returns the issues with the given severity.
func (iss Issues) Filter(s Severity) Issues {
	var out Issues
	for _, it := range iss {
		if it.Severity == s {
			out = append(out, it)
		}
	}
	return out
}

// AsIssues extracts Issues from an error using errors.As internally.
func AsIssues(err error) (Issues, bool) {
	if err == nil {
		return nil, false
	}
	var iss Issues
	if errors.As(err, &iss) {
		return iss, true
	}
	return nil, false
}
