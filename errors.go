package gltfx

import (
	"github.com/cockroachdb/errors"
)

// Error kinds. Use errors.Is to match them; the returned errors wrap these
// sentinels with context.
var (
	// ErrMissingDependency is returned when a required extension has no
	// codec installed under one of its dependency keys.
	ErrMissingDependency = errors.New("missing extension dependency")

	// ErrUnsupportedRuntime is returned when an installed codec reports that
	// no executable backend is available.
	ErrUnsupportedRuntime = errors.New("codec runtime unsupported")

	// ErrMissingBuffer is returned when an accessor that must be written has
	// no buffer to hold its bytes.
	ErrMissingBuffer = errors.New("missing buffer for accessor")

	// ErrInvariantViolation is returned when a graph operation would break
	// ownership rules, such as disposing a property that still has parents.
	ErrInvariantViolation = errors.New("graph invariant violation")

	// ErrExternalResourceUnavailable is returned when bytes of an external
	// resource that could not be loaded are dereferenced.
	ErrExternalResourceUnavailable = errors.New("external resource unavailable")

	// ErrUnsupportedVersion is returned for assets that are not glTF 2.x.
	ErrUnsupportedVersion = errors.New("unsupported glTF version")

	// ErrUnsupportedExtension is returned when a document requires an
	// extension that was not registered for I/O.
	ErrUnsupportedExtension = errors.New("unsupported required extension")

	// ErrInvalidGLB is returned for malformed GLB containers.
	ErrInvalidGLB = errors.New("invalid GLB container")

	// ErrInvalidAccessor is returned when accessor data does not fit the
	// buffer view it points at.
	ErrInvalidAccessor = errors.New("invalid accessor")

	// ErrUnsafeURI is returned when a resource URI is absolute or leaves
	// the directory it is resolved against.
	ErrUnsafeURI = errors.New("resource URI escapes base directory")
)

// MissingDependencyError reports an uninstalled dependency key of an
// extension.
func MissingDependencyError(extension, key string) error {
	err := errors.Wrapf(ErrMissingDependency, "[%s] please install extension dependency %q", extension, key)
	return errors.WithHintf(err, "register a codec with IO.RegisterDependencies(map[string]any{%q: ...})", key)
}

// UnsupportedRuntimeError reports a codec without an executable backend.
func UnsupportedRuntimeError(extension, key string) error {
	return errors.Wrapf(ErrUnsupportedRuntime, "[%s] dependency %q reports no runtime support", extension, key)
}
