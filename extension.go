package gltfx

import (
	"context"
	"maps"
)

// Extension is a document-level participant in reading and writing, one
// instance per extension name per document. Concrete extensions embed
// ExtensionBase and add the capability interfaces they need.
type Extension interface {
	Property
	ExtensionName() string
	IsRequired() bool
	SetRequired(required bool)
	// Install stores a runtime dependency under key. Repeated calls
	// replace the previous value.
	Install(key string, dependency any)

	extensionBase() *ExtensionBase
}

// ExtensionType registers an extension with an IO and creates instances
// for a document.
type ExtensionType struct {
	Name string
	New  func() Extension
}

// ReadParticipant is implemented by extensions that hook into reading.
type ReadParticipant interface {
	Extension
	ReadDependencies() []string
	// PrereadTypes lists the phases Preread is called for, among
	// PropertyBuffer and PropertyPrimitive.
	PrereadTypes() []PropertyType
	// BeginRead returns a session holding all state of one read.
	BeginRead(ctx context.Context, rc *ReaderContext) (ReadSession, error)
}

// ReadSession is the per-read state of an extension.
type ReadSession interface {
	Preread(ctx context.Context, t PropertyType) error
	Read(ctx context.Context) error
}

// WriteParticipant is implemented by extensions that hook into writing.
type WriteParticipant interface {
	Extension
	WriteDependencies() []string
	// PrewriteTypes lists the phases Prewrite is called for, among
	// PropertyAccessor and PropertyBuffer. Accessors always come first.
	PrewriteTypes() []PropertyType
	// BeginWrite returns a session holding all state of one write.
	BeginWrite(ctx context.Context, wc *WriterContext) (WriteSession, error)
}

// WriteSession is the per-write state of an extension. Close is called
// once the write ends, whether it succeeded or not.
type WriteSession interface {
	Prewrite(ctx context.Context, t PropertyType) error
	Write(ctx context.Context) error
	Close() error
}

// ExtensionBase implements the Extension bookkeeping shared by every
// extension.
type ExtensionBase struct {
	propertyBase
	extensionName string
	required      bool
	dependencies  map[string]any
}

func (e *ExtensionBase) extensionBase() *ExtensionBase { return e }

func (e *ExtensionBase) PropertyType() PropertyType { return PropertyExtension }

func (e *ExtensionBase) ExtensionName() string { return e.extensionName }

func (e *ExtensionBase) IsRequired() bool { return e.required }

func (e *ExtensionBase) SetRequired(required bool) { e.required = required }

func (e *ExtensionBase) Install(key string, dependency any) {
	if e.dependencies == nil {
		e.dependencies = map[string]any{}
	}
	e.dependencies[key] = dependency
}

// Dependency returns the value installed under key.
func (e *ExtensionBase) Dependency(key string) (any, bool) {
	v, ok := e.dependencies[key]
	return v, ok && v != nil
}

// Dependencies returns a copy of the installed dependencies.
func (e *ExtensionBase) Dependencies() map[string]any {
	return maps.Clone(e.dependencies)
}

// NoopReadSession is returned by optional extensions that cannot read.
type NoopReadSession struct{}

func (NoopReadSession) Preread(context.Context, PropertyType) error { return nil }
func (NoopReadSession) Read(context.Context) error                  { return nil }

// NoopWriteSession is returned by optional extensions that cannot write.
type NoopWriteSession struct{}

func (NoopWriteSession) Prewrite(context.Context, PropertyType) error { return nil }
func (NoopWriteSession) Write(context.Context) error                  { return nil }
func (NoopWriteSession) Close() error                                 { return nil }
