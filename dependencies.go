package gltfx

// Lookup retrieves a typed dependency installed on an extension.
func Lookup[T any](e Extension, key string) (T, bool) {
	var zero T
	v, ok := e.extensionBase().Dependency(key)
	if !ok {
		return zero, false
	}
	if tv, ok := v.(T); ok {
		return tv, true
	}
	return zero, false
}

// Require returns the dependency or an ErrMissingDependency error naming
// the extension and key. A value of the wrong type counts as missing.
func Require[T any](e Extension, key string) (T, error) {
	if v, ok := Lookup[T](e, key); ok {
		return v, nil
	}
	var zero T
	return zero, MissingDependencyError(e.ExtensionName(), key)
}

// installDependencies hands every known dependency to the extension. Keys
// the extension does not declare are installed too; extensions ignore them.
func installDependencies(ext Extension, deps map[string]any) {
	for k, v := range deps {
		ext.Install(k, v)
	}
}
