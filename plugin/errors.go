package plugin

import "fmt"

// LoadError reports a plugin name that matches neither a registered plugin
// nor an executable. The plugin is skipped.
type LoadError struct {
	Name string
	Err  error
}

func (e *LoadError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("cannot load plugin %q: %v", e.Name, e.Err)
	}
	return fmt.Sprintf("cannot load plugin %q", e.Name)
}

func (e *LoadError) Kind() string  { return "PluginLoadError" }
func (e *LoadError) Unwrap() error { return e.Err }

// RuntimeError reports a plugin that panicked or failed while running. The
// stream it received passes through unchanged.
type RuntimeError struct {
	Name string
	Err  error
}

func (e *RuntimeError) Error() string {
	return fmt.Sprintf("plugin %q failed: %v", e.Name, e.Err)
}

func (e *RuntimeError) Kind() string  { return "PluginRuntimeError" }
func (e *RuntimeError) Unwrap() error { return e.Err }

// IncompatibleAPIVersionError reports a subprocess plugin speaking a wire
// protocol with a different major version.
type IncompatibleAPIVersionError struct {
	Name string
	Got  string
	Want string
}

func (e *IncompatibleAPIVersionError) Error() string {
	return fmt.Sprintf("plugin %q speaks api version %s, want %s", e.Name, e.Got, e.Want)
}

func (e *IncompatibleAPIVersionError) Kind() string { return "IncompatibleApiVersion" }

// diagnostic is an error reported by a plugin about the ledger rather than
// about its own execution. It keeps the kind the plugin assigned.
type diagnostic struct {
	kind    string
	message string
}

func (e *diagnostic) Error() string { return e.message }
func (e *diagnostic) Kind() string  { return e.kind }
