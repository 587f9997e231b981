package modules

import (
	"strings"

	"github.com/bmatcuk/doublestar/v4"
)

// Module is a declared grouping of paths that overrides the directory-derived
// category of every symbol under it.
type Module struct {
	// ID is the stable module identifier
	ID string `json:"id"`

	// Name becomes the category of matching symbols
	Name string `json:"name"`

	// Paths are repo-relative globs (doublestar syntax) or plain directory prefixes
	Paths []string `json:"paths"`

	// Layer optionally forces the layer of matching symbols
	Layer string `json:"layer,omitempty"`

	// Tags are free-form labels copied into symbol metadata
	Tags []string `json:"tags,omitempty"`
}

// Matches reports whether a repo-relative path belongs to the module.
func (m *Module) Matches(path string) bool {
	for _, p := range m.Paths {
		if matchPath(p, path) {
			return true
		}
	}
	return false
}

func matchPath(pattern, path string) bool {
	pattern = strings.TrimPrefix(pattern, "./")
	if !strings.ContainsAny(pattern, "*?[{") {
		prefix := strings.TrimSuffix(pattern, "/")
		return path == prefix || strings.HasPrefix(path, prefix+"/")
	}
	ok, err := doublestar.Match(pattern, path)
	return err == nil && ok
}

// Overrides resolves paths to declared modules. The first declaration that
// matches wins, so more specific modules should be declared first.
type Overrides struct {
	modules []*Module
}

// NewOverrides wraps a list of declared modules.
func NewOverrides(modules []*Module) *Overrides {
	return &Overrides{modules: modules}
}

// Match returns the module owning path, or nil.
func (o *Overrides) Match(path string) *Module {
	if o == nil {
		return nil
	}
	for _, m := range o.modules {
		if m.Matches(path) {
			return m
		}
	}
	return nil
}

// Modules returns the declared modules in declaration order.
func (o *Overrides) Modules() []*Module {
	if o == nil {
		return nil
	}
	return o.modules
}

// Len returns the number of declared modules.
func (o *Overrides) Len() int {
	if o == nil {
		return 0
	}
	return len(o.modules)
}
