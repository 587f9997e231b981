package symbols

import (
	"fmt"
	"strings"
)

const idSep = "::"

// Placeholder prefixes for edge targets that are not symbols of a known file.
const (
	PlaceholderPrefix = "?::"
	ImportPrefix      = "import::"
)

// ID builds the stable id of a qualifiable symbol.
func ID(path, qualified string) string {
	return path + idSep + qualified
}

// FileID is the id of the File symbol for path.
func FileID(path string) string {
	return ID(path, path)
}

// PositionalID disambiguates anonymous or colliding captures with their position.
func PositionalID(path, qualified string, line, col int) string {
	base := path
	if qualified != "" {
		base = ID(path, qualified)
	}
	return fmt.Sprintf("%s%s%d:%d", base, idSep, line, col)
}

// PlaceholderID targets a symbol known only by name.
func PlaceholderID(name string) string {
	return PlaceholderPrefix + name
}

// ImportID targets an imported module.
func ImportID(module string) string {
	return ImportPrefix + module
}

// IsPlaceholder reports whether id is an unresolved name target.
func IsPlaceholder(id string) bool {
	return strings.HasPrefix(id, PlaceholderPrefix)
}

// IsImport reports whether id targets an imported module.
func IsImport(id string) bool {
	return strings.HasPrefix(id, ImportPrefix)
}

// PlaceholderName returns the name a placeholder id stands for.
func PlaceholderName(id string) (string, bool) {
	return strings.CutPrefix(id, PlaceholderPrefix)
}

// SplitID separates the file path from the rest of an id.
func SplitID(id string) (path, qualified string) {
	path, qualified, _ = strings.Cut(id, idSep)
	return path, qualified
}

// TargetName is the bare name an edge target refers to, used to match
// placeholders against symbol names.
func TargetName(id string) string {
	if name, ok := PlaceholderName(id); ok {
		return name
	}
	if mod, ok := strings.CutPrefix(id, ImportPrefix); ok {
		return mod
	}
	path, qualified := SplitID(id)
	if qualified == "" {
		return id
	}
	if qualified == path {
		return path
	}
	if i := strings.Index(qualified, idSep); i >= 0 {
		qualified = qualified[:i]
	}
	if i := strings.LastIndexByte(qualified, '.'); i >= 0 && i < len(qualified)-1 {
		return qualified[i+1:]
	}
	return qualified
}

// Qualify joins scope names and a local name.
func Qualify(scope []string, name string) string {
	if len(scope) == 0 {
		return name
	}
	return strings.Join(scope, ".") + "." + name
}
