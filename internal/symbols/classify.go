package symbols

import (
	"path"
	"strings"

	"cix/internal/grammar"
	"cix/internal/modules"
)

var (
	databaseDirs = map[string]bool{
		"entity": true, "entities": true, "model": true, "models": true, "migration": true,
		"migrations": true, "schema": true, "schemas": true, "db": true, "database": true,
		"repository": true, "repositories": true, "dao": true, "sql": true,
	}
	viewDirs = map[string]bool{
		"view": true, "views": true, "template": true, "templates": true, "pages": true,
		"page": true, "layouts": true, "screens": true,
	}
	frontendDirs = map[string]bool{
		"components": true, "component": true, "frontend": true, "ui": true, "client": true,
		"web": true, "hooks": true, "store": true, "styles": true,
	}
	backendDirs = map[string]bool{
		"api": true, "service": true, "services": true, "server": true, "handler": true,
		"handlers": true, "controller": true, "controllers": true, "backend": true,
		"routes": true, "middleware": true,
	}

	databaseExts = map[string]bool{".sql": true, ".prisma": true}
	viewExts     = map[string]bool{".html": true, ".htm": true, ".vue": true, ".svelte": true, ".erb": true, ".hbs": true}
	frontendExts = map[string]bool{".tsx": true, ".jsx": true, ".css": true, ".scss": true}

	backendLanguages = map[string]bool{
		grammar.LangGo: true, grammar.LangRust: true, grammar.LangJava: true,
		grammar.LangKotlin: true, grammar.LangPython: true,
	}

	// Directories that group code without naming a feature.
	structuralDirs = map[string]bool{
		"src": true, "lib": true, "pkg": true, "internal": true, "app": true, "source": true,
		"main": true, "java": true, "kotlin": true, "com": true, "org": true,
	}
)

// Classifier derives layer and category for repo-relative paths.
type Classifier struct {
	overrides *modules.Overrides
}

// NewClassifier creates a classifier; overrides may be nil.
func NewClassifier(overrides *modules.Overrides) *Classifier {
	return &Classifier{overrides: overrides}
}

// DomainFor returns Doc for documentation files and Code otherwise.
func DomainFor(p string) Domain {
	if grammar.IsDoc(p) {
		return DomainDoc
	}
	return DomainCode
}

// Layer classifies a symbol. kind is the grammar definition kind, when known.
func (c *Classifier) Layer(p, lang, kind string) Layer {
	if m := c.overrides.Match(p); m != nil && m.Layer != "" {
		if l, ok := ParseLayer(m.Layer); ok {
			return l
		}
	}
	if kind == grammar.KindTable || kind == grammar.KindColumn {
		return LayerDatabase
	}

	ext := strings.ToLower(path.Ext(p))
	switch {
	case databaseExts[ext]:
		return LayerDatabase
	case viewExts[ext]:
		return LayerView
	}

	dirs := strings.Split(strings.ToLower(path.Dir(p)), "/")
	base := strings.TrimSuffix(strings.ToLower(path.Base(p)), ext)
	segments := append(dirs, base)
	for i := len(segments) - 1; i >= 0; i-- {
		s := segments[i]
		switch {
		case databaseDirs[s]:
			return LayerDatabase
		case viewDirs[s]:
			return LayerView
		case frontendDirs[s]:
			return LayerFrontend
		case backendDirs[s]:
			return LayerBackend
		}
	}

	switch {
	case frontendExts[ext]:
		return LayerFrontend
	case DomainFor(p) == DomainDoc:
		return LayerUnknown
	case backendLanguages[lang]:
		return LayerBackend
	}
	return LayerUnknown
}

// Category is the module override name, else the first meaningful directory
// segment, else "root".
func (c *Classifier) Category(p string) string {
	if m := c.overrides.Match(p); m != nil {
		return m.Name
	}
	dir := path.Dir(p)
	if dir == "." || dir == "/" {
		return "root"
	}
	for _, seg := range strings.Split(dir, "/") {
		if seg == "" || seg == "." || structuralDirs[strings.ToLower(seg)] {
			continue
		}
		return seg
	}
	return "root"
}

// Tags returns the declared module tags for p.
func (c *Classifier) Tags(p string) []string {
	if m := c.overrides.Match(p); m != nil {
		return m.Tags
	}
	return nil
}

// Apply fills domain, layer and category on a symbol.
func (c *Classifier) Apply(s *Symbol, kind string) {
	s.Domain = DomainFor(s.FilePath)
	s.Layer = c.Layer(s.FilePath, s.Language, kind)
	s.Category = c.Category(s.FilePath)
	if tags := c.Tags(s.FilePath); len(tags) > 0 {
		s.SetMeta("tags", tags)
	}
}
