package symbols

import (
	"bytes"
	"context"
	"log/slog"
	"path"
	"regexp"
	"strings"

	"cix/internal/errors"
	"cix/internal/grammar"
	"cix/internal/parser"
)

// Extractor normalizes parser captures and documents into symbols and edges.
type Extractor struct {
	adapter    *parser.Adapter
	classifier *Classifier
	logger     *slog.Logger
	scip       *SCIPIndex
}

// NewExtractor creates an extractor.
func NewExtractor(adapter *parser.Adapter, classifier *Classifier, logger *slog.Logger) *Extractor {
	return &Extractor{
		adapter:    adapter,
		classifier: classifier,
		logger:     logger,
	}
}

// WithSCIP enables enrichment from a loaded SCIP index.
func (e *Extractor) WithSCIP(idx *SCIPIndex) *Extractor {
	e.scip = idx
	return e
}

// LanguageFor returns the language of a path, "" when it is neither code nor docs.
func (e *Extractor) LanguageFor(relPath string) string {
	if grammar.IsDoc(relPath) {
		return docLanguage(relPath)
	}
	return e.adapter.Registry().LanguageFor(relPath)
}

// ExtractFile extracts one file. On a ParseError the returned extraction still
// holds the File symbol so the file stays visible in the index.
func (e *Extractor) ExtractFile(ctx context.Context, relPath string, src []byte) (*FileExtraction, error) {
	if grammar.IsDoc(relPath) {
		return e.extractDoc(relPath, src)
	}

	lang := e.adapter.Registry().LanguageFor(relPath)
	if lang == "" {
		lang = grammar.GenericLanguage
	}
	fx := &FileExtraction{Path: relPath, Language: lang}

	res, err := e.adapter.Parse(ctx, relPath, src, lang)
	if err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		fx.Engine = parser.EngineFallback
		fx.Symbols = []Symbol{e.fileSymbol(relPath, lang, src, fx.Engine)}
		fx.Warnings = append(fx.Warnings, err.Error())
		return fx, err
	}

	fx.Engine = res.Engine
	fx.Partial = res.Partial
	fx.Warnings = append(fx.Warnings, res.Warnings...)
	fx.Symbols = append(fx.Symbols, e.fileSymbol(relPath, lang, src, res.Engine))

	b := newFileBuilder(relPath, lang, res.Engine)
	for _, c := range res.Captures {
		if c.IsDefinition() {
			b.define(c)
		}
	}
	for _, c := range res.Captures {
		if c.IsDefinition() {
			continue
		}
		if err := b.reference(c); err != nil {
			e.logger.Debug("reference dropped",
				"file", relPath,
				"line", c.StartLine,
				"error", err.Error(),
			)
		}
	}
	b.annotations()

	for i := range b.symbols {
		e.classifier.Apply(&b.symbols[i], b.kinds[i])
	}
	fx.Symbols = append(fx.Symbols, b.symbols...)
	fx.Edges = b.edges

	if e.scip != nil {
		e.scip.Enrich(fx)
	}
	return fx, nil
}

func (e *Extractor) fileSymbol(relPath, lang string, src []byte, engine string) Symbol {
	lines := bytes.Count(src, []byte("\n"))
	if len(src) > 0 && src[len(src)-1] != '\n' {
		lines++
	}
	s := Symbol{
		ID:            FileID(relPath),
		Name:          path.Base(relPath),
		Type:          TypeFile,
		QualifiedName: relPath,
		FilePath:      relPath,
		LineStart:     Ptr(1),
		LineEnd:       Ptr(max(lines, 1)),
		Language:      lang,
		Sources:       []string{engine},
	}
	e.classifier.Apply(&s, "")
	return s
}

// typeForKind maps a grammar kind to a symbol type. Functions directly
// inside a type-like scope are methods.
func typeForKind(kind string, scope []parser.Scope) SymbolType {
	switch kind {
	case grammar.KindClass:
		return TypeClass
	case grammar.KindMethod:
		return TypeMethod
	case grammar.KindFunction:
		if n := len(scope); n > 0 && scope[n-1].Class {
			return TypeMethod
		}
		return TypeFunction
	case grammar.KindInterface:
		return TypeInterface
	case grammar.KindStruct, grammar.KindTable:
		return TypeStruct
	case grammar.KindEnum:
		return TypeEnum
	case grammar.KindTrait:
		return TypeTrait
	case grammar.KindType:
		return TypeAlias
	}
	return TypeUnknown
}

// fileBuilder accumulates one file's symbols and edges.
type fileBuilder struct {
	path    string
	lang    string
	engine  string
	symbols []Symbol
	kinds   []string
	docs    []string
	// byQualified maps qualified names to the first symbol id defined with them.
	byQualified map[string]string
	byName      map[string][]string
	ids         map[string]bool
	edges       []Edge
	edgeSeen    map[string]bool
}

func newFileBuilder(path, lang, engine string) *fileBuilder {
	return &fileBuilder{
		path:        path,
		lang:        lang,
		engine:      engine,
		byQualified: make(map[string]string),
		byName:      make(map[string][]string),
		ids:         map[string]bool{FileID(path): true},
		edgeSeen:    make(map[string]bool),
	}
}

func scopeNames(scope []parser.Scope) []string {
	out := make([]string, len(scope))
	for i, s := range scope {
		out[i] = s.Name
	}
	return out
}

func (b *fileBuilder) define(c parser.Capture) {
	names := scopeNames(c.Scope)
	qualified := Qualify(names, c.Name)

	var id string
	switch {
	case c.Name == "":
		id = PositionalID(b.path, strings.Join(names, "."), c.StartLine, c.StartCol)
		qualified = ""
	case b.ids[ID(b.path, qualified)]:
		id = PositionalID(b.path, qualified, c.StartLine, c.StartCol)
	default:
		id = ID(b.path, qualified)
	}
	if b.ids[id] {
		return
	}
	b.ids[id] = true

	s := Symbol{
		ID:            id,
		Name:          c.Name,
		Type:          typeForKind(c.Kind, c.Scope),
		QualifiedName: qualified,
		FilePath:      b.path,
		LineStart:     Ptr(c.StartLine),
		LineEnd:       Ptr(max(c.EndLine, c.StartLine)),
		Language:      b.lang,
		Sources:       []string{b.engine},
	}
	if c.Doc != "" {
		s.Content = Ptr(c.Doc)
	}
	if c.Signature != "" {
		s.SetMeta("signature", c.Signature)
	}
	if s.Type == TypeUnknown || c.Kind == grammar.KindTable {
		s.SetMeta("kind", c.Kind)
	}
	if len(names) > 0 {
		s.SetMeta("container", strings.Join(names, "."))
	}

	b.symbols = append(b.symbols, s)
	b.kinds = append(b.kinds, c.Kind)
	b.docs = append(b.docs, c.Doc)
	if qualified != "" {
		if _, ok := b.byQualified[qualified]; !ok {
			b.byQualified[qualified] = id
		}
		b.byName[c.Name] = append(b.byName[c.Name], id)
	}
}

// sourceFor returns the innermost definition enclosing scope, else the File symbol.
func (b *fileBuilder) sourceFor(c parser.Capture) string {
	if c.Source != "" {
		if id, ok := b.byQualified[c.Source]; ok {
			return id
		}
		if ids := b.byName[c.Source]; len(ids) == 1 {
			return ids[0]
		}
	}
	names := scopeNames(c.Scope)
	for k := len(names); k > 0; k-- {
		if id, ok := b.byQualified[strings.Join(names[:k], ".")]; ok {
			return id
		}
	}
	return FileID(b.path)
}

// resolveLocal finds a same-file definition for name, preferring one in the
// caller's own class scope.
func (b *fileBuilder) resolveLocal(name string, scope []parser.Scope) (string, bool) {
	for k := len(scope); k > 0; k-- {
		if !scope[k-1].Class {
			continue
		}
		if id, ok := b.byQualified[Qualify(scopeNames(scope[:k]), name)]; ok {
			return id, true
		}
	}
	if id, ok := b.byQualified[name]; ok {
		return id, true
	}
	if ids := b.byName[name]; len(ids) == 1 {
		return ids[0], true
	}
	return "", false
}

func (b *fileBuilder) reference(c parser.Capture) error {
	name := strings.TrimSpace(c.Name)
	if name == "" {
		return errors.NewExtractionError(b.path, "reference capture without a name")
	}
	source := b.sourceFor(c)

	var (
		target string
		ref    RefType
		conf   Confidence
	)
	switch c.Tag {
	case grammar.TagCall:
		ref = RefCalls
		if id, ok := b.resolveLocal(name, c.Scope); ok {
			target, conf = id, ConfidenceHigh
		} else {
			target, conf = PlaceholderID(name), ConfidenceLow
		}
	case grammar.TagImport:
		module := strings.Trim(name, "\"'`<>")
		if module == "" {
			return errors.NewExtractionError(b.path, "empty import path")
		}
		target, ref, conf = ImportID(module), RefImports, ConfidenceHigh
	case grammar.TagExtends, grammar.TagImplements:
		ref = RefExtends
		if c.Tag == grammar.TagImplements {
			ref = RefImplements
		}
		conf = ConfidenceMedium
		if id, ok := b.resolveLocal(name, nil); ok {
			target = id
		} else {
			target = PlaceholderID(name)
		}
	default:
		ref, conf = RefReferences, ConfidenceMedium
		if id, ok := b.resolveLocal(name, nil); ok {
			target = id
		} else {
			target = PlaceholderID(name)
		}
	}
	b.addEdge(Edge{SourceID: source, TargetID: target, RefType: ref, Confidence: Ptr(conf), Line: c.StartLine})
	return nil
}

func (b *fileBuilder) addEdge(e Edge) {
	if b.edgeSeen[e.Key()] {
		return
	}
	b.edgeSeen[e.Key()] = true
	b.edges = append(b.edges, e)
}

var mapsAnnotation = regexp.MustCompile(`@maps-(to|from)\s+([A-Za-z_][\w.:/-]*)`)

// annotations turns @maps-to / @maps-from doc tags into MapsTo edges.
func (b *fileBuilder) annotations() {
	for i, doc := range b.docs {
		if doc == "" {
			continue
		}
		s := b.symbols[i]
		for _, m := range mapsAnnotation.FindAllStringSubmatch(doc, -1) {
			other := lineageRef(m[2])
			e := Edge{SourceID: s.ID, TargetID: other, RefType: RefMapsTo, Confidence: Ptr(ConfidenceHigh), Line: *s.LineStart}
			if m[1] == "from" {
				e.SourceID, e.TargetID = other, s.ID
			}
			b.addEdge(e)
		}
	}
}

// lineageRef treats a reference containing "::" as a symbol id and anything
// else as a name to resolve later.
func lineageRef(ref string) string {
	ref = strings.TrimRight(ref, ".,;:")
	if strings.Contains(ref, idSep) {
		return ref
	}
	return PlaceholderID(ref)
}
