// Package symbols turns parser captures and documentation into the typed
// Symbol and Edge records held by the store.
package symbols

import "strings"

// SymbolType is the kind of a symbol, stored as its name.
type SymbolType string

const (
	TypeClass      SymbolType = "Class"
	TypeMethod     SymbolType = "Method"
	TypeFunction   SymbolType = "Function"
	TypeInterface  SymbolType = "Interface"
	TypeStruct     SymbolType = "Struct"
	TypeEnum       SymbolType = "Enum"
	TypeTrait      SymbolType = "Trait"
	TypeAlias      SymbolType = "TypeAlias"
	TypeImport     SymbolType = "Import"
	TypeFile       SymbolType = "File"
	TypeDocSection SymbolType = "DocSection"
	TypeDocPage    SymbolType = "DocPage"
	TypeUnknown    SymbolType = "Unknown"
)

// AllTypes lists every symbol type in declaration order.
var AllTypes = []SymbolType{
	TypeClass, TypeMethod, TypeFunction, TypeInterface, TypeStruct, TypeEnum, TypeTrait,
	TypeAlias, TypeImport, TypeFile, TypeDocSection, TypeDocPage, TypeUnknown,
}

// ParseSymbolType matches a type name case-insensitively.
func ParseSymbolType(s string) (SymbolType, bool) {
	for _, t := range AllTypes {
		if strings.EqualFold(string(t), s) {
			return t, true
		}
	}
	return "", false
}

// Domain separates code from documentation.
type Domain string

const (
	DomainCode Domain = "Code"
	DomainDoc  Domain = "Doc"
)

// ParseDomain matches a domain name case-insensitively.
func ParseDomain(s string) (Domain, bool) {
	for _, d := range []Domain{DomainCode, DomainDoc} {
		if strings.EqualFold(string(d), s) {
			return d, true
		}
	}
	return "", false
}

// Layer is the architectural layer derived from path and content.
type Layer string

const (
	LayerBackend  Layer = "Backend"
	LayerFrontend Layer = "Frontend"
	LayerDatabase Layer = "Database"
	LayerView     Layer = "View"
	LayerUnknown  Layer = "Unknown"
)

// AllLayers lists every layer.
var AllLayers = []Layer{LayerBackend, LayerFrontend, LayerDatabase, LayerView, LayerUnknown}

// ParseLayer matches a layer name case-insensitively.
func ParseLayer(s string) (Layer, bool) {
	for _, l := range AllLayers {
		if strings.EqualFold(string(l), s) {
			return l, true
		}
	}
	return "", false
}

// RefType is the relationship carried by an edge.
type RefType string

const (
	RefCalls      RefType = "Calls"
	RefImports    RefType = "Imports"
	RefExtends    RefType = "Extends"
	RefImplements RefType = "Implements"
	RefMapsTo     RefType = "MapsTo"
	RefReferences RefType = "References"
)

// AllRefTypes lists every edge type.
var AllRefTypes = []RefType{RefCalls, RefImports, RefExtends, RefImplements, RefMapsTo, RefReferences}

// ParseRefType matches an edge type name case-insensitively.
func ParseRefType(s string) (RefType, bool) {
	for _, r := range AllRefTypes {
		if strings.EqualFold(string(r), s) {
			return r, true
		}
	}
	return "", false
}

// Edge table partitions.
const (
	PartitionCalls       = "calls"
	PartitionImports     = "imports"
	PartitionInheritance = "inheritance"
	PartitionMapping     = "mapping"
)

// Partition names the edge table holding this ref type.
func (r RefType) Partition() string {
	switch r {
	case RefCalls:
		return PartitionCalls
	case RefImports:
		return PartitionImports
	case RefExtends, RefImplements:
		return PartitionInheritance
	default:
		return PartitionMapping
	}
}

// Confidence grades how sure the extractor is about an edge.
type Confidence string

const (
	ConfidenceHigh   Confidence = "High"
	ConfidenceMedium Confidence = "Medium"
	ConfidenceLow    Confidence = "Low"
)

// Rank orders confidences; an unknown value ranks below Low.
func (c Confidence) Rank() int {
	switch c {
	case ConfidenceHigh:
		return 3
	case ConfidenceMedium:
		return 2
	case ConfidenceLow:
		return 1
	}
	return 0
}

// ParseConfidence matches a confidence name case-insensitively.
func ParseConfidence(s string) (Confidence, bool) {
	for _, c := range []Confidence{ConfidenceHigh, ConfidenceMedium, ConfidenceLow} {
		if strings.EqualFold(string(c), s) {
			return c, true
		}
	}
	return "", false
}

// MinConfidence returns the weaker of two confidences. A nil side is ignored.
func MinConfidence(a, b *Confidence) *Confidence {
	switch {
	case a == nil:
		return b
	case b == nil:
		return a
	case b.Rank() < a.Rank():
		return b
	}
	return a
}

// Provenance values recorded in Symbol.Sources.
const (
	SourceTreeSitter = "treesitter"
	SourceFallback   = "fallback"
	SourceDocs       = "docs"
	SourceSCIP       = "scip"
	SourceLegacy     = "legacy"
)

// Symbol is a named code or documentation unit.
type Symbol struct {
	ID            string         `json:"id"`
	Name          string         `json:"name"`
	Type          SymbolType     `json:"type"`
	QualifiedName string         `json:"qualified_name"`
	FilePath      string         `json:"file_path"`
	LineStart     *int           `json:"line_start"`
	LineEnd       *int           `json:"line_end"`
	Domain        Domain         `json:"domain"`
	Layer         Layer          `json:"layer"`
	Category      string         `json:"category"`
	Content       *string        `json:"content"`
	Metadata      map[string]any `json:"metadata,omitempty"`
	Language      string         `json:"language,omitempty"`
	Sources       []string       `json:"sources,omitempty"`
}

// AddSource records a provenance value once.
func (s *Symbol) AddSource(src string) {
	for _, have := range s.Sources {
		if have == src {
			return
		}
	}
	s.Sources = append(s.Sources, src)
}

// SetMeta sets a metadata key, allocating the map on first use.
func (s *Symbol) SetMeta(key string, value any) {
	if s.Metadata == nil {
		s.Metadata = make(map[string]any)
	}
	s.Metadata[key] = value
}

// Edge is a directed relationship between two symbols. TargetID may dangle.
type Edge struct {
	SourceID   string      `json:"source_id"`
	TargetID   string      `json:"target_id"`
	RefType    RefType     `json:"ref_type"`
	Confidence *Confidence `json:"confidence"`
	Line       int         `json:"line,omitempty"`
}

// Key identifies an edge for deduplication.
func (e Edge) Key() string {
	return e.SourceID + "\x00" + string(e.RefType) + "\x00" + e.TargetID
}

// LineageRecord is a resolved path from a data source to a data sink.
type LineageRecord struct {
	ID            string      `json:"id"`
	SourceID      string      `json:"source_id"`
	SinkID        string      `json:"sink_id"`
	PathLength    int         `json:"path_length"`
	MinConfidence *Confidence `json:"min_confidence"`
	IsComplete    bool        `json:"is_complete"`
	Path          []string    `json:"path"`
}

// FileExtraction is everything extracted from one file.
type FileExtraction struct {
	Path     string
	Language string
	Engine   string
	Symbols  []Symbol
	Edges    []Edge
	Warnings []string
	// Partial is set when the file parsed with errors.
	Partial bool
}

// Ptr returns a pointer to v.
func Ptr[T any](v T) *T {
	return &v
}
