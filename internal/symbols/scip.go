package symbols

import (
	"fmt"
	"os"
	"strings"

	scippb "github.com/sourcegraph/scip/bindings/go/scip"
	"google.golang.org/protobuf/proto"

	"cix/internal/errors"
)

// SCIPIndex is a loaded SCIP index reduced to what enrichment needs.
type SCIPIndex struct {
	docs map[string][]scipOccurrence
	// defined holds every symbol with a definition occurrence in the index.
	defined map[string]bool
	docText map[string]string
}

type scipOccurrence struct {
	symbol string
	name   string
	line   int
	def    bool
}

// LoadSCIP reads a SCIP protobuf index from disk.
func LoadSCIP(path string) (*SCIPIndex, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, errors.NewNotFoundError("scip index", path)
		}
		return nil, fmt.Errorf("read scip index: %w", err)
	}

	var index scippb.Index
	if err := proto.Unmarshal(data, &index); err != nil {
		return nil, fmt.Errorf("parse scip index %s: %w", path, err)
	}
	return newSCIPIndex(&index), nil
}

func newSCIPIndex(index *scippb.Index) *SCIPIndex {
	idx := &SCIPIndex{
		docs:    make(map[string][]scipOccurrence),
		defined: make(map[string]bool),
		docText: make(map[string]string),
	}
	for _, doc := range index.Documents {
		for _, info := range doc.Symbols {
			if len(info.Documentation) > 0 {
				idx.docText[info.Symbol] = strings.TrimSpace(strings.Join(info.Documentation, "\n\n"))
			}
		}
		occs := make([]scipOccurrence, 0, len(doc.Occurrences))
		for _, occ := range doc.Occurrences {
			name := scipName(occ.Symbol)
			if name == "" || len(occ.Range) < 3 {
				continue
			}
			def := occ.SymbolRoles&int32(scippb.SymbolRole_Definition) != 0
			if def {
				idx.defined[occ.Symbol] = true
			}
			occs = append(occs, scipOccurrence{
				symbol: occ.Symbol,
				name:   name,
				line:   int(occ.Range[0]) + 1,
				def:    def,
			})
		}
		idx.docs[doc.RelativePath] = occs
	}
	return idx
}

// scipName extracts the simple name from a global SCIP symbol. Local
// symbols yield "".
func scipName(symbol string) string {
	if symbol == "" || strings.HasPrefix(symbol, "local ") {
		return ""
	}
	parts := strings.SplitN(symbol, " ", 5)
	if len(parts) < 5 {
		return ""
	}
	d := strings.TrimRight(parts[4], ".#:!")
	if strings.HasSuffix(d, ")") {
		if i := strings.LastIndexByte(d, '('); i > 0 {
			d = d[:i]
		}
	}
	d = strings.TrimRight(d, ".#")
	if i := strings.LastIndexAny(d, "/#.`"); i >= 0 {
		d = d[i+1:]
	}
	return strings.Trim(d, "`")
}

// Documents returns the number of documents in the index.
func (idx *SCIPIndex) Documents() int {
	return len(idx.docs)
}

// Enrich matches the file's definitions against SCIP definitions by name and
// line, then adds High-confidence edges for references to indexed symbols.
func (idx *SCIPIndex) Enrich(fx *FileExtraction) int {
	occs, ok := idx.docs[fx.Path]
	if !ok {
		return 0
	}

	local := make(map[string]string)
	matched := 0
	for _, occ := range occs {
		if !occ.def {
			continue
		}
		i := innermost(fx.Symbols, occ.line, func(s *Symbol) bool { return s.Name == occ.name })
		if i < 0 {
			continue
		}
		s := &fx.Symbols[i]
		s.AddSource(SourceSCIP)
		s.SetMeta("scip_symbol", occ.symbol)
		if s.Content == nil {
			if doc := idx.docText[occ.symbol]; doc != "" {
				s.Content = Ptr(doc)
			}
		}
		local[occ.symbol] = s.ID
		matched++
	}

	for _, occ := range occs {
		if occ.def || !idx.defined[occ.symbol] {
			continue
		}
		source := FileID(fx.Path)
		if i := innermost(fx.Symbols, occ.line, nil); i >= 0 {
			source = fx.Symbols[i].ID
		}
		if upgraded := upgradeEdge(fx.Edges, source, occ.name); upgraded {
			continue
		}
		target, ok := local[occ.symbol]
		if !ok {
			target = PlaceholderID(occ.name)
		}
		if target == source {
			continue
		}
		e := Edge{SourceID: source, TargetID: target, RefType: RefReferences, Confidence: Ptr(ConfidenceHigh), Line: occ.line}
		dup := false
		for _, have := range fx.Edges {
			if have.Key() == e.Key() {
				dup = true
				break
			}
		}
		if !dup {
			fx.Edges = append(fx.Edges, e)
		}
	}
	return matched
}

// innermost returns the index of the narrowest non-File symbol whose span
// contains line and that satisfies keep, or -1.
func innermost(syms []Symbol, line int, keep func(*Symbol) bool) int {
	best := -1
	for i := range syms {
		s := &syms[i]
		if s.Type == TypeFile || s.LineStart == nil || s.LineEnd == nil {
			continue
		}
		if line < *s.LineStart || line > *s.LineEnd {
			continue
		}
		if keep != nil && !keep(s) {
			continue
		}
		if best < 0 || *s.LineStart > *syms[best].LineStart {
			best = i
		}
	}
	return best
}

// upgradeEdge raises an existing edge from source to name to High confidence.
func upgradeEdge(edges []Edge, source, name string) bool {
	for i := range edges {
		e := &edges[i]
		if e.SourceID != source || e.RefType == RefImports || TargetName(e.TargetID) != name {
			continue
		}
		e.Confidence = Ptr(ConfidenceHigh)
		return true
	}
	return false
}
