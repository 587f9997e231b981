package main

import (
	"encoding/json"
	"fmt"
	"sort"
	"strings"

	"cix/internal/envelope"
	"cix/internal/index"
	"cix/internal/migrate"
	"cix/internal/query"
	"cix/internal/storage"
	"cix/internal/symbols"
)

// OutputFormat represents the output format type
type OutputFormat string

const (
	FormatJSON  OutputFormat = "json"
	FormatHuman OutputFormat = "human"
)

// FormatResponse formats a response according to the specified format
func FormatResponse(resp interface{}, format OutputFormat) (string, error) {
	switch format {
	case FormatJSON:
		return formatJSON(resp)
	case FormatHuman:
		return formatHuman(resp)
	default:
		return "", fmt.Errorf("unsupported format: %s", format)
	}
}

// formatJSON formats the response as JSON
func formatJSON(resp interface{}) (string, error) {
	data, err := json.MarshalIndent(resp, "", "  ")
	if err != nil {
		return "", fmt.Errorf("failed to marshal JSON: %w", err)
	}
	return string(data), nil
}

// formatHuman formats an envelope in human-readable form. Unknown payloads
// fall back to JSON.
func formatHuman(resp interface{}) (string, error) {
	env, ok := resp.(*envelope.Response)
	if !ok {
		return formatJSON(resp)
	}

	var b strings.Builder
	switch v := env.Data.(type) {
	case *query.Stats:
		formatStatsHuman(&b, v)
	case []symbols.Symbol:
		for _, s := range v {
			fmt.Fprintf(&b, "%-14s %-10s %s\n", s.Type, s.Layer, symbolLine(s))
		}
	case *query.SymbolDetail:
		formatSymbolHuman(&b, v)
	case *query.Content:
		fmt.Fprintf(&b, "%s  %s%s\n\n", v.ID, v.FilePath, span(v.LineStart, v.LineEnd))
		b.WriteString(v.Content)
		b.WriteString("\n")
	case []query.SearchHit:
		for _, h := range v {
			fmt.Fprintf(&b, "%6.1f  %-9s %-14s %s\n", h.Score, h.MatchType, h.Type, symbolLine(h.Symbol))
		}
	case *query.Subgraph:
		formatSubgraphHuman(&b, v)
	case []query.HotspotEntry:
		for _, h := range v {
			fmt.Fprintf(&b, "%5d  (in %d, out %d)  %s\n", h.Degree, h.InCount, h.OutCount, symbolLine(h.Symbol))
		}
	case *query.Impact:
		formatImpactHuman(&b, v)
	case []query.LineageEntry:
		for _, l := range v {
			formatLineageHuman(&b, l)
		}
	case []storage.CategoryCount:
		for _, c := range v {
			fmt.Fprintf(&b, "%-24s %6d\n", c.Category, c.Count)
		}
	case *index.RunSummary:
		formatRunHuman(&b, v)
	case *migrate.Report:
		fmt.Fprintf(&b, "Migrated %s -> %s\n", v.From, v.Target)
		fmt.Fprintf(&b, "  symbols %d, edges %d, lineage records %d\n", v.Symbols, v.Edges, v.Lineage)
		fmt.Fprintf(&b, "  legacy lines %d (%d superseded)\n", v.LegacyLines, v.Superseded)
		fmt.Fprintf(&b, "  verification %s over %d records\n", v.Verification, v.Checked)
		if v.Backup != "" {
			fmt.Fprintf(&b, "  backup %s\n", v.Backup)
		}
	default:
		return formatJSON(resp)
	}

	formatMetaHuman(&b, env.Meta)
	return strings.TrimRight(b.String(), "\n"), nil
}

func formatMetaHuman(b *strings.Builder, meta interface{}) {
	switch m := meta.(type) {
	case *envelope.Meta:
		if m.Limit > 0 && m.Total > m.Limit {
			fmt.Fprintf(b, "\n%d of %d (offset %d, source %s)\n", m.Limit, m.Total, m.Offset, m.Source)
		}
		if m.Warning != "" {
			fmt.Fprintf(b, "\nwarning: %s\n", m.Warning)
		}
	case *envelope.GraphMeta:
		fmt.Fprintf(b, "\n%d nodes, %d edges, depth %d/%d", m.NodeCount, m.EdgeCount, m.DepthReached, m.Depth)
		if m.Truncated {
			b.WriteString(" (truncated)")
		}
		b.WriteString("\n")
		if m.Warning != "" {
			fmt.Fprintf(b, "warning: %s\n", m.Warning)
		}
	}
}

func formatStatsHuman(b *strings.Builder, s *query.Stats) {
	fmt.Fprintf(b, "Symbols: %d (code %d, doc %d) in %d files\n", s.TotalSymbols, s.CodeSymbols, s.DocSymbols, s.Files)
	fmt.Fprintf(b, "Edges:   %d\n", s.Edges)
	fmt.Fprintf(b, "Lineage: %d records\n", s.Lineage)
	if s.LastRun != nil {
		fmt.Fprintf(b, "Last run: %s (%s)\n", s.LastRun.At, s.LastRun.RunID)
	}
	if s.MigratedFrom != "" {
		fmt.Fprintf(b, "Migrated from: %s\n", s.MigratedFrom)
	}

	b.WriteString("\nBy layer:\n")
	for _, k := range sortedKeys(s.ByLayer) {
		fmt.Fprintf(b, "  %-14s %6d\n", k, s.ByLayer[k])
	}
	b.WriteString("\nBy type:\n")
	for _, k := range sortedKeys(s.ByType) {
		fmt.Fprintf(b, "  %-14s %6d\n", k, s.ByType[k])
	}
	if len(s.EdgesByRef) > 0 {
		b.WriteString("\nEdges by reference:\n")
		for _, k := range sortedKeys(s.EdgesByRef) {
			fmt.Fprintf(b, "  %-14s %6d\n", k, s.EdgesByRef[k])
		}
	}
}

func formatSymbolHuman(b *strings.Builder, d *query.SymbolDetail) {
	fmt.Fprintf(b, "%s\n", d.ID)
	fmt.Fprintf(b, "  %s %s (%s, %s)\n", d.Type, d.QualifiedName, d.Layer, d.Domain)
	fmt.Fprintf(b, "  %s%s\n", d.FilePath, span(d.LineStart, d.LineEnd))
	if d.Category != "" {
		fmt.Fprintf(b, "  category %s\n", d.Category)
	}
	fmt.Fprintf(b, "  edges in %d, out %d\n", d.InCount, d.OutCount)
}

func formatSubgraphHuman(b *strings.Builder, g *query.Subgraph) {
	for _, n := range g.Nodes {
		indent := strings.Repeat("  ", n.Depth)
		if n.Symbol != nil {
			fmt.Fprintf(b, "%s%s [%s]\n", indent, n.ID, n.Symbol.Type)
		} else {
			fmt.Fprintf(b, "%s%s (unresolved)\n", indent, n.ID)
		}
	}
	if len(g.Edges) > 0 {
		b.WriteString("\nEdges:\n")
		for _, e := range g.Edges {
			fmt.Fprintf(b, "  %s -%s-> %s\n", e.SourceID, e.RefType, e.TargetID)
		}
	}
}

func formatImpactHuman(b *strings.Builder, im *query.Impact) {
	fmt.Fprintf(b, "Impact of %s: %d affected\n", im.Target.ID, im.Total)
	for _, layer := range sortedKeys(im.ByLayer) {
		fmt.Fprintf(b, "\n%s:\n", layer)
		for _, a := range im.ByLayer[layer] {
			fmt.Fprintf(b, "  [%d] %s%s\n", a.Distance, a.ID, confidence(a.MinConfidence))
		}
	}
	if len(im.FieldPaths) > 0 {
		b.WriteString("\nField paths:\n")
		for _, p := range im.FieldPaths {
			mark := ""
			if !p.Complete {
				mark = " (incomplete)"
			}
			fmt.Fprintf(b, "  %s%s\n", strings.Join(p.Fields, " -> "), mark)
		}
	}
}

func formatLineageHuman(b *strings.Builder, l query.LineageEntry) {
	state := "complete"
	if !l.IsComplete {
		state = "incomplete"
	}
	fmt.Fprintf(b, "%s -> %s  (%d hops, %s%s)\n", l.SourceName, l.SinkName, l.PathLength, state, confidence(l.MinConfidence))
}

func formatRunHuman(b *strings.Builder, s *index.RunSummary) {
	fmt.Fprintf(b, "Run %s in %s\n", s.RunID, s.Duration())
	fmt.Fprintf(b, "  files scanned %d, parsed %d, deleted %d, renamed %d\n",
		s.FilesScanned, s.FilesParsed, s.FilesDeleted, s.FilesRenamed)
	fmt.Fprintf(b, "  symbols upserted %d, deleted %d\n", s.SymbolsChanged, s.SymbolsDeleted)
	if s.LineageRecomputed {
		fmt.Fprintf(b, "  lineage records %d\n", s.LineageRecords)
	}
	for _, e := range s.ParseErrors {
		fmt.Fprintf(b, "  error %s: %s\n", e.Path, e.Message)
	}
	for _, w := range s.Warnings {
		fmt.Fprintf(b, "  warning: %s\n", w)
	}
	if s.Interrupted {
		b.WriteString("  interrupted\n")
	}
}

func symbolLine(s symbols.Symbol) string {
	return s.QualifiedName + "  " + s.FilePath + span(s.LineStart, s.LineEnd)
}

func span(start, end *int) string {
	switch {
	case start == nil:
		return ""
	case end == nil || *end == *start:
		return fmt.Sprintf(":%d", *start)
	default:
		return fmt.Sprintf(":%d-%d", *start, *end)
	}
}

func confidence(c *symbols.Confidence) string {
	if c == nil {
		return ""
	}
	return fmt.Sprintf(", %s", *c)
}

func sortedKeys[K ~string, V any](m map[K]V) []K {
	keys := make([]K, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Slice(keys, func(i, j int) bool { return keys[i] < keys[j] })
	return keys
}
