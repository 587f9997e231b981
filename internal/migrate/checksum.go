package migrate

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"sort"
	"strconv"
	"strings"

	"cix/internal/symbols"
)

const fieldSep = "\x1f"

// Checksum is the sha256 over a canonical encoding of a symbol and the
// edges leaving it. Two records with equal checksums agree on every field
// and relationship.
func Checksum(s *symbols.Symbol, out []symbols.Edge) string {
	var b strings.Builder
	fields := []string{
		s.ID,
		s.Name,
		string(s.Type),
		s.QualifiedName,
		s.FilePath,
		intField(s.LineStart),
		intField(s.LineEnd),
		string(s.Domain),
		string(s.Layer),
		s.Category,
		stringField(s.Content),
		metadataField(s.Metadata),
		s.Language,
		strings.Join(s.Sources, ","),
	}
	b.WriteString(strings.Join(fields, fieldSep))

	keys := make([]string, 0, len(out))
	for _, e := range out {
		conf := "-"
		if e.Confidence != nil {
			conf = string(*e.Confidence)
		}
		keys = append(keys, strings.Join([]string{string(e.RefType), e.TargetID, conf, strconv.Itoa(e.Line)}, fieldSep))
	}
	sort.Strings(keys)
	for _, k := range keys {
		b.WriteString("\x1e")
		b.WriteString(k)
	}

	sum := sha256.Sum256([]byte(b.String()))
	return hex.EncodeToString(sum[:])
}

func intField(p *int) string {
	if p == nil {
		return "-"
	}
	return strconv.Itoa(*p)
}

func stringField(p *string) string {
	if p == nil {
		return "-"
	}
	return "=" + *p
}

// metadataField encodes metadata with sorted keys; an empty map and nil are
// the same value.
func metadataField(m map[string]any) string {
	if len(m) == 0 {
		return "{}"
	}
	data, err := json.Marshal(m)
	if err != nil {
		return "!"
	}
	return string(data)
}
