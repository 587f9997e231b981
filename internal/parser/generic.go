package parser

import (
	"bytes"
	"strings"

	"cix/internal/grammar"
)

type frame struct {
	scope   Scope
	kind    string
	depth   int
	indent  int
	capture int
}

var classKinds = map[string]bool{
	grammar.KindClass:     true,
	grammar.KindStruct:    true,
	grammar.KindInterface: true,
	grammar.KindTrait:     true,
	grammar.KindEnum:      true,
	grammar.KindTable:     true,
}

// parseGeneric runs line patterns over src. Scopes follow block delimiters,
// or indentation when indent is set or the file has no opening delimiter.
func parseGeneric(patterns []grammar.Pattern, indent bool, blocks string, src []byte) *Result {
	if len(blocks) != 2 {
		blocks = "{}"
	}
	openCh, closeCh := blocks[0], blocks[1]
	indentMode := indent || bytes.IndexByte(src, openCh) < 0

	res := &Result{Engine: EngineFallback}
	var (
		stack    []frame
		pending  *frame
		depth    int
		doc      []string
		lastLine int
	)

	scopes := func() []Scope {
		out := make([]Scope, len(stack))
		for i, f := range stack {
			out[i] = f.scope
		}
		return out
	}
	pop := func(endLine int) {
		f := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		res.Captures[f.capture].EndLine = endLine
	}

	lines := strings.Split(string(src), "\n")
	for i, line := range lines {
		lineNo := i + 1
		trimmed := strings.TrimSpace(line)
		if trimmed == "" {
			doc = nil
			continue
		}
		width := indentWidth(line)

		if indentMode {
			for len(stack) > 0 && stack[len(stack)-1].indent >= width {
				pop(lastLine)
			}
		}
		lastLine = lineNo

		if isCommentLine(trimmed) {
			doc = append(doc, stripComment(trimmed))
			continue
		}

		var defScope *Scope
		defName := ""
		for _, p := range patterns {
			if p.Tag != grammar.TagDefinition || !within(p, stack) {
				continue
			}
			m := p.Regex.FindStringSubmatchIndex(line)
			if m == nil {
				continue
			}
			ni := p.Regex.SubexpIndex("name")
			if ni < 0 || m[2*ni] < 0 {
				continue
			}
			name := line[m[2*ni]:m[2*ni+1]]
			if grammar.Keywords[name] {
				continue
			}
			kind := p.Kind
			if ki := p.Regex.SubexpIndex("kind"); ki >= 0 && m[2*ki] >= 0 {
				kind = grammar.GenericKind(line[m[2*ki]:m[2*ki+1]])
			}
			res.Captures = append(res.Captures, Capture{
				Tag:       grammar.TagDefinition,
				Kind:      kind,
				Name:      name,
				StartLine: lineNo,
				StartCol:  m[2*ni] + 1,
				EndLine:   lineNo,
				EndCol:    len(line) + 1,
				Scope:     scopes(),
				Doc:       strings.TrimSpace(strings.Join(doc, "\n")),
				Signature: firstLine(trimmed),
			})
			defName = name
			defScope = &Scope{Name: name, Class: classKinds[kind]}
			if kind != grammar.KindColumn {
				pending = &frame{
					scope:   *defScope,
					kind:    kind,
					indent:  width,
					capture: len(res.Captures) - 1,
				}
			}
			break
		}
		doc = nil

		refScope := scopes()
		if defScope != nil {
			refScope = append(refScope, *defScope)
		}
		for _, p := range patterns {
			if p.Tag == grammar.TagDefinition || !within(p, stack) {
				continue
			}
			ni := p.Regex.SubexpIndex("name")
			if ni < 0 {
				continue
			}
			matches := p.Regex.FindAllStringSubmatchIndex(line, -1)
			if p.Tag != grammar.TagCall && len(matches) > 1 {
				matches = matches[:1]
			}
			for _, m := range matches {
				if m[2*ni] < 0 {
					continue
				}
				name := line[m[2*ni]:m[2*ni+1]]
				if p.Tag == grammar.TagCall && (grammar.Keywords[name] || name == defName) {
					continue
				}
				res.Captures = append(res.Captures, Capture{
					Tag:       p.Tag,
					Name:      name,
					StartLine: lineNo,
					StartCol:  m[2*ni] + 1,
					EndLine:   lineNo,
					EndCol:    m[1] + 1,
					Scope:     refScope,
				})
			}
			if p.Tag == grammar.TagImport && len(matches) > 0 {
				break
			}
		}

		if indentMode {
			if pending != nil {
				stack = append(stack, *pending)
				pending = nil
			}
			continue
		}
		for j := 0; j < len(line); j++ {
			switch line[j] {
			case openCh:
				depth++
				if pending != nil {
					pending.depth = depth
					stack = append(stack, *pending)
					pending = nil
				}
			case closeCh:
				if len(stack) > 0 && stack[len(stack)-1].depth == depth {
					pop(lineNo)
				}
				if depth > 0 {
					depth--
				}
			}
		}
		if pending != nil && strings.HasSuffix(trimmed, ";") {
			pending = nil
		}
	}

	for len(stack) > 0 {
		pop(lastLine)
	}
	return res
}

func within(p grammar.Pattern, stack []frame) bool {
	if p.Within == "" {
		return true
	}
	return len(stack) > 0 && stack[len(stack)-1].kind == p.Within
}

func indentWidth(line string) int {
	w := 0
	for _, r := range line {
		switch r {
		case ' ':
			w++
		case '\t':
			w += 4
		default:
			return w
		}
	}
	return w
}
