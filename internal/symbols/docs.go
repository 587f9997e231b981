package symbols

import (
	"bytes"
	"path"
	"regexp"
	"sort"
	"strings"

	md "github.com/JohannesKaufmann/html-to-markdown"
	"github.com/JohannesKaufmann/html-to-markdown/plugin"
	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/ast"
	"github.com/yuin/goldmark/text"
	"golang.org/x/net/html"
	"gopkg.in/yaml.v3"
)

// Doc languages reported on doc symbols.
const (
	LangMarkdown = "markdown"
	LangHTML     = "html"
	LangRST      = "rst"
	LangText     = "text"
)

func docLanguage(p string) string {
	switch strings.ToLower(path.Ext(p)) {
	case ".md", ".mdx", ".markdown":
		return LangMarkdown
	case ".html", ".htm":
		return LangHTML
	case ".rst":
		return LangRST
	}
	return LangText
}

var (
	frontMatterRe   = regexp.MustCompile(`(?s)\A---\r?\n(.*?)\r?\n---[ \t]*(?:\r?\n|\z)`)
	symbolDirective = regexp.MustCompile(`<!--\s*cix:symbol\s+(\S+?)\s*-->`)
	mapsDirective   = regexp.MustCompile(`<!--\s*cix:maps-to\s+(\S+)\s*->\s*(\S+?)\s*-->`)
	mentionRe       = regexp.MustCompile(`^[A-Za-z_]\w*(?:(?:\.|::)[A-Za-z_]\w*)*(?:\(\))?$`)
	setextUnderline = regexp.MustCompile(`^ {0,3}(?:=+|-+)[ \t]*$`)
	rstUnderline    = regexp.MustCompile(`^(?:={3,}|-{3,}|~{3,}|\^{3,}|\*{3,}|\+{3,}|#{3,}|"{3,}|'{3,})\s*$`)
)

func (e *Extractor) extractDoc(relPath string, src []byte) (*FileExtraction, error) {
	lang := docLanguage(relPath)
	fx := &FileExtraction{Path: relPath, Language: lang, Engine: SourceDocs}

	var d *docBuilder
	switch lang {
	case LangMarkdown:
		d = parseMarkdown(relPath, src, true)
	case LangHTML:
		converted, title, err := htmlToMarkdown(src)
		if err != nil {
			fx.Warnings = append(fx.Warnings, "html conversion failed: "+err.Error())
			d = plainDoc(relPath, src, "")
		} else {
			d = parseMarkdown(relPath, []byte(converted), false)
			if title != "" {
				d.page.Name = title
			}
			// comments do not survive conversion
			d.directives(0, string(src))
			d.page.SetMeta("converted_from", LangHTML)
		}
	case LangRST:
		d = plainDoc(relPath, src, rstTitle(src))
	default:
		d = plainDoc(relPath, src, "")
	}

	for _, s := range d.symbols() {
		s.Language = lang
		s.Sources = []string{SourceDocs}
		e.classifier.Apply(&s, "")
		fx.Symbols = append(fx.Symbols, s)
	}
	fx.Edges = d.edges
	return fx, nil
}

type heading struct {
	level int
	title string
	start int
	end   int
}

type mention struct {
	offset int
	text   string
}

type docSection struct {
	level     int
	symbol    Symbol
	start     int
	bodyStart int
	end       int
}

// docBuilder collects a document's page, sections and edges.
type docBuilder struct {
	path     string
	src      []byte
	lines    []int
	spans    bool
	page     Symbol
	sections []*docSection
	edges    []Edge
	seen     map[string]bool
}

func newDocBuilder(relPath string, src []byte, spans bool) *docBuilder {
	d := &docBuilder{
		path:  relPath,
		src:   src,
		lines: lineStarts(src),
		spans: spans,
		seen:  make(map[string]bool),
	}
	d.page = Symbol{
		ID:            FileID(relPath),
		Name:          strings.TrimSuffix(path.Base(relPath), path.Ext(relPath)),
		Type:          TypeDocPage,
		QualifiedName: relPath,
		FilePath:      relPath,
	}
	if spans {
		d.page.LineStart = Ptr(1)
		d.page.LineEnd = Ptr(max(len(d.lines), 1))
	}
	return d
}

func (d *docBuilder) symbols() []Symbol {
	out := []Symbol{d.page}
	for _, s := range d.sections {
		out = append(out, s.symbol)
	}
	return out
}

func plainDoc(relPath string, src []byte, title string) *docBuilder {
	d := newDocBuilder(relPath, src, true)
	body := string(src)
	if title != "" {
		d.page.Name = title
		if _, rest, ok := strings.Cut(body, title); ok {
			lines := strings.SplitN(strings.TrimLeft(rest, "\r\n"), "\n", 2)
			if len(lines) == 2 && rstUnderline.MatchString(lines[0]) {
				body = lines[1]
			}
		}
	}
	if content := strings.TrimSpace(body); content != "" {
		d.page.Content = Ptr(content)
	}
	d.directives(0, string(src))
	return d
}

func rstTitle(src []byte) string {
	lines := strings.Split(string(src), "\n")
	for i := 0; i+1 < len(lines); i++ {
		t := strings.TrimSpace(lines[i])
		if t == "" {
			continue
		}
		if rstUnderline.MatchString(strings.TrimSpace(lines[i+1])) && len(strings.TrimSpace(lines[i+1])) >= len(t) {
			return t
		}
		return ""
	}
	return ""
}

// parseMarkdown builds a DocPage and one DocSection per heading. A leading
// level-1 heading titles the page instead of opening a section.
func parseMarkdown(relPath string, src []byte, spans bool) *docBuilder {
	var front map[string]any
	if m := frontMatterRe.FindSubmatchIndex(src); m != nil {
		if err := yaml.Unmarshal(src[m[2]:m[3]], &front); err == nil {
			// blank the block so offsets and line numbers stay aligned
			blanked := append([]byte(nil), src...)
			for i := m[0]; i < m[1]; i++ {
				if blanked[i] != '\n' {
					blanked[i] = ' '
				}
			}
			src = blanked
		} else {
			front = nil
		}
	}

	d := newDocBuilder(relPath, src, spans)
	if len(front) > 0 {
		d.page.SetMeta("front_matter", front)
		if title, ok := front["title"].(string); ok && strings.TrimSpace(title) != "" {
			d.page.Name = strings.TrimSpace(title)
		}
	}

	root := goldmark.New().Parser().Parse(text.NewReader(src))

	var (
		headings []heading
		mentions []mention
	)
	_ = ast.Walk(root, func(n ast.Node, entering bool) (ast.WalkStatus, error) {
		if !entering {
			return ast.WalkContinue, nil
		}
		switch node := n.(type) {
		case *ast.Heading:
			if node.Lines().Len() == 0 {
				return ast.WalkSkipChildren, nil
			}
			line := d.lineOf(node.Lines().At(0).Start)
			last := d.lineOf(node.Lines().At(node.Lines().Len() - 1).Start)
			if last < len(d.lines) && setextUnderline.Match(d.lineBytes(last+1)) {
				last++
			}
			headings = append(headings, heading{
				level: node.Level,
				title: strings.TrimSpace(inlineText(node, src)),
				start: d.lines[line-1],
				end:   d.lineEndOffset(last),
			})
		case *ast.CodeSpan:
			if t, ok := node.FirstChild().(*ast.Text); ok {
				mentions = append(mentions, mention{offset: t.Segment.Start, text: inlineText(node, src)})
			}
			return ast.WalkSkipChildren, nil
		}
		return ast.WalkContinue, nil
	})

	introStart := 0
	if len(headings) > 0 && headings[0].level == 1 && strings.TrimSpace(string(src[:headings[0].start])) == "" {
		if _, titled := front["title"]; !titled {
			d.page.Name = headings[0].title
		}
		introStart = headings[0].end
		headings = headings[1:]
	}
	introEnd := len(src)
	if len(headings) > 0 {
		introEnd = headings[0].start
	}
	d.page.Content = d.contentBetween(introStart, introEnd)

	type open struct {
		level int
		title string
		id    string
	}
	var stack []open
	for i, h := range headings {
		for len(stack) > 0 && stack[len(stack)-1].level >= h.level {
			stack = stack[:len(stack)-1]
		}
		end := len(src)
		for _, next := range headings[i+1:] {
			if next.level <= h.level {
				end = next.start
				break
			}
		}
		titles := make([]string, 0, len(stack)+1)
		for _, o := range stack {
			titles = append(titles, o.title)
		}
		titles = append(titles, h.title)

		qualified := strings.Join(titles, " > ")
		line := d.lineOf(h.start)
		id := ID(relPath, qualified)
		if h.title == "" || d.seen[id] {
			id = PositionalID(relPath, qualified, line, 1)
		}
		d.seen[id] = true
		parent := d.page.ID
		if len(stack) > 0 {
			parent = stack[len(stack)-1].id
		}
		stack = append(stack, open{level: h.level, title: h.title, id: id})

		sec := &docSection{level: h.level, start: h.start, bodyStart: h.end, end: end}
		sec.symbol = Symbol{
			ID:            id,
			Name:          h.title,
			Type:          TypeDocSection,
			QualifiedName: qualified,
			FilePath:      relPath,
			Content:       d.contentBetween(h.end, end),
		}
		sec.symbol.SetMeta("level", h.level)
		sec.symbol.SetMeta("parent", parent)
		if spans {
			sec.symbol.LineStart = Ptr(line)
			sec.symbol.LineEnd = Ptr(d.lastLineBefore(end, line))
		}
		d.sections = append(d.sections, sec)
	}

	for _, m := range mentions {
		name := strings.TrimSuffix(strings.TrimSpace(m.text), "()")
		if len(name) < 3 || !mentionRe.MatchString(m.text) {
			continue
		}
		name = strings.ReplaceAll(name, "::", ".")
		d.addEdge(Edge{
			SourceID:   d.sourceAt(m.offset),
			TargetID:   PlaceholderID(name),
			RefType:    RefReferences,
			Confidence: Ptr(ConfidenceLow),
			Line:       d.lineOf(m.offset),
		})
	}
	d.directives(0, string(src))
	return d
}

// directives scans raw text for cix comment directives. offset locates
// text within the document for section attribution.
func (d *docBuilder) directives(offset int, raw string) {
	for _, m := range symbolDirective.FindAllStringSubmatchIndex(raw, -1) {
		pos := offset + m[0]
		d.addEdge(Edge{
			SourceID:   d.sourceAt(pos),
			TargetID:   lineageRef(raw[m[2]:m[3]]),
			RefType:    RefReferences,
			Confidence: Ptr(ConfidenceMedium),
			Line:       d.lineOf(pos),
		})
	}
	for _, m := range mapsDirective.FindAllStringSubmatchIndex(raw, -1) {
		pos := offset + m[0]
		d.addEdge(Edge{
			SourceID:   lineageRef(raw[m[2]:m[3]]),
			TargetID:   lineageRef(raw[m[4]:m[5]]),
			RefType:    RefMapsTo,
			Confidence: Ptr(ConfidenceHigh),
			Line:       d.lineOf(pos),
		})
	}
}

func (d *docBuilder) addEdge(e Edge) {
	if !d.spans {
		e.Line = 0
	}
	if d.seen["edge:"+e.Key()] {
		return
	}
	d.seen["edge:"+e.Key()] = true
	d.edges = append(d.edges, e)
}

// sourceAt attributes a position to a section when offsets are meaningful.
func (d *docBuilder) sourceAt(offset int) string {
	if !d.spans {
		return d.page.ID
	}
	return d.sectionFor(offset)
}

// sectionFor returns the innermost section containing offset, else the page.
func (d *docBuilder) sectionFor(offset int) string {
	id := d.page.ID
	for _, s := range d.sections {
		if s.start <= offset && offset < s.end {
			id = s.symbol.ID
		}
	}
	return id
}

func (d *docBuilder) contentBetween(start, end int) *string {
	if start >= end || start >= len(d.src) {
		return nil
	}
	content := strings.TrimSpace(string(d.src[start:min(end, len(d.src))]))
	if content == "" {
		return nil
	}
	return Ptr(content)
}

func lineStarts(src []byte) []int {
	starts := []int{0}
	for i, b := range src {
		if b == '\n' && i+1 < len(src) {
			starts = append(starts, i+1)
		}
	}
	return starts
}

// lineOf returns the 1-based line containing offset.
func (d *docBuilder) lineOf(offset int) int {
	return sort.Search(len(d.lines), func(i int) bool { return d.lines[i] > offset })
}

func (d *docBuilder) lineEndOffset(line int) int {
	if line < len(d.lines) {
		return d.lines[line]
	}
	return len(d.src)
}

// lastLineBefore is the last non-blank line before end, never before floor.
func (d *docBuilder) lastLineBefore(end, floor int) int {
	trimmed := bytes.TrimRight(d.src[:min(end, len(d.src))], " \t\r\n")
	if len(trimmed) == 0 {
		return floor
	}
	return max(d.lineOf(len(trimmed)-1), floor)
}

// lineBytes returns the text of a 1-based line without its newline.
func (d *docBuilder) lineBytes(line int) []byte {
	if line < 1 || line > len(d.lines) {
		return nil
	}
	return bytes.TrimRight(d.src[d.lines[line-1]:d.lineEndOffset(line)], "\r\n")
}

// inlineText concatenates the text segments under n.
func inlineText(n ast.Node, src []byte) string {
	var b strings.Builder
	_ = ast.Walk(n, func(c ast.Node, entering bool) (ast.WalkStatus, error) {
		if !entering {
			return ast.WalkContinue, nil
		}
		switch t := c.(type) {
		case *ast.Text:
			b.Write(t.Segment.Value(src))
			if t.SoftLineBreak() {
				b.WriteByte(' ')
			}
		case *ast.String:
			b.Write(t.Value)
		}
		return ast.WalkContinue, nil
	})
	return b.String()
}

// htmlToMarkdown converts an HTML document and returns its <title>.
func htmlToMarkdown(src []byte) (string, string, error) {
	conv := md.NewConverter("", true, nil)
	conv.Use(plugin.GitHubFlavored())
	out, err := conv.ConvertString(string(src))
	if err != nil {
		return "", "", err
	}
	return out, htmlTitle(src), nil
}

func htmlTitle(src []byte) string {
	doc, err := html.Parse(bytes.NewReader(src))
	if err != nil {
		return ""
	}
	var title string
	var find func(*html.Node)
	find = func(n *html.Node) {
		if title != "" {
			return
		}
		if n.Type == html.ElementNode && n.Data == "title" && n.FirstChild != nil {
			title = strings.TrimSpace(n.FirstChild.Data)
			return
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			find(c)
		}
	}
	find(doc)
	return title
}
