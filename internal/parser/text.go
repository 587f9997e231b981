package parser

import (
	"strings"
)

func firstLine(s string) string {
	if i := strings.IndexByte(s, '\n'); i >= 0 {
		s = s[:i]
	}
	s = strings.TrimSpace(s)
	if len(s) > 200 {
		s = s[:200]
	}
	return s
}

var commentMarkers = []string{"///", "//!", "//", "/**", "/*", "*/", "#", "--", ";;"}

// stripComment removes comment markers from each line of a comment block.
func stripComment(text string) string {
	lines := strings.Split(text, "\n")
	out := make([]string, 0, len(lines))
	for _, line := range lines {
		line = strings.TrimSpace(line)
		line = strings.TrimSuffix(line, "*/")
		for _, m := range commentMarkers {
			if strings.HasPrefix(line, m) {
				line = strings.TrimPrefix(line, m)
				break
			}
		}
		line = strings.TrimPrefix(strings.TrimSpace(line), "* ")
		if line == "*" {
			line = ""
		}
		out = append(out, strings.TrimSpace(line))
	}
	return strings.TrimSpace(strings.Join(out, "\n"))
}

// isCommentLine reports whether a trimmed line is a whole-line comment.
func isCommentLine(trimmed string) bool {
	for _, m := range commentMarkers {
		if strings.HasPrefix(trimmed, m) {
			return !strings.HasPrefix(trimmed, "#include") && !strings.HasPrefix(trimmed, "#import")
		}
	}
	return strings.HasPrefix(trimmed, "* ") || trimmed == "*"
}
