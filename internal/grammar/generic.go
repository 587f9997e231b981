package grammar

import (
	"regexp"
)

// GenericLanguage is the id reported for files handled by the fallback table.
const GenericLanguage = "generic"

// genericExtensions are source files indexed with the generic patterns.
var genericExtensions = map[string]string{
	".c":      "c",
	".h":      "c",
	".cc":     "cpp",
	".cpp":    "cpp",
	".cxx":    "cpp",
	".hpp":    "cpp",
	".cs":     "csharp",
	".rb":     "ruby",
	".php":    "php",
	".swift":  "swift",
	".scala":  "scala",
	".lua":    "lua",
	".sh":     "shell",
	".bash":   "shell",
	".ex":     "elixir",
	".exs":    "elixir",
	".dart":   "dart",
	".vue":    "vue",
	".svelte": "svelte",
}

// Keywords are never reported as call targets by the generic engine.
var Keywords = map[string]bool{
	"if": true, "for": true, "while": true, "switch": true, "return": true, "catch": true,
	"function": true, "func": true, "def": true, "fn": true, "sizeof": true, "typeof": true,
	"elif": true, "else": true, "match": true, "case": true, "new": true, "await": true,
	"print": true, "super": true, "this": true, "self": true, "and": true, "or": true, "not": true,
	"with": true, "assert": true, "yield": true, "lambda": true, "in": true, "do": true,
	"foreach": true, "when": true, "until": true, "unless": true, "defer": true, "go": true,
}

var (
	genericFunction  = regexp.MustCompile(`^\s*(?:(?:export|public|private|protected|static|async|override|inline|extern|internal|open|suspend|pub(?:\([^)]*\))?)\s+)*(?:def|func|fn|function|fun|sub|proc|defp)\s+(?:\([^)]*\)\s*)?(?P<name>[A-Za-z_$][A-Za-z0-9_$!?]*)`)
	genericCFunction = regexp.MustCompile(`^[A-Za-z_][\w\s\*&:<>,]*?\b(?P<name>[A-Za-z_]\w*)\s*\([^;{}]*\)\s*(?:const\s*)?\{\s*$`)
	genericType      = regexp.MustCompile(`^\s*(?:(?:export|public|private|protected|abstract|final|sealed|data|open|internal|static|partial|pub(?:\([^)]*\))?)\s+)*(?P<kind>class|struct|interface|trait|enum|module|object|protocol|defmodule)\s+(?P<name>[A-Za-z_][\w.]*)`)
	genericImport    = regexp.MustCompile(`^\s*(?:import|from|require|use|using|include|#include|#import|alias)\s*\(?\s*["'<]?(?P<name>[A-Za-z0-9_./:@\\-]+)`)
	genericRequire   = regexp.MustCompile(`require\(\s*["'](?P<name>[^"']+)["']\s*\)`)
	genericCall      = regexp.MustCompile(`\b(?P<name>[A-Za-z_]\w*)\s*\(`)
)

func genericRuleSet() *RuleSet {
	return &RuleSet{
		Language: GenericLanguage,
		Patterns: []Pattern{
			{Tag: TagDefinition, Kind: KindClass, Regex: genericType},
			{Tag: TagDefinition, Kind: KindFunction, Regex: genericFunction},
			{Tag: TagDefinition, Kind: KindFunction, Regex: genericCFunction},
			{Tag: TagImport, Regex: genericImport},
			{Tag: TagImport, Regex: genericRequire},
			{Tag: TagCall, Regex: genericCall},
		},
	}
}

// GenericKind maps the "kind" group of the generic type pattern to a definition kind.
func GenericKind(raw string) string {
	switch raw {
	case "class", "object":
		return KindClass
	case "struct":
		return KindStruct
	case "interface", "protocol":
		return KindInterface
	case "trait":
		return KindTrait
	case "enum":
		return KindEnum
	case "module", "defmodule":
		return KindModule
	case "table":
		return KindTable
	case "column":
		return KindColumn
	}
	return raw
}

var (
	sqlTable      = regexp.MustCompile("(?i)^\\s*CREATE\\s+(?:TEMP(?:ORARY)?\\s+)?TABLE\\s+(?:IF\\s+NOT\\s+EXISTS\\s+)?(?:[\"`]?\\w+[\"`]?\\.)?[\"`]?(?P<name>[A-Za-z_]\\w*)")
	sqlView       = regexp.MustCompile("(?i)^\\s*CREATE\\s+(?:OR\\s+REPLACE\\s+)?VIEW\\s+(?:[\"`]?\\w+[\"`]?\\.)?[\"`]?(?P<name>[A-Za-z_]\\w*)")
	sqlColumn     = regexp.MustCompile("(?i)^\\s*[\"`]?(?P<name>[A-Za-z_]\\w*)[\"`]?\\s+(?:INT|INTEGER|BIGINT|SMALLINT|SERIAL|BIGSERIAL|TEXT|VARCHAR|CHAR|CHARACTER|BOOLEAN|BOOL|DATE|TIME|TIMESTAMP|TIMESTAMPTZ|DATETIME|REAL|FLOAT|DOUBLE|DECIMAL|NUMERIC|UUID|JSON|JSONB|BLOB|BYTEA|MONEY)\\b")
	sqlReferences = regexp.MustCompile("(?i)REFERENCES\\s+(?:[\"`]?\\w+[\"`]?\\.)?[\"`]?(?P<name>[A-Za-z_]\\w*)")
)

// sqlRules treats tables as structs and their columns as nested fields so
// column ids read as table.column.
func sqlRules() *RuleSet {
	return &RuleSet{
		Language:   LangSQL,
		Extensions: []string{".sql"},
		Patterns: []Pattern{
			{Tag: TagDefinition, Kind: KindTable, Regex: sqlTable},
			{Tag: TagDefinition, Kind: KindTable, Regex: sqlView},
			{Tag: TagDefinition, Kind: KindColumn, Regex: sqlColumn, Within: KindTable},
			{Tag: TagReference, Regex: sqlReferences},
		},
		Blocks: "()",
	}
}
