package grammar

import (
	"errors"
	"fmt"
	"io/fs"
	"regexp"

	"github.com/BurntSushi/toml"
)

// overrideFile is the shape of .cix/grammars.toml:
//
//	[[language]]
//	id = "elixir"
//	extensions = [".ex", ".exs"]
//	  [[language.pattern]]
//	  tag = "definition"
//	  kind = "function"
//	  regex = '^\s*def\s+(?P<name>\w+)'
type overrideFile struct {
	Language []overrideLanguage `toml:"language"`
}

type overrideLanguage struct {
	ID         string            `toml:"id"`
	Extensions []string          `toml:"extensions"`
	Indent     bool              `toml:"indent"`
	Blocks     string            `toml:"blocks"`
	Pattern    []overridePattern `toml:"pattern"`
}

type overridePattern struct {
	Tag    string `toml:"tag"`
	Kind   string `toml:"kind"`
	Regex  string `toml:"regex"`
	Within string `toml:"within"`
}

// LoadOverrides applies a grammars.toml file to the registry. A missing file
// is not an error. Languages that already exist gain the listed extensions
// and patterns; new ids are registered as pattern-only rule sets.
func (r *Registry) LoadOverrides(path string) (int, error) {
	var file overrideFile
	if _, err := toml.DecodeFile(path, &file); err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return 0, nil
		}
		return 0, fmt.Errorf("parsing %s: %w", path, err)
	}

	applied := 0
	for _, lang := range file.Language {
		if lang.ID == "" {
			return applied, fmt.Errorf("%s: language entry without id", path)
		}
		patterns, err := compilePatterns(lang.ID, lang.Pattern)
		if err != nil {
			return applied, err
		}

		if rs, ok := r.Lookup(lang.ID); ok {
			r.mu.Lock()
			rs.Patterns = append(rs.Patterns, patterns...)
			r.mu.Unlock()
			r.Extend(lang.ID, lang.Extensions...)
		} else {
			r.Register(&RuleSet{
				Language:   lang.ID,
				Extensions: lang.Extensions,
				Patterns:   patterns,
				Indent:     lang.Indent,
				Blocks:     lang.Blocks,
			})
		}
		applied++
	}
	return applied, nil
}

func compilePatterns(lang string, in []overridePattern) ([]Pattern, error) {
	out := make([]Pattern, 0, len(in))
	for i, p := range in {
		re, err := regexp.Compile(p.Regex)
		if err != nil {
			return nil, fmt.Errorf("language %s pattern %d: %w", lang, i, err)
		}
		if re.SubexpIndex("name") < 0 {
			return nil, fmt.Errorf("language %s pattern %d: regex needs a (?P<name>...) group", lang, i)
		}
		tag := p.Tag
		switch tag {
		case TagDefinition, TagCall, TagImport, TagExtends, TagImplements, TagReference:
		case "call", "import", "extends", "implements":
			tag = "reference." + tag
		default:
			return nil, fmt.Errorf("language %s pattern %d: unknown tag %q", lang, i, p.Tag)
		}
		out = append(out, Pattern{Tag: tag, Kind: p.Kind, Regex: re, Within: p.Within})
	}
	return out, nil
}
