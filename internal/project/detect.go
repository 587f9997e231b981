// Package project detects the name and primary language of an indexed repository.
package project

import (
	"bufio"
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"

	toml "github.com/pelletier/go-toml/v2"
)

// Language represents a programming language.
type Language string

const (
	LangGo         Language = "go"
	LangTypeScript Language = "typescript"
	LangJavaScript Language = "javascript"
	LangPython     Language = "python"
	LangRust       Language = "rust"
	LangJava       Language = "java"
	LangKotlin     Language = "kotlin"
	LangUnknown    Language = "unknown"
)

// Info describes the project reported in response metadata.
type Info struct {
	Name     string   `json:"name"`
	Language Language `json:"language"`
	Manifest string   `json:"manifest,omitempty"`
}

var manifests = []struct {
	path string
	lang Language
}{
	{"go.mod", LangGo},
	{"package.json", LangTypeScript},
	{"Cargo.toml", LangRust},
	{"pyproject.toml", LangPython},
	{"requirements.txt", LangPython},
	{"setup.py", LangPython},
	{"pom.xml", LangJava},
	{"build.gradle", LangJava},
	{"build.gradle.kts", LangKotlin},
}

// Detect inspects the manifests at root. The name falls back to the
// directory name when no manifest declares one.
func Detect(root string) *Info {
	info := &Info{Name: filepath.Base(root), Language: LangUnknown}
	lang, manifest, ok := DetectLanguage(root)
	if !ok {
		return info
	}
	info.Language = lang
	info.Manifest = manifest
	if name := manifestName(filepath.Join(root, manifest)); name != "" {
		info.Name = name
	}
	return info
}

// DetectLanguage detects the primary language of a project from manifest files.
// Returns the language, manifest path, and whether detection succeeded.
func DetectLanguage(root string) (Language, string, bool) {
	for _, m := range manifests {
		if _, err := os.Stat(filepath.Join(root, m.path)); err == nil {
			lang := m.lang
			if m.path == "package.json" {
				lang = detectJSorTS(root)
			}
			return lang, m.path, true
		}
	}
	return LangUnknown, "", false
}

// detectJSorTS checks if a project is TypeScript or JavaScript.
func detectJSorTS(root string) Language {
	if _, err := os.Stat(filepath.Join(root, "tsconfig.json")); err == nil {
		return LangTypeScript
	}
	if hasFileWithExt(root, ".ts") || hasFileWithExt(filepath.Join(root, "src"), ".ts") {
		return LangTypeScript
	}
	return LangJavaScript
}

func hasFileWithExt(dir, ext string) bool {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return false
	}
	for _, e := range entries {
		if !e.IsDir() && filepath.Ext(e.Name()) == ext {
			return true
		}
	}
	return false
}

func manifestName(path string) string {
	data, err := os.ReadFile(path)
	if err != nil {
		return ""
	}
	switch filepath.Base(path) {
	case "go.mod":
		return goModuleName(data)
	case "package.json":
		var pkg struct {
			Name string `json:"name"`
		}
		if json.Unmarshal(data, &pkg) == nil {
			return pkg.Name
		}
	case "Cargo.toml":
		var cargo struct {
			Package struct {
				Name string `toml:"name"`
			} `toml:"package"`
		}
		if toml.Unmarshal(data, &cargo) == nil {
			return cargo.Package.Name
		}
	case "pyproject.toml":
		var py struct {
			Project struct {
				Name string `toml:"name"`
			} `toml:"project"`
			Tool struct {
				Poetry struct {
					Name string `toml:"name"`
				} `toml:"poetry"`
			} `toml:"tool"`
		}
		if toml.Unmarshal(data, &py) == nil {
			if py.Project.Name != "" {
				return py.Project.Name
			}
			return py.Tool.Poetry.Name
		}
	}
	return ""
}

func goModuleName(data []byte) string {
	sc := bufio.NewScanner(bytes.NewReader(data))
	for sc.Scan() {
		line := strings.TrimSpace(sc.Text())
		if rest, ok := strings.CutPrefix(line, "module"); ok && (rest == "" || rest[0] == ' ' || rest[0] == '\t') {
			return strings.Trim(strings.TrimSpace(rest), `"`)
		}
	}
	return ""
}

// SCIPIndexerCommand returns the command that produces index.scip for a
// language, or "" when none is known.
func SCIPIndexerCommand(lang Language) string {
	switch lang {
	case LangGo:
		return "scip-go"
	case LangTypeScript, LangJavaScript:
		return "scip-typescript index --infer-tsconfig"
	case LangPython:
		return "scip-python index ."
	case LangRust:
		return "rust-analyzer scip ."
	case LangJava:
		return "scip-java index"
	case LangKotlin:
		return "scip-kotlin index"
	}
	return ""
}
