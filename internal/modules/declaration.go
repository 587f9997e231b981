package modules

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	toml "github.com/pelletier/go-toml/v2"

	"cix/internal/paths"
)

// ModulesDeclarationFile is the default filename for module declarations
const ModulesDeclarationFile = "MODULES.toml"

// ModuleDeclaration represents a declared module in MODULES.toml
type ModuleDeclaration struct {
	// ID is the unique module identifier (optional, generated from the name when empty)
	ID string `toml:"id,omitempty"`

	// Name is the category assigned to symbols under the module
	Name string `toml:"name"`

	// Path is a single repo-relative root; kept for files that predate Paths
	Path string `toml:"path,omitempty"`

	// Paths lists repo-relative globs owned by the module
	Paths []string `toml:"paths,omitempty"`

	// Layer forces the layer (Backend, Frontend, Database, View) of matching symbols
	Layer string `toml:"layer,omitempty"`

	// Tags are classification tags for the module
	Tags []string `toml:"tags,omitempty"`
}

// ModulesFile represents the root structure of MODULES.toml
type ModulesFile struct {
	// Version is the schema version
	Version int `toml:"version"`

	// Modules is the list of declared modules
	Modules []ModuleDeclaration `toml:"module"`
}

var validLayers = map[string]bool{
	"":         true,
	"Backend":  true,
	"Frontend": true,
	"Database": true,
	"View":     true,
	"Unknown":  true,
}

// ParseModulesFile parses a MODULES.toml file from the given path
func ParseModulesFile(filePath string) (*ModulesFile, error) {
	data, err := os.ReadFile(filePath)
	if err != nil {
		return nil, fmt.Errorf("failed to read MODULES.toml: %w", err)
	}

	var modulesFile ModulesFile
	if err := toml.Unmarshal(data, &modulesFile); err != nil {
		return nil, fmt.Errorf("failed to parse MODULES.toml: %w", err)
	}

	if modulesFile.Version < 1 {
		modulesFile.Version = 1
	}

	return &modulesFile, nil
}

// LoadOverrides loads MODULES.toml from the repository root. A missing file
// yields empty overrides.
func LoadOverrides(repoRoot string) (*Overrides, error) {
	filePath := paths.ModulesPath(repoRoot)
	if _, err := os.Stat(filePath); os.IsNotExist(err) {
		return NewOverrides(nil), nil
	}

	modulesFile, err := ParseModulesFile(filePath)
	if err != nil {
		return nil, err
	}

	mods, err := convertDeclarations(modulesFile.Modules)
	if err != nil {
		return nil, err
	}
	return NewOverrides(mods), nil
}

func convertDeclarations(declarations []ModuleDeclaration) ([]*Module, error) {
	var mods []*Module

	for i, decl := range declarations {
		globs := decl.Paths
		if decl.Path != "" {
			globs = append([]string{decl.Path}, globs...)
		}
		if len(globs) == 0 {
			return nil, fmt.Errorf("module declaration %d missing 'path' or 'paths'", i+1)
		}
		if !validLayers[decl.Layer] {
			return nil, fmt.Errorf("module declaration %d: unknown layer %q", i+1, decl.Layer)
		}

		name := decl.Name
		if name == "" {
			parts := strings.Split(strings.TrimSuffix(globs[0], "/"), "/")
			name = parts[len(parts)-1]
		}

		id := decl.ID
		if id == "" {
			id = GenerateStableModuleID(name)
		}

		normalized := make([]string, len(globs))
		for j, g := range globs {
			normalized[j] = paths.NormalizePath(g)
		}

		mods = append(mods, &Module{
			ID:    id,
			Name:  name,
			Paths: normalized,
			Layer: decl.Layer,
			Tags:  decl.Tags,
		})
	}

	return mods, nil
}

// WriteModulesFile writes a ModulesFile to the given path
func WriteModulesFile(filePath string, modulesFile *ModulesFile) error {
	data, err := toml.Marshal(modulesFile)
	if err != nil {
		return fmt.Errorf("failed to marshal MODULES.toml: %w", err)
	}

	if err := os.MkdirAll(filepath.Dir(filePath), 0755); err != nil {
		return fmt.Errorf("failed to create directory: %w", err)
	}

	if err := os.WriteFile(filePath, data, 0644); err != nil {
		return fmt.Errorf("failed to write MODULES.toml: %w", err)
	}

	return nil
}

// GenerateStableModuleID derives a module ID from its name.
// Format: cix:mod:<hash>
func GenerateStableModuleID(name string) string {
	hash := sha256.Sum256([]byte(strings.ToLower(strings.TrimSpace(name))))
	return fmt.Sprintf("cix:mod:%s", hex.EncodeToString(hash[:8]))
}
