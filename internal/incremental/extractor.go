package incremental

import (
	"fmt"
	"log/slog"

	"cix/internal/grammar"
	"cix/internal/modules"
	"cix/internal/parser"
	"cix/internal/paths"
	"cix/internal/symbols"
)

// NewRepoExtractor builds the extractor for a repository: the built-in
// grammar tables extended by .cix/grammars.toml, and category overrides
// from MODULES.toml.
func NewRepoExtractor(repoRoot string, logger *slog.Logger) (*symbols.Extractor, error) {
	registry := grammar.NewRegistry()
	n, err := registry.LoadOverrides(paths.GrammarOverridesPath(repoRoot))
	if err != nil {
		return nil, fmt.Errorf("loading grammar overrides: %w", err)
	}
	if n > 0 {
		logger.Debug("grammar overrides applied", "languages", n)
	}

	overrides, err := modules.LoadOverrides(repoRoot)
	if err != nil {
		return nil, fmt.Errorf("loading module overrides: %w", err)
	}

	adapter := parser.NewAdapter(registry, logger)
	return symbols.NewExtractor(adapter, symbols.NewClassifier(overrides), logger), nil
}
