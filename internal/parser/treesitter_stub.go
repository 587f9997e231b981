//go:build !cgo

package parser

import (
	"context"

	"cix/internal/grammar"
)

// Without cgo there is no tree-sitter; every language uses the generic engine.
const treeSitterEnabled = false

type tsCache struct{}

func newTSCache() *tsCache {
	return &tsCache{}
}

func (a *Adapter) parseTreeSitter(context.Context, *grammar.RuleSet, []byte) (*Result, bool, error) {
	return nil, false, nil
}
