package binding

import (
	"context"
	"fmt"
	"sync"

	"github.com/itchyny/gojq"
)

// pathCache compiles jq body paths once and reuses them across requests.
type pathCache struct {
	mu    sync.RWMutex
	cache map[string]*gojq.Code
}

func newPathCache() *pathCache {
	return &pathCache{cache: make(map[string]*gojq.Code)}
}

// Evaluate runs expression against doc. No output means not found; several
// outputs are collected into a slice.
func (p *pathCache) Evaluate(ctx context.Context, expression string, doc any) (any, bool, error) {
	code, err := p.compile(expression)
	if err != nil {
		return nil, false, err
	}

	iter := code.RunWithContext(ctx, doc)
	var results []any
	for {
		v, ok := iter.Next()
		if !ok {
			break
		}
		if err, isErr := v.(error); isErr {
			return nil, false, fmt.Errorf("evaluate %q: %w", expression, err)
		}
		results = append(results, v)
	}

	switch len(results) {
	case 0:
		return nil, false, nil
	case 1:
		// jq yields null for missing object keys.
		return results[0], results[0] != nil, nil
	default:
		return results, true, nil
	}
}

func (p *pathCache) compile(expression string) (*gojq.Code, error) {
	p.mu.RLock()
	code, ok := p.cache[expression]
	p.mu.RUnlock()
	if ok {
		return code, nil
	}

	p.mu.Lock()
	defer p.mu.Unlock()
	if code, ok := p.cache[expression]; ok {
		return code, nil
	}

	query, err := gojq.Parse(expression)
	if err != nil {
		return nil, fmt.Errorf("parse body path %q: %w", expression, err)
	}
	code, err = gojq.Compile(query, gojq.WithEnvironLoader(func() []string { return nil }))
	if err != nil {
		return nil, fmt.Errorf("compile body path %q: %w", expression, err)
	}
	p.cache[expression] = code
	return code, nil
}
