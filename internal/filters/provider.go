// Package filters provides filter discovery and the built-in authorization,
// action and result filters.
package filters

import (
	"fmt"
	"sort"
	"sync"

	"github.com/expr-lang/expr"
	"github.com/expr-lang/expr/vm"

	"github.com/tjfontaine/actionpipe/internal/core/domain"
	"github.com/tjfontaine/actionpipe/internal/core/ports"
)

// Provider merges global filters with the ones declared on a descriptor
// and classifies them into the three chains. Results are cached per
// descriptor; descriptors are read-only once built.
type Provider struct {
	global []domain.FilterDescriptor

	mu    sync.RWMutex
	conds map[string]*vm.Program
	sets  map[*domain.ActionDescriptor]ports.FilterSet
}

// NewProvider validates global filters and their conditions up front.
func NewProvider(global []domain.FilterDescriptor) (*Provider, error) {
	p := &Provider{
		conds: make(map[string]*vm.Program),
		sets:  make(map[*domain.ActionDescriptor]ports.FilterSet),
	}
	for i := range global {
		g := global[i]
		g.Scope = domain.ScopeGlobal
		if err := p.check(g); err != nil {
			return nil, err
		}
		p.global = append(p.global, g)
	}
	return p, nil
}

// Discover implements ports.FilterProvider.
func (p *Provider) Discover(d *domain.ActionDescriptor) (ports.FilterSet, error) {
	p.mu.RLock()
	set, ok := p.sets[d]
	p.mu.RUnlock()
	if ok {
		return set, nil
	}

	all := make([]domain.FilterDescriptor, 0, len(p.global)+len(d.Filters))
	all = append(all, p.global...)
	for _, f := range d.Filters {
		f.Scope = domain.ScopeAction
		if err := p.check(f); err != nil {
			return ports.FilterSet{}, fmt.Errorf("action %s: %w", d.Name, err)
		}
		all = append(all, f)
	}

	applicable := all[:0]
	for _, f := range all {
		ok, err := p.applies(f, d)
		if err != nil {
			return ports.FilterSet{}, fmt.Errorf("action %s: %w", d.Name, err)
		}
		if ok {
			applicable = append(applicable, f)
		}
	}

	// Global filters precede action filters of equal order; declaration
	// order breaks the remaining ties.
	sort.SliceStable(applicable, func(i, j int) bool {
		if applicable[i].Order != applicable[j].Order {
			return applicable[i].Order < applicable[j].Order
		}
		return applicable[i].Scope < applicable[j].Scope
	})

	set = classify(applicable)

	p.mu.Lock()
	p.sets[d] = set
	p.mu.Unlock()
	return set, nil
}

// classify sorts filters into chains by the interfaces they implement. One
// filter may take part in several chains.
func classify(fs []domain.FilterDescriptor) ports.FilterSet {
	var set ports.FilterSet
	for _, f := range fs {
		if a, ok := f.Filter.(ports.AuthorizationFilter); ok {
			set.Authorization = append(set.Authorization, a)
		}
		if a, ok := f.Filter.(ports.ActionFilter); ok {
			set.Action = append(set.Action, a)
		}
		if r, ok := f.Filter.(ports.ResultFilter); ok {
			set.Result = append(set.Result, r)
		}
	}
	return set
}

func (p *Provider) check(f domain.FilterDescriptor) error {
	switch f.Filter.(type) {
	case ports.AuthorizationFilter, ports.ActionFilter, ports.ResultFilter:
	default:
		return fmt.Errorf("filter %q (%T) implements no filter interface", f.Name, f.Filter)
	}
	if f.When == "" {
		return nil
	}
	_, err := p.condition(f.When)
	return err
}

func (p *Provider) applies(f domain.FilterDescriptor, d *domain.ActionDescriptor) (bool, error) {
	if f.When == "" {
		return true, nil
	}
	prg, err := p.condition(f.When)
	if err != nil {
		return false, err
	}
	out, err := vm.Run(prg, conditionEnv(d))
	if err != nil {
		return false, fmt.Errorf("filter %q: evaluate when: %w", f.Name, err)
	}
	ok, _ := out.(bool)
	return ok, nil
}

func (p *Provider) condition(src string) (*vm.Program, error) {
	p.mu.RLock()
	prg, ok := p.conds[src]
	p.mu.RUnlock()
	if ok {
		return prg, nil
	}

	prg, err := expr.Compile(src, expr.Env(conditionEnv(&domain.ActionDescriptor{})), expr.AsBool())
	if err != nil {
		return nil, fmt.Errorf("compile when %q: %w", src, err)
	}

	p.mu.Lock()
	p.conds[src] = prg
	p.mu.Unlock()
	return prg, nil
}

// conditionEnv is what a When expression sees.
func conditionEnv(d *domain.ActionDescriptor) map[string]any {
	return map[string]any{
		"name":       d.Name,
		"controller": d.Controller,
		"method":     d.Method,
		"path":       d.Path,
	}
}

var _ ports.FilterProvider = (*Provider)(nil)
