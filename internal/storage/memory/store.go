// Package memory provides an in-process invocation store.
package memory

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/tjfontaine/actionpipe/internal/core/domain"
	"github.com/tjfontaine/actionpipe/internal/core/ports"
	"github.com/tjfontaine/actionpipe/internal/storage"
)

// Store is an in-memory implementation of ports.InvocationStore.
type Store struct {
	mu      sync.RWMutex
	records map[string]*domain.InvocationRecord
	order   []string
}

var _ ports.InvocationStore = (*Store)(nil)

// New creates a new in-memory store.
func New() *Store {
	return &Store{
		records: make(map[string]*domain.InvocationRecord),
	}
}

func (s *Store) RecordInvocation(ctx context.Context, rec *domain.InvocationRecord) error {
	if rec.ID == "" {
		return fmt.Errorf("invocation record requires an id")
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.records[rec.ID]; exists {
		return fmt.Errorf("invocation %s already recorded", rec.ID)
	}
	cp := *rec
	s.records[rec.ID] = &cp
	s.order = append(s.order, rec.ID)
	return nil
}

func (s *Store) GetInvocation(ctx context.Context, id string) (*domain.InvocationRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rec, ok := s.records[id]
	if !ok {
		return nil, fmt.Errorf("invocation %s: %w", id, storage.ErrNotFound)
	}
	cp := *rec
	return &cp, nil
}

func (s *Store) ListInvocations(ctx context.Context, opts ports.InvocationListOptions) ([]*domain.InvocationRecord, error) {
	s.mu.RLock()
	var matched []*domain.InvocationRecord
	for i := len(s.order) - 1; i >= 0; i-- {
		rec := s.records[s.order[i]]
		if opts.Action != "" && rec.Action != opts.Action {
			continue
		}
		if opts.Status != 0 && rec.Status != opts.Status {
			continue
		}
		cp := *rec
		matched = append(matched, &cp)
	}
	s.mu.RUnlock()

	// Newest first; the later insert wins a tie.
	sort.SliceStable(matched, func(i, j int) bool {
		return matched[i].CreatedAt.After(matched[j].CreatedAt)
	})

	if opts.Offset >= len(matched) {
		return []*domain.InvocationRecord{}, nil
	}
	matched = matched[max(opts.Offset, 0):]
	if limit := storage.Limit(opts.Limit); len(matched) > limit {
		matched = matched[:limit]
	}
	return matched, nil
}

func (s *Store) Close() error {
	return nil
}
