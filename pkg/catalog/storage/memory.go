// Package storage provides catalog backends.
package storage

import (
	"context"
	"sort"
	"sync"
	"time"

	"waterwatch-hq/healthimpact/pkg/catalog"
)

// MemoryStorage keeps entries in a map. Data is lost on restart.
type MemoryStorage struct {
	mu      sync.RWMutex
	records map[string]*catalog.Element
	now     func() time.Time
}

// NewMemoryStorage creates an empty in-memory catalog.
func NewMemoryStorage() *MemoryStorage {
	return &MemoryStorage{
		records: make(map[string]*catalog.Element),
		now:     func() time.Time { return time.Now().UTC() },
	}
}

func (s *MemoryStorage) Create(ctx context.Context, e *catalog.Element) (*catalog.Element, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	rec, err := catalog.Prepare(e, s.now())
	if err != nil {
		return nil, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.records[rec.Element]; exists {
		return nil, catalog.AlreadyExists(rec.Element)
	}
	s.records[rec.Element] = rec
	return rec.Clone(), nil
}

func (s *MemoryStorage) Get(ctx context.Context, name string) (*catalog.Element, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	rec, ok := s.records[name]
	if !ok {
		return nil, catalog.NotFound(name)
	}
	return rec.Clone(), nil
}

func (s *MemoryStorage) List(ctx context.Context) ([]*catalog.Element, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]*catalog.Element, 0, len(s.records))
	for _, rec := range s.records {
		out = append(out, rec.Clone())
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Element < out[j].Element })
	return out, nil
}

func (s *MemoryStorage) Update(ctx context.Context, name string, u catalog.Update) (*catalog.Element, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if err := catalog.ValidateUpdate(u); err != nil {
		return nil, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	rec, ok := s.records[name]
	if !ok {
		return nil, catalog.NotFound(name)
	}

	next := rec.Clone()
	if !u.Apply(next) {
		return rec.Clone(), nil
	}

	if next.Element != name {
		if _, taken := s.records[next.Element]; taken {
			return nil, catalog.AlreadyExists(next.Element)
		}
		delete(s.records, name)
	}
	next.UpdatedAt = s.now()
	s.records[next.Element] = next
	return next.Clone(), nil
}

func (s *MemoryStorage) Delete(ctx context.Context, name string) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.records[name]; !ok {
		return catalog.NotFound(name)
	}
	delete(s.records, name)
	return nil
}

func (s *MemoryStorage) Close() error {
	return nil
}
