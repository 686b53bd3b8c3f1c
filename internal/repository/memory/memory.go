package memory

import (
	"MinLink-Backend/internal/domain"
	"MinLink-Backend/internal/repository"
	"context"
	"sort"
	"sync"
	"time"
)

// MemStorage — in-memory реализация Storage для тестов
type MemStorage struct {
	mu           sync.RWMutex
	links        map[string]*domain.Link
	events       []*domain.ClickEvent
	rateLimits   map[string]*domain.RateLimitRecord
	linkCounter  int64
	eventCounter int64
}

func New() *MemStorage {
	return &MemStorage{
		links:      make(map[string]*domain.Link),
		rateLimits: make(map[string]*domain.RateLimitRecord),
	}
}

// --- Link Methods ---

func (s *MemStorage) SaveLink(_ context.Context, link *domain.Link) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.links[link.Code]; exists {
		return repository.ErrCodeExists
	}

	s.linkCounter++
	link.ID = s.linkCounter
	if link.CreatedAt.IsZero() {
		link.CreatedAt = time.Now()
	}

	stored := *link
	s.links[link.Code] = &stored
	return nil
}

func (s *MemStorage) GetLink(_ context.Context, code string) (*domain.Link, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	link, ok := s.links[code]
	if !ok || !link.IsActive {
		return nil, repository.ErrCodeNotFound
	}

	copied := *link
	return &copied, nil
}

func (s *MemStorage) CodeExists(_ context.Context, code string) (bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	_, ok := s.links[code]
	return ok, nil
}

func (s *MemStorage) DeactivateLink(_ context.Context, code string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	link, ok := s.links[code]
	if !ok {
		return repository.ErrCodeNotFound
	}
	link.IsActive = false
	return nil
}

// --- Click Methods ---

func (s *MemStorage) RecordClick(_ context.Context, event *domain.ClickEvent) (*domain.Link, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var target *domain.Link
	for _, link := range s.links {
		if link.ID == event.LinkID {
			target = link
			break
		}
	}
	if target == nil {
		return nil, repository.ErrCodeNotFound
	}

	target.Clicks++

	s.eventCounter++
	event.ID = s.eventCounter
	if event.CreatedAt.IsZero() {
		event.CreatedAt = time.Now()
	}
	stored := *event
	s.events = append(s.events, &stored)

	copied := *target
	return &copied, nil
}

func (s *MemStorage) ListClickEvents(_ context.Context, linkID int64, limit int) ([]*domain.ClickEvent, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var events []*domain.ClickEvent
	for _, event := range s.events {
		if event.LinkID == linkID {
			copied := *event
			events = append(events, &copied)
		}
	}

	// Новые первыми, как в Postgres-реализации
	sort.Slice(events, func(i, j int) bool {
		return events[i].CreatedAt.After(events[j].CreatedAt)
	})

	if limit > 0 && len(events) > limit {
		events = events[:limit]
	}
	return events, nil
}

// --- Rate Limit Methods ---

func (s *MemStorage) GetRateLimit(_ context.Context, ip string) (*domain.RateLimitRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	record, ok := s.rateLimits[ip]
	if !ok {
		return nil, repository.ErrRateLimitNotFound
	}

	copied := *record
	return &copied, nil
}

func (s *MemStorage) UpsertRateLimit(_ context.Context, record *domain.RateLimitRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	stored := *record
	stored.UpdatedAt = time.Now()
	s.rateLimits[record.IP] = &stored
	return nil
}
