package service

import (
	"context"
	"sync"
	"time"

	"github.com/thorvik/keyward/internal/app/model"
	"github.com/thorvik/keyward/internal/app/repository"
)

type mockLinkRepository struct {
	createFn       func(ctx context.Context, link *model.Link) error
	getFn          func(ctx context.Context, id string) (*model.Link, error)
	findActiveFn   func(ctx context.Context, identifier *string, keywords []string) (*model.Link, error)
	listFn         func(ctx context.Context, owner string, limit, offset int) ([]model.Link, error)
	updateFn       func(ctx context.Context, link *model.Link) error
	deleteFn       func(ctx context.Context, id string) error
	incrementFn    func(ctx context.Context, id string, n int64, at time.Time) error
	suggestIDFn    func(ctx context.Context, identifier string, limit int) ([]model.Link, error)
	suggestKwFn    func(ctx context.Context, keywords []string, limit int) ([]model.Link, error)
	routeKeysFn    func(ctx context.Context) ([]string, error)
}

func (m *mockLinkRepository) Create(ctx context.Context, link *model.Link) error {
	if m.createFn != nil {
		return m.createFn(ctx, link)
	}
	return nil
}

func (m *mockLinkRepository) GetByID(ctx context.Context, id string) (*model.Link, error) {
	if m.getFn != nil {
		return m.getFn(ctx, id)
	}
	return nil, repository.ErrLinkNotFound
}

func (m *mockLinkRepository) FindActive(ctx context.Context, identifier *string, keywords []string) (*model.Link, error) {
	if m.findActiveFn != nil {
		return m.findActiveFn(ctx, identifier, keywords)
	}
	return nil, repository.ErrLinkNotFound
}

func (m *mockLinkRepository) List(ctx context.Context, owner string, limit, offset int) ([]model.Link, error) {
	if m.listFn != nil {
		return m.listFn(ctx, owner, limit, offset)
	}
	return nil, nil
}

func (m *mockLinkRepository) Update(ctx context.Context, link *model.Link) error {
	if m.updateFn != nil {
		return m.updateFn(ctx, link)
	}
	return nil
}

func (m *mockLinkRepository) Delete(ctx context.Context, id string) error {
	if m.deleteFn != nil {
		return m.deleteFn(ctx, id)
	}
	return nil
}

func (m *mockLinkRepository) IncrementClicks(ctx context.Context, id string, n int64, at time.Time) error {
	if m.incrementFn != nil {
		return m.incrementFn(ctx, id, n, at)
	}
	return nil
}

func (m *mockLinkRepository) SuggestForIdentifier(ctx context.Context, identifier string, limit int) ([]model.Link, error) {
	if m.suggestIDFn != nil {
		return m.suggestIDFn(ctx, identifier, limit)
	}
	return nil, nil
}

func (m *mockLinkRepository) SuggestByKeywords(ctx context.Context, keywords []string, limit int) ([]model.Link, error) {
	if m.suggestKwFn != nil {
		return m.suggestKwFn(ctx, keywords, limit)
	}
	return nil, nil
}

func (m *mockLinkRepository) RouteKeys(ctx context.Context) ([]string, error) {
	if m.routeKeysFn != nil {
		return m.routeKeysFn(ctx)
	}
	return nil, nil
}

type mockClickEventRepository struct {
	mu       sync.Mutex
	insertFn func(ctx context.Context, events []*model.ClickEvent) error
	inserted [][]*model.ClickEvent
}

func (m *mockClickEventRepository) InsertBatch(ctx context.Context, events []*model.ClickEvent) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.insertFn != nil {
		if err := m.insertFn(ctx, events); err != nil {
			return err
		}
	}
	copied := make([]*model.ClickEvent, len(events))
	copy(copied, events)
	m.inserted = append(m.inserted, copied)
	return nil
}

func (m *mockClickEventRepository) persisted() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	total := 0
	for _, batch := range m.inserted {
		total += len(batch)
	}
	return total
}

// fakeCache is an in-memory Cache that records deletions.
type fakeCache struct {
	mu      sync.Mutex
	entries map[string]string
	deleted []string
}

func newFakeCache() *fakeCache {
	return &fakeCache{entries: make(map[string]string)}
}

func (c *fakeCache) Get(_ context.Context, key string) (string, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	val, ok := c.entries[key]
	return val, ok
}

func (c *fakeCache) Set(_ context.Context, key, value string, _ time.Duration) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries[key] = value
	return true
}

func (c *fakeCache) Delete(_ context.Context, key string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.entries, key)
	c.deleted = append(c.deleted, key)
	return true
}
