package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/bits-and-blooms/bloom/v3"
	"github.com/thorvik/keyward/internal/app/cache"
	"github.com/thorvik/keyward/internal/app/model"
	"github.com/thorvik/keyward/internal/app/repository"
	"github.com/thorvik/keyward/internal/app/resolver"
	infraprom "github.com/thorvik/keyward/internal/infra/prometheus"
	"go.uber.org/zap"
)

// ErrNotFound signals that no active record matches the route.
var ErrNotFound = errors.New("no link for route")

const (
	defaultCacheTTL    = 5 * time.Minute
	bloomMinCapacity   = 100_000
	bloomFalsePositive = 0.01
)

// Resolution is the outcome of a successful lookup.
type Resolution struct {
	LinkID         string
	DestinationURL string
	CacheHit       bool
}

// LookupService resolves validated routes to destinations, cache first. A
// bloom filter over known route keys short-circuits store queries for paths
// that cannot exist; it only ever skips work, never correctness, because a
// filter hit still goes to the store.
type LookupService struct {
	logger *zap.Logger
	cache  cache.Cache
	links  repository.LinkRepository
	ttl    time.Duration

	mu     sync.RWMutex
	routes *bloom.BloomFilter
}

// LookupDeps groups the lookup service's collaborators.
type LookupDeps struct {
	Logger *zap.Logger
	Cache  cache.Cache
	Links  repository.LinkRepository
	// CacheTTL is the staleness window: a deactivated or expired record can
	// keep redirecting for at most this long after its last cache write.
	CacheTTL time.Duration
}

// NewLookupService builds a lookup service. The route filter starts empty and
// disabled until SeedRoutes runs.
func NewLookupService(deps LookupDeps) *LookupService {
	logger := deps.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	c := deps.Cache
	if c == nil {
		c = cache.NewNoopCache()
	}
	ttl := deps.CacheTTL
	if ttl <= 0 {
		ttl = defaultCacheTTL
	}
	return &LookupService{
		logger: logger,
		cache:  c,
		links:  deps.Links,
		ttl:    ttl,
	}
}

// Resolve maps a route to a destination URL: cache get, then route filter,
// then store query, populating the cache on a store hit.
func (s *LookupService) Resolve(ctx context.Context, route resolver.Route) (*Resolution, error) {
	key := cache.RouteKey(route.Identifier, route.Keywords)

	if raw, ok := s.cache.Get(ctx, key); ok {
		entry, err := cache.DecodeEntry(raw)
		if err == nil {
			infraprom.CacheLookupsTotal.WithLabelValues("hit").Inc()
			return &Resolution{LinkID: entry.LinkID, DestinationURL: entry.DestinationURL, CacheHit: true}, nil
		}
		// Corrupt payloads are dropped and treated as a miss.
		s.logger.Warn("discarding undecodable cache entry", zap.String("key", key), zap.Error(err))
		s.cache.Delete(ctx, key)
	}
	infraprom.CacheLookupsTotal.WithLabelValues("miss").Inc()

	if !s.mightExist(route) {
		return nil, ErrNotFound
	}

	infraprom.StoreLookupsTotal.Inc()
	link, err := s.links.FindActive(ctx, route.Identifier, route.Keywords)
	if err != nil {
		if errors.Is(err, repository.ErrLinkNotFound) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("lookup route %q: %w", route.Key(), err)
	}

	if raw, encErr := cache.EncodeEntry(cache.Entry{LinkID: link.ID, DestinationURL: link.DestinationURL}); encErr == nil {
		// Concurrent population of the same key is fine: same value.
		s.cache.Set(ctx, key, raw, s.ttl)
	}

	return &Resolution{LinkID: link.ID, DestinationURL: link.DestinationURL}, nil
}

// Suggest collects best-effort alternatives for a route that did not resolve.
// Advisory only; failures degrade to an empty list.
func (s *LookupService) Suggest(ctx context.Context, route resolver.Route) []string {
	var records []model.Link
	var err error

	if route.Identifier != nil {
		records, err = s.links.SuggestForIdentifier(ctx, *route.Identifier, 5)
	} else {
		records, err = s.links.SuggestByKeywords(ctx, route.Keywords, 5)
	}
	if err != nil {
		s.logger.Debug("suggestion lookup failed", zap.String("route", route.Key()), zap.Error(err))
		return nil
	}

	suggestions := make([]string, 0, len(records))
	for _, rec := range records {
		var b strings.Builder
		if rec.Identifier != nil {
			b.WriteString("/")
			b.WriteString(*rec.Identifier)
		}
		for _, kw := range rec.Keywords {
			b.WriteString("/")
			b.WriteString(kw)
		}
		suggestions = append(suggestions, b.String())
	}
	return suggestions
}

// SeedRoutes loads every active route key into the filter. Until it succeeds
// the filter stays disabled and all misses go to the store.
func (s *LookupService) SeedRoutes(ctx context.Context) error {
	keys, err := s.links.RouteKeys(ctx)
	if err != nil {
		return fmt.Errorf("seed route filter: %w", err)
	}

	capacity := uint(len(keys) * 2)
	if capacity < bloomMinCapacity {
		capacity = bloomMinCapacity
	}
	filter := bloom.NewWithEstimates(capacity, bloomFalsePositive)
	for _, k := range keys {
		filter.AddString(k)
	}

	s.mu.Lock()
	s.routes = filter
	s.mu.Unlock()

	s.logger.Info("route filter seeded", zap.Int("routes", len(keys)))
	return nil
}

// NoteRoute records a newly created or updated route so the filter never
// produces a false negative for it.
func (s *LookupService) NoteRoute(identifier *string, keywords []string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.routes == nil {
		return
	}
	s.routes.AddString(filterKey(identifier, keywords))
}

func (s *LookupService) mightExist(route resolver.Route) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.routes == nil {
		return true
	}
	return s.routes.TestString(filterKey(route.Identifier, route.Keywords))
}

// filterKey is order-insensitive on keywords, matching the store's
// keyword-set semantics.
func filterKey(identifier *string, keywords []string) string {
	key := model.KeywordSetKey(keywords)
	if identifier != nil {
		return *identifier + "/" + key
	}
	return key
}
