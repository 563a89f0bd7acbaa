package geo

import (
	"context"
	"encoding/json"
	"fmt"
	"net"
	"net/http"
	"sync"
	"time"

	"go.uber.org/zap"
)

const (
	defaultTimeout   = 2 * time.Second
	defaultCacheSize = 10000
	cacheTTL         = 24 * time.Hour
)

// Location holds coarse geography for an IP. Every field is optional; a zero
// Location is the universal failure value, so enrichment can never fail.
type Location struct {
	CountryCode *string
	CountryName *string
	City        *string
	Region      *string
	PostalCode  *string
	Latitude    *float64
	Longitude   *float64
	Timezone    *string
}

// Enricher resolves IPs to locations through an external lookup endpoint,
// fronted by a bounded in-process cache.
type Enricher struct {
	endpoint string
	client   *http.Client
	logger   *zap.Logger

	mu      sync.Mutex
	entries map[string]cachedLocation
	order   []string // insertion order, oldest first
	maxSize int
}

type cachedLocation struct {
	loc      Location
	cachedAt time.Time
}

// Config controls the enricher's outbound lookup and cache bounds.
type Config struct {
	Endpoint  string
	Timeout   time.Duration
	CacheSize int
}

// NewEnricher builds an enricher. A zero config yields sensible defaults.
func NewEnricher(cfg Config, logger *zap.Logger) *Enricher {
	if cfg.Timeout <= 0 {
		cfg.Timeout = defaultTimeout
	}
	if cfg.CacheSize <= 0 {
		cfg.CacheSize = defaultCacheSize
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Enricher{
		endpoint: cfg.Endpoint,
		client:   &http.Client{Timeout: cfg.Timeout},
		logger:   logger,
		entries:  make(map[string]cachedLocation),
		maxSize:  cfg.CacheSize,
	}
}

// Lookup resolves ip to a Location. Private, loopback, link-local and
// unparseable addresses short-circuit without an external call. Timeouts and
// transport errors come back as a zero Location, never an error.
func (e *Enricher) Lookup(ctx context.Context, ip string) Location {
	parsed := net.ParseIP(ip)
	if parsed == nil || isPrivate(parsed) {
		return Location{}
	}

	if loc, ok := e.cached(ip); ok {
		return loc
	}

	loc := e.fetch(ctx, ip)
	e.store(ip, loc)
	return loc
}

// lookupResponse matches the ip-api style JSON payload.
type lookupResponse struct {
	Status      string  `json:"status"`
	CountryCode string  `json:"countryCode"`
	Country     string  `json:"country"`
	City        string  `json:"city"`
	RegionName  string  `json:"regionName"`
	Zip         string  `json:"zip"`
	Lat         float64 `json:"lat"`
	Lon         float64 `json:"lon"`
	Timezone    string  `json:"timezone"`
}

func (e *Enricher) fetch(ctx context.Context, ip string) Location {
	if e.endpoint == "" {
		return Location{}
	}

	url := fmt.Sprintf("%s/%s", e.endpoint, ip)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		e.logger.Warn("geo lookup request build failed", zap.String("ip", ip), zap.Error(err))
		return Location{}
	}

	resp, err := e.client.Do(req)
	if err != nil {
		e.logger.Debug("geo lookup failed", zap.String("ip", ip), zap.Error(err))
		return Location{}
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		e.logger.Debug("geo lookup non-200", zap.String("ip", ip), zap.Int("status", resp.StatusCode))
		return Location{}
	}

	var payload lookupResponse
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		e.logger.Debug("geo lookup decode failed", zap.String("ip", ip), zap.Error(err))
		return Location{}
	}
	if payload.Status != "" && payload.Status != "success" {
		return Location{}
	}

	return Location{
		CountryCode: optional(payload.CountryCode),
		CountryName: optional(payload.Country),
		City:        optional(payload.City),
		Region:      optional(payload.RegionName),
		PostalCode:  optional(payload.Zip),
		Latitude:    optionalFloat(payload.Lat),
		Longitude:   optionalFloat(payload.Lon),
		Timezone:    optional(payload.Timezone),
	}
}

func (e *Enricher) cached(ip string) (Location, bool) {
	e.mu.Lock()
	defer e.mu.Unlock()

	entry, ok := e.entries[ip]
	if !ok {
		return Location{}, false
	}
	if time.Since(entry.cachedAt) > cacheTTL {
		return Location{}, false
	}
	return entry.loc, true
}

// store inserts with FIFO eviction: once full, the oldest-inserted entry goes,
// regardless of recency of use.
func (e *Enricher) store(ip string, loc Location) {
	e.mu.Lock()
	defer e.mu.Unlock()

	if _, exists := e.entries[ip]; !exists {
		for len(e.order) >= e.maxSize {
			oldest := e.order[0]
			e.order = e.order[1:]
			delete(e.entries, oldest)
		}
		e.order = append(e.order, ip)
	}
	e.entries[ip] = cachedLocation{loc: loc, cachedAt: time.Now()}
}

// CacheLen reports the number of cached IPs.
func (e *Enricher) CacheLen() int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return len(e.entries)
}

func isPrivate(ip net.IP) bool {
	return ip.IsLoopback() || ip.IsPrivate() || ip.IsLinkLocalUnicast() ||
		ip.IsLinkLocalMulticast() || ip.IsUnspecified()
}

func optional(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}

func optionalFloat(f float64) *float64 {
	if f == 0 {
		return nil
	}
	return &f
}
