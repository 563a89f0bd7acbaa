package service

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/thorvik/keyward/internal/app/geo"
	"github.com/thorvik/keyward/internal/app/model"
	"github.com/thorvik/keyward/internal/app/repository"
	infraprom "github.com/thorvik/keyward/internal/infra/prometheus"
	"go.uber.org/zap"
)

const (
	defaultBatchSize     = 10
	defaultFlushInterval = 5 * time.Second
)

// Tracker queues click events in memory and persists them in batches, either
// when the queue reaches the batch size or on a fixed interval. Telemetry is
// best-effort: a failed batch is requeued for the next tick, but the queue is
// not durable across a crash.
type Tracker struct {
	logger   *zap.Logger
	clicks   repository.ClickEventRepository
	links    repository.LinkRepository
	geo      *geo.Enricher
	exporter Exporter

	batchSize int
	interval  time.Duration

	mu       sync.Mutex
	queue    []*model.ClickEvent
	flushing bool

	enriching sync.WaitGroup
	stopChan  chan struct{}
	stopOnce  sync.Once
	done      chan struct{}
}

// TrackerDeps groups the tracker's collaborators. Geo and Exporter may be nil.
type TrackerDeps struct {
	Logger        *zap.Logger
	ClickEvents   repository.ClickEventRepository
	Links         repository.LinkRepository
	Geo           *geo.Enricher
	Exporter      Exporter
	BatchSize     int
	FlushInterval time.Duration
}

// NewTracker builds a stopped tracker; call Start to launch the flush loop.
func NewTracker(deps TrackerDeps) *Tracker {
	logger := deps.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	batchSize := deps.BatchSize
	if batchSize <= 0 {
		batchSize = defaultBatchSize
	}
	interval := deps.FlushInterval
	if interval <= 0 {
		interval = defaultFlushInterval
	}
	return &Tracker{
		logger:    logger,
		clicks:    deps.ClickEvents,
		links:     deps.Links,
		geo:       deps.Geo,
		exporter:  deps.Exporter,
		batchSize: batchSize,
		interval:  interval,
		stopChan:  make(chan struct{}),
		done:      make(chan struct{}),
	}
}

// Start launches the periodic flush loop.
func (t *Tracker) Start() {
	go t.run()
}

// Stop halts the flush loop and drains the queue, bounded by ctx.
func (t *Tracker) Stop(ctx context.Context) {
	t.stopOnce.Do(func() { close(t.stopChan) })
	select {
	case <-t.done:
	case <-ctx.Done():
		return
	}
	t.Flush(ctx)
}

// Track stamps and enqueues a click event, returning immediately. Geo
// enrichment runs on a goroutine before the event joins the queue; if it
// cannot resolve, the geo fields simply stay null.
func (t *Tracker) Track(event *model.ClickEvent) {
	if event.ID == "" {
		event.ID = uuid.New().String()
	}
	if event.ClickedAt.IsZero() {
		event.ClickedAt = time.Now()
	}

	t.enriching.Add(1)
	go func() {
		defer t.enriching.Done()
		t.enrich(event)
		t.enqueue(event)
	}()
}

func (t *Tracker) enrich(event *model.ClickEvent) {
	if t.geo == nil || event.IPAddress == "" {
		return
	}
	loc := t.geo.Lookup(context.Background(), event.IPAddress)
	if loc.CountryCode == nil {
		infraprom.GeoLookupsTotal.WithLabelValues("empty").Inc()
	} else {
		infraprom.GeoLookupsTotal.WithLabelValues("resolved").Inc()
	}
	event.CountryCode = loc.CountryCode
	event.CountryName = loc.CountryName
	event.City = loc.City
	event.Region = loc.Region
	event.PostalCode = loc.PostalCode
	event.Latitude = loc.Latitude
	event.Longitude = loc.Longitude
	event.Timezone = loc.Timezone
}

func (t *Tracker) enqueue(event *model.ClickEvent) {
	t.mu.Lock()
	t.queue = append(t.queue, event)
	depth := len(t.queue)
	t.mu.Unlock()

	infraprom.AnalyticsQueueDepth.Set(float64(depth))

	if depth >= t.batchSize {
		go t.flushOnce(context.Background())
	}
}

// QueueDepth reports the number of events waiting to be flushed.
func (t *Tracker) QueueDepth() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return len(t.queue)
}

// Flush drains the queue, waiting first for in-flight enrichment so a drain
// right after Track still covers that event. Used at shutdown and in tests.
func (t *Tracker) Flush(ctx context.Context) {
	t.enriching.Wait()
	for t.QueueDepth() > 0 {
		if ctx.Err() != nil {
			return
		}
		if !t.flushOnce(ctx) {
			// A failed or contended flush would spin here; yield the tick.
			select {
			case <-time.After(50 * time.Millisecond):
			case <-ctx.Done():
				return
			}
		}
	}
}

func (t *Tracker) run() {
	defer close(t.done)

	ticker := time.NewTicker(t.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			t.flushOnce(context.Background())
		case <-t.stopChan:
			t.logger.Info("analytics flush loop stopped")
			return
		}
	}
}

// flushOnce persists up to one batch. The busy flag keeps the timer tick and
// the batch-size trigger from draining concurrently; the queue lock is held
// only while items move, never during I/O. Reports whether a batch was
// persisted.
func (t *Tracker) flushOnce(ctx context.Context) bool {
	t.mu.Lock()
	if t.flushing || len(t.queue) == 0 {
		t.mu.Unlock()
		return false
	}
	t.flushing = true

	n := len(t.queue)
	if n > t.batchSize {
		n = t.batchSize
	}
	batch := make([]*model.ClickEvent, n)
	copy(batch, t.queue[:n])
	t.queue = t.queue[n:]
	t.mu.Unlock()

	err := t.clicks.InsertBatch(ctx, batch)

	t.mu.Lock()
	if err != nil {
		// Return the whole batch to the front so ordering survives the retry.
		t.queue = append(batch, t.queue...)
	}
	t.flushing = false
	depth := len(t.queue)
	t.mu.Unlock()

	infraprom.AnalyticsQueueDepth.Set(float64(depth))

	if err != nil {
		infraprom.AnalyticsFlushesTotal.WithLabelValues("failure").Inc()
		infraprom.AnalyticsEventsRequeued.Add(float64(len(batch)))
		t.logger.Error("click batch persist failed, requeued",
			zap.Int("events", len(batch)),
			zap.Error(err))
		return false
	}

	infraprom.AnalyticsFlushesTotal.WithLabelValues("success").Inc()
	infraprom.AnalyticsEventsPersisted.Add(float64(len(batch)))

	t.bumpCounters(ctx, batch)

	if t.exporter != nil {
		t.exporter.Export(ctx, batch)
	}
	return true
}

// bumpCounters increments per-link aggregates. Deliberately decoupled from
// the event-row write: the counter is a fast-path aggregate and may diverge
// slightly from the detailed records.
func (t *Tracker) bumpCounters(ctx context.Context, batch []*model.ClickEvent) {
	if t.links == nil {
		return
	}

	type agg struct {
		count int64
		last  time.Time
	}
	perLink := make(map[string]*agg)
	for _, e := range batch {
		a := perLink[e.LinkID]
		if a == nil {
			a = &agg{}
			perLink[e.LinkID] = a
		}
		a.count++
		if e.ClickedAt.After(a.last) {
			a.last = e.ClickedAt
		}
	}

	for linkID, a := range perLink {
		if err := t.links.IncrementClicks(ctx, linkID, a.count, a.last); err != nil {
			t.logger.Warn("click counter increment failed",
				zap.String("link_id", linkID),
				zap.Int64("count", a.count),
				zap.Error(err))
		}
	}
}
