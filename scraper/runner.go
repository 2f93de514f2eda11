package scraper

import (
	"context"
	"errors"
	"log/slog"
	"math/rand"
	"sync"
	"time"

	"pricescout/cache"
	"pricescout/config"
	"pricescout/models"
	"pricescout/parser"
	"pricescout/pipeline"
	"pricescout/proxy"
)

// Runner drives one scraping run: it fans (product, page) tasks out to a
// bounded worker pool, applies inter-request jitter, retries transient
// fetch failures with exponential backoff, and hands fetched pages to the
// parser and ingestor.
type Runner struct {
	cfg     *config.Config
	fetcher PageFetcher
	proxies *proxy.Manager
	cache   cache.Cache
	ingest  *pipeline.Ingestor
	agents  *AgentPool
	metrics *Metrics

	now func() time.Time

	jitterMu sync.Mutex
	jitter   *rand.Rand

	mu           sync.Mutex
	errorsByType map[string]int
	retryCount   int
}

// NewRunner wires a runner from its collaborators. seed pins the jitter
// and user-agent randomness for tests; production callers pass the clock.
func NewRunner(cfg *config.Config, fetcher PageFetcher, proxies *proxy.Manager, pageCache cache.Cache, ingest *pipeline.Ingestor, metrics *Metrics, seed int64) *Runner {
	if pageCache == nil {
		pageCache = cache.Disabled{}
	}
	return &Runner{
		cfg:          cfg,
		fetcher:      fetcher,
		proxies:      proxies,
		cache:        pageCache,
		ingest:       ingest,
		agents:       NewAgentPool(cfg.UserAgents, seed),
		metrics:      metrics,
		now:          time.Now,
		jitter:       rand.New(rand.NewSource(seed + 1)),
		errorsByType: make(map[string]int),
	}
}

// Run executes pages 1..pages for every product and returns the run
// summary. Per-task failures are recorded, never fatal; cancelling ctx
// stops scheduling and lets in-flight tasks finish.
func (r *Runner) Run(ctx context.Context, products []string, pages int) *models.RunSummary {
	start := r.now()

	tasks := make([]*Task, 0, len(products)*pages)
	for _, product := range products {
		for page := 1; page <= pages; page++ {
			tasks = append(tasks, &Task{Product: product, Page: page, State: TaskPending})
		}
	}

	queue := make(chan *Task, len(tasks))
	for _, t := range tasks {
		queue <- t
	}
	close(queue)

	workers := r.cfg.Parallelism
	if workers > len(tasks) && len(tasks) > 0 {
		workers = len(tasks)
	}

	var wg sync.WaitGroup
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for task := range queue {
				if ctx.Err() != nil {
					task.State = TaskFailed
					task.LastErr = ctx.Err()
					continue
				}
				r.runTask(ctx, task)
			}
		}()
	}
	wg.Wait()

	summary := &models.RunSummary{
		StartTime:         start,
		EndTime:           r.now(),
		TasksAttempted:    len(tasks),
		ListingsPersisted: r.ingest.Persisted(),
		PerProduct:        r.ingest.PerProduct(),
		ErrorsByType:      r.snapshotErrors(),
		RetryCount:        r.totalRetries(),
	}
	for _, t := range tasks {
		switch t.State {
		case TaskSucceeded:
			summary.TasksSucceeded++
		default:
			summary.TasksFailed++
		}
	}
	return summary
}

// runTask walks one task through its state machine until it succeeds,
// exhausts its retries, or the run is cancelled.
func (r *Runner) runTask(ctx context.Context, task *Task) {
	for {
		task.State = TaskInFlight
		task.Attempts++

		err := r.attempt(ctx, task)
		if err == nil {
			task.State = TaskSucceeded
			task.LastErr = nil
			return
		}

		task.LastErr = err
		label := errorTypeLabel(err)
		r.recordError(label)
		r.metrics.IncError(label)
		slog.Warn("fetch task attempt failed",
			slog.String("product", task.Product),
			slog.Int("page", task.Page),
			slog.Int("attempt", task.Attempts),
			slog.String("category", label),
			slog.Any("error", err),
		)

		if !r.shouldRetry(ctx, err, task.Attempts) {
			task.State = TaskFailed
			return
		}

		task.State = TaskRetrying
		r.recordRetry()
		r.metrics.IncRetries()
		if !sleepCtx(ctx, r.backoff(task.Attempts)) {
			task.State = TaskFailed
			return
		}
	}
}

// attempt performs a single fetch+parse+ingest cycle for the task.
func (r *Runner) attempt(ctx context.Context, task *Task) error {
	if !sleepCtx(ctx, r.requestDelay()) {
		return ctx.Err()
	}

	key := cache.Key{Product: task.Product, Page: task.Page, Region: r.cfg.Region}
	if body, ok := r.cache.Get(ctx, key); ok {
		r.metrics.IncCacheLookup("hit")
		return r.ingestPage(ctx, task, body)
	}
	r.metrics.IncCacheLookup("miss")

	endpoint := r.proxies.Select()
	userAgent := r.agents.Pick()

	body, err := r.fetcher.Fetch(ctx, task.Product, task.Page, endpoint, userAgent)
	if err != nil {
		var blocked ErrBlocked
		if errors.As(err, &blocked) && endpoint != nil {
			// A blocked endpoint is burned for a while; do not wait for
			// its success rate to catch up.
			r.proxies.Demote(endpoint)
			r.metrics.IncProxyCooldown()
		}
		return err
	}

	r.cache.Put(ctx, key, body)
	return r.ingestPage(ctx, task, body)
}

// ingestPage parses a fetched page and persists the surviving listings.
// Parse problems yield an empty set and are not task failures.
func (r *Runner) ingestPage(ctx context.Context, task *Task, body []byte) error {
	listings, err := parser.ExtractListings(body, task.Product, r.cfg.BaseURL, r.now())
	if err != nil {
		slog.Error("parse page failed",
			slog.String("product", task.Product),
			slog.Int("page", task.Page),
			slog.Any("error", err),
		)
		return nil
	}
	if len(listings) == 0 {
		slog.Debug("no listings on page",
			slog.String("product", task.Product),
			slog.Int("page", task.Page),
		)
		return nil
	}

	persisted := r.ingest.Ingest(ctx, listings)
	r.metrics.AddListings(persisted)
	slog.Info("page ingested",
		slog.String("product", task.Product),
		slog.Int("page", task.Page),
		slog.Int("parsed", len(listings)),
		slog.Int("persisted", persisted),
	)
	return nil
}

// shouldRetry applies the retry policy: rate limits, timeouts, network
// hiccups, and blocks are all transient; everything else is not.
func (r *Runner) shouldRetry(ctx context.Context, err error, attempts int) bool {
	if ctx.Err() != nil {
		return false
	}
	if attempts > r.cfg.MaxRetries {
		return false
	}
	switch errorTypeLabel(err) {
	case "rate_limited", "timeout", "network", "blocked":
		return true
	default:
		return false
	}
}

// backoff computes the exponential retry delay for an attempt, capped at
// the configured maximum.
func (r *Runner) backoff(attempt int) time.Duration {
	if attempt <= 0 {
		attempt = 1
	}
	base := r.cfg.RetryBackoff
	if base <= 0 {
		base = 100 * time.Millisecond
	}
	delay := base * time.Duration(1<<(attempt-1))
	if max := r.cfg.RetryBackoffMax; max > 0 && delay > max {
		delay = max
	}
	return delay
}

// requestDelay returns the randomized inter-request delay for a worker.
func (r *Runner) requestDelay() time.Duration {
	delay := r.cfg.Delay
	if r.cfg.RandomDelay > 0 {
		r.jitterMu.Lock()
		delay += time.Duration(r.jitter.Int63n(int64(r.cfg.RandomDelay)))
		r.jitterMu.Unlock()
	}
	return delay
}

func (r *Runner) recordError(label string) {
	r.mu.Lock()
	r.errorsByType[label]++
	r.mu.Unlock()
}

func (r *Runner) recordRetry() {
	r.mu.Lock()
	r.retryCount++
	r.mu.Unlock()
}

func (r *Runner) snapshotErrors() map[string]int {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make(map[string]int, len(r.errorsByType))
	for k, v := range r.errorsByType {
		out[k] = v
	}
	return out
}

func (r *Runner) totalRetries() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.retryCount
}

// sleepCtx sleeps for d unless ctx is cancelled first. Returns false on
// cancellation.
func sleepCtx(ctx context.Context, d time.Duration) bool {
	if d <= 0 {
		return ctx.Err() == nil
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-timer.C:
		return true
	}
}
