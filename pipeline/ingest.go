// Package pipeline sits between the parser and the store: it validates
// parsed listings, drops duplicates within a run, applies the configured
// price bounds, and contains per-listing store failures so one bad row
// never aborts the batch.
package pipeline

import (
	"context"
	"log/slog"
	"sync"

	"pricescout/config"
	"pricescout/models"
	"pricescout/parser"
	"pricescout/store"
)

// Ingestor filters and persists parsed listings. Safe for concurrent use
// by parallel workers.
type Ingestor struct {
	store    store.Store
	minPrice float64
	maxPrice float64

	seen   map[string]struct{}
	seenMu sync.Mutex

	mu          sync.Mutex
	persisted   int64
	perProduct  map[string]int
	validation  map[string]int
	storeErrors int
}

// NewIngestor builds an ingestor writing to st with cfg's price bounds.
func NewIngestor(st store.Store, cfg *config.Config) *Ingestor {
	return &Ingestor{
		store:      st,
		minPrice:   cfg.MinPrice,
		maxPrice:   cfg.MaxPrice,
		seen:       make(map[string]struct{}),
		perProduct: make(map[string]int),
		validation: make(map[string]int),
	}
}

// Ingest runs the keep/drop policy over a parsed batch and appends the
// survivors. Returns the number of listings persisted. Store failures are
// logged and counted, never returned.
func (in *Ingestor) Ingest(ctx context.Context, listings []models.Listing) int {
	persisted := 0
	for i := range listings {
		listing := listings[i]
		if err := parser.ValidateListing(&listing); err != nil {
			in.addValidation("invalid_record")
			continue
		}
		if listing.URL != "" && !in.markSeen(listing.URL) {
			in.addValidation("duplicate_url")
			continue
		}
		if price, ok := listing.PriceValue(); ok && (price < in.minPrice || price > in.maxPrice) {
			in.addValidation("price_out_of_range")
			slog.Debug("listing price outside configured bounds",
				slog.String("title", listing.Title),
				slog.Float64("price", price),
			)
			continue
		}

		if err := in.store.Append(ctx, listing); err != nil {
			in.addStoreError()
			slog.Error("persist listing failed",
				slog.String("url", listing.URL),
				slog.Any("error", err),
			)
			continue
		}
		in.recordPersisted(listing.ProductQuery)
		persisted++
	}
	return persisted
}

// markSeen returns true the first time a URL is observed in this run.
func (in *Ingestor) markSeen(url string) bool {
	in.seenMu.Lock()
	defer in.seenMu.Unlock()
	if _, ok := in.seen[url]; ok {
		return false
	}
	in.seen[url] = struct{}{}
	return true
}

func (in *Ingestor) addValidation(kind string) {
	in.mu.Lock()
	in.validation[kind]++
	in.mu.Unlock()
}

func (in *Ingestor) addStoreError() {
	in.mu.Lock()
	in.storeErrors++
	in.mu.Unlock()
}

func (in *Ingestor) recordPersisted(product string) {
	in.mu.Lock()
	in.persisted++
	in.perProduct[product]++
	in.mu.Unlock()
}

// Persisted reports the total number of listings written so far.
func (in *Ingestor) Persisted() int {
	in.mu.Lock()
	defer in.mu.Unlock()
	return int(in.persisted)
}

// PerProduct returns a copy of the per-product persisted counts.
func (in *Ingestor) PerProduct() map[string]int {
	in.mu.Lock()
	defer in.mu.Unlock()
	out := make(map[string]int, len(in.perProduct))
	for k, v := range in.perProduct {
		out[k] = v
	}
	return out
}

// Metrics returns a snapshot of the internal counters.
func (in *Ingestor) Metrics() map[string]interface{} {
	in.mu.Lock()
	defer in.mu.Unlock()

	validation := make(map[string]int, len(in.validation))
	for k, v := range in.validation {
		validation[k] = v
	}
	return map[string]interface{}{
		"persisted_listings": in.persisted,
		"validation_errors":  validation,
		"store_errors":       in.storeErrors,
	}
}
