package pipeline

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"pricescout/config"
	"pricescout/models"
	"pricescout/store"
)

func listing(product, title, url string, price *float64) models.Listing {
	return models.Listing{
		ProductQuery: product,
		Title:        title,
		Price:        price,
		URL:          url,
		ObservedAt:   time.Date(2026, 8, 25, 12, 0, 0, 0, time.UTC),
	}
}

func price(v float64) *float64 { return &v }

func testConfig() *config.Config {
	cfg := config.DefaultConfig()
	cfg.MinPrice = 50
	cfg.MaxPrice = 100000
	return cfg
}

func TestIngestDropsDuplicateURLs(t *testing.T) {
	st := store.NewMemory()
	in := NewIngestor(st, testConfig())

	batch := []models.Listing{
		listing("iphone 13", "first", "https://www.olx.com.br/d/1", price(100)),
		listing("iphone 13", "second", "https://www.olx.com.br/d/1", price(120)),
		listing("iphone 13", "third", "https://www.olx.com.br/d/2", price(130)),
	}

	persisted := in.Ingest(context.Background(), batch)
	if persisted != 2 {
		t.Fatalf("persisted = %d, want 2", persisted)
	}
	if st.Len() != 2 {
		t.Fatalf("store has %d rows, want 2", st.Len())
	}

	// Duplicate tracking spans batches within a run.
	again := in.Ingest(context.Background(), []models.Listing{
		listing("iphone 13", "fourth", "https://www.olx.com.br/d/2", price(140)),
	})
	if again != 0 {
		t.Fatalf("cross-batch duplicate persisted")
	}
}

func TestIngestAppliesPriceBounds(t *testing.T) {
	st := store.NewMemory()
	cfg := testConfig()
	cfg.MinPrice = 100
	cfg.MaxPrice = 1000
	in := NewIngestor(st, cfg)

	batch := []models.Listing{
		listing("iphone 13", "too cheap", "https://www.olx.com.br/d/1", price(10)),
		listing("iphone 13", "too expensive", "https://www.olx.com.br/d/2", price(50000)),
		listing("iphone 13", "in range", "https://www.olx.com.br/d/3", price(500)),
		listing("iphone 13", "no price", "https://www.olx.com.br/d/4", nil),
	}

	persisted := in.Ingest(context.Background(), batch)
	if persisted != 2 {
		t.Fatalf("persisted = %d, want 2 (in range + nil price)", persisted)
	}

	rows, err := st.Query(context.Background(), "iphone 13", time.Time{}, time.Time{})
	if err != nil {
		t.Fatalf("query: %v", err)
	}
	for _, r := range rows {
		if r.Title != "in range" && r.Title != "no price" {
			t.Errorf("unexpected row persisted: %q", r.Title)
		}
	}
}

func TestIngestDropsInvalidRecords(t *testing.T) {
	st := store.NewMemory()
	in := NewIngestor(st, testConfig())

	persisted := in.Ingest(context.Background(), []models.Listing{
		listing("iphone 13", "", "", price(100)),
	})
	if persisted != 0 {
		t.Fatalf("listing missing both title and url must be dropped")
	}

	metrics := in.Metrics()
	validation := metrics["validation_errors"].(map[string]int)
	if validation["invalid_record"] != 1 {
		t.Fatalf("invalid_record count = %d, want 1", validation["invalid_record"])
	}
}

// failingStore errors on one specific URL and delegates the rest.
type failingStore struct {
	inner   *store.Memory
	failURL string
}

func (f *failingStore) Append(ctx context.Context, l models.Listing) error {
	if l.URL == f.failURL {
		return errors.New("disk full")
	}
	return f.inner.Append(ctx, l)
}

func (f *failingStore) Query(ctx context.Context, product string, from, to time.Time) ([]models.Listing, error) {
	return f.inner.Query(ctx, product, from, to)
}

func TestIngestContainsStoreFailures(t *testing.T) {
	inner := store.NewMemory()
	st := &failingStore{inner: inner, failURL: "https://www.olx.com.br/d/2"}
	in := NewIngestor(st, testConfig())

	batch := []models.Listing{
		listing("iphone 13", "before", "https://www.olx.com.br/d/1", price(100)),
		listing("iphone 13", "failing", "https://www.olx.com.br/d/2", price(110)),
		listing("iphone 13", "after", "https://www.olx.com.br/d/3", price(120)),
	}

	persisted := in.Ingest(context.Background(), batch)
	if persisted != 2 {
		t.Fatalf("persisted = %d, want 2 (failure must not abort the batch)", persisted)
	}
	if inner.Len() != 2 {
		t.Fatalf("store has %d rows, want 2", inner.Len())
	}

	metrics := in.Metrics()
	if got := metrics["store_errors"].(int); got != 1 {
		t.Fatalf("store_errors = %d, want 1", got)
	}
}

func TestIngestPerProductCounts(t *testing.T) {
	st := store.NewMemory()
	in := NewIngestor(st, testConfig())

	var batch []models.Listing
	for i := 0; i < 3; i++ {
		batch = append(batch, listing("iphone 13", "a", "https://www.olx.com.br/d/i"+strings.Repeat("x", i+1), price(100)))
	}
	batch = append(batch, listing("notebook", "b", "https://www.olx.com.br/d/n1", price(900)))

	in.Ingest(context.Background(), batch)

	counts := in.PerProduct()
	if counts["iphone 13"] != 3 {
		t.Errorf("iphone 13 count = %d, want 3", counts["iphone 13"])
	}
	if counts["notebook"] != 1 {
		t.Errorf("notebook count = %d, want 1", counts["notebook"])
	}
	if in.Persisted() != 4 {
		t.Errorf("Persisted() = %d, want 4", in.Persisted())
	}
}
