package store

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"pricescout/models"
)

func newTestListing(product, title string, price float64, observed time.Time) models.Listing {
	return models.Listing{
		ProductQuery: product,
		Title:        title,
		Price:        &price,
		URL:          "https://www.olx.com.br/d/" + title,
		ObservedAt:   observed,
	}
}

func TestJSONLAppendAndQuery(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "listings.jsonl")

	s, err := NewJSONL(path)
	if err != nil {
		t.Fatalf("new store: %v", err)
	}
	defer s.Close()

	base := time.Date(2026, 8, 25, 12, 0, 0, 0, time.UTC)
	rows := []models.Listing{
		newTestListing("iphone 13", "a", 2499, base),
		newTestListing("iphone 13", "b", 1999, base.Add(time.Hour)),
		newTestListing("notebook", "c", 1800, base),
	}
	for _, l := range rows {
		if err := s.Append(ctx, l); err != nil {
			t.Fatalf("append: %v", err)
		}
	}

	got, err := s.Query(ctx, "iphone 13", time.Time{}, time.Time{})
	if err != nil {
		t.Fatalf("query: %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("got %d listings, want 2", len(got))
	}
	if got[0].Title != "a" || got[1].Title != "b" {
		t.Errorf("rows out of append order: %q, %q", got[0].Title, got[1].Title)
	}
	if price, ok := got[0].PriceValue(); !ok || price != 2499 {
		t.Errorf("price = %v (present=%v), want 2499", price, ok)
	}
}

func TestJSONLQueryTimeBounds(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "listings.jsonl")

	s, err := NewJSONL(path)
	if err != nil {
		t.Fatalf("new store: %v", err)
	}
	defer s.Close()

	base := time.Date(2026, 8, 25, 12, 0, 0, 0, time.UTC)
	for i := 0; i < 3; i++ {
		l := newTestListing("iphone 13", string(rune('a'+i)), 100, base.Add(time.Duration(i)*time.Hour))
		if err := s.Append(ctx, l); err != nil {
			t.Fatalf("append: %v", err)
		}
	}

	got, err := s.Query(ctx, "iphone 13", base.Add(30*time.Minute), base.Add(90*time.Minute))
	if err != nil {
		t.Fatalf("query: %v", err)
	}
	if len(got) != 1 {
		t.Fatalf("got %d listings, want 1", len(got))
	}
	if got[0].Title != "b" {
		t.Errorf("title = %q, want %q", got[0].Title, "b")
	}
}

func TestJSONLQuerySkipsTornRows(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "listings.jsonl")

	// Simulate a crash that left a partial row behind.
	if err := os.WriteFile(path, []byte(`{"product_query":"iphone 13","title":"ok","price":100,"url":"u","observed_at":"2026-08-25T12:00:00Z"}
{"product_query":"iphone 13","title":"torn`+"\n"), 0o644); err != nil {
		t.Fatalf("seed file: %v", err)
	}

	s, err := NewJSONL(path)
	if err != nil {
		t.Fatalf("new store: %v", err)
	}
	defer s.Close()

	got, err := s.Query(ctx, "iphone 13", time.Time{}, time.Time{})
	if err != nil {
		t.Fatalf("query: %v", err)
	}
	if len(got) != 1 {
		t.Fatalf("got %d listings, want 1 (torn row skipped)", len(got))
	}
	if got[0].Title != "ok" {
		t.Errorf("title = %q, want %q", got[0].Title, "ok")
	}
}

func TestJSONLCreatesParentDirectory(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "deep", "listings.jsonl")

	s, err := NewJSONL(path)
	if err != nil {
		t.Fatalf("new store: %v", err)
	}
	defer s.Close()

	if _, err := os.Stat(filepath.Dir(path)); err != nil {
		t.Fatalf("parent directory missing: %v", err)
	}
}

func TestMemoryStoreQueryFilters(t *testing.T) {
	ctx := context.Background()
	m := NewMemory()

	base := time.Date(2026, 8, 25, 12, 0, 0, 0, time.UTC)
	_ = m.Append(ctx, newTestListing("iphone 13", "a", 100, base))
	_ = m.Append(ctx, newTestListing("notebook", "b", 200, base))

	got, err := m.Query(ctx, "iphone 13", time.Time{}, time.Time{})
	if err != nil {
		t.Fatalf("query: %v", err)
	}
	if len(got) != 1 || got[0].Title != "a" {
		t.Fatalf("got %+v, want the single iphone row", got)
	}
	if m.Len() != 2 {
		t.Fatalf("Len() = %d, want 2", m.Len())
	}
}
