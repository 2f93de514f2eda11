package store

import (
	"context"
	"sync"
	"time"

	"pricescout/models"
)

// Memory keeps listings in process memory. It backs tests and dry runs.
type Memory struct {
	mu       sync.Mutex
	listings []models.Listing
}

// NewMemory returns an empty in-memory store.
func NewMemory() *Memory {
	return &Memory{}
}

func (m *Memory) Append(_ context.Context, listing models.Listing) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.listings = append(m.listings, listing)
	return nil
}

func (m *Memory) Query(_ context.Context, product string, from, to time.Time) ([]models.Listing, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	var out []models.Listing
	for _, l := range m.listings {
		if l.ProductQuery != product {
			continue
		}
		if !from.IsZero() && l.ObservedAt.Before(from) {
			continue
		}
		if !to.IsZero() && l.ObservedAt.After(to) {
			continue
		}
		out = append(out, l)
	}
	return out, nil
}

// Len reports the number of stored listings.
func (m *Memory) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.listings)
}
