// Package store persists listing observations. All backends are
// append-only: new observations become new rows and nothing is updated or
// deleted during normal operation.
package store

import (
	"context"
	"fmt"
	"time"

	"pricescout/models"
)

// Store is the persistence contract. Append must be safe for concurrent
// use by parallel workers. Query returns listings for a product inside
// [from, to]; a zero bound leaves that side open.
type Store interface {
	Append(ctx context.Context, listing models.Listing) error
	Query(ctx context.Context, product string, from, to time.Time) ([]models.Listing, error)
}

// StoreError wraps a backend failure for one listing. Callers log it and
// continue with the remaining listings; it never aborts a run.
type StoreError struct {
	Op  string
	Err error
}

func (e *StoreError) Error() string {
	return fmt.Sprintf("store %s: %v", e.Op, e.Err)
}

func (e *StoreError) Unwrap() error {
	return e.Err
}
