package store

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"pricescout/models"
)

// JSONL stores listings as newline-delimited JSON in a single append-only
// file. Appends are serialized by a mutex so parallel workers cannot
// interleave partial rows.
type JSONL struct {
	mu      sync.Mutex
	path    string
	file    *os.File
	writer  *bufio.Writer
	encoder *json.Encoder
}

// NewJSONL opens (or creates) the listing file for appending.
func NewJSONL(path string) (*JSONL, error) {
	if err := ensureDir(path); err != nil {
		return nil, err
	}

	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return nil, fmt.Errorf("open listing file: %w", err)
	}

	buffer := bufio.NewWriter(f)
	return &JSONL{
		path:    path,
		file:    f,
		writer:  buffer,
		encoder: json.NewEncoder(buffer),
	}, nil
}

// Append writes one listing row and flushes it, so readers never observe a
// partially written record.
func (s *JSONL) Append(_ context.Context, listing models.Listing) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.encoder.Encode(listing); err != nil {
		return &StoreError{Op: "append", Err: err}
	}
	if err := s.writer.Flush(); err != nil {
		return &StoreError{Op: "append", Err: err}
	}
	return nil
}

// Query scans the listing file for a product's rows inside [from, to],
// oldest first in file order.
func (s *JSONL) Query(_ context.Context, product string, from, to time.Time) ([]models.Listing, error) {
	s.mu.Lock()
	if err := s.writer.Flush(); err != nil {
		s.mu.Unlock()
		return nil, &StoreError{Op: "query", Err: err}
	}
	s.mu.Unlock()

	f, err := os.Open(s.path)
	if err != nil {
		return nil, &StoreError{Op: "query", Err: err}
	}
	defer f.Close()

	var listings []models.Listing
	scanner := bufio.NewScanner(f)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	for scanner.Scan() {
		line := scanner.Bytes()
		if len(line) == 0 {
			continue
		}
		var l models.Listing
		if err := json.Unmarshal(line, &l); err != nil {
			// Skip torn rows from earlier crashes rather than failing
			// the whole query.
			continue
		}
		if l.ProductQuery != product {
			continue
		}
		if !from.IsZero() && l.ObservedAt.Before(from) {
			continue
		}
		if !to.IsZero() && l.ObservedAt.After(to) {
			continue
		}
		listings = append(listings, l)
	}
	if err := scanner.Err(); err != nil {
		return nil, &StoreError{Op: "query", Err: err}
	}
	return listings, nil
}

// Close flushes buffers and closes the underlying file.
func (s *JSONL) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.writer.Flush(); err != nil {
		return fmt.Errorf("flush listing file: %w", err)
	}
	return s.file.Close()
}

func ensureDir(filename string) error {
	dir := filepath.Dir(filename)
	if dir == "" || dir == "." {
		return nil
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("create directory %q: %w", dir, err)
	}
	return nil
}
