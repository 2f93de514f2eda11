package cache

import (
	"context"
	"time"

	"github.com/hashicorp/golang-lru/v2/expirable"
)

// defaultMemorySize bounds the local tier; pages are a few hundred KB each.
const defaultMemorySize = 256

// Memory is the in-process cache tier, backed by an expirable LRU.
type Memory struct {
	lru *expirable.LRU[string, []byte]
}

// NewMemory builds a local cache holding up to size pages for ttl.
func NewMemory(size int, ttl time.Duration) *Memory {
	if size <= 0 {
		size = defaultMemorySize
	}
	return &Memory{lru: expirable.NewLRU[string, []byte](size, nil, ttl)}
}

func (m *Memory) Get(_ context.Context, key Key) ([]byte, bool) {
	return m.lru.Get(key.String())
}

func (m *Memory) Put(_ context.Context, key Key, value []byte) {
	m.lru.Add(key.String(), value)
}
