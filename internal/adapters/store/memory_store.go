// Package store provides batch record repositories. Records are
// append-only: once written they are never updated or deleted.
package store

import (
	"context"
	"sync"

	"go.uber.org/zap"

	"github.com/mikey/mail-threat-scanner/internal/core"
)

// MemoryStore is an in-memory implementation of the BatchRepository
// interface, mainly for one-shot CLI runs and tests
type MemoryStore struct {
	mu      sync.RWMutex
	records []*core.BatchRecord
	logger  *zap.Logger
}

// NewMemoryStore creates a new in-memory store
func NewMemoryStore(logger *zap.Logger) *MemoryStore {
	return &MemoryStore{
		logger: logger,
	}
}

// Append stores one record
func (s *MemoryStore) Append(ctx context.Context, rec *core.BatchRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	// Copy so later caller mutations cannot reach stored rows.
	stored := *rec
	s.records = append(s.records, &stored)
	return nil
}

// Recent returns up to limit records, newest first
func (s *MemoryStore) Recent(ctx context.Context, limit int) ([]*core.BatchRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if limit <= 0 || limit > len(s.records) {
		limit = len(s.records)
	}

	out := make([]*core.BatchRecord, 0, limit)
	for i := len(s.records) - 1; i >= 0 && len(out) < limit; i-- {
		rec := *s.records[i]
		out = append(out, &rec)
	}
	return out, nil
}

// Close is a no-op for the memory store
func (s *MemoryStore) Close() error {
	return nil
}
