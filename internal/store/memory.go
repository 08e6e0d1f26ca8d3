package store

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
)

// Memory is a Store kept entirely in process memory. It backs tests and runs
// without a database, and mirrors the Postgres dedup semantics.
type Memory struct {
	mu      sync.RWMutex
	records map[string]*JobRecord
}

func NewMemory() *Memory {
	return &Memory{records: make(map[string]*JobRecord)}
}

func (m *Memory) FindByKey(ctx context.Context, company, title, sourceURL string) (*JobRecord, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	for _, rec := range m.records {
		if rec.SourceURL != "" && rec.SourceURL == sourceURL {
			cp := *rec
			return &cp, nil
		}
		if strings.EqualFold(rec.Company, company) && strings.EqualFold(rec.Title, title) {
			cp := *rec
			return &cp, nil
		}
	}
	return nil, nil
}

func (m *Memory) Insert(ctx context.Context, rec *JobRecord) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if rec.ID == "" {
		rec.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	if rec.CreatedAt.IsZero() {
		rec.CreatedAt = now
	}
	rec.UpdatedAt = now
	if rec.Status == "" {
		rec.Status = StatusNew
	}
	for _, existing := range m.records {
		if existing.SourceURL != "" && existing.SourceURL == rec.SourceURL {
			return ErrDuplicate
		}
	}
	cp := *rec
	m.records[rec.ID] = &cp
	return nil
}

func (m *Memory) Update(ctx context.Context, rec *JobRecord) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.records[rec.ID]; !ok {
		return &PersistenceError{Op: "update", Err: fmt.Errorf("no record with id %s", rec.ID)}
	}
	rec.UpdatedAt = time.Now().UTC()
	cp := *rec
	m.records[rec.ID] = &cp
	return nil
}

// Len reports the number of stored records.
func (m *Memory) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.records)
}

// All returns a snapshot of every record, in no particular order.
func (m *Memory) All() []JobRecord {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]JobRecord, 0, len(m.records))
	for _, rec := range m.records {
		out = append(out, *rec)
	}
	return out
}
