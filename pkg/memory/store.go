package memory

import (
	"context"
	"errors"
	"sync"
	"time"
)

var (
	// ErrNotFound is returned by Update/Delete for an unknown entry id.
	ErrNotFound = errors.New("memory: entry not found")

	// ErrAccessDenied is returned when an identity other than a private
	// store's owner attempts an operation on it.
	ErrAccessDenied = errors.New("memory: cross-agent access denied")

	// ErrEmptyContent is returned for a store call with no content.
	ErrEmptyContent = errors.New("memory: entry content is empty")
)

// Store is the contract every concrete memory store implements.
//
// Retrieve never fails on "no results"; it returns an empty slice. Ordering
// is store-specific but deterministic for identical inputs and state.
type Store interface {
	Store(ctx context.Context, e Entry) error
	Retrieve(ctx context.Context, query, agentID string, limit int) ([]Entry, error)
	Update(ctx context.Context, entryID string, upd EntryUpdate) error
	Delete(ctx context.Context, entryID string) error
	AccessStats() AccessStats
}

// AccessRecord is one line of the append-only access log.
type AccessRecord struct {
	Timestamp time.Time      `json:"timestamp"`
	Operation string         `json:"operation"`
	AgentID   string         `json:"agent_id"`
	Details   map[string]any `json:"details"`
}

// AccessStats aggregates the access log for offline analysis.
type AccessStats struct {
	TotalAccesses int            `json:"total_accesses"`
	Operations    map[string]int `json:"operations"`
	Agents        map[string]int `json:"agents"`
	AccessLog     []AccessRecord `json:"access_log"`
}

// accessLog is the shared logging state embedded by every concrete store.
// Appends and snapshots are guarded so stores stay safe under concurrent
// callers.
type accessLog struct {
	mu      sync.Mutex
	records []AccessRecord
}

func (l *accessLog) log(operation, agentID string, details map[string]any) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.records = append(l.records, AccessRecord{
		Timestamp: time.Now().UTC(),
		Operation: operation,
		AgentID:   agentID,
		Details:   details,
	})
}

func (l *accessLog) stats() AccessStats {
	l.mu.Lock()
	defer l.mu.Unlock()

	stats := AccessStats{
		TotalAccesses: len(l.records),
		Operations:    map[string]int{},
		Agents:        map[string]int{},
		AccessLog:     append([]AccessRecord(nil), l.records...),
	}
	for _, rec := range l.records {
		stats.Operations[rec.Operation]++
		stats.Agents[rec.AgentID]++
	}
	return stats
}
