package memory

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"sync"
	"time"
)

// PrivateStoreManager owns the lifetime of all private stores under one
// namespace. It is the only sanctioned way to obtain a PrivateStore: the
// identity -> store mapping is lazy, cached, and stable for the manager's
// lifetime.
type PrivateStoreManager struct {
	namespace   string
	storagePath string

	mu     sync.Mutex
	stores map[string]*PrivateStore
}

// NewPrivateStoreManager creates a manager rooted at storagePath.
func NewPrivateStoreManager(namespace, storagePath string) *PrivateStoreManager {
	return &PrivateStoreManager{
		namespace:   namespace,
		storagePath: storagePath,
		stores:      map[string]*PrivateStore{},
	}
}

// Get returns the private store for agentID, creating it on first request.
func (m *PrivateStoreManager) Get(agentID string) (*PrivateStore, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if store, ok := m.stores[agentID]; ok {
		return store, nil
	}
	store, err := NewPrivateStore(m.namespace, agentID, m.storagePath)
	if err != nil {
		return nil, err
	}
	m.stores[agentID] = store
	return store, nil
}

// All returns a snapshot of every managed store keyed by owner identity.
func (m *PrivateStoreManager) All() map[string]*PrivateStore {
	m.mu.Lock()
	defer m.mu.Unlock()

	out := make(map[string]*PrivateStore, len(m.stores))
	for id, store := range m.stores {
		out[id] = store
	}
	return out
}

// managerSummary is the aggregate file written next to per-agent exports.
type managerSummary struct {
	Namespace       string             `json:"namespace"`
	TotalAgents     int                `json:"total_agents"`
	AgentSummaries  map[string]Summary `json:"agent_summaries"`
	ExportTimestamp string             `json:"export_timestamp"`
}

// ExportAll writes one export file per managed store plus an aggregate
// summary file into outputDir.
func (m *PrivateStoreManager) ExportAll(outputDir string) error {
	if err := os.MkdirAll(outputDir, 0o755); err != nil {
		return fmt.Errorf("create export dir: %w", err)
	}

	stores := m.All()
	summaries := make(map[string]Summary, len(stores))

	ids := make([]string, 0, len(stores))
	for id := range stores {
		ids = append(ids, id)
	}
	sort.Strings(ids)

	for _, id := range ids {
		store := stores[id]
		path := filepath.Join(outputDir, fmt.Sprintf("private_memory_%s.json", id))
		if err := store.Export(path); err != nil {
			return fmt.Errorf("export %s: %w", id, err)
		}
		summaries[id] = store.Summary()
	}

	summary := managerSummary{
		Namespace:       m.namespace,
		TotalAgents:     len(stores),
		AgentSummaries:  summaries,
		ExportTimestamp: time.Now().UTC().Format(time.RFC3339),
	}
	data, err := marshalIndent(summary)
	if err != nil {
		return err
	}
	return os.WriteFile(filepath.Join(outputDir, "private_memories_summary.json"), data, 0o644)
}
