package memory

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"
)

func TestManagerGetCachesStores(t *testing.T) {
	m := NewPrivateStoreManager("test", t.TempDir())

	first, err := m.Get("engineer")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	second, err := m.Get("engineer")
	if err != nil {
		t.Fatalf("get again: %v", err)
	}
	if first != second {
		t.Error("manager should return the same store instance per identity")
	}

	if _, err := m.Get(""); err == nil {
		t.Error("expected error for empty identity")
	}
}

func TestManagerAllSnapshot(t *testing.T) {
	m := NewPrivateStoreManager("test", t.TempDir())
	if _, err := m.Get("engineer"); err != nil {
		t.Fatalf("get: %v", err)
	}
	if _, err := m.Get("qa_engineer"); err != nil {
		t.Fatalf("get: %v", err)
	}

	all := m.All()
	if len(all) != 2 {
		t.Fatalf("all = %d stores, want 2", len(all))
	}

	// Mutating the snapshot must not affect the manager.
	delete(all, "engineer")
	if len(m.All()) != 2 {
		t.Error("snapshot mutation leaked into the manager")
	}
}

func TestManagerExportAll(t *testing.T) {
	ctx := context.Background()
	m := NewPrivateStoreManager("test", t.TempDir())

	for _, agent := range []string{"engineer", "qa_engineer"} {
		store, err := m.Get(agent)
		if err != nil {
			t.Fatalf("get %s: %v", agent, err)
		}
		if err := store.Store(ctx, NewEntry(agent, "note from "+agent, nil, nil)); err != nil {
			t.Fatalf("store %s: %v", agent, err)
		}
	}

	outDir := t.TempDir()
	if err := m.ExportAll(outDir); err != nil {
		t.Fatalf("export all: %v", err)
	}

	for _, name := range []string{"private_memory_engineer.json", "private_memory_qa_engineer.json", "private_memories_summary.json"} {
		if _, err := os.Stat(filepath.Join(outDir, name)); err != nil {
			t.Errorf("missing export file %s: %v", name, err)
		}
	}

	raw, err := os.ReadFile(filepath.Join(outDir, "private_memories_summary.json"))
	if err != nil {
		t.Fatalf("read summary: %v", err)
	}
	var summary struct {
		Namespace      string             `json:"namespace"`
		TotalAgents    int                `json:"total_agents"`
		AgentSummaries map[string]Summary `json:"agent_summaries"`
	}
	if err := json.Unmarshal(raw, &summary); err != nil {
		t.Fatalf("decode summary: %v", err)
	}
	if summary.TotalAgents != 2 {
		t.Errorf("total agents = %d", summary.TotalAgents)
	}
	if summary.AgentSummaries["engineer"].TotalEntries != 1 {
		t.Errorf("engineer summary = %+v", summary.AgentSummaries["engineer"])
	}
}
