package memory

import (
	"context"
	"fmt"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
)

// shareDamping is applied to importance when an entry is copied to another
// agent's private store.
const shareDamping = 0.8

// SharedKnowledgeTag marks entries that arrived through ShareKnowledge.
const SharedKnowledgeTag = "shared_knowledge"

// PrivateStore is a memory pool bound to exactly one agent identity. Every
// operation is gated on the acting identity: a mismatch is denied, logged
// with a *_denied operation and a reason, and never partially applied.
type PrivateStore struct {
	accessLog

	namespace string
	ownerID   string
	path      string

	mu sync.Mutex
}

// NewPrivateStore opens the isolated pool for ownerID. An empty owner
// identity is the one fatal constructor error; everything else degrades.
func NewPrivateStore(namespace, ownerID, storagePath string) (*PrivateStore, error) {
	if strings.TrimSpace(ownerID) == "" {
		return nil, fmt.Errorf("memory: private store requires an owner identity")
	}
	return &PrivateStore{
		namespace: namespace,
		ownerID:   ownerID,
		path:      filepath.Join(storagePath, fmt.Sprintf("private_memory_%s_%s.json", namespace, ownerID)),
	}, nil
}

// OwnerID returns the identity this store is bound to.
func (s *PrivateStore) OwnerID() string { return s.ownerID }

func (s *PrivateStore) Store(_ context.Context, e Entry) error {
	if e.AgentID != s.ownerID {
		s.log("store_denied", e.AgentID, map[string]any{
			"entry_id": e.ID,
			"reason":   "cross_agent_access_denied",
		})
		return ErrAccessDenied
	}
	if strings.TrimSpace(e.Content) == "" {
		return ErrEmptyContent
	}

	s.mu.Lock()
	records := loadRecords(s.path)
	records[e.ID] = e
	err := saveRecords(s.path, records)
	s.mu.Unlock()
	if err != nil {
		return err
	}

	s.log("store", e.AgentID, map[string]any{
		"entry_id":       e.ID,
		"content_length": len(e.Content),
		"tags":           e.Tags,
	})
	return nil
}

func (s *PrivateStore) Retrieve(_ context.Context, query, agentID string, limit int) ([]Entry, error) {
	if agentID != s.ownerID {
		s.log("retrieve_denied", agentID, map[string]any{
			"query":  query,
			"reason": "cross_agent_access_denied",
		})
		return []Entry{}, ErrAccessDenied
	}
	if limit <= 0 {
		limit = 10
	}

	s.mu.Lock()
	records := loadRecords(s.path)
	s.mu.Unlock()

	queryLower := strings.ToLower(query)
	var results []Entry
	for _, e := range records {
		if matchesKeyword(e, queryLower) || matchesMetadata(e, queryLower) {
			results = append(results, e.Clone())
		}
	}

	sort.Slice(results, func(i, j int) bool {
		if results[i].Importance != results[j].Importance {
			return results[i].Importance > results[j].Importance
		}
		if !results[i].Timestamp.Equal(results[j].Timestamp) {
			return results[i].Timestamp.After(results[j].Timestamp)
		}
		return results[i].ID < results[j].ID
	})
	if len(results) > limit {
		results = results[:limit]
	}

	s.log("retrieve", agentID, map[string]any{
		"query":              query,
		"results_found":      len(results),
		"cross_agent_access": false,
		"limit":              limit,
	})
	if results == nil {
		results = []Entry{}
	}
	return results, nil
}

func (s *PrivateStore) Update(_ context.Context, entryID string, upd EntryUpdate) error {
	s.mu.Lock()
	records := loadRecords(s.path)
	e, ok := records[entryID]
	if !ok {
		s.mu.Unlock()
		return ErrNotFound
	}
	if e.AgentID != s.ownerID {
		s.mu.Unlock()
		s.log("update_denied", e.AgentID, map[string]any{
			"entry_id": entryID,
			"reason":   "cross_agent_access_denied",
		})
		return ErrAccessDenied
	}
	upd.apply(&e)
	records[entryID] = e
	err := saveRecords(s.path, records)
	s.mu.Unlock()
	if err != nil {
		return err
	}

	s.log("update", s.ownerID, map[string]any{"entry_id": entryID})
	return nil
}

func (s *PrivateStore) Delete(_ context.Context, entryID string) error {
	s.mu.Lock()
	records := loadRecords(s.path)
	e, ok := records[entryID]
	if !ok {
		s.mu.Unlock()
		return ErrNotFound
	}
	if e.AgentID != s.ownerID {
		s.mu.Unlock()
		s.log("delete_denied", e.AgentID, map[string]any{
			"entry_id": entryID,
			"reason":   "cross_agent_access_denied",
		})
		return ErrAccessDenied
	}
	delete(records, entryID)
	err := saveRecords(s.path, records)
	s.mu.Unlock()
	if err != nil {
		return err
	}

	s.log("delete", s.ownerID, map[string]any{"entry_id": entryID})
	return nil
}

func (s *PrivateStore) AccessStats() AccessStats {
	return s.stats()
}

func (s *PrivateStore) Summary() Summary {
	s.mu.Lock()
	records := loadRecords(s.path)
	s.mu.Unlock()
	return summarize(records, s.ownerID)
}

// Export serializes durable state, the access log, and a summary for offline
// analysis.
func (s *PrivateStore) Export(path string) error {
	s.mu.Lock()
	records := loadRecords(s.path)
	s.mu.Unlock()

	return writeExport(path, exportFile{
		AgentID:         s.ownerID,
		MemoryData:      records,
		AccessStats:     s.stats(),
		Summary:         summarize(records, s.ownerID),
		ExportTimestamp: time.Now().UTC().Format(time.RFC3339),
	})
}

// ShareKnowledge copies the selected entries into another agent's private
// store. This is the only sanctioned private-to-private transfer channel:
// each copy is a new entry with provenance-prefixed content, damped
// importance, and the target's identity. Returns the number of entries
// actually shared.
func (s *PrivateStore) ShareKnowledge(ctx context.Context, entryIDs []string, target *PrivateStore) (int, error) {
	if target == nil {
		return 0, fmt.Errorf("memory: share target is nil")
	}

	s.mu.Lock()
	records := loadRecords(s.path)
	s.mu.Unlock()

	shared := 0
	for _, id := range entryIDs {
		e, ok := records[id]
		if !ok {
			continue
		}

		copyMeta := make(map[string]any, len(e.Metadata)+2)
		for k, v := range e.Metadata {
			copyMeta[k] = v
		}
		copyMeta["shared_from"] = s.ownerID
		copyMeta["original_id"] = id

		shareCopy := Entry{
			ID:         fmt.Sprintf("shared_%s_%s", uuid.NewString()[:8], id),
			Content:    fmt.Sprintf("[SHARED FROM %s] %s", s.ownerID, e.Content),
			Metadata:   copyMeta,
			Timestamp:  time.Now().UTC(),
			AgentID:    target.OwnerID(),
			Tags:       append(append([]string(nil), e.Tags...), SharedKnowledgeTag),
			Importance: e.Importance * shareDamping,
			Domain:     e.Domain,
		}
		if err := target.Store(ctx, shareCopy); err != nil {
			continue
		}
		shared++
	}

	s.log("share_knowledge", s.ownerID, map[string]any{
		"target_agent":    target.OwnerID(),
		"entries_shared":  shared,
		"total_requested": len(entryIDs),
	})
	if shared == 0 && len(entryIDs) > 0 {
		return 0, fmt.Errorf("memory: no entries shared to %s", target.OwnerID())
	}
	return shared, nil
}

// SharedWithMe lists entries that arrived through ShareKnowledge, newest
// first. Only the owner may ask.
func (s *PrivateStore) SharedWithMe(_ context.Context, agentID string) ([]Entry, error) {
	if agentID != s.ownerID {
		s.log("retrieve_denied", agentID, map[string]any{
			"query":  "shared_knowledge",
			"reason": "cross_agent_access_denied",
		})
		return []Entry{}, ErrAccessDenied
	}

	s.mu.Lock()
	records := loadRecords(s.path)
	s.mu.Unlock()

	var out []Entry
	for _, e := range records {
		if e.HasTag(SharedKnowledgeTag) {
			out = append(out, e.Clone())
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].Timestamp.Equal(out[j].Timestamp) {
			return out[i].Timestamp.After(out[j].Timestamp)
		}
		return out[i].ID < out[j].ID
	})
	if out == nil {
		out = []Entry{}
	}
	return out, nil
}

// matchesMetadata reports whether the query appears in any metadata value,
// private stores search metadata in addition to content and tags.
func matchesMetadata(e Entry, queryLower string) bool {
	if queryLower == "" {
		return false
	}
	for _, v := range e.Metadata {
		if strings.Contains(strings.ToLower(fmt.Sprint(v)), queryLower) {
			return true
		}
	}
	return false
}
