package memory

import (
	"context"
	"fmt"
	"log/slog"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/swarmlabs/hivemem/pkg/memory/index"
)

// SharedStore is one memory pool addressable by every agent. Durable state is
// a JSON record map (the source of truth) paired with an optional similarity
// index; when no index is configured, or the index fails, retrieval degrades
// to keyword matching.
type SharedStore struct {
	accessLog

	namespace string
	path      string
	idx       index.Index

	// mu serializes read-modify-write of the backing file so concurrent
	// agents never interleave a load with a save.
	mu sync.Mutex
}

// NewSharedStore opens (or creates) the shared pool for the given namespace
// under storagePath. idx may be nil to run on keyword matching alone.
func NewSharedStore(namespace, storagePath string, idx index.Index) *SharedStore {
	s := &SharedStore{
		namespace: namespace,
		path:      filepath.Join(storagePath, fmt.Sprintf("shared_memory_%s.json", namespace)),
		idx:       idx,
	}
	if idx != nil {
		s.seedIndex()
	}
	return s
}

// seedIndex replays durable records into the index. The index is derived
// state: in-memory backends start empty each process, so the durable map
// repopulates them at open; persistent backends see idempotent upserts.
func (s *SharedStore) seedIndex() {
	ctx := context.Background()
	for id, e := range loadRecords(s.path) {
		if err := s.idx.Add(ctx, id, e.Content, indexMetadata(e)); err != nil {
			slog.Warn("memory: similarity index seed failed", "namespace", s.namespace, "entry_id", id, "error", err)
		}
	}
}

// Namespace returns the pool identifier this store was opened with.
func (s *SharedStore) Namespace() string { return s.namespace }

func (s *SharedStore) Store(ctx context.Context, e Entry) error {
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

	if s.idx != nil {
		if ierr := s.idx.Add(ctx, e.ID, e.Content, indexMetadata(e)); ierr != nil {
			slog.Warn("memory: similarity index add failed", "namespace", s.namespace, "entry_id", e.ID, "error", ierr)
		}
	}

	s.log("store", e.AgentID, map[string]any{
		"entry_id":       e.ID,
		"content_length": len(e.Content),
		"tags":           e.Tags,
	})
	return nil
}

func (s *SharedStore) Retrieve(ctx context.Context, query, agentID string, limit int) ([]Entry, error) {
	if limit <= 0 {
		limit = 10
	}

	s.mu.Lock()
	records := loadRecords(s.path)
	s.mu.Unlock()

	var results []Entry
	if s.idx != nil {
		ids, err := s.idx.Query(ctx, query, limit)
		if err != nil {
			slog.Warn("memory: similarity query failed, using keyword fallback", "namespace", s.namespace, "error", err)
			results = keywordMatch(records, query, limit)
		} else {
			// Ids unknown to the durable map are skipped; the index is a
			// derived artifact and may lag behind deletes.
			for _, id := range ids {
				if e, ok := records[id]; ok {
					results = append(results, e.Clone())
				}
			}
		}
	} else {
		results = keywordMatch(records, query, limit)
	}

	crossAgent := false
	for _, e := range results {
		if e.AgentID != agentID {
			crossAgent = true
			break
		}
	}

	s.log("retrieve", agentID, map[string]any{
		"query":              query,
		"results_found":      len(results),
		"cross_agent_access": crossAgent,
		"limit":              limit,
	})
	if results == nil {
		results = []Entry{}
	}
	return results, nil
}

func (s *SharedStore) Update(ctx context.Context, entryID string, upd EntryUpdate) error {
	s.mu.Lock()
	records := loadRecords(s.path)
	e, ok := records[entryID]
	if !ok {
		s.mu.Unlock()
		return ErrNotFound
	}
	upd.apply(&e)
	records[entryID] = e
	err := saveRecords(s.path, records)
	s.mu.Unlock()
	if err != nil {
		return err
	}

	if s.idx != nil {
		if ierr := s.idx.Update(ctx, entryID, e.Content, indexMetadata(e)); ierr != nil {
			slog.Warn("memory: similarity index update failed", "namespace", s.namespace, "entry_id", entryID, "error", ierr)
		}
	}

	s.log("update", e.AgentID, map[string]any{"entry_id": entryID})
	return nil
}

func (s *SharedStore) Delete(ctx context.Context, entryID string) error {
	s.mu.Lock()
	records := loadRecords(s.path)
	e, ok := records[entryID]
	if !ok {
		s.mu.Unlock()
		return ErrNotFound
	}
	delete(records, entryID)
	err := saveRecords(s.path, records)
	s.mu.Unlock()
	if err != nil {
		return err
	}

	if s.idx != nil {
		if ierr := s.idx.Delete(ctx, entryID); ierr != nil {
			slog.Warn("memory: similarity index delete failed", "namespace", s.namespace, "entry_id", entryID, "error", ierr)
		}
	}

	s.log("delete", e.AgentID, map[string]any{"entry_id": entryID})
	return nil
}

func (s *SharedStore) AccessStats() AccessStats {
	return s.stats()
}

// Entries returns every durable entry in the pool, newest first. Federation
// export and offline analysis need the full set, not a query's view of it.
func (s *SharedStore) Entries() []Entry {
	s.mu.Lock()
	records := loadRecords(s.path)
	s.mu.Unlock()

	out := make([]Entry, 0, len(records))
	for _, e := range records {
		out = append(out, e.Clone())
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].Timestamp.Equal(out[j].Timestamp) {
			return out[i].Timestamp.After(out[j].Timestamp)
		}
		return out[i].ID < out[j].ID
	})
	return out
}

// Summary describes a store's contents for export and inspection.
type Summary struct {
	TotalEntries int      `json:"total_entries"`
	AgentID      string   `json:"agent_id,omitempty"`
	Agents       []string `json:"agents,omitempty"`
	Tags         []string `json:"tags"`
	LatestUpdate string   `json:"latest_update,omitempty"`
}

func (s *SharedStore) Summary() Summary {
	s.mu.Lock()
	records := loadRecords(s.path)
	s.mu.Unlock()
	return summarize(records, "")
}

// Export serializes durable state, the access log, and a summary to a single
// portable file for offline analysis.
func (s *SharedStore) Export(path string) error {
	s.mu.Lock()
	records := loadRecords(s.path)
	s.mu.Unlock()

	return writeExport(path, exportFile{
		MemoryData:      records,
		AccessStats:     s.stats(),
		Summary:         summarize(records, ""),
		ExportTimestamp: time.Now().UTC().Format(time.RFC3339),
	})
}

func summarize(records map[string]Entry, ownerID string) Summary {
	agents := map[string]struct{}{}
	tags := map[string]struct{}{}
	var latest time.Time
	for _, e := range records {
		agents[e.AgentID] = struct{}{}
		for _, t := range e.Tags {
			tags[t] = struct{}{}
		}
		if e.Timestamp.After(latest) {
			latest = e.Timestamp
		}
	}

	summary := Summary{
		TotalEntries: len(records),
		AgentID:      ownerID,
		Tags:         sortedKeys(tags),
	}
	if ownerID == "" {
		summary.Agents = sortedKeys(agents)
	}
	if !latest.IsZero() {
		summary.LatestUpdate = latest.Format(time.RFC3339)
	}
	return summary
}

func sortedKeys(set map[string]struct{}) []string {
	out := make([]string, 0, len(set))
	for k := range set {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}

// indexMetadata flattens entry attributes into the string map the index
// contract accepts; tags collapse to a single comma-delimited value.
func indexMetadata(e Entry) map[string]string {
	return map[string]string{
		"agent_id":         e.AgentID,
		"timestamp":        e.Timestamp.Format(time.RFC3339),
		"tags":             strings.Join(e.Tags, ","),
		"importance_score": strconv.FormatFloat(e.Importance, 'f', -1, 64),
	}
}

// keywordMatch is the index-free retrieval path: case-insensitive substring
// match of the query against content, or of any tag against the query,
// ordered by importance then recency then id so results are deterministic.
func keywordMatch(records map[string]Entry, query string, limit int) []Entry {
	queryLower := strings.ToLower(query)

	var matched []Entry
	for _, e := range records {
		if matchesKeyword(e, queryLower) {
			matched = append(matched, e.Clone())
		}
	}

	sort.Slice(matched, func(i, j int) bool {
		if matched[i].Importance != matched[j].Importance {
			return matched[i].Importance > matched[j].Importance
		}
		if !matched[i].Timestamp.Equal(matched[j].Timestamp) {
			return matched[i].Timestamp.After(matched[j].Timestamp)
		}
		return matched[i].ID < matched[j].ID
	})

	if len(matched) > limit {
		matched = matched[:limit]
	}
	return matched
}

func matchesKeyword(e Entry, queryLower string) bool {
	if queryLower == "" {
		return false
	}
	if strings.Contains(strings.ToLower(e.Content), queryLower) {
		return true
	}
	for _, tag := range e.Tags {
		if strings.Contains(queryLower, strings.ToLower(tag)) {
			return true
		}
	}
	return false
}
