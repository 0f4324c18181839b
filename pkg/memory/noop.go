package memory

import "context"

// NullStore accepts every operation and persists nothing. It produces a
// control condition with the same instrumentation as a real store but zero
// memory effect: Retrieve always returns empty.
type NullStore struct {
	accessLog
}

// NewNullStore creates a no-op store.
func NewNullStore() *NullStore {
	return &NullStore{}
}

func (s *NullStore) Store(_ context.Context, e Entry) error {
	s.log("store_attempted", e.AgentID, map[string]any{"entry_id": e.ID})
	return nil
}

func (s *NullStore) Retrieve(_ context.Context, query, agentID string, limit int) ([]Entry, error) {
	s.log("retrieve", agentID, map[string]any{
		"query":         query,
		"results_found": 0,
		"limit":         limit,
	})
	return []Entry{}, nil
}

func (s *NullStore) Update(_ context.Context, entryID string, _ EntryUpdate) error {
	s.log("update", "", map[string]any{"entry_id": entryID})
	return nil
}

func (s *NullStore) Delete(_ context.Context, entryID string) error {
	s.log("delete", "", map[string]any{"entry_id": entryID})
	return nil
}

func (s *NullStore) AccessStats() AccessStats {
	return s.stats()
}
