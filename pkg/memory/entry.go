package memory

import (
	"strings"
	"time"

	"github.com/google/uuid"
)

// DefaultDomain is the reserved fallback domain for unclassified content.
const DefaultDomain = "general"

// Entry is the atomic unit of stored knowledge.
//
// The extended attributes (Domain, QualityScore, UsageCount, SuccessRate,
// ContextSimilarity, FederationSource) are always present and defaulted so
// the filter and router never have to probe for optional fields. Only the
// filter mutates UsageCount and SuccessRate; stores treat them as opaque.
type Entry struct {
	ID         string         `json:"-"`
	Content    string         `json:"content"`
	Metadata   map[string]any `json:"metadata"`
	Timestamp  time.Time      `json:"timestamp"`
	AgentID    string         `json:"agent_id"`
	Tags       []string       `json:"tags"`
	Importance float64        `json:"importance_score"`

	Domain           string  `json:"domain,omitempty"`
	QualityScore     float64 `json:"quality_score,omitempty"`
	UsageCount       int     `json:"usage_count,omitempty"`
	SuccessRate      float64 `json:"success_rate,omitempty"`
	FederationSource string  `json:"federation_source,omitempty"`

	// ContextSimilarity is computed per query by the insight filter and is
	// never persisted.
	ContextSimilarity float64 `json:"-"`
}

// NewEntry creates an entry with a fresh id and the current timestamp.
func NewEntry(agentID, content string, tags []string, metadata map[string]any) Entry {
	if metadata == nil {
		metadata = map[string]any{}
	}
	return Entry{
		ID:        uuid.NewString(),
		Content:   content,
		Metadata:  metadata,
		Timestamp: time.Now().UTC(),
		AgentID:   agentID,
		Tags:      append([]string(nil), tags...),
		Domain:    DefaultDomain,
	}
}

// Clone returns a deep copy so callers can mutate retrieval results without
// reaching into store state.
func (e Entry) Clone() Entry {
	out := e
	out.Tags = append([]string(nil), e.Tags...)
	out.Metadata = make(map[string]any, len(e.Metadata))
	for k, v := range e.Metadata {
		out.Metadata[k] = v
	}
	return out
}

// HasTag reports whether the entry carries the given tag (case-insensitive).
func (e Entry) HasTag(tag string) bool {
	for _, t := range e.Tags {
		if strings.EqualFold(t, tag) {
			return true
		}
	}
	return false
}

// EntryUpdate carries the caller-mutable fields for Store.Update. Nil fields
// are left untouched; applying any update refreshes the entry timestamp.
type EntryUpdate struct {
	Content    *string
	Metadata   map[string]any
	Tags       []string
	Importance *float64
}

func (u EntryUpdate) apply(e *Entry) {
	if u.Content != nil {
		e.Content = *u.Content
	}
	if u.Metadata != nil {
		e.Metadata = u.Metadata
	}
	if u.Tags != nil {
		e.Tags = append([]string(nil), u.Tags...)
	}
	if u.Importance != nil {
		e.Importance = *u.Importance
	}
	e.Timestamp = time.Now().UTC()
}
