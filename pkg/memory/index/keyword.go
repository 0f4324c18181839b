package index

import (
	"context"
	"sort"
	"strings"
	"sync"
)

type keywordDoc struct {
	text     string
	metadata map[string]string
}

// Keyword is the in-process default backend: token-overlap scoring with a
// whole-query substring bonus. It needs no external service and exists so a
// store always has a working similarity path.
type Keyword struct {
	mu   sync.RWMutex
	docs map[string]keywordDoc
}

// NewKeyword creates an empty keyword index.
func NewKeyword() *Keyword {
	return &Keyword{docs: map[string]keywordDoc{}}
}

func (k *Keyword) Add(_ context.Context, id, text string, metadata map[string]string) error {
	k.mu.Lock()
	defer k.mu.Unlock()
	k.docs[id] = keywordDoc{text: strings.ToLower(text), metadata: metadata}
	return nil
}

func (k *Keyword) Update(ctx context.Context, id, text string, metadata map[string]string) error {
	return k.Add(ctx, id, text, metadata)
}

func (k *Keyword) Delete(_ context.Context, id string) error {
	k.mu.Lock()
	defer k.mu.Unlock()
	delete(k.docs, id)
	return nil
}

// Query ranks documents by how many query tokens they contain, with a bonus
// when the whole query appears verbatim. Ordering is deterministic: score
// descending, then id ascending.
func (k *Keyword) Query(_ context.Context, text string, limit int) ([]string, error) {
	if limit <= 0 {
		limit = 10
	}
	terms := tokenize(text)
	queryLower := strings.ToLower(strings.TrimSpace(text))

	type hit struct {
		id    string
		score int
	}

	k.mu.RLock()
	hits := make([]hit, 0, len(k.docs))
	for id, doc := range k.docs {
		score := 0
		for _, term := range terms {
			if term != "" && strings.Contains(doc.text, term) {
				score++
			}
		}
		if queryLower != "" && strings.Contains(doc.text, queryLower) {
			score += 2
		}
		if score > 0 {
			hits = append(hits, hit{id: id, score: score})
		}
	}
	k.mu.RUnlock()

	sort.Slice(hits, func(i, j int) bool {
		if hits[i].score != hits[j].score {
			return hits[i].score > hits[j].score
		}
		return hits[i].id < hits[j].id
	})

	if len(hits) > limit {
		hits = hits[:limit]
	}
	ids := make([]string, len(hits))
	for i, h := range hits {
		ids[i] = h.id
	}
	return ids, nil
}
