package index

import (
	"context"
	"fmt"
	"strings"
	"sync"

	chromem "github.com/philippgille/chromem-go"
)

// Chromem is the embedded vector backend. Documents are embedded locally by
// a deterministic hashing embedder, so no external service is involved and
// results are stable across runs.
type Chromem struct {
	db       *chromem.DB
	embedder Embedder

	mu  sync.Mutex
	col *chromem.Collection
}

// NewChromem creates an in-memory vector index for one collection. If
// persistPath is non-empty the collection is persisted there and survives
// restarts.
func NewChromem(collection, persistPath string, embedder Embedder) (*Chromem, error) {
	if embedder == nil {
		embedder = NewEmbedder("")
	}

	var db *chromem.DB
	var err error
	if persistPath != "" {
		db, err = chromem.NewPersistentDB(persistPath, false)
		if err != nil {
			return nil, fmt.Errorf("open vector db: %w", err)
		}
	} else {
		db = chromem.NewDB()
	}

	name := sanitizeCollectionName(collection)
	col, err := db.GetOrCreateCollection(name, map[string]string{"embedder": embedder.ModelID()}, chromem.EmbeddingFunc(EmbeddingFunc(embedder)))
	if err != nil {
		return nil, fmt.Errorf("create collection %s: %w", name, err)
	}

	return &Chromem{db: db, embedder: embedder, col: col}, nil
}

// sanitizeCollectionName maps an arbitrary namespace onto the character set
// chromem accepts for collection names.
func sanitizeCollectionName(name string) string {
	name = strings.TrimSpace(name)
	if name == "" {
		return "memory"
	}
	var b strings.Builder
	for _, r := range name {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '-', r == '_':
			b.WriteRune(r)
		default:
			b.WriteByte('_')
		}
	}
	return b.String()
}

func (c *Chromem) Add(ctx context.Context, id, text string, metadata map[string]string) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	doc := chromem.Document{
		ID:       id,
		Content:  text,
		Metadata: metadata,
	}
	if err := c.col.AddDocument(ctx, doc); err != nil {
		return fmt.Errorf("add document %s: %w", id, err)
	}
	return nil
}

// Update re-adds the document; chromem upserts by ID.
func (c *Chromem) Update(ctx context.Context, id, text string, metadata map[string]string) error {
	return c.Add(ctx, id, text, metadata)
}

func (c *Chromem) Delete(ctx context.Context, id string) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if err := c.col.Delete(ctx, nil, nil, id); err != nil {
		return fmt.Errorf("delete document %s: %w", id, err)
	}
	return nil
}

// Query returns up to k document ids by cosine similarity. chromem rejects
// nResults larger than the collection, so k is clamped to the current count.
func (c *Chromem) Query(ctx context.Context, text string, k int) ([]string, error) {
	if k <= 0 {
		k = 10
	}
	c.mu.Lock()
	defer c.mu.Unlock()

	count := c.col.Count()
	if count == 0 {
		return nil, nil
	}
	if k > count {
		k = count
	}

	results, err := c.col.Query(ctx, text, k, nil, nil)
	if err != nil {
		return nil, fmt.Errorf("query collection: %w", err)
	}
	ids := make([]string, len(results))
	for i, res := range results {
		ids[i] = res.ID
	}
	return ids, nil
}
