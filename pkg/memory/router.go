package memory

import (
	"context"
	"log/slog"
	"path/filepath"
	"strings"
	"sync"

	"github.com/swarmlabs/hivemem/pkg/memory/index"
)

// domainDef couples a domain name with its signal keywords. Declaration
// order doubles as the tie-break order for classification, so this is a
// slice, not a map.
type domainDef struct {
	name     string
	keywords []string
}

// The fixed topical taxonomy. Classification counts keyword presence; the
// policy is deliberately simple and inspectable, several callers depend on
// its determinism.
var domainTable = []domainDef{
	{"algorithms", []string{"sort", "search", "tree", "graph", "dynamic programming", "recursion"}},
	{"data_structures", []string{"list", "dict", "array", "stack", "queue", "heap"}},
	{"string_processing", []string{"string", "text", "parse", "regex", "format"}},
	{"mathematics", []string{"math", "calculation", "formula", "number", "factorial", "prime"}},
	{"validation", []string{"validate", "check", "verify", "test", "assert", "error"}},
	{"optimization", []string{"optimize", "efficient", "performance", "speed", "memory usage"}},
}

// Domains lists the routable domain names in declaration order, excluding
// the reserved fallback.
func Domains() []string {
	out := make([]string, len(domainTable))
	for i, d := range domainTable {
		out[i] = d.name
	}
	return out
}

// ClassifyDomain scores each domain by how many of its keywords occur in the
// lower-cased text and returns the highest scorer; ties go to the earlier
// declaration, no match goes to "general".
func ClassifyDomain(text string) string {
	textLower := strings.ToLower(text)

	best := DefaultDomain
	bestScore := 0
	for _, d := range domainTable {
		score := 0
		for _, kw := range d.keywords {
			if strings.Contains(textLower, kw) {
				score++
			}
		}
		if score > bestScore {
			best = d.name
			bestScore = score
		}
	}
	return best
}

// IndexFactory builds the similarity index for one domain store namespace.
// A nil factory (or nil return) leaves that store on keyword matching.
type IndexFactory func(namespace string) index.Index

// DomainRouter partitions one memory pool by topic so unrelated insights do
// not dilute retrieval. Each domain gets its own SharedStore under
// basePath/<domain>; the registry is owned by the router instance, never
// process-global, so routers in tests cannot interfere.
type DomainRouter struct {
	basePath string
	indexes  IndexFactory

	mu     sync.Mutex
	stores map[string]*SharedStore
}

// NewDomainRouter creates a router rooted at basePath.
func NewDomainRouter(basePath string, indexes IndexFactory) *DomainRouter {
	return &DomainRouter{
		basePath: basePath,
		indexes:  indexes,
		stores:   map[string]*SharedStore{},
	}
}

// DomainStore lazily instantiates (and caches) the store for a domain.
func (r *DomainRouter) DomainStore(domain string) *SharedStore {
	r.mu.Lock()
	defer r.mu.Unlock()

	if store, ok := r.stores[domain]; ok {
		return store
	}
	var idx index.Index
	if r.indexes != nil {
		idx = r.indexes("domain_" + domain)
	}
	store := NewSharedStore("domain_"+domain, filepath.Join(r.basePath, domain), idx)
	r.stores[domain] = store
	return store
}

// StoreInsight classifies the entry by content, stamps its domain, and
// writes it to the matching domain store.
func (r *DomainRouter) StoreInsight(ctx context.Context, e Entry) error {
	e.Domain = ClassifyDomain(e.Content)
	return r.DomainStore(e.Domain).Store(ctx, e)
}

// RetrieveInsights classifies the query and fetches from the matching
// domain, supplemented by up to limit/2 entries from the general store when
// the query routed elsewhere. A failure in one domain store never prevents
// the other from being attempted.
func (r *DomainRouter) RetrieveInsights(ctx context.Context, query, agentID string, limit int) []Entry {
	if limit <= 0 {
		limit = 10
	}
	queryDomain := ClassifyDomain(query)

	var all []Entry
	primary, err := r.DomainStore(queryDomain).Retrieve(ctx, query, agentID, limit)
	if err != nil {
		slog.Warn("memory: domain retrieval failed", "domain", queryDomain, "error", err)
	} else {
		all = append(all, primary...)
	}

	// A fallback budget of zero means none at all; Retrieve would treat
	// limit 0 as "use the default".
	if queryDomain != DefaultDomain && limit/2 > 0 {
		fallback, err := r.DomainStore(DefaultDomain).Retrieve(ctx, query, agentID, limit/2)
		if err != nil {
			slog.Warn("memory: general fallback retrieval failed", "error", err)
		} else {
			all = append(all, fallback...)
		}
	}

	if len(all) > limit {
		all = all[:limit]
	}
	if all == nil {
		all = []Entry{}
	}
	return all
}
