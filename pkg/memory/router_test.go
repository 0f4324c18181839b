package memory

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/swarmlabs/hivemem/pkg/memory/index"
)

func TestClassifyDomain(t *testing.T) {
	cases := []struct {
		text string
		want string
	}{
		{"binary search implementation", "algorithms"},
		{"append to a list and pop from the stack", "data_structures"},
		{"parse the text with a regex", "string_processing"},
		{"compute the factorial of a prime number", "mathematics"},
		{"validate and verify the assert output", "validation"},
		{"optimize for performance and memory usage", "optimization"},
		{"completely unrelated prose", "general"},
		{"", "general"},
	}
	for _, tc := range cases {
		assert.Equal(t, tc.want, ClassifyDomain(tc.text), "text: %q", tc.text)
	}
}

func TestClassifyDomainTieBreaksByDeclarationOrder(t *testing.T) {
	// "sort" (algorithms) and "list" (data_structures) score one hit each;
	// the earlier table entry wins.
	assert.Equal(t, "algorithms", ClassifyDomain("sort the list"))
}

func TestDomainsExcludesGeneral(t *testing.T) {
	domains := Domains()
	assert.Len(t, domains, 6)
	assert.NotContains(t, domains, DefaultDomain)
	assert.Equal(t, "algorithms", domains[0])
}

func TestRouterStoreInsightStampsDomain(t *testing.T) {
	ctx := context.Background()
	router := NewDomainRouter(t.TempDir(), nil)

	e := NewEntry("engineer", "binary search needs sorted input", nil, nil)
	assert.NoError(t, router.StoreInsight(ctx, e))

	results, err := router.DomainStore("algorithms").Retrieve(ctx, "binary search", "engineer", 10)
	assert.NoError(t, err)
	if assert.Len(t, results, 1) {
		assert.Equal(t, "algorithms", results[0].Domain)
	}
}

func TestRouterDomainStoreIsCached(t *testing.T) {
	router := NewDomainRouter(t.TempDir(), nil)
	assert.Same(t, router.DomainStore("algorithms"), router.DomainStore("algorithms"))
	assert.NotSame(t, router.DomainStore("algorithms"), router.DomainStore("validation"))
}

func TestRouterRetrieveIncludesGeneralFallback(t *testing.T) {
	ctx := context.Background()
	router := NewDomainRouter(t.TempDir(), nil)

	specific := NewEntry("engineer", "binary search needs sorted input", nil, nil)
	assert.NoError(t, router.StoreInsight(ctx, specific))

	// No domain keywords in the content: lands in general; the tag makes it
	// reachable from the query.
	background := NewEntry("qa_engineer", "always reproduce before you triage a report", []string{"binary"}, nil)
	assert.NoError(t, router.StoreInsight(ctx, background))
	assert.Equal(t, "general", ClassifyDomain(background.Content))

	results := router.RetrieveInsights(ctx, "binary search", "engineer", 10)
	assert.Len(t, results, 2)
	// Primary-domain results come before the general fallback.
	assert.Equal(t, "algorithms", results[0].Domain)
	assert.Equal(t, "general", results[1].Domain)
}

func TestRouterRetrieveGeneralQueryNoFallbackDuplication(t *testing.T) {
	ctx := context.Background()
	router := NewDomainRouter(t.TempDir(), nil)

	e := NewEntry("engineer", "plain observation with no domain keywords", nil, nil)
	assert.NoError(t, router.StoreInsight(ctx, e))

	results := router.RetrieveInsights(ctx, "plain observation", "engineer", 10)
	assert.Len(t, results, 1)
}

func TestRouterRetrieveLimitOneSkipsGeneralFallback(t *testing.T) {
	ctx := context.Background()
	router := NewDomainRouter(t.TempDir(), nil)

	// Only a general-domain entry is reachable; with a fallback budget of
	// limit/2 = 0 it must not surface.
	background := NewEntry("qa_engineer", "always reproduce before you triage a report", []string{"binary"}, nil)
	assert.NoError(t, router.StoreInsight(ctx, background))
	assert.Equal(t, "general", ClassifyDomain(background.Content))

	results := router.RetrieveInsights(ctx, "binary search", "engineer", 1)
	assert.Empty(t, results)
}

func TestRouterRetrieveRespectsLimit(t *testing.T) {
	ctx := context.Background()
	router := NewDomainRouter(t.TempDir(), nil)

	for i := 0; i < 6; i++ {
		e := NewEntry("engineer", "sort with a stable merge sort", nil, nil)
		assert.NoError(t, router.StoreInsight(ctx, e))
	}

	results := router.RetrieveInsights(ctx, "merge sort", "engineer", 4)
	assert.Len(t, results, 4)
}

func TestRouterWithIndexFactory(t *testing.T) {
	ctx := context.Background()
	factory := func(namespace string) index.Index { return index.NewKeyword() }
	router := NewDomainRouter(t.TempDir(), factory)

	e := NewEntry("engineer", "dijkstra on a weighted graph", nil, nil)
	assert.NoError(t, router.StoreInsight(ctx, e))

	results := router.RetrieveInsights(ctx, "weighted graph traversal", "engineer", 5)
	if assert.NotEmpty(t, results) {
		assert.Equal(t, e.Content, results[0].Content)
	}
}
