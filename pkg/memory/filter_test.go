package memory

import (
	"math"
	"strings"
	"testing"
)

func TestQualityScoreBounds(t *testing.T) {
	f := NewInsightFilter()

	cases := []string{
		"",
		"x",
		"use the memoization pattern: implement a cache, apply it to the recursive solution, and check the error path",
		strings.Repeat("very long content ", 200),
	}
	for i, content := range cases {
		score := f.QualityScore(content)
		if score < 0 || score > 1 {
			t.Errorf("case %d: score out of bounds: %f", i, score)
		}
	}
}

func TestQualityScorePrefersRichContent(t *testing.T) {
	f := NewInsightFilter()

	rich := "Implement the two-pointer pattern as the solution: use sorted input, apply early exit, check the error path.\n```\nfunc twoPointer(a []int) {}\n```"
	poor := "ok"

	if f.QualityScore(rich) <= f.QualityScore(poor) {
		t.Errorf("rich content (%f) should outscore trivial content (%f)",
			f.QualityScore(rich), f.QualityScore(poor))
	}
}

func TestQualityScoreStructuralSignal(t *testing.T) {
	f := NewInsightFilter()

	plain := "balanced trees keep lookups logarithmic and predictable always"
	withCode := plain + " ```code```"
	if f.QualityScore(withCode) <= f.QualityScore(plain) {
		t.Error("code markers should raise the structure factor")
	}
}

func TestContextSimilarity(t *testing.T) {
	if got := ContextSimilarity("binary search tree", "binary search tree"); got != 1.0 {
		t.Errorf("identical token sets: %f, want 1.0", got)
	}
	if got := ContextSimilarity("alpha beta", "gamma delta"); got != 0 {
		t.Errorf("disjoint token sets: %f, want 0", got)
	}
	if got := ContextSimilarity("", "query"); got != 0 {
		t.Errorf("empty content: %f, want 0", got)
	}
	// {binary, search} vs {binary, tree}: 1 shared of 3 distinct.
	got := ContextSimilarity("binary search", "binary tree")
	if math.Abs(got-1.0/3.0) > 1e-9 {
		t.Errorf("partial overlap: %f, want 1/3", got)
	}
}

func TestFilterDropsLowQualityAndTruncates(t *testing.T) {
	f := NewInsightFilter()
	f.MaxInsights = 2

	good := "Implement the retry pattern as the solution: use exponential backoff, check the error budget, apply jitter to avoid thundering herds."
	candidates := []Entry{
		NewEntry("a", "x", nil, nil), // too thin, drops below the floor
		NewEntry("b", good+" alpha", nil, nil),
		NewEntry("c", good+" beta", nil, nil),
		NewEntry("d", good+" gamma", nil, nil),
	}

	selected := f.Filter(candidates, "retry pattern with backoff")
	if len(selected) != 2 {
		t.Fatalf("selected = %d, want 2", len(selected))
	}
	for _, e := range selected {
		if e.QualityScore < f.MinQuality {
			t.Errorf("low-quality entry survived: %f", e.QualityScore)
		}
		if e.UsageCount != 1 {
			t.Errorf("usage count = %d, want 1", e.UsageCount)
		}
	}
}

func TestFilterRankingPrefersRelevance(t *testing.T) {
	f := NewInsightFilter()

	base := "Implement this pattern as a solution: use it, apply it, and check the outcome carefully in production."
	relevant := NewEntry("a", base+" Sorting slices with quicksort partitions.", nil, nil)
	unrelated := NewEntry("b", base+" Database connection pooling and timeouts.", nil, nil)

	selected := f.Filter([]Entry{unrelated, relevant}, "quicksort partitions for sorting slices")
	if len(selected) != 2 {
		t.Fatalf("selected = %d", len(selected))
	}
	if selected[0].ID != relevant.ID {
		t.Error("query-relevant entry should rank first")
	}
}

func TestFilterIdempotentOrdering(t *testing.T) {
	f := NewInsightFilter()

	base := "Implement this pattern as a solution: use it, apply it, and check the outcome carefully in production."
	a := NewEntry("a", base+" Sorting slices with quicksort partitions.", nil, nil)
	b := NewEntry("b", base+" Database connection pooling and timeouts.", nil, nil)
	c := NewEntry("c", base+" Graph traversal with breadth first search.", nil, nil)
	// Already at the usage-bonus cap: a second pass bumps the others by
	// 0.1/10 each but leaves this one flat, which must not reorder a set
	// whose score gaps exceed that delta.
	c.UsageCount = 10

	query := "quicksort partitions for sorting slices"
	first := f.Filter([]Entry{c, b, a}, query)
	second := f.Filter(first, query)

	if len(first) != len(second) {
		t.Fatalf("second pass changed the set: %d vs %d", len(first), len(second))
	}
	for i := range first {
		if first[i].ID != second[i].ID {
			t.Errorf("position %d: first pass %s, second pass %s", i, first[i].ID, second[i].ID)
		}
		if second[i].Content != first[i].Content {
			t.Errorf("position %d: content changed across passes", i)
		}
	}
}

func TestFilterEmptyInput(t *testing.T) {
	f := NewInsightFilter()
	if got := f.Filter(nil, "query"); len(got) != 0 {
		t.Errorf("filter(nil) = %v", got)
	}
}

func TestRecordOutcome(t *testing.T) {
	f := NewInsightFilter()

	e := NewEntry("a", "content", nil, nil)
	e.UsageCount = 1

	up := f.RecordOutcome([]Entry{e}, true)
	if up[0].SuccessRate != 1.0 {
		t.Errorf("first success: rate = %f, want 1.0", up[0].SuccessRate)
	}

	up[0].UsageCount = 2
	down := f.RecordOutcome(up, false)
	if down[0].SuccessRate != 0.5 {
		t.Errorf("success then failure: rate = %f, want 0.5", down[0].SuccessRate)
	}
}

func TestRecordOutcomeDefaultsUsageCount(t *testing.T) {
	f := NewInsightFilter()
	e := NewEntry("a", "content", nil, nil)

	out := f.RecordOutcome([]Entry{e}, false)
	if out[0].SuccessRate != 0 {
		t.Errorf("rate = %f, want 0", out[0].SuccessRate)
	}
	if out[0].UsageCount != 1 {
		t.Errorf("usage count = %d, want 1", out[0].UsageCount)
	}
}
