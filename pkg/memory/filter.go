package memory

import (
	"regexp"
	"sort"
	"strings"
)

// Ranking weights for filtered insights. Quality dominates, then relevance to
// the query, then historical success, then a small usage-frequency bonus.
const (
	rankQualityWeight    = 0.4
	rankSimilarityWeight = 0.3
	rankSuccessWeight    = 0.2
	rankUsageWeight      = 0.1
)

var (
	specificityTerms = []string{"algorithm", "pattern", "optimization", "error", "solution", "approach"}
	actionWords      = []string{"implement", "use", "apply", "consider", "avoid", "ensure", "check"}
	codeMarkers      = []string{"```", "func ", "def ", "class "}

	wordPattern = regexp.MustCompile(`\w+`)
)

// InsightFilter scores, ranks and truncates candidate entries before they
// reach an agent. Filtering is pure with respect to its inputs except that
// selected entries have their usage count bumped; success rates change only
// through RecordOutcome.
type InsightFilter struct {
	// MinQuality drops candidates scoring below it.
	MinQuality float64
	// MaxInsights bounds the result set; single-digit caps are the intended
	// operating point so a downstream consumer is never flooded.
	MaxInsights int
}

// NewInsightFilter returns a filter with the standard thresholds.
func NewInsightFilter() *InsightFilter {
	return &InsightFilter{MinQuality: 0.2, MaxInsights: 5}
}

// QualityScore rates content on its own merits: length fitness, topical
// specificity, structural signal, and actionability, each clamped to [0,1]
// and averaged unweighted.
func (f *InsightFilter) QualityScore(content string) float64 {
	contentLower := strings.ToLower(content)
	n := float64(len(content))

	// Peaks around moderate length: too short scores low, beyond ~500
	// characters the score decays smoothly.
	lengthScore := clamp01(minFloat(1, n/200) * (1 - maxFloat(0, (n-500)/1000)))

	hits := 0
	for _, term := range specificityTerms {
		if strings.Contains(contentLower, term) {
			hits++
		}
	}
	specificityScore := float64(hits) / float64(len(specificityTerms))

	structureScore := 0.5
	for _, marker := range codeMarkers {
		if strings.Contains(content, marker) {
			structureScore = 1.0
			break
		}
	}

	actions := 0
	for _, word := range actionWords {
		if strings.Contains(contentLower, word) {
			actions++
		}
	}
	actionScore := minFloat(1, float64(actions)/3)

	return (lengthScore + specificityScore + structureScore + actionScore) / 4
}

// ContextSimilarity is the token-set Jaccard similarity between content and
// query; zero when either side has no tokens.
func ContextSimilarity(content, query string) float64 {
	contentTokens := tokenSet(content)
	queryTokens := tokenSet(query)
	if len(contentTokens) == 0 || len(queryTokens) == 0 {
		return 0
	}

	intersection := 0
	for tok := range contentTokens {
		if _, ok := queryTokens[tok]; ok {
			intersection++
		}
	}
	union := len(contentTokens) + len(queryTokens) - intersection
	return float64(intersection) / float64(union)
}

// Filter stamps quality and context similarity on each candidate, drops
// those under the quality floor, ranks the rest, and returns at most
// MaxInsights. Selected entries have UsageCount incremented.
func (f *InsightFilter) Filter(candidates []Entry, query string) []Entry {
	scored := make([]Entry, 0, len(candidates))
	for _, e := range candidates {
		e.QualityScore = f.QualityScore(e.Content)
		e.ContextSimilarity = ContextSimilarity(e.Content, query)
		if e.QualityScore < f.MinQuality {
			continue
		}
		scored = append(scored, e)
	}

	sort.SliceStable(scored, func(i, j int) bool {
		si, sj := rankScore(scored[i]), rankScore(scored[j])
		if si != sj {
			return si > sj
		}
		return scored[i].ID < scored[j].ID
	})

	max := f.MaxInsights
	if max <= 0 {
		max = 5
	}
	if len(scored) > max {
		scored = scored[:max]
	}

	for i := range scored {
		scored[i].UsageCount++
	}
	return scored
}

// RecordOutcome folds a real task outcome into each entry's rolling success
// rate, weighted by how often the entry has been used.
func (f *InsightFilter) RecordOutcome(entries []Entry, success bool) []Entry {
	outcome := 0.0
	if success {
		outcome = 1.0
	}
	out := make([]Entry, len(entries))
	for i, e := range entries {
		if e.UsageCount <= 0 {
			e.UsageCount = 1
		}
		n := float64(e.UsageCount)
		e.SuccessRate = (e.SuccessRate*(n-1) + outcome) / n
		out[i] = e
	}
	return out
}

func rankScore(e Entry) float64 {
	usageBonus := minFloat(1, float64(e.UsageCount)/10)
	return rankQualityWeight*e.QualityScore +
		rankSimilarityWeight*e.ContextSimilarity +
		rankSuccessWeight*e.SuccessRate +
		rankUsageWeight*usageBonus
}

func tokenSet(text string) map[string]struct{} {
	tokens := wordPattern.FindAllString(strings.ToLower(text), -1)
	set := make(map[string]struct{}, len(tokens))
	for _, tok := range tokens {
		set[tok] = struct{}{}
	}
	return set
}

func clamp01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}

func minFloat(a, b float64) float64 {
	if a < b {
		return a
	}
	return b
}

func maxFloat(a, b float64) float64 {
	if a > b {
		return a
	}
	return b
}
