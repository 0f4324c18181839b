package memory

import (
	"fmt"
	"strings"
)

// FormatInsights renders a filtered insight list as the numbered block a
// downstream consumer (usually a prompt builder) embeds verbatim. Domain and
// federation provenance are surfaced so an agent can weigh imported
// knowledge differently.
func FormatInsights(insights []Entry) string {
	if len(insights) == 0 {
		return "No relevant insights available from previous tasks."
	}

	var b strings.Builder
	for i, insight := range insights {
		domain := insight.Domain
		if domain == "" {
			domain = DefaultDomain
		}
		source := fmt.Sprintf("[%s]", strings.ToUpper(domain))
		if insight.FederationSource != "" {
			source += fmt.Sprintf(" (from %s)", insight.FederationSource)
		}

		fmt.Fprintf(&b, "%d. %s Quality: %.2f, Success Rate: %.2f\n   %s\n",
			i+1, source, insight.QualityScore, insight.SuccessRate, strings.TrimSpace(insight.Content))
	}
	return strings.TrimSpace(b.String())
}
