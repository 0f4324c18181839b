package memory

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
)

// FederatedAgentID marks entries that arrived through a federation import.
const FederatedAgentID = "federated"

// Bundle is the portable interchange format between independent memory
// pools.
type Bundle struct {
	OrganizationID string          `json:"organization_id"`
	Timestamp      string          `json:"timestamp"`
	Insights       []BundleInsight `json:"insights"`
}

// BundleInsight is one serialized record inside a bundle.
type BundleInsight struct {
	Content      string         `json:"content"`
	Domain       string         `json:"domain"`
	QualityScore float64        `json:"quality_score"`
	SuccessRate  float64        `json:"success_rate"`
	Tags         []string       `json:"tags"`
	Metadata     map[string]any `json:"metadata"`
}

// Federation exports qualifying entries from one pool and merges bundles
// into another. Only entries at or above the quality threshold travel;
// everything below is silently excluded.
type Federation struct {
	// Dir is where export bundles are written.
	Dir string
	// QualityThreshold gates which entries qualify for export.
	QualityThreshold float64
}

// NewFederation creates a federation endpoint with the standard threshold.
func NewFederation(dir string) *Federation {
	return &Federation{Dir: dir, QualityThreshold: 0.7}
}

// Export serializes the qualifying subset of entries into a bundle file and
// returns its path.
func (f *Federation) Export(entries []Entry, organizationID string) (string, error) {
	bundle := Bundle{
		OrganizationID: organizationID,
		Timestamp:      time.Now().UTC().Format(time.RFC3339),
		Insights:       []BundleInsight{},
	}
	for _, e := range entries {
		if e.QualityScore < f.QualityThreshold {
			continue
		}
		bundle.Insights = append(bundle.Insights, BundleInsight{
			Content:      e.Content,
			Domain:       e.Domain,
			QualityScore: e.QualityScore,
			SuccessRate:  e.SuccessRate,
			Tags:         append([]string(nil), e.Tags...),
			Metadata:     e.Metadata,
		})
	}

	if err := os.MkdirAll(f.Dir, 0o755); err != nil {
		return "", fmt.Errorf("create federation dir: %w", err)
	}
	path := filepath.Join(f.Dir, fmt.Sprintf("export_%s_%d.json", organizationID, time.Now().Unix()))
	data, err := json.MarshalIndent(bundle, "", "  ")
	if err != nil {
		return "", fmt.Errorf("encode bundle: %w", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return "", fmt.Errorf("write bundle: %w", err)
	}
	return path, nil
}

// Import merges a bundle file into the target router's domain stores. A
// malformed bundle fails the whole call; individual insert failures inside a
// valid bundle are skipped. Returns the number of entries inserted.
func (f *Federation) Import(ctx context.Context, bundlePath string, target *DomainRouter) (int, error) {
	raw, err := os.ReadFile(bundlePath)
	if err != nil {
		return 0, fmt.Errorf("read bundle: %w", err)
	}
	var bundle Bundle
	if err := json.Unmarshal(raw, &bundle); err != nil {
		return 0, fmt.Errorf("decode bundle: %w", err)
	}

	imported := 0
	for _, insight := range bundle.Insights {
		meta := insight.Metadata
		if meta == nil {
			meta = map[string]any{}
		}
		e := Entry{
			ID:               uuid.NewString(),
			Content:          insight.Content,
			Metadata:         meta,
			Timestamp:        time.Now().UTC(),
			AgentID:          FederatedAgentID,
			Tags:             append([]string(nil), insight.Tags...),
			Domain:           insight.Domain,
			QualityScore:     insight.QualityScore,
			SuccessRate:      insight.SuccessRate,
			FederationSource: bundle.OrganizationID,
		}
		if err := target.StoreInsight(ctx, e); err != nil {
			continue
		}
		imported++
	}
	return imported, nil
}
