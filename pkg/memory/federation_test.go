package memory

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestFederationExportFiltersByQuality(t *testing.T) {
	dir := t.TempDir()
	fed := NewFederation(dir)

	high := NewEntry("engineer", "proven approach to cache invalidation", nil, nil)
	high.QualityScore = 0.9
	low := NewEntry("engineer", "half-baked idea", nil, nil)
	low.QualityScore = 0.3

	path, err := fed.Export([]Entry{high, low}, "acme")
	assert.NoError(t, err)
	assert.True(t, strings.HasPrefix(filepath.Base(path), "export_acme_"))

	raw, err := os.ReadFile(path)
	assert.NoError(t, err)
	var bundle Bundle
	assert.NoError(t, json.Unmarshal(raw, &bundle))

	assert.Equal(t, "acme", bundle.OrganizationID)
	assert.NotEmpty(t, bundle.Timestamp)
	if assert.Len(t, bundle.Insights, 1) {
		assert.Equal(t, high.Content, bundle.Insights[0].Content)
	}
}

func TestFederationExportEmptySet(t *testing.T) {
	fed := NewFederation(t.TempDir())

	path, err := fed.Export(nil, "acme")
	assert.NoError(t, err)

	raw, err := os.ReadFile(path)
	assert.NoError(t, err)
	var bundle Bundle
	assert.NoError(t, json.Unmarshal(raw, &bundle))
	assert.Empty(t, bundle.Insights)
}

func TestFederationImport(t *testing.T) {
	ctx := context.Background()
	fed := NewFederation(t.TempDir())

	insight := NewEntry("engineer", "binary search needs sorted input", []string{"search"}, nil)
	insight.QualityScore = 0.85
	insight.SuccessRate = 0.75
	bundlePath, err := fed.Export([]Entry{insight}, "acme")
	assert.NoError(t, err)

	router := NewDomainRouter(t.TempDir(), nil)
	imported, err := fed.Import(ctx, bundlePath, router)
	assert.NoError(t, err)
	assert.Equal(t, 1, imported)

	results, err := router.DomainStore("algorithms").Retrieve(ctx, "binary search", "anyone", 10)
	assert.NoError(t, err)
	if assert.Len(t, results, 1) {
		got := results[0]
		assert.Equal(t, FederatedAgentID, got.AgentID)
		assert.Equal(t, "acme", got.FederationSource)
		assert.Equal(t, 0.85, got.QualityScore)
		assert.Equal(t, 0.75, got.SuccessRate)
		assert.NotEqual(t, insight.ID, got.ID, "imported entries get fresh ids")
	}
}

func TestFederationImportMalformedBundle(t *testing.T) {
	dir := t.TempDir()
	bad := filepath.Join(dir, "bundle.json")
	assert.NoError(t, os.WriteFile(bad, []byte("{not json"), 0o644))

	fed := NewFederation(dir)
	router := NewDomainRouter(t.TempDir(), nil)

	_, err := fed.Import(context.Background(), bad, router)
	assert.Error(t, err)

	_, err = fed.Import(context.Background(), filepath.Join(dir, "missing.json"), router)
	assert.Error(t, err)
}

func TestFederationImportSkipsEmptyContent(t *testing.T) {
	dir := t.TempDir()
	bundle := Bundle{
		OrganizationID: "acme",
		Timestamp:      "2026-08-27T00:00:00Z",
		Insights: []BundleInsight{
			{Content: "", Domain: "general"},
			{Content: "validate inputs before parsing", Domain: "validation"},
		},
	}
	raw, err := json.Marshal(bundle)
	assert.NoError(t, err)
	path := filepath.Join(dir, "bundle.json")
	assert.NoError(t, os.WriteFile(path, raw, 0o644))

	fed := NewFederation(dir)
	router := NewDomainRouter(t.TempDir(), nil)

	imported, err := fed.Import(context.Background(), path, router)
	assert.NoError(t, err)
	assert.Equal(t, 1, imported)
}

func TestFederationDefaultThreshold(t *testing.T) {
	fed := NewFederation(t.TempDir())
	assert.Equal(t, 0.7, fed.QualityThreshold)
}
