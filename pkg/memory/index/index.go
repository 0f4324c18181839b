// Package index provides the pluggable similarity backends memory stores
// use for semantic retrieval. The contract is deliberately narrow: add,
// query, update, delete, keyed by entry id. Stores own the durable record
// map; every index is a derived, rebuildable artifact.
package index

import (
	"context"
	"regexp"
	"strings"
)

// Index is the capability a store needs from a similarity backend.
type Index interface {
	Add(ctx context.Context, id, text string, metadata map[string]string) error
	Query(ctx context.Context, text string, k int) ([]string, error)
	Update(ctx context.Context, id, text string, metadata map[string]string) error
	Delete(ctx context.Context, id string) error
}

var tokenPattern = regexp.MustCompile(`[A-Za-z0-9_\-]+`)

func tokenize(text string) []string {
	text = strings.ToLower(text)
	matches := tokenPattern.FindAllString(text, -1)
	if len(matches) == 0 && text != "" {
		return []string{text}
	}
	return matches
}
