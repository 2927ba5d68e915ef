package tui

import (
	"strings"

	"github.com/imgscout/catalog"
	"github.com/sahilm/fuzzy"
)

// filterProducts returns the indexes of products whose name fuzzy-matches
// query, best match first. An empty query yields nil (no filter).
func filterProducts(products []catalog.Product, query string) []int {
	query = strings.TrimSpace(query)
	if query == "" {
		return nil
	}

	lowerNames := make([]string, len(products))
	for i, p := range products {
		lowerNames[i] = strings.ToLower(p.Name)
	}

	matches := fuzzy.Find(strings.ToLower(query), lowerNames)

	idx := make([]int, len(matches))
	for i, match := range matches {
		idx[i] = match.Index
	}
	return idx
}
