package recipeapi

import (
	"strings"

	"github.com/sahilm/fuzzy"
)

type titles []Recipe

func (t titles) String(i int) string { return strings.ToLower(t[i].Title) }
func (t titles) Len() int            { return len(t) }

// RankByTitle orders recipes by how well their titles fuzzy-match query. Recipes
// whose titles do not match keep their relative order after the matches.
func RankByTitle(query string, recipes []Recipe) []Recipe {
	query = strings.ToLower(strings.TrimSpace(query))
	if query == "" || len(recipes) == 0 {
		return recipes
	}
	matches := fuzzy.FindFrom(query, titles(recipes))

	out := make([]Recipe, 0, len(recipes))
	seen := make([]bool, len(recipes))
	for _, m := range matches {
		out = append(out, recipes[m.Index])
		seen[m.Index] = true
	}
	for i, r := range recipes {
		if !seen[i] {
			out = append(out, r)
		}
	}
	return out
}
