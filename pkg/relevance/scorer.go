// Package relevance scores articles against per-category keyword lists
package relevance

import (
	"strings"
)

// Scorer counts keyword hits for a category. It is immutable after creation
// and safe for concurrent use.
type Scorer struct {
	keywords map[string][]string
}

// NewScorer makes a scorer from category -> keywords table. Keywords are lower-cased,
// trimmed and deduplicated per category; empty keywords are ignored.
func NewScorer(table map[string][]string) *Scorer {
	res := &Scorer{keywords: make(map[string][]string, len(table))}
	for category, kws := range table {
		seen := make(map[string]bool, len(kws))
		list := make([]string, 0, len(kws))
		for _, kw := range kws {
			// leading/trailing spaces are meaningful ("un "), so only empty keywords are dropped
			kw = strings.ToLower(kw)
			if strings.TrimSpace(kw) == "" || seen[kw] {
				continue
			}
			seen[kw] = true
			list = append(list, kw)
		}
		res.keywords[category] = list
	}
	return res
}

// Score returns the number of distinct keywords of the category found in title and description.
// Zero means the article is irrelevant for the category, unknown category always scores zero.
func (s *Scorer) Score(title, description, category string) int {
	kws := s.keywords[category]
	if len(kws) == 0 {
		return 0
	}
	text := strings.ToLower(title + " " + description)
	res := 0
	for _, kw := range kws {
		if strings.Contains(text, kw) {
			res++
		}
	}
	return res
}

// Relevant is a shortcut for Score(...) > 0
func (s *Scorer) Relevant(title, description, category string) bool {
	return s.Score(title, description, category) > 0
}

// Categories returns categories known to the scorer
func (s *Scorer) Categories() []string {
	res := make([]string, 0, len(s.keywords))
	for k := range s.keywords {
		res = append(res, k)
	}
	return res
}
