package candidate

import (
	"cmp"
	"slices"
	"strings"
)

// maxAlternates is how many runner-up URLs a selection reports.
const maxAlternates = 3

// Normalize returns the dedup key of a URL: the URL with every occurrence of
// the session-tracking parameter removed. Other parameters keep their order
// and original encoding. Normalize(Normalize(u)) == Normalize(u).
func Normalize(rawURL string) string {
	base, rest, ok := strings.Cut(rawURL, "?")
	if !ok {
		return rawURL
	}
	query, frag, hasFrag := strings.Cut(rest, "#")

	parts := strings.Split(query, "&")
	kept := parts[:0]
	for _, p := range parts {
		key, _, _ := strings.Cut(p, "=")
		if strings.EqualFold(key, SessionParam) {
			continue
		}
		kept = append(kept, p)
	}

	out := base
	if len(kept) > 0 {
		out += "?" + strings.Join(kept, "&")
	}
	if hasFrag {
		out += "#" + frag
	}
	return out
}

// Dedup keeps the first-seen candidate of each normalized key, preserving
// arrival order.
func Dedup(cands []Candidate) []Candidate {
	seen := make(map[string]struct{}, len(cands))
	out := make([]Candidate, 0, len(cands))
	for _, c := range cands {
		key := Normalize(c.URL)
		if _, dup := seen[key]; dup {
			continue
		}
		seen[key] = struct{}{}
		out = append(out, c)
	}
	return out
}

// Scored pairs a candidate with its score.
type Scored struct {
	Candidate
	Score int
}

// Selection is the outcome of ranking one attempt's candidates.
type Selection struct {
	Best       Scored
	Alternates []Scored
	Ranked     []Scored
	Unique     int
}

// AlternateURLs returns the runner-up URLs, best first.
func (s Selection) AlternateURLs() []string {
	urls := make([]string, 0, len(s.Alternates))
	for _, a := range s.Alternates {
		urls = append(urls, a.URL)
	}
	return urls
}

// Rank dedups and scores cands, ordering by score then recency (newest first).
func (s *Scorer) Rank(cands []Candidate) []Scored {
	unique := Dedup(cands)
	ranked := make([]Scored, 0, len(unique))
	for _, c := range unique {
		ranked = append(ranked, Scored{Candidate: c, Score: s.Score(c.URL)})
	}
	slices.SortStableFunc(ranked, func(a, b Scored) int {
		if c := cmp.Compare(b.Score, a.Score); c != 0 {
			return c
		}
		return b.ObservedAt.Compare(a.ObservedAt)
	})
	return ranked
}

// Select picks the best candidate by (score, observedAt). It returns false
// when cands is empty.
func (s *Scorer) Select(cands []Candidate) (Selection, bool) {
	ranked := s.Rank(cands)
	if len(ranked) == 0 {
		return Selection{}, false
	}
	sel := Selection{
		Best:   ranked[0],
		Ranked: ranked,
		Unique: len(ranked),
	}
	rest := ranked[1:]
	if len(rest) > maxAlternates {
		rest = rest[:maxAlternates]
	}
	sel.Alternates = rest
	return sel, true
}
