package relevance

import (
	"sort"
	"strings"

	"github.com/ryanm101/gamefuse/internal/game"
)

// Rank scores every record, drops zero scores and returns the rest ordered
// by score, exact title match, title and ID. The input is not modified.
func (s *Scorer) Rank(records []game.Record, query string) []game.Record {
	q := normalize(query)

	out := make([]game.Record, 0, len(records))
	for _, r := range records {
		r = r.Clone()
		r.RelevanceScore = s.Score(r, query)
		if r.RelevanceScore <= MinScore {
			continue
		}
		out = append(out, r)
	}

	sort.SliceStable(out, func(i, j int) bool {
		a, b := out[i], out[j]
		if a.RelevanceScore != b.RelevanceScore {
			return a.RelevanceScore > b.RelevanceScore
		}
		ae, be := normalize(a.Title) == q, normalize(b.Title) == q
		if ae != be {
			return ae
		}
		if c := strings.Compare(strings.ToLower(a.Title), strings.ToLower(b.Title)); c != 0 {
			return c < 0
		}
		return a.ID < b.ID
	})
	return out
}
