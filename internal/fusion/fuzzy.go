package fusion

import "github.com/ryanm101/gamefuse/internal/game"

// Matcher picks the candidate record describing the same game as a target.
type Matcher struct {
	Threshold     int     // Maximum Levenshtein distance between group keys (default: 3)
	MinConfidence float64 // Minimum 1 - distance/len (default: 0.9)
}

// NewMatcher creates a matcher with default thresholds.
func NewMatcher() *Matcher {
	return &Matcher{Threshold: 3, MinConfidence: 0.9}
}

// Match is a scored candidate.
type Match struct {
	Record     game.Record
	Distance   int
	Confidence float64 // 0.0 to 1.0, higher is better
}

// LevenshteinDistance computes the rune edit distance between two strings.
func LevenshteinDistance(a, b string) int {
	ra, rb := []rune(a), []rune(b)
	if len(ra) == 0 {
		return len(rb)
	}
	if len(rb) == 0 {
		return len(ra)
	}

	prev := make([]int, len(rb)+1)
	curr := make([]int, len(rb)+1)
	for j := range prev {
		prev[j] = j
	}

	for i := 1; i <= len(ra); i++ {
		curr[0] = i
		for j := 1; j <= len(rb); j++ {
			cost := 0
			if ra[i-1] != rb[j-1] {
				cost = 1
			}
			curr[j] = min(
				prev[j]+1,      // deletion
				curr[j-1]+1,    // insertion
				prev[j-1]+cost, // substitution
			)
		}
		prev, curr = curr, prev
	}
	return prev[len(rb)]
}

// Best returns the candidate that matches title, preferring identical group
// keys and then the smallest edit distance. It returns nil when nothing is
// close enough. Earlier candidates win ties.
func (m *Matcher) Best(title string, candidates []game.Record) *Match {
	key := GroupKey(title)
	if key == "" {
		return nil
	}

	var best *Match
	for _, c := range candidates {
		ck := GroupKey(c.Title)
		if ck == "" {
			continue
		}
		if ck == key {
			return &Match{Record: c, Distance: 0, Confidence: 1}
		}

		d := LevenshteinDistance(key, ck)
		maxLen := max(len([]rune(key)), len([]rune(ck)))
		conf := 1 - float64(d)/float64(maxLen)
		if d > m.Threshold || conf < m.MinConfidence {
			continue
		}
		if best == nil || d < best.Distance {
			best = &Match{Record: c, Distance: d, Confidence: conf}
		}
	}
	return best
}
