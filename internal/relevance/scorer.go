// Package relevance scores game records against a search query.
package relevance

import (
	"regexp"
	"strings"
	"time"
	"unicode"
	"unicode/utf8"

	"github.com/ryanm101/gamefuse/internal/game"
)

// Score bounds and tiers.
const (
	MaxScore = 1000.0
	MinScore = 0.0

	scoreExact       = 1000
	scorePrefixSep   = 950
	scorePrefix      = 900
	scoreFirstToken  = 850
	scoreSequential  = 700
	scorePerSequence = 200
	scoreWords       = 600
	scoreSubstring   = 500

	wordExact    = 100
	wordPrefix   = 80
	wordContains = 50

	penaltyDLC     = 300
	penaltyPreview = 200
	penaltyLength  = 150
	longTitle      = 50
)

var (
	excludedRe = regexp.MustCompile(`soundtrack|trainer|\bmods?\b|\bcheats?\b|\bost\b`)
	dlcRe      = regexp.MustCompile(`\b(dlc|expansion|bundle)\b`)
	previewRe  = regexp.MustCompile(`\b(demo|beta|alpha|preview)\b`)
)

// Scorer computes relevance scores. The zero value is not usable; use New.
type Scorer struct {
	now func() time.Time
}

// Option customizes a Scorer.
type Option func(*Scorer)

// WithClock replaces time.Now for the release recency bonus.
func WithClock(now func() time.Time) Option {
	return func(s *Scorer) { s.now = now }
}

// New creates a Scorer.
func New(opts ...Option) *Scorer {
	s := &Scorer{now: time.Now}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Score rates r against query in [0, 1000].
func (s *Scorer) Score(r game.Record, query string) float64 {
	title := normalize(r.Title)
	q := normalize(query)
	if title == "" || q == "" {
		return MinScore
	}

	if excludedRe.MatchString(title) {
		return MinScore
	}
	if title == q {
		return scoreExact
	}

	score := float64(matchScore(title, q))

	if dlcRe.MatchString(title) {
		score -= penaltyDLC
	}
	if previewRe.MatchString(title) {
		score -= penaltyPreview
	}
	if utf8.RuneCountInString(title) > longTitle {
		score -= penaltyLength
	}

	if score > 0 {
		score += s.popularity(r)
	}

	return clamp(score)
}

// matchScore applies the title tiers in order. The first tier that fires wins.
func matchScore(title, q string) int {
	switch {
	case strings.HasPrefix(title, q+" "), strings.HasPrefix(title, q+":"), strings.HasPrefix(title, q+"-"):
		return scorePrefixSep
	case strings.HasPrefix(title, q):
		return scorePrefix
	}

	titleTokens := tokenize(title)
	if len(titleTokens) > 0 && titleTokens[0] == q {
		return scoreFirstToken
	}

	var queryTokens []string
	for _, t := range tokenize(q) {
		if utf8.RuneCountInString(t) > 1 {
			queryTokens = append(queryTokens, t)
		}
	}

	if len(queryTokens) > 0 {
		words := wordMatchScore(queryTokens, titleTokens)
		if len(queryTokens) >= 2 {
			if seq := sequentialMatches(queryTokens, titleTokens); seq >= 2 {
				return scoreSequential + scorePerSequence*seq + words
			}
		}
		if words > 0 {
			return scoreWords + words
		}
	}

	if strings.Contains(title, q) {
		return scoreSubstring
	}
	return 0
}

// sequentialMatches returns the longest run of query tokens that prefix
// consecutive title tokens, starting from the first query token.
func sequentialMatches(queryTokens, titleTokens []string) int {
	best := 0
	for start := range titleTokens {
		n := 0
		for n < len(queryTokens) && start+n < len(titleTokens) &&
			strings.HasPrefix(titleTokens[start+n], queryTokens[n]) {
			n++
		}
		best = max(best, n)
	}
	return best
}

// wordMatchScore sums, per query token, its best match against any title token.
func wordMatchScore(queryTokens, titleTokens []string) int {
	total := 0
	for _, qt := range queryTokens {
		best := 0
		for _, tt := range titleTokens {
			switch {
			case tt == qt:
				best = max(best, wordExact)
			case strings.HasPrefix(tt, qt):
				best = max(best, wordPrefix)
			case strings.Contains(tt, qt):
				best = max(best, wordContains)
			}
		}
		total += best
	}
	return total
}

func (s *Scorer) popularity(r game.Record) float64 {
	bonus := 0.0
	if r.Rating != nil {
		switch {
		case *r.Rating > 85:
			bonus += 30
		case *r.Rating > 75:
			bonus += 15
		}
	}
	if r.MetacriticScore != nil {
		switch {
		case *r.MetacriticScore > 85:
			bonus += 25
		case *r.MetacriticScore > 75:
			bonus += 10
		}
	}
	if r.ReleaseDate != nil {
		now := s.now()
		if !r.ReleaseDate.After(now) && r.ReleaseDate.After(now.AddDate(-2, 0, 0)) {
			bonus += 15
		}
	}
	return bonus
}

func normalize(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}

func tokenize(s string) []string {
	return strings.FieldsFunc(s, func(r rune) bool {
		return unicode.IsSpace(r) || r == '-' || r == ':'
	})
}

func clamp(v float64) float64 {
	return min(max(v, MinScore), MaxScore)
}
