// Package fusion deduplicates provider records and merges them field by field.
package fusion

import (
	"slices"
	"strings"
	"unicode"

	"github.com/ryanm101/gamefuse/internal/game"
)

// GroupKey normalizes a title into the key records are grouped by:
// lowercase letters and digits only.
func GroupKey(title string) string {
	var b strings.Builder
	b.Grow(len(title))
	for _, r := range strings.ToLower(title) {
		if unicode.IsLetter(r) || unicode.IsDigit(r) {
			b.WriteRune(r)
		}
	}
	return b.String()
}

// DedupeAndMerge folds records sharing a group key into one, in order of
// first appearance. Earlier records win every field they already have.
// Records whose title has no letters or digits are grouped by ID instead.
func DedupeAndMerge(records []game.Record) []game.Record {
	index := make(map[string]int, len(records))
	out := make([]game.Record, 0, len(records))

	for _, r := range records {
		key := GroupKey(r.Title)
		if key == "" {
			key = "id:" + r.ID
		}
		if i, ok := index[key]; ok {
			out[i] = MergeFields(out[i], r)
			continue
		}
		index[key] = len(out)
		out = append(out, MergeFields(r, game.Record{}))
	}
	return out
}

// MergeFields fills every empty field of a from b. It never overwrites a
// non-empty field of a. Provenance is the ordered union of both.
func MergeFields(a, b game.Record) game.Record {
	out := a.Clone()
	b = b.Clone()

	fillString(&out.ID, b.ID)
	fillString(&out.Title, b.Title)
	fillString(&out.Developer, b.Developer)
	fillString(&out.Publisher, b.Publisher)
	fillDescription(&out.Description, b.Description)
	fillString(&out.Image, b.Image)

	fillSlice(&out.Genres, b.Genres)
	fillSlice(&out.Platforms, b.Platforms)
	fillSlice(&out.Screenshots, b.Screenshots)

	fillPtr(&out.ReleaseDate, b.ReleaseDate)
	fillPtr(&out.Rating, b.Rating)
	fillPtr(&out.MetacriticScore, b.MetacriticScore)
	fillPtr(&out.SteamAppID, b.SteamAppID)

	if out.RelevanceScore == 0 {
		out.RelevanceScore = b.RelevanceScore
	}

	for _, p := range b.Provenance {
		if !slices.Contains(out.Provenance, p) {
			out.Provenance = append(out.Provenance, p)
		}
	}
	return out
}

func fillString(dst *string, src string) {
	if *dst == "" {
		*dst = src
	}
}

// fillDescription also replaces a description too short to count as complete
// when src is long enough to count.
func fillDescription(dst *string, src string) {
	if *dst == "" || (!usable(*dst) && usable(src)) {
		*dst = src
	}
}

func usable(desc string) bool {
	return len(strings.TrimSpace(desc)) >= game.MinDescriptionLength
}

func fillSlice[T any](dst *[]T, src []T) {
	if len(*dst) == 0 && len(src) > 0 {
		*dst = src
	}
}

func fillPtr[T any](dst **T, src *T) {
	if *dst == nil {
		*dst = src
	}
}
