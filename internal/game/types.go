// Package game holds the canonical records exchanged between providers and the fusion engine.
package game

import (
	"slices"
	"strings"
	"time"
)

// ProviderName identifies an upstream data source.
type ProviderName string

const (
	ProviderRAWG       ProviderName = "rawg"
	ProviderIGDB       ProviderName = "igdb"
	ProviderGiantBomb  ProviderName = "giantbomb"
	ProviderCheapShark ProviderName = "cheapshark"
	ProviderHLTB       ProviderName = "hltb"
	ProviderMetacritic ProviderName = "metacritic"
)

// MetadataOrder is the fixed fallback order for metadata providers.
var MetadataOrder = []ProviderName{ProviderRAWG, ProviderIGDB, ProviderGiantBomb}

// ExternalOrder lists the best-effort enrichment sources.
var ExternalOrder = []ProviderName{ProviderCheapShark, ProviderHLTB, ProviderMetacritic}

// MinDescriptionLength is the shortest description considered complete.
const MinDescriptionLength = 50

// Record is the canonical game record every provider maps into.
// Empty strings and nil slices/pointers mean "not provided".
type Record struct {
	ID              string         `json:"id"` // "<provider>_<nativeId>"
	Title           string         `json:"title"`
	Developer       string         `json:"developer,omitempty"`
	Publisher       string         `json:"publisher,omitempty"`
	Genres          []string       `json:"genres,omitempty"`
	Platforms       []string       `json:"platforms,omitempty"`
	ReleaseDate     *time.Time     `json:"releaseDate,omitempty"`
	Rating          *float64       `json:"rating,omitempty"` // 0-100
	MetacriticScore *int           `json:"metacriticScore,omitempty"`
	Description     string         `json:"description,omitempty"`
	Image           string         `json:"image,omitempty"`
	Screenshots     []string       `json:"screenshots,omitempty"`
	SteamAppID      *int           `json:"steamAppId,omitempty"`
	Provenance      []ProviderName `json:"provenance"`
	RelevanceScore  float64        `json:"relevanceScore"`
}

// NewID builds a provider-qualified record ID.
func NewID(p ProviderName, nativeID string) string {
	return string(p) + "_" + nativeID
}

// SplitID returns the provider and native ID encoded in a record ID.
func SplitID(id string) (ProviderName, string, bool) {
	p, native, ok := strings.Cut(id, "_")
	if !ok || p == "" || native == "" {
		return "", "", false
	}
	return ProviderName(p), native, true
}

// Missing reports which of the completeness fields are absent.
func (r Record) Missing() (image, description, genres bool) {
	return r.Image == "",
		len(strings.TrimSpace(r.Description)) < MinDescriptionLength,
		len(r.Genres) == 0
}

// Incomplete reports whether the record lacks an image, a usable description or genres.
func (r Record) Incomplete() bool {
	img, desc, gen := r.Missing()
	return img || desc || gen
}

// HasProvider reports whether p contributed to the record.
func (r Record) HasProvider(p ProviderName) bool {
	return slices.Contains(r.Provenance, p)
}

// Clone returns a deep copy so callers never share slices or pointers.
func (r Record) Clone() Record {
	out := r
	out.Genres = slices.Clone(r.Genres)
	out.Platforms = slices.Clone(r.Platforms)
	out.Screenshots = slices.Clone(r.Screenshots)
	out.Provenance = slices.Clone(r.Provenance)
	if r.ReleaseDate != nil {
		d := *r.ReleaseDate
		out.ReleaseDate = &d
	}
	if r.Rating != nil {
		v := *r.Rating
		out.Rating = &v
	}
	if r.MetacriticScore != nil {
		v := *r.MetacriticScore
		out.MetacriticScore = &v
	}
	if r.SteamAppID != nil {
		v := *r.SteamAppID
		out.SteamAppID = &v
	}
	return out
}

// CloneRecords deep-copies a slice of records.
func CloneRecords(in []Record) []Record {
	if in == nil {
		return nil
	}
	out := make([]Record, len(in))
	for i := range in {
		out[i] = in[i].Clone()
	}
	return out
}
