// Package provider defines the contract the fusion engine consumes from upstream sources.
package provider

import (
	"context"

	"github.com/ryanm101/gamefuse/internal/game"
)

// Searcher is implemented by every provider adapter.
type Searcher interface {
	// Name returns the provider name (e.g., "rawg").
	Name() game.ProviderName
	// Search finds games matching the query. An empty result is not an error.
	Search(ctx context.Context, query string, limit int) ([]game.Record, error)
}

// Detailer is implemented by adapters that can fetch a single game by native ID.
// Details returns nil, nil when the provider has no such game.
type Detailer interface {
	Details(ctx context.Context, nativeID string) (*game.Record, error)
}

// MetadataProvider is a searchable source that also serves details.
type MetadataProvider interface {
	Searcher
	Detailer
}

// PriceLookup resolves store pricing for a game.
type PriceLookup interface {
	Name() game.ProviderName
	Price(ctx context.Context, title string, steamAppID *int) (*game.PriceInfo, error)
}

// PlaytimeLookup resolves completion-time estimates.
type PlaytimeLookup interface {
	Name() game.ProviderName
	CompletionTime(ctx context.Context, title string) (*game.Playtime, error)
}

// CriticLookup resolves aggregated critic scores.
type CriticLookup interface {
	Name() game.ProviderName
	CriticScore(ctx context.Context, title string) (*game.CriticScore, error)
}
