package game

import "slices"

// SearchRequest is the normalized input of a search. It is passed by value.
type SearchRequest struct {
	Query              string
	Limit              int
	IncludeExternal    bool
	SearchAllProviders bool
}

// Outcome summarizes how a search ended.
type Outcome string

const (
	OutcomeOK        Outcome = "ok"
	OutcomeNoResults Outcome = "no_results" // providers answered, nothing matched
	OutcomeAllFailed Outcome = "all_failed" // no provider answered successfully
)

// ProviderError is one provider failure captured during a request.
type ProviderError struct {
	Provider ProviderName `json:"provider"`
	Kind     string       `json:"kind"`
	Message  string       `json:"message"`
}

// SearchResultSet is the ranked answer to a search.
type SearchResultSet struct {
	Query         string          `json:"query"`
	Results       []Record        `json:"results"`
	SourcesUsed   []ProviderName  `json:"sourcesUsed"`
	Errors        []ProviderError `json:"errors"`
	TotalResults  int             `json:"totalResults"`
	ElapsedMillis int64           `json:"elapsedMillis"`
	Outcome       Outcome         `json:"outcome"`
}

// Clone deep-copies the result set.
func (s SearchResultSet) Clone() SearchResultSet {
	out := s
	out.Results = CloneRecords(s.Results)
	out.SourcesUsed = slices.Clone(s.SourcesUsed)
	out.Errors = slices.Clone(s.Errors)
	return out
}

// PriceInfo is the pricing enrichment for a game, in Currency units.
type PriceInfo struct {
	Title         string  `json:"title"`
	CurrentLowest float64 `json:"currentLowest"`
	Retail        float64 `json:"retail,omitempty"`
	HistoricalLow float64 `json:"historicalLow,omitempty"`
	Currency      string  `json:"currency"`
	DealCount     int     `json:"dealCount"`
	StoreURL      string  `json:"storeUrl,omitempty"`
}

// Playtime holds completion-time estimates in hours.
type Playtime struct {
	Title              string  `json:"title"`
	MainHours          float64 `json:"mainHours"`
	MainExtraHours     float64 `json:"mainExtraHours"`
	CompletionistHours float64 `json:"completionistHours"`
}

// CriticScore is an aggregated critic score.
type CriticScore struct {
	Title     string `json:"title"`
	Metascore int    `json:"metascore"`
	URL       string `json:"url,omitempty"`
}

// External data keys used in DetailsResult.ExternalData.
const (
	ExternalPricing        = "pricing"
	ExternalCompletionTime = "completionTime"
	ExternalCriticScore    = "criticScore"
)

// DetailsError is one failure captured during a details lookup.
type DetailsError struct {
	Type    string `json:"type"`
	Message string `json:"message"`
}

// DetailsResult is the answer to a details lookup.
type DetailsResult struct {
	GameData       *Record        `json:"gameData"`
	ExternalData   map[string]any `json:"externalData"`
	Sources        []string       `json:"sources"`
	Errors         []DetailsError `json:"errors"`
	LoadTimeMillis int64          `json:"loadTimeMillis"`
}

// Clone deep-copies the details result. External payloads are value types.
func (d DetailsResult) Clone() DetailsResult {
	out := d
	if d.GameData != nil {
		g := d.GameData.Clone()
		out.GameData = &g
	}
	if d.ExternalData != nil {
		out.ExternalData = make(map[string]any, len(d.ExternalData))
		for k, v := range d.ExternalData {
			out.ExternalData[k] = v
		}
	}
	out.Sources = slices.Clone(d.Sources)
	out.Errors = slices.Clone(d.Errors)
	return out
}
