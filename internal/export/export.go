// Package export renders search results as JSON, CSV or plain text.
package export

import (
	"bytes"
	"encoding/csv"
	"fmt"
	"strconv"
	"strings"

	json "github.com/goccy/go-json"

	"github.com/ryanm101/gamefuse/internal/game"
)

// Format defines output format.
type Format string

const (
	FormatCSV  Format = "csv"
	FormatJSON Format = "json"
	FormatTXT  Format = "txt"
)

// ParseFormat validates a format name.
func ParseFormat(s string) (Format, error) {
	switch f := Format(strings.ToLower(strings.TrimSpace(s))); f {
	case FormatCSV, FormatJSON, FormatTXT:
		return f, nil
	case "":
		return FormatTXT, nil
	default:
		return "", fmt.Errorf("unknown format: %s", s)
	}
}

// Row is a flattened search result.
type Row struct {
	Rank       int     `json:"rank"`
	ID         string  `json:"id"`
	Title      string  `json:"title"`
	Released   string  `json:"released,omitempty"`
	Rating     string  `json:"rating,omitempty"`
	Metascore  string  `json:"metascore,omitempty"`
	Genres     string  `json:"genres,omitempty"`
	Platforms  string  `json:"platforms,omitempty"`
	Sources    string  `json:"sources"`
	Relevance  float64 `json:"relevance"`
	HasImage   bool    `json:"has_image"`
	Incomplete bool    `json:"incomplete"`
}

// Report is the JSON export envelope.
type Report struct {
	Query   string               `json:"query"`
	Outcome game.Outcome         `json:"outcome"`
	Count   int                  `json:"count"`
	Sources []game.ProviderName  `json:"sources"`
	Errors  []game.ProviderError `json:"errors,omitempty"`
	Rows    []Row                `json:"rows"`
}

// Rows flattens the results of rs in rank order.
func Rows(rs game.SearchResultSet) []Row {
	rows := make([]Row, 0, len(rs.Results))
	for i, r := range rs.Results {
		row := Row{
			Rank:       i + 1,
			ID:         r.ID,
			Title:      r.Title,
			Genres:     strings.Join(r.Genres, ", "),
			Platforms:  strings.Join(r.Platforms, ", "),
			Relevance:  r.RelevanceScore,
			HasImage:   r.Image != "",
			Incomplete: r.Incomplete(),
		}
		if r.ReleaseDate != nil {
			row.Released = r.ReleaseDate.Format("2006-01-02")
		}
		if r.Rating != nil {
			row.Rating = strconv.FormatFloat(*r.Rating, 'f', 1, 64)
		}
		if r.MetacriticScore != nil {
			row.Metascore = strconv.Itoa(*r.MetacriticScore)
		}
		srcs := make([]string, len(r.Provenance))
		for j, p := range r.Provenance {
			srcs[j] = string(p)
		}
		row.Sources = strings.Join(srcs, "+")
		rows = append(rows, row)
	}
	return rows
}

// Search renders rs in the requested format.
func Search(rs game.SearchResultSet, format Format) ([]byte, error) {
	rows := Rows(rs)

	switch format {
	case FormatJSON:
		return json.MarshalIndent(Report{
			Query:   rs.Query,
			Outcome: rs.Outcome,
			Count:   len(rows),
			Sources: rs.SourcesUsed,
			Errors:  rs.Errors,
			Rows:    rows,
		}, "", "  ")
	case FormatCSV:
		return toCSV(rows)
	case FormatTXT:
		return toTXT(rows), nil
	default:
		return nil, fmt.Errorf("unknown format: %s", format)
	}
}

func toCSV(rows []Row) ([]byte, error) {
	var buf bytes.Buffer
	writer := csv.NewWriter(&buf)

	header := []string{"rank", "id", "title", "released", "rating", "metascore", "genres", "platforms", "sources", "relevance"}
	if err := writer.Write(header); err != nil {
		return nil, err
	}
	for _, r := range rows {
		record := []string{
			strconv.Itoa(r.Rank), r.ID, r.Title, r.Released, r.Rating, r.Metascore,
			r.Genres, r.Platforms, r.Sources, strconv.FormatFloat(r.Relevance, 'f', 0, 64),
		}
		if err := writer.Write(record); err != nil {
			return nil, err
		}
	}

	writer.Flush()
	return buf.Bytes(), writer.Error()
}

// toTXT writes one title per line, useful for feeding back into warm.
func toTXT(rows []Row) []byte {
	var buf bytes.Buffer
	for _, r := range rows {
		buf.WriteString(r.Title)
		buf.WriteByte('\n')
	}
	return buf.Bytes()
}
