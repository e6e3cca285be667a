package main

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"

	"github.com/ryanm101/gamefuse/internal/config"
	"github.com/ryanm101/gamefuse/internal/game"
)

func captureStdout(t *testing.T) *bytes.Buffer {
	t.Helper()
	var buf bytes.Buffer
	prev, prevCfg := stdout, outputCfg
	stdout = &buf
	t.Cleanup(func() { stdout, outputCfg = prev, prevCfg })
	return &buf
}

func TestParseGlobalFlags(t *testing.T) {
	t.Cleanup(func() { outputCfg = OutputConfig{} })

	rest := parseGlobalFlags([]string{"--json", "search", "-q", "halo"})
	assert.Equal(t, []string{"search", "halo"}, rest)
	assert.True(t, outputCfg.JSON)
	assert.True(t, outputCfg.Quiet)
}

func TestParseArgs(t *testing.T) {
	parsed, err := parseArgs([]string{"the", "witcher", "--limit", "5", "--external", "--format=csv", "3"}, "limit", "format")
	require.NoError(t, err)

	assert.Equal(t, "the witcher 3", parsed.joined())
	assert.Equal(t, "5", parsed.values["limit"])
	assert.Equal(t, "csv", parsed.values["format"])
	assert.True(t, parsed.set["external"])
	assert.False(t, parsed.set["all"])

	n, err := parsed.int("limit")
	require.NoError(t, err)
	assert.Equal(t, 5, n)
}

func TestParseArgs_Errors(t *testing.T) {
	_, err := parseArgs([]string{"halo", "--limit"}, "limit")
	assert.Error(t, err)

	parsed, err := parseArgs([]string{"--limit", "many"}, "limit")
	require.NoError(t, err)
	_, err = parsed.int("limit")
	assert.Error(t, err)
}

func TestRedacted(t *testing.T) {
	c := config.DefaultConfig()
	c.Providers[game.ProviderIGDB] = config.ProviderConfig{ClientID: "id", ClientSecret: "secret"}
	c.Providers[game.ProviderRAWG] = config.ProviderConfig{APIKey: "key"}

	safe := redacted(c)
	assert.Equal(t, "***", safe.Providers[game.ProviderIGDB].ClientSecret)
	assert.Equal(t, "id", safe.Providers[game.ProviderIGDB].ClientID)
	assert.Equal(t, "***", safe.Providers[game.ProviderRAWG].APIKey)
	assert.Equal(t, "key", c.Providers[game.ProviderRAWG].APIKey, "original untouched")
}

func TestExampleConfigParses(t *testing.T) {
	c := config.DefaultConfig()
	require.NoError(t, yaml.Unmarshal([]byte(exampleConfig), c))
	assert.Equal(t, 10, c.GetDefaultLimit())
	assert.Equal(t, 200, c.Provider(game.ProviderGiantBomb).MaxRequests)
	assert.True(t, c.Provider(game.ProviderHLTB).IsEnabled())
}

func TestInitConfig(t *testing.T) {
	captureStdout(t)
	path := filepath.Join(t.TempDir(), "nested", "config.yaml")
	initConfig(path)

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, exampleConfig, string(data))
}

func TestReadQueries(t *testing.T) {
	path := filepath.Join(t.TempDir(), "queries.txt")
	require.NoError(t, os.WriteFile(path, []byte("hades\n\n# comment\n  celeste  \n"), 0o600))

	qs, err := readQueries(path)
	require.NoError(t, err)
	assert.Equal(t, []string{"hades", "celeste"}, qs)

	_, err = readQueries(filepath.Join(t.TempDir(), "missing.txt"))
	assert.Error(t, err)
}

func sampleResults() game.SearchResultSet {
	return game.SearchResultSet{
		Query: "hades",
		Results: []game.Record{
			{ID: "rawg_1", Title: "Hades", Provenance: []game.ProviderName{game.ProviderRAWG, game.ProviderIGDB}, RelevanceScore: 1000},
		},
		SourcesUsed:  []game.ProviderName{game.ProviderRAWG},
		TotalResults: 1,
		Outcome:      game.OutcomeOK,
	}
}

func TestWriteExport(t *testing.T) {
	buf := captureStdout(t)
	require.NoError(t, writeExport(sampleResults(), "txt", ""))
	assert.Equal(t, "Hades\n", buf.String())

	path := filepath.Join(t.TempDir(), "out.csv")
	require.NoError(t, writeExport(sampleResults(), "csv", path))
	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), "1,rawg_1,Hades,,,,,,rawg+igdb,1000")

	assert.Error(t, writeExport(sampleResults(), "xml", ""))
}

func TestPrintTable(t *testing.T) {
	buf := captureStdout(t)
	PrintTable([]string{"ID", "TITLE"}, [][]string{{"rawg_1", "Hades"}})
	assert.Equal(t, "ID      TITLE  \n------  -----  \nrawg_1  Hades  \n", buf.String())

	buf.Reset()
	outputCfg.JSON = true
	PrintTable([]string{"ID", "TITLE"}, [][]string{{"rawg_1", "Hades"}})
	assert.JSONEq(t, `[{"ID":"rawg_1","TITLE":"Hades"}]`, buf.String())
}

func TestPrintSearch(t *testing.T) {
	buf := captureStdout(t)
	rs := sampleResults()
	rs.Errors = []game.ProviderError{{Provider: game.ProviderIGDB, Kind: "network", Message: "timeout"}}
	printSearch(rs)

	out := buf.String()
	assert.Contains(t, out, "rawg_1")
	assert.Contains(t, out, "rawg+igdb")
	assert.Contains(t, out, "1 of 1 results (ok)")
	assert.Contains(t, out, "igdb: network (timeout)")
}

func TestTruncateString(t *testing.T) {
	assert.Equal(t, "Hades", truncateString("Hades", 10))
	assert.Equal(t, "The Wi…", truncateString("The Witcher", 7))
}
