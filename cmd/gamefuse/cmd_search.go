package main

import (
	"context"
	"fmt"
	"os"
	"strconv"

	"github.com/ryanm101/gamefuse/internal/export"
	"github.com/ryanm101/gamefuse/internal/game"
	"github.com/ryanm101/gamefuse/internal/orchestrator"
)

func handleSearchCommand(ctx context.Context, args []string) {
	parsed, err := parseArgs(args, "limit", "format", "out")
	if err != nil {
		PrintError("Error: %v\n", err)
		os.Exit(1)
	}
	query := parsed.joined()
	if query == "" {
		fmt.Println("Usage: gamefuse search <query> [--limit N] [--external] [--all] [--format csv|json|txt] [--out file]")
		os.Exit(1)
	}
	limit, err := parsed.int("limit")
	if err != nil {
		PrintError("Error: %v\n", err)
		os.Exit(1)
	}

	a := openApp(ctx)
	defer func() { _ = a.Close() }()

	rs, err := a.Orchestrator.SearchGamesWithFallback(ctx, query, orchestrator.SearchOptions{
		Limit:              limit,
		IncludeExternal:    parsed.set["external"],
		SearchAllProviders: parsed.set["all"],
	})
	if err != nil {
		PrintError("Error: %v\n", err)
		os.Exit(1)
	}

	if parsed.set["format"] || parsed.set["out"] {
		if err := writeExport(rs, parsed.values["format"], parsed.values["out"]); err != nil {
			PrintError("Error: %v\n", err)
			os.Exit(1)
		}
		return
	}

	if outputCfg.JSON {
		PrintResult(rs)
		return
	}
	printSearch(rs)
}

func writeExport(rs game.SearchResultSet, format, out string) error {
	f, err := export.ParseFormat(format)
	if err != nil {
		return err
	}
	data, err := export.Search(rs, f)
	if err != nil {
		return fmt.Errorf("failed to render results: %w", err)
	}
	if out == "" {
		_, err = stdout.Write(data)
		return err
	}
	if err := os.WriteFile(out, data, 0o600); err != nil {
		return fmt.Errorf("failed to write %s: %w", out, err)
	}
	PrintInfo("Wrote %d results to %s\n", len(rs.Results), out)
	return nil
}

func printSearch(rs game.SearchResultSet) {
	rows := make([][]string, 0, len(rs.Results))
	for _, r := range export.Rows(rs) {
		rows = append(rows, []string{
			strconv.Itoa(r.Rank), r.ID, truncateString(r.Title, 50), r.Released, r.Rating, r.Sources,
			strconv.FormatFloat(r.Relevance, 'f', 0, 64),
		})
	}
	PrintTable([]string{"#", "ID", "TITLE", "RELEASED", "RATING", "SOURCES", "SCORE"}, rows)

	PrintInfo("\n%d of %d results (%s) in %dms\n", len(rs.Results), rs.TotalResults, rs.Outcome, rs.ElapsedMillis)
	for _, e := range rs.Errors {
		PrintInfo("  %s: %s (%s)\n", e.Provider, e.Kind, e.Message)
	}
}
