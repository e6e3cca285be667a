package main

import (
	"bufio"
	"context"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/schollz/progressbar/v3"

	"github.com/ryanm101/gamefuse/internal/game"
	"github.com/ryanm101/gamefuse/internal/orchestrator"
)

// warmSummary is the JSON output of warm.
type warmSummary struct {
	Queries   int            `json:"queries"`
	Results   int            `json:"results"`
	Failed    int            `json:"failed"`
	Outcomes  map[string]int `json:"outcomes"`
	ElapsedMS int64          `json:"elapsedMs"`
}

func handleWarmCommand(ctx context.Context, args []string) {
	if len(args) < 1 {
		fmt.Println("Usage: gamefuse warm <file>")
		os.Exit(1)
	}

	queries, err := readQueries(args[0])
	if err != nil {
		PrintError("Error: %v\n", err)
		os.Exit(1)
	}
	if len(queries) == 0 {
		PrintInfo("No queries in %s\n", args[0])
		return
	}

	a := openApp(ctx)
	defer func() { _ = a.Close() }()

	var bar *progressbar.ProgressBar
	if !outputCfg.Quiet && !outputCfg.JSON {
		bar = progressbar.Default(int64(len(queries)), "Warming")
	}

	summary := warmSummary{Queries: len(queries), Outcomes: map[string]int{}}
	start := time.Now()
	for _, q := range queries {
		if ctx.Err() != nil {
			break
		}
		if bar != nil {
			bar.Describe(truncateString(q, 30))
		}
		rs, err := a.Orchestrator.SearchGamesWithFallback(ctx, q, orchestrator.SearchOptions{})
		if err != nil || rs.Outcome == game.OutcomeAllFailed {
			summary.Failed++
		}
		summary.Results += len(rs.Results)
		summary.Outcomes[string(rs.Outcome)]++
		if bar != nil {
			_ = bar.Add(1)
		}
	}
	if bar != nil {
		_ = bar.Finish()
	}
	summary.ElapsedMS = time.Since(start).Milliseconds()

	if outputCfg.JSON {
		PrintResult(summary)
		return
	}
	PrintInfo("\nWarmed %d queries: %d results, %d failed in %s\n",
		summary.Queries, summary.Results, summary.Failed, time.Duration(summary.ElapsedMS)*time.Millisecond)
}

// readQueries returns the non-empty, non-comment lines of path.
func readQueries(path string) ([]string, error) {
	f, err := os.Open(path) // #nosec G304 -- path comes from the operator
	if err != nil {
		return nil, fmt.Errorf("failed to open %s: %w", path, err)
	}
	defer func() { _ = f.Close() }()

	var out []string
	sc := bufio.NewScanner(f)
	for sc.Scan() {
		line := strings.TrimSpace(sc.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		out = append(out, line)
	}
	if err := sc.Err(); err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", path, err)
	}
	return out, nil
}
