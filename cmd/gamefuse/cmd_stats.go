package main

import (
	"context"
	"fmt"
	"os"
	"slices"
	"strconv"
	"time"

	"github.com/ryanm101/gamefuse/internal/game"
	"github.com/ryanm101/gamefuse/internal/orchestrator"
)

func handleStatsCommand(ctx context.Context, _ []string) {
	a := openApp(ctx)
	defer func() { _ = a.Close() }()

	st := a.Orchestrator.Statistics()
	if outputCfg.JSON {
		PrintResult(st)
		return
	}
	printStats(st)

	if a.Store != nil {
		if n, err := a.Store.Count(ctx); err == nil {
			PrintInfo("Stored descriptions: %d\n", n)
		}
	}
}

func printStats(st orchestrator.Stats) {
	order := slices.Concat(game.MetadataOrder, game.ExternalOrder)
	rows := make([][]string, 0, len(order))
	for _, p := range order {
		ps, ok := st.ByProvider[p]
		if !ok {
			continue
		}
		next := ""
		if !ps.NextEligibleAt.IsZero() {
			next = ps.NextEligibleAt.Local().Format(time.TimeOnly)
		}
		rows = append(rows, []string{
			string(p), string(ps.Status),
			strconv.FormatInt(ps.Requests, 10), strconv.FormatInt(ps.Successes, 10),
			strconv.FormatInt(ps.Failures, 10), strconv.FormatInt(ps.Skipped, 10),
			next, truncateString(ps.LastError, 40),
		})
	}
	PrintTable([]string{"PROVIDER", "STATUS", "REQUESTS", "OK", "FAILED", "SKIPPED", "NEXT", "LAST ERROR"}, rows)

	PrintInfo("\nRequests: %d (%d ok, %d failed)\n", st.TotalRequests, st.SuccessfulRequests, st.FailedRequests)
	PrintInfo("Cache: %d entries, %d hits, %d misses\n", st.CacheEntries, st.CacheHits, st.CacheMisses)
}

func handleCacheCommand(ctx context.Context, args []string) {
	a := openApp(ctx)
	defer func() { _ = a.Close() }()

	switch args[0] {
	case "clear":
		if err := a.Orchestrator.ClearCache(ctx); err != nil {
			PrintError("Error: %v\n", err)
			os.Exit(1)
		}
		if outputCfg.JSON {
			PrintResult(map[string]string{"status": "cleared"})
			return
		}
		PrintInfo("Cache cleared\n")
	case "purge":
		if a.Store == nil {
			PrintInfo("No description store\n")
			return
		}
		n, err := a.Store.PurgeExpired(ctx)
		if err != nil {
			PrintError("Error: %v\n", err)
			os.Exit(1)
		}
		if outputCfg.JSON {
			PrintResult(map[string]int64{"purged": n})
			return
		}
		PrintInfo("Purged %d expired descriptions\n", n)
	default:
		fmt.Printf("Unknown cache command: %s\n", args[0])
		os.Exit(1)
	}
}
