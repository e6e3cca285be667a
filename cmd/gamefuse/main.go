package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"go.opentelemetry.io/otel/baggage"

	"github.com/ryanm101/gamefuse/internal/app"
	"github.com/ryanm101/gamefuse/internal/config"
	"github.com/ryanm101/gamefuse/internal/logging"
	"github.com/ryanm101/gamefuse/internal/tracing"
)

const version = "1.0.0"

var cfg *config.Config

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	m, _ := baggage.NewMember("app.version", version)
	b, _ := baggage.New(m)
	ctx = baggage.ContextWithBaggage(ctx, b)

	var err error
	cfg, err = config.Load()
	if err != nil {
		_, _ = fmt.Fprintf(os.Stderr, "Warning: failed to load config: %v\n", err)
		cfg = config.DefaultConfig()
	}

	logging.SetupWriter(cfg.Logging, os.Stderr)

	shutdown, err := tracing.Setup(ctx, cfg.Tracing)
	if err != nil {
		logging.Error("failed to setup tracing", "error", err)
	}
	defer func() {
		if shutdown == nil {
			return
		}
		if err := shutdown(context.Background()); err != nil {
			logging.Error("failed to shutdown tracing", "error", err)
		}
	}()

	args := parseGlobalFlags(os.Args[1:])
	if len(args) < 1 {
		printUsage()
		os.Exit(1)
	}

	switch args[0] {
	case "search":
		handleSearchCommand(ctx, args[1:])
	case "details":
		handleDetailsCommand(ctx, args[1:])
	case "warm":
		handleWarmCommand(ctx, args[1:])
	case "stats":
		handleStatsCommand(ctx, args[1:])
	case "cache":
		if len(args) < 2 {
			fmt.Println("Usage: gamefuse cache <command>")
			fmt.Println("Commands: clear, purge")
			os.Exit(1)
		}
		handleCacheCommand(ctx, args[1:])
	case "config":
		handleConfigCommand(args[1:])
	case "version":
		PrintResult("gamefuse " + version)
	case "help", "-h", "--help":
		printUsage()
	default:
		fmt.Printf("Unknown command: %s\n", args[0])
		printUsage()
		os.Exit(1)
	}
}

func printUsage() {
	fmt.Println("gamefuse - game metadata search across providers")
	fmt.Println()
	fmt.Println("Usage: gamefuse [global options] <command> [options]")
	fmt.Println()
	fmt.Println("Global Options:")
	fmt.Println("  --json                              Output in JSON format")
	fmt.Println("  --quiet, -q                         Suppress non-error output")
	fmt.Println()
	fmt.Println("Commands:")
	fmt.Println("  search <query> [options]            Search games with provider fallback")
	fmt.Println("      --limit N                       Maximum results (default from config)")
	fmt.Println("      --external                      Also query pricing/playtime/critic sources")
	fmt.Println("      --all                           Query every metadata provider")
	fmt.Println("      --format csv|json|txt           Output format (default: txt)")
	fmt.Println("      --out <file>                    Write output to a file")
	fmt.Println("  details <id> [options]              Show one game, e.g. rawg_3328")
	fmt.Println("      --title <title>                 Title used to find the game elsewhere")
	fmt.Println("      --external                      Add pricing, completion time and critic score")
	fmt.Println("      --no-pricing                    Skip pricing")
	fmt.Println("      --no-playtime                   Skip completion time")
	fmt.Println("      --no-critic                     Skip critic score")
	fmt.Println("  warm <file>                         Run one search per line to fill the caches")
	fmt.Println("  stats                               Show provider health and counters")
	fmt.Println("  cache clear                         Clear cached results and descriptions")
	fmt.Println("  cache purge                         Drop expired stored descriptions")
	fmt.Println("  config show                         Show active configuration")
	fmt.Println("  config init                         Write an example config")
	fmt.Println("  version                             Show version")
	fmt.Println("  help                                Show this help")
	fmt.Println()
	fmt.Println("Environment:")
	fmt.Println("  GAMEFUSE_CONFIG                     Config file path")
	fmt.Println("  GAMEFUSE_DB                         Description store path (default: gamefuse.db)")
	fmt.Println("  RAWG_API_KEY, GIANTBOMB_API_KEY     Provider API keys")
	fmt.Println("  IGDB_CLIENT_ID, IGDB_CLIENT_SECRET  Twitch credentials for IGDB")
}

// openApp builds the orchestrator or exits.
func openApp(ctx context.Context) *app.App {
	a, err := app.Build(ctx, cfg, app.Options{})
	if err != nil {
		PrintError("Error: %v\n", err)
		os.Exit(1)
	}
	return a
}
