package main

import (
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/ryanm101/gamefuse/internal/game"
	"github.com/ryanm101/gamefuse/internal/orchestrator"
)

func handleDetailsCommand(ctx context.Context, args []string) {
	parsed, err := parseArgs(args, "title")
	if err != nil {
		PrintError("Error: %v\n", err)
		os.Exit(1)
	}
	if len(parsed.positional) != 1 {
		fmt.Println("Usage: gamefuse details <id> [--title T] [--external] [--no-pricing] [--no-playtime] [--no-critic]")
		os.Exit(1)
	}

	a := openApp(ctx)
	defer func() { _ = a.Close() }()

	d, err := a.Orchestrator.GetGameDetailsWithFallback(ctx, parsed.positional[0], orchestrator.DetailsOptions{
		IncludeExternal:       parsed.set["external"],
		IncludePricing:        !parsed.set["no-pricing"],
		IncludeCompletionTime: !parsed.set["no-playtime"],
		IncludeCriticScore:    !parsed.set["no-critic"],
		Title:                 parsed.values["title"],
	})
	if err != nil {
		PrintError("Error: %v\n", err)
		os.Exit(1)
	}

	if outputCfg.JSON {
		PrintResult(d)
		if d.GameData == nil {
			os.Exit(2)
		}
		return
	}
	printDetails(d)
	if d.GameData == nil {
		os.Exit(2)
	}
}

func printDetails(d game.DetailsResult) {
	g := d.GameData
	if g == nil {
		PrintError("Game not found\n")
		for _, e := range d.Errors {
			PrintError("  %s: %s\n", e.Type, e.Message)
		}
		return
	}

	fmt.Printf("%s (%s)\n", g.Title, g.ID)
	field := func(name, value string) {
		if value != "" {
			fmt.Printf("  %-14s %s\n", name+":", value)
		}
	}
	if g.ReleaseDate != nil {
		field("Released", g.ReleaseDate.Format("2006-01-02"))
	}
	field("Developer", g.Developer)
	field("Publisher", g.Publisher)
	field("Genres", strings.Join(g.Genres, ", "))
	field("Platforms", strings.Join(g.Platforms, ", "))
	if g.Rating != nil {
		field("Rating", fmt.Sprintf("%.1f", *g.Rating))
	}
	if g.MetacriticScore != nil {
		field("Metascore", fmt.Sprintf("%d", *g.MetacriticScore))
	}
	field("Image", g.Image)

	if p, ok := d.ExternalData[game.ExternalPricing].(game.PriceInfo); ok {
		field("Price", fmt.Sprintf("%.2f %s (retail %.2f, low %.2f, %d deals)", p.CurrentLowest, p.Currency, p.Retail, p.HistoricalLow, p.DealCount))
		field("Store", p.StoreURL)
	}
	if p, ok := d.ExternalData[game.ExternalCompletionTime].(game.Playtime); ok {
		field("Playtime", fmt.Sprintf("main %.1fh, extras %.1fh, 100%% %.1fh", p.MainHours, p.MainExtraHours, p.CompletionistHours))
	}
	if c, ok := d.ExternalData[game.ExternalCriticScore].(game.CriticScore); ok {
		field("Critics", fmt.Sprintf("%d", c.Metascore))
	}

	if g.Description != "" {
		fmt.Println()
		fmt.Println(g.Description)
	}

	PrintInfo("\nSources: %s (%dms)\n", strings.Join(d.Sources, ", "), d.LoadTimeMillis)
	for _, e := range d.Errors {
		PrintInfo("  %s: %s\n", e.Type, e.Message)
	}
}
