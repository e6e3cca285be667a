package main

import (
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"

	"github.com/ryanm101/gamefuse/internal/config"
	"github.com/ryanm101/gamefuse/internal/game"
)

func handleConfigCommand(args []string) {
	if len(args) < 1 {
		fmt.Println("Usage: gamefuse config <command>")
		fmt.Println("Commands: show, init")
		os.Exit(1)
	}

	switch args[0] {
	case "show":
		showConfig()
	case "init":
		path := config.DefaultPath()
		if len(args) > 1 {
			path = args[1]
		}
		initConfig(path)
	default:
		fmt.Printf("Unknown config command: %s\n", args[0])
		os.Exit(1)
	}
}

// redacted returns a copy of cfg with credentials masked.
func redacted(c *config.Config) config.Config {
	out := *c
	out.Providers = make(map[game.ProviderName]config.ProviderConfig, len(c.Providers))
	for name, p := range c.Providers {
		if p.APIKey != "" {
			p.APIKey = "***"
		}
		if p.ClientSecret != "" {
			p.ClientSecret = "***"
		}
		out.Providers[name] = p
	}
	return out
}

func showConfig() {
	safe := redacted(cfg)
	if outputCfg.JSON {
		PrintResult(safe)
		return
	}

	data, err := yaml.Marshal(safe)
	if err != nil {
		PrintError("Error: failed to marshal config: %v\n", err)
		os.Exit(1)
	}

	fmt.Println("# Active Configuration")
	fmt.Println(string(data))
	fmt.Println("# Description store:", cfg.GetDBPath())
}

const exampleConfig = `# gamefuse configuration
db_path: gamefuse.db

logging:
  level: info   # debug, info, warn, error
  format: text  # text or json

tracing:
  enabled: false
  endpoint: localhost:4317
  insecure: true

cache:
  search_ttl: 10m
  details_ttl: 24h

search:
  default_limit: 10
  max_limit: 50
  provider_timeout: 1500ms
  repair_limit: 10

# Credentials may also come from RAWG_API_KEY, IGDB_CLIENT_ID,
# IGDB_CLIENT_SECRET and GIANTBOMB_API_KEY.
providers:
  rawg:
    api_key: ""
  igdb:
    client_id: ""
    client_secret: ""
  giantbomb:
    api_key: ""
    rate_limit_window: 1h
    max_requests: 200
  cheapshark:
    enabled: true
  hltb:
    enabled: true
  metacritic:
    enabled: true
`

func initConfig(path string) {
	if _, err := os.Stat(path); err == nil {
		PrintError("Error: config file already exists at %s\n", path)
		os.Exit(1)
	}

	var check config.Config
	if err := yaml.Unmarshal([]byte(exampleConfig), &check); err != nil {
		PrintError("Error: example config is invalid: %v\n", err)
		os.Exit(1)
	}
	if err := writeFile(path, []byte(exampleConfig)); err != nil {
		PrintError("Error: failed to write config: %v\n", err)
		os.Exit(1)
	}

	if outputCfg.JSON {
		PrintResult(map[string]string{"path": path, "status": "created"})
	} else {
		PrintInfo("Created config file: %s\n", path)
	}
}

func writeFile(path string, data []byte) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o750); err != nil {
		return err
	}
	return os.WriteFile(path, data, 0o600)
}
