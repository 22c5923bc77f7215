// Package cmd contains the CLI entry points: the HTTP server and the
// one-shot knowledge base ingester.
package cmd

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/groundcovergroup/supportbot/internal/config"
	"github.com/groundcovergroup/supportbot/internal/log"
)

// Version information (injected at build time via ldflags).
var (
	AppVersion = "0.1.0"
	BuildTime  = "unknown"
	GitCommit  = "unknown"
)

// Execute is the main entry point. It routes subcommands; with no
// arguments the HTTP server starts.
func Execute() error {
	if len(os.Args) > 1 {
		switch os.Args[1] {
		case "version", "--version", "-v":
			printVersionInfo()
			return nil
		case "help", "--help", "-h":
			printHelp()
			return nil
		case "ingest":
			return runIngest()
		case "serve":
			return runServe()
		default:
			printHelp()
			return fmt.Errorf("unknown command %q", os.Args[1])
		}
	}
	return runServe()
}

// loadConfig loads and validates configuration and builds the logger it
// prescribes. The logger is also installed as slog default so early
// library logging is not lost.
func loadConfig() (*config.Config, *slog.Logger, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, nil, fmt.Errorf("loading config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, nil, fmt.Errorf("validating config: %w", err)
	}

	logger := log.New(log.Config{
		Level: log.ParseLevel(cfg.LogLevel),
		JSON:  cfg.LogJSON,
	})
	slog.SetDefault(logger)
	return cfg, logger, nil
}

func printVersionInfo() {
	fmt.Printf("supportbot v%s\n", AppVersion)
	fmt.Printf("Build: %s\n", BuildTime)
	fmt.Printf("Commit: %s\n", GitCommit)
}

func printHelp() {
	fmt.Println("supportbot - bilingual customer support chatbot backend")
	fmt.Println()
	fmt.Println("Usage:")
	fmt.Println("  supportbot              Start the HTTP API server (default)")
	fmt.Println("  supportbot serve        Start the HTTP API server")
	fmt.Println("  supportbot ingest       Index the knowledge directory and exit")
	fmt.Println("  supportbot version      Show version information")
	fmt.Println("  supportbot help         Show this help")
	fmt.Println()
	fmt.Println("Configuration is read from config.yaml and SUPPORTBOT_* environment")
	fmt.Println("variables. SUPPORTBOT_GEMINI_API_KEY is required.")
}
