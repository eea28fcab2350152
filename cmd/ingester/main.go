package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"codeberg.org/guideelbac/server/internal/config"
	"codeberg.org/guideelbac/server/internal/ingest"
	"codeberg.org/guideelbac/server/internal/logger"
)

func usage() {
	fmt.Println("Usage: ingester <command> [options]")
	fmt.Println("Commands:")
	fmt.Println("  ingest          - ingest every .pdf, .txt and .md file of a directory")
	fmt.Println("  file            - ingest a single document")
	fmt.Println("  classify <name> - print the resource type inferred from a filename")
	fmt.Println("\nOptions:")
	fmt.Println("  --path <path>     - directory (ingest, default ./pdfs) or file (file)")
	fmt.Println("  --type <type>     - guide or score (file only, inferred when omitted)")
	fmt.Println("  --profile <yaml>  - chunking and throttling profile")
}

func main() {
	if len(os.Args) < 2 {
		usage()
		os.Exit(1)
	}

	command := os.Args[1]

	// classify needs neither the store nor a provider
	if command == "classify" {
		if len(os.Args) < 3 {
			usage()
			os.Exit(1)
		}

		fmt.Println(ingest.Classify(os.Args[2], ingest.DefaultScoreKeywords))
		return
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// load environment variables
	cfg, err := config.LoadEnvironmentVariables()
	if err != nil {
		logger.Fatal("failed to load configuration", "error", err)
	}

	// route to appropriate command
	switch command {
	case "ingest":
		flags := config.ParseIngestFlags()
		if err := IngestDirectory(ctx, cfg, flags); err != nil {
			logger.Fatal("failed to ingest documents", "error", err)
		}

	case "file":
		flags := config.ParseFileFlags()
		if flags.Path == "" {
			logger.Fatal("--path is required")
		}

		if err := IngestFile(ctx, cfg, flags); err != nil {
			logger.Fatal("failed to ingest document", "error", err)
		}

	default:
		fmt.Printf("Unknown command: %s\n", command)
		usage()
		os.Exit(1)
	}
}
