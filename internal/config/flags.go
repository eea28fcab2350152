package config

import (
	"flag"
	"os"
)

const defaultDocsPath = "./pdfs"

// parses CLI flags for the ingest subcommand (whole directory)
func ParseIngestFlags() Flags {
	return parseIngestFlags(os.Args[2:])
}

func parseIngestFlags(args []string) Flags {
	fs := flag.NewFlagSet("ingest", flag.ExitOnError)
	path := fs.String("path", defaultDocsPath, "directory of documents to ingest")
	profile := fs.String("profile", "", "optional YAML ingestion profile")
	fs.Parse(args) //nolint:errcheck,gosec // G104: ExitOnError flag set handles errors

	return Flags{Path: *path, Profile: *profile}
}

// parses CLI flags for the file subcommand (single document)
func ParseFileFlags() Flags {
	return parseFileFlags(os.Args[2:])
}

func parseFileFlags(args []string) Flags {
	fs := flag.NewFlagSet("file", flag.ExitOnError)
	path := fs.String("path", "", "document to ingest")
	typ := fs.String("type", "", "resource type: guide or score (classified from the filename when empty)")
	profile := fs.String("profile", "", "optional YAML ingestion profile")
	fs.Parse(args) //nolint:errcheck,gosec // G104: ExitOnError flag set handles errors

	return Flags{Path: *path, Type: *typ, Profile: *profile}
}
