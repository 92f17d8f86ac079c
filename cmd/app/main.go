// Package main provides the entry point for the ROBERT server and its operator commands.
package main

import (
	"context"
	"log/slog"
	"os"
	"slices"

	"github.com/urfave/cli/v3"
)

var version = "dev"

func main() {
	cmd := &cli.Command{
		Name:     "robert",
		Usage:    "ROBERT proximity-tracing identity and crypto server",
		Version:  version,
		Commands: slices.Concat(getSystemCommands(version), getKeyCommands()),
	}

	if err := cmd.Run(context.Background(), os.Args); err != nil {
		slog.Error("application error", slog.Any("error", err))
		os.Exit(1)
	}
}
