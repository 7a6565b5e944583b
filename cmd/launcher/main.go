package main

import (
	"context"
	"log/slog"
	"os"

	"lanshare/internal/launcher"
)

func main() {
	slog.SetDefault(slog.New(slog.NewTextHandler(os.Stderr, nil)))

	if err := launcher.Run(context.Background(), launcher.Options{}); err != nil {
		slog.Error("Launcher failed", "error", err)
		os.Exit(1)
	}
}
