package main

import (
	"context"
	"flag"
	"log/slog"
	"os"
	"time"

	"lanshare/internal/config"
	"lanshare/internal/events"
	"lanshare/internal/handler"
	"lanshare/internal/network"
	"lanshare/internal/server"
	"lanshare/internal/store"
)

func main() {
	configPath := flag.String("config", config.DefaultPath, "Config file")
	receivedDir := flag.String("received", config.DefaultReceived, "Directory for files sent from the phone")
	sharedDir := flag.String("shared", config.DefaultShared, "Directory for files offered to the phone")
	maxUpload := flag.Int64("max-upload", config.DefaultMaxUploadSize, "Maximum upload request size in bytes")
	flag.Parse()

	slog.SetDefault(slog.New(slog.NewTextHandler(os.Stderr, nil)))

	// Precedence: default < config file < PORT env < first argument.
	cfg, err := config.Load(*configPath)
	if err != nil {
		slog.Error("Error loading config, using defaults", "path", *configPath, "error", err)
	}
	port, err := config.ResolveEnvPort(cfg.Port, os.LookupEnv)
	if err != nil {
		slog.Error("Ignoring port from environment", "error", err)
	}
	port, err = config.ResolvePort(port, flag.Args())
	if err != nil {
		slog.Error("Ignoring port argument", "error", err)
	}

	ip := network.GetLocalIP()
	broker := events.NewBroker()
	h := handler.New(handler.Options{
		Received:      store.New(*receivedDir),
		Shared:        store.New(*sharedDir),
		Broker:        broker,
		Port:          port,
		MaxUploadSize: *maxUpload,
		LocalIP:       func() string { return ip },
	})
	limiter := handler.NewRateLimiter(300)

	server.PrintBanner(ip, port)

	srv := server.NewHTTPServer(server.NewRouter(h, limiter),
		server.WithPort(port), server.WithShutdownHook(h.Shutdown))
	err = srv.Run(context.Background(), func(ctx context.Context) {
		limiter.Cleanup(ctx, time.Minute)
	})
	if err != nil {
		slog.Error("Server stopped", "error", err)
		os.Exit(1)
	}
	slog.Info("Server stopped")
}
