package server

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"golang.org/x/sync/errgroup"
)

const shutdownTimeout = 10 * time.Second

// HTTPServer wraps http.Server with a signal-aware Run loop.
type HTTPServer struct {
	server *http.Server
}

// Option configures an HTTPServer.
type Option func(*HTTPServer)

// NewHTTPServer builds a server for handler. Without options it listens on
// the http.Server default address.
func NewHTTPServer(handler http.Handler, options ...Option) *HTTPServer {
	srv := &HTTPServer{
		server: &http.Server{
			Handler:           handler,
			ReadHeaderTimeout: 10 * time.Second,
		},
	}

	for _, opt := range options {
		opt(srv)
	}

	return srv
}

// WithPort listens on every interface at port.
func WithPort(port int) Option {
	return func(srv *HTTPServer) {
		srv.server.Addr = fmt.Sprintf("0.0.0.0:%d", port)
	}
}

// WithAddress listens on a host:port address.
func WithAddress(address string) Option {
	return func(srv *HTTPServer) {
		srv.server.Addr = address
	}
}

// Serve accepts connections on l until Stop is called.
func (s *HTTPServer) Serve(l net.Listener) error {
	slog.Info("Starting HTTP server", "address", l.Addr().String())
	err := s.server.Serve(l)
	if errors.Is(err, http.ErrServerClosed) {
		return nil
	}
	return err
}

// WithShutdownHook runs f when shutdown begins, so long-lived handlers such
// as event streams can return before the shutdown timeout.
func WithShutdownHook(f func()) Option {
	return func(srv *HTTPServer) {
		srv.server.RegisterOnShutdown(f)
	}
}

// Stop shuts the server down, waiting for active requests until ctx is done.
func (s *HTTPServer) Stop(ctx context.Context) error {
	slog.Info("Stopping HTTP server", "address", s.server.Addr)
	return s.server.Shutdown(ctx)
}

// Run serves until ctx is cancelled or the process receives SIGINT or
// SIGTERM, then shuts down gracefully. Background jobs run alongside the
// server and receive a context cancelled at shutdown.
func (s *HTTPServer) Run(ctx context.Context, jobs ...func(context.Context)) error {
	l, err := net.Listen("tcp", s.server.Addr)
	if err != nil {
		return fmt.Errorf("listen on %s: %w", s.server.Addr, err)
	}

	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return s.Serve(l)
	})
	for _, job := range jobs {
		g.Go(func() error {
			job(gctx)
			return nil
		})
	}
	g.Go(func() error {
		<-gctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		return s.Stop(shutdownCtx)
	})

	return g.Wait()
}

// PrintBanner shows where the service can be reached.
func PrintBanner(ip string, port int) {
	fmt.Printf("\n  ╔═══════════════════════════════════════════════╗\n")
	fmt.Printf("  ║                  LAN Share                    ║\n")
	fmt.Printf("  ╠═══════════════════════════════════════════════╣\n")
	fmt.Printf("  ║  Local:   http://localhost:%-19d║\n", port)
	fmt.Printf("  ║  Network: http://%-15s:%-13d║\n", ip, port)
	fmt.Printf("  ╚═══════════════════════════════════════════════╝\n\n")
	fmt.Printf("  Open the URL on your phone to exchange files.\n")
	fmt.Printf("  Press Ctrl+C to stop.\n\n")
}
