// Package launcher prepares the working directory and starts the lanshare
// server with the configured port.
package launcher

import (
	"context"
	"errors"
	"fmt"
	"go/version"
	"io"
	"log/slog"
	"os"
	"os/exec"
	"os/signal"
	"path/filepath"
	"runtime"
	"strconv"
	"syscall"

	"github.com/mdp/qrterminal/v3"

	"lanshare/internal/config"
	"lanshare/internal/network"
)

// MinGoVersion is the oldest runtime the launcher is tested with.
const MinGoVersion = "go1.22"

// ServerBinary is the executable the launcher starts.
const ServerBinary = "lanshare"

const (
	blackWhite = "▄"
	blackBlack = " "
	whiteBlack = "▀"
	whiteWhite = "█"
)

// Options configures Run. Zero values fall back to the defaults used by
// cmd/launcher.
type Options struct {
	ConfigPath   string
	ReceivedDir  string
	SharedDir    string
	ServerBinary string
	// Out receives the banner and QR code.
	Out     io.Writer
	LocalIP func() string
	// Spawn starts the server and blocks until it exits or ctx is done.
	Spawn func(ctx context.Context, bin string, port int) error
}

func (o *Options) defaults() {
	if o.ConfigPath == "" {
		o.ConfigPath = config.DefaultPath
	}
	if o.ReceivedDir == "" {
		o.ReceivedDir = config.DefaultReceived
	}
	if o.SharedDir == "" {
		o.SharedDir = config.DefaultShared
	}
	if o.ServerBinary == "" {
		o.ServerBinary = ServerBinary
	}
	if o.Out == nil {
		o.Out = os.Stdout
	}
	if o.LocalIP == nil {
		o.LocalIP = network.GetLocalIP
	}
	if o.Spawn == nil {
		o.Spawn = spawn
	}
}

// Run executes the startup sequence. Only a failure to create the data
// directories or to start the server is returned; everything else is
// logged and skipped.
func Run(ctx context.Context, opts Options) error {
	opts.defaults()

	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	slog.Info("Step 1: loading config", "path", opts.ConfigPath)
	cfg, created, err := config.LoadOrCreate(opts.ConfigPath)
	switch {
	case err != nil:
		slog.Error("Config unusable, using defaults", "error", err)
	case created:
		slog.Info("Config file not found, wrote default", "path", opts.ConfigPath)
	}
	slog.Info("Using port", "port", cfg.Port)

	slog.Info("Step 2: checking Go runtime", "version", runtime.Version())
	if err := checkRuntime(runtime.Version()); err != nil {
		slog.Warn("Runtime check failed", "error", err)
	}

	slog.Info("Step 3: creating directories")
	for _, dir := range []string{opts.ReceivedDir, opts.SharedDir} {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return fmt.Errorf("create %s: %w", dir, err)
		}
	}

	slog.Info("Step 4: locating server binary", "name", opts.ServerBinary)
	bin, err := findServer(opts.ServerBinary)
	if err != nil {
		slog.Error("Server binary not found", "error", err)
	} else {
		slog.Info("Found server binary", "path", bin)
	}

	slog.Info("Step 5: discovering LAN address")
	ip := opts.LocalIP()
	printBanner(opts.Out, fmt.Sprintf("http://%s:%d", ip, cfg.Port), opts.SharedDir, opts.ConfigPath)

	slog.Info("Step 6: starting server", "port", cfg.Port)
	if bin == "" {
		return fmt.Errorf("start server: %s not found", opts.ServerBinary)
	}
	err = opts.Spawn(ctx, bin, cfg.Port)
	if errors.Is(err, context.Canceled) {
		slog.Info("Server stopped")
		return nil
	}
	if err != nil {
		return fmt.Errorf("start server: %w", err)
	}
	slog.Info("Server stopped")
	return nil
}

// checkRuntime reports whether v is at least MinGoVersion.
func checkRuntime(v string) error {
	if !version.IsValid(v) {
		return fmt.Errorf("unrecognized Go version %q", v)
	}
	if version.Compare(v, MinGoVersion) < 0 {
		return fmt.Errorf("%s is older than %s", v, MinGoVersion)
	}
	return nil
}

// findServer resolves name next to the running executable first, then on
// PATH. Names containing a separator are used as given.
func findServer(name string) (string, error) {
	if filepath.Base(name) != name {
		if _, err := os.Stat(name); err != nil {
			return "", err
		}
		return name, nil
	}
	if exe, err := os.Executable(); err == nil {
		candidate := filepath.Join(filepath.Dir(exe), name)
		if runtime.GOOS == "windows" {
			candidate += ".exe"
		}
		if info, err := os.Stat(candidate); err == nil && !info.IsDir() {
			return candidate, nil
		}
	}
	return exec.LookPath(name)
}

func printBanner(w io.Writer, url, sharedDir, configPath string) {
	fmt.Fprintf(w, "\n==================================================\n")
	fmt.Fprintf(w, "  LAN Share is starting\n")
	fmt.Fprintf(w, "==================================================\n")
	fmt.Fprintf(w, "  1. Copy files to share into %s/\n", sharedDir)
	fmt.Fprintf(w, "  2. Open %s in the phone's browser\n", url)
	fmt.Fprintf(w, "  3. Pick \"Computer to phone\" to download or \"Phone to computer\" to upload\n")
	fmt.Fprintf(w, "  4. Press Ctrl+C to stop the server\n")
	fmt.Fprintf(w, "  5. Edit %s to change the port\n", configPath)
	fmt.Fprintf(w, "==================================================\n\n")
	fmt.Fprintf(w, "  Scan to open %s\n", url)

	qrterminal.GenerateWithConfig(url, qrterminal.Config{
		Level:          qrterminal.M,
		Writer:         w,
		HalfBlocks:     true,
		BlackChar:      blackBlack,
		WhiteBlackChar: whiteBlack,
		WhiteChar:      whiteWhite,
		BlackWhiteChar: blackWhite,
		QuietZone:      1,
	})
	fmt.Fprintln(w)
}

// spawn runs the server with inherited stdio. On cancellation it returns
// without killing the child; an interactive Ctrl+C reaches it directly.
func spawn(ctx context.Context, bin string, port int) error {
	cmd := exec.Command(bin, strconv.Itoa(port))
	cmd.Stdin = os.Stdin
	cmd.Stdout = os.Stdout
	cmd.Stderr = os.Stderr
	if err := cmd.Start(); err != nil {
		return err
	}

	done := make(chan error, 1)
	go func() {
		done <- cmd.Wait()
	}()

	select {
	case err := <-done:
		return err
	case <-ctx.Done():
		return ctx.Err()
	}
}
