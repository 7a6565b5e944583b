package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strconv"

	validation "github.com/go-ozzo/ozzo-validation"
)

const (
	DefaultPort     = 5000
	MinPort         = 1024
	MaxPort         = 65535
	DefaultPath     = "config.json"
	DefaultReceived = "received_files"
	DefaultShared   = "shared_files"

	// DefaultMaxUploadSize caps a single upload request (500 MB).
	DefaultMaxUploadSize = 500 << 20
)

// ErrInvalidConfig marks a config file or port value that failed validation.
var ErrInvalidConfig = errors.New("invalid config")

// Config is the persisted server configuration.
type Config struct {
	Port int `json:"port"`
}

// Default returns the configuration used when no valid file exists.
func Default() Config {
	return Config{Port: DefaultPort}
}

// Validate checks the port range.
func (c Config) Validate() error {
	return validation.ValidateStruct(&c,
		validation.Field(&c.Port, validation.Required, validation.Min(MinPort), validation.Max(MaxPort)),
	)
}

// Load reads the config file at path. A missing file yields the default
// config and no error. Any other problem yields the default config together
// with an error wrapping ErrInvalidConfig, which callers log and ignore.
func Load(path string) (Config, error) {
	data, err := os.ReadFile(path)
	if errors.Is(err, fs.ErrNotExist) {
		return Default(), nil
	}
	if err != nil {
		return Default(), fmt.Errorf("%w: read %s: %v", ErrInvalidConfig, path, err)
	}
	return parse(data)
}

func parse(data []byte) (Config, error) {
	var raw map[string]json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return Default(), fmt.Errorf("%w: %v", ErrInvalidConfig, err)
	}
	portJSON, ok := raw["port"]
	if !ok {
		return Default(), fmt.Errorf("%w: missing port", ErrInvalidConfig)
	}

	// Unmarshalling into an int rejects 8080.0, "8080" and booleans.
	var cfg Config
	if err := json.Unmarshal(portJSON, &cfg.Port); err != nil {
		return Default(), fmt.Errorf("%w: port must be an integer: %s", ErrInvalidConfig, portJSON)
	}
	if err := cfg.Validate(); err != nil {
		return Default(), fmt.Errorf("%w: %v", ErrInvalidConfig, err)
	}
	return cfg, nil
}

// LoadOrCreate behaves like Load but first writes the default config to
// path when no file exists there.
func LoadOrCreate(path string) (Config, bool, error) {
	if _, err := os.Stat(path); errors.Is(err, fs.ErrNotExist) {
		cfg := Default()
		if err := Save(path, cfg); err != nil {
			return cfg, false, err
		}
		return cfg, true, nil
	}
	cfg, err := Load(path)
	return cfg, false, err
}

// Save writes cfg as indented JSON.
func Save(path string, cfg Config) error {
	data, err := json.MarshalIndent(cfg, "", "  ")
	if err != nil {
		return err
	}
	if err := os.WriteFile(path, append(data, '\n'), 0644); err != nil {
		return fmt.Errorf("write config %s: %w", path, err)
	}
	return nil
}

// ParsePort parses and range-checks a port given as text.
func ParsePort(s string) (int, error) {
	p, err := strconv.Atoi(s)
	if err != nil {
		return 0, fmt.Errorf("%w: port %q is not a number", ErrInvalidConfig, s)
	}
	if err := (Config{Port: p}).Validate(); err != nil {
		return 0, fmt.Errorf("%w: %v", ErrInvalidConfig, err)
	}
	return p, nil
}

// ResolvePort applies the first positional argument, when present and
// valid, over base. An invalid argument leaves base and is reported.
func ResolvePort(base int, args []string) (int, error) {
	if len(args) == 0 {
		return base, nil
	}
	p, err := ParsePort(args[0])
	if err != nil {
		return base, err
	}
	return p, nil
}

// ResolveEnvPort applies the PORT environment variable over base, for
// container deployments.
func ResolveEnvPort(base int, lookup func(string) (string, bool)) (int, error) {
	v, ok := lookup("PORT")
	if !ok || v == "" {
		return base, nil
	}
	p, err := ParsePort(v)
	if err != nil {
		return base, fmt.Errorf("PORT env: %w", err)
	}
	return p, nil
}
