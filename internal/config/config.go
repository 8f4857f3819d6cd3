// Package config loads metacheck settings from .metacheck.toml or
// .metacheck.yaml files.
package config

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"slices"
	"strings"

	"github.com/BurntSushi/toml"
	"gopkg.in/yaml.v3"

	"github.com/kpumuk/metacheck/internal/lint"
	"github.com/kpumuk/metacheck/internal/rules"
	"github.com/kpumuk/metacheck/internal/syntax"
)

// FileNames lists the config files Find looks for, in precedence order.
var FileNames = []string{".metacheck.toml", ".metacheck.yaml", ".metacheck.yml"}

// ErrInvalid wraps every validation failure.
var ErrInvalid = errors.New("invalid config")

// Config holds settings shared by the metacheck commands. Command-line flags
// override file values.
type Config struct {
	Backend    string            `toml:"backend" yaml:"backend"`
	Format     string            `toml:"format" yaml:"format"`
	Color      string            `toml:"color" yaml:"color"`
	Jobs       int               `toml:"jobs" yaml:"jobs"`
	SingleStep bool              `toml:"single_step" yaml:"single_step"`
	CacheDir   string            `toml:"cache_dir" yaml:"cache_dir"`
	NoCache    bool              `toml:"no_cache" yaml:"no_cache"`
	Severity   map[string]string `toml:"severity" yaml:"severity"`
	Disabled   []string          `toml:"disabled" yaml:"disabled"`
}

// Default returns the settings used when no config file is present.
func Default() Config {
	return Config{
		Backend: syntax.DefaultBackend,
		Format:  "text",
		Color:   "auto",
	}
}

// LogValue implements slog.LogValuer.
func (c Config) LogValue() slog.Value {
	return slog.GroupValue(
		slog.String("backend", c.Backend),
		slog.String("format", c.Format),
		slog.Int("jobs", c.Jobs),
		slog.Bool("single_step", c.SingleStep),
		slog.Bool("no_cache", c.NoCache),
		slog.Int("severity_overrides", len(c.Severity)),
		slog.Int("disabled", len(c.Disabled)),
	)
}

// Find returns the first config file in dir or one of its parents.
func Find(dir string) (string, bool, error) {
	if dir == "" {
		dir = "."
	}
	dir, err := filepath.Abs(dir)
	if err != nil {
		return "", false, fmt.Errorf("resolve config directory: %w", err)
	}
	for {
		for _, name := range FileNames {
			candidate := filepath.Join(dir, name)
			if _, err := os.Stat(candidate); err == nil {
				return candidate, true, nil
			} else if !errors.Is(err, os.ErrNotExist) {
				return "", false, fmt.Errorf("stat %q: %w", candidate, err)
			}
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			return "", false, nil
		}
		dir = parent
	}
}

// Discover loads the config file found from dir, or the defaults when there
// is none. The returned path is empty for defaults.
func Discover(dir string) (Config, string, error) {
	path, ok, err := Find(dir)
	if err != nil || !ok {
		return Default(), "", err
	}
	cfg, err := Load(path)
	if err != nil {
		return Config{}, path, err
	}
	return cfg, path, nil
}

// Load reads and validates the config file at path. The format follows the
// file extension.
func Load(path string) (Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Config{}, fmt.Errorf("read config: %w", err)
	}
	switch ext := strings.ToLower(filepath.Ext(path)); ext {
	case ".toml":
		return Parse(data, "toml", path)
	case ".yaml", ".yml":
		return Parse(data, "yaml", path)
	default:
		return Config{}, fmt.Errorf("%s: unsupported config format %q", path, ext)
	}
}

// Parse decodes data in the given format ("toml" or "yaml") over the
// defaults and validates the result. name is used in error messages.
func Parse(data []byte, format, name string) (Config, error) {
	cfg := Default()
	switch format {
	case "toml":
		meta, err := toml.Decode(string(data), &cfg)
		if err != nil {
			return Config{}, fmt.Errorf("%s: failed to parse TOML: %w", name, err)
		}
		if undecoded := meta.Undecoded(); len(undecoded) > 0 {
			return Config{}, fmt.Errorf("%s: %w: unknown key %q", name, ErrInvalid, undecoded[0].String())
		}
	case "yaml":
		dec := yaml.NewDecoder(bytes.NewReader(data))
		dec.KnownFields(true)
		if err := dec.Decode(&cfg); err != nil && !errors.Is(err, io.EOF) {
			return Config{}, fmt.Errorf("%s: failed to parse YAML: %w", name, err)
		}
	default:
		return Config{}, fmt.Errorf("%s: unsupported config format %q", name, format)
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, fmt.Errorf("%s: %w", name, err)
	}
	return cfg, nil
}

// Validate rejects unknown backends, formats, rule names and severities.
func (c Config) Validate() error {
	if c.Backend != "" && !slices.Contains(syntax.Backends(), c.Backend) {
		return fmt.Errorf("%w: unknown backend %q (known: %v)", ErrInvalid, c.Backend, syntax.Backends())
	}
	switch c.Format {
	case "", "text", "json":
	default:
		return fmt.Errorf("%w: unknown format %q", ErrInvalid, c.Format)
	}
	switch c.Color {
	case "", "auto", "always", "never":
	default:
		return fmt.Errorf("%w: unknown color mode %q", ErrInvalid, c.Color)
	}
	if c.Jobs < 0 {
		return fmt.Errorf("%w: jobs must not be negative", ErrInvalid)
	}
	if _, err := c.severities(); err != nil {
		return err
	}
	if _, err := c.disabled(); err != nil {
		return err
	}
	return nil
}

// LintOptions converts the rule settings into runner options.
func (c Config) LintOptions(logger *slog.Logger) (lint.Options, error) {
	sev, err := c.severities()
	if err != nil {
		return lint.Options{}, err
	}
	disabled, err := c.disabled()
	if err != nil {
		return lint.Options{}, err
	}
	return lint.Options{
		SingleStep: c.SingleStep,
		Severity:   sev,
		Disabled:   disabled,
		Logger:     logger,
	}, nil
}

func (c Config) severities() (map[rules.ID]rules.Severity, error) {
	if len(c.Severity) == 0 {
		return nil, nil
	}
	out := make(map[rules.ID]rules.Severity, len(c.Severity))
	for name, level := range c.Severity {
		r, ok := rules.Lookup(name)
		if !ok {
			return nil, fmt.Errorf("%w: unknown rule %q in severity", ErrInvalid, name)
		}
		sev, err := rules.ParseSeverity(level)
		if err != nil {
			return nil, fmt.Errorf("%w: rule %s: %w", ErrInvalid, name, err)
		}
		out[r.ID] = sev
	}
	return out, nil
}

func (c Config) disabled() (map[rules.ID]bool, error) {
	if len(c.Disabled) == 0 {
		return nil, nil
	}
	out := make(map[rules.ID]bool, len(c.Disabled))
	for _, name := range c.Disabled {
		r, ok := rules.Lookup(name)
		if !ok {
			return nil, fmt.Errorf("%w: unknown rule %q in disabled", ErrInvalid, name)
		}
		out[r.ID] = true
	}
	return out, nil
}
