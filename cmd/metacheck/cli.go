package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/kpumuk/metacheck/internal/cache"
	"github.com/kpumuk/metacheck/internal/config"
	"github.com/kpumuk/metacheck/internal/lint"
)

const (
	exitOK       = 0
	exitIssues   = 1
	exitUsage    = 2
	exitInternal = 3
)

// exitError carries a process exit code out of a command.
type exitError struct {
	code int
	err  error
}

func (e *exitError) Error() string {
	if e.err == nil {
		return fmt.Sprintf("exit %d", e.code)
	}
	return e.err.Error()
}

func (e *exitError) Unwrap() error {
	return e.err
}

func usageErrorf(format string, args ...any) error {
	return &exitError{code: exitUsage, err: fmt.Errorf(format, args...)}
}

func internalError(err error) error {
	return &exitError{code: exitInternal, err: err}
}

// errIssues reports diagnostics that were already printed.
var errIssues = &exitError{code: exitIssues}

// app is the state of one invocation.
type app struct {
	stdin          io.Reader
	stdout, stderr io.Writer

	configPath string
	backend    string
	color      string
	jobs       int
	cacheDir   string
	noCache    bool
	logLevel   string

	cfg    config.Config
	logger *slog.Logger
}

func run(ctx context.Context, stdin io.Reader, stdout, stderr io.Writer, args []string) int {
	a := &app{stdin: stdin, stdout: stdout, stderr: stderr}
	root := a.rootCommand()
	root.SetArgs(args)
	root.SetIn(stdin)
	root.SetOut(stdout)
	root.SetErr(stderr)

	err := root.ExecuteContext(ctx)
	if err == nil {
		return exitOK
	}
	var exit *exitError
	if errors.As(err, &exit) {
		if exit.err != nil {
			writef(stderr, "metacheck: %v\n", exit.err)
		}
		return exit.code
	}
	writef(stderr, "metacheck: %v\n", err)
	if isUsageFailure(err) {
		return exitUsage
	}
	return exitInternal
}

// isUsageFailure recognizes argument errors cobra reports without a hook.
func isUsageFailure(err error) bool {
	msg := err.Error()
	return strings.HasPrefix(msg, "unknown command") ||
		strings.HasPrefix(msg, "accepts ") ||
		strings.HasPrefix(msg, "requires at least")
}

func (a *app) rootCommand() *cobra.Command {
	root := &cobra.Command{
		Use:   "metacheck",
		Short: "Verify and repair the if-spacing analyzer tutorial",
		Long: "metacheck checks a C# diagnostic analyzer against the if-spacing tutorial step by step\n" +
			"and synthesizes the smallest edit that completes the next step.",
		SilenceUsage:      true,
		SilenceErrors:     true,
		PersistentPreRunE: a.setup,
	}
	root.SetFlagErrorFunc(func(_ *cobra.Command, err error) error {
		return &exitError{code: exitUsage, err: err}
	})

	pf := root.PersistentFlags()
	pf.StringVar(&a.configPath, "config", "", "config file (default: discovered .metacheck.toml or .metacheck.yaml)")
	pf.StringVar(&a.backend, "backend", "", "parser backend: native or treesitter")
	pf.StringVar(&a.color, "color", "", "colorize output: auto, always or never")
	pf.IntVarP(&a.jobs, "jobs", "j", 0, "files checked in parallel (default: number of CPUs)")
	pf.StringVar(&a.cacheDir, "cache-dir", "", "result cache directory")
	pf.BoolVar(&a.noCache, "no-cache", false, "disable the result cache")
	pf.StringVar(&a.logLevel, "log-level", "warn", "log level: debug, info, warn or error")

	root.AddCommand(
		a.checkCommand(),
		a.fixCommand(),
		a.rulesCommand(),
		a.debugCommand(),
	)
	return root
}

// setup loads the configuration and applies flag overrides.
func (a *app) setup(cmd *cobra.Command, _ []string) error {
	var level slog.Level
	if err := level.UnmarshalText([]byte(a.logLevel)); err != nil {
		return usageErrorf("invalid --log-level %q", a.logLevel)
	}
	a.logger = slog.New(slog.NewTextHandler(a.stderr, &slog.HandlerOptions{Level: level}))

	cfg, path, err := a.loadConfig()
	if err != nil {
		return usageErrorf("%w", err)
	}
	flags := cmd.Flags()
	if flags.Changed("backend") {
		cfg.Backend = a.backend
	}
	if flags.Changed("color") {
		cfg.Color = a.color
	}
	if flags.Changed("jobs") {
		cfg.Jobs = a.jobs
	}
	if flags.Changed("cache-dir") {
		cfg.CacheDir = a.cacheDir
	}
	if flags.Changed("no-cache") {
		cfg.NoCache = a.noCache
	}
	if err := cfg.Validate(); err != nil {
		return usageErrorf("%w", err)
	}
	a.cfg = cfg
	a.logger.Debug("configuration loaded", "path", path, "config", cfg)
	return nil
}

func (a *app) loadConfig() (config.Config, string, error) {
	if a.configPath != "" {
		cfg, err := config.Load(a.configPath)
		return cfg, a.configPath, err
	}
	wd, err := os.Getwd()
	if err != nil {
		return config.Default(), "", nil
	}
	return config.Discover(wd)
}

func (a *app) lintOptions() (lint.Options, error) {
	opts, err := a.cfg.LintOptions(a.logger)
	if err != nil {
		return lint.Options{}, usageErrorf("%w", err)
	}
	return opts, nil
}

// openCache returns nil when caching is disabled or the directory is
// unusable; a broken cache only costs speed.
func (a *app) openCache() *cache.Cache {
	if a.cfg.NoCache {
		return nil
	}
	c, err := cache.Open(a.cfg.CacheDir)
	if err != nil {
		a.logger.Warn("result cache disabled", "error", err)
		return nil
	}
	return c
}

// inputOptions are the flags shared by commands that read one source.
type inputOptions struct {
	stdin          bool
	assumeFilename string
}

func (o *inputOptions) register(cmd *cobra.Command) {
	cmd.Flags().BoolVar(&o.stdin, "stdin", false, "read source from stdin")
	cmd.Flags().StringVar(&o.assumeFilename, "assume-filename", "", "path used in diagnostics when reading stdin")
}

func (o inputOptions) validate(args []string) error {
	if o.assumeFilename != "" && !o.stdin {
		return usageErrorf("--assume-filename requires --stdin")
	}
	if o.stdin && len(args) > 0 {
		return usageErrorf("positional file path is not allowed with --stdin")
	}
	return nil
}

func readInput(stdin io.Reader, opts inputOptions, path string) ([]byte, string, error) {
	if opts.stdin {
		src, err := io.ReadAll(stdin)
		if err != nil {
			return nil, "", fmt.Errorf("read stdin: %w", err)
		}
		uri := opts.assumeFilename
		if uri == "" {
			uri = "stdin.cs"
		}
		return src, uri, nil
	}
	//nolint:gosec // CLI intentionally reads user-provided file paths.
	src, err := os.ReadFile(path)
	if err != nil {
		return nil, "", fmt.Errorf("read %s: %w", path, err)
	}
	return src, path, nil
}

func writeOutputFile(path string, data []byte) error {
	mode := os.FileMode(0o600)
	//nolint:gosec // CLI reads metadata for a user-specified output path.
	if st, err := os.Stat(path); err == nil {
		mode = st.Mode().Perm()
		if mode == 0 {
			mode = 0o600
		}
	}
	//nolint:gosec // CLI writes fixed sources to a user-specified path.
	return os.WriteFile(path, data, mode)
}
