// Package check verifies many analyzer sources concurrently, consulting the
// on-disk result cache when one is configured.
package check

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"runtime"
	"slices"
	"strings"
	"sync/atomic"

	"golang.org/x/sync/errgroup"

	"github.com/kpumuk/metacheck/internal/cache"
	"github.com/kpumuk/metacheck/internal/lint"
	"github.com/kpumuk/metacheck/internal/rules"
	"github.com/kpumuk/metacheck/internal/syntax"
)

// Options configure a batch run.
type Options struct {
	// Jobs bounds the number of files checked at once. Zero uses GOMAXPROCS.
	Jobs    int
	Backend string
	Lint    lint.Options
	Cache   *cache.Cache
	Logger  *slog.Logger
}

// Result is the outcome for one input. Tree is nil when the diagnostics came
// from the cache or reading the file failed.
type Result struct {
	Path        string
	Source      []byte
	Tree        *syntax.Tree
	Diagnostics []lint.Diagnostic
	Cached      bool
	Err         error
}

// Stats counts cache traffic of a batch.
type Stats struct {
	Hits   int64
	Misses int64
	Errors int64
}

// Checker runs the verification over sources.
type Checker struct {
	opts   Options
	runner *lint.Runner
	salt   string
	logger *slog.Logger

	hits   atomic.Int64
	misses atomic.Int64
	errs   atomic.Int64
}

// New returns a Checker for opts.
func New(opts Options) *Checker {
	logger := opts.Logger
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	lintOpts := opts.Lint
	if lintOpts.Logger == nil {
		lintOpts.Logger = logger
	}
	return &Checker{
		opts:   opts,
		runner: lint.NewDefaultRunner(lintOpts),
		salt:   cacheSalt(opts.Backend, lintOpts),
		logger: logger,
	}
}

// Runner returns the lint runner the checker uses.
func (c *Checker) Runner() *lint.Runner {
	return c.runner
}

// Stats returns the cache counters accumulated so far.
func (c *Checker) Stats() Stats {
	return Stats{Hits: c.hits.Load(), Misses: c.misses.Load(), Errors: c.errs.Load()}
}

// Source checks one in-memory source. uri names it in diagnostics. Per-file
// failures are reported in Result.Err.
func (c *Checker) Source(ctx context.Context, uri string, src []byte) Result {
	res := Result{Path: uri, Source: src}
	key := cache.NewKey(src, c.salt)
	if c.opts.Cache != nil {
		entry, ok, err := c.opts.Cache.Get(key)
		switch {
		case err != nil:
			c.logger.Warn("cache read failed", "uri", uri, "error", err)
		case ok:
			c.hits.Add(1)
			c.logger.Debug("cache hit", "uri", uri, "key", key.String())
			res.Diagnostics = entry.Restore()
			res.Cached = true
			return res
		default:
			c.misses.Add(1)
			c.logger.Debug("cache miss", "uri", uri)
		}
	}

	tree, err := syntax.Parse(ctx, src, syntax.ParseOptions{URI: uri, Backend: c.opts.Backend})
	if err != nil {
		c.errs.Add(1)
		res.Err = fmt.Errorf("parse %s: %w", uri, err)
		return res
	}
	res.Tree = tree
	diags, err := c.runner.Run(ctx, tree)
	if err != nil {
		c.errs.Add(1)
		res.Err = fmt.Errorf("check %s: %w", uri, err)
		return res
	}
	res.Diagnostics = diags

	if c.opts.Cache != nil {
		entry, err := cache.FromDiagnostics(diags)
		if err == nil {
			err = c.opts.Cache.Put(key, entry)
		}
		if err != nil {
			c.logger.Warn("cache write failed", "uri", uri, "error", err)
		}
	}
	return res
}

// File reads and checks the file at path.
func (c *Checker) File(ctx context.Context, path string) Result {
	//nolint:gosec // CLI intentionally reads user-provided file paths.
	src, err := os.ReadFile(path)
	if err != nil {
		c.errs.Add(1)
		return Result{Path: path, Err: fmt.Errorf("read %s: %w", path, err)}
	}
	return c.Source(ctx, path, src)
}

// Files checks paths concurrently. Results are in input order. The returned
// error is non-nil only when ctx is canceled; per-file failures are recorded
// in the results.
func (c *Checker) Files(ctx context.Context, paths []string) ([]Result, error) {
	results := make([]Result, len(paths))
	if len(paths) == 0 {
		return results, nil
	}
	jobs := c.opts.Jobs
	if jobs <= 0 {
		jobs = runtime.GOMAXPROCS(0)
	}
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(min(jobs, len(paths)))
	for i, path := range paths {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			results[i] = c.File(gctx, path)
			if errors.Is(results[i].Err, context.Canceled) || errors.Is(results[i].Err, context.DeadlineExceeded) {
				return results[i].Err
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return results, err
	}
	c.logger.Debug("batch finished", "files", len(paths), "jobs", jobs, "cache_hits", c.hits.Load(), "cache_misses", c.misses.Load())
	return results, nil
}

// Files is a convenience wrapper around New(opts).Files.
func Files(ctx context.Context, paths []string, opts Options) ([]Result, error) {
	return New(opts).Files(ctx, paths)
}

// cacheSalt describes every setting that changes diagnostics.
func cacheSalt(backend string, opts lint.Options) string {
	if backend == "" {
		backend = syntax.DefaultBackend
	}
	var b strings.Builder
	fmt.Fprintf(&b, "backend=%s;single=%t", backend, opts.SingleStep)
	sev := make([]string, 0, len(opts.Severity))
	for id, s := range opts.Severity {
		sev = append(sev, fmt.Sprintf("%s=%s", id, s))
	}
	slices.Sort(sev)
	fmt.Fprintf(&b, ";severity=%s", strings.Join(sev, ","))
	var disabled []string
	for id, off := range opts.Disabled {
		if off {
			disabled = append(disabled, id.String())
		}
	}
	slices.Sort(disabled)
	fmt.Fprintf(&b, ";disabled=%s;rules=%d", strings.Join(disabled, ","), len(rules.IDs()))
	return b.String()
}
