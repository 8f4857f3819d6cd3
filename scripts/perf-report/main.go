// Package main runs reproducible parse, check and fix measurements for metacheck.
package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"runtime"
	"runtime/debug"
	"slices"
	"sort"
	"strings"
	"time"

	"github.com/kpumuk/metacheck/internal/fix"
	"github.com/kpumuk/metacheck/internal/lint"
	"github.com/kpumuk/metacheck/internal/syntax"
	"github.com/kpumuk/metacheck/internal/testutil"
)

const (
	setVerified = "verified"
	setBroken   = "broken"
	setCorpus   = "corpus"

	maxExternalFiles = 50
)

var sets = []string{setVerified, setBroken, setCorpus}

type config struct {
	externalRoot   string
	backend        string
	iterations     int
	warmup         int
	jsonPath       string
	memIters       int
	memSampleEvery int
	memFreeOS      bool
}

type corpusFile struct {
	Path   string `json:"path"`
	Set    string `json:"set"`
	Source string `json:"source"`
	Bytes  int    `json:"bytes"`
	src    []byte
}

type sampleStats struct {
	Samples int     `json:"samples"`
	P50MS   float64 `json:"p50_ms"`
	P95MS   float64 `json:"p95_ms"`
	MinMS   float64 `json:"min_ms"`
	MaxMS   float64 `json:"max_ms"`
	MeanMS  float64 `json:"mean_ms"`
}

type benchSetReport struct {
	Set          string      `json:"set"`
	Files        int         `json:"files"`
	Iterations   int         `json:"iterations"`
	Samples      int         `json:"samples"`
	SkippedFiles int         `json:"skipped_files,omitempty"`
	Stats        sampleStats `json:"stats"`
}

type memSample struct {
	Iteration int    `json:"iteration"`
	HeapAlloc uint64 `json:"heap_alloc"`
	HeapInuse uint64 `json:"heap_inuse"`
	HeapSys   uint64 `json:"heap_sys"`
	NumGC     uint32 `json:"num_gc"`
}

type memoryReport struct {
	Iterations          int         `json:"iterations"`
	SampleEvery         int         `json:"sample_every"`
	DocCount            int         `json:"doc_count"`
	Samples             []memSample `json:"samples"`
	HeapAllocGrowth     int64       `json:"heap_alloc_growth"`
	HeapInuseGrowth     int64       `json:"heap_inuse_growth"`
	UnboundedGrowthHint bool        `json:"unbounded_growth_hint"`
}

type report struct {
	GeneratedAt  time.Time               `json:"generated_at"`
	GoVersion    string                  `json:"go_version"`
	GOOS         string                  `json:"goos"`
	GOARCH       string                  `json:"goarch"`
	CPUs         int                     `json:"cpus"`
	Config       map[string]any          `json:"config"`
	Corpus       map[string][]corpusFile `json:"corpus"`
	CorpusCounts map[string]int          `json:"corpus_counts"`
	ParseBench   []benchSetReport        `json:"parse_bench"`
	CheckBench   []benchSetReport        `json:"check_bench"`
	FixBench     []benchSetReport        `json:"fix_bench"`
	Memory       memoryReport            `json:"memory"`
	Warnings     []string                `json:"warnings,omitempty"`
}

func main() {
	cfg := parseFlags()
	if err := run(cfg); err != nil {
		fmt.Fprintf(os.Stderr, "perf-report: %v\n", err)
		os.Exit(1)
	}
}

func parseFlags() config {
	var cfg config
	flag.StringVar(&cfg.externalRoot, "external-root", "", "optional directory of additional .cs files")
	flag.StringVar(&cfg.backend, "backend", syntax.DefaultBackend, "parser backend")
	flag.IntVar(&cfg.iterations, "iterations", 15, "benchmark iterations per file")
	flag.IntVar(&cfg.warmup, "warmup", 2, "warmup iterations per file")
	flag.StringVar(&cfg.jsonPath, "json", "", "optional JSON report output path")
	flag.IntVar(&cfg.memIters, "memory-iterations", 300, "parse/check/fix loop iterations")
	flag.IntVar(&cfg.memSampleEvery, "memory-sample-every", 25, "memory sample cadence")
	flag.BoolVar(&cfg.memFreeOS, "memory-free-os", false, "call debug.FreeOSMemory before memory samples (slower, less noisy)")
	flag.Parse()
	return cfg
}

func run(cfg config) error {
	if cfg.iterations <= 0 {
		return errors.New("iterations must be > 0")
	}
	if cfg.warmup < 0 {
		return errors.New("warmup must be >= 0")
	}
	if cfg.memIters <= 0 {
		return errors.New("memory-iterations must be > 0")
	}
	if cfg.memSampleEvery <= 0 {
		return errors.New("memory-sample-every must be > 0")
	}
	if !syntax.BackendAvailable(cfg.backend) {
		return fmt.Errorf("backend %q is not available in this build (known: %v)", cfg.backend, syntax.Backends())
	}

	ctx := context.Background()
	corpus, warnings, err := buildCorpus(cfg.externalRoot)
	if err != nil {
		return err
	}
	runner := lint.NewDefaultRunner(lint.Options{})

	parseBench, err := runBench(corpus, cfg, func(f corpusFile) error {
		_, err := syntax.Parse(ctx, f.src, syntax.ParseOptions{URI: f.Path, Backend: cfg.backend})
		return err
	})
	if err != nil {
		return fmt.Errorf("parse bench: %w", err)
	}
	checkBench, err := runTreeBench(ctx, corpus, cfg, func(tree *syntax.Tree) error {
		_, err := runner.Run(ctx, tree)
		return err
	})
	if err != nil {
		return fmt.Errorf("check bench: %w", err)
	}
	fixBench, err := runTreeBench(ctx, corpus, cfg, func(tree *syntax.Tree) error {
		_, err := fix.Converge(ctx, tree, runner, fix.ConvergeOptions{})
		if fix.IsErrUnsafeToFix(err) {
			return errSkip
		}
		return err
	})
	if err != nil {
		return fmt.Errorf("fix bench: %w", err)
	}
	memBench, err := runMemoryLoop(ctx, corpus, cfg, runner)
	if err != nil {
		return err
	}

	rep := report{
		GeneratedAt:  time.Now().UTC(),
		GoVersion:    runtime.Version(),
		GOOS:         runtime.GOOS,
		GOARCH:       runtime.GOARCH,
		CPUs:         runtime.NumCPU(),
		Config:       configJSON(cfg),
		Corpus:       corpus,
		CorpusCounts: mapCorpusCounts(corpus),
		ParseBench:   parseBench,
		CheckBench:   checkBench,
		FixBench:     fixBench,
		Memory:       memBench,
		Warnings:     warnings,
	}

	printReport(rep)
	if cfg.jsonPath != "" {
		if err := writeJSON(cfg.jsonPath, rep); err != nil {
			return err
		}
		fmt.Printf("\nJSON report written to %s\n", cfg.jsonPath)
	}
	return nil
}

// buildCorpus sorts the repository fixtures into verified and broken sets by
// their expected diagnostics, and collects parser corpus files.
func buildCorpus(externalRoot string) (map[string][]corpusFile, []string, error) {
	corpus := map[string][]corpusFile{setVerified: {}, setBroken: {}, setCorpus: {}}
	var warnings []string

	root, err := testutil.RepoRoot()
	if err != nil {
		return nil, nil, err
	}
	canonical := filepath.Join(root, "testdata", "canonical.cs")
	if err := addFile(corpus, setVerified, "repo-canonical", canonical, nil); err != nil {
		return nil, nil, err
	}
	fixtures, err := testutil.LoadFixtures()
	if err != nil {
		return nil, nil, err
	}
	for _, fx := range fixtures {
		if len(fx.Input) == 0 {
			continue
		}
		set := setBroken
		if len(fx.WantDiag) == 0 {
			set = setVerified
		}
		if err := addFile(corpus, set, "repo-fixture", fx.Path, fx.Input); err != nil {
			return nil, nil, err
		}
	}
	corpusFiles, err := testutil.CorpusFiles()
	if err != nil {
		return nil, nil, err
	}
	for _, path := range corpusFiles {
		if err := addFile(corpus, setCorpus, "repo-corpus", path, nil); err != nil {
			return nil, nil, err
		}
	}

	if strings.TrimSpace(externalRoot) == "" {
		warnings = append(warnings, "external corpus not provided; corpus breadth is limited to repo fixtures")
		sortCorpus(corpus)
		return corpus, warnings, nil
	}
	absExternal, err := filepath.Abs(externalRoot)
	if err != nil {
		return nil, nil, err
	}
	var external []string
	err = filepath.WalkDir(absExternal, func(path string, d fs.DirEntry, walkErr error) error {
		if walkErr != nil {
			return walkErr
		}
		if d.IsDir() {
			if name := d.Name(); strings.HasPrefix(name, ".git") || name == "bin" || name == "obj" {
				return filepath.SkipDir
			}
			return nil
		}
		if filepath.Ext(path) == ".cs" {
			external = append(external, path)
		}
		return nil
	})
	if err != nil {
		return nil, nil, fmt.Errorf("walk external-root: %w", err)
	}
	sort.Strings(external)
	if len(external) > maxExternalFiles {
		warnings = append(warnings, fmt.Sprintf("external corpus truncated to %d of %d files", maxExternalFiles, len(external)))
		external = external[:maxExternalFiles]
	}
	for _, path := range external {
		if err := addFile(corpus, setCorpus, "external", path, nil); err != nil {
			return nil, nil, err
		}
	}
	sortCorpus(corpus)
	return corpus, warnings, nil
}

func addFile(corpus map[string][]corpusFile, set, source, path string, src []byte) error {
	if src == nil {
		var err error
		//nolint:gosec // Script intentionally reads repository and user-provided corpus paths.
		if src, err = os.ReadFile(path); err != nil {
			return fmt.Errorf("read %s: %w", path, err)
		}
	}
	corpus[set] = append(corpus[set], corpusFile{Path: path, Set: set, Source: source, Bytes: len(src), src: src})
	return nil
}

func sortCorpus(corpus map[string][]corpusFile) {
	for k := range corpus {
		sort.Slice(corpus[k], func(i, j int) bool { return corpus[k][i].Path < corpus[k][j].Path })
	}
}

func mapCorpusCounts(corpus map[string][]corpusFile) map[string]int {
	out := make(map[string]int, len(corpus))
	for k, files := range corpus {
		out[k] = len(files)
	}
	return out
}

// errSkip excludes a file from a benchmark set.
var errSkip = errors.New("skip")

func runBench(corpus map[string][]corpusFile, cfg config, op func(corpusFile) error) ([]benchSetReport, error) {
	out := make([]benchSetReport, 0, len(sets))
	for _, set := range sets {
		files := corpus[set]
		var samples []time.Duration
		skipped := 0
	files:
		for _, f := range files {
			for range cfg.warmup {
				if err := op(f); errors.Is(err, errSkip) {
					skipped++
					continue files
				} else if err != nil {
					return nil, fmt.Errorf("%s: %w", f.Path, err)
				}
			}
			for range cfg.iterations {
				start := time.Now()
				if err := op(f); errors.Is(err, errSkip) {
					skipped++
					continue files
				} else if err != nil {
					return nil, fmt.Errorf("%s: %w", f.Path, err)
				}
				samples = append(samples, time.Since(start))
			}
		}
		out = append(out, benchSetReport{
			Set:          set,
			Files:        len(files),
			Iterations:   cfg.iterations,
			Samples:      len(samples),
			SkippedFiles: skipped,
			Stats:        durationStats(samples),
		})
	}
	return out, nil
}

// runTreeBench times op with the parse tree prebuilt outside the measurement.
func runTreeBench(ctx context.Context, corpus map[string][]corpusFile, cfg config, op func(*syntax.Tree) error) ([]benchSetReport, error) {
	trees := make(map[string]*syntax.Tree)
	for _, set := range sets {
		for _, f := range corpus[set] {
			tree, err := syntax.Parse(ctx, f.src, syntax.ParseOptions{URI: f.Path, Backend: cfg.backend})
			if err != nil {
				return nil, fmt.Errorf("parse %s: %w", f.Path, err)
			}
			trees[f.Path] = tree
		}
	}
	return runBench(corpus, cfg, func(f corpusFile) error {
		return op(trees[f.Path])
	})
}

// runMemoryLoop repeatedly parses, checks and fixes the broken set and
// samples the heap to spot retained trees.
func runMemoryLoop(ctx context.Context, corpus map[string][]corpusFile, cfg config, runner *lint.Runner) (memoryReport, error) {
	docs := corpus[setBroken]
	if len(docs) == 0 {
		docs = corpus[setVerified]
	}
	if len(docs) == 0 {
		return memoryReport{}, errors.New("no suitable docs for memory loop")
	}
	rep := memoryReport{Iterations: cfg.memIters, SampleEvery: cfg.memSampleEvery, DocCount: len(docs)}
	sample := func(i int) {
		runtime.GC()
		if cfg.memFreeOS {
			debug.FreeOSMemory()
		}
		var ms runtime.MemStats
		runtime.ReadMemStats(&ms)
		rep.Samples = append(rep.Samples, memSample{
			Iteration: i,
			HeapAlloc: ms.HeapAlloc,
			HeapInuse: ms.HeapInuse,
			HeapSys:   ms.HeapSys,
			NumGC:     ms.NumGC,
		})
	}
	sample(0)
	for i := 1; i <= cfg.memIters; i++ {
		f := docs[i%len(docs)]
		tree, err := syntax.Parse(ctx, f.src, syntax.ParseOptions{URI: f.Path, Backend: cfg.backend})
		if err != nil {
			return memoryReport{}, fmt.Errorf("memory loop parse %s: %w", f.Path, err)
		}
		if _, err := runner.Run(ctx, tree); err != nil {
			return memoryReport{}, fmt.Errorf("memory loop check %s: %w", f.Path, err)
		}
		if _, err := fix.Converge(ctx, tree, runner, fix.ConvergeOptions{}); err != nil && !fix.IsErrUnsafeToFix(err) {
			return memoryReport{}, fmt.Errorf("memory loop fix %s: %w", f.Path, err)
		}
		if i%cfg.memSampleEvery == 0 {
			sample(i)
		}
	}
	if n := len(rep.Samples); n > 1 {
		rep.HeapAllocGrowth = int64Diff(rep.Samples[n-1].HeapAlloc, rep.Samples[0].HeapAlloc)
		rep.HeapInuseGrowth = int64Diff(rep.Samples[n-1].HeapInuse, rep.Samples[0].HeapInuse)
	}
	rep.UnboundedGrowthHint = isUnboundedGrowthHint(rep.Samples)
	return rep, nil
}

func isUnboundedGrowthHint(samples []memSample) bool {
	if len(samples) < 4 {
		return false
	}
	base := samples[0]
	last := samples[len(samples)-1]
	growthAlloc := int64Diff(last.HeapAlloc, base.HeapAlloc)
	growthInuse := int64Diff(last.HeapInuse, base.HeapInuse)
	const maxExpectedGrowth = 16 << 20 // 16 MiB heuristic after forced GC samples
	return growthAlloc > maxExpectedGrowth || growthInuse > maxExpectedGrowth
}

func durationStats(samples []time.Duration) sampleStats {
	if len(samples) == 0 {
		return sampleStats{}
	}
	ns := make([]int64, len(samples))
	var sum int64
	for i, d := range samples {
		ns[i] = d.Nanoseconds()
		sum += ns[i]
	}
	slices.Sort(ns)
	return sampleStats{
		Samples: len(samples),
		P50MS:   nanosToMS(quantile(ns, 0.50)),
		P95MS:   nanosToMS(quantile(ns, 0.95)),
		MinMS:   nanosToMS(ns[0]),
		MaxMS:   nanosToMS(ns[len(ns)-1]),
		MeanMS:  nanosToMS(sum / int64(len(ns))),
	}
}

func quantile(sorted []int64, q float64) int64 {
	if len(sorted) == 0 {
		return 0
	}
	if q <= 0 {
		return sorted[0]
	}
	if q >= 1 {
		return sorted[len(sorted)-1]
	}
	return sorted[int(float64(len(sorted)-1)*q)]
}

func nanosToMS(ns int64) float64 {
	return float64(ns) / float64(time.Millisecond)
}

func printReport(rep report) {
	fmt.Printf("metacheck Performance Report\n")
	fmt.Printf("Generated: %s\n", rep.GeneratedAt.Format(time.RFC3339))
	fmt.Printf("Go: %s | %s/%s | CPUs=%d | backend=%v\n", rep.GoVersion, rep.GOOS, rep.GOARCH, rep.CPUs, rep.Config["backend"])
	fmt.Println()
	fmt.Println("Corpus sets")
	for _, set := range sets {
		files := rep.Corpus[set]
		totalBytes := 0
		for _, f := range files {
			totalBytes += f.Bytes
		}
		fmt.Printf("- %-9s files=%3d total=%7d bytes\n", set, len(files), totalBytes)
	}
	if len(rep.Warnings) > 0 {
		fmt.Println()
		fmt.Println("Warnings")
		for _, w := range rep.Warnings {
			fmt.Printf("- %s\n", w)
		}
	}
	fmt.Println()
	printBenchTable("Parse (warm)", rep.ParseBench)
	fmt.Println()
	printBenchTable("Check (warm, parse tree prebuilt)", rep.CheckBench)
	fmt.Println()
	printBenchTable("Fix to convergence (warm, parse tree prebuilt)", rep.FixBench)
	fmt.Println()
	printMemoryReport(rep.Memory)
}

func printBenchTable(title string, rows []benchSetReport) {
	fmt.Println(title)
	fmt.Println("set        files samples  p50(ms)  p95(ms)  mean(ms)   min    max  skipped")
	for _, r := range rows {
		fmt.Printf("%-10s %5d %7d %8.2f %8.2f %8.2f %6.2f %6.2f %7d\n",
			r.Set, r.Files, r.Samples, r.Stats.P50MS, r.Stats.P95MS, r.Stats.MeanMS, r.Stats.MinMS, r.Stats.MaxMS, r.SkippedFiles)
	}
}

func printMemoryReport(rep memoryReport) {
	fmt.Println("Memory loop (parse/check/fix)")
	fmt.Printf("iterations=%d sample_every=%d docs=%d\n", rep.Iterations, rep.SampleEvery, rep.DocCount)
	if len(rep.Samples) == 0 {
		fmt.Println("no samples")
		return
	}
	last := rep.Samples[len(rep.Samples)-1]
	fmt.Printf("final heap_alloc=%d heap_inuse=%d heap_sys=%d num_gc=%d\n", last.HeapAlloc, last.HeapInuse, last.HeapSys, last.NumGC)
	fmt.Printf("growth heap_alloc=%d heap_inuse=%d unbounded_growth_hint=%v\n", rep.HeapAllocGrowth, rep.HeapInuseGrowth, rep.UnboundedGrowthHint)
}

func writeJSON(path string, rep report) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o750); err != nil {
		return err
	}
	b, err := json.MarshalIndent(rep, "", "  ")
	if err != nil {
		return err
	}
	b = append(b, '\n')
	return os.WriteFile(path, b, 0o600)
}

func configJSON(cfg config) map[string]any {
	return map[string]any{
		"external_root":       cfg.externalRoot,
		"backend":             cfg.backend,
		"iterations":          cfg.iterations,
		"warmup":              cfg.warmup,
		"json":                cfg.jsonPath,
		"memory_iterations":   cfg.memIters,
		"memory_sample_every": cfg.memSampleEvery,
		"memory_free_os":      cfg.memFreeOS,
	}
}

func int64Diff(a, b uint64) int64 {
	const maxInt64AsUint64 = (^uint64(0)) >> 1
	if a >= b {
		d := a - b
		if d > maxInt64AsUint64 {
			return int64(maxInt64AsUint64)
		}
		return int64(d)
	}
	d := b - a
	if d > maxInt64AsUint64 {
		return -int64(maxInt64AsUint64)
	}
	return -int64(d)
}
