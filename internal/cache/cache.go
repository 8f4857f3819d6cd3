// Package cache stores check results on disk keyed by source content and
// the settings that influence them.
package cache

import (
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sync"

	"fortio.org/safecast"
	"github.com/vmihailenco/msgpack/v5"

	"github.com/kpumuk/metacheck/internal/lint"
	"github.com/kpumuk/metacheck/internal/rules"
	"github.com/kpumuk/metacheck/internal/syntax"
	"github.com/kpumuk/metacheck/internal/text"
)

// schemaVersion is bumped whenever Entry or the verification rules change
// in a way that invalidates stored results.
const schemaVersion uint16 = 1

// AppName names the default cache directory under the user cache root.
const AppName = "metacheck"

// Key identifies a cached result.
type Key [sha256.Size]byte

// String returns the hex form of k.
func (k Key) String() string {
	return hex.EncodeToString(k[:])
}

// NewKey hashes the source together with a salt describing every setting
// that changes the diagnostics (backend, rule options).
func NewKey(src []byte, salt string) Key {
	h := sha256.New()
	_, _ = fmt.Fprintf(h, "metacheck/%d\x00%s\x00", schemaVersion, salt)
	_, _ = h.Write(src)
	var k Key
	h.Sum(k[:0])
	return k
}

// Entry is the stored result of checking one source.
type Entry struct {
	Schema      uint16
	Diagnostics []Record
}

// Record is a diagnostic without its verification details. Cached records
// are enough to report, not to fix.
type Record struct {
	Rule     uint8
	Code     string
	Message  string
	Severity uint8
	Start    uint32
	End      uint32
	Related  []RelatedRecord
}

// RelatedRecord is a stored related span.
type RelatedRecord struct {
	Message string
	Start   uint32
	End     uint32
}

// Cache is a directory of msgpack encoded entries. It is safe for concurrent
// use; a nil *Cache caches nothing.
type Cache struct {
	mu  sync.RWMutex
	dir string
}

// DefaultDir returns the cache directory under XDG_CACHE_HOME or ~/.cache.
func DefaultDir() (string, error) {
	base := os.Getenv("XDG_CACHE_HOME")
	if base == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", err
		}
		base = filepath.Join(home, ".cache")
	}
	return filepath.Join(base, AppName), nil
}

// Open creates dir if needed and returns a cache stored in it. An empty dir
// selects DefaultDir.
func Open(dir string) (*Cache, error) {
	if dir == "" {
		var err error
		if dir, err = DefaultDir(); err != nil {
			return nil, fmt.Errorf("resolve cache directory: %w", err)
		}
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create cache directory: %w", err)
	}
	return &Cache{dir: dir}, nil
}

// Dir returns the cache directory.
func (c *Cache) Dir() string {
	if c == nil {
		return ""
	}
	return c.dir
}

func (c *Cache) pathFor(k Key) string {
	s := k.String()
	return filepath.Join(c.dir, "results", s[:2], s+".mp")
}

// Get loads the entry for k. Entries written by another schema version are
// reported as misses.
func (c *Cache) Get(k Key) (*Entry, bool, error) {
	if c == nil {
		return nil, false, nil
	}
	c.mu.RLock()
	defer c.mu.RUnlock()

	f, err := os.Open(c.pathFor(k))
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, false, nil
		}
		return nil, false, err
	}
	defer f.Close()

	var e Entry
	if err := msgpack.NewDecoder(f).Decode(&e); err != nil {
		if errors.Is(err, io.EOF) || errors.Is(err, io.ErrUnexpectedEOF) {
			return nil, false, nil
		}
		return nil, false, fmt.Errorf("decode cache entry %s: %w", k, err)
	}
	if e.Schema != schemaVersion {
		return nil, false, nil
	}
	return &e, true, nil
}

// Put stores e under k. The file is replaced atomically so readers never
// observe a partial entry.
func (c *Cache) Put(k Key, e *Entry) (err error) {
	if c == nil || e == nil {
		return nil
	}
	c.mu.Lock()
	defer c.mu.Unlock()

	p := c.pathFor(k)
	if err := os.MkdirAll(filepath.Dir(p), 0o755); err != nil {
		return err
	}
	f, err := os.CreateTemp(filepath.Dir(p), "tmp-*")
	if err != nil {
		return err
	}
	defer func() {
		if err != nil {
			_ = f.Close()
			_ = os.Remove(f.Name())
		}
	}()

	stored := *e
	stored.Schema = schemaVersion
	if err = msgpack.NewEncoder(f).Encode(&stored); err != nil {
		return fmt.Errorf("encode cache entry %s: %w", k, err)
	}
	if err = f.Close(); err != nil {
		return err
	}
	return os.Rename(f.Name(), p)
}

// Clear removes every stored entry.
func (c *Cache) Clear() error {
	if c == nil {
		return nil
	}
	c.mu.Lock()
	defer c.mu.Unlock()

	return os.RemoveAll(filepath.Join(c.dir, "results"))
}

// FromDiagnostics converts diagnostics into storable records.
func FromDiagnostics(diags []lint.Diagnostic) (*Entry, error) {
	e := &Entry{Schema: schemaVersion, Diagnostics: make([]Record, 0, len(diags))}
	for _, d := range diags {
		start, end, err := offsets(d.Span)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", d.Name(), err)
		}
		r := Record{
			Rule:     uint8(d.Rule),
			Code:     d.Code,
			Message:  d.Message,
			Severity: uint8(d.Severity),
			Start:    start,
			End:      end,
		}
		for _, rel := range d.Related {
			rs, re, err := offsets(rel.Span)
			if err != nil {
				return nil, fmt.Errorf("%s related: %w", d.Name(), err)
			}
			r.Related = append(r.Related, RelatedRecord{Message: rel.Message, Start: rs, End: re})
		}
		e.Diagnostics = append(e.Diagnostics, r)
	}
	return e, nil
}

// Restore converts stored records back into diagnostics. Records of unknown
// rules are skipped.
func (e *Entry) Restore() []lint.Diagnostic {
	out := make([]lint.Diagnostic, 0, len(e.Diagnostics))
	for _, r := range e.Diagnostics {
		id := rules.ID(r.Rule)
		if !id.Valid() {
			continue
		}
		d := lint.Diagnostic{
			Rule:     id,
			Code:     r.Code,
			Message:  r.Message,
			Severity: rules.Severity(r.Severity),
			Span:     span(r.Start, r.End),
		}
		for _, rel := range r.Related {
			d.Related = append(d.Related, syntax.RelatedDiagnostic{Message: rel.Message, Span: span(rel.Start, rel.End)})
		}
		out = append(out, d)
	}
	return out
}

func offsets(sp text.Span) (uint32, uint32, error) {
	start, err := safecast.Conv[uint32](int(sp.Start))
	if err != nil {
		return 0, 0, fmt.Errorf("span start: %w", err)
	}
	end, err := safecast.Conv[uint32](int(sp.End))
	if err != nil {
		return 0, 0, fmt.Errorf("span end: %w", err)
	}
	return start, end, nil
}

func span(start, end uint32) text.Span {
	return text.Span{Start: text.ByteOffset(start), End: text.ByteOffset(end)}
}
