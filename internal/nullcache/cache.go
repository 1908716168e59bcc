// Package nullcache persists expensive null distributions under a
// content-addressed manifest. A hit requires exact key, file presence, hash
// and length agreement; anything less is a miss and a recompute, never a
// partial reuse.
package nullcache

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"edgecheck/domain/core"

	"github.com/rs/zerolog"
)

// DisableEnvVar is the environment switch that turns the cache off. It is
// consulted in exactly one place (Enabled); everything else asks the cache.
const DisableEnvVar = "EDGECHECK_CACHE_DISABLE"

const manifestName = "manifest.json"

// Key identifies one cached null distribution. Every field is semantic run
// identity; timestamps and absolute paths are deliberately absent. Bumping
// AlgoVersion is the sanctioned way to invalidate everything at once.
type Key struct {
	AlgoVersion  string         `json:"algo_version"`
	FamilyID     core.FamilyID  `json:"family_id"`
	DatasetID    core.DatasetID `json:"dataset_id"`
	CodeRevision string         `json:"code_revision"`
	Metric       string         `json:"metric"`
	Horizon      string         `json:"horizon"`
	NSim         int            `json:"n_sim"`
	Seed         uint64         `json:"seed"`
	Method       string         `json:"method"`
	BlockParam   float64        `json:"block_param"`
}

// Hash renders the key canonically and hashes it.
func (k Key) Hash() core.CacheKeyHash {
	canonical := core.CanonicalKeyString(map[string]string{
		"algo_version":  k.AlgoVersion,
		"family_id":     k.FamilyID.String(),
		"dataset_id":    k.DatasetID.String(),
		"code_revision": k.CodeRevision,
		"metric":        k.Metric,
		"horizon":       k.Horizon,
		"n_sim":         fmt.Sprintf("%d", k.NSim),
		"seed":          fmt.Sprintf("%d", k.Seed),
		"method":        k.Method,
		"block_param":   fmt.Sprintf("%g", k.BlockParam),
	})
	return core.NewCacheKeyHash([]byte(canonical))
}

// Entry is one manifest record: a relative array-file path plus the sha256
// of its bytes.
type Entry struct {
	Path      string         `json:"path"`
	SHA256    core.Hash      `json:"sha256"`
	NSim      int            `json:"n_sim"`
	CreatedAt core.Timestamp `json:"created_at"`
}

type manifest struct {
	Entries map[string]Entry `json:"entries"`
}

// Cache is a directory-backed null distribution store. The manifest is the
// single source of truth; array files are content-named and immutable once
// written, so concurrent writers only contend on the atomic manifest swap.
type Cache struct {
	dir      string
	disabled bool
	log      zerolog.Logger
}

// Option overrides cache construction defaults.
type Option func(*Cache)

// WithDisabled forces the cache off regardless of the environment.
func WithDisabled(disabled bool) Option {
	return func(c *Cache) { c.disabled = disabled }
}

// New opens (creating if needed) a cache rooted at dir.
func New(dir string, log zerolog.Logger, opts ...Option) (*Cache, error) {
	c := &Cache{
		dir:      dir,
		disabled: os.Getenv(DisableEnvVar) != "",
		log:      log,
	}
	for _, opt := range opts {
		opt(c)
	}
	if c.disabled {
		return c, nil
	}
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("create cache dir: %w", err)
	}
	return c, nil
}

// Enabled is the single authoritative answer to "is the cache on".
func (c *Cache) Enabled() bool { return !c.disabled }

// Get returns the cached null-max array for key, or ok=false on any miss.
// Every mismatch variety (absent key, missing file, hash drift, wrong
// length) is a miss: the caller recomputes and overwrites.
func (c *Cache) Get(key Key) ([]float64, bool) {
	if c.disabled {
		return nil, false
	}

	m, err := c.loadManifest()
	if err != nil {
		c.log.Warn().Err(err).Msg("cache manifest unreadable, treating as miss")
		return nil, false
	}

	hash := key.Hash().String()
	entry, ok := m.Entries[hash]
	if !ok {
		return nil, false
	}
	if entry.NSim != key.NSim {
		c.log.Warn().Str("key", hash[:16]).Msg("cache length mismatch, treating as miss")
		return nil, false
	}

	data, err := os.ReadFile(filepath.Join(c.dir, entry.Path))
	if err != nil {
		c.log.Warn().Str("key", hash[:16]).Err(err).Msg("cache file unreadable, treating as miss")
		return nil, false
	}
	if !core.NewHash(data).Equals(entry.SHA256) {
		c.log.Warn().Str("key", hash[:16]).Msg("cache content hash mismatch, treating as miss")
		return nil, false
	}

	var values []float64
	if err := json.Unmarshal(data, &values); err != nil {
		c.log.Warn().Str("key", hash[:16]).Err(err).Msg("cache file corrupt, treating as miss")
		return nil, false
	}
	if len(values) != key.NSim {
		c.log.Warn().Str("key", hash[:16]).Int("len", len(values)).Int("want", key.NSim).
			Msg("cache array length mismatch, treating as miss")
		return nil, false
	}

	c.log.Debug().Str("key", hash[:16]).Msg("null distribution cache hit")
	return values, true
}

// Put stores a null-max array under key. Both the array file and the
// manifest are written temp-then-rename, so a crash mid-write never leaves a
// corrupt manifest behind.
func (c *Cache) Put(key Key, values []float64) error {
	if c.disabled {
		return nil
	}
	if len(values) != key.NSim {
		return core.NewMisconfiguredError("nullcache",
			fmt.Sprintf("array length %d does not match key n_sim %d", len(values), key.NSim))
	}

	data, err := json.Marshal(values)
	if err != nil {
		return fmt.Errorf("encode null distribution: %w", err)
	}

	hash := key.Hash()
	relPath := fmt.Sprintf("null_%s.json", hash.Short())
	if err := atomicWrite(filepath.Join(c.dir, relPath), data); err != nil {
		return fmt.Errorf("write null distribution: %w", err)
	}

	m, err := c.loadManifest()
	if err != nil {
		// A corrupt manifest self-heals: start fresh, array files named by
		// content survive.
		c.log.Warn().Err(err).Msg("cache manifest corrupt, rebuilding")
		m = &manifest{Entries: map[string]Entry{}}
	}
	m.Entries[hash.String()] = Entry{
		Path:      relPath,
		SHA256:    core.NewHash(data),
		NSim:      key.NSim,
		CreatedAt: core.Now(),
	}
	return c.saveManifest(m)
}

// Invalidate drops every entry whose key was written under a different
// algorithm version. Array files of dropped entries are removed best-effort.
func (c *Cache) Invalidate(keepAlgoVersion string, keys []Key) error {
	if c.disabled {
		return nil
	}
	m, err := c.loadManifest()
	if err != nil {
		return err
	}
	for _, k := range keys {
		if k.AlgoVersion == keepAlgoVersion {
			continue
		}
		hash := k.Hash().String()
		if entry, ok := m.Entries[hash]; ok {
			delete(m.Entries, hash)
			_ = os.Remove(filepath.Join(c.dir, entry.Path))
		}
	}
	return c.saveManifest(m)
}

func (c *Cache) loadManifest() (*manifest, error) {
	data, err := os.ReadFile(filepath.Join(c.dir, manifestName))
	if os.IsNotExist(err) {
		return &manifest{Entries: map[string]Entry{}}, nil
	}
	if err != nil {
		return nil, err
	}
	var m manifest
	if err := json.Unmarshal(data, &m); err != nil {
		return nil, fmt.Errorf("parse manifest: %w", err)
	}
	if m.Entries == nil {
		m.Entries = map[string]Entry{}
	}
	return &m, nil
}

func (c *Cache) saveManifest(m *manifest) error {
	data, err := json.MarshalIndent(m, "", "  ")
	if err != nil {
		return err
	}
	return atomicWrite(filepath.Join(c.dir, manifestName), data)
}

// atomicWrite writes temp-then-rename within the target directory.
func atomicWrite(path string, data []byte) error {
	dir := filepath.Dir(path)
	tmp, err := os.CreateTemp(dir, ".tmp-*")
	if err != nil {
		return err
	}
	tmpName := tmp.Name()
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return err
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return err
	}
	return os.Rename(tmpName, path)
}
