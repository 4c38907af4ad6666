// Package engine is the process-wide coordinator spec.md §5 calls for: one
// mutex-guarded hashtab, one loaded patch set, and the background hashtab
// exporter. cmd/libqmldiff and the CLI's apply-diffs reach the patch engine
// through this package; create-hashtab and hash-diffs use hashtab, qml and
// diffscript directly.
package engine

import (
	"sync"

	"go.uber.org/zap"

	"github.com/qmldiff/qmldiff/diffscript"
	"github.com/qmldiff/qmldiff/hashtab"
	"github.com/qmldiff/qmldiff/patch"
)

// Context holds everything a ProcessFile/BuildChangeFiles/IsModified call
// needs: the hashtab, the currently loaded AFFECT blocks keyed by the file
// name they target, the global slot table, the template table, and the
// hash-generation rule set loaded by LoadRules. Every field is guarded
// by mu; callers never see a half-loaded patch set.
type Context struct {
	mu sync.RWMutex

	hashtab     *hashtab.Table
	hashVersion string
	rules       *hashtab.HashRules

	affects   map[string][]*diffscript.AffectBlock
	slots     *patch.SlotTable
	templates map[string]*diffscript.TemplateDefinition

	exporter *exporter
	logger   *zap.Logger
}

// Option configures a Context at construction time. There is no config
// file format in this tool (spec.md has none either); options are plain
// functional options the way a library with no config layer wires its
// few knobs.
type Option func(*Context)

// WithLogger attaches a *zap.Logger. Library callers that never configure
// one get a zap.NewNop() logger so log calls are always safe to make.
func WithLogger(l *zap.Logger) Option {
	return func(c *Context) { c.logger = l }
}

// WithHashtabVersion sets the version string checked against a hashtab
// file's internal `!*HashTab-Version` record (original_source/hashtab.rs).
func WithHashtabVersion(v string) Option {
	return func(c *Context) { c.hashVersion = v }
}

// New constructs an empty Context: no hashtab loaded, no patches loaded.
func New(opts ...Option) *Context {
	c := &Context{
		hashtab:   hashtab.New(),
		affects:   map[string][]*diffscript.AffectBlock{},
		slots:     patch.NewSlotTable(),
		templates: map[string]*diffscript.TemplateDefinition{},
		logger:    zap.NewNop(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// LoadHashtab merges path into the Context's hashtab, applying the
// version-gate soft-skip behavior of hashtab.Merge.
func (c *Context) LoadHashtab(path string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if err := c.hashtab.Merge(path, c.hashVersion); err != nil {
		if _, ok := err.(*hashtab.MissingError); ok {
			return err
		}
		c.logger.Warn("hashtab merge failed", zap.String("path", path), zap.Error(err))
		return err
	}
	c.logger.Info("hashtab loaded", zap.String("path", path), zap.Int("entries", c.hashtab.Len()))
	return nil
}

// SaveHashtab writes the Context's hashtab to path; the background exporter
// calls it on every tick.
func (c *Context) SaveHashtab(path string) error {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.hashtab.Save(path, c.hashVersion)
}

// Hashtab exposes the underlying table for callers that need direct
// Lookup/Insert access rather than a load/process round trip.
func (c *Context) Hashtab() *hashtab.Table {
	return c.hashtab
}

// LoadRules replaces the global hash-generation rule set from an in-memory
// hashrules source string, the contract behind the C ABI's load_rules and
// spec.md §6.
func (c *Context) LoadRules(source string) error {
	rules, err := hashtab.CompileHashRules(source)
	if err != nil {
		return err
	}
	c.mu.Lock()
	c.rules = rules
	c.mu.Unlock()
	return nil
}

// UnusedSlots returns the names of every global slot defined across the
// loaded patch set but never expanded by a SlotReference, surfaced by the
// CLI as a post-run warning (spec.md §3 feature supplement, SlotTable.Unused).
func (c *Context) UnusedSlots() []string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.slots.Unused()
}

// ApplyRules runs the currently loaded rule set against the Context's
// hashtab, a no-op if no rules have been loaded.
func (c *Context) ApplyRules() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.rules == nil {
		return
	}
	c.rules.Apply(c.hashtab)
}
