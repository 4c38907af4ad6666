package engine

import (
	"io/fs"
	"os"
	"path/filepath"

	"github.com/pkg/errors"
	"go.uber.org/zap"

	"github.com/qmldiff/qmldiff/diffscript"
	"github.com/qmldiff/qmldiff/patch"
	"github.com/qmldiff/qmldiff/qml"
)

// BuildChangeFiles walks root (a single file or a directory, mirroring
// original_source's build_change_structures) and parses every regular file
// it finds as a diffscript program, merging its Slots/Templates/Affects
// into the Context. It returns the number of AFFECT blocks loaded, the
// count the C ABI's build_change_files contract reports.
func (c *Context) BuildChangeFiles(root string) (int, error) {
	info, err := os.Stat(root)
	if err != nil {
		return 0, errors.Wrapf(err, "engine: stat %s", root)
	}

	var files []string
	if info.IsDir() {
		err = filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
			if err != nil {
				return err
			}
			if !d.IsDir() {
				files = append(files, path)
			}
			return nil
		})
		if err != nil {
			return 0, errors.Wrapf(err, "engine: walk %s", root)
		}
	} else {
		files = []string{root}
	}

	loaded := 0
	for _, path := range files {
		n, err := c.loadDiffFile(path)
		if err != nil {
			c.logger.Warn("skipping diff file", zap.String("path", path), zap.Error(err))
			continue
		}
		loaded += n
	}
	return loaded, nil
}

func (c *Context) loadDiffFile(path string) (int, error) {
	text, err := os.ReadFile(path)
	if err != nil {
		return 0, errors.Wrapf(err, "engine: read %s", path)
	}

	dir := filepath.Dir(path)
	loader := func(ref string) (string, error) {
		b, err := os.ReadFile(filepath.Join(dir, ref))
		if err != nil {
			return "", errors.Wrapf(err, "engine: LOAD %s", ref)
		}
		return string(b), nil
	}

	prog, err := diffscript.Parse(path, string(text), loader)
	if err != nil {
		return 0, err
	}

	c.mu.Lock()
	for name := range prog.Slots {
		c.slots.Get(name)
	}
	for name, tmpl := range prog.Templates {
		c.templates[name] = tmpl
	}
	n := 0
	for _, ab := range prog.Affects {
		key := c.affectKey(ab.File)
		c.affects[key] = append(c.affects[key], ab)
		n++
	}
	c.mu.Unlock()

	c.logger.Debug("diff file loaded", zap.String("path", path), zap.Int("affects", len(prog.Affects)))
	return n, nil
}

// affectKey resolves a FileRef to the file-name string its AFFECT blocks
// are keyed by, going through the hashtab for a hashed reference.
func (c *Context) affectKey(ref diffscript.FileRef) string {
	if !ref.Hashed {
		return ref.Literal
	}
	if text, ok := c.hashtab.Lookup(ref.Hash); ok {
		return text
	}
	return ""
}

// IsModified reports whether any loaded diff has an AFFECT block targeting
// name, the C ABI's is_modified contract.
func (c *Context) IsModified(name string) bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	_, ok := c.affects[name]
	return ok
}

// ProcessFile applies every loaded AFFECT block targeting name against
// src, returning the rewritten source and whether anything changed.
// Per spec.md §7 the applier is transactional at AFFECT granularity: each
// block runs against a scratch clone of the file, and only a successful
// block's result becomes the file other blocks (and the final output) see.
// A failing block is logged and skipped; the rest of the program continues.
func (c *Context) ProcessFile(name string, src []byte) ([]byte, bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	blocks := append([]*diffscript.AffectBlock(nil), c.affects[name]...)
	if len(blocks) == 0 {
		return src, false, nil
	}

	file, err := qml.Parse(name, string(src))
	if err != nil {
		return nil, false, err
	}

	modified := false
	for _, ab := range blocks {
		scratch := patch.CloneFile(file)
		applier := patch.NewApplier(c.hashtab, c.slots, c.templates)
		if err := applier.ApplyFile(scratch, name, ab.Statements); err != nil {
			c.logger.Warn("AFFECT block failed, file left unmodified by this block",
				zap.String("file", name), zap.Error(err))
			continue
		}
		file = scratch
		modified = true
	}
	if !modified {
		return src, false, nil
	}

	em := qml.NewEmitter(c.hashtab, c.slots)
	result := em.Emit(file)
	for _, u := range result.UnresolvedHashes {
		c.logger.Warn("unresolved hash reference", zap.String("file", name), zap.Uint64("hash", u.Hash))
	}
	return []byte(result.Output), true, nil
}
