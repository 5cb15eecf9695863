// Package vault resolves Obsidian link targets to files in the vault.
package vault

import (
	"fmt"
	"path"
	"sort"
	"strings"
	"sync"

	"github.com/starford/hexokit/internal/apperr"
	"github.com/starford/hexokit/internal/models"
	"github.com/starford/hexokit/internal/parser"
	"github.com/starford/hexokit/internal/storage"
)

// Resolver looks files up the way Obsidian resolves link paths:
// exact vault path, then relative to the linking note, then by name
// anywhere in the vault.
type Resolver struct {
	store storage.Provider

	mu     sync.RWMutex
	byName map[string][]string // lower-cased base name -> paths
	paths  map[string]struct{}
	loaded bool
}

// New creates a Resolver over store. The file index is built lazily.
func New(store storage.Provider) *Resolver {
	return &Resolver{store: store}
}

// Refresh rebuilds the file index from disk.
func (r *Resolver) Refresh() error {
	files, err := r.store.Files("")
	if err != nil {
		return fmt.Errorf("vault: refresh: %w", err)
	}
	byName := make(map[string][]string, len(files))
	paths := make(map[string]struct{}, len(files))
	for _, p := range files {
		paths[p] = struct{}{}
		name := strings.ToLower(path.Base(p))
		byName[name] = append(byName[name], p)
	}
	r.mu.Lock()
	r.byName, r.paths, r.loaded = byName, paths, true
	r.mu.Unlock()
	return nil
}

func (r *Resolver) ensureLoaded() {
	r.mu.RLock()
	loaded := r.loaded
	r.mu.RUnlock()
	if !loaded {
		_ = r.Refresh()
	}
}

// Lookup returns the file at the exact vault path p.
func (r *Resolver) Lookup(p string) (*models.File, error) {
	p = cleanPath(p)
	if !r.has(p) {
		if err := r.Refresh(); err != nil {
			return nil, err
		}
		if !r.has(p) {
			return nil, fmt.Errorf("vault: %s: %w", p, apperr.ErrNotFound)
		}
	}
	return models.NewFile(p, r.store.Root()), nil
}

func (r *Resolver) has(p string) bool {
	r.ensureLoaded()
	r.mu.RLock()
	defer r.mu.RUnlock()
	_, ok := r.paths[p]
	return ok
}

func cleanPath(p string) string {
	return strings.TrimPrefix(path.Clean(strings.ReplaceAll(p, "\\", "/")), "/")
}

// Resolve finds the file a link target in sourcePath points at.
// target must already be percent-decoded and stripped of any "#subpath".
func (r *Resolver) Resolve(target, sourcePath string) (*models.File, bool) {
	target = strings.TrimSpace(strings.ReplaceAll(target, "\\", "/"))
	if target == "" {
		return nil, false
	}
	r.ensureLoaded()

	candidates := []string{target, target + ".md"}
	dir := path.Dir(sourcePath)
	if dir != "." && !strings.HasPrefix(target, "/") {
		rel := path.Join(dir, target)
		candidates = append(candidates, rel, rel+".md")
	}

	r.mu.RLock()
	defer r.mu.RUnlock()
	for _, c := range candidates {
		c = cleanPath(c)
		if _, ok := r.paths[c]; ok {
			return models.NewFile(c, r.store.Root()), true
		}
	}

	if p, ok := r.byBaseName(target, dir); ok {
		return models.NewFile(p, r.store.Root()), true
	}
	return nil, false
}

// byBaseName matches target against file names anywhere in the vault.
// A target with folders must match the tail of the path. Ties prefer the
// linking note's folder, then the shortest path.
func (r *Resolver) byBaseName(target, sourceDir string) (string, bool) {
	var matches []string
	for _, name := range []string{target, target + ".md"} {
		for _, p := range r.byName[strings.ToLower(path.Base(name))] {
			if strings.Contains(name, "/") && !hasPathSuffix(p, name) {
				continue
			}
			matches = append(matches, p)
		}
		if len(matches) > 0 {
			break
		}
	}
	if len(matches) == 0 {
		return "", false
	}
	sort.Slice(matches, func(i, j int) bool {
		a, b := matches[i], matches[j]
		if ai, bi := path.Dir(a) == sourceDir, path.Dir(b) == sourceDir; ai != bi {
			return ai
		}
		if len(a) != len(b) {
			return len(a) < len(b)
		}
		return a < b
	})
	return matches[0], true
}

func hasPathSuffix(p, suffix string) bool {
	p, suffix = strings.ToLower(p), strings.ToLower(strings.TrimPrefix(suffix, "/"))
	return p == suffix || strings.HasSuffix(p, "/"+suffix)
}

// ReadFrontMatter returns the note's front-matter properties.
// Non-markdown files have none.
func (r *Resolver) ReadFrontMatter(f *models.File) (map[string]string, error) {
	if f.Extension != "md" {
		return map[string]string{}, nil
	}
	data, err := r.store.Read(f.Path)
	if err != nil {
		return nil, err
	}
	return parser.Properties(data)
}

// ReadContent returns the text of a note.
func (r *Resolver) ReadContent(f *models.File) (string, error) {
	data, err := r.store.Read(f.Path)
	if err != nil {
		return "", err
	}
	return string(data), nil
}

// ReadBinary returns the raw bytes of an attachment.
func (r *Resolver) ReadBinary(f *models.File) ([]byte, error) {
	return r.store.Read(f.Path)
}

// Read returns the bytes at a vault path.
func (r *Resolver) Read(p string) ([]byte, error) {
	return r.store.Read(p)
}
