package style

import (
	"os"
	"path/filepath"
	"strings"
	"sync"
)

// Directory resolves a catalog per timeline from <dir>/<timeline>.yaml (or
// .yml). Timelines without a file of their own get the fallback catalog.
// Each file is loaded at most once; Directory is safe for concurrent use.
type Directory struct {
	dir      string
	fallback *Catalog
	loader   *Loader

	mu       sync.Mutex
	catalogs map[string]*Catalog
}

// NewDirectory creates a resolver over dir. An empty dir always resolves to
// fallback, and a nil fallback means DefaultCatalog.
func NewDirectory(dir string, fallback *Catalog, loader *Loader) *Directory {
	if fallback == nil {
		fallback = DefaultCatalog()
	}
	return &Directory{
		dir:      dir,
		fallback: fallback,
		loader:   loader,
		catalogs: make(map[string]*Catalog),
	}
}

// Catalog returns the catalog for a timeline.
func (d *Directory) Catalog(timeline string) (*Catalog, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	if c, ok := d.catalogs[timeline]; ok {
		return c, nil
	}

	c := d.fallback
	if path := d.File(timeline); path != "" {
		loaded, err := d.loader.LoadFile(path)
		if err != nil {
			return nil, err
		}
		d.loader.logger.Debug().Str("timeline", timeline).Str("file", path).Msg("Using timeline styles")
		c = loaded
	}
	d.catalogs[timeline] = c
	return c, nil
}

// File returns the style file for a timeline, or "" when it uses the
// fallback catalog.
func (d *Directory) File(timeline string) string {
	if d.dir == "" || timeline == "" || strings.ContainsAny(timeline, `/\`) {
		return ""
	}
	for _, ext := range []string{".yaml", ".yml"} {
		path := filepath.Join(d.dir, timeline+ext)
		if info, err := os.Stat(path); err == nil && !info.IsDir() {
			return path
		}
	}
	return ""
}
