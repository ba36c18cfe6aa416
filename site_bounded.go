package stitch

import (
	"context"
	"errors"
	"fmt"
	"html/template"
	"io/fs"

	"github.com/dgraph-io/ristretto"
)

// ErrInvalidCacheSize is returned when a BoundedCachedSite is asked to hold
// fewer than one template.
var ErrInvalidCacheSize = errors.New("template cache must hold at least one template")

var _ Site = &BoundedCachedSite{}
var _ TemplateCacher = &BoundedCachedSite{}

// BoundedCachedSite is like CachedSite, but holds at most a fixed number of
// parsed templates, evicting the least valuable ones when it's full. It must
// be instantiated through NewBoundedCachedSite and closed with Close when
// it's no longer needed.
type BoundedCachedSite struct {
	cache       *ristretto.Cache
	templateDir fs.FS
}

// NewBoundedCachedSite returns a BoundedCachedSite that will cache up to
// maxTemplates parsed templates read from the templates fs.FS.
func NewBoundedCachedSite(templates fs.FS, maxTemplates int64) (*BoundedCachedSite, error) {
	if maxTemplates < 1 {
		return nil, fmt.Errorf("error creating template cache for %d templates: %w", maxTemplates, ErrInvalidCacheSize)
	}
	cache, err := ristretto.NewCache(&ristretto.Config{
		// ristretto recommends tracking ten times the number of
		// items the cache holds when full
		NumCounters: maxTemplates * 10,
		MaxCost:     maxTemplates,
		BufferItems: 64,
	})
	if err != nil {
		return nil, fmt.Errorf("error creating template cache: %w", err)
	}
	return &BoundedCachedSite{
		cache:       cache,
		templateDir: templates,
	}, nil
}

// GetCachedTemplate returns the cached template associated with the passed
// key, if one exists. If no template is cached for that key, it returns nil.
//
// It can safely be used by multiple goroutines.
func (s *BoundedCachedSite) GetCachedTemplate(ctx context.Context, key string) *template.Template {
	val, ok := s.cache.Get(key)
	if !ok {
		return nil
	}
	tmpl, ok := val.(*template.Template)
	if !ok {
		logger(ctx).WarnContext(ctx, "unexpected value in template cache", "key", key, "type", fmt.Sprintf("%T", val))
		s.cache.Del(key)
		return nil
	}
	return tmpl
}

// SetCachedTemplate caches a template for the given key. The template may be
// rejected or evicted later if the cache is full.
//
// It can safely be used by multiple goroutines.
func (s *BoundedCachedSite) SetCachedTemplate(ctx context.Context, key string, tmpl *template.Template) {
	if !s.cache.Set(key, tmpl, 1) {
		logger(ctx).DebugContext(ctx, "template cache dropped template", "key", key)
		return
	}
	// sets are buffered; wait so the next lookup sees this template
	s.cache.Wait()
}

// TemplateDir returns the fs.FS passed to NewBoundedCachedSite.
func (s *BoundedCachedSite) TemplateDir(_ context.Context) fs.FS {
	return s.templateDir
}

// Close stops the cache's background goroutines. The BoundedCachedSite must
// not be used after it's closed.
func (s *BoundedCachedSite) Close() {
	s.cache.Close()
}
