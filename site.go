package stitch

import (
	"context"
	"html/template"
	"io/fs"
	"sync"
)

// Site is an interface for a Site that keeps its templates in an fs.FS, so
// FSTemplates can find them.
//
// The Renderer itself accepts any value as the site handle; a Site is only
// needed when the templates are resolved from files.
type Site interface {
	// TemplateDir returns an fs.FS containing all the templates needed to
	// render every Module on the Site.
	TemplateDir(ctx context.Context) fs.FS
}

// TemplateCacher is an optional interface for Sites. Those fulfilling it can
// cache their template parsing, keyed by the template file and the snippets
// parsed with it, to save on the overhead of parsing the template each time
// a Module is rendered. The data passed to the template is different every
// time, so the output HTML cannot be safely presumed to be cacheable.
type TemplateCacher interface {
	// GetCachedTemplate returns the *template.Template specified by the
	// passed key. It should return nil if the template hasn't been cached
	// yet.
	GetCachedTemplate(ctx context.Context, key string) *template.Template

	// SetCachedTemplate stores the passed *template.Template under the
	// passed key, for later retrieval with GetCachedTemplate.
	//
	// Any errors encountered should be logged, but as this is a
	// best-effort operation, will not be surfaced outside the function.
	SetCachedTemplate(ctx context.Context, key string, tmpl *template.Template)
}

// FuncMapExtender is an interface that Sites can fulfill to add to the map
// of functions available to templates parsed by FSTemplates.
type FuncMapExtender interface {
	// FuncMap returns an html/template.FuncMap containing all the
	// functions that the Site is adding to the FuncMap.
	FuncMap(context.Context) template.FuncMap
}

var _ Site = &CachedSite{}
var _ TemplateCacher = &CachedSite{}

// CachedSite is an implementation of the Site interface that can be embedded
// in other Site implementations. It fulfills the Site interface and the
// TemplateCacher interface, caching templates in memory and exposing the
// template fs.FS passed to it in NewCachedSite. A CachedSite must be
// instantiated through NewCachedSite, its empty value is not usable.
//
// The cache is unbounded; every template that gets parsed stays in memory.
// Sites with a large or changing number of templates should consider
// BoundedCachedSite instead.
type CachedSite struct {
	templateCache   map[string]*template.Template
	templateCacheMu sync.RWMutex

	// templateDir is where FSTemplates will look for the templates
	// required by Modules.
	templateDir fs.FS
}

// NewCachedSite returns a CachedSite instance that is ready to be used.
func NewCachedSite(templates fs.FS) *CachedSite {
	return &CachedSite{
		templateCache: map[string]*template.Template{},
		templateDir:   templates,
	}
}

// GetCachedTemplate returns the cached template associated with the passed
// key, if one exists. If no template is cached for that key, it returns nil.
//
// It can safely be used by multiple goroutines.
func (s *CachedSite) GetCachedTemplate(_ context.Context, key string) *template.Template {
	s.templateCacheMu.RLock()
	defer s.templateCacheMu.RUnlock()
	return s.templateCache[key]
}

// SetCachedTemplate caches a template for the given key.
//
// It can safely be used by multiple goroutines.
func (s *CachedSite) SetCachedTemplate(_ context.Context, key string, tmpl *template.Template) {
	s.templateCacheMu.Lock()
	defer s.templateCacheMu.Unlock()
	s.templateCache[key] = tmpl
}

// TemplateDir returns an fs.FS containing all the templates needed to render a
// Site's Modules. In this case, we just pass back what the consumer passed
// in.
func (s *CachedSite) TemplateDir(_ context.Context) fs.FS {
	return s.templateDir
}
