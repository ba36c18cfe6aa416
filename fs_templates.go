package stitch

import (
	"context"
	"errors"
	"fmt"
	"html/template"
	"io/fs"
	"strings"
)

var (
	// ErrTemplatePatternMatchesNoFiles is returned when a snippet pattern
	// doesn't match any files.
	ErrTemplatePatternMatchesNoFiles = errors.New("pattern matches no files")
)

// DefaultTemplatePattern is the pattern FSTemplates uses to turn a template
// identifier into a file path unless WithTemplatePattern says otherwise.
const DefaultTemplatePattern = "%s.html.tmpl"

var _ TemplateResolver = &FSTemplates{}

// FSTemplates is a TemplateResolver that parses html/template files out of a
// Site's TemplateDir. Every template identifier maps to exactly one file,
// which is parsed along with any shared snippets. If the Site implements
// TemplateCacher, parsed templates are cached there; if it implements
// FuncMapExtender, its functions are available to every template.
type FSTemplates struct {
	site     Site
	pattern  string
	snippets []string
}

// FSTemplatesOption configures an FSTemplates.
type FSTemplatesOption func(*FSTemplates)

// WithTemplatePattern sets the fmt pattern used to turn a template
// identifier into a path within the Site's TemplateDir. The pattern must
// contain exactly one %s verb. The default is DefaultTemplatePattern.
func WithTemplatePattern(pattern string) FSTemplatesOption {
	return func(t *FSTemplates) {
		t.pattern = pattern
	}
}

// WithSnippets adds glob patterns for files that are parsed alongside every
// template, so templates can include the templates they define. Every
// pattern must match at least one file.
func WithSnippets(patterns ...string) FSTemplatesOption {
	return func(t *FSTemplates) {
		t.snippets = append(t.snippets, patterns...)
	}
}

// NewFSTemplates returns an FSTemplates that reads templates from site.
func NewFSTemplates(site Site, opts ...FSTemplatesOption) *FSTemplates {
	templates := &FSTemplates{
		site:    site,
		pattern: DefaultTemplatePattern,
	}
	for _, opt := range opts {
		opt(templates)
	}
	return templates
}

// ResolveTemplate returns the parsed template for id. If the file for id
// doesn't exist, the error wraps ErrTemplateNotFound.
func (t *FSTemplates) ResolveTemplate(ctx context.Context, id string) (Template, error) {
	if id == "" {
		return nil, ErrNoTemplateID
	}
	file := fmt.Sprintf(t.pattern, id)
	if !fs.ValidPath(file) {
		return nil, fmt.Errorf("%w: %q is not a valid template path", ErrTemplateNotFound, file)
	}
	key := t.cacheKey(file)
	if cache, ok := t.site.(TemplateCacher); ok {
		cached := cache.GetCachedTemplate(ctx, key)
		if cached != nil {
			return cached, nil
		}
	}
	fsys := t.site.TemplateDir(ctx)
	_, err := fs.Stat(fsys, file)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("%w: %q", ErrTemplateNotFound, file)
	}
	if err != nil {
		return nil, fmt.Errorf("error checking template %q: %w", file, err)
	}
	var funcs template.FuncMap
	if fm, ok := t.site.(FuncMapExtender); ok {
		funcs = fm.FuncMap(ctx)
	}
	parsed, err := parseTemplates(fsys, funcs, t.snippets, file)
	if err != nil {
		return nil, fmt.Errorf("error parsing template %q: %w", id, err)
	}
	tmpl := parsed.Lookup(file)
	if cache, ok := t.site.(TemplateCacher); ok {
		cache.SetCachedTemplate(ctx, key, tmpl)
	}
	return tmpl, nil
}

// cacheKey identifies file parsed with this FSTemplates' snippets, so
// FSTemplates with different snippets can share a Site's cache.
func (t *FSTemplates) cacheKey(file string) string {
	if len(t.snippets) < 1 {
		return file
	}
	return file + "\x00" + strings.Join(t.snippets, "\x00")
}

// parseTemplates parses every file matching the snippet patterns, then the
// template file itself, into one template set. Each file is named after its
// path, so the template file can be looked up by path afterwards and can
// override snippet definitions.
func parseTemplates(fsys fs.FS, funcs template.FuncMap, snippets []string, file string) (*template.Template, error) {
	var files []string
	seen := map[string]struct{}{file: {}}
	for _, pattern := range snippets {
		list, err := fs.Glob(fsys, pattern)
		if err != nil {
			return nil, fmt.Errorf("error listing files for %q: %w", pattern, err)
		}
		if len(list) < 1 {
			return nil, fmt.Errorf("error parsing %q: %w", pattern, ErrTemplatePatternMatchesNoFiles)
		}
		for _, match := range list {
			if _, ok := seen[match]; ok {
				continue
			}
			seen[match] = struct{}{}
			files = append(files, match)
		}
	}
	files = append(files, file)
	tmpl := template.New("").Funcs(funcs)
	for _, name := range files {
		sub := tmpl.New(name)
		contents, err := fs.ReadFile(fsys, name)
		if err != nil {
			return nil, fmt.Errorf("error reading %q: %w", name, err)
		}
		_, err = sub.Parse(string(contents))
		if err != nil {
			return nil, fmt.Errorf("error parsing %q: %w", name, err)
		}
	}
	return tmpl, nil
}
