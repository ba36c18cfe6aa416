package stitch

import (
	"context"
	"errors"
	"fmt"
	"io"
	"sync"
)

var (
	// ErrTemplateNotFound is returned when a TemplateResolver has no
	// template for the requested identifier.
	ErrTemplateNotFound = errors.New("template not found")

	// ErrNoTemplateID is returned when a Module doesn't declare which
	// template it should be rendered with.
	ErrNoTemplateID = errors.New("module has no intended template")

	// ErrDuplicateTemplate is returned when registering a template under
	// an identifier that already has one.
	ErrDuplicateTemplate = errors.New("template already registered")
)

// Template is an interface for a resolved template, ready to be executed
// against a RenderData. *html/template.Template fulfills it.
type Template interface {
	Execute(w io.Writer, data any) error
}

// TemplateFunc is an adapter to allow the use of ordinary functions as
// Templates.
type TemplateFunc func(w io.Writer, data any) error

// Execute calls fn(w, data).
func (fn TemplateFunc) Execute(w io.Writer, data any) error {
	return fn(w, data)
}

// TemplateResolver is an interface for looking up the Template a Module
// should be rendered with.
type TemplateResolver interface {
	// ResolveTemplate returns the Template registered under id. If there
	// is none, the error must wrap ErrTemplateNotFound; if id is empty,
	// it should wrap ErrNoTemplateID.
	ResolveTemplate(ctx context.Context, id string) (Template, error)
}

var _ TemplateResolver = &TemplateRegistry{}

// TemplateRegistry is a TemplateResolver backed by an in-memory map of
// template identifiers to Templates. Its zero value is an empty registry
// ready to use, and it can safely be used by multiple goroutines.
type TemplateRegistry struct {
	mu        sync.RWMutex
	templates map[string]Template
}

// NewTemplateRegistry returns a TemplateRegistry holding the passed
// templates.
func NewTemplateRegistry(templates map[string]Template) (*TemplateRegistry, error) {
	registry := &TemplateRegistry{}
	for id, tmpl := range templates {
		if err := registry.Register(id, tmpl); err != nil {
			return nil, err
		}
	}
	return registry, nil
}

// Register makes tmpl available under id. Registering a second template
// under the same id returns ErrDuplicateTemplate.
func (r *TemplateRegistry) Register(id string, tmpl Template) error {
	if id == "" {
		return fmt.Errorf("error registering %T: %w", tmpl, ErrNoTemplateID)
	}
	if tmpl == nil {
		return fmt.Errorf("error registering template %q: template is nil", id)
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.templates == nil {
		r.templates = map[string]Template{}
	}
	if _, ok := r.templates[id]; ok {
		return fmt.Errorf("error registering template %q: %w", id, ErrDuplicateTemplate)
	}
	r.templates[id] = tmpl
	return nil
}

// MustRegister is like Register, but panics on error. It's meant for
// registering templates during program initialization.
func (r *TemplateRegistry) MustRegister(id string, tmpl Template) {
	if err := r.Register(id, tmpl); err != nil {
		panic(err)
	}
}

// ResolveTemplate returns the Template registered under id.
func (r *TemplateRegistry) ResolveTemplate(_ context.Context, id string) (Template, error) {
	if id == "" {
		return nil, ErrNoTemplateID
	}
	r.mu.RLock()
	defer r.mu.RUnlock()
	tmpl, ok := r.templates[id]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrTemplateNotFound, id)
	}
	return tmpl, nil
}

var _ TemplateResolver = ResolverChain{}

// ResolverChain is a TemplateResolver that asks each of its resolvers in
// turn, returning the first Template found. It only moves on to the next
// resolver when a resolver reports ErrTemplateNotFound; any other error is
// returned immediately.
type ResolverChain []TemplateResolver

// ResolveTemplate returns the first Template any resolver in the chain has
// for id.
func (chain ResolverChain) ResolveTemplate(ctx context.Context, id string) (Template, error) {
	if id == "" {
		return nil, ErrNoTemplateID
	}
	for _, resolver := range chain {
		tmpl, err := resolver.ResolveTemplate(ctx, id)
		if errors.Is(err, ErrTemplateNotFound) {
			continue
		}
		if err != nil {
			return nil, err
		}
		return tmpl, nil
	}
	return nil, fmt.Errorf("%w: %q", ErrTemplateNotFound, id)
}

var _ TemplateResolver = FallbackResolver{}

// FallbackResolver is a TemplateResolver that renders Modules whose
// template can't be found, or who don't declare one, with a fallback
// template instead.
//
// Without a FallbackResolver, a Module with an unknown template fails the
// whole render. Wrapping a resolver in a FallbackResolver is an explicit
// choice to render those Modules with a generic template instead.
type FallbackResolver struct {
	// Resolver is asked for every template first.
	Resolver TemplateResolver

	// ID is the identifier of the template to use when Resolver doesn't
	// have the requested template. It's resolved through Resolver, too.
	ID string
}

// ResolveTemplate returns the Template for id, or the fallback Template if
// there is none.
func (f FallbackResolver) ResolveTemplate(ctx context.Context, id string) (Template, error) {
	tmpl, err := f.Resolver.ResolveTemplate(ctx, id)
	if err == nil {
		return tmpl, nil
	}
	if !errors.Is(err, ErrTemplateNotFound) && !errors.Is(err, ErrNoTemplateID) {
		return nil, err
	}
	logger(ctx).DebugContext(ctx, "falling back to default template", "template", id, "fallback", f.ID)
	tmpl, err = f.Resolver.ResolveTemplate(ctx, f.ID)
	if err != nil {
		return nil, fmt.Errorf("error resolving fallback template %q for %q: %w", f.ID, id, err)
	}
	return tmpl, nil
}
