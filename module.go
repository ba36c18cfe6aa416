package stitch

import (
	"context"
	"fmt"
	"iter"
)

// Module is an interface for a piece of content that is rendered as one
// fragment of a composite page.
type Module interface {
	// IntendedTemplate returns the identifier of the template that should
	// be used to render the Module.
	IntendedTemplate(context.Context) string

	// Parent returns the page that contains the Module. It should return
	// nil if the Module has no parent; templates receive it as .Page and
	// are responsible for handling a missing page.
	Parent(context.Context) Module
}

// Fielder is an interface that Modules can optionally implement to expose
// named content fields to the "field" template function.
type Fielder interface {
	// Field returns the value of the named content field, or nil if the
	// Module has no such field.
	Field(name string) any
}

// OrderedModuleSource is an interface for anything that can supply Modules
// in the order they should be rendered.
type OrderedModuleSource interface {
	// Modules returns an iterator over the source's Modules. A non-nil
	// error stops the render that's consuming the iterator.
	Modules(context.Context) iter.Seq2[Module, error]
}

var _ OrderedModuleSource = ModuleList{}

// ModuleList is an in-memory OrderedModuleSource. Modules are yielded in
// slice order.
type ModuleList []Module

// Modules yields every Module in the list, in order.
func (list ModuleList) Modules(_ context.Context) iter.Seq2[Module, error] {
	return func(yield func(Module, error) bool) {
		for _, module := range list {
			if !yield(module, nil) {
				return
			}
		}
	}
}

// Collect drains an OrderedModuleSource into a slice, stopping at the first
// error.
func Collect(ctx context.Context, source OrderedModuleSource) ([]Module, error) {
	var results []Module
	for module, err := range source.Modules(ctx) {
		if err != nil {
			return nil, fmt.Errorf("error listing modules: %w", err)
		}
		results = append(results, module)
	}
	return results, nil
}
